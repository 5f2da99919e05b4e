package scroll

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultWindow is the minimum spacing between next-page loads.
const DefaultWindow = 440 * time.Millisecond

// Timer is the handle returned by Clock.AfterFunc.
type Timer interface {
	Stop() bool
}

// Clock abstracts time so the throttle can be driven deterministically.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Throttle spaces calls to fn at least one window apart. The first call fires
// immediately; calls made inside the window collapse into a single trailing
// call at the end of it.
type Throttle struct {
	fn      func()
	clock   Clock
	limiter *rate.Limiter

	mu       sync.Mutex
	trailing Timer
	stopped  bool
}

func NewThrottle(window time.Duration, clock Clock, fn func()) *Throttle {
	if window <= 0 {
		window = DefaultWindow
	}
	if clock == nil {
		clock = SystemClock
	}
	return &Throttle{
		fn:      fn,
		clock:   clock,
		limiter: rate.NewLimiter(rate.Every(window), 1),
	}
}

// Call invokes fn now, schedules it for the end of the current window, or
// does nothing when a trailing call is already scheduled.
func (t *Throttle) Call() {
	t.mu.Lock()
	if t.stopped || t.trailing != nil {
		t.mu.Unlock()
		return
	}
	now := t.clock.Now()
	if t.limiter.AllowN(now, 1) {
		t.mu.Unlock()
		t.fn()
		return
	}
	delay := t.limiter.ReserveN(now, 1).DelayFrom(now)
	t.trailing = t.clock.AfterFunc(delay, t.fire)
	t.mu.Unlock()
}

func (t *Throttle) fire() {
	t.mu.Lock()
	t.trailing = nil
	stopped := t.stopped
	t.mu.Unlock()
	if !stopped {
		t.fn()
	}
}

// Stop cancels any scheduled trailing call. Later calls are ignored.
func (t *Throttle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.trailing != nil {
		t.trailing.Stop()
		t.trailing = nil
	}
}
