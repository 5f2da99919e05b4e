package scroll

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultThreshold is the visible fraction of the sentinel that triggers a load.
const DefaultThreshold = 0.3

// Sentinel identifies the list item whose visibility signals the end of the list.
type Sentinel struct {
	Key   string
	Index int
}

// Visibility is one observation of a sentinel.
type Visibility struct {
	Sentinel     Sentinel
	Intersecting bool
	Ratio        float64
}

// ViewportObserver reports visibility changes of a sentinel crossing threshold.
// The returned stop function ends the observation.
type ViewportObserver interface {
	Observe(s Sentinel, threshold float64, fn func(Visibility)) (stop func())
}

// Trigger converts sentinel visibility into throttled next-page loads.
type Trigger struct {
	observer  ViewportObserver
	ready     func() bool
	throttle  *Throttle
	threshold float64

	gen atomic.Uint64

	mu       sync.Mutex
	current  Sentinel
	attached bool
	stop     func()
}

type TriggerOption func(*triggerOptions)

type triggerOptions struct {
	window    time.Duration
	clock     Clock
	threshold float64
}

func WithWindow(d time.Duration) TriggerOption {
	return func(o *triggerOptions) { o.window = d }
}

func WithClock(c Clock) TriggerOption {
	return func(o *triggerOptions) { o.clock = c }
}

func WithThreshold(th float64) TriggerOption {
	return func(o *triggerOptions) { o.threshold = th }
}

// NewTrigger returns a trigger that calls load when the attached sentinel is
// visible enough and ready reports that another page can be loaded. ready is
// checked again when a trailing call fires.
func NewTrigger(observer ViewportObserver, ready func() bool, load func(), opts ...TriggerOption) *Trigger {
	o := triggerOptions{window: DefaultWindow, clock: SystemClock, threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(&o)
	}
	t := &Trigger{
		observer:  observer,
		ready:     ready,
		threshold: o.threshold,
	}
	t.throttle = NewThrottle(o.window, o.clock, func() {
		if t.ready() {
			load()
		}
	})
	return t
}

// Attach observes s, replacing the previous sentinel. Attaching the sentinel
// that is already observed is a no-op.
func (t *Trigger) Attach(s Sentinel) {
	t.mu.Lock()
	if t.attached && t.current == s {
		t.mu.Unlock()
		return
	}
	prev := t.stop
	t.current, t.attached, t.stop = s, true, nil
	g := t.gen.Add(1)
	t.mu.Unlock()

	if prev != nil {
		prev()
	}

	stop := t.observer.Observe(s, t.threshold, func(v Visibility) {
		if t.gen.Load() != g {
			return
		}
		t.handle(v)
	})

	t.mu.Lock()
	if t.gen.Load() == g {
		t.stop = stop
		stop = nil
	}
	t.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// Attached returns the observed sentinel, if any.
func (t *Trigger) Attached() (Sentinel, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.attached
}

// Detach stops observing without tearing down the throttle.
func (t *Trigger) Detach() {
	t.mu.Lock()
	prev := t.stop
	t.current, t.attached, t.stop = Sentinel{}, false, nil
	t.gen.Add(1)
	t.mu.Unlock()
	if prev != nil {
		prev()
	}
}

// Close detaches and cancels any pending trailing load.
func (t *Trigger) Close() {
	t.Detach()
	t.throttle.Stop()
}

func (t *Trigger) handle(v Visibility) {
	if !v.Intersecting || v.Ratio < t.threshold {
		return
	}
	if !t.ready() {
		return
	}
	t.throttle.Call()
}

// SentinelLead is how many items before the end of the list the sentinel sits.
const SentinelLead = 8

// SentinelIndex returns the index of the sentinel item in a list of n items,
// or -1 for an empty list.
func SentinelIndex(n int) int {
	if n <= 0 {
		return -1
	}
	if n <= SentinelLead {
		return 0
	}
	return n - SentinelLead
}
