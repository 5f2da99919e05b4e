package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Kind classifies a notification by the failure taxonomy the core reports.
type Kind string

const (
	KindThrottled   Kind = "throttled"
	KindTransient   Kind = "transient"
	KindValidation  Kind = "validation"
	KindSoftReject  Kind = "soft-reject"
	KindHardFailure Kind = "hard-failure"
	KindInfo        Kind = "info"
	KindSuccess     Kind = "success"
)

// Level reports how a notification should be styled.
func (k Kind) Level() Level {
	switch k {
	case KindInfo:
		return LevelInfo
	case KindSuccess:
		return LevelSuccess
	default:
		return LevelError
	}
}

type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

// Notification is a user-facing, non-blocking message (a toast).
type Notification struct {
	Kind    Kind
	Message string
	At      time.Time
}

// Level is a shorthand for n.Kind.Level().
func (n Notification) Level() Level {
	return n.Kind.Level()
}

// Notifier receives notifications from the core. Implementations must not block.
type Notifier interface {
	Notify(Notification)
}

// Func adapts a function to the Notifier interface.
type Func func(Notification)

func (f Func) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Notifier = Func(func(Notification) {})

// New builds a notification of the given kind.
func New(kind Kind, message string) Notification {
	return Notification{Kind: kind, Message: message, At: time.Now()}
}

const defaultQueueLimit = 32

// Queue buffers notifications until the UI drains them. When full, the oldest
// entry is dropped.
type Queue struct {
	mu    sync.Mutex
	items []Notification
	limit int
}

// NewQueue returns a queue holding at most limit notifications.
func NewQueue(limit int) *Queue {
	if limit <= 0 {
		limit = defaultQueueLimit
	}
	return &Queue{limit: limit}
}

func (q *Queue) Notify(n Notification) {
	if n.At.IsZero() {
		n.At = time.Now()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, n)
	if over := len(q.items) - q.limit; over > 0 {
		q.items = append([]Notification(nil), q.items[over:]...)
	}
}

// Drain returns all buffered notifications in arrival order and empties the queue.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Recent returns up to n of the newest buffered notifications without draining.
func (q *Queue) Recent(n int) []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n <= 0 || len(q.items) == 0 {
		return nil
	}
	start := len(q.items) - n
	if start < 0 {
		start = 0
	}
	return append([]Notification(nil), q.items[start:]...)
}

// Len reports the number of buffered notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Logged forwards to next after recording the notification on logger.
func Logged(next Notifier, logger *slog.Logger) Notifier {
	if next == nil {
		next = Discard
	}
	if logger == nil {
		return next
	}
	return Func(func(n Notification) {
		if n.Level() == LevelError {
			logger.Warn("notification", "kind", string(n.Kind), "message", n.Message)
		} else {
			logger.Debug("notification", "kind", string(n.Kind), "message", n.Message)
		}
		next.Notify(n)
	})
}
