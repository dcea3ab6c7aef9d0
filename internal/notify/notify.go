// Package notify carries non-blocking user notifications (toasts).
package notify

import (
	"sync"
	"time"
)

// Level is the notification severity.
type Level string

const (
	Info    Level = "info"
	Success Level = "success"
	Warning Level = "warning"
	Error   Level = "error"
)

// Notification is one toast.
type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier surfaces messages to the user.
type Notifier interface {
	Notify(level Level, msg string)
}

// Queue buffers notifications until the UI drains them. Oldest entries
// are dropped beyond max.
type Queue struct {
	mu    sync.Mutex
	max   int
	items []Notification
}

// NewQueue creates a queue holding at most max entries.
func NewQueue(max int) *Queue {
	if max <= 0 {
		max = 8
	}
	return &Queue{max: max}
}

func (q *Queue) Notify(level Level, msg string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, Notification{Level: level, Message: msg, At: time.Now()})
	if len(q.items) > q.max {
		q.items = q.items[len(q.items)-q.max:]
	}
}

// Drain returns and clears pending notifications.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.items
	q.items = nil
	return out
}

// Recorder keeps every notification. Handy in tests.
type Recorder struct {
	mu    sync.Mutex
	Items []Notification
}

func (r *Recorder) Notify(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Items = append(r.Items, Notification{Level: level, Message: msg})
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Items) == 0 {
		return Notification{}, false
	}
	return r.Items[len(r.Items)-1], true
}
