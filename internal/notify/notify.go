// Package notify delivers transient notifications. Delivery never blocks the
// caller.
package notify

import (
	"github.com/rs/zerolog"

	"voicechat/internal/domain"
)

// Log writes notifications to a logger. Danger notifications are logged at
// warn level.
type Log struct {
	log zerolog.Logger
}

func NewLog(log zerolog.Logger) Log {
	return Log{log: log}
}

func (l Log) Notify(n domain.Notification) {
	ev := l.log.Info()
	if n.Kind == domain.NotificationDanger {
		ev = l.log.Warn()
	}
	ev.Str("kind", string(n.Kind)).
		Dur("duration", n.Duration).
		Str("body", n.Body).
		Msg(n.Title)
}

// Queue buffers notifications for a consumer such as the terminal UI. When
// the buffer is full the new notification is dropped.
type Queue struct {
	ch      chan domain.Notification
	dropped func(domain.Notification)
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{ch: make(chan domain.Notification, size)}
}

// OnDrop registers fn to observe notifications that did not fit.
func (q *Queue) OnDrop(fn func(domain.Notification)) {
	q.dropped = fn
}

func (q *Queue) Notify(n domain.Notification) {
	select {
	case q.ch <- n:
	default:
		if q.dropped != nil {
			q.dropped(n)
		}
	}
}

func (q *Queue) C() <-chan domain.Notification {
	return q.ch
}

// Multi fans a notification out to several notifiers.
type Multi []interface{ Notify(domain.Notification) }

func (m Multi) Notify(n domain.Notification) {
	for _, t := range m {
		t.Notify(n)
	}
}
