package domain

import "time"

// NotificationKind selects how a transient notification is styled.
type NotificationKind string

const (
	NotificationInfo   NotificationKind = "info"
	NotificationDanger NotificationKind = "danger"
)

// Notification is a short-lived, non-blocking status banner.
type Notification struct {
	Kind     NotificationKind
	Title    string
	Body     string
	Duration time.Duration
}
