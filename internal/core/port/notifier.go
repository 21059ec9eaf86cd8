package port

import "time"

type NotificationKind string

const (
	NotificationNormal NotificationKind = "normal"
	NotificationError  NotificationKind = "error"
)

const (
	TimeoutShort  = 2500 * time.Millisecond
	TimeoutMedium = 5000 * time.Millisecond
	TimeoutLong   = 10000 * time.Millisecond
)

type Notification struct {
	TitleKey string
	Kind     NotificationKind
	Timeout  time.Duration
}

type Notifier interface {
	Notify(n Notification)
}
