package session

import "time"

// Timer is a one-shot timer that can be disarmed.
type Timer interface {
	Stop() bool
}

// Clock is the time source for the expiry timer.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
