package kms

import "time"

// Clock abstracts time for the background schedulers so rotation and renewal
// timing logic is deterministically testable without real sleeps.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// realClock implements Clock using the time package.
type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// NewClock returns a Clock backed by real time.
func NewClock() Clock {
	return realClock{}
}
