package refresh

import "time"

// Clock abstracts time for the scheduler so tests can drive ticks and
// timeouts without sleeping.
type Clock interface {
	Now() time.Time
	// After behaves like time.After. A zero or negative duration blocks
	// forever, which disables interval ticking.
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time {
	if d <= 0 {
		return nil
	}
	return time.After(d)
}

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }
