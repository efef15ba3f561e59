package orchestrator

import "time"

// Timer is a cancellable pending callback
type Timer interface {
	// Stop prevents the callback from running; false if it already ran or was stopped
	Stop() bool
}

// Clock provides time and timers to the orchestrator
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// TimeProvider is the wall clock
type TimeProvider struct{}

// NewTimeProvider creates a wall-clock time provider
func NewTimeProvider() *TimeProvider {
	return &TimeProvider{}
}

// Now returns the current time with monotonic clock reading
func (p *TimeProvider) Now() time.Time {
	return time.Now()
}

// AfterFunc runs f on its own goroutine after d
func (p *TimeProvider) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
