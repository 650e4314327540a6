// Package clock abstracts one-shot timers so timing-dependent code can be
// driven by a virtual clock in tests.
package clock

import "time"

// Timer is a pending callback.
type Timer interface {
	// Stop cancels the timer. It reports whether the call stopped the timer;
	// false means it already fired or was already stopped.
	Stop() bool
}

// Clock schedules callbacks.
type Clock interface {
	Now() time.Time

	// AfterFunc calls f in its own goroutine (or, for Fake, during Advance)
	// once d has elapsed. It never calls f before returning.
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is the wall clock.
type Real struct{}

// New returns the wall clock.
func New() Clock { return Real{} }

// Now returns time.Now().
func (Real) Now() time.Time { return time.Now() }

// AfterFunc wraps time.AfterFunc.
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
