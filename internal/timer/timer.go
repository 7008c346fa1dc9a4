// Package timer provides one-shot delayed callbacks with abstraction for testing.
// The real implementation uses time.AfterFunc.
// The fake implementation fires callbacks only when the test advances it.
package timer

import "time"

// Scheduler arms one-shot callbacks.
type Scheduler interface {
	// Arm registers fn to run once after d. It never blocks waiting for
	// the timer. fn may run on another goroutine.
	Arm(d time.Duration, fn func()) (Handle, error)
}

// Handle cancels an armed callback.
type Handle interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran, is running, or was already stopped. Safe to
	// call any number of times.
	Stop() bool
}
