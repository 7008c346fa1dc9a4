package timer

import "time"

// Real arms callbacks on the runtime timer heap.
type Real struct{}

// NewReal returns a Scheduler backed by time.AfterFunc.
func NewReal() Real {
	return Real{}
}

// Arm schedules fn after d.
func (Real) Arm(d time.Duration, fn func()) (Handle, error) {
	return time.AfterFunc(d, fn), nil
}
