package logic

import "time"

// Elapsed returns the milliseconds from start to now on a wrapping 32-bit
// millisecond counter. Unsigned subtraction keeps the result correct across
// the wrap point.
func Elapsed(start, now uint32) uint32 {
	return now - start
}

// ElapsedAtLeast reports whether at least threshold ms separate start and now.
func ElapsedAtLeast(start, now, threshold uint32) bool {
	return Elapsed(start, now) >= threshold
}

// Millis converts a duration to a millisecond count on the event clock.
func Millis(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	return uint32(d / time.Millisecond)
}

// Channel is the debounce state machine of one button.
// Not safe for concurrent use; callers serialize events and timer fires.
type Channel struct {
	chatterMs   uint32
	recontactMs uint32

	state State
	// pressTime is the event time of the forwarded press (state != Idle).
	pressTime uint32
	// releaseTime is the event time of the candidate release that armed
	// the confirmation timer (state == PendingRelease).
	releaseTime uint32
}

// NewChannel creates an Idle channel using the given thresholds.
func NewChannel(t Thresholds) *Channel {
	return &Channel{
		chatterMs:   Millis(t.Chatter),
		recontactMs: Millis(t.Recontact),
		state:       StateIdle,
	}
}

// State returns the current state.
func (c *Channel) State() State {
	return c.state
}

// PressTime returns the time of the forwarded press. ok is false when Idle.
func (c *Channel) PressTime() (ms uint32, ok bool) {
	if c.state == StateIdle {
		return 0, false
	}
	return c.pressTime, true
}

// Press processes a genuine press observed at now.
func (c *Channel) Press(now uint32) Action {
	prior := c.expireIfDue(now)

	var a Action
	switch c.state {
	case StateIdle:
		c.state = StateForwarding
		c.pressTime = now
		a = Action{Forward: true, Reason: ReasonPress}
	case StateForwarding:
		a = Action{Reason: ReasonDuplicate}
	case StatePendingRelease:
		// Contact came back inside the confirmation window: the hold continues.
		c.state = StateForwarding
		a = Action{Cancel: true, Reason: ReasonDropout}
	}
	a.Prior = prior
	return a
}

// Release processes a genuine release observed at now. Releases are never
// forwarded directly; they either get dropped or start confirmation.
func (c *Channel) Release(now uint32) Action {
	prior := c.expireIfDue(now)

	var a Action
	switch c.state {
	case StateIdle:
		a = Action{Reason: ReasonOrphan}
	case StateForwarding:
		if !ElapsedAtLeast(c.pressTime, now, c.chatterMs) {
			a = Action{Reason: ReasonChatter}
			break
		}
		c.state = StatePendingRelease
		c.releaseTime = now
		a = Action{Arm: true, Reason: ReasonCandidate}
	case StatePendingRelease:
		if !ElapsedAtLeast(c.pressTime, now, c.chatterMs) {
			c.state = StateForwarding
			a = Action{Cancel: true, Reason: ReasonChatter}
			break
		}
		c.releaseTime = now
		a = Action{Arm: true, Reason: ReasonRearm}
	}
	a.Prior = prior
	return a
}

// Fire processes expiry of the confirmation timer. It is a no-op unless
// the channel is still waiting for confirmation.
func (c *Channel) Fire() Action {
	if c.state != StatePendingRelease {
		return Action{Reason: ReasonStale}
	}
	c.state = StateIdle
	return Action{Synthesize: true, Reason: ReasonConfirmed}
}

// Reset returns the channel to Idle without emitting anything.
func (c *Channel) Reset() {
	c.state = StateIdle
	c.pressTime = 0
	c.releaseTime = 0
}

// expireIfDue applies a confirmation that is already due by the event
// clock, so an event racing its own timer is ordered after the expiry
// regardless of which callback ran first.
func (c *Channel) expireIfDue(now uint32) *Action {
	if c.state != StatePendingRelease || !ElapsedAtLeast(c.releaseTime, now, c.recontactMs) {
		return nil
	}
	a := c.Fire()
	a.Cancel = true
	return &a
}
