// Package logic contains the pure per-button debounce state machine.
// This package has NO external dependencies (no evdev, GPIO, MQTT, OS, or timers).
// Time is always injected as a wrapping millisecond counter.
package logic

import "time"

// State is the debounce state of a single button channel.
type State string

const (
	StateIdle           State = "IDLE"
	StateForwarding     State = "FORWARDING"
	StatePendingRelease State = "PENDING_RELEASE"
)

// Reason explains why an Action was taken. Used for counters and logs.
type Reason string

const (
	ReasonPress     Reason = "PRESS"     // press forwarded from Idle
	ReasonDuplicate Reason = "DUPLICATE" // press while already held
	ReasonChatter   Reason = "CHATTER"   // release too soon after the press
	ReasonCandidate Reason = "CANDIDATE" // release held back for confirmation
	ReasonDropout   Reason = "DROPOUT"   // re-press during confirmation window
	ReasonRearm     Reason = "REARM"     // further release during confirmation window
	ReasonOrphan    Reason = "ORPHAN"    // release with no forwarded press
	ReasonConfirmed Reason = "CONFIRMED" // confirmation timer expired
	ReasonStale     Reason = "STALE"     // timer fired after the channel moved on
)

// Action is the decision produced by one step of a Channel.
//
// The zero Action suppresses the event and touches no timer.
type Action struct {
	// Forward lets the original press through unchanged.
	Forward bool
	// Arm (re)starts the confirmation timer. Any outstanding timer must
	// be canceled first.
	Arm bool
	// Cancel stops the outstanding confirmation timer.
	Cancel bool
	// Synthesize emits exactly one release downstream.
	Synthesize bool
	// Reason is the transition that produced this action.
	Reason Reason
	// Prior is set when a timer expiry had to be applied before the
	// event itself (see Channel.Press). Its Synthesize must be carried
	// out before Forward.
	Prior *Action
}

// Thresholds holds the two debounce durations.
type Thresholds struct {
	// Chatter is the minimum press duration for a release to be believed.
	Chatter time.Duration
	// Recontact is how long a candidate release is held back waiting for
	// a re-press.
	Recontact time.Duration
}

// Default thresholds.
const (
	DefaultChatter   = 100 * time.Millisecond
	DefaultRecontact = 30 * time.Millisecond
)

// DefaultThresholds returns the built-in thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Chatter: DefaultChatter, Recontact: DefaultRecontact}
}

// Counts tracks decisions taken on a channel since startup.
type Counts struct {
	Presses    int // presses forwarded
	Duplicates int
	Chatter    int
	Candidates int
	Dropouts   int
	Rearms     int
	Orphans    int
	Releases   int // releases synthesized (confirmed or fail-open)
	FailOpen   int
	Stale      int
}

// Add records the reason of an action (and of its prior action, if any).
func (c *Counts) Add(a Action) {
	if a.Prior != nil {
		c.Add(*a.Prior)
	}
	switch a.Reason {
	case ReasonPress:
		c.Presses++
	case ReasonDuplicate:
		c.Duplicates++
	case ReasonChatter:
		c.Chatter++
	case ReasonCandidate:
		c.Candidates++
	case ReasonDropout:
		c.Dropouts++
	case ReasonRearm:
		c.Rearms++
	case ReasonOrphan:
		c.Orphans++
	case ReasonConfirmed:
		c.Releases++
	case ReasonStale:
		c.Stale++
	}
}

// Plus returns the field-wise sum of two counts.
func (c Counts) Plus(o Counts) Counts {
	return Counts{
		Presses:    c.Presses + o.Presses,
		Duplicates: c.Duplicates + o.Duplicates,
		Chatter:    c.Chatter + o.Chatter,
		Candidates: c.Candidates + o.Candidates,
		Dropouts:   c.Dropouts + o.Dropouts,
		Rearms:     c.Rearms + o.Rearms,
		Orphans:    c.Orphans + o.Orphans,
		Releases:   c.Releases + o.Releases,
		FailOpen:   c.FailOpen + o.FailOpen,
		Stale:      c.Stale + o.Stale,
	}
}
