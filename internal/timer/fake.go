package timer

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrArmFailed is returned by Fake.Arm while FailArm is set.
var ErrArmFailed = errors.New("timer: arm failed")

// Fake is a test double whose callbacks run synchronously inside Advance.
type Fake struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []*fakeTimer

	// FailArm, if set, makes Arm return ErrArmFailed.
	FailArm bool

	// Armed counts successful Arm calls.
	Armed int
}

type fakeTimer struct {
	f        *Fake
	deadline time.Duration
	seq      int
	fn       func()
	done     bool
}

// NewFake creates a Fake at offset zero.
func NewFake() *Fake {
	return &Fake{}
}

// Arm records fn to be fired by Advance once d has elapsed.
func (f *Fake) Arm(d time.Duration, fn func()) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailArm {
		return nil, ErrArmFailed
	}
	f.seq++
	f.Armed++
	t := &fakeTimer{f: f, deadline: f.now + d, seq: f.seq, fn: fn}
	f.pending = append(f.pending, t)
	return t, nil
}

// Advance moves fake time forward by d and runs every callback that came
// due, in deadline order. Callbacks run without the Fake's lock held so
// they may arm new timers; newly armed timers that fall due within the
// same advance also run.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now + d
	f.mu.Unlock()

	for {
		f.mu.Lock()
		next := f.nextDue(target)
		if next == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = next.deadline
		next.done = true
		f.mu.Unlock()

		next.fn()
	}
}

// Pending returns the number of armed, unfired, unstopped timers.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.pending {
		if !t.done {
			n++
		}
	}
	return n
}

// Now returns the elapsed fake time.
func (f *Fake) Now() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// nextDue pops the earliest live timer due at or before target.
// Caller must hold f.mu.
func (f *Fake) nextDue(target time.Duration) *fakeTimer {
	live := f.pending[:0]
	for _, t := range f.pending {
		if !t.done {
			live = append(live, t)
		}
	}
	f.pending = live
	sort.SliceStable(f.pending, func(i, j int) bool {
		if f.pending[i].deadline != f.pending[j].deadline {
			return f.pending[i].deadline < f.pending[j].deadline
		}
		return f.pending[i].seq < f.pending[j].seq
	})
	if len(f.pending) == 0 || f.pending[0].deadline > target {
		return nil
	}
	return f.pending[0]
}

// Stop cancels the timer.
func (t *fakeTimer) Stop() bool {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}
