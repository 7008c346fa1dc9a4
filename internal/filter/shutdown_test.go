package filter

import (
	"errors"
	"testing"

	"github.com/sweeney/mouse-debounce/internal/input"
	"github.com/sweeney/mouse-debounce/internal/logic"
)

type errCloser struct {
	*input.FakeSource
}

func (e errCloser) Close() error {
	e.FakeSource.Close()
	return errors.New("detach failed")
}

func TestGatePhases(t *testing.T) {
	g := NewGate()
	if g.Closed() || g.Phase() != PhaseActive {
		t.Fatalf("new gate should be active, got %s", g.Phase())
	}
	if !g.Close() {
		t.Error("first Close should report true")
	}
	if g.Close() {
		t.Error("second Close should report false")
	}
	if !g.Closed() || g.Phase() != PhaseDraining {
		t.Errorf("expected DRAINING, got %s", g.Phase())
	}
	g.markStopped()
	if g.Phase() != PhaseStopped || !g.Closed() {
		t.Errorf("expected STOPPED, got %s", g.Phase())
	}
	if Phase(42).String() != "UNKNOWN" {
		t.Errorf("unexpected phase string %q", Phase(42).String())
	}
}

func TestCooperativeShutdownCancelsTimers(t *testing.T) {
	h := newHarness(t, 0)
	src := input.NewFakeSource()
	coord := NewCoordinator(h.gate, h.f, src, h.sink)

	h.press(input.BtnLeft, 0)
	h.release(input.BtnLeft, 100)
	if h.clk.Pending() != 1 {
		t.Fatalf("expected pending confirmation timer, got %d", h.clk.Pending())
	}

	if err := coord.Cooperative("SIGINT"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coord.Phase() != PhaseStopped {
		t.Errorf("expected STOPPED, got %s", coord.Phase())
	}
	if h.clk.Pending() != 0 {
		t.Errorf("expected no pending timers, got %d", h.clk.Pending())
	}
	if src.CloseCalls != 1 {
		t.Errorf("expected source closed once, got %d", src.CloseCalls)
	}
	if !h.sink.Closed() {
		t.Error("expected sink closed")
	}

	h.at(1000)
	assertTally(t, h.sink, input.BtnLeft, 1, 0)

	for _, st := range h.f.Status() {
		if st.State != logic.StateIdle {
			t.Errorf("%s: expected IDLE after teardown, got %s", st.Name, st.State)
		}
	}
}

func TestShutdownPassesEventsThrough(t *testing.T) {
	h := newHarness(t, 0)
	coord := NewCoordinator(h.gate, h.f, nil, nil)
	coord.Cooperative("SIGINT")

	events := []input.Event{
		input.Press(input.BtnLeft, 0),
		input.Release(input.BtnLeft, 5), // would be chatter
		input.Press(input.BtnLeft, 6),
		input.Press(input.BtnLeft, 7), // would be a duplicate
	}
	for _, ev := range events {
		if err := h.f.Handle(ev); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	h.at(1000)

	out := h.sink.Outputs()
	if len(out) != len(events) {
		t.Fatalf("expected %d pass-through outputs, got %d", len(events), len(out))
	}
	for i := range events {
		if out[i].Event != events[i] || out[i].Injected {
			t.Errorf("output %d: got %+v, want %+v", i, out[i], events[i])
		}
	}
	if h.clk.Armed != 0 {
		t.Errorf("no timers may be armed after shutdown, got %d", h.clk.Armed)
	}
}

func TestTimerFiringDuringDrainIsNoop(t *testing.T) {
	sched := &captureScheduler{}
	sink := input.NewFakeSink()
	gate := NewGate()
	f, _ := New(Config{
		Thresholds: logic.Thresholds{Chatter: chatter, Recontact: recontact},
		Buttons:    []uint16{input.BtnLeft},
	}, gate, sched, sink)

	f.Handle(input.Press(input.BtnLeft, 0))
	f.Handle(input.Release(input.BtnLeft, 100))

	// Gate closed but teardown not yet run: the callback must still do nothing.
	gate.Close()
	sched.fns[0]()
	assertTally(t, sink, input.BtnLeft, 1, 0)
}

func TestShutdownIdempotent(t *testing.T) {
	h := newHarness(t, 0)
	src := input.NewFakeSource()
	coord := NewCoordinator(h.gate, h.f, src, h.sink)

	if err := coord.Cooperative("SIGINT"); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := coord.Cooperative("SIGINT"); err != nil {
		t.Fatalf("second: %v", err)
	}
	coord.Forced("SIGTERM")

	if src.CloseCalls != 1 {
		t.Errorf("expected single detach, got %d", src.CloseCalls)
	}
}

func TestForcedShutdown(t *testing.T) {
	h := newHarness(t, 0)
	src := errCloser{input.NewFakeSource()}
	coord := NewCoordinator(h.gate, h.f, src, h.sink)

	h.press(input.BtnLeft, 0)
	h.release(input.BtnLeft, 100)

	// Detach failure is tolerated.
	coord.Forced("SIGHUP")

	if coord.Phase() != PhaseStopped {
		t.Errorf("expected STOPPED, got %s", coord.Phase())
	}
	h.at(1000)
	assertTally(t, h.sink, input.BtnLeft, 1, 0)
}

func TestCooperativeReportsDetachError(t *testing.T) {
	h := newHarness(t, 0)
	coord := NewCoordinator(h.gate, h.f, errCloser{input.NewFakeSource()}, h.sink)
	if err := coord.Cooperative("SIGINT"); err == nil {
		t.Error("expected detach error")
	}
}
