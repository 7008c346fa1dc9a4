package filter

import "sync/atomic"

// Phase is the shutdown phase shared by the filter and the coordinator.
type Phase int32

const (
	PhaseActive Phase = iota
	PhaseDraining
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "ACTIVE"
	case PhaseDraining:
		return "DRAINING"
	case PhaseStopped:
		return "STOPPED"
	}
	return "UNKNOWN"
}

// Gate is the process-wide shutdown flag. Once closed, the filter passes
// every event through untouched. All accesses are atomic.
type Gate struct {
	phase atomic.Int32
}

// NewGate returns an open (Active) gate.
func NewGate() *Gate {
	return &Gate{}
}

// Closed reports whether shutdown has begun.
func (g *Gate) Closed() bool {
	return Phase(g.phase.Load()) != PhaseActive
}

// Phase returns the current phase.
func (g *Gate) Phase() Phase {
	return Phase(g.phase.Load())
}

// Close moves Active to Draining. It reports whether this call did it.
func (g *Gate) Close() bool {
	return g.phase.CompareAndSwap(int32(PhaseActive), int32(PhaseDraining))
}

func (g *Gate) markStopped() {
	g.phase.Store(int32(PhaseStopped))
}
