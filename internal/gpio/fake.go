package gpio

import "sync"

// Fake is a test double that produces events from scripted edges.
type Fake struct {
	*edgeQueue

	mu     sync.Mutex
	closed bool
}

// NewFake creates a Fake mapping pins to button codes.
func NewFake(pins map[int]uint16) *Fake {
	return &Fake{edgeQueue: newEdgeQueue(pins)}
}

// Edge injects an edge as if the kernel had reported it.
func (f *Fake) Edge(e Edge) bool {
	return f.push(e)
}

// Close marks the source as closed and unblocks Read.
func (f *Fake) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.close()
	return nil
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
