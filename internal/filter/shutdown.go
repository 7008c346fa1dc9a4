package filter

import (
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/sweeney/mouse-debounce/internal/input"
)

// Coordinator tears the filter down on termination.
//
// Both paths first close the gate so concurrent Handle and timer callbacks
// stop acting, then cancel every timer and detach from the source and sink.
// Neither path waits on anything.
type Coordinator struct {
	gate   *Gate
	filter *Filter
	source input.Source
	sink   input.Sink

	tornDown atomic.Bool
}

// NewCoordinator creates a Coordinator for an active filter.
func NewCoordinator(gate *Gate, f *Filter, source input.Source, sink input.Sink) *Coordinator {
	return &Coordinator{gate: gate, filter: f, source: source, sink: sink}
}

// Cooperative handles a user-initiated stop (SIGINT). Errors from detaching
// are returned so the caller can report them.
func (c *Coordinator) Cooperative(reason string) error {
	if c.gate.Close() {
		log.Printf("shutdown: %s, passing events through", reason)
	}
	return c.teardown()
}

// Forced handles session or system termination (SIGTERM, SIGHUP). The
// process may be killed at any moment, so failures are only logged.
func (c *Coordinator) Forced(reason string) {
	c.gate.Close()
	if err := c.teardown(); err != nil {
		log.Printf("shutdown: %s: %v", reason, err)
	}
}

// Phase returns the current shutdown phase.
func (c *Coordinator) Phase() Phase {
	return c.gate.Phase()
}

// teardown runs once; later calls return nil immediately.
func (c *Coordinator) teardown() error {
	if !c.tornDown.CompareAndSwap(false, true) {
		return nil
	}
	defer c.gate.markStopped()

	c.filter.CancelAll()

	var errs []error
	if c.source != nil {
		if err := c.source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close source: %w", err))
		}
	}
	if c.sink != nil {
		if err := c.sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sink: %w", err))
		}
	}
	return errors.Join(errs...)
}
