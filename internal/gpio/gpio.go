// Package gpio provides buttons wired to GPIO lines as a pointer event source.
// The real implementation uses Linux GPIO character device edge events.
// The fake implementation allows testing without hardware.
package gpio

import (
	"errors"
	"sync"
	"time"

	"github.com/sweeney/mouse-debounce/internal/input"
)

// DefaultChip is the GPIO chip the buttons are wired to.
const DefaultChip = "gpiochip0"

// ErrClosed is returned by Read after Close.
var ErrClosed = errors.New("gpio: source closed")

// Edge is one contact change on a line, in logical (active-low corrected)
// terms.
type Edge struct {
	Pin     int
	Pressed bool
	// Timestamp is the kernel event time (monotonic since boot).
	Timestamp time.Duration
}

// edgeQueue turns edges into input events and hands them to Read.
type edgeQueue struct {
	pins   map[int]uint16
	events chan input.Event
	done   chan struct{}
	once   sync.Once
}

func newEdgeQueue(pins map[int]uint16) *edgeQueue {
	return &edgeQueue{
		pins:   pins,
		events: make(chan input.Event, 64),
		done:   make(chan struct{}),
	}
}

// push queues a button event and its sync report. It returns false for
// unmapped pins or after close.
func (q *edgeQueue) push(e Edge) bool {
	code, ok := q.pins[e.Pin]
	if !ok {
		return false
	}
	select {
	case <-q.done:
		return false
	default:
	}
	ms := uint32(e.Timestamp / time.Millisecond)
	ev := input.Release(code, ms)
	if e.Pressed {
		ev = input.Press(code, ms)
	}
	syn := input.Event{Type: input.EvSyn, Code: input.SynReport, Time: ms}
	for _, out := range []input.Event{ev, syn} {
		select {
		case q.events <- out:
		case <-q.done:
			return false
		}
	}
	return true
}

func (q *edgeQueue) Read() (input.Event, error) {
	select {
	case ev := <-q.events:
		return ev, nil
	case <-q.done:
		return input.Event{}, ErrClosed
	}
}

func (q *edgeQueue) close() {
	q.once.Do(func() { close(q.done) })
}
