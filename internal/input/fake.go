package input

import (
	"errors"
	"sync"
)

// ErrClosed is returned by fakes after Close.
var ErrClosed = errors.New("input: closed")

// FakeSource is a test double that returns scripted events.
type FakeSource struct {
	mu     sync.Mutex
	events chan Event
	done   chan struct{}
	closed bool

	// CloseCalls counts calls to Close.
	CloseCalls int
}

// NewFakeSource creates a FakeSource. Events are queued with Push.
func NewFakeSource() *FakeSource {
	return &FakeSource{
		events: make(chan Event, 256),
		done:   make(chan struct{}),
	}
}

// Push queues events to be returned by Read.
func (f *FakeSource) Push(events ...Event) {
	for _, ev := range events {
		f.events <- ev
	}
}

// Read returns the next queued event, blocking until one is pushed or the
// source is closed.
func (f *FakeSource) Read() (Event, error) {
	select {
	case ev := <-f.events:
		return ev, nil
	case <-f.done:
		return Event{}, ErrClosed
	}
}

// Close unblocks Read.
func (f *FakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CloseCalls++
	if !f.closed {
		f.closed = true
		close(f.done)
	}
	return nil
}

// Output is one event seen by a FakeSink.
type Output struct {
	Event Event
	// Injected is true for events emitted through InjectRelease.
	Injected bool
}

// FakeSink records forwarded and injected events for test assertions.
type FakeSink struct {
	mu      sync.Mutex
	outputs []Output
	closed  bool

	// ForwardError, if set, will be returned by Forward.
	ForwardError error

	// InjectError, if set, will be returned by InjectRelease.
	InjectError error

	// CloseError, if set, will be returned by Close.
	CloseError error
}

// NewFakeSink creates an empty FakeSink.
func NewFakeSink() *FakeSink {
	return &FakeSink{}
}

// Forward records the event.
func (f *FakeSink) Forward(ev Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ForwardError != nil {
		return f.ForwardError
	}
	f.outputs = append(f.outputs, Output{Event: ev})
	return nil
}

// InjectRelease records a synthetic release.
func (f *FakeSink) InjectRelease(code uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InjectError != nil {
		return f.InjectError
	}
	ev := Event{Type: EvKey, Code: code, Value: ValueRelease, Origin: Synthetic}
	f.outputs = append(f.outputs, Output{Event: ev, Injected: true})
	return nil
}

// Close marks the sink as closed.
func (f *FakeSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return f.CloseError
}

// Closed reports whether Close was called.
func (f *FakeSink) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Outputs returns a copy of everything the sink received.
func (f *FakeSink) Outputs() []Output {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Output, len(f.outputs))
	copy(out, f.outputs)
	return out
}

// Buttons returns only the button transitions the sink received for code.
func (f *FakeSink) Buttons(code uint16) []Output {
	var out []Output
	for _, o := range f.Outputs() {
		if o.Event.Type == EvKey && o.Event.Code == code {
			out = append(out, o)
		}
	}
	return out
}

// Reset clears recorded outputs.
func (f *FakeSink) Reset() {
	f.mu.Lock()
	f.outputs = nil
	f.closed = false
	f.ForwardError = nil
	f.InjectError = nil
	f.CloseError = nil
	f.mu.Unlock()
}
