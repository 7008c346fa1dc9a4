// Package filter debounces pointer button events between a source and a sink.
//
// Each configured button owns one logic.Channel plus at most one confirmation
// timer. A button's raw events and its timer callback are serialized by the
// channel's mutex; channels share nothing except the shutdown Gate.
package filter

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/sweeney/mouse-debounce/internal/input"
	"github.com/sweeney/mouse-debounce/internal/logic"
	"github.com/sweeney/mouse-debounce/internal/timer"
)

// Config configures a Filter.
type Config struct {
	Thresholds logic.Thresholds
	// Buttons lists the button codes to debounce. Other buttons pass through.
	Buttons []uint16
	// Verbose logs every decision.
	Verbose bool
}

// Filter is the adapter between raw events and the per-button state machines.
type Filter struct {
	gate      *Gate
	sched     timer.Scheduler
	sink      input.Sink
	recontact time.Duration
	verbose   bool

	// channels is fixed after New; only the channel contents change.
	channels map[uint16]*channel
	codes    []uint16
}

type channel struct {
	code uint16

	mu     sync.Mutex
	sm     *logic.Channel
	timer  timer.Handle
	gen    uint64 // bumped whenever the timer slot is armed or cleared
	counts logic.Counts
	armErr error // last refused arm, logged by Handle after unlocking
}

// ChannelStatus is a point-in-time view of one button.
type ChannelStatus struct {
	Code   uint16
	Name   string
	State  logic.State
	Counts logic.Counts
}

// New creates a Filter writing to sink and arming timers on sched.
func New(cfg Config, gate *Gate, sched timer.Scheduler, sink input.Sink) (*Filter, error) {
	if len(cfg.Buttons) == 0 {
		return nil, errors.New("filter: no buttons configured")
	}
	if cfg.Thresholds.Chatter <= 0 || cfg.Thresholds.Recontact <= 0 {
		return nil, fmt.Errorf("filter: thresholds must be positive (chatter=%v recontact=%v)",
			cfg.Thresholds.Chatter, cfg.Thresholds.Recontact)
	}

	f := &Filter{
		gate:      gate,
		sched:     sched,
		sink:      sink,
		recontact: cfg.Thresholds.Recontact,
		verbose:   cfg.Verbose,
		channels:  make(map[uint16]*channel, len(cfg.Buttons)),
	}
	for _, code := range cfg.Buttons {
		if _, dup := f.channels[code]; dup {
			return nil, fmt.Errorf("filter: button %s configured twice", input.ButtonName(code))
		}
		f.channels[code] = &channel{code: code, sm: logic.NewChannel(cfg.Thresholds)}
		f.codes = append(f.codes, code)
	}
	sort.Slice(f.codes, func(i, j int) bool { return f.codes[i] < f.codes[j] })
	return f, nil
}

// Handle processes one event from the source. Suppressed events are simply
// not written to the sink.
func (f *Filter) Handle(ev input.Event) error {
	if ev.Origin == input.Synthetic || f.gate.Closed() || !ev.IsButton() {
		return f.sink.Forward(ev)
	}
	ch, ok := f.channels[ev.Code]
	if !ok {
		return f.sink.Forward(ev)
	}

	ch.mu.Lock()
	// The coordinator may have closed the gate while we waited for the lock.
	if f.gate.Closed() {
		err := f.sink.Forward(ev)
		ch.mu.Unlock()
		return err
	}

	var a logic.Action
	if ev.IsPress() {
		a = ch.sm.Press(ev.Time)
	} else {
		a = ch.sm.Release(ev.Time)
	}
	ch.counts.Add(a)
	err := f.apply(ch, a, ev)
	state := ch.sm.State()
	armErr := ch.armErr
	ch.armErr = nil
	ch.mu.Unlock()

	// Log after unlocking; writes to stderr may block.
	if armErr != nil {
		log.Printf("filter: %s: arm confirmation timer: %v; releasing now", input.ButtonName(ev.Code), armErr)
	}
	if f.verbose {
		log.Printf("filter: %s value=%d t=%d -> %s (%s)", input.ButtonName(ev.Code), ev.Value, ev.Time, a.Reason, state)
	}
	return err
}

// apply carries out an action. Caller must hold ch.mu.
func (f *Filter) apply(ch *channel, a logic.Action, ev input.Event) error {
	var errs []error
	if a.Prior != nil {
		if err := f.apply(ch, *a.Prior, ev); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Cancel || a.Arm {
		ch.stopTimer()
	}
	if a.Arm {
		if err := f.armTimer(ch); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Synthesize {
		if err := f.inject(ch); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Forward {
		if err := f.sink.Forward(ev); err != nil {
			errs = append(errs, fmt.Errorf("forward %s press: %w", input.ButtonName(ch.code), err))
		}
	}
	return errors.Join(errs...)
}

// armTimer starts the confirmation timer. If the scheduler refuses, the
// release is confirmed immediately rather than swallowed.
// Caller must hold ch.mu.
func (f *Filter) armTimer(ch *channel) error {
	ch.gen++
	gen := ch.gen
	h, err := f.sched.Arm(f.recontact, func() { f.fire(ch, gen) })
	if err == nil {
		ch.timer = h
		return nil
	}

	ch.armErr = err
	a := ch.sm.Fire()
	ch.counts.Add(a)
	ch.counts.FailOpen++
	if a.Synthesize {
		return f.inject(ch)
	}
	return nil
}

// fire runs on the timer goroutine.
func (f *Filter) fire(ch *channel, gen uint64) {
	ch.mu.Lock()
	if f.gate.Closed() {
		ch.mu.Unlock()
		return
	}
	if gen != ch.gen {
		// Canceled or re-armed after this callback was already in flight.
		ch.counts.Stale++
		ch.mu.Unlock()
		return
	}
	ch.timer = nil

	a := ch.sm.Fire()
	ch.counts.Add(a)
	var err error
	if a.Synthesize {
		err = f.inject(ch)
	}
	state := ch.sm.State()
	ch.mu.Unlock()

	if f.verbose {
		log.Printf("filter: %s timer -> %s (%s)", input.ButtonName(ch.code), a.Reason, state)
	}
	if err != nil {
		log.Printf("filter: %v", err)
	}
}

func (f *Filter) inject(ch *channel) error {
	if err := f.sink.InjectRelease(ch.code); err != nil {
		return fmt.Errorf("inject %s release: %w", input.ButtonName(ch.code), err)
	}
	return nil
}

// stopTimer clears the timer slot. Caller must hold ch.mu.
func (ch *channel) stopTimer() {
	if ch.timer != nil {
		ch.timer.Stop()
		ch.timer = nil
	}
	ch.gen++
}

// CancelAll stops every outstanding timer and returns all channels to Idle.
// Safe to call more than once.
func (f *Filter) CancelAll() {
	for _, code := range f.codes {
		ch := f.channels[code]
		ch.mu.Lock()
		ch.stopTimer()
		ch.sm.Reset()
		ch.mu.Unlock()
	}
}

// Status returns a snapshot of every channel in button code order.
func (f *Filter) Status() []ChannelStatus {
	out := make([]ChannelStatus, 0, len(f.codes))
	for _, code := range f.codes {
		ch := f.channels[code]
		ch.mu.Lock()
		out = append(out, ChannelStatus{
			Code:   code,
			Name:   input.ButtonName(code),
			State:  ch.sm.State(),
			Counts: ch.counts,
		})
		ch.mu.Unlock()
	}
	return out
}

// Totals sums counters across channels.
func (f *Filter) Totals() logic.Counts {
	var total logic.Counts
	for _, s := range f.Status() {
		total = total.Plus(s.Counts)
	}
	return total
}

// Run feeds events from src into the filter until src.Read fails.
// Per-event sink errors are logged and do not stop the loop.
func (f *Filter) Run(src input.Source) error {
	for {
		ev, err := src.Read()
		if err != nil {
			return err
		}
		if err := f.Handle(ev); err != nil {
			log.Printf("filter: %v", err)
		}
	}
}
