// Package input defines the pointer event stream and its source/sink abstractions.
// Real sources and sinks live in the evdev and gpio packages.
// The fakes in this package allow testing without hardware.
package input

import (
	"fmt"
	"sort"
	"strings"
)

// Event types and codes from linux/input-event-codes.h.
const (
	EvSyn = 0x00
	EvKey = 0x01
	EvRel = 0x02

	SynReport = 0x00

	RelX      = 0x00
	RelY      = 0x01
	RelHWheel = 0x06
	RelWheel  = 0x08

	BtnLeft   = 0x110
	BtnRight  = 0x111
	BtnMiddle = 0x112
	BtnSide   = 0x113
	BtnExtra  = 0x114
)

// EV_KEY values.
const (
	ValueRelease = 0
	ValuePress   = 1
	ValueRepeat  = 2
)

// Origin tags where an event came from.
type Origin int

const (
	// Genuine events come from the physical device.
	Genuine Origin = iota
	// Synthetic events were generated by this process.
	Synthetic
)

func (o Origin) String() string {
	if o == Synthetic {
		return "synthetic"
	}
	return "genuine"
}

// Event is one input event.
type Event struct {
	Type  uint16
	Code  uint16
	Value int32
	// Time is the event timestamp on a wrapping millisecond counter.
	Time   uint32
	Origin Origin
}

// IsButton reports whether the event is a button press or release.
// Key repeats are not button transitions.
func (e Event) IsButton() bool {
	return e.Type == EvKey && (e.Value == ValuePress || e.Value == ValueRelease)
}

// IsPress reports whether the event is a button press.
func (e Event) IsPress() bool {
	return e.Type == EvKey && e.Value == ValuePress
}

// Press returns a genuine press event for button code at ms.
func Press(code uint16, ms uint32) Event {
	return Event{Type: EvKey, Code: code, Value: ValuePress, Time: ms}
}

// Release returns a genuine release event for button code at ms.
func Release(code uint16, ms uint32) Event {
	return Event{Type: EvKey, Code: code, Value: ValueRelease, Time: ms}
}

// Source produces input events.
type Source interface {
	// Read blocks until the next event is available.
	// It returns an error once the source has been closed.
	Read() (Event, error)

	// Close releases the device. Safe to call more than once.
	Close() error
}

// Sink delivers events to downstream consumers.
type Sink interface {
	// Forward passes an event through unchanged.
	Forward(ev Event) error

	// InjectRelease emits a self-generated release for the button.
	InjectRelease(code uint16) error

	// Close destroys the sink. Safe to call more than once.
	Close() error
}

var buttonNames = map[string]uint16{
	"left":   BtnLeft,
	"right":  BtnRight,
	"middle": BtnMiddle,
	"side":   BtnSide,
	"extra":  BtnExtra,
}

// ParseButton resolves a button name such as "left" to its event code.
func ParseButton(name string) (uint16, error) {
	code, ok := buttonNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown button %q (want one of %s)", name, strings.Join(ButtonNames(), ", "))
	}
	return code, nil
}

// ButtonName returns the name of a button code, or its hex code if unnamed.
func ButtonName(code uint16) string {
	for name, c := range buttonNames {
		if c == code {
			return name
		}
	}
	return fmt.Sprintf("0x%03x", code)
}

// ButtonNames lists the known button names in code order.
func ButtonNames() []string {
	names := make([]string, 0, len(buttonNames))
	for name := range buttonNames {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return buttonNames[names[i]] < buttonNames[names[j]] })
	return names
}
