//go:build linux

package evdev

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/sweeney/mouse-debounce/internal/input"
)

// uinput ioctls and limits from linux/uinput.h.
const (
	uinputMaxNameSize = 80
	uiDevCreate       = 0x5501
	uiDevDestroy      = 0x5502
	uiSetEvBit        = 0x40045564
	uiSetKeyBit       = 0x40045565
	uiSetRelBit       = 0x40045566
	busVirtual        = 0x06
	absCnt            = 64
)

const (
	relWheelHiRes  = 0x0b
	relHWheelHiRes = 0x0c
	btnTask        = 0x117
)

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

type uinputUserDev struct {
	Name       [uinputMaxNameSize]byte
	ID         inputID
	EffectsMax uint32
	Absmax     [absCnt]int32
	Absmin     [absCnt]int32
	Absfuzz    [absCnt]int32
	Absflat    [absCnt]int32
}

type rawEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// UinputSink writes events to a virtual pointer device.
type UinputSink struct {
	mu     sync.Mutex
	fd     int
	closed bool
}

// NewUinputSink creates a virtual pointer called name.
func NewUinputSink(name string) (*UinputSink, error) {
	fd, err := unix.Open("/dev/uinput", unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/uinput: %w", err)
	}

	if err := setup(fd, name); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &UinputSink{fd: fd}, nil
}

func setup(fd int, name string) error {
	for _, ev := range []int{input.EvSyn, input.EvKey, input.EvRel} {
		if err := unix.IoctlSetInt(fd, uiSetEvBit, ev); err != nil {
			return fmt.Errorf("enable event type 0x%x: %w", ev, err)
		}
	}
	for code := input.BtnLeft; code <= btnTask; code++ {
		if err := unix.IoctlSetInt(fd, uiSetKeyBit, code); err != nil {
			return fmt.Errorf("enable button 0x%x: %w", code, err)
		}
	}
	for _, rel := range []int{input.RelX, input.RelY, input.RelWheel, input.RelHWheel, relWheelHiRes, relHWheelHiRes} {
		if err := unix.IoctlSetInt(fd, uiSetRelBit, rel); err != nil {
			return fmt.Errorf("enable axis 0x%x: %w", rel, err)
		}
	}

	var dev uinputUserDev
	copy(dev.Name[:uinputMaxNameSize-1], name)
	dev.ID = inputID{Bustype: busVirtual, Vendor: 0x1, Product: 0x1, Version: 1}
	buf := (*[unsafe.Sizeof(dev)]byte)(unsafe.Pointer(&dev))[:]
	if _, err := unix.Write(fd, buf); err != nil {
		return fmt.Errorf("write uinput device: %w", err)
	}
	if err := unix.IoctlSetInt(fd, uiDevCreate, 0); err != nil {
		return fmt.Errorf("create uinput device: %w", err)
	}
	return nil
}

// Forward writes ev unchanged. The kernel stamps its own time.
func (s *UinputSink) Forward(ev input.Event) error {
	return s.write(rawEvent{Type: ev.Type, Code: ev.Code, Value: ev.Value})
}

// InjectRelease writes a release for code followed by a sync report.
func (s *UinputSink) InjectRelease(code uint16) error {
	return s.write(
		rawEvent{Type: input.EvKey, Code: code, Value: input.ValueRelease},
		rawEvent{Type: input.EvSyn, Code: input.SynReport},
	)
}

func (s *UinputSink) write(events ...rawEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("uinput: sink closed")
	}
	for i := range events {
		buf := (*[unsafe.Sizeof(rawEvent{})]byte)(unsafe.Pointer(&events[i]))[:]
		if _, err := unix.Write(s.fd, buf); err != nil {
			return fmt.Errorf("uinput write: %w", err)
		}
	}
	return nil
}

// Close destroys the virtual device. Buttons still held on it are released
// by the kernel.
func (s *UinputSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := unix.IoctlSetInt(s.fd, uiDevDestroy, 0); err != nil {
		errs = append(errs, fmt.Errorf("destroy uinput device: %w", err))
	}
	if err := unix.Close(s.fd); err != nil {
		errs = append(errs, fmt.Errorf("close /dev/uinput: %w", err))
	}
	return errors.Join(errs...)
}
