//go:build linux

package evdev

import (
	"errors"
	"fmt"
	"sync"

	goevdev "github.com/gvalkov/golang-evdev"
	"golang.org/x/sys/unix"

	"github.com/sweeney/mouse-debounce/internal/input"
)

// Source reads events from an exclusively grabbed evdev device.
type Source struct {
	dev *goevdev.InputDevice

	mu     sync.Mutex
	closed bool

	pending []input.Event
}

// EVIOCSCLOCKID from linux/input.h: _IOW('E', 0xa0, int).
const eviocSClockID = 0x400445a0

// ioctlSetInt is replaced in tests.
var ioctlSetInt = unix.IoctlSetPointerInt

// Open opens and grabs the device at path. Grabbing makes the filter the
// only reader, so suppressed events never reach other consumers.
// The kernel is switched to CLOCK_MONOTONIC timestamps for the device, the
// clock the confirmation timers run on; wall-clock steps must not move
// event times.
func Open(path string) (*Source, error) {
	dev, err := goevdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := dev.Grab(); err != nil {
		dev.File.Close()
		return nil, fmt.Errorf("grab %s: %w", path, err)
	}
	if err := useMonotonicClock(int(dev.File.Fd())); err != nil {
		dev.Release()
		dev.File.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Source{dev: dev}, nil
}

func useMonotonicClock(fd int) error {
	if err := ioctlSetInt(fd, eviocSClockID, unix.CLOCK_MONOTONIC); err != nil {
		return fmt.Errorf("set monotonic event clock: %w", err)
	}
	return nil
}

// Name returns the device name reported by the kernel.
func (s *Source) Name() string {
	return s.dev.Name
}

// Read returns the next event from the device.
func (s *Source) Read() (input.Event, error) {
	for len(s.pending) == 0 {
		events, err := s.dev.Read()
		if err != nil {
			if s.isClosed() {
				return input.Event{}, errors.New("evdev: source closed")
			}
			return input.Event{}, fmt.Errorf("read %s: %w", s.dev.Fn, err)
		}
		for _, ev := range events {
			s.pending = append(s.pending, input.Event{
				Type:   ev.Type,
				Code:   ev.Code,
				Value:  ev.Value,
				Time:   timevalMillis(ev.Time),
				Origin: input.Genuine,
			})
		}
	}
	ev := s.pending[0]
	s.pending = s.pending[1:]
	return ev, nil
}

// Close releases the grab and closes the device.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.dev.Release(); err != nil {
		errs = append(errs, fmt.Errorf("release grab: %w", err))
	}
	if err := s.dev.File.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close device: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Source) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// FindPointer returns the path of the first device that has relative axes
// and a left button. Devices named skipName are ignored.
func FindPointer(skipName string) (string, error) {
	devices, err := goevdev.ListInputDevices()
	if err != nil {
		return "", fmt.Errorf("list input devices: %w", err)
	}
	defer func() {
		for _, d := range devices {
			d.File.Close()
		}
	}()

	if path, ok := pickPointer(devices, skipName); ok {
		return path, nil
	}
	return "", errors.New("no pointer device found under /dev/input")
}

// pickPointer returns the node of the first pointer not named skipName.
func pickPointer(devices []*goevdev.InputDevice, skipName string) (string, bool) {
	for _, d := range devices {
		if d.Name == skipName {
			continue
		}
		if isPointer(d.CapabilitiesFlat) {
			return d.Fn, true
		}
	}
	return "", false
}

func isPointer(caps map[int][]int) bool {
	if _, ok := caps[input.EvRel]; !ok {
		return false
	}
	for _, code := range caps[input.EvKey] {
		if code == input.BtnLeft {
			return true
		}
	}
	return false
}
