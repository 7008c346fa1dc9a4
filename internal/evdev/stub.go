//go:build !linux

package evdev

import (
	"errors"

	"github.com/sweeney/mouse-debounce/internal/input"
)

var errUnsupported = errors.New("evdev: not supported on this platform (requires Linux)")

// Source is not available on non-Linux platforms.
type Source struct{}

// Open returns an error on non-Linux platforms.
func Open(path string) (*Source, error) {
	return nil, errUnsupported
}

// Name is not implemented on non-Linux platforms.
func (s *Source) Name() string { return "" }

// Read is not implemented on non-Linux platforms.
func (s *Source) Read() (input.Event, error) {
	return input.Event{}, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (s *Source) Close() error {
	return nil
}

// FindPointer returns an error on non-Linux platforms.
func FindPointer(skipName string) (string, error) {
	return "", errUnsupported
}

// UinputSink is not available on non-Linux platforms.
type UinputSink struct{}

// NewUinputSink returns an error on non-Linux platforms.
func NewUinputSink(name string) (*UinputSink, error) {
	return nil, errUnsupported
}

// Forward is not implemented on non-Linux platforms.
func (s *UinputSink) Forward(ev input.Event) error { return errUnsupported }

// InjectRelease is not implemented on non-Linux platforms.
func (s *UinputSink) InjectRelease(code uint16) error { return errUnsupported }

// Close is not implemented on non-Linux platforms.
func (s *UinputSink) Close() error { return nil }
