// Package evdev connects the filter to Linux input devices.
// Source reads a physical pointer through evdev and grabs it exclusively.
// UinputSink re-emits the filtered stream through a virtual uinput pointer.
package evdev

import (
	"syscall"
)

// DefaultSinkName is the name of the virtual pointer created by UinputSink.
// Device discovery skips devices with this name so the filter never reads
// back its own output.
const DefaultSinkName = "mouse-debounce virtual pointer"

// timevalMillis folds a kernel timestamp into a wrapping millisecond counter.
func timevalMillis(tv syscall.Timeval) uint32 {
	return uint32(int64(tv.Sec)*1000 + int64(tv.Usec)/1000)
}
