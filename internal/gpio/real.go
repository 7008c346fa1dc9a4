//go:build linux

package gpio

import (
	"fmt"
	"sort"

	"github.com/warthog618/go-gpiocdev"
)

// RealSource reads button edges from actual hardware using the Linux GPIO
// character device.
type RealSource struct {
	*edgeQueue
	chip  *gpiocdev.Chip
	lines []*gpiocdev.Line
}

// NewRealSource requests every pin in pins as an edge-watched input.
// Buttons short the line to ground, so lines are pulled up and active low.
func NewRealSource(chipName string, pins map[int]uint16) (*RealSource, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	s := &RealSource{edgeQueue: newEdgeQueue(pins), chip: chip}

	offsets := make([]int, 0, len(pins))
	for pin := range pins {
		offsets = append(offsets, pin)
	}
	sort.Ints(offsets)

	for _, pin := range offsets {
		line, err := chip.RequestLine(pin,
			gpiocdev.AsInput,
			gpiocdev.WithPullUp,
			gpiocdev.AsActiveLow,
			gpiocdev.WithBothEdges,
			gpiocdev.WithEventHandler(s.handle),
		)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("request pin %d: %w", pin, err)
		}
		s.lines = append(s.lines, line)
	}
	return s, nil
}

func (s *RealSource) handle(evt gpiocdev.LineEvent) {
	s.push(lineEdge(evt))
}

func lineEdge(evt gpiocdev.LineEvent) Edge {
	return Edge{
		Pin:       evt.Offset,
		Pressed:   evt.Type == gpiocdev.LineEventRisingEdge,
		Timestamp: evt.Timestamp,
	}
}

// Close releases GPIO resources.
// Lines are reconfigured as plain pulled-down inputs before closing, matching
// Pi boot defaults.
func (s *RealSource) Close() error {
	s.close()

	var errs []error
	for _, line := range s.lines {
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", line.Offset(), err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", line.Offset(), err))
		}
	}
	s.lines = nil
	if s.chip != nil {
		if err := s.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		s.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
