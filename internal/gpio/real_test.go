//go:build linux

package gpio

import (
	"testing"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

func TestLineEdge(t *testing.T) {
	rising := lineEdge(gpiocdev.LineEvent{Offset: 17, Timestamp: time.Second, Type: gpiocdev.LineEventRisingEdge})
	if rising.Pin != 17 || !rising.Pressed || rising.Timestamp != time.Second {
		t.Errorf("rising edge: got %+v", rising)
	}

	falling := lineEdge(gpiocdev.LineEvent{Offset: 27, Timestamp: 2 * time.Second, Type: gpiocdev.LineEventFallingEdge})
	if falling.Pin != 27 || falling.Pressed {
		t.Errorf("falling edge: got %+v", falling)
	}
}
