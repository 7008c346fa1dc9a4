package input

import (
	"errors"
	"testing"
)

func TestParseButton(t *testing.T) {
	tests := []struct {
		name string
		want uint16
	}{
		{"left", BtnLeft},
		{"RIGHT", BtnRight},
		{" middle ", BtnMiddle},
		{"side", BtnSide},
		{"extra", BtnExtra},
	}
	for _, tt := range tests {
		got, err := ParseButton(tt.name)
		if err != nil {
			t.Errorf("ParseButton(%q): unexpected error: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseButton(%q) = 0x%x, want 0x%x", tt.name, got, tt.want)
		}
	}

	if _, err := ParseButton("thumb"); err == nil {
		t.Error("expected error for unknown button")
	}
}

func TestButtonName(t *testing.T) {
	if got := ButtonName(BtnLeft); got != "left" {
		t.Errorf("ButtonName(BtnLeft) = %q", got)
	}
	if got := ButtonName(0x120); got != "0x120" {
		t.Errorf("ButtonName(0x120) = %q", got)
	}
}

func TestButtonNamesOrdered(t *testing.T) {
	want := []string{"left", "right", "middle", "side", "extra"}
	got := ButtonNames()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ButtonNames()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEventClassification(t *testing.T) {
	if !Press(BtnLeft, 0).IsButton() || !Press(BtnLeft, 0).IsPress() {
		t.Error("press should be a button press")
	}
	if !Release(BtnLeft, 0).IsButton() || Release(BtnLeft, 0).IsPress() {
		t.Error("release should be a button non-press")
	}
	repeat := Event{Type: EvKey, Code: BtnLeft, Value: ValueRepeat}
	if repeat.IsButton() {
		t.Error("repeat should not be a button transition")
	}
	move := Event{Type: EvRel, Code: RelX, Value: 3}
	if move.IsButton() {
		t.Error("movement should not be a button transition")
	}
}

func TestFakeSourceReadAndClose(t *testing.T) {
	src := NewFakeSource()
	src.Push(Press(BtnLeft, 1), Release(BtnLeft, 2))

	ev, err := src.Read()
	if err != nil || ev.Time != 1 {
		t.Fatalf("first read: got (%+v, %v)", ev, err)
	}
	ev, err = src.Read()
	if err != nil || ev.Time != 2 {
		t.Fatalf("second read: got (%+v, %v)", ev, err)
	}

	src.Close()
	src.Close()
	if _, err := src.Read(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after close, got %v", err)
	}
	if src.CloseCalls != 2 {
		t.Errorf("expected 2 close calls, got %d", src.CloseCalls)
	}
}

func TestFakeSinkRecords(t *testing.T) {
	s := NewFakeSink()
	s.Forward(Press(BtnLeft, 5))
	s.Forward(Event{Type: EvRel, Code: RelX, Value: 1})
	s.InjectRelease(BtnLeft)

	out := s.Outputs()
	if len(out) != 3 {
		t.Fatalf("expected 3 outputs, got %d", len(out))
	}
	if !out[2].Injected || out[2].Event.Origin != Synthetic {
		t.Errorf("injected release not tagged: %+v", out[2])
	}

	btn := s.Buttons(BtnLeft)
	if len(btn) != 2 {
		t.Errorf("expected 2 left-button outputs, got %d", len(btn))
	}
}

func TestFakeSinkErrors(t *testing.T) {
	s := NewFakeSink()
	s.ForwardError = errors.New("forward failed")
	s.InjectError = errors.New("inject failed")

	if err := s.Forward(Press(BtnLeft, 0)); err == nil {
		t.Error("expected forward error")
	}
	if err := s.InjectRelease(BtnLeft); err == nil {
		t.Error("expected inject error")
	}
	if len(s.Outputs()) != 0 {
		t.Error("failed writes must not be recorded")
	}

	s.Reset()
	if err := s.Forward(Press(BtnLeft, 0)); err != nil {
		t.Errorf("unexpected error after reset: %v", err)
	}
}
