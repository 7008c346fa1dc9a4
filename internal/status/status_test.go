package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/mouse-debounce/internal/filter"
	"github.com/sweeney/mouse-debounce/internal/input"
	"github.com/sweeney/mouse-debounce/internal/logic"
)

func testButtons() []filter.ChannelStatus {
	return []filter.ChannelStatus{
		{Code: input.BtnLeft, Name: "left", State: logic.StateForwarding, Counts: logic.Counts{Presses: 3, Releases: 2, Chatter: 5}},
		{Code: input.BtnRight, Name: "right", State: logic.StateIdle, Counts: logic.Counts{Presses: 1, Releases: 1, Dropouts: 2}},
	}
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{ChatterMs: 100, RecontactMs: 30, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.ChatterMs != 100 {
		t.Errorf("Config.ChatterMs: got %d, want 100", snap.Config.ChatterMs)
	}
	if snap.Config.HTTPAddr != ":8080" {
		t.Errorf("Config.HTTPAddr: got %q, want %q", snap.Config.HTTPAddr, ":8080")
	}
	if snap.Phase != filter.PhaseActive {
		t.Errorf("expected ACTIVE initially, got %s", snap.Phase)
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	buttons := testButtons()
	tr.Update(filter.PhaseDraining, buttons)

	// Mutating the caller's slice must not leak into the tracker.
	buttons[0].State = logic.StateIdle

	snap := tr.Snapshot()
	if snap.Phase != filter.PhaseDraining {
		t.Errorf("Phase: got %s, want DRAINING", snap.Phase)
	}
	if len(snap.Buttons) != 2 {
		t.Fatalf("expected 2 buttons, got %d", len(snap.Buttons))
	}
	if snap.Buttons[0].State != logic.StateForwarding {
		t.Errorf("left state: got %s, want FORWARDING", snap.Buttons[0].State)
	}

	total := snap.Totals()
	if total.Presses != 4 || total.Releases != 3 || total.Chatter != 5 || total.Dropouts != 2 {
		t.Errorf("totals: got %+v", total)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{StartTime: start, Now: start.Add(90 * time.Second)}
	if snap.Uptime() != 90*time.Second {
		t.Errorf("Uptime: got %v, want 90s", snap.Uptime())
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			tr.Update(filter.PhaseActive, testButtons())
		}()
		go func(i int) {
			defer wg.Done()
			tr.SetMQTTConnected(i%2 == 0)
		}(i)
		go func() {
			defer wg.Done()
			_ = tr.Snapshot()
		}()
	}
	wg.Wait()
}

func fixedSnapshot() Snapshot {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return Snapshot{
		Phase:         filter.PhaseActive,
		Buttons:       testButtons(),
		StartTime:     start,
		Now:           start.Add(time.Hour + 1500*time.Millisecond),
		MQTTConnected: true,
		Config: Config{
			ChatterMs:   100,
			RecontactMs: 30,
			HeartbeatMs: 900000,
			Source:      "evdev",
			Device:      "/dev/input/event3",
			Broker:      "tcp://localhost:1883",
			HTTPAddr:    ":8080",
		},
	}
}

func TestFormatJSON(t *testing.T) {
	var sj StatusJSON
	if err := json.Unmarshal(FormatJSON(fixedSnapshot()), &sj); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	s := sj.Status

	if s.Event != "" || s.Reason != "" {
		t.Errorf("web JSON should not carry event/reason, got %q/%q", s.Event, s.Reason)
	}
	if s.Phase != "ACTIVE" {
		t.Errorf("phase: got %q", s.Phase)
	}
	if s.UptimeSeconds != 3601 {
		t.Errorf("uptime: got %d, want 3601", s.UptimeSeconds)
	}
	if s.StartTime != "2026-01-01T12:00:00Z" {
		t.Errorf("start_time: got %q", s.StartTime)
	}
	if !s.MQTT.Connected || s.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("mqtt: got %+v", s.MQTT)
	}
	if len(s.Buttons) != 2 || s.Buttons[0].Name != "left" || s.Buttons[0].State != "FORWARDING" {
		t.Errorf("buttons: got %+v", s.Buttons)
	}
	if s.Buttons[1].Counts.Dropouts != 2 {
		t.Errorf("right dropouts: got %d", s.Buttons[1].Counts.Dropouts)
	}
	if s.Totals.Presses != 4 || s.Totals.Chatter != 5 {
		t.Errorf("totals: got %+v", s.Totals)
	}
	if s.Config.ChatterMs != 100 || s.Config.RecontactMs != 30 || s.Config.Device != "/dev/input/event3" {
		t.Errorf("config: got %+v", s.Config)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	data := FormatStatusEvent(fixedSnapshot(), "SHUTDOWN", "SIGINT")

	var sj StatusJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sj.Status.Event != "SHUTDOWN" || sj.Status.Reason != "SIGINT" {
		t.Errorf("event/reason: got %q/%q", sj.Status.Event, sj.Status.Reason)
	}

	// Compact form for MQTT.
	for _, b := range data {
		if b == '\n' {
			t.Error("MQTT payload should be compact JSON")
			break
		}
	}
}

func TestFormatJSONNoButtons(t *testing.T) {
	snap := fixedSnapshot()
	snap.Buttons = nil

	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(FormatJSON(snap), &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(raw["status"]["buttons"]) != "[]" {
		t.Errorf("buttons should be an empty array, got %s", raw["status"]["buttons"])
	}
}
