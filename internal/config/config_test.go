package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/mouse-debounce/internal/input"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Chatter != 100*time.Millisecond {
		t.Errorf("chatter: got %v, want 100ms", cfg.Chatter)
	}
	if cfg.Recontact != 30*time.Millisecond {
		t.Errorf("recontact: got %v, want 30ms", cfg.Recontact)
	}
	if cfg.Source != SourceEvdev {
		t.Errorf("source: got %q", cfg.Source)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
	codes, _ := cfg.ButtonCodes()
	if len(codes) != 1 || codes[0] != input.BtnLeft {
		t.Errorf("default buttons: got %v", codes)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
chatter: 80ms
recontact: 25ms
buttons: [left, right]
mqtt:
  broker: tcp://localhost:1883
http: ":8080"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chatter != 80*time.Millisecond || cfg.Recontact != 25*time.Millisecond {
		t.Errorf("thresholds: got %v/%v", cfg.Chatter, cfg.Recontact)
	}
	if len(cfg.Buttons) != 2 || cfg.Buttons[1] != "right" {
		t.Errorf("buttons: got %v", cfg.Buttons)
	}
	if cfg.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("broker: got %q", cfg.MQTT.Broker)
	}
	if cfg.MQTT.ClientID != "mouse-debounce" {
		t.Errorf("client id default lost: got %q", cfg.MQTT.ClientID)
	}
	if cfg.Heartbeat != 15*time.Minute {
		t.Errorf("heartbeat default lost: got %v", cfg.Heartbeat)
	}
	if cfg.HTTP != ":8080" {
		t.Errorf("http: got %q", cfg.HTTP)
	}
}

func TestLoadPinsReplaceDefaults(t *testing.T) {
	path := writeConfig(t, `
source: gpio
gpio:
  pins:
    5: left
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.GPIO.Pins) != 1 || cfg.GPIO.Pins[5] != "left" {
		t.Errorf("pins should be replaced, got %v", cfg.GPIO.Pins)
	}
	if cfg.GPIO.Chip != "gpiochip0" {
		t.Errorf("chip default lost: got %q", cfg.GPIO.Chip)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chatter != Default().Chatter || len(cfg.GPIO.Pins) != 3 {
		t.Errorf("empty file should keep defaults, got %+v", cfg)
	}
}

func TestLoadUnknownKey(t *testing.T) {
	_, err := Load(writeConfig(t, "chater: 10ms\n"))
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "chater") {
		t.Errorf("error should name the key: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"zero chatter", func(c *Config) { c.Chatter = 0 }, false},
		{"huge recontact", func(c *Config) { c.Recontact = time.Minute }, false},
		{"negative heartbeat", func(c *Config) { c.Heartbeat = -time.Second }, false},
		{"no buttons", func(c *Config) { c.Buttons = nil }, false},
		{"unknown button", func(c *Config) { c.Buttons = []string{"thumb"} }, false},
		{"duplicate button", func(c *Config) { c.Buttons = []string{"left", "LEFT"} }, false},
		{"unknown source", func(c *Config) { c.Source = "usb" }, false},
		{"gpio defaults", func(c *Config) { c.Source = SourceGPIO }, true},
		{"gpio no chip", func(c *Config) { c.Source = SourceGPIO; c.GPIO.Chip = "" }, false},
		{"gpio no pins", func(c *Config) { c.Source = SourceGPIO; c.GPIO.Pins = nil }, false},
		{"gpio negative pin", func(c *Config) { c.Source = SourceGPIO; c.GPIO.Pins = map[int]string{-1: "left"} }, false},
		{"gpio duplicate button", func(c *Config) {
			c.Source = SourceGPIO
			c.GPIO.Pins = map[int]string{5: "left", 6: "left"}
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDebouncedCodes(t *testing.T) {
	cfg := Default()
	cfg.Buttons = []string{"right", "left"}
	codes, err := cfg.DebouncedCodes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(codes) != 2 || codes[0] != input.BtnRight || codes[1] != input.BtnLeft {
		t.Errorf("evdev codes: got %v", codes)
	}

	cfg.Source = SourceGPIO
	codes, err = cfg.DebouncedCodes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Pin order 17, 22, 27 -> left, middle, right.
	want := []uint16{input.BtnLeft, input.BtnMiddle, input.BtnRight}
	if len(codes) != len(want) {
		t.Fatalf("gpio codes: got %v, want %v", codes, want)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("gpio codes[%d]: got 0x%x, want 0x%x", i, codes[i], want[i])
		}
	}
}

func TestThresholds(t *testing.T) {
	cfg := Default()
	cfg.Chatter = 70 * time.Millisecond
	th := cfg.Thresholds()
	if th.Chatter != 70*time.Millisecond || th.Recontact != 30*time.Millisecond {
		t.Errorf("got %+v", th)
	}
}
