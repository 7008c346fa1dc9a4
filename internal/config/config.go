// Package config loads daemon settings from defaults, an optional YAML file
// and command-line flags, in increasing precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/mouse-debounce/internal/evdev"
	"github.com/sweeney/mouse-debounce/internal/gpio"
	"github.com/sweeney/mouse-debounce/internal/input"
	"github.com/sweeney/mouse-debounce/internal/logic"
)

// Source kinds.
const (
	SourceEvdev = "evdev"
	SourceGPIO  = "gpio"
)

// MaxThreshold bounds both debounce durations.
const MaxThreshold = 10 * time.Second

// Config is the daemon configuration.
type Config struct {
	Chatter   time.Duration `yaml:"chatter"`
	Recontact time.Duration `yaml:"recontact"`
	Buttons   []string      `yaml:"buttons"`   // debounced buttons (evdev source)
	Source    string        `yaml:"source"`    // "evdev" or "gpio"
	Device    string        `yaml:"device"`    // evdev node; empty = auto-detect
	SinkName  string        `yaml:"sink_name"` // name of the virtual output device
	GPIO      GPIOConfig    `yaml:"gpio"`
	MQTT      MQTTConfig    `yaml:"mqtt"`
	Heartbeat time.Duration `yaml:"heartbeat"` // 0 disables
	HTTP      string        `yaml:"http"`      // empty disables
	Verbose   bool          `yaml:"verbose"`
}

// GPIOConfig describes buttons wired to GPIO lines.
type GPIOConfig struct {
	Chip string         `yaml:"chip"`
	Pins map[int]string `yaml:"pins"` // line offset -> button name
}

// MQTTConfig describes the telemetry broker.
type MQTTConfig struct {
	Broker   string `yaml:"broker"` // empty disables MQTT
	ClientID string `yaml:"client_id"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Chatter:   logic.DefaultChatter,
		Recontact: logic.DefaultRecontact,
		Buttons:   []string{"left"},
		Source:    SourceEvdev,
		SinkName:  evdev.DefaultSinkName,
		GPIO: GPIOConfig{
			Chip: gpio.DefaultChip,
			Pins: map[int]string{17: "left", 27: "right", 22: "middle"},
		},
		MQTT:      MQTTConfig{ClientID: "mouse-debounce"},
		Heartbeat: 15 * time.Minute,
	}
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, keeping fields the document does not set.
// A pins map in the document replaces the existing one rather than merging.
func Parse(data []byte, cfg *Config) error {
	pins := cfg.GPIO.Pins
	cfg.GPIO.Pins = nil

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	err := dec.Decode(cfg)
	if cfg.GPIO.Pins == nil {
		cfg.GPIO.Pins = pins
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks that the configuration can be run.
func (c Config) Validate() error {
	if c.Chatter <= 0 || c.Chatter > MaxThreshold {
		return fmt.Errorf("chatter must be in (0, %v], got %v", MaxThreshold, c.Chatter)
	}
	if c.Recontact <= 0 || c.Recontact > MaxThreshold {
		return fmt.Errorf("recontact must be in (0, %v], got %v", MaxThreshold, c.Recontact)
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("heartbeat must not be negative, got %v", c.Heartbeat)
	}
	switch c.Source {
	case SourceEvdev:
		if _, err := c.ButtonCodes(); err != nil {
			return err
		}
	case SourceGPIO:
		if c.GPIO.Chip == "" {
			return errors.New("gpio.chip must be set")
		}
		if _, err := c.PinCodes(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown source %q (want %q or %q)", c.Source, SourceEvdev, SourceGPIO)
	}
	return nil
}

// Thresholds returns the debounce durations.
func (c Config) Thresholds() logic.Thresholds {
	return logic.Thresholds{Chatter: c.Chatter, Recontact: c.Recontact}
}

// ButtonCodes resolves Buttons to event codes.
func (c Config) ButtonCodes() ([]uint16, error) {
	if len(c.Buttons) == 0 {
		return nil, errors.New("at least one button must be debounced")
	}
	seen := make(map[uint16]bool, len(c.Buttons))
	codes := make([]uint16, 0, len(c.Buttons))
	for _, name := range c.Buttons {
		code, err := input.ParseButton(name)
		if err != nil {
			return nil, err
		}
		if seen[code] {
			return nil, fmt.Errorf("button %q listed twice", name)
		}
		seen[code] = true
		codes = append(codes, code)
	}
	return codes, nil
}

// PinCodes resolves GPIO pins to event codes.
func (c Config) PinCodes() (map[int]uint16, error) {
	if len(c.GPIO.Pins) == 0 {
		return nil, errors.New("gpio.pins must map at least one pin")
	}
	pins := make(map[int]uint16, len(c.GPIO.Pins))
	seen := make(map[uint16]int, len(c.GPIO.Pins))
	for _, pin := range sortedPins(c.GPIO.Pins) {
		if pin < 0 {
			return nil, fmt.Errorf("gpio pin %d is negative", pin)
		}
		code, err := input.ParseButton(c.GPIO.Pins[pin])
		if err != nil {
			return nil, fmt.Errorf("gpio pin %d: %w", pin, err)
		}
		if other, dup := seen[code]; dup {
			return nil, fmt.Errorf("gpio pins %d and %d both map to %s", other, pin, input.ButtonName(code))
		}
		seen[code] = pin
		pins[pin] = code
	}
	return pins, nil
}

// DebouncedCodes returns the buttons the filter should own for the
// configured source.
func (c Config) DebouncedCodes() ([]uint16, error) {
	if c.Source != SourceGPIO {
		return c.ButtonCodes()
	}
	pins, err := c.PinCodes()
	if err != nil {
		return nil, err
	}
	codes := make([]uint16, 0, len(pins))
	for _, pin := range sortedPins(c.GPIO.Pins) {
		codes = append(codes, pins[pin])
	}
	return codes, nil
}

func sortedPins(m map[int]string) []int {
	pins := make([]int, 0, len(m))
	for pin := range m {
		pins = append(pins, pin)
	}
	sort.Ints(pins)
	return pins
}
