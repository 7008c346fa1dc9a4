// Package status provides a thread-safe status tracker for the mouse-debounce daemon.
// It is read by the HTTP handlers and by the MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/mouse-debounce/internal/filter"
	"github.com/sweeney/mouse-debounce/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	ChatterMs   int64
	RecontactMs int64
	HeartbeatMs int64
	Source      string
	Device      string
	Broker      string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Phase         filter.Phase
	Buttons       []filter.ChannelStatus
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Totals sums the counters of every button.
func (s Snapshot) Totals() logic.Counts {
	var total logic.Counts
	for _, b := range s.Buttons {
		total = total.Plus(b.Counts)
	}
	return total
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update sets the shutdown phase and per-button state.
// Called from the run loop on every status tick.
func (t *Tracker) Update(phase filter.Phase, buttons []filter.ChannelStatus) {
	cp := make([]filter.ChannelStatus, len(buttons))
	copy(cp, buttons)

	t.mu.Lock()
	t.snap.Phase = phase
	t.snap.Buttons = cp
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
