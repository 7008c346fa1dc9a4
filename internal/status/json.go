package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/mouse-debounce/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Phase         string       `json:"phase"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Buttons       []ButtonJSON `json:"buttons"`
	Totals        CountsJSON   `json:"totals"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ButtonJSON is the JSON representation of one debounced button.
type ButtonJSON struct {
	Name   string     `json:"name"`
	State  string     `json:"state"`
	Counts CountsJSON `json:"counts"`
}

// CountsJSON is the JSON representation of decision counters.
type CountsJSON struct {
	Presses    int `json:"presses"`
	Releases   int `json:"releases"`
	Duplicates int `json:"duplicates"`
	Chatter    int `json:"chatter"`
	Dropouts   int `json:"dropouts"`
	Rearms     int `json:"rearms"`
	Orphans    int `json:"orphans"`
	FailOpen   int `json:"fail_open"`
	Stale      int `json:"stale"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	ChatterMs   int64  `json:"chatter_ms"`
	RecontactMs int64  `json:"recontact_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Source      string `json:"source"`
	Device      string `json:"device,omitempty"`
	Broker      string `json:"broker,omitempty"`
	HTTPAddr    string `json:"http_addr,omitempty"`
}

func countsJSON(c logic.Counts) CountsJSON {
	return CountsJSON{
		Presses:    c.Presses,
		Releases:   c.Releases,
		Duplicates: c.Duplicates,
		Chatter:    c.Chatter,
		Dropouts:   c.Dropouts,
		Rearms:     c.Rearms,
		Orphans:    c.Orphans,
		FailOpen:   c.FailOpen,
		Stale:      c.Stale,
	}
}

func buildInner(snap Snapshot) StatusInner {
	buttons := make([]ButtonJSON, 0, len(snap.Buttons))
	for _, b := range snap.Buttons {
		buttons = append(buttons, ButtonJSON{
			Name:   b.Name,
			State:  string(b.State),
			Counts: countsJSON(b.Counts),
		})
	}

	return StatusInner{
		Phase:         snap.Phase.String(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Buttons:       buttons,
		Totals:        countsJSON(snap.Totals()),
		Config: ConfigJSON{
			ChatterMs:   snap.Config.ChatterMs,
			RecontactMs: snap.Config.RecontactMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Source:      snap.Config.Source,
			Device:      snap.Config.Device,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
