package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/mouse-debounce/internal/logic"
	"github.com/sweeney/mouse-debounce/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"stateClass": func(s logic.State) string {
		switch s {
		case logic.StateForwarding:
			return "held"
		case logic.StatePendingRelease:
			return "pending"
		}
		return "idle"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Mouse Debounce</title>
<style>
body { font-family: monospace; max-width: 720px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.held { color: green; font-weight: bold; }
.pending { color: orange; }
.idle { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Mouse Debounce <small>{{.Phase}}</small></h1>

<h2>Buttons</h2>
<table>
<tr><th>Button</th><th>State</th><th>Presses</th><th>Releases</th><th>Chatter</th><th>Dropouts</th><th>Re-arms</th><th>Fail-open</th></tr>
{{range .Buttons}}<tr><td>{{.Name}}</td><td class="{{stateClass .State}}">{{.State}}</td><td>{{.Counts.Presses}}</td><td>{{.Counts.Releases}}</td><td>{{.Counts.Chatter}}</td><td>{{.Counts.Dropouts}}</td><td>{{.Counts.Rearms}}</td><td>{{.Counts.FailOpen}}</td></tr>
{{else}}<tr><td colspan="8">no buttons reported yet</td></tr>
{{end}}</table>

<h2>Thresholds</h2>
<table>
<tr><th>Chatter</th><td>{{.Config.ChatterMs}}ms</td></tr>
<tr><th>Re-contact</th><td>{{.Config.RecontactMs}}ms</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Source</th><td>{{.Config.Source}}{{if .Config.Device}} ({{.Config.Device}}){{end}}</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has an Uptime method but the template needs a field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render index: %v", err)
	}
}
