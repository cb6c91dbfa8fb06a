package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/fuzzy-hvac/internal/control"
	"github.com/sweeney/fuzzy-hvac/internal/status"
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
	"actionOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"signal": func(v control.ControlSignal) string {
		return fmt.Sprintf("%+.2f", float64(v))
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Fuzzy HVAC</title>
<style>
body { font-family: monospace; max-width: 800px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.heat { color: #c0392b; font-weight: bold; }
.cool { color: #2471a3; font-weight: bold; }
.maintain { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Fuzzy HVAC</h1>

<h2>Zones</h2>
<table>
<tr><th>Zone</th><th>Setpoint</th><th>Error</th><th>Trend</th><th>Outside</th><th>Signal</th><th>Action</th><th>Cycles</th><th>Last</th></tr>
{{range .Zones}}{{$a := actionOrUnknown (printf "%s" .Action)}}<tr>
<td>{{.Name}}</td>
<td>{{printf "%.1f" .Setpoint}}</td>
<td>{{printf "%.2f" .Input.TemperatureError}}</td>
<td>{{printf "%.2f" .Input.RateOfChange}}</td>
<td>{{printf "%.1f" .Input.OutsideTemperature}}</td>
<td>{{signal .Signal}}</td>
<td class="{{if eq $a "HEAT"}}heat{{else if eq $a "COOL"}}cool{{else if eq $a "MAINTAIN"}}maintain{{else}}unknown{{end}}">{{$a}}</td>
<td>{{.Counts.Decisions}}/{{.Counts.Cycles}}</td>
<td>{{.Outcome}}{{if .LastError}} ({{.LastError}}){{end}}</td>
</tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Defuzzifier</th><td>{{.Config.Defuzzifier}}</td></tr>
<tr><th>Deadband</th><td>{{.Config.Deadband}}</td></tr>
<tr><th>Rules</th><td>{{.Config.Rules}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a>{{if .HasRules}} | <a href="/rules">rules</a>{{end}}{{if .HasMetrics}} | <a href="/metrics">metrics</a>{{end}}</p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, hasRules, hasMetrics bool) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime     time.Duration
		HasRules   bool
		HasMetrics bool
	}{
		Snapshot:   snap,
		Uptime:     snap.Uptime(),
		HasRules:   hasRules,
		HasMetrics: hasMetrics,
	}
	indexTmpl.Execute(w, data)
}
