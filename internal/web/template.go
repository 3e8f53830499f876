package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/room-sentinel/internal/logic"
	"github.com/sweeney/room-sentinel/internal/status"
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
	"stateOrUnknown": func(s logic.State) string {
		if s == "" {
			return "UNKNOWN"
		}
		return string(s)
	},
	"stateClass": func(s logic.State) string {
		switch s {
		case logic.StateAlerting:
			return "alert"
		case logic.StateCountingDown:
			return "warn"
		case logic.StateOccupied:
			return "off"
		case logic.StateMonitoring:
			return "on"
		}
		return "unknown"
	},
	"yesno": func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	},
	"ms": func(d time.Duration) int64 {
		return d.Milliseconds()
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Room Sentinel</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
img { max-width: 100%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.warn { color: orange; font-weight: bold; }
.alert { color: red; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Room Sentinel{{if .Room}} &middot; room {{.Room}}{{end}}</h1>

<h2>State</h2>
<table>
<tr><th>Decision</th><td class="{{stateClass .Machine.State}}">{{stateOrUnknown .Machine.State}}</td></tr>
<tr><th>Schedule</th><td>{{.Machine.Status}}</td></tr>
<tr><th>Display</th><td>{{.Display}}</td></tr>
{{if .Machine.EpisodeID}}<tr><th>Episode</th><td>{{.Machine.EpisodeID}} ({{.Machine.Reason}})</td></tr>
{{if .Machine.CountdownRemaining}}<tr><th>Countdown</th><td>{{ms .Machine.CountdownRemaining}}ms</td></tr>{{end}}
<tr><th>Buzzer</th><td>{{if .Machine.Alerting}}on{{else}}off{{end}}</td></tr>{{end}}
</table>

<h2>Signals</h2>
<table>
<tr><th>Camera</th><td class="{{if .SensorOK}}connected{{else}}disconnected{{end}}">{{if .SensorOK}}ok{{else}}unavailable{{end}}</td></tr>
<tr><th>Human</th><td>{{yesno .Machine.Last.HumanPresent}}</td></tr>
<tr><th>Motion</th><td>{{yesno .Machine.Last.MotionPresent}} ({{ms .Machine.MotionFor}}ms)</td></tr>
<tr><th>Light</th><td>{{yesno .Machine.Last.LightOn}} ({{ms .Machine.LightFor}}ms)</td></tr>
<tr><th>Presence confirmed</th><td>{{yesno .Machine.PresenceConfirmed}}</td></tr>
</table>
{{if not .LastFrame.IsZero}}<p><img src="/snapshot.jpg" alt="latest frame"></p>{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>Room</th><td>{{if .RoomResolved}}{{.Room}}{{else}}unresolved{{end}}</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>Countdowns</th><td>{{.Machine.Counts.Countdowns}}</td></tr>
<tr><th>Cancelled</th><td>{{.Machine.Counts.Cancelled}}</td></tr>
<tr><th>Alerts</th><td>{{.Machine.Counts.Alerts}}</td></tr>
<tr><th>Overrides</th><td>{{.Machine.Counts.Overrides}}</td></tr>
<tr><th>Flags dropped</th><td>{{.FlagsDropped}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Countdown</th><td>{{.Config.CountdownMs}}ms</td></tr>
<tr><th>Cooldown</th><td>{{.Config.CooldownMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
