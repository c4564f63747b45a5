package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/home-monitor/internal/status"
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
	"temp":   status.FormatTemperature,
	"number": func(v float64) string { return fmt.Sprintf("%.1f", v) },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Home Monitor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Home Monitor<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>State</h2>
<table>
<tr><th>System</th><td id="system_status" class="{{if eq (printf "%s" .System) "Home"}}on{{else}}off{{end}}">{{.System}}</td></tr>
<tr><th>Motion</th><td id="motion_status">{{.Motion}}</td></tr>
<tr><th>Lights</th><td id="light_status" class="{{if eq (printf "%s" .Light) "ON"}}on{{else}}off{{end}}">{{.Light}}</td></tr>
<tr><th>Temperature</th><td id="temp_status">{{temp .Temperature}}</td></tr>
</table>

<h2>Controls</h2>
<table>
<tr><th>Temperature</th><td>{{.TempReport}} ({{.TempReport.Reason}})</td></tr>
<tr><th>Lighting</th><td>{{.LightReport}} ({{.LightReport.Reason}})</td></tr>
<tr><th>Deactivation timer</th><td>{{if .TimerRunning}}running{{else}}stopped{{end}}</td></tr>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}calibrating{{end}}</td></tr>
</table>

<h2>Readings</h2>
<table>
<tr><th>Light</th><td>{{number .Readings.Light}}</td></tr>
<tr><th>Temperature</th><td>{{number .Readings.Temperature}}</td></tr>
<tr><th>Motion</th><td>{{number .Readings.Motion}} (reference {{number .Readings.Reference}} &plusmn; {{.Config.MotionThreshold}})</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>Motion events</th><td>{{.Counts.Motion}}</td></tr>
<tr><th>Activations</th><td>{{.Counts.Activations}}</td></tr>
<tr><th>Deactivations</th><td>{{.Counts.Deactivations}}</td></tr>
<tr><th>Recalibrations</th><td>{{.Counts.Recalibrations}}</td></tr>
<tr><th>Read errors</th><td>{{.Counts.ReadErrors}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Boot</th><td>{{.BootID}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/status">status</a> &middot; <a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var fields = ["system_status", "motion_status", "light_status", "temp_status"];
  var onValues = { system_status: "Home", light_status: "ON" };

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var msg = JSON.parse(ev.data);
        fields.forEach(function(f) {
          var el = document.getElementById(f);
          el.textContent = msg[f];
          if (onValues[f]) {
            el.className = msg[f] === onValues[f] ? "on" : "off";
          }
        });
      } catch (e) {}
    };
  }
  connect();
})();
</script>
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
