package status

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// StatusJSON is the object served at /status and streamed on /ws.
type StatusJSON struct {
	MotionStatus string `json:"motion_status"`
	SystemStatus string `json:"system_status"`
	LightStatus  string `json:"light_status"`
	TempStatus   string `json:"temp_status"`
}

// DetailJSON is the top-level JSON envelope for detailed status output.
type DetailJSON struct {
	Status DetailInner `json:"status"`
}

// DetailInner contains the status details.
type DetailInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	BootID        string       `json:"boot_id"`
	Seq           uint64       `json:"seq"`
	SystemStatus  string       `json:"system_status"`
	MotionStatus  string       `json:"motion_status"`
	LightStatus   string       `json:"light_status"`
	TempStatus    string       `json:"temp_status"`
	TempControl   string       `json:"temp_control"`
	LightControl  string       `json:"light_control"`
	Ready         bool         `json:"ready"`
	TimerRunning  bool         `json:"timer_running"`
	Readings      ReadingsJSON `json:"readings"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// ReadingsJSON is the JSON representation of the filtered readings.
type ReadingsJSON struct {
	Light       float64 `json:"light"`
	Temperature float64 `json:"temperature"`
	Motion      float64 `json:"motion"`
	Reference   float64 `json:"motion_reference"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of loop counters.
type CountsJSON struct {
	Motion         int `json:"motion"`
	Activations    int `json:"activations"`
	Deactivations  int `json:"deactivations"`
	Recalibrations int `json:"recalibrations"`
	ReadErrors     int `json:"read_errors"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs          int64   `json:"poll_ms"`
	HeartbeatMs     int64   `json:"heartbeat_ms"`
	Broker          string  `json:"broker"`
	HTTPAddr        string  `json:"http_addr"`
	LightTarget     float64 `json:"light_target"`
	TempTarget      float64 `json:"temp_target"`
	TempTolerance   float64 `json:"temp_tolerance"`
	MotionThreshold float64 `json:"motion_threshold"`
	HoldMs          int64   `json:"hold_ms"`
	DelayMs         int64   `json:"delay_ms"`
}

// FormatTemperature renders a filtered temperature as the shortest decimal
// that round-trips, always with a fractional part ("980.0", "981.36").
func FormatTemperature(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Status returns the four-field status object for snap.
func Status(snap Snapshot) StatusJSON {
	return StatusJSON{
		MotionStatus: string(snap.Motion),
		SystemStatus: string(snap.System),
		LightStatus:  string(snap.Light),
		TempStatus:   FormatTemperature(snap.Temperature),
	}
}

// FormatStatus returns the /status JSON for snap.
func FormatStatus(snap Snapshot) []byte {
	data, _ := json.Marshal(Status(snap))
	return data
}

func buildInner(snap Snapshot) DetailInner {
	inner := DetailInner{
		BootID:        snap.BootID,
		Seq:           snap.Seq,
		SystemStatus:  string(snap.System),
		MotionStatus:  string(snap.Motion),
		LightStatus:   string(snap.Light),
		TempStatus:    FormatTemperature(snap.Temperature),
		TempControl:   string(snap.TempReport),
		LightControl:  string(snap.LightReport),
		Ready:         snap.Ready,
		TimerRunning:  snap.TimerRunning,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Timestamp.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Readings: ReadingsJSON{
			Light:       snap.Readings.Light,
			Temperature: snap.Readings.Temperature,
			Motion:      snap.Readings.Motion,
			Reference:   snap.Readings.Reference,
		},
		Counts: CountsJSON{
			Motion:         snap.Counts.Motion,
			Activations:    snap.Counts.Activations,
			Deactivations:  snap.Counts.Deactivations,
			Recalibrations: snap.Counts.Recalibrations,
			ReadErrors:     snap.Counts.ReadErrors,
		},
		Config: ConfigJSON{
			PollMs:          snap.Config.PollMs,
			HeartbeatMs:     snap.Config.HeartbeatMs,
			Broker:          snap.Config.Broker,
			HTTPAddr:        snap.Config.HTTPAddr,
			LightTarget:     snap.Config.LightTarget,
			TempTarget:      snap.Config.TempTarget,
			TempTolerance:   snap.Config.TempTolerance,
			MotionThreshold: snap.Config.MotionThreshold,
			HoldMs:          snap.Config.HoldMs,
			DelayMs:         snap.Config.DelayMs,
		},
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the detailed JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(DetailJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the detailed JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(DetailJSON{Status: inner})
	return data
}
