// Package mqtt publishes monitor state changes and lifecycle events to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/home-monitor/internal/logic"
	"github.com/sweeney/home-monitor/internal/status"
)

// TopicEvents is the MQTT topic for Home/Away and lighting changes.
const TopicEvents = "home/monitor/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/monitor/system"

// Lifecycle event names published on TopicSystem.
const (
	EventStartup   = "STARTUP"
	EventHeartbeat = "HEARTBEAT"
	EventShutdown  = "SHUTDOWN"
	EventOffline   = "OFFLINE"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a state change to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Reason     string // signal name, shutdown only
	BootID     string
	RawPayload []byte // full status JSON; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// Payload is the MQTT message for a state change.
type Payload struct {
	Monitor MonitorPayload `json:"monitor"`
}

// MonitorPayload contains the state change details.
type MonitorPayload struct {
	Timestamp    string `json:"timestamp"`
	Event        string `json:"event"`
	SystemStatus string `json:"system_status"`
	LightStatus  string `json:"light_status"`
	TempStatus   string `json:"temp_status"`
}

// FormatPayload creates the JSON payload for a state change.
func FormatPayload(event logic.Event) ([]byte, error) {
	return json.Marshal(Payload{
		Monitor: MonitorPayload{
			Timestamp:    event.Timestamp.UTC().Format(time.RFC3339),
			Event:        string(event.Type),
			SystemStatus: string(event.System),
			LightStatus:  string(event.Light),
			TempStatus:   status.FormatTemperature(event.Temperature),
		},
	})
}

// SystemPayload is the MQTT message for lifecycle events that carry no
// status snapshot, such as the broker-side OFFLINE will.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
	BootID    string `json:"boot_id,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
		BootID: event.BootID,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// WillPayload is registered with the broker at connect time and published
// by the broker if the connection drops without a clean disconnect.
func WillPayload(bootID string) []byte {
	data, _ := FormatSystemPayload(SystemEvent{Event: EventOffline, BootID: bootID})
	return data
}
