// Package logic contains the pure sensor-fusion and state-machine core.
// This package has NO external dependencies (no ADC, GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// ActivationState is the derived occupancy of the monitored space.
type ActivationState string

const (
	StateAway ActivationState = "Away"
	StateHome ActivationState = "Home"
)

// MotionStatus is the debounced, user-visible motion indicator.
type MotionStatus string

const (
	MotionDetected MotionStatus = "DETECTED!"
	MotionIdle     MotionStatus = "..."
)

// LightStatus mirrors the light advisor's lights-on flag.
type LightStatus string

const (
	LightOn  LightStatus = "ON"
	LightOff LightStatus = "OFF"
)

// TempReport is the temperature advisor's output for one tick.
type TempReport string

const (
	TempInactive  TempReport = "INACTIVE"
	TempHeating   TempReport = "HEATING"
	TempCooling   TempReport = "COOLING"
	TempSatisfied TempReport = "SATISFIED"
)

// Reason returns a short human explanation for the report.
func (r TempReport) Reason() string {
	switch r {
	case TempInactive:
		return "temperature control inactive"
	case TempHeating:
		return "temperature too low"
	case TempCooling:
		return "temperature too high"
	case TempSatisfied:
		return "target temperature met"
	}
	return ""
}

// LightReport is the light advisor's output for one tick.
type LightReport string

const (
	LightInactive   LightReport = "INACTIVE"
	LightSwitchedOn LightReport = "ON"
	LightLeftOff    LightReport = "OFF"
)

// Reason returns a short human explanation for the report.
func (r LightReport) Reason() string {
	switch r {
	case LightInactive:
		return "lighting control inactive"
	case LightSwitchedOn:
		return "brightness too low"
	case LightLeftOff:
		return "brightness sufficient"
	}
	return ""
}

// EventType represents a derived state change worth publishing.
type EventType string

const (
	EventHome      EventType = "HOME"
	EventAway      EventType = "AWAY"
	EventLightsOn  EventType = "LIGHTS_ON"
	EventLightsOff EventType = "LIGHTS_OFF"
)

// Event represents a state change to be published.
type Event struct {
	Timestamp   time.Time
	Type        EventType
	System      ActivationState
	Light       LightStatus
	Temperature float64
}

// Counts tracks what the sampling loop has seen since startup.
type Counts struct {
	Motion         int
	Activations    int
	Deactivations  int
	Recalibrations int
	ReadErrors     int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
}
