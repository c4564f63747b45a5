// Package monitor runs one sampling tick of the home monitor: it reads the
// sensor channels, updates the filters and state machines, drives the
// indicator outputs and publishes a snapshot to the status store.
package monitor

import (
	"log/slog"
	"time"

	"github.com/sweeney/home-monitor/internal/adc"
	"github.com/sweeney/home-monitor/internal/config"
	"github.com/sweeney/home-monitor/internal/gpio"
	"github.com/sweeney/home-monitor/internal/logic"
	"github.com/sweeney/home-monitor/internal/status"
)

// LinkStatus reports whether the telemetry link is up.
type LinkStatus interface {
	IsConnected() bool
}

// Node owns every piece of sampling state. It is not safe for concurrent
// use; the run loop is its only caller and the store is its only output
// shared with other goroutines.
type Node struct {
	reader adc.Reader
	out    gpio.Writer
	store  *status.Store
	link   LinkStatus
	logger *slog.Logger

	light       *logic.RunningAverage
	temperature *logic.RunningAverage
	motion      *logic.RunningAverage
	detector    *logic.MotionDetector
	latch       *logic.MotionLatch
	activation  *logic.Activation
	tempAdvisor *logic.TempAdvisor
	lightAdv    *logic.LightAdvisor

	readings status.Readings
	counts   logic.Counts
	network  *status.NetworkInfo
	failing  map[adc.Channel]bool

	calFailing bool

	outputSet  bool
	outputHome bool

	tempReport  logic.TempReport
	lightReport logic.LightReport

	startTime     time.Time
	lastHeartbeat time.Time
}

// NewNode builds a node from cfg. cfg must already be validated.
func NewNode(cfg config.Config, reader adc.Reader, out gpio.Writer, store *status.Store, startTime time.Time) *Node {
	calibrator := logic.NewCalibrator(cfg.Motion.CalibrationSize, func() (uint16, error) {
		return reader.Read(adc.Motion)
	})
	return &Node{
		reader:        reader,
		out:           out,
		store:         store,
		logger:        slog.Default(),
		light:         logic.NewRunningAverage(cfg.Light.Window),
		temperature:   logic.NewRunningAverage(cfg.Temperature.Window),
		motion:        logic.NewRunningAverage(cfg.Motion.Window),
		detector:      logic.NewMotionDetector(calibrator, cfg.Motion.Threshold),
		latch:         logic.NewMotionLatch(cfg.Motion.Hold),
		activation:    logic.NewActivation(cfg.Activation.Delay),
		tempAdvisor:   logic.NewTempAdvisor(cfg.Temperature.Target, cfg.Temperature.Tolerance),
		lightAdv:      logic.NewLightAdvisor(cfg.Light.Target),
		failing:       map[adc.Channel]bool{},
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// SetLink attaches the telemetry link whose state is copied into each snapshot.
func (n *Node) SetLink(l LinkStatus) {
	n.link = l
}

// SetLogger replaces the default logger.
func (n *Node) SetLogger(l *slog.Logger) {
	n.logger = l
}

// SetNetwork sets the network info carried by subsequent snapshots.
func (n *Node) SetNetwork(info *status.NetworkInfo) {
	n.network = info
}

// Tick runs one sampling cycle at now, publishes exactly one snapshot and
// returns the state changes it produced.
func (n *Node) Tick(now time.Time) []logic.Event {
	if v, ok := n.read(adc.Light); ok {
		n.readings.Light = n.light.Push(v)
	}
	if v, ok := n.read(adc.Temperature); ok {
		n.readings.Temperature = n.temperature.Push(v)
	}

	// The reference comes first so the sample compared against it is read
	// after the burst.
	if err := n.detector.Calibrate(); err != nil {
		if !n.calFailing {
			n.logger.Warn("motion: initial calibration failed, retrying next tick", "error", err)
			n.calFailing = true
		}
	} else if n.calFailing {
		n.logger.Info("motion: calibrated", "reference", n.detector.Reference())
		n.calFailing = false
	}

	motion := false
	if v, ok := n.read(adc.Motion); ok {
		n.readings.Motion = n.motion.Push(v)
		if n.detector.Initialized() {
			var err error
			motion, err = n.detector.Detect(n.readings.Motion)
			if err != nil {
				n.logger.Warn("motion: recalibration failed, keeping reference", "error", err)
			}
		}
	}
	n.readings.Reference = n.detector.Reference()
	n.counts.Recalibrations = n.detector.Recalibrations()
	if motion {
		n.counts.Motion++
	}

	motionStatus := n.latch.Update(motion, now)
	state, changed := n.activation.Update(motion, now)
	n.setOutputs(state == logic.StateHome)

	var events []logic.Event
	if changed {
		typ := logic.EventAway
		if state == logic.StateHome {
			typ = logic.EventHome
			n.counts.Activations++
		} else {
			n.counts.Deactivations++
		}
		n.logger.Info("activation: state changed", "state", state)
		events = append(events, n.event(now, typ, state))
	}

	wasOn := n.lightAdv.On()
	lightReport := n.lightAdv.Evaluate(state, n.readings.Light)
	tempReport := n.tempAdvisor.Evaluate(state, n.readings.Temperature)
	n.logReports(tempReport, lightReport)

	switch on := n.lightAdv.On(); {
	case on && !wasOn:
		events = append(events, n.event(now, logic.EventLightsOn, state))
	case !on && wasOn:
		events = append(events, n.event(now, logic.EventLightsOff, state))
	}

	n.logger.Debug("tick",
		"light", n.readings.Light,
		"temperature", n.readings.Temperature,
		"motion", n.readings.Motion,
		"reference", n.readings.Reference,
		"state", state,
		"motion_status", motionStatus)

	snap := status.Snapshot{
		Timestamp:    now,
		System:       state,
		Motion:       motionStatus,
		Light:        n.lightAdv.Status(),
		Temperature:  n.readings.Temperature,
		TempReport:   tempReport,
		LightReport:  lightReport,
		Readings:     n.readings,
		Ready:        n.detector.Initialized(),
		TimerRunning: n.activation.TimerRunning(),
		Counts:       n.counts,
		Network:      n.network,
	}
	if n.link != nil {
		snap.MQTTConnected = n.link.IsConnected()
	}
	n.store.Publish(snap)

	return events
}

// Ready reports whether the motion detector has a calibration reference.
func (n *Node) Ready() bool {
	return n.detector.Initialized()
}

// Counts returns a copy of the loop counters.
func (n *Node) Counts() logic.Counts {
	return n.counts
}

// CheckHeartbeat returns heartbeat data if interval has elapsed since the
// last heartbeat (or startup). Returns nil until the detector is calibrated,
// or if interval is 0.
func (n *Node) CheckHeartbeat(now time.Time, interval time.Duration) *logic.HeartbeatData {
	if interval <= 0 || !n.Ready() {
		return nil
	}
	if now.Sub(n.lastHeartbeat) < interval {
		return nil
	}
	n.lastHeartbeat = now
	return &logic.HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(n.startTime),
		Counts:    n.counts,
	}
}

// read returns a sample from ch, or false if the read failed. Failures are
// counted on every tick but logged only when a channel starts or stops failing.
func (n *Node) read(ch adc.Channel) (uint16, bool) {
	v, err := n.reader.Read(ch)
	if err != nil {
		n.counts.ReadErrors++
		if !n.failing[ch] {
			n.logger.Warn("adc: read failed, dropping sample", "channel", ch, "error", err)
			n.failing[ch] = true
		}
		return 0, false
	}
	if n.failing[ch] {
		n.logger.Info("adc: channel recovered", "channel", ch)
		n.failing[ch] = false
	}
	return v, true
}

// setOutputs drives the indicator pins when the state differs from what was
// last written. A failed write is retried on the next tick.
func (n *Node) setOutputs(home bool) {
	if n.outputSet && n.outputHome == home {
		return
	}
	if err := n.out.Set(home); err != nil {
		n.logger.Error("gpio: set outputs", "home", home, "error", err)
		n.outputSet = false
		return
	}
	n.outputSet = true
	n.outputHome = home
}

func (n *Node) logReports(temp logic.TempReport, light logic.LightReport) {
	if temp != n.tempReport {
		n.logger.Info("temperature: "+temp.Reason(), "report", temp, "temperature", n.readings.Temperature)
		n.tempReport = temp
	}
	if light != n.lightReport {
		n.logger.Info("light: "+light.Reason(), "report", light, "brightness", n.readings.Light)
		n.lightReport = light
	}
}

func (n *Node) event(now time.Time, typ logic.EventType, state logic.ActivationState) logic.Event {
	return logic.Event{
		Timestamp:   now,
		Type:        typ,
		System:      state,
		Light:       n.lightAdv.Status(),
		Temperature: n.readings.Temperature,
	}
}
