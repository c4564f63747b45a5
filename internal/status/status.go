// Package status provides the shared status store for the home-monitor daemon.
// The sampling loop is its only writer; HTTP handlers read it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/home-monitor/internal/logic"
)

// NetworkInfo contains network state as reported by the host.
// Treated as immutable once published; replace it, don't modify it.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs          int64
	HeartbeatMs     int64
	Broker          string
	HTTPAddr        string
	LightTarget     float64
	TempTarget      float64
	TempTolerance   float64
	MotionThreshold float64
	HoldMs          int64
	DelayMs         int64
}

// Readings are the latest filtered sensor values.
type Readings struct {
	Light       float64
	Temperature float64
	Motion      float64
	Reference   float64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Seq       uint64
	Timestamp time.Time

	System      logic.ActivationState
	Motion      logic.MotionStatus
	Light       logic.LightStatus
	Temperature float64

	TempReport   logic.TempReport
	LightReport  logic.LightReport
	Readings     Readings
	Ready        bool
	TimerRunning bool
	Counts       logic.Counts

	MQTTConnected bool
	Network       *NetworkInfo

	StartTime time.Time
	BootID    string
	Config    Config
}

// Uptime returns the duration between startup and the snapshot's tick.
func (s Snapshot) Uptime() time.Duration {
	return s.Timestamp.Sub(s.StartTime)
}

// Store holds the most recently published snapshot behind an RWMutex.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewStore creates a Store whose initial snapshot is Away with nothing detected.
func NewStore(startTime time.Time, bootID string, cfg Config) *Store {
	return &Store{
		snap: Snapshot{
			Timestamp:   startTime,
			System:      logic.StateAway,
			Motion:      logic.MotionIdle,
			Light:       logic.LightOff,
			TempReport:  logic.TempInactive,
			LightReport: logic.LightInactive,
			StartTime:   startTime,
			BootID:      bootID,
			Config:      cfg,
		},
	}
}

// Publish replaces the whole snapshot. StartTime, BootID and Config are
// carried over from construction and Seq is advanced; the stored value is returned.
func (s *Store) Publish(snap Snapshot) Snapshot {
	s.mu.Lock()
	snap.Seq = s.snap.Seq + 1
	snap.StartTime = s.snap.StartTime
	snap.BootID = s.snap.BootID
	snap.Config = s.snap.Config
	s.snap = snap
	s.mu.Unlock()
	return snap
}

// Read returns a copy of the most recently published snapshot.
func (s *Store) Read() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}
