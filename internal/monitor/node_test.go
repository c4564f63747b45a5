package monitor

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sweeney/home-monitor/internal/adc"
	"github.com/sweeney/home-monitor/internal/config"
	"github.com/sweeney/home-monitor/internal/gpio"
	"github.com/sweeney/home-monitor/internal/logic"
	"github.com/sweeney/home-monitor/internal/status"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

const step = 100 * time.Millisecond

// testConfig uses raw light/temperature samples and a short calibration burst
// so scripts stay readable.
func testConfig() config.Config {
	cfg := config.Default()
	cfg.Light.Window = 1
	cfg.Temperature.Window = 1
	cfg.Motion.CalibrationSize = 2
	return cfg
}

type fakeLink bool

func (l fakeLink) IsConnected() bool { return bool(l) }

func newTestNode(cfg config.Config, samples map[adc.Channel][]uint16) (*Node, *adc.FakeReader, *gpio.FakeWriter, *status.Store) {
	reader := adc.NewFakeReader(samples)
	out := gpio.NewFakeWriter()
	store := status.NewStore(t0, "boot", status.Config{})
	return NewNode(cfg, reader, out, store, t0), reader, out, store
}

// goHome is a motion script: one quiet tick that calibrates at 1000, then a
// jump to 5000 that triggers and rebaselines there.
func goHome() []uint16 {
	return []uint16{1000, 1000, 1000, 1000, 1000, 5000}
}

func eventTypes(events []logic.Event) []logic.EventType {
	var types []logic.EventType
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

func TestFirstTickCalibratesAndPublishes(t *testing.T) {
	n, reader, _, store := newTestNode(testConfig(), map[adc.Channel][]uint16{
		adc.Light:       {12000},
		adc.Temperature: {990},
		adc.Motion:      {1000},
	})

	events := n.Tick(t0)
	if len(events) != 0 {
		t.Errorf("expected no events, got %v", eventTypes(events))
	}
	if !n.Ready() {
		t.Error("node should be ready after first tick")
	}
	if got := reader.Reads[adc.Motion]; got != 5 {
		t.Errorf("motion reads: got %d, want 5 (1 sample + 2x2 calibration)", got)
	}

	snap := store.Read()
	want := status.Snapshot{
		Seq:         1,
		Timestamp:   t0,
		System:      logic.StateAway,
		Motion:      logic.MotionIdle,
		Light:       logic.LightOff,
		Temperature: 990,
		TempReport:  logic.TempInactive,
		LightReport: logic.LightInactive,
		Readings:    status.Readings{Light: 12000, Temperature: 990, Motion: 1000, Reference: 1000},
		Ready:       true,
		Counts:      logic.Counts{Recalibrations: 1},
		StartTime:   t0,
		BootID:      "boot",
	}
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestFirstMotionSampleFollowsCalibration(t *testing.T) {
	n, _, _, store := newTestNode(testConfig(), map[adc.Channel][]uint16{
		adc.Light:       {100},
		adc.Temperature: {980},
		// The burst reads four samples and keeps the mean of the last two.
		adc.Motion: {2000, 2000, 1000, 1000, 1100},
	})

	if events := n.Tick(t0); len(events) != 0 {
		t.Errorf("expected no events, got %v", eventTypes(events))
	}

	snap := store.Read()
	if snap.Readings.Reference != 1000 {
		t.Errorf("reference: got %v, want 1000", snap.Readings.Reference)
	}
	if snap.Readings.Motion != 1100 {
		t.Errorf("motion sample: got %v, want 1100 (read after the burst)", snap.Readings.Motion)
	}
	if snap.Counts.Motion != 0 || snap.System != logic.StateAway {
		t.Errorf("got motion=%d system=%s, want 0/Away", snap.Counts.Motion, snap.System)
	}
}

func TestPublishesOncePerTick(t *testing.T) {
	n, _, _, store := newTestNode(testConfig(), map[adc.Channel][]uint16{
		adc.Light:       {100},
		adc.Temperature: {980},
		adc.Motion:      goHome(),
	})

	for i := 0; i < 25; i++ {
		n.Tick(t0.Add(time.Duration(i) * step))
		if got := store.Read().Seq; got != uint64(i+1) {
			t.Fatalf("tick %d: seq %d, want %d", i, got, i+1)
		}
	}
}

func TestMotionGoesHomeAndDrivesOutputs(t *testing.T) {
	n, _, out, store := newTestNode(testConfig(), map[adc.Channel][]uint16{
		adc.Light:       {100},
		adc.Temperature: {980},
		adc.Motion:      goHome(),
	})

	n.Tick(t0)
	if home, away := out.Levels(); home != 0 || away != 1 {
		t.Errorf("after quiet tick: got home=%d away=%d, want 0/1", home, away)
	}

	events := n.Tick(t0.Add(step))
	if diff := cmp.Diff([]logic.EventType{logic.EventHome}, eventTypes(events)); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
	if home, away := out.Levels(); home != 1 || away != 0 {
		t.Errorf("after motion: got home=%d away=%d, want 1/0", home, away)
	}

	snap := store.Read()
	if snap.System != logic.StateHome || snap.Motion != logic.MotionDetected {
		t.Errorf("got system=%s motion=%q, want Home/DETECTED!", snap.System, snap.Motion)
	}
	if !snap.TimerRunning {
		t.Error("deactivation timer should be running")
	}
	if snap.TempReport != logic.TempSatisfied {
		t.Errorf("temp report: got %s, want SATISFIED", snap.TempReport)
	}
	if snap.Counts.Motion != 1 || snap.Counts.Activations != 1 || snap.Counts.Recalibrations != 2 {
		t.Errorf("counts: got %+v", snap.Counts)
	}
	if snap.Readings.Reference != 5000 {
		t.Errorf("reference: got %v, want 5000", snap.Readings.Reference)
	}
}

func TestOutputsWrittenOnlyOnChange(t *testing.T) {
	cfg := testConfig()
	cfg.Activation.Delay = time.Second
	n, _, out, _ := newTestNode(cfg, map[adc.Channel][]uint16{
		adc.Light:       {100},
		adc.Temperature: {980},
		adc.Motion:      goHome(),
	})

	for i := 0; i < 30; i++ {
		n.Tick(t0.Add(time.Duration(i) * step))
	}

	// Away at start, Home on motion at +100ms, Away again at +1.1s.
	if diff := cmp.Diff([]bool{false, true, false}, out.History); diff != "" {
		t.Errorf("output history (-want +got):\n%s", diff)
	}
}

func TestOutputWriteFailureRetried(t *testing.T) {
	n, _, out, _ := newTestNode(testConfig(), map[adc.Channel][]uint16{
		adc.Light:       {100},
		adc.Temperature: {980},
		adc.Motion:      {1000},
	})

	out.SetError = errors.New("line busy")
	n.Tick(t0)
	n.Tick(t0.Add(step))
	if len(out.History) != 0 {
		t.Fatalf("failed writes should not be recorded, got %v", out.History)
	}

	out.SetError = nil
	n.Tick(t0.Add(2 * step))
	n.Tick(t0.Add(3 * step))
	if diff := cmp.Diff([]bool{false}, out.History); diff != "" {
		t.Errorf("output history (-want +got):\n%s", diff)
	}
}

func TestLightLatchAroundTarget(t *testing.T) {
	cfg := testConfig()
	cfg.Activation.Delay = time.Hour
	n, _, _, store := newTestNode(cfg, map[adc.Channel][]uint16{
		// tick:         0      1      2      3      4      5      6      7
		adc.Light:       {20000, 18500, 19000, 19001, 18000, 20000, 15000, 0},
		adc.Temperature: {980},
		adc.Motion:      goHome(),
	})

	want := []struct {
		light  logic.LightStatus
		events []logic.EventType
	}{
		{logic.LightOff, nil}, // Away: bright reading ignored
		{logic.LightOff, []logic.EventType{logic.EventHome}},
		{logic.LightOff, nil}, // equal to target is not above it
		{logic.LightOn, []logic.EventType{logic.EventLightsOn}},
		{logic.LightOn, nil},
		{logic.LightOn, nil},
		{logic.LightOn, nil},
		{logic.LightOn, nil},
	}

	for i, w := range want {
		events := n.Tick(t0.Add(time.Duration(i) * step))
		if diff := cmp.Diff(w.events, eventTypes(events)); diff != "" {
			t.Errorf("tick %d events (-want +got):\n%s", i, diff)
		}
		if got := store.Read().Light; got != w.light {
			t.Errorf("tick %d: light %s, want %s", i, got, w.light)
		}
	}

	// Stays on for the rest of the Home period whatever the brightness.
	for i := len(want); i < 100; i++ {
		n.Tick(t0.Add(time.Duration(i) * step))
		if got := store.Read(); got.Light != logic.LightOn || got.System != logic.StateHome {
			t.Fatalf("tick %d: got light=%s system=%s, want ON/Home", i, got.Light, got.System)
		}
	}
}

func TestGoingAwayTurnsLightsOff(t *testing.T) {
	cfg := testConfig()
	cfg.Activation.Delay = time.Second
	n, _, _, store := newTestNode(cfg, map[adc.Channel][]uint16{
		adc.Light:       {25000},
		adc.Temperature: {980},
		adc.Motion:      goHome(),
	})

	n.Tick(t0)
	events := n.Tick(t0.Add(step))
	if diff := cmp.Diff([]logic.EventType{logic.EventHome, logic.EventLightsOn}, eventTypes(events)); diff != "" {
		t.Fatalf("activation events (-want +got):\n%s", diff)
	}

	var got []logic.EventType
	for d := 2 * step; d <= 2*time.Second; d += step {
		got = append(got, eventTypes(n.Tick(t0.Add(d)))...)
	}
	if diff := cmp.Diff([]logic.EventType{logic.EventAway, logic.EventLightsOff}, got); diff != "" {
		t.Errorf("deactivation events (-want +got):\n%s", diff)
	}

	snap := store.Read()
	if snap.System != logic.StateAway || snap.Light != logic.LightOff || snap.LightReport != logic.LightInactive {
		t.Errorf("got %s/%s/%s, want Away/OFF/INACTIVE", snap.System, snap.Light, snap.LightReport)
	}
	if snap.Counts.Deactivations != 1 {
		t.Errorf("deactivations: got %d, want 1", snap.Counts.Deactivations)
	}
}

func TestQuietMotionStaysAwayForThousandTicks(t *testing.T) {
	samples := make([]uint16, 1100)
	for i := range samples {
		samples[i] = uint16(20000 + (i%9)*100 - 400)
	}
	n, _, out, store := newTestNode(config.Default(), map[adc.Channel][]uint16{
		adc.Light:       {20000},
		adc.Temperature: {980},
		adc.Motion:      samples,
	})

	for i := 0; i < 1000; i++ {
		if events := n.Tick(t0.Add(time.Duration(i) * step)); len(events) != 0 {
			t.Fatalf("tick %d: unexpected events %v", i, eventTypes(events))
		}
		snap := store.Read()
		if snap.System != logic.StateAway {
			t.Fatalf("tick %d: system %s, want Away", i, snap.System)
		}
		if snap.TimerRunning {
			t.Fatalf("tick %d: deactivation timer started", i)
		}
		if snap.Motion != logic.MotionIdle {
			t.Fatalf("tick %d: motion %q, want idle", i, snap.Motion)
		}
	}

	if diff := cmp.Diff([]bool{false}, out.History); diff != "" {
		t.Errorf("output history (-want +got):\n%s", diff)
	}
	if got := store.Read().Counts; got.Motion != 0 || got.Recalibrations != 1 {
		t.Errorf("counts: got %+v, want no motion and one calibration", got)
	}
}

func TestReadFaultDropsSample(t *testing.T) {
	n, reader, _, store := newTestNode(testConfig(), map[adc.Channel][]uint16{
		adc.Light:       {12000, 13000},
		adc.Temperature: {990, 995},
		adc.Motion:      {1000},
	})

	n.Tick(t0)

	reader.Fail(adc.Light, errors.New("spi timeout"))
	reader.Fail(adc.Temperature, errors.New("spi timeout"))
	n.Tick(t0.Add(step))

	snap := store.Read()
	if snap.Readings.Light != 12000 || snap.Temperature != 990 {
		t.Errorf("failed reads should keep previous values, got light=%v temperature=%v",
			snap.Readings.Light, snap.Temperature)
	}
	if snap.Counts.ReadErrors != 2 {
		t.Errorf("read errors: got %d, want 2", snap.Counts.ReadErrors)
	}

	reader.Fail(adc.Light, nil)
	reader.Fail(adc.Temperature, nil)
	n.Tick(t0.Add(2 * step))

	snap = store.Read()
	if snap.Readings.Light != 13000 || snap.Temperature != 995 {
		t.Errorf("after recovery: got light=%v temperature=%v, want 13000/995",
			snap.Readings.Light, snap.Temperature)
	}
}

func TestMotionReadFaultIsNoEvent(t *testing.T) {
	n, reader, _, store := newTestNode(testConfig(), map[adc.Channel][]uint16{
		adc.Light:       {100},
		adc.Temperature: {980},
		adc.Motion:      {1000},
	})

	reader.Fail(adc.Motion, errors.New("spi timeout"))
	for i := 0; i < 10; i++ {
		if events := n.Tick(t0.Add(time.Duration(i) * step)); len(events) != 0 {
			t.Fatalf("tick %d: unexpected events %v", i, eventTypes(events))
		}
	}
	if n.Ready() {
		t.Error("detector must not calibrate while motion reads fail")
	}
	snap := store.Read()
	if snap.System != logic.StateAway || snap.Ready {
		t.Errorf("got system=%s ready=%v, want Away/false", snap.System, snap.Ready)
	}
	if snap.Counts.ReadErrors != 10 {
		t.Errorf("read errors: got %d, want 10", snap.Counts.ReadErrors)
	}

	reader.Fail(adc.Motion, nil)
	n.Tick(t0.Add(10 * step))
	if !n.Ready() {
		t.Error("detector should calibrate once reads recover")
	}
}

func TestSnapshotCarriesLinkAndNetwork(t *testing.T) {
	n, _, _, store := newTestNode(testConfig(), map[adc.Channel][]uint16{
		adc.Light:       {100},
		adc.Temperature: {980},
		adc.Motion:      {1000},
	})

	n.Tick(t0)
	if snap := store.Read(); snap.MQTTConnected || snap.Network != nil {
		t.Errorf("expected no link or network, got connected=%v network=%+v", snap.MQTTConnected, snap.Network)
	}

	n.SetLink(fakeLink(true))
	n.SetNetwork(&status.NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"})
	n.Tick(t0.Add(step))

	snap := store.Read()
	if !snap.MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}
	if snap.Network == nil || snap.Network.IP != "192.168.1.42" {
		t.Errorf("network: got %+v", snap.Network)
	}
}

func TestCheckHeartbeat(t *testing.T) {
	n, reader, _, _ := newTestNode(testConfig(), map[adc.Channel][]uint16{
		adc.Light:       {100},
		adc.Temperature: {980},
		adc.Motion:      {1000},
	})

	reader.Fail(adc.Motion, errors.New("not ready"))
	n.Tick(t0)
	if hb := n.CheckHeartbeat(t0.Add(time.Hour), time.Minute); hb != nil {
		t.Fatal("no heartbeat before calibration")
	}

	reader.Fail(adc.Motion, nil)
	n.Tick(t0.Add(step))

	if hb := n.CheckHeartbeat(t0.Add(30*time.Second), time.Minute); hb != nil {
		t.Error("heartbeat before interval elapsed")
	}
	hb := n.CheckHeartbeat(t0.Add(time.Minute), time.Minute)
	if hb == nil {
		t.Fatal("expected heartbeat at interval")
	}
	if hb.Uptime != time.Minute {
		t.Errorf("uptime: got %v, want 1m", hb.Uptime)
	}
	if hb.Counts.ReadErrors != 1 || hb.Counts.Recalibrations != 1 {
		t.Errorf("counts: got %+v", hb.Counts)
	}
	if hb := n.CheckHeartbeat(t0.Add(90*time.Second), time.Minute); hb != nil {
		t.Error("interval restarts from the last heartbeat")
	}
	if hb := n.CheckHeartbeat(t0.Add(2*time.Minute), 0); hb != nil {
		t.Error("interval 0 disables heartbeats")
	}
}
