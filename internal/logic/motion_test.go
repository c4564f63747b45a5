package logic

import (
	"errors"
	"testing"
)

// scriptedSource returns a SampleFunc that yields values in order and
// repeats the last one. reads counts calls.
type scriptedSource struct {
	values []uint16
	index  int
	reads  int
	err    error
}

func (s *scriptedSource) read() (uint16, error) {
	s.reads++
	if s.err != nil {
		return 0, s.err
	}
	v := s.values[s.index]
	if s.index < len(s.values)-1 {
		s.index++
	}
	return v, nil
}

func constant(v uint16) *scriptedSource {
	return &scriptedSource{values: []uint16{v}}
}

func TestCalibratorUsesLastWindowOfBurst(t *testing.T) {
	src := &scriptedSource{values: []uint16{10, 20, 30, 40}}
	c := NewCalibrator(2, src.read)

	ref, err := c.Recalibrate()
	if err != nil {
		t.Fatalf("Recalibrate: %v", err)
	}
	if ref != 35 {
		t.Errorf("reference: got %v, want 35 (mean of last 2 of 4)", ref)
	}
	if src.reads != 4 {
		t.Errorf("reads: got %d, want 4 (2 x size)", src.reads)
	}
}

func TestCalibratorSkipsFailedReads(t *testing.T) {
	calls := 0
	read := func() (uint16, error) {
		calls++
		if calls%2 == 0 {
			return 0, errors.New("spi glitch")
		}
		return 500, nil
	}
	ref, err := NewCalibrator(3, read).Recalibrate()
	if err != nil {
		t.Fatalf("Recalibrate: %v", err)
	}
	if ref != 500 {
		t.Errorf("reference: got %v, want 500", ref)
	}
}

func TestCalibratorAllReadsFail(t *testing.T) {
	src := &scriptedSource{err: errors.New("adc down")}
	_, err := NewCalibrator(4, src.read).Recalibrate()
	if !errors.Is(err, ErrNoCalibrationSamples) {
		t.Fatalf("expected ErrNoCalibrationSamples, got %v", err)
	}
}

func TestDetectorCalibratesOnFirstCall(t *testing.T) {
	src := constant(30000)
	d := NewMotionDetector(NewCalibrator(25, src.read), 900)

	if d.Initialized() {
		t.Fatal("new detector should not be initialized")
	}
	motion, err := d.Detect(30000)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if motion {
		t.Error("expected no motion at the reference value")
	}
	if !d.Initialized() {
		t.Error("detector should be initialized after first call")
	}
	if d.Reference() != 30000 {
		t.Errorf("reference: got %v, want 30000", d.Reference())
	}
	if src.reads != 50 {
		t.Errorf("calibration reads: got %d, want 50", src.reads)
	}
	if d.Recalibrations() != 1 {
		t.Errorf("recalibrations: got %d, want 1", d.Recalibrations())
	}
}

func TestDetectorBandIsInclusive(t *testing.T) {
	d := NewMotionDetector(NewCalibrator(5, constant(1000).read), 900)

	tests := []struct {
		sample float64
		want   bool
	}{
		{1000, false},
		{1900, false},
		{100, false},
		{1900.5, true},
		{99, true},
	}
	for _, tt := range tests {
		got, err := d.Detect(tt.sample)
		if err != nil {
			t.Fatalf("Detect(%v): %v", tt.sample, err)
		}
		if got != tt.want {
			t.Errorf("Detect(%v): got %v, want %v", tt.sample, got, tt.want)
		}
	}
}

func TestDetectorRecalibratesOncePerDetection(t *testing.T) {
	src := constant(1000)
	d := NewMotionDetector(NewCalibrator(5, src.read), 900)

	d.Detect(1000) // initial calibration
	before := d.Recalibrations()
	readsBefore := src.reads

	motion, _ := d.Detect(5000)
	if !motion {
		t.Fatal("expected motion for a sample far outside the band")
	}
	if got := d.Recalibrations() - before; got != 1 {
		t.Errorf("recalibrations after detection: got %d, want 1", got)
	}
	if got := src.reads - readsBefore; got != 10 {
		t.Errorf("calibration reads after detection: got %d, want 10", got)
	}

	d.Detect(1000)
	if got := d.Recalibrations() - before; got != 1 {
		t.Errorf("quiet sample must not recalibrate, got %d recalibrations", got)
	}
}

func TestDetectorUsesPreTriggerReference(t *testing.T) {
	// Initial burst at 1000, every later burst at 5000.
	values := make([]uint16, 0, 11)
	for i := 0; i < 10; i++ {
		values = append(values, 1000)
	}
	values = append(values, 5000)
	src := &scriptedSource{values: values}
	d := NewMotionDetector(NewCalibrator(5, src.read), 900)

	motion, _ := d.Detect(1000)
	if motion {
		t.Fatal("expected no motion after initial calibration")
	}

	// 2000 is outside the 1000±900 band, not the 5000±900 band it rebaselines to.
	motion, _ = d.Detect(2000)
	if !motion {
		t.Fatal("expected motion against pre-trigger reference 1000")
	}
	if d.Reference() != 5000 {
		t.Fatalf("reference after rebaseline: got %v, want 5000", d.Reference())
	}

	// Now 5000 is the ambient baseline: drift there is quiet.
	motion, _ = d.Detect(5100)
	if motion {
		t.Error("expected no motion near the new reference")
	}
}

func TestDetectorRetriesFailedInitialCalibration(t *testing.T) {
	src := &scriptedSource{values: []uint16{800}, err: errors.New("adc down")}
	d := NewMotionDetector(NewCalibrator(3, src.read), 100)

	motion, err := d.Detect(800)
	if err == nil {
		t.Fatal("expected calibration error")
	}
	if motion {
		t.Error("calibration failure must not report motion")
	}
	if d.Initialized() {
		t.Error("detector should stay uninitialized after failed calibration")
	}

	src.err = nil
	motion, err = d.Detect(800)
	if err != nil {
		t.Fatalf("Detect after recovery: %v", err)
	}
	if motion || !d.Initialized() {
		t.Errorf("expected initialized quiet detector, got motion=%v initialized=%v", motion, d.Initialized())
	}
}

func TestDetectorQuietForThousandTicks(t *testing.T) {
	d := NewMotionDetector(NewCalibrator(25, constant(20000).read), 900)
	for i := 0; i < 1000; i++ {
		sample := float64(20000 + (i%9)*100 - 400) // drifts within ±400
		motion, err := d.Detect(sample)
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if motion {
			t.Fatalf("tick %d: unexpected motion for sample %v", i, sample)
		}
	}
	if d.Recalibrations() != 1 {
		t.Errorf("recalibrations: got %d, want 1", d.Recalibrations())
	}
}

func TestCalibrateRunsOnce(t *testing.T) {
	d := NewMotionDetector(NewCalibrator(2, constant(1000).read), 900)

	for i := 0; i < 3; i++ {
		if err := d.Calibrate(); err != nil {
			t.Fatalf("Calibrate %d: %v", i, err)
		}
	}
	if !d.Initialized() || d.Reference() != 1000 {
		t.Errorf("got initialized=%v reference=%v, want true/1000", d.Initialized(), d.Reference())
	}
	if d.Recalibrations() != 1 {
		t.Errorf("recalibrations: got %d, want 1", d.Recalibrations())
	}
}
