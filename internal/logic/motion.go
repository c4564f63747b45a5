package logic

import (
	"errors"
	"fmt"
)

// ErrNoCalibrationSamples is returned when every read of a calibration burst failed.
var ErrNoCalibrationSamples = errors.New("no calibration samples")

// SampleFunc reads one raw sample from a sensor channel.
type SampleFunc func() (uint16, error)

// Calibrator computes a fresh motion reference from a dedicated burst of raw reads.
type Calibrator struct {
	size int
	read SampleFunc
}

// NewCalibrator creates a calibrator that averages over size samples.
func NewCalibrator(size int, read SampleFunc) *Calibrator {
	return &Calibrator{size: size, read: read}
}

// Recalibrate reads 2*size raw samples through a throwaway window of size
// and returns the final mean. Failed reads are skipped; if none succeed it
// returns ErrNoCalibrationSamples.
func (c *Calibrator) Recalibrate() (float64, error) {
	f := NewRunningAverage(c.size)
	var ref float64
	var lastErr error
	for i := 0; i < 2*c.size; i++ {
		v, err := c.read()
		if err != nil {
			lastErr = err
			continue
		}
		ref = f.Push(v)
	}
	if f.Len() == 0 {
		return 0, fmt.Errorf("%w: %v", ErrNoCalibrationSamples, lastErr)
	}
	return ref, nil
}

// MotionDetector flags samples that leave the tolerance band around the
// calibrated reference, and re-baselines on every such sample.
type MotionDetector struct {
	calibrator     *Calibrator
	threshold      float64
	reference      float64
	initialized    bool
	recalibrations int
}

// NewMotionDetector creates an uninitialized detector; the first Detect calibrates it.
func NewMotionDetector(c *Calibrator, threshold float64) *MotionDetector {
	return &MotionDetector{calibrator: c, threshold: threshold}
}

// Detect reports whether sample lies strictly outside
// [reference-threshold, reference+threshold]. The band is evaluated against
// the reference held before the call; a detection then recalibrates.
//
// A calibration failure returns false with the error. An uninitialized
// detector stays uninitialized and retries on the next call.
func (d *MotionDetector) Detect(sample float64) (bool, error) {
	if err := d.Calibrate(); err != nil {
		return false, err
	}

	if sample >= d.reference-d.threshold && sample <= d.reference+d.threshold {
		return false, nil
	}

	if err := d.recalibrate(); err != nil {
		// Keep the old reference; the event still stands.
		return true, fmt.Errorf("recalibration: %w", err)
	}
	return true, nil
}

// Calibrate establishes the initial reference if there is none yet. It is a
// no-op once the detector is initialized.
func (d *MotionDetector) Calibrate() error {
	if d.initialized {
		return nil
	}
	if err := d.recalibrate(); err != nil {
		return fmt.Errorf("initial calibration: %w", err)
	}
	d.initialized = true
	return nil
}

func (d *MotionDetector) recalibrate() error {
	ref, err := d.calibrator.Recalibrate()
	if err != nil {
		return err
	}
	d.reference = ref
	d.recalibrations++
	return nil
}

// Initialized reports whether a reference has been established.
func (d *MotionDetector) Initialized() bool {
	return d.initialized
}

// Reference returns the current calibration reference.
func (d *MotionDetector) Reference() float64 {
	return d.reference
}

// Threshold returns the half-width of the tolerance band.
func (d *MotionDetector) Threshold() float64 {
	return d.threshold
}

// Recalibrations returns how many references have been computed.
func (d *MotionDetector) Recalibrations() int {
	return d.recalibrations
}
