//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealWriter drives outputs on actual hardware using Linux GPIO character device.
type RealWriter struct {
	chip    *gpiocdev.Chip
	homePin *gpiocdev.Line
	awayPin *gpiocdev.Line
}

// NewRealWriter requests both pins as outputs. The initial levels show Away.
func NewRealWriter(chipName string, pinHome, pinAway int) (*RealWriter, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	homeLine, err := chip.RequestLine(pinHome, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request home pin %d: %w", pinHome, err)
	}

	awayLine, err := chip.RequestLine(pinAway, gpiocdev.AsOutput(1))
	if err != nil {
		homeLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request away pin %d: %w", pinAway, err)
	}

	return &RealWriter{
		chip:    chip,
		homePin: homeLine,
		awayPin: awayLine,
	}, nil
}

// Set drives home on the home pin and !home on the away pin.
func (w *RealWriter) Set(home bool) error {
	if err := w.homePin.SetValue(level(home)); err != nil {
		return fmt.Errorf("set home pin: %w", err)
	}
	if err := w.awayPin.SetValue(level(!home)); err != nil {
		return fmt.Errorf("set away pin: %w", err)
	}
	return nil
}

// Close turns both outputs off and releases GPIO resources.
// Pins are returned to input with pull-down (matching Pi boot defaults) before
// closing so the LEDs stay dark across a restart.
func (w *RealWriter) Close() error {
	var errs []error

	for _, p := range []struct {
		name string
		line *gpiocdev.Line
	}{
		{"home", w.homePin},
		{"away", w.awayPin},
	} {
		if p.line == nil {
			continue
		}
		if err := p.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear %s pin: %w", p.name, err))
		}
		if err := p.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", p.name, err))
		}
		if err := p.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", p.name, err))
		}
	}
	if w.chip != nil {
		if err := w.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
