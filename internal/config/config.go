// Package config holds the daemon configuration: defaults matching the
// deployed hardware, optional TOML/YAML overlay files, and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure returned by Validate.
var ErrInvalid = errors.New("invalid config")

// Config is the full daemon configuration.
type Config struct {
	Poll         time.Duration `toml:"poll" yaml:"poll"`
	HTTPAddr     string        `toml:"http" yaml:"http"`
	Broker       string        `toml:"broker" yaml:"broker"`
	ClientID     string        `toml:"client_id" yaml:"client_id"`
	Heartbeat    time.Duration `toml:"heartbeat" yaml:"heartbeat"`
	LiveInterval time.Duration `toml:"live_interval" yaml:"live_interval"`
	RestartDelay time.Duration `toml:"restart_delay" yaml:"restart_delay"`

	ADC         ADC         `toml:"adc" yaml:"adc"`
	Pins        Pins        `toml:"pins" yaml:"pins"`
	Light       Light       `toml:"light" yaml:"light"`
	Temperature Temperature `toml:"temperature" yaml:"temperature"`
	Motion      Motion      `toml:"motion" yaml:"motion"`
	Activation  Activation  `toml:"activation" yaml:"activation"`
}

// ADC selects the SPI converter and its input channels.
type ADC struct {
	ChipSelect  uint8 `toml:"chip_select" yaml:"chip_select"`
	SpeedHz     int   `toml:"speed_hz" yaml:"speed_hz"`
	Light       uint8 `toml:"light" yaml:"light"`
	Temperature uint8 `toml:"temperature" yaml:"temperature"`
	Motion      uint8 `toml:"motion" yaml:"motion"`
}

// Pins are the indicator outputs (BCM numbering).
type Pins struct {
	Chip string `toml:"chip" yaml:"chip"`
	Home int    `toml:"home" yaml:"home"`
	Away int    `toml:"away" yaml:"away"`
}

// Light configures the brightness filter and light advisor.
type Light struct {
	Window int     `toml:"window" yaml:"window"`
	Target float64 `toml:"target" yaml:"target"`
}

// Temperature configures the temperature filter and advisor.
type Temperature struct {
	Window    int     `toml:"window" yaml:"window"`
	Target    float64 `toml:"target" yaml:"target"`
	Tolerance float64 `toml:"tolerance" yaml:"tolerance"`
}

// Motion configures the motion filter, detector and display latch.
type Motion struct {
	Window          int           `toml:"window" yaml:"window"`
	CalibrationSize int           `toml:"calibration_size" yaml:"calibration_size"`
	Threshold       float64       `toml:"threshold" yaml:"threshold"` // lower = more sensitive
	Hold            time.Duration `toml:"hold" yaml:"hold"`
}

// Activation configures the Home/Away state machine.
type Activation struct {
	Delay time.Duration `toml:"delay" yaml:"delay"`
}

// Default returns the configuration of the deployed device.
func Default() Config {
	return Config{
		Poll:         100 * time.Millisecond,
		HTTPAddr:     ":80",
		Broker:       "tcp://localhost:1883",
		ClientID:     "home-monitor",
		Heartbeat:    15 * time.Minute,
		LiveInterval: time.Second,
		RestartDelay: 100 * time.Millisecond,
		ADC: ADC{
			ChipSelect:  0,
			SpeedHz:     1_000_000,
			Light:       0,
			Temperature: 1,
			Motion:      2,
		},
		Pins: Pins{
			Chip: "gpiochip0",
			Home: 14,
			Away: 15,
		},
		Light:       Light{Window: 50, Target: 19000},
		Temperature: Temperature{Window: 50, Target: 980, Tolerance: 100},
		Motion: Motion{
			Window:          1,
			CalibrationSize: 25,
			Threshold:       900,
			Hold:            3 * time.Second,
		},
		Activation: Activation{Delay: 5 * time.Second},
	}
}

// Load returns Default overlaid with the file at path. The format is chosen
// by extension: .toml, .yaml or .yml. Keys absent from the file keep their
// default values. The result is not validated.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return cfg, fmt.Errorf("decode %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("config %s: unsupported extension %q", path, filepath.Ext(path))
	}
	return cfg, nil
}

// Validate reports every problem with c, joined and wrapped with ErrInvalid.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Poll > 0, "poll must be positive, got %v", c.Poll)
	check(c.Heartbeat >= 0, "heartbeat must not be negative, got %v", c.Heartbeat)
	check(c.LiveInterval > 0, "live_interval must be positive, got %v", c.LiveInterval)
	check(c.RestartDelay > 0, "restart_delay must be positive, got %v", c.RestartDelay)
	check(c.ClientID != "", "client_id must be set")

	check(c.ADC.SpeedHz > 0, "adc.speed_hz must be positive, got %d", c.ADC.SpeedHz)
	check(c.ADC.Light < 8, "adc.light channel must be 0-7, got %d", c.ADC.Light)
	check(c.ADC.Temperature < 8, "adc.temperature channel must be 0-7, got %d", c.ADC.Temperature)
	check(c.ADC.Motion < 8, "adc.motion channel must be 0-7, got %d", c.ADC.Motion)
	check(c.ADC.Light != c.ADC.Temperature && c.ADC.Light != c.ADC.Motion && c.ADC.Temperature != c.ADC.Motion,
		"adc channels must be distinct, got light=%d temperature=%d motion=%d",
		c.ADC.Light, c.ADC.Temperature, c.ADC.Motion)

	check(c.Pins.Chip != "", "pins.chip must be set")
	check(c.Pins.Home >= 0 && c.Pins.Away >= 0, "pins must not be negative, got home=%d away=%d", c.Pins.Home, c.Pins.Away)
	check(c.Pins.Home != c.Pins.Away, "pins.home and pins.away must differ, both %d", c.Pins.Home)

	check(c.Light.Window >= 1, "light.window must be at least 1, got %d", c.Light.Window)
	check(c.Temperature.Window >= 1, "temperature.window must be at least 1, got %d", c.Temperature.Window)
	check(c.Temperature.Tolerance >= 0, "temperature.tolerance must not be negative, got %v", c.Temperature.Tolerance)
	check(c.Motion.Window >= 1, "motion.window must be at least 1, got %d", c.Motion.Window)
	check(c.Motion.CalibrationSize >= 1, "motion.calibration_size must be at least 1, got %d", c.Motion.CalibrationSize)
	check(c.Motion.Threshold >= 0, "motion.threshold must not be negative, got %v", c.Motion.Threshold)
	check(c.Motion.Hold > 0, "motion.hold must be positive, got %v", c.Motion.Hold)
	check(c.Activation.Delay > 0, "activation.delay must be positive, got %v", c.Activation.Delay)

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}
