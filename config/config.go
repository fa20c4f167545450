// Package config loads, validates and saves the relay system configuration.
package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/synaptecltd/relay/emulator"
	"github.com/synaptecltd/relay/goose"
	"github.com/synaptecltd/relay/measurement"
	"github.com/synaptecltd/relay/protection"
	"github.com/synaptecltd/relay/sv"
	"github.com/synaptecltd/relay/tripio"
)

// ErrInvalidConfig is wrapped by every validation error.
var ErrInvalidConfig = errors.New("invalid configuration")

// ServerConfig configures the HTTP status server.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" toml:"addr" json:"addr"` // listen address, e.g. ":8080"
}

// TripIOConfig configures the physical trip contact.
type TripIOConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled" json:"enabled"`
	Chip    string `yaml:"chip" toml:"chip" json:"chip"` // GPIO chip, e.g. "gpiochip0"
	Pin     int    `yaml:"pin" toml:"pin" json:"pin"`    // line offset on the chip
}

// EmulatorConfig configures the emulated merging unit feeding the relay.
type EmulatorConfig struct {
	LoadAmps float64                `yaml:"load_amps" toml:"load_amps" json:"load_amps"` // RMS load current in primary amperes
	NoiseMax float64                `yaml:"noise_max" toml:"noise_max" json:"noise_max"` // noise standard deviation, pu of load
	Pace     bool                   `yaml:"pace" toml:"pace" json:"pace"`                // deliver samples in real time
	Seed     uint64                 `yaml:"seed" toml:"seed" json:"seed"`                // 0 seeds from the clock
	Faults   []emulator.FaultParams `yaml:"faults" toml:"faults" json:"faults"`
	Spikes   *emulator.SpikeParams  `yaml:"spikes,omitempty" toml:"spikes,omitempty" json:"spikes,omitempty"` // measurement transients on phase A
}

// SystemConfig is the complete relay configuration.
type SystemConfig struct {
	Ptoc      protection.PtocConfig `yaml:"ptoc" toml:"ptoc" json:"ptoc"`
	Ct        measurement.CtConfig  `yaml:"ct" toml:"ct" json:"ct"`
	Adc       measurement.AdcConfig `yaml:"adc" toml:"adc" json:"adc"`
	Sv        sv.SvConfig           `yaml:"sv" toml:"sv" json:"sv"`
	Goose     goose.GooseConfig     `yaml:"goose" toml:"goose" json:"goose"`
	Functions protection.Container  `yaml:"functions,omitempty" toml:"-" json:"functions,omitempty"` // replaces the single ptoc element when set
	Server    ServerConfig          `yaml:"server" toml:"server" json:"server"`
	TripIO    TripIOConfig          `yaml:"trip_io" toml:"trip_io" json:"trip_io"`
	Emulator  EmulatorConfig        `yaml:"emulator" toml:"emulator" json:"emulator"`
}

// Returns the default configuration.
func Default() SystemConfig {
	return SystemConfig{
		Ptoc:  protection.DefaultPtocConfig(),
		Ct:    measurement.DefaultCtConfig(),
		Adc:   measurement.DefaultAdcConfig(),
		Sv:    sv.DefaultSvConfig(),
		Goose: goose.DefaultGooseConfig(),
		Server: ServerConfig{
			Enabled: true,
			Addr:    ":8080",
		},
		TripIO: TripIOConfig{
			Chip: tripio.DefaultChip,
			Pin:  tripio.DefaultPin,
		},
		Emulator: EmulatorConfig{
			LoadAmps: 50.0,
			NoiseMax: 0.001,
			Pace:     true,
		},
	}
}

// Returns the protection functions to run: the functions list if one was
// configured, otherwise a single element built from the ptoc section.
func (c SystemConfig) BuildFunctions() protection.Container {
	if len(c.Functions) > 0 {
		return c.Functions
	}
	functions := make(protection.Container)
	functions.AddFunction(protection.NewPtoc(c.Ptoc))
	return functions
}

// Validate checks the values the relay cannot run with.
func Validate(c SystemConfig) error {
	var errs []error
	invalid := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	if c.Ct.Secondary == 0 || !isFinite(c.Ct.Secondary) {
		invalid("ct.secondary must be finite and non-zero, got %v", c.Ct.Secondary)
	}
	if !isFinite(c.Ct.Primary) {
		invalid("ct.primary must be finite, got %v", c.Ct.Primary)
	}
	if !isFinite(c.Adc.ScaleFactor) {
		invalid("adc.scale_factor must be finite, got %v", c.Adc.ScaleFactor)
	}
	if !isFinite(c.Adc.Offset) {
		invalid("adc.offset must be finite, got %v", c.Adc.Offset)
	}
	if !isFinite(c.Ptoc.Iset) || c.Ptoc.Iset < 0 {
		invalid("ptoc.iset must be finite and greater than or equal to 0, got %v", c.Ptoc.Iset)
	}
	if c.Ptoc.Tset > protection.MaxTset {
		invalid("ptoc.tset must be at most %d ms, got %d", protection.MaxTset, c.Ptoc.Tset)
	}
	if !isFinite(c.Emulator.LoadAmps) || c.Emulator.LoadAmps < 0 {
		invalid("emulator.load_amps must be finite and greater than or equal to 0")
	}
	if c.Sv.SamplesPerCycle <= 0 {
		invalid("sv.samples_per_cycle must be greater than 0, got %d", c.Sv.SamplesPerCycle)
	}
	if c.Sv.SamplingRate <= 0 {
		invalid("sv.sampling_rate must be greater than 0, got %d", c.Sv.SamplingRate)
	}
	if c.Goose.MinIntervalMs == 0 || c.Goose.MaxIntervalMs < c.Goose.MinIntervalMs {
		invalid("goose intervals must satisfy 0 < min_interval_ms <= max_interval_ms")
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		invalid("server.addr must be set when the server is enabled")
	}
	if c.TripIO.Enabled && c.TripIO.Pin < 0 {
		invalid("trip_io.pin must be greater than or equal to 0, got %d", c.TripIO.Pin)
	}

	return errors.Join(errs...)
}

// NaN and ±Inf scale every sample to a value no threshold comparison can trip on.
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
