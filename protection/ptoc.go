package protection

import (
	"errors"
	"math"
	"time"
)

// PtocConfig holds the settings of a definite-time overcurrent element.
type PtocConfig struct {
	Iset    float64 `yaml:"iset" toml:"iset" json:"iset"`          // pickup current in primary amperes
	Tset    uint64  `yaml:"tset" toml:"tset" json:"tset"`          // definite-time delay in milliseconds
	Enabled bool    `yaml:"enabled" toml:"enabled" json:"enabled"` // element in service
}

// MaxTset is the longest delay in milliseconds a time.Duration can hold.
const MaxTset = uint64(math.MaxInt64 / int64(time.Millisecond))

// Returns the default 100 A / 100 ms enabled setting.
func DefaultPtocConfig() PtocConfig {
	return PtocConfig{Iset: 100.0, Tset: 100, Enabled: true}
}

// Ptoc is a definite-time overcurrent element (IEC 61850 PTOC).
//
// It moves Idle -> Pickup when the current exceeds Iset, Pickup -> Trip once the
// current has stayed above Iset for Tset, and Pickup -> Idle if the current
// drops first. Trip latches until Reset.
type Ptoc struct {
	name   string
	config PtocConfig

	// internal state
	state      TripState
	pickupTime uint64 // microseconds, only valid in StatePickup
}

// Parameters used to request a Ptoc, e.g. from a configuration file.
type PtocParams struct {
	Name    string  `yaml:"name" mapstructure:"name"`       // identifier, defaults to "PTOC"
	Iset    float64 `yaml:"iset" mapstructure:"iset"`       // pickup current in primary amperes, must be >= 0
	Tset    int64   `yaml:"tset" mapstructure:"tset"`       // delay in milliseconds, must be >= 0
	Enabled *bool   `yaml:"enabled" mapstructure:"enabled"` // defaults to true when absent
}

// Returns a Ptoc named "PTOC" in the Idle state.
func NewPtoc(config PtocConfig) *Ptoc {
	return &Ptoc{
		name:   "PTOC",
		config: config,
		state:  StateIdle,
	}
}

// Returns a Ptoc built from params, checking for invalid values.
func NewPtocFromParams(params PtocParams) (*Ptoc, error) {
	if math.IsNaN(params.Iset) || math.IsInf(params.Iset, 0) || params.Iset < 0 {
		return nil, errors.New("iset must be finite and greater than or equal to 0")
	}
	if params.Tset < 0 || uint64(params.Tset) > MaxTset {
		return nil, errors.New("tset must be between 0 and MaxTset")
	}

	enabled := true
	if params.Enabled != nil {
		enabled = *params.Enabled
	}

	ptoc := NewPtoc(PtocConfig{
		Iset:    params.Iset,
		Tset:    uint64(params.Tset),
		Enabled: enabled,
	})
	if params.Name != "" {
		ptoc.name = params.Name
	}
	return ptoc, nil
}

// Process advances the state machine with an RMS current in primary amperes
// measured at timestampUs.
//
// A config-disabled element returns Disabled and leaves its state untouched.
// Timestamps earlier than the pickup time count as zero elapsed time.
func (p *Ptoc) Process(current float64, timestampUs uint64) Result {
	if !p.config.Enabled {
		return Disabled()
	}

	overcurrent := p.isOvercurrent(current)

	switch p.state {
	case StateIdle:
		if !overcurrent {
			return NoTrip()
		}
		p.state = StatePickup
		p.pickupTime = timestampUs
		return TripPending(msToDuration(p.config.Tset))

	case StatePickup:
		if !overcurrent {
			p.state = StateIdle
			p.pickupTime = 0
			return NoTrip()
		}
		elapsed := p.elapsedSincePickup(timestampUs)
		if elapsed >= p.config.Tset {
			p.state = StateTrip
			return Trip()
		}
		return TripPending(msToDuration(p.config.Tset - elapsed))

	default: // StateTrip
		return Trip()
	}
}

// Reset returns to Idle from any state, including a latched trip.
func (p *Ptoc) Reset() {
	p.state = StateIdle
	p.pickupTime = 0
}

// Returns whether the element is enabled.
func (p *Ptoc) IsEnabled() bool {
	return p.config.Enabled
}

// SetEnabled sets the enabled flag. Disabling resets the element.
func (p *Ptoc) SetEnabled(enabled bool) {
	p.config.Enabled = enabled
	if !enabled {
		p.Reset()
	}
}

// Returns the element name.
func (p *Ptoc) Name() string {
	return p.name
}

// Returns "ptoc".
func (p *Ptoc) TypeAsString() string {
	return "ptoc"
}

// Returns the current state.
func (p *Ptoc) State() TripState {
	return p.state
}

// Returns the pickup timestamp in microseconds and true while in Pickup.
func (p *Ptoc) PickupTime() (uint64, bool) {
	if p.state != StatePickup {
		return 0, false
	}
	return p.pickupTime, true
}

// Returns the configuration.
func (p *Ptoc) Config() PtocConfig {
	return p.config
}

// SetConfig replaces the settings. A disabled configuration also resets.
func (p *Ptoc) SetConfig(config PtocConfig) {
	p.config = config
	if !config.Enabled {
		p.Reset()
	}
}

// Returns the pickup current setting in primary amperes.
func (p *Ptoc) Iset() float64 {
	return p.config.Iset
}

// Returns the definite-time delay setting in milliseconds.
func (p *Ptoc) Tset() uint64 {
	return p.config.Tset
}

func (p *Ptoc) isOvercurrent(current float64) bool {
	return current > p.config.Iset
}

// Returns whole milliseconds since pickup, saturating at 0 for timestamps that
// precede the pickup time.
func (p *Ptoc) elapsedSincePickup(timestampUs uint64) uint64 {
	return saturatingSub(timestampUs, p.pickupTime) / 1000
}

func saturatingSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}

// msToDuration saturates at the largest Duration instead of overflowing.
func msToDuration(ms uint64) time.Duration {
	if ms > MaxTset {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ms) * time.Millisecond
}

// Returns the parameters that rebuild this element with NewPtocFromParams.
func (p *Ptoc) Params() PtocParams {
	enabled := p.config.Enabled
	return PtocParams{
		Name:    p.name,
		Iset:    p.config.Iset,
		Tset:    int64(p.config.Tset),
		Enabled: &enabled,
	}
}
