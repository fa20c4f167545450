package emulator

import (
	"errors"
	"math/rand/v2"
)

// Spike adds random single-sample transients to phase A, e.g. to check that
// interference on the measurement does not trip the relay.
type Spike struct {
	probability   float64 // chance of a spike in each time step, 0 to 1
	Magnitude     float64 // peak primary amperes of each spike
	VaryMagnitude bool    // scale each spike by a standard normal draw

	// internal state
	isActive bool
	count    uint64
}

// Parameters used to request a Spike.
type SpikeParams struct {
	Probability   float64 `yaml:"probability" toml:"probability" json:"probability"`
	Magnitude     float64 `yaml:"magnitude" toml:"magnitude" json:"magnitude"`
	VaryMagnitude bool    `yaml:"vary_magnitude" toml:"vary_magnitude" json:"vary_magnitude"`
}

// Returns a Spike with the requested parameters, checking for invalid values.
func NewSpike(params SpikeParams) (*Spike, error) {
	spike := &Spike{
		Magnitude:     params.Magnitude,
		VaryMagnitude: params.VaryMagnitude,
	}
	if err := spike.SetProbability(params.Probability); err != nil {
		return nil, err
	}
	return spike, nil
}

// Sets the probability of a spike in each time step if 0 <= probability <= 1.
func (s *Spike) SetProbability(probability float64) error {
	if !(probability >= 0 && probability <= 1) {
		return errors.New("probability must be between 0 and 1")
	}
	s.probability = probability
	return nil
}

func (s *Spike) GetProbability() float64 {
	return s.probability
}

// Returns whether a spike was produced in the last time step.
func (s *Spike) GetIsActive() bool {
	return s.isActive
}

// Returns the number of spikes produced so far.
func (s *Spike) GetCount() uint64 {
	return s.count
}

// stepSpike returns the additional current this time step.
func (s *Spike) stepSpike(r *rand.Rand) float64 {
	if s.probability == 0 || r.Float64() >= s.probability {
		s.isActive = false
		return 0.0
	}

	s.isActive = true
	s.count++
	if s.VaryMagnitude {
		return s.Magnitude * r.NormFloat64()
	}
	return s.Magnitude
}

// Initialise the internal fields of Spike when it is unmarshalled from yaml.
func (s *Spike) UnmarshalYAML(unmarshal func(any) error) error {
	var params SpikeParams
	if err := unmarshal(&params); err != nil {
		return err
	}
	spike, err := NewSpike(params)
	if err != nil {
		return err
	}
	*s = *spike
	return nil
}
