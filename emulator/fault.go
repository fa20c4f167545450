package emulator

import (
	"errors"

	"github.com/synaptecltd/relay/mathfuncs"
)

// Fault adds current to the emulated waveform for a period of time. The extra
// peak current follows a named envelope function.
type Fault struct {
	Name       string
	Magnitude  float64 // additional peak current in primary amperes
	PhaseAOnly bool    // true: single-phase fault on A, false: balanced three-phase fault
	Repeats    uint64  // the number of times the fault repeats, 0 for infinite
	Off        bool    // true: fault deactivated

	// Setters are provided for private fields below to allow for error checking
	startDelay   float64 // seconds before the fault starts, and between repeats
	duration     float64 // seconds the fault lasts, 0 for a permanent fault
	envelopeName string  // name of the envelope function, defaults to "step"

	// internal state
	envelope        mathfuncs.EnvelopeFunction
	isActive        bool    // whether the fault is modulating the waveform in this timestep
	startDelayIndex int     // timesteps spent waiting since the last fault ended
	elapsedIndex    int     // timesteps since the active fault began
	elapsedTime     float64 // seconds since the active fault began
	countRepeats    uint64  // number of completed faults
}

// Parameters used to request a fault. These map onto the fields of Fault.
type FaultParams struct {
	Name       string  `yaml:"name" toml:"name" json:"name"`
	Magnitude  float64 `yaml:"magnitude" toml:"magnitude" json:"magnitude"`          // additional peak current in primary amperes
	PhaseAOnly bool    `yaml:"phase_a_only" toml:"phase_a_only" json:"phase_a_only"` // single-phase fault on A
	Repeats    uint64  `yaml:"repeats" toml:"repeats" json:"repeats"`                // 0 for infinite
	Off        bool    `yaml:"off" toml:"off" json:"off"`                            // fault deactivated
	StartDelay float64 `yaml:"start_delay" toml:"start_delay" json:"start_delay"`    // seconds before the fault starts
	Duration   float64 `yaml:"duration" toml:"duration" json:"duration"`             // seconds the fault lasts, 0 for permanent
	Envelope   string  `yaml:"envelope" toml:"envelope" json:"envelope"`             // envelope function name, empty for step
}

// Returns a Fault pointer with the requested parameters, checking for invalid values.
func NewFault(params FaultParams) (*Fault, error) {
	fault := &Fault{
		Name:       params.Name,
		Magnitude:  params.Magnitude,
		PhaseAOnly: params.PhaseAOnly,
		Repeats:    params.Repeats,
		Off:        params.Off,
	}

	if err := fault.SetStartDelay(params.StartDelay); err != nil {
		return nil, err
	}
	if err := fault.SetDuration(params.Duration); err != nil {
		return nil, err
	}
	if err := fault.SetEnvelopeByName(params.Envelope); err != nil {
		return nil, err
	}
	return fault, nil
}

// Sets the delay before the fault starts in seconds if delay >= 0.
func (f *Fault) SetStartDelay(startDelay float64) error {
	if startDelay < 0 {
		return errors.New("startDelay must be greater than or equal to 0")
	}
	f.startDelay = startDelay
	return nil
}

// Sets the fault duration in seconds if duration >= 0. 0 makes the fault permanent.
func (f *Fault) SetDuration(duration float64) error {
	if duration < 0 {
		return errors.New("duration must be greater than or equal to 0")
	}
	f.duration = duration
	return nil
}

// Sets the envelope function by name. Empty defaults to "step".
func (f *Fault) SetEnvelopeByName(name string) error {
	if name == "" {
		name = "step"
	}
	envelope, err := mathfuncs.GetEnvelopeFunctionFromName(name)
	if err != nil {
		return err
	}
	f.envelopeName = name
	f.envelope = envelope
	return nil
}

// Returns the start delay in seconds.
func (f *Fault) GetStartDelay() float64 {
	return f.startDelay
}

// Returns the duration in seconds.
func (f *Fault) GetDuration() float64 {
	return f.duration
}

// Returns the envelope function name.
func (f *Fault) GetEnvelopeName() string {
	return f.envelopeName
}

// Returns whether the fault is modulating the waveform in this timestep.
func (f *Fault) GetIsActive() bool {
	return f.isActive
}

// Returns the number of times the fault has completed.
func (f *Fault) GetCountRepeats() uint64 {
	return f.countRepeats
}

// Returns true once every repetition of a finite fault has run.
func (f *Fault) IsFinished() bool {
	return f.Repeats > 0 && f.countRepeats >= f.Repeats
}

// stepFault returns the additional peak current this timestep and advances the
// fault timing. Ts is the sampling period in seconds.
func (f *Fault) stepFault(Ts float64) float64 {
	if f.Off {
		f.isActive = false
		return 0.0
	}
	if f.envelope == nil {
		_ = f.SetEnvelopeByName(f.envelopeName)
	}

	f.isActive = f.checkActive(Ts)
	if !f.isActive {
		f.startDelayIndex++ // count the delay before the next fault
		return 0.0
	}

	f.elapsedTime = float64(f.elapsedIndex) * Ts
	f.elapsedIndex++

	period := f.duration
	if period == 0 {
		period = 1.0 // permanent faults evaluate the envelope over a 1 s period
	}
	delta := f.envelope(f.elapsedTime, f.Magnitude, period)

	// a completed fault waits for the start delay again before repeating
	if f.duration > 0 && f.elapsedIndex >= int(f.duration/Ts) {
		f.elapsedIndex = 0
		f.startDelayIndex = 0
		f.countRepeats++
	}

	return delta
}

// Returns whether the fault should be active this timestep. This is true if:
//  1. Enough time has elapsed for the fault to start, and;
//  2. The fault has not yet completed all repetitions.
func (f *Fault) checkActive(Ts float64) bool {
	moreRepeatsAllowed := f.countRepeats < f.Repeats || f.Repeats == 0
	if !moreRepeatsAllowed {
		f.Off = true // switch off once all repetitions are complete
		return false
	}
	if f.elapsedIndex > 0 {
		return true // a fault that has begun runs to completion
	}
	return f.startDelayIndex >= int(f.startDelay/Ts)
}

// Initialise the internal fields of Fault when it is unmarshalled from yaml.
func (f *Fault) UnmarshalYAML(unmarshal func(any) error) error {
	var params FaultParams
	if err := unmarshal(&params); err != nil {
		return err
	}

	// This performs checking for invalid values
	fault, err := NewFault(params)
	if err != nil {
		return err
	}

	*f = *fault
	return nil
}
