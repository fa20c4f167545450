package emulator

import (
	"math"
	"math/rand/v2"
)

const TwoPiOverThree = 2 * math.Pi / 3

// ThreePhaseEmulation generates a balanced three-phase current waveform with
// optional unbalance, harmonics, noise and faults. Magnitudes are peak primary
// amperes.
type ThreePhaseEmulation struct {
	// inputs
	PosSeqMag       float64   `yaml:"pos_seq_mag"`
	PhaseOffset     float64   `yaml:"phase_offset"` // radians
	NegSeqMag       float64   `yaml:"neg_seq_mag"`  // pu, relative to PosSeqMag
	NegSeqAng       float64   `yaml:"neg_seq_ang"`
	ZeroSeqMag      float64   `yaml:"zero_seq_mag"`
	ZeroSeqAng      float64   `yaml:"zero_seq_ang"`
	HarmonicNumbers []float64 `yaml:"harmonic_numbers,flow"`
	HarmonicMags    []float64 `yaml:"harmonic_mags,flow"` // pu, relative to PosSeqMag
	HarmonicAngs    []float64 `yaml:"harmonic_angs,flow"`
	NoiseMax        float64   `yaml:"noise_max"` // standard deviation, pu of PosSeqMag

	// fault emulation
	Faults []*Fault `yaml:"faults"`
	Spikes *Spike   `yaml:"spikes,omitempty"` // transients on phase A

	// state change
	PosSeqMagNew      float64 `yaml:"-"`
	PosSeqMagRampRate float64 `yaml:"-"` // amperes per sample

	// internal state
	pAngle float64

	// outputs
	A, B, C float64 `yaml:"-"`
}

// Appends a fault to the waveform, dropping faults that have finished.
func (e *ThreePhaseEmulation) AddFault(fault *Fault) {
	e.RemoveFinishedFaults()
	e.Faults = append(e.Faults, fault)
}

// RemoveFinishedFaults drops faults that have completed all repetitions.
func (e *ThreePhaseEmulation) RemoveFinishedFaults() {
	kept := e.Faults[:0]
	for _, fault := range e.Faults {
		if !fault.IsFinished() {
			kept = append(kept, fault)
		}
	}
	clear(e.Faults[len(kept):])
	e.Faults = kept
}

// Returns true if any fault is modulating the waveform in this timestep.
func (e *ThreePhaseEmulation) FaultActive() bool {
	for _, fault := range e.Faults {
		if fault.GetIsActive() {
			return true
		}
	}
	return false
}

func (e *ThreePhaseEmulation) stepThreePhase(r *rand.Rand, f float64, Ts float64) {
	e.pAngle = wrapAngle(f*2*math.Pi*Ts + e.pAngle)
	PosSeqPhase := e.PhaseOffset + e.pAngle

	if math.Abs(e.PosSeqMagNew-e.PosSeqMag) >= math.Abs(e.PosSeqMagRampRate) {
		e.PosSeqMag = e.PosSeqMag + e.PosSeqMagRampRate
	}

	posSeqMag := e.PosSeqMag
	phaseAMag := 0.0
	for _, fault := range e.Faults {
		delta := fault.stepFault(Ts)
		if fault.PhaseAOnly {
			phaseAMag += delta
		} else {
			posSeqMag += delta
		}
	}

	// positive sequence
	a1 := math.Sin(PosSeqPhase) * (posSeqMag + phaseAMag)
	b1 := math.Sin(PosSeqPhase-TwoPiOverThree) * posSeqMag
	c1 := math.Sin(PosSeqPhase+TwoPiOverThree) * posSeqMag

	// negative sequence
	a2 := math.Sin(PosSeqPhase+e.NegSeqAng) * e.NegSeqMag * e.PosSeqMag
	b2 := math.Sin(PosSeqPhase+TwoPiOverThree+e.NegSeqAng) * e.NegSeqMag * e.PosSeqMag
	c2 := math.Sin(PosSeqPhase-TwoPiOverThree+e.NegSeqAng) * e.NegSeqMag * e.PosSeqMag

	// zero sequence
	abc0 := math.Sin(PosSeqPhase+e.ZeroSeqAng) * e.ZeroSeqMag

	// harmonics
	ah := 0.0
	bh := 0.0
	ch := 0.0
	// ensure consistent array sizes have been specified
	if len(e.HarmonicNumbers) == len(e.HarmonicMags) && len(e.HarmonicNumbers) == len(e.HarmonicAngs) {
		for i, n := range e.HarmonicNumbers {
			mag := e.HarmonicMags[i] * e.PosSeqMag
			ang := e.HarmonicAngs[i]

			ah = ah + math.Sin(n*(PosSeqPhase)+ang)*mag
			bh = bh + math.Sin(n*(PosSeqPhase-TwoPiOverThree)+ang)*mag
			ch = ch + math.Sin(n*(PosSeqPhase+TwoPiOverThree)+ang)*mag
		}
	}

	// add noise, ensure worst case where noise is uncorrelated across phases
	ra := r.NormFloat64() * e.NoiseMax * e.PosSeqMag
	rb := r.NormFloat64() * e.NoiseMax * e.PosSeqMag
	rc := r.NormFloat64() * e.NoiseMax * e.PosSeqMag

	spike := 0.0
	if e.Spikes != nil {
		spike = e.Spikes.stepSpike(r)
	}

	// combine the output for each phase
	e.A = a1 + a2 + abc0 + ah + ra + spike
	e.B = b1 + b2 + abc0 + bh + rb
	e.C = c1 + c2 + abc0 + ch + rc
}

func wrapAngle(a float64) float64 {
	if a > math.Pi {
		return a - 2*math.Pi
	}
	return a
}
