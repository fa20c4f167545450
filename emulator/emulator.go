// Package emulator generates sampled three-phase current waveforms with
// emulated faults, standing in for a merging unit.
package emulator

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/synaptecltd/relay/measurement"
)

// Emulated event types
const (
	Overcurrent = iota
	SinglePhaseFault
	ThreePhaseFault
	LoadRamp
	OverFrequency
	UnderFrequency
)

// A map between event names and event types
var eventTypes = map[string]int{
	"overcurrent":        Overcurrent,
	"single_phase_fault": SinglePhaseFault,
	"three_phase_fault":  ThreePhaseFault,
	"load_ramp":          LoadRamp,
	"over_frequency":     OverFrequency,
	"under_frequency":    UnderFrequency,
}

// Returns the event type with the given name.
func GetEventTypeFromName(name string) (int, error) {
	eventType, ok := eventTypes[name]
	if !ok {
		return 0, errors.New("event type not found")
	}
	return eventType, nil
}

// EmulatedFaultDuration is the duration of a canned fault event in seconds
const EmulatedFaultDuration = 0.5

// MaxEmulatedFrequencyDurationSamples is the number of samples for emulating frequency deviations
const MaxEmulatedFrequencyDurationSamples = 8000

// EmulatedLoadRampSamples is the number of samples over which a load ramp doubles the load
const EmulatedLoadRampSamples = 4000

// Emulator encapsulates the waveform emulation of three-phase current
type Emulator struct {
	// common inputs
	SamplingRate int
	Ts           float64
	Fnom         float64
	Fdeviation   float64

	I *ThreePhaseEmulation

	// common state
	SmpCnt                     int
	fDeviationRemainingSamples int

	r *rand.Rand
}

// Returns an Emulator seeded from the current time.
func NewEmulator(samplingRate int, frequency float64) *Emulator {
	return NewSeededEmulator(samplingRate, frequency, uint64(time.Now().UnixNano()))
}

// Returns an Emulator with a reproducible noise sequence.
func NewSeededEmulator(samplingRate int, frequency float64, seed uint64) *Emulator {
	return &Emulator{
		SamplingRate: samplingRate,
		Fnom:         frequency,
		Fdeviation:   0.0,
		Ts:           1 / float64(samplingRate),
		r:            rand.New(rand.NewPCG(seed, seed)),
	}
}

// StartEvent initiates an emulated event. Unknown event types are ignored.
func (e *Emulator) StartEvent(eventType int) {
	switch eventType {
	case Overcurrent:
		e.addFault("overcurrent", 3.0, false)
	case SinglePhaseFault:
		e.addFault("single_phase_fault", 10.0, true)
	case ThreePhaseFault:
		e.addFault("three_phase_fault", 10.0, false)
	case LoadRamp:
		if e.I == nil {
			return
		}
		e.I.PosSeqMagNew = e.I.PosSeqMag * 2.0
		e.I.PosSeqMagRampRate = e.I.PosSeqMag / EmulatedLoadRampSamples
	case OverFrequency:
		e.Fdeviation = 0.1
		e.fDeviationRemainingSamples = MaxEmulatedFrequencyDurationSamples
	case UnderFrequency:
		e.Fdeviation = -0.1
		e.fDeviationRemainingSamples = MaxEmulatedFrequencyDurationSamples
	default:
	}
}

// addFault applies a single bolted fault of factor times the present load.
func (e *Emulator) addFault(name string, factor float64, phaseAOnly bool) {
	if e.I == nil {
		return
	}
	// fixed parameters, so NewFault cannot fail
	fault, _ := NewFault(FaultParams{
		Name:       name,
		Magnitude:  e.I.PosSeqMag * factor,
		PhaseAOnly: phaseAOnly,
		Repeats:    1,
		Duration:   EmulatedFaultDuration,
	})
	e.I.AddFault(fault)
}

// Step performs one iteration of the waveform generation
func (e *Emulator) Step() {
	f := e.Fnom + e.Fdeviation

	if e.fDeviationRemainingSamples > 0 {
		e.fDeviationRemainingSamples--
		if e.fDeviationRemainingSamples == 0 {
			e.Fdeviation = 0.0
		}
	}

	if e.I != nil {
		e.I.stepThreePhase(e.r, f, e.Ts)
	}

	e.SmpCnt++
	if e.SmpCnt >= e.SamplingRate {
		e.SmpCnt = 0
	}
}

// Returns the phase A current of the last step as a raw ADC count, inverting
// the relay's scaling chain.
func (e *Emulator) PhaseAADC(scaler measurement.CurrentScaler) int32 {
	if e.I == nil {
		return scaler.PrimaryToAdc(0)
	}
	return scaler.PrimaryToAdc(e.I.A)
}

// AdcSource steps an Emulator once per sample and returns phase A as an ADC
// count. It feeds an sv.EmulatedSubscriber and is safe to trigger events on
// from another goroutine.
type AdcSource struct {
	mu       sync.Mutex
	emulator *Emulator
	scaler   measurement.CurrentScaler
}

// Returns an AdcSource reading from emu.
func NewAdcSource(emu *Emulator, scaler measurement.CurrentScaler) *AdcSource {
	return &AdcSource{emulator: emu, scaler: scaler}
}

// Returns the next raw ADC sample.
func (s *AdcSource) NextSample() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emulator.Step()
	return s.emulator.PhaseAADC(s.scaler)
}

// StartEvent initiates an emulated event on the underlying emulator.
func (s *AdcSource) StartEvent(eventType int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emulator.StartEvent(eventType)
}

// Returns true if any fault is currently applied to the waveform.
func (s *AdcSource) FaultActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emulator.I != nil && s.emulator.I.FaultActive()
}
