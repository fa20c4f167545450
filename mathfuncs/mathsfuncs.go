// Package mathfuncs provides named envelope functions used to shape emulated
// fault currents.
package mathfuncs

import (
	"errors"
	"math"
	"sort"

	"github.com/teknico/sigourney/fast"
)

// A mathematical function y=f(t,A,T). Takes amplitude, A, and duration, T,
// as inputs and returns the value of the envelope at elapsed time, t.
type EnvelopeFunction func(t, A, T float64) float64

// A map between string name and envelope function pairs
var envelopeFunctions = map[string]EnvelopeFunction{
	"step":              stepFunction,
	"linear":            linearRamp,
	"exponential_rise":  exponentialRise,
	"exponential_decay": exponentialDecay,
	"sine":              sineModulation,
	"square":            squareWave,
	"impulse":           impulseTrain,
}

// Returns the names of all envelope functions in sorted order.
func GetEnvelopeFunctionNames() []string {
	names := make([]string, 0, len(envelopeFunctions))
	for name := range envelopeFunctions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Returns the named envelope function. Defaults to step if name is empty.
func GetEnvelopeFunctionFromName(name string) (EnvelopeFunction, error) {
	if name == "" {
		name = "step"
	}
	envelope, ok := envelopeFunctions[name]
	if !ok {
		return nil, errors.New("envelope function not found")
	}
	return envelope, nil
}

// Returns A for the whole duration: a bolted fault.
func stepFunction(_, A, _ float64) float64 {
	return A
}

// Returns a linear ramp y=(A/T)*t reaching A at the end of the duration T,
// e.g. a slowly growing overload.
func linearRamp(t, A, T float64) float64 {
	if T <= 0 {
		return A
	}
	return A / T * t
}

// Returns y=A*(1-exp(-5t/T)), reaching 99% of A by the end of T.
func exponentialRise(t, A, T float64) float64 {
	if T <= 0 {
		return A
	}
	return A * (1 - math.Exp(-5*t/T))
}

// Returns y=A*exp(-5t/T), e.g. a motor inrush decaying over T.
func exponentialDecay(t, A, T float64) float64 {
	if T <= 0 {
		return 0
	}
	return A * math.Exp(-5*t/T)
}

// Returns y=A*|sin(pi*t/T)|, one half-sine swell over T, e.g. a power swing.
func sineModulation(t, A, T float64) float64 {
	if T <= 0 {
		return 0
	}
	return A * math.Abs(fast.Sin(math.Pi*t/T))
}

// Returns A for the first half of each period T and 0 for the second half,
// e.g. an intermittent arcing fault.
func squareWave(t, A, T float64) float64 {
	if T <= 0 || math.Mod(t, T) < T/2 {
		return A
	}
	return 0
}

// Returns A at the start of each period T and 0 otherwise.
// Each spike has a width of 1 millisecond.
func impulseTrain(t, A, T float64) float64 {
	spikeWidth := 1e-3
	if T <= 0 || math.Mod(t, T) < spikeWidth {
		return A
	}
	return 0
}
