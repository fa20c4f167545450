package measurement_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/synaptecltd/relay/measurement"
)

// Returns one cycle of a sine wave with amplitude A sampled at n points.
func sineCycle(n int, A float64) []float64 {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = A * math.Sin(2*math.Pi*float64(i)/float64(n))
	}
	return samples
}

func TestCalculateRMS(t *testing.T) {
	testCases := []struct {
		name     string
		samples  []float64
		expected float64
		delta    float64
	}{
		{name: "empty", samples: nil, expected: 0.0},
		{name: "dc", samples: []float64{10, 10, 10, 10}, expected: 10.0},
		{name: "negative_dc", samples: []float64{-3, -3, -3}, expected: 3.0},
		{name: "sine_80", samples: sineCycle(80, 1.0), expected: 1 / math.Sqrt2, delta: 0.01 / math.Sqrt2},
		{name: "sine_4", samples: sineCycle(4, 2.0), expected: 2 / math.Sqrt2, delta: 1e-9},
		{name: "square", samples: []float64{5, -5, 5, -5}, expected: 5.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			delta := tc.delta
			if delta == 0 {
				delta = 1e-12
			}
			assert.InDelta(t, tc.expected, measurement.CalculateRMS(tc.samples), delta)
		})
	}
}

func TestCalculateRMSEmptyIsExactlyZero(t *testing.T) {
	assert.Equal(t, 0.0, measurement.CalculateRMS([]float64{}))
	assert.Equal(t, 0.0, measurement.CalculateRMSInt32([]int32{}))
}

func TestCalculateRMSNonNegative(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 0))
	for i := 0; i < 100; i++ {
		samples := make([]float64, 1+rng.IntN(200))
		for j := range samples {
			samples[j] = (rng.Float64()*2 - 1) * 1e4
		}
		assert.GreaterOrEqual(t, measurement.CalculateRMS(samples), 0.0)
	}
}

func TestCalculateRMSConstant(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 0))
	c := (rng.Float64()*2 - 1) * 1000
	samples := make([]float64, 1+rng.IntN(100))
	for i := range samples {
		samples[i] = c
	}
	assert.InDelta(t, math.Abs(c), measurement.CalculateRMS(samples), 1e-9)
}

func TestCalculateRMSInt32WideRange(t *testing.T) {
	samples := []int32{math.MaxInt32, math.MinInt32 + 1, math.MaxInt32, math.MinInt32 + 1}
	assert.InDelta(t, float64(math.MaxInt32), measurement.CalculateRMSInt32(samples), 1e-3)
}

func TestRmsCalculator(t *testing.T) {
	calc := measurement.NewRmsCalculator(80)
	assert.Equal(t, 80, calc.WindowSize())
	assert.False(t, calc.IsFull())

	for i := 0; i < 80; i++ {
		calc.AddSample(10.0)
	}

	assert.True(t, calc.IsFull())
	assert.InDelta(t, 10.0, calc.Calculate(), 0.001)
}

func TestRmsCalculatorSine(t *testing.T) {
	calc := measurement.NewRmsCalculator(80)
	for _, x := range sineCycle(80, 1.0) {
		calc.AddSample(x)
	}
	assert.InDelta(t, 1/math.Sqrt2, calc.Calculate(), 0.01)
}

// A partially filled window averages over the whole window, zeros included.
func TestRmsCalculatorPartialWindow(t *testing.T) {
	calc := measurement.NewRmsCalculator(4)
	calc.AddSample(2.0)

	assert.False(t, calc.IsFull())
	assert.InDelta(t, 1.0, calc.Calculate(), 1e-12) // sqrt(4/4)
}

func TestRmsCalculatorSlidingWindow(t *testing.T) {
	calc := measurement.NewRmsCalculator(4)
	for i := 0; i < 4; i++ {
		calc.AddSample(1.0)
	}
	for i := 0; i < 4; i++ {
		calc.AddSample(3.0)
	}
	assert.InDelta(t, 3.0, calc.Calculate(), 1e-12)
}

func TestRmsCalculatorAllZeroWindow(t *testing.T) {
	calc := measurement.NewRmsCalculator(4)
	for i := 0; i < 4; i++ {
		calc.AddSample(0.0)
	}

	assert.True(t, calc.IsFull())
	assert.False(t, calc.IsFullLegacy(), "legacy check cannot see an all-zero window")
}

func TestRmsCalculatorLegacyFull(t *testing.T) {
	calc := measurement.NewRmsCalculator(4)
	for i := 0; i < 3; i++ {
		calc.AddSample(1.0)
	}
	assert.False(t, calc.IsFullLegacy())

	calc.AddSample(1.0)
	assert.True(t, calc.IsFullLegacy())
}

func TestRmsCalculatorReset(t *testing.T) {
	calc := measurement.NewRmsCalculator(4)
	for i := 0; i < 4; i++ {
		calc.AddSample(5.0)
	}

	calc.Reset()
	assert.False(t, calc.IsFull())
	assert.Equal(t, 0.0, calc.Calculate())
}

func TestRmsCalculatorNegativeWindow(t *testing.T) {
	calc := measurement.NewRmsCalculator(-1)
	calc.AddSample(5.0)

	assert.Equal(t, 0, calc.WindowSize())
	assert.Equal(t, 0.0, calc.Calculate())
}
