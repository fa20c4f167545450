package measurement

import "math"

// Returns the root-mean-square of samples, sqrt(sum(x^2)/n).
// An empty slice has an RMS of 0.
func CalculateRMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sumOfSquares := 0.0
	for _, x := range samples {
		sumOfSquares += x * x
	}
	return meanSquareRoot(sumOfSquares, len(samples))
}

// Returns the RMS of raw integer samples. Squares are taken in float64 so wide
// ADC ranges cannot overflow.
func CalculateRMSInt32(samples []int32) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sumOfSquares := 0.0
	for _, v := range samples {
		x := float64(v)
		sumOfSquares += x * x
	}
	return meanSquareRoot(sumOfSquares, len(samples))
}

func meanSquareRoot(sumOfSquares float64, n int) float64 {
	return math.Sqrt(sumOfSquares / float64(n))
}

// RmsCalculator keeps a sliding window of samples and computes RMS on demand.
// It uses the same overwrite discipline as SampleBuffer, but the window is
// preallocated and zero-filled so Calculate always averages over WindowSize
// values.
//
// Not safe for concurrent use.
type RmsCalculator struct {
	samples    []float64
	windowSize int
	cursor     int // next slot to write
	filled     int // number of writes since Reset, capped at windowSize
}

// Returns a calculator averaging over windowSize samples (e.g. 80 for one
// cycle). A negative window is treated as 0.
func NewRmsCalculator(windowSize int) *RmsCalculator {
	windowSize = max(windowSize, 0)
	return &RmsCalculator{
		samples:    make([]float64, windowSize),
		windowSize: windowSize,
	}
}

// AddSample writes sample at the cursor and advances it modulo the window size.
func (c *RmsCalculator) AddSample(sample float64) {
	if c.windowSize == 0 {
		return
	}
	c.samples[c.cursor] = sample
	c.cursor = (c.cursor + 1) % c.windowSize
	if c.filled < c.windowSize {
		c.filled++
	}
}

// Returns the RMS over the current window.
func (c *RmsCalculator) Calculate() float64 {
	return CalculateRMS(c.samples)
}

// Returns true once a full window of samples has been written since the last Reset.
func (c *RmsCalculator) IsFull() bool {
	return c.windowSize > 0 && c.filled == c.windowSize
}

// IsFullLegacy reports fullness as "cursor back at zero and at least one stored
// sample is non-zero". It misreports an all-zero full window as not full and is
// kept only for comparison with older relay firmware.
func (c *RmsCalculator) IsFullLegacy() bool {
	if c.cursor != 0 {
		return false
	}
	for _, x := range c.samples {
		if x != 0.0 {
			return true
		}
	}
	return false
}

// Returns the number of samples in the window.
func (c *RmsCalculator) WindowSize() int {
	return c.windowSize
}

// Reset zeroes the window and rewinds the cursor.
func (c *RmsCalculator) Reset() {
	for i := range c.samples {
		c.samples[i] = 0.0
	}
	c.cursor = 0
	c.filled = 0
}
