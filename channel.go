// Package relay joins the measurement chain to the protection functions: raw
// sampled values in, one trip decision per nominal cycle out.
package relay

import (
	"errors"
	"fmt"
	"sync"

	"github.com/synaptecltd/relay/measurement"
	"github.com/synaptecltd/relay/protection"
	"github.com/synaptecltd/relay/sv"
)

// ErrFunctionNotFound is returned when a named protection function does not exist.
var ErrFunctionNotFound = errors.New("protection function not found")

// ChannelConfig describes a single current measurement channel.
type ChannelConfig struct {
	SamplesPerCycle int
	Adc             measurement.AdcConfig
	Ct              measurement.CtConfig
}

// Evaluation is the outcome of one full cycle of samples.
type Evaluation struct {
	TimestampUs  uint64                       // timestamp of the sample completing the cycle
	SampleNumber uint16                       // smpCnt of the sample completing the cycle
	RMS          float64                      // primary amperes
	Results      map[string]protection.Result // keyed like the container
	Trip         bool                         // true if any function returned Trip
}

// FunctionStatus is a snapshot of one protection function.
type FunctionStatus struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	State   string `json:"state"`
	Enabled bool   `json:"enabled"`
}

// Status is a snapshot of the channel.
type Status struct {
	Evaluations uint64           `json:"evaluations"`
	LastRMS     float64          `json:"last_rms"`
	LastUs      uint64           `json:"last_timestamp_us"`
	Tripped     bool             `json:"tripped"`
	Functions   []FunctionStatus `json:"functions"`
}

// Channel buffers one cycle of raw samples, scales them to primary current,
// computes the RMS and evaluates every protection function. It is safe for
// concurrent use.
type Channel struct {
	mu        sync.Mutex
	buffer    *measurement.SampleBuffer
	scaler    measurement.CurrentScaler
	functions protection.Container
	primary   []float64 // scratch space for scaled samples

	// last evaluation
	evaluations uint64
	lastRMS     float64
	lastUs      uint64
}

// Returns a Channel evaluating functions once every cfg.SamplesPerCycle samples.
func NewChannel(cfg ChannelConfig, functions protection.Container) (*Channel, error) {
	if cfg.SamplesPerCycle <= 0 {
		return nil, fmt.Errorf("samples per cycle must be greater than 0, got %d", cfg.SamplesPerCycle)
	}
	if functions == nil {
		functions = make(protection.Container)
	}
	return &Channel{
		buffer:    measurement.NewSampleBuffer(cfg.SamplesPerCycle),
		scaler:    measurement.NewCurrentScaler(cfg.Adc, cfg.Ct),
		functions: functions,
		primary:   make([]float64, 0, cfg.SamplesPerCycle),
	}, nil
}

// HandleSample adds one raw sample. When the sample completes a cycle the
// cycle is evaluated at the sample's timestamp, the buffer is cleared and the
// Evaluation is returned with true.
func (c *Channel) HandleSample(sample sv.Sample) (Evaluation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buffer.AddSample(sample.CurrentADC)
	if !c.buffer.IsFull() {
		return Evaluation{}, false
	}

	c.primary = c.scaler.ScaleSamplesToPrimaryInto(c.primary, c.buffer.Samples())
	rms := measurement.CalculateRMS(c.primary)
	results := c.functions.ProcessAll(rms, sample.TimestampUs)
	c.buffer.Clear()

	c.evaluations++
	c.lastRMS = rms
	c.lastUs = sample.TimestampUs

	return Evaluation{
		TimestampUs:  sample.TimestampUs,
		SampleNumber: sample.SampleNumber,
		RMS:          rms,
		Results:      results,
		Trip:         protection.Tripped(results),
	}, true
}

// Reset returns every function to Idle and discards the partial cycle.
func (c *Channel) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.functions.ResetAll()
	c.buffer.Clear()
}

// SetEnabled switches the named function in or out of service.
func (c *Channel) SetEnabled(name string, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f := c.functions.FindByName(name)
	if f == nil {
		return fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}
	f.SetEnabled(enabled)
	return nil
}

// Returns true if any function is latched in Trip.
func (c *Channel) Tripped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tripped()
}

func (c *Channel) tripped() bool {
	for _, key := range c.functions.Keys() {
		if c.functions[key].State().IsTripped() {
			return true
		}
	}
	return false
}

// Returns a snapshot of the channel and its functions.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := Status{
		Evaluations: c.evaluations,
		LastRMS:     c.lastRMS,
		LastUs:      c.lastUs,
		Tripped:     c.tripped(),
		Functions:   make([]FunctionStatus, 0, len(c.functions)),
	}
	for _, key := range c.functions.Keys() {
		f := c.functions[key]
		status.Functions = append(status.Functions, FunctionStatus{
			ID:      key,
			Name:    f.Name(),
			Type:    f.TypeAsString(),
			State:   f.State().String(),
			Enabled: f.IsEnabled(),
		})
	}
	return status
}
