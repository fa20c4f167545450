// Package sv is the Sampled Values input boundary of the relay: the per-sample
// record handed to the measurement chain and the subscribers that produce it.
package sv

import "context"

// Sample is one decoded current sample.
type Sample struct {
	CurrentADC   int32  // raw ADC count
	SampleNumber uint16 // smpCnt, wraps at the sampling rate
	TimestampUs  uint64 // microseconds
}

// SvConfig configures the Sampled Values stream.
type SvConfig struct {
	SamplesPerCycle int    `yaml:"samples_per_cycle" toml:"samples_per_cycle" json:"samples_per_cycle"` // 80 for 50 Hz at 4000 samples/s
	SamplingRate    int    `yaml:"sampling_rate" toml:"sampling_rate" json:"sampling_rate"`             // samples per second
	Interface       string `yaml:"interface" toml:"interface" json:"interface"`                         // network interface, e.g. eth0
	MulticastMAC    string `yaml:"multicast_mac" toml:"multicast_mac" json:"multicast_mac"`             // destination MAC of the SV stream
}

// Returns the default 80 samples/cycle, 4000 samples/s stream on eth0.
func DefaultSvConfig() SvConfig {
	return SvConfig{
		SamplesPerCycle: 80,
		SamplingRate:    4000,
		Interface:       "eth0",
		MulticastMAC:    "01:0C:CD:04:00:00",
	}
}

// Returns the nominal system frequency implied by the configuration.
func (c SvConfig) NominalFrequency() float64 {
	if c.SamplesPerCycle == 0 {
		return 0
	}
	return float64(c.SamplingRate) / float64(c.SamplesPerCycle)
}

// Subscriber delivers samples to handle until ctx is cancelled or the stream
// ends. handle is called from a single goroutine.
type Subscriber interface {
	Run(ctx context.Context, handle func(Sample)) error
}
