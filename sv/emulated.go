package sv

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Source produces one raw ADC sample per call, e.g. an emulated waveform.
type Source interface {
	NextSample() int32
}

// EmulatedSubscriber stands in for a network SV subscriber by pulling samples
// from a Source at a fixed sampling rate.
type EmulatedSubscriber struct {
	source       Source
	samplingRate int
	startUs      uint64 // timestamp of the first sample
	pace         bool   // deliver in real time instead of as fast as possible
	maxSamples   uint64 // stop after this many samples, 0 for unlimited
	logger       zerolog.Logger
}

// Parameters used to request an EmulatedSubscriber.
type EmulatedParams struct {
	SamplingRate int    // samples per second, must be > 0
	StartUs      uint64 // timestamp of the first sample in microseconds
	Pace         bool   // deliver samples at wall-clock rate
	MaxSamples   uint64 // 0 for unlimited
}

// Returns an EmulatedSubscriber reading from source, checking for invalid values.
func NewEmulatedSubscriber(source Source, params EmulatedParams, logger zerolog.Logger) (*EmulatedSubscriber, error) {
	if source == nil {
		return nil, errors.New("source must not be nil")
	}
	if params.SamplingRate <= 0 {
		return nil, errors.New("sampling rate must be greater than 0")
	}
	return &EmulatedSubscriber{
		source:       source,
		samplingRate: params.SamplingRate,
		startUs:      params.StartUs,
		pace:         params.Pace,
		maxSamples:   params.MaxSamples,
		logger:       logger,
	}, nil
}

// Run delivers samples until ctx is done or MaxSamples have been produced.
// Timestamps advance by exactly one sample period from StartUs.
func (s *EmulatedSubscriber) Run(ctx context.Context, handle func(Sample)) error {
	periodNs := int64(time.Second) / int64(s.samplingRate)

	var tick <-chan time.Time
	if s.pace {
		ticker := time.NewTicker(time.Duration(periodNs))
		defer ticker.Stop()
		tick = ticker.C
	}

	s.logger.Info().
		Int("sampling_rate", s.samplingRate).
		Bool("pace", s.pace).
		Uint64("max_samples", s.maxSamples).
		Msg("emulated sv stream started")

	var n uint64
	for s.maxSamples == 0 || n < s.maxSamples {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if n%uint64(s.samplingRate) == 0 {
			// unpaced streams still honour cancellation once per second of samples
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		handle(Sample{
			CurrentADC:   s.source.NextSample(),
			SampleNumber: uint16(n % uint64(s.samplingRate)),
			TimestampUs:  s.startUs + uint64(int64(n)*periodNs/1000),
		})
		n++
	}

	s.logger.Info().Uint64("samples", n).Msg("emulated sv stream finished")
	return nil
}
