package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/synaptecltd/relay"
	"github.com/synaptecltd/relay/config"
	"github.com/synaptecltd/relay/emulator"
	"github.com/synaptecltd/relay/goose"
	"github.com/synaptecltd/relay/measurement"
	"github.com/synaptecltd/relay/metrics"
	"github.com/synaptecltd/relay/server"
	"github.com/synaptecltd/relay/sv"
	"github.com/synaptecltd/relay/tripio"
)

type appOptions struct {
	Transport  goose.Transport
	Output     tripio.Output // nil leaves the trip contact unused
	MaxSamples uint64
	Logger     zerolog.Logger
}

// app wires the emulated SV stream through the relay channel to the GOOSE
// publisher, the trip contact and the status server.
type app struct {
	cfg    config.SystemConfig
	logger zerolog.Logger

	channel    *relay.Channel
	names      map[string]string // container key -> function name
	source     *emulator.AdcSource
	subscriber sv.Subscriber
	publisher  *goose.Publisher
	transport  goose.Transport
	output     tripio.Output
	server     *server.Server

	mu        sync.Mutex
	latch     *tripio.Latch
	published bool // whether the trip state has been published at least once
	lastTrip  bool
	lastUs    uint64
}

func newApp(cfg config.SystemConfig, options appOptions) (*app, error) {
	functions := cfg.BuildFunctions()
	channel, err := relay.NewChannel(relay.ChannelConfig{
		SamplesPerCycle: cfg.Sv.SamplesPerCycle,
		Adc:             cfg.Adc,
		Ct:              cfg.Ct,
	}, functions)
	if err != nil {
		return nil, err
	}

	faults, err := cfg.Emulator.BuildFaults()
	if err != nil {
		return nil, err
	}
	spikes, err := cfg.Emulator.BuildSpikes()
	if err != nil {
		return nil, err
	}

	seed := cfg.Emulator.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	emu := emulator.NewSeededEmulator(cfg.Sv.SamplingRate, cfg.Sv.NominalFrequency(), seed)
	emu.I = &emulator.ThreePhaseEmulation{
		PosSeqMag: cfg.Emulator.LoadAmps * math.Sqrt2,
		NoiseMax:  cfg.Emulator.NoiseMax,
		Faults:    faults,
		Spikes:    spikes,
	}
	source := emulator.NewAdcSource(emu, measurement.NewCurrentScaler(cfg.Adc, cfg.Ct))

	subscriber, err := sv.NewEmulatedSubscriber(source, sv.EmulatedParams{
		SamplingRate: cfg.Sv.SamplingRate,
		Pace:         cfg.Emulator.Pace,
		MaxSamples:   options.MaxSamples,
	}, options.Logger.With().Str("component", "sv").Logger())
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(functions))
	for key, f := range functions {
		names[key] = f.Name()
	}

	a := &app{
		cfg:        cfg,
		logger:     options.Logger,
		channel:    channel,
		names:      names,
		source:     source,
		subscriber: subscriber,
		publisher:  goose.NewPublisher(cfg.Goose, options.Transport, options.Logger.With().Str("component", "goose").Logger()),
		transport:  options.Transport,
		output:     options.Output,
	}
	if options.Output != nil {
		a.latch = tripio.NewLatch(options.Output)
	}
	if cfg.Server.Enabled {
		a.server = server.NewServer(server.Options{
			Relay:  a,
			Goose:  a.publisher,
			Events: source,
			Logger: options.Logger.With().Str("component", "http").Logger(),
		})
	}
	return a, nil
}

// Run streams samples until ctx is done or the stream ends, with the GOOSE
// retransmission loop and the status server alongside.
func (a *app) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 3)
	start := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("%s: %w", name, err)
				cancel()
			}
		}()
	}

	start("goose", a.publisher.Run)
	if a.server != nil {
		start("server", func(ctx context.Context) error {
			return a.server.Run(ctx, a.cfg.Server.Addr)
		})
	}

	functions := a.channel.Status().Functions
	a.logger.Info().
		Int("functions", len(functions)).
		Float64("ct_ratio", a.cfg.Ct.Ratio()).
		Int("samples_per_cycle", a.cfg.Sv.SamplesPerCycle).
		Msg("relay started")

	err := a.subscriber.Run(ctx, a.handleSample)
	cancel()
	wg.Wait()
	close(errCh)

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("sv: %w", err)
	}
	var errs []error
	for e := range errCh {
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}

// handleSample runs one sample through the channel and acts on a completed
// cycle.
func (a *app) handleSample(sample sv.Sample) {
	a.mu.Lock()
	defer a.mu.Unlock()

	evaluation, ok := a.channel.HandleSample(sample)
	if !ok {
		return
	}
	metrics.RecordEvaluation(evaluation, a.names)

	a.lastUs = evaluation.TimestampUs
	rising := evaluation.Trip && !a.lastTrip
	a.applyTrip(evaluation.Trip, evaluation.TimestampUs)
	if rising {
		for key, result := range evaluation.Results {
			if result.IsTrip() {
				a.logger.Debug().
					Str("function", a.names[key]).
					Float64("rms", evaluation.RMS).
					Uint64("timestamp_us", evaluation.TimestampUs).
					Msg("function tripped")
			}
		}
	}
}

// applyTrip publishes and drives the contact when the trip decision changes.
// Must be called with a.mu held.
func (a *app) applyTrip(trip bool, timestampUs uint64) {
	if a.published && trip == a.lastTrip {
		return
	}
	if trip {
		a.logger.Warn().Uint64("timestamp_us", timestampUs).Msg("relay tripped")
	} else if a.published {
		a.logger.Info().Uint64("timestamp_us", timestampUs).Msg("relay trip cleared")
	}

	err := a.publisher.PublishTrip(trip, timestampUs)
	metrics.RecordGooseMessage(a.publisher.StNum(), err)
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to publish trip")
	}
	a.published = true
	a.lastTrip = trip

	if a.latch != nil {
		if _, err := a.latch.Update(trip); err != nil {
			a.logger.Error().Err(err).Msg("failed to drive trip output")
		}
	}
}

// Reset returns every function to Idle and publishes the cleared state
// straight away. a.mu orders it against handleSample, so an evaluation made
// before the reset cannot be applied after it.
func (a *app) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.channel.Reset()
	a.applyTrip(false, a.lastUs)
}

// Returns the channel status.
func (a *app) Status() relay.Status {
	return a.channel.Status()
}

// SetEnabled switches the named function in or out of service.
func (a *app) SetEnabled(name string, enabled bool) error {
	return a.channel.SetEnabled(name, enabled)
}

// Close releases the transport and the trip contact.
func (a *app) Close() error {
	var errs []error
	if err := a.transport.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.output != nil {
		if err := a.output.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
