package goose

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Publisher tracks the GOOSE counters for the trip dataset and hands messages
// to a Transport. It is safe for concurrent use.
//
// sqNum increments on every message, stNum when the trip value changes. After
// a change the retransmission interval drops to MinInterval and doubles on
// each retransmission up to MaxInterval.
type Publisher struct {
	mu        sync.Mutex
	config    GooseConfig
	transport Transport
	logger    zerolog.Logger

	sqNum     uint32
	stNum     uint32
	lastTrip  bool
	last      *TripMessage // last message sent, nil until the first publish
	interval  time.Duration
	published uint64

	changed chan struct{} // signals Run that the schedule restarted
}

// Returns a Publisher sending to transport.
func NewPublisher(config GooseConfig, transport Transport, logger zerolog.Logger) *Publisher {
	return &Publisher{
		config:    config,
		transport: transport,
		logger:    logger,
		interval:  config.MaxInterval(),
		changed:   make(chan struct{}, 1),
	}
}

// PublishTrip sends the current trip value measured at timestampUs. The
// transport is called without holding the lock, so a slow retransmission
// cannot hold up a state change.
func (p *Publisher) PublishTrip(trip bool, timestampUs uint64) error {
	p.mu.Lock()
	p.sqNum++
	if trip != p.lastTrip {
		p.stNum++
		p.lastTrip = trip
		p.interval = p.config.MinInterval()

		p.logger.Info().
			Bool("trip", trip).
			Uint32("st_num", p.stNum).
			Uint32("sq_num", p.sqNum).
			Msg("goose trip state changed")

		select {
		case p.changed <- struct{}{}:
		default:
		}
	}

	msg := p.message(timestampUs)
	p.last = &msg
	p.published++
	p.mu.Unlock()

	return p.send(msg)
}

// Retransmit resends the last message with the next sqNum and backs the
// interval off. It does nothing before the first publish.
func (p *Publisher) Retransmit() error {
	p.mu.Lock()
	if p.last == nil {
		p.mu.Unlock()
		return nil
	}

	p.sqNum++
	msg := p.message(p.last.TimestampUs)
	p.last = &msg

	p.interval *= 2
	if maxInterval := p.config.MaxInterval(); p.interval > maxInterval {
		p.interval = maxInterval
	}
	p.published++
	p.mu.Unlock()

	return p.send(msg)
}

// Run retransmits the last message on the backing-off schedule until ctx is
// done. Transport errors are logged, not returned.
func (p *Publisher) Run(ctx context.Context) error {
	if p.config.MinIntervalMs == 0 || p.config.MaxIntervalMs < p.config.MinIntervalMs {
		return errors.New("goose intervals must satisfy 0 < min_interval_ms <= max_interval_ms")
	}

	timer := time.NewTimer(p.Interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.changed:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		case <-timer.C:
			if err := p.Retransmit(); err != nil {
				p.logger.Warn().Err(err).Msg("goose retransmission failed")
			}
		}
		timer.Reset(p.Interval())
	}
}

func (p *Publisher) message(timestampUs uint64) TripMessage {
	return TripMessage{
		GoID:                p.config.GoID,
		GoCbRef:             p.config.GoCbRef,
		DatSet:              p.config.DatSet,
		AppID:               p.config.AppID,
		Trip:                p.lastTrip,
		SqNum:               p.sqNum,
		StNum:               p.stNum,
		TimestampUs:         timestampUs,
		TimeAllowedToLiveMs: uint64(2 * p.interval / time.Millisecond),
	}
}

// send must be called without p.mu held.
func (p *Publisher) send(msg TripMessage) error {
	p.logger.Debug().
		Bool("trip", msg.Trip).
		Uint32("sq_num", msg.SqNum).
		Uint32("st_num", msg.StNum).
		Msg("publishing goose message")
	return p.transport.Send(msg)
}

// Returns the sequence number of the last message.
func (p *Publisher) SqNum() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sqNum
}

// Returns the state number of the last message.
func (p *Publisher) StNum() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stNum
}

// Returns the last published trip value.
func (p *Publisher) LastTripState() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastTrip
}

// Returns the interval until the next retransmission.
func (p *Publisher) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// Returns the number of messages handed to the transport.
func (p *Publisher) Published() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published
}

// Returns the configuration.
func (p *Publisher) Config() GooseConfig {
	return p.config
}

// Reset zeroes the counters and forgets the last message.
func (p *Publisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sqNum = 0
	p.stNum = 0
	p.lastTrip = false
	p.last = nil
	p.interval = p.config.MaxInterval()
}
