package goose_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptecltd/relay/goose"
)

func newPublisher() (*goose.Publisher, *goose.FakeTransport) {
	transport := goose.NewFakeTransport()
	return goose.NewPublisher(goose.DefaultGooseConfig(), transport, zerolog.Nop()), transport
}

func TestPublisherCreation(t *testing.T) {
	publisher, _ := newPublisher()

	assert.Equal(t, uint32(0), publisher.SqNum())
	assert.Equal(t, uint32(0), publisher.StNum())
	assert.False(t, publisher.LastTripState())
	assert.Equal(t, time.Second, publisher.Interval())
}

func TestPublisherStateChange(t *testing.T) {
	publisher, transport := newPublisher()

	testCases := []struct {
		trip  bool
		ts    uint64
		sqNum uint32
		stNum uint32
	}{
		{trip: true, ts: 1000, sqNum: 1, stNum: 1},  // first trip message
		{trip: true, ts: 2000, sqNum: 2, stNum: 1},  // same state
		{trip: false, ts: 3000, sqNum: 3, stNum: 2}, // state change
	}

	for _, tc := range testCases {
		require.NoError(t, publisher.PublishTrip(tc.trip, tc.ts))
		assert.Equal(t, tc.sqNum, publisher.SqNum())
		assert.Equal(t, tc.stNum, publisher.StNum())
		assert.Equal(t, tc.trip, publisher.LastTripState())
	}

	sent := transport.Sent()
	require.Len(t, sent, 3)
	assert.Equal(t, goose.TripMessage{
		GoID:                "PTOC_TRIP",
		GoCbRef:             "IED1LD0/LLN0$GO$PTOC1",
		DatSet:              "IED1LD0/LLN0$PTOC1",
		AppID:               1,
		Trip:                true,
		SqNum:               1,
		StNum:               1,
		TimestampUs:         1000,
		TimeAllowedToLiveMs: 8,
	}, sent[0])
	assert.Equal(t, uint64(3), publisher.Published())
}

func TestPublisherFirstNormalMessageKeepsStNum(t *testing.T) {
	publisher, _ := newPublisher()

	require.NoError(t, publisher.PublishTrip(false, 1000))
	assert.Equal(t, uint32(1), publisher.SqNum())
	assert.Equal(t, uint32(0), publisher.StNum())
	assert.Equal(t, time.Second, publisher.Interval())
}

func TestPublisherRetransmitBacksOff(t *testing.T) {
	publisher, transport := newPublisher()

	require.NoError(t, publisher.Retransmit())
	assert.Empty(t, transport.Sent(), "nothing to retransmit before the first publish")

	require.NoError(t, publisher.PublishTrip(true, 1000))
	assert.Equal(t, 4*time.Millisecond, publisher.Interval())

	// doubles from 4 ms and is capped at 1 s
	expectedMs := []time.Duration{8, 16, 32, 64, 128, 256, 512, 1000, 1000}
	for _, ms := range expectedMs {
		require.NoError(t, publisher.Retransmit())
		assert.Equal(t, ms*time.Millisecond, publisher.Interval())
	}

	sent := transport.Sent()
	require.Len(t, sent, 10)
	last := sent[len(sent)-1]
	assert.True(t, last.Trip)
	assert.Equal(t, uint32(10), last.SqNum)
	assert.Equal(t, uint32(1), last.StNum)
	assert.Equal(t, uint64(1000), last.TimestampUs)
	assert.Equal(t, uint64(2000), last.TimeAllowedToLiveMs)
}

func TestPublisherReset(t *testing.T) {
	publisher, transport := newPublisher()

	require.NoError(t, publisher.PublishTrip(true, 1000))
	publisher.Reset()

	assert.Equal(t, uint32(0), publisher.SqNum())
	assert.Equal(t, uint32(0), publisher.StNum())
	assert.False(t, publisher.LastTripState())
	assert.Equal(t, time.Second, publisher.Interval())

	require.NoError(t, publisher.Retransmit())
	assert.Len(t, transport.Sent(), 1)
}

func TestPublisherTransportError(t *testing.T) {
	publisher, transport := newPublisher()
	transport.SendError = errors.New("broker down")

	err := publisher.PublishTrip(true, 1000)
	assert.ErrorIs(t, err, transport.SendError)
	assert.Equal(t, uint32(1), publisher.StNum(), "counters advance even if delivery fails")
}

func TestPublisherRun(t *testing.T) {
	config := goose.DefaultGooseConfig()
	config.MinIntervalMs = 1
	config.MaxIntervalMs = 8
	transport := goose.NewFakeTransport()
	publisher := goose.NewPublisher(config, transport, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- publisher.Run(ctx) }()

	require.NoError(t, publisher.PublishTrip(true, 1000))

	require.Eventually(t, func() bool {
		return len(transport.Sent()) >= 6
	}, 2*time.Second, time.Millisecond)
	assert.Equal(t, 8*time.Millisecond, publisher.Interval())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	for i, msg := range transport.Sent() {
		assert.Equal(t, uint32(i+1), msg.SqNum)
		assert.Equal(t, uint32(1), msg.StNum)
		assert.True(t, msg.Trip)
	}
}

func TestPublisherRunInvalidIntervals(t *testing.T) {
	config := goose.DefaultGooseConfig()
	config.MinIntervalMs = 0
	publisher := goose.NewPublisher(config, goose.NewFakeTransport(), zerolog.Nop())

	assert.Error(t, publisher.Run(context.Background()))
}

func TestFormatPayload(t *testing.T) {
	payload, err := goose.FormatPayload(goose.TripMessage{GoID: "PTOC_TRIP", Trip: true, SqNum: 3, StNum: 2})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "PTOC_TRIP", decoded["goid"])
	assert.Equal(t, true, decoded["trip"])
	assert.Equal(t, 3.0, decoded["sq_num"])
	assert.Equal(t, 2.0, decoded["st_num"])
}

func TestLogTransport(t *testing.T) {
	var buf bytes.Buffer
	transport := goose.NewLogTransport(zerolog.New(&buf))

	require.NoError(t, transport.Send(goose.TripMessage{GoID: "PTOC_TRIP", Trip: true, SqNum: 1, StNum: 1}))
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"goid":"PTOC_TRIP"`)
	assert.NoError(t, transport.Close())
}

func TestDefaultGooseConfig(t *testing.T) {
	config := goose.DefaultGooseConfig()
	assert.Equal(t, "01:0C:CD:01:00:00", config.DstMac)
	assert.Equal(t, uint16(1), config.AppID)
	assert.Equal(t, "relay/goose/PTOC_TRIP", config.Topic())
	assert.Equal(t, 4*time.Millisecond, config.MinInterval())
	assert.Equal(t, time.Second, config.MaxInterval())
}

// gatedTransport blocks the first Send after arm until release is closed.
type gatedTransport struct {
	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
	sent    []goose.TripMessage
}

func newGatedTransport() *gatedTransport {
	return &gatedTransport{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedTransport) arm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = true
}

func (g *gatedTransport) Send(msg goose.TripMessage) error {
	g.mu.Lock()
	block := g.armed
	g.armed = false
	g.mu.Unlock()

	if block {
		close(g.entered)
		<-g.release
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, msg)
	return nil
}

func (g *gatedTransport) Close() error { return nil }

func TestPublishTripNotBlockedBySlowRetransmission(t *testing.T) {
	transport := newGatedTransport()
	publisher := goose.NewPublisher(goose.DefaultGooseConfig(), transport, zerolog.Nop())
	require.NoError(t, publisher.PublishTrip(false, 0))

	transport.arm()
	retransmitted := make(chan error, 1)
	go func() { retransmitted <- publisher.Retransmit() }()
	<-transport.entered

	published := make(chan error, 1)
	go func() { published <- publisher.PublishTrip(true, 1) }()

	select {
	case err := <-published:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("PublishTrip waited for a retransmission stuck in the transport")
	}
	assert.Equal(t, uint32(1), publisher.StNum())
	assert.Equal(t, uint32(3), publisher.SqNum())
	assert.True(t, publisher.LastTripState())

	close(transport.release)
	require.NoError(t, <-retransmitted)
	assert.Equal(t, uint64(3), publisher.Published())
}
