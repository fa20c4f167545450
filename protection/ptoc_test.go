package protection_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptecltd/relay/protection"
)

func newPtoc(enabled bool) *protection.Ptoc {
	return protection.NewPtoc(protection.PtocConfig{Iset: 100.0, Tset: 100, Enabled: enabled})
}

func TestPtocNoTripBelowPickup(t *testing.T) {
	ptoc := newPtoc(true)

	result := ptoc.Process(50.0, 0)
	assert.Equal(t, protection.NoTrip(), result)
	assert.Equal(t, protection.StateIdle, ptoc.State())

	_, ok := ptoc.PickupTime()
	assert.False(t, ok)
}

// Current equal to Iset is not overcurrent.
func TestPtocThresholdIsStrict(t *testing.T) {
	ptoc := newPtoc(true)
	assert.Equal(t, protection.NoTrip(), ptoc.Process(100.0, 0))
	assert.Equal(t, protection.StateIdle, ptoc.State())
}

func TestPtocPickupThenTrip(t *testing.T) {
	ptoc := newPtoc(true)

	result := ptoc.Process(150.0, 0)
	assert.Equal(t, protection.TripPending(100*time.Millisecond), result)
	assert.Equal(t, protection.StatePickup, ptoc.State())
	pickup, ok := ptoc.PickupTime()
	assert.True(t, ok)
	assert.Equal(t, uint64(0), pickup)

	result = ptoc.Process(150.0, 50_000)
	assert.Equal(t, protection.TripPending(50*time.Millisecond), result)
	assert.Equal(t, protection.StatePickup, ptoc.State())

	result = ptoc.Process(150.0, 100_000)
	assert.Equal(t, protection.Trip(), result)
	assert.True(t, result.IsTrip())
	assert.Equal(t, protection.StateTrip, ptoc.State())

	_, ok = ptoc.PickupTime()
	assert.False(t, ok, "pickup time only exists in the pickup state")
}

// Elapsed time is truncated to whole milliseconds.
func TestPtocElapsedTruncatesToMilliseconds(t *testing.T) {
	ptoc := newPtoc(true)
	ptoc.Process(150.0, 1_000)

	assert.Equal(t, protection.TripPending(1*time.Millisecond), ptoc.Process(150.0, 100_999))
	assert.Equal(t, protection.Trip(), ptoc.Process(150.0, 101_000))
}

func TestPtocCurrentDropResetsPickup(t *testing.T) {
	ptoc := newPtoc(true)

	ptoc.Process(150.0, 0)
	require.Equal(t, protection.StatePickup, ptoc.State())

	result := ptoc.Process(50.0, 50_000)
	assert.Equal(t, protection.NoTrip(), result)
	assert.Equal(t, protection.StateIdle, ptoc.State())

	// the timer starts again from the new pickup
	assert.Equal(t, protection.TripPending(100*time.Millisecond), ptoc.Process(150.0, 60_000))
	assert.Equal(t, protection.TripPending(10*time.Millisecond), ptoc.Process(150.0, 150_000))
	assert.Equal(t, protection.Trip(), ptoc.Process(150.0, 160_000))
}

func TestPtocTripIsLatched(t *testing.T) {
	ptoc := newPtoc(true)
	ptoc.Process(150.0, 0)
	ptoc.Process(150.0, 100_000)
	require.Equal(t, protection.StateTrip, ptoc.State())

	assert.Equal(t, protection.Trip(), ptoc.Process(50.0, 200_000))
	assert.Equal(t, protection.Trip(), ptoc.Process(0.0, 0))
	assert.Equal(t, protection.StateTrip, ptoc.State())

	ptoc.Reset()
	assert.Equal(t, protection.StateIdle, ptoc.State())
	assert.Equal(t, protection.NoTrip(), ptoc.Process(50.0, 300_000))
}

func TestPtocZeroDelayTripsOnSecondEvaluation(t *testing.T) {
	ptoc := protection.NewPtoc(protection.PtocConfig{Iset: 100.0, Tset: 0, Enabled: true})

	assert.Equal(t, protection.TripPending(0), ptoc.Process(150.0, 0))
	assert.Equal(t, protection.Trip(), ptoc.Process(150.0, 0))
}

// A timestamp earlier than pickup counts as zero elapsed time.
func TestPtocNonMonotonicTimestamp(t *testing.T) {
	ptoc := newPtoc(true)
	ptoc.Process(150.0, 500_000)

	result := ptoc.Process(150.0, 100_000)
	assert.Equal(t, protection.TripPending(100*time.Millisecond), result)
	assert.Equal(t, protection.StatePickup, ptoc.State())

	pickup, _ := ptoc.PickupTime()
	assert.Equal(t, uint64(500_000), pickup, "pickup time is not moved by an out of order sample")

	assert.Equal(t, protection.Trip(), ptoc.Process(150.0, 600_000))
}

func TestPtocDisabledByConfig(t *testing.T) {
	ptoc := newPtoc(false)

	assert.Equal(t, protection.Disabled(), ptoc.Process(150.0, 0))
	assert.Equal(t, protection.StateIdle, ptoc.State())
	assert.False(t, ptoc.IsEnabled())
}

func TestPtocSetEnabledFalseResets(t *testing.T) {
	ptoc := newPtoc(true)
	ptoc.Process(150.0, 0)
	ptoc.Process(150.0, 100_000)
	require.Equal(t, protection.StateTrip, ptoc.State())

	ptoc.SetEnabled(false)
	assert.Equal(t, protection.StateIdle, ptoc.State())
	assert.Equal(t, protection.Disabled(), ptoc.Process(150.0, 200_000))
	assert.Equal(t, protection.StateIdle, ptoc.State())

	ptoc.SetEnabled(true)
	assert.Equal(t, protection.TripPending(100*time.Millisecond), ptoc.Process(150.0, 300_000))
}

func TestPtocSetConfig(t *testing.T) {
	ptoc := newPtoc(true)
	ptoc.Process(150.0, 0)

	// an enabled config keeps the running timer but applies the new thresholds
	ptoc.SetConfig(protection.PtocConfig{Iset: 120.0, Tset: 40, Enabled: true})
	assert.Equal(t, protection.StatePickup, ptoc.State())
	assert.Equal(t, 120.0, ptoc.Iset())
	assert.Equal(t, uint64(40), ptoc.Tset())
	assert.Equal(t, protection.Trip(), ptoc.Process(150.0, 40_000))

	ptoc.SetConfig(protection.PtocConfig{Iset: 120.0, Tset: 40, Enabled: false})
	assert.Equal(t, protection.StateIdle, ptoc.State())
	assert.Equal(t, protection.Disabled(), ptoc.Process(150.0, 50_000))
}

func TestPtocFromParams(t *testing.T) {
	off := false

	testCases := []struct {
		name     string
		params   protection.PtocParams
		expected protection.PtocConfig
		isError  bool
	}{
		{
			name:     "defaults_enabled",
			params:   protection.PtocParams{Iset: 100, Tset: 100},
			expected: protection.PtocConfig{Iset: 100, Tset: 100, Enabled: true},
		},
		{
			name:     "explicitly_disabled",
			params:   protection.PtocParams{Iset: 5, Tset: 0, Enabled: &off},
			expected: protection.PtocConfig{Iset: 5, Tset: 0, Enabled: false},
		},
		{name: "negative_iset", params: protection.PtocParams{Iset: -1}, isError: true},
		{name: "negative_tset", params: protection.PtocParams{Tset: -1}, isError: true},
		{name: "nan_iset", params: protection.PtocParams{Iset: math.NaN()}, isError: true},
		{name: "inf_iset", params: protection.PtocParams{Iset: math.Inf(1)}, isError: true},
		{name: "tset_beyond_duration", params: protection.PtocParams{Tset: math.MaxInt64}, isError: true},
		{
			name:     "max_tset",
			params:   protection.PtocParams{Iset: 1, Tset: int64(protection.MaxTset)},
			expected: protection.PtocConfig{Iset: 1, Tset: protection.MaxTset, Enabled: true},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ptoc, err := protection.NewPtocFromParams(tc.params)
			if tc.isError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, ptoc.Config())
			assert.Equal(t, "PTOC", ptoc.Name())
			assert.Equal(t, "ptoc", ptoc.TypeAsString())
		})
	}
}

func TestPtocImplementsFunction(t *testing.T) {
	var f protection.Function = newPtoc(true)
	assert.True(t, f.IsEnabled())
	assert.Equal(t, "PTOC", f.Name())
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "pickup", protection.StatePickup.String())
	assert.Equal(t, "trip", protection.Trip().String())
	assert.Equal(t, "trip_pending(50ms)", protection.TripPending(50*time.Millisecond).String())
	assert.True(t, protection.StateTrip.IsTripped())
	assert.True(t, protection.StateIdle.IsIdle())
	assert.True(t, protection.StatePickup.IsPickup())
}
