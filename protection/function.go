// Package protection implements protective elements that turn a per-cycle
// current magnitude into a trip decision.
package protection

import (
	"fmt"
	"time"
)

// Function is the capability every protective element provides.
//
// Implementations are not safe for concurrent use; the owner of a channel must
// serialise calls.
type Function interface {
	Process(current float64, timestampUs uint64) Result // evaluates one RMS magnitude in primary amperes at a microsecond timestamp
	Reset()                                             // forces the element to idle, discarding any pending timer
	IsEnabled() bool                                    // returns whether the element is in service
	SetEnabled(enabled bool)                            // enables or disables the element; disabling also resets
	Name() string                                       // returns an identifier for logs and telemetry
	State() TripState                                   // returns the current state
	TypeAsString() string                               // returns the element type, e.g. "ptoc"
}

// TripState is the state of a protective element.
type TripState int

const (
	StateIdle   TripState = iota // no overcurrent
	StatePickup                  // threshold exceeded, definite-time delay running
	StateTrip                    // delay expired, latched until Reset
)

func (s TripState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePickup:
		return "pickup"
	case StateTrip:
		return "trip"
	default:
		return fmt.Sprintf("TripState(%d)", int(s))
	}
}

// Returns true if the element has tripped.
func (s TripState) IsTripped() bool { return s == StateTrip }

// Returns true if the element is timing towards a trip.
func (s TripState) IsPickup() bool { return s == StatePickup }

// Returns true if the element is idle.
func (s TripState) IsIdle() bool { return s == StateIdle }

// ResultKind tags a Result.
type ResultKind int

const (
	ResultNoTrip      ResultKind = iota // no trip condition
	ResultTripPending                   // pickup, Remaining holds the delay left
	ResultTrip                          // trip active
	ResultDisabled                      // element is out of service
)

func (k ResultKind) String() string {
	switch k {
	case ResultNoTrip:
		return "no_trip"
	case ResultTripPending:
		return "trip_pending"
	case ResultTrip:
		return "trip"
	case ResultDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("ResultKind(%d)", int(k))
	}
}

// Result is the outcome of a single evaluation. Remaining is only meaningful for
// ResultTripPending.
type Result struct {
	Kind      ResultKind
	Remaining time.Duration
}

// Returns a NoTrip result.
func NoTrip() Result { return Result{Kind: ResultNoTrip} }

// Returns a TripPending result with the given delay left before trip.
func TripPending(remaining time.Duration) Result {
	return Result{Kind: ResultTripPending, Remaining: remaining}
}

// Returns a Trip result.
func Trip() Result { return Result{Kind: ResultTrip} }

// Returns a Disabled result.
func Disabled() Result { return Result{Kind: ResultDisabled} }

// Returns true if the result is a trip.
func (r Result) IsTrip() bool { return r.Kind == ResultTrip }

func (r Result) String() string {
	if r.Kind == ResultTripPending {
		return fmt.Sprintf("%s(%s)", r.Kind, r.Remaining)
	}
	return r.Kind.String()
}
