// Package goose publishes trip decisions as GOOSE-style status messages with
// sequence and state counters and a backing-off retransmission schedule.
package goose

import (
	"encoding/json"
	"time"
)

// GooseConfig identifies the published trip dataset and its transport.
type GooseConfig struct {
	DstMac        string `yaml:"dst_mac" toml:"dst_mac" json:"dst_mac"`                         // destination MAC, e.g. "01:0C:CD:01:00:00"
	AppID         uint16 `yaml:"appid" toml:"appid" json:"appid"`                               // application ID
	GoID          string `yaml:"goid" toml:"goid" json:"goid"`                                  // GOOSE ID
	GoCbRef       string `yaml:"gocb_ref" toml:"gocb_ref" json:"gocb_ref"`                      // control block reference
	DatSet        string `yaml:"dat_set" toml:"dat_set" json:"dat_set"`                         // dataset reference
	Interface     string `yaml:"interface" toml:"interface" json:"interface"`                   // network interface name
	Broker        string `yaml:"broker" toml:"broker" json:"broker"`                            // MQTT broker URL, empty to log messages only
	MinIntervalMs uint64 `yaml:"min_interval_ms" toml:"min_interval_ms" json:"min_interval_ms"` // retransmission interval after a state change
	MaxIntervalMs uint64 `yaml:"max_interval_ms" toml:"max_interval_ms" json:"max_interval_ms"` // steady-state retransmission interval
}

// Returns the default configuration for the PTOC trip dataset.
func DefaultGooseConfig() GooseConfig {
	return GooseConfig{
		DstMac:        "01:0C:CD:01:00:00",
		AppID:         0x0001,
		GoID:          "PTOC_TRIP",
		GoCbRef:       "IED1LD0/LLN0$GO$PTOC1",
		DatSet:        "IED1LD0/LLN0$PTOC1",
		Interface:     "eth0",
		MinIntervalMs: 4,
		MaxIntervalMs: 1000,
	}
}

// Returns the retransmission interval after a state change.
func (c GooseConfig) MinInterval() time.Duration {
	return time.Duration(c.MinIntervalMs) * time.Millisecond
}

// Returns the steady-state retransmission interval.
func (c GooseConfig) MaxInterval() time.Duration {
	return time.Duration(c.MaxIntervalMs) * time.Millisecond
}

// Topic returns the MQTT topic messages for this dataset are published on.
func (c GooseConfig) Topic() string {
	return "relay/goose/" + c.GoID
}

// TripMessage is a single published trip status.
type TripMessage struct {
	GoID                string `json:"goid"`
	GoCbRef             string `json:"gocb_ref"`
	DatSet              string `json:"dat_set"`
	AppID               uint16 `json:"appid"`
	Trip                bool   `json:"trip"`
	SqNum               uint32 `json:"sq_num"`
	StNum               uint32 `json:"st_num"`
	TimestampUs         uint64 `json:"timestamp_us"`
	TimeAllowedToLiveMs uint64 `json:"time_allowed_to_live_ms"`
}

// FormatPayload creates the JSON payload for a trip message.
func FormatPayload(msg TripMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// Transport delivers trip messages.
type Transport interface {
	// Send delivers one message. Errors should not stop the relay.
	Send(msg TripMessage) error

	// Close releases the transport.
	Close() error
}
