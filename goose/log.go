package goose

import "github.com/rs/zerolog"

// LogTransport writes trip messages to a logger, for running without a broker.
type LogTransport struct {
	logger zerolog.Logger
}

// NewLogTransport creates a transport logging to logger.
func NewLogTransport(logger zerolog.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

// Send logs the message. Trips are logged at warn level.
func (t *LogTransport) Send(msg TripMessage) error {
	event := t.logger.Info()
	if msg.Trip {
		event = t.logger.Warn()
	}
	event.
		Str("goid", msg.GoID).
		Bool("trip", msg.Trip).
		Uint32("sq_num", msg.SqNum).
		Uint32("st_num", msg.StNum).
		Uint64("timestamp_us", msg.TimestampUs).
		Msg("goose message")
	return nil
}

// Close does nothing.
func (t *LogTransport) Close() error {
	return nil
}
