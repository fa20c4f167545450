// Package logging builds the relay's zerolog loggers.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelEnv names the environment variable holding the log level.
const LevelEnv = "RELAY_LOG_LEVEL"

// InitLogger returns a console logger tagged with app, at the level named by
// RELAY_LOG_LEVEL (info if unset), and installs it as the global logger.
func InitLogger(app string) zerolog.Logger {
	logger := New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}, app, os.Getenv(LevelEnv))
	log.Logger = logger
	return logger
}

// New returns a logger writing to out at the named level. Unknown or empty
// levels fall back to info.
func New(out io.Writer, app, level string) zerolog.Logger {
	return zerolog.New(out).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("app", app).
		Logger()
}

// ParseLevel returns the zerolog level for name, defaulting to info.
func ParseLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
