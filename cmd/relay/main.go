// Command relay runs a definite-time overcurrent relay on an emulated Sampled
// Values stream, publishing trips as GOOSE messages and on a GPIO contact.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/synaptecltd/relay/config"
	"github.com/synaptecltd/relay/goose"
	"github.com/synaptecltd/relay/logging"
	"github.com/synaptecltd/relay/tripio"
)

func main() {
	configPath := flag.String("config", "", "Configuration file (.json, .yaml or .toml); defaults are used if empty")
	envFile := flag.String("env", ".env", "Environment file with RELAY_* overrides")
	maxSamples := flag.Uint64("samples", 0, "Stop after this many samples (0 runs until interrupted)")
	flag.Parse()

	logger := logging.InitLogger("relay")

	cfg, err := loadConfig(*configPath, *envFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("configuration rejected")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *maxSamples, logger); err != nil {
		logger.Fatal().Err(err).Msg("relay stopped")
	}
}

// loadConfig layers the file at path, the env file and the process
// environment over the defaults.
func loadConfig(path, envFile string) (config.SystemConfig, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return config.SystemConfig{}, err
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.SystemConfig{}, err
		}
		cfg = loaded
	}
	if err := config.ApplyEnv(&cfg, os.Getenv); err != nil {
		return config.SystemConfig{}, err
	}
	if err := config.Validate(cfg); err != nil {
		return config.SystemConfig{}, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config.SystemConfig, maxSamples uint64, logger zerolog.Logger) error {
	transport, err := newTransport(cfg.Goose, logger)
	if err != nil {
		return err
	}

	var output tripio.Output
	if cfg.TripIO.Enabled {
		output, err = tripio.NewRealOutput(cfg.TripIO.Chip, cfg.TripIO.Pin)
		if err != nil {
			transport.Close()
			return fmt.Errorf("init trip output: %w", err)
		}
	}

	a, err := newApp(cfg, appOptions{
		Transport:  transport,
		Output:     output,
		MaxSamples: maxSamples,
		Logger:     logger,
	})
	if err != nil {
		transport.Close()
		if output != nil {
			output.Close()
		}
		return err
	}
	defer a.Close()

	return a.Run(ctx)
}

// newTransport returns an MQTT transport if a broker is configured, otherwise
// one that logs every message.
func newTransport(cfg goose.GooseConfig, logger zerolog.Logger) (goose.Transport, error) {
	if cfg.Broker == "" {
		logger.Info().Msg("no goose broker configured, trip messages are logged only")
		return goose.NewLogTransport(logger), nil
	}
	transport, err := goose.NewMQTTTransport(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect goose broker: %w", err)
	}
	logger.Info().Str("broker", cfg.Broker).Str("topic", cfg.Topic()).Msg("goose transport connected")
	return transport, nil
}
