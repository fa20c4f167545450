package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/synaptecltd/relay/emulator"
	"github.com/synaptecltd/relay/goose"
	"github.com/synaptecltd/relay/measurement"
	"github.com/synaptecltd/relay/protection"
	"github.com/synaptecltd/relay/sv"
	"gopkg.in/yaml.v2"
)

// tomlConfig mirrors SystemConfig for TOML documents. TOML has no way to hold
// the function interface directly, so the functions list is decoded in a second
// pass through the protection decode hook.
type tomlConfig struct {
	Ptoc      protection.PtocConfig    `toml:"ptoc"`
	Ct        measurement.CtConfig     `toml:"ct"`
	Adc       measurement.AdcConfig    `toml:"adc"`
	Sv        sv.SvConfig              `toml:"sv"`
	Goose     goose.GooseConfig        `toml:"goose"`
	Functions []map[string]interface{} `toml:"functions,omitempty"`
	Server    ServerConfig             `toml:"server"`
	TripIO    TripIOConfig             `toml:"trip_io"`
	Emulator  EmulatorConfig           `toml:"emulator"`
}

// Load reads the configuration at path over the defaults. The format follows
// the extension: .json, .yaml/.yml or .toml. Unknown keys are rejected.
func Load(path string) (SystemConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SystemConfig{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = decodeJSON(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.UnmarshalStrict(data, &cfg)
	case ".toml":
		err = decodeTOML(data, &cfg)
	default:
		return SystemConfig{}, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return SystemConfig{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func decodeJSON(data []byte, cfg *SystemConfig) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	return decoder.Decode(cfg)
}

func decodeTOML(data []byte, cfg *SystemConfig) error {
	raw := toTOML(*cfg)
	raw.Functions = nil

	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown keys: %v", undecoded)
	}

	cfg.Ptoc = raw.Ptoc
	cfg.Ct = raw.Ct
	cfg.Adc = raw.Adc
	cfg.Sv = raw.Sv
	cfg.Goose = raw.Goose
	cfg.Server = raw.Server
	cfg.TripIO = raw.TripIO
	cfg.Emulator = raw.Emulator

	if len(raw.Functions) == 0 {
		return nil
	}
	return decodeFunctions(raw.Functions, &cfg.Functions)
}

// decodeFunctions builds a Container from decoded TOML tables.
func decodeFunctions(entries []map[string]interface{}, functions *protection.Container) error {
	var out struct {
		Functions protection.Container `mapstructure:"functions"`
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: protection.GetDecodeHook(),
		Result:     &out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(map[string]interface{}{"functions": entries}); err != nil {
		return fmt.Errorf("decode functions: %w", err)
	}
	*functions = out.Functions
	return nil
}

func toTOML(cfg SystemConfig) tomlConfig {
	return tomlConfig{
		Ptoc:     cfg.Ptoc,
		Ct:       cfg.Ct,
		Adc:      cfg.Adc,
		Sv:       cfg.Sv,
		Goose:    cfg.Goose,
		Server:   cfg.Server,
		TripIO:   cfg.TripIO,
		Emulator: cfg.Emulator,
	}
}

// Save writes cfg to path in the format given by the extension.
func Save(cfg SystemConfig, path string) error {
	var data []byte
	var err error

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	case ".toml":
		data, err = encodeTOML(cfg)
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func encodeTOML(cfg SystemConfig) ([]byte, error) {
	raw := toTOML(cfg)
	if len(cfg.Functions) > 0 {
		entries, err := cfg.Functions.Entries()
		if err != nil {
			return nil, err
		}
		raw.Functions = entries
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadEnvFile loads environment variables from .env files, defaulting to
// ./.env. Missing files are not an error.
func LoadEnvFile(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides cfg with RELAY_* variables read through getenv, e.g.
// os.Getenv. Empty variables are ignored.
func ApplyEnv(cfg *SystemConfig, getenv func(string) string) error {
	floats := []struct {
		key string
		dst *float64
	}{
		{"RELAY_PTOC_ISET", &cfg.Ptoc.Iset},
		{"RELAY_CT_PRIMARY", &cfg.Ct.Primary},
		{"RELAY_CT_SECONDARY", &cfg.Ct.Secondary},
		{"RELAY_ADC_SCALE_FACTOR", &cfg.Adc.ScaleFactor},
		{"RELAY_ADC_OFFSET", &cfg.Adc.Offset},
		{"RELAY_EMULATOR_LOAD_AMPS", &cfg.Emulator.LoadAmps},
	}
	for _, f := range floats {
		if value := strings.TrimSpace(getenv(f.key)); value != "" {
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", f.key, err)
			}
			*f.dst = v
		}
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"RELAY_PTOC_ENABLED", &cfg.Ptoc.Enabled},
		{"RELAY_SERVER_ENABLED", &cfg.Server.Enabled},
		{"RELAY_TRIP_IO_ENABLED", &cfg.TripIO.Enabled},
		{"RELAY_EMULATOR_PACE", &cfg.Emulator.Pace},
	}
	for _, b := range bools {
		if value := strings.TrimSpace(getenv(b.key)); value != "" {
			v, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", b.key, err)
			}
			*b.dst = v
		}
	}

	if value := strings.TrimSpace(getenv("RELAY_PTOC_TSET")); value != "" {
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid RELAY_PTOC_TSET: %w", err)
		}
		cfg.Ptoc.Tset = v
	}
	if value := strings.TrimSpace(getenv("RELAY_SV_SAMPLES_PER_CYCLE")); value != "" {
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid RELAY_SV_SAMPLES_PER_CYCLE: %w", err)
		}
		cfg.Sv.SamplesPerCycle = v
	}
	if value := strings.TrimSpace(getenv("RELAY_GOOSE_BROKER")); value != "" {
		cfg.Goose.Broker = value
	}
	if value := strings.TrimSpace(getenv("RELAY_SERVER_ADDR")); value != "" {
		cfg.Server.Addr = value
	}

	return nil
}

// Returns the emulator faults, checking for invalid values.
func (c EmulatorConfig) BuildFaults() ([]*emulator.Fault, error) {
	faults := make([]*emulator.Fault, 0, len(c.Faults))
	for i, params := range c.Faults {
		fault, err := emulator.NewFault(params)
		if err != nil {
			return nil, fmt.Errorf("emulator fault %d: %w", i, err)
		}
		faults = append(faults, fault)
	}
	return faults, nil
}

// Returns the configured spike disturbance, or nil if none.
func (c EmulatorConfig) BuildSpikes() (*emulator.Spike, error) {
	if c.Spikes == nil {
		return nil, nil
	}
	spike, err := emulator.NewSpike(*c.Spikes)
	if err != nil {
		return nil, fmt.Errorf("emulator spikes: %w", err)
	}
	return spike, nil
}
