package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file overrides anything:
// synthetic source, production detector timings, HTTP on :8080.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   LogInfo,
		},
		Detector: DetectorConfig{
			TickIntervalMs:      16,
			CalibrationWindowMs: 1200,
		},
		Source: SourceConfig{
			Name: SourceSynth,
		},
	}
}

// applyDefaults fills fields a partial YAML document may have zeroed out.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = def.Server.ListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = def.Server.LogLevel
	}
	if cfg.Detector.TickIntervalMs == 0 {
		cfg.Detector.TickIntervalMs = def.Detector.TickIntervalMs
	}
	if cfg.Detector.CalibrationWindowMs == 0 {
		cfg.Detector.CalibrationWindowMs = def.Detector.CalibrationWindowMs
	}
	if cfg.Source.Name == "" {
		cfg.Source.Name = def.Source.Name
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Detector.TickIntervalMs < 0 {
		errs = append(errs, fmt.Errorf("detector.tick_interval_ms must not be negative, got %d", cfg.Detector.TickIntervalMs))
	}
	if cfg.Detector.CalibrationWindowMs < 0 {
		errs = append(errs, fmt.Errorf("detector.calibration_window_ms must not be negative, got %d", cfg.Detector.CalibrationWindowMs))
	}
	if err := validateThresholds(cfg.Detector.Thresholds); err != nil {
		errs = append(errs, err)
	}
	if !cfg.Source.Name.IsValid() {
		errs = append(errs, fmt.Errorf("source.name %q is invalid; valid values: synth, ws", cfg.Source.Name))
	}
	if cfg.Source.TimeBins < 0 || cfg.Source.FreqBins < 0 {
		errs = append(errs, fmt.Errorf("source bin counts must not be negative, got time_bins=%d freq_bins=%d", cfg.Source.TimeBins, cfg.Source.FreqBins))
	}

	return errors.Join(errs...)
}

// validateThresholds rejects partially specified or negative threshold
// blocks. Either leave the whole block out (classifier defaults apply) or
// give every offset a positive value.
func validateThresholds(t ThresholdConfig) error {
	if t == (ThresholdConfig{}) {
		return nil
	}
	fields := map[string]float64{
		"hiss_tilt_delta":     t.HissTiltDelta,
		"combined_tilt_delta": t.CombinedTiltDelta,
		"combined_tilt_floor": t.CombinedTiltFloor,
		"energy_delta":        t.EnergyDelta,
		"energy_floor":        t.EnergyFloor,
		"energy_surge_delta":  t.EnergySurgeDelta,
	}
	for name, v := range fields {
		if v <= 0 {
			return fmt.Errorf("detector.thresholds.%s must be positive when the block is set, got %v", name, v)
		}
	}
	return nil
}
