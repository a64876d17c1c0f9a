// Package config provides the configuration schema and loader for the Soffio
// breath-detection server.
package config

import (
	"time"

	"github.com/MrWong99/soffio/pkg/detect"
	"github.com/MrWong99/soffio/pkg/device"
)

// LogLevel controls log verbosity for the Soffio server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// SourceKind selects the frame-source adapter feeding the detector.
type SourceKind string

const (
	// SourceSynth uses the built-in synthetic frame generator.
	SourceSynth SourceKind = "synth"

	// SourceWS accepts frames from a remote capture client over WebSocket.
	SourceWS SourceKind = "ws"
)

// IsValid reports whether s is a recognised source kind.
func (s SourceKind) IsValid() bool {
	return s == SourceSynth || s == SourceWS
}

// Config is the root configuration structure for Soffio.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Detector DetectorConfig `yaml:"detector"`
	Source   SourceConfig   `yaml:"source"`
}

// ServerConfig holds network and logging settings for the Soffio server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// DetectorConfig holds the pipeline timing and classifier thresholds.
type DetectorConfig struct {
	// TickIntervalMs is the frame cadence in milliseconds. The loop re-arms
	// itself after every tick, so this is a target, not a guarantee.
	TickIntervalMs int `yaml:"tick_interval_ms"`

	// CalibrationWindowMs is the wall-clock calibration duration in
	// milliseconds.
	CalibrationWindowMs int `yaml:"calibration_window_ms"`

	// Thresholds tunes the classifier. Zero fields keep their defaults.
	Thresholds ThresholdConfig `yaml:"thresholds"`
}

// TickInterval returns the frame cadence as a duration.
func (d DetectorConfig) TickInterval() time.Duration {
	return time.Duration(d.TickIntervalMs) * time.Millisecond
}

// CalibrationWindow returns the calibration duration.
func (d DetectorConfig) CalibrationWindow() time.Duration {
	return time.Duration(d.CalibrationWindowMs) * time.Millisecond
}

// ThresholdConfig mirrors [detect.Thresholds] with yaml tags. An all-zero
// block keeps the classifier defaults.
type ThresholdConfig struct {
	HissTiltDelta     float64 `yaml:"hiss_tilt_delta"`
	CombinedTiltDelta float64 `yaml:"combined_tilt_delta"`
	CombinedTiltFloor float64 `yaml:"combined_tilt_floor"`
	EnergyDelta       float64 `yaml:"energy_delta"`
	EnergyFloor       float64 `yaml:"energy_floor"`
	EnergySurgeDelta  float64 `yaml:"energy_surge_delta"`
}

// Thresholds converts the config values into classifier thresholds. An
// all-zero ThresholdConfig yields [detect.DefaultThresholds].
func (t ThresholdConfig) Thresholds() detect.Thresholds {
	if t == (ThresholdConfig{}) {
		return detect.DefaultThresholds()
	}
	return detect.Thresholds{
		HissTiltDelta:     t.HissTiltDelta,
		CombinedTiltDelta: t.CombinedTiltDelta,
		CombinedTiltFloor: t.CombinedTiltFloor,
		EnergyDelta:       t.EnergyDelta,
		EnergyFloor:       t.EnergyFloor,
		EnergySurgeDelta:  t.EnergySurgeDelta,
	}
}

// SourceConfig selects and configures the frame source.
type SourceConfig struct {
	// Name picks the adapter: "synth" or "ws".
	Name SourceKind `yaml:"name"`

	// TimeBins is the time-domain buffer length requested from the source.
	TimeBins int `yaml:"time_bins"`

	// FreqBins is the frequency-domain buffer length.
	FreqBins int `yaml:"freq_bins"`

	// Synth configures the synthetic source. Ignored for other kinds.
	Synth SynthConfig `yaml:"synth"`
}

// Constraints builds the device constraints requested from the gate.
func (s SourceConfig) Constraints() device.Constraints {
	c := device.DefaultConstraints()
	if s.TimeBins > 0 {
		c.TimeBins = s.TimeBins
	}
	if s.FreqBins > 0 {
		c.FreqBins = s.FreqBins
	}
	return c
}

// SynthConfig holds the synthetic source noise-floor parameters.
type SynthConfig struct {
	AmbientEnergy float64 `yaml:"ambient_energy"`
	AmbientTilt   float64 `yaml:"ambient_tilt"`
	BlowEnergy    float64 `yaml:"blow_energy"`
	BlowTilt      float64 `yaml:"blow_tilt"`
	Seed          int64   `yaml:"seed"`
}
