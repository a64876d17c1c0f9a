package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/soffio/internal/config"
	"github.com/MrWong99/soffio/pkg/detect"
)

const validYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
detector:
  tick_interval_ms: 8
  calibration_window_ms: 800
source:
  name: ws
  time_bins: 1024
  freq_bins: 512
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want :9090", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("LogLevel = %q, want debug", cfg.Server.LogLevel)
	}
	if got := cfg.Detector.TickInterval(); got != 8*time.Millisecond {
		t.Errorf("TickInterval = %v, want 8ms", got)
	}
	if got := cfg.Detector.CalibrationWindow(); got != 800*time.Millisecond {
		t.Errorf("CalibrationWindow = %v, want 800ms", got)
	}
	if cfg.Source.Name != config.SourceWS {
		t.Errorf("Source.Name = %q, want ws", cfg.Source.Name)
	}
	c := cfg.Source.Constraints()
	if c.TimeBins != 1024 || c.FreqBins != 512 {
		t.Errorf("Constraints bins = %d/%d, want 1024/512", c.TimeBins, c.FreqBins)
	}
	if c.EchoCancellation || c.NoiseSuppression || c.AutoGainControl {
		t.Errorf("platform processing flags must stay disabled: %+v", c)
	}
}

func TestLoadFromReader_DefaultsApplied(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader("server:\n  log_level: warn\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want default :8080", cfg.Server.ListenAddr)
	}
	if got := cfg.Detector.TickInterval(); got != 16*time.Millisecond {
		t.Errorf("TickInterval = %v, want default 16ms", got)
	}
	if got := cfg.Detector.CalibrationWindow(); got != 1200*time.Millisecond {
		t.Errorf("CalibrationWindow = %v, want default 1200ms", got)
	}
	if cfg.Source.Name != config.SourceSynth {
		t.Errorf("Source.Name = %q, want default synth", cfg.Source.Name)
	}
	if got := cfg.Detector.Thresholds.Thresholds(); got != detect.DefaultThresholds() {
		t.Errorf("Thresholds = %+v, want classifier defaults", got)
	}
}

func TestLoadFromReader_EmptyDocument(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("empty document must yield defaults, got %+v", cfg.Server)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("detector:\n  tick_rate: 5\n"))
	if err == nil {
		t.Fatal("unknown field must be rejected")
	}
}

func TestLoadFromReader_InvalidValuesAggregated(t *testing.T) {
	t.Parallel()

	bad := `
server:
  log_level: loud
source:
  name: microphone
`
	_, err := config.LoadFromReader(strings.NewReader(bad))
	if err == nil {
		t.Fatal("invalid config must be rejected")
	}
	msg := err.Error()
	for _, want := range []string{"log_level", "source.name"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %q", msg, want)
		}
	}
}

func TestLoadFromReader_PartialThresholdsRejected(t *testing.T) {
	t.Parallel()

	partial := `
detector:
  thresholds:
    hiss_tilt_delta: 20
`
	_, err := config.LoadFromReader(strings.NewReader(partial))
	if err == nil {
		t.Fatal("partially specified thresholds must be rejected")
	}
}

func TestThresholdConfig_CustomValues(t *testing.T) {
	t.Parallel()

	full := `
detector:
  thresholds:
    hiss_tilt_delta: 20
    combined_tilt_delta: 7
    combined_tilt_floor: 15
    energy_delta: 6
    energy_floor: 11
    energy_surge_delta: 13
`
	cfg, err := config.LoadFromReader(strings.NewReader(full))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	got := cfg.Detector.Thresholds.Thresholds()
	if got.HissTiltDelta != 20 || got.EnergySurgeDelta != 13 {
		t.Errorf("Thresholds = %+v, want configured values", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := config.Load("does-not-exist.yaml"); err == nil {
		t.Fatal("Load of a missing file must fail")
	}
}
