package detect_test

import (
	"testing"

	"github.com/MrWong99/soffio/pkg/detect"
)

func TestClassify_StrongHissBoundary(t *testing.T) {
	t.Parallel()

	th := detect.DefaultThresholds()
	zero := detect.Baseline{}

	if th.Classify(detect.FeaturePair{Energy: 0, Tilt: 18}, zero) {
		t.Error("tilt 18 at zero baseline must not trigger (boundary is exclusive)")
	}
	if !th.Classify(detect.FeaturePair{Energy: 0, Tilt: 19}, zero) {
		t.Error("tilt 19 at zero baseline must trigger the strong-hiss path")
	}
}

func TestClassify_CombinedTrigger(t *testing.T) {
	t.Parallel()

	th := detect.DefaultThresholds()

	tests := []struct {
		name     string
		features detect.FeaturePair
		baseline detect.Baseline
		want     bool
	}{
		{
			name:     "hiss with loudness",
			features: detect.FeaturePair{Tilt: 15, Energy: 11},
			want:     true,
		},
		{
			name:     "hiss without loudness",
			features: detect.FeaturePair{Tilt: 15, Energy: 9},
			want:     false,
		},
		{
			name:     "loudness without hiss",
			features: detect.FeaturePair{Tilt: 14, Energy: 50},
			want:     false,
		},
		{
			name:     "energy surge over noisy baseline",
			features: detect.FeaturePair{Tilt: 30, Energy: 34},
			baseline: detect.Baseline{Energy: 20, Tilt: 10},
			want:     true,
		},
		{
			name:     "noisy baseline raises both gates",
			features: detect.FeaturePair{Tilt: 16, Energy: 24},
			baseline: detect.Baseline{Energy: 20, Tilt: 10},
			want:     false,
		},
		{
			name:     "quiet room floors keep sensitivity bounded",
			features: detect.FeaturePair{Tilt: 7, Energy: 6},
			baseline: detect.Baseline{Energy: 0.5, Tilt: 0.5},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := th.Classify(tt.features, tt.baseline)
			if got != tt.want {
				t.Errorf("Classify(%+v, %+v) = %v, want %v", tt.features, tt.baseline, got, tt.want)
			}
		})
	}
}

// TestClassify_MonotonicInTilt verifies that raising tilt with energy and
// baseline held fixed can flip the decision from false to true but never
// back.
func TestClassify_MonotonicInTilt(t *testing.T) {
	t.Parallel()

	th := detect.DefaultThresholds()
	baselines := []detect.Baseline{
		{},
		{Energy: 2, Tilt: 3},
		{Energy: 20, Tilt: 40},
	}
	energies := []float64{0, 9, 11, 50}

	for _, b := range baselines {
		for _, e := range energies {
			fired := false
			for tilt := 0.0; tilt <= 100; tilt += 0.25 {
				got := th.Classify(detect.FeaturePair{Energy: e, Tilt: tilt}, b)
				if fired && !got {
					t.Fatalf("decision reverted to false at tilt=%v (energy=%v baseline=%+v)", tilt, e, b)
				}
				fired = fired || got
			}
		}
	}
}

func TestClassify_PureAndDeterministic(t *testing.T) {
	t.Parallel()

	th := detect.DefaultThresholds()
	f := detect.FeaturePair{Energy: 15, Tilt: 25}
	b := detect.Baseline{Energy: 2, Tilt: 3}

	first := th.Classify(f, b)
	for i := 0; i < 100; i++ {
		if th.Classify(f, b) != first {
			t.Fatal("Classify returned different results for identical inputs")
		}
	}
	if !first {
		t.Error("blow-like features over a near-silent baseline must classify true")
	}
}

func TestDefaultThresholds(t *testing.T) {
	t.Parallel()

	want := detect.Thresholds{
		HissTiltDelta:     18,
		CombinedTiltDelta: 6,
		CombinedTiltFloor: 14,
		EnergyDelta:       5,
		EnergyFloor:       10,
		EnergySurgeDelta:  12,
	}
	if got := detect.DefaultThresholds(); got != want {
		t.Errorf("DefaultThresholds() = %+v, want %+v", got, want)
	}
}
