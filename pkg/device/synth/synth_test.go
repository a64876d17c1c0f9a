package synth_test

import (
	"context"
	"testing"

	"github.com/MrWong99/soffio/pkg/detect"
	"github.com/MrWong99/soffio/pkg/device/synth"
)

func TestSource_AmbientFramesMatchConfiguredFloor(t *testing.T) {
	t.Parallel()

	src := synth.New(synth.Config{Seed: 1})
	defer src.Close()

	for i := 0; i < 20; i++ {
		f := detect.Extract(detect.Frame{
			TimeDomain: src.CaptureTimeDomain(),
			FreqDomain: src.CaptureFrequencyDomain(),
		})
		if f.Energy < 0.5 || f.Energy > 4 {
			t.Errorf("ambient energy = %v, want ≈2", f.Energy)
		}
		if f.Tilt < 1 || f.Tilt > 4 {
			t.Errorf("ambient tilt = %v, want ≈3", f.Tilt)
		}
	}
}

func TestSource_BlowFramesClassifyAgainstAmbientBaseline(t *testing.T) {
	t.Parallel()

	src := synth.New(synth.Config{Seed: 7})
	defer src.Close()
	th := detect.DefaultThresholds()

	ambient := detect.Extract(detect.Frame{
		TimeDomain: src.CaptureTimeDomain(),
		FreqDomain: src.CaptureFrequencyDomain(),
	})
	baseline := detect.Baseline{Energy: ambient.Energy, Tilt: ambient.Tilt}

	if th.Classify(ambient, baseline) {
		t.Fatal("ambient frame must not classify as a blow")
	}

	src.StartBlow()
	blow := detect.Extract(detect.Frame{
		TimeDomain: src.CaptureTimeDomain(),
		FreqDomain: src.CaptureFrequencyDomain(),
	})
	if !th.Classify(blow, baseline) {
		t.Errorf("blow frame %+v must classify against baseline %+v", blow, baseline)
	}

	src.StopBlow()
	calm := detect.Extract(detect.Frame{
		TimeDomain: src.CaptureTimeDomain(),
		FreqDomain: src.CaptureFrequencyDomain(),
	})
	if th.Classify(calm, baseline) {
		t.Errorf("post-blow ambient frame %+v must not classify", calm)
	}
}

func TestSource_DeterministicWithSeed(t *testing.T) {
	t.Parallel()

	a := synth.New(synth.Config{Seed: 42})
	b := synth.New(synth.Config{Seed: 42})

	for i := 0; i < 5; i++ {
		ta, tb := a.CaptureTimeDomain(), b.CaptureTimeDomain()
		fa, fb := a.CaptureFrequencyDomain(), b.CaptureFrequencyDomain()
		if string(ta) != string(tb) || string(fa) != string(fb) {
			t.Fatalf("frame %d differs between equally seeded sources", i)
		}
	}
}

func TestSource_BufferLengths(t *testing.T) {
	t.Parallel()

	src := synth.New(synth.Config{TimeBins: 512, FreqBins: 256})
	if got := len(src.CaptureTimeDomain()); got != 512 {
		t.Errorf("time buffer length = %d, want 512", got)
	}
	if got := len(src.CaptureFrequencyDomain()); got != 256 {
		t.Errorf("freq buffer length = %d, want 256", got)
	}
}

func TestSource_ResumeAlwaysSucceeds(t *testing.T) {
	t.Parallel()

	src := synth.New(synth.Config{})
	if err := src.Resume(context.Background()); err != nil {
		t.Errorf("Resume: %v", err)
	}
}
