package detect

import (
	"testing"
	"time"
)

// steppingClock returns a clock function that advances by step on every call,
// starting at a fixed epoch. It makes the wall-clock calibration window fully
// deterministic in tests.
func steppingClock(step time.Duration) func() time.Time {
	epoch := time.Unix(1700000000, 0)
	calls := 0
	return func() time.Time {
		t := epoch.Add(time.Duration(calls) * step)
		calls++
		return t
	}
}

func TestCalibrator_MedianOfConstantSequence(t *testing.T) {
	t.Parallel()

	c := NewCalibrator(1200 * time.Millisecond)
	c.now = steppingClock(600 * time.Millisecond)

	// Three samples at t=0, 600ms, 1200ms; the third closes the window.
	for i := 0; i < 2; i++ {
		if c.Observe(FeaturePair{Energy: 5, Tilt: 2}) {
			t.Fatalf("window closed after %d samples, want 3", i+1)
		}
	}
	if !c.Observe(FeaturePair{Energy: 5, Tilt: 2}) {
		t.Fatal("window did not close at 1200ms")
	}

	b, ok := c.Baseline()
	if !ok {
		t.Fatal("Baseline() not available after window close")
	}
	if b.Energy != 5 || b.Tilt != 2 {
		t.Errorf("Baseline = %+v, want {Energy:5 Tilt:2}", b)
	}
}

// TestCalibrator_RobustToOutlier checks that a single transient spike during
// the window (a cough, a bump) cannot shift the median above the typical
// value.
func TestCalibrator_RobustToOutlier(t *testing.T) {
	t.Parallel()

	c := NewCalibrator(1200 * time.Millisecond)
	c.now = steppingClock(300 * time.Millisecond)

	energies := []float64{1, 1, 100, 1, 1}
	for i, e := range energies {
		done := c.Observe(FeaturePair{Energy: e, Tilt: 3})
		if done != (i == len(energies)-1) {
			t.Fatalf("Observe #%d done = %v", i+1, done)
		}
	}

	b, _ := c.Baseline()
	if b.Energy != 1 {
		t.Errorf("Baseline.Energy = %v, want 1 (median of [1,1,1,1,100])", b.Energy)
	}
}

func TestCalibrator_EvenSampleCount(t *testing.T) {
	t.Parallel()

	c := NewCalibrator(1200 * time.Millisecond)
	c.now = steppingClock(400 * time.Millisecond)

	// Four samples; the baseline is the element at index floor(4/2) = 2 of
	// the ascending sort.
	for _, e := range []float64{4, 1, 3, 2} {
		c.Observe(FeaturePair{Energy: e})
	}

	b, ok := c.Baseline()
	if !ok {
		t.Fatal("window should have closed after 1200ms of samples")
	}
	if b.Energy != 3 {
		t.Errorf("Baseline.Energy = %v, want 3", b.Energy)
	}
}

// TestCalibrator_IrregularArrival verifies that the window is wall-clock
// based: a throttled host delivering few, unevenly spaced frames still
// produces a baseline once the duration elapses.
func TestCalibrator_IrregularArrival(t *testing.T) {
	t.Parallel()

	c := NewCalibrator(1200 * time.Millisecond)
	epoch := time.Unix(1700000000, 0)
	offsets := []time.Duration{0, 50 * time.Millisecond, 1900 * time.Millisecond}
	calls := 0
	c.now = func() time.Time {
		t := epoch.Add(offsets[calls])
		calls++
		return t
	}

	if c.Observe(FeaturePair{Energy: 2}) || c.Observe(FeaturePair{Energy: 4}) {
		t.Fatal("window closed before the wall-clock duration elapsed")
	}
	if !c.Observe(FeaturePair{Energy: 6}) {
		t.Fatal("window must close on the first sample past the duration")
	}

	b, _ := c.Baseline()
	if b.Energy != 4 {
		t.Errorf("Baseline.Energy = %v, want 4", b.Energy)
	}
}

func TestCalibrator_OneShot(t *testing.T) {
	t.Parallel()

	c := NewCalibrator(1200 * time.Millisecond)
	c.now = steppingClock(1200 * time.Millisecond)

	c.Observe(FeaturePair{Energy: 5, Tilt: 2})
	if !c.Observe(FeaturePair{Energy: 5, Tilt: 2}) {
		t.Fatal("window should be closed")
	}
	before, _ := c.Baseline()

	// Further observations must not disturb the fixed baseline.
	for i := 0; i < 10; i++ {
		if !c.Observe(FeaturePair{Energy: 99, Tilt: 99}) {
			t.Fatal("Observe after close must keep reporting done")
		}
	}
	after, _ := c.Baseline()
	if before != after {
		t.Errorf("baseline mutated after window close: %+v -> %+v", before, after)
	}
}

func TestCalibrator_BeforeWindowCloses(t *testing.T) {
	t.Parallel()

	c := NewCalibrator(1200 * time.Millisecond)
	if _, ok := c.Baseline(); ok {
		t.Error("Baseline() must not be available before any samples")
	}
}

func TestMedian_Empty(t *testing.T) {
	t.Parallel()

	if got := median(nil); got != 0 {
		t.Errorf("median(nil) = %v, want 0", got)
	}
}
