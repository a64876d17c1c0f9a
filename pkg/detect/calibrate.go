package detect

import (
	"sort"
	"time"
)

// DefaultCalibrationWindow is the wall-clock duration of the noise-floor
// calibration phase, measured from the first observed frame.
const DefaultCalibrationWindow = 1200 * time.Millisecond

// Calibrator estimates the noise-floor [Baseline] from the frames delivered
// during a fixed wall-clock window. It is stateful and one-shot: it produces
// exactly one Baseline per session and is never reused.
//
// The window is wall-clock rather than sample-count based because frame
// delivery may be throttled by the host — the number of samples collected is
// environment-dependent and unbounded above. The baseline is the per-feature
// median of the collected samples, which keeps a transient spike during the
// window (a cough, a bump against the microphone) from contaminating the
// estimate the way a mean would.
//
// Not safe for concurrent use; a Calibrator is driven by a single session
// loop.
type Calibrator struct {
	window   time.Duration
	now      func() time.Time
	start    time.Time
	energies []float64
	tilts    []float64
	baseline Baseline
	done     bool
}

// NewCalibrator creates a Calibrator that closes its window the given
// duration after the first observed frame. A non-positive window is replaced
// by [DefaultCalibrationWindow].
func NewCalibrator(window time.Duration) *Calibrator {
	if window <= 0 {
		window = DefaultCalibrationWindow
	}
	return &Calibrator{
		window: window,
		now:    time.Now,
	}
}

// Observe records one feature pair and reports whether the calibration window
// has closed. The first call starts the wall-clock window. Sample arrival may
// be arbitrarily irregular; Observe only compares elapsed time. Once the
// window closes the baseline is fixed and further calls are no-ops returning
// true.
func (c *Calibrator) Observe(p FeaturePair) bool {
	if c.done {
		return true
	}
	t := c.now()
	if c.start.IsZero() {
		c.start = t
	}
	c.energies = append(c.energies, p.Energy)
	c.tilts = append(c.tilts, p.Tilt)

	if t.Sub(c.start) >= c.window {
		c.baseline = Baseline{
			Energy: median(c.energies),
			Tilt:   median(c.tilts),
		}
		c.energies, c.tilts = nil, nil
		c.done = true
	}
	return c.done
}

// Baseline returns the calibrated baseline. The boolean is false until the
// window has closed.
func (c *Calibrator) Baseline() (Baseline, bool) {
	return c.baseline, c.done
}

// median returns the element at index floor(n/2) of the ascending sort of
// samples, or 0 for an empty slice. The slice is sorted in place.
func median(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sort.Float64s(samples)
	return samples[len(samples)/2]
}
