package detect

// Thresholds holds the classifier's calibration-relative offsets and absolute
// floors. All values are in the same units as the features they compare
// against: tilt offsets in magnitude bins (≈[0,255]), energy offsets in RMS
// points (≈[0,100]).
//
// The floors keep sensitivity usable when the baseline is near zero (a silent
// room) and bounded when the baseline is already noisy. [DefaultThresholds]
// returns the tuned production values; deviate only with measurement data.
type Thresholds struct {
	// HissTiltDelta is the tilt rise over baseline that fires the
	// strong-hiss trigger on its own, regardless of loudness. Covers soft
	// close-microphone blows that raise hiss-band energy without a large
	// RMS swing.
	HissTiltDelta float64

	// CombinedTiltDelta is the tilt rise over baseline required by the
	// combined trigger.
	CombinedTiltDelta float64

	// CombinedTiltFloor is the absolute minimum tilt the combined trigger
	// requires, whatever the baseline.
	CombinedTiltFloor float64

	// EnergyDelta is the energy rise over baseline required by the combined
	// trigger's primary loudness condition.
	EnergyDelta float64

	// EnergyFloor is the absolute minimum energy for the primary loudness
	// condition.
	EnergyFloor float64

	// EnergySurgeDelta is the larger baseline-relative energy rise that
	// satisfies the combined trigger's loudness condition with no floor,
	// catching loud blows over an already-elevated baseline.
	EnergySurgeDelta float64
}

// DefaultThresholds returns the production classifier constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HissTiltDelta:     18,
		CombinedTiltDelta: 6,
		CombinedTiltFloor: 14,
		EnergyDelta:       5,
		EnergyFloor:       10,
		EnergySurgeDelta:  12,
	}
}

// Classify reports whether the feature pair indicates a breath/blow relative
// to the calibrated baseline. It is a pure function of its inputs: no state,
// no side effects, deterministic — the trigger latch lives in [Session], not
// here. The decision is a disjunction of two independent triggers:
//
//  1. Strong-hiss: tilt exceeds baseline tilt by HissTiltDelta. Airflow noise
//     alone, loudness ignored.
//  2. Combined: tilt exceeds max(baseline+CombinedTiltDelta, CombinedTiltFloor)
//     and energy exceeds either max(baseline+EnergyDelta, EnergyFloor) or
//     baseline+EnergySurgeDelta.
//
// Increasing tilt with everything else held fixed can only move the result
// from false to true, never back.
func (t Thresholds) Classify(f FeaturePair, b Baseline) bool {
	if f.Tilt > b.Tilt+t.HissTiltDelta {
		return true
	}
	tiltGate := max(b.Tilt+t.CombinedTiltDelta, t.CombinedTiltFloor)
	if f.Tilt <= tiltGate {
		return false
	}
	return f.Energy > max(b.Energy+t.EnergyDelta, t.EnergyFloor) ||
		f.Energy > b.Energy+t.EnergySurgeDelta
}
