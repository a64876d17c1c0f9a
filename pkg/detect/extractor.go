package detect

import "math"

// Sub-band bounds for the tilt feature, as fractions of the frequency buffer
// length. The band skips the low bins where tonal voice and music concentrate
// their energy and the topmost bins where analyser roll-off dominates, leaving
// the broadband hiss region characteristic of airflow.
const (
	tiltBandLow  = 0.35
	tiltBandHigh = 0.9
)

// Extract converts a raw frame into its feature pair. It is pure and total:
// deterministic for equal inputs, never fails, and never produces NaN for
// well-formed fixed-length buffers. Degenerate buffers (empty, or too short
// to contain a tilt sub-band) yield a zero feature rather than an error —
// a numeric edge case must never abort the pipeline.
func Extract(f Frame) FeaturePair {
	return FeaturePair{
		Energy: rmsEnergy(f.TimeDomain),
		Tilt:   bandMean(f.FreqDomain),
	}
}

// rmsEnergy computes the root-mean-square of the time-domain samples after
// centering each on the fixed midpoint and normalizing to [-1, 1], scaled by
// 100. Subtracting the midpoint first makes the measure independent of DC
// offset.
func rmsEnergy(samples []byte) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := (float64(s) - timeMidpoint) / timeMidpoint
		sum += v * v
	}
	return math.Sqrt(sum/float64(len(samples))) * 100
}

// bandMean computes the mean magnitude of the frequency bins in
// [floor(tiltBandLow·L), floor(tiltBandHigh·L)). An empty band returns 0.
func bandMean(bins []byte) float64 {
	lo := int(math.Floor(tiltBandLow * float64(len(bins))))
	hi := int(math.Floor(tiltBandHigh * float64(len(bins))))
	if hi <= lo {
		return 0
	}
	var sum float64
	for _, b := range bins[lo:hi] {
		sum += float64(b)
	}
	return sum / float64(hi-lo)
}
