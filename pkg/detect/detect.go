// Package detect implements the Soffio breath-detection pipeline.
//
// The pipeline samples a live audio frame source, extracts two scalar
// acoustic features per frame (RMS energy and high-band spectral tilt),
// calibrates a personal/environmental noise-floor baseline once per session,
// and classifies every subsequent frame as breath/blow vs ambient using
// baseline-relative thresholds with a one-way trigger latch.
//
// The stages are deliberately separable: [Extract] and [Thresholds.Classify]
// are pure functions testable against literal fixtures, [Calibrator] is a
// one-shot stateful accumulator, and [Session] owns the state machine and the
// frame cadence. A [Session] holds all mutable state — there are no
// package-level singletons, so multiple independent sessions can coexist.
//
// Detection is synchronous by design: each tick is a single bounded
// computation on already-captured buffers, making the pipeline suitable for
// low-latency use at host-native frame delivery rates.
package detect

import (
	"errors"

	"github.com/MrWong99/soffio/pkg/device"
)

// ErrDeviceUnavailable is the sentinel reported by [Session.Initialize] when
// no usable frame source could be acquired. It aliases [device.ErrUnavailable]
// so that errors.Is matches regardless of which package the caller imports.
// The condition is expected and recoverable: callers retry Initialize from a
// user-initiated action (gesture-gated acquisition).
var ErrDeviceUnavailable = device.ErrUnavailable

// timeMidpoint is the fixed center of the unsigned 8-bit time-domain samples.
const timeMidpoint = 128

// Frame is one synchronized pair of sample buffers captured at a tick.
//
// TimeDomain holds unsigned 8-bit samples with amplitude centered at 128;
// FreqDomain holds unsigned 8-bit magnitude bins in monotonic frequency
// order. Both lengths are fixed at session start. Frames are ephemeral:
// produced and consumed within one pipeline tick, never retained.
type Frame struct {
	TimeDomain []byte
	FreqDomain []byte
}

// FeaturePair holds the two scalar features extracted from one Frame.
type FeaturePair struct {
	// Energy is the RMS level of the centered, normalized time-domain
	// buffer, scaled to roughly [0, 100].
	Energy float64

	// Tilt is the mean magnitude over the high-frequency sub-band of the
	// frequency buffer, approximating [0, 255]. High tilt indicates the
	// broadband hiss characteristic of airflow.
	Tilt float64
}

// Baseline is the calibrated noise-floor reference: the median energy and
// median tilt observed during the calibration window. Once produced by a
// [Calibrator] it is never mutated for the remainder of the session.
type Baseline struct {
	Energy float64
	Tilt   float64
}

// State enumerates the detection session lifecycle. Transitions run strictly
// forward: Uncalibrated → Calibrating → Armed → Triggered. Triggered is
// terminal — no transition leaves it within a session.
type State int

const (
	// StateUncalibrated is the initial state; no frames processed yet.
	StateUncalibrated State = iota

	// StateCalibrating means the noise-floor baseline is being estimated.
	StateCalibrating

	// StateArmed means the baseline is fixed and every frame tick is
	// classified against it.
	StateArmed

	// StateTriggered means a breath was detected. Terminal.
	StateTriggered
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateUncalibrated:
		return "uncalibrated"
	case StateCalibrating:
		return "calibrating"
	case StateArmed:
		return "armed"
	case StateTriggered:
		return "triggered"
	default:
		return "unknown"
	}
}

// errSessionClosed is returned by Initialize after Close.
var errSessionClosed = errors.New("detect: session closed")
