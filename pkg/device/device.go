// Package device defines the interfaces and types for audio frame-source
// connectivity within Soffio.
//
// The two primary abstractions are:
//
//   - [Gate] — acquires access to a frame source, enforcing capture constraints.
//   - [Source] — an acquired frame source delivering the most recent
//     time-domain and frequency-domain sample buffers synchronously.
//
// Implementations of these interfaces are provided by source-specific adapter
// packages (e.g., device/synth, device/wsbridge). The interfaces are
// intentionally narrow to keep the detection pipeline decoupled from capture
// details.
//
// This package lives under pkg/ because external code (third-party capture
// adapters) is expected to implement [Gate] and [Source].
package device

import (
	"context"
	"errors"
)

// ErrUnavailable is returned (wrapped) by [Gate.Acquire] when no usable frame
// source can be obtained: permission denied, no device present, constraints
// unsupported, or no capture client connected. It is an expected, recoverable
// condition — callers typically retry from a user-initiated action.
var ErrUnavailable = errors.New("device: frame source unavailable")

// Constraints describes the capture configuration requested from a frame
// source. The processing toggles exist because platform "enhancements" (echo
// cancellation, noise suppression, automatic gain) strip exactly the broadband
// hiss energy the breath classifier keys on — all three must stay disabled.
type Constraints struct {
	// Channels is the number of audio channels to capture. Soffio always
	// requests mono.
	Channels int

	// EchoCancellation requests platform echo cancellation. Must be false.
	EchoCancellation bool

	// NoiseSuppression requests platform noise suppression. Must be false.
	NoiseSuppression bool

	// AutoGainControl requests automatic gain control. Must be false.
	AutoGainControl bool

	// TimeBins is the length of the time-domain buffer the source must
	// deliver. Fixed for the lifetime of the session.
	TimeBins int

	// FreqBins is the length of the frequency-domain magnitude buffer.
	// Fixed for the lifetime of the session.
	FreqBins int
}

// DefaultConstraints returns the capture configuration Soffio requests from
// every frame source: mono, all platform processing disabled, and analyser
// buffer sizes matching a 2048-point transform.
func DefaultConstraints() Constraints {
	return Constraints{
		Channels: 1,
		TimeBins: 2048,
		FreqBins: 1024,
	}
}

// Source is an acquired audio frame source.
//
// Both capture methods return the most recent available samples synchronously
// — there is no buffering or frame queueing. Two calls made back to back may
// observe the same underlying frame; calls separated by a delivery tick
// observe strictly newer samples. The returned slices must not be mutated by
// the caller and are only valid until the next capture call.
//
// A Source is owned by a single detection session and is not required to be
// safe for concurrent use.
type Source interface {
	// CaptureTimeDomain returns the current time-domain buffer: unsigned
	// 8-bit samples with amplitude centered at 128. The length equals the
	// TimeBins constraint the source was acquired with.
	CaptureTimeDomain() []byte

	// CaptureFrequencyDomain returns the current frequency-domain magnitude
	// buffer: unsigned 8-bit bins in monotonic frequency order. The length
	// equals the FreqBins constraint.
	CaptureFrequencyDomain() []byte

	// Close releases the underlying capture resources. Calling Close more
	// than once is safe and returns nil.
	Close() error
}

// Resumer is an optional capability of a [Source]. Sources whose underlying
// platform can suspend audio processing (e.g., on backgrounding) implement it
// so the session can opportunistically resume on user interaction. Resume is
// best-effort: failure means the platform stayed suspended, not that the
// session is broken.
type Resumer interface {
	Resume(ctx context.Context) error
}

// Gate is the entry point for a frame-source provider. Acquire blocks until a
// source satisfying the constraints is available or ctx expires; on failure
// it returns an error wrapping [ErrUnavailable].
//
// Implementations must be safe for concurrent use.
type Gate interface {
	Acquire(ctx context.Context, c Constraints) (Source, error)
}

// StaticGate adapts an already-constructed [Source] into a [Gate]. Useful
// when the source exists before the session does (synthetic sources, tests).
type StaticGate struct {
	// Source is returned by every Acquire call when Err is nil.
	Source Source

	// Err, when non-nil, is returned by Acquire instead of the source.
	Err error
}

// Acquire implements [Gate].
func (g StaticGate) Acquire(ctx context.Context, _ Constraints) (Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.Err != nil {
		return nil, g.Err
	}
	return g.Source, nil
}
