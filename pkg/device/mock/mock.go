// Package mock provides in-memory mock implementations of the [device.Source]
// and [device.Gate] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields that the test can set to control return values.
//
// Typical usage:
//
//	src := &mock.Source{
//	    TimeDomainFrames: [][]byte{ambient, ambient, blow},
//	    FreqDomainFrames: [][]byte{flat, flat, hiss},
//	}
//	gate := &mock.Gate{AcquireResult: src}
//	got, err := gate.Acquire(ctx, device.DefaultConstraints())
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/soffio/pkg/device"
)

// ─── Source ───────────────────────────────────────────────────────────────────

// Source is a mock implementation of [device.Source]. Each capture call
// returns the next scripted frame for its domain; when the script is
// exhausted the last frame repeats, mimicking a live analyser that keeps
// serving the most recent samples. An empty script yields nil buffers.
type Source struct {
	mu sync.Mutex

	// TimeDomainFrames is the script consumed by CaptureTimeDomain, one
	// element per call.
	TimeDomainFrames [][]byte

	// FreqDomainFrames is the script consumed by CaptureFrequencyDomain,
	// one element per call.
	FreqDomainFrames [][]byte

	// CloseError is returned by [Source.Close].
	CloseError error

	// CallCountCaptureTime records how many times CaptureTimeDomain was called.
	CallCountCaptureTime int

	// CallCountCaptureFreq records how many times CaptureFrequencyDomain was called.
	CallCountCaptureFreq int

	// CallCountClose records how many times Close was called.
	CallCountClose int
}

// CaptureTimeDomain implements [device.Source].
func (s *Source) CaptureTimeDomain() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	frame := scriptFrame(s.TimeDomainFrames, s.CallCountCaptureTime)
	s.CallCountCaptureTime++
	return frame
}

// CaptureFrequencyDomain implements [device.Source].
func (s *Source) CaptureFrequencyDomain() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	frame := scriptFrame(s.FreqDomainFrames, s.CallCountCaptureFreq)
	s.CallCountCaptureFreq++
	return frame
}

// Close implements [device.Source]. Returns CloseError.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	return s.CloseError
}

// scriptFrame returns the frame at position idx, sticking at the last
// element once the script is exhausted.
func scriptFrame(script [][]byte, idx int) []byte {
	if len(script) == 0 {
		return nil
	}
	if idx >= len(script) {
		idx = len(script) - 1
	}
	return script[idx]
}

// ─── ResumableSource ──────────────────────────────────────────────────────────

// ResumableSource is a [Source] that also implements [device.Resumer].
type ResumableSource struct {
	Source

	// ResumeError is returned by [ResumableSource.Resume].
	ResumeError error

	resumeMu        sync.Mutex
	callCountResume int
}

// Resume implements [device.Resumer]. Returns ResumeError.
func (s *ResumableSource) Resume(_ context.Context) error {
	s.resumeMu.Lock()
	defer s.resumeMu.Unlock()
	s.callCountResume++
	return s.ResumeError
}

// CallCountResume reports how many times Resume was called.
func (s *ResumableSource) CallCountResume() int {
	s.resumeMu.Lock()
	defer s.resumeMu.Unlock()
	return s.callCountResume
}

// ─── Gate ─────────────────────────────────────────────────────────────────────

// Gate is a mock implementation of [device.Gate].
// Set the exported Result fields before use; inspect the Call* fields after.
type Gate struct {
	mu sync.Mutex

	// AcquireResult is returned by [Gate.Acquire] when AcquireError is nil.
	AcquireResult device.Source

	// AcquireError, when non-nil, is returned by Acquire instead of the source.
	AcquireError error

	// CallCountAcquire records how many times Acquire was called.
	CallCountAcquire int

	// RecordedConstraints holds the constraints passed to each Acquire call,
	// in order.
	RecordedConstraints []device.Constraints
}

// Acquire implements [device.Gate].
func (g *Gate) Acquire(ctx context.Context, c device.Constraints) (device.Source, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.CallCountAcquire++
	g.RecordedConstraints = append(g.RecordedConstraints, c)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.AcquireError != nil {
		return nil, g.AcquireError
	}
	return g.AcquireResult, nil
}
