// Package synth provides a deterministic synthetic frame source for demos and
// end-to-end tests.
//
// The source generates ambient frames around a configurable noise floor and
// can be switched into "blow" mode, where the time-domain swing and the
// hiss-band magnitudes rise the way a real breath raises them on an analyser.
// With a fixed seed the generated frames are fully reproducible.
package synth

import (
	"context"
	"math/rand"
	"sync"

	"github.com/MrWong99/soffio/pkg/device"
)

// Compile-time assertions that Source satisfies the device contracts.
var (
	_ device.Source  = (*Source)(nil)
	_ device.Resumer = (*Source)(nil)
)

// Config holds the synthetic source parameters.
type Config struct {
	// TimeBins is the time-domain buffer length. Default 2048.
	TimeBins int

	// FreqBins is the frequency-domain buffer length. Default 1024.
	FreqBins int

	// AmbientEnergy is the approximate RMS energy (0–100 scale) of ambient
	// frames. Default 2.
	AmbientEnergy float64

	// AmbientTilt is the approximate hiss-band magnitude (0–255 scale) of
	// ambient frames. Default 3.
	AmbientTilt float64

	// BlowEnergy is the approximate RMS energy of blow frames. Default 15.
	BlowEnergy float64

	// BlowTilt is the approximate hiss-band magnitude of blow frames.
	// Default 25.
	BlowTilt float64

	// Seed seeds the jitter generator. The same seed reproduces the same
	// frame sequence.
	Seed int64
}

func (c *Config) applyDefaults() {
	if c.TimeBins <= 0 {
		c.TimeBins = 2048
	}
	if c.FreqBins <= 0 {
		c.FreqBins = 1024
	}
	if c.AmbientEnergy <= 0 {
		c.AmbientEnergy = 2
	}
	if c.AmbientTilt <= 0 {
		c.AmbientTilt = 3
	}
	if c.BlowEnergy <= 0 {
		c.BlowEnergy = 15
	}
	if c.BlowTilt <= 0 {
		c.BlowTilt = 25
	}
}

// Source is a synthetic [device.Source]. Safe for concurrent use.
type Source struct {
	mu      sync.Mutex
	cfg     Config
	rng     *rand.Rand
	blowing bool
	closed  bool
}

// New creates a synthetic source from cfg, applying defaults for zero fields.
func New(cfg Config) *Source {
	cfg.applyDefaults()
	return &Source{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// StartBlow switches the source to blow-like frames.
func (s *Source) StartBlow() {
	s.mu.Lock()
	s.blowing = true
	s.mu.Unlock()
}

// StopBlow switches the source back to ambient frames.
func (s *Source) StopBlow() {
	s.mu.Lock()
	s.blowing = false
	s.mu.Unlock()
}

// CaptureTimeDomain implements [device.Source]. Samples alternate around the
// 128 midpoint with a deviation chosen so the extracted RMS energy lands on
// the configured level, plus one sample of jitter.
func (s *Source) CaptureTimeDomain() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	energy := s.cfg.AmbientEnergy
	if s.blowing {
		energy = s.cfg.BlowEnergy
	}
	// energy = dev/128*100, inverted for the target deviation.
	dev := energy * 128 / 100
	buf := make([]byte, s.cfg.TimeBins)
	for i := range buf {
		d := dev + s.rng.Float64() - 0.5
		if d < 0 {
			d = 0
		}
		if i%2 == 0 {
			buf[i] = clampByte(128 + d)
		} else {
			buf[i] = clampByte(128 - d)
		}
	}
	return buf
}

// CaptureFrequencyDomain implements [device.Source]. The hiss sub-band holds
// the configured tilt level with jitter; the bins below it carry more energy
// (as tonal room noise does) and the topmost bins roll off to zero.
func (s *Source) CaptureFrequencyDomain() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	tilt := s.cfg.AmbientTilt
	if s.blowing {
		tilt = s.cfg.BlowTilt
	}
	n := s.cfg.FreqBins
	lowEnd := int(0.35 * float64(n))
	highEnd := int(0.9 * float64(n))
	buf := make([]byte, n)
	for i := range buf {
		switch {
		case i < lowEnd:
			buf[i] = clampByte(tilt*2 + s.rng.Float64()*2)
		case i < highEnd:
			buf[i] = clampByte(tilt + s.rng.Float64() - 0.5)
		default:
			buf[i] = 0
		}
	}
	return buf
}

// Resume implements [device.Resumer]. The synthetic source never suspends, so
// resuming always succeeds.
func (s *Source) Resume(_ context.Context) error {
	return nil
}

// Close implements [device.Source].
func (s *Source) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func clampByte(v float64) byte {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return byte(v)
}
