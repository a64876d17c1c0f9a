package detect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/soffio/pkg/device"
)

// DefaultTickInterval is the fallback frame cadence when the config leaves it
// unset. It approximates a 60 Hz display-refresh delivery rate, but nothing
// in the pipeline assumes the rate is fixed — the loop re-arms its own timer
// after each tick, so a slower or irregular cadence only stretches the
// calibration sample count, never the correctness.
const DefaultTickInterval = 16 * time.Millisecond

// resumeTimeout bounds the opportunistic resume attempt in
// [Session.ResumeIfSuspended].
const resumeTimeout = time.Second

// Config holds the parameters and consumer hooks for a [Session].
// The zero value is usable: every field has a sensible default.
type Config struct {
	// TickInterval is the frame cadence. Default: [DefaultTickInterval].
	TickInterval time.Duration

	// CalibrationWindow is the wall-clock length of the calibration phase.
	// Default: [DefaultCalibrationWindow].
	CalibrationWindow time.Duration

	// Thresholds are the classifier constants. The zero value is replaced by
	// [DefaultThresholds].
	Thresholds Thresholds

	// Constraints is the capture configuration requested from the gate.
	// The zero value is replaced by [device.DefaultConstraints].
	Constraints device.Constraints

	// OnTriggered is invoked exactly once per session, at the Armed →
	// Triggered transition. Called from the session loop goroutine — must
	// not block.
	OnTriggered func()

	// OnStateChange, when non-nil, is invoked on every state transition.
	// Called from the goroutine performing the transition — must not block.
	OnStateChange func(old, new State)

	// OnFrame, when non-nil, is invoked after every processed frame with the
	// extracted features, the state the frame was processed in, and the time
	// the tick's computation took. Intended for metrics. Must not block.
	OnFrame func(p FeaturePair, s State, tick time.Duration)

	// Logger is used for session lifecycle logging. Default: [slog.Default].
	Logger *slog.Logger
}

// Session owns one complete detection run: the frame source, the calibrator,
// the baseline, and the state machine. Construct one per session with [New];
// there is no shared package state.
//
// All exported methods are safe for concurrent use. The pipeline itself runs
// on a single goroutine: acquisition, extraction, calibration, and
// classification are strictly sequential, so features for frame N are always
// computed from samples captured after those for frame N-1 and the baseline
// needs no locking on the hot path.
type Session struct {
	id   string
	gate device.Gate
	cfg  Config
	log  *slog.Logger

	mu           sync.Mutex
	state        State
	baseline     Baseline
	calibrated   bool
	source       device.Source
	cancel       context.CancelFunc
	loopDone     chan struct{}
	initializing bool
	closed       bool
}

// New creates a Session that will acquire its frame source from gate.
// The session starts in [StateUncalibrated]; call [Session.Initialize] to
// begin.
func New(gate device.Gate, cfg Config) *Session {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.CalibrationWindow <= 0 {
		cfg.CalibrationWindow = DefaultCalibrationWindow
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	if cfg.Constraints == (device.Constraints{}) {
		cfg.Constraints = device.DefaultConstraints()
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	id := uuid.NewString()
	return &Session{
		id:   id,
		gate: gate,
		cfg:  cfg,
		log:  log.With("session_id", id),
	}
}

// ID returns the unique identifier of this session.
func (s *Session) ID() string { return s.id }

// State returns the current detector state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Baseline returns the calibrated noise-floor baseline. The boolean is false
// until calibration has completed.
func (s *Session) Baseline() (Baseline, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseline, s.calibrated
}

// Initialize acquires a frame source and starts the pipeline: calibration,
// then armed classification on every tick. ctx governs the acquisition
// attempt only; once started, the pipeline runs until it triggers or
// [Session.Close] is called.
//
// Initialize is re-entrant. When acquisition fails — typically with
// [ErrDeviceUnavailable] because the platform wants a user gesture before
// granting device access — the session stays Uncalibrated and the caller may
// invoke Initialize again from within a genuine user-initiated action,
// signalled via fromUserAction. Calling Initialize while the pipeline is
// already running is a no-op.
func (s *Session) Initialize(ctx context.Context, fromUserAction bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errSessionClosed
	}
	if s.state != StateUncalibrated || s.initializing {
		s.mu.Unlock()
		return nil
	}
	s.initializing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.initializing = false
		s.mu.Unlock()
	}()

	src, err := s.gate.Acquire(ctx, s.cfg.Constraints)
	if err != nil {
		s.log.Warn("frame source acquisition failed",
			"from_user_action", fromUserAction,
			"err", err,
		)
		return fmt.Errorf("detect: acquire frame source: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		src.Close()
		return errSessionClosed
	}
	s.source = src
	s.cancel = cancel
	s.loopDone = make(chan struct{})
	s.mu.Unlock()

	s.setState(StateCalibrating)
	s.log.Info("frame source acquired, calibrating",
		"from_user_action", fromUserAction,
		"calibration_window", s.cfg.CalibrationWindow,
	)

	go s.run(loopCtx, src)
	return nil
}

// run is the acquisition loop: one goroutine, one self re-arming timer. Each
// tick reads the live source state, extracts features, and feeds either the
// calibrator or the classifier. The timer is re-armed only after the tick's
// work completes, so the cadence is self-sustaining and survives arbitrary
// host throttling.
func (s *Session) run(ctx context.Context, src device.Source) {
	defer close(s.loopDone)

	cal := NewCalibrator(s.cfg.CalibrationWindow)
	timer := time.NewTimer(s.cfg.TickInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		start := time.Now()
		frame := Frame{
			TimeDomain: src.CaptureTimeDomain(),
			FreqDomain: src.CaptureFrequencyDomain(),
		}
		features := Extract(frame)
		state := s.State()

		switch state {
		case StateCalibrating:
			if cal.Observe(features) {
				b, _ := cal.Baseline()
				s.setBaseline(b)
				s.setState(StateArmed)
				s.log.Info("calibration complete, armed",
					"baseline_energy", b.Energy,
					"baseline_tilt", b.Tilt,
				)
			}
		case StateArmed:
			if s.cfg.Thresholds.Classify(features, s.baselineValue()) {
				s.frameHook(features, state, time.Since(start))
				s.trigger(features)
				// Stop ticking: the latch is terminal, so continuing would
				// only burn cycles on guarded no-ops.
				return
			}
		}

		s.frameHook(features, state, time.Since(start))
		timer.Reset(s.cfg.TickInterval)
	}
}

// trigger performs the one-way Armed → Triggered transition and fires the
// consumer notification. The latch guarantees OnTriggered runs at most once
// per session no matter how the loop behaves afterwards.
func (s *Session) trigger(features FeaturePair) {
	s.mu.Lock()
	if s.state == StateTriggered {
		s.mu.Unlock()
		return
	}
	old := s.state
	s.state = StateTriggered
	s.mu.Unlock()

	s.log.Info("breath detected",
		"energy", features.Energy,
		"tilt", features.Tilt,
	)
	if s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(old, StateTriggered)
	}
	if s.cfg.OnTriggered != nil {
		s.cfg.OnTriggered()
	}
}

// ResumeIfSuspended opportunistically asks the frame source to resume
// platform-level audio processing (e.g., after backgrounding). It is
// idempotent and safe to call in any state; failures are swallowed because
// resuming is best-effort, not guaranteed. Callers typically invoke it on
// every user interaction.
func (s *Session) ResumeIfSuspended() {
	s.mu.Lock()
	src := s.source
	s.mu.Unlock()

	r, ok := src.(device.Resumer)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), resumeTimeout)
	defer cancel()
	if err := r.Resume(ctx); err != nil {
		s.log.Debug("resume attempt failed", "err", err)
	}
}

// Close tears the session down: cancels any pending tick and releases the
// frame source. Safe to call more than once; subsequent calls are no-ops and
// return nil.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	src := s.source
	done := s.loopDone
	s.source = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	if src != nil {
		return src.Close()
	}
	return nil
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	old := s.state
	s.state = st
	s.mu.Unlock()
	if old != st && s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(old, st)
	}
}

func (s *Session) setBaseline(b Baseline) {
	s.mu.Lock()
	s.baseline = b
	s.calibrated = true
	s.mu.Unlock()
}

func (s *Session) baselineValue() Baseline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseline
}

func (s *Session) frameHook(p FeaturePair, st State, tick time.Duration) {
	if s.cfg.OnFrame != nil {
		s.cfg.OnFrame(p, st, tick)
	}
}
