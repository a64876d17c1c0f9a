// Package app wires all Soffio subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates the frame-source gate,
// the detection session, and the HTTP surface; Run executes the server and
// the detection pipeline under one errgroup; Shutdown tears everything down
// in order.
//
// For testing, inject doubles via functional options (WithGate, WithMetrics).
// When an option is not provided, New creates real implementations from the
// config.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/soffio/internal/config"
	"github.com/MrWong99/soffio/internal/health"
	"github.com/MrWong99/soffio/internal/observe"
	"github.com/MrWong99/soffio/pkg/detect"
	"github.com/MrWong99/soffio/pkg/device"
	"github.com/MrWong99/soffio/pkg/device/synth"
	"github.com/MrWong99/soffio/pkg/device/wsbridge"
)

// shutdownTimeout bounds the HTTP server drain during teardown.
const shutdownTimeout = 5 * time.Second

// App owns all subsystem lifetimes and orchestrates the Soffio detection
// pipeline.
type App struct {
	cfg     *config.Config
	metrics *observe.Metrics
	gate    device.Gate
	session *detect.Session
	handler http.Handler

	// Source adapters — at most one is non-nil, depending on config.
	synthSource *synth.Source
	bridge      *wsbridge.Bridge

	// calibratingSince timestamps the Calibrating entry so the Armed
	// transition can record the calibration duration.
	mu               sync.Mutex
	calibratingSince time.Time

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithGate injects a frame-source gate instead of building one from config.
func WithGate(g device.Gate) Option {
	return func(a *App) { a.gate = g }
}

// WithMetrics injects a metrics instance instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring the frame source, the detection session, and
// the HTTP surface together.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.gate == nil {
		var err error
		a.gate, err = a.buildGate(cfg.Source)
		if err != nil {
			return nil, err
		}
	}

	a.session = detect.New(a.gate, detect.Config{
		TickInterval:      cfg.Detector.TickInterval(),
		CalibrationWindow: cfg.Detector.CalibrationWindow(),
		Thresholds:        cfg.Detector.Thresholds.Thresholds(),
		Constraints:       cfg.Source.Constraints(),
		OnTriggered:       a.onTriggered,
		OnStateChange:     a.onStateChange,
		OnFrame:           a.onFrame,
	})

	a.handler = observe.Middleware(a.metrics)(a.routes())
	return a, nil
}

// buildGate constructs the frame-source adapter selected by the config.
func (a *App) buildGate(src config.SourceConfig) (device.Gate, error) {
	switch src.Name {
	case config.SourceSynth:
		a.synthSource = synth.New(synth.Config{
			TimeBins:      src.Constraints().TimeBins,
			FreqBins:      src.Constraints().FreqBins,
			AmbientEnergy: src.Synth.AmbientEnergy,
			AmbientTilt:   src.Synth.AmbientTilt,
			BlowEnergy:    src.Synth.BlowEnergy,
			BlowTilt:      src.Synth.BlowTilt,
			Seed:          src.Synth.Seed,
		})
		return device.StaticGate{Source: a.synthSource}, nil
	case config.SourceWS:
		a.bridge = wsbridge.New()
		return a.bridge, nil
	default:
		return nil, fmt.Errorf("app: unknown source kind %q", src.Name)
	}
}

// routes assembles the HTTP surface.
func (a *App) routes() http.Handler {
	mux := http.NewServeMux()

	health.New(health.DetectorChecker(a.session)).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/session", a.handleSessionState)
	mux.HandleFunc("POST /v1/session/initialize", a.handleInitialize)
	mux.HandleFunc("POST /v1/session/resume", a.handleResume)

	if a.bridge != nil {
		mux.Handle("/v1/capture", a.bridge.Handler())
	}
	if a.synthSource != nil {
		mux.HandleFunc("POST /v1/synth/blow", a.handleSynthBlow)
		mux.HandleFunc("POST /v1/synth/calm", a.handleSynthCalm)
	}
	return mux
}

// Handler returns the full HTTP handler, middleware included. Exposed for
// tests driving the surface through httptest.
func (a *App) Handler() http.Handler { return a.handler }

// Session returns the detection session owned by this App.
func (a *App) Session() *detect.Session { return a.session }

// Run starts the HTTP server and the detection pipeline and blocks until ctx
// is cancelled or a subsystem fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    a.cfg.Server.ListenAddr,
		Handler: a.handler,
	}

	g.Go(func() error {
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		a.metrics.ActiveSessions.Add(ctx, 1)
		defer a.metrics.ActiveSessions.Add(context.Background(), -1)

		err := a.session.Initialize(ctx, false)
		if errors.Is(err, detect.ErrDeviceUnavailable) {
			// Expected on platforms that demand a user gesture (or when no
			// capture client ever connects): the caller retries through
			// POST /v1/session/initialize. Not fatal.
			a.metrics.AcquireFailures.Add(ctx, 1)
			slog.Warn("frame source unavailable, waiting for user-initiated retry", "err", err)
			err = nil
		}
		if err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	})

	err := g.Wait()
	a.Shutdown()
	return err
}

// Shutdown releases the detection session and the frame source. Safe to call
// more than once.
func (a *App) Shutdown() {
	a.stopOnce.Do(func() {
		if err := a.session.Close(); err != nil {
			slog.Warn("session close failed", "err", err)
		}
		if a.bridge != nil {
			a.bridge.Close()
		}
	})
}

// ─── Session hooks ────────────────────────────────────────────────────────────

func (a *App) onTriggered() {
	a.metrics.Triggers.Add(context.Background(), 1)
}

func (a *App) onStateChange(old, next detect.State) {
	switch next {
	case detect.StateCalibrating:
		a.mu.Lock()
		a.calibratingSince = time.Now()
		a.mu.Unlock()
	case detect.StateArmed:
		a.mu.Lock()
		since := a.calibratingSince
		a.mu.Unlock()
		if old == detect.StateCalibrating && !since.IsZero() {
			a.metrics.CalibrationDuration.Record(context.Background(), time.Since(since).Seconds())
		}
	}
}

func (a *App) onFrame(_ detect.FeaturePair, st detect.State, tick time.Duration) {
	a.metrics.RecordFrame(context.Background(), st.String(), tick)
}

// ─── HTTP handlers ────────────────────────────────────────────────────────────

// sessionStatus is the JSON body served by GET /v1/session.
type sessionStatus struct {
	ID       string          `json:"id"`
	State    string          `json:"state"`
	Baseline *baselineStatus `json:"baseline,omitempty"`
}

type baselineStatus struct {
	Energy float64 `json:"energy"`
	Tilt   float64 `json:"tilt"`
}

func (a *App) handleSessionState(w http.ResponseWriter, _ *http.Request) {
	status := sessionStatus{
		ID:    a.session.ID(),
		State: a.session.State().String(),
	}
	if b, ok := a.session.Baseline(); ok {
		status.Baseline = &baselineStatus{Energy: b.Energy, Tilt: b.Tilt}
	}
	writeJSON(w, http.StatusOK, status)
}

// handleInitialize is the user-gesture retry path: the UI layer calls it from
// within a genuine user-initiated action after a failed automatic start.
func (a *App) handleInitialize(w http.ResponseWriter, r *http.Request) {
	err := a.session.Initialize(r.Context(), true)
	switch {
	case errors.Is(err, detect.ErrDeviceUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "frame source unavailable"})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		w.WriteHeader(http.StatusAccepted)
	}
}

func (a *App) handleResume(w http.ResponseWriter, _ *http.Request) {
	a.session.ResumeIfSuspended()
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleSynthBlow(w http.ResponseWriter, _ *http.Request) {
	a.synthSource.StartBlow()
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleSynthCalm(w http.ResponseWriter, _ *http.Request) {
	a.synthSource.StopBlow()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}
