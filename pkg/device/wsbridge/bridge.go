// Package wsbridge adapts a remote capture client into a [device.Source].
//
// The UI layer that owns the real microphone (and the user-gesture permission
// dance) connects to the bridge's WebSocket endpoint and streams analyser
// frames as msgpack-encoded binary messages. The bridge retains only the most
// recent frame — there is no buffering across ticks, so a capture call always
// reads the live client state.
//
// The bridge implements both [device.Gate] (Acquire blocks until the first
// frame arrives) and [device.Source] (captures return the retained buffers).
package wsbridge

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/MrWong99/soffio/pkg/device"
)

// Compile-time assertions that Bridge satisfies the device contracts.
var (
	_ device.Gate   = (*Bridge)(nil)
	_ device.Source = (*Bridge)(nil)
)

// frameMessage is the wire format streamed by capture clients: one msgpack
// map per frame with the two analyser buffers.
type frameMessage struct {
	TimeDomain []byte `msgpack:"t"`
	FreqDomain []byte `msgpack:"f"`
}

// Option is a functional option for configuring a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger used for client lifecycle events.
// Default: [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(b *Bridge) { b.log = log }
}

// Bridge receives frames from at most one capture client at a time and
// serves the most recent one. Safe for concurrent use.
type Bridge struct {
	log *slog.Logger

	mu     sync.Mutex
	latest frameMessage
	have   bool
	ready  chan struct{}
	closed bool
}

// New creates an empty Bridge. Mount [Bridge.Handler] on an HTTP server and
// pass the Bridge as the [device.Gate] of a detection session.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		log:   slog.Default(),
		ready: make(chan struct{}),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Handler returns the WebSocket endpoint capture clients connect to. Each
// binary message must be one msgpack [frameMessage]. A malformed message
// closes the connection with an unsupported-data status; the client is
// expected to reconnect.
func (b *Bridge) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			b.log.Warn("capture client accept failed", "err", err)
			return
		}
		defer conn.CloseNow()

		b.log.Info("capture client connected", "remote", r.RemoteAddr)
		b.readFrames(r.Context(), conn)
		b.log.Info("capture client disconnected", "remote", r.RemoteAddr)
	})
}

// readFrames consumes frame messages until the connection drops, the request
// context ends, or the bridge is closed.
func (b *Bridge) readFrames(ctx context.Context, conn *websocket.Conn) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageBinary {
			conn.Close(websocket.StatusUnsupportedData, "expected binary msgpack frames")
			return
		}

		var msg frameMessage
		if err := msgpack.Unmarshal(data, &msg); err != nil {
			b.log.Warn("dropping malformed frame", "err", err)
			conn.Close(websocket.StatusUnsupportedData, "malformed msgpack frame")
			return
		}

		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			conn.Close(websocket.StatusGoingAway, "bridge closed")
			return
		}
		b.latest = msg
		if !b.have {
			b.have = true
			close(b.ready)
		}
		b.mu.Unlock()
	}
}

// Acquire implements [device.Gate]. It blocks until the first frame from a
// capture client arrives or ctx expires; expiry maps to
// [device.ErrUnavailable] so callers can fall back to a gesture-gated retry.
func (b *Bridge) Acquire(ctx context.Context, _ device.Constraints) (device.Source, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, fmt.Errorf("wsbridge: bridge closed: %w", device.ErrUnavailable)
	}
	ready := b.ready
	b.mu.Unlock()

	select {
	case <-ready:
		return b, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("wsbridge: no capture client: %w", device.ErrUnavailable)
	}
}

// CaptureTimeDomain implements [device.Source].
func (b *Bridge) CaptureTimeDomain() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest.TimeDomain
}

// CaptureFrequencyDomain implements [device.Source].
func (b *Bridge) CaptureFrequencyDomain() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest.FreqDomain
}

// Close implements [device.Source]. Connected clients are disconnected on
// their next frame; pending Acquire calls keep waiting until their context
// expires. Safe to call more than once.
func (b *Bridge) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}
