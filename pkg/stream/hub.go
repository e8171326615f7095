// Package stream fans out every rendered frame to websocket clients. A Hub is
// a scheduler.Renderer: each tick is encoded once and offered to every
// connected client without blocking the scheduler.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/germanamz/turtles/pkg/registry"
)

// DefaultBuffer is the number of frames queued per client before new frames
// are dropped for it.
const DefaultBuffer = 4

// ErrClosed is returned by Render after Close.
var ErrClosed = errors.New("stream: hub closed")

const writeTimeout = 5 * time.Second

type client struct {
	frames chan []byte
}

// Option configures a Hub.
type Option func(*Hub)

// WithBuffer sets the per-client frame queue length.
func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithLogger sets the logger for connection events.
func WithLogger(log *slog.Logger) Option {
	return func(h *Hub) { h.log = log }
}

// WithOriginPatterns allows cross-origin browser clients matching patterns.
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Hub) { h.origins = patterns }
}

// Hub is safe for concurrent use.
type Hub struct {
	buffer  int
	origins []string
	log     *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	done    chan struct{}

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// NewHub creates a Hub with no clients.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		buffer:  DefaultBuffer,
		log:     slog.New(slog.DiscardHandler),
		clients: make(map[*client]struct{}),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Render implements scheduler.Renderer. A client whose queue is full misses
// this frame.
func (h *Hub) Render(_ context.Context, f registry.Frame) error {
	b, err := json.Marshal(NewFrameMessage(f))
	if err != nil {
		return fmt.Errorf("stream: encode frame %d: %w", f.Generation, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}

	for c := range h.clients {
		select {
		case c.frames <- b:
			h.sent.Add(1)
		default:
			h.dropped.Add(1)
		}
	}

	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Sent returns the number of frames queued for delivery across all clients.
func (h *Hub) Sent() uint64 { return h.sent.Load() }

// Dropped returns the number of frames skipped because a client was behind.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Close disconnects every client. Subsequent renders fail with ErrClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.closed {
		h.closed = true
		close(h.done)
	}
}

// Handler returns an http.Handler serving GET /frames.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /frames", h)
	return mux
}

// ServeHTTP upgrades the request and streams frames until the client goes
// away or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		h.log.Warn("stream: accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.CloseNow() //nolint:errcheck // best-effort after a clean close

	c, ok := h.register()
	if !ok {
		conn.Close(websocket.StatusGoingAway, "hub closed") //nolint:errcheck // closing anyway
		return
	}
	defer h.unregister(c)

	h.log.Info("stream: client connected", "remote", r.RemoteAddr)

	// Clients only listen; CloseRead handles their control frames and cancels
	// ctx once they disconnect.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			h.log.Info("stream: client disconnected", "remote", r.RemoteAddr)
			return
		case <-h.done:
			conn.Close(websocket.StatusGoingAway, "hub closed") //nolint:errcheck // closing anyway
			return
		case b := <-c.frames:
			if err := write(ctx, conn, b); err != nil {
				h.log.Info("stream: write failed", "remote", r.RemoteAddr, "error", err)
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, b []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, b)
}

func (h *Hub) register() (*client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, false
	}

	c := &client{frames: make(chan []byte, h.buffer)}
	h.clients[c] = struct{}{}
	return c, true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}
