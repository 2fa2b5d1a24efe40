package ws

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetsim/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetsim/internal/fleethub/registry"
	"github.com/autopeer-io/fleetsim/pkg/log"
	"github.com/autopeer-io/fleetsim/pkg/options"
)

// SnapshotSource supplies the state sent to a subscriber on admission.
type SnapshotSource interface {
	Snapshot() model.FleetSnapshot
}

// Handler upgrades HTTP requests to subscriber connections.
type Handler struct {
	source   SnapshotSource
	registry *registry.Registry
	opts     *options.WebSocketOptions
	upgrader websocket.Upgrader

	updateInterval time.Duration
	clock          clock.WithTicker
	logger         log.Logger

	mu       sync.Mutex
	closing  bool
	sessions map[*session]struct{}
	wg       sync.WaitGroup
}

// Option configures a Handler.
type Option func(*Handler)

// WithClock sets the time source for pong timestamps and keepalive pings.
func WithClock(c clock.WithTicker) Option {
	return func(h *Handler) { h.clock = c }
}

// WithUpdateInterval sets the cadence announced in the initial_data note.
func WithUpdateInterval(d time.Duration) Option {
	return func(h *Handler) { h.updateInterval = d }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// NewHandler creates a handler admitting subscribers into reg.
func NewHandler(source SnapshotSource, reg *registry.Registry, opts *options.WebSocketOptions, extra ...Option) *Handler {
	if opts == nil {
		opts = options.NewWebSocketOptions()
	}
	h := &Handler{
		source:         source,
		registry:       reg,
		opts:           opts,
		updateInterval: 3 * time.Minute,
		clock:          clock.RealClock{},
		logger:         log.WithName("ws"),
		sessions:       make(map[*session]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	for _, opt := range extra {
		opt(h)
	}
	return h
}

// IsUpgrade reports whether r asks for a WebSocket connection.
func IsUpgrade(r *http.Request) bool {
	return websocket.IsWebSocketUpgrade(r)
}

// ServeHTTP upgrades the connection and blocks until the subscriber is gone.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.isClosing() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied with an HTTP error.
		h.logger.Debug("Upgrade failed", "remote", r.RemoteAddr, "error", err.Error())
		return
	}

	sub := registry.NewSubscriber(uuid.NewString(), h.opts.QueueSize)
	sess := newSession(h, conn, sub)
	if !h.track(sess) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(h.opts.WriteWait))
		_ = conn.Close()
		return
	}

	sess.logger.Info("Subscriber connected")
	sess.run(r.Context())
}

// Shutdown closes every live session and waits for them to finish or for
// ctx to expire, whichever comes first. Sockets still open at expiry are
// closed forcibly. New connections are refused from the first call on.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	sessions := make([]*session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	h.logger.Info("Closing subscriber connections", "count", len(sessions))
	for _, s := range sessions {
		s.close(websocket.CloseGoingAway, "server shutting down")
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		for _, s := range sessions {
			_ = s.conn.Close()
		}
		return ctx.Err()
	}
}

// Len returns the number of live sessions.
func (h *Handler) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Handler) isClosing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closing
}

func (h *Handler) track(s *session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.sessions[s] = struct{}{}
	h.wg.Add(1)
	return true
}

func (h *Handler) untrack(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s]; ok {
		delete(h.sessions, s)
		h.wg.Done()
	}
}

// checkOrigin accepts every origin unless an allow-list is configured.
func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(h.opts.AllowedOrigins, r.Header.Get("Origin"))
}
