package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	service "github.com/okian/rulcast/internal/app"
	"github.com/okian/rulcast/pkg/logger"
)

const (
	defaultPingInterval = 30 * time.Second
	defaultWriteTimeout = 10 * time.Second
	maxClientMessage    = 512
)

// StreamDependencies looks up the session to stream.
type StreamDependencies interface {
	Session(ctx context.Context, id string) (*service.Session, error)
}

// StreamOption configures a StreamHandler.
type StreamOption func(*StreamHandler)

// WithPingInterval sets how often keepalive pings are sent.
func WithPingInterval(d time.Duration) StreamOption {
	return func(h *StreamHandler) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// WithCheckOrigin overrides the upgrader's origin policy.
func WithCheckOrigin(fn func(r *http.Request) bool) StreamOption {
	return func(h *StreamHandler) {
		if fn != nil {
			h.upgrader.CheckOrigin = fn
		}
	}
}

// StreamHandler pushes session updates over a WebSocket.
//
// Each message is a JSON service.Update: the first one is the current
// snapshot, later ones are snapshots after every change and notifications.
type StreamHandler struct {
	deps         StreamDependencies
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	writeTimeout time.Duration
	logger       logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(deps StreamDependencies, opts ...StreamOption) *StreamHandler {
	h := &StreamHandler{
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		pingInterval: defaultPingInterval,
		writeTimeout: defaultWriteTimeout,
		logger:       logger.Get().Named("stream"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleStream handles GET /api/sessions/{id}/stream requests.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	sess, err := h.deps.Session(r.Context(), id)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		h.logger.Debug(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel := sess.Subscribe()
	defer cancel()

	ctx := context.WithoutCancel(r.Context())
	log := h.logger.With(logger.String("session_id", id))
	log.Debug(ctx, "stream opened")

	done := make(chan struct{})
	go h.readPump(conn, done)

	snap := sess.Snapshot(ctx)
	if err := h.write(conn, service.Update{Snapshot: &snap}); err != nil {
		return
	}

	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()

	for {
		select {
		case u, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
					time.Now().Add(h.writeTimeout))
				return
			}
			if err := h.write(conn, u); err != nil {
				log.Debug(ctx, "stream write failed", logger.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeTimeout)); err != nil {
				return
			}
		case <-done:
			log.Debug(ctx, "stream closed by client")
			return
		}
	}
}

// readPump discards client messages so control frames are processed, and
// closes done when the peer goes away.
func (h *StreamHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(maxClientMessage)
	_ = conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *StreamHandler) write(conn *websocket.Conn, u service.Update) error {
	_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	return conn.WriteJSON(u)
}
