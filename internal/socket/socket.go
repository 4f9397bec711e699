package socket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ErrNotConnected is returned by Send while the underlying connection is
// down. Messages are never queued across a disconnect; callers that need
// delivery re-request state in OnOpen.
var ErrNotConnected = errors.New("socket: not connected")

// Config holds configuration for the reconnecting socket.
type Config struct {
	URL string

	// ReconnectDelay is the fixed wait between connection attempts.
	// Defaults to 3 seconds. No backoff growth, no attempt cap.
	ReconnectDelay time.Duration

	// RetryOnCleanClose controls whether a server-initiated clean close
	// (normal closure / going away) also schedules a reconnect. Defaults
	// to false; live match pages enable it so idle disconnects resume.
	RetryOnCleanClose bool

	// Clock and Dialer default to the real implementations; tests inject
	// fakes.
	Clock  clockwork.Clock
	Dialer Dialer
}

// Callbacks are the two hooks feature code attaches to the channel. OnOpen
// fires after every successful connect, including reconnects, and is where
// initial state is re-requested. OnMessage receives each raw inbound frame;
// routing by command is the protocol router's job, not this package's.
type Callbacks struct {
	OnOpen    func(h *Handle)
	OnMessage func(data []byte)
}

// Dialer abstracts the websocket dial so tests can force failures.
type Dialer interface {
	Dial(url string) (*websocket.Conn, error)
}

type gorillaDialer struct{}

func (gorillaDialer) Dial(url string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	return conn, err
}

// Handle is the stable send-capable identity of the logical connection.
// The underlying *websocket.Conn is replaced transparently on reconnect;
// callers only ever hold the Handle.
type Handle struct {
	cfg Config
	cb  Callbacks

	mu     sync.Mutex
	conn   *websocket.Conn
	connID string
	closed bool
}

// New builds a Handle. Run must be called to connect.
func New(cfg Config, cb Callbacks) *Handle {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 3 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Dialer == nil {
		cfg.Dialer = gorillaDialer{}
	}
	return &Handle{cfg: cfg, cb: cb}
}

// Run owns the connect/read/reconnect loop and blocks until the context is
// cancelled, Close is called, or a clean close arrives with
// RetryOnCleanClose disabled.
func (h *Handle) Run(ctx context.Context) {
	for {
		if h.isClosed() || ctx.Err() != nil {
			return
		}

		conn, err := h.cfg.Dialer.Dial(h.cfg.URL)
		if err != nil {
			log.Warn().
				Err(err).
				Str("url", h.cfg.URL).
				Dur("retry_in", h.cfg.ReconnectDelay).
				Msg("websocket dial failed")
			if !h.waitForRetry(ctx) {
				return
			}
			continue
		}

		connID := uuid.New().String()
		h.attach(conn, connID)

		log.Info().
			Str("connection_id", connID).
			Str("url", h.cfg.URL).
			Msg("websocket connected")

		if h.cb.OnOpen != nil {
			h.cb.OnOpen(h)
		}

		clean := h.readLoop(conn, connID)

		// Detach before any reconnect so a stale connection can never
		// trigger a second loop or receive writes.
		h.detach(conn)
		conn.Close()

		if h.isClosed() || ctx.Err() != nil {
			log.Info().Str("connection_id", connID).Msg("websocket closed intentionally")
			return
		}
		if clean && !h.cfg.RetryOnCleanClose {
			log.Info().Str("connection_id", connID).Msg("websocket closed cleanly, not retrying")
			return
		}
		if !h.waitForRetry(ctx) {
			return
		}
	}
}

// readLoop drains inbound frames until the connection dies and reports
// whether the closure was clean.
func (h *Handle) readLoop(conn *websocket.Conn, connID string) bool {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			clean := websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
			if clean {
				log.Info().Str("connection_id", connID).Msg("websocket closed by server")
			} else {
				log.Warn().
					Err(err).
					Str("connection_id", connID).
					Msg("websocket connection lost")
			}
			return clean
		}
		if h.cb.OnMessage != nil {
			h.cb.OnMessage(data)
		}
	}
}

func (h *Handle) waitForRetry(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-h.cfg.Clock.After(h.cfg.ReconnectDelay):
		return !h.isClosed()
	}
}

// Send marshals v as a JSON text frame. While disconnected it logs a warning
// and returns ErrNotConnected; the message is dropped, not queued.
func (h *Handle) Send(v any) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conn == nil {
		log.Warn().Msg("send while disconnected, dropping message")
		return ErrNotConnected
	}
	if err := h.conn.WriteJSON(v); err != nil {
		log.Error().
			Err(err).
			Str("connection_id", h.connID).
			Msg("websocket write failed")
		return fmt.Errorf("socket: write: %w", err)
	}
	return nil
}

// Close tears the channel down intentionally: the retry loop stops and the
// current connection, if any, is closed.
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	if h.conn != nil {
		h.conn.Close()
		h.conn = nil
	}
}

// Connected reports whether a live connection is currently attached.
func (h *Handle) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn != nil
}

func (h *Handle) attach(conn *websocket.Conn, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conn = conn
	h.connID = connID
}

func (h *Handle) detach(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn == conn {
		h.conn = nil
	}
}

func (h *Handle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}
