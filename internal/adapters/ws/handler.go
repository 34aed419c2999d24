package ws

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/model"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/logger"
)

const (
	defaultReadLimit    = 16 << 10
	defaultWriteTimeout = 10 * time.Second
	defaultPingInterval = 30 * time.Second
	shutdownReason      = "Server shutdown"
)

// Inbound receives connection events from the transport. The relay service
// implements it.
type Inbound interface {
	Connect(ctx context.Context, id string, meta model.Meta) error
	Receive(ctx context.Context, id, event string, data map[string]any) bool
	ReceiveMalformed(ctx context.Context, id string) bool
	Disconnect(ctx context.Context, id string, cause error) error
}

// Handler upgrades HTTP requests to websocket connections and pumps frames
// between the socket and the relay.
type Handler struct {
	hub     *Hub
	inbound Inbound

	originPatterns []string
	readLimit      int64
	writeTimeout   time.Duration
	pingInterval   time.Duration
	newID          func() string
	now            func() time.Time

	mu       sync.Mutex
	closed   bool
	sessions sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc

	logger logger.Logger
}

var _ http.Handler = (*Handler)(nil)

// NewHandler creates a websocket endpoint that attaches peers to hub and
// forwards their frames to inbound.
func NewHandler(hub *Hub, inbound Inbound, opts ...HandlerOption) *Handler {
	h := &Handler{
		hub:            hub,
		inbound:        inbound,
		originPatterns: []string{"*"},
		readLimit:      defaultReadLimit,
		writeTimeout:   defaultWriteTimeout,
		pingInterval:   defaultPingInterval,
		newID:          uuid.NewString,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Get().Named("ws")
	}
	h.ctx, h.cancel = context.WithCancel(context.Background())
	return h
}

// ServeHTTP runs one websocket session until the peer goes away.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.begin() {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}
	defer h.sessions.Done()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:    []string{SubprotocolJSON, SubprotocolCBOR},
		OriginPatterns:  h.originPatterns,
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed",
			logger.String("remote_address", r.RemoteAddr),
			logger.Error(err),
		)
		return
	}

	codec, err := CodecFor(conn.Subprotocol())
	if err != nil {
		_ = conn.Close(websocket.StatusUnsupportedData, "unsupported subprotocol")
		return
	}
	conn.SetReadLimit(h.readLimit)

	id := h.newID()
	meta := model.Meta{
		ConnectedAt:   h.now(),
		RemoteAddress: remoteAddress(r),
		UserAgent:     r.UserAgent(),
		Referer:       r.Referer(),
	}
	log := h.logger.With(logger.ConnID(id))

	c := h.hub.attach(id, conn, codec)
	if err := h.inbound.Connect(r.Context(), id, meta); err != nil {
		h.hub.detach(id)
		log.Warn(r.Context(), "connection not admitted", logger.Error(err))
		_ = conn.Close(websocket.StatusTryAgainLater, "Server busy")
		return
	}

	ctx, cancel := context.WithCancel(h.ctx)
	go h.writePump(ctx, c, log)
	cause := h.readPump(ctx, c)
	cancel()

	h.hub.detach(id)
	_ = conn.CloseNow()

	if isNormalClose(cause) {
		log.Debug(r.Context(), "websocket closed", logger.String("codec", codec.Name()))
		cause = nil
	} else {
		log.Debug(r.Context(), "websocket closed with error", logger.Error(cause))
	}
	if err := h.inbound.Disconnect(context.WithoutCancel(r.Context()), id, cause); err != nil {
		log.Warn(r.Context(), "disconnect not delivered", logger.Error(err))
	}
}

// Shutdown refuses new sessions, closes live ones and waits for their
// disconnects to be delivered.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	h.hub.closeAll(websocket.StatusGoingAway, shutdownReason)

	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.cancel()
		return nil
	case <-ctx.Done():
		h.cancel()
		return errors.Join(ErrShuttingDown, ctx.Err())
	}
}

func (h *Handler) begin() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.sessions.Add(1)
	return true
}

func (h *Handler) readPump(ctx context.Context, c *client) error {
	for {
		_, payload, err := c.conn.Read(ctx)
		if err != nil {
			return err
		}

		msg, err := c.codec.Decode(payload)
		if err != nil {
			h.inbound.ReceiveMalformed(ctx, c.id)
			continue
		}
		h.inbound.Receive(ctx, c.id, msg.Event, msg.Data)
	}
}

func (h *Handler) writePump(ctx context.Context, c *client, log logger.Logger) {
	var ping <-chan time.Time
	if h.pingInterval > 0 {
		ticker := time.NewTicker(h.pingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err := c.conn.Write(wctx, c.codec.MessageType(), payload)
			cancel()
			if err != nil {
				log.Debug(ctx, "websocket write failed", logger.Error(err))
				_ = c.conn.CloseNow()
				return
			}
		case <-ping:
			pctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				log.Debug(ctx, "websocket ping failed", logger.Error(err))
				_ = c.conn.CloseNow()
				return
			}
		}
	}
}

func isNormalClose(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}

func remoteAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
