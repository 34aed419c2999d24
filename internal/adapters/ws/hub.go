// Package ws carries relay frames over websocket connections.
package ws

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/websocket"

	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/types"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/logger"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/metrics"
)

const defaultSendBuffer = 64

// client is one attached peer. send is never closed; the write pump stops on
// its own context instead, so a late Send can never panic.
type client struct {
	id    string
	conn  *websocket.Conn
	codec Codec
	send  chan []byte
}

// Hub tracks attached peers and buffers outbound frames for them.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]*client
	sendBuffer int
	logger     logger.Logger
}

// NewHub creates an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients:    make(map[string]*client),
		sendBuffer: defaultSendBuffer,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Get().Named("ws_hub")
	}
	return h
}

// Send encodes one frame with the peer's codec and buffers it. It never
// blocks: a full buffer drops the frame and returns ErrSendBufferFull.
func (h *Hub) Send(_ context.Context, connID, event string, data any) error {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		metrics.RecordFrameDropped(event)
		return fmt.Errorf("%w: %s", ErrUnknownConnection, connID)
	}

	payload, err := c.codec.Encode(types.Outbound{Event: event, Data: data})
	if err != nil {
		metrics.RecordFrameDropped(event)
		return err
	}

	select {
	case c.send <- payload:
		metrics.RecordFrameSent(event)
		return nil
	default:
		metrics.RecordFrameDropped(event)
		return fmt.Errorf("%w: %s", ErrSendBufferFull, connID)
	}
}

// Len returns the number of attached peers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) attach(id string, conn *websocket.Conn, codec Codec) *client {
	c := &client{
		id:    id,
		conn:  conn,
		codec: codec,
		send:  make(chan []byte, h.sendBuffer),
	}
	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	return c
}

func (h *Hub) detach(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
}

// closeAll starts a close handshake with every attached peer. The read pumps
// observe the close and run the normal disconnect path.
func (h *Hub) closeAll(code websocket.StatusCode, reason string) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for _, c := range h.clients {
		if c.conn != nil {
			conns = append(conns, c.conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		go func(conn *websocket.Conn) {
			_ = conn.Close(code, reason)
		}(conn)
	}
	h.logger.Info(context.Background(), "closing websocket connections", logger.Int("count", len(conns)))
}
