package ws

import (
	"time"

	"github.com/Sarava33/snow-globe-interactive-art/pkg/logger"
)

// HubOption applies a configuration option to the Hub.
type HubOption func(*Hub)

// WithSendBuffer sets the per-connection outbound buffer size.
func WithSendBuffer(size int) HubOption {
	return func(h *Hub) {
		if size > 0 {
			h.sendBuffer = size
		}
	}
}

// WithHubLogger sets a custom logger for the hub.
func WithHubLogger(l logger.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// HandlerOption applies a configuration option to the Handler.
type HandlerOption func(*Handler)

// WithOriginPatterns sets the origins allowed to open a websocket. "*" allows any.
func WithOriginPatterns(patterns []string) HandlerOption {
	return func(h *Handler) {
		if len(patterns) > 0 {
			h.originPatterns = patterns
		}
	}
}

// WithReadLimit caps the size of one inbound frame in bytes.
func WithReadLimit(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.readLimit = n
		}
	}
}

// WithWriteTimeout bounds each frame write.
func WithWriteTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

// WithPingInterval sets the keepalive ping period. Zero disables pings.
func WithPingInterval(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d >= 0 {
			h.pingInterval = d
		}
	}
}

// WithIDGenerator overrides how connection ids are minted.
func WithIDGenerator(fn func() string) HandlerOption {
	return func(h *Handler) {
		if fn != nil {
			h.newID = fn
		}
	}
}

// WithClock overrides the time source used for connection metadata.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// WithLogger sets a custom logger for the handler.
func WithLogger(l logger.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}
