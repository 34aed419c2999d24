package service

import (
	"context"

	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/types"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/logger"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/metrics"
)

// Sender delivers one server frame to one connection. Implementations must
// not block: a frame that cannot be buffered is dropped and reported as an error.
type Sender interface {
	Send(ctx context.Context, connID, event string, data any) error
}

// reply sends a frame to a single connection, logging drops at debug.
func reply(ctx context.Context, s Sender, log logger.Logger, connID, event string, data any) bool {
	if err := s.Send(ctx, connID, event, data); err != nil {
		log.Debug(ctx, "frame not delivered",
			logger.ConnID(connID),
			logger.String("event", event),
			logger.Error(err),
		)
		return false
	}
	return true
}

// replyError sends an error frame and counts it by kind.
func replyError(ctx context.Context, s Sender, log logger.Logger, connID, kind, message string) {
	metrics.RecordProtocolError(kind)
	reply(ctx, s, log, connID, types.EventError, types.Error{Message: message})
}
