package service

import (
	"context"
	"fmt"

	"github.com/Sarava33/snow-globe-interactive-art/internal/adapters/repository"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/model"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/normalize"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/types"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/logger"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/metrics"
)

const (
	welcomeMessage   = "Connected to Snow Globe!"
	unknownUserAgent = "Unknown"
)

// Handshake promotes an unregistered connection to a role.
type Handshake struct {
	store    repository.Store
	sender   Sender
	presence *Presence
	logger   logger.Logger
}

// NewHandshake creates a Handshake.
func NewHandshake(store repository.Store, sender Sender, presence *Presence, log logger.Logger) *Handshake {
	return &Handshake{store: store, sender: sender, presence: presence, logger: log}
}

// Register handles a register message. Rejections are answered with one error
// frame and leave the registry untouched.
func (h *Handshake) Register(ctx context.Context, id string, data map[string]any) error {
	raw := normalize.Field(data, "type")
	token, _ := raw.(string)
	role, ok := model.ParseRole(token)
	if !ok {
		h.logger.Info(ctx, "unknown registration type", logger.ConnID(id), logger.Any("type", raw))
		replyError(ctx, h.sender, h.logger, id, "unknown_registration", fmt.Sprintf(msgUnknownRegFormat, describe(raw)))
		return fmt.Errorf("%w: %v", ErrUnknownRegistration, raw)
	}

	conn, err := h.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("register %s: %w", id, err)
	}
	if conn.Role != model.RoleUnregistered {
		replyError(ctx, h.sender, h.logger, id, "already_registered", fmt.Sprintf(msgAlreadyRegFormat, conn.Role))
		return fmt.Errorf("%w: %s as %s", ErrAlreadyRegistered, id, conn.Role)
	}

	meta := conn.Meta
	if ua, ok := normalize.String(normalize.Field(data, "userAgent")); ok {
		meta.UserAgent = ua
	} else if meta.UserAgent == "" {
		meta.UserAgent = unknownUserAgent
	}

	if err := h.store.Register(ctx, id, role, meta); err != nil {
		return fmt.Errorf("register %s: %w", id, err)
	}

	switch role {
	case model.RoleController:
		total := h.store.Count(ctx, model.RoleController)
		h.logger.Info(ctx, "controller registered",
			logger.ConnID(id),
			logger.Int("controllers", total),
			logger.String("user_agent", meta.UserAgent),
			logger.String("remote_address", meta.RemoteAddress),
		)
		h.presence.ControllerConnected(ctx, id)
		reply(ctx, h.sender, h.logger, id, types.EventConnected, types.Connected{
			Message:    welcomeMessage,
			UserID:     id,
			TotalUsers: total,
		})
	case model.RoleDisplay:
		controllers := h.store.Snapshot(ctx, model.RoleController)
		h.logger.Info(ctx, "display registered",
			logger.ConnID(id),
			logger.Int("displays", h.store.Count(ctx, model.RoleDisplay)),
		)
		reply(ctx, h.sender, h.logger, id, types.EventUserCount, types.UserCount{
			Count: len(controllers),
			Users: types.NewConnectionViews(controllers),
		})
	}
	return nil
}

// CheckDeadline reports connections that never registered. It has no effect
// on the connection.
func (h *Handshake) CheckDeadline(ctx context.Context, id string) {
	conn, err := h.store.Get(ctx, id)
	if err != nil || conn.Role != model.RoleUnregistered {
		return
	}
	metrics.RecordRegistrationDeadlineMissed()
	h.logger.Warn(ctx, "connection never registered",
		logger.ConnID(id),
		logger.String("user_agent", conn.UserAgent),
		logger.String("remote_address", conn.RemoteAddress),
	)
}

// describe renders a register token the way it appears in error replies.
func describe(v any) string {
	if v == nil {
		return "undefined"
	}
	return fmt.Sprint(v)
}
