package service

import (
	"context"

	"github.com/Sarava33/snow-globe-interactive-art/internal/adapters/repository"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/model"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/types"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/logger"
)

// Presence fans frames out to every current display.
type Presence struct {
	store  repository.Store
	sender Sender
	logger logger.Logger
}

// NewPresence creates a Presence notifier.
func NewPresence(store repository.Store, sender Sender, log logger.Logger) *Presence {
	return &Presence{store: store, sender: sender, logger: log}
}

// Broadcast sends one frame to every display and returns how many buffered it.
// Displays that cannot take the frame are skipped.
func (p *Presence) Broadcast(ctx context.Context, event string, data any) int {
	delivered := 0
	for _, d := range p.store.Snapshot(ctx, model.RoleDisplay) {
		if reply(ctx, p.sender, p.logger, d.ID, event, data) {
			delivered++
		}
	}
	return delivered
}

// ControllerConnected announces a newly registered controller.
func (p *Presence) ControllerConnected(ctx context.Context, id string) {
	total := p.store.Count(ctx, model.RoleController)
	n := p.Broadcast(ctx, types.EventUserConnected, types.UserPresence{UserID: id, TotalUsers: total})
	p.logger.Debug(ctx, "controller announced", logger.ConnID(id), logger.Int("displays", n))
}

// ControllerDisconnected announces a removed controller. Call after removal so
// the total reflects the remaining controllers.
func (p *Presence) ControllerDisconnected(ctx context.Context, id string) {
	total := p.store.Count(ctx, model.RoleController)
	n := p.Broadcast(ctx, types.EventUserDisconnected, types.UserPresence{UserID: id, TotalUsers: total})
	p.logger.Debug(ctx, "controller departure announced", logger.ConnID(id), logger.Int("displays", n))
}
