package service

import (
	"context"
	"time"

	"github.com/Sarava33/snow-globe-interactive-art/internal/adapters/repository"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/model"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/types"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/logger"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/metrics"
)

// DefaultStatsInterval is the period of the stats broadcast.
const DefaultStatsInterval = 30 * time.Second

// StatsPublisher broadcasts live registry sizes to displays.
type StatsPublisher struct {
	store    repository.Store
	presence *Presence
	now      func() time.Time
	logger   logger.Logger
}

// NewStatsPublisher creates a StatsPublisher.
func NewStatsPublisher(store repository.Store, presence *Presence, now func() time.Time, log logger.Logger) *StatsPublisher {
	return &StatsPublisher{store: store, presence: presence, now: now, logger: log}
}

// Snapshot reads the current counts without broadcasting.
func (p *StatsPublisher) Snapshot(ctx context.Context) types.Stats {
	return types.Stats{
		ConnectedControllers: p.store.Count(ctx, model.RoleController),
		ConnectedDisplays:    p.store.Count(ctx, model.RoleDisplay),
		Timestamp:            types.Timestamp(p.now()),
	}
}

// Publish broadcasts one stats frame to every display and returns it.
func (p *StatsPublisher) Publish(ctx context.Context) types.Stats {
	stats := p.Snapshot(ctx)
	p.presence.Broadcast(ctx, types.EventStats, stats)
	metrics.RecordStatsPublished()
	p.logger.Info(ctx, "server stats",
		logger.Int("controllers", stats.ConnectedControllers),
		logger.Int("displays", stats.ConnectedDisplays),
	)
	return stats
}

// Run calls tick every interval until ctx is done. The first tick happens one
// interval after Run starts.
func (p *StatsPublisher) Run(ctx context.Context, interval time.Duration, tick func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick(ctx)
		}
	}
}
