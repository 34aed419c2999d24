package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sarava33/snow-globe-interactive-art/internal/adapters/repository"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/model"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/logger"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/metrics"
)

// DefaultRegistrationTimeout is how long a connection may stay unregistered
// before it is reported.
const DefaultRegistrationTimeout = 5 * time.Second

// Lifecycle creates and retires registry records as connections come and go.
type Lifecycle struct {
	store    repository.Store
	presence *Presence
	logger   logger.Logger

	timeout  time.Duration
	deadline func(id string)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewLifecycle creates a Lifecycle. deadline is invoked from a timer goroutine
// timeout after each connect, unless the connection registers or leaves first.
func NewLifecycle(
	store repository.Store,
	presence *Presence,
	timeout time.Duration,
	deadline func(id string),
	log logger.Logger,
) *Lifecycle {
	return &Lifecycle{
		store:    store,
		presence: presence,
		logger:   log,
		timeout:  timeout,
		deadline: deadline,
		timers:   make(map[string]*time.Timer),
	}
}

// Connect records a new unregistered connection and arms its registration deadline.
func (l *Lifecycle) Connect(ctx context.Context, id string, meta model.Meta) error {
	if err := l.store.Register(ctx, id, model.RoleUnregistered, meta); err != nil {
		return fmt.Errorf("connect %s: %w", id, err)
	}
	metrics.RecordConnect()
	l.logger.Info(ctx, "client connected",
		logger.ConnID(id),
		logger.String("remote_address", orNotProvided(meta.RemoteAddress)),
		logger.String("user_agent", orNotProvided(meta.UserAgent)),
		logger.String("referer", orNotProvided(meta.Referer)),
	)

	if l.deadline != nil && l.timeout > 0 {
		l.mu.Lock()
		if old, ok := l.timers[id]; ok {
			old.Stop()
		}
		l.timers[id] = time.AfterFunc(l.timeout, func() { l.deadline(id) })
		l.mu.Unlock()
	}
	return nil
}

// Registered disarms the registration deadline for id.
func (l *Lifecycle) Registered(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.timers[id]; ok {
		t.Stop()
		delete(l.timers, id)
	}
}

// Disconnect removes id and announces departing controllers. Unknown ids are a no-op.
func (l *Lifecycle) Disconnect(ctx context.Context, id string, cause error) error {
	l.Registered(id)

	role, err := l.store.Remove(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("disconnect %s: %w", id, err)
	}
	metrics.RecordDisconnect(role.String())

	fields := []logger.Field{
		logger.ConnID(id),
		logger.String("role", role.String()),
		logger.Int("controllers", l.store.Count(ctx, model.RoleController)),
		logger.Int("displays", l.store.Count(ctx, model.RoleDisplay)),
	}
	if cause != nil {
		fields = append(fields, logger.Error(cause))
	}
	l.logger.Info(ctx, "client disconnected", fields...)

	if role == model.RoleController {
		l.presence.ControllerDisconnected(ctx, id)
	}
	return nil
}

// Close disarms every pending deadline.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, t := range l.timers {
		t.Stop()
		delete(l.timers, id)
	}
}

// pending reports how many deadlines are armed.
func (l *Lifecycle) pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers)
}

func orNotProvided(s string) string {
	if s == "" {
		return "Not provided"
	}
	return s
}
