package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Sarava33/snow-globe-interactive-art/internal/adapters/repository"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/model"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/normalize"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/throttle"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/types"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/logger"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/metrics"
)

// Intensity bounds for accepted shakes.
const (
	minIntensity     = 1
	maxIntensity     = 10
	defaultIntensity = 1
)

// DefaultMotionThreshold is the totalAcceleration a sample must exceed to be forwarded.
const DefaultMotionThreshold = 15.0

// Router validates, throttles and fans out controller events.
type Router struct {
	store           repository.Store
	sender          Sender
	presence        *Presence
	throttle        *throttle.Throttle
	motionThreshold float64
	now             func() time.Time
	logger          logger.Logger
}

// NewRouter creates a Router.
func NewRouter(
	store repository.Store,
	sender Sender,
	presence *Presence,
	th *throttle.Throttle,
	motionThreshold float64,
	now func() time.Time,
	log logger.Logger,
) *Router {
	return &Router{
		store:           store,
		sender:          sender,
		presence:        presence,
		throttle:        th,
		motionThreshold: motionThreshold,
		now:             now,
		logger:          log,
	}
}

// Shake handles a shake message from id.
func (r *Router) Shake(ctx context.Context, id string, data map[string]any) error {
	conn, err := r.store.Get(ctx, id)
	if err != nil || conn.Role != model.RoleController {
		metrics.RecordShake(metrics.ShakeUnregistered)
		replyError(ctx, r.sender, r.logger, id, "not_controller", msgNotController)
		return fmt.Errorf("%w: %s", ErrNotController, id)
	}

	ts := normalize.Field(data, "timestamp")
	if !normalize.Present(ts) ||
		!normalize.Present(normalize.Field(data, "intensity")) ||
		!normalize.Present(normalize.Field(data, "acceleration")) {
		metrics.RecordShake(metrics.ShakeInvalid)
		replyError(ctx, r.sender, r.logger, id, "invalid_shake", msgInvalidShake)
		return fmt.Errorf("%w: %s", ErrInvalidShake, id)
	}

	now := r.now()
	elapsed, ok := r.throttle.Allow(conn.LastShake, now)
	if !ok {
		metrics.RecordShake(metrics.ShakeRateLimited)
		r.logger.Debug(ctx, "shake rate limited", logger.ConnID(id), logger.Duration("elapsed", elapsed))
		return fmt.Errorf("%w: %s after %s", ErrRateLimited, id, elapsed)
	}

	shake := normalizeShake(id, data, now)
	if err := r.store.SetLastShake(ctx, id, shake); err != nil {
		return fmt.Errorf("record shake %s: %w", id, err)
	}

	n := r.presence.Broadcast(ctx, types.EventShake, types.NewShake(shake))
	reply(ctx, r.sender, r.logger, id, types.EventShakeConfirmed, types.NewShakeConfirmed(shake))

	metrics.RecordShake(metrics.ShakeAccepted)
	fields := []logger.Field{
		logger.ConnID(id),
		logger.Any("shake_number", shake.ShakeNumber),
		logger.Int("intensity", shake.Intensity),
		logger.Float64("acceleration", shake.Acceleration),
		logger.Int("displays", n),
	}
	if sent, ok := normalize.Instant(shake.Timestamp); ok {
		fields = append(fields, logger.Duration("client_lag", now.Sub(sent)))
	}
	r.logger.Info(ctx, "shake accepted", fields...)
	return nil
}

// Motion handles a motion sample from id. Nothing is ever sent back to the sender.
func (r *Router) Motion(ctx context.Context, id string, data map[string]any) error {
	conn, err := r.store.Get(ctx, id)
	if err != nil || conn.Role != model.RoleController {
		metrics.RecordMotion(metrics.MotionUnregistered)
		return fmt.Errorf("%w: %s", ErrNotController, id)
	}

	total := normalize.Float(normalize.Field(data, "totalAcceleration"), 0)
	if total <= r.motionThreshold {
		metrics.RecordMotion(metrics.MotionBelowLimit)
		return nil
	}

	ts := normalize.Field(data, "timestamp")
	if !normalize.Present(ts) {
		ts = types.Timestamp(r.now())
	}
	sample := model.MotionSample{
		UserID:            id,
		TotalAcceleration: total,
		X:                 normalize.Float(normalize.Field(data, "x"), 0),
		Y:                 normalize.Float(normalize.Field(data, "y"), 0),
		Z:                 normalize.Float(normalize.Field(data, "z"), 0),
		Timestamp:         ts,
	}
	n := r.presence.Broadcast(ctx, types.EventMotion, types.NewMotion(sample))
	metrics.RecordMotion(metrics.MotionForwarded)
	r.logger.Debug(ctx, "motion forwarded",
		logger.ConnID(id),
		logger.Float64("total_acceleration", total),
		logger.Int("displays", n),
	)
	return nil
}

// Ping answers any connection, registered or not.
func (r *Router) Ping(ctx context.Context, id string) error {
	reply(ctx, r.sender, r.logger, id, types.EventPong, types.Pong{Timestamp: types.Timestamp(r.now())})
	return nil
}

// normalizeShake builds the accepted event. The client timestamp and shake
// number are echoed as sent.
func normalizeShake(id string, data map[string]any, now time.Time) model.ShakeEvent {
	return model.ShakeEvent{
		UserID:       id,
		Intensity:    normalize.Clamp(normalize.Int(normalize.Field(data, "intensity"), defaultIntensity), minIntensity, maxIntensity),
		Acceleration: normalize.Float(normalize.Field(data, "acceleration"), 0),
		Timestamp:    normalize.Field(data, "timestamp"),
		At:           now,
		X:            normalize.Float(normalize.Field(data, "x"), 0),
		Y:            normalize.Float(normalize.Field(data, "y"), 0),
		Z:            normalize.Float(normalize.Field(data, "z"), 0),
		ShakeNumber:  passThrough(normalize.Field(data, "shakeNumber"), 0),
	}
}

// passThrough returns v unchanged when it is truthy, def otherwise.
func passThrough(v, def any) any {
	if normalize.Present(v) {
		return v
	}
	return def
}
