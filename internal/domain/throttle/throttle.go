// Package throttle implements the per-controller minimum spacing between
// accepted shakes.
package throttle

import (
	"time"

	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/model"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/normalize"
)

// DefaultInterval is the minimum spacing between accepted shakes.
const DefaultInterval = time.Second

// Throttle decides whether a new shake may be accepted given the sender's
// last accepted one. It holds no per-connection state; the last shake lives
// on the registry record so it is discarded with the connection.
type Throttle struct {
	interval time.Duration
}

// New creates a Throttle with DefaultInterval unless overridden.
func New(opts ...Option) *Throttle {
	t := &Throttle{interval: DefaultInterval}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Interval returns the configured minimum spacing.
func (t *Throttle) Interval() time.Duration { return t.interval }

// Allow reports whether a shake arriving at now is far enough from last.
// Spacing is measured from the client timestamp of last. A nil last counts
// from the zero instant; a timestamp that cannot be read never throttles.
// The elapsed time is returned for logging.
func (t *Throttle) Allow(last *model.ShakeEvent, now time.Time) (time.Duration, bool) {
	var ref time.Time
	if last != nil {
		sent, ok := normalize.Instant(last.Timestamp)
		if !ok {
			return 0, true
		}
		ref = sent
	}
	elapsed := now.Sub(ref)
	return elapsed, elapsed >= t.interval
}
