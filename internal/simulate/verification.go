package simulate

import (
	"context"
	"fmt"

	"github.com/Sarava33/snow-globe-interactive-art/pkg/logger"
)

// verifyDelivery checks that every accepted shake and every forwardable motion
// sample reached every display.
func verifyDelivery(stats *Stats) error {
	switch {
	case stats.ShakesConfirmed != stats.ShakesSent:
		return fmt.Errorf("%w: %d of %d shakes confirmed", ErrUndelivered, stats.ShakesConfirmed, stats.ShakesSent)
	case stats.ShakesDelivered != stats.ExpectedDeliveries:
		return fmt.Errorf("%w: %d of %d shake broadcasts received", ErrUndelivered, stats.ShakesDelivered, stats.ExpectedDeliveries)
	case stats.MotionDelivered != stats.MotionForwardable*stats.DisplaysJoined:
		return fmt.Errorf("%w: %d of %d motion broadcasts received", ErrUndelivered,
			stats.MotionDelivered, stats.MotionForwardable*stats.DisplaysJoined)
	}
	return nil
}

// displayFinalStats logs the run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var deliveryRate, shakesPerSecond float64

	if stats.ExpectedDeliveries > 0 {
		deliveryRate = float64(stats.ShakesDelivered) / float64(stats.ExpectedDeliveries) * percentageMultiplier
	}
	if stats.Duration > 0 {
		shakesPerSecond = float64(stats.ShakesSent) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("controllers", stats.ControllersJoined),
		logger.Int("displays", stats.DisplaysJoined),
		logger.Int("shakesSent", stats.ShakesSent),
		logger.Int("shakesConfirmed", stats.ShakesConfirmed),
		logger.Int("shakesDelivered", stats.ShakesDelivered),
		logger.Int("expectedDeliveries", stats.ExpectedDeliveries),
		logger.Int("motionSent", stats.MotionSent),
		logger.Int("motionForwardable", stats.MotionForwardable),
		logger.Int("motionDelivered", stats.MotionDelivered),
		logger.Int("presenceDelivered", stats.PresenceDelivered),
		logger.Int("errorsReceived", stats.ErrorsReceived),
		logger.Duration("duration", stats.Duration),
		logger.Float64("deliveryRate", deliveryRate),
		logger.Float64("shakesPerSecond", shakesPerSecond),
	)
}
