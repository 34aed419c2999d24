package service

import (
	"time"

	"github.com/Sarava33/snow-globe-interactive-art/internal/adapters/repository"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithQueueSize sets the capacity of the inbound event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithStatsInterval sets the period of the stats broadcast.
func WithStatsInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.statsInterval = d
		}
	}
}

// WithRegistrationTimeout sets how long a connection may stay unregistered before it is reported.
func WithRegistrationTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.registrationTimeout = d
		}
	}
}

// WithShakeInterval sets the minimum spacing between accepted shakes. Zero disables throttling.
func WithShakeInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.shakeInterval = d
		}
	}
}

// WithMotionThreshold sets the totalAcceleration a motion sample must exceed to be forwarded.
func WithMotionThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold >= 0 {
			s.motionThreshold = threshold
		}
	}
}

// WithClock replaces the wall clock used for throttling and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStore injects the connection registry.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
