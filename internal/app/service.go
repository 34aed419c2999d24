// Package service provides the relay core: it owns the connection registry
// and applies every connection event on a single dispatch loop.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	eventqueue "github.com/Sarava33/snow-globe-interactive-art/internal/adapters/mq/queue"
	"github.com/Sarava33/snow-globe-interactive-art/internal/adapters/mq/worker"
	"github.com/Sarava33/snow-globe-interactive-art/internal/adapters/repository"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/model"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/throttle"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/types"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/logger"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/metrics"
)

const (
	defaultQueueSize      = 4096
	dispatcherStopTimeout = 5 * time.Second
	malformedEventLabel   = "malformed"
)

// Service relays controller events to displays.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	sender     Sender
	queue      *eventqueue.InMemoryQueue
	dispatcher *worker.Dispatcher
	presence   *Presence
	handshake  *Handshake
	router     *Router
	stats      *StatsPublisher
	lifecycle  *Lifecycle

	// Configuration
	queueSize           int
	statsInterval       time.Duration
	registrationTimeout time.Duration
	shakeInterval       time.Duration
	motionThreshold     float64
	now                 func() time.Time

	// State
	started bool
	stopped bool
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	logger logger.Logger
}

var _ worker.Handler = (*Service)(nil)

// New constructs a Service that answers clients through sender.
func New(sender Sender, opts ...Option) *Service {
	s := &Service{
		sender:              sender,
		queueSize:           defaultQueueSize,
		statsInterval:       DefaultStatsInterval,
		registrationTimeout: DefaultRegistrationTimeout,
		shakeInterval:       throttle.DefaultInterval,
		motionThreshold:     DefaultMotionThreshold,
		now:                 time.Now,
		runCtx:              context.Background(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("relay")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.presence = NewPresence(s.store, s.sender, s.logger.Named("presence"))
	s.handshake = NewHandshake(s.store, s.sender, s.presence, s.logger.Named("handshake"))
	s.router = NewRouter(
		s.store,
		s.sender,
		s.presence,
		throttle.New(throttle.WithInterval(s.shakeInterval)),
		s.motionThreshold,
		s.now,
		s.logger.Named("router"),
	)
	s.stats = NewStatsPublisher(s.store, s.presence, s.now, s.logger.Named("stats"))
	s.lifecycle = NewLifecycle(s.store, s.presence, s.registrationTimeout, s.scheduleDeadline, s.logger.Named("lifecycle"))
	s.dispatcher = worker.NewDispatcher(s.queue, s, worker.WithLogger(s.logger.Named("dispatcher")))

	return s
}

// Start launches the dispatch loop and the stats ticker. A stopped Service
// cannot be restarted.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.stopped {
		return ErrStopped
	}

	s.runCtx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.dispatcher.Run(s.runCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.stats.Run(s.runCtx, s.statsInterval, func(ctx context.Context) {
			if err := s.queue.EnqueueWait(ctx, eventqueue.Event{Kind: model.InboundStatsTick, ReceivedAt: s.now()}); err != nil {
				s.logger.Debug(ctx, "stats tick not queued", logger.Error(err))
			}
		})
	}()

	s.started = true
	s.logger.Info(ctx, "relay service started",
		logger.Int("queue_size", s.queueSize),
		logger.Duration("stats_interval", s.statsInterval),
		logger.Duration("registration_timeout", s.registrationTimeout),
		logger.Duration("shake_interval", s.shakeInterval),
		logger.Float64("motion_threshold", s.motionThreshold),
	)
	return nil
}

// Stop drains queued events and stops the loop.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping relay service...")

	s.lifecycle.Close()
	_ = s.queue.Close()

	stopCtx, cancelStop := context.WithTimeout(ctx, dispatcherStopTimeout)
	defer cancelStop()
	select {
	case <-s.dispatcher.Done():
	case <-stopCtx.Done():
		s.logger.Warn(ctx, "dispatcher did not drain in time")
	}

	s.cancel()
	s.wg.Wait()

	s.started = false
	s.stopped = true
	s.logger.Info(ctx, "relay service stopped")
}

// Connect queues a new connection. It waits for queue space for as long as the service runs.
func (s *Service) Connect(_ context.Context, id string, meta model.Meta) error {
	return s.enqueueLifecycle(eventqueue.Event{Kind: model.InboundConnect, ConnID: id, Meta: meta, ReceivedAt: s.now()})
}

// Disconnect queues the retirement of a connection. The caller's context is
// usually already canceled, so the wait is bounded by the service lifetime.
func (s *Service) Disconnect(_ context.Context, id string, cause error) error {
	return s.enqueueLifecycle(eventqueue.Event{Kind: model.InboundDisconnect, ConnID: id, Err: cause, ReceivedAt: s.now()})
}

// Receive queues one decoded client frame. It returns false when the frame was
// dropped because the queue is full.
func (s *Service) Receive(ctx context.Context, id, event string, data map[string]any) bool {
	return s.enqueueMessage(ctx, eventqueue.Event{
		Kind:       model.InboundMessage,
		ConnID:     id,
		Event:      event,
		Data:       data,
		ReceivedAt: s.now(),
	})
}

// ReceiveMalformed queues a notice that a frame from id could not be decoded.
func (s *Service) ReceiveMalformed(ctx context.Context, id string) bool {
	return s.enqueueMessage(ctx, eventqueue.Event{
		Kind:       model.InboundMessage,
		ConnID:     id,
		Malformed:  true,
		ReceivedAt: s.now(),
	})
}

func (s *Service) enqueueMessage(ctx context.Context, e eventqueue.Event) bool { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	if s.queue.Enqueue(ctx, e) {
		return true
	}
	s.logger.Debug(ctx, "inbound message dropped", logger.ConnID(e.ConnID), logger.String("event", e.Event))
	return false
}

func (s *Service) enqueueLifecycle(e eventqueue.Event) error { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	s.mu.RLock()
	ctx := s.runCtx
	s.mu.RUnlock()
	if err := s.queue.EnqueueWait(ctx, e); err != nil {
		return fmt.Errorf("%s %s: %w", e.Kind, e.ConnID, err)
	}
	return nil
}

func (s *Service) scheduleDeadline(id string) {
	e := eventqueue.Event{Kind: model.InboundRegistrationDeadline, ConnID: id, ReceivedAt: s.now()}
	if !s.queue.Enqueue(context.Background(), e) {
		s.logger.Debug(context.Background(), "registration deadline not queued", logger.ConnID(id))
	}
}

// Handle applies one inbound event. It runs only on the dispatch loop.
// Outcomes caused by the client are logged here and not returned.
func (s *Service) Handle(ctx context.Context, e eventqueue.Event) error { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	var err error
	switch e.Kind {
	case model.InboundConnect:
		err = s.lifecycle.Connect(ctx, e.ConnID, e.Meta)
	case model.InboundDisconnect:
		err = s.lifecycle.Disconnect(ctx, e.ConnID, e.Err)
	case model.InboundRegistrationDeadline:
		s.handshake.CheckDeadline(ctx, e.ConnID)
	case model.InboundStatsTick:
		s.stats.Publish(ctx)
	case model.InboundMessage:
		err = s.handleMessage(ctx, e)
	default:
		err = fmt.Errorf("unknown inbound kind %d", e.Kind)
	}

	if isClientOutcome(err) {
		s.logger.Debug(ctx, "request rejected",
			logger.ConnID(e.ConnID),
			logger.String("event", e.Event),
			logger.Error(err),
		)
		return nil
	}
	return err
}

func (s *Service) handleMessage(ctx context.Context, e eventqueue.Event) error { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	if e.Malformed {
		metrics.RecordMessageReceived(malformedEventLabel)
		replyError(ctx, s.sender, s.logger, e.ConnID, malformedEventLabel, msgMalformed)
		return fmt.Errorf("%w: %s", ErrMalformedMessage, e.ConnID)
	}

	switch e.Event {
	case types.EventRegister:
		metrics.RecordMessageReceived(e.Event)
		if err := s.handshake.Register(ctx, e.ConnID, e.Data); err != nil {
			return err
		}
		s.lifecycle.Registered(e.ConnID)
		return nil
	case types.EventShake:
		metrics.RecordMessageReceived(e.Event)
		return s.router.Shake(ctx, e.ConnID, e.Data)
	case types.EventMotion:
		metrics.RecordMessageReceived(e.Event)
		return s.router.Motion(ctx, e.ConnID, e.Data)
	case types.EventPing:
		metrics.RecordMessageReceived(e.Event)
		return s.router.Ping(ctx, e.ConnID)
	default:
		metrics.RecordMessageReceived("unknown")
		return fmt.Errorf("%w: %q", ErrUnknownEvent, e.Event)
	}
}

func isClientOutcome(err error) bool {
	for _, target := range []error{
		ErrUnknownRegistration,
		ErrAlreadyRegistered,
		ErrNotController,
		ErrInvalidShake,
		ErrRateLimited,
		ErrMalformedMessage,
		ErrUnknownEvent,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Snapshot returns the records currently holding role.
func (s *Service) Snapshot(ctx context.Context, role model.Role) []model.Connection {
	return s.store.Snapshot(ctx, role)
}

// Count returns the number of connections currently holding role.
func (s *Service) Count(ctx context.Context, role model.Role) int {
	return s.store.Count(ctx, role)
}

// CurrentStats returns live counts without broadcasting them.
func (s *Service) CurrentStats(ctx context.Context) types.Stats {
	return s.stats.Snapshot(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	return map[string]any{
		"started":      s.started,
		"queueSize":    s.queueSize,
		"queueLength":  s.queue.Len(ctx),
		"unregistered": s.store.Count(ctx, model.RoleUnregistered),
		"controllers":  s.store.Count(ctx, model.RoleController),
		"displays":     s.store.Count(ctx, model.RoleDisplay),
	}
}
