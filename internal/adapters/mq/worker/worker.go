// Package worker runs the single dispatch loop that serializes all relay
// state changes.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Sarava33/snow-globe-interactive-art/internal/adapters/mq/queue"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/logger"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/metrics"
)

// Event abstracts what the dispatcher reads off the queue.
type Event = queue.Event

// Handler applies one inbound event to relay state.
type Handler interface {
	Handle(ctx context.Context, e Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, e Event) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, e Event) error { return f(ctx, e) } //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics

// Queue defines how the dispatcher receives events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes events from a queue.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// Dispatcher implements Worker with one goroutine so handlers never run
// concurrently with each other.
type Dispatcher struct {
	queue   Queue
	handler Handler
	name    string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

var _ Worker = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher with configuration options.
func NewDispatcher(q Queue, h Handler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:    q,
		handler:  h,
		name:     "dispatcher",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = logger.Get().Named(d.name)
	}

	return d
}

// Run starts the dispatch loop. It returns when ctx is canceled, Shutdown is
// called, or the queue is closed and drained.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	events := d.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := d.process(ctx, event); err != nil {
				d.logger.Error(ctx, "error processing event",
					logger.String("kind", event.Kind.String()),
					logger.ConnID(event.ConnID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the dispatcher.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.shutdownOnce.Do(func() { close(d.shutdown) })

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (d *Dispatcher) Done() <-chan struct{} { return d.done }

// process runs the handler, converting a panic into an error so one bad
// event cannot stop the loop.
func (d *Dispatcher) process(ctx context.Context, event Event) (err error) { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordDispatcherPanic()
			d.logger.Error(ctx, "handler panic recovered",
				logger.String("kind", event.Kind.String()),
				logger.ConnID(event.ConnID),
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
		metrics.RecordDispatchLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	return d.handler.Handle(ctx, event)
}
