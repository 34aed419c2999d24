package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Sarava33/snow-globe-interactive-art/internal/adapters/mq/queue"
	"github.com/Sarava33/snow-globe-interactive-art/internal/adapters/repository"
	service "github.com/Sarava33/snow-globe-interactive-art/internal/app"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/model"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	_ = logger.SetLevelString("error")
}

var errUnreachable = errors.New("peer unreachable")

type frame struct {
	To    string
	Event string
	Data  any
}

// fakeSender records every frame instead of writing to a socket.
type fakeSender struct {
	mu          sync.Mutex
	frames      []frame
	unreachable map[string]bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{unreachable: map[string]bool{}}
}

func (f *fakeSender) Send(_ context.Context, connID, event string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unreachable[connID] {
		return errUnreachable
	}
	f.frames = append(f.frames, frame{To: connID, Event: event, Data: data})
	return nil
}

func (f *fakeSender) to(id string) []frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []frame
	for _, fr := range f.frames {
		if fr.To == id {
			out = append(out, fr)
		}
	}
	return out
}

func (f *fakeSender) events(id, event string) []frame {
	var out []frame
	for _, fr := range f.to(id) {
		if fr.Event == event {
			out = append(out, fr)
		}
	}
	return out
}

func (f *fakeSender) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// harness drives a Service synchronously through Handle.
type harness struct {
	ctx    context.Context
	svc    *service.Service
	sender *fakeSender
	clock  *fakeClock
	store  *repository.MemoryStore
}

var epoch = time.UnixMilli(1_700_000_000_000)

func newHarness(opts ...service.Option) *harness {
	h := &harness{
		ctx:    context.Background(),
		sender: newFakeSender(),
		clock:  newFakeClock(epoch),
		store:  repository.NewMemoryStore(repository.WithMetricsEnabled(false)),
	}
	base := []service.Option{
		service.WithClock(h.clock.Now),
		service.WithStore(h.store),
		service.WithRegistrationTimeout(time.Hour),
	}
	h.svc = service.New(h.sender, append(base, opts...)...)
	return h
}

func (h *harness) handle(e queue.Event) error { //nolint:gocritic // test helper
	return h.svc.Handle(h.ctx, e)
}

func (h *harness) connect(id string) {
	_ = h.handle(queue.Event{
		Kind:   model.InboundConnect,
		ConnID: id,
		Meta:   model.Meta{ConnectedAt: h.clock.Now(), RemoteAddress: "10.0.0.9", UserAgent: "test-agent"},
	})
}

func (h *harness) send(id, event string, data map[string]any) error {
	return h.handle(queue.Event{Kind: model.InboundMessage, ConnID: id, Event: event, Data: data})
}

func (h *harness) register(id, role string) {
	h.connect(id)
	_ = h.send(id, "register", map[string]any{"type": role})
}

func (h *harness) disconnect(id string) error {
	return h.handle(queue.Event{Kind: model.InboundDisconnect, ConnID: id})
}

func shakeData(ts any, intensity any) map[string]any {
	return map[string]any{
		"timestamp":    ts,
		"intensity":    intensity,
		"acceleration": 3.5,
		"x":            1.0,
		"y":            2.0,
		"z":            3.0,
		"shakeNumber":  1.0,
	}
}

// eventually polls cond until it holds or the timeout passes.
func eventually(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
