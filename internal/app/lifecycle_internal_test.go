package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sarava33/snow-globe-interactive-art/internal/adapters/repository"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/model"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/logger"
)

type nopSender struct{}

func (nopSender) Send(context.Context, string, string, any) error { return nil }

func TestLifecycleDeadlineTimers(t *testing.T) {
	if err := logger.Init(); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	store := repository.NewMemoryStore(repository.WithMetricsEnabled(false))
	presence := NewPresence(store, nopSender{}, logger.Get())

	var fired atomic.Int32
	fires := make(chan string, 4)
	l := NewLifecycle(store, presence, 20*time.Millisecond, func(id string) {
		fired.Add(1)
		fires <- id
	}, logger.Get())

	if err := l.Connect(ctx, "late", model.Meta{}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := l.Connect(ctx, "quick", model.Meta{}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := l.Connect(ctx, "gone", model.Meta{}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if n := l.pending(); n != 3 {
		t.Fatalf("expected 3 armed deadlines, got %d", n)
	}

	l.Registered("quick")
	if err := l.Disconnect(ctx, "gone", nil); err != nil {
		t.Fatalf("disconnect: %v", err)
	}

	select {
	case id := <-fires:
		if id != "late" {
			t.Errorf("expected the deadline of late to fire, got %s", id)
		}
	case <-time.After(time.Second):
		t.Fatal("deadline never fired")
	}

	time.Sleep(50 * time.Millisecond)
	if n := fired.Load(); n != 1 {
		t.Errorf("expected exactly one deadline, got %d", n)
	}

	l.Close()
	if n := l.pending(); n != 0 {
		t.Errorf("expected no armed deadlines after close, got %d", n)
	}
}
