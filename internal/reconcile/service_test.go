package reconcile

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/odontoapp/turnos-api/internal/calendar"
)

// countingProvider counts how many sweeps touched the calendar.
type countingProvider struct {
	inner *calendar.Fake
	calls atomic.Int64
}

func (p *countingProvider) IsReady(ctx context.Context) bool { return p.inner.IsReady(ctx) }

func (p *countingProvider) Calendar(ctx context.Context) (calendar.EventAPI, error) {
	p.calls.Add(1)
	return p.inner.Calendar(ctx)
}

func newCountingFixture(t *testing.T) (*fixture, *countingProvider) {
	t.Helper()
	f := newFixture(t)
	counting := &countingProvider{inner: f.fake}
	f.sweeper.provider = counting
	return f, counting
}

func TestServiceRequiresSweeper(t *testing.T) {
	if _, err := NewService(ServiceConfig{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestServiceSweepsOnStartAndTick(t *testing.T) {
	f, counting := newCountingFixture(t)
	tick := make(chan time.Time)
	svc, err := NewService(ServiceConfig{
		Sweeper: f.sweeper,
		Tick:    tick,
		Logger:  testLogger(),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	waitForCalls(t, counting, 1)
	tick <- time.Now()
	waitForCalls(t, counting, 2)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("service did not stop")
	}
}

func TestTriggerDebouncedCoalescesBursts(t *testing.T) {
	f, counting := newCountingFixture(t)
	svc, err := NewService(ServiceConfig{
		Sweeper:  f.sweeper,
		Debounce: 20 * time.Millisecond,
		Tick:     make(chan time.Time),
		Logger:   testLogger(),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	for i := 0; i < 5; i++ {
		svc.TriggerDebounced()
	}
	waitForCalls(t, counting, 1)

	// Settle, then confirm no extra sweeps trail the burst.
	time.Sleep(50 * time.Millisecond)
	if got := counting.calls.Load(); got != 1 {
		t.Fatalf("expected one coalesced sweep, got %d", got)
	}

	svc.TriggerDebounced()
	waitForCalls(t, counting, 2)
}

func waitForCalls(t *testing.T, p *countingProvider, want int64) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if p.calls.Load() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d sweeps, got %d", want, p.calls.Load())
}
