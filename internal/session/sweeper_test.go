package session

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/jkindrix/fitai/internal/domain"
	"github.com/jkindrix/fitai/internal/metrics"
)

func TestSweeper_SweepOnce(t *testing.T) {
	store, clk := newTestStore()
	m := metrics.NewMetricsWithRegistry(prometheus.NewRegistry())
	ctx := context.Background()

	_ = store.Put(ctx, domain.NewSession(testStart))
	_ = store.Put(ctx, domain.NewSession(testStart))
	clk.Advance(time.Hour)
	_ = store.Put(ctx, domain.NewSession(clk.Now()))

	sw := NewSweeper(store, time.Minute, clk, m, zap.NewNop())
	if n := sw.SweepOnce(ctx); n != 2 {
		t.Errorf("SweepOnce() = %d, want 2", n)
	}
	if got := testutil.ToFloat64(m.SessionsEvicted); got != 2 {
		t.Errorf("evicted metric = %f", got)
	}
	if got := testutil.ToFloat64(m.SessionsActive); got != 1 {
		t.Errorf("active gauge = %f", got)
	}
}

func TestSweeper_RunStopsWithContext(t *testing.T) {
	store, clk := newTestStore()
	ctx, cancel := context.WithCancel(context.Background())

	_ = store.Put(ctx, domain.NewSession(testStart))
	clk.Advance(time.Hour)

	sw := NewSweeper(store, time.Minute, clk, nil, zap.NewNop())
	swept := make(chan int, 10)
	sw.afterSweep = func(n int) { swept <- n }

	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()

	// The ticker is created inside Run, so keep ticking until a sweep lands.
	deadline := time.After(2 * time.Second)
	var n int
loop:
	for {
		clk.Tick()
		select {
		case n = <-swept:
			break loop
		case <-deadline:
			t.Fatal("sweeper never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if n != 1 {
		t.Errorf("first sweep evicted %d, want 1", n)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
