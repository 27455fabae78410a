package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jkindrix/fitai/internal/clock"
)

var errUpstream = errors.New("service unavailable")

func newTestBreaker(cfg *Config) (*CircuitBreaker, *clock.Mock) {
	mock := clock.NewMock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	if cfg == nil {
		cfg = &Config{
			FailureThreshold:    3,
			SuccessThreshold:    2,
			OpenTimeout:         time.Minute,
			HalfOpenMaxRequests: 2,
		}
	}
	return New("test", cfg, mock, zap.NewNop()), mock
}

func fail(context.Context) error    { return errUpstream }
func succeed(context.Context) error { return nil }

func openBreaker(t *testing.T, cb *CircuitBreaker) {
	t.Helper()
	for i := 0; i < 3; i++ {
		if err := cb.Execute(context.Background(), fail); !errors.Is(err, errUpstream) {
			t.Fatalf("Execute() error = %v, want upstream error", err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}
}

func TestCircuitBreaker_Closed(t *testing.T) {
	cb, _ := newTestBreaker(nil)

	for i := 0; i < 5; i++ {
		if err := cb.Execute(context.Background(), succeed); err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}

	stats := cb.Stats()
	if stats.State != "closed" || stats.TotalRequests != 5 || stats.TotalSuccesses != 5 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestCircuitBreaker_OpensAndRejects(t *testing.T) {
	cb, _ := newTestBreaker(nil)
	openBreaker(t, cb)

	err := cb.Execute(context.Background(), func(context.Context) error {
		t.Error("function should not run while open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen", err)
	}
	if got := cb.Stats().TotalRejected; got != 1 {
		t.Errorf("TotalRejected = %d, want 1", got)
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, mock := newTestBreaker(nil)
	openBreaker(t, cb)

	mock.Advance(time.Minute)

	if err := cb.Execute(context.Background(), succeed); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open", cb.State())
	}
	if err := cb.Execute(context.Background(), succeed); err != nil {
		t.Fatalf("second probe failed: %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, mock := newTestBreaker(nil)
	openBreaker(t, cb)

	mock.Advance(2 * time.Minute)
	_ = cb.Execute(context.Background(), fail)

	if cb.State() != StateOpen {
		t.Errorf("state = %v, want open", cb.State())
	}
	if err := cb.Execute(context.Background(), succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen right after reopening", err)
	}
}

func TestCircuitBreaker_HalfOpenLimit(t *testing.T) {
	cb, mock := newTestBreaker(&Config{
		FailureThreshold:    1,
		SuccessThreshold:    5,
		OpenTimeout:         time.Second,
		HalfOpenMaxRequests: 1,
	})
	_ = cb.Execute(context.Background(), fail)
	mock.Advance(time.Second)

	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		return cb.Execute(ctx, succeed)
	})
	if !errors.Is(err, ErrTooManyRequests) {
		t.Errorf("nested probe error = %v, want ErrTooManyRequests", err)
	}
}

func TestCircuitBreaker_IsFailureFilter(t *testing.T) {
	ignored := errors.New("model not found")
	cb, _ := newTestBreaker(&Config{
		FailureThreshold:    1,
		SuccessThreshold:    1,
		OpenTimeout:         time.Minute,
		HalfOpenMaxRequests: 1,
		IsFailure: func(err error) bool {
			return !errors.Is(err, ignored)
		},
	})

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), func(context.Context) error { return ignored })
	}
	if cb.State() != StateClosed {
		t.Errorf("ignored errors opened the circuit")
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	cb, mock := newTestBreaker(&Config{
		FailureThreshold:    1,
		SuccessThreshold:    1,
		OpenTimeout:         time.Second,
		HalfOpenMaxRequests: 1,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, from.String()+">"+to.String())
		},
	})

	_ = cb.Execute(context.Background(), fail)
	mock.Advance(time.Second)
	_ = cb.Execute(context.Background(), succeed)

	want := []string{"closed>open", "open>half-open", "half-open>closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %q, want %q", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(nil)
	openBreaker(t, cb)

	cb.Reset()

	if cb.State() != StateClosed {
		t.Errorf("state = %v after Reset", cb.State())
	}
	if cb.Stats().LastError != "" {
		t.Error("Reset should clear the last error")
	}
}

func TestCountsAsFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"open", ErrCircuitOpen, false},
		{"half-open limit", ErrTooManyRequests, false},
		{"upstream", errUpstream, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountsAsFailure(tt.err); got != tt.want {
				t.Errorf("CountsAsFailure() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestState_String(t *testing.T) {
	if StateHalfOpen.String() != "half-open" || State(42).String() != "unknown" {
		t.Error("unexpected State.String output")
	}
}
