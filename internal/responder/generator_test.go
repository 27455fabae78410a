package responder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/jkindrix/fitai/internal/ai"
	"github.com/jkindrix/fitai/internal/domain"
	"github.com/jkindrix/fitai/internal/metrics"
	"github.com/jkindrix/fitai/internal/ratelimit"
)

type generateCall struct {
	model  string
	prompt string
}

type mockTextGenerator struct {
	mu    sync.Mutex
	calls []generateCall
	fn    func(ctx context.Context, model, prompt string) (string, error)
}

func (m *mockTextGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, generateCall{model, prompt})
	m.mu.Unlock()
	return m.fn(ctx, model, prompt)
}

func (m *mockTextGenerator) models() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	for i, c := range m.calls {
		out[i] = c.model
	}
	return out
}

type mockLimiter struct {
	err      error
	acquired int
	released int
}

func (l *mockLimiter) Acquire() error {
	if l.err != nil {
		return l.err
	}
	l.acquired++
	return nil
}

func (l *mockLimiter) Release() { l.released++ }

var testConfig = Config{
	Enabled:         true,
	Model:           "gemini-2.5-flash",
	AlternateModels: []string{"gemini-1.5-flash", "gemini-1.0-pro"},
	HistoryWindow:   3,
}

func newTestGenerator(cfg Config, gen TextGenerator, limiter Limiter) (*Generator, *metrics.Metrics) {
	m := metrics.NewMetricsWithRegistry(prometheus.NewRegistry())
	return NewGenerator(cfg, gen, nil, limiter, zap.NewNop(), m), m
}

func TestGenerator_Disabled(t *testing.T) {
	gen := &mockTextGenerator{fn: func(context.Context, string, string) (string, error) {
		return "should not be called", nil
	}}
	cfg := testConfig
	cfg.Enabled = false
	g, m := newTestGenerator(cfg, gen, nil)

	res := g.Generate(context.Background(), "I want to lose weight fast", nil)

	if res.Source != SourceFallback || !strings.HasPrefix(res.Text, "🔥 **Weight Loss Strategy!**") {
		t.Errorf("result = %+v", res)
	}
	if len(gen.models()) != 0 {
		t.Errorf("model called %d times while disabled", len(gen.models()))
	}
	if got := testutil.ToFloat64(m.ChatRepliesTotal.WithLabelValues("fallback")); got != 1 {
		t.Errorf("fallback replies = %f", got)
	}
}

func TestGenerator_PrimaryModel(t *testing.T) {
	gen := &mockTextGenerator{fn: func(_ context.Context, _, prompt string) (string, error) {
		return "```Start with a workout```", nil
	}}
	limiter := &mockLimiter{}
	g, _ := newTestGenerator(testConfig, gen, limiter)

	history := []domain.Message{domain.NewMessage(domain.RoleUser, "hello", time.Now())}
	res := g.Generate(context.Background(), "how do I start?", history)

	if res.Source != SourceModel || res.Model != "gemini-2.5-flash" {
		t.Errorf("result = %+v", res)
	}
	if res.Text != Format("Start with a workout") {
		t.Errorf("text not formatted: %q", res.Text)
	}
	if gen.calls[0].prompt != BuildPrompt("how do I start?", history, 3) {
		t.Errorf("prompt = %q", gen.calls[0].prompt)
	}
	if limiter.acquired != 1 || limiter.released != 1 {
		t.Errorf("limiter acquired=%d released=%d", limiter.acquired, limiter.released)
	}
}

func TestGenerator_ModelNotFoundTriesAlternates(t *testing.T) {
	gen := &mockTextGenerator{fn: func(_ context.Context, model, _ string) (string, error) {
		if model == "gemini-1.0-pro" {
			return "Squat twice a week", nil
		}
		return "", ai.ErrModelNotFound
	}}
	g, _ := newTestGenerator(testConfig, gen, nil)

	res := g.Generate(context.Background(), "legs?", nil)

	if res.Source != SourceAlternate || res.Model != "gemini-1.0-pro" {
		t.Fatalf("result = %+v", res)
	}
	want := []string{"gemini-2.5-flash", "gemini-1.5-flash", "gemini-1.0-pro"}
	if got := gen.models(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("models tried = %v, want %v", got, want)
	}
	if gen.calls[1].prompt != AlternatePrompt("legs?") {
		t.Errorf("alternate prompt = %q", gen.calls[1].prompt)
	}
}

func TestGenerator_AllAlternatesFail(t *testing.T) {
	gen := &mockTextGenerator{fn: func(context.Context, string, string) (string, error) {
		return "", ai.ErrModelNotFound
	}}
	g, m := newTestGenerator(testConfig, gen, nil)

	res := g.Generate(context.Background(), "hello there", nil)

	if res.Source != SourceDefault || res.Text != DefaultResponse {
		t.Errorf("result = %+v", res)
	}
	if len(gen.models()) != 3 {
		t.Errorf("calls = %d, want 3", len(gen.models()))
	}
	if got := testutil.ToFloat64(m.ChatRepliesTotal.WithLabelValues("default")); got != 1 {
		t.Errorf("default replies = %f", got)
	}
}

func TestGenerator_OtherErrorsSkipAlternates(t *testing.T) {
	for _, err := range []error{ai.ErrUnauthenticated, ai.ErrUpstream, errors.New("dial tcp: refused")} {
		t.Run(err.Error(), func(t *testing.T) {
			gen := &mockTextGenerator{fn: func(context.Context, string, string) (string, error) {
				return "", err
			}}
			g, _ := newTestGenerator(testConfig, gen, nil)

			res := g.Generate(context.Background(), "muscle gain tips", nil)

			if res.Source != SourceFallback || !strings.HasPrefix(res.Text, "💪 **Muscle Building Blueprint!**") {
				t.Errorf("result = %+v", res)
			}
			if len(gen.models()) != 1 {
				t.Errorf("calls = %d, want 1", len(gen.models()))
			}
		})
	}
}

func TestGenerator_BlankReplyFallsBack(t *testing.T) {
	gen := &mockTextGenerator{fn: func(context.Context, string, string) (string, error) {
		return "  ``` ```  ", nil
	}}
	g, _ := newTestGenerator(testConfig, gen, nil)

	res := g.Generate(context.Background(), "price?", nil)
	if res.Source != SourceFallback || !strings.HasPrefix(res.Text, "💰") {
		t.Errorf("result = %+v", res)
	}
}

func TestGenerator_LimiterRejects(t *testing.T) {
	gen := &mockTextGenerator{fn: func(context.Context, string, string) (string, error) {
		return "unused", nil
	}}
	limiter := &mockLimiter{err: ratelimit.ErrMinuteLimitExceeded}
	g, m := newTestGenerator(testConfig, gen, limiter)

	res := g.Generate(context.Background(), "nutrition", nil)

	if res.Source != SourceFallback {
		t.Errorf("source = %s", res.Source)
	}
	if len(gen.models()) != 0 {
		t.Error("model called despite limiter rejection")
	}
	if limiter.released != 0 {
		t.Error("released a slot that was never acquired")
	}
	if got := testutil.ToFloat64(m.GenerationLimited.WithLabelValues("minute")); got != 1 {
		t.Errorf("generation_limited{minute} = %f", got)
	}
}

func TestGenerator_Timeout(t *testing.T) {
	gen := &mockTextGenerator{fn: func(ctx context.Context, _, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	cfg := testConfig
	cfg.Timeout = 20 * time.Millisecond
	g, _ := newTestGenerator(cfg, gen, nil)

	done := make(chan Result, 1)
	go func() { done <- g.Generate(context.Background(), "diet", nil) }()

	select {
	case res := <-done:
		if res.Source != SourceFallback || res.Text == "" {
			t.Errorf("result = %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Generate did not honor its timeout")
	}
}

func TestGenerator_CustomTable(t *testing.T) {
	table, err := NewTable([]Entry{{Keyword: "zumba", Response: "💃 Zumba on Fridays"}}, "")
	if err != nil {
		t.Fatal(err)
	}
	g := NewGenerator(Config{}, nil, table, nil, zap.NewNop(), nil)

	if res := g.Generate(context.Background(), "Zumba?", nil); res.Text != "💃 Zumba on Fridays" {
		t.Errorf("result = %+v", res)
	}
	if res := g.Generate(context.Background(), "workout?", nil); res.Source != SourceDefault {
		t.Errorf("custom table should replace the built-in one, got %+v", res)
	}
}
