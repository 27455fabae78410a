// Package responder produces free-form assistant replies. It calls the
// generative model when one is configured and always degrades to canned
// answers, so callers never see an error.
package responder

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jkindrix/fitai/internal/ai"
	"github.com/jkindrix/fitai/internal/domain"
	"github.com/jkindrix/fitai/internal/metrics"
	"github.com/jkindrix/fitai/internal/ratelimit"
)

// TextGenerator is the model capability the responder needs.
type TextGenerator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Limiter hands out generation slots.
type Limiter interface {
	Acquire() error
	Release()
}

// Source says where a reply came from.
type Source string

const (
	SourceModel     Source = "model"
	SourceAlternate Source = "alternate"
	SourceFallback  Source = "fallback"
	SourceDefault   Source = "default"
)

// Result is a reply and its origin.
type Result struct {
	Text   string
	Source Source
	// Model is set for model and alternate replies.
	Model string
}

// Config holds generator settings.
type Config struct {
	Enabled         bool
	Model           string
	AlternateModels []string
	HistoryWindow   int
	// Timeout bounds the whole turn, alternates included. Zero means the
	// caller's context alone.
	Timeout time.Duration
}

// Generator turns a visitor message into a reply.
type Generator struct {
	cfg     Config
	gen     TextGenerator
	table   *Table
	limiter Limiter
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewGenerator creates a Generator. gen and limiter may be nil; a nil table
// uses DefaultTable.
func NewGenerator(cfg Config, gen TextGenerator, table *Table, limiter Limiter, logger *zap.Logger, m *metrics.Metrics) *Generator {
	if table == nil {
		table = DefaultTable()
	}
	return &Generator{
		cfg:     cfg,
		gen:     gen,
		table:   table,
		limiter: limiter,
		logger:  logger.Named("responder"),
		metrics: m,
	}
}

// Generate answers message given the prior transcript. The returned text is
// never empty.
func (g *Generator) Generate(ctx context.Context, message string, history []domain.Message) Result {
	res := g.generate(ctx, message, history)
	g.metrics.RecordReply(string(res.Source))
	return res
}

func (g *Generator) generate(ctx context.Context, message string, history []domain.Message) Result {
	if !g.cfg.Enabled || g.gen == nil {
		return g.fallback(message)
	}

	if g.limiter != nil {
		if err := g.limiter.Acquire(); err != nil {
			g.metrics.RecordGenerationLimited(ratelimit.WindowOf(err))
			return g.fallback(message)
		}
		defer g.limiter.Release()
	}

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	text, err := g.call(ctx, g.cfg.Model, BuildPrompt(message, history, g.cfg.HistoryWindow))
	if err == nil {
		return Result{Text: Format(text), Source: SourceModel, Model: g.cfg.Model}
	}
	if !errors.Is(err, ai.ErrModelNotFound) {
		g.logger.Warn("model unavailable, using fallback", zap.String("model", g.cfg.Model), zap.Error(err))
		return g.fallback(message)
	}

	g.logger.Info("model not found, trying alternates", zap.String("model", g.cfg.Model))
	prompt := AlternatePrompt(message)
	for _, alt := range g.cfg.AlternateModels {
		text, err := g.call(ctx, alt, prompt)
		if err == nil {
			g.logger.Info("alternate model answered", zap.String("model", alt))
			return Result{Text: Format(text), Source: SourceAlternate, Model: alt}
		}
		g.logger.Debug("alternate model failed", zap.String("model", alt), zap.Error(err))
	}
	return g.fallback(message)
}

var errBlankReply = errors.New("blank reply")

func (g *Generator) call(ctx context.Context, model, prompt string) (string, error) {
	text, err := g.gen.Generate(ctx, model, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(strings.ReplaceAll(text, "```", "")) == "" {
		return "", errBlankReply
	}
	return text, nil
}

func (g *Generator) fallback(message string) Result {
	text, matched := g.table.Match(message)
	if matched {
		return Result{Text: text, Source: SourceFallback}
	}
	return Result{Text: text, Source: SourceDefault}
}
