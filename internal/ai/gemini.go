// Package ai talks to the Gemini generateContent REST API.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/jkindrix/fitai/internal/circuitbreaker"
	"github.com/jkindrix/fitai/internal/clock"
	"github.com/jkindrix/fitai/internal/config"
	apperrors "github.com/jkindrix/fitai/internal/errors"
	"github.com/jkindrix/fitai/internal/metrics"
	"github.com/jkindrix/fitai/internal/sanitize"
)

// ServiceName labels the breaker and its metrics.
const ServiceName = "gemini"

var (
	// ErrModelNotFound means the requested model does not exist for this key.
	ErrModelNotFound = errors.New("model not found")
	// ErrUnauthenticated means the API key was rejected.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUpstream covers every other non-200 answer.
	ErrUpstream = errors.New("upstream error")
	// ErrEmptyResponse means the model answered with no text.
	ErrEmptyResponse = errors.New("empty response")
)

// GeminiClient calls generateContent for a given model.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	clock      clock.Clock
	metrics    *metrics.Metrics
	sanitizer  *sanitize.Sanitizer
	logger     *zap.Logger
}

// Option configures a GeminiClient.
type Option func(*GeminiClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *GeminiClient) {
		c.httpClient = hc
	}
}

// WithClock sets the clock used by the breaker and call timings.
func WithClock(clk clock.Clock) Option {
	return func(c *GeminiClient) {
		c.clock = clk
	}
}

// WithMetrics records call counts, latency and breaker state.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *GeminiClient) {
		c.metrics = m
	}
}

// NewGeminiClient creates a client for cfg.
func NewGeminiClient(cfg *config.AIConfig, logger *zap.Logger, opts ...Option) *GeminiClient {
	c := &GeminiClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		clock:      clock.New(),
		sanitizer:  sanitize.NewDefault(),
		logger:     logger.Named("gemini"),
	}
	for _, opt := range opts {
		opt(c)
	}

	cbConfig := circuitbreaker.DefaultConfig()
	// A missing model is answered by trying the next one, not by backing off.
	cbConfig.IsFailure = func(err error) bool {
		return circuitbreaker.CountsAsFailure(err) && !errors.Is(err, ErrModelNotFound)
	}
	cbConfig.OnStateChange = func(name string, from, to circuitbreaker.State) {
		c.metrics.SetCircuitBreakerState(name, stateGauge(to))
		if to == circuitbreaker.StateOpen {
			c.metrics.RecordCircuitTrip(name)
		}
	}
	c.breaker = circuitbreaker.New(ServiceName, cbConfig, c.clock, c.logger)
	c.metrics.SetCircuitBreakerState(ServiceName, 0)
	return c
}

func stateGauge(s circuitbreaker.State) int {
	switch s {
	case circuitbreaker.StateHalfOpen:
		return 1
	case circuitbreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends prompt to model and returns the concatenated candidate text.
func (c *GeminiClient) Generate(ctx context.Context, model, prompt string) (string, error) {
	var text string
	start := c.clock.Now()

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var execErr error
		text, execErr = c.doGenerate(ctx, model, prompt)
		return execErr
	})

	c.metrics.RecordLLMCall(model, callStatus(err), c.clock.Since(start))
	if err != nil {
		c.logger.Warn("generation failed",
			zap.String("model", model),
			zap.String("error", c.sanitizer.Error(err)),
		)
		return "", err
	}
	return text, nil
}

func callStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrModelNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, circuitbreaker.ErrCircuitOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

func (c *GeminiClient) doGenerate(ctx context.Context, model, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(model), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error carries the full URL, key included.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return "", apperrors.ExternalServiceError(ServiceName, fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classify(resp.StatusCode, raw)
	}

	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	var sb strings.Builder
	if len(gr.Candidates) > 0 {
		for _, p := range gr.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", model, ErrEmptyResponse)
	}

	c.logger.Debug("reply generated",
		zap.String("model", model),
		zap.Int("prompt_tokens", gr.UsageMetadata.PromptTokenCount),
		zap.Int("output_tokens", gr.UsageMetadata.CandidatesTokenCount),
	)
	return text, nil
}

// endpoint builds {base}/models/{model}:generateContent?key=... . Model names
// may already carry the "models/" prefix.
func (c *GeminiClient) endpoint(model string) string {
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	return c.baseURL + "/" + model + ":generateContent?key=" + url.QueryEscape(c.apiKey)
}

func classify(status int, body []byte) error {
	msg := fmt.Sprintf("status %d", status)
	var ae apiError
	if err := json.Unmarshal(body, &ae); err == nil && ae.Error.Message != "" {
		msg = fmt.Sprintf("status %d: %s", status, ae.Error.Message)
	}

	switch {
	case status == http.StatusNotFound || strings.Contains(strings.ToLower(msg), "not found"):
		return fmt.Errorf("%w: %s", ErrModelNotFound, msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthenticated, msg)
	default:
		return apperrors.ExternalServiceError(ServiceName, fmt.Errorf("%w: %s", ErrUpstream, msg))
	}
}

// Healthy reports whether calls are currently let through.
func (c *GeminiClient) Healthy() bool {
	return !c.breaker.IsOpen()
}

// CircuitBreakerStats returns the breaker counters.
func (c *GeminiClient) CircuitBreakerStats() circuitbreaker.Stats {
	return c.breaker.Stats()
}

// ResetCircuitBreaker closes the breaker.
func (c *GeminiClient) ResetCircuitBreaker() {
	c.breaker.Reset()
}
