package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// HealthChecker is a storage backend that can be pinged.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// AIHealthChecker reports whether the model client's circuit is closed.
type AIHealthChecker interface {
	Healthy() bool
}

// DrainChecker reports whether the server has begun shutting down.
type DrainChecker interface {
	ShuttingDown() bool
}

// HealthHandler handles health check HTTP requests.
type HealthHandler struct {
	checks  map[string]HealthChecker
	ai      AIHealthChecker
	drain   DrainChecker
	version string
	logger  *zap.Logger
}

// HealthHandlerConfig holds configuration for HealthHandler.
type HealthHandlerConfig struct {
	// Checks are critical dependencies by name, for example "lead_store".
	Checks map[string]HealthChecker
	// AI is optional; a nil value means generation is disabled.
	AI      AIHealthChecker
	Drain   DrainChecker
	Version string
	Logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler with all required dependencies.
func NewHealthHandler(cfg HealthHandlerConfig) *HealthHandler {
	if cfg.Logger == nil {
		panic("logger is required")
	}
	return &HealthHandler{
		checks:  cfg.Checks,
		ai:      cfg.AI,
		drain:   cfg.Drain,
		version: cfg.Version,
		logger:  cfg.Logger,
	}
}

// RegisterRoutes registers health routes on the router.
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/health/ready", h.HandleReadiness)
	r.Get("/health/live", h.HandleLiveness)
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string                     `json:"status"`
	Version string                     `json:"version,omitempty"`
	Checks  map[string]ComponentHealth `json:"checks,omitempty"`
}

// ComponentHealth represents the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HandleHealth reports every dependency. A failed store makes the service
// unhealthy (503). An open model circuit only degrades it, because replies
// fall back to canned answers.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:  "ok",
		Version: h.version,
		Checks:  make(map[string]ComponentHealth),
	}
	critical, degraded := false, false

	for _, name := range h.checkNames() {
		if err := h.checks[name].Ping(ctx); err != nil {
			critical = true
			resp.Checks[name] = ComponentHealth{Status: "unhealthy", Message: err.Error()}
			h.logger.Error("health check failed", zap.String("component", name), zap.Error(err))
			continue
		}
		resp.Checks[name] = ComponentHealth{Status: "healthy"}
	}

	switch {
	case h.ai == nil:
		resp.Checks["llm"] = ComponentHealth{Status: "disabled", Message: "no API key configured, canned replies only"}
	case !h.ai.Healthy():
		degraded = true
		resp.Checks["llm"] = ComponentHealth{Status: "degraded", Message: "circuit breaker open, using fallback replies"}
	default:
		resp.Checks["llm"] = ComponentHealth{Status: "healthy"}
	}

	if h.drain != nil && h.drain.ShuttingDown() {
		degraded = true
		resp.Checks["server"] = ComponentHealth{Status: "draining"}
	}

	status := http.StatusOK
	switch {
	case critical:
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	case degraded:
		resp.Status = "degraded"
	}
	JSON(w, status, resp)
}

// HandleReadiness fails while draining or when a store is unreachable.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.drain != nil && h.drain.ShuttingDown() {
		http.Error(w, "draining", http.StatusServiceUnavailable)
		return
	}
	for _, name := range h.checkNames() {
		if err := h.checks[name].Ping(ctx); err != nil {
			h.logger.Error("readiness check failed", zap.String("component", name), zap.Error(err))
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// HandleLiveness returns a simple liveness probe response.
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}

func (h *HealthHandler) checkNames() []string {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
