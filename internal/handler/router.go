package handler

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/jkindrix/fitai/internal/middleware"
)

// RouterConfig holds everything NewRouter mounts.
type RouterConfig struct {
	Health *HealthHandler
	Chat   *ChatHandler
	Leads  *LeadHandler
	Widget *WidgetHandler

	// Metrics serves /metrics and instruments every route when set.
	Metrics interface {
		Handler() http.Handler
		Middleware(next http.Handler) http.Handler
	}
	// LogLevel is mounted at /debug/log-level when Development is true.
	LogLevel http.Handler
	// RateLimit wraps the API routes. Health and metrics are not limited.
	RateLimit func(http.Handler) http.Handler
	// Static is served at / when set.
	Static fs.FS

	AllowedOrigins []string
	Development    bool
	Logger         *zap.Logger
}

// NewRouter builds the application router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(middleware.Correlation)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.Compress(5))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.CorrelationIDHeader, middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.CorrelationIDHeader, "Retry-After"},
		MaxAge:         300,
	}).Handler)

	if cfg.Health != nil {
		cfg.Health.RegisterRoutes(r)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}
	if cfg.Development && cfg.LogLevel != nil {
		r.Method(http.MethodGet, "/debug/log-level", cfg.LogLevel)
		r.Method(http.MethodPut, "/debug/log-level", cfg.LogLevel)
	}

	r.Group(func(r chi.Router) {
		if cfg.RateLimit != nil {
			r.Use(cfg.RateLimit)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.BodySizeLimiterChat())
			if cfg.Chat != nil {
				cfg.Chat.RegisterRoutes(r)
			}
			if cfg.Widget != nil {
				cfg.Widget.RegisterRoutes(r)
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.BodySizeLimiterForm())
			if cfg.Leads != nil {
				cfg.Leads.RegisterRoutes(r)
			}
		})
	})

	if cfg.Static != nil {
		r.Handle("/*", http.FileServer(http.FS(cfg.Static)))
	}

	return r
}
