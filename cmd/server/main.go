// Package main is the entry point for the FitAI server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jkindrix/fitai/internal/ai"
	"github.com/jkindrix/fitai/internal/clock"
	"github.com/jkindrix/fitai/internal/config"
	"github.com/jkindrix/fitai/internal/conversation"
	"github.com/jkindrix/fitai/internal/domain"
	"github.com/jkindrix/fitai/internal/handler"
	"github.com/jkindrix/fitai/internal/logging"
	"github.com/jkindrix/fitai/internal/metrics"
	"github.com/jkindrix/fitai/internal/middleware"
	"github.com/jkindrix/fitai/internal/notify"
	"github.com/jkindrix/fitai/internal/ratelimit"
	"github.com/jkindrix/fitai/internal/repository"
	"github.com/jkindrix/fitai/internal/responder"
	"github.com/jkindrix/fitai/internal/service"
	"github.com/jkindrix/fitai/internal/session"
	"github.com/jkindrix/fitai/internal/shutdown"
	"github.com/jkindrix/fitai/web"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := initLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Zap().Error("server stopped with error", zap.Error(err))
		_ = log.Zap().Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logging.Logger) error {
	logger := log.Zap()
	logger.Info("starting FitAI server",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("env", cfg.Server.Environment),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("sessions", cfg.Session.Driver),
		zap.Bool("ai_enabled", cfg.AI.Enabled()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.New()
	m := metrics.NewMetrics()
	events := metrics.NewBusinessEventLogger(logger)

	leads, err := repository.Open(ctx, cfg, true, logger, m)
	if err != nil {
		return fmt.Errorf("open lead store: %w", err)
	}

	sessions, err := initSessionStore(ctx, cfg, clk)
	if err != nil {
		_ = leads.Close()
		return err
	}

	replier, aiHealth, err := initGenerator(cfg, clk, logger, m)
	if err != nil {
		_ = leads.Close()
		_ = sessions.Close()
		return err
	}

	notifier, err := initNotifier(cfg, logger)
	if err != nil {
		_ = leads.Close()
		_ = sessions.Close()
		return err
	}

	// Services
	leadService := service.NewLeadService(leads, notifier, logger, m, events)
	chatService := service.NewChatService(replier, cfg.Chat.MaxMessageLength, clk, logger, m, events)
	sessionService := service.NewSessionService(
		sessions,
		conversation.NewMachine(cfg.Chat.SchedulingURL),
		replier,
		leadService,
		service.SessionConfig{
			MaxMessageLength:   cfg.Chat.MaxMessageLength,
			TypingDelayMin:     cfg.Chat.TypingDelayMin,
			TypingDelayMax:     cfg.Chat.TypingDelayMax,
			SummaryDelay:       cfg.Chat.SummaryDelay,
			BookingDelay:       cfg.Chat.BookingDelay,
			ButtonBookingDelay: cfg.Chat.ButtonBookingDelay,
		},
		clk, logger, m, events,
	)

	coord := shutdown.NewCoordinator(&shutdown.Config{Timeout: cfg.Server.ShutdownTimeout}, logger)
	rateLimiter := middleware.NewRateLimiter("api", cfg.RateLimit.Requests, cfg.RateLimit.Window, clk, logger, m, events)
	sweeper := session.NewSweeper(sessions, cfg.Session.SweepInterval, clk, m, logger)

	router := handler.NewRouter(handler.RouterConfig{
		Health: handler.NewHealthHandler(handler.HealthHandlerConfig{
			Checks: map[string]handler.HealthChecker{
				"lead_store":    leads,
				"session_store": sessions,
			},
			AI:      aiHealth,
			Drain:   coord,
			Version: version,
			Logger:  logger,
		}),
		Chat: handler.NewChatHandler(handler.ChatHandlerConfig{
			Chat:     chatService,
			AlwaysOK: cfg.Chat.AlwaysOK,
			Clock:    clk,
			Logger:   logger,
		}),
		Leads:          handler.NewLeadHandler(leadService, logger),
		Widget:         handler.NewWidgetHandler(sessionService, logger),
		Metrics:        m,
		LogLevel:       log,
		RateLimit:      rateLimiter.Middleware,
		Static:         web.Static(),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Development:    cfg.IsDevelopment(),
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Background workers stop when workerCtx is cancelled in the workers
	// phase, after the server has drained.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	workers.Add(2)
	go func() {
		defer workers.Done()
		sweeper.Run(workerCtx)
	}()
	go func() {
		defer workers.Done()
		rateLimiter.Run(workerCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	coord.RegisterFunc(shutdown.PhaseDrain, "http-server", server.Shutdown)
	coord.RegisterFunc(shutdown.PhaseWorkers, "background-workers", func(ctx context.Context) error {
		stopWorkers()
		done := make(chan struct{})
		go func() {
			workers.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	coord.RegisterFunc(shutdown.PhaseWorkers, "lead-notifications", leadService.Wait)
	coord.RegisterFunc(shutdown.PhaseClose, "lead-store", func(context.Context) error {
		return leads.Close()
	})
	coord.RegisterFunc(shutdown.PhaseClose, "session-store", func(context.Context) error {
		return sessions.Close()
	})
	coord.RegisterFunc(shutdown.PhaseClose, "logger", func(context.Context) error {
		// Sync on stderr reports ENOTTY/EINVAL on some platforms.
		_ = logger.Sync()
		return nil
	})

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	if err := coord.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown completed with errors", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

// initLogger builds the application logger from the log and server sections.
func initLogger(cfg *config.Config) (*logging.Logger, error) {
	return logging.New(&logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Environment: cfg.Server.Environment,
	})
}

type sessionStore interface {
	domain.SessionStore
	Ping(ctx context.Context) error
	Close() error
}

// initSessionStore opens the widget session store. Redis is pinged so that a
// bad address fails at startup instead of on the first visitor.
func initSessionStore(ctx context.Context, cfg *config.Config, clk clock.Clock) (sessionStore, error) {
	switch cfg.Session.Driver {
	case config.DriverMemory:
		return session.NewMemoryStore(cfg.Session.TTL, clk), nil
	case config.DriverRedis:
		store := session.NewRedisStore(&cfg.Redis, cfg.Session.TTL)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown session driver %q", cfg.Session.Driver)
	}
}

// initGenerator wires the model client, the generation limiter and the
// fallback table. The returned health checker is nil when no API key is
// configured.
func initGenerator(cfg *config.Config, clk clock.Clock, logger *zap.Logger, m *metrics.Metrics) (*responder.Generator, handler.AIHealthChecker, error) {
	table := responder.DefaultTable()
	if cfg.Responder.FallbackFile != "" {
		t, err := responder.LoadTableFile(cfg.Responder.FallbackFile)
		if err != nil {
			return nil, nil, err
		}
		table = t
		logger.Info("loaded fallback table", zap.String("path", cfg.Responder.FallbackFile))
	}

	genCfg := responder.Config{
		Enabled:         cfg.AI.Enabled(),
		Model:           cfg.AI.Model,
		AlternateModels: cfg.AI.AlternateModels,
		HistoryWindow:   cfg.AI.HistoryWindow,
		Timeout:         cfg.AI.Timeout,
	}
	if !genCfg.Enabled {
		logger.Warn("no AI API key configured, replies come from the fallback table")
		return responder.NewGenerator(genCfg, nil, table, nil, logger, m), nil, nil
	}

	client := ai.NewGeminiClient(&cfg.AI, logger, ai.WithClock(clk), ai.WithMetrics(m))
	limiter := ratelimit.NewGenerationLimiter(ratelimit.Config{
		PerMinute:     cfg.GenerationLimit.PerMinute,
		PerHour:       cfg.GenerationLimit.PerHour,
		PerDay:        cfg.GenerationLimit.PerDay,
		MaxConcurrent: cfg.GenerationLimit.MaxConcurrent,
	}, clk, logger)
	logger.Info("initialized generation limiter",
		zap.Int("max_per_minute", cfg.GenerationLimit.PerMinute),
		zap.Int("max_per_hour", cfg.GenerationLimit.PerHour),
		zap.Int("max_per_day", cfg.GenerationLimit.PerDay),
		zap.Int("max_concurrent", cfg.GenerationLimit.MaxConcurrent),
	)
	return responder.NewGenerator(genCfg, client, table, limiter, logger, m), client, nil
}

// initNotifier returns the Discord notifier, or a no-op when no webhook is
// configured.
func initNotifier(cfg *config.Config, logger *zap.Logger) (notify.Notifier, error) {
	if cfg.Notify.DiscordWebhookURL == "" {
		return notify.Noop{}, nil
	}
	n, err := notify.NewDiscordNotifier(cfg.Notify.DiscordWebhookURL, logger)
	if err != nil {
		return nil, fmt.Errorf("configure discord notifier: %w", err)
	}
	return n, nil
}
