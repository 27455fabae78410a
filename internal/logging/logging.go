// Package logging builds the service's zap logger and lets operators change
// its level at runtime.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a zap.Logger whose level can be changed while running.
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

// Config controls logger construction.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Format is json or console.
	Format string
	// Environment switches on development options when "development".
	Environment string
	// Output defaults to stderr.
	Output io.Writer
}

// DefaultConfig returns JSON logging at info level.
func DefaultConfig() *Config {
	return &Config{Level: "info", Format: "json", Environment: "development"}
}

// New creates a Logger from cfg.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	atomic := zap.NewAtomicLevelAt(lvl)

	encCfg := zap.NewProductionEncoderConfig()
	if cfg.Environment != "production" {
		encCfg = zap.NewDevelopmentEncoderConfig()
	}
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if cfg.Format == "console" {
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	var out io.Writer = os.Stderr
	if cfg.Output != nil {
		out = cfg.Output
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Environment == "development" {
		opts = append(opts, zap.Development())
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(out), atomic)
	return &Logger{Logger: zap.New(core, opts...), level: atomic}, nil
}

// ParseLevel converts a level name to a zapcore.Level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown level: %s", level)
	}
}

// SetLevel changes the level of this logger and every child derived from it.
func (l *Logger) SetLevel(level string) error {
	parsed, err := ParseLevel(level)
	if err != nil {
		return err
	}
	previous := l.level.Level()
	l.level.SetLevel(parsed)
	l.Info("log level changed",
		zap.Stringer("new_level", parsed),
		zap.Stringer("previous_level", previous),
	)
	return nil
}

// Level returns the current level name.
func (l *Logger) Level() string {
	return l.level.String()
}

// Zap returns the underlying *zap.Logger for components that take one.
func (l *Logger) Zap() *zap.Logger {
	return l.Logger
}

type levelResponse struct {
	Level   string `json:"level,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ServeHTTP reports the level on GET and changes it on PUT or POST with a
// "level" query or form value.
func (l *Logger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	write := func(status int, body levelResponse) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}

	switch r.Method {
	case http.MethodGet:
		write(http.StatusOK, levelResponse{Level: l.Level()})
	case http.MethodPut, http.MethodPost:
		lvl := r.URL.Query().Get("level")
		if lvl == "" && r.ParseForm() == nil {
			lvl = r.FormValue("level")
		}
		if lvl == "" {
			write(http.StatusBadRequest, levelResponse{Error: "level parameter required"})
			return
		}
		if err := l.SetLevel(lvl); err != nil {
			write(http.StatusBadRequest, levelResponse{Error: err.Error()})
			return
		}
		write(http.StatusOK, levelResponse{Level: l.Level(), Message: "level updated"})
	default:
		write(http.StatusMethodNotAllowed, levelResponse{Error: "method not allowed"})
	}
}
