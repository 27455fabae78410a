// Package config loads FitAI configuration with Viper from an optional
// config.yaml, environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage and session drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
)

// PlaceholderAPIKey is the sample key shipped in example env files. It is
// treated the same as no key.
const PlaceholderAPIKey = "your_actual_key_here"

// Config holds all application configuration.
type Config struct {
	Server          ServerConfig
	Storage         StorageConfig
	Database        DatabaseConfig
	Redis           RedisConfig
	Session         SessionConfig
	AI              AIConfig
	Chat            ChatConfig
	Responder       ResponderConfig
	GenerationLimit GenerationLimitConfig
	CORS            CORSConfig
	RateLimit       RateLimitConfig
	Notify          NotifyConfig
	Log             LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Addr returns the listen address.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig selects where leads are kept.
type StorageConfig struct {
	Driver     string
	SQLitePath string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host                  string
	Port                  int
	User                  string
	Password              string
	Name                  string
	SSLMode               string
	MaxConnections        int
	MaxIdleConnections    int
	ConnectionMaxLifetime time.Duration
}

// ConnectionString returns a PostgreSQL connection URL.
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// RedisConfig holds the Redis connection used by the redis session driver.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SessionConfig controls widget session storage.
type SessionConfig struct {
	Driver        string
	TTL           time.Duration
	SweepInterval time.Duration
}

// AIConfig holds generative model settings.
type AIConfig struct {
	APIKey          string
	Model           string
	AlternateModels []string
	BaseURL         string
	Timeout         time.Duration
	// HistoryWindow is how many prior turns are included in the prompt.
	HistoryWindow int
}

// Enabled reports whether a usable API key is configured.
func (a *AIConfig) Enabled() bool {
	return a.APIKey != "" && a.APIKey != PlaceholderAPIKey
}

// ChatConfig holds chat endpoint and widget behavior.
type ChatConfig struct {
	MaxMessageLength int
	SchedulingURL    string
	// AlwaysOK answers internal failures with 200 and a friendly message.
	AlwaysOK           bool
	TypingDelayMin     time.Duration
	TypingDelayMax     time.Duration
	SummaryDelay       time.Duration
	BookingDelay       time.Duration
	ButtonBookingDelay time.Duration
}

// ResponderConfig holds canned response settings.
type ResponderConfig struct {
	// FallbackFile optionally replaces the built-in keyword table.
	FallbackFile string
}

// GenerationLimitConfig caps model calls to control spend.
type GenerationLimitConfig struct {
	PerMinute     int
	PerHour       int
	PerDay        int
	MaxConcurrent int
}

// CORSConfig lists origins allowed to embed the widget.
type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig holds per-client request limits.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// NotifyConfig holds new-lead notification targets.
type NotifyConfig struct {
	DiscordWebhookURL string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from config.yaml (if present) and the
// environment. Environment variables take precedence over file values.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/fitai")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = v.BindEnv("ai.api_key", "AI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("server.env", "SERVER_ENV", "APP_ENV")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			Environment:     v.GetString("server.env"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			IdleTimeout:     v.GetDuration("server.idle_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Storage: StorageConfig{
			Driver:     strings.ToLower(v.GetString("storage.driver")),
			SQLitePath: v.GetString("storage.sqlite_path"),
		},
		Database: DatabaseConfig{
			Host:                  v.GetString("database.host"),
			Port:                  v.GetInt("database.port"),
			User:                  v.GetString("database.user"),
			Password:              v.GetString("database.password"),
			Name:                  v.GetString("database.name"),
			SSLMode:               v.GetString("database.sslmode"),
			MaxConnections:        v.GetInt("database.max_connections"),
			MaxIdleConnections:    v.GetInt("database.max_idle_connections"),
			ConnectionMaxLifetime: v.GetDuration("database.connection_max_lifetime"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Session: SessionConfig{
			Driver:        strings.ToLower(v.GetString("session.driver")),
			TTL:           v.GetDuration("session.ttl"),
			SweepInterval: v.GetDuration("session.sweep_interval"),
		},
		AI: AIConfig{
			APIKey:          v.GetString("ai.api_key"),
			Model:           v.GetString("ai.model"),
			AlternateModels: stringList(v, "ai.alternate_models"),
			BaseURL:         v.GetString("ai.base_url"),
			Timeout:         v.GetDuration("ai.timeout"),
			HistoryWindow:   v.GetInt("ai.history_window"),
		},
		Chat: ChatConfig{
			MaxMessageLength:   v.GetInt("chat.max_message_length"),
			SchedulingURL:      v.GetString("chat.scheduling_url"),
			AlwaysOK:           v.GetBool("chat.always_ok"),
			TypingDelayMin:     v.GetDuration("chat.typing_delay_min"),
			TypingDelayMax:     v.GetDuration("chat.typing_delay_max"),
			SummaryDelay:       v.GetDuration("chat.summary_delay"),
			BookingDelay:       v.GetDuration("chat.booking_delay"),
			ButtonBookingDelay: v.GetDuration("chat.button_booking_delay"),
		},
		Responder: ResponderConfig{
			FallbackFile: v.GetString("responder.fallback_file"),
		},
		GenerationLimit: GenerationLimitConfig{
			PerMinute:     v.GetInt("generation_limit.per_minute"),
			PerHour:       v.GetInt("generation_limit.per_hour"),
			PerDay:        v.GetInt("generation_limit.per_day"),
			MaxConcurrent: v.GetInt("generation_limit.max_concurrent"),
		},
		CORS: CORSConfig{
			AllowedOrigins: stringList(v, "cors.allowed_origins"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("rate_limit.requests"),
			Window:   v.GetDuration("rate_limit.window"),
		},
		Notify: NotifyConfig{
			DiscordWebhookURL: v.GetString("notify.discord_webhook_url"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}
}

// stringList reads a list from YAML or a comma separated env value.
func stringList(v *viper.Viper, key string) []string {
	raw := v.Get(key)
	var items []string
	switch val := raw.(type) {
	case string:
		items = strings.Split(val, ",")
	default:
		items = v.GetStringSlice(key)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.env", "development")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("storage.driver", DriverMemory)
	v.SetDefault("storage.sqlite_path", "data/leads.db")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "fitai")
	v.SetDefault("database.name", "fitai")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)
	v.SetDefault("database.connection_max_lifetime", "30m")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("session.driver", DriverMemory)
	v.SetDefault("session.ttl", "30m")
	v.SetDefault("session.sweep_interval", "1m")

	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.alternate_models", "gemini-1.5-flash,gemini-1.0-pro,gemini-1.0-pro-001,models/gemini-pro")
	v.SetDefault("ai.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("ai.timeout", "20s")
	v.SetDefault("ai.history_window", 3)

	v.SetDefault("chat.max_message_length", 500)
	v.SetDefault("chat.scheduling_url", "https://calendly.com/your-username/fitai-consultation")
	v.SetDefault("chat.always_ok", false)
	v.SetDefault("chat.typing_delay_min", "1s")
	v.SetDefault("chat.typing_delay_max", "3s")
	v.SetDefault("chat.summary_delay", "1500ms")
	v.SetDefault("chat.booking_delay", "1s")
	v.SetDefault("chat.button_booking_delay", "800ms")

	v.SetDefault("generation_limit.per_minute", 30)
	v.SetDefault("generation_limit.per_hour", 600)
	v.SetDefault("generation_limit.per_day", 5000)
	v.SetDefault("generation_limit.max_concurrent", 8)

	v.SetDefault("cors.allowed_origins", "*")

	v.SetDefault("rate_limit.requests", 60)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate reports missing or inconsistent settings.
func (c *Config) Validate() error {
	var problems []string

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.Password == "" {
			problems = append(problems, "DATABASE_PASSWORD (required for postgres storage)")
		}
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			problems = append(problems, "STORAGE_SQLITE_PATH")
		}
	default:
		problems = append(problems, fmt.Sprintf("STORAGE_DRIVER (unknown driver %q)", c.Storage.Driver))
	}

	switch c.Session.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Redis.Addr == "" {
			problems = append(problems, "REDIS_ADDR (required for redis sessions)")
		}
	default:
		problems = append(problems, fmt.Sprintf("SESSION_DRIVER (unknown driver %q)", c.Session.Driver))
	}

	if c.Session.TTL <= 0 {
		problems = append(problems, "SESSION_TTL (must be positive)")
	}
	if c.Chat.MaxMessageLength <= 0 {
		problems = append(problems, "CHAT_MAX_MESSAGE_LENGTH (must be positive)")
	}
	if c.Chat.SchedulingURL == "" {
		problems = append(problems, "CHAT_SCHEDULING_URL")
	}
	if c.Chat.TypingDelayMin > c.Chat.TypingDelayMax {
		problems = append(problems, "CHAT_TYPING_DELAY_MIN (greater than CHAT_TYPING_DELAY_MAX)")
	}
	if c.AI.Model == "" {
		problems = append(problems, "AI_MODEL")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, ", "))
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
