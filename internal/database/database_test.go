package database

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jkindrix/fitai/internal/config"
)

func TestPoolConfig(t *testing.T) {
	tracer := NewQueryLogger(nil, nil, zap.NewNop())
	cfg := &config.DatabaseConfig{
		Host: "db.internal", Port: 5433, User: "fitai", Password: "secret", Name: "leads", SSLMode: "disable",
		MaxConnections: 8, MaxIdleConnections: 20, ConnectionMaxLifetime: 30 * time.Minute,
	}

	pc, err := poolConfig(cfg, tracer)
	if err != nil {
		t.Fatalf("poolConfig() error = %v", err)
	}
	if pc.ConnConfig.Host != "db.internal" || pc.ConnConfig.Port != 5433 || pc.ConnConfig.Database != "leads" {
		t.Errorf("conn = %s:%d/%s", pc.ConnConfig.Host, pc.ConnConfig.Port, pc.ConnConfig.Database)
	}
	if pc.MaxConns != 8 {
		t.Errorf("MaxConns = %d", pc.MaxConns)
	}
	if pc.MinConns != 8 {
		t.Errorf("MinConns = %d, want it capped at MaxConns", pc.MinConns)
	}
	if pc.MaxConnLifetime != 30*time.Minute {
		t.Errorf("MaxConnLifetime = %v", pc.MaxConnLifetime)
	}
	if pc.ConnConfig.Tracer != tracer {
		t.Error("tracer not installed")
	}
}

func TestPoolConfig_ZeroKeepsDefaults(t *testing.T) {
	cfg := &config.DatabaseConfig{Host: "localhost", Port: 5432, User: "u", Password: "p", Name: "d", SSLMode: "disable"}

	pc, err := poolConfig(cfg, NewQueryLogger(nil, nil, zap.NewNop()))
	if err != nil {
		t.Fatal(err)
	}
	if pc.MaxConns <= 0 || pc.MinConns != 0 {
		t.Errorf("MaxConns = %d MinConns = %d", pc.MaxConns, pc.MinConns)
	}
}

func TestPoolConfig_Invalid(t *testing.T) {
	cfg := &config.DatabaseConfig{Host: "localhost", Port: 5432, SSLMode: "bogus"}
	if _, err := poolConfig(cfg, nil); err == nil {
		t.Error("expected error for invalid sslmode")
	}
}
