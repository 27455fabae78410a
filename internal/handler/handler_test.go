package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestNewHealthHandler_RequiresLogger(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic without logger")
		}
	}()
	NewHealthHandler(HealthHandlerConfig{})
}

func TestHealthHandler_HandleLiveness(t *testing.T) {
	h := NewHealthHandler(HealthHandlerConfig{Logger: zap.NewNop()})

	req := httptest.NewRequest(http.MethodGet, "/health/live", http.NoBody)
	rr := httptest.NewRecorder()

	h.HandleLiveness(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if rr.Body.String() != "alive" {
		t.Errorf("expected body 'alive', got %q", rr.Body.String())
	}
}

func TestHealthHandler_HandleHealth(t *testing.T) {
	tests := []struct {
		name       string
		leadErr    error
		sessionErr error
		ai         AIHealthChecker
		draining   bool
		wantCode   int
		wantStatus string
		wantLLM    string
	}{
		{
			name:       "all healthy",
			ai:         &mockAIHealthChecker{healthy: true},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
			wantLLM:    "healthy",
		},
		{
			name:       "no model configured",
			wantCode:   http.StatusOK,
			wantStatus: "ok",
			wantLLM:    "disabled",
		},
		{
			name:       "circuit open degrades",
			ai:         &mockAIHealthChecker{healthy: false},
			wantCode:   http.StatusOK,
			wantStatus: "degraded",
			wantLLM:    "degraded",
		},
		{
			name:       "draining degrades",
			ai:         &mockAIHealthChecker{healthy: true},
			draining:   true,
			wantCode:   http.StatusOK,
			wantStatus: "degraded",
			wantLLM:    "healthy",
		},
		{
			name:       "lead store down",
			leadErr:    errors.New("connection refused"),
			ai:         &mockAIHealthChecker{healthy: true},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
			wantLLM:    "healthy",
		},
		{
			name:       "session store down",
			sessionErr: errors.New("redis: nil"),
			ai:         &mockAIHealthChecker{healthy: false},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
			wantLLM:    "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(HealthHandlerConfig{
				Checks: map[string]HealthChecker{
					"lead_store":    &mockHealthChecker{pingErr: tt.leadErr},
					"session_store": &mockHealthChecker{pingErr: tt.sessionErr},
				},
				AI:      tt.ai,
				Drain:   &mockDrainer{draining: tt.draining},
				Version: "test",
				Logger:  zap.NewNop(),
			})

			rr := httptest.NewRecorder()
			h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

			if rr.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", rr.Code, tt.wantCode)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", resp.Status, tt.wantStatus)
			}
			if resp.Version != "test" {
				t.Errorf("version = %q", resp.Version)
			}
			if got := resp.Checks["llm"].Status; got != tt.wantLLM {
				t.Errorf("llm status = %q, want %q", got, tt.wantLLM)
			}
			if tt.leadErr != nil && resp.Checks["lead_store"].Message != tt.leadErr.Error() {
				t.Errorf("lead_store = %+v", resp.Checks["lead_store"])
			}
		})
	}
}

func TestHealthHandler_HandleReadiness(t *testing.T) {
	tests := []struct {
		name     string
		pingErr  error
		draining bool
		wantCode int
		wantBody string
	}{
		{"ready", nil, false, http.StatusOK, "ready"},
		{"store down", errors.New("down"), false, http.StatusServiceUnavailable, "not ready\n"},
		{"draining", nil, true, http.StatusServiceUnavailable, "draining\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(HealthHandlerConfig{
				Checks: map[string]HealthChecker{"lead_store": &mockHealthChecker{pingErr: tt.pingErr}},
				Drain:  &mockDrainer{draining: tt.draining},
				Logger: zap.NewNop(),
			})

			rr := httptest.NewRecorder()
			h.HandleReadiness(rr, httptest.NewRequest(http.MethodGet, "/health/ready", http.NoBody))

			if rr.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", rr.Code, tt.wantCode)
			}
			if rr.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rr.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestHealthHandler_ReadinessIgnoresModel(t *testing.T) {
	h := NewHealthHandler(HealthHandlerConfig{
		AI:     &mockAIHealthChecker{healthy: false},
		Logger: zap.NewNop(),
	})

	rr := httptest.NewRecorder()
	h.HandleReadiness(rr, httptest.NewRequest(http.MethodGet, "/health/ready", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Errorf("status code = %d, want 200 with an open circuit", rr.Code)
	}
}
