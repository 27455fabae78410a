package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger_PassesThrough(t *testing.T) {
	handler := RequestLogger(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"status":"received"}`))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/leads", http.NoBody))

	if rr.Code != http.StatusAccepted || rr.Body.String() != `{"status":"received"}` {
		t.Errorf("response = %d %q", rr.Code, rr.Body.String())
	}
}

func TestRequestLogger_Levels(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
		level  zapcore.Level
	}{
		{"chat ok", "/api/chat", http.StatusOK, zapcore.InfoLevel},
		{"session busy", "/api/widget/sessions/x/messages", http.StatusConflict, zapcore.WarnLevel},
		{"rate limited", "/api/chat", http.StatusTooManyRequests, zapcore.WarnLevel},
		{"store down", "/api/leads", http.StatusServiceUnavailable, zapcore.ErrorLevel},
		{"liveness probe", "/health/live", http.StatusOK, zapcore.DebugLevel},
		{"metrics scrape", "/metrics", http.StatusOK, zapcore.DebugLevel},
		{"failed readiness", "/health/ready", http.StatusServiceUnavailable, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			handler := RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			req := httptest.NewRequest(http.MethodPost, tt.path, http.NoBody)
			req = req.WithContext(WithCorrelationID(req.Context(), "conv-1"))
			handler.ServeHTTP(httptest.NewRecorder(), req)

			entries := logs.All()
			if len(entries) != 1 {
				t.Fatalf("got %d log entries", len(entries))
			}
			if entries[0].Level != tt.level {
				t.Errorf("level = %v, want %v", entries[0].Level, tt.level)
			}
			fields := entries[0].ContextMap()
			if fields["correlation_id"] != "conv-1" || fields["status"] != int64(tt.status) || fields["path"] != tt.path {
				t.Errorf("fields = %v", fields)
			}
		})
	}
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}

	_, _ = rw.Write([]byte("partial"))
	rw.WriteHeader(http.StatusInternalServerError)

	if rw.statusCode != http.StatusOK {
		t.Errorf("status = %d, want the implicit 200 from Write", rw.statusCode)
	}
}
