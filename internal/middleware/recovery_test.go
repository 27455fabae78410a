package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	apperrors "github.com/jkindrix/fitai/internal/errors"
)

func TestRecovery(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantCode  int
		wantPanic bool
	}{
		{
			name:     "no panic",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) },
			wantCode: http.StatusNoContent,
		},
		{
			name:      "string panic",
			handler:   func(w http.ResponseWriter, r *http.Request) { panic("generator exploded") },
			wantCode:  http.StatusInternalServerError,
			wantPanic: true,
		},
		{
			name:      "error panic",
			handler:   func(w http.ResponseWriter, r *http.Request) { panic(errors.New("store gone")) },
			wantCode:  http.StatusInternalServerError,
			wantPanic: true,
		},
		{
			name: "nil dereference",
			handler: func(w http.ResponseWriter, r *http.Request) {
				var s *struct{ n int }
				_ = s.n
			},
			wantCode:  http.StatusInternalServerError,
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.ErrorLevel)
			h := Recovery(zap.New(core))(tt.handler)

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/chat", http.NoBody))

			if rr.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			if !tt.wantPanic {
				if logs.Len() != 0 {
					t.Errorf("unexpected logs: %v", logs.All())
				}
				return
			}

			var body apperrors.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Code != apperrors.CodeInternal {
				t.Errorf("code = %s", body.Error.Code)
			}

			entries := logs.FilterMessage("panic recovered").All()
			if len(entries) != 1 {
				t.Fatalf("got %d panic logs", len(entries))
			}
			fields := entries[0].ContextMap()
			if fields["path"] != "/api/chat" || fields["stack"] == nil {
				t.Errorf("log fields = %v", fields)
			}
		})
	}
}

func TestRecovery_AbortHandlerPropagates(t *testing.T) {
	h := Recovery(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler", rec)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
}
