package middleware

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/jkindrix/fitai/internal/errors"
)

// writeError writes an API error body. Middleware rejects requests before a
// handler runs, so it cannot use the handler helpers.
func writeError(w http.ResponseWriter, status int, code apperrors.Code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apperrors.New(code, message).ToResponse())
}
