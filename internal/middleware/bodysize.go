package middleware

import (
	"net/http"

	apperrors "github.com/jkindrix/fitai/internal/errors"
)

const (
	// DefaultMaxBodySize caps routes without a specific limit.
	DefaultMaxBodySize = 1 << 20
	// MaxChatBodySize fits a 500 rune message plus the client-held history.
	MaxChatBodySize = 256 << 10
	// MaxFormBodySize fits a lead form.
	MaxFormBodySize = 16 << 10
)

// BodySizeLimiter rejects bodies larger than maxBytes with 413. A declared
// Content-Length is checked up front; chunked bodies are capped while the
// handler reads them and surface as *http.MaxBytesError.
func BodySizeLimiter(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > maxBytes {
				writeError(w, http.StatusRequestEntityTooLarge, apperrors.CodeBodyTooLarge, "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// BodySizeLimiterChat limits chat and widget session bodies.
func BodySizeLimiterChat() func(http.Handler) http.Handler {
	return BodySizeLimiter(MaxChatBodySize)
}

// BodySizeLimiterForm limits lead form bodies.
func BodySizeLimiterForm() func(http.Handler) http.Handler {
	return BodySizeLimiter(MaxFormBodySize)
}
