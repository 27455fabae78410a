package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// CorrelationIDHeader carries an ID shared by every request of one
	// widget conversation. The widget sends the session ID here.
	CorrelationIDHeader = "X-Correlation-ID"
	// RequestIDHeader carries an ID unique to one request.
	RequestIDHeader = "X-Request-ID"

	maxIncomingIDLength = 128
)

type (
	correlationIDKey struct{}
	requestIDKey     struct{}
)

// Correlation tags each request with a request ID and a correlation ID,
// taking them from the request headers when present. Without a correlation
// header the request ID is used. Both are echoed in the response headers.
func Correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := incomingID(r, RequestIDHeader)
		correlationID := r.Header.Get(CorrelationIDHeader)
		if correlationID == "" || len(correlationID) > maxIncomingIDLength {
			correlationID = requestID
		}

		w.Header().Set(CorrelationIDHeader, correlationID)
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), correlationIDKey{}, correlationID)
		ctx = context.WithValue(ctx, requestIDKey{}, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// incomingID returns the header value, or a new ID if it is missing or
// unreasonably long.
func incomingID(r *http.Request, header string) string {
	id := r.Header.Get(header)
	if id == "" || len(id) > maxIncomingIDLength {
		return uuid.NewString()
	}
	return id
}

// GetCorrelationID returns the correlation ID set by Correlation.
func GetCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// GetRequestID returns the request ID set by Correlation.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithCorrelationID returns a context carrying id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// LoggerWithCorrelation returns logger tagged with the IDs in ctx.
func LoggerWithCorrelation(ctx context.Context, logger *zap.Logger) *zap.Logger {
	fields := make([]zap.Field, 0, 2)
	if id := GetCorrelationID(ctx); id != "" {
		fields = append(fields, zap.String("correlation_id", id))
	}
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}
