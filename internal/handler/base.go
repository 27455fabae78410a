// Package handler provides HTTP handlers for the application.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/jkindrix/fitai/internal/errors"
	"github.com/jkindrix/fitai/internal/middleware"
	"github.com/jkindrix/fitai/internal/validation"
)

// JSON writes a JSON response with the appropriate headers.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// decodeJSON reads one JSON object from the body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return apperrors.New(apperrors.CodeBodyTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			return apperrors.New(apperrors.CodeInvalidJSON, "request body is empty")
		default:
			return apperrors.New(apperrors.CodeInvalidJSON, "request body is not valid JSON")
		}
	}
	return nil
}

// APIError writes err as an ErrorResponse with the status its code maps to.
// System errors are logged and their detail is not sent to the client.
func APIError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status := apperrors.GetHTTPStatus(err)

	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		appErr = apperrors.InternalError("internal server error", err)
	}
	if status >= http.StatusInternalServerError {
		middleware.LoggerWithCorrelation(r.Context(), logger).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	JSON(w, status, appErr.ToResponse())
}

// ValidationErrorResponse lists field problems.
type ValidationErrorResponse struct {
	Error  string                       `json:"error"`
	Fields []validation.ValidationError `json:"fields"`
}

// APIValidationError writes a 400 with field-level details.
func APIValidationError(w http.ResponseWriter, fields validation.ValidationErrors) {
	JSON(w, http.StatusBadRequest, ValidationErrorResponse{
		Error:  "Validation failed",
		Fields: fields,
	})
}
