// Package errors defines the application error type used across FitAI.
// Errors carry a machine-readable code, a classification kind and the
// operation that produced them, and map onto HTTP status codes at the edge.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	// Input errors
	CodeValidation     Code = "VALIDATION_ERROR"
	CodeMissingField   Code = "MISSING_FIELD"
	CodeInvalidFormat  Code = "INVALID_FORMAT"
	CodeMessageTooLong Code = "MESSAGE_TOO_LONG"
	CodeInvalidJSON    Code = "INVALID_JSON"
	CodeBodyTooLarge   Code = "BODY_TOO_LARGE"

	// Resource and state errors
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeInvalidState Code = "INVALID_STATE"

	// Dependency errors
	CodeExternalService Code = "EXTERNAL_SERVICE_ERROR"
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeRateLimited     Code = "RATE_LIMITED"
	CodeTimeout         Code = "TIMEOUT"

	// Internal errors
	CodeInternal Code = "INTERNAL_ERROR"
	CodeDatabase Code = "DATABASE_ERROR"
	CodeStorage  Code = "STORAGE_ERROR"
	CodeConfig   Code = "CONFIG_ERROR"
)

// Kind classifies an error for handling decisions.
type Kind int

const (
	// KindUnknown is an unclassified error.
	KindUnknown Kind = iota
	// KindUser is caused by the caller (bad input, wrong state).
	KindUser
	// KindSystem is a failure inside the service or its storage.
	KindSystem
	// KindTransient may succeed if tried again later.
	KindTransient
)

// Error is the application error type.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Kind    Kind   `json:"-"`
	// Op names the failing operation, e.g. "session.Send".
	Op  string `json:"-"`
	Err error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeValidation, CodeMissingField, CodeInvalidFormat, CodeMessageTooLong, CodeInvalidJSON:
		return http.StatusBadRequest
	case CodeBodyTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvalidState:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeExternalService, CodeCircuitOpen:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsRetriable reports whether the error may succeed on retry.
func (e *Error) IsRetriable() bool {
	return e.Kind == KindTransient
}

// IsUserError reports whether the caller caused the error.
func (e *Error) IsUserError() bool {
	return e.Kind == KindUser
}

// ErrorResponse is the JSON body for API errors.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail holds the code and message of an API error.
type ErrorDetail struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// ToResponse converts the error into its API representation.
func (e *Error) ToResponse() ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: e.Code, Message: e.Message}}
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Kind: kindForCode(code)}
}

// Wrap wraps err with an operation, code and message.
func Wrap(err error, op string, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Kind: kindForCode(code), Op: op, Err: err}
}

func kindForCode(code Code) Kind {
	switch code {
	case CodeValidation, CodeMissingField, CodeInvalidFormat, CodeMessageTooLong, CodeInvalidJSON, CodeBodyTooLarge:
		return KindUser
	case CodeNotFound, CodeConflict, CodeInvalidState:
		return KindUser
	case CodeRateLimited, CodeTimeout, CodeCircuitOpen, CodeExternalService:
		return KindTransient
	default:
		return KindSystem
	}
}

var (
	// ErrRateLimited indicates too many requests from one client.
	ErrRateLimited = New(CodeRateLimited, "rate limit exceeded")

	// ErrCircuitOpen indicates the circuit breaker is rejecting calls.
	ErrCircuitOpen = New(CodeCircuitOpen, "service temporarily unavailable")

	// ErrTimeout indicates an operation ran out of time.
	ErrTimeout = New(CodeTimeout, "operation timed out")
)

// NotFound creates a not found error for a resource.
func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s not found", resource), Kind: KindUser}
}

// ValidationFailed creates a validation error.
func ValidationFailed(message string) *Error {
	return &Error{Code: CodeValidation, Message: message, Kind: KindUser}
}

// Conflict creates a conflict error.
func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message, Kind: KindUser}
}

// InvalidState creates an error for an operation not allowed in the current state.
func InvalidState(message string) *Error {
	return &Error{Code: CodeInvalidState, Message: message, Kind: KindUser}
}

// DatabaseError wraps a database failure.
func DatabaseError(op string, err error) *Error {
	return &Error{Code: CodeDatabase, Message: "database operation failed", Kind: KindSystem, Op: op, Err: err}
}

// StorageError wraps a session or cache store failure.
func StorageError(op string, err error) *Error {
	return &Error{Code: CodeStorage, Message: "storage operation failed", Kind: KindSystem, Op: op, Err: err}
}

// ExternalServiceError wraps a failure of a remote dependency.
func ExternalServiceError(service string, err error) *Error {
	return &Error{
		Code:    CodeExternalService,
		Message: fmt.Sprintf("%s service error", service),
		Kind:    KindTransient,
		Err:     err,
	}
}

// InternalError creates a generic internal error.
func InternalError(message string, err error) *Error {
	return &Error{Code: CodeInternal, Message: message, Kind: KindSystem, Err: err}
}

// GetCode returns the code of err, or CodeInternal for foreign errors.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// GetHTTPStatus returns the HTTP status for err, or 500 for foreign errors.
func GetHTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// IsRetriable reports whether err may succeed on retry.
func IsRetriable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.IsRetriable()
	}
	return false
}

// IsNotFound reports whether err is a not found error.
func IsNotFound(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == CodeNotFound
	}
	return false
}

// IsUserError reports whether the caller caused err.
func IsUserError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.IsUserError()
	}
	return false
}
