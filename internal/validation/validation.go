// Package validation checks lead form submissions and chat messages before
// they reach storage or the response generator.
package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/jkindrix/fitai/internal/domain"
	apperrors "github.com/jkindrix/fitai/internal/errors"
)

// ValidationError represents a validation failure with field context.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// FieldErrors returns errors for a specific field.
func (e ValidationErrors) FieldErrors(field string) ValidationErrors {
	var result ValidationErrors
	for _, err := range e {
		if err.Field == field {
			result = append(result, err)
		}
	}
	return result
}

// Error codes for validation failures.
const (
	CodeRequired      = "required"
	CodeInvalidFormat = "invalid_format"
	CodeTooLong       = "too_long"
	CodeInvalidValue  = "invalid_value"
	CodeMalicious     = "malicious_content"
)

// Validator accumulates field errors.
type Validator struct {
	errors ValidationErrors
}

// New creates a new Validator.
func New() *Validator {
	return &Validator{}
}

// Errors returns all accumulated validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

// IsValid returns true if no validation errors occurred.
func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

// AddError adds a validation error.
func (v *Validator) AddError(field, message, code string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message, Code: code})
}

// Required validates that a string field is not blank.
func (v *Validator) Required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required", CodeRequired)
		return false
	}
	return true
}

// MaxLength validates that value has at most maxLen runes.
func (v *Validator) MaxLength(field, value string, maxLen int) bool {
	if utf8.RuneCountInString(value) > maxLen {
		v.AddError(field, fmt.Sprintf("must be at most %d characters", maxLen), CodeTooLong)
		return false
	}
	return true
}

// Email validates a single bare address such as jane@example.com.
func (v *Validator) Email(field, value string) bool {
	if value == "" {
		return true
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || !strings.Contains(value[strings.LastIndex(value, "@"):], ".") {
		v.AddError(field, "must be a valid email address", CodeInvalidFormat)
		return false
	}
	return true
}

// OneOf validates that value is one of the allowed values.
func (v *Validator) OneOf(field, value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	v.AddError(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")), CodeInvalidValue)
	return false
}

// NoScriptTags rejects values that look like injected markup.
func (v *Validator) NoScriptTags(field, value string) bool {
	lower := strings.ToLower(value)
	if strings.Contains(lower, "<script") || strings.Contains(lower, "javascript:") {
		v.AddError(field, "contains potentially malicious content", CodeMalicious)
		return false
	}
	return true
}

// SafeString rejects control characters other than newlines and tabs.
func (v *Validator) SafeString(field, value string) bool {
	for _, r := range value {
		if r < 32 && r != '\n' && r != '\r' && r != '\t' {
			v.AddError(field, "contains invalid control characters", CodeMalicious)
			return false
		}
	}
	return true
}

// Field limits for the lead form.
const (
	MaxNameLength  = 120
	MaxEmailLength = 254
	MaxGoalLength  = 500
)

// LeadForm is a lead form submission.
type LeadForm struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Goal       string `json:"goal"`
	Experience string `json:"experience"`
}

// ValidateLeadForm checks a form submission. Name and email are required and
// experience must be one of domain.Experiences.
func ValidateLeadForm(f LeadForm) ValidationErrors {
	v := New()

	if v.Required("name", f.Name) {
		v.MaxLength("name", f.Name, MaxNameLength)
		v.SafeString("name", f.Name)
		v.NoScriptTags("name", f.Name)
	}
	if v.Required("email", f.Email) {
		if v.MaxLength("email", f.Email, MaxEmailLength) {
			v.Email("email", strings.TrimSpace(f.Email))
		}
	}
	v.MaxLength("goal", f.Goal, MaxGoalLength)
	v.NoScriptTags("goal", f.Goal)
	v.OneOf("experience", strings.ToLower(strings.TrimSpace(f.Experience)), domain.Experiences())

	return v.Errors()
}

// Chat message errors, worded as the widget shows them.
const (
	MessageRequired = "Message is required"
	MessageTooLong  = "Message too long"
)

// ValidateChatMessage rejects blank messages and messages longer than
// maxLen runes. Surrounding whitespace counts toward the length.
func ValidateChatMessage(message string, maxLen int) error {
	if strings.TrimSpace(message) == "" {
		return apperrors.New(apperrors.CodeMissingField, MessageRequired)
	}
	if utf8.RuneCountInString(message) > maxLen {
		return apperrors.New(apperrors.CodeMessageTooLong, MessageTooLong)
	}
	return nil
}

// SanitizeString removes null bytes and control characters and trims.
func SanitizeString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == 0:
		case r < 32 && r != '\n' && r != '\r' && r != '\t':
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// PaginationConfig contains constraints for pagination parameters.
type PaginationConfig struct {
	MaxLimit     int
	DefaultLimit int
	MaxOffset    int
}

// DefaultPaginationConfig returns the limits used by the lead listing.
func DefaultPaginationConfig() *PaginationConfig {
	return &PaginationConfig{
		MaxLimit:     500,
		DefaultLimit: 20,
		MaxOffset:    100000,
	}
}

// PaginationParams represents validated pagination parameters.
type PaginationParams struct {
	Limit  int
	Offset int
}

// ValidatePagination rejects out of range values. A non-positive limit
// becomes the default.
func ValidatePagination(limit, offset int, cfg *PaginationConfig) (PaginationParams, error) {
	if cfg == nil {
		cfg = DefaultPaginationConfig()
	}
	if limit <= 0 {
		limit = cfg.DefaultLimit
	}
	if limit > cfg.MaxLimit {
		return PaginationParams{}, fmt.Errorf("limit must not exceed %d (got %d)", cfg.MaxLimit, limit)
	}
	if offset < 0 {
		return PaginationParams{}, fmt.Errorf("offset must not be negative (got %d)", offset)
	}
	if offset > cfg.MaxOffset {
		return PaginationParams{}, fmt.Errorf("offset must not exceed %d (got %d)", cfg.MaxOffset, offset)
	}
	return PaginationParams{Limit: limit, Offset: offset}, nil
}
