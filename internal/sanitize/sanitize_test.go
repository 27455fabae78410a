package sanitize

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizer_String(t *testing.T) {
	s := NewDefault()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "query key",
			input:    "Post \"https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash:generateContent?key=AIzaSyA1234567890abcdef\": dial tcp: timeout",
			expected: "Post \"https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash:generateContent?key=[REDACTED]\": dial tcp: timeout",
		},
		{
			name:     "api key assignment",
			input:    "api_key=sk-abcdefghijklmnop1234",
			expected: "api_key=[REDACTED]",
		},
		{
			name:     "bearer",
			input:    "Authorization: Bearer abcdef123456",
			expected: "Authorization: Bearer [REDACTED]",
		},
		{
			name:     "email",
			input:    "contact jane@example.com",
			expected: "contact ja***@example.com",
		},
		{
			name:     "short email",
			input:    "ab@test.org",
			expected: "a***@test.org",
		},
		{
			name:     "phone",
			input:    "call +15551234567",
			expected: "call +15*******67",
		},
		{
			name:     "plain text",
			input:    "I want to build muscle",
			expected: "I want to build muscle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.String(tt.input); got != tt.expected {
				t.Errorf("String(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSanitizer_Error(t *testing.T) {
	s := NewDefault()

	if got := s.Error(nil); got != "" {
		t.Errorf("Error(nil) = %q", got)
	}
	got := s.Error(errors.New("upstream rejected jane@example.com"))
	if strings.Contains(got, "jane@example.com") {
		t.Errorf("Error() leaked the address: %q", got)
	}
}

func TestSanitizer_Headers(t *testing.T) {
	s := NewDefault()
	in := map[string][]string{
		"Authorization":  {"Bearer xyz"},
		"X-Goog-Api-Key": {"AIzaSecret"},
		"X-Visitor":      {"jane@example.com"},
		"Content-Type":   {"application/json"},
	}

	out := s.Headers(in)

	if out["Authorization"][0] != "[REDACTED]" || out["X-Goog-Api-Key"][0] != "[REDACTED]" {
		t.Errorf("credential headers not redacted: %v", out)
	}
	if out["X-Visitor"][0] != "ja***@example.com" {
		t.Errorf("X-Visitor = %q", out["X-Visitor"][0])
	}
	if out["Content-Type"][0] != "application/json" {
		t.Errorf("Content-Type = %q", out["Content-Type"][0])
	}
	if in["Authorization"][0] != "Bearer xyz" {
		t.Error("input headers were modified")
	}
}

func TestNew_DisabledRules(t *testing.T) {
	s := New(Config{MaskCredentials: true})

	input := "jane@example.com +15551234567"
	if got := s.String(input); got != input {
		t.Errorf("String() = %q, want unchanged", got)
	}
}

func TestAPIKey(t *testing.T) {
	if got := APIKey("short"); got != "[REDACTED]" {
		t.Errorf("APIKey(short) = %q", got)
	}
	if got := APIKey("AIzaSyA1234567890"); got != "AIza...7890" {
		t.Errorf("APIKey() = %q", got)
	}
}

func TestEmail(t *testing.T) {
	if got := Email("coach@fitai.test"); got != "co***@fitai.test" {
		t.Errorf("Email() = %q", got)
	}
}
