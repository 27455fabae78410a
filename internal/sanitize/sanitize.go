// Package sanitize masks personal data and credentials before they reach
// logs. Visitors type emails and phone numbers into the chat, and upstream
// model errors can echo request URLs that carry the API key.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	// ?key=... and friends in request URLs.
	queryKeyPattern = regexp.MustCompile(`(?i)([?&](?:key|api_key|access_token|token)=)[^&\s"']+`)

	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|secret|token|password|auth)[=:\s"']*([\w-]{16,})`)

	bearerPattern = regexp.MustCompile(`(?i)bearer\s+[\w.-]+`)

	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	phonePattern = regexp.MustCompile(`\+?[1-9]\d{6,14}`)
)

// Config selects which rules run.
type Config struct {
	MaskCredentials bool
	MaskEmails      bool
	MaskPhones      bool
}

// DefaultConfig enables every rule.
func DefaultConfig() Config {
	return Config{MaskCredentials: true, MaskEmails: true, MaskPhones: true}
}

type rule struct {
	pattern *regexp.Regexp
	replace func(string) string
}

// Sanitizer applies its rules in order: credentials, then emails, then phones.
type Sanitizer struct {
	rules []rule
}

// New creates a Sanitizer for cfg.
func New(cfg Config) *Sanitizer {
	s := &Sanitizer{}
	if cfg.MaskCredentials {
		s.rules = append(s.rules,
			rule{queryKeyPattern, func(m string) string {
				return queryKeyPattern.ReplaceAllString(m, "${1}[REDACTED]")
			}},
			rule{apiKeyPattern, maskAPIKey},
			rule{bearerPattern, func(string) string { return "Bearer [REDACTED]" }},
		)
	}
	if cfg.MaskEmails {
		s.rules = append(s.rules, rule{emailPattern, maskEmail})
	}
	if cfg.MaskPhones {
		s.rules = append(s.rules, rule{phonePattern, maskPhone})
	}
	return s
}

// NewDefault creates a Sanitizer with every rule enabled.
func NewDefault() *Sanitizer {
	return New(DefaultConfig())
}

// String masks everything the rules match in input.
func (s *Sanitizer) String(input string) string {
	out := input
	for _, r := range s.rules {
		out = r.pattern.ReplaceAllStringFunc(out, r.replace)
	}
	return out
}

// Error returns the masked error text, or "" for nil.
func (s *Sanitizer) Error(err error) string {
	if err == nil {
		return ""
	}
	return s.String(err.Error())
}

// Headers returns a copy of headers with credential headers redacted and the
// rest masked.
func (s *Sanitizer) Headers(headers map[string][]string) map[string][]string {
	out := make(map[string][]string, len(headers))
	for k, vals := range headers {
		if isSensitiveHeader(strings.ToLower(k)) {
			out[k] = []string{"[REDACTED]"}
			continue
		}
		masked := make([]string, len(vals))
		for i, v := range vals {
			masked[i] = s.String(v)
		}
		out[k] = masked
	}
	return out
}

func maskAPIKey(match string) string {
	parts := apiKeyPattern.FindStringSubmatch(match)
	if len(parts) >= 3 {
		return strings.TrimSuffix(match, parts[2]) + "[REDACTED]"
	}
	return "[REDACTED]"
}

func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return "[email]"
	}
	if at <= 2 {
		return email[:1] + "***" + email[at:]
	}
	return email[:2] + "***" + email[at:]
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return phone[:3] + strings.Repeat("*", len(phone)-5) + phone[len(phone)-2:]
}

func isSensitiveHeader(header string) bool {
	switch header {
	case "authorization", "proxy-authorization", "x-api-key", "x-goog-api-key", "cookie", "set-cookie":
		return true
	}
	return false
}

// Email masks a single address.
func Email(email string) string {
	return maskEmail(email)
}

// APIKey shows only the first and last four characters of key.
func APIKey(key string) string {
	if len(key) <= 8 {
		return "[REDACTED]"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
