// redact.go removes credentials and user-identifying paths from reports
// before they leave the worker for the log store, email, or ticketing.

package warden

import "regexp"

// RedactorConfig controls redaction behavior.
type RedactorConfig struct {
	// ExtraPatterns contains additional regex patterns to redact from
	// messages, on top of the built-in credential patterns.
	ExtraPatterns []string

	// NormalizePaths replaces user home directories in stack traces.
	NormalizePaths bool
}

// DefaultRedactorConfig returns production-safe defaults.
func DefaultRedactorConfig() RedactorConfig {
	return RedactorConfig{
		NormalizePaths: true,
	}
}

// Built-in credential patterns, compiled once at package init.
var credentialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|token)[=:\s]+['"]?[\w\-.]+['"]?`),
	regexp.MustCompile(`(?i)password[=:\s]+['"]?[^\s'",]+['"]?`),
	regexp.MustCompile(`(?i)passwd[=:\s]+['"]?[^\s'",]+['"]?`),
	regexp.MustCompile(`(?i)secret[=:\s]+['"]?[^\s'",]+['"]?`),
	regexp.MustCompile(`(?i)credential[=:\s]+['"]?[^\s'",]+['"]?`),
	regexp.MustCompile(`(?i)(authorization|bearer)[=:\s]+['"]?[\w\-.]+['"]?`),
}

// User-specific directory patterns normalized out of stack traces.
var userPathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/home/[^/]+/`),
	regexp.MustCompile(`/Users/[^/]+/`),
	regexp.MustCompile(`C:\\Users\\[^\\]+\\`),
}

// Redactor removes sensitive data from error reports.
type Redactor struct {
	cfg   RedactorConfig
	extra []*regexp.Regexp
}

// NewRedactor creates a redactor with the given configuration. Invalid
// extra patterns are ignored.
func NewRedactor(cfg RedactorConfig) *Redactor {
	r := &Redactor{cfg: cfg}
	for _, pattern := range cfg.ExtraPatterns {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		r.extra = append(r.extra, compiled)
	}
	return r
}

// RedactMessage replaces credential material in a failure message.
func (r *Redactor) RedactMessage(msg string) string {
	for _, pattern := range credentialPatterns {
		msg = pattern.ReplaceAllString(msg, "[REDACTED]")
	}
	for _, pattern := range r.extra {
		msg = pattern.ReplaceAllString(msg, "[REDACTED]")
	}
	return msg
}

// RedactStackTrace normalizes user paths in a stack trace and applies the
// same credential patterns as RedactMessage.
func (r *Redactor) RedactStackTrace(trace string) string {
	if trace == "" {
		return trace
	}
	if r.cfg.NormalizePaths {
		for _, pattern := range userPathPatterns {
			trace = pattern.ReplaceAllString(trace, "/[PATH]/")
		}
	}
	return r.RedactMessage(trace)
}
