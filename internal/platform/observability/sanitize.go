package observability

import (
	"strings"
	"unicode"
)

const (
	defaultStringLimit = 256
	redactKeep         = 6
)

// sanitizeString drops control characters and caps the rune count so request data cannot forge
// log lines.
func sanitizeString(value string, limit int) string {
	if limit <= 0 {
		limit = defaultStringLimit
	}
	var b strings.Builder
	n := 0
	for _, r := range value {
		if unicode.IsControl(r) {
			continue
		}
		if n == limit {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

// SanitizeRoute removes control characters and enforces length constraints on routes.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return sanitizeString(route, 180)
}

// SanitizeMethod removes control characters in HTTP methods.
func SanitizeMethod(method string) string {
	return sanitizeString(method, 10)
}

// RedactID keeps a short prefix of a bearer identifier such as a session id, enough to correlate
// log lines without making the value replayable.
func RedactID(id string) string {
	id = sanitizeString(id, 64)
	if len(id) <= redactKeep {
		return strings.Repeat("*", len(id))
	}
	return id[:redactKeep] + "…"
}
