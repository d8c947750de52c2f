package middleware

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const maxHeaderValueSize = 8192

var (
	// Logged, not blocked: every query is parameterised.
	sqlPattern = regexp.MustCompile(`(?i)('+\s*;\s*DROP\b|UNION\s+SELECT\b|'\s+OR\s+1\s*=\s*1)`)

	scriptPattern = regexp.MustCompile(`(?i)(<script|javascript\s*:|on\w+\s*=)`)
)

// Sanitize rejects requests carrying path traversal, null bytes, header
// injection, oversized headers or script payloads in the query string.
// Rejections are logged with the reason.
func Sanitize(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			reason := checkPath(req.URL)
			if reason == "" {
				reason = checkHeaders(req.Header)
			}
			if reason == "" {
				var suspicious string
				reason, suspicious = checkQuery(req.URL.Query())
				if suspicious != "" {
					logger.Warn().
						Str("param", suspicious).
						Str("path", req.URL.Path).
						Str("remote_ip", c.RealIP()).
						Msg("suspicious SQL pattern in query parameter")
				}
			}
			if reason != "" {
				rid, _ := c.Get("request_id").(string)
				logger.Warn().
					Str("request_id", rid).
					Str("path", req.URL.Path).
					Str("remote_ip", c.RealIP()).
					Str("reason", reason).
					Msg("request rejected")
				return echo.NewHTTPError(http.StatusBadRequest, reason)
			}

			return next(c)
		}
	}
}

func checkPath(u *url.URL) string {
	for _, p := range []string{u.Path, u.RawPath} {
		if containsPathTraversal(p) {
			return "Path traversal detected"
		}
		if containsNullByte(p) {
			return "Null byte injection detected"
		}
	}
	return ""
}

func checkHeaders(h http.Header) string {
	for name, values := range h {
		for _, v := range values {
			if len(v) > maxHeaderValueSize {
				return "Header value exceeds maximum size: " + name
			}
			if strings.ContainsAny(v, "\r\n") {
				return "Header injection detected: " + name
			}
		}
	}
	return ""
}

// checkQuery returns a rejection reason, and separately the name of the
// first parameter that looks like SQL injection.
func checkQuery(q url.Values) (reason, suspicious string) {
	for key, values := range q {
		for _, v := range values {
			switch {
			case containsNullByte(key) || containsNullByte(v):
				return "Null byte injection detected in query parameter", suspicious
			case scriptPattern.MatchString(key) || scriptPattern.MatchString(v):
				return "Script injection detected in query parameter", suspicious
			case suspicious == "" && sqlPattern.MatchString(v):
				suspicious = key
			}
		}
	}
	return "", suspicious
}

func containsPathTraversal(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(s, "..") || strings.Contains(lower, "%2e%2e") || strings.Contains(lower, "%252e")
}

func containsNullByte(s string) bool {
	return strings.ContainsRune(s, '\x00') || strings.Contains(strings.ToLower(s), "%00")
}

// SanitizeString drops null bytes and control characters other than
// newline, carriage return and tab, then trims surrounding whitespace.
func SanitizeString(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, input)
	return strings.TrimSpace(cleaned)
}
