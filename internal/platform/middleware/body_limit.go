package middleware

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/bytes"
)

const defaultBodyLimit = "1M"

// BodyLimit rejects request bodies larger than limit with 413. limit is a
// size such as "512K" or "50M". echo's limiter panics on a size it cannot
// parse, so a malformed or non-positive value falls back to 1M.
func BodyLimit(limit string) echo.MiddlewareFunc {
	return echomw.BodyLimit(NormalizeLimit(limit))
}

// NormalizeLimit returns limit when it parses to a positive size, and the
// default otherwise.
func NormalizeLimit(limit string) string {
	n, err := bytes.Parse(limit)
	if err != nil || n <= 0 {
		return defaultBodyLimit
	}
	return limit
}
