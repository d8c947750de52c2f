package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RequestTimeout bounds each request. Repositories hand the request context
// to pgx, so queries still running at the deadline are cancelled and the
// client gets a 504 instead of a hung connection. A non-positive timeout
// disables the bound.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	if timeout <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx, cancel := context.WithTimeout(req.Context(), timeout)
			defer cancel()
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if err == nil || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return err
			}

			zerolog.Ctx(ctx).Warn().
				Str("path", req.URL.Path).
				Dur("timeout", timeout).
				Msg("request deadline exceeded")
			return echo.NewHTTPError(http.StatusGatewayTimeout, "Request timed out").SetInternal(err)
		}
	}
}
