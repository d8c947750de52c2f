package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/healthsync/healthsync/pkg/apperrors"
	"github.com/healthsync/healthsync/pkg/response"
)

const internalMessage = "Internal Server Error"

type routeNotFound struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

// ErrorHandler renders every error as the response envelope. Raw error text
// for 5xx responses is only included when exposeInternal is set.
func ErrorHandler(logger zerolog.Logger, exposeInternal bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if errors.Is(err, echo.ErrNotFound) {
			writeErr := c.JSON(http.StatusNotFound, routeNotFound{
				Success: false,
				Message: "Route not found",
				Path:    c.Request().URL.Path,
			})
			logWriteErr(logger, writeErr)
			return
		}

		status, message, detail := resolve(err)
		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Msg("unhandled error")
			message = internalMessage
			if !exposeInternal {
				detail = ""
			}
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = response.Fail(c, status, message, detail)
		}
		logWriteErr(logger, writeErr)
	}
}

// resolve returns the status, client message and debug detail for err.
func resolve(err error) (int, string, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		detail := ""
		if he.Internal != nil {
			detail = he.Internal.Error()
		}
		return he.Code, httpErrorMessage(he), detail
	}

	if appErr, ok := apperrors.As(err); ok {
		detail := ""
		if appErr.Err != nil {
			detail = appErr.Err.Error()
		}
		return appErr.StatusCode(), appErr.Message, detail
	}

	return http.StatusInternalServerError, internalMessage, err.Error()
}

func httpErrorMessage(he *echo.HTTPError) string {
	switch m := he.Message.(type) {
	case string:
		return m
	case error:
		return m.Error()
	case nil:
		return http.StatusText(he.Code)
	default:
		return fmt.Sprint(m)
	}
}

func logWriteErr(logger zerolog.Logger, err error) {
	if err != nil {
		logger.Error().Err(err).Msg("write error response")
	}
}
