package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthsync/healthsync/pkg/apperrors"
)

func runBearer(t *testing.T, header string) (string, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/visits", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen string
	err := BearerMiddleware(newTestTokenManager())(func(c echo.Context) error {
		seen = UserIDFromContext(c.Request().Context())
		assert.Equal(t, seen, c.Get("user_id"))
		return c.String(http.StatusOK, "ok")
	})(c)
	return seen, err
}

func assertUnauthorized(t *testing.T, err error, msg string) {
	t.Helper()
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	assert.Equal(t, msg, httpErr.Message)
}

func TestBearerMiddleware_MissingHeader(t *testing.T) {
	_, err := runBearer(t, "")
	assertUnauthorized(t, err, "missing authorization header")
}

func TestBearerMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runBearer(t, tt.header)
			assertUnauthorized(t, err, "invalid authorization format")
		})
	}
}

func TestBearerMiddleware_InvalidToken(t *testing.T) {
	_, err := runBearer(t, "Bearer not-a-token")
	assertUnauthorized(t, err, "invalid or expired token")
}

func TestBearerMiddleware_RejectsRefreshToken(t *testing.T) {
	pair, err := newTestTokenManager().IssuePair("user-1")
	require.NoError(t, err)

	_, err = runBearer(t, "Bearer "+pair.RefreshToken)
	assertUnauthorized(t, err, "invalid or expired token")
}

func TestBearerMiddleware_ValidToken(t *testing.T) {
	id := uuid.New().String()
	pair, err := newTestTokenManager().IssuePair(id)
	require.NoError(t, err)

	seen, err := runBearer(t, "bearer "+pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id, seen)
}

func TestRequireUserID(t *testing.T) {
	id := uuid.New()
	got, err := RequireUserID(WithUserID(context.Background(), id.String()))
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = RequireUserID(context.Background())
	assert.True(t, apperrors.Is(err, apperrors.TypeUnauthorized))
}
