package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{NotFound("x"), http.StatusNotFound},
		{Validation("x"), http.StatusBadRequest},
		{Conflict("x"), http.StatusConflict},
		{Unauthorized("x"), http.StatusUnauthorized},
		{Forbidden("x"), http.StatusForbidden},
		{Internal("x", errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Type), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestAs_WrappedChain(t *testing.T) {
	wrapped := fmt.Errorf("get user: %w", NotFound("User not found"))

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, TypeNotFound, appErr.Type)
	assert.Equal(t, "User not found", appErr.Message)
	assert.True(t, Is(wrapped, TypeNotFound))
	assert.False(t, Is(wrapped, TypeConflict))
}

func TestInternal_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal("query failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAs_PlainError(t *testing.T) {
	_, ok := As(errors.New("plain"))
	assert.False(t, ok)
}
