package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testAccessSecret  = []byte("test-access-secret-for-unit-tests-only")
	testRefreshSecret = []byte("test-refresh-secret-for-unit-tests-only")
)

func newTestTokenManager() *TokenManager {
	return NewTokenManager(TokenConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     24 * time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
	})
}

func createTestToken(t *testing.T, claims Claims, key []byte, method jwt.SigningMethod) string {
	t.Helper()
	tokenStr, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func TestIssuePair_ClaimsAndLifetimes(t *testing.T) {
	tm := newTestTokenManager()
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return fixed }

	pair, err := tm.IssuePair("user-1")
	require.NoError(t, err)

	access, err := tm.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", access.Subject)
	assert.Equal(t, TokenTypeAccess, access.Type)
	assert.Equal(t, fixed.Add(24*time.Hour), access.ExpiresAt.Time.UTC())
	assert.NotEmpty(t, access.ID)

	refresh, err := tm.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, refresh.Type)
	assert.Equal(t, fixed.Add(7*24*time.Hour), refresh.ExpiresAt.Time.UTC())
	assert.NotEqual(t, access.ID, refresh.ID)
}

func TestTokens_NotInterchangeable(t *testing.T) {
	tm := newTestTokenManager()
	pair, err := tm.IssuePair("user-1")
	require.NoError(t, err)

	_, err = tm.ParseAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = tm.ParseRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_TypeCheckedEvenWithSharedSecret(t *testing.T) {
	tm := NewTokenManager(TokenConfig{AccessSecret: testAccessSecret, RefreshSecret: testAccessSecret})
	pair, err := tm.IssuePair("user-1")
	require.NoError(t, err)

	_, err = tm.ParseAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_Expired(t *testing.T) {
	tm := newTestTokenManager()
	tm.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	pair, err := tm.IssuePair("user-1")
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = tm.ParseRefresh(pair.RefreshToken)
	assert.NoError(t, err, "refresh token outlives the access token")
}

func TestParse_Rejections(t *testing.T) {
	tm := newTestTokenManager()
	valid := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Type: TokenTypeAccess,
	}
	noExp := valid
	noExp.ExpiresAt = nil
	noSub := valid
	noSub.Subject = ""

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.jwt"},
		{"wrong secret", createTestToken(t, valid, []byte("some-other-secret"), jwt.SigningMethodHS256)},
		{"wrong algorithm", createTestToken(t, valid, testAccessSecret, jwt.SigningMethodHS512)},
		{"missing exp", createTestToken(t, noExp, testAccessSecret, jwt.SigningMethodHS256)},
		{"missing subject", createTestToken(t, noSub, testAccessSecret, jwt.SigningMethodHS256)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tm.ParseAccess(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
