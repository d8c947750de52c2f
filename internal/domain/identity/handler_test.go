package identity

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthsync/healthsync/internal/platform/auth"
	"github.com/healthsync/healthsync/internal/platform/middleware"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler(zerolog.Nop(), false)
	h.RegisterRoutes(e.Group("/api/v1"), auth.BearerMiddleware(svc.tokens))
	return h, e
}

func do(e *echo.Echo, method, target, body, token string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

const registerBody = `{"email":"ada@example.com","password":"password123","full_name":"Ada Lovelace"}`

func registerViaAPI(t *testing.T, e *echo.Echo) AuthResult {
	t.Helper()
	rec, env := do(e, http.MethodPost, "/api/v1/auth/register", registerBody, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res AuthResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return res
}

func TestHandler_Register_ThenConflict(t *testing.T) {
	_, e := newTestHandler()

	rec, env := do(e, http.MethodPost, "/api/v1/auth/register", registerBody, "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "Registration successful", env.Message)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Contains(t, data, "accessToken")
	assert.Contains(t, data, "refreshToken")
	assert.Contains(t, data, "user")

	rec, env = do(e, http.MethodPost, "/api/v1/auth/register", registerBody, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Email already registered", env.Message)
}

func TestHandler_Register_BadBody(t *testing.T) {
	_, e := newTestHandler()

	rec, env := do(e, http.MethodPost, "/api/v1/auth/register", `{"email":`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
}

func TestHandler_Login_TokenWorksOnProtectedRoute(t *testing.T) {
	_, e := newTestHandler()
	registerViaAPI(t, e)

	rec, env := do(e, http.MethodPost, "/api/v1/auth/login",
		`{"email":"ada@example.com","password":"password123"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res AuthResult
	require.NoError(t, json.Unmarshal(env.Data, &res))

	rec, env = do(e, http.MethodGet, "/api/v1/users/profile", "", res.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	rec, _ = do(e, http.MethodGet, "/api/v1/users/profile", "", res.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_Login_IdenticalFailures(t *testing.T) {
	_, e := newTestHandler()
	registerViaAPI(t, e)

	unknownRec, _ := do(e, http.MethodPost, "/api/v1/auth/login",
		`{"email":"ghost@example.com","password":"password123"}`, "")
	wrongRec, _ := do(e, http.MethodPost, "/api/v1/auth/login",
		`{"email":"ada@example.com","password":"nope-nope"}`, "")

	assert.Equal(t, http.StatusUnauthorized, unknownRec.Code)
	assert.Equal(t, unknownRec.Code, wrongRec.Code)
	assert.Equal(t, unknownRec.Body.String(), wrongRec.Body.String())
}

func TestHandler_Refresh(t *testing.T) {
	_, e := newTestHandler()
	reg := registerViaAPI(t, e)

	rec, env := do(e, http.MethodPost, "/api/v1/auth/refresh", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Refresh token required", env.Message)

	rec, env = do(e, http.MethodPost, "/api/v1/auth/refresh", `{"refreshToken":"`+reg.RefreshToken+`"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Token refreshed", env.Message)

	rec, _ = do(e, http.MethodPost, "/api/v1/auth/refresh", `{"refreshToken":"`+reg.AccessToken+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_Logout(t *testing.T) {
	_, e := newTestHandler()
	reg := registerViaAPI(t, e)

	rec, env := do(e, http.MethodPost, "/api/v1/auth/logout", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing authorization header", env.Message)

	rec, env = do(e, http.MethodPost, "/api/v1/auth/logout", "", reg.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logout successful", env.Message)
}

func TestHandler_UpdateThenGetProfile(t *testing.T) {
	_, e := newTestHandler()
	reg := registerViaAPI(t, e)

	rec, env := do(e, http.MethodPut, "/api/v1/users/profile",
		`{"full_name":"Ada King","blood_group":"O+","date_of_birth":"1815-12-10"}`, reg.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Profile updated successfully", env.Message)

	rec, env = do(e, http.MethodGet, "/api/v1/users/profile", "", reg.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var p Profile
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, "Ada King", p.FullName)
	assert.Equal(t, "O+", *p.BloodGroup)

	body := rec.Body.String()
	for _, secret := range []string{"password_hash", "verification_token", "two_factor_secret"} {
		assert.NotContains(t, body, secret)
	}
}

func TestHandler_UpdateProfile_NullClearsField(t *testing.T) {
	_, e := newTestHandler()
	reg := registerViaAPI(t, e)

	rec, _ := do(e, http.MethodPut, "/api/v1/users/profile", `{"blood_group":"O+","phone":"+94 77 123 4567"}`, reg.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env := do(e, http.MethodPut, "/api/v1/users/profile", `{"blood_group":null}`, reg.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var p Profile
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Nil(t, p.BloodGroup)
	require.NotNil(t, p.Phone)
	assert.Equal(t, "+94 77 123 4567", *p.Phone)
}

func TestHandler_DeleteProfile(t *testing.T) {
	_, e := newTestHandler()
	reg := registerViaAPI(t, e)

	rec, env := do(e, http.MethodDelete, "/api/v1/users/profile", "", reg.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Account deleted successfully", env.Message)

	rec, env = do(e, http.MethodGet, "/api/v1/users/profile", "", reg.AccessToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", env.Message)

	rec, _ = do(e, http.MethodPost, "/api/v1/auth/login",
		`{"email":"ada@example.com","password":"password123"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_UnknownRouteIsNotAuthFailure(t *testing.T) {
	_, e := newTestHandler()

	rec, env := do(e, http.MethodGet, "/api/v1/users/nothing-here", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", env.Message)
}
