package router

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"authgate/internal/auth"
	"authgate/internal/cache"
	"authgate/internal/config"
	"authgate/internal/handler"
	"authgate/internal/logging"
	authmw "authgate/internal/middleware"
	"authgate/internal/model"
	"authgate/internal/repository"
	"authgate/internal/service"
	"authgate/internal/testutil"
)

const spaOrigin = "http://localhost:5173"

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	return newTestServerLogging(t, io.Discard)
}

func newTestServerLogging(t *testing.T, w io.Writer) *echo.Echo {
	t.Helper()
	log := logging.New(w, "info")

	users := repository.NewUserRepository(testutil.NewDB(t))
	mr := miniredis.RunT(t)
	cacheClient := cache.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cacheClient.Close() })

	tokens := auth.NewJWTService("access-secret", "refresh-secret")
	identities := service.NewIdentityResolver(users, auth.NewBcryptHasher(bcrypt.MinCost))
	authService := service.NewAuthService(identities, tokens, log)
	userService := service.NewUserService(users, cacheClient)

	e := echo.New()
	Register(e, &config.Config{CORSAllowedOrigins: []string{spaOrigin}}, log,
		authmw.NewAccessGuard(tokens, users, log),
		handler.NewAuthHandler(authService, nil),
		handler.NewUserHandler(authService, userService),
	)
	return e
}

func call(e *echo.Echo, method, target, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func tokensFrom(t *testing.T, rec *httptest.ResponseRecorder) auth.TokenPair {
	t.Helper()
	var pair auth.TokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	return pair
}

func TestRouter_Healthz(t *testing.T) {
	e := newTestServer(t)
	rec := call(e, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestRouter_LocalAccountLifecycle(t *testing.T) {
	e := newTestServer(t)

	rec := call(e, http.MethodPost, "/api/auth/register", "", `{"name":"Ana","email":"ana@x.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	registered := tokensFrom(t, rec)

	rec = call(e, http.MethodPost, "/api/auth/register", "", `{"name":"Ana","email":"ana@x.com","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "EMAIL_TAKEN")

	rec = call(e, http.MethodPost, "/api/auth/login", "", `{"email":"ana@x.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	loggedIn := tokensFrom(t, rec)
	assert.NotEqual(t, loggedIn.AccessToken, loggedIn.RefreshToken)

	rec = call(e, http.MethodPost, "/api/auth/login", "", `{"email":"ana@x.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_CREDENTIALS")

	rec = call(e, http.MethodGet, "/api/users/profile", registered.AccessToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var profile model.UserProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "ana@x.com", profile.Email)
	assert.Equal(t, model.ProviderLocal, profile.Provider)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = call(e, http.MethodPost, "/api/auth/refresh", "", `{"refreshToken":"`+loggedIn.RefreshToken+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	refreshed := tokensFrom(t, rec)
	assert.NotEqual(t, loggedIn.RefreshToken, refreshed.RefreshToken)

	rec = call(e, http.MethodPost, "/api/auth/refresh", "", `{"refreshToken":"`+loggedIn.AccessToken+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_TOKEN")

	rec = call(e, http.MethodPut, "/api/users/profile/password", refreshed.AccessToken, `{"currentPassword":"secret1","newPassword":"secret2"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = call(e, http.MethodPost, "/api/auth/login", "", `{"email":"ana@x.com","password":"secret2"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = call(e, http.MethodGet, "/api/users/"+profile.ID, refreshed.AccessToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = call(e, http.MethodGet, "/api/users", refreshed.AccessToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var list []model.UserProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestRouter_SecuredRoutesRequireToken(t *testing.T) {
	e := newTestServer(t)

	for _, target := range []string{"/api/users/profile", "/api/users", "/api/users/any"} {
		rec := call(e, http.MethodGet, target, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "UNAUTHORIZED", target)
	}
}

func TestRouter_GoogleDisabled(t *testing.T) {
	e := newTestServer(t)
	rec := call(e, http.MethodGet, "/api/auth/google", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func preflight(e *echo.Echo, target, origin, method string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, target, nil)
	req.Header.Set(echo.HeaderOrigin, origin)
	req.Header.Set(echo.HeaderAccessControlRequestMethod, method)
	req.Header.Set(echo.HeaderAccessControlRequestHeaders, "authorization,content-type")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRouter_CORSPreflight(t *testing.T) {
	e := newTestServer(t)

	tests := []struct {
		name   string
		target string
		method string
	}{
		{name: "public route", target: "/api/auth/login", method: http.MethodPost},
		{name: "secured route", target: "/api/users/profile", method: http.MethodGet},
		{name: "password change", target: "/api/users/profile/password", method: http.MethodPut},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := preflight(e, tt.target, spaOrigin, tt.method)

			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, spaOrigin, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
			assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), tt.method)
			assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowHeaders), echo.HeaderAuthorization)
		})
	}
}

func TestRouter_CORSRejectsUnknownOrigin(t *testing.T) {
	e := newTestServer(t)

	rec := preflight(e, "/api/auth/login", "https://evil.example.com", http.MethodPost)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestRouter_CORSOnActualRequest(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/users/profile", nil)
	req.Header.Set(echo.HeaderOrigin, spaOrigin)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, spaOrigin, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlExposeHeaders), echo.HeaderXRequestID)
}

func TestRouter_LogsCarryRequestID(t *testing.T) {
	var buf bytes.Buffer
	e := newTestServerLogging(t, &buf)

	req := httptest.NewRequest(http.MethodGet, "/api/users/profile", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-abc")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "req-abc", rec.Header().Get(echo.HeaderXRequestID))

	var requestLines int
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		assert.Equal(t, "req-abc", entry["request_id"], line)
		if entry["msg"] == "request" {
			requestLines++
			assert.Equal(t, "/api/users/profile", entry["uri"])
		}
	}
	assert.Equal(t, 1, requestLines)
}
