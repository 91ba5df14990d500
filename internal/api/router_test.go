package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"geoauth/internal/api/middleware"
	"geoauth/internal/app/service"
	"geoauth/internal/common/security"
	"geoauth/internal/domain/repository"
	"geoauth/internal/platform/database"
	"geoauth/internal/platform/geo"
	"geoauth/internal/platform/metrics"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret"

type testEnv struct {
	router http.Handler
	db     *sql.DB
	tokens *security.TokenService
}

func newTestEnv(t *testing.T, upstreamURL string) *testEnv {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	userRepo := repository.NewSQLiteUserRepository(db)
	tokens := security.NewTokenService([]byte(testSecret), time.Hour)
	collector := metrics.NewCollector()

	client := &http.Client{}
	geocoder := geo.NewGeocoder(client, testLogger(), upstreamURL, collector)
	directions := geo.NewDirections(client, testLogger(), upstreamURL, "test-key", collector)

	limiter := middleware.NewRateLimiter(6000, 1000)
	t.Cleanup(limiter.Stop)

	router := NewRouter(
		service.NewAuthService(userRepo, tokens),
		service.NewUserService(userRepo, tokens),
		service.NewGeoService(geocoder, directions),
		tokens,
		userRepo,
		collector,
		limiter,
	)
	return &testEnv{router: router, db: db, tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) signupAndLogin(t *testing.T, username, email, password string) (string, int64) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/signup", "", map[string]string{
		"username": username, "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/login", "", map[string]string{
		"username": username, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID int64 `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp.User.ID
}

func TestSignupFlow(t *testing.T) {
	env := newTestEnv(t, "http://unused.invalid")

	rec := env.do(t, http.MethodPost, "/signup", "", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "pw",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "user created successfully")

	// Signup does not auto-login: no token in the response.
	assert.NotContains(t, rec.Body.String(), "token")

	// Duplicate username vs duplicate email report different messages.
	rec = env.do(t, http.MethodPost, "/signup", "", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "pw",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "username already in use")

	rec = env.do(t, http.MethodPost, "/signup", "", map[string]string{
		"username": "bob", "email": "alice@example.com", "password": "pw",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "email already in use")

	rec = env.do(t, http.MethodPost, "/signup", "", map[string]string{"username": "carol"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t, "http://unused.invalid")
	env.signupAndLogin(t, "alice", "alice@example.com", "pw")

	rec := env.do(t, http.MethodPost, "/login", "", map[string]string{
		"username": "ghost", "password": "pw",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "username incorrect")

	rec = env.do(t, http.MethodPost, "/login", "", map[string]string{
		"username": "alice", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "password incorrect")
}

func TestProtectedRoutes_TokenStateMachine(t *testing.T) {
	env := newTestEnv(t, "http://unused.invalid")
	token, userID := env.signupAndLogin(t, "alice", "alice@example.com", "pw")

	// No Authorization header.
	rec := env.do(t, http.MethodGet, "/user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token missing")

	// Garbage token.
	rec = env.do(t, http.MethodGet, "/user", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token invalid")

	// Expired token, signed with the right secret.
	rec = env.do(t, http.MethodGet, "/user", expiredToken(t, userID, "alice"), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "expired")

	// Valid token whose user has since been deleted.
	_, err := env.db.Exec("DELETE FROM users WHERE id = ?", userID)
	require.NoError(t, err)
	rec = env.do(t, http.MethodGet, "/user", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "user not found")
}

func TestGetCurrentUser(t *testing.T) {
	env := newTestEnv(t, "http://unused.invalid")
	token, userID := env.signupAndLogin(t, "alice", "alice@example.com", "pw")

	rec := env.do(t, http.MethodGet, "/user", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var user struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)

	// Never expose the password hash.
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t, "http://unused.invalid")
	token, _ := env.signupAndLogin(t, "alice", "alice@example.com", "pw")

	// No-op update.
	rec := env.do(t, http.MethodPut, "/user/update", token, map[string]string{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "no changes made")
	assert.NotContains(t, rec.Body.String(), `"token"`)

	// Email-only change: updated view, still no fresh token.
	rec = env.do(t, http.MethodPut, "/user/update", token, map[string]string{"email": "new@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "new@example.com")
	assert.NotContains(t, rec.Body.String(), `"token"`)

	// Username change: fresh token bound to the new name; the old token keeps
	// working until its natural expiry.
	rec = env.do(t, http.MethodPut, "/user/update", token, map[string]string{"username": "alice2"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
		User  struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice2", resp.User.Username)

	claims, err := env.tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice2", claims.Username)

	rec = env.do(t, http.MethodGet, "/user", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, "http://unused.invalid")
	token, _ := env.signupAndLogin(t, "alice", "alice@example.com", "pw")

	rec := env.do(t, http.MethodPost, "/logout", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "logout successful")

	// Stateless tokens: logout invalidates nothing.
	rec = env.do(t, http.MethodGet, "/user", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSearchEndpoint_Public(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"features": [{"type": "Feature"}]}`))
	}))
	defer upstream.Close()

	env := newTestEnv(t, upstream.URL)

	// No token needed, short query short-circuits.
	rec := env.do(t, http.MethodGet, "/api/search?q=ab", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/search?q=paris", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"type": "Feature"}]`, rec.Body.String())
}

func TestRouteEndpoint_Gated(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"features": [{"properties": {"segments": [{"distance": 10}]}}]}`))
	}))
	defer upstream.Close()

	env := newTestEnv(t, upstream.URL)
	token, _ := env.signupAndLogin(t, "alice", "alice@example.com", "pw")

	rec := env.do(t, http.MethodGet, "/api/route?start=1,2&end=3,4", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/route?start=1,2", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "start and end points are required")

	rec = env.do(t, http.MethodGet, "/api/route?start=1,2&end=3,4", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "segments")
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, "http://unused.invalid")

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "geoauth_http_status_total")
}

func expiredToken(t *testing.T, userID int64, username string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id":  userID,
		"username": username,
		"exp":      time.Now().Add(-61 * time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
