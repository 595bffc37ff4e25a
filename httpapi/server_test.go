package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmaxwell-dev/authgate"
	"github.com/tmaxwell-dev/authgate/password"
	"github.com/tmaxwell-dev/authgate/store/memory"
)

type testServer struct {
	router     *gin.Engine
	engine     *authgate.Engine
	principals *memory.PrincipalStore
	sessions   *memory.SessionStore
	mr         *miniredis.Miniredis
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := authgate.DefaultConfig()
	cfg.Token.SigningSecret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	principals := memory.NewPrincipalStore()
	sessions := memory.NewSessionStore()

	engine, err := authgate.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithSessionRecords(sessions).
		WithPrincipalDirectory(principals).
		WithBookkeeper(principals).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	router := NewServer(engine, zerolog.Nop()).Router(Config{})

	return &testServer{
		router:     router,
		engine:     engine,
		principals: principals,
		sessions:   sessions,
		mr:         mr,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
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
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) register(t *testing.T, email, pass string) credentialsResponse {
	t.Helper()

	w := ts.do(t, http.MethodPost, "/auth/register", gin.H{
		"email":    email,
		"password": pass,
		"name":     "Test User",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var creds credentialsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &creds))
	return creds
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestRegisterLoginVerifyRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice@example.com", "fresh-password-1")

	w := ts.do(t, http.MethodPost, "/auth/login", gin.H{
		"email":    "alice@example.com",
		"password": "fresh-password-1",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var creds credentialsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &creds))
	require.NotEmpty(t, creds.SessionToken)
	require.NotEmpty(t, creds.RefreshToken)
	assert.True(t, creds.RefreshExpiresAt.After(creds.SessionExpiresAt))

	w = ts.do(t, http.MethodGet, "/auth/verify", nil, bearer(creds.SessionToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var identity identityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &identity))
	assert.Equal(t, "alice@example.com", identity.Email)
	assert.Equal(t, "standard", identity.PrincipalKind)
	assert.Equal(t, creds.SessionID, identity.SessionID)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice@example.com", "fresh-password-1")

	for _, body := range []gin.H{
		{"email": "alice@example.com", "password": "wrong"},
		{"email": "nobody@example.com", "password": "fresh-password-1"},
	} {
		w := ts.do(t, http.MethodPost, "/auth/login", body, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"invalid email or password"}`, w.Body.String())
	}
}

func TestRegisterDuplicateConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice@example.com", "fresh-password-1")

	w := ts.do(t, http.MethodPost, "/auth/register", gin.H{
		"email":    "Alice@Example.com",
		"password": "other-password",
	}, nil)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestLogoutAlwaysSucceeds(t *testing.T) {
	ts := newTestServer(t)
	creds := ts.register(t, "alice@example.com", "fresh-password-1")

	w := ts.do(t, http.MethodPost, "/auth/logout", nil, bearer(creds.SessionToken))
	require.Equal(t, http.StatusOK, w.Code)

	// Double logout stays 200.
	w = ts.do(t, http.MethodPost, "/auth/logout", nil, bearer(creds.SessionToken))
	require.Equal(t, http.StatusOK, w.Code)

	// The session is gone and the shape matches a bad token.
	w = ts.do(t, http.MethodGet, "/auth/verify", nil, bearer(creds.SessionToken))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"invalid or expired token"}`, w.Body.String())

	// Forged tokens are the only 401 on logout.
	w = ts.do(t, http.MethodPost, "/auth/logout", nil, bearer("garbage"))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshFromBodyAndBearer(t *testing.T) {
	ts := newTestServer(t)
	creds := ts.register(t, "alice@example.com", "fresh-password-1")

	w := ts.do(t, http.MethodPost, "/auth/refresh", gin.H{"refresh_token": creds.RefreshToken}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var refreshed refreshResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refreshed))
	assert.Equal(t, creds.SessionID, refreshed.SessionID)

	w = ts.do(t, http.MethodPost, "/auth/refresh", nil, bearer(creds.RefreshToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/auth/refresh", gin.H{"refresh_token": "garbage"}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"invalid or expired refresh token"}`, w.Body.String())
}

func TestProtectedRouteRequiresSession(t *testing.T) {
	ts := newTestServer(t)
	creds := ts.register(t, "alice@example.com", "fresh-password-1")

	w := ts.do(t, http.MethodGet, "/account/profile", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodGet, "/account/profile", nil, bearer("garbage"))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodGet, "/account/profile", nil, bearer(creds.SessionToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var identity identityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &identity))
	assert.Equal(t, "alice@example.com", identity.Email)
}

func elevatedSession(t *testing.T, ts *testServer) (credentialsResponse, string) {
	t.Helper()

	hasher, err := password.NewHasher(password.Config{
		Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	})
	require.NoError(t, err)
	hash, err := hasher.Hash("operator-password")
	require.NoError(t, err)

	ts.principals.SeedElevated(&authgate.ElevatedAccount{
		ID:           "op1",
		Email:        "ops@example.com",
		Name:         "Operator",
		PasswordHash: hash,
		Active:       true,
	})

	w := ts.do(t, http.MethodPost, "/auth/login", gin.H{
		"email":    "ops@example.com",
		"password": "operator-password",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var creds credentialsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &creds))

	secondary, err := ts.engine.IssueTwoStepToken(context.Background(),
		authgate.PrincipalRef{Kind: authgate.KindElevated, ID: "op1"})
	require.NoError(t, err)

	return creds, secondary
}

func TestTwoStepGatedRevocation(t *testing.T) {
	ts := newTestServer(t)
	creds, secondary := elevatedSession(t, ts)
	victim := ts.register(t, "alice@example.com", "fresh-password-1")

	headers := bearer(creds.SessionToken)
	headers[secondFactorHeader] = secondary

	w := ts.do(t, http.MethodDelete, "/admin/sessions/"+victim.SessionID, nil, headers)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/auth/verify", nil, bearer(victim.SessionToken))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTwoStepMiddlewareStepTagging(t *testing.T) {
	ts := newTestServer(t)
	creds, secondary := elevatedSession(t, ts)

	// No second factor at all.
	w := ts.do(t, http.MethodGet, "/internal/metrics", nil, bearer(creds.SessionToken))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"step":2`)

	// Bad primary.
	headers := bearer("garbage")
	headers[secondFactorHeader] = secondary
	w = ts.do(t, http.MethodGet, "/internal/metrics", nil, headers)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"step":1`)

	// Bad secondary.
	headers = bearer(creds.SessionToken)
	headers[secondFactorHeader] = "garbage"
	w = ts.do(t, http.MethodGet, "/internal/metrics", nil, headers)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"step":2`)

	// Mismatched principals: distinct status.
	victim := ts.register(t, "alice@example.com", "fresh-password-1")
	headers = bearer(victim.SessionToken)
	headers[secondFactorHeader] = secondary
	w = ts.do(t, http.MethodGet, "/internal/metrics", nil, headers)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	creds, secondary := elevatedSession(t, ts)

	headers := bearer(creds.SessionToken)
	headers[secondFactorHeader] = secondary

	w := ts.do(t, http.MethodGet, "/internal/metrics", nil, headers)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var snap struct {
		Counters map[string]uint64 `json:"counters"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.GreaterOrEqual(t, snap.Counters["login_success"], uint64(1))
}

type failingSessions struct {
	authgate.SessionRecords
}

func (f failingSessions) FindByID(ctx context.Context, sessionID string) (*authgate.Session, error) {
	return nil, errors.New("connection refused")
}

func TestDurableOutageYields500(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := authgate.DefaultConfig()
	cfg.Token.SigningSecret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	principals := memory.NewPrincipalStore()
	sessions := memory.NewSessionStore()

	engine, err := authgate.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithSessionRecords(failingSessions{sessions}).
		WithPrincipalDirectory(principals).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	router := NewServer(engine, zerolog.Nop()).Router(Config{})
	ts := &testServer{router: router, engine: engine, principals: principals, sessions: sessions, mr: mr}

	creds := ts.register(t, "alice@example.com", "fresh-password-1")

	// Evict the cache so the middleware is forced onto the durable path.
	mr.FlushAll()

	w := ts.do(t, http.MethodGet, "/account/profile", nil, bearer(creds.SessionToken))
	require.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestVerifyIsReadOnly(t *testing.T) {
	ts := newTestServer(t)
	creds := ts.register(t, "alice@example.com", "fresh-password-1")

	key := "agc:" + creds.SessionID
	ts.mr.FastForward(10 * time.Minute)

	w := ts.do(t, http.MethodGet, "/auth/verify", nil, bearer(creds.SessionToken))
	require.Equal(t, http.StatusOK, w.Code)

	// Introspection must not slide the cache TTL.
	assert.LessOrEqual(t, ts.mr.TTL(key), 5*time.Minute)
}
