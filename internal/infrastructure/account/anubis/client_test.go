package anubis

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/peg-league/internal/platform/logging"
	"github.com/riskibarqy/peg-league/internal/platform/resilience"
	"github.com/riskibarqy/peg-league/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, w http.ResponseWriter, status int, payload any) {
	t.Helper()
	raw, err := sonic.Marshal(payload)
	assert.NoError(t, err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

func newTestClient(srv *httptest.Server, cfg ClientConfig) *Client {
	cfg.BaseURL = srv.URL
	cfg.IntrospectPath = "/v1/auth/introspect"
	cfg.HTTPClient = srv.Client()
	cfg.Logger = logging.NewNop()
	return NewClient(cfg)
}

func TestClientVerifyAccessToken_SendsAdminKeyAndParsesResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/auth/introspect", r.URL.Path)
		assert.Equal(t, "admin-secret", r.Header.Get("x-admin-key"))

		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var req map[string]string
		assert.NoError(t, sonic.Unmarshal(raw, &req))
		assert.Equal(t, "token-abc", req["token"])

		writeJSON(t, w, http.StatusOK, map[string]any{
			"active":  true,
			"user_id": "angler-001",
			"email":   "dan@example.com",
			"roles":   []string{"angler"},
		})
	}))
	defer srv.Close()

	client := newTestClient(srv, ClientConfig{AdminKey: "admin-secret"})

	principal, err := client.VerifyAccessToken(context.Background(), "token-abc")
	require.NoError(t, err)
	assert.Equal(t, "angler-001", principal.UserID)
	assert.Equal(t, "dan@example.com", principal.Email)
}

func TestClientVerifyAccessToken_Unauthorized(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"active": false})
	}))
	defer srv.Close()

	client := newTestClient(srv, ClientConfig{})

	_, err := client.VerifyAccessToken(context.Background(), "invalid-token")
	assert.True(t, usecase.IsClass(err, usecase.ErrUnauthorized), "inactive token: %v", err)

	_, err = client.VerifyAccessToken(context.Background(), "   ")
	assert.True(t, usecase.IsClass(err, usecase.ErrUnauthorized), "blank token: %v", err)
}

func TestClientVerifyAccessToken_ForbiddenMappedToDependencyUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	}))
	defer srv.Close()

	client := newTestClient(srv, ClientConfig{AdminKey: "wrong-key"})

	_, err := client.VerifyAccessToken(context.Background(), "token-abc")
	assert.True(t, usecase.IsClass(err, usecase.ErrDependencyUnavailable), "got %v", err)
	assert.False(t, usecase.IsClass(err, usecase.ErrUnauthorized))
}

func TestClientVerifyAccessToken_UsesInMemoryCache(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(t, w, http.StatusOK, map[string]any{"active": true, "user_id": "angler-002"})
	}))
	defer srv.Close()

	client := newTestClient(srv, ClientConfig{})

	for i := 0; i < 3; i++ {
		principal, err := client.VerifyAccessToken(context.Background(), "cached-token")
		require.NoError(t, err)
		assert.Equal(t, "angler-002", principal.UserID)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientVerifyAccessToken_CircuitOpensOnServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(srv, ClientConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	for i := 0; i < 4; i++ {
		_, err := client.VerifyAccessToken(context.Background(), "token-abc")
		assert.True(t, usecase.IsClass(err, usecase.ErrDependencyUnavailable), "attempt %d: %v", i, err)
	}
	assert.Equal(t, int32(2), calls.Load(), "open circuit stops calling the account service")
}

func TestBuildURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://auth.local/v1/introspect", buildURL("https://auth.local/", "v1/introspect"))
	assert.Equal(t, "https://other.local/x", buildURL("https://auth.local", "https://other.local/x"))
	assert.Equal(t, "https://auth.local", buildURL(" https://auth.local ", ""))
}

func TestClientVerifyAccessToken_ExpiredTokenIsNotCached(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"active":  true,
			"user_id": "angler-003",
			"exp":     time.Now().Add(-time.Minute).Unix(),
		})
	}))
	defer srv.Close()

	client := newTestClient(srv, ClientConfig{CacheTTL: time.Minute})

	for i := 0; i < 2; i++ {
		principal, err := client.VerifyAccessToken(context.Background(), "token-exp")
		require.NoError(t, err)
		assert.Equal(t, "angler-003", principal.UserID)
	}
	assert.Equal(t, int32(2), calls.Load())
}
