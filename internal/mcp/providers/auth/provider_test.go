package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarhub/scholarhub-mcp/internal/backend"
	mcpgw "github.com/scholarhub/scholarhub-mcp/internal/mcp"
)

func signedKey(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "u-1",
		"iss":   "scholarhub",
		"exp":   exp.Unix(),
		"scope": "papers:read papers:write",
	})
	signed, err := token.SignedString([]byte("unknown-to-the-client"))
	require.NoError(t, err)
	return signed
}

func newTestExecutor(t *testing.T, apiKey string, handler http.HandlerFunc) *Executor {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := backend.NewClient(log, backend.Config{BaseURL: srv.URL, APIKey: apiKey})
	require.NoError(t, err)
	return NewExecutor(log, client, apiKey)
}

func TestDefinitionsMatchHandlers(t *testing.T) {
	p := NewExecutor(nil, nil, "")
	assert.True(t, mcpgw.CheckContract(p.ListDefinitions(), p.ListHandlers()).OK())
}

func TestAuthStatusWithoutKey(t *testing.T) {
	p := NewExecutor(nil, nil, "")
	result, err := p.ListHandlers()[toolGetAuthStatus](context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, mcpgw.IsErrorResult(result))
	assert.Contains(t, mcpgw.ResultText(result), "No API key configured")
}

func TestAuthStatusInspectsJWT(t *testing.T) {
	exp := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)
	key := signedKey(t, exp)
	p := newTestExecutor(t, key, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+key, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"authenticated":true,"userId":"u-1"}`))
	})
	p.now = func() time.Time { return time.Date(2029, 1, 1, 0, 0, 0, 0, time.UTC) }

	result, err := p.ListHandlers()[toolGetAuthStatus](context.Background(), nil)
	require.NoError(t, err)
	status, ok := result["structuredContent"].(Status)
	require.True(t, ok)
	assert.Equal(t, "jwt", status.TokenType)
	assert.Equal(t, "u-1", status.Subject)
	assert.True(t, exp.Equal(status.ExpiresAt))
	assert.False(t, status.Expired)
	assert.Equal(t, []string{"papers:read", "papers:write"}, status.Scopes)
	assert.True(t, status.Authenticated)
	assert.Contains(t, mcpgw.ResultText(result), "valid until 2030-05-01")
}

func TestAuthStatusExpiredAndRejected(t *testing.T) {
	key := signedKey(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	p := newTestExecutor(t, key, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	result, err := p.ListHandlers()[toolGetAuthStatus](context.Background(), nil)
	require.NoError(t, err)
	status := result["structuredContent"].(Status)
	assert.True(t, status.Expired)
	assert.Equal(t, "API key rejected", status.BackendError)
	assert.Contains(t, mcpgw.ResultText(result), "expired on 2020-01-01")
}

func TestAuthStatusOpaqueKey(t *testing.T) {
	p := newTestExecutor(t, "sk_live_opaque", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"authenticated":true,"userId":"u-9","scopes":["credits:read"]}`))
	})
	result, err := p.ListHandlers()[toolGetAuthStatus](context.Background(), nil)
	require.NoError(t, err)
	status := result["structuredContent"].(Status)
	assert.Equal(t, "opaque", status.TokenType)
	assert.Equal(t, []string{"credits:read"}, status.Scopes)
}

func TestWhoami(t *testing.T) {
	p := newTestExecutor(t, "sk", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"u-2","username":"grace","name":"Grace Hopper","roles":["author","reviewer"]}`))
	})
	result, err := p.ListHandlers()[toolWhoami](context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Signed in as Grace Hopper, @grace (`u-2`) with roles author, reviewer.", mcpgw.ResultText(result))

	anonymous := NewExecutor(nil, nil, "")
	result, err = anonymous.ListHandlers()[toolWhoami](context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, mcpgw.IsErrorResult(result))
}
