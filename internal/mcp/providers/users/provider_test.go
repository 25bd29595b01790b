package users

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarhub/scholarhub-mcp/internal/backend"
	mcpgw "github.com/scholarhub/scholarhub-mcp/internal/mcp"
)

func newTestExecutor(t *testing.T, handler http.HandlerFunc) *Executor {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := backend.NewClient(log, backend.Config{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)
	return NewExecutor(log, client)
}

func TestDefinitionsMatchHandlers(t *testing.T) {
	p := NewExecutor(nil, nil)
	assert.True(t, mcpgw.CheckContract(p.ListDefinitions(), p.ListHandlers()).OK())
	assert.NoError(t, func() error {
		c := mcpgw.NewCatalog()
		if err := c.Add(mcpgw.LoadedProvider{Name: "users", Tools: p.ListDefinitions(), Handlers: p.ListHandlers()}); err != nil {
			return err
		}
		return c.ValidateAll()
	}())
}

func TestGetUserByUsernameHidesEmail(t *testing.T) {
	p := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/by-username/ada", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"u1","username":"ada","name":"Ada Lovelace","email":"ada@example.org"}`))
	})
	result, err := p.ListHandlers()[toolGetUser](context.Background(), map[string]any{"username": "ada"})
	require.NoError(t, err)
	text := mcpgw.ResultText(result)
	assert.Contains(t, text, "# Ada Lovelace")
	assert.NotContains(t, text, "ada@example.org")
}

func TestGetUserRequiresIdentifier(t *testing.T) {
	result, err := NewExecutor(nil, nil).ListHandlers()[toolGetUser](context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "user_id or username is required", mcpgw.ResultText(result))
}

func TestGetMyProfileUnauthenticated(t *testing.T) {
	p := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	result, err := p.ListHandlers()[toolGetMyProfile](context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, mcpgw.IsErrorResult(result))
	assert.Contains(t, mcpgw.ResultText(result), "not authenticated")
}

func TestListUserPapers(t *testing.T) {
	p := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/u1/papers", r.URL.Path)
		assert.Equal(t, "draft", r.URL.Query().Get("status"))
		_, _ = w.Write([]byte(`{"items":[{"id":"p1","title":"Notes"}],"total":1}`))
	})
	result, err := p.ListHandlers()[toolListUserPapers](context.Background(), map[string]any{"user_id": "u1", "status": "draft"})
	require.NoError(t, err)
	assert.Contains(t, mcpgw.ResultText(result), "Papers by `u1`")
}
