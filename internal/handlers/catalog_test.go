package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarhub/scholarhub-mcp/internal/auth"
	mcpgw "github.com/scholarhub/scholarhub-mcp/internal/mcp"
	"github.com/scholarhub/scholarhub-mcp/internal/server"
)

type staticProvider struct {
	tools []mcpgw.ToolDescriptor
}

func (p staticProvider) ListDefinitions() []mcpgw.ToolDescriptor { return p.tools }

func (p staticProvider) ListHandlers() map[string]mcpgw.ToolHandler {
	handlers := make(map[string]mcpgw.ToolHandler, len(p.tools))
	for _, tool := range p.tools {
		name := tool.Name
		handlers[name] = func(ctx context.Context, arguments map[string]any) (map[string]any, error) {
			return mcpgw.BuildToolTextResult(name), nil
		}
	}
	return handlers
}

func staticFactory(names ...string) mcpgw.ProviderFactory {
	return func() (mcpgw.Provider, error) {
		tools := make([]mcpgw.ToolDescriptor, 0, len(names))
		for _, name := range names {
			tools = append(tools, mcpgw.ToolDescriptor{
				Name:        name,
				Description: "does " + name,
				InputSchema: mcpgw.ObjectSchema(nil),
			})
		}
		return staticProvider{tools: tools}, nil
	}
}

func newLoadedLoader(t *testing.T) *mcpgw.Loader {
	t.Helper()
	path := filepath.Join(t.TempDir(), "modules.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"enabledModules": {
			"search": {"enabled": true, "description": "Paper search"},
			"credits": {"enabled": true},
			"reviews": {"enabled": false}
		}
	}`), 0o644))
	loader := mcpgw.NewLoader(discardLogger(), mcpgw.LoaderOptions{
		ConfigPath: path,
		Factories: map[string]mcpgw.ProviderFactory{
			"search":  staticFactory("search_papers", "search_authors"),
			"credits": staticFactory("get_credit_balance"),
			"reviews": staticFactory("list_reviews"),
		},
	})
	_, err := loader.Load(context.Background())
	require.NoError(t, err)
	return loader
}

func serveCatalog(e *echo.Echo, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCatalogListTools(t *testing.T) {
	e := echo.New()
	NewCatalogHandler(discardLogger(), newLoadedLoader(t)).Register(e)

	rec := serveCatalog(e, http.MethodGet, "/api/tools", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tools []mcpgw.ToolDescriptor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tools))
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"search_papers", "search_authors", "get_credit_balance"}, names)

	rec = serveCatalog(e, http.MethodGet, "/api/tools?module=credits", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tools))
	require.Len(t, tools, 1)
	assert.Equal(t, "get_credit_balance", tools[0].Name)

	rec = serveCatalog(e, http.MethodGet, "/api/tools?module=reviews", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogWithoutLoadedCatalog(t *testing.T) {
	e := echo.New()
	loader := mcpgw.NewLoader(discardLogger(), mcpgw.LoaderOptions{
		ConfigPath: filepath.Join(t.TempDir(), "modules.json"),
	})
	NewCatalogHandler(discardLogger(), loader).Register(e)

	rec := serveCatalog(e, http.MethodGet, "/api/tools", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serveCatalog(e, http.MethodGet, "/api/info", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info InfoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, mcpgw.ServerName, info.Name)
	assert.Equal(t, "unloaded", info.LoaderState)
}

func TestCatalogStatsAndModules(t *testing.T) {
	e := echo.New()
	NewCatalogHandler(discardLogger(), newLoadedLoader(t)).Register(e)

	rec := serveCatalog(e, http.MethodGet, "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats mcpgw.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.TotalModules)
	assert.Equal(t, 3, stats.TotalTools)
	assert.Equal(t, 3, stats.TotalHandlers)

	rec = serveCatalog(e, http.MethodGet, "/api/modules", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var modules ModulesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &modules))
	assert.Equal(t, []string{"search", "credits", "reviews"}, modules.LoadOrder)
	require.Len(t, modules.Modules, 3)

	search := modules.Modules[0]
	assert.Equal(t, "search", search.Name)
	assert.True(t, search.Loaded)
	assert.Equal(t, "Paper search", search.Description)
	assert.Equal(t, []string{"search_papers", "search_authors"}, search.Tools)

	reviews := modules.Modules[2]
	assert.False(t, reviews.Enabled)
	assert.False(t, reviews.Loaded)
	assert.Empty(t, reviews.Tools)
}

func adminHeader(t *testing.T, secret string) http.Header {
	t.Helper()
	token, _, err := auth.GenerateToken("operator", auth.RoleAdmin, secret, time.Hour)
	require.NoError(t, err)
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func TestCatalogSetModuleEnabled(t *testing.T) {
	const secret = "test-secret"
	e := echo.New()
	e.Use(auth.JWTMiddleware(secret, nil))
	loader := newLoadedLoader(t)
	NewCatalogHandler(discardLogger(), loader).Register(e)
	admin := adminHeader(t, secret)

	rec := serveCatalog(e, http.MethodPut, "/api/modules/reviews", `{"enabled":true}`, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp SetModuleEnabledResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Enabled)
	assert.True(t, resp.RestartRequired)
	assert.True(t, loader.Config().IsEnabled("reviews"))

	persisted, err := mcpgw.ReadModuleConfig(loader.ConfigPath())
	require.NoError(t, err)
	assert.True(t, persisted.IsEnabled("reviews"))

	rec = serveCatalog(e, http.MethodPut, "/api/modules/reviews", `{}`, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogSetModuleEnabledUnknownModule(t *testing.T) {
	const secret = "test-secret"
	e := echo.New()
	e.Use(auth.JWTMiddleware(secret, nil))
	loader := newLoadedLoader(t)
	NewCatalogHandler(discardLogger(), loader).Register(e)
	before, err := os.ReadFile(loader.ConfigPath())
	require.NoError(t, err)

	rec := serveCatalog(e, http.MethodPut, "/api/modules/serach", `{"enabled":true}`, adminHeader(t, secret))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	after, err := os.ReadFile(loader.ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestCatalogSetModuleEnabledRefusedWithoutJWTSecret(t *testing.T) {
	loader := newLoadedLoader(t)
	before, err := os.ReadFile(loader.ConfigPath())
	require.NoError(t, err)
	srv := server.NewServer(discardLogger(), ":0", "", NewCatalogHandler(discardLogger(), loader))

	rec := serveCatalog(srv.Echo(), http.MethodPut, "/api/modules/search", `{"enabled":false}`, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.True(t, loader.Config().IsEnabled("search"))

	after, err := os.ReadFile(loader.ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "module document must not change")

	rec = serveCatalog(srv.Echo(), http.MethodGet, "/api/stats", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "read-only routes stay open")
}

func TestCatalogSetModuleEnabledRequiresAdminToken(t *testing.T) {
	const secret = "test-secret"
	e := echo.New()
	e.Use(auth.JWTMiddleware(secret, nil))
	loader := newLoadedLoader(t)
	NewCatalogHandler(discardLogger(), loader).Register(e)

	viewer, _, err := auth.GenerateToken("reader", auth.RoleViewer, secret, time.Hour)
	require.NoError(t, err)
	admin, _, err := auth.GenerateToken("operator", auth.RoleAdmin, secret, time.Hour)
	require.NoError(t, err)

	rec := serveCatalog(e, http.MethodPut, "/api/modules/credits", `{"enabled":false}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serveCatalog(e, http.MethodPut, "/api/modules/credits", `{"enabled":false}`,
		http.Header{"Authorization": []string{"Bearer " + viewer}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.True(t, loader.Config().IsEnabled("credits"))

	rec = serveCatalog(e, http.MethodGet, "/api/stats", "",
		http.Header{"Authorization": []string{"Bearer " + viewer}})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serveCatalog(e, http.MethodPut, "/api/modules/credits", `{"enabled":false}`,
		http.Header{"Authorization": []string{"Bearer " + admin}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, loader.Config().IsEnabled("credits"))
}
