package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/scholarhub/scholarhub-mcp/internal/auth"
	mcpgw "github.com/scholarhub/scholarhub-mcp/internal/mcp"
	"github.com/scholarhub/scholarhub-mcp/internal/version"
)

// ErrorResponse is the JSON error body of the admin API.
type ErrorResponse struct {
	Message string `json:"message"`
}

// ModuleRegistry is the loader surface used by the admin API.
type ModuleRegistry interface {
	StatsSource
	State() mcpgw.LoaderState
	Catalog() *mcpgw.Catalog
	Config() mcpgw.ModuleConfig
	ConfigPath() string
	KnownModule(name string) bool
	SetProviderEnabled(name string, enabled bool) bool
}

type CatalogHandler struct {
	logger   *slog.Logger
	registry ModuleRegistry
}

// ModuleView is one entry of GET /api/modules.
type ModuleView struct {
	mcpgw.ModuleStats
	Description string   `json:"description,omitempty"`
	Tools       []string `json:"tools"`
}

// ModulesResponse is the body of GET /api/modules.
type ModulesResponse struct {
	ConfigPath string       `json:"configPath"`
	LoadOrder  []string     `json:"loadOrder"`
	Modules    []ModuleView `json:"modules"`
}

// SetModuleEnabledRequest toggles a module.
type SetModuleEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// SetModuleEnabledResponse reports a persisted toggle.
type SetModuleEnabledResponse struct {
	Name            string `json:"name"`
	Enabled         bool   `json:"enabled"`
	RestartRequired bool   `json:"restartRequired"`
}

// InfoResponse is the body of GET /api/info.
type InfoResponse struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	Commit          string `json:"commit"`
	BuildDate       string `json:"buildDate"`
	ProtocolVersion string `json:"protocolVersion"`
	LoaderState     string `json:"loaderState"`
}

func NewCatalogHandler(log *slog.Logger, registry ModuleRegistry) *CatalogHandler {
	if log == nil {
		log = slog.Default()
	}
	return &CatalogHandler{
		logger:   log.With(slog.String("handler", "catalog")),
		registry: registry,
	}
}

func (h *CatalogHandler) Register(e *echo.Echo) {
	group := e.Group("/api")
	group.GET("/info", h.Info)
	group.GET("/tools", h.ListTools)
	group.GET("/stats", h.Stats)
	group.GET("/modules", h.ListModules)
	group.PUT("/modules/:name", h.SetModuleEnabled, auth.RequireRole(auth.RoleAdmin))
}

// Info godoc
// @Summary Server info
// @Tags catalog
// @Produce json
// @Success 200 {object} InfoResponse
// @Router /api/info [get]
func (h *CatalogHandler) Info(c echo.Context) error {
	resp := InfoResponse{
		Name:            mcpgw.ServerName,
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		ProtocolVersion: mcpgw.ProtocolVersion,
		LoaderState:     mcpgw.StateUnloaded.String(),
	}
	if h.registry != nil {
		resp.LoaderState = h.registry.State().String()
	}
	return c.JSON(http.StatusOK, resp)
}

// ListTools godoc
// @Summary List catalog tools
// @Description Returns every registered tool with its input schema, in load order.
// @Tags catalog
// @Produce json
// @Param module query string false "Only tools owned by this module"
// @Success 200 {array} mcpgw.ToolDescriptor
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/tools [get]
func (h *CatalogHandler) ListTools(c echo.Context) error {
	catalog, err := h.catalog()
	if err != nil {
		return err
	}
	tools := catalog.ListTools()
	module := strings.TrimSpace(c.QueryParam("module"))
	if module == "" {
		return c.JSON(http.StatusOK, tools)
	}
	if _, ok := catalog.GetProviderInfo(module); !ok {
		return echo.NewHTTPError(http.StatusNotFound, "module not loaded: "+module)
	}
	filtered := make([]mcpgw.ToolDescriptor, 0, len(tools))
	for _, tool := range tools {
		if owner, _ := catalog.Owner(tool.Name); owner == module {
			filtered = append(filtered, tool)
		}
	}
	return c.JSON(http.StatusOK, filtered)
}

// Stats godoc
// @Summary Catalog statistics
// @Tags catalog
// @Produce json
// @Success 200 {object} mcpgw.Stats
// @Failure 503 {object} ErrorResponse
// @Router /api/stats [get]
func (h *CatalogHandler) Stats(c echo.Context) error {
	if h.registry == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "module loader not configured")
	}
	return c.JSON(http.StatusOK, h.registry.GetStats())
}

// ListModules godoc
// @Summary List configured modules
// @Description Every configured module with its enabled flag, load result and tools.
// @Tags catalog
// @Produce json
// @Success 200 {object} ModulesResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/modules [get]
func (h *CatalogHandler) ListModules(c echo.Context) error {
	if h.registry == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "module loader not configured")
	}
	cfg := h.registry.Config()
	catalog := h.registry.Catalog()
	stats := h.registry.GetStats()

	resp := ModulesResponse{
		ConfigPath: h.registry.ConfigPath(),
		LoadOrder:  cfg.LoadOrder(),
		Modules:    make([]ModuleView, 0, len(stats.Modules)),
	}
	for _, item := range stats.Modules {
		view := ModuleView{ModuleStats: item, Tools: []string{}}
		if entry, ok := cfg.EnabledModules.Get(item.Name); ok {
			view.Description = entry.Description
		}
		if catalog != nil {
			if info, ok := catalog.GetProviderInfo(item.Name); ok {
				view.Tools = info.Tools
				if view.Description == "" {
					view.Description = info.Description
				}
			}
		}
		resp.Modules = append(resp.Modules, view)
	}
	return c.JSON(http.StatusOK, resp)
}

// SetModuleEnabled godoc
// @Summary Enable or disable a module
// @Description Persists the toggle to the module document. Takes effect on the next start.
// @Description Requires an admin token; refused when JWT auth is not configured.
// @Tags catalog
// @Accept json
// @Produce json
// @Param name path string true "Module name"
// @Param payload body SetModuleEnabledRequest true "Toggle"
// @Success 200 {object} SetModuleEnabledResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/modules/{name} [put]
func (h *CatalogHandler) SetModuleEnabled(c echo.Context) error {
	if h.registry == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "module loader not configured")
	}
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "module name is required")
	}
	if !h.registry.KnownModule(name) {
		return echo.NewHTTPError(http.StatusNotFound, "unknown module: "+name)
	}
	var req SetModuleEnabledRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Enabled == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "enabled is required")
	}
	if !h.registry.SetProviderEnabled(name, *req.Enabled) {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to persist module config")
	}
	h.logger.Info("module toggled via api", slog.String("module", name), slog.Bool("enabled", *req.Enabled))
	return c.JSON(http.StatusOK, SetModuleEnabledResponse{
		Name:            name,
		Enabled:         *req.Enabled,
		RestartRequired: true,
	})
}

func (h *CatalogHandler) catalog() (*mcpgw.Catalog, error) {
	if h.registry == nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "module loader not configured")
	}
	catalog := h.registry.Catalog()
	if catalog == nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "tool catalog not loaded")
	}
	return catalog, nil
}
