package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/scholarhub/scholarhub-mcp/internal/healthcheck"
	mcpgw "github.com/scholarhub/scholarhub-mcp/internal/mcp"
	"github.com/scholarhub/scholarhub-mcp/internal/version"
)

// HealthSource exposes the latest health probe results.
type HealthSource interface {
	Snapshot() ([]healthcheck.CheckResult, time.Time)
}

// StatsSource exposes catalog counts.
type StatsSource interface {
	GetStats() mcpgw.Stats
}

type PingHandler struct {
	logger *slog.Logger
	health HealthSource
	stats  StatsSource
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string                    `json:"status"`
	Version   string                    `json:"version"`
	Tools     int                       `json:"tools"`
	Modules   int                       `json:"modules"`
	CheckedAt time.Time                 `json:"checkedAt,omitzero"`
	Checks    []healthcheck.CheckResult `json:"checks"`
}

func NewPingHandler(log *slog.Logger, health HealthSource, stats StatsSource) *PingHandler {
	if log == nil {
		log = slog.Default()
	}
	return &PingHandler{
		logger: log.With(slog.String("handler", "ping")),
		health: health,
		stats:  stats,
	}
}

func (h *PingHandler) Register(e *echo.Echo) {
	e.GET("/ping", h.Ping)
	e.HEAD("/health", h.PingHead)
	e.GET("/health", h.Health)
}

func (h *PingHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *PingHandler) PingHead(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// Health godoc
// @Summary Service health
// @Description Reports catalog counts and the most recent backend probe results.
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *PingHandler) Health(c echo.Context) error {
	resp := HealthResponse{
		Status:  healthcheck.StatusOK,
		Version: version.Version,
		Checks:  []healthcheck.CheckResult{},
	}
	if h.stats != nil {
		stats := h.stats.GetStats()
		resp.Tools = stats.TotalTools
		resp.Modules = stats.TotalModules
	}
	if h.health != nil {
		checks, checkedAt := h.health.Snapshot()
		if len(checks) > 0 {
			resp.Checks = checks
			resp.CheckedAt = checkedAt
			resp.Status = healthcheck.Worst(checks)
		}
	}
	code := http.StatusOK
	if resp.Status == healthcheck.StatusError {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}
