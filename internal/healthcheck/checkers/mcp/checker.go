package mcpchecker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scholarhub/scholarhub-mcp/internal/healthcheck"
	"github.com/scholarhub/scholarhub-mcp/internal/mcp"
)

const checkTypeModule = "mcp.module"

// StatsSource reports per-module load results.
type StatsSource interface {
	GetStats() mcp.Stats
}

// Checker turns module load results into health checks.
type Checker struct {
	logger *slog.Logger
	source StatsSource
}

func NewChecker(log *slog.Logger, source StatsSource) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{
		logger: log.With(slog.String("checker", "healthcheck_mcp")),
		source: source,
	}
}

// ListChecks reports one item per enabled module. Disabled modules are
// skipped.
func (c *Checker) ListChecks(ctx context.Context) []healthcheck.CheckResult {
	if c.source == nil {
		c.logger.Warn("mcp healthcheck dependencies are unavailable")
		return []healthcheck.CheckResult{{
			ID:      checkTypeModule + ".service",
			Type:    checkTypeModule,
			Status:  healthcheck.StatusWarn,
			Summary: "Module loader is not available.",
		}}
	}
	stats := c.source.GetStats()
	results := make([]healthcheck.CheckResult, 0, len(stats.Modules))
	for _, m := range stats.Modules {
		if !m.Enabled {
			continue
		}
		item := healthcheck.CheckResult{
			ID:       checkTypeModule + "." + m.Name,
			Type:     checkTypeModule,
			Subtitle: m.Name,
			Metadata: map[string]any{
				"tool_count":    m.ToolCount,
				"handler_count": m.HandlerCount,
			},
		}
		switch {
		case m.Error != "":
			item.Status = healthcheck.StatusError
			item.Summary = fmt.Sprintf("Module %q failed to load.", m.Name)
			item.Detail = m.Error
		case !m.Loaded:
			item.Status = healthcheck.StatusWarn
			item.Summary = fmt.Sprintf("Module %q is enabled but not loaded.", m.Name)
		case m.ToolCount == 0:
			item.Status = healthcheck.StatusWarn
			item.Summary = fmt.Sprintf("Module %q loaded but exposes no tools.", m.Name)
		case m.HandlerCount < m.ToolCount:
			item.Status = healthcheck.StatusWarn
			item.Summary = fmt.Sprintf("Module %q has %d tools without handlers.", m.Name, m.ToolCount-m.HandlerCount)
		default:
			item.Status = healthcheck.StatusOK
			item.Summary = fmt.Sprintf("Module %q is healthy (%d tools).", m.Name, m.ToolCount)
		}
		results = append(results, item)
	}
	return results
}
