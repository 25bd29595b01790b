package mcpchecker

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/scholarhub/scholarhub-mcp/internal/healthcheck"
	"github.com/scholarhub/scholarhub-mcp/internal/mcp"
)

type fakeStats struct {
	stats mcp.Stats
}

func (f fakeStats) GetStats() mcp.Stats { return f.stats }

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCheckerListChecks(t *testing.T) {
	t.Parallel()

	checker := NewChecker(newTestLogger(), fakeStats{stats: mcp.Stats{
		Modules: []mcp.ModuleStats{
			{Name: "search", Enabled: true, Loaded: true, ToolCount: 4, HandlerCount: 4},
			{Name: "papers", Enabled: true, Error: "load module papers: boom"},
			{Name: "reviews", Enabled: true, Loaded: true, ToolCount: 4, HandlerCount: 3},
			{Name: "credits", Enabled: false},
		},
	}})

	items := checker.ListChecks(context.Background())
	if len(items) != 3 {
		t.Fatalf("expected 3 checks, got %d", len(items))
	}
	want := map[string]string{
		"mcp.module.search":  healthcheck.StatusOK,
		"mcp.module.papers":  healthcheck.StatusError,
		"mcp.module.reviews": healthcheck.StatusWarn,
	}
	for _, item := range items {
		if want[item.ID] != item.Status {
			t.Fatalf("check %s: want %s got %s", item.ID, want[item.ID], item.Status)
		}
	}
	if healthcheck.Worst(items) != healthcheck.StatusError {
		t.Fatalf("worst status should be error")
	}
}

func TestCheckerWithoutSource(t *testing.T) {
	t.Parallel()

	items := NewChecker(newTestLogger(), nil).ListChecks(context.Background())
	if len(items) != 1 || items[0].Status != healthcheck.StatusWarn {
		t.Fatalf("unexpected checks: %#v", items)
	}
}
