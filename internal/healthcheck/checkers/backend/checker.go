package backendchecker

import (
	"context"
	"log/slog"
	"time"

	"github.com/scholarhub/scholarhub-mcp/internal/healthcheck"
)

const (
	checkTypeBackend    = "backend.reachability"
	defaultCheckTimeout = 5 * time.Second
	slowThreshold       = 2 * time.Second
)

// Pinger reports whether the platform API answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker probes backend reachability.
type Checker struct {
	logger  *slog.Logger
	pinger  Pinger
	target  string
	timeout time.Duration
}

func NewChecker(log *slog.Logger, pinger Pinger, target string) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{
		logger:  log.With(slog.String("checker", "healthcheck_backend")),
		pinger:  pinger,
		target:  target,
		timeout: defaultCheckTimeout,
	}
}

func (c *Checker) ListChecks(ctx context.Context) []healthcheck.CheckResult {
	item := healthcheck.CheckResult{
		ID:       checkTypeBackend,
		Type:     checkTypeBackend,
		Subtitle: c.target,
	}
	if c.pinger == nil {
		item.Status = healthcheck.StatusWarn
		item.Summary = "Backend client is not configured."
		return []healthcheck.CheckResult{item}
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	start := time.Now()
	err := c.pinger.Ping(probeCtx)
	elapsed := time.Since(start)
	item.Metadata = map[string]any{"latency_ms": elapsed.Milliseconds()}

	switch {
	case err != nil:
		c.logger.Warn("backend probe failed", slog.String("target", c.target), slog.Any("error", err))
		item.Status = healthcheck.StatusError
		item.Summary = "Backend is not reachable."
		item.Detail = err.Error()
	case elapsed > slowThreshold:
		item.Status = healthcheck.StatusWarn
		item.Summary = "Backend is reachable but slow."
	default:
		item.Status = healthcheck.StatusOK
		item.Summary = "Backend is reachable."
	}
	return []healthcheck.CheckResult{item}
}
