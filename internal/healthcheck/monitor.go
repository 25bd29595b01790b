package healthcheck

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const defaultRunTimeout = 15 * time.Second

// Monitor runs checkers on a cron schedule and keeps the latest results.
type Monitor struct {
	logger   *slog.Logger
	checkers []Checker
	schedule string
	timeout  time.Duration
	now      func() time.Time

	cron *cron.Cron

	mu      sync.RWMutex
	results []CheckResult
	lastRun time.Time
}

// NewMonitor creates a monitor. An empty schedule disables periodic runs;
// RunOnce still works.
func NewMonitor(log *slog.Logger, schedule string, checkers ...Checker) *Monitor {
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{
		logger:   log.With(slog.String("component", "healthcheck")),
		checkers: checkers,
		schedule: strings.TrimSpace(schedule),
		timeout:  defaultRunTimeout,
		now:      time.Now,
	}
}

// Start runs the checks once and then on schedule.
func (m *Monitor) Start(ctx context.Context) error {
	if m.schedule == "" {
		m.logger.Info("health probe disabled")
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(m.schedule, func() { m.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("invalid health schedule %q: %w", m.schedule, err)
	}
	m.cron = c
	go m.RunOnce(context.WithoutCancel(ctx))
	c.Start()
	m.logger.Info("health probe scheduled", slog.String("schedule", m.schedule))
	return nil
}

// Stop halts the schedule and waits for a running probe to finish.
func (m *Monitor) Stop(ctx context.Context) error {
	if m.cron == nil {
		return nil
	}
	select {
	case <-m.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce evaluates every checker and stores the combined results.
func (m *Monitor) RunOnce(ctx context.Context) []CheckResult {
	runCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	now := m.now().UTC()
	var results []CheckResult
	for _, checker := range m.checkers {
		for _, item := range checker.ListChecks(runCtx) {
			if item.CheckedAt.IsZero() {
				item.CheckedAt = now
			}
			results = append(results, item)
		}
	}
	if results == nil {
		results = []CheckResult{}
	}

	m.mu.Lock()
	m.results = results
	m.lastRun = now
	m.mu.Unlock()

	if status := Worst(results); status != StatusOK {
		m.logger.Warn("health probe degraded", slog.String("status", status), slog.Int("checks", len(results)))
	} else {
		m.logger.Debug("health probe ok", slog.Int("checks", len(results)))
	}
	return results
}

// Snapshot returns the latest results and when they were taken. Before the
// first run it returns no results and a zero time.
func (m *Monitor) Snapshot() ([]CheckResult, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]CheckResult, len(m.results))
	copy(out, m.results)
	return out, m.lastRun
}
