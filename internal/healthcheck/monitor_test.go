package healthcheck

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingChecker struct {
	calls  atomic.Int32
	status string
}

func (c *countingChecker) ListChecks(ctx context.Context) []CheckResult {
	c.calls.Add(1)
	return []CheckResult{{ID: "fake", Type: "fake", Status: c.status}}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorst(t *testing.T) {
	assert.Equal(t, StatusUnknown, Worst(nil))
	assert.Equal(t, StatusOK, Worst([]CheckResult{{Status: StatusOK}}))
	assert.Equal(t, StatusWarn, Worst([]CheckResult{{Status: StatusOK}, {Status: StatusWarn}, {Status: StatusUnknown}}))
	assert.Equal(t, StatusError, Worst([]CheckResult{{Status: StatusError}, {Status: StatusWarn}}))
}

func TestMonitorRunOnceStoresSnapshot(t *testing.T) {
	checker := &countingChecker{status: StatusWarn}
	m := NewMonitor(discardLogger(), "", checker)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	results, at := m.Snapshot()
	assert.Empty(t, results)
	assert.True(t, at.IsZero())

	m.RunOnce(context.Background())
	results, at = m.Snapshot()
	require.Len(t, results, 1)
	assert.Equal(t, fixed, at)
	assert.Equal(t, fixed, results[0].CheckedAt)

	results[0].Status = "mutated"
	again, _ := m.Snapshot()
	assert.Equal(t, StatusWarn, again[0].Status)
}

func TestMonitorStartDisabled(t *testing.T) {
	checker := &countingChecker{status: StatusOK}
	m := NewMonitor(discardLogger(), "  ", checker)
	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Stop(context.Background()))
	assert.Zero(t, checker.calls.Load())
}

func TestMonitorStartRejectsBadSchedule(t *testing.T) {
	m := NewMonitor(discardLogger(), "every now and then")
	assert.Error(t, m.Start(context.Background()))
}

func TestMonitorStartRunsImmediately(t *testing.T) {
	checker := &countingChecker{status: StatusOK}
	m := NewMonitor(discardLogger(), "@every 1h", checker)
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { _ = m.Stop(context.Background()) })

	assert.Eventually(t, func() bool { return checker.calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}
