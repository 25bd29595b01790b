package healthcheck

import (
	"context"
	"time"
)

const (
	// StatusOK indicates check passed.
	StatusOK = "ok"
	// StatusWarn indicates check completed with warning.
	StatusWarn = "warn"
	// StatusError indicates check failed.
	StatusError = "error"
	// StatusUnknown indicates check result is not yet known.
	StatusUnknown = "unknown"
)

// CheckResult is one runtime check item produced by a checker.
type CheckResult struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Subtitle  string         `json:"subtitle,omitempty"`
	Status    string         `json:"status"`
	Summary   string         `json:"summary"`
	Detail    string         `json:"detail,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CheckedAt time.Time      `json:"checkedAt,omitzero"`
}

// Checker evaluates one or more runtime checks.
type Checker interface {
	ListChecks(ctx context.Context) []CheckResult
}

// Worst folds statuses, ranking error over warn over unknown over ok.
func Worst(results []CheckResult) string {
	rank := map[string]int{StatusOK: 0, StatusUnknown: 1, StatusWarn: 2, StatusError: 3}
	worst := StatusOK
	if len(results) == 0 {
		return StatusUnknown
	}
	for _, r := range results {
		if rank[r.Status] > rank[worst] {
			worst = r.Status
		}
	}
	return worst
}
