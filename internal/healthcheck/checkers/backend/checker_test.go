package backendchecker

import (
	"context"
	"errors"
	"testing"

	"github.com/scholarhub/scholarhub-mcp/internal/healthcheck"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheckerListChecks(t *testing.T) {
	t.Parallel()

	ok := NewChecker(nil, pingFunc(func(ctx context.Context) error { return nil }), "https://api.example.org")
	items := ok.ListChecks(context.Background())
	if len(items) != 1 || items[0].Status != healthcheck.StatusOK {
		t.Fatalf("unexpected checks: %#v", items)
	}

	down := NewChecker(nil, pingFunc(func(ctx context.Context) error { return errors.New("connection refused") }), "")
	items = down.ListChecks(context.Background())
	if items[0].Status != healthcheck.StatusError || items[0].Detail != "connection refused" {
		t.Fatalf("unexpected checks: %#v", items)
	}

	items = NewChecker(nil, nil, "").ListChecks(context.Background())
	if items[0].Status != healthcheck.StatusWarn {
		t.Fatalf("nil pinger should warn: %#v", items)
	}
}
