package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// API is the subset of Client used by tool providers.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

var _ API = (*Client)(nil)

// Paging is embedded in tool arguments of list endpoints.
type Paging struct {
	Page     int `json:"page" validate:"omitempty,min=1"`
	PageSize int `json:"page_size" validate:"omitempty,min=1,max=100"`
}

// Apply writes page and page_size to q, skipping unset values.
func (p Paging) Apply(q Query) Query {
	return q.Int("page", p.Page).Int("page_size", p.PageSize)
}

// Describe turns a backend error into a message suitable for a tool result.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		if errors.Is(err, context.DeadlineExceeded) {
			return "backend request timed out"
		}
		return fmt.Sprintf("backend request failed: %v", err)
	}
	switch apiErr.Status {
	case http.StatusUnauthorized:
		return "not authenticated: set SCHOLARHUB_API_KEY to use this tool"
	case http.StatusForbidden:
		return "permission denied: " + apiErr.Message
	case http.StatusNotFound:
		return "not found: " + apiErr.Message
	case http.StatusConflict:
		return "conflict: " + apiErr.Message
	case http.StatusPaymentRequired:
		return "insufficient credits: " + apiErr.Message
	default:
		return apiErr.Error()
	}
}
