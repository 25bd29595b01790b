package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/scholarhub/scholarhub-mcp/internal/backend"
	"github.com/scholarhub/scholarhub-mcp/internal/format"
	mcpgw "github.com/scholarhub/scholarhub-mcp/internal/mcp"
)

const (
	toolGetAuthStatus = "get_auth_status"
	toolWhoami        = "whoami"
)

// Status is the structured payload of get_auth_status.
type Status struct {
	Configured    bool      `json:"configured"`
	TokenType     string    `json:"tokenType,omitempty"`
	Subject       string    `json:"subject,omitempty"`
	Issuer        string    `json:"issuer,omitempty"`
	ExpiresAt     time.Time `json:"expiresAt,omitzero"`
	Expired       bool      `json:"expired"`
	Scopes        []string  `json:"scopes,omitempty"`
	Authenticated bool      `json:"authenticated"`
	UserID        string    `json:"userId,omitempty"`
	BackendError  string    `json:"backendError,omitempty"`
}

// Executor reports on the API credentials the server runs with.
type Executor struct {
	client backend.API
	apiKey string
	now    func() time.Time
	logger *slog.Logger
}

func NewExecutor(log *slog.Logger, client backend.API, apiKey string) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		client: client,
		apiKey: strings.TrimSpace(apiKey),
		now:    time.Now,
		logger: log.With(slog.String("provider", "auth_tool")),
	}
}

func (p *Executor) ListDefinitions() []mcpgw.ToolDescriptor {
	return []mcpgw.ToolDescriptor{
		{
			Name:        toolGetAuthStatus,
			Description: "Report whether an API key is configured, when it expires and whether the platform accepts it.",
			InputSchema: mcpgw.ObjectSchema(nil),
		},
		{
			Name:        toolWhoami,
			Description: "Show which platform account the server acts as.",
			InputSchema: mcpgw.ObjectSchema(nil),
		},
	}
}

func (p *Executor) ListHandlers() map[string]mcpgw.ToolHandler {
	return map[string]mcpgw.ToolHandler{
		toolGetAuthStatus: p.authStatus,
		toolWhoami:        p.whoami,
	}
}

func (p *Executor) authStatus(ctx context.Context, _ map[string]any) (map[string]any, error) {
	status := p.inspectKey()
	if !status.Configured {
		return mcpgw.BuildToolFormattedResult("No API key configured. Set SCHOLARHUB_API_KEY to use authenticated tools.", status), nil
	}

	var remote struct {
		Authenticated bool     `json:"authenticated"`
		UserID        string   `json:"userId"`
		Scopes        []string `json:"scopes"`
	}
	err := p.client.Get(ctx, "/auth/status", nil, &remote)
	switch {
	case err == nil:
		status.Authenticated = remote.Authenticated
		status.UserID = remote.UserID
		if len(remote.Scopes) > 0 {
			status.Scopes = remote.Scopes
		}
	case backend.IsStatus(err, http.StatusUnauthorized):
		status.BackendError = "API key rejected"
	default:
		p.logger.Warn("auth status check failed", slog.Any("error", err))
		status.BackendError = backend.Describe(err)
	}
	return mcpgw.BuildToolFormattedResult(describeStatus(status), status), nil
}

// inspectKey reads JWT claims without verifying the signature; only the
// backend can verify the key.
func (p *Executor) inspectKey() Status {
	if p.apiKey == "" {
		return Status{}
	}
	status := Status{Configured: true, TokenType: "opaque"}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(p.apiKey, claims); err != nil {
		return status
	}
	status.TokenType = "jwt"
	status.Subject, _ = claims.GetSubject()
	status.Issuer, _ = claims.GetIssuer()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		status.ExpiresAt = exp.Time.UTC()
		status.Expired = !exp.Time.After(p.now())
	}
	switch scope := claims["scope"].(type) {
	case string:
		status.Scopes = strings.Fields(scope)
	case []any:
		for _, item := range scope {
			if s, ok := item.(string); ok {
				status.Scopes = append(status.Scopes, s)
			}
		}
	}
	return status
}

func describeStatus(s Status) string {
	var b strings.Builder
	switch {
	case s.BackendError != "":
		fmt.Fprintf(&b, "API key configured but not usable: %s.", s.BackendError)
	case s.Authenticated:
		fmt.Fprintf(&b, "Authenticated as `%s`.", s.UserID)
	default:
		b.WriteString("API key configured but the platform reports no active session.")
	}
	fmt.Fprintf(&b, "\n- Key type: %s", s.TokenType)
	if s.Subject != "" {
		fmt.Fprintf(&b, "\n- Subject: %s", s.Subject)
	}
	if !s.ExpiresAt.IsZero() {
		state := "valid until"
		if s.Expired {
			state = "expired on"
		}
		fmt.Fprintf(&b, "\n- Expiry: %s %s", state, format.Date(s.ExpiresAt))
	}
	if len(s.Scopes) > 0 {
		fmt.Fprintf(&b, "\n- Scopes: %s", strings.Join(s.Scopes, ", "))
	}
	return b.String()
}

func (p *Executor) whoami(ctx context.Context, _ map[string]any) (map[string]any, error) {
	if p.apiKey == "" {
		return mcpgw.BuildToolErrorResult("not authenticated: set SCHOLARHUB_API_KEY to use this tool"), nil
	}
	var user backend.User
	if err := p.client.Get(ctx, "/users/me", nil, &user); err != nil {
		p.logger.Warn("backend call failed", slog.String("tool", toolWhoami), slog.Any("error", err))
		return mcpgw.BuildToolErrorResult(backend.Describe(err)), nil
	}
	text := fmt.Sprintf("Signed in as @%s (`%s`)", user.Username, user.ID)
	if user.Name != "" {
		text = fmt.Sprintf("Signed in as %s, @%s (`%s`)", user.Name, user.Username, user.ID)
	}
	if len(user.Roles) > 0 {
		text += " with roles " + strings.Join(user.Roles, ", ")
	}
	return mcpgw.BuildToolFormattedResult(text+".", map[string]any{
		"id":       user.ID,
		"username": user.Username,
		"name":     user.Name,
		"roles":    user.Roles,
	}), nil
}
