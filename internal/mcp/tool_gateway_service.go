package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/scholarhub/scholarhub-mcp/internal/prune"
)

const (
	ServerName      = "scholarhub-mcp"
	ProtocolVersion = "2025-06-18"
)

// ToolCatalog is the read side of a loaded catalog.
type ToolCatalog interface {
	ListTools() []ToolDescriptor
	GetHandler(name string) (ToolHandler, bool)
}

// ToolGatewayService dispatches tool calls against a loaded catalog.
type ToolGatewayService struct {
	logger  *slog.Logger
	catalog ToolCatalog
	version string
	budget  prune.Budget
}

func NewToolGatewayService(log *slog.Logger, catalog ToolCatalog, version string) *ToolGatewayService {
	if log == nil {
		log = slog.Default()
	}
	if strings.TrimSpace(version) == "" {
		version = "dev"
	}
	return &ToolGatewayService{
		logger:  log.With(slog.String("service", "tool_gateway")),
		catalog: catalog,
		version: version,
		budget:  prune.DefaultBudget(),
	}
}

// SetTextBudget changes how much result text a single call may return.
func (s *ToolGatewayService) SetTextBudget(b prune.Budget) { s.budget = b }

// Version returns the server version advertised to clients.
func (s *ToolGatewayService) Version() string { return s.version }

func (s *ToolGatewayService) InitializeResult() map[string]any {
	return map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{
				"listChanged": false,
			},
		},
		"serverInfo": map[string]any{
			"name":    ServerName,
			"version": s.version,
		},
	}
}

func (s *ToolGatewayService) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	if s.catalog == nil {
		return []ToolDescriptor{}, nil
	}
	return s.catalog.ListTools(), nil
}

// CallTool runs the named tool. An unknown name is returned as an error
// wrapping ErrToolNotFound so the transport can answer at protocol level;
// handler failures come back as tool error results.
func (s *ToolGatewayService) CallTool(ctx context.Context, payload ToolCallPayload) (map[string]any, error) {
	toolName := strings.TrimSpace(payload.Name)
	if toolName == "" {
		return nil, fmt.Errorf("tool name is required")
	}
	if s.catalog == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, toolName)
	}
	handler, ok := s.catalog.GetHandler(toolName)
	if !ok {
		s.logger.Warn("unknown tool requested", slog.String("tool", toolName))
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, toolName)
	}

	arguments := payload.Arguments
	if arguments == nil {
		arguments = map[string]any{}
	}
	started := time.Now()
	result, err := s.invoke(ctx, toolName, handler, arguments)
	if err != nil {
		s.logger.Warn("tool call failed",
			slog.String("tool", toolName),
			slog.Duration("elapsed", time.Since(started)),
			slog.Any("error", err),
		)
		return BuildToolErrorResult(err.Error()), nil
	}
	s.logger.Debug("tool call finished",
		slog.String("tool", toolName),
		slog.Duration("elapsed", time.Since(started)),
	)
	if result == nil {
		return BuildToolSuccessResult(map[string]any{"ok": true}), nil
	}
	pruneResultText(toolName, result, s.budget)
	return result, nil
}

// pruneResultText caps every text part of result in place.
func pruneResultText(toolName string, result map[string]any, budget prune.Budget) {
	items, ok := result["content"].([]map[string]any)
	if !ok {
		return
	}
	for _, item := range items {
		if text, ok := item["text"].(string); ok {
			item["text"] = prune.Text(text, toolName+" result", budget)
		}
	}
}

func (s *ToolGatewayService) invoke(ctx context.Context, name string, handler ToolHandler, arguments map[string]any) (result map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("tool %s panicked: %v", name, r)
		}
	}()
	return handler(ctx, arguments)
}
