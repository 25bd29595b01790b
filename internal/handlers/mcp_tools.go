package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	mcpgw "github.com/scholarhub/scholarhub-mcp/internal/mcp"
)

// MCPHandler serves the tool catalog over MCP, either on the streamable HTTP
// endpoint or on stdio.
type MCPHandler struct {
	toolGateway *mcpgw.ToolGatewayService
	logger      *slog.Logger
}

func NewMCPHandler(log *slog.Logger, toolGateway *mcpgw.ToolGatewayService) *MCPHandler {
	if log == nil {
		log = slog.Default()
	}
	return &MCPHandler{
		toolGateway: toolGateway,
		logger:      log.With(slog.String("handler", "mcp")),
	}
}

func (h *MCPHandler) Register(e *echo.Echo) {
	e.POST("/mcp", h.HandleMCPTools)
}

// HandleMCPTools godoc
// @Summary MCP tools endpoint
// @Description Stateless streamable HTTP MCP endpoint for tool discovery and invocation.
// @Tags mcp
// @Param payload body object true "JSON-RPC request"
// @Success 200 {object} object "JSON-RPC response: {jsonrpc,id,result|error}"
// @Failure 503 {object} ErrorResponse
// @Router /mcp [post]
func (h *MCPHandler) HandleMCPTools(c echo.Context) error {
	if h.toolGateway == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "tool gateway not configured")
	}
	req := c.Request()
	// Responses are always plain JSON, so the client's Accept only has to get
	// past the transport's check for both media types.
	req.Header.Set("Accept", streamableAccept)

	sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return h.BuildServer() },
		&sdkmcp.StreamableHTTPOptions{Stateless: true, JSONResponse: true, Logger: h.logger},
	).ServeHTTP(c.Response().Writer, req)
	return nil
}

// RunStdio serves MCP on stdin/stdout until ctx is done or the client
// disconnects.
func (h *MCPHandler) RunStdio(ctx context.Context) error {
	if h.toolGateway == nil {
		return fmt.Errorf("tool gateway not configured")
	}
	h.logger.Info("serving mcp over stdio")
	return h.BuildServer().Run(ctx, &sdkmcp.StdioTransport{})
}

const streamableAccept = "application/json, text/event-stream"

// BuildServer returns an MCP server whose tools/list and tools/call are
// answered by the tool gateway. Everything else falls through to the SDK.
func (h *MCPHandler) BuildServer() *sdkmcp.Server {
	srv := sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: mcpgw.ServerName, Version: h.toolGateway.Version()},
		&sdkmcp.ServerOptions{
			Capabilities: &sdkmcp.ServerCapabilities{Tools: &sdkmcp.ToolCapabilities{}},
		},
	)
	srv.AddReceivingMiddleware(h.routeToolMethods)
	return srv
}

func (h *MCPHandler) routeToolMethods(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
	return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
		switch method {
		case "tools/list":
			return h.listTools(ctx)
		case "tools/call":
			return h.callTool(ctx, req)
		}
		return next(ctx, method, req)
	}
}

func (h *MCPHandler) listTools(ctx context.Context) (sdkmcp.Result, error) {
	descriptors, err := h.toolGateway.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	out := &sdkmcp.ListToolsResult{Tools: make([]*sdkmcp.Tool, 0, len(descriptors))}
	for _, d := range descriptors {
		if d.Name == "" {
			continue
		}
		schema := d.InputSchema
		if schema == nil {
			schema = mcpgw.ObjectSchema(nil)
		}
		out.Tools = append(out.Tools, &sdkmcp.Tool{Name: d.Name, Description: d.Description, InputSchema: schema})
	}
	return out, nil
}

func (h *MCPHandler) callTool(ctx context.Context, req sdkmcp.Request) (sdkmcp.Result, error) {
	var params *sdkmcp.CallToolParamsRaw
	if call, ok := req.(*sdkmcp.ServerRequest[*sdkmcp.CallToolParamsRaw]); ok && call != nil {
		params = call.Params
	}
	payload, err := decodeToolCall(params)
	if err != nil {
		return nil, err
	}
	result, err := h.toolGateway.CallTool(ctx, payload)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = mcpgw.BuildToolSuccessResult(map[string]any{"ok": true})
	}
	// The gateway result already follows the MCP wire shape.
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	out := &sdkmcp.CallToolResult{}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}

// decodeToolCall turns raw tools/call params into a gateway payload. Missing
// arguments become an empty object; anything but an object is rejected.
func decodeToolCall(params *sdkmcp.CallToolParamsRaw) (mcpgw.ToolCallPayload, error) {
	if params == nil {
		return mcpgw.ToolCallPayload{}, fmt.Errorf("tools/call params is required")
	}
	payload := mcpgw.ToolCallPayload{
		Name:      strings.TrimSpace(params.Name),
		Arguments: map[string]any{},
	}
	if payload.Name == "" {
		return mcpgw.ToolCallPayload{}, fmt.Errorf("tools/call name is required")
	}
	if len(params.Arguments) == 0 || string(params.Arguments) == "null" {
		return payload, nil
	}
	if err := json.Unmarshal(params.Arguments, &payload.Arguments); err != nil {
		return mcpgw.ToolCallPayload{}, fmt.Errorf("tools/call arguments must be an object: %w", err)
	}
	return payload, nil
}
