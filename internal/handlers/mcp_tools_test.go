package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	mcpgw "github.com/scholarhub/scholarhub-mcp/internal/mcp"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEchoGateway(t *testing.T) *mcpgw.ToolGatewayService {
	t.Helper()
	catalog := mcpgw.NewCatalog()
	err := catalog.Add(mcpgw.LoadedProvider{
		Name: "echo",
		Tools: []mcpgw.ToolDescriptor{
			{
				Name:        "echo_tool",
				Description: "echo input",
				InputSchema: mcpgw.ObjectSchema(map[string]any{
					"input": mcpgw.StringProp("text to echo"),
				}, "input"),
			},
			{
				Name:        "fail_tool",
				Description: "always fails",
				InputSchema: mcpgw.ObjectSchema(nil),
			},
		},
		Handlers: map[string]mcpgw.ToolHandler{
			"echo_tool": func(ctx context.Context, arguments map[string]any) (map[string]any, error) {
				input := mcpgw.StringArg(arguments, "input")
				return mcpgw.BuildToolFormattedResult("echo: "+input, map[string]any{"echo": input}), nil
			},
			"fail_tool": func(ctx context.Context, arguments map[string]any) (map[string]any, error) {
				return nil, errors.New("backend unavailable")
			},
		},
	})
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	return mcpgw.NewToolGatewayService(discardLogger(), catalog, "1.2.3")
}

func postJSONRPC(t *testing.T, handler *MCPHandler, body string) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	if err := handler.HandleMCPTools(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handle mcp request: %v", err)
	}
	return rec, req
}

func TestDecodeToolCall(t *testing.T) {
	params := &sdkmcp.CallToolParamsRaw{
		Name:      " search_papers ",
		Arguments: json.RawMessage(`{"query":"graphs"}`),
	}
	payload, err := decodeToolCall(params)
	if err != nil {
		t.Fatalf("valid payload should parse: %v", err)
	}
	if payload.Name != "search_papers" {
		t.Fatalf("unexpected tool name: %s", payload.Name)
	}
	if payload.Arguments["query"] != "graphs" {
		t.Fatalf("expected query argument, got %#v", payload.Arguments)
	}

	empty, err := decodeToolCall(&sdkmcp.CallToolParamsRaw{Name: "whoami"})
	if err != nil {
		t.Fatalf("missing arguments should parse: %v", err)
	}
	if empty.Arguments == nil {
		t.Fatalf("arguments should default to an empty object")
	}

	if _, err := decodeToolCall(&sdkmcp.CallToolParamsRaw{Name: ""}); err == nil {
		t.Fatalf("empty tool name should fail")
	}
	if _, err := decodeToolCall(&sdkmcp.CallToolParamsRaw{Name: "x", Arguments: json.RawMessage(`[1]`)}); err == nil {
		t.Fatalf("non-object arguments should fail")
	}
}

func TestDecodeToolCallNullArguments(t *testing.T) {
	payload, err := decodeToolCall(&sdkmcp.CallToolParamsRaw{Name: "whoami", Arguments: json.RawMessage(`null`)})
	if err != nil {
		t.Fatalf("null arguments should parse: %v", err)
	}
	if payload.Arguments == nil || len(payload.Arguments) != 0 {
		t.Fatalf("null arguments should become an empty object, got %#v", payload.Arguments)
	}
	if _, err := decodeToolCall(nil); err == nil {
		t.Fatalf("missing params should fail")
	}
}

func TestHandleMCPToolsAcceptsAnyAcceptHeader(t *testing.T) {
	handler := NewMCPHandler(discardLogger(), newEchoGateway(t))
	for _, accept := range []string{"", "text/html", "*/*", "application/json"} {
		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":"1","method":"tools/list"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		if accept != "" {
			req.Header.Set("Accept", accept)
		}
		rec := httptest.NewRecorder()
		if err := handler.HandleMCPTools(e.NewContext(req, rec)); err != nil {
			t.Fatalf("accept=%q: handle mcp request: %v", accept, err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("accept=%q: unexpected status %d body=%s", accept, rec.Code, rec.Body.String())
		}
		if got := req.Header.Get("Accept"); got != streamableAccept {
			t.Fatalf("accept=%q: header rewritten to %q", accept, got)
		}
	}
}

func TestHandleMCPToolsWithoutGateway(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":"1","method":"tools/list"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	handler := NewMCPHandler(discardLogger(), nil)
	err := handler.HandleMCPTools(e.NewContext(req, rec))
	if err == nil {
		t.Fatalf("expected service unavailable error")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo HTTP error, got %T", err)
	}
	if httpErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status code: %d", httpErr.Code)
	}
}

func TestHandleMCPToolsListAndCall(t *testing.T) {
	handler := NewMCPHandler(discardLogger(), newEchoGateway(t))

	listRec, listReq := postJSONRPC(t, handler, `{"jsonrpc":"2.0","id":"1","method":"tools/list"}`)
	if listRec.Code != http.StatusOK {
		t.Fatalf("unexpected list status: %d body=%s", listRec.Code, listRec.Body.String())
	}
	if !strings.Contains(strings.ToLower(listReq.Header.Get("Accept")), "text/event-stream") {
		t.Fatalf("accept header should include text/event-stream: %s", listReq.Header.Get("Accept"))
	}
	var listPayload map[string]any
	if err := json.Unmarshal(listRec.Body.Bytes(), &listPayload); err != nil {
		t.Fatalf("decode list payload failed: %v", err)
	}
	result, _ := listPayload["result"].(map[string]any)
	tools, _ := result["tools"].([]any)
	if len(tools) != 2 {
		t.Fatalf("expected two tools, got: %#v", result["tools"])
	}
	first, _ := tools[0].(map[string]any)
	if first["name"] != "echo_tool" {
		t.Fatalf("tools should keep catalog order, got %#v", first["name"])
	}

	callRec, _ := postJSONRPC(t, handler, `{"jsonrpc":"2.0","id":"2","method":"tools/call","params":{"name":"echo_tool","arguments":{"input":"hello"}}}`)
	if callRec.Code != http.StatusOK {
		t.Fatalf("unexpected call status: %d body=%s", callRec.Code, callRec.Body.String())
	}
	var callPayload map[string]any
	if err := json.Unmarshal(callRec.Body.Bytes(), &callPayload); err != nil {
		t.Fatalf("decode call payload failed: %v", err)
	}
	callResult, _ := callPayload["result"].(map[string]any)
	structured, _ := callResult["structuredContent"].(map[string]any)
	if echoValue := mcpgw.StringArg(structured, "echo"); echoValue != "hello" {
		t.Fatalf("unexpected echo value: %#v", structured["echo"])
	}
	if isErr, _ := callResult["isError"].(bool); isErr {
		t.Fatalf("echo call should not be an error result: %#v", callResult)
	}
}

func TestHandleMCPToolsUnknownToolIsProtocolError(t *testing.T) {
	handler := NewMCPHandler(discardLogger(), newEchoGateway(t))
	rec, _ := postJSONRPC(t, handler, `{"jsonrpc":"2.0","id":"3","method":"tools/call","params":{"name":"no_such_tool","arguments":{}}}`)

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode payload failed: %v body=%s", err, rec.Body.String())
	}
	if _, ok := payload["error"]; !ok {
		t.Fatalf("expected json-rpc error, got %#v", payload)
	}
	if _, ok := payload["result"]; ok {
		t.Fatalf("unknown tool should not produce a result: %#v", payload)
	}
}

func TestMCPServerInMemory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := NewMCPHandler(discardLogger(), newEchoGateway(t))
	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	serverSession, err := handler.BuildServer().Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer serverSession.Close()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	if info := session.InitializeResult().ServerInfo; info.Name != mcpgw.ServerName || info.Version != "1.2.3" {
		t.Fatalf("unexpected server info: %#v", info)
	}

	listed, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	if len(listed.Tools) != 2 || listed.Tools[0].Name != "echo_tool" {
		t.Fatalf("unexpected tools: %#v", listed.Tools)
	}

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "echo_tool",
		Arguments: map[string]any{"input": "hi"},
	})
	if err != nil {
		t.Fatalf("call echo_tool: %v", err)
	}
	if res.IsError || len(res.Content) == 0 {
		t.Fatalf("unexpected echo result: %#v", res)
	}
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	if !ok || text.Text != "echo: hi" {
		t.Fatalf("unexpected echo content: %#v", res.Content[0])
	}

	failed, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "fail_tool"})
	if err != nil {
		t.Fatalf("handler failure should not be a protocol error: %v", err)
	}
	if !failed.IsError {
		t.Fatalf("handler failure should be an error result: %#v", failed)
	}

	if _, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "no_such_tool"}); err == nil {
		t.Fatalf("unknown tool should be a protocol error")
	}
}
