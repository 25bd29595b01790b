package mcp

import (
	"context"
	"encoding/json"
	"strings"
)

// ToolDescriptor is the MCP tools/list item shape exposed by the catalog.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ToolHandler executes one tool. It returns an MCP tool result object built
// with BuildToolSuccessResult, BuildToolTextResult or BuildToolErrorResult.
type ToolHandler func(ctx context.Context, arguments map[string]any) (map[string]any, error)

// Provider supplies a batch of related tools.
type Provider interface {
	ListDefinitions() []ToolDescriptor
	ListHandlers() map[string]ToolHandler
}

// ProviderFactory constructs a provider. Dependencies are captured by the
// closure so every provider receives them through its constructor.
type ProviderFactory func() (Provider, error)

// ToolCallPayload is the MCP tools/call params payload.
type ToolCallPayload struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ObjectSchema builds an input schema of type object.
func ObjectSchema(properties map[string]any, required ...string) map[string]any {
	if properties == nil {
		properties = map[string]any{}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// StringProp describes a string property.
func StringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// IntegerProp describes an integer property.
func IntegerProp(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

// BooleanProp describes a boolean property.
func BooleanProp(description string) map[string]any {
	return map[string]any{"type": "boolean", "description": description}
}

// EnumProp describes a string property restricted to values.
func EnumProp(description string, values ...string) map[string]any {
	return map[string]any{"type": "string", "description": description, "enum": values}
}

// ArrayProp describes an array property whose items share one schema.
func ArrayProp(description string, items map[string]any) map[string]any {
	if items == nil {
		items = map[string]any{}
	}
	return map[string]any{"type": "array", "description": description, "items": items}
}

// WithPaging adds the shared page and page_size properties to props.
func WithPaging(props map[string]any) map[string]any {
	if props == nil {
		props = map[string]any{}
	}
	props["page"] = IntegerProp("Page number, starting at 1")
	props["page_size"] = IntegerProp("Results per page (1-100, default 20)")
	return props
}

// BuildToolSuccessResult builds a standard MCP tool success result object.
func BuildToolSuccessResult(structured any) map[string]any {
	result := map[string]any{}
	if structured != nil {
		result["structuredContent"] = structured
		if text := stringifyStructuredContent(structured); text != "" {
			result["content"] = textContent(text)
		}
	}
	if len(result) == 0 {
		result["content"] = textContent("ok")
	}
	return result
}

// BuildToolFormattedResult builds a success result whose text content is
// rendered for reading while structuredContent keeps the raw payload.
func BuildToolFormattedResult(text string, structured any) map[string]any {
	result := BuildToolTextResult(text)
	if structured != nil {
		result["structuredContent"] = structured
	}
	return result
}

// BuildToolTextResult builds a success result that only carries text.
func BuildToolTextResult(text string) map[string]any {
	text = strings.TrimSpace(text)
	if text == "" {
		text = "ok"
	}
	return map[string]any{"content": textContent(text)}
}

// BuildToolErrorResult builds a standard MCP tool error result object.
func BuildToolErrorResult(message string) map[string]any {
	msg := strings.TrimSpace(message)
	if msg == "" {
		msg = "tool execution failed"
	}
	return map[string]any{
		"isError": true,
		"content": textContent(msg),
	}
}

// ResultText joins the text parts of a tool result.
func ResultText(result map[string]any) string {
	items, ok := result["content"].([]map[string]any)
	if !ok {
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if text, ok := item["text"].(string); ok {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

// IsErrorResult reports whether result is flagged as a tool error.
func IsErrorResult(result map[string]any) bool {
	flag, _ := result["isError"].(bool)
	return flag
}

func textContent(text string) []map[string]any {
	return []map[string]any{
		{
			"type": "text",
			"text": text,
		},
	}
}

func stringifyStructuredContent(v any) string {
	if v == nil {
		return ""
	}
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	default:
		payload, err := json.Marshal(value)
		if err != nil {
			return ""
		}
		return string(payload)
	}
}
