package mcp

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"
)

// ContractReport is the difference between a provider's definitions and its
// handlers.
type ContractReport struct {
	MissingHandlers []string
	ExtraHandlers   []string
}

// OK reports whether definitions and handlers match one to one.
func (r ContractReport) OK() bool {
	return len(r.MissingHandlers) == 0 && len(r.ExtraHandlers) == 0
}

// CheckContract compares tool names with handler names.
func CheckContract(tools []ToolDescriptor, handlers map[string]ToolHandler) ContractReport {
	defined := make(map[string]struct{}, len(tools))
	report := ContractReport{}
	for _, tool := range tools {
		defined[tool.Name] = struct{}{}
		if handler, ok := handlers[tool.Name]; !ok || handler == nil {
			report.MissingHandlers = append(report.MissingHandlers, tool.Name)
		}
	}
	for name := range handlers {
		if _, ok := defined[name]; !ok {
			report.ExtraHandlers = append(report.ExtraHandlers, name)
		}
	}
	sort.Strings(report.ExtraHandlers)
	return report
}

func logContract(log *slog.Logger, module string, report ContractReport) {
	if len(report.MissingHandlers) > 0 {
		log.Warn("module has tools without handlers",
			slog.String("module", module),
			slog.Any("tools", report.MissingHandlers),
		)
	}
	if len(report.ExtraHandlers) > 0 {
		log.Warn("module has handlers without tool definitions",
			slog.String("module", module),
			slog.Any("handlers", report.ExtraHandlers),
		)
	}
}

// ValidateAll checks that every tool carries a name, a description and an
// object input schema with properties. All problems are reported together.
func (c *Catalog) ValidateAll() error {
	var problems []ToolProblem
	for idx, tool := range c.tools {
		issues := toolIssues(tool)
		if len(issues) == 0 {
			continue
		}
		name := strings.TrimSpace(tool.Name)
		if name == "" {
			name = "<unnamed #" + strconv.Itoa(idx) + ">"
		}
		problems = append(problems, ToolProblem{
			Tool:     name,
			Provider: c.owners[tool.Name],
			Problems: issues,
		})
	}
	if len(problems) > 0 {
		return &CatalogError{Tools: problems}
	}
	return nil
}

func toolIssues(tool ToolDescriptor) []string {
	var issues []string
	if strings.TrimSpace(tool.Name) == "" {
		issues = append(issues, "missing name")
	}
	if strings.TrimSpace(tool.Description) == "" {
		issues = append(issues, "missing description")
	}
	if tool.InputSchema == nil {
		return append(issues, "missing inputSchema")
	}
	if typ, ok := tool.InputSchema["type"].(string); !ok || strings.TrimSpace(typ) == "" {
		issues = append(issues, "inputSchema missing type")
	}
	if _, ok := tool.InputSchema["properties"].(map[string]any); !ok {
		issues = append(issues, "inputSchema missing properties")
	}
	return issues
}
