package citations

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scholarhub/scholarhub-mcp/internal/backend"
	"github.com/scholarhub/scholarhub-mcp/internal/format"
	mcpgw "github.com/scholarhub/scholarhub-mcp/internal/mcp"
)

const (
	toolGetCitations   = "get_citations"
	toolGetReferences  = "get_references"
	toolFormatCitation = "format_citation"
)

// Executor exposes the citation graph as MCP tools.
type Executor struct {
	client backend.API
	logger *slog.Logger
}

func NewExecutor(log *slog.Logger, client backend.API) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		client: client,
		logger: log.With(slog.String("provider", "citations_tool")),
	}
}

func (p *Executor) ListDefinitions() []mcpgw.ToolDescriptor {
	return []mcpgw.ToolDescriptor{
		{
			Name:        toolGetCitations,
			Description: "List papers that cite the given paper.",
			InputSchema: mcpgw.ObjectSchema(mcpgw.WithPaging(map[string]any{
				"paper_id": mcpgw.StringProp("Paper ID"),
			}), "paper_id"),
		},
		{
			Name:        toolGetReferences,
			Description: "List papers referenced by the given paper.",
			InputSchema: mcpgw.ObjectSchema(mcpgw.WithPaging(map[string]any{
				"paper_id": mcpgw.StringProp("Paper ID"),
			}), "paper_id"),
		},
		{
			Name:        toolFormatCitation,
			Description: "Render a formatted citation for a paper (APA, MLA, Chicago or BibTeX).",
			InputSchema: mcpgw.ObjectSchema(map[string]any{
				"paper_id": mcpgw.StringProp("Paper ID"),
				"style":    mcpgw.EnumProp("Citation style (default apa)", format.CitationStyles...),
			}, "paper_id"),
		},
	}
}

func (p *Executor) ListHandlers() map[string]mcpgw.ToolHandler {
	return map[string]mcpgw.ToolHandler{
		toolGetCitations:   p.citedBy,
		toolGetReferences:  p.references,
		toolFormatCitation: p.formatCitation,
	}
}

type graphArgs struct {
	PaperID string `json:"paper_id" validate:"required"`
	backend.Paging
}

func (p *Executor) citedBy(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	return p.graph(ctx, toolGetCitations, "citations", "Papers citing `%s`", arguments)
}

func (p *Executor) references(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	return p.graph(ctx, toolGetReferences, "references", "References of `%s`", arguments)
}

func (p *Executor) graph(ctx context.Context, tool, edge, heading string, arguments map[string]any) (map[string]any, error) {
	var args graphArgs
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	var page backend.Page[backend.Paper]
	path := backend.PathEscape("papers", args.PaperID, edge)
	if err := p.client.Get(ctx, path, args.Paging.Apply(backend.NewQuery()).Values(), &page); err != nil {
		return p.fail(tool, err), nil
	}
	return mcpgw.BuildToolFormattedResult(format.PaperList(fmt.Sprintf(heading, args.PaperID), page.Items, page.Total), page), nil
}

type formatArgs struct {
	PaperID string `json:"paper_id" validate:"required"`
	Style   string `json:"style" validate:"omitempty,oneof=apa mla chicago bibtex"`
}

func (p *Executor) formatCitation(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	var args formatArgs
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	if args.Style == "" {
		args.Style = format.StyleAPA
	}
	var paper backend.Paper
	if err := p.client.Get(ctx, backend.PathEscape("papers", args.PaperID), nil, &paper); err != nil {
		return p.fail(toolFormatCitation, err), nil
	}
	text, err := format.Citation(args.Style, paper)
	if err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	return mcpgw.BuildToolFormattedResult(text, map[string]any{
		"paperId":  paper.ID,
		"style":    args.Style,
		"citation": text,
	}), nil
}

func (p *Executor) fail(tool string, err error) map[string]any {
	p.logger.Warn("backend call failed", slog.String("tool", tool), slog.Any("error", err))
	return mcpgw.BuildToolErrorResult(backend.Describe(err))
}
