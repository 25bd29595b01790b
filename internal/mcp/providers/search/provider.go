package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scholarhub/scholarhub-mcp/internal/backend"
	"github.com/scholarhub/scholarhub-mcp/internal/format"
	mcpgw "github.com/scholarhub/scholarhub-mcp/internal/mcp"
)

const (
	toolSearchPapers      = "search_papers"
	toolSearchAuthors     = "search_authors"
	toolSearchByTag       = "search_by_tag"
	toolGetTrendingPapers = "get_trending_papers"
)

// Executor exposes paper and author discovery as MCP tools.
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
		logger: log.With(slog.String("provider", "search_tool")),
	}
}

func (p *Executor) ListDefinitions() []mcpgw.ToolDescriptor {
	return []mcpgw.ToolDescriptor{
		{
			Name:        toolSearchPapers,
			Description: "Full-text search over published papers. Filter by tag and publication year range.",
			InputSchema: mcpgw.ObjectSchema(mcpgw.WithPaging(map[string]any{
				"query":     mcpgw.StringProp("Search terms matched against title, abstract and authors"),
				"tag":       mcpgw.StringProp("Only return papers carrying this tag"),
				"year_from": mcpgw.IntegerProp("Earliest publication year"),
				"year_to":   mcpgw.IntegerProp("Latest publication year"),
				"sort":      mcpgw.EnumProp("Result ordering", "relevance", "date", "citations"),
			}), "query"),
		},
		{
			Name:        toolSearchAuthors,
			Description: "Find authors by name or affiliation.",
			InputSchema: mcpgw.ObjectSchema(mcpgw.WithPaging(map[string]any{
				"query": mcpgw.StringProp("Author name or affiliation"),
			}), "query"),
		},
		{
			Name:        toolSearchByTag,
			Description: "List papers carrying a tag, newest first.",
			InputSchema: mcpgw.ObjectSchema(mcpgw.WithPaging(map[string]any{
				"tag": mcpgw.StringProp("Tag name, e.g. machine-learning"),
			}), "tag"),
		},
		{
			Name:        toolGetTrendingPapers,
			Description: "Papers gaining the most views and citations in a recent window.",
			InputSchema: mcpgw.ObjectSchema(map[string]any{
				"window": mcpgw.EnumProp("Trending window (default week)", "day", "week", "month"),
				"limit":  mcpgw.IntegerProp("Maximum number of papers (1-50, default 10)"),
			}),
		},
	}
}

func (p *Executor) ListHandlers() map[string]mcpgw.ToolHandler {
	return map[string]mcpgw.ToolHandler{
		toolSearchPapers:      p.searchPapers,
		toolSearchAuthors:     p.searchAuthors,
		toolSearchByTag:       p.searchByTag,
		toolGetTrendingPapers: p.trendingPapers,
	}
}

type searchPapersArgs struct {
	Query    string `json:"query" validate:"required"`
	Tag      string `json:"tag"`
	YearFrom int    `json:"year_from" validate:"omitempty,min=1900,max=2100"`
	YearTo   int    `json:"year_to" validate:"omitempty,min=1900,max=2100"`
	Sort     string `json:"sort" validate:"omitempty,oneof=relevance date citations"`
	backend.Paging
}

func (p *Executor) searchPapers(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	var args searchPapersArgs
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	if args.YearFrom > 0 && args.YearTo > 0 && args.YearFrom > args.YearTo {
		return mcpgw.BuildToolErrorResult("year_from must not be after year_to"), nil
	}
	q := backend.NewQuery().
		Str("q", args.Query).
		Str("tag", args.Tag).
		Int("year_from", args.YearFrom).
		Int("year_to", args.YearTo).
		Str("sort", args.Sort)
	var page backend.Page[backend.Paper]
	if err := p.client.Get(ctx, "/search/papers", args.Paging.Apply(q).Values(), &page); err != nil {
		return p.fail(toolSearchPapers, err), nil
	}
	heading := fmt.Sprintf("Papers matching %q", args.Query)
	return mcpgw.BuildToolFormattedResult(format.PaperList(heading, page.Items, page.Total), page), nil
}

type searchAuthorsArgs struct {
	Query string `json:"query" validate:"required"`
	backend.Paging
}

func (p *Executor) searchAuthors(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	var args searchAuthorsArgs
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	var page backend.Page[backend.Author]
	q := args.Paging.Apply(backend.NewQuery().Str("q", args.Query))
	if err := p.client.Get(ctx, "/search/authors", q.Values(), &page); err != nil {
		return p.fail(toolSearchAuthors, err), nil
	}
	return mcpgw.BuildToolFormattedResult(format.AuthorList(page.Items, page.Total), page), nil
}

type searchByTagArgs struct {
	Tag string `json:"tag" validate:"required"`
	backend.Paging
}

func (p *Executor) searchByTag(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	var args searchByTagArgs
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	var page backend.Page[backend.Paper]
	if err := p.client.Get(ctx, backend.PathEscape("tags", args.Tag, "papers"), args.Paging.Apply(backend.NewQuery()).Values(), &page); err != nil {
		return p.fail(toolSearchByTag, err), nil
	}
	heading := fmt.Sprintf("Papers tagged %q", args.Tag)
	return mcpgw.BuildToolFormattedResult(format.PaperList(heading, page.Items, page.Total), page), nil
}

type trendingArgs struct {
	Window string `json:"window" validate:"omitempty,oneof=day week month"`
	Limit  int    `json:"limit" validate:"omitempty,min=1,max=50"`
}

func (p *Executor) trendingPapers(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	var args trendingArgs
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	if args.Window == "" {
		args.Window = "week"
	}
	if args.Limit == 0 {
		args.Limit = 10
	}
	var page backend.Page[backend.Paper]
	q := backend.NewQuery().Str("window", args.Window).Int("limit", args.Limit)
	if err := p.client.Get(ctx, "/papers/trending", q.Values(), &page); err != nil {
		return p.fail(toolGetTrendingPapers, err), nil
	}
	heading := fmt.Sprintf("Trending papers this %s", args.Window)
	return mcpgw.BuildToolFormattedResult(format.PaperList(heading, page.Items, page.Total), page), nil
}

func (p *Executor) fail(tool string, err error) map[string]any {
	p.logger.Warn("backend call failed", slog.String("tool", tool), slog.Any("error", err))
	return mcpgw.BuildToolErrorResult(backend.Describe(err))
}
