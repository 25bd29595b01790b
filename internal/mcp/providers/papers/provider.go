package papers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/scholarhub/scholarhub-mcp/internal/backend"
	"github.com/scholarhub/scholarhub-mcp/internal/format"
	mcpgw "github.com/scholarhub/scholarhub-mcp/internal/mcp"
)

const (
	toolGetPaper         = "get_paper"
	toolListPapers       = "list_papers"
	toolSubmitPaper      = "submit_paper"
	toolUpdatePaper      = "update_paper"
	toolDeletePaper      = "delete_paper"
	toolGetPaperVersions = "get_paper_versions"
	toolPublishPaper     = "publish_paper"
	toolWithdrawPaper    = "withdraw_paper"
	toolGetPaperStats    = "get_paper_stats"
)

// Executor exposes the paper lifecycle (draft, publish, withdraw) as MCP tools.
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
		logger: log.With(slog.String("provider", "papers_tool")),
	}
}

func paperIDSchema() map[string]any {
	return mcpgw.ObjectSchema(map[string]any{
		"paper_id": mcpgw.StringProp("Paper ID"),
	}, "paper_id")
}

func (p *Executor) ListDefinitions() []mcpgw.ToolDescriptor {
	return []mcpgw.ToolDescriptor{
		{
			Name:        toolGetPaper,
			Description: "Fetch a paper with its abstract, authors and metadata.",
			InputSchema: paperIDSchema(),
		},
		{
			Name:        toolListPapers,
			Description: "List papers, optionally filtered by status, author or tag.",
			InputSchema: mcpgw.ObjectSchema(mcpgw.WithPaging(map[string]any{
				"status":    mcpgw.EnumProp("Lifecycle status", "draft", "published", "withdrawn"),
				"author_id": mcpgw.StringProp("Only papers by this author"),
				"tag":       mcpgw.StringProp("Only papers carrying this tag"),
			})),
		},
		{
			Name:        toolSubmitPaper,
			Description: "Create a new paper draft owned by the authenticated user.",
			InputSchema: mcpgw.ObjectSchema(map[string]any{
				"title":       mcpgw.StringProp("Paper title"),
				"abstract":    mcpgw.StringProp("Abstract, plain text or HTML"),
				"authors":     mcpgw.ArrayProp("Co-author names in byline order", map[string]any{"type": "string"}),
				"tags":        mcpgw.ArrayProp("Subject tags", map[string]any{"type": "string"}),
				"content_url": mcpgw.StringProp("URL of the full text (PDF or HTML)"),
				"doi":         mcpgw.StringProp("DOI, when already registered"),
			}, "title", "abstract"),
		},
		{
			Name:        toolUpdatePaper,
			Description: "Update a paper draft. Creates a new version when the paper is published.",
			InputSchema: mcpgw.ObjectSchema(map[string]any{
				"paper_id":  mcpgw.StringProp("Paper ID"),
				"title":     mcpgw.StringProp("New title"),
				"abstract":  mcpgw.StringProp("New abstract"),
				"tags":      mcpgw.ArrayProp("Replacement tag set", map[string]any{"type": "string"}),
				"changelog": mcpgw.StringProp("Summary of what changed"),
			}, "paper_id"),
		},
		{
			Name:        toolDeletePaper,
			Description: "Permanently delete a draft paper. Published papers must be withdrawn instead.",
			InputSchema: mcpgw.ObjectSchema(map[string]any{
				"paper_id": mcpgw.StringProp("Paper ID"),
				"confirm":  mcpgw.BooleanProp("Must be true to delete"),
			}, "paper_id", "confirm"),
		},
		{
			Name:        toolGetPaperVersions,
			Description: "List the version history of a paper.",
			InputSchema: paperIDSchema(),
		},
		{
			Name:        toolPublishPaper,
			Description: "Publish a draft paper so it becomes searchable.",
			InputSchema: paperIDSchema(),
		},
		{
			Name:        toolWithdrawPaper,
			Description: "Withdraw a published paper. The record stays visible with a withdrawal notice.",
			InputSchema: mcpgw.ObjectSchema(map[string]any{
				"paper_id": mcpgw.StringProp("Paper ID"),
				"reason":   mcpgw.StringProp("Reason shown on the withdrawal notice"),
			}, "paper_id", "reason"),
		},
		{
			Name:        toolGetPaperStats,
			Description: "View, download, citation and review counts for a paper.",
			InputSchema: paperIDSchema(),
		},
	}
}

func (p *Executor) ListHandlers() map[string]mcpgw.ToolHandler {
	return map[string]mcpgw.ToolHandler{
		toolGetPaper:         p.getPaper,
		toolListPapers:       p.listPapers,
		toolSubmitPaper:      p.submitPaper,
		toolUpdatePaper:      p.updatePaper,
		toolDeletePaper:      p.deletePaper,
		toolGetPaperVersions: p.getVersions,
		toolPublishPaper:     p.publishPaper,
		toolWithdrawPaper:    p.withdrawPaper,
		toolGetPaperStats:    p.getStats,
	}
}

type paperRef struct {
	PaperID string `json:"paper_id" validate:"required"`
}

func (p *Executor) getPaper(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	var args paperRef
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	var paper backend.Paper
	if err := p.client.Get(ctx, backend.PathEscape("papers", args.PaperID), nil, &paper); err != nil {
		return p.fail(toolGetPaper, err), nil
	}
	return mcpgw.BuildToolFormattedResult(format.PaperDetail(paper), paper), nil
}

type listArgs struct {
	Status   string `json:"status" validate:"omitempty,oneof=draft published withdrawn"`
	AuthorID string `json:"author_id"`
	Tag      string `json:"tag"`
	backend.Paging
}

func (p *Executor) listPapers(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	var args listArgs
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	q := backend.NewQuery().Str("status", args.Status).Str("author_id", args.AuthorID).Str("tag", args.Tag)
	var page backend.Page[backend.Paper]
	if err := p.client.Get(ctx, "/papers", args.Paging.Apply(q).Values(), &page); err != nil {
		return p.fail(toolListPapers, err), nil
	}
	return mcpgw.BuildToolFormattedResult(format.PaperList("Papers", page.Items, page.Total), page), nil
}

type submitArgs struct {
	Title      string   `json:"title" validate:"required,min=3,max=300"`
	Abstract   string   `json:"abstract" validate:"required,min=20"`
	Authors    []string `json:"authors"`
	Tags       []string `json:"tags" validate:"max=10"`
	ContentURL string   `json:"content_url" validate:"omitempty,url"`
	DOI        string   `json:"doi"`
}

func (p *Executor) submitPaper(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	var args submitArgs
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	body := map[string]any{
		"title":    strings.TrimSpace(args.Title),
		"abstract": args.Abstract,
		"authors":  compact(args.Authors),
		"tags":     compact(args.Tags),
	}
	if args.ContentURL != "" {
		body["contentUrl"] = args.ContentURL
	}
	if args.DOI != "" {
		body["doi"] = strings.TrimSpace(args.DOI)
	}
	var paper backend.Paper
	if err := p.client.Post(ctx, "/papers", body, &paper); err != nil {
		return p.fail(toolSubmitPaper, err), nil
	}
	p.logger.Info("paper submitted", slog.String("paper_id", paper.ID))
	text := fmt.Sprintf("Draft `%s` created. Use publish_paper when it is ready.\n\n%s", paper.ID, format.PaperDetail(paper))
	return mcpgw.BuildToolFormattedResult(text, paper), nil
}

type updateArgs struct {
	PaperID   string   `json:"paper_id" validate:"required"`
	Title     string   `json:"title" validate:"omitempty,min=3,max=300"`
	Abstract  string   `json:"abstract" validate:"omitempty,min=20"`
	Tags      []string `json:"tags" validate:"omitempty,max=10"`
	Changelog string   `json:"changelog"`
}

func (p *Executor) updatePaper(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	var args updateArgs
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	body := map[string]any{}
	if args.Title != "" {
		body["title"] = strings.TrimSpace(args.Title)
	}
	if args.Abstract != "" {
		body["abstract"] = args.Abstract
	}
	if args.Tags != nil {
		body["tags"] = compact(args.Tags)
	}
	if len(body) == 0 {
		return mcpgw.BuildToolErrorResult("provide at least one of title, abstract or tags"), nil
	}
	if args.Changelog != "" {
		body["changelog"] = args.Changelog
	}
	var paper backend.Paper
	if err := p.client.Put(ctx, backend.PathEscape("papers", args.PaperID), body, &paper); err != nil {
		return p.fail(toolUpdatePaper, err), nil
	}
	return mcpgw.BuildToolFormattedResult(format.PaperDetail(paper), paper), nil
}

type deleteArgs struct {
	PaperID string `json:"paper_id" validate:"required"`
	Confirm bool   `json:"confirm"`
}

func (p *Executor) deletePaper(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	var args deleteArgs
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	if !args.Confirm {
		return mcpgw.BuildToolErrorResult("confirm must be true to delete a paper"), nil
	}
	if err := p.client.Delete(ctx, backend.PathEscape("papers", args.PaperID), nil); err != nil {
		return p.fail(toolDeletePaper, err), nil
	}
	p.logger.Info("paper deleted", slog.String("paper_id", args.PaperID))
	return mcpgw.BuildToolFormattedResult(fmt.Sprintf("Paper `%s` deleted.", args.PaperID), map[string]any{
		"paperId": args.PaperID,
		"deleted": true,
	}), nil
}

func (p *Executor) getVersions(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	var args paperRef
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	var page backend.Page[backend.PaperVersion]
	if err := p.client.Get(ctx, backend.PathEscape("papers", args.PaperID, "versions"), nil, &page); err != nil {
		return p.fail(toolGetPaperVersions, err), nil
	}
	return mcpgw.BuildToolFormattedResult(format.PaperVersions(args.PaperID, page.Items), page), nil
}

func (p *Executor) publishPaper(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	var args paperRef
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	var paper backend.Paper
	if err := p.client.Post(ctx, backend.PathEscape("papers", args.PaperID, "publish"), nil, &paper); err != nil {
		return p.fail(toolPublishPaper, err), nil
	}
	p.logger.Info("paper published", slog.String("paper_id", args.PaperID))
	return mcpgw.BuildToolFormattedResult(fmt.Sprintf("Paper `%s` is now %s.", paper.ID, firstNonEmpty(paper.Status, "published")), paper), nil
}

type withdrawArgs struct {
	PaperID string `json:"paper_id" validate:"required"`
	Reason  string `json:"reason" validate:"required,min=10"`
}

func (p *Executor) withdrawPaper(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	var args withdrawArgs
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	var paper backend.Paper
	body := map[string]any{"reason": strings.TrimSpace(args.Reason)}
	if err := p.client.Post(ctx, backend.PathEscape("papers", args.PaperID, "withdraw"), body, &paper); err != nil {
		return p.fail(toolWithdrawPaper, err), nil
	}
	p.logger.Info("paper withdrawn", slog.String("paper_id", args.PaperID))
	return mcpgw.BuildToolFormattedResult(fmt.Sprintf("Paper `%s` withdrawn: %s", args.PaperID, body["reason"]), paper), nil
}

func (p *Executor) getStats(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	var args paperRef
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	var stats backend.PaperStats
	if err := p.client.Get(ctx, backend.PathEscape("papers", args.PaperID, "stats"), nil, &stats); err != nil {
		return p.fail(toolGetPaperStats, err), nil
	}
	if stats.PaperID == "" {
		stats.PaperID = args.PaperID
	}
	return mcpgw.BuildToolFormattedResult(format.PaperStats(stats), stats), nil
}

func (p *Executor) fail(tool string, err error) map[string]any {
	p.logger.Warn("backend call failed", slog.String("tool", tool), slog.Any("error", err))
	return mcpgw.BuildToolErrorResult(backend.Describe(err))
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
