package reviews

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
	toolListReviews   = "list_reviews"
	toolGetReview     = "get_review"
	toolSubmitReview  = "submit_review"
	toolRequestReview = "request_review"
)

var recommendations = []string{"accept", "minor_revision", "major_revision", "reject"}

// Executor exposes peer review as MCP tools.
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
		logger: log.With(slog.String("provider", "reviews_tool")),
	}
}

func (p *Executor) ListDefinitions() []mcpgw.ToolDescriptor {
	return []mcpgw.ToolDescriptor{
		{
			Name:        toolListReviews,
			Description: "List the reviews submitted for a paper.",
			InputSchema: mcpgw.ObjectSchema(mcpgw.WithPaging(map[string]any{
				"paper_id": mcpgw.StringProp("Paper ID"),
			}), "paper_id"),
		},
		{
			Name:        toolGetReview,
			Description: "Read a single review in full.",
			InputSchema: mcpgw.ObjectSchema(map[string]any{
				"review_id": mcpgw.StringProp("Review ID"),
			}, "review_id"),
		},
		{
			Name:        toolSubmitReview,
			Description: "Submit a review for a published paper as the authenticated user.",
			InputSchema: mcpgw.ObjectSchema(map[string]any{
				"paper_id":       mcpgw.StringProp("Paper ID"),
				"rating":         mcpgw.IntegerProp("Overall rating from 1 to 5"),
				"recommendation": mcpgw.EnumProp("Editorial recommendation", recommendations...),
				"body":           mcpgw.StringProp("Review text (markdown)"),
			}, "paper_id", "rating", "recommendation", "body"),
		},
		{
			Name:        toolRequestReview,
			Description: "Ask for a review of your paper, either from a specific reviewer or from the open pool.",
			InputSchema: mcpgw.ObjectSchema(map[string]any{
				"paper_id":    mcpgw.StringProp("Paper ID"),
				"reviewer_id": mcpgw.StringProp("Reviewer user ID; omit to post to the open pool"),
				"due_days":    mcpgw.IntegerProp("Days until the review is due (1-60, default 14)"),
				"message":     mcpgw.StringProp("Note to the reviewer"),
			}, "paper_id"),
		},
	}
}

func (p *Executor) ListHandlers() map[string]mcpgw.ToolHandler {
	return map[string]mcpgw.ToolHandler{
		toolListReviews:   p.listReviews,
		toolGetReview:     p.getReview,
		toolSubmitReview:  p.submitReview,
		toolRequestReview: p.requestReview,
	}
}

type listArgs struct {
	PaperID string `json:"paper_id" validate:"required"`
	backend.Paging
}

func (p *Executor) listReviews(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	var args listArgs
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	var page backend.Page[backend.Review]
	path := backend.PathEscape("papers", args.PaperID, "reviews")
	if err := p.client.Get(ctx, path, args.Paging.Apply(backend.NewQuery()).Values(), &page); err != nil {
		return p.fail(toolListReviews, err), nil
	}
	return mcpgw.BuildToolFormattedResult(format.ReviewList(args.PaperID, page.Items, page.Total), page), nil
}

type getArgs struct {
	ReviewID string `json:"review_id" validate:"required"`
}

func (p *Executor) getReview(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	var args getArgs
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	var review backend.Review
	if err := p.client.Get(ctx, backend.PathEscape("reviews", args.ReviewID), nil, &review); err != nil {
		return p.fail(toolGetReview, err), nil
	}
	return mcpgw.BuildToolFormattedResult(format.Review(review), review), nil
}

type submitArgs struct {
	PaperID        string `json:"paper_id" validate:"required"`
	Rating         int    `json:"rating" validate:"required,min=1,max=5"`
	Recommendation string `json:"recommendation" validate:"required,oneof=accept minor_revision major_revision reject"`
	Body           string `json:"body" validate:"required,min=50"`
}

func (p *Executor) submitReview(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	var args submitArgs
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	body := map[string]any{
		"rating":         args.Rating,
		"recommendation": args.Recommendation,
		"body":           strings.TrimSpace(args.Body),
	}
	var review backend.Review
	if err := p.client.Post(ctx, backend.PathEscape("papers", args.PaperID, "reviews"), body, &review); err != nil {
		return p.fail(toolSubmitReview, err), nil
	}
	p.logger.Info("review submitted", slog.String("paper_id", args.PaperID), slog.String("review_id", review.ID))
	return mcpgw.BuildToolFormattedResult(format.Review(review), review), nil
}

type requestArgs struct {
	PaperID    string `json:"paper_id" validate:"required"`
	ReviewerID string `json:"reviewer_id"`
	DueDays    int    `json:"due_days" validate:"omitempty,min=1,max=60"`
	Message    string `json:"message" validate:"max=2000"`
}

func (p *Executor) requestReview(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	var args requestArgs
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	if args.DueDays == 0 {
		args.DueDays = 14
	}
	body := map[string]any{"dueDays": args.DueDays}
	if args.ReviewerID != "" {
		body["reviewerId"] = args.ReviewerID
	}
	if msg := strings.TrimSpace(args.Message); msg != "" {
		body["message"] = msg
	}
	var req backend.ReviewRequest
	if err := p.client.Post(ctx, backend.PathEscape("papers", args.PaperID, "review-requests"), body, &req); err != nil {
		return p.fail(toolRequestReview, err), nil
	}
	target := "the open reviewer pool"
	if req.ReviewerID != "" {
		target = "reviewer `" + req.ReviewerID + "`"
	}
	text := fmt.Sprintf("Review request `%s` for paper `%s` sent to %s (status %s, due %s).",
		req.ID, args.PaperID, target, req.Status, format.Date(req.DueAt))
	return mcpgw.BuildToolFormattedResult(text, req), nil
}

func (p *Executor) fail(tool string, err error) map[string]any {
	p.logger.Warn("backend call failed", slog.String("tool", tool), slog.Any("error", err))
	return mcpgw.BuildToolErrorResult(backend.Describe(err))
}
