package marketplace

import (
	"context"
	"log/slog"

	"github.com/scholarhub/scholarhub-mcp/internal/backend"
	"github.com/scholarhub/scholarhub-mcp/internal/format"
	mcpgw "github.com/scholarhub/scholarhub-mcp/internal/mcp"
)

const (
	toolListListings    = "list_listings"
	toolGetListing      = "get_listing"
	toolPurchaseListing = "purchase_listing"
)

// Executor exposes the credit marketplace (datasets, reviews-for-hire,
// paper access) as MCP tools.
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
		logger: log.With(slog.String("provider", "marketplace_tool")),
	}
}

func (p *Executor) ListDefinitions() []mcpgw.ToolDescriptor {
	return []mcpgw.ToolDescriptor{
		{
			Name:        toolListListings,
			Description: "Browse marketplace listings, optionally filtered by kind, text and maximum price.",
			InputSchema: mcpgw.ObjectSchema(mcpgw.WithPaging(map[string]any{
				"query":     mcpgw.StringProp("Text to match in listing titles and descriptions"),
				"kind":      mcpgw.EnumProp("Listing kind", "dataset", "review_service", "paper_access"),
				"max_price": mcpgw.IntegerProp("Maximum price in credits"),
			})),
		},
		{
			Name:        toolGetListing,
			Description: "Show a marketplace listing in full.",
			InputSchema: mcpgw.ObjectSchema(map[string]any{
				"listing_id": mcpgw.StringProp("Listing ID"),
			}, "listing_id"),
		},
		{
			Name:        toolPurchaseListing,
			Description: "Buy a listing with credits. Requires confirm=true and spends credits immediately.",
			InputSchema: mcpgw.ObjectSchema(map[string]any{
				"listing_id":     mcpgw.StringProp("Listing ID"),
				"expected_price": mcpgw.IntegerProp("Abort if the current price differs from this amount"),
				"confirm":        mcpgw.BooleanProp("Must be true to purchase"),
			}, "listing_id", "confirm"),
		},
	}
}

func (p *Executor) ListHandlers() map[string]mcpgw.ToolHandler {
	return map[string]mcpgw.ToolHandler{
		toolListListings:    p.listListings,
		toolGetListing:      p.getListing,
		toolPurchaseListing: p.purchase,
	}
}

type listArgs struct {
	Query    string `json:"query"`
	Kind     string `json:"kind" validate:"omitempty,oneof=dataset review_service paper_access"`
	MaxPrice int    `json:"max_price" validate:"omitempty,min=1"`
	backend.Paging
}

func (p *Executor) listListings(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	var args listArgs
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	q := backend.NewQuery().Str("q", args.Query).Str("kind", args.Kind).Int("max_price", args.MaxPrice)
	var page backend.Page[backend.Listing]
	if err := p.client.Get(ctx, "/marketplace/listings", args.Paging.Apply(q).Values(), &page); err != nil {
		return p.fail(toolListListings, err), nil
	}
	return mcpgw.BuildToolFormattedResult(format.ListingList(page.Items, page.Total), page), nil
}

type listingRef struct {
	ListingID string `json:"listing_id" validate:"required"`
}

func (p *Executor) getListing(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	var args listingRef
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	var listing backend.Listing
	if err := p.client.Get(ctx, backend.PathEscape("marketplace", "listings", args.ListingID), nil, &listing); err != nil {
		return p.fail(toolGetListing, err), nil
	}
	return mcpgw.BuildToolFormattedResult(format.Listing(listing), listing), nil
}

type purchaseArgs struct {
	ListingID     string `json:"listing_id" validate:"required"`
	ExpectedPrice int    `json:"expected_price" validate:"omitempty,min=0"`
	Confirm       bool   `json:"confirm"`
}

func (p *Executor) purchase(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	var args purchaseArgs
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	if !args.Confirm {
		return mcpgw.BuildToolErrorResult("confirm must be true to purchase a listing"), nil
	}
	body := map[string]any{}
	if args.ExpectedPrice > 0 {
		body["expectedPrice"] = args.ExpectedPrice
	}
	var purchase backend.Purchase
	path := backend.PathEscape("marketplace", "listings", args.ListingID, "purchase")
	if err := p.client.Post(ctx, path, body, &purchase); err != nil {
		return p.fail(toolPurchaseListing, err), nil
	}
	p.logger.Info("listing purchased",
		slog.String("listing_id", args.ListingID),
		slog.String("purchase_id", purchase.ID),
		slog.Int("credits", purchase.PriceCredits),
	)
	return mcpgw.BuildToolFormattedResult(format.Purchase(purchase), purchase), nil
}

func (p *Executor) fail(tool string, err error) map[string]any {
	p.logger.Warn("backend call failed", slog.String("tool", tool), slog.Any("error", err))
	return mcpgw.BuildToolErrorResult(backend.Describe(err))
}
