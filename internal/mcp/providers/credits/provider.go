package credits

import (
	"context"
	"log/slog"

	"github.com/scholarhub/scholarhub-mcp/internal/backend"
	"github.com/scholarhub/scholarhub-mcp/internal/format"
	mcpgw "github.com/scholarhub/scholarhub-mcp/internal/mcp"
)

const (
	toolGetCreditBalance       = "get_credit_balance"
	toolListCreditTransactions = "list_credit_transactions"
)

// Executor exposes the authenticated user's credit ledger as MCP tools.
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
		logger: log.With(slog.String("provider", "credits_tool")),
	}
}

func (p *Executor) ListDefinitions() []mcpgw.ToolDescriptor {
	return []mcpgw.ToolDescriptor{
		{
			Name:        toolGetCreditBalance,
			Description: "Show the current credit balance of the authenticated user.",
			InputSchema: mcpgw.ObjectSchema(nil),
		},
		{
			Name:        toolListCreditTransactions,
			Description: "List credit grants, purchases and refunds, newest first.",
			InputSchema: mcpgw.ObjectSchema(mcpgw.WithPaging(map[string]any{
				"kind": mcpgw.EnumProp("Transaction kind", "grant", "purchase", "refund", "reward"),
			})),
		},
	}
}

func (p *Executor) ListHandlers() map[string]mcpgw.ToolHandler {
	return map[string]mcpgw.ToolHandler{
		toolGetCreditBalance:       p.balance,
		toolListCreditTransactions: p.transactions,
	}
}

func (p *Executor) balance(ctx context.Context, _ map[string]any) (map[string]any, error) {
	var balance backend.CreditBalance
	if err := p.client.Get(ctx, "/credits/balance", nil, &balance); err != nil {
		return p.fail(toolGetCreditBalance, err), nil
	}
	return mcpgw.BuildToolFormattedResult(format.CreditBalance(balance), balance), nil
}

type transactionsArgs struct {
	Kind string `json:"kind" validate:"omitempty,oneof=grant purchase refund reward"`
	backend.Paging
}

func (p *Executor) transactions(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	var args transactionsArgs
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	var page backend.Page[backend.CreditTransaction]
	q := args.Paging.Apply(backend.NewQuery().Str("kind", args.Kind))
	if err := p.client.Get(ctx, "/credits/transactions", q.Values(), &page); err != nil {
		return p.fail(toolListCreditTransactions, err), nil
	}
	return mcpgw.BuildToolFormattedResult(format.CreditTransactions(page.Items, page.Total), page), nil
}

func (p *Executor) fail(tool string, err error) map[string]any {
	p.logger.Warn("backend call failed", slog.String("tool", tool), slog.Any("error", err))
	return mcpgw.BuildToolErrorResult(backend.Describe(err))
}
