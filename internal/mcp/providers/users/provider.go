package users

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scholarhub/scholarhub-mcp/internal/backend"
	"github.com/scholarhub/scholarhub-mcp/internal/format"
	mcpgw "github.com/scholarhub/scholarhub-mcp/internal/mcp"
)

const (
	toolGetUser        = "get_user"
	toolGetMyProfile   = "get_my_profile"
	toolListUserPapers = "list_user_papers"
)

// Executor exposes researcher profiles as MCP tools.
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
		logger: log.With(slog.String("provider", "users_tool")),
	}
}

func (p *Executor) ListDefinitions() []mcpgw.ToolDescriptor {
	return []mcpgw.ToolDescriptor{
		{
			Name:        toolGetUser,
			Description: "Fetch a public researcher profile by user ID or username.",
			InputSchema: mcpgw.ObjectSchema(map[string]any{
				"user_id":  mcpgw.StringProp("User ID"),
				"username": mcpgw.StringProp("Username, used when user_id is omitted"),
			}),
		},
		{
			Name:        toolGetMyProfile,
			Description: "Fetch the profile of the authenticated user.",
			InputSchema: mcpgw.ObjectSchema(nil),
		},
		{
			Name:        toolListUserPapers,
			Description: "List papers authored by a user.",
			InputSchema: mcpgw.ObjectSchema(mcpgw.WithPaging(map[string]any{
				"user_id": mcpgw.StringProp("User ID"),
				"status":  mcpgw.EnumProp("Lifecycle status filter", "draft", "published", "withdrawn"),
			}), "user_id"),
		},
	}
}

func (p *Executor) ListHandlers() map[string]mcpgw.ToolHandler {
	return map[string]mcpgw.ToolHandler{
		toolGetUser:        p.getUser,
		toolGetMyProfile:   p.getMyProfile,
		toolListUserPapers: p.listUserPapers,
	}
}

type getUserArgs struct {
	UserID   string `json:"user_id" validate:"required_without=Username"`
	Username string `json:"username"`
}

func (p *Executor) getUser(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	var args getUserArgs
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult("user_id or username is required"), nil
	}
	path := backend.PathEscape("users", args.UserID)
	if args.UserID == "" {
		path = backend.PathEscape("users", "by-username", args.Username)
	}
	var user backend.User
	if err := p.client.Get(ctx, path, nil, &user); err != nil {
		return p.fail(toolGetUser, err), nil
	}
	// Public profiles never expose email.
	user.Email = ""
	return mcpgw.BuildToolFormattedResult(format.User(user), user), nil
}

func (p *Executor) getMyProfile(ctx context.Context, _ map[string]any) (map[string]any, error) {
	var user backend.User
	if err := p.client.Get(ctx, "/users/me", nil, &user); err != nil {
		return p.fail(toolGetMyProfile, err), nil
	}
	return mcpgw.BuildToolFormattedResult(format.User(user), user), nil
}

type listPapersArgs struct {
	UserID string `json:"user_id" validate:"required"`
	Status string `json:"status" validate:"omitempty,oneof=draft published withdrawn"`
	backend.Paging
}

func (p *Executor) listUserPapers(ctx context.Context, arguments map[string]any) (map[string]any, error) {
	var args listPapersArgs
	if err := mcpgw.DecodeArgs(arguments, &args); err != nil {
		return mcpgw.BuildToolErrorResult(err.Error()), nil
	}
	var page backend.Page[backend.Paper]
	q := args.Paging.Apply(backend.NewQuery().Str("status", args.Status))
	if err := p.client.Get(ctx, backend.PathEscape("users", args.UserID, "papers"), q.Values(), &page); err != nil {
		return p.fail(toolListUserPapers, err), nil
	}
	heading := fmt.Sprintf("Papers by `%s`", args.UserID)
	return mcpgw.BuildToolFormattedResult(format.PaperList(heading, page.Items, page.Total), page), nil
}

func (p *Executor) fail(tool string, err error) map[string]any {
	p.logger.Warn("backend call failed", slog.String("tool", tool), slog.Any("error", err))
	return mcpgw.BuildToolErrorResult(backend.Describe(err))
}
