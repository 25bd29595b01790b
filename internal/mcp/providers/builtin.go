// Package providers registers the built-in tool modules by name.
package providers

import (
	"log/slog"

	"github.com/scholarhub/scholarhub-mcp/internal/backend"
	mcpgw "github.com/scholarhub/scholarhub-mcp/internal/mcp"
	"github.com/scholarhub/scholarhub-mcp/internal/mcp/providers/auth"
	"github.com/scholarhub/scholarhub-mcp/internal/mcp/providers/citations"
	"github.com/scholarhub/scholarhub-mcp/internal/mcp/providers/credits"
	"github.com/scholarhub/scholarhub-mcp/internal/mcp/providers/marketplace"
	"github.com/scholarhub/scholarhub-mcp/internal/mcp/providers/papers"
	"github.com/scholarhub/scholarhub-mcp/internal/mcp/providers/reviews"
	"github.com/scholarhub/scholarhub-mcp/internal/mcp/providers/search"
	"github.com/scholarhub/scholarhub-mcp/internal/mcp/providers/users"
)

// Deps are handed to every provider constructor.
type Deps struct {
	Logger *slog.Logger
	Client backend.API
	APIKey string
}

// Builtin returns the factory of every module shipped with the server, keyed
// by the name used in the module document.
func Builtin(deps Deps) map[string]mcpgw.ProviderFactory {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	client := deps.Client
	return map[string]mcpgw.ProviderFactory{
		"search": func() (mcpgw.Provider, error) {
			return search.NewExecutor(log, client), nil
		},
		"papers": func() (mcpgw.Provider, error) {
			return papers.NewExecutor(log, client), nil
		},
		"reviews": func() (mcpgw.Provider, error) {
			return reviews.NewExecutor(log, client), nil
		},
		"citations": func() (mcpgw.Provider, error) {
			return citations.NewExecutor(log, client), nil
		},
		"users": func() (mcpgw.Provider, error) {
			return users.NewExecutor(log, client), nil
		},
		"auth": func() (mcpgw.Provider, error) {
			return auth.NewExecutor(log, client, deps.APIKey), nil
		},
		"marketplace": func() (mcpgw.Provider, error) {
			return marketplace.NewExecutor(log, client), nil
		},
		"credits": func() (mcpgw.Provider, error) {
			return credits.NewExecutor(log, client), nil
		},
	}
}
