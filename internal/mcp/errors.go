package mcp

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrToolNotFound indicates no handler is registered for the requested tool.
	ErrToolNotFound = errors.New("tool not found")
	// ErrProviderNotFound indicates no factory is registered for a module name.
	ErrProviderNotFound = errors.New("provider implementation not found")
	// ErrProviderInvalid indicates a factory returned no usable provider.
	ErrProviderInvalid = errors.New("provider is not usable")
	// ErrToolNameConflict indicates a tool name is already owned by another provider.
	ErrToolNameConflict = errors.New("tool name already registered")
	// ErrLoaderUsed is returned when Load is called more than once.
	ErrLoaderUsed = errors.New("loader has already run")
)

// ProviderLoadError reports why one provider could not be loaded.
type ProviderLoadError struct {
	Provider string
	Err      error
}

func (e *ProviderLoadError) Error() string {
	return fmt.Sprintf("load module %s: %v", e.Provider, e.Err)
}

func (e *ProviderLoadError) Unwrap() error { return e.Err }

// ToolProblem lists what is wrong with one tool definition.
type ToolProblem struct {
	Tool     string
	Provider string
	Problems []string
}

// CatalogError aggregates every malformed tool definition in a catalog.
type CatalogError struct {
	Tools []ToolProblem
}

func (e *CatalogError) Error() string {
	parts := make([]string, 0, len(e.Tools))
	for _, item := range e.Tools {
		parts = append(parts, fmt.Sprintf("%s (%s)", item.Tool, strings.Join(item.Problems, ", ")))
	}
	return fmt.Sprintf("invalid tool definitions: %s", strings.Join(parts, "; "))
}

// ToolNames returns the offending tool names in catalog order.
func (e *CatalogError) ToolNames() []string {
	names := make([]string, 0, len(e.Tools))
	for _, item := range e.Tools {
		names = append(names, item.Tool)
	}
	return names
}
