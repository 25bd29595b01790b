package mcp

import (
	"fmt"
	"strings"
)

// LoadedProvider is one provider's contribution to the catalog.
type LoadedProvider struct {
	Name        string
	Description string
	Provider    Provider
	Tools       []ToolDescriptor
	Handlers    map[string]ToolHandler
}

// ProviderInfo describes a loaded provider for status displays.
type ProviderInfo struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	ToolCount    int      `json:"toolCount"`
	HandlerCount int      `json:"handlerCount"`
	Tools        []string `json:"tools"`
}

// Catalog is the merged set of tools and handlers from every loaded provider.
// It is written only while loading and read-only afterwards.
type Catalog struct {
	tools     []ToolDescriptor
	handlers  map[string]ToolHandler
	owners    map[string]string
	providers []*LoadedProvider
	byName    map[string]*LoadedProvider
}

func NewCatalog() *Catalog {
	return &Catalog{
		handlers: map[string]ToolHandler{},
		owners:   map[string]string{},
		byName:   map[string]*LoadedProvider{},
	}
}

// Add merges a provider into the catalog. Either everything is merged or,
// on a name conflict, nothing is.
func (c *Catalog) Add(p LoadedProvider) error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return fmt.Errorf("provider name is required")
	}
	if _, exists := c.byName[name]; exists {
		return fmt.Errorf("module %s already loaded", name)
	}
	seen := make(map[string]struct{}, len(p.Tools))
	for _, tool := range p.Tools {
		if _, dup := seen[tool.Name]; dup {
			return fmt.Errorf("%w: %s defined twice by %s", ErrToolNameConflict, tool.Name, name)
		}
		seen[tool.Name] = struct{}{}
		if owner, taken := c.owners[tool.Name]; taken {
			return fmt.Errorf("%w: %s (owned by %s)", ErrToolNameConflict, tool.Name, owner)
		}
	}
	for handlerName := range p.Handlers {
		if owner, taken := c.owners[handlerName]; taken {
			return fmt.Errorf("%w: handler %s (owned by %s)", ErrToolNameConflict, handlerName, owner)
		}
	}

	record := &LoadedProvider{
		Name:        name,
		Description: p.Description,
		Provider:    p.Provider,
		Tools:       cloneTools(p.Tools),
		Handlers:    make(map[string]ToolHandler, len(p.Handlers)),
	}
	for _, tool := range record.Tools {
		c.tools = append(c.tools, tool)
		c.owners[tool.Name] = name
	}
	for handlerName, handler := range p.Handlers {
		record.Handlers[handlerName] = handler
		c.handlers[handlerName] = handler
		c.owners[handlerName] = name
	}
	c.providers = append(c.providers, record)
	c.byName[name] = record
	return nil
}

// ListTools returns every tool definition in load order.
func (c *Catalog) ListTools() []ToolDescriptor {
	return cloneTools(c.tools)
}

// GetHandler returns the handler registered for name.
func (c *Catalog) GetHandler(name string) (ToolHandler, bool) {
	handler, ok := c.handlers[strings.TrimSpace(name)]
	if !ok || handler == nil {
		return nil, false
	}
	return handler, true
}

// Owner returns the provider that registered a tool or handler name.
func (c *Catalog) Owner(name string) (string, bool) {
	owner, ok := c.owners[strings.TrimSpace(name)]
	return owner, ok
}

// GetProviderInfo returns counts and tool names for a loaded provider.
func (c *Catalog) GetProviderInfo(name string) (ProviderInfo, bool) {
	record, ok := c.byName[strings.TrimSpace(name)]
	if !ok {
		return ProviderInfo{}, false
	}
	return record.info(), true
}

// GetAllProviderInfo returns info for every loaded provider in load order.
func (c *Catalog) GetAllProviderInfo() []ProviderInfo {
	out := make([]ProviderInfo, 0, len(c.providers))
	for _, record := range c.providers {
		out = append(out, record.info())
	}
	return out
}

// ProviderCount returns how many providers were merged.
func (c *Catalog) ProviderCount() int { return len(c.providers) }

// ToolCount returns how many tools are listed.
func (c *Catalog) ToolCount() int { return len(c.tools) }

// HandlerCount returns how many handlers are registered.
func (c *Catalog) HandlerCount() int { return len(c.handlers) }

func (p *LoadedProvider) info() ProviderInfo {
	names := make([]string, 0, len(p.Tools))
	for _, tool := range p.Tools {
		names = append(names, tool.Name)
	}
	return ProviderInfo{
		Name:         p.Name,
		Description:  p.Description,
		ToolCount:    len(p.Tools),
		HandlerCount: len(p.Handlers),
		Tools:        names,
	}
}

func cloneTools(tools []ToolDescriptor) []ToolDescriptor {
	if len(tools) == 0 {
		return []ToolDescriptor{}
	}
	out := make([]ToolDescriptor, len(tools))
	copy(out, tools)
	return out
}
