package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// LoaderState is the lifecycle of a Loader. A loader runs once.
type LoaderState int

const (
	StateUnloaded LoaderState = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s LoaderState) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// ConfigPath locates the module document. Empty means DefaultModuleConfigPath.
	ConfigPath string
	// StrictLoading aborts Load on the first provider failure. When false a
	// failing provider is logged and left out of the catalog.
	StrictLoading bool
	// Factories maps module names to provider constructors.
	Factories map[string]ProviderFactory
}

// ModuleStats is the per-module part of Stats.
type ModuleStats struct {
	Name         string `json:"name"`
	Enabled      bool   `json:"enabled"`
	Loaded       bool   `json:"loaded"`
	ToolCount    int    `json:"toolCount"`
	HandlerCount int    `json:"handlerCount"`
	Error        string `json:"error,omitempty"`
}

// Stats aggregates catalog counts.
type Stats struct {
	TotalModules  int           `json:"totalModules"`
	TotalTools    int           `json:"totalTools"`
	TotalHandlers int           `json:"totalHandlers"`
	Modules       []ModuleStats `json:"modules"`
}

// Loader builds a Catalog from the configured modules, in configured order.
type Loader struct {
	logger     *slog.Logger
	configPath string
	strict     bool
	factories  map[string]ProviderFactory

	mu       sync.Mutex
	config   ModuleConfig
	state    LoaderState
	catalog  *Catalog
	failures map[string]error
}

func NewLoader(log *slog.Logger, opts LoaderOptions) *Loader {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "module_loader"))
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultModuleConfigPath
	}
	factories := make(map[string]ProviderFactory, len(opts.Factories))
	for name, factory := range opts.Factories {
		factories[name] = factory
	}
	return &Loader{
		logger:     log,
		configPath: path,
		strict:     opts.StrictLoading,
		factories:  factories,
		config:     LoadModuleConfig(log, path),
		state:      StateUnloaded,
		failures:   map[string]error{},
	}
}

// Load instantiates every enabled module in load order and returns the
// merged catalog. Provider failures are fatal only in strict mode; a
// malformed catalog is always fatal.
func (l *Loader) Load(ctx context.Context) (*Catalog, error) {
	l.mu.Lock()
	if l.state != StateUnloaded {
		l.mu.Unlock()
		return nil, ErrLoaderUsed
	}
	l.state = StateLoading
	cfg := l.config.Clone()
	l.mu.Unlock()

	catalog := NewCatalog()
	failures := map[string]error{}
	attempted := map[string]struct{}{}
	for _, name := range cfg.LoadOrder() {
		if err := ctx.Err(); err != nil {
			l.finish(StateFailed, nil, failures)
			return nil, err
		}
		entry, ok := cfg.EnabledModules.Get(name)
		if !ok || !entry.Enabled {
			l.logger.Info("skipping disabled module", slog.String("module", name))
			continue
		}
		if _, seen := attempted[name]; seen {
			l.logger.Warn("module listed twice in load order", slog.String("module", name))
			continue
		}
		attempted[name] = struct{}{}

		loaded, err := l.loadProvider(name, entry)
		if err == nil {
			if addErr := catalog.Add(*loaded); addErr != nil {
				err = &ProviderLoadError{Provider: name, Err: addErr}
			}
		}
		if err != nil {
			if l.strict {
				l.logger.Error("module failed to load", slog.String("module", name), slog.Any("error", err))
				failures[name] = err
				l.finish(StateFailed, nil, failures)
				return nil, err
			}
			l.logger.Warn("module failed to load, continuing without it", slog.String("module", name), slog.Any("error", err))
			failures[name] = err
			continue
		}
		l.logger.Info("module loaded",
			slog.String("module", name),
			slog.Int("tools", len(loaded.Tools)),
			slog.Int("handlers", len(loaded.Handlers)),
		)
	}

	if err := catalog.ValidateAll(); err != nil {
		l.logger.Error("tool catalog validation failed", slog.Any("error", err))
		l.finish(StateFailed, nil, failures)
		return nil, err
	}

	l.logger.Info("tool catalog ready",
		slog.Int("tools", catalog.ToolCount()),
		slog.Int("modules", catalog.ProviderCount()),
		slog.Int("failed", len(failures)),
	)
	l.finish(StateLoaded, catalog, failures)
	return catalog, nil
}

func (l *Loader) loadProvider(name string, entry ModuleEntry) (loaded *LoadedProvider, err error) {
	defer func() {
		if r := recover(); r != nil {
			loaded = nil
			err = &ProviderLoadError{Provider: name, Err: fmt.Errorf("%w: panic: %v", ErrProviderInvalid, r)}
		}
	}()

	factory, ok := l.factories[name]
	if !ok || factory == nil {
		return nil, &ProviderLoadError{Provider: name, Err: ErrProviderNotFound}
	}
	provider, err := factory()
	if err != nil {
		return nil, &ProviderLoadError{Provider: name, Err: err}
	}
	if provider == nil {
		return nil, &ProviderLoadError{Provider: name, Err: ErrProviderInvalid}
	}
	tools := provider.ListDefinitions()
	handlers := provider.ListHandlers()

	logContract(l.logger, name, CheckContract(tools, handlers))

	return &LoadedProvider{
		Name:        name,
		Description: entry.Description,
		Provider:    provider,
		Tools:       tools,
		Handlers:    handlers,
	}, nil
}

func (l *Loader) finish(state LoaderState, catalog *Catalog, failures map[string]error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = state
	l.catalog = catalog
	l.failures = failures
}

// State returns the loader lifecycle state.
func (l *Loader) State() LoaderState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Catalog returns the loaded catalog, or nil before a successful Load.
func (l *Loader) Catalog() *Catalog {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.catalog
}

// ConfigPath returns the module document location.
func (l *Loader) ConfigPath() string { return l.configPath }

// Config returns a copy of the in-memory module document.
func (l *Loader) Config() ModuleConfig {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.config.Clone()
}

// Failures returns the load error of every module that failed.
func (l *Loader) Failures() map[string]error {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]error, len(l.failures))
	for name, err := range l.failures {
		out[name] = err
	}
	return out
}

// GetStats returns catalog totals and a per-module breakdown covering every
// configured module.
func (l *Loader) GetStats() Stats {
	l.mu.Lock()
	cfg := l.config.Clone()
	catalog := l.catalog
	failures := l.failures
	l.mu.Unlock()

	stats := Stats{Modules: []ModuleStats{}}
	if catalog != nil {
		stats.TotalModules = catalog.ProviderCount()
		stats.TotalTools = catalog.ToolCount()
		stats.TotalHandlers = catalog.HandlerCount()
	}
	seen := map[string]struct{}{}
	names := append(cfg.LoadOrder(), cfg.EnabledModules.Names()...)
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		item := ModuleStats{Name: name, Enabled: cfg.IsEnabled(name)}
		if catalog != nil {
			if info, ok := catalog.GetProviderInfo(name); ok {
				item.Loaded = true
				item.ToolCount = info.ToolCount
				item.HandlerCount = info.HandlerCount
			}
		}
		if err, failed := failures[name]; failed {
			item.Error = err.Error()
		}
		stats.Modules = append(stats.Modules, item)
	}
	return stats
}

// KnownModule reports whether a provider factory is registered for name.
func (l *Loader) KnownModule(name string) bool {
	_, ok := l.factories[strings.TrimSpace(name)]
	return ok
}

// SetProviderEnabled toggles a module in the module document and writes it
// back. The running catalog is not changed; the toggle applies on the next
// start. Names without a registered factory are refused. A known module
// missing from the document is added and appended to an explicit load order.
func (l *Loader) SetProviderEnabled(name string, enabled bool) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if !l.KnownModule(name) {
		l.logger.Warn("refusing to toggle unknown module", slog.String("module", name))
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.config.Clone()
	entry, _ := next.EnabledModules.Get(name)
	entry.Enabled = enabled
	next.EnabledModules.Set(name, entry)
	if len(next.ModuleLoadOrder) > 0 && !slices.Contains(next.ModuleLoadOrder, name) {
		next.ModuleLoadOrder = append(next.ModuleLoadOrder, name)
	}
	if err := SaveModuleConfig(l.configPath, next); err != nil {
		l.logger.Error("persist module config failed",
			slog.String("module", name),
			slog.Bool("enabled", enabled),
			slog.String("path", l.configPath),
			slog.Any("error", err),
		)
		return false
	}
	l.config = next
	l.logger.Info("module toggled",
		slog.String("module", name),
		slog.Bool("enabled", enabled),
		slog.Bool("restart_required", true),
	)
	return true
}
