package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/scholarhub/scholarhub-mcp/internal/backend"
	"github.com/scholarhub/scholarhub-mcp/internal/config"
	"github.com/scholarhub/scholarhub-mcp/internal/handlers"
	"github.com/scholarhub/scholarhub-mcp/internal/healthcheck"
	backendchecker "github.com/scholarhub/scholarhub-mcp/internal/healthcheck/checkers/backend"
	mcpchecker "github.com/scholarhub/scholarhub-mcp/internal/healthcheck/checkers/mcp"
	"github.com/scholarhub/scholarhub-mcp/internal/logger"
	"github.com/scholarhub/scholarhub-mcp/internal/mcp"
	"github.com/scholarhub/scholarhub-mcp/internal/mcp/providers"
	"github.com/scholarhub/scholarhub-mcp/internal/server"
	"github.com/scholarhub/scholarhub-mcp/internal/version"
)

const stopTimeout = 15 * time.Second

// serveFlags override config file values from the command line.
type serveFlags struct {
	ConfigPath string
	Transport  string
	Addr       string
	Strict     bool
	StrictSet  bool
}

func newServeCmd() *cobra.Command {
	var flags serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the tool modules and serve MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.ConfigPath = configPath
			flags.StrictSet = cmd.Flags().Changed("strict")
			return runServe(cmd.Context(), flags)
		},
	}
	cmd.Flags().StringVarP(&flags.Transport, "transport", "t", "", "transport to serve: stdio or http (default from config)")
	cmd.Flags().StringVar(&flags.Addr, "addr", "", "http listen address (default from config)")
	cmd.Flags().BoolVar(&flags.Strict, "strict", false, "abort startup when any module fails to load")
	return cmd
}

func runServe(ctx context.Context, flags serveFlags) error {
	app := fx.New(
		fx.Supply(flags),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBackendClient,
			provideModuleLoader,
			provideCatalog,
			provideToolGatewayService,
			provideHealthMonitor,
			handlers.NewMCPHandler,
			provideServerHandler(providePingHandler),
			provideServerHandler(provideCatalogHandler),
			provideServer,
		),
		fx.Invoke(
			startHealthMonitor,
			startTransport,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	exitCode := 0
	select {
	case <-ctx.Done():
	case sig := <-app.Wait():
		exitCode = sig.ExitCode
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		return err
	}
	if exitCode != 0 {
		return fmt.Errorf("server exited with code %d", exitCode)
	}
	return nil
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig(flags serveFlags) (config.Config, error) {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if t := strings.TrimSpace(flags.Transport); t != "" {
		cfg.Server.Transport = t
	}
	if addr := strings.TrimSpace(flags.Addr); addr != "" {
		cfg.Server.Addr = addr
	}
	if flags.StrictSet {
		cfg.Modules.StrictLoading = flags.Strict
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideBackendClient(log *slog.Logger, cfg config.Config) (*backend.Client, error) {
	return backend.NewClient(log, backend.Config{
		BaseURL:   cfg.Backend.BaseURL,
		APIKey:    cfg.Backend.APIKey,
		Timeout:   cfg.Backend.TimeoutDuration(),
		UserAgent: cfg.Backend.UserAgent,
	})
}

func provideModuleLoader(log *slog.Logger, cfg config.Config, client *backend.Client) *mcp.Loader {
	return newModuleLoader(log, cfg, client)
}

func newModuleLoader(log *slog.Logger, cfg config.Config, client backend.API) *mcp.Loader {
	return mcp.NewLoader(log, mcp.LoaderOptions{
		ConfigPath:    cfg.Modules.ConfigPath,
		StrictLoading: cfg.Modules.StrictLoading,
		Factories: providers.Builtin(providers.Deps{
			Logger: log,
			Client: client,
			APIKey: cfg.Backend.APIKey,
		}),
	})
}

func provideCatalog(loader *mcp.Loader) (*mcp.Catalog, error) {
	catalog, err := loader.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("load tool modules: %w", err)
	}
	return catalog, nil
}

func provideToolGatewayService(log *slog.Logger, catalog *mcp.Catalog) *mcp.ToolGatewayService {
	return mcp.NewToolGatewayService(log, catalog, version.Version)
}

func provideHealthMonitor(log *slog.Logger, cfg config.Config, client *backend.Client, loader *mcp.Loader) *healthcheck.Monitor {
	return healthcheck.NewMonitor(log, cfg.Health.Schedule,
		backendchecker.NewChecker(log, client, client.BaseURL()),
		mcpchecker.NewChecker(log, loader),
	)
}

func providePingHandler(log *slog.Logger, monitor *healthcheck.Monitor, loader *mcp.Loader) *handlers.PingHandler {
	return handlers.NewPingHandler(log, monitor, loader)
}

func provideCatalogHandler(log *slog.Logger, loader *mcp.Loader) *handlers.CatalogHandler {
	return handlers.NewCatalogHandler(log, loader)
}

type serverParams struct {
	fx.In
	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
	MCPHandler     *handlers.MCPHandler
}

func provideServer(params serverParams) *server.Server {
	allHandlers := make([]server.Handler, 0, len(params.ServerHandlers)+1)
	allHandlers = append(allHandlers, params.ServerHandlers...)
	allHandlers = append(allHandlers, params.MCPHandler)
	if strings.TrimSpace(params.Config.Server.JWTSecret) == "" && params.Config.Server.Transport == config.TransportHTTP {
		params.Logger.Warn("server.jwt_secret is empty; module toggles over http are refused")
	}
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.Config.Server.JWTSecret, allHandlers...)
}

func startHealthMonitor(lc fx.Lifecycle, monitor *healthcheck.Monitor) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return monitor.Start(ctx) },
		OnStop:  func(ctx context.Context) error { return monitor.Stop(ctx) },
	})
}

func startTransport(lc fx.Lifecycle, log *slog.Logger, cfg config.Config, srv *server.Server, mcpHandler *handlers.MCPHandler, shutdowner fx.Shutdowner) {
	log.Info("starting scholarhub-mcp",
		slog.String("version", version.GetInfo()),
		slog.String("transport", cfg.Server.Transport),
	)

	if cfg.Server.Transport == config.TransportStdio {
		runCtx, cancel := context.WithCancel(context.Background())
		lc.Append(fx.Hook{
			OnStart: func(_ context.Context) error {
				go func() {
					err := mcpHandler.RunStdio(runCtx)
					if err != nil && !errors.Is(err, context.Canceled) {
						log.Error("stdio transport failed", slog.Any("error", err))
						_ = shutdowner.Shutdown(fx.ExitCode(1))
						return
					}
					log.Info("stdio client disconnected")
					_ = shutdowner.Shutdown()
				}()
				return nil
			},
			OnStop: func(_ context.Context) error {
				cancel()
				return nil
			},
		})
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
