package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/scholarhub/scholarhub-mcp/internal/backend"
	"github.com/scholarhub/scholarhub-mcp/internal/config"
	"github.com/scholarhub/scholarhub-mcp/internal/logger"
	"github.com/scholarhub/scholarhub-mcp/internal/mcp"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#CC0000")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

// offlineLoader builds a loader from the config file without serving. Logs
// go to stderr so command output stays parseable.
func offlineLoader(cmd *cobra.Command) (config.Config, *mcp.Loader, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	level := cfg.Log.Level
	if level == "info" || level == "debug" {
		level = "warn"
	}
	log := logger.New(cmd.ErrOrStderr(), level, cfg.Log.Format)
	client, err := backend.NewClient(log, backend.Config{
		BaseURL:   cfg.Backend.BaseURL,
		APIKey:    cfg.Backend.APIKey,
		Timeout:   cfg.Backend.TimeoutDuration(),
		UserAgent: cfg.Backend.UserAgent,
	})
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, newModuleLoader(log, cfg, client), nil
}

func loadCatalog(cmd *cobra.Command) (*mcp.Loader, *mcp.Catalog, error) {
	_, loader, err := offlineLoader(cmd)
	if err != nil {
		return nil, nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	catalog, err := loader.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load tool modules: %w", err)
	}
	return loader, catalog, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newToolsCmd() *cobra.Command {
	var (
		module  string
		asJSON  bool
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools the enabled modules register",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, catalog, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			tools := catalog.ListTools()
			if module = strings.TrimSpace(module); module != "" {
				if _, ok := catalog.GetProviderInfo(module); !ok {
					return fmt.Errorf("module %q is not loaded", module)
				}
				filtered := tools[:0:0]
				for _, tool := range tools {
					if owner, _ := catalog.Owner(tool.Name); owner == module {
						filtered = append(filtered, tool)
					}
				}
				tools = filtered
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, tools)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, headerStyle.Render("TOOL")+"\t"+headerStyle.Render("MODULE")+"\t"+headerStyle.Render("DESCRIPTION"))
			for _, tool := range tools {
				owner, _ := catalog.Owner(tool.Name)
				desc := tool.Description
				if !verbose {
					desc = firstLine(desc)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", tool.Name, dimStyle.Render(owner), desc)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d tools\n", len(tools))
			return nil
		},
	}
	cmd.Flags().StringVarP(&module, "module", "m", "", "only list tools of this module")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print tool descriptors as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print full descriptions")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Load the modules and print catalog statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, loader, err := offlineLoader(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			// A strict-mode failure still leaves per-module stats worth printing.
			_, loadErr := loader.Load(ctx)
			stats := loader.GetStats()

			out := cmd.OutOrStdout()
			if asJSON {
				if err := writeJSON(out, stats); err != nil {
					return err
				}
				return loadErr
			}
			fmt.Fprintf(out, "%s %d modules, %d tools, %d handlers\n\n",
				headerStyle.Render("catalog:"), stats.TotalModules, stats.TotalTools, stats.TotalHandlers)
			printModuleStats(out, stats.Modules)
			return loadErr
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print stats as JSON")
	return cmd
}

func printModuleStats(out io.Writer, modules []mcp.ModuleStats) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, headerStyle.Render("MODULE")+"\t"+headerStyle.Render("STATUS")+"\t"+headerStyle.Render("TOOLS")+"\t"+headerStyle.Render("ERROR"))
	for _, m := range modules {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", m.Name, moduleStatus(m), m.ToolCount, m.Error)
	}
	_ = tw.Flush()
}

func moduleStatus(m mcp.ModuleStats) string {
	switch {
	case m.Error != "":
		return errStyle.Render("failed")
	case m.Loaded:
		return okStyle.Render("loaded")
	case m.Enabled:
		return "enabled"
	default:
		return dimStyle.Render("disabled")
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

func newModulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "Inspect and toggle tool modules in the module document",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List configured modules in load order",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, loader, err := offlineLoader(cmd)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s %s\n\n", headerStyle.Render("module document:"), loader.ConfigPath())
				printModuleStats(out, loader.GetStats().Modules)
				return nil
			},
		},
		newToggleCmd("enable", true),
		newToggleCmd("disable", false),
	)
	return cmd
}

func newToggleCmd(use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <module>...",
		Short: strings.ToUpper(use[:1]) + use[1:] + " modules; applies on next start",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, loader, err := offlineLoader(cmd)
			if err != nil {
				return err
			}
			for _, name := range args {
				if !loader.KnownModule(name) {
					return fmt.Errorf("unknown module %q", name)
				}
			}
			for _, name := range args {
				if !loader.SetProviderEnabled(name, enabled) {
					return fmt.Errorf("could not update module %q in %s", name, loader.ConfigPath())
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", name, moduleStatus(mcp.ModuleStats{Enabled: enabled}))
			}
			return nil
		},
	}
}
