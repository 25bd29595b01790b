package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scholarhub/scholarhub-mcp/internal/config"
	"github.com/scholarhub/scholarhub-mcp/internal/version"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "scholarhub-mcp",
		Short: "MCP server exposing the ScholarHub research platform as tools",
		Long: `scholarhub-mcp serves ScholarHub paper, review, citation, user, marketplace
and credit operations as MCP tools over stdio or streamable HTTP.

Tool modules are enabled and ordered by the module document (modules.json).`,
		Version:       version.GetInfo(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to config.toml")

	root.AddCommand(
		newServeCmd(),
		newToolsCmd(),
		newStatsCmd(),
		newModulesCmd(),
		newTokenCmd(),
		newVersionCmd(),
	)
	return root
}

func defaultConfigPath() string {
	if path := os.Getenv(config.EnvConfigPath); path != "" {
		return path
	}
	return config.DefaultConfigPath
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "scholarhub-mcp %s\n", version.GetInfo())
		},
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
