package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bigdata-coss/agent-mcp/internal/app"
	"github.com/bigdata-coss/agent-mcp/pkg/mcp"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "mcp-stdio",
	Short:        "Serve the MCP tool catalog over stdin/stdout",
	Version:      mcp.ServerVersion,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file (defaults to $MCP_CONFIG_FILE)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.Start(ctx, "mcp-stdio", configPath)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.Log.Info("MCP stdio server running")
	if err := mcp.ServeStdio(ctx, rt.Dispatcher(), rt.Log); err != nil && ctx.Err() == nil {
		rt.Log.Error(err, "stdio server stopped")
		return err
	}
	return nil
}
