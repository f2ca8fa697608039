package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bigdata-coss/agent-mcp/cmd/mcp-server/auth"
	"github.com/bigdata-coss/agent-mcp/internal/app"
	"github.com/bigdata-coss/agent-mcp/pkg/mcp"
)

const shutdownTimeout = 10 * time.Second

var (
	configPath string
	port       int
)

var rootCmd = &cobra.Command{
	Use:          "mcp-server",
	Short:        "Serve the MCP tool catalog over HTTP (REST, JSON-RPC and SSE)",
	Version:      mcp.ServerVersion,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file (defaults to $MCP_CONFIG_FILE)")
	rootCmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides config and $PORT)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	// Graceful shutdown context.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.Start(ctx, "mcp-server", configPath)
	if err != nil {
		return err
	}
	defer rt.Close()
	log := rt.Log

	if port == 0 {
		port = rt.Config.Server.Port
	}

	opts := mcp.HTTPOptions{
		Metrics: promhttp.HandlerFor(rt.Metrics, promhttp.HandlerOpts{}),
	}
	if mw := auth.NewAuthMiddleware(rt.Config.Server.ServiceToken, rt.Config.Server.JWTSecret, log); mw != nil {
		opts.Auth = mw.Handler
	} else {
		log.Info("warning: MCP_SERVICE_TOKEN and MCP_JWT_SECRET are not set; running without authentication")
	}

	h := mcp.NewHTTPServer(rt.Dispatcher(), log, opts)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(h.CloseStreams)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("MCP HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error(err, "server stopped")
		return err
	}
	log.Info("shutdown complete")
	return nil
}
