package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bigdata-coss/agent-mcp/internal/app"
	"github.com/bigdata-coss/agent-mcp/internal/worker"
	"github.com/bigdata-coss/agent-mcp/pkg/mcp"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "tool-worker",
	Short:        "Serve the MCP tool catalog from an AMQP request queue",
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

	rt, err := app.Start(ctx, "tool-worker", configPath)
	if err != nil {
		return err
	}
	defer rt.Close()
	log := rt.Log

	conn, ch, err := worker.Dial(rt.Config.Worker.AMQPURL)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer ch.Close()

	w := worker.New(ch, rt.Dispatcher(), rt.Config.Worker, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })
	g.Go(func() error {
		// A dropped broker connection ends the worker.
		select {
		case amqpErr := <-conn.NotifyClose(make(chan *amqp.Error, 1)):
			if amqpErr != nil {
				return amqpErr
			}
			return nil
		case <-gctx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error(err, "worker stopped")
		return err
	}
	log.Info("shutdown complete")
	return nil
}
