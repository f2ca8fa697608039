package app

import (
	"context"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/bigdata-coss/agent-mcp/internal/config"
	"github.com/bigdata-coss/agent-mcp/internal/logging"
)

const defaultEnvPath = ".env"

// Runtime is what every binary holds after startup.
type Runtime struct {
	*Container
	Config  config.Config
	Log     logr.Logger
	Metrics *prometheus.Registry

	sync func()
}

// Start loads .env and secrets, reads configuration from configPath, builds
// the logger named name and wires the container.
func Start(ctx context.Context, name, configPath string) (*Runtime, error) {
	level := os.Getenv("LOG_LEVEL")
	log, sync, err := logging.New(name, level)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	config.LoadEnv(ctx, log, defaultEnvPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		sync()
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.LogLevel != level {
		sync()
		if log, sync, err = logging.New(name, cfg.LogLevel); err != nil {
			return nil, fmt.Errorf("building logger: %w", err)
		}
	}
	cfg.LogSummary(log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c, err := New(ctx, cfg, log, reg)
	if err != nil {
		sync()
		return nil, fmt.Errorf("wiring services: %w", err)
	}
	log.Info("tool catalog ready", "tools", c.Registry().Len())

	return &Runtime{Container: c, Config: cfg, Log: log, Metrics: reg, sync: sync}, nil
}

// Close flushes the logger.
func (r *Runtime) Close() {
	r.sync()
}
