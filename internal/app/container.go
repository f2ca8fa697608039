// Package app wires configuration, backend clients, the tool registry and the
// dispatcher using go.uber.org/dig.
package app

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"github.com/bigdata-coss/agent-mcp/internal/config"
	"github.com/bigdata-coss/agent-mcp/internal/dispatch"
	"github.com/bigdata-coss/agent-mcp/internal/gemini"
	"github.com/bigdata-coss/agent-mcp/internal/httptool"
	"github.com/bigdata-coss/agent-mcp/internal/lmstudio"
	"github.com/bigdata-coss/agent-mcp/internal/media"
	"github.com/bigdata-coss/agent-mcp/internal/metrics"
	"github.com/bigdata-coss/agent-mcp/internal/ollama"
	"github.com/bigdata-coss/agent-mcp/internal/openai"
	"github.com/bigdata-coss/agent-mcp/internal/restclient"
	"github.com/bigdata-coss/agent-mcp/internal/sparql"
	"github.com/bigdata-coss/agent-mcp/internal/tools"
)

// Container holds the resolved singletons.
type Container struct {
	registry   *tools.Registry
	dispatcher *dispatch.Dispatcher
}

func (c *Container) Registry() *tools.Registry        { return c.registry }
func (c *Container) Dispatcher() *dispatch.Dispatcher { return c.dispatcher }

// New builds every service from cfg. Metrics register against reg.
func New(ctx context.Context, cfg config.Config, log logr.Logger, reg prometheus.Registerer) (*Container, error) {
	d := dig.New()

	providers := []any{
		func() config.Config { return cfg },
		func() logr.Logger { return log },
		func() prometheus.Registerer { return reg },
		func() context.Context { return ctx },
		newHTTPClient,
		newMediaStore,
		newSPARQLClient,
		newOllamaClient,
		newLMStudioClient,
		newHTTPToolClient,
		newOpenAIClient,
		newGeminiClient,
		newRegistry,
		metrics.NewToolMetrics,
		dispatch.New,
	}
	for _, p := range providers {
		if err := d.Provide(p); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(r *tools.Registry, disp *dispatch.Dispatcher) {
		result = &Container{registry: r, dispatcher: disp}
	})
	return result, err
}

// The client timeout stays unset; every call carries its own deadline.
func newHTTPClient() *restclient.Client {
	return restclient.New(0)
}

func newMediaStore(ctx context.Context, cfg config.Config, log logr.Logger) (*media.Store, error) {
	if !cfg.Media.Enabled() {
		return media.NewStore(nil, log), nil
	}
	mirror, err := media.NewS3Mirror(ctx, cfg.Media)
	if err != nil {
		return nil, err
	}
	log.Info("mirroring generated media to S3", "bucket", cfg.Media.Bucket, "prefix", cfg.Media.Prefix)
	return media.NewStore(mirror, log), nil
}

func newSPARQLClient(hc *restclient.Client) *sparql.Client {
	return sparql.NewClient(hc)
}

func newOllamaClient(cfg config.Config, hc *restclient.Client) *ollama.Client {
	return ollama.NewClient(cfg.Ollama, hc)
}

func newLMStudioClient(cfg config.Config, hc *restclient.Client) *lmstudio.Client {
	return lmstudio.NewClient(cfg.LMStudio, hc)
}

func newHTTPToolClient(cfg config.Config, hc *restclient.Client) *httptool.Client {
	return httptool.NewClient(cfg.HTTPTool, hc)
}

func newOpenAIClient(cfg config.Config, hc *restclient.Client, store *media.Store) *openai.Client {
	return openai.NewClient(cfg.OpenAI, hc, store)
}

func newGeminiClient(cfg config.Config, hc *restclient.Client, store *media.Store) *gemini.Client {
	return gemini.NewClient(cfg.Gemini, hc, store)
}

func newRegistry(
	cfg config.Config,
	sc *sparql.Client,
	oc *ollama.Client,
	lc *lmstudio.Client,
	hc *httptool.Client,
	ac *openai.Client,
	gc *gemini.Client,
) (*tools.Registry, error) {
	return tools.Catalog(tools.Backends{
		SPARQL:        sc,
		SPARQLDefault: cfg.Sparql,
		Ollama:        oc,
		LMStudio:      lc,
		HTTP:          hc,
		OpenAI:        ac,
		Gemini:        gc,
	})
}
