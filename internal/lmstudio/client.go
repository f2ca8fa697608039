// Package lmstudio talks to the OpenAI-compatible API served by LM Studio.
package lmstudio

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bigdata-coss/agent-mcp/internal/apierr"
	"github.com/bigdata-coss/agent-mcp/internal/models"
	"github.com/bigdata-coss/agent-mcp/internal/restclient"
)

const (
	DefaultEndpoint = "http://localhost:1234/v1"
	DefaultTimeout  = 180 * time.Second

	defaultTemperature = 0.7
	maxTokens          = 2048
)

// Model files are managed in the desktop application, not through the API.
const (
	pullUnsupported   = "LM Studio does not support downloading models via the API; manage models in the LM Studio application"
	removeUnsupported = "LM Studio does not support deleting models via the API; manage models in the LM Studio application"
)

type Config struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

type Client struct {
	cfg  Config
	http *restclient.Client
}

func NewClient(cfg Config, hc *restclient.Client) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{cfg: cfg, http: hc}
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.cfg.Endpoint, "/") + "/" + path
}

func (c *Client) do(ctx context.Context, req restclient.Request) (*restclient.Response, error) {
	if req.Timeout <= 0 {
		req.Timeout = c.cfg.Timeout
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("LM Studio API error: %w", err)
	}
	if !resp.OK() {
		return nil, apierr.Remote(resp.Status, resp.Body, "LM Studio API error: "+resp.Detail())
	}
	return resp, nil
}

// Run sends a plain completion and returns the first choice's text.
func (c *Client) Run(ctx context.Context, name, prompt string, timeout time.Duration) (string, error) {
	resp, err := c.do(ctx, restclient.Request{
		Method: http.MethodPost,
		URL:    c.url("completions"),
		JSON: map[string]any{
			"model":       name,
			"prompt":      prompt,
			"temperature": defaultTemperature,
			"max_tokens":  maxTokens,
		},
		Timeout: timeout,
	})
	if err != nil {
		return "", err
	}
	var out struct {
		Choices []struct {
			Text string `json:"text"`
		} `json:"choices"`
	}
	if err := resp.DecodeJSON(&out); err != nil {
		return "", apierr.Unexpected(fmt.Errorf("LM Studio API error: decoding completion: %w", err))
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return out.Choices[0].Text, nil
}

func (c *Client) Show(ctx context.Context, name string) (any, error) {
	resp, err := c.do(ctx, restclient.Request{URL: c.url("models/" + url.PathEscape(name))})
	if err != nil {
		return nil, err
	}
	return decodeAny(resp), nil
}

func (c *Client) Pull(_ context.Context, _ string) map[string]string {
	return map[string]string{"message": pullUnsupported}
}

func (c *Client) Remove(_ context.Context, _ string) map[string]string {
	return map[string]string{"message": removeUnsupported}
}

func (c *Client) List(ctx context.Context) (any, error) {
	resp, err := c.do(ctx, restclient.Request{URL: c.url("models")})
	if err != nil {
		return nil, err
	}
	return decodeAny(resp), nil
}

type ChatRequest struct {
	Model       string
	Messages    []models.ChatMessage
	Temperature *float64
	Timeout     time.Duration
}

// Chat returns the decoded chat/completions reply unchanged.
func (c *Client) Chat(ctx context.Context, r ChatRequest) (any, error) {
	temp := defaultTemperature
	if r.Temperature != nil {
		temp = *r.Temperature
	}
	resp, err := c.do(ctx, restclient.Request{
		Method: http.MethodPost,
		URL:    c.url("chat/completions"),
		JSON: map[string]any{
			"model":       r.Model,
			"messages":    r.Messages,
			"temperature": temp,
			"max_tokens":  maxTokens,
		},
		Timeout: r.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return decodeAny(resp), nil
}

type Status struct {
	Status string `json:"status"`
	Models any    `json:"models,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Status never fails; an unreachable server is reported as offline.
func (c *Client) Status(ctx context.Context) Status {
	resp, err := c.do(ctx, restclient.Request{URL: c.url("models")})
	if err != nil {
		return Status{Status: "offline", Error: err.Error()}
	}
	var out struct {
		Data []any `json:"data"`
	}
	_ = resp.DecodeJSON(&out)
	if out.Data == nil {
		out.Data = []any{}
	}
	return Status{Status: "online", Models: out.Data}
}

func decodeAny(resp *restclient.Response) any {
	var v any
	if err := resp.DecodeJSON(&v); err != nil {
		return string(resp.Body)
	}
	return v
}
