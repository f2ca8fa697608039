// Package ollama is a client for the Ollama REST API.
package ollama

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
	DefaultEndpoint = "http://localhost:11434"
	DefaultTimeout  = 180 * time.Second
)

// Config locates the Ollama daemon.
type Config struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Client calls one Ollama daemon.
type Client struct {
	cfg  Config
	http *restclient.Client
	now  func() time.Time
}

func NewClient(cfg Config, hc *restclient.Client) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{cfg: cfg, http: hc, now: time.Now}
}

func (c *Client) apiURL(path string) string {
	return strings.TrimRight(c.cfg.Endpoint, "/") + "/api/" + path
}

func (c *Client) timeout(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return c.cfg.Timeout
}

func (c *Client) do(ctx context.Context, req restclient.Request) (*restclient.Response, error) {
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Ollama API error: %w", err)
	}
	if !resp.OK() {
		return nil, apierr.Remote(resp.Status, resp.Body, "Ollama API error: "+resp.Detail())
	}
	return resp, nil
}

// RunRequest is a single-turn generation.
type RunRequest struct {
	Name    string
	Prompt  string
	Timeout time.Duration
}

// Run generates a completion and returns its text.
func (c *Client) Run(ctx context.Context, r RunRequest) (string, error) {
	resp, err := c.do(ctx, restclient.Request{
		Method:  http.MethodPost,
		URL:     c.apiURL("generate"),
		JSON:    map[string]any{"model": r.Name, "prompt": r.Prompt, "stream": false},
		Timeout: c.timeout(r.Timeout),
	})
	if err != nil {
		return "", err
	}
	var out struct {
		Response string `json:"response"`
	}
	_ = resp.DecodeJSON(&out)
	return out.Response, nil
}

// Show returns model details.
func (c *Client) Show(ctx context.Context, name string) (any, error) {
	resp, err := c.do(ctx, restclient.Request{
		URL: c.apiURL("show?name=" + url.QueryEscape(name)),
	})
	if err != nil {
		return nil, err
	}
	return decodeAny(resp), nil
}

// Pull downloads a model and returns the concatenated progress stream.
func (c *Client) Pull(ctx context.Context, name string) (string, error) {
	resp, err := c.do(ctx, restclient.Request{
		Method: http.MethodPost,
		URL:    c.apiURL("pull"),
		JSON:   map[string]any{"name": name},
	})
	if err != nil {
		return "", err
	}
	return string(resp.Body), nil
}

// List returns the locally installed models.
func (c *Client) List(ctx context.Context) (any, error) {
	resp, err := c.do(ctx, restclient.Request{URL: c.apiURL("tags")})
	if err != nil {
		return nil, err
	}
	return decodeAny(resp), nil
}

// ChatRequest is a multi-turn conversation.
type ChatRequest struct {
	Model       string
	Messages    []models.ChatMessage
	Temperature *float64
	Timeout     time.Duration
}

// ChatCompletion mirrors the OpenAI chat.completion object.
type ChatCompletion struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
}

type ChatChoice struct {
	Index        int                `json:"index"`
	Message      models.ChatMessage `json:"message"`
	FinishReason string             `json:"finish_reason"`
}

// Chat runs a conversation and reshapes the reply as an OpenAI completion.
func (c *Client) Chat(ctx context.Context, r ChatRequest) (*ChatCompletion, error) {
	body := map[string]any{
		"model":    r.Model,
		"messages": r.Messages,
		"stream":   false,
	}
	if r.Temperature != nil {
		body["temperature"] = *r.Temperature
	}
	resp, err := c.do(ctx, restclient.Request{
		Method:  http.MethodPost,
		URL:     c.apiURL("chat"),
		JSON:    body,
		Timeout: c.timeout(r.Timeout),
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		Message models.ChatMessage `json:"message"`
	}
	_ = resp.DecodeJSON(&out)

	now := c.now()
	return &ChatCompletion{
		ID:      fmt.Sprintf("chatcmpl-%d", now.UnixMilli()),
		Object:  "chat.completion",
		Created: now.Unix(),
		Model:   r.Model,
		Choices: []ChatChoice{{
			Index:        0,
			Message:      models.ChatMessage{Role: "assistant", Content: out.Message.Content},
			FinishReason: "stop",
		}},
	}, nil
}

// Remove deletes a local model.
func (c *Client) Remove(ctx context.Context, name string) (any, error) {
	resp, err := c.do(ctx, restclient.Request{
		Method: http.MethodDelete,
		URL:    c.apiURL("delete"),
		JSON:   map[string]any{"name": name},
	})
	if err != nil {
		return nil, err
	}
	if v := decodeAny(resp); v != nil && v != "" {
		return v, nil
	}
	return map[string]any{"status": "success", "name": name}, nil
}

// Status is the result of a liveness probe.
type Status struct {
	Status string `json:"status"`
	Models any    `json:"models,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Status probes the daemon. It never fails: any error yields "offline".
func (c *Client) Status(ctx context.Context) Status {
	tags, err := c.List(ctx)
	if err != nil {
		return Status{Status: "offline", Error: err.Error()}
	}
	return Status{Status: "online", Models: tags}
}

func decodeAny(resp *restclient.Response) any {
	var v any
	if err := resp.DecodeJSON(&v); err != nil {
		return string(resp.Body)
	}
	return v
}
