// Package gemini is a client for the Google Generative Language REST API:
// text generation, chat, model listing, Imagen and Gemini image generation,
// Veo video generation and multimodal content.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bigdata-coss/agent-mcp/internal/apierr"
	"github.com/bigdata-coss/agent-mcp/internal/media"
	"github.com/bigdata-coss/agent-mcp/internal/poll"
	"github.com/bigdata-coss/agent-mcp/internal/restclient"
)

const (
	DefaultBaseURL      = "https://generativelanguage.googleapis.com/v1"
	DefaultSaveDir      = "./temp"
	DefaultPollInterval = 10 * time.Second
	DefaultPollAttempts = 180
)

// ErrMissingKey is returned before any network call when no API key is set.
var ErrMissingKey = apierr.Precondition("Gemini API key is not set")

const networkError = "network error: cannot connect to Gemini API"

type Config struct {
	APIKey  string      `yaml:"api_key"`
	BaseURL string      `yaml:"base_url"`
	SaveDir string      `yaml:"save_dir"`
	Poll    poll.Policy `yaml:"poll"`
}

type Client struct {
	cfg   Config
	http  *restclient.Client
	store *media.Store
	now   func() time.Time
}

// NewClient fills unset fields with defaults. A zero Poll.MaxAttempts is kept
// as is and means the video operation is polled without bound.
func NewClient(cfg Config, hc *restclient.Client, store *media.Store) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.SaveDir == "" {
		cfg.SaveDir = DefaultSaveDir
	}
	if cfg.Poll.Interval <= 0 {
		cfg.Poll.Interval = DefaultPollInterval
	}
	return &Client{cfg: cfg, http: hc, store: store, now: time.Now}
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) saveDir(dir string) string {
	if dir != "" {
		return dir
	}
	return c.cfg.SaveDir
}

// call sends an API-key authenticated request and maps failures to the
// canned status texts.
func (c *Client) call(ctx context.Context, method, path string, body any) (*restclient.Response, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrMissingKey
	}
	resp, err := c.http.Do(ctx, restclient.Request{
		Method: method,
		URL:    c.url(path),
		Query:  url.Values{"key": {c.cfg.APIKey}},
		JSON:   body,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, apierr.Transport(ctx.Err(), networkError)
		}
		return nil, apierr.Transport(err, networkError)
	}
	if !resp.OK() {
		return nil, remoteError(resp)
	}
	return resp, nil
}

func remoteError(resp *restclient.Response) error {
	return apierr.Remote(resp.Status, resp.Body,
		apierr.StatusText(resp.Status, restclient.ErrorMessage(resp.Body), "Gemini"))
}

// download fetches a generated asset by absolute URI.
func (c *Client) download(ctx context.Context, uri string) ([]byte, error) {
	resp, err := c.http.Do(ctx, restclient.Request{URL: uri})
	if err != nil {
		if ctx.Err() != nil {
			return nil, apierr.Transport(ctx.Err(), networkError)
		}
		return nil, apierr.Transport(err, networkError)
	}
	if !resp.OK() {
		return nil, remoteError(resp)
	}
	return resp.Body, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	resp, err := c.call(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	if err := resp.DecodeJSON(out); err != nil {
		return apierr.Unexpected(fmt.Errorf("decoding %s response: %w", path, err))
	}
	return nil
}

// Sampling holds the optional generation parameters shared by text and chat.
type Sampling struct {
	Temperature *float64
	MaxTokens   *int
	TopK        *int
	TopP        *float64
}

func (s Sampling) generationConfig() map[string]any {
	return map[string]any{
		"temperature":     floatOr(s.Temperature, 0.7),
		"maxOutputTokens": intOr(s.MaxTokens, 1024),
		"topK":            intOr(s.TopK, 40),
		"topP":            floatOr(s.TopP, 0.95),
	}
}

type Usage struct {
	CompletionTokens int `json:"completion_tokens"`
	PromptTokens     int `json:"prompt_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content Content `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

func (r *generateResponse) parts() []Part {
	if len(r.Candidates) == 0 {
		return nil
	}
	return r.Candidates[0].Content.Parts
}

func (r *generateResponse) firstText() string {
	if p := r.parts(); len(p) > 0 {
		return p[0].Text
	}
	return ""
}

func (r *generateResponse) usage() Usage {
	u := r.UsageMetadata
	return Usage{
		CompletionTokens: u.CandidatesTokenCount,
		PromptTokens:     u.PromptTokenCount,
		TotalTokens:      u.PromptTokenCount + u.CandidatesTokenCount,
	}
}

type TextRequest struct {
	Model  string
	Prompt string
	Sampling
}

type TextResult struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}

// GenerateText runs a single-prompt generateContent call.
func (c *Client) GenerateText(ctx context.Context, r TextRequest) (*TextResult, error) {
	var out generateResponse
	err := c.post(ctx, modelPath(r.Model, "generateContent"), map[string]any{
		"contents":         []Content{{Parts: []Part{{Text: r.Prompt}}}},
		"generationConfig": r.generationConfig(),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &TextResult{Text: out.firstText(), Model: r.Model, Usage: out.usage()}, nil
}

// ModelInfo is the reduced view of a catalog entry.
type ModelInfo struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Created     string        `json:"created"`
	Updated     string        `json:"updated"`
	Supports    ModelSupports `json:"supports"`
}

type ModelSupports struct {
	Chat       bool `json:"chat"`
	Completion bool `json:"completion"`
	Embeddings bool `json:"embeddings"`
}

// ListModels returns the catalog entries whose name contains "gemini".
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	resp, err := c.call(ctx, http.MethodGet, "models", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Models []struct {
			Name                       string   `json:"name"`
			DisplayName                string   `json:"displayName"`
			Description                string   `json:"description"`
			CreateTime                 string   `json:"createTime"`
			UpdateTime                 string   `json:"updateTime"`
			SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
		} `json:"models"`
	}
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, apierr.Unexpected(fmt.Errorf("decoding model list: %w", err))
	}

	list := []ModelInfo{}
	for _, m := range out.Models {
		if !strings.Contains(m.Name, "gemini") {
			continue
		}
		name := m.DisplayName
		if name == "" {
			name = m.Name
		}
		generate := contains(m.SupportedGenerationMethods, "generateContent")
		list = append(list, ModelInfo{
			ID:          m.Name[strings.LastIndex(m.Name, "/")+1:],
			Name:        name,
			Description: m.Description,
			Created:     m.CreateTime,
			Updated:     m.UpdateTime,
			Supports: ModelSupports{
				Chat:       generate,
				Completion: generate,
				Embeddings: contains(m.SupportedGenerationMethods, "embedContent"),
			},
		})
	}
	return list, nil
}

func modelPath(model, method string) string {
	return "models/" + model + ":" + method
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func floatOr(v *float64, def float64) float64 {
	if v != nil {
		return *v
	}
	return def
}

func intOr(v *int, def int) int {
	if v != nil {
		return *v
	}
	return def
}
