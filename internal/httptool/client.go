// Package httptool performs arbitrary outbound HTTP requests on behalf of the
// mcp_http_request tool.
package httptool

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bigdata-coss/agent-mcp/internal/apierr"
	"github.com/bigdata-coss/agent-mcp/internal/restclient"
)

const DefaultTimeout = 30 * time.Second

type Config struct {
	Timeout time.Duration `yaml:"timeout"`
}

// Request is one caller-described HTTP call.
type Request struct {
	URL     string
	Method  string
	Headers map[string]string
	Data    any
	Params  map[string]string
	Timeout time.Duration
}

type Client struct {
	cfg  Config
	http *restclient.Client
}

func NewClient(cfg Config, hc *restclient.Client) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{cfg: cfg, http: hc}
}

// Do sends the request and returns the body as text. JSON object and array
// bodies are re-indented; anything else is returned verbatim.
func (c *Client) Do(ctx context.Context, r Request) (string, error) {
	method := strings.ToUpper(r.Method)
	if method == "" {
		method = http.MethodGet
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}

	req := restclient.Request{
		Method:  method,
		URL:     r.URL,
		Header:  r.Headers,
		Timeout: timeout,
	}
	if len(r.Params) > 0 {
		req.Query = url.Values{}
		for k, v := range r.Params {
			req.Query.Set(k, v)
		}
	}
	switch d := r.Data.(type) {
	case nil:
	case string:
		if d != "" {
			req.Body = strings.NewReader(d)
		}
	default:
		req.JSON = d
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	if !resp.OK() {
		detail := restclient.RenderBody(resp.Body)
		if detail == "" {
			detail = http.StatusText(resp.Status)
		}
		return "", apierr.Remote(resp.Status, resp.Body,
			fmt.Sprintf("HTTP request error (%d): %s", resp.Status, detail))
	}
	return restclient.RenderBody(resp.Body), nil
}
