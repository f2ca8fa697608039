// Package restclient performs the single request/response round trips every
// backend client is built on.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bigdata-coss/agent-mcp/internal/apierr"
)

// Shared transport with connection pooling
var sharedTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
}

// Client wraps an http.Client.
type Client struct {
	httpClient *http.Client
}

// New returns a client with the given default timeout. A zero timeout means
// no client-level timeout; callers then rely on the request context.
func New(timeout time.Duration) *Client {
	return &Client{httpClient: &http.Client{Timeout: timeout, Transport: sharedTransport}}
}

// NewWithHTTPClient wraps an existing http.Client.
func NewWithHTTPClient(hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{httpClient: hc}
}

// Request describes one outbound call.
type Request struct {
	Method string
	URL    string
	Query  url.Values
	Header map[string]string
	// Body is sent as-is. When nil and JSON is set, JSON is marshalled and
	// Content-Type defaults to application/json.
	Body io.Reader
	JSON any
	// Timeout bounds this call only.
	Timeout time.Duration
}

// Response is a fully buffered reply.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// DecodeJSON unmarshals the body into v. An empty body leaves v untouched.
func (r *Response) DecodeJSON(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// Do sends the request and buffers the reply. The returned error is always an
// *apierr.Error: KindTransport when no response arrived, KindUnexpected when
// the request could not be built. Non-2xx statuses are not errors here.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := req.URL
	if len(req.Query) > 0 {
		u, err := url.Parse(req.URL)
		if err != nil {
			return nil, apierr.Unexpected(fmt.Errorf("invalid url %q: %w", req.URL, err))
		}
		q := u.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
		target = u.String()
	}

	body := req.Body
	jsonBody := false
	if body == nil && req.JSON != nil {
		payload, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, apierr.Unexpected(fmt.Errorf("encoding request body: %w", err))
		}
		body = bytes.NewReader(payload)
		jsonBody = true
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, apierr.Unexpected(fmt.Errorf("building request: %w", err))
	}
	if jsonBody {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apierr.Transport(redactURL(err), "")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.Transport(err, "")
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// ErrorMessage extracts a provider error message from a JSON body shaped
// either {"error": "..."} or {"error": {"message": "..."}}.
func ErrorMessage(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(envelope.Error, &s); err == nil {
		return s
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &nested); err == nil {
		return nested.Message
	}
	return ""
}

// Detail returns the provider error message of a failed response, or a
// generic status line when the body carries none.
func (r *Response) Detail() string {
	if msg := ErrorMessage(r.Body); msg != "" {
		return msg
	}
	return fmt.Sprintf("request failed with status code %d", r.Status)
}

// RenderBody formats a body for inclusion in an error message: JSON objects
// and arrays are indented, anything else is returned verbatim.
func RenderBody(body []byte) string {
	var v any
	if err := json.Unmarshal(body, &v); err == nil {
		switch v.(type) {
		case map[string]any, []any:
			if out, err := json.MarshalIndent(v, "", "  "); err == nil {
				return string(out)
			}
		}
	}
	return string(body)
}

// Query parameters whose values never appear in error text.
var secretParams = []string{"key", "api_key", "apikey", "access_token", "token"}

// redactURL masks credential query parameters in the URL of a *url.Error.
func redactURL(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	u, perr := url.Parse(ue.URL)
	if perr != nil {
		return &url.Error{Op: ue.Op, URL: "<unparsable url>", Err: ue.Err}
	}
	q := u.Query()
	for _, k := range secretParams {
		if q.Has(k) {
			q.Set(k, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()
	u.User = nil
	return &url.Error{Op: ue.Op, URL: u.String(), Err: ue.Err}
}
