// Package sparql talks to a GraphDB-style SPARQL endpoint.
package sparql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bigdata-coss/agent-mcp/internal/apierr"
	"github.com/bigdata-coss/agent-mcp/internal/restclient"
)

const (
	DefaultEndpoint   = "http://localhost:7200"
	DefaultRepository = "schemaorg-current-https"
)

const listGraphsQuery = `SELECT DISTINCT ?graph WHERE { GRAPH ?graph { ?s ?p ?o } } ORDER BY ?graph`

// Config locates the store.
type Config struct {
	Endpoint          string `yaml:"endpoint"`
	DefaultRepository string `yaml:"default_repository"`
}

// Override carries per-call endpoint and repository arguments.
type Override struct {
	Endpoint   string
	Repository string
}

// ResolveConfig applies non-empty override fields on top of def.
func ResolveConfig(def Config, o Override) Config {
	out := def
	if o.Endpoint != "" {
		out.Endpoint = o.Endpoint
	}
	if o.Repository != "" {
		out.DefaultRepository = o.Repository
	}
	return out
}

// QueryOptions control the result format of a read query.
type QueryOptions struct {
	// Format is one of json, xml, csv, tsv. Empty means json.
	Format  string
	Explain bool
}

// QueryResult holds either a parsed JSON document or raw text.
type QueryResult struct {
	JSON any
	Text string
}

// IsJSON reports whether the result was parsed.
func (r *QueryResult) IsJSON() bool { return r.JSON != nil }

// UpdateResult is returned by a successful update.
type UpdateResult struct {
	Success bool `json:"success"`
	Status  int  `json:"status"`
}

// Client is stateless; every call receives its effective Config.
type Client struct {
	http *restclient.Client
}

func NewClient(hc *restclient.Client) *Client {
	return &Client{http: hc}
}

func repositoryURL(cfg Config, suffix string) string {
	base := strings.TrimRight(cfg.Endpoint, "/") + "/repositories/" + url.PathEscape(cfg.DefaultRepository)
	return base + suffix
}

// ExecuteQuery runs a read query.
func (c *Client) ExecuteQuery(ctx context.Context, cfg Config, query string, opts QueryOptions) (*QueryResult, error) {
	format := opts.Format
	if format == "" {
		format = "json"
	}
	suffix := ""
	if opts.Explain {
		suffix = "/explain"
	}

	resp, err := c.http.Do(ctx, restclient.Request{
		Method: http.MethodPost,
		URL:    repositoryURL(cfg, suffix),
		Header: map[string]string{
			"Content-Type": "application/sparql-query",
			"Accept":       "application/sparql-results+" + format,
		},
		Body: strings.NewReader(query),
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, apierr.Remote(resp.Status, resp.Body,
			fmt.Sprintf("SPARQL query error (%d): %s", resp.Status, resp.Body))
	}

	if format == "json" {
		dec := json.NewDecoder(bytes.NewReader(resp.Body))
		dec.UseNumber()
		var doc any
		if err := dec.Decode(&doc); err == nil && doc != nil {
			return &QueryResult{JSON: doc}, nil
		}
	}
	return &QueryResult{Text: string(resp.Body)}, nil
}

// UpdateQuery runs a SPARQL 1.1 update against the repository statements endpoint.
func (c *Client) UpdateQuery(ctx context.Context, cfg Config, update string) (*UpdateResult, error) {
	resp, err := c.http.Do(ctx, restclient.Request{
		Method: http.MethodPost,
		URL:    repositoryURL(cfg, "/statements"),
		Header: map[string]string{
			"Content-Type": "application/sparql-update",
			"Accept":       "application/json",
		},
		Body: strings.NewReader(update),
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, apierr.Remote(resp.Status, resp.Body,
			fmt.Sprintf("SPARQL update error (%d): %s", resp.Status, resp.Body))
	}
	return &UpdateResult{Success: true, Status: resp.Status}, nil
}

// ListRepositories returns the server's repository catalog.
func (c *Client) ListRepositories(ctx context.Context, cfg Config) (any, error) {
	resp, err := c.http.Do(ctx, restclient.Request{
		URL:    strings.TrimRight(cfg.Endpoint, "/") + "/rest/repositories",
		Header: map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, apierr.Remote(resp.Status, resp.Body,
			fmt.Sprintf("repository list error (%d): %s", resp.Status, resp.Body))
	}
	var repos any
	if err := resp.DecodeJSON(&repos); err != nil {
		return string(resp.Body), nil
	}
	if repos == nil {
		repos = []any{}
	}
	return repos, nil
}

// ListGraphs lists the named graphs of the repository.
func (c *Client) ListGraphs(ctx context.Context, cfg Config) (*QueryResult, error) {
	return c.ExecuteQuery(ctx, cfg, listGraphsQuery, QueryOptions{})
}

// GetResourceInfo returns every predicate/object pair of uri.
func (c *Client) GetResourceInfo(ctx context.Context, cfg Config, uri string) (*QueryResult, error) {
	return c.ExecuteQuery(ctx, cfg, resourceQuery(uri), QueryOptions{})
}

func resourceQuery(uri string) string {
	return fmt.Sprintf("SELECT ?p ?o WHERE { <%s> ?p ?o . }", uri)
}
