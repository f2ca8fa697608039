package tools

import (
	"context"

	"github.com/bigdata-coss/agent-mcp/internal/apierr"
	"github.com/bigdata-coss/agent-mcp/internal/sparql"
	"github.com/bigdata-coss/agent-mcp/pkg/mcp"
)

type sparqlTarget struct {
	Repository string `json:"repository"`
	Endpoint   string `json:"endpoint"`
}

func (t sparqlTarget) override() sparql.Override {
	return sparql.Override{Endpoint: t.Endpoint, Repository: t.Repository}
}

// SPARQLTools returns the graph-store tools. def holds the configured
// endpoint and repository; per-call arguments override it.
func SPARQLTools(client *sparql.Client, def sparql.Config) []Descriptor {
	target := Props{
		"repository": String("Repository ID (defaults to the configured repository)"),
		"endpoint":   String("SPARQL endpoint URL (defaults to the configured endpoint)"),
	}
	with := func(extra Props) Props {
		p := Props{}
		for k, v := range extra {
			p[k] = v
		}
		for k, v := range target {
			p[k] = v
		}
		return p
	}

	return []Descriptor{
		{
			Name:        "mcp_sparql_execute_query",
			Description: "Execute a SPARQL query against the triple store",
			InputSchema: Object(with(Props{
				"query":   String("SPARQL query to execute"),
				"format":  Enum("Result format", "json", "xml", "csv", "tsv"),
				"explain": Boolean("Return the query execution plan instead of results"),
			}), "query"),
			Handler: func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
				var in struct {
					sparqlTarget
					Query   string `json:"query"`
					Format  string `json:"format"`
					Explain bool   `json:"explain"`
				}
				if err := Decode(args, &in); err != nil {
					return fail("query execution error", err)
				}
				cfg := sparql.ResolveConfig(def, in.override())
				res, err := client.ExecuteQuery(ctx, cfg, in.Query, sparql.QueryOptions{Format: in.Format, Explain: in.Explain})
				if err != nil {
					return fail("query execution error", err)
				}
				if res.IsJSON() {
					return JSON(res.JSON)
				}
				return Text(res.Text)
			},
		},
		{
			Name:        "mcp_sparql_update",
			Description: "Execute a SPARQL update query to modify data in the triple store",
			InputSchema: Object(with(Props{
				"query": String("SPARQL update query (INSERT, DELETE, ...)"),
			}), "query"),
			Handler: func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
				var in struct {
					sparqlTarget
					Query string `json:"query"`
				}
				if err := Decode(args, &in); err != nil {
					return fail("update query error", err)
				}
				res, err := client.UpdateQuery(ctx, sparql.ResolveConfig(def, in.override()), in.Query)
				if err != nil {
					return fail("update query error", err)
				}
				return JSON(res)
			},
		},
		{
			Name:        "mcp_sparql_list_repositories",
			Description: "List the repositories available on the SPARQL server",
			InputSchema: Object(Props{
				"endpoint": target["endpoint"],
			}),
			Handler: func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
				var in sparqlTarget
				if err := Decode(args, &in); err != nil {
					return fail("repository list error", err)
				}
				repos, err := client.ListRepositories(ctx, sparql.ResolveConfig(def, sparql.Override{Endpoint: in.Endpoint}))
				if apierr.KindOf(err) == apierr.KindRemote {
					// already reads "repository list error (<status>): <body>"
					return mcp.ToolResult{}, err
				}
				if err != nil {
					return fail("repository list error", err)
				}
				return JSON(repos)
			},
		},
		{
			Name:        "mcp_sparql_list_graphs",
			Description: "List the named graphs in a repository",
			InputSchema: Object(with(nil)),
			Handler: func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
				var in sparqlTarget
				if err := Decode(args, &in); err != nil {
					return fail("graph list error", err)
				}
				res, err := client.ListGraphs(ctx, sparql.ResolveConfig(def, in.override()))
				if err != nil {
					return fail("graph list error", err)
				}
				return queryResult(res)
			},
		},
		{
			Name:        "mcp_sparql_get_resource_info",
			Description: "Get every predicate and object attached to a resource URI",
			InputSchema: Object(with(Props{
				"uri": String("URI of the resource to look up"),
			}), "uri"),
			Handler: func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
				var in struct {
					sparqlTarget
					URI string `json:"uri"`
				}
				if err := Decode(args, &in); err != nil {
					return fail("resource info error", err)
				}
				res, err := client.GetResourceInfo(ctx, sparql.ResolveConfig(def, in.override()), in.URI)
				if err != nil {
					return fail("resource info error", err)
				}
				return queryResult(res)
			},
		},
	}
}

func queryResult(res *sparql.QueryResult) (mcp.ToolResult, error) {
	if res.IsJSON() {
		return JSON(res.JSON)
	}
	return JSON(res.Text)
}
