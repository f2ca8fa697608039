package tools

import (
	"context"
	"fmt"

	"github.com/bigdata-coss/agent-mcp/internal/httptool"
	"github.com/bigdata-coss/agent-mcp/pkg/mcp"
)

// HTTPTools returns the generic outbound request tool.
func HTTPTools(client *httptool.Client) []Descriptor {
	return []Descriptor{{
		Name:        "mcp_http_request",
		Description: "Send an HTTP request and return the response body. Supports GET, POST, PUT, DELETE and PATCH with custom headers, query parameters and a body",
		InputSchema: Object(Props{
			"url":     String("Request URL"),
			"method":  Enum("HTTP method (default GET)", "GET", "POST", "PUT", "DELETE", "PATCH"),
			"headers": ObjectProp(`Request headers (e.g. {"Authorization": "Bearer token"})`),
			"data":    ObjectProp("Request body"),
			"params":  ObjectProp("Query string parameters"),
			"timeout": NumberDefault("Timeout in milliseconds", 30000),
		}, "url"),
		Handler: func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
			var in struct {
				URL     string         `json:"url"`
				Method  string         `json:"method"`
				Headers map[string]any `json:"headers"`
				Data    any            `json:"data"`
				Params  map[string]any `json:"params"`
				Timeout float64        `json:"timeout"`
			}
			if err := Decode(args, &in); err != nil {
				return fail("HTTP request error", err)
			}
			out, err := client.Do(ctx, httptool.Request{
				URL:     in.URL,
				Method:  in.Method,
				Headers: stringMap(in.Headers),
				Data:    in.Data,
				Params:  stringMap(in.Params),
				Timeout: Millis(in.Timeout),
			})
			if err != nil {
				return fail("HTTP request error", err)
			}
			return Text(out)
		},
	}}
}

// stringMap flattens header and query values. Nulls are dropped and other
// scalars go through fmt.Sprint.
func stringMap(m map[string]any) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch v := v.(type) {
		case nil:
		case string:
			out[k] = v
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}
