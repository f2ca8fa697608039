package mcp

import (
	"context"
	"encoding/json"

	"github.com/go-logr/logr"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewStdioServer builds a go-sdk server that advertises every tool of d and
// routes each tools/call through d, including calls to names it does not know.
func NewStdioServer(d Dispatcher, log logr.Logger) *sdk.Server {
	server := sdk.NewServer(&sdk.Implementation{Name: ServerName, Version: ServerVersion}, nil)

	for _, t := range d.ListTools() {
		server.AddTool(&sdk.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		}, func(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
			return callTool(ctx, d, req.Params), nil
		})
	}

	server.AddReceivingMiddleware(func(next sdk.MethodHandler) sdk.MethodHandler {
		return func(ctx context.Context, method string, req sdk.Request) (sdk.Result, error) {
			if method != "tools/call" {
				return next(ctx, method, req)
			}
			call, ok := req.(*sdk.CallToolRequest)
			if !ok || call.Params == nil {
				return next(ctx, method, req)
			}
			log.V(1).Info("tools/call", "tool", call.Params.Name)
			return callTool(ctx, d, call.Params), nil
		}
	})
	return server
}

// ServeStdio runs the server over stdin/stdout until the client disconnects or
// ctx is cancelled.
func ServeStdio(ctx context.Context, d Dispatcher, log logr.Logger) error {
	return NewStdioServer(d, log).Run(ctx, &sdk.StdioTransport{})
}

func callTool(ctx context.Context, d Dispatcher, p *sdk.CallToolParamsRaw) *sdk.CallToolResult {
	call := ToolCall{Name: p.Name}
	if len(p.Arguments) > 0 {
		// Arguments that are not an object are treated as absent.
		_ = json.Unmarshal(p.Arguments, &call.Arguments)
	}
	if len(p.Meta) > 0 {
		call.Meta = p.Meta
	}
	return toSDKResult(d.CallTool(ctx, call))
}

func toSDKResult(res ToolResult) *sdk.CallToolResult {
	out := &sdk.CallToolResult{Content: make([]sdk.Content, 0, len(res.Content))}
	for _, c := range res.Content {
		out.Content = append(out.Content, &sdk.TextContent{Text: c.Text})
	}
	if res.Meta != nil {
		out.Meta = sdk.Meta(res.Meta)
	}
	return out
}
