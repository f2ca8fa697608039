package tools

import (
	"context"

	"github.com/bigdata-coss/agent-mcp/internal/lmstudio"
	"github.com/bigdata-coss/agent-mcp/pkg/mcp"
)

// LMStudioTools returns the LM Studio tools. Failures carry the client's
// "LM Studio API error" text without a further prefix.
func LMStudioTools(client *lmstudio.Client) []Descriptor {
	name := Props{"name": String("Model ID as loaded in LM Studio")}

	return []Descriptor{
		{
			Name:        "mcp_lmstudio_run",
			Description: "Run an LM Studio model on a single prompt and return the generated text",
			InputSchema: Object(Props{
				"name":    String("Model ID"),
				"prompt":  String("Prompt to send to the model"),
				"timeout": NumberDefault("Timeout in milliseconds", 180000),
			}, "name", "prompt"),
			Handler: func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
				var in struct {
					Name    string  `json:"name"`
					Prompt  string  `json:"prompt"`
					Timeout float64 `json:"timeout"`
				}
				if err := Decode(args, &in); err != nil {
					return mcp.ToolResult{}, err
				}
				out, err := client.Run(ctx, in.Name, in.Prompt, Millis(in.Timeout))
				if err != nil {
					return mcp.ToolResult{}, err
				}
				return Text(out)
			},
		},
		{
			Name:        "mcp_lmstudio_show",
			Description: "Show details of an LM Studio model",
			InputSchema: Object(name, "name"),
			Handler: func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
				var in modelName
				if err := Decode(args, &in); err != nil {
					return mcp.ToolResult{}, err
				}
				out, err := client.Show(ctx, in.Name)
				if err != nil {
					return mcp.ToolResult{}, err
				}
				return JSON(out)
			},
		},
		{
			Name:        "mcp_lmstudio_pull",
			Description: "Download a model (not supported by the LM Studio API; reports how to do it instead)",
			InputSchema: Object(name, "name"),
			Handler: func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
				var in modelName
				if err := Decode(args, &in); err != nil {
					return mcp.ToolResult{}, err
				}
				return JSON(client.Pull(ctx, in.Name))
			},
		},
		{
			Name:        "mcp_lmstudio_list",
			Description: "List the models available in LM Studio",
			InputSchema: Object(Props{}),
			Handler: func(ctx context.Context, _ map[string]any) (mcp.ToolResult, error) {
				out, err := client.List(ctx)
				if err != nil {
					return mcp.ToolResult{}, err
				}
				return JSON(out)
			},
		},
		{
			Name:        "mcp_lmstudio_rm",
			Description: "Delete a model (not supported by the LM Studio API; reports how to do it instead)",
			InputSchema: Object(name, "name"),
			Handler: func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
				var in modelName
				if err := Decode(args, &in); err != nil {
					return mcp.ToolResult{}, err
				}
				return JSON(client.Remove(ctx, in.Name))
			},
		},
		{
			Name:        "mcp_lmstudio_chat_completion",
			Description: "Chat with an LM Studio model using OpenAI-compatible messages",
			InputSchema: Object(Props{
				"model":       String("Model ID"),
				"messages":    ChatMessages("Conversation messages"),
				"temperature": Range(NumberDefault("Sampling temperature", 0.7), 0, 2),
				"timeout":     NumberDefault("Timeout in milliseconds", 180000),
			}, "model", "messages"),
			Handler: func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
				var in chatArgs
				if err := Decode(args, &in); err != nil {
					return mcp.ToolResult{}, err
				}
				out, err := client.Chat(ctx, lmstudio.ChatRequest{
					Model:       in.Model,
					Messages:    in.Messages,
					Temperature: in.Temperature,
					Timeout:     Millis(in.Timeout),
				})
				if err != nil {
					return mcp.ToolResult{}, err
				}
				return JSON(out)
			},
		},
		{
			Name:        "mcp_lmstudio_status",
			Description: "Check whether the LM Studio server is reachable",
			InputSchema: Object(Props{}),
			Handler: func(ctx context.Context, _ map[string]any) (mcp.ToolResult, error) {
				return JSON(client.Status(ctx))
			},
		},
	}
}
