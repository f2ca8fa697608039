package tools

import (
	"context"

	"github.com/bigdata-coss/agent-mcp/internal/models"
	"github.com/bigdata-coss/agent-mcp/internal/ollama"
	"github.com/bigdata-coss/agent-mcp/pkg/mcp"
)

type modelName struct {
	Name string `json:"name"`
}

type chatArgs struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	Temperature *float64             `json:"temperature"`
	MaxTokens   *int                 `json:"max_tokens"`
	Timeout     float64              `json:"timeout"`
}

// OllamaTools returns the local Ollama runtime tools.
func OllamaTools(client *ollama.Client) []Descriptor {
	name := Props{"name": String("Model name (e.g. llama3, mistral)")}

	return []Descriptor{
		{
			Name:        "mcp_ollama_run",
			Description: "Run an Ollama model on a single prompt and return the generated text",
			InputSchema: Object(Props{
				"name":    String("Model name"),
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
				out, err := client.Run(ctx, ollama.RunRequest{Name: in.Name, Prompt: in.Prompt, Timeout: Millis(in.Timeout)})
				if err != nil {
					return mcp.ToolResult{}, err
				}
				return Text(out)
			},
		},
		{
			Name:        "mcp_ollama_show",
			Description: "Show details of an installed Ollama model",
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
			Name:        "mcp_ollama_pull",
			Description: "Download a model from the Ollama registry",
			InputSchema: Object(name, "name"),
			Handler: func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
				var in modelName
				if err := Decode(args, &in); err != nil {
					return mcp.ToolResult{}, err
				}
				out, err := client.Pull(ctx, in.Name)
				if err != nil {
					return mcp.ToolResult{}, err
				}
				return Text(out)
			},
		},
		{
			Name:        "mcp_ollama_list",
			Description: "List the models installed in Ollama",
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
			Name:        "mcp_ollama_rm",
			Description: "Delete an installed Ollama model",
			InputSchema: Object(name, "name"),
			Handler: func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
				var in modelName
				if err := Decode(args, &in); err != nil {
					return mcp.ToolResult{}, err
				}
				out, err := client.Remove(ctx, in.Name)
				if err != nil {
					return mcp.ToolResult{}, err
				}
				return JSON(out)
			},
		},
		{
			Name:        "mcp_ollama_chat_completion",
			Description: "Chat with an Ollama model using OpenAI-compatible messages; the reply is shaped as an OpenAI chat.completion",
			InputSchema: Object(Props{
				"model":       String("Model name"),
				"messages":    ChatMessages("Conversation messages"),
				"temperature": Range(Number("Sampling temperature"), 0, 2),
				"timeout":     NumberDefault("Timeout in milliseconds", 180000),
			}, "model", "messages"),
			Handler: func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
				var in chatArgs
				if err := Decode(args, &in); err != nil {
					return mcp.ToolResult{}, err
				}
				out, err := client.Chat(ctx, ollama.ChatRequest{
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
			Name:        "mcp_ollama_status",
			Description: "Check whether the Ollama server is reachable",
			InputSchema: Object(Props{}),
			Handler: func(ctx context.Context, _ map[string]any) (mcp.ToolResult, error) {
				return JSON(client.Status(ctx))
			},
		},
	}
}
