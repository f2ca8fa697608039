package mcp

import "context"

// Server identity reported by every transport.
const (
	ServerName      = "ontology-ollama-mcp"
	ServerVersion   = "1.0.0"
	ProtocolVersion = "2024-11-05"
)

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ToolCall represents a tool invocation request
type ToolCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
	Meta      map[string]interface{} `json:"_meta,omitempty"`
}

// ToolResult represents the result of a tool call. Failures are reported as
// text in Content; there is no separate error channel.
type ToolResult struct {
	Content []ContentBlock         `json:"content"`
	Meta    map[string]interface{} `json:"_meta,omitempty"`
}

// ContentBlock represents a content block in a tool result
type ContentBlock struct {
	Type string `json:"type"` // always "text"
	Text string `json:"text"`
}

// TextResult wraps text in a single content block.
func TextResult(text string) ToolResult {
	return ToolResult{Content: []ContentBlock{{Type: "text", Text: text}}}
}

// Text returns the concatenated text of all content blocks.
func (r ToolResult) Text() string {
	if len(r.Content) == 1 {
		return r.Content[0].Text
	}
	var s string
	for _, c := range r.Content {
		s += c.Text
	}
	return s
}

// Dispatcher is what every transport serves.
type Dispatcher interface {
	ListTools() []Tool
	CallTool(ctx context.Context, call ToolCall) ToolResult
}
