package tools

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bigdata-coss/agent-mcp/pkg/mcp"
)

// Text wraps plain text.
func Text(s string) (mcp.ToolResult, error) {
	return mcp.TextResult(s), nil
}

// JSON renders v as two-space indented JSON text. HTML characters are kept
// literal.
func JSON(v any) (mcp.ToolResult, error) {
	s, err := indent(v)
	if err != nil {
		return mcp.ToolResult{}, err
	}
	return mcp.TextResult(s), nil
}

func indent(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// fail prefixes err with the tool-level context.
func fail(prefix string, err error) (mcp.ToolResult, error) {
	return mcp.ToolResult{}, fmt.Errorf("%s: %w", prefix, err)
}
