package gemini

import (
	"context"

	"github.com/bigdata-coss/agent-mcp/internal/models"
)

// Content is one turn of a generateContent request or response.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// ToContents converts OpenAI-style messages. Consecutive messages with the same
// role share one content block. A system message becomes its own user block
// with a "[system] " prefix, emitted at once and without closing the pending
// block, so the pending run continues across it.
func ToContents(messages []models.ChatMessage) []Content {
	var (
		out     []Content
		role    string
		pending []Part
	)
	flush := func() {
		out = append(out, Content{Role: geminiRole(role), Parts: pending})
		pending = nil
	}
	for _, m := range messages {
		if m.Role == "system" {
			out = append(out, Content{Role: "user", Parts: []Part{{Text: "[system] " + m.Content}}})
			continue
		}
		if m.Role != role && len(pending) > 0 {
			flush()
		}
		role = m.Role
		pending = append(pending, Part{Text: m.Content})
	}
	if len(pending) > 0 {
		flush()
	}
	return out
}

func geminiRole(role string) string {
	if role == "assistant" {
		return "model"
	}
	return "user"
}

type ChatRequest struct {
	Model    string
	Messages []models.ChatMessage
	Sampling
}

type ChatResult struct {
	Message models.ChatMessage `json:"message"`
	Model   string             `json:"model"`
	Usage   Usage              `json:"usage"`
}

// Chat sends the coalesced conversation and returns the first reply part.
func (c *Client) Chat(ctx context.Context, r ChatRequest) (*ChatResult, error) {
	var out generateResponse
	err := c.post(ctx, modelPath(r.Model, "generateContent"), map[string]any{
		"contents":         ToContents(r.Messages),
		"generationConfig": r.generationConfig(),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &ChatResult{
		Message: models.ChatMessage{Role: "assistant", Content: out.firstText()},
		Model:   r.Model,
		Usage:   out.usage(),
	}, nil
}
