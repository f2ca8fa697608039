package tools

import (
	"context"

	"github.com/bigdata-coss/agent-mcp/internal/openai"
	"github.com/bigdata-coss/agent-mcp/pkg/mcp"
)

// OpenAITools returns the OpenAI chat, image, speech and embedding tools.
func OpenAITools(client *openai.Client) []Descriptor {
	saveTo := Props{
		"saveDir":  String("Directory to save the file in"),
		"fileName": String("File name without extension"),
	}
	merge := func(a, b Props) Props {
		out := Props{}
		for k, v := range a {
			out[k] = v
		}
		for k, v := range b {
			out[k] = v
		}
		return out
	}

	return []Descriptor{
		{
			Name:        "mcp_openai_chat",
			Description: "Generate a chat completion with the OpenAI ChatGPT API",
			InputSchema: Object(Props{
				"model":       String("Model to use (e.g. gpt-4, gpt-3.5-turbo)"),
				"messages":    ChatMessages("Conversation messages"),
				"temperature": Range(Number("Sampling temperature (0-2)"), 0, 2),
				"max_tokens":  Number("Maximum number of tokens to generate"),
			}, "model", "messages"),
			Handler: func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
				var in chatArgs
				if err := Decode(args, &in); err != nil {
					return fail("OpenAI chat error", err)
				}
				out, err := client.Chat(ctx, openai.ChatRequest{
					Model:       in.Model,
					Messages:    in.Messages,
					Temperature: in.Temperature,
					MaxTokens:   in.MaxTokens,
				})
				if err != nil {
					return fail("OpenAI chat error", err)
				}
				return JSON(out)
			},
		},
		{
			Name: "mcp_openai_image",
			Description: "Generate images with the OpenAI DALL-E API. Returns the saved image paths, " +
				"which must be reported to the user",
			InputSchema: Object(merge(Props{
				"prompt":  String("Prompt describing the image"),
				"model":   String("Model to use (e.g. dall-e-3, dall-e-2)"),
				"n":       Range(Number("Number of images"), 1, 10),
				"size":    Enum("Image size", "256x256", "512x512", "1024x1024", "1792x1024", "1024x1792"),
				"quality": Enum("Image quality (dall-e-3 only)", "standard", "hd"),
				"style":   Enum("Image style (dall-e-3 only)", "vivid", "natural"),
			}, saveTo), "prompt"),
			Handler: func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
				var in struct {
					Prompt   string `json:"prompt"`
					Model    string `json:"model"`
					N        int    `json:"n"`
					Size     string `json:"size"`
					Quality  string `json:"quality"`
					Style    string `json:"style"`
					SaveDir  string `json:"saveDir"`
					FileName string `json:"fileName"`
				}
				if err := Decode(args, &in); err != nil {
					return fail("OpenAI image generation error", err)
				}
				out, err := client.GenerateImage(ctx, openai.ImageRequest{
					Prompt:   in.Prompt,
					Model:    in.Model,
					N:        in.N,
					Size:     in.Size,
					Quality:  in.Quality,
					Style:    in.Style,
					SaveDir:  in.SaveDir,
					FileName: in.FileName,
				})
				if err != nil {
					return fail("OpenAI image generation error", err)
				}
				return JSON(out)
			},
		},
		{
			Name: "mcp_openai_tts",
			Description: "Convert text to speech with the OpenAI TTS API. Returns the saved audio path, " +
				"which must be reported to the user",
			InputSchema: Object(merge(Props{
				"text":  String("Text to speak"),
				"model": String("Model to use (e.g. tts-1, tts-1-hd)"),
				"voice": Enum("Voice", "alloy", "echo", "fable", "onyx", "nova", "shimmer"),
				"speed": Range(Number("Speech speed (0.25-4.0)"), 0.25, 4.0),
			}, saveTo), "text"),
			Handler: func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
				var in struct {
					Text     string  `json:"text"`
					Model    string  `json:"model"`
					Voice    string  `json:"voice"`
					Speed    float64 `json:"speed"`
					SaveDir  string  `json:"saveDir"`
					FileName string  `json:"fileName"`
				}
				if err := Decode(args, &in); err != nil {
					return fail("OpenAI TTS error", err)
				}
				out, err := client.TextToSpeech(ctx, openai.SpeechRequest{
					Text:     in.Text,
					Model:    in.Model,
					Voice:    in.Voice,
					Speed:    in.Speed,
					SaveDir:  in.SaveDir,
					FileName: in.FileName,
				})
				if err != nil {
					return fail("OpenAI TTS error", err)
				}
				return JSON(out)
			},
		},
		{
			Name:        "mcp_openai_transcribe",
			Description: "Transcribe a local audio file with the OpenAI Whisper API",
			InputSchema: Object(Props{
				"audioPath": String("Path of the audio file to transcribe"),
				"model":     String("Model to use (e.g. whisper-1)"),
				"language":  String("Audio language (e.g. ko, en, ja)"),
				"prompt":    String("Hint text to guide recognition"),
			}, "audioPath"),
			Handler: func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
				var in struct {
					AudioPath string `json:"audioPath"`
					Model     string `json:"model"`
					Language  string `json:"language"`
					Prompt    string `json:"prompt"`
				}
				if err := Decode(args, &in); err != nil {
					return fail("OpenAI Whisper error", err)
				}
				out, err := client.Transcribe(ctx, openai.TranscribeRequest{
					AudioPath: in.AudioPath,
					Model:     in.Model,
					Language:  in.Language,
					Prompt:    in.Prompt,
				})
				if err != nil {
					return fail("OpenAI Whisper error", err)
				}
				if s, ok := out.(string); ok {
					return Text(s)
				}
				return JSON(out)
			},
		},
		{
			Name:        "mcp_openai_embedding",
			Description: "Create text embeddings with the OpenAI Embeddings API",
			InputSchema: Object(Props{
				"text": map[string]any{
					"type":        []string{"string", "array"},
					"description": "Text or list of texts to embed",
				},
				"model":      String("Model to use (e.g. text-embedding-3-small, text-embedding-3-large)"),
				"dimensions": Number("Embedding dimensions, where the model supports it"),
			}, "text"),
			Handler: func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
				var in struct {
					Text       any    `json:"text"`
					Model      string `json:"model"`
					Dimensions *int   `json:"dimensions"`
				}
				if err := Decode(args, &in); err != nil {
					return fail("OpenAI embedding error", err)
				}
				out, err := client.Embeddings(ctx, openai.EmbeddingRequest{
					Input:      in.Text,
					Model:      in.Model,
					Dimensions: in.Dimensions,
				})
				if err != nil {
					return fail("OpenAI embedding error", err)
				}
				return JSON(out)
			},
		},
	}
}
