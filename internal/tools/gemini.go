package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/bigdata-coss/agent-mcp/internal/gemini"
	"github.com/bigdata-coss/agent-mcp/internal/models"
	"github.com/bigdata-coss/agent-mcp/pkg/mcp"
)

type samplingArgs struct {
	Temperature *float64 `json:"temperature"`
	MaxTokens   *int     `json:"max_tokens"`
	TopK        *int     `json:"topK"`
	TopP        *float64 `json:"topP"`
}

func (s samplingArgs) sampling() gemini.Sampling {
	return gemini.Sampling{Temperature: s.Temperature, MaxTokens: s.MaxTokens, TopK: s.TopK, TopP: s.TopP}
}

type imageArgs struct {
	Model              string   `json:"model"`
	Prompt             string   `json:"prompt"`
	NumberOfImages     int      `json:"numberOfImages"`
	Size               string   `json:"size"`
	AspectRatio        string   `json:"aspectRatio"`
	PersonGeneration   string   `json:"personGeneration"`
	SaveDir            string   `json:"saveDir"`
	FileName           string   `json:"fileName"`
	ImageData          string   `json:"imageData"`
	ImageMimeType      string   `json:"imageMimeType"`
	ResponseModalities []string `json:"responseModalities"`
}

func (a imageArgs) request() gemini.ImageRequest {
	return gemini.ImageRequest{
		Model:              a.Model,
		Prompt:             a.Prompt,
		SaveDir:            a.SaveDir,
		FileName:           a.FileName,
		NumberOfImages:     a.NumberOfImages,
		Size:               a.Size,
		AspectRatio:        a.AspectRatio,
		PersonGeneration:   a.PersonGeneration,
		ImageData:          a.ImageData,
		ImageMimeType:      a.ImageMimeType,
		ResponseModalities: a.ResponseModalities,
	}
}

// imageTool adapts one of the gemini image entry points into a handler that
// renders the result as JSON.
func imageTool(prefix string, gen func(context.Context, gemini.ImageRequest) (*gemini.ImageResult, error)) Handler {
	return func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
		var in imageArgs
		if err := Decode(args, &in); err != nil {
			return fail(prefix, err)
		}
		out, err := gen(ctx, in.request())
		if err != nil {
			return fail(prefix, err)
		}
		return JSON(out)
	}
}

// GeminiTools returns the Gemini, Imagen and Veo tools.
func GeminiTools(client *gemini.Client) []Descriptor {
	sampling := Props{
		"temperature": NumberDefault("Sampling randomness (0.0 - 2.0)", 0.7),
		"max_tokens":  NumberDefault("Maximum number of tokens to generate", 1024),
		"topK":        NumberDefault("Number of top tokens considered at each step", 40),
		"topP":        NumberDefault("Cumulative probability cut-off for sampling", 0.95),
	}
	with := func(base Props, extra ...Props) Props {
		out := Props{}
		for _, p := range append([]Props{base}, extra...) {
			for k, v := range p {
				out[k] = v
			}
		}
		return out
	}
	saveDir := StringDefault("Directory to save generated files in", gemini.DefaultSaveDir)
	fileName := String("File name without extension")
	imagenExtras := Props{
		"numberOfImages":   Range(NumberDefault("Number of images (1-4)", 1), 1, 4),
		"aspectRatio":      withDefault(Enum("Aspect ratio (Imagen only)", "1:1", "3:4", "4:3", "9:16", "16:9"), "1:1"),
		"personGeneration": withDefault(Enum("Whether people may be generated (Imagen only)", "DONT_ALLOW", "ALLOW_ADULT"), "ALLOW_ADULT"),
	}

	return []Descriptor{
		{
			Name:        "mcp_gemini_generate_text",
			Description: "Generate text with a Gemini model",
			InputSchema: Object(with(Props{
				"model":  String("Gemini model ID (e.g. gemini-pro, gemini-1.5-pro)"),
				"prompt": String("Prompt for text generation"),
			}, sampling), "model", "prompt"),
			Handler: func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
				var in struct {
					samplingArgs
					Model  string `json:"model"`
					Prompt string `json:"prompt"`
				}
				if err := Decode(args, &in); err != nil {
					return fail("Gemini text generation error", err)
				}
				out, err := client.GenerateText(ctx, gemini.TextRequest{Model: in.Model, Prompt: in.Prompt, Sampling: in.sampling()})
				if err != nil {
					return fail("Gemini text generation error", err)
				}
				return Text(out.Text)
			},
		},
		{
			Name:        "mcp_gemini_chat_completion",
			Description: "Complete a chat conversation with a Gemini model",
			InputSchema: Object(with(Props{
				"model":    String("Gemini model ID (e.g. gemini-pro, gemini-1.5-pro)"),
				"messages": ChatMessages("Conversation messages"),
			}, sampling), "model", "messages"),
			Handler: func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
				var in struct {
					samplingArgs
					Model    string               `json:"model"`
					Messages []models.ChatMessage `json:"messages"`
				}
				if err := Decode(args, &in); err != nil {
					return fail("Gemini chat completion error", err)
				}
				out, err := client.Chat(ctx, gemini.ChatRequest{Model: in.Model, Messages: in.Messages, Sampling: in.sampling()})
				if err != nil {
					return fail("Gemini chat completion error", err)
				}
				return Text(out.Message.Content)
			},
		},
		{
			Name:        "mcp_gemini_list_models",
			Description: "List the available Gemini models",
			InputSchema: Object(Props{}),
			Handler: func(ctx context.Context, _ map[string]any) (mcp.ToolResult, error) {
				out, err := client.ListModels(ctx)
				if err != nil {
					return fail("Gemini model list error", err)
				}
				return JSON(out)
			},
		},
		{
			Name:        "mcp_gemini_generate_images",
			Description: "Generate images with a Google Imagen model. Superseded by mcp_gemini_generate_image",
			InputSchema: Object(Props{
				"model":          StringDefault("Model ID (e.g. imagen-3.0-generate-002)", gemini.DefaultImagenModel),
				"prompt":         String("Text prompt for the image"),
				"numberOfImages": imagenExtras["numberOfImages"],
				"size":           StringDefault("Image size", "1024x1024"),
				"saveDir":        saveDir,
				"fileName":       fileName,
			}, "prompt"),
			Handler: imageTool("Gemini image generation error", client.GenerateImage),
		},
		{
			Name: "mcp_gemini_generate_image",
			Description: "Generate images with a Gemini or Imagen model; the API is chosen from the model name. " +
				"Returns the saved image paths, which must be reported to the user",
			InputSchema: Object(with(Props{
				"model":         StringDefault("Model ID (e.g. imagen-3.0-generate-002, gemini-2.0-flash-exp-image-generation)", gemini.DefaultImagenModel),
				"prompt":        String("Text prompt for the image"),
				"size":          StringDefault("Image size", "1024x1024"),
				"saveDir":       saveDir,
				"fileName":      fileName,
				"imageData":     String("Base64-encoded image to edit (Gemini models only)"),
				"imageMimeType": StringDefault("Image MIME type (Gemini models only)", "image/png"),
				"responseModalities": withDefault(
					Array("Response modalities (Gemini models only)", map[string]any{"type": "string", "enum": []string{"TEXT", "IMAGE"}}),
					[]string{"TEXT", "IMAGE"}),
			}, imagenExtras), "prompt"),
			Handler: func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
				var in imageArgs
				if err := Decode(args, &in); err != nil {
					return fail("image generation error", err)
				}
				out, err := client.GenerateImage(ctx, in.request())
				if err != nil {
					return fail("image generation error", err)
				}
				return Text(imageReport(out))
			},
		},
		{
			Name: "mcp_gemini_generate_videos",
			Description: "Generate videos with a Google Veo model. Returns the saved video paths, " +
				"which must be reported to the user",
			InputSchema: Object(Props{
				"model":  StringDefault("Model ID (e.g. veo-2.0-generate-001)", gemini.DefaultVideoModel),
				"prompt": String("Text prompt for the video"),
				"image": map[string]any{
					"type":        "object",
					"description": "Optional first frame",
					"properties": map[string]any{
						"imageBytes": String("Base64-encoded image data"),
						"mimeType":   String("Image MIME type (e.g. image/png)"),
					},
				},
				"numberOfVideos":   Range(NumberDefault("Number of videos (1-2)", 1), 1, 2),
				"aspectRatio":      withDefault(Enum("Aspect ratio", "16:9", "9:16"), "16:9"),
				"personGeneration": withDefault(Enum("Whether people may be generated", "dont_allow", "allow_adult"), "dont_allow"),
				"durationSeconds":  Range(NumberDefault("Video length in seconds", 5), 5, 8),
				"saveDir":          saveDir,
				"fileName":         fileName,
			}, "prompt"),
			Handler: func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
				var in struct {
					Model            string             `json:"model"`
					Prompt           string             `json:"prompt"`
					Image            *gemini.VideoImage `json:"image"`
					NumberOfVideos   int                `json:"numberOfVideos"`
					AspectRatio      string             `json:"aspectRatio"`
					PersonGeneration string             `json:"personGeneration"`
					DurationSeconds  int                `json:"durationSeconds"`
					SaveDir          string             `json:"saveDir"`
					FileName         string             `json:"fileName"`
				}
				if err := Decode(args, &in); err != nil {
					return fail("Gemini video generation error", err)
				}
				out, err := client.GenerateVideos(ctx, gemini.VideoRequest{
					Model:            in.Model,
					Prompt:           in.Prompt,
					Image:            in.Image,
					NumberOfVideos:   in.NumberOfVideos,
					AspectRatio:      in.AspectRatio,
					PersonGeneration: in.PersonGeneration,
					DurationSeconds:  in.DurationSeconds,
					SaveDir:          in.SaveDir,
					FileName:         in.FileName,
				})
				if err != nil {
					return fail("Gemini video generation error", err)
				}
				list, err := compactList(out.Videos)
				if err != nil {
					return mcp.ToolResult{}, err
				}
				return Text(fmt.Sprintf("Video generation completed. Generated video files: %s\nTotal %d video(s) generated.", list, out.Count))
			},
		},
		{
			Name: "mcp_gemini_generate_multimodal_content",
			Description: "Generate mixed text and image content with a Gemini model. Returns the generated text " +
				"and saved image paths, which must be reported to the user",
			InputSchema: Object(Props{
				"model": StringDefault("Gemini model ID (e.g. gemini-2.0-flash-exp-image-generation)", gemini.DefaultMultimodalModel),
				"contents": Array("Input content parts (text or images)", map[string]any{
					"type": "object",
					"properties": map[string]any{
						"text": String("Text content"),
						"inlineData": map[string]any{
							"type":        "object",
							"description": "Inline image data",
							"properties": map[string]any{
								"mimeType": String("Image MIME type (e.g. image/png)"),
								"data":     String("Base64-encoded image data"),
							},
						},
					},
				}),
				"responseModalities": withDefault(
					Array("Modalities to include in the response", map[string]any{"type": "string", "enum": []string{"text", "image"}}),
					[]string{"text", "image"}),
				"temperature": sampling["temperature"],
				"max_tokens":  sampling["max_tokens"],
				"saveDir":     saveDir,
				"fileName":    fileName,
			}, "contents"),
			Handler: func(ctx context.Context, args map[string]any) (mcp.ToolResult, error) {
				var in struct {
					Model              string           `json:"model"`
					Contents           []map[string]any `json:"contents"`
					ResponseModalities []string         `json:"responseModalities"`
					Temperature        *float64         `json:"temperature"`
					MaxTokens          *int             `json:"max_tokens"`
					SaveDir            string           `json:"saveDir"`
					FileName           string           `json:"fileName"`
				}
				if err := Decode(args, &in); err != nil {
					return fail("Gemini multimodal content error", err)
				}
				out, err := client.GenerateMultimodal(ctx, gemini.MultimodalRequest{
					Model:              in.Model,
					Contents:           in.Contents,
					ResponseModalities: in.ResponseModalities,
					Temperature:        in.Temperature,
					MaxTokens:          in.MaxTokens,
					SaveDir:            in.SaveDir,
					FileName:           in.FileName,
				})
				if err != nil {
					return fail("Gemini multimodal content error", err)
				}
				return multimodalReport(out)
			},
		},
		{
			Name: "mcp_imagen_generate",
			Description: "Generate high-quality images from an English text prompt with Google Imagen 3. " +
				"Generated images always carry a SynthID watermark",
			InputSchema: Object(with(Props{
				"model":    StringDefault("Imagen model ID (e.g. imagen-3.0-generate-002)", gemini.DefaultImagenModel),
				"prompt":   String("Text prompt for the image, in English"),
				"saveDir":  saveDir,
				"fileName": fileName,
			}, imagenExtras), "prompt"),
			Handler: imageTool("Imagen image generation error", client.Imagen),
		},
		{
			Name: "mcp_gemini_create_image",
			Description: "Create an image from a text prompt with a Gemini model; text and images are returned together. " +
				"Ask explicitly for an image, since generation is not always triggered",
			InputSchema: Object(Props{
				"model":    StringDefault("Gemini model ID (e.g. gemini-2.0-flash-exp-image-generation)", gemini.DefaultImageModel),
				"prompt":   String("Text prompt; include an explicit request such as \"generate an image\""),
				"saveDir":  saveDir,
				"fileName": fileName,
			}, "prompt"),
			Handler: imageTool("Gemini image generation error", client.CreateImage),
		},
		{
			Name: "mcp_gemini_edit_image",
			Description: "Edit an existing image with a Gemini model. Needs a text prompt and base64-encoded image data; " +
				"ask explicitly to update or edit the image",
			InputSchema: Object(Props{
				"model":         StringDefault("Gemini model ID (e.g. gemini-2.0-flash-exp-image-generation)", gemini.DefaultImageModel),
				"prompt":        String("Editing instructions"),
				"imageData":     String("Base64-encoded image data"),
				"imageMimeType": StringDefault("Image MIME type (e.g. image/png, image/jpeg)", "image/png"),
				"saveDir":       saveDir,
				"fileName":      fileName,
			}, "prompt", "imageData"),
			Handler: imageTool("Gemini image edit error", client.EditImage),
		},
	}
}

func withDefault(node map[string]any, def any) map[string]any {
	node["default"] = def
	return node
}

// compactList renders a string list on one line, e.g. ["a","b"].
func compactList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(list); err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func multimodalReport(out *gemini.MultimodalResult) (mcp.ToolResult, error) {
	var b strings.Builder
	if len(out.Text) > 0 {
		fmt.Fprintf(&b, "Generated text:\n%s\n\n", strings.Join(out.Text, "\n\n"))
	}
	if len(out.Images) > 0 {
		list, err := compactList(out.Images)
		if err != nil {
			return mcp.ToolResult{}, err
		}
		fmt.Fprintf(&b, "Generated image files: %s\nTotal %d image(s) generated.", list, len(out.Images))
	}
	return Text(b.String())
}

// imageReport renders an image result as a small standalone HTML page.
func imageReport(out *gemini.ImageResult) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html>
<head>
  <title>Gemini image generation result</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 20px; }
    .container { max-width: 800px; margin: 0 auto; }
    .image-container { margin-top: 20px; }
    .image-item { margin-bottom: 20px; }
    img { max-width: 100%; border: 1px solid #ddd; }
    pre { background-color: #f5f5f5; padding: 10px; border-radius: 5px; overflow-x: auto; }
  </style>
</head>
<body>
  <div class="container">
    <h1>Gemini image generation result</h1>
`)
	fmt.Fprintf(&b, "    <p><strong>Model:</strong> %s</p>\n", html.EscapeString(out.Model))
	fmt.Fprintf(&b, "    <p><strong>Prompt:</strong> %s</p>\n", html.EscapeString(out.Prompt))
	b.WriteString("    <div class=\"image-container\">\n")
	if len(out.Images) == 0 {
		b.WriteString("      <p>No images were generated.</p>\n")
	}
	for i, path := range out.Images {
		p := html.EscapeString(path)
		fmt.Fprintf(&b, "      <div class=\"image-item\">\n        <h3>Image %d</h3>\n", i+1)
		fmt.Fprintf(&b, "        <img src=\"%s\" alt=\"Generated image %d\">\n", p, i+1)
		fmt.Fprintf(&b, "        <p>File path: %s</p>\n      </div>\n", p)
	}
	b.WriteString("    </div>\n")
	if len(out.Text) > 0 {
		b.WriteString("    <div class=\"text-container\">\n      <h2>Generated text</h2>\n")
		for _, t := range out.Text {
			fmt.Fprintf(&b, "      <div class=\"text-item\">\n        <pre>%s</pre>\n      </div>\n", html.EscapeString(t))
		}
		b.WriteString("    </div>\n")
	}
	b.WriteString("  </div>\n</body>\n</html>")
	return b.String()
}
