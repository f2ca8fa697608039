package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bigdata-coss/agent-mcp/internal/apierr"
	"github.com/bigdata-coss/agent-mcp/internal/poll"
)

const (
	DefaultImagenModel     = "imagen-3.0-generate-002"
	DefaultImageModel      = "gemini-2.0-flash-exp-image-generation"
	DefaultMultimodalModel = "gemini-2.0-flash"
	DefaultVideoModel      = "veo-2.0-generate-001"
)

// ImageRequest drives GenerateImage. The Imagen-only and Gemini-only fields
// are ignored by the other path.
type ImageRequest struct {
	Model    string
	Prompt   string
	SaveDir  string
	FileName string

	// Imagen
	NumberOfImages   int
	Size             string
	AspectRatio      string
	PersonGeneration string

	// Gemini
	ImageData          string
	ImageMimeType      string
	ResponseModalities []string
}

type ImageResult struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Text   []string `json:"text"`
	Count  int      `json:"count"`
}

// GenerateImage routes to Imagen when the model name contains "imagen" and to
// Gemini generateContent otherwise.
func (c *Client) GenerateImage(ctx context.Context, r ImageRequest) (*ImageResult, error) {
	if r.Model == "" {
		r.Model = DefaultImagenModel
	}
	if strings.Contains(r.Model, "imagen") {
		return c.generateImagen(ctx, r)
	}
	return c.generateGeminiImage(ctx, r)
}

// Imagen is GenerateImage restricted to Imagen models.
func (c *Client) Imagen(ctx context.Context, r ImageRequest) (*ImageResult, error) {
	if r.Model == "" {
		r.Model = DefaultImagenModel
	}
	if !strings.Contains(r.Model, "imagen") {
		return nil, apierr.Request(`this tool supports Imagen models only; the model name must contain "imagen"`)
	}
	return c.generateImagen(ctx, r)
}

// CreateImage generates an image from a prompt with a Gemini model.
func (c *Client) CreateImage(ctx context.Context, r ImageRequest) (*ImageResult, error) {
	if r.Model == "" {
		r.Model = DefaultImageModel
	}
	if !strings.Contains(r.Model, "gemini") {
		return nil, apierr.Request(`this tool supports Gemini models only; the model name must contain "gemini"`)
	}
	r.ImageData = ""
	return c.generateGeminiImage(ctx, r)
}

// EditImage sends a prompt together with an existing image.
func (c *Client) EditImage(ctx context.Context, r ImageRequest) (*ImageResult, error) {
	if r.Model == "" {
		r.Model = DefaultImageModel
	}
	if !strings.Contains(r.Model, "gemini") {
		return nil, apierr.Request(`this tool supports Gemini models only; the model name must contain "gemini"`)
	}
	if r.ImageData == "" {
		return nil, apierr.Request("image data is required; provide valid base64-encoded image data")
	}
	return c.generateGeminiImage(ctx, r)
}

func (c *Client) generateImagen(ctx context.Context, r ImageRequest) (*ImageResult, error) {
	n := r.NumberOfImages
	if n <= 0 {
		n = 1
	}
	body := map[string]any{
		"prompt":          map[string]any{"text": r.Prompt},
		"sampleCount":     n,
		"sampleImageSize": orDefault(r.Size, "1024x1024"),
	}
	if r.AspectRatio != "" {
		body["aspectRatio"] = r.AspectRatio
	}
	if r.PersonGeneration != "" {
		body["personGeneration"] = r.PersonGeneration
	}

	var out struct {
		Images []struct {
			BytesBase64 string `json:"bytesBase64"`
		} `json:"images"`
	}
	if err := c.post(ctx, modelPath(r.Model, "generateImages"), body, &out); err != nil {
		return nil, err
	}

	fileName := orDefault(r.FileName, fmt.Sprintf("imagen-%d", c.now().UnixMilli()))
	dir := c.saveDir(r.SaveDir)
	res := &ImageResult{Model: r.Model, Prompt: r.Prompt, Images: []string{}, Text: []string{}}
	for i, img := range out.Images {
		if img.BytesBase64 == "" {
			continue
		}
		path, err := c.saveBase64(ctx, dir, fmt.Sprintf("%s-%d.png", fileName, i+1), img.BytesBase64)
		if err != nil {
			return nil, err
		}
		res.Images = append(res.Images, path)
	}
	res.Count = len(res.Images)
	return res, nil
}

func (c *Client) generateGeminiImage(ctx context.Context, r ImageRequest) (*ImageResult, error) {
	parts := []map[string]any{{"text": r.Prompt}}
	if r.ImageData != "" {
		parts = append(parts, map[string]any{"inlineData": map[string]any{
			"mimeType": orDefault(r.ImageMimeType, "image/png"),
			"data":     r.ImageData,
		}})
	}
	modalities := r.ResponseModalities
	if len(modalities) == 0 {
		modalities = []string{"TEXT", "IMAGE"}
	}
	fileName := orDefault(r.FileName, fmt.Sprintf("gemini-image-%d", c.now().UnixMilli()))

	out, err := c.GenerateMultimodal(ctx, MultimodalRequest{
		Model:              r.Model,
		Contents:           []map[string]any{{"role": "user", "parts": parts}},
		ResponseModalities: modalities,
		SaveDir:            r.SaveDir,
		FileName:           fileName,
	})
	if err != nil {
		return nil, err
	}
	return &ImageResult{
		Model:  r.Model,
		Prompt: r.Prompt,
		Images: out.Images,
		Text:   out.Text,
		Count:  len(out.Images),
	}, nil
}

// MultimodalRequest drives GenerateMultimodal. Each item of Contents is either
// a full content block (it carries "parts") or a bare part such as
// {"text": ...} or {"inlineData": ...}.
type MultimodalRequest struct {
	Model              string
	Contents           []map[string]any
	ResponseModalities []string
	Temperature        *float64
	MaxTokens          *int
	SaveDir            string
	FileName           string
}

type MultimodalResult struct {
	Model  string   `json:"model"`
	Text   []string `json:"text"`
	Images []string `json:"images"`
}

// WrapContents groups consecutive bare parts into one user content block and
// passes full content blocks through unchanged.
func WrapContents(items []map[string]any) []map[string]any {
	var (
		out   []map[string]any
		loose []map[string]any
	)
	flush := func() {
		if len(loose) > 0 {
			out = append(out, map[string]any{"role": "user", "parts": loose})
			loose = nil
		}
	}
	for _, item := range items {
		if _, ok := item["parts"]; ok {
			flush()
			out = append(out, item)
			continue
		}
		loose = append(loose, item)
	}
	flush()
	if out == nil {
		out = []map[string]any{}
	}
	return out
}

func modality(m string) string {
	switch m {
	case "text":
		return "TEXT"
	case "image":
		return "IMAGE"
	}
	return strings.ToUpper(m)
}

// GenerateMultimodal calls generateContent and saves every inline image of the
// first candidate as {FileName}-{part index + 1}.png.
func (c *Client) GenerateMultimodal(ctx context.Context, r MultimodalRequest) (*MultimodalResult, error) {
	model := orDefault(r.Model, DefaultMultimodalModel)
	requested := r.ResponseModalities
	if len(requested) == 0 {
		requested = []string{"text", "image"}
	}
	modalities := make([]string, len(requested))
	for i, m := range requested {
		modalities[i] = modality(m)
	}

	var out generateResponse
	err := c.post(ctx, modelPath(model, "generateContent"), map[string]any{
		"contents": WrapContents(r.Contents),
		"generationConfig": map[string]any{
			"temperature":        floatOr(r.Temperature, 0.7),
			"maxOutputTokens":    intOr(r.MaxTokens, 1024),
			"responseModalities": modalities,
		},
	}, &out)
	if err != nil {
		return nil, err
	}

	fileName := orDefault(r.FileName, fmt.Sprintf("gemini-multimodal-%d", c.now().UnixMilli()))
	dir := c.saveDir(r.SaveDir)
	res := &MultimodalResult{Model: model, Text: []string{}, Images: []string{}}
	for i, p := range out.parts() {
		switch {
		case p.Text != "":
			res.Text = append(res.Text, p.Text)
		case p.InlineData != nil:
			path, err := c.saveBase64(ctx, dir, fmt.Sprintf("%s-%d.png", fileName, i+1), p.InlineData.Data)
			if err != nil {
				return nil, err
			}
			res.Images = append(res.Images, path)
		}
	}
	return res, nil
}

// VideoImage is an optional first frame.
type VideoImage struct {
	ImageBytes string `json:"imageBytes"`
	MimeType   string `json:"mimeType"`
}

type VideoRequest struct {
	Model            string
	Prompt           string
	Image            *VideoImage
	NumberOfVideos   int
	AspectRatio      string
	PersonGeneration string
	DurationSeconds  int
	SaveDir          string
	FileName         string
}

type VideoResult struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Videos []string `json:"videos"`
	Count  int      `json:"count"`
}

type operation struct {
	Name  string          `json:"name"`
	Done  bool            `json:"done"`
	Error *operationError `json:"error"`

	Response struct {
		GeneratedVideos []struct {
			Video struct {
				URI string `json:"uri"`
			} `json:"video"`
		} `json:"generatedVideos"`
	} `json:"response"`
}

type operationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// GenerateVideos starts a Veo operation, polls it until done under the
// configured policy, and downloads every generated video.
func (c *Client) GenerateVideos(ctx context.Context, r VideoRequest) (*VideoResult, error) {
	model := orDefault(r.Model, DefaultVideoModel)
	cfg := map[string]any{
		"aspectRatio":      orDefault(r.AspectRatio, "16:9"),
		"numberOfVideos":   positiveOr(r.NumberOfVideos, 1),
		"durationSeconds":  positiveOr(r.DurationSeconds, 5),
		"personGeneration": orDefault(r.PersonGeneration, "dont_allow"),
	}
	body := map[string]any{
		"prompt": map[string]any{"text": r.Prompt},
		"config": cfg,
	}
	if r.Image != nil {
		body["image"] = r.Image
	}

	var op operation
	if err := c.post(ctx, modelPath(model, "generateVideos"), body, &op); err != nil {
		return nil, err
	}
	if op.Name == "" {
		return nil, apierr.Unexpected(errors.New("could not start the video generation operation"))
	}

	name := op.Name
	_, err := poll.Until(ctx, c.cfg.Poll, func(ctx context.Context) (bool, error) {
		resp, err := c.call(ctx, http.MethodGet, name, nil)
		if err != nil {
			return false, err
		}
		op = operation{}
		if err := resp.DecodeJSON(&op); err != nil {
			return false, apierr.Unexpected(fmt.Errorf("decoding operation %s: %w", name, err))
		}
		return op.Done, nil
	})
	if errors.Is(err, poll.ErrExhausted) {
		return nil, fmt.Errorf("video operation %s did not finish after %d checks: %w", name, c.cfg.Poll.MaxAttempts, err)
	}
	if err != nil {
		return nil, err
	}
	if op.Error != nil {
		return nil, apierr.Remote(0, nil, fmt.Sprintf("video generation failed (%d): %s", op.Error.Code, op.Error.Message))
	}

	fileName := orDefault(r.FileName, fmt.Sprintf("veo-%d", c.now().UnixMilli()))
	dir := c.saveDir(r.SaveDir)
	res := &VideoResult{Model: model, Prompt: r.Prompt, Videos: []string{}}
	for i, v := range op.Response.GeneratedVideos {
		if v.Video.URI == "" {
			continue
		}
		data, err := c.download(ctx, c.withKey(v.Video.URI))
		if err != nil {
			return nil, err
		}
		path, err := c.store.Save(ctx, dir, fmt.Sprintf("%s-%d.mp4", fileName, i+1), data)
		if err != nil {
			return nil, err
		}
		res.Videos = append(res.Videos, path)
	}
	res.Count = len(res.Videos)
	return res, nil
}

func (c *Client) withKey(uri string) string {
	sep := "&"
	if !strings.Contains(uri, "?") {
		sep = "?"
	}
	return uri + sep + "key=" + c.cfg.APIKey
}

func (c *Client) saveBase64(ctx context.Context, dir, name, b64 string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", apierr.Unexpected(fmt.Errorf("decoding %s: %w", name, err))
	}
	return c.store.Save(ctx, dir, name, data)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
