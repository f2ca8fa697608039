// Package openai wraps the OpenAI REST endpoints used by the openai tools:
// chat completions, image generation, speech synthesis, transcription and
// embeddings.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bigdata-coss/agent-mcp/internal/apierr"
	"github.com/bigdata-coss/agent-mcp/internal/media"
	"github.com/bigdata-coss/agent-mcp/internal/models"
	"github.com/bigdata-coss/agent-mcp/internal/restclient"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultSaveDir = "./output"
)

// ErrMissingKey is returned before any network call when no API key is set.
var ErrMissingKey = apierr.Precondition("OPENAI_API_KEY is not set")

type Config struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	SaveDir string `yaml:"save_dir"`
}

type Client struct {
	cfg   Config
	http  *restclient.Client
	store *media.Store
	now   func() time.Time
}

func NewClient(cfg Config, hc *restclient.Client, store *media.Store) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.SaveDir == "" {
		cfg.SaveDir = DefaultSaveDir
	}
	return &Client{cfg: cfg, http: hc, store: store, now: time.Now}
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + path
}

func (c *Client) auth() (map[string]string, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrMissingKey
	}
	return map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}, nil
}

func (c *Client) saveDir(dir string) string {
	if dir != "" {
		return dir
	}
	return c.cfg.SaveDir
}

// send performs an authenticated call. detail renders the failure body.
func (c *Client) send(ctx context.Context, req restclient.Request, detail func(*restclient.Response) string) (*restclient.Response, error) {
	header, err := c.auth()
	if err != nil {
		return nil, err
	}
	if req.Header == nil {
		req.Header = header
	} else {
		for k, v := range header {
			req.Header[k] = v
		}
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, apierr.Remote(resp.Status, resp.Body,
			fmt.Sprintf("OpenAI API error (%d): %s", resp.Status, detail(resp)))
	}
	return resp, nil
}

func renderedBody(resp *restclient.Response) string {
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return resp.Detail()
	}
	return restclient.RenderBody(resp.Body)
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (any, error) {
	resp, err := c.send(ctx, restclient.Request{
		Method: http.MethodPost,
		URL:    c.url(path),
		JSON:   body,
	}, renderedBody)
	if err != nil {
		return nil, err
	}
	var out any
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, apierr.Unexpected(fmt.Errorf("decoding %s response: %w", path, err))
	}
	return out, nil
}

type ChatRequest struct {
	Model       string
	Messages    []models.ChatMessage
	Temperature *float64
	MaxTokens   *int
	Stream      bool
}

// Chat returns the decoded chat/completions response.
func (c *Client) Chat(ctx context.Context, r ChatRequest) (any, error) {
	temp := 0.7
	if r.Temperature != nil {
		temp = *r.Temperature
	}
	body := map[string]any{
		"model":       r.Model,
		"messages":    r.Messages,
		"temperature": temp,
		"stream":      r.Stream,
	}
	if r.MaxTokens != nil {
		body["max_tokens"] = *r.MaxTokens
	}
	return c.postJSON(ctx, "chat/completions", body)
}

type ImageRequest struct {
	Prompt   string
	Model    string
	N        int
	Size     string
	Quality  string
	Style    string
	SaveDir  string
	FileName string
}

type SavedImage struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

type ImageResult struct {
	GeneratedImages  []SavedImage `json:"generated_images"`
	OriginalResponse any          `json:"original_response"`
}

// GenerateImage creates images and downloads every returned URL into the
// save directory.
func (c *Client) GenerateImage(ctx context.Context, r ImageRequest) (*ImageResult, error) {
	n := r.N
	if n <= 0 {
		n = 1
	}
	resp, err := c.send(ctx, restclient.Request{
		Method: http.MethodPost,
		URL:    c.url("images/generations"),
		JSON: map[string]any{
			"model":           orDefault(r.Model, "dall-e-3"),
			"prompt":          r.Prompt,
			"n":               n,
			"size":            orDefault(r.Size, "1024x1024"),
			"quality":         orDefault(r.Quality, "standard"),
			"style":           orDefault(r.Style, "vivid"),
			"response_format": "url",
		},
	}, renderedBody)
	if err != nil {
		return nil, err
	}

	var original any
	_ = resp.DecodeJSON(&original)
	var parsed struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := resp.DecodeJSON(&parsed); err != nil {
		return nil, apierr.Unexpected(fmt.Errorf("decoding image response: %w", err))
	}

	dir := c.saveDir(r.SaveDir)
	result := &ImageResult{GeneratedImages: []SavedImage{}, OriginalResponse: original}
	for i, img := range parsed.Data {
		name := fmt.Sprintf("dalle_%d_%d.png", c.now().UnixMilli(), i)
		if r.FileName != "" {
			name = fmt.Sprintf("%s_%d.png", r.FileName, i)
		}
		data, err := c.download(ctx, img.URL)
		if err != nil {
			return nil, err
		}
		path, err := c.store.Save(ctx, dir, name, data)
		if err != nil {
			return nil, err
		}
		result.GeneratedImages = append(result.GeneratedImages, SavedImage{Path: path, URL: img.URL})
	}
	return result, nil
}

func (c *Client) download(ctx context.Context, u string) ([]byte, error) {
	resp, err := c.http.Do(ctx, restclient.Request{URL: u})
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", u, err)
	}
	if !resp.OK() {
		return nil, apierr.Remote(resp.Status, resp.Body,
			fmt.Sprintf("OpenAI API error (%d): %s", resp.Status, renderedBody(resp)))
	}
	return resp.Body, nil
}

type SpeechRequest struct {
	Text     string
	Model    string
	Voice    string
	Speed    float64
	SaveDir  string
	FileName string
}

type SpeechResult struct {
	AudioFile string `json:"audio_file"`
	SizeBytes int    `json:"size_bytes"`
	Message   string `json:"message"`
}

// TextToSpeech synthesizes mp3 audio and saves it.
func (c *Client) TextToSpeech(ctx context.Context, r SpeechRequest) (*SpeechResult, error) {
	speed := r.Speed
	if speed == 0 {
		speed = 1.0
	}
	resp, err := c.send(ctx, restclient.Request{
		Method: http.MethodPost,
		URL:    c.url("audio/speech"),
		JSON: map[string]any{
			"model":           orDefault(r.Model, "tts-1"),
			"input":           r.Text,
			"voice":           orDefault(r.Voice, "alloy"),
			"speed":           speed,
			"response_format": "mp3",
		},
	}, (*restclient.Response).Detail)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("tts_%d.mp3", c.now().UnixMilli())
	if r.FileName != "" {
		name = r.FileName + ".mp3"
	}
	path, err := c.store.Save(ctx, c.saveDir(r.SaveDir), name, resp.Body)
	if err != nil {
		return nil, err
	}
	return &SpeechResult{
		AudioFile: path,
		SizeBytes: len(resp.Body),
		Message:   "Audio file saved to " + path,
	}, nil
}

type TranscribeRequest struct {
	AudioPath string
	Model     string
	Language  string
	Prompt    string
}

// Transcribe uploads a local audio file to the Whisper endpoint.
func (c *Client) Transcribe(ctx context.Context, r TranscribeRequest) (any, error) {
	if _, err := c.auth(); err != nil {
		return nil, err
	}
	f, err := os.Open(r.AudioPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apierr.Precondition("audio file not found: %s", r.AudioPath)
		}
		return nil, fmt.Errorf("opening %s: %w", r.AudioPath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(r.AudioPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("reading %s: %w", r.AudioPath, err)
	}
	fields := []struct{ k, v string }{
		{"model", orDefault(r.Model, "whisper-1")},
		{"language", r.Language},
		{"prompt", r.Prompt},
	}
	for _, fld := range fields {
		if fld.v == "" {
			continue
		}
		if err := w.WriteField(fld.k, fld.v); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, restclient.Request{
		Method: http.MethodPost,
		URL:    c.url("audio/transcriptions"),
		Header: map[string]string{"Content-Type": w.FormDataContentType()},
		Body:   &buf,
	}, renderedBody)
	if err != nil {
		return nil, err
	}
	var out any
	if err := resp.DecodeJSON(&out); err != nil {
		return string(resp.Body), nil
	}
	return out, nil
}

type EmbeddingRequest struct {
	// Input is a string or a list of strings.
	Input      any
	Model      string
	Dimensions *int
}

func (c *Client) Embeddings(ctx context.Context, r EmbeddingRequest) (any, error) {
	body := map[string]any{
		"model": orDefault(r.Model, "text-embedding-3-small"),
		"input": r.Input,
	}
	if r.Dimensions != nil {
		body["dimensions"] = *r.Dimensions
	}
	return c.postJSON(ctx, "embeddings", body)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
