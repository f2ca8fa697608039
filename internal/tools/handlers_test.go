package tools

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigdata-coss/agent-mcp/internal/apierr"
	"github.com/bigdata-coss/agent-mcp/internal/gemini"
	"github.com/bigdata-coss/agent-mcp/internal/httptool"
	"github.com/bigdata-coss/agent-mcp/internal/lmstudio"
	"github.com/bigdata-coss/agent-mcp/internal/media"
	"github.com/bigdata-coss/agent-mcp/internal/ollama"
	"github.com/bigdata-coss/agent-mcp/internal/openai"
	"github.com/bigdata-coss/agent-mcp/internal/poll"
	"github.com/bigdata-coss/agent-mcp/internal/restclient"
	"github.com/bigdata-coss/agent-mcp/internal/sparql"
)

// newCatalog points every backend at baseURL. The OpenAI client has no key.
func newCatalog(t *testing.T, baseURL string) *Registry {
	t.Helper()
	return newCatalogWithKeys(t, baseURL, "", "gk")
}

func newCatalogWithKeys(t *testing.T, baseURL, openaiKey, geminiKey string) *Registry {
	t.Helper()
	hc := restclient.New(5 * time.Second)
	store := media.NewStore(nil, logr.Discard())
	dir := t.TempDir()
	reg, err := Catalog(Backends{
		SPARQL:        sparql.NewClient(hc),
		SPARQLDefault: sparql.Config{Endpoint: baseURL, DefaultRepository: "repo"},
		Ollama:        ollama.NewClient(ollama.Config{Endpoint: baseURL}, hc),
		LMStudio:      lmstudio.NewClient(lmstudio.Config{Endpoint: baseURL}, hc),
		HTTP:          httptool.NewClient(httptool.Config{}, hc),
		OpenAI:        openai.NewClient(openai.Config{APIKey: openaiKey, BaseURL: baseURL, SaveDir: dir}, hc, store),
		Gemini: gemini.NewClient(gemini.Config{
			APIKey:  geminiKey,
			BaseURL: baseURL,
			SaveDir: dir,
			Poll:    poll.Policy{Interval: time.Millisecond, MaxAttempts: 5},
		}, hc, store),
	})
	require.NoError(t, err)
	return reg
}

func call(t *testing.T, reg *Registry, name string, args map[string]any) (string, error) {
	t.Helper()
	d, ok := reg.Find(name)
	require.True(t, ok, name)
	res, err := d.Handler(context.Background(), args)
	if err != nil {
		return "", err
	}
	return res.Text(), nil
}

func TestExecuteQueryRendersJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repositories/repo", r.URL.Path)
		_, _ = w.Write([]byte(`{"head":{"vars":["s"]},"results":{"bindings":[]}}`))
	}))
	defer srv.Close()

	out, err := call(t, newCatalog(t, srv.URL), "mcp_sparql_execute_query", map[string]any{"query": "SELECT * {}"})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"head\": {\n    \"vars\": [\n      \"s\"\n    ]\n  },\n  \"results\": {\n    \"bindings\": []\n  }\n}", out)
}

func TestExecuteQueryFailureIsPrefixed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	_, err := call(t, newCatalog(t, srv.URL), "mcp_sparql_execute_query", map[string]any{"query": "SELECT * {}"})
	require.Error(t, err)
	assert.Equal(t, "query execution error: SPARQL query error (500): boom", err.Error())
	assert.Equal(t, 500, apierr.StatusOf(err))
}

func TestListRepositoriesFailureHasSinglePrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("down"))
	}))
	defer srv.Close()

	_, err := call(t, newCatalog(t, srv.URL), "mcp_sparql_list_repositories", map[string]any{})
	require.Error(t, err)
	assert.Equal(t, "repository list error (500): down", err.Error())
}

func TestExecuteQueryHonoursOverrides(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repositories/other/explain", r.URL.Path)
		_, _ = w.Write([]byte("plan"))
	}))
	defer srv.Close()

	out, err := call(t, newCatalog(t, "http://127.0.0.1:1"), "mcp_sparql_execute_query", map[string]any{
		"query":      "SELECT * {}",
		"endpoint":   srv.URL,
		"repository": "other",
		"format":     "csv",
		"explain":    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "plan", out)
}

func TestArgumentTypeMismatch(t *testing.T) {
	_, err := call(t, newCatalog(t, "http://127.0.0.1:1"), "mcp_sparql_update", map[string]any{"query": 12})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), `update query error: invalid argument "query"`), err.Error())
	assert.Equal(t, apierr.KindRequest, apierr.KindOf(err))
}

func TestOllamaRunPassesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"response":"late"}`))
	}))
	defer srv.Close()

	_, err := call(t, newCatalog(t, srv.URL), "mcp_ollama_run", map[string]any{"name": "m", "prompt": "p", "timeout": 20})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "Ollama API error: "), err.Error())
}

func TestLMStudioPullIsUnsupported(t *testing.T) {
	out, err := call(t, newCatalog(t, "http://127.0.0.1:1"), "mcp_lmstudio_pull", map[string]any{"name": "m"})
	require.NoError(t, err)
	assert.Contains(t, out, `"message"`)
}

func TestHTTPRequestFlattensParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"a":1}`, string(body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7}`))
	}))
	defer srv.Close()

	out, err := call(t, newCatalog(t, srv.URL), "mcp_http_request", map[string]any{
		"url":     srv.URL,
		"method":  "post",
		"headers": map[string]any{"X-Test": "yes"},
		"params":  map[string]any{"limit": float64(10)},
		"data":    map[string]any{"a": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"id\": 7\n}", out)
}

func TestHTTPRequestErrorPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	}))
	defer srv.Close()

	_, err := call(t, newCatalog(t, srv.URL), "mcp_http_request", map[string]any{"url": srv.URL})
	require.Error(t, err)
	assert.Equal(t, "HTTP request error: HTTP request error (404): nope", err.Error())
}

func TestOpenAIMissingKey(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls.Add(1) }))
	defer srv.Close()

	_, err := call(t, newCatalog(t, srv.URL), "mcp_openai_chat", map[string]any{
		"model":    "gpt-4",
		"messages": []any{map[string]any{"role": "user", "content": "hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, "OpenAI chat error: OPENAI_API_KEY is not set", err.Error())
	assert.Zero(t, calls.Load())
}

func TestOpenAITranscribeMissingFile(t *testing.T) {
	reg := newCatalogWithKeys(t, "http://127.0.0.1:1", "sk", "gk")
	_, err := call(t, reg, "mcp_openai_transcribe", map[string]any{"audioPath": filepath.Join(t.TempDir(), "none.mp3")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OpenAI Whisper error: audio file not found: ")
}

func TestOpenAIEmbeddingAcceptsList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"model":"text-embedding-3-small","input":["a","b"]}`, string(body))
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	reg := newCatalogWithKeys(t, srv.URL, "sk", "gk")
	out, err := call(t, reg, "mcp_openai_embedding", map[string]any{"text": []any{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"data\": []\n}", out)
}

func TestGeminiGenerateTextReturnsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-pro:generateContent", r.URL.Path)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hello"}]}}]}`))
	}))
	defer srv.Close()

	out, err := call(t, newCatalog(t, srv.URL), "mcp_gemini_generate_text", map[string]any{"model": "gemini-pro", "prompt": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestGeminiMissingKeyPrefix(t *testing.T) {
	reg := newCatalogWithKeys(t, "http://127.0.0.1:1", "", "")
	_, err := call(t, reg, "mcp_gemini_list_models", nil)
	require.Error(t, err)
	assert.Equal(t, "Gemini model list error: Gemini API key is not set", err.Error())
}

func TestImagenRejectsOtherModels(t *testing.T) {
	_, err := call(t, newCatalog(t, "http://127.0.0.1:1"), "mcp_imagen_generate", map[string]any{"prompt": "cat", "model": "gemini-2.0-flash"})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "Imagen image generation error: "), err.Error())
	assert.Contains(t, err.Error(), `"imagen"`)
}

func TestGeminiVideosText(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models/veo-2.0-generate-001:generateVideos":
			_, _ = w.Write([]byte(`{"name":"operations/v"}`))
		case "/operations/v":
			_, _ = w.Write([]byte(`{"done":true,"response":{"generatedVideos":[{"video":{"uri":"` + srvURL + `/files/a"}}]}}`))
		case "/files/a":
			_, _ = w.Write([]byte("MP4"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	dir := t.TempDir()
	out, err := call(t, newCatalog(t, srv.URL), "mcp_gemini_generate_videos", map[string]any{
		"prompt": "sea", "saveDir": dir, "fileName": "clip",
	})
	require.NoError(t, err)
	path := filepath.Join(dir, "clip-1.mp4")
	assert.Equal(t, `Video generation completed. Generated video files: ["`+path+`"]`+"\nTotal 1 video(s) generated.", out)
}

func TestGeminiMultimodalText(t *testing.T) {
	png := base64.StdEncoding.EncodeToString([]byte("PNG"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"one"},{"text":"two"},{"inlineData":{"mimeType":"image/png","data":"` + png + `"}}]}}]}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	out, err := call(t, newCatalog(t, srv.URL), "mcp_gemini_generate_multimodal_content", map[string]any{
		"contents": []any{map[string]any{"text": "draw"}},
		"saveDir":  dir,
		"fileName": "mm",
	})
	require.NoError(t, err)
	path := filepath.Join(dir, "mm-3.png")
	assert.Equal(t, "Generated text:\none\n\ntwo\n\n"+`Generated image files: ["`+path+`"]`+"\nTotal 1 image(s) generated.", out)
}

func TestGeminiMultimodalTextOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"only"}]}}]}`))
	}))
	defer srv.Close()

	out, err := call(t, newCatalog(t, srv.URL), "mcp_gemini_generate_multimodal_content", map[string]any{
		"contents": []any{map[string]any{"text": "say"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Generated text:\nonly\n\n", out)
}

func TestImageReportEscapesHTML(t *testing.T) {
	out := imageReport(&gemini.ImageResult{
		Model:  "imagen-3",
		Prompt: "<b>cat</b>",
		Images: []string{"/tmp/a.png"},
		Text:   []string{"x & y"},
	})
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "&lt;b&gt;cat&lt;/b&gt;")
	assert.Contains(t, out, `<img src="/tmp/a.png" alt="Generated image 1">`)
	assert.Contains(t, out, "<pre>x &amp; y</pre>")
	assert.NotContains(t, out, "No images were generated")
}
