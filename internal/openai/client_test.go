package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigdata-coss/agent-mcp/internal/apierr"
	"github.com/bigdata-coss/agent-mcp/internal/media"
	"github.com/bigdata-coss/agent-mcp/internal/models"
	"github.com/bigdata-coss/agent-mcp/internal/restclient"
)

func newTestClient(t *testing.T, baseURL, key string) *Client {
	t.Helper()
	c := NewClient(Config{APIKey: key, BaseURL: baseURL, SaveDir: t.TempDir()},
		restclient.New(5*time.Second), media.NewStore(nil, logr.Discard()))
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return c
}

func TestMissingKeyMakesNoCalls(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	ctx := context.Background()

	_, err := c.Chat(ctx, ChatRequest{Model: "gpt-4o"})
	assert.ErrorIs(t, err, ErrMissingKey)
	_, err = c.GenerateImage(ctx, ImageRequest{Prompt: "cat"})
	assert.ErrorIs(t, err, ErrMissingKey)
	_, err = c.TextToSpeech(ctx, SpeechRequest{Text: "hi"})
	assert.ErrorIs(t, err, ErrMissingKey)
	_, err = c.Transcribe(ctx, TranscribeRequest{AudioPath: "x.mp3"})
	assert.ErrorIs(t, err, ErrMissingKey)
	_, err = c.Embeddings(ctx, EmbeddingRequest{Input: "hi"})
	require.Error(t, err)
	assert.Equal(t, "OPENAI_API_KEY is not set", err.Error())
	assert.Equal(t, apierr.KindPrecondition, apierr.KindOf(err))

	assert.Zero(t, calls.Load())
}

func TestChatSendsDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 0.7, body["temperature"])
		assert.Equal(t, false, body["stream"])
		assert.NotContains(t, body, "max_tokens")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","choices":[]}`))
	}))
	defer srv.Close()

	out, err := newTestClient(t, srv.URL, "sk-test").Chat(context.Background(), ChatRequest{
		Model:    "gpt-4o",
		Messages: []models.ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "chatcmpl-1", out.(map[string]any)["id"])
}

func TestRemoteErrorIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, "sk-test").Embeddings(context.Background(), EmbeddingRequest{Input: "x"})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "OpenAI API error (401): {"))
	assert.Contains(t, err.Error(), `"message": "bad key"`)
	assert.Equal(t, 401, apierr.StatusOf(err))
}

func TestGenerateImagePersistsEveryImage(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/images/generations":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "dall-e-3", body["model"])
			assert.Equal(t, float64(2), body["n"])
			assert.Equal(t, "url", body["response_format"])
			_, _ = w.Write([]byte(`{"created":1,"data":[{"url":"` + srvURL + `/img/0"},{"url":"` + srvURL + `/img/1"}]}`))
		case "/img/0", "/img/1":
			_, _ = w.Write([]byte("PNG" + r.URL.Path))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	c := newTestClient(t, srv.URL, "sk-test")
	dir := t.TempDir()
	res, err := c.GenerateImage(context.Background(), ImageRequest{Prompt: "cat", N: 2, SaveDir: dir, FileName: "cat"})
	require.NoError(t, err)

	require.Len(t, res.GeneratedImages, 2)
	assert.Equal(t, filepath.Join(dir, "cat_0.png"), res.GeneratedImages[0].Path)
	assert.Equal(t, filepath.Join(dir, "cat_1.png"), res.GeneratedImages[1].Path)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	data, err := os.ReadFile(res.GeneratedImages[1].Path)
	require.NoError(t, err)
	assert.Equal(t, "PNG/img/1", string(data))
	assert.NotNil(t, res.OriginalResponse)
}

func TestTextToSpeech(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alloy", body["voice"])
		assert.Equal(t, 1.0, body["speed"])
		_, _ = w.Write([]byte("ID3audio"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "sk-test")
	res, err := c.TextToSpeech(context.Background(), SpeechRequest{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(c.cfg.SaveDir, "tts_1700000000000.mp3"), res.AudioFile)
	assert.Equal(t, 8, res.SizeBytes)
	assert.Contains(t, res.Message, res.AudioFile)
}

func TestTextToSpeechErrorUsesProviderMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"voice not supported"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, "sk-test").TextToSpeech(context.Background(), SpeechRequest{Text: "x", Voice: "bogus"})
	require.Error(t, err)
	assert.Equal(t, "OpenAI API error (400): voice not supported", err.Error())
}

func TestTranscribeMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.mp3")
	_, err := newTestClient(t, "http://127.0.0.1:1", "sk-test").Transcribe(context.Background(), TranscribeRequest{AudioPath: path})
	require.Error(t, err)
	assert.Equal(t, "audio file not found: "+path, err.Error())
	assert.Equal(t, apierr.KindPrecondition, apierr.KindOf(err))
}

func TestTranscribeUploadsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "ko", r.FormValue("language"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "clip.wav", hdr.Filename)
		assert.Equal(t, "RIFF", string(data))
		_, _ = w.Write([]byte(`{"text":"안녕하세요"}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o644))

	out, err := newTestClient(t, srv.URL, "sk-test").Transcribe(context.Background(), TranscribeRequest{AudioPath: path, Language: "ko"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"text": "안녕하세요"}, out)
}
