package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigdata-coss/agent-mcp/internal/apierr"
	"github.com/bigdata-coss/agent-mcp/internal/media"
	"github.com/bigdata-coss/agent-mcp/internal/models"
	"github.com/bigdata-coss/agent-mcp/internal/poll"
	"github.com/bigdata-coss/agent-mcp/internal/restclient"
)

func newTestClient(t *testing.T, baseURL, key string) *Client {
	t.Helper()
	c := NewClient(Config{
		APIKey:  key,
		BaseURL: baseURL,
		SaveDir: t.TempDir(),
		Poll:    poll.Policy{Interval: time.Millisecond, MaxAttempts: 5},
	}, restclient.New(5*time.Second), media.NewStore(nil, logr.Discard()))
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return c
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestMissingKeyMakesNoCalls(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	ctx := context.Background()

	_, err := c.GenerateText(ctx, TextRequest{Model: "gemini-pro", Prompt: "x"})
	assert.ErrorIs(t, err, ErrMissingKey)
	_, err = c.ListModels(ctx)
	assert.ErrorIs(t, err, ErrMissingKey)
	_, err = c.GenerateVideos(ctx, VideoRequest{Prompt: "x"})
	assert.ErrorIs(t, err, ErrMissingKey)
	_, err = c.GenerateMultimodal(ctx, MultimodalRequest{Contents: []map[string]any{{"text": "x"}}})
	require.Error(t, err)
	assert.Equal(t, "Gemini API key is not set", err.Error())
	assert.Zero(t, calls.Load())
}

func TestGenerateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-pro:generateContent", r.URL.Path)
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		body := decodeBody(t, r)
		gen := body["generationConfig"].(map[string]any)
		assert.Equal(t, 0.7, gen["temperature"])
		assert.Equal(t, float64(1024), gen["maxOutputTokens"])
		assert.Equal(t, float64(40), gen["topK"])
		assert.Equal(t, 0.95, gen["topP"])
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hello"}]}}],
			"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":2}}`))
	}))
	defer srv.Close()

	res, err := newTestClient(t, srv.URL, "k").GenerateText(context.Background(), TextRequest{Model: "gemini-pro", Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Text)
	assert.Equal(t, Usage{CompletionTokens: 2, PromptTokens: 3, TotalTokens: 5}, res.Usage)
}

func TestToContents(t *testing.T) {
	msgs := []models.ChatMessage{
		{Role: "user", Content: "a"},
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "b"},
		{Role: "assistant", Content: "c"},
		{Role: "assistant", Content: "d"},
		{Role: "user", Content: "e"},
	}
	got := ToContents(msgs)
	want := []Content{
		{Role: "user", Parts: []Part{{Text: "[system] be brief"}}},
		{Role: "user", Parts: []Part{{Text: "a"}, {Text: "b"}}},
		{Role: "model", Parts: []Part{{Text: "c"}, {Text: "d"}}},
		{Role: "user", Parts: []Part{{Text: "e"}}},
	}
	assert.Equal(t, want, got)
}

func TestToContentsSystemOnly(t *testing.T) {
	got := ToContents([]models.ChatMessage{{Role: "system", Content: "rules"}})
	assert.Equal(t, []Content{{Role: "user", Parts: []Part{{Text: "[system] rules"}}}}, got)
}

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		contents := body["contents"].([]any)
		require.Len(t, contents, 2)
		assert.Equal(t, "model", contents[1].(map[string]any)["role"])
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"sure"}]}}]}`))
	}))
	defer srv.Close()

	res, err := newTestClient(t, srv.URL, "k").Chat(context.Background(), ChatRequest{
		Model: "gemini-pro",
		Messages: []models.ChatMessage{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ChatMessage{Role: "assistant", Content: "sure"}, res.Message)
}

func TestListModelsFiltersAndMaps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[
			{"name":"models/gemini-1.5-pro","displayName":"Gemini 1.5 Pro","description":"d",
			 "supportedGenerationMethods":["generateContent","countTokens"]},
			{"name":"models/embedding-001","supportedGenerationMethods":["embedContent"]},
			{"name":"models/gemini-embed","supportedGenerationMethods":["embedContent"]}
		]}`))
	}))
	defer srv.Close()

	list, err := newTestClient(t, srv.URL, "k").ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ModelInfo{
		ID:          "gemini-1.5-pro",
		Name:        "Gemini 1.5 Pro",
		Description: "d",
		Supports:    ModelSupports{Chat: true, Completion: true},
	}, list[0])
	assert.Equal(t, "models/gemini-embed", list[1].Name)
	assert.Equal(t, ModelSupports{Embeddings: true}, list[1].Supports)
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   string
	}{
		{400, `{"error":{"message":"prompt blocked"}}`, "prompt blocked"},
		{400, `{}`, "bad request"},
		{401, ``, "API key is invalid or missing"},
		{403, ``, "no permission to access the requested resource"},
		{404, ``, "requested resource not found"},
		{429, ``, "API rate limit exceeded"},
		{503, ``, "Gemini API server error"},
		{409, `{"error":{"message":"conflict"}}`, "conflict"},
		{409, ``, "Gemini API error: 409"},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))
		_, err := newTestClient(t, srv.URL, "k").ListModels(context.Background())
		srv.Close()
		require.Error(t, err)
		assert.Equal(t, tc.want, err.Error(), "status %d", tc.status)
		assert.Equal(t, tc.status, apierr.StatusOf(err))
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := newTestClient(t, srv.URL, "k").ListModels(context.Background())
	require.Error(t, err)
	assert.Equal(t, "network error: cannot connect to Gemini API", err.Error())
	assert.Equal(t, apierr.KindTransport, apierr.KindOf(err))
}
