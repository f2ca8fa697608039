package lmstudio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigdata-coss/agent-mcp/internal/models"
	"github.com/bigdata-coss/agent-mcp/internal/restclient"
)

func TestRunReturnsFirstChoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/completions", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "qwen", body["model"])
		assert.Equal(t, 0.7, body["temperature"])
		assert.Equal(t, float64(2048), body["max_tokens"])
		_, _ = w.Write([]byte(`{"choices":[{"text":"42"}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL + "/v1"}, restclient.New(0))
	out, err := c.Run(context.Background(), "qwen", "answer?", 0)
	require.NoError(t, err)
	assert.Equal(t, "42", out)
}

func TestChatDefaultsTemperature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 0.7, body["temperature"])
		_, _ = w.Write([]byte(`{"id":"x","choices":[{"message":{"role":"assistant","content":"hi"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL + "/v1/"}, restclient.New(0))
	out, err := c.Chat(context.Background(), ChatRequest{
		Model:    "qwen",
		Messages: []models.ChatMessage{{Role: "user", Content: "hello"}},
	})
	require.NoError(t, err)
	m, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "x", m["id"])
}

func TestRemoteErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"model not loaded"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{Endpoint: srv.URL}, restclient.New(0)).Show(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, "LM Studio API error: model not loaded", err.Error())
}

func TestPullAndRemoveAreUnsupported(t *testing.T) {
	c := NewClient(Config{}, restclient.New(0))
	assert.Contains(t, c.Pull(context.Background(), "m")["message"], "does not support downloading")
	assert.Contains(t, c.Remove(context.Background(), "m")["message"], "does not support deleting")
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"qwen"}]}`))
	}))
	st := NewClient(Config{Endpoint: srv.URL}, restclient.New(0)).Status(context.Background())
	assert.Equal(t, "online", st.Status)
	assert.Equal(t, []any{map[string]any{"id": "qwen"}}, st.Models)

	srv.Close()
	st = NewClient(Config{Endpoint: srv.URL}, restclient.New(0)).Status(context.Background())
	assert.Equal(t, "offline", st.Status)
	assert.NotEmpty(t, st.Error)
}
