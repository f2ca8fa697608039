package mcp

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/go-logr/logr"
)

// HTTPOptions configures the HTTP transport.
type HTTPOptions struct {
	// Metrics is mounted on GET /metrics when set.
	Metrics http.Handler
	// Auth wraps every route except /health and /metrics when set.
	Auth func(http.Handler) http.Handler
}

// HTTPServer exposes a Dispatcher as REST endpoints and as JSON-RPC over
// HTTP with an SSE endpoint announcement.
type HTTPServer struct {
	dispatcher Dispatcher
	log        logr.Logger
	opts       HTTPOptions

	// closed by CloseStreams; releases open SSE streams
	done      chan struct{}
	closeOnce sync.Once
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(d Dispatcher, log logr.Logger, opts HTTPOptions) *HTTPServer {
	return &HTTPServer{dispatcher: d, log: log.WithName("http"), opts: opts, done: make(chan struct{})}
}

// CloseStreams ends every open SSE stream. Register it with
// http.Server.RegisterOnShutdown so Shutdown does not wait on idle streams.
func (h *HTTPServer) CloseStreams() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Handler returns the complete route table wrapped in CORS.
func (h *HTTPServer) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/tools", h.handleListTools)
	api.HandleFunc("POST /api/tools/{name}", h.handleToolCall)
	api.HandleFunc("GET /sse", h.handleSSE)
	api.HandleFunc("POST /message", h.handleMessage)
	api.HandleFunc("POST /", h.handleMessage)

	var protected http.Handler = api
	if h.opts.Auth != nil {
		protected = h.opts.Auth(api)
	}

	root := http.NewServeMux()
	root.HandleFunc("GET /health", h.handleHealth)
	if h.opts.Metrics != nil {
		root.Handle("GET /metrics", h.opts.Metrics)
	}
	root.Handle("/", protected)
	return corsMiddleware(root)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPServer) handleListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": h.dispatcher.ListTools()})
}

// handleToolCall takes the arguments object as the whole request body. Tool
// failures are part of the result text, so the status is 200 once the body
// decodes.
func (h *HTTPServer) handleToolCall(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	var args map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &args); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "request body must be a JSON object: " + err.Error()})
			return
		}
	}

	result := h.dispatcher.CallTool(r.Context(), ToolCall{Name: r.PathValue("name"), Arguments: args})
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
