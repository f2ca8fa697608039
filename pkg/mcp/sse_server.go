package mcp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var nullID = json.RawMessage("null")

// handleSSE announces the message endpoint and holds the stream open until the
// client goes away.
func (h *HTTPServer) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sessionID := uuid.NewString()
	h.log.V(1).Info("sse session opened", "sessionID", sessionID)
	fmt.Fprintf(w, "event: endpoint\ndata: /message?sessionId=%s\n\n", sessionID)
	flusher.Flush()

	select {
	case <-r.Context().Done():
	case <-h.done:
	}
	h.log.V(1).Info("sse session closed", "sessionID", sessionID)
}

func (h *HTTPServer) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, rpcResponse{
			JSONRPC: "2.0",
			ID:      nullID,
			Error:   &rpcError{Code: codeParseError, Message: "Parse error: " + err.Error()},
		})
		return
	}

	// Notifications carry no id and get no body.
	if len(req.ID) == 0 && strings.HasPrefix(req.Method, "notifications/") {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	resp := h.dispatch(r, req)
	resp.JSONRPC = "2.0"
	resp.ID = req.ID
	if len(resp.ID) == 0 {
		resp.ID = nullID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPServer) dispatch(r *http.Request, req rpcRequest) rpcResponse {
	switch req.Method {
	case "initialize":
		return rpcResponse{Result: map[string]any{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    ServerName,
				"version": ServerVersion,
			},
		}}
	case "ping":
		return rpcResponse{Result: map[string]any{}}
	case "tools/list":
		return rpcResponse{Result: map[string]any{"tools": h.dispatcher.ListTools()}}
	case "tools/call":
		var call ToolCall
		if len(req.Params) == 0 {
			return rpcResponse{Error: &rpcError{Code: codeInvalidParams, Message: "Invalid params"}}
		}
		if err := json.Unmarshal(req.Params, &call); err != nil {
			return rpcResponse{Error: &rpcError{Code: codeInvalidParams, Message: "Invalid params: " + err.Error()}}
		}
		return rpcResponse{Result: h.dispatcher.CallTool(r.Context(), call)}
	case "":
		return rpcResponse{Error: &rpcError{Code: codeInvalidRequest, Message: "Invalid request: missing method"}}
	default:
		return rpcResponse{Error: &rpcError{Code: codeMethodNotFound, Message: fmt.Sprintf("Method not found: %s", req.Method)}}
	}
}
