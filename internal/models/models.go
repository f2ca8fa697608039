package models

// ChatMessage is one OpenAI-style conversation turn.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolRequest represents a request delivered over the message queue
type ToolRequest struct {
	Action    string         `json:"action"`           // list_tools, call_tool
	Name      string         `json:"name,omitempty"`   // Tool name for call_tool
	Arguments map[string]any `json:"arguments,omitempty"`
	Meta      map[string]any `json:"_meta,omitempty"`
	RequestID string         `json:"request_id"` // Correlation ID
}

// ToolReply represents the reply published back to the caller
type ToolReply struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	RequestID string     `json:"request_id"`
}

// ErrorInfo describes why a queued request could not be served
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeUnknownAction  = "UNKNOWN_ACTION"
)

// SuccessResponse wraps data in a successful reply.
func SuccessResponse(data any, requestID string) ToolReply {
	return ToolReply{Success: true, Data: data, RequestID: requestID}
}

// ErrorResponse builds a failed reply.
func ErrorResponse(code, message, requestID string) ToolReply {
	return ToolReply{
		Success:   false,
		Error:     &ErrorInfo{Code: code, Message: message},
		RequestID: requestID,
	}
}
