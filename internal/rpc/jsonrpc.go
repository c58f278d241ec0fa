// Package rpc defines the JSON-RPC 2.0 wire types and the tool manifest
// for the Toolgate gateway.
package rpc

import "encoding/json"

// Version is the JSON-RPC protocol version the gateway speaks.
const Version = "2.0"

// Method names handled on the message endpoint.
const (
	MethodToolsCall = "tools/call"
	MethodToolsList = "tools/list"
)

// MethodToolsChanged is the notification method carrying the manifest to
// streaming clients.
const MethodToolsChanged = "notifications/tools/list_changed"

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request represents a JSON-RPC request message.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// CallParams are the parameters of a tools/call request.
type CallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Response represents a JSON-RPC response message. Exactly one of Result
// and Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error represents a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Notification represents a JSON-RPC notification message (no id).
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// NewResult builds a success response correlated to the request id.
func NewResult(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: Version, ID: id, Result: result}
}

// NewError builds an error response correlated to the request id. When the
// id could not be determined from the request it is emitted as null, per
// JSON-RPC 2.0.
func NewError(id json.RawMessage, code int, message string) *Response {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return &Response{JSONRPC: Version, ID: id, Error: &Error{Code: code, Message: message}}
}

// TextContent is one text block of a tool call result.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallResult is the result payload of a successful tools/call.
type CallResult struct {
	Content []TextContent `json:"content"`
}

// NewTextResult wraps plugin output text into a call result.
func NewTextResult(text string) *CallResult {
	return &CallResult{Content: []TextContent{{Type: "text", Text: text}}}
}
