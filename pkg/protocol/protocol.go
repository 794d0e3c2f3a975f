// Package protocol defines the JSON-RPC 2.0 wire envelope spoken over every
// mcpwire transport and the codec that translates between raw bytes and
// typed messages. The codec is pure: it validates the envelope but never
// dispatches methods.
package protocol

import (
	"encoding/json"
	"fmt"

	mcperrors "github.com/tidalhq/mcpwire/pkg/errors"
)

const (
	// JSONRPCVersion is the envelope version tag required on every message.
	JSONRPCVersion = "2.0"

	// Version is the MCP protocol revision negotiated during initialize.
	Version = "2025-03-26"
)

// Method names in the fixed namespace this client consumes.
const (
	MethodInitialize    = "initialize"
	MethodListTools     = "tools/list"
	MethodCallTool      = "tools/call"
	MethodListResources = "resources/list"
	MethodReadResource  = "resources/read"
	MethodListPrompts   = "prompts/list"
	MethodGetPrompt     = "prompts/get"
	MethodPing          = "ping"
)

// Message is the decoded tagged variant of the wire envelope: exactly one of
// *Request, *Response or *Notification.
type Message interface {
	message()
}

// envelope is the shared version tag embedded in every message.
type envelope struct {
	JSONRPC string `json:"jsonrpc"`
}

// Request is a correlated call expecting a Response with the same ID.
type Request struct {
	envelope
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

func (*Request) message() {}

// NewRequest builds a request with a marshalled params payload.
func NewRequest(id int64, method string, params any) (*Request, error) {
	raw, err := marshalPayload(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params for %s: %w", method, err)
	}
	return &Request{
		envelope: envelope{JSONRPC: JSONRPCVersion},
		ID:       id,
		Method:   method,
		Params:   raw,
	}, nil
}

// Response carries either a result payload or an error object, never both.
type Response struct {
	envelope
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ErrorObject    `json:"error,omitempty"`
}

func (*Response) message() {}

// NewResponse builds a success response.
func NewResponse(id int64, result any) (*Response, error) {
	raw, err := marshalPayload(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return &Response{
		envelope: envelope{JSONRPC: JSONRPCVersion},
		ID:       id,
		Result:   raw,
	}, nil
}

// NewErrorResponse builds an error response.
func NewErrorResponse(id int64, code int, message string) *Response {
	return &Response{
		envelope: envelope{JSONRPC: JSONRPCVersion},
		ID:       id,
		Error:    &ErrorObject{Code: code, Message: message},
	}
}

// Notification is a fire-and-forget message carrying no correlation ID.
type Notification struct {
	envelope
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

func (*Notification) message() {}

// NewNotification builds a notification with a marshalled params payload.
func NewNotification(method string, params any) (*Notification, error) {
	raw, err := marshalPayload(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params for %s: %w", method, err)
	}
	return &Notification{
		envelope: envelope{JSONRPC: JSONRPCVersion},
		Method:   method,
		Params:   raw,
	}, nil
}

// ErrorObject is the JSON-RPC error member of a Response.
type ErrorObject struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *ErrorObject) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

func marshalPayload(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(v)
}

// EncodeMessage serializes a message to wire bytes. It never fails for a
// message built by this package's constructors.
func EncodeMessage(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// probe is the minimal shape used to classify an incoming message before
// committing to a full decode.
type probe struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Method  string          `json:"method"`
	Result  json.RawMessage `json:"result"`
	Error   json.RawMessage `json:"error"`
}

// DecodeMessage parses wire bytes into a Request, Response or Notification.
// A missing or foreign envelope yields a malformed-envelope protocol error.
// Unknown methods are not rejected here; dispatch is the caller's concern.
func DecodeMessage(data []byte) (Message, error) {
	var p probe
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, mcperrors.MalformedEnvelope("invalid JSON", err)
	}
	if p.JSONRPC != JSONRPCVersion {
		if p.JSONRPC == "" {
			return nil, mcperrors.MalformedEnvelope("missing jsonrpc version tag", nil)
		}
		return nil, mcperrors.VersionMismatch(p.JSONRPC)
	}

	switch {
	case p.ID != nil && (p.Result != nil || p.Error != nil):
		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, mcperrors.MalformedEnvelope("invalid response body", err)
		}
		return &resp, nil

	case p.ID != nil && p.Method != "":
		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, mcperrors.MalformedEnvelope("invalid request body", err)
		}
		return &req, nil

	case p.ID == nil && p.Method != "":
		var note Notification
		if err := json.Unmarshal(data, &note); err != nil {
			return nil, mcperrors.MalformedEnvelope("invalid notification body", err)
		}
		return &note, nil

	default:
		return nil, mcperrors.MalformedEnvelope("message is neither request, response nor notification", nil)
	}
}
