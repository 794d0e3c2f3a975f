package protocol

import "encoding/json"

// Capability descriptors are opaque passthrough data: the client relays
// names, descriptions and schemas without interpreting them.

// Tool describes an invocable tool exposed by the remote side.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// Resource describes a readable resource exposed by the remote side.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// Prompt describes a prompt template exposed by the remote side.
type Prompt struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Arguments   json.RawMessage `json:"arguments,omitempty"`
}

// ListParams carries the opaque pagination cursor for list requests. An
// empty cursor requests the first page.
type ListParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ListToolsResult is the payload of a tools/list response. A non-empty
// NextCursor means more pages follow.
type ListToolsResult struct {
	Tools      []Tool `json:"tools"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// CallToolParams is the payload of a tools/call request.
type CallToolParams struct {
	Name      string `json:"name"`
	Arguments any    `json:"arguments,omitempty"`
}

// CallToolResult is the payload of a tools/call response. Content is passed
// through unmodified.
type CallToolResult struct {
	Content json.RawMessage `json:"content"`
	IsError bool            `json:"isError,omitempty"`
}

// ListResourcesResult is the payload of a resources/list response.
type ListResourcesResult struct {
	Resources  []Resource `json:"resources"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// ReadResourceParams is the payload of a resources/read request.
type ReadResourceParams struct {
	URI string `json:"uri"`
}

// ReadResourceResult is the payload of a resources/read response.
type ReadResourceResult struct {
	Contents json.RawMessage `json:"contents"`
}

// ListPromptsResult is the payload of a prompts/list response.
type ListPromptsResult struct {
	Prompts    []Prompt `json:"prompts"`
	NextCursor string   `json:"nextCursor,omitempty"`
}

// GetPromptParams is the payload of a prompts/get request.
type GetPromptParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// GetPromptResult is the payload of a prompts/get response.
type GetPromptResult struct {
	Description string          `json:"description,omitempty"`
	Messages    json.RawMessage `json:"messages"`
}

// ClientInfo identifies the connecting client during initialize.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerInfo identifies the remote side, returned from initialize.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeParams is the payload of the initialize handshake request.
type InitializeParams struct {
	ProtocolVersion string          `json:"protocolVersion"`
	ClientInfo      ClientInfo      `json:"clientInfo"`
	Capabilities    map[string]bool `json:"capabilities,omitempty"`
}

// InitializeResult is the payload of the initialize handshake response.
// SessionToken is set by servers whose push channel cannot carry
// authentication headers; the streaming transport embeds it in the
// subscription URL.
type InitializeResult struct {
	ProtocolVersion string          `json:"protocolVersion"`
	ServerInfo      *ServerInfo     `json:"serverInfo,omitempty"`
	Capabilities    map[string]bool `json:"capabilities,omitempty"`
	SessionToken    string          `json:"sessionToken,omitempty"`
}
