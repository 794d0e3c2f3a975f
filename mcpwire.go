package mcpwire

import (
	"github.com/tidalhq/mcpwire/pkg/client"
	"github.com/tidalhq/mcpwire/pkg/protocol"
	"github.com/tidalhq/mcpwire/pkg/transport"
)

// Version is the module version.
const Version = "1.0.0"

// ProtocolVersion is the MCP revision this client negotiates.
const ProtocolVersion = protocol.Version

// Root-level aliases so simple integrations need only this package.
type (
	// Client is the multi-transport MCP client.
	Client = client.Client

	// Config configures a Client.
	Config = client.Config

	// TransportConfig configures one transport candidate.
	TransportConfig = transport.Config

	// RetryPolicy maps attempt numbers to backoff delays.
	RetryPolicy = client.RetryPolicy
)

// NewClient constructs a client from config.
var NewClient = client.New

// DefaultRetryPolicy returns the production retry defaults.
var DefaultRetryPolicy = client.DefaultRetryPolicy

// Transport types.
const (
	TransportHTTP      = transport.TypeHTTP
	TransportWebSocket = transport.TypeWebSocket
	TransportSSE       = transport.TypeSSE
	TransportStdio     = transport.TypeStdio
)

// Fallback strategies.
const (
	PrimaryOnly         = client.PrimaryOnly
	PrimaryWithFallback = client.PrimaryWithFallback
	Race                = client.Race
)
