// Package mcpwire is a multi-transport client for the Model Context
// Protocol (2025-03-26). One uniform client API speaks JSON-RPC 2.0 over
// four interchangeable transports: one-shot HTTP request/response, a
// persistent WebSocket duplex connection, an SSE server-push stream with an
// authenticated HTTP side channel, and newline-delimited pipes to a
// subprocess.
//
// # Overview
//
// The module consists of several sub-packages:
//
//   - pkg/client: the orchestrator owning the connection state machine,
//     request correlation, per-call timeouts, retry with exponential
//     backoff, and transport fallback
//   - pkg/transport: the four wire transports behind one interface
//   - pkg/protocol: the JSON-RPC envelope codec and capability payloads
//   - pkg/errors: the classified error taxonomy every failure maps into
//   - pkg/logging: slog construction helpers and error attributes
//   - pkg/observability: optional Prometheus metrics and OTLP tracing
//
// # Connecting
//
//	cfg := mcpwire.Config{
//	    Transports: []mcpwire.TransportConfig{
//	        {Type: mcpwire.TransportWebSocket, Endpoint: "wss://mcp.example.com/rpc", BearerToken: token},
//	        {Type: mcpwire.TransportHTTP, Endpoint: "https://mcp.example.com/rpc", BearerToken: token},
//	    },
//	    Mode: mcpwire.PrimaryWithFallback,
//	}
//	c, err := mcpwire.NewClient(cfg)
//	if err != nil {
//	    // handle configuration error
//	}
//	if err := c.Connect(ctx); err != nil {
//	    // every transport and retry attempt failed
//	}
//	defer c.Disconnect()
//
//	tools, err := c.ListTools(ctx)
//
// Connect applies the configured retry policy and fallback strategy and
// only fails after the whole budget is exhausted. While connected, an
// unsolicited connection loss fails all in-flight calls and triggers
// background reconnection.
package mcpwire
