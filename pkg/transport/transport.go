// Package transport implements the four wire transports a mcpwire client can
// speak over: one-shot HTTP request/response, persistent WebSocket duplex,
// SSE server-push streaming, and subprocess stdio pipes.
//
// Every transport satisfies the same minimal contract: Open establishes the
// channel (coalescing concurrent attempts), Send transmits one encoded
// message, and inbound bytes plus lifecycle events are pushed on channels
// consumed by a single reader. Transports never interpret message content
// and never drive the client's connection state machine; they only report
// what happened.
package transport

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	mcperrors "github.com/tidalhq/mcpwire/pkg/errors"
)

// Transport is the capability contract shared by all four wire mechanisms.
type Transport interface {
	// Open establishes the underlying channel. It is idempotent under
	// concurrent invocation: a second call while an attempt is in progress
	// waits for that attempt's outcome instead of starting a duplicate.
	Open(ctx context.Context) error

	// Send transmits one encoded message. For the HTTP transport the send
	// and the receive are coupled into a single round-trip.
	Send(ctx context.Context, data []byte) error

	// Messages delivers inbound wire bytes in the order the underlying
	// channel produced them. The channel is closed when the transport
	// shuts down.
	Messages() <-chan []byte

	// Events delivers lifecycle notifications (opened, closed, errored).
	Events() <-chan Event

	// Close releases the channel. Safe to call multiple times and while an
	// open attempt is in progress.
	Close() error
}

// EventKind identifies a lifecycle event.
type EventKind int

const (
	// EventOpened signals the channel was established.
	EventOpened EventKind = iota
	// EventClosed signals the channel went away, solicited or not.
	EventClosed
	// EventErrored signals a non-fatal transport-level error.
	EventErrored
)

func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventClosed:
		return "closed"
	case EventErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Event is a lifecycle notification pushed by a transport.
type Event struct {
	Kind EventKind
	Err  error
}

// Type identifies a transport implementation.
type Type string

const (
	TypeHTTP      Type = "http"
	TypeWebSocket Type = "websocket"
	TypeSSE       Type = "sse"
	TypeStdio     Type = "stdio"
)

// Config is the static construction-time configuration for a transport.
// Endpoint selection is explicit: no speculative endpoint discovery.
type Config struct {
	// Type selects the implementation.
	Type Type

	// Endpoint is the request URL for HTTP-based transports: the POST
	// endpoint for TypeHTTP, the authenticated side channel for TypeSSE,
	// and the ws:// URL (or http:// to be rewritten) for TypeWebSocket.
	Endpoint string

	// PushEndpoint is the SSE subscription URL. Defaults to Endpoint.
	PushEndpoint string

	// BearerToken is attached as an Authorization header on every
	// HTTP-based exchange. The SSE push channel cannot carry headers, so
	// it authenticates via the session token instead.
	BearerToken string

	// Command is the subprocess argv for TypeStdio.
	Command []string

	// ConnectTimeout bounds a single open attempt.
	ConnectTimeout time.Duration

	// RequestTimeout bounds a single HTTP round-trip.
	RequestTimeout time.Duration

	// MessageBuffer is the capacity of the inbound message channel.
	MessageBuffer int

	// Logger receives transport diagnostics. Defaults to slog.Default.
	Logger *slog.Logger

	// HTTPClient overrides the HTTP client used by HTTP-based transports
	// (testing and custom TLS setups).
	HTTPClient *http.Client

	// StdioReader and StdioWriter replace the subprocess pipes for
	// TypeStdio (testing only).
	StdioReader interface{ Read([]byte) (int, error) }
	StdioWriter interface{ Write([]byte) (int, error) }
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 30 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.MessageBuffer == 0 {
		c.MessageBuffer = 256
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.PushEndpoint == "" {
		c.PushEndpoint = c.Endpoint
	}
	return c
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.RequestTimeout}
}

// New constructs a transport from config. Transport selection is
// compile-time: all implementations are linked in and chosen here.
func New(cfg Config) (Transport, error) {
	cfg = cfg.withDefaults()
	switch cfg.Type {
	case TypeHTTP:
		if cfg.Endpoint == "" {
			return nil, mcperrors.New(mcperrors.CodeTransportError,
				"endpoint is required for the http transport",
				mcperrors.CategoryConnection, mcperrors.SeverityError)
		}
		return newHTTPTransport(cfg), nil
	case TypeWebSocket:
		if cfg.Endpoint == "" {
			return nil, mcperrors.New(mcperrors.CodeTransportError,
				"endpoint is required for the websocket transport",
				mcperrors.CategoryConnection, mcperrors.SeverityError)
		}
		return newWebSocketTransport(cfg)
	case TypeSSE:
		if cfg.Endpoint == "" {
			return nil, mcperrors.New(mcperrors.CodeTransportError,
				"endpoint is required for the sse transport",
				mcperrors.CategoryConnection, mcperrors.SeverityError)
		}
		return newSSETransport(cfg), nil
	case TypeStdio:
		if len(cfg.Command) == 0 && (cfg.StdioReader == nil || cfg.StdioWriter == nil) {
			return nil, mcperrors.New(mcperrors.CodeTransportError,
				"command is required for the stdio transport",
				mcperrors.CategoryConnection, mcperrors.SeverityError)
		}
		return newStdioTransport(cfg), nil
	default:
		return nil, mcperrors.Newf(mcperrors.CodeTransportError,
			mcperrors.CategoryConnection, mcperrors.SeverityError,
			"unsupported transport type %q", cfg.Type)
	}
}

// openGate coalesces concurrent Open calls: the first caller runs the
// attempt, later callers wait for its outcome. A failed attempt resets the
// gate so a subsequent Open retries.
type openGate struct {
	mu     sync.Mutex
	doing  chan struct{}
	err    error
	opened bool
}

func (g *openGate) do(ctx context.Context, open func() error) error {
	g.mu.Lock()
	if g.opened {
		g.mu.Unlock()
		return nil
	}
	if g.doing != nil {
		doing := g.doing
		g.mu.Unlock()
		select {
		case <-doing:
			g.mu.Lock()
			defer g.mu.Unlock()
			return g.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	doing := make(chan struct{})
	g.doing = doing
	g.mu.Unlock()

	err := open()

	g.mu.Lock()
	g.err = err
	g.opened = err == nil
	g.doing = nil
	g.mu.Unlock()
	close(doing)
	return err
}

func (g *openGate) isOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.opened
}

func (g *openGate) reset() {
	g.mu.Lock()
	g.opened = false
	g.mu.Unlock()
}

// chans owns the inbound message and event channels shared by all transport
// implementations. Delivery after shutdown is a silent no-op; a full message
// buffer drops the message and reports it, since blocking the reader loop
// would stall the whole connection.
type chans struct {
	mu       sync.Mutex
	closed   bool
	messages chan []byte
	events   chan Event
	logger   *slog.Logger
}

func newChans(buffer int, logger *slog.Logger) *chans {
	return &chans{
		messages: make(chan []byte, buffer),
		events:   make(chan Event, 16),
		logger:   logger,
	}
}

func (c *chans) deliver(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.messages <- data:
	default:
		c.logger.Warn("inbound message dropped: buffer full", slog.Int("size", len(data)))
	}
}

func (c *chans) emit(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("transport event dropped: buffer full", slog.String("kind", ev.Kind.String()))
	}
}

// emitClosed emits a Closed event and then shuts the channels down, in that
// order, so the consumer observes the event before the channel close.
func (c *chans) emitClosed(err error) {
	c.emit(Event{Kind: EventClosed, Err: err})
	c.shutdown()
}

func (c *chans) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.messages)
	close(c.events)
}

func (c *chans) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// base carries the open gate and channel plumbing shared by every transport
// implementation. Channels are recreated on reopen after a close, so the
// same instance can cycle through connect / disconnect / reconnect.
type base struct {
	gate   openGate
	chmu   sync.Mutex
	ch     *chans
	logger *slog.Logger
	buffer int
}

func newBase(cfg Config) base {
	return base{
		ch:     newChans(cfg.MessageBuffer, cfg.Logger),
		logger: cfg.Logger,
		buffer: cfg.MessageBuffer,
	}
}

func (b *base) channels() *chans {
	b.chmu.Lock()
	defer b.chmu.Unlock()
	return b.ch
}

// freshChannels returns the live channel set, replacing one that was shut
// down by a previous connection cycle.
func (b *base) freshChannels() *chans {
	b.chmu.Lock()
	defer b.chmu.Unlock()
	if b.ch.isClosed() {
		b.ch = newChans(b.buffer, b.logger)
	}
	return b.ch
}

// Messages implements Transport.
func (b *base) Messages() <-chan []byte { return b.channels().messages }

// Events implements Transport.
func (b *base) Events() <-chan Event { return b.channels().events }
