// Package client provides the multi-transport MCP client: one uniform API
// for invoking tools, resources and prompts over HTTP request/response,
// WebSocket duplex, SSE streaming, or subprocess stdio transports, with
// correlation, per-call timeouts, retry with backoff, and transport
// fallback.
package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	mcperrors "github.com/tidalhq/mcpwire/pkg/errors"
	"github.com/tidalhq/mcpwire/pkg/logging"
	"github.com/tidalhq/mcpwire/pkg/observability"
	"github.com/tidalhq/mcpwire/pkg/protocol"
	"github.com/tidalhq/mcpwire/pkg/transport"
)

// State is the connection state machine owned exclusively by the Client.
// Transports report events; only the Client mutates this state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// NotificationHandler receives a server-initiated notification's params.
type NotificationHandler func(method string, params json.RawMessage)

// Config is the static construction-time configuration for a Client. The
// Client is an explicit value owned by its caller; there is no process-wide
// instance.
type Config struct {
	// Transports lists candidate transport configurations in preference
	// order. At least one is required.
	Transports []transport.Config

	// Mode selects the fallback strategy across Transports.
	Mode FallbackMode

	// FallbackThreshold is the consecutive open failures on the current
	// transport before PrimaryWithFallback moves to the next. Default 3.
	FallbackThreshold int

	// Retry governs backoff between open attempts and the per-transport
	// attempt budget.
	Retry RetryPolicy

	// ConnectTimeout bounds one open attempt. Default 30s.
	ConnectTimeout time.Duration

	// CallTimeout is the default per-call deadline. Default 30s.
	CallTimeout time.Duration

	// SweepInterval is the pending-table expiry tick. Default 1s.
	SweepInterval time.Duration

	// ClientInfo identifies this client during the initialize handshake.
	ClientInfo protocol.ClientInfo

	// Logger receives client diagnostics. Defaults to slog.Default.
	Logger *slog.Logger

	// Metrics, when set, receives Prometheus instrumentation.
	Metrics *observability.Metrics

	// Tracer, when set, wraps every call in a span.
	Tracer trace.Tracer
}

func (c Config) withDefaults() Config {
	if c.Retry == (RetryPolicy{}) {
		c.Retry = DefaultRetryPolicy()
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 30 * time.Second
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.ClientInfo == (protocol.ClientInfo{}) {
		c.ClientInfo = protocol.ClientInfo{Name: "mcpwire", Version: "1.0.0"}
	}
	return c
}

// Client is the multi-transport orchestrator. It owns exactly one active
// transport at a time, the pending-request table, the retry policy and the
// fallback strategy. Safe for concurrent use.
type Client struct {
	cfg     Config
	logger  *slog.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer

	transports []transport.Transport
	sel        *selector
	pending    *pendingTable
	nextID     atomic.Int64

	mu         sync.Mutex
	state      State
	active     transport.Transport
	activeIdx  int
	connecting chan struct{} // non-nil while a connect attempt is in flight
	connectErr error
	loopCancel context.CancelFunc
	serverInfo *protocol.ServerInfo

	notifyMu sync.RWMutex
	handlers map[string]NotificationHandler
}

// New constructs a Client from config. No I/O happens until Connect.
func New(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if len(cfg.Transports) == 0 {
		return nil, mcperrors.New(mcperrors.CodeConnectionFailed,
			"at least one transport configuration is required",
			mcperrors.CategoryConnection, mcperrors.SeverityError)
	}

	transports := make([]transport.Transport, 0, len(cfg.Transports))
	for _, tc := range cfg.Transports {
		if tc.Logger == nil {
			tc.Logger = cfg.Logger
		}
		t, err := transport.New(tc)
		if err != nil {
			return nil, err
		}
		transports = append(transports, t)
	}

	return &Client{
		cfg:        cfg,
		logger:     cfg.Logger.With(slog.String("client_id", uuid.NewString())),
		metrics:    cfg.Metrics,
		tracer:     cfg.Tracer,
		transports: transports,
		sel:        newSelector(cfg.Mode, cfg.FallbackThreshold, len(cfg.Transports)),
		pending:    newPendingTable(),
		handlers:   make(map[string]NotificationHandler),
	}, nil
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ServerInfo returns the remote identity from the last initialize
// handshake, or nil before the first successful connect.
func (c *Client) ServerInfo() *protocol.ServerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverInfo
}

// RegisterNotificationHandler routes server-initiated notifications for
// method to h. Notifications with no registered handler are dropped.
func (c *Client) RegisterNotificationHandler(method string, h NotificationHandler) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.handlers[method] = h
}

// Connect drives the state machine to Connected, applying the retry policy
// and fallback strategy, and returns a single terminal error only after
// every configured transport and attempt is exhausted. Concurrent calls
// while already Connecting or Connected coalesce into the in-progress
// attempt's outcome.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateClosed:
		c.mu.Unlock()
		return errClientClosed()
	case StateConnected:
		c.mu.Unlock()
		return nil
	case StateConnecting, StateReconnecting:
		if c.connecting != nil {
			doing := c.connecting
			c.mu.Unlock()
			select {
			case <-doing:
				c.mu.Lock()
				defer c.mu.Unlock()
				return c.connectErr
			case <-ctx.Done():
				return mcperrors.CallCancelled("connect", ctx.Err())
			}
		}
		// Stale intermediate state with no attempt in flight: fall through
		// and start one.
	}
	c.state = StateConnecting
	doing := make(chan struct{})
	c.connecting = doing
	c.mu.Unlock()

	err := c.establish(ctx)
	c.finishConnect(doing, err)
	return err
}

// finishConnect publishes one connect attempt's outcome and wakes its
// waiters. If the connection dropped right after this attempt succeeded, a
// background reconnect may already have installed its own channel; only
// this attempt's channel is cleared.
func (c *Client) finishConnect(doing chan struct{}, err error) {
	c.mu.Lock()
	c.connectErr = err
	if c.connecting == doing {
		c.connecting = nil
	}
	c.mu.Unlock()
	close(doing)
}

// Disconnect closes the active transport, fails every pending request, and
// transitions to Closed. Terminal: a later Connect on this value starts
// from Closed and is refused; construct a new Client instead.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosed
	active := c.active
	c.active = nil
	cancel := c.loopCancel
	c.loopCancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if active != nil {
		_ = active.Close()
	}
	n := c.pending.failAll(mcperrors.ConnectionLost("client", nil).WithDetail("client disconnected"))
	if n > 0 {
		c.logger.Info("disconnect failed pending calls", slog.Int("count", n))
	}
	c.metrics.SetPending(0)
	return nil
}

// Call issues a correlated request with the default per-call timeout and
// suspends the caller until it resolves, times out, or the connection is
// lost. It never hangs indefinitely.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return c.CallWithTimeout(ctx, method, params, c.cfg.CallTimeout)
}

// CallWithTimeout is Call with an explicit per-call deadline.
func (c *Client) CallWithTimeout(ctx context.Context, method string, params any, timeout time.Duration) (json.RawMessage, error) {
	c.mu.Lock()
	state := c.state
	active := c.active
	c.mu.Unlock()

	if state != StateConnected || active == nil {
		if state == StateClosed {
			return nil, errClientClosed()
		}
		return nil, mcperrors.New(mcperrors.CodeConnectionLost,
			"client is not connected", mcperrors.CategoryConnection, mcperrors.SeverityError).
			WithDetail("state: " + state.String())
	}
	return c.call(ctx, active, method, params, timeout)
}

// call registers a fresh correlation identifier, sends the request on t,
// and waits for exactly one terminal outcome.
func (c *Client) call(ctx context.Context, t transport.Transport, method string, params any, timeout time.Duration) (json.RawMessage, error) {
	start := time.Now()
	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.Start(ctx, "mcp.call",
			trace.WithAttributes(attribute.String("mcp.method", method)))
		defer span.End()
		defer func() {
			if span.IsRecording() {
				span.SetAttributes(attribute.Int64("mcp.duration_ms", time.Since(start).Milliseconds()))
			}
		}()
	}

	req, err := protocol.NewRequest(c.nextID.Add(1), method, params)
	if err != nil {
		return nil, mcperrors.Wrap(err, mcperrors.CodeInvalidParams,
			"invalid call parameters", mcperrors.CategoryProtocol, mcperrors.SeverityError)
	}
	data, err := protocol.EncodeMessage(req)
	if err != nil {
		return nil, mcperrors.Wrap(err, mcperrors.CodeInvalidParams,
			"invalid call parameters", mcperrors.CategoryProtocol, mcperrors.SeverityError)
	}

	entry := c.pending.register(req.ID, method, timeout)
	c.metrics.SetPending(c.pending.len())

	sendCtx, cancelSend := context.WithTimeout(ctx, timeout)
	defer cancelSend()
	if err := t.Send(sendCtx, data); err != nil {
		c.pending.fail(req.ID, err)
		return c.finish(ctx, method, start, <-entry.done)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case out := <-entry.done:
		return c.finish(ctx, method, start, out)
	case <-timer.C:
		c.pending.fail(req.ID, mcperrors.CallTimeout(method, timeout.Milliseconds()))
		return c.finish(ctx, method, start, <-entry.done)
	case <-ctx.Done():
		c.pending.fail(req.ID, mcperrors.CallCancelled(method, ctx.Err()))
		return c.finish(ctx, method, start, <-entry.done)
	}
}

// finish records instrumentation for a completed call and unpacks its
// outcome.
func (c *Client) finish(ctx context.Context, method string, start time.Time, out outcome) (json.RawMessage, error) {
	c.metrics.SetPending(c.pending.len())
	result := "ok"
	if out.err != nil {
		if e, ok := mcperrors.As(out.err); ok {
			result = string(e.Category())
		} else {
			result = "error"
		}
	}
	c.metrics.ObserveRequest(method, result, time.Since(start))

	if c.tracer != nil && out.err != nil {
		span := trace.SpanFromContext(ctx)
		span.SetStatus(codes.Error, out.err.Error())
	}
	return out.result, out.err
}

// Notify sends a fire-and-forget notification on the active transport.
func (c *Client) Notify(ctx context.Context, method string, params any) error {
	c.mu.Lock()
	state := c.state
	active := c.active
	c.mu.Unlock()
	if state != StateConnected || active == nil {
		return mcperrors.New(mcperrors.CodeConnectionLost,
			"client is not connected", mcperrors.CategoryConnection, mcperrors.SeverityError)
	}

	note, err := protocol.NewNotification(method, params)
	if err != nil {
		return mcperrors.Wrap(err, mcperrors.CodeInvalidParams,
			"invalid notification parameters", mcperrors.CategoryProtocol, mcperrors.SeverityError)
	}
	data, err := protocol.EncodeMessage(note)
	if err != nil {
		return mcperrors.Wrap(err, mcperrors.CodeInvalidParams,
			"invalid notification parameters", mcperrors.CategoryProtocol, mcperrors.SeverityError)
	}
	return active.Send(ctx, data)
}

// establish runs open attempts against the configured transports until one
// connects and completes the handshake, or the budget is exhausted.
func (c *Client) establish(ctx context.Context) error {
	if c.cfg.Mode == Race && len(c.transports) > 1 {
		return c.establishRace(ctx)
	}

	var lastErr error
	for {
		if err := ctx.Err(); err != nil {
			c.setState(StateFailed)
			return mcperrors.CallCancelled("connect", err)
		}
		if c.State() == StateClosed {
			return errClientClosed()
		}

		idx := c.sel.current()
		t := c.transports[idx]
		name := string(c.cfg.Transports[idx].Type)

		openCtx, cancelOpen := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		err := t.Open(openCtx)
		cancelOpen()

		if err == nil {
			c.sel.recordSuccess()
			c.metrics.RecordOpen(name, "ok")
			if !c.adopt(idx, t) {
				return errClientClosed()
			}
			if hErr := c.handshake(ctx); hErr != nil {
				c.logger.Warn("handshake failed", slog.String("transport", name), logging.ErrAttr(hErr))
				c.demote(t)
				err = hErr
			} else {
				c.logger.Info("connected", slog.String("transport", name))
				return nil
			}
		}

		lastErr = err
		c.metrics.RecordOpen(name, "error")

		if connectFatal(err) {
			// Auth and protocol failures are terminal; retrying cannot help.
			c.setState(StateFailed)
			return err
		}

		_, switched := c.sel.recordFailure()
		if switched {
			next := string(c.cfg.Transports[c.sel.current()].Type)
			c.logger.Info("falling back to alternate transport",
				slog.String("from", name), slog.String("to", next))
			continue
		}

		if c.sel.exhausted(c.cfg.Retry.MaxAttempts) {
			c.setState(StateFailed)
			return mcperrors.ConnectionFailed(name, c.cfg.Transports[idx].Endpoint, lastErr).
				WithDetail("all transports and retry attempts exhausted")
		}

		delay := c.cfg.Retry.NextDelay(c.sel.consecutiveFailures())
		c.logger.Debug("retrying connect",
			slog.String("transport", name), slog.Duration("delay", delay))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			c.setState(StateFailed)
			return mcperrors.CallCancelled("connect", ctx.Err())
		}
	}
}

// establishRace opens every configured transport concurrently, adopts the
// first to succeed, and closes the rest.
func (c *Client) establishRace(ctx context.Context) error {
	var lastErr error
	for attempt := 1; ; attempt++ {
		if c.State() == StateClosed {
			return errClientClosed()
		}
		winner, err := c.raceOnce(ctx)
		if err == nil {
			t := c.transports[winner]
			c.sel.setActive(winner)
			name := string(c.cfg.Transports[winner].Type)
			c.metrics.RecordOpen(name, "ok")
			if !c.adopt(winner, t) {
				return errClientClosed()
			}
			if hErr := c.handshake(ctx); hErr != nil {
				c.demote(t)
				err = hErr
			} else {
				c.logger.Info("connected", slog.String("transport", name), slog.String("mode", "race"))
				return nil
			}
		}

		lastErr = err
		if connectFatal(err) {
			c.setState(StateFailed)
			return err
		}
		if attempt >= c.cfg.Retry.MaxAttempts {
			c.setState(StateFailed)
			return mcperrors.ConnectionFailed("race", "", lastErr).
				WithDetail("all transports and retry attempts exhausted")
		}
		select {
		case <-time.After(c.cfg.Retry.NextDelay(attempt)):
		case <-ctx.Done():
			c.setState(StateFailed)
			return mcperrors.CallCancelled("connect", ctx.Err())
		}
	}
}

// raceOnce runs one concurrent open round and returns the winning index.
// Late winners beyond the first are closed as they land.
func (c *Client) raceOnce(ctx context.Context) (int, error) {
	raceCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)

	type attempt struct {
		idx int
		err error
	}
	results := make(chan attempt, len(c.transports))
	for i, t := range c.transports {
		go func(i int, t transport.Transport) {
			results <- attempt{idx: i, err: t.Open(raceCtx)}
		}(i, t)
	}

	winner := -1
	var lastErr error
	remaining := len(c.transports)
	for remaining > 0 && winner == -1 {
		r := <-results
		remaining--
		if r.err == nil {
			winner = r.idx
		} else {
			lastErr = r.err
		}
	}

	// Cancel stragglers and close any that still manage to open.
	cancel()
	go func(remaining int) {
		for ; remaining > 0; remaining-- {
			r := <-results
			if r.err == nil {
				_ = c.transports[r.idx].Close()
			}
		}
	}(remaining)

	if winner == -1 {
		return -1, lastErr
	}
	return winner, nil
}

// adopt installs t as the single active transport and starts its reader
// loop. The state stays in its intermediate value until the handshake
// completes; only handshake publishes Connected, so concurrent Connect and
// Call observers never see a half-initialized connection. Returns false if
// the client was closed while the open was in flight; the freshly opened
// transport is released again.
func (c *Client) adopt(idx int, t transport.Transport) bool {
	loopCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		cancel()
		_ = t.Close()
		return false
	}
	c.active = t
	c.activeIdx = idx
	c.loopCancel = cancel
	c.mu.Unlock()

	go c.runLoop(loopCtx, t, t.Messages(), t.Events())
	return true
}

// demote reverses adopt after a failed handshake.
func (c *Client) demote(t transport.Transport) {
	c.mu.Lock()
	if c.active == t {
		c.active = nil
		if c.loopCancel != nil {
			c.loopCancel()
			c.loopCancel = nil
		}
	}
	c.mu.Unlock()
	_ = t.Close()
}

// handshake re-sends the initialize exchange and, on success, publishes
// Connected. It runs after every successful open, including reconnections:
// the duplex transport requires the handshake before any other message on a
// fresh connection.
func (c *Client) handshake(ctx context.Context) error {
	c.mu.Lock()
	t := c.active
	c.mu.Unlock()
	if t == nil {
		return mcperrors.ConnectionLost("client", nil)
	}

	result, err := c.call(ctx, t, protocol.MethodInitialize, protocol.InitializeParams{
		ProtocolVersion: protocol.Version,
		ClientInfo:      c.cfg.ClientInfo,
	}, c.cfg.CallTimeout)
	if err != nil {
		return err
	}

	var init protocol.InitializeResult
	if err := json.Unmarshal(result, &init); err != nil {
		return mcperrors.MalformedEnvelope("invalid initialize result", err)
	}

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return errClientClosed()
	}
	if c.active != t {
		c.mu.Unlock()
		return mcperrors.ConnectionLost("client", nil).
			WithDetail("transport replaced during handshake")
	}
	c.serverInfo = init.ServerInfo
	c.state = StateConnected
	c.mu.Unlock()

	// Best effort: some servers want the initialized notification before
	// serving other methods.
	_ = c.Notify(ctx, "notifications/initialized", nil)
	return nil
}

// runLoop is the single reader consuming one transport's inbound messages
// and lifecycle events, plus the pending-table expiry tick.
func (c *Client) runLoop(ctx context.Context, t transport.Transport, msgs <-chan []byte, events <-chan transport.Event) {
	sweep := time.NewTicker(c.cfg.SweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case data, ok := <-msgs:
			if !ok {
				c.onConnectionLost(t, nil)
				return
			}
			c.handleInbound(ctx, t, data)

		case ev, ok := <-events:
			if !ok {
				c.onConnectionLost(t, nil)
				return
			}
			switch ev.Kind {
			case transport.EventClosed:
				c.onConnectionLost(t, ev.Err)
				return
			case transport.EventErrored:
				c.logger.Warn("transport error", logging.ErrAttr(ev.Err))
			}

		case now := <-sweep.C:
			if n := c.pending.sweepExpired(now); n > 0 {
				c.logger.Debug("expired pending calls", slog.Int("count", n))
				c.metrics.SetPending(c.pending.len())
			}
		}
	}
}

// handleInbound decodes one inbound message and routes it: responses
// resolve the pending table, notifications go to registered handlers, and
// server-initiated requests get answered.
func (c *Client) handleInbound(ctx context.Context, t transport.Transport, data []byte) {
	msg, err := protocol.DecodeMessage(data)
	if err != nil {
		c.logger.Warn("dropping undecodable message", logging.ErrAttr(err))
		return
	}

	switch m := msg.(type) {
	case *protocol.Response:
		if m.Error != nil {
			c.pending.fail(m.ID, mcperrors.FromCode(m.Error.Code, m.Error.Message))
		} else {
			c.pending.resolve(m.ID, m.Result)
		}

	case *protocol.Notification:
		c.dispatchNotification(m)

	case *protocol.Request:
		c.answerServerRequest(ctx, t, m)
	}
}

func (c *Client) dispatchNotification(m *protocol.Notification) {
	c.notifyMu.RLock()
	h, ok := c.handlers[m.Method]
	c.notifyMu.RUnlock()
	if !ok {
		// Fire-and-forget by definition: unknown notifications are dropped.
		c.logger.Debug("unhandled notification", slog.String("method", m.Method))
		return
	}
	h(m.Method, m.Params)
}

// answerServerRequest handles the small set of server-initiated requests a
// client must answer. Everything else is refused with method-not-found.
func (c *Client) answerServerRequest(ctx context.Context, t transport.Transport, m *protocol.Request) {
	var reply *protocol.Response
	switch m.Method {
	case protocol.MethodPing:
		reply, _ = protocol.NewResponse(m.ID, struct{}{})
	default:
		reply = protocol.NewErrorResponse(m.ID, mcperrors.CodeMethodNotFound,
			"method not supported by client: "+m.Method)
	}
	if reply == nil {
		return
	}
	data, err := protocol.EncodeMessage(reply)
	if err != nil {
		return
	}
	if err := t.Send(ctx, data); err != nil {
		c.logger.Warn("failed to answer server request",
			slog.String("method", m.Method), logging.ErrAttr(err))
	}
}

// onConnectionLost handles an unsolicited transport close: every pending
// call fails exactly once with a lost-connection error, the dead transport
// is fully closed, and reconnection starts in the background.
func (c *Client) onConnectionLost(t transport.Transport, cause error) {
	c.mu.Lock()
	if c.state == StateClosed || c.active != t {
		// Solicited close or a stale loop for an already-replaced transport.
		c.mu.Unlock()
		return
	}
	name := string(c.cfg.Transports[c.activeIdx].Type)
	c.active = nil
	if c.loopCancel != nil {
		c.loopCancel()
		c.loopCancel = nil
	}
	// A drop during the handshake window is recovered by the connect
	// attempt already in flight; only an established connection starts a
	// background reconnect.
	reconnect := c.state == StateConnected
	var doing chan struct{}
	if reconnect {
		c.state = StateReconnecting
		doing = make(chan struct{})
		c.connecting = doing
	}
	c.mu.Unlock()

	lost := mcperrors.ConnectionLost(name, cause)
	if n := c.pending.failAll(lost); n > 0 {
		c.logger.Warn("connection lost with pending calls",
			slog.String("transport", name), slog.Int("count", n))
	}
	c.metrics.SetPending(0)

	// The old transport must be fully closed before another opens: no
	// dual-active state.
	_ = t.Close()
	if !reconnect {
		return
	}
	c.metrics.RecordReconnect(name)

	go func() {
		err := c.establish(context.Background())
		c.finishConnect(doing, err)
		if err != nil {
			c.logger.Error("reconnect failed", logging.ErrAttr(err))
		}
	}()
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	if c.state != StateClosed {
		c.state = s
	}
	c.mu.Unlock()
}

// connectFatal reports whether an open or handshake failure makes further
// connect attempts pointless: a rejected credential or a protocol-level
// incompatibility does not heal with retries, unlike connection, timeout,
// rate-limit and server failures.
func connectFatal(err error) bool {
	e, ok := mcperrors.As(err)
	if !ok {
		return false
	}
	switch e.Category() {
	case mcperrors.CategoryAuth, mcperrors.CategoryProtocol:
		return true
	default:
		return false
	}
}

func errClientClosed() *mcperrors.Error {
	return mcperrors.New(mcperrors.CodeTransportClosed, "client is closed",
		mcperrors.CategoryConnection, mcperrors.SeverityWarning)
}
