package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	mcperrors "github.com/tidalhq/mcpwire/pkg/errors"
)

// WebSocketTransport is the persistent duplex transport: a single physical
// connection carries both directions. After any reconnection the
// orchestrator must re-send the initialize handshake before other traffic;
// this transport only reports the close, it never reconnects on its own.
type WebSocketTransport struct {
	base
	cfg Config
	url string

	mu      sync.Mutex
	conn    net.Conn
	writeMu sync.Mutex
	cancel  context.CancelFunc
}

func newWebSocketTransport(cfg Config) (*WebSocketTransport, error) {
	wsURL, err := toWebSocketURL(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	return &WebSocketTransport{
		base: newBase(cfg),
		cfg:  cfg,
		url:  wsURL,
	}, nil
}

// toWebSocketURL rewrites an http(s) endpoint to its ws(s) equivalent.
func toWebSocketURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", mcperrors.Wrap(err, mcperrors.CodeTransportError,
			fmt.Sprintf("invalid websocket endpoint %q", endpoint),
			mcperrors.CategoryConnection, mcperrors.SeverityError)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", mcperrors.Newf(mcperrors.CodeTransportError,
			mcperrors.CategoryConnection, mcperrors.SeverityError,
			"unsupported websocket scheme %q", u.Scheme)
	}
	return u.String(), nil
}

// Open dials the WebSocket endpoint and starts the reader loop. Concurrent
// calls coalesce into a single dial.
func (t *WebSocketTransport) Open(ctx context.Context) error {
	return t.gate.do(ctx, func() error {
		dialCtx, cancelDial := context.WithTimeout(ctx, t.cfg.ConnectTimeout)
		defer cancelDial()

		header := http.Header{}
		if t.cfg.BearerToken != "" {
			header.Set("Authorization", "Bearer "+t.cfg.BearerToken)
		}
		dialer := ws.Dialer{
			Timeout: t.cfg.ConnectTimeout,
			Header:  ws.HandshakeHeaderHTTP(header),
		}

		conn, _, _, err := dialer.Dial(dialCtx, t.url)
		if err != nil {
			return mcperrors.ConnectionFailed(string(TypeWebSocket), t.url, err)
		}

		ch := t.freshChannels()
		loopCtx, cancel := context.WithCancel(context.Background())

		t.mu.Lock()
		t.conn = conn
		t.cancel = cancel
		t.mu.Unlock()

		go t.readLoop(loopCtx, conn, ch)

		ch.emit(Event{Kind: EventOpened})
		return nil
	})
}

// readLoop feeds inbound frames into the message channel until the
// connection dies, then reports the close.
func (t *WebSocketTransport) readLoop(ctx context.Context, conn net.Conn, ch *chans) {
	for {
		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			if ctx.Err() != nil {
				// Solicited close.
				ch.emitClosed(nil)
				return
			}
			ch.emitClosed(mcperrors.ConnectionLost(string(TypeWebSocket), err))
			t.teardown()
			return
		}
		ch.deliver(data)
	}
}

// Send writes one text frame. Frames from concurrent callers are serialized
// by a write lock; interleaving frame bytes corrupts the stream.
func (t *WebSocketTransport) Send(ctx context.Context, data []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil || !t.gate.isOpen() {
		return mcperrors.TransportClosed(string(TypeWebSocket))
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	// Derived fresh per write; the zero time clears a deadline left over
	// from an earlier bounded Send.
	deadline, _ := ctx.Deadline()
	_ = conn.SetWriteDeadline(deadline)
	if err := wsutil.WriteClientText(conn, data); err != nil {
		return mcperrors.SendFailed(string(TypeWebSocket), err)
	}
	return nil
}

// Close tears the connection down. Safe to call repeatedly and mid-open.
func (t *WebSocketTransport) Close() error {
	t.teardown()
	t.channels().shutdown()
	return nil
}

func (t *WebSocketTransport) teardown() {
	t.mu.Lock()
	conn := t.conn
	cancel := t.cancel
	t.conn = nil
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	t.gate.reset()
}
