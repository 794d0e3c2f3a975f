package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/tmaxmax/go-sse"

	mcperrors "github.com/tidalhq/mcpwire/pkg/errors"
	"github.com/tidalhq/mcpwire/pkg/protocol"
)

// SSETransport is the server-push streaming transport. The push channel and
// the request channel are separate connections: server-initiated events
// arrive over an SSE subscription, while outbound requests travel over an
// authenticated HTTP side channel. The push channel cannot carry custom
// headers, so Open first performs the initialize exchange on the side
// channel and embeds the returned session token in the subscription URL.
type SSETransport struct {
	base
	cfg    Config
	client *http.Client

	mu      sync.Mutex
	session string
	cancel  context.CancelFunc
}

func newSSETransport(cfg Config) *SSETransport {
	return &SSETransport{
		base:   newBase(cfg),
		cfg:    cfg,
		client: cfg.httpClient(),
	}
}

// Open performs the side-channel handshake, then attaches to the push
// stream. Concurrent calls coalesce into a single attempt.
func (t *SSETransport) Open(ctx context.Context) error {
	return t.gate.do(ctx, func() error {
		openCtx, cancelOpen := context.WithTimeout(ctx, t.cfg.ConnectTimeout)
		defer cancelOpen()

		session, err := t.handshake(openCtx)
		if err != nil {
			return err
		}

		ch := t.freshChannels()
		streamCtx, cancel := context.WithCancel(context.Background())

		body, err := t.subscribe(streamCtx, session)
		if err != nil {
			cancel()
			return err
		}

		t.mu.Lock()
		t.session = session
		t.cancel = cancel
		t.mu.Unlock()

		go t.readLoop(streamCtx, body, ch)

		ch.emit(Event{Kind: EventOpened})
		return nil
	})
}

// handshake runs the initialize exchange over the authenticated side
// channel and returns the session token for the push subscription. Servers
// that do not issue one get a client-generated stream id instead.
func (t *SSETransport) handshake(ctx context.Context) (string, error) {
	req, err := protocol.NewRequest(0, protocol.MethodInitialize, protocol.InitializeParams{
		ProtocolVersion: protocol.Version,
		ClientInfo:      protocol.ClientInfo{Name: "mcpwire", Version: "1.0.0"},
	})
	if err != nil {
		return "", mcperrors.ConnectionFailed(string(TypeSSE), t.cfg.Endpoint, err)
	}
	data, err := protocol.EncodeMessage(req)
	if err != nil {
		return "", mcperrors.ConnectionFailed(string(TypeSSE), t.cfg.Endpoint, err)
	}

	resp, err := t.post(ctx, data, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", mcperrors.FromHTTPStatus(string(TypeSSE), resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", mcperrors.ConnectionFailed(string(TypeSSE), t.cfg.Endpoint, err)
	}

	msg, err := protocol.DecodeMessage(body)
	if err != nil {
		return "", err
	}
	reply, ok := msg.(*protocol.Response)
	if !ok {
		return "", mcperrors.MalformedEnvelope("initialize reply is not a response", nil)
	}
	if reply.Error != nil {
		return "", mcperrors.FromCode(reply.Error.Code, reply.Error.Message)
	}

	var result protocol.InitializeResult
	if err := json.Unmarshal(reply.Result, &result); err != nil {
		return "", mcperrors.MalformedEnvelope("invalid initialize result", err)
	}

	if result.SessionToken != "" {
		return result.SessionToken, nil
	}
	if header := resp.Header.Get("MCP-Session-ID"); header != "" {
		return header, nil
	}
	return uuid.NewString(), nil
}

// subscribe opens the push stream. Authentication travels in the session
// query parameter because the push channel cannot carry headers.
func (t *SSETransport) subscribe(ctx context.Context, session string) (io.ReadCloser, error) {
	u, err := url.Parse(t.cfg.PushEndpoint)
	if err != nil {
		return nil, mcperrors.ConnectionFailed(string(TypeSSE), t.cfg.PushEndpoint, err)
	}
	q := u.Query()
	q.Set("session", session)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, mcperrors.ConnectionFailed(string(TypeSSE), u.String(), err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, mcperrors.ConnectionFailed(string(TypeSSE), u.String(), err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, mcperrors.FromHTTPStatus(string(TypeSSE), resp.StatusCode)
	}
	return resp.Body, nil
}

// readLoop consumes the push stream and delivers each event payload.
func (t *SSETransport) readLoop(ctx context.Context, body io.ReadCloser, ch *chans) {
	defer body.Close()

	for ev, err := range sse.Read(body, nil) {
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				ch.emitClosed(nil)
				return
			}
			ch.emitClosed(mcperrors.ConnectionLost(string(TypeSSE), err))
			t.teardown()
			return
		}
		switch ev.Type {
		case "", "message":
			ch.deliver([]byte(ev.Data))
		default:
			t.logger.Debug("ignoring push event", slog.String("type", ev.Type))
		}
	}

	// Stream ended without error: the server closed the push channel.
	if ctx.Err() != nil {
		ch.emitClosed(nil)
		return
	}
	ch.emitClosed(mcperrors.ConnectionLost(string(TypeSSE), fmt.Errorf("push stream ended")))
	t.teardown()
}

// Send posts one encoded message over the authenticated side channel. A
// JSON response body, if any, is delivered through Messages; correlated
// responses may equally arrive over the push stream.
func (t *SSETransport) Send(ctx context.Context, data []byte) error {
	t.mu.Lock()
	session := t.session
	t.mu.Unlock()
	if !t.gate.isOpen() {
		return mcperrors.TransportClosed(string(TypeSSE))
	}

	resp, err := t.post(ctx, data, session)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return mcperrors.FromHTTPStatus(string(TypeSSE), resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return mcperrors.SendFailed(string(TypeSSE), err)
	}
	if len(bytes.TrimSpace(body)) > 0 {
		t.channels().deliver(body)
	}
	return nil
}

func (t *SSETransport) post(ctx context.Context, data []byte, session string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, mcperrors.SendFailed(string(TypeSSE), err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if t.cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.cfg.BearerToken)
	}
	if session != "" {
		req.Header.Set("MCP-Session-ID", session)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, mcperrors.SendFailed(string(TypeSSE), err)
	}
	return resp, nil
}

// Close detaches from the push stream. Safe to call repeatedly and
// mid-open (cancels the attempt).
func (t *SSETransport) Close() error {
	t.teardown()
	t.channels().shutdown()
	return nil
}

func (t *SSETransport) teardown() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.session = ""
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	t.gate.reset()
}
