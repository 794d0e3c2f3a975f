package transport

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	mcperrors "github.com/tidalhq/mcpwire/pkg/errors"
)

// HTTPTransport is the one-shot request/response transport: every Send is a
// single POST round-trip and the response body is delivered through
// Messages. It keeps no state between calls, so the bearer credential and
// acceptance headers go out on every exchange.
type HTTPTransport struct {
	base
	cfg    Config
	client *http.Client
}

func newHTTPTransport(cfg Config) *HTTPTransport {
	return &HTTPTransport{
		base:   newBase(cfg),
		cfg:    cfg,
		client: cfg.httpClient(),
	}
}

// Open marks the transport usable. There is no persistent channel to
// establish; the first real exchange happens on Send.
func (t *HTTPTransport) Open(ctx context.Context) error {
	return t.gate.do(ctx, func() error {
		ch := t.freshChannels()
		ch.emit(Event{Kind: EventOpened})
		return nil
	})
}

// Send issues one POST carrying data and feeds the response body into
// Messages. Servers may answer with a JSON document or an event-stream
// body; both acceptance formats are advertised on every call because some
// servers reject requests that list only one.
func (t *HTTPTransport) Send(ctx context.Context, data []byte) error {
	if !t.gate.isOpen() {
		return mcperrors.TransportClosed(string(TypeHTTP))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint, bytes.NewReader(data))
	if err != nil {
		return mcperrors.SendFailed(string(TypeHTTP), err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if t.cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.cfg.BearerToken)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return mcperrors.SendFailed(string(TypeHTTP), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return mcperrors.FromHTTPStatus(string(TypeHTTP), resp.StatusCode)
	}

	ch := t.channels()
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		return t.drainEventStream(ch, resp.Body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return mcperrors.SendFailed(string(TypeHTTP), err)
	}
	if len(bytes.TrimSpace(body)) > 0 {
		ch.deliver(body)
	}
	return nil
}

// drainEventStream delivers each data payload of an event-stream response
// body as a separate inbound message.
func (t *HTTPTransport) drainEventStream(ch *chans, body io.Reader) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var data bytes.Buffer
	flush := func() {
		if data.Len() > 0 {
			payload := make([]byte, data.Len())
			copy(payload, data.Bytes())
			ch.deliver(payload)
			data.Reset()
		}
	}
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return mcperrors.SendFailed(string(TypeHTTP), err)
	}
	return nil
}

// Close releases the transport. Safe to call repeatedly.
func (t *HTTPTransport) Close() error {
	if t.gate.isOpen() {
		t.channels().emitClosed(nil)
	} else {
		t.channels().shutdown()
	}
	t.gate.reset()
	return nil
}
