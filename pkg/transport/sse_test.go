package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/tidalhq/mcpwire/pkg/errors"
	"github.com/tidalhq/mcpwire/pkg/protocol"
)

// sseServer is a minimal push server: an authenticated side channel for
// requests and a session-addressed event stream for pushes.
type sseServer struct {
	*httptest.Server

	mu           sync.Mutex
	sessionToken string
	authHeaders  []string
	sessions     []string // MCP-Session-ID headers seen on sends
	streamQuery  []string // session query params seen on subscriptions

	push chan string
}

func newSSEServer(t *testing.T) *sseServer {
	t.Helper()
	s := &sseServer{
		sessionToken: "tok-abc123",
		push:         make(chan string, 8),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /rpc", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.authHeaders = append(s.authHeaders, r.Header.Get("Authorization"))
		s.mu.Unlock()

		body, _ := io.ReadAll(r.Body)
		msg, err := protocol.DecodeMessage(body)
		require.NoError(t, err)

		if req, ok := msg.(*protocol.Request); ok && req.Method == protocol.MethodInitialize {
			reply, _ := protocol.NewResponse(req.ID, protocol.InitializeResult{
				ProtocolVersion: protocol.Version,
				ServerInfo:      &protocol.ServerInfo{Name: "push-server", Version: "1.0"},
				SessionToken:    s.sessionToken,
			})
			data, _ := protocol.EncodeMessage(reply)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(data)
			return
		}

		s.mu.Lock()
		s.sessions = append(s.sessions, r.Header.Get("MCP-Session-ID"))
		s.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.streamQuery = append(s.streamQuery, r.URL.Query().Get("session"))
		s.mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		flusher.Flush()

		for {
			select {
			case data := <-s.push:
				_, _ = io.WriteString(w, "data: "+data+"\n\n")
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func newSSEForTest(t *testing.T, srv *sseServer) *SSETransport {
	t.Helper()
	tr, err := New(Config{
		Type:         TypeSSE,
		Endpoint:     srv.URL + "/rpc",
		PushEndpoint: srv.URL + "/events",
		BearerToken:  "secret-token",
		Logger:       discardLogger(),
	})
	require.NoError(t, err)
	return tr.(*SSETransport)
}

func TestSSEOpenNegotiatesSession(t *testing.T) {
	srv := newSSEServer(t)
	tr := newSSEForTest(t, srv)

	require.NoError(t, tr.Open(context.Background()))
	defer tr.Close()

	assert.Equal(t, EventOpened, (<-tr.Events()).Kind)

	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.NotEmpty(t, srv.authHeaders)
	assert.Equal(t, "Bearer secret-token", srv.authHeaders[0],
		"the side-channel handshake is authenticated")
	require.NotEmpty(t, srv.streamQuery)
	assert.Equal(t, srv.sessionToken, srv.streamQuery[0],
		"the push subscription carries the negotiated session in the URL")
}

func TestSSEPushDelivery(t *testing.T) {
	srv := newSSEServer(t)
	tr := newSSEForTest(t, srv)
	require.NoError(t, tr.Open(context.Background()))
	defer tr.Close()

	srv.push <- `{"jsonrpc":"2.0","method":"notifications/progress","params":{"percent":10}}`
	srv.push <- `{"jsonrpc":"2.0","id":4,"result":{"tools":[]}}`

	select {
	case msg := <-tr.Messages():
		assert.JSONEq(t, `{"jsonrpc":"2.0","method":"notifications/progress","params":{"percent":10}}`, string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("push event never delivered")
	}
	select {
	case msg := <-tr.Messages():
		var resp protocol.Response
		require.NoError(t, json.Unmarshal(msg, &resp))
		assert.Equal(t, int64(4), resp.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("second push event never delivered")
	}
}

func TestSSESendCarriesSession(t *testing.T) {
	srv := newSSEServer(t)
	tr := newSSEForTest(t, srv)
	require.NoError(t, tr.Open(context.Background()))
	defer tr.Close()

	require.NoError(t, tr.Send(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)))

	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.Len(t, srv.sessions, 1)
	assert.Equal(t, srv.sessionToken, srv.sessions[0])
}

func TestSSEHandshakeAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tr, err := New(Config{
		Type:     TypeSSE,
		Endpoint: srv.URL,
		Logger:   discardLogger(),
	})
	require.NoError(t, err)

	err = tr.Open(context.Background())
	require.Error(t, err)
	assert.True(t, mcperrors.IsCategory(err, mcperrors.CategoryAuth))
}

func TestSSESendBeforeOpen(t *testing.T) {
	srv := newSSEServer(t)
	tr := newSSEForTest(t, srv)
	err := tr.Send(context.Background(), []byte(`{}`))
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeTransportClosed))
}
