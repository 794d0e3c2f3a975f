package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"http without endpoint", Config{Type: TypeHTTP}, true},
		{"http ok", Config{Type: TypeHTTP, Endpoint: "http://localhost/rpc"}, false},
		{"websocket without endpoint", Config{Type: TypeWebSocket}, true},
		{"websocket ok", Config{Type: TypeWebSocket, Endpoint: "ws://localhost/rpc"}, false},
		{"websocket bad scheme", Config{Type: TypeWebSocket, Endpoint: "ftp://localhost"}, true},
		{"sse without endpoint", Config{Type: TypeSSE}, true},
		{"sse ok", Config{Type: TypeSSE, Endpoint: "http://localhost/rpc"}, false},
		{"stdio without command", Config{Type: TypeStdio}, true},
		{"stdio ok", Config{Type: TypeStdio, Command: []string{"server", "--flag"}}, false},
		{"unknown type", Config{Type: "carrier-pigeon"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr, err := New(tc.cfg)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, tr)
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Type: TypeSSE, Endpoint: "http://localhost/rpc"}.withDefaults()
	assert.Equal(t, 30*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 256, cfg.MessageBuffer)
	assert.Equal(t, "http://localhost/rpc", cfg.PushEndpoint, "push endpoint falls back to the main endpoint")
	assert.NotNil(t, cfg.Logger)
}

func TestOpenGateCoalesces(t *testing.T) {
	var gate openGate
	var runs atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := gate.do(context.Background(), func() error {
				runs.Add(1)
				<-release
				return nil
			})
			assert.NoError(t, err)
		}()
	}

	// Give every goroutine a chance to hit the gate before releasing.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), runs.Load(), "concurrent opens must coalesce into one attempt")
	assert.True(t, gate.isOpen())

	// Already open: the callback does not run again.
	require.NoError(t, gate.do(context.Background(), func() error {
		t.Fatal("open callback must not run when already open")
		return nil
	}))
}

func TestOpenGateRetryAfterFailure(t *testing.T) {
	var gate openGate
	boom := errors.New("dial failed")

	err := gate.do(context.Background(), func() error { return boom })
	require.ErrorIs(t, err, boom)
	assert.False(t, gate.isOpen())

	// A failed attempt resets the gate; the next open runs again.
	require.NoError(t, gate.do(context.Background(), func() error { return nil }))
	assert.True(t, gate.isOpen())
}

func TestOpenGateWaiterHonorsContext(t *testing.T) {
	var gate openGate
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	go func() {
		_ = gate.do(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := gate.do(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChansDeliveryAndShutdown(t *testing.T) {
	ch := newChans(4, discardLogger())

	ch.deliver([]byte(`{"a":1}`))
	ch.emit(Event{Kind: EventOpened})

	assert.Equal(t, []byte(`{"a":1}`), <-ch.messages)
	assert.Equal(t, EventOpened, (<-ch.events).Kind)

	ch.shutdown()
	_, ok := <-ch.messages
	assert.False(t, ok, "message channel closes on shutdown")
	_, ok = <-ch.events
	assert.False(t, ok, "event channel closes on shutdown")

	// Delivery after shutdown is a silent no-op, not a panic.
	ch.deliver([]byte("late"))
	ch.emit(Event{Kind: EventErrored})
	ch.shutdown()
}

func TestChansDropsWhenFull(t *testing.T) {
	ch := newChans(1, discardLogger())
	ch.deliver([]byte("first"))
	ch.deliver([]byte("dropped"))

	assert.Equal(t, []byte("first"), <-ch.messages)
	select {
	case msg := <-ch.messages:
		t.Fatalf("expected overflow drop, got %q", msg)
	default:
	}
}

func TestBaseFreshChannelsAfterShutdown(t *testing.T) {
	b := newBase(Config{MessageBuffer: 4, Logger: discardLogger()})

	first := b.channels()
	first.shutdown()

	second := b.freshChannels()
	require.NotSame(t, first, second, "a shut-down channel set is replaced on reopen")
	assert.False(t, second.isClosed())

	// Live channels are reused as-is.
	assert.Same(t, second, b.freshChannels())
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "opened", EventOpened.String())
	assert.Equal(t, "closed", EventClosed.String())
	assert.Equal(t, "errored", EventErrored.String())
}
