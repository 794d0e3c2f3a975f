package observability

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecording(t *testing.T) {
	m := NewMetrics(MetricsConfig{})

	m.ObserveRequest("tools/call", "ok", 25*time.Millisecond)
	m.ObserveRequest("tools/call", "ok", 50*time.Millisecond)
	m.ObserveRequest("tools/call", "timeout", time.Second)
	m.RecordOpen("websocket", "ok")
	m.RecordOpen("websocket", "error")
	m.RecordReconnect("websocket")
	m.SetPending(7)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requestTotal.WithLabelValues("tools/call", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestTotal.WithLabelValues("tools/call", "timeout")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.openTotal.WithLabelValues("websocket", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.reconnectTotal.WithLabelValues("websocket")))
	assert.Equal(t, float64(7), testutil.ToFloat64(m.pendingCalls))
}

func TestMetricsNilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("ping", "ok", time.Millisecond)
	m.RecordOpen("http", "ok")
	m.RecordReconnect("http")
	m.SetPending(3)
	assert.Nil(t, m.Registry())
	assert.NotNil(t, m.Handler())
}

func TestMetricsHandlerServesRegistry(t *testing.T) {
	m := NewMetrics(MetricsConfig{})
	m.RecordOpen("stdio", "ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "mcpwire_transport_opens_total")
}

func TestNoopTracing(t *testing.T) {
	tr, err := NewTracing(context.Background(), TracingConfig{ExporterType: ExporterNoop})
	require.NoError(t, err)
	assert.NotNil(t, tr.Tracer())
	assert.NoError(t, tr.Shutdown(context.Background()))

	var nilTr *Tracing
	assert.NotNil(t, nilTr.Tracer())
	assert.NoError(t, nilTr.Shutdown(context.Background()))
}
