package client

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/tidalhq/mcpwire/pkg/errors"
)

func TestPendingResolve(t *testing.T) {
	table := newPendingTable()
	entry := table.register(1, "tools/list", time.Minute)

	ok := table.resolve(1, json.RawMessage(`{"tools":[]}`))
	assert.True(t, ok)

	out := <-entry.done
	require.NoError(t, out.err)
	assert.JSONEq(t, `{"tools":[]}`, string(out.result))
	assert.Equal(t, 0, table.len())
}

func TestPendingResolveUnknownIsNoop(t *testing.T) {
	table := newPendingTable()
	assert.False(t, table.resolve(42, nil))
	assert.False(t, table.fail(42, mcperrors.CallTimeout("x", 1)))
}

func TestPendingLateResponseAfterFailure(t *testing.T) {
	table := newPendingTable()
	entry := table.register(7, "tools/call", time.Minute)

	require.True(t, table.fail(7, mcperrors.CallTimeout("tools/call", 100)))

	// A response landing after the entry already completed is dropped.
	assert.False(t, table.resolve(7, json.RawMessage(`{}`)))

	out := <-entry.done
	assert.True(t, mcperrors.IsCategory(out.err, mcperrors.CategoryTimeout))
}

func TestPendingFailAll(t *testing.T) {
	table := newPendingTable()
	entries := make([]*pendingEntry, 5)
	for i := range entries {
		entries[i] = table.register(int64(i+1), "ping", time.Minute)
	}

	lost := mcperrors.ConnectionLost("websocket", nil)
	assert.Equal(t, 5, table.failAll(lost))
	assert.Equal(t, 0, table.len())

	for _, entry := range entries {
		out := <-entry.done
		assert.True(t, mcperrors.IsCode(out.err, mcperrors.CodeConnectionLost))
	}
}

func TestPendingSweepExpired(t *testing.T) {
	table := newPendingTable()
	stale := table.register(1, "resources/read", 10*time.Millisecond)
	fresh := table.register(2, "resources/read", time.Hour)

	n := table.sweepExpired(time.Now().Add(time.Second))
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, table.len())

	out := <-stale.done
	assert.True(t, mcperrors.IsCode(out.err, mcperrors.CodeCallTimeout))

	select {
	case <-fresh.done:
		t.Fatal("unexpired entry must not complete")
	default:
	}
}
