package client

import (
	"encoding/json"
	"sync"
	"time"

	mcperrors "github.com/tidalhq/mcpwire/pkg/errors"
)

// outcome is the terminal result of one pending request: a result payload
// or a classified error, never both.
type outcome struct {
	result json.RawMessage
	err    error
}

// pendingEntry correlates one outgoing request with its awaiting caller.
type pendingEntry struct {
	id       int64
	method   string
	issued   time.Time
	deadline time.Time
	done     chan outcome // buffered; written exactly once
}

// pendingTable correlates correlation identifiers to awaiting callers. It is
// the only shared mutable structure between concurrent callers and the
// reader loop, so every operation holds the one lock. An entry completes
// exactly once: resolve or fail on an unknown or already-removed id is a
// no-op, which makes duplicate and late responses harmless.
type pendingTable struct {
	mu      sync.Mutex
	entries map[int64]*pendingEntry
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[int64]*pendingEntry)}
}

func (t *pendingTable) register(id int64, method string, timeout time.Duration) *pendingEntry {
	now := time.Now()
	entry := &pendingEntry{
		id:       id,
		method:   method,
		issued:   now,
		deadline: now.Add(timeout),
		done:     make(chan outcome, 1),
	}
	t.mu.Lock()
	t.entries[id] = entry
	t.mu.Unlock()
	return entry
}

// resolve completes the entry with a result. Returns false if the id is
// unknown (already resolved, timed out, or never registered).
func (t *pendingTable) resolve(id int64, result json.RawMessage) bool {
	t.mu.Lock()
	entry, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	entry.done <- outcome{result: result}
	return true
}

// fail completes the entry with an error. Returns false if the id is
// unknown.
func (t *pendingTable) fail(id int64, err error) bool {
	t.mu.Lock()
	entry, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	entry.done <- outcome{err: err}
	return true
}

// failAll completes every pending entry with err. Used on disconnect so
// every in-flight call fails deterministically, exactly once.
func (t *pendingTable) failAll(err error) int {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[int64]*pendingEntry)
	t.mu.Unlock()

	for _, entry := range entries {
		entry.done <- outcome{err: err}
	}
	return len(entries)
}

// sweepExpired fails every entry whose deadline has passed. Called on a
// periodic tick so a request whose caller went away still times out even
// with no further traffic.
func (t *pendingTable) sweepExpired(now time.Time) int {
	t.mu.Lock()
	var expired []*pendingEntry
	for id, entry := range t.entries {
		if now.After(entry.deadline) {
			delete(t.entries, id)
			expired = append(expired, entry)
		}
	}
	t.mu.Unlock()

	for _, entry := range expired {
		entry.done <- outcome{err: mcperrors.CallTimeout(entry.method, now.Sub(entry.issued).Milliseconds())}
	}
	return len(expired)
}

func (t *pendingTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
