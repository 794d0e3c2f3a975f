package client

import "sync"

// FallbackMode selects how the client picks a transport and when it moves
// to an alternate.
type FallbackMode int

const (
	// PrimaryOnly never falls back: the first configured transport is the
	// only candidate.
	PrimaryOnly FallbackMode = iota

	// PrimaryWithFallback switches to the next configured transport after
	// a threshold of consecutive open failures on the current one.
	PrimaryWithFallback

	// Race attempts all configured transports concurrently on the first
	// connect, keeps the first to succeed, and cancels the rest.
	Race
)

func (m FallbackMode) String() string {
	switch m {
	case PrimaryOnly:
		return "primary-only"
	case PrimaryWithFallback:
		return "primary-with-fallback"
	case Race:
		return "race"
	default:
		return "unknown"
	}
}

// selector tracks per-transport consecutive open failures and decides when
// the fallback strategy moves to the next candidate. The failure counter
// resets on any successful open and whenever the strategy switches
// transports.
type selector struct {
	mu        sync.Mutex
	mode      FallbackMode
	threshold int
	active    int
	failures  []int
}

func newSelector(mode FallbackMode, threshold, candidates int) *selector {
	if threshold <= 0 {
		threshold = 3
	}
	return &selector{
		mode:      mode,
		threshold: threshold,
		failures:  make([]int, candidates),
	}
}

// current returns the index of the transport the next attempt should use.
func (s *selector) current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// recordFailure counts one consecutive open failure on the active
// transport and returns (active, switched): switched is true when the
// strategy just moved to a new transport, whose counter starts at zero.
func (s *selector) recordFailure() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[s.active]++
	if s.mode != PrimaryWithFallback {
		return s.active, false
	}
	if s.failures[s.active] >= s.threshold && s.active+1 < len(s.failures) {
		s.active++
		s.failures[s.active] = 0
		return s.active, true
	}
	return s.active, false
}

// recordSuccess resets the active transport's consecutive-failure counter.
func (s *selector) recordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[s.active] = 0
}

// setActive pins the active transport (used by race mode once a winner is
// known).
func (s *selector) setActive(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = idx
	s.failures[idx] = 0
}

// consecutiveFailures returns the active transport's current streak.
func (s *selector) consecutiveFailures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[s.active]
}

// exhausted reports whether the active transport has hit the per-transport
// attempt budget with no further candidate to move to.
func (s *selector) exhausted(maxAttempts int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failures[s.active] < maxAttempts {
		return false
	}
	if s.mode == PrimaryWithFallback && s.active+1 < len(s.failures) {
		return false
	}
	return true
}
