package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectorPrimaryOnlyNeverSwitches(t *testing.T) {
	s := newSelector(PrimaryOnly, 3, 2)
	for i := 0; i < 10; i++ {
		idx, switched := s.recordFailure()
		assert.Equal(t, 0, idx)
		assert.False(t, switched)
	}
	assert.Equal(t, 0, s.current())
}

func TestSelectorFallbackAfterThreshold(t *testing.T) {
	s := newSelector(PrimaryWithFallback, 3, 2)

	_, switched := s.recordFailure()
	assert.False(t, switched)
	_, switched = s.recordFailure()
	assert.False(t, switched)
	assert.Equal(t, 0, s.current(), "still on primary before the threshold")

	idx, switched := s.recordFailure()
	assert.True(t, switched, "third consecutive failure moves to the fallback")
	assert.Equal(t, 1, idx)
	assert.Equal(t, 1, s.current())
	assert.Equal(t, 0, s.consecutiveFailures(), "fresh transport starts with a clean streak")
}

func TestSelectorSuccessResetsStreak(t *testing.T) {
	s := newSelector(PrimaryWithFallback, 3, 2)
	s.recordFailure()
	s.recordFailure()
	s.recordSuccess()
	assert.Equal(t, 0, s.consecutiveFailures())

	// The streak is consecutive: two more failures still do not switch.
	_, switched := s.recordFailure()
	assert.False(t, switched)
	_, switched = s.recordFailure()
	assert.False(t, switched)
}

func TestSelectorExhausted(t *testing.T) {
	s := newSelector(PrimaryOnly, 3, 1)
	for i := 0; i < 4; i++ {
		assert.False(t, s.exhausted(5))
		s.recordFailure()
	}
	assert.False(t, s.exhausted(5))
	s.recordFailure()
	assert.True(t, s.exhausted(5))
}

func TestSelectorExhaustedWithRemainingFallback(t *testing.T) {
	s := newSelector(PrimaryWithFallback, 5, 2)
	for i := 0; i < 3; i++ {
		s.recordFailure()
	}
	// Three failures on the primary, but a fallback remains.
	assert.False(t, s.exhausted(3))
}

func TestSelectorSetActive(t *testing.T) {
	s := newSelector(Race, 3, 3)
	s.recordFailure()
	s.setActive(2)
	assert.Equal(t, 2, s.current())
	assert.Equal(t, 0, s.consecutiveFailures())
}

func TestFallbackModeString(t *testing.T) {
	assert.Equal(t, "primary-only", PrimaryOnly.String())
	assert.Equal(t, "primary-with-fallback", PrimaryWithFallback.String())
	assert.Equal(t, "race", Race.String())
}
