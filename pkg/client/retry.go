package client

import (
	cryptorand "crypto/rand"
	"math"
	"math/big"
	"time"
)

// RetryPolicy maps an attempt number to a backoff delay:
//
//	delay(n) = min(MaxDelay, BaseDelay * Multiplier^(n-1)) * (1 ± JitterFraction)
//
// NextDelay is a pure function of the attempt number (modulo jitter);
// attempt counting and the MaxAttempts threshold are enforced by the
// client, not here.
type RetryPolicy struct {
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
	MaxAttempts    int
}

// DefaultRetryPolicy mirrors the common production defaults: 1s base, 30s
// cap, doubling, 10% jitter, five attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:      time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		MaxAttempts:    5,
	}
}

// NextDelay returns the delay before the given attempt (1-based). Attempt
// values below 1 yield zero.
func (p RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}

	backoff := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if max := float64(p.MaxDelay); backoff > max {
		backoff = max
	}

	if p.JitterFraction > 0 {
		if r, err := secureRandFloat64(); err == nil {
			backoff *= 1 + p.JitterFraction*(r*2-1)
		}
	}

	return time.Duration(backoff)
}

// secureRandFloat64 generates a cryptographically secure random float64 in
// [0, 1).
func secureRandFloat64() (float64, error) {
	n, err := cryptorand.Int(cryptorand.Reader, big.NewInt(1<<53))
	if err != nil {
		return 0, err
	}
	return float64(n.Int64()) / float64(1<<53), nil
}
