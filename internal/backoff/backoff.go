// Package backoff computes the delay before reconnection attempts.
package backoff

import (
	"math/rand"
	"time"
)

// Defaults for a zero-valued Policy.
const (
	DefaultBase        = 1 * time.Second
	DefaultMax         = 30 * time.Second
	DefaultMaxAttempts = 10

	// Exponent ceiling: delays stop doubling after the sixth attempt.
	maxExponent = 5

	jitterMin   = 0.85
	jitterRange = 0.30
)

// Policy computes retry delays from the attempt count. The attempt counter
// increments on every unclean close and resets to zero on a successful open;
// an explicit disconnect pins it to MaxAttempts so no further retries are
// scheduled.
type Policy struct {
	// Base is the first-attempt delay.
	Base time.Duration

	// Max caps the computed delay.
	Max time.Duration

	// MaxAttempts bounds how many reconnects are tried before the
	// connection is declared failed.
	MaxAttempts int

	// Jitter returns a multiplier for a single delay computation. When nil,
	// a value is drawn uniformly from [0.85, 1.15) to avoid synchronized
	// retry storms across many clients.
	Jitter func() float64

	// Quality returns a link-quality multiplier (>= 1) composed onto the
	// base formula. When nil the policy is the plain exponential one.
	Quality func() float64
}

// Delay returns the wait before the given attempt (1-based):
// min(base * 2^min(attempt-1, 5) * jitter, max), then scaled by the quality
// factor when one is configured.
func (p Policy) Delay(attempt int) time.Duration {
	base := p.Base
	if base <= 0 {
		base = DefaultBase
	}
	max := p.Max
	if max <= 0 {
		max = DefaultMax
	}
	if attempt < 1 {
		attempt = 1
	}

	exp := attempt - 1
	if exp > maxExponent {
		exp = maxExponent
	}

	jitter := jitterMin + rand.Float64()*jitterRange
	if p.Jitter != nil {
		jitter = p.Jitter()
	}

	d := time.Duration(float64(base) * float64(int64(1)<<exp) * jitter)
	if d > max {
		d = max
	}

	if p.Quality != nil {
		if q := p.Quality(); q > 1 {
			d = time.Duration(float64(d) * q)
		}
	}

	return d
}

// Exhausted reports whether the attempt counter has reached the retry budget.
func (p Policy) Exhausted(attempt int) bool {
	limit := p.MaxAttempts
	if limit <= 0 {
		limit = DefaultMaxAttempts
	}
	return attempt >= limit
}

// Limit returns the effective attempt ceiling.
func (p Policy) Limit() int {
	if p.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}
