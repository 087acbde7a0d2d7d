package domain

import (
	"math/rand"
	"time"
)

// RetryPolicy describes bounded exponential backoff for transient external
// failures. A single policy object keeps retry behaviour configurable and
// testable via fault injection at the adapter boundary, instead of ad hoc
// loops in each client.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// BaseDelay is the delay before the first retry; it doubles per attempt.
	BaseDelay time.Duration

	// MaxDelay caps the computed delay. Zero means no cap.
	MaxDelay time.Duration

	// Jitter adds up to this fraction (0..1) of random extra delay to
	// avoid retry stampedes against a recovering dependency.
	Jitter float64
}

// DefaultRetryPolicy returns the policy used for embedding and completion
// calls: four attempts with 500ms base delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
		Jitter:      0.2,
	}
}

// Delay returns the backoff delay before retry number attempt (1-based).
// Attempt 0 or negative yields zero.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}

	if p.Jitter > 0 {
		d += time.Duration(rand.Float64() * p.Jitter * float64(d))
	}
	return d
}

// Exhausted reports whether attempt (1-based) was the last allowed try.
func (p RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}
