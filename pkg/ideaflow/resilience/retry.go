package resilience

import (
	"errors"
	"strings"
	"time"

	"github.com/randalmurphal/ideaflow/pkg/ideaflow/llm"
)

// RetryConfig configures the retry algorithm for a node.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration

	// BackoffFactor multiplies the delay after each attempt.
	BackoffFactor float64

	// MaxDelay caps the backoff.
	MaxDelay time.Duration

	// RetryableSubstrings identify transient failures by
	// case-insensitive match on the error message. An error matching
	// none of them fails immediately with no retry.
	RetryableSubstrings []string
}

// DefaultRetry is the standard retry configuration.
var DefaultRetry = RetryConfig{
	MaxAttempts:         3,
	InitialDelay:        1 * time.Second,
	BackoffFactor:       2.0,
	MaxDelay:            30 * time.Second,
	RetryableSubstrings: llm.RetryableSubstrings,
}

// retryable classifies an error against the config. Typed service
// errors carry their own verdict; anything else is matched by
// substring.
func (c RetryConfig) retryable(err error) bool {
	if err == nil {
		return false
	}
	var serr *llm.Error
	if errors.As(err, &serr) {
		return serr.Retryable
	}
	msg := strings.ToLower(err.Error())
	for _, s := range c.RetryableSubstrings {
		if strings.Contains(msg, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// delay returns the wait before the given retry (attempt is 1-based:
// delay(1) is the wait between attempts 1 and 2).
func (c RetryConfig) delay(attempt int) time.Duration {
	d := float64(c.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= c.BackoffFactor
	}
	if max := float64(c.MaxDelay); c.MaxDelay > 0 && d > max {
		d = max
	}
	return time.Duration(d)
}
