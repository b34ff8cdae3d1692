package llm

import (
	"regexp"
	"strconv"
	"time"

	"github.com/ternarybob/advisor/internal/common"
)

// RetryPolicy defines how transient generation failures are retried.
// Quota and fatal errors are never retried.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries int

	// InitialBackoff is the wait before the first retry
	InitialBackoff time.Duration

	// MaxBackoff caps any single wait
	MaxBackoff time.Duration

	// BackoffMultiplier is applied to the backoff on each retry
	BackoffMultiplier float64
}

// NewRetryPolicy builds a RetryPolicy from the generation config
func NewRetryPolicy(config common.GenerationConfig) RetryPolicy {
	policy := RetryPolicy{
		MaxRetries:        config.MaxRetries,
		InitialBackoff:    common.ParseDurationOr(config.InitialBackoff, time.Second),
		MaxBackoff:        common.ParseDurationOr(config.MaxBackoff, 30*time.Second),
		BackoffMultiplier: config.BackoffMultiplier,
	}
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.BackoffMultiplier < 1 {
		policy.BackoffMultiplier = 1
	}
	return policy
}

// Attempts returns the attempt ceiling
func (p RetryPolicy) Attempts() int {
	return p.MaxRetries + 1
}

// retryDelayRegex matches "Please retry in Xs" or "retryDelay:Xs" patterns
var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s"]+)(\d+(?:\.\d+)?)\s*s`)

// ExtractRetryDelay parses an API-suggested retry delay from an error.
// Returns 0 if no delay is found.
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}

	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}

	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// Backoff computes the wait before retry number attempt (0-based).
// A positive apiDelay replaces InitialBackoff as the base. The result is capped at MaxBackoff.
func (p RetryPolicy) Backoff(attempt int, apiDelay time.Duration) time.Duration {
	base := p.InitialBackoff
	if apiDelay > 0 {
		base = apiDelay
	}

	multiplier := 1.0
	for i := 0; i < attempt; i++ {
		multiplier *= p.BackoffMultiplier
	}

	backoff := time.Duration(float64(base) * multiplier)
	if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
		backoff = p.MaxBackoff
	}
	return backoff
}
