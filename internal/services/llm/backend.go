package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/advisor/internal/common"
	"github.com/ternarybob/advisor/internal/interfaces"
	"github.com/ternarybob/advisor/internal/models"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

// Backend implements interfaces.GenerativeBackend around a single provider
type Backend struct {
	provider Provider
	retry    RetryPolicy
	breaker  *Breaker
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   arbor.ILogger

	mu         sync.Mutex
	lastStatus models.GenerationStatus
}

// Compile-time assertion
var _ interfaces.GenerativeBackend = (*Backend)(nil)

// BackendOptions configures a Backend
type BackendOptions struct {
	Retry        RetryPolicy
	Breaker      BreakerConfig
	Timeout      time.Duration    // Per-attempt bound, 0 = none
	RateInterval time.Duration    // Minimum spacing between provider calls, 0 = unlimited
	Now          func() time.Time // Breaker clock, defaults to time.Now
}

// NewBackend wraps provider with retry, rate limiting and a quota circuit breaker
func NewBackend(provider Provider, opts BackendOptions, logger arbor.ILogger) *Backend {
	limit := rate.Inf
	if opts.RateInterval > 0 {
		limit = rate.Every(opts.RateInterval)
	}

	return &Backend{
		provider: provider,
		retry:    opts.Retry,
		breaker:  NewBreaker(opts.Breaker, opts.Now),
		limiter:  rate.NewLimiter(limit, 1),
		timeout:  opts.Timeout,
		logger:   logger,
	}
}

// NewBackendFromConfig creates the configured provider and wraps it in a Backend
func NewBackendFromConfig(ctx context.Context, config *common.Config, logger arbor.ILogger) (*Backend, error) {
	provider, err := NewProvider(ctx, config, logger)
	if err != nil {
		return nil, err
	}

	timeout, rateInterval := config.Gemini.Timeout, config.Gemini.RateLimit
	if provider.Type() == ProviderClaude {
		timeout, rateInterval = config.Claude.Timeout, config.Claude.RateLimit
	}

	backend := NewBackend(provider, BackendOptions{
		Retry:        NewRetryPolicy(config.Generation),
		Breaker:      NewBreakerConfig(config.Generation),
		Timeout:      common.ParseDurationOr(timeout, 60*time.Second),
		RateInterval: common.ParseDurationOr(rateInterval, 0),
	}, logger)

	logger.Info().
		Str("provider", string(provider.Type())).
		Str("model", provider.Model()).
		Int("max_retries", backend.retry.MaxRetries).
		Int("breaker_threshold", backend.breaker.config.Threshold).
		Msg("Generative backend initialized")

	return backend, nil
}

// Generate calls the provider for prompt. It never panics or returns nil; the
// result status tells the caller whether to fall back.
func (b *Backend) Generate(ctx context.Context, prompt *models.Prompt) *models.GenerationResult {
	if !b.breaker.Allow() {
		_, _, openUntil := b.breaker.Snapshot()
		b.logger.Debug().Str("open_until", openUntil.Format(time.RFC3339)).Msg("Circuit open, skipping provider call")
		return b.finish(&models.GenerationResult{
			Status: models.GenerationCircuitOpen,
			Err:    common.ErrCircuitOpen,
		})
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt < b.retry.Attempts(); attempt++ {
		if err := b.limiter.Wait(ctx); err != nil {
			lastErr = err
			break
		}

		attempts++
		text, err := b.call(ctx, prompt)
		status := Classify(err)

		switch status {
		case models.GenerationSuccess:
			b.breaker.RecordOther()
			return b.finish(&models.GenerationResult{Status: status, Text: text, Attempts: attempts})

		case models.GenerationQuotaExceeded:
			if b.breaker.RecordQuota() {
				state, _, openUntil := b.breaker.Snapshot()
				b.logger.Warn().
					Str("provider", string(b.provider.Type())).
					Str("breaker_state", string(state)).
					Str("open_until", openUntil.Format(time.RFC3339)).
					Msg("Quota exhausted, circuit opened")
			}
			return b.finish(&models.GenerationResult{Status: status, Attempts: attempts, Err: wrapStatus(status, err)})

		case models.GenerationFatal:
			b.breaker.RecordOther()
			b.logger.Error().Err(err).Str("provider", string(b.provider.Type())).Msg("Fatal generation error")
			return b.finish(&models.GenerationResult{Status: status, Attempts: attempts, Err: wrapStatus(status, err)})
		}

		lastErr = err
		if ctx.Err() != nil || attempt == b.retry.Attempts()-1 {
			break
		}

		backoff := b.retry.Backoff(attempt, ExtractRetryDelay(err))
		b.logger.Warn().
			Int("attempt", attempts).
			Dur("backoff", backoff).
			Err(err).
			Msg("Retrying generation after transient error")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			lastErr = ctx.Err()
		case <-timer.C:
		}
		if ctx.Err() != nil {
			break
		}
	}

	b.breaker.RecordOther()
	return b.finish(&models.GenerationResult{
		Status:   models.GenerationTransient,
		Attempts: attempts,
		Err:      wrapStatus(models.GenerationTransient, lastErr),
	})
}

// call runs one provider attempt under the per-attempt timeout
func (b *Backend) call(ctx context.Context, prompt *models.Prompt) (string, error) {
	attemptCtx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	return b.provider.Generate(attemptCtx, prompt)
}

func (b *Backend) finish(result *models.GenerationResult) *models.GenerationResult {
	b.mu.Lock()
	b.lastStatus = result.Status
	b.mu.Unlock()
	return result
}

// wrapStatus makes err match the sentinel of status under errors.Is
func wrapStatus(status models.GenerationStatus, err error) error {
	sentinel := statusError(status)
	if err == nil {
		return sentinel
	}
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// Health returns a snapshot of the provider and breaker
func (b *Backend) Health() models.BackendHealth {
	state, streak, openUntil := b.breaker.Snapshot()

	b.mu.Lock()
	last := b.lastStatus
	b.mu.Unlock()

	health := models.BackendHealth{
		Provider:         string(b.provider.Type()),
		Model:            b.provider.Model(),
		BreakerState:     string(state),
		ConsecutiveQuota: streak,
		LastStatus:       string(last),
	}
	if state == BreakerOpen {
		health.OpenUntil = openUntil
	}
	return health
}

// Close releases the provider
func (b *Backend) Close() error {
	return b.provider.Close()
}
