package llm

import (
	"sync"
	"time"

	"github.com/ternarybob/advisor/internal/common"
)

// BreakerState is the circuit breaker position
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// BreakerConfig controls when quota errors open the circuit
type BreakerConfig struct {
	Threshold int           // Consecutive quota errors needed to open
	Window    time.Duration // The streak must fit within this window
	Cooldown  time.Duration // How long calls are skipped once open
}

// NewBreakerConfig builds a BreakerConfig from the generation config
func NewBreakerConfig(config common.GenerationConfig) BreakerConfig {
	return BreakerConfig{
		Threshold: config.BreakerThreshold,
		Window:    common.ParseDurationOr(config.BreakerWindow, 5*time.Minute),
		Cooldown:  common.ParseDurationOr(config.BreakerCooldown, 2*time.Minute),
	}
}

// Breaker opens once the last Threshold quota errors, with no other outcome
// between them, all fall within a rolling Window. Calls are skipped until
// Cooldown has elapsed. A single caller is then admitted as a probe: another
// quota error reopens immediately, any other outcome closes the circuit.
type Breaker struct {
	mu        sync.Mutex
	config    BreakerConfig
	now       func() time.Time
	state     BreakerState
	streak    int
	recent    []time.Time // ring of the last Threshold quota error times
	next      int
	openUntil time.Time
	probing   bool
	probeAt   time.Time
}

// NewBreaker creates a closed breaker. now defaults to time.Now.
func NewBreaker(config BreakerConfig, now func() time.Time) *Breaker {
	if now == nil {
		now = time.Now
	}
	if config.Threshold <= 0 {
		config.Threshold = 1
	}
	return &Breaker{
		config: config,
		now:    now,
		state:  BreakerClosed,
		recent: make([]time.Time, 0, config.Threshold),
	}
}

// Allow reports whether a call may be attempted
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if now.Before(b.openUntil) {
			return false
		}
		b.state = BreakerHalfOpen
	}

	// Half open: one probe at a time. A probe that never reports back is
	// replaced after another cooldown.
	if b.probing && now.Sub(b.probeAt) < b.config.Cooldown {
		return false
	}
	b.probing = true
	b.probeAt = now
	return true
}

// RecordQuota counts a quota error and reports whether it opened the circuit
func (b *Breaker) RecordQuota() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if b.state == BreakerHalfOpen {
		b.open(now)
		return true
	}
	if b.state == BreakerOpen {
		return false
	}

	b.streak++
	if len(b.recent) < b.config.Threshold {
		b.recent = append(b.recent, now)
	} else {
		b.recent[b.next] = now
	}
	b.next = (b.next + 1) % b.config.Threshold

	if len(b.recent) < b.config.Threshold {
		return false
	}
	oldest := b.recent[b.next]
	if b.config.Window > 0 && now.Sub(oldest) > b.config.Window {
		return false
	}
	b.open(now)
	return true
}

// RecordOther resets the streak after any non-quota outcome
func (b *Breaker) RecordOther() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetStreak()
	if b.state == BreakerHalfOpen {
		b.state = BreakerClosed
		b.openUntil = time.Time{}
		b.probing = false
	}
}

func (b *Breaker) open(now time.Time) {
	b.state = BreakerOpen
	b.openUntil = now.Add(b.config.Cooldown)
	b.probing = false
	b.resetStreak()
}

func (b *Breaker) resetStreak() {
	b.streak = 0
	b.recent = b.recent[:0]
	b.next = 0
}

// Snapshot returns the state, current quota streak and end of the open period
func (b *Breaker) Snapshot() (BreakerState, int, time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.state
	if state == BreakerOpen && !b.now().Before(b.openUntil) {
		state = BreakerHalfOpen
	}
	return state, b.streak, b.openUntil
}
