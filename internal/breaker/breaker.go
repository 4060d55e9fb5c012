// Package breaker implements a three-state circuit breaker (Closed, Open,
// HalfOpen) guarding order submission to a single venue. Trip conditions
// are consecutive failures, daily realized loss, and low balance; a
// half-open probe either closes the breaker on success or reopens it on
// any failure.
//
// Grounded on the teacher's kill-switch boolean in risk/manager.go,
// generalized here to the explicit state table spec.md §4.F requires, and
// confirmed against original_source/exchange-polymarket's
// circuit_breaker.rs doc comment (daily loss threshold, consecutive
// failures, balance warning level as the three trip conditions).
package breaker

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// State is one of the three circuit breaker states.
type State string

const (
	Closed   State = "CLOSED"
	Open     State = "OPEN"
	HalfOpen State = "HALF_OPEN"
)

// Config controls trip thresholds and recovery timing.
type Config struct {
	MaxConsecutiveFailures int
	MaxDailyLoss           decimal.Decimal
	MinBalance             decimal.Decimal
	OpenDuration           time.Duration // how long Open holds before probing HalfOpen
}

// DefaultConfig mirrors the original's conservative default preset.
func DefaultConfig() Config {
	return Config{
		MaxConsecutiveFailures: 3,
		MaxDailyLoss:           decimal.NewFromInt(500),
		MinBalance:             decimal.NewFromInt(100),
		OpenDuration:           5 * time.Minute,
	}
}

// Breaker tracks consecutive-failure count and realized daily P&L for one
// venue, resetting the daily figures at UTC midnight.
type Breaker struct {
	mu sync.Mutex

	cfg Config

	state            State
	consecutiveFails int
	dailyPnL         decimal.Decimal
	dayKey           string
	openedAt         time.Time
}

// New creates a Breaker in the Closed state.
func New(cfg Config) *Breaker {
	return &Breaker{
		cfg:      cfg,
		state:    Closed,
		dailyPnL: decimal.Zero,
		dayKey:   utcDayKey(time.Now()),
	}
}

func utcDayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// rolloverLocked resets the daily loss counter if the UTC day has changed.
// Must be called with mu held.
func (b *Breaker) rolloverLocked(now time.Time) {
	key := utcDayKey(now)
	if key != b.dayKey {
		b.dayKey = key
		b.dailyPnL = decimal.Zero
	}
}

// CanTrade reports whether an order may be submitted right now. In the
// HalfOpen state this also consumes the single allowed probe: subsequent
// calls before RecordSuccess/RecordFailure resolve the probe return false.
func (b *Breaker) CanTrade() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.rolloverLocked(now)

	switch b.state {
	case Closed:
		return true
	case Open:
		if now.Sub(b.openedAt) >= b.cfg.OpenDuration {
			b.state = HalfOpen
			return true
		}
		return false
	case HalfOpen:
		return false // probe already issued, awaiting its outcome
	default:
		return false
	}
}

// RecordSuccess reports a successful order outcome with its realized P&L
// delta (may be negative for a losing close).
func (b *Breaker) RecordSuccess(pnlDelta decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.rolloverLocked(now)

	b.consecutiveFails = 0
	b.dailyPnL = b.dailyPnL.Add(pnlDelta)

	if b.state == HalfOpen {
		b.state = Closed
	}
	if b.dailyPnL.Neg().GreaterThanOrEqual(b.cfg.MaxDailyLoss) {
		b.tripLocked(now)
	}
}

// RecordFailure reports a failed order submission or rejection.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.rolloverLocked(now)

	b.consecutiveFails++

	if b.state == HalfOpen {
		b.tripLocked(now)
		return
	}
	if b.consecutiveFails >= b.cfg.MaxConsecutiveFailures {
		b.tripLocked(now)
	}
}

// RecordBalance reports the venue's current account balance; a balance
// below MinBalance trips the breaker immediately regardless of state.
func (b *Breaker) RecordBalance(balance decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if balance.LessThan(b.cfg.MinBalance) {
		b.tripLocked(time.Now())
	}
}

// tripLocked transitions to Open. Must be called with mu held.
func (b *Breaker) tripLocked(now time.Time) {
	b.state = Open
	b.openedAt = now
}

// CurrentState returns the breaker's present state without side effects
// beyond the UTC-day rollover.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rolloverLocked(time.Now())
	return b.state
}

// DailyPnL returns the running realized P&L for the current UTC day.
func (b *Breaker) DailyPnL() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rolloverLocked(time.Now())
	return b.dailyPnL
}

// Reset forces the breaker back to Closed, clearing failure and loss
// counters. Intended for operator-initiated recovery, not automatic use.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.consecutiveFails = 0
	b.dailyPnL = decimal.Zero
	b.dayKey = utcDayKey(time.Now())
}
