package arb

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// OpenPosition is one still-unsettled cross-venue arbitrage leg pair,
// keyed by the opportunity that created it.
type OpenPosition struct {
	OpportunityID string
	EntryCost     decimal.Decimal
	Fees          decimal.Decimal
	OpenedAt      time.Time
}

// SettledPosition is an OpenPosition moved to history once both legs
// have settled, carrying its realized P&L.
type SettledPosition struct {
	OpenPosition
	Payout      decimal.Decimal
	RealizedPnL decimal.Decimal
	SettledAt   time.Time
}

// SettlementChecker reports whether both legs of id have settled, and if
// so the total payout received.
type SettlementChecker func(ctx context.Context, id string) (settled bool, payout decimal.Decimal, err error)

// ReconcilerConfig controls the poll loop: a fixed PollInterval plus a
// random jitter of up to MaxJitter between polls. A failed settlement
// check is neither backed off nor counted; the position is simply checked
// again at the next poll.
type ReconcilerConfig struct {
	PollInterval time.Duration // default 30s
	MaxJitter    time.Duration // default 5s
}

// Reconciler tracks open cross-venue positions through to settlement.
type Reconciler struct {
	mu      sync.Mutex
	open    map[string]OpenPosition
	history []SettledPosition

	check SettlementChecker
	cfg   ReconcilerConfig
}

// NewReconciler creates a Reconciler polling via check.
func NewReconciler(check SettlementChecker, cfg ReconcilerConfig) *Reconciler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.MaxJitter <= 0 {
		cfg.MaxJitter = 5 * time.Second
	}
	return &Reconciler{
		open:  make(map[string]OpenPosition),
		check: check,
		cfg:   cfg,
	}
}

// Track registers a newly opened cross-venue position for settlement
// polling.
func (r *Reconciler) Track(pos OpenPosition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open[pos.OpportunityID] = pos
}

// PollOnce checks every open position once and moves settled ones to
// history, computing realized P&L as payout - entry_cost - fees.
func (r *Reconciler) PollOnce(ctx context.Context) error {
	r.mu.Lock()
	pending := make([]OpenPosition, 0, len(r.open))
	for _, p := range r.open {
		pending = append(pending, p)
	}
	r.mu.Unlock()

	for _, pos := range pending {
		settled, payout, err := r.check(ctx, pos.OpportunityID)
		if err != nil {
			continue // transient poll failure, retried next interval
		}
		if !settled {
			continue
		}

		realized := payout.Sub(pos.EntryCost).Sub(pos.Fees)
		r.mu.Lock()
		delete(r.open, pos.OpportunityID)
		r.history = append(r.history, SettledPosition{
			OpenPosition: pos,
			Payout:       payout,
			RealizedPnL:  realized,
			SettledAt:    time.Now(),
		})
		r.mu.Unlock()
	}
	return nil
}

// Run polls every PollInterval plus random jitter until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	for {
		if err := r.PollOnce(ctx); err != nil {
			// PollOnce never returns a non-nil error today, but keep the
			// check for future checker-level failures.
			_ = err
		}

		jitter := time.Duration(rand.Int63n(int64(r.cfg.MaxJitter) + 1))
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.cfg.PollInterval + jitter):
		}
	}
}

// Open returns a snapshot of currently tracked open positions.
func (r *Reconciler) Open() []OpenPosition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]OpenPosition, 0, len(r.open))
	for _, p := range r.open {
		out = append(out, p)
	}
	return out
}

// History returns settled positions recorded so far.
func (r *Reconciler) History() []SettledPosition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SettledPosition, len(r.history))
	copy(out, r.history)
	return out
}
