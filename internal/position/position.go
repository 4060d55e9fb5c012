// Package position tracks a single venue-agnostic directional position:
// weighted-average entry price, realized P&L on reducing or flipping
// fills, and mark-to-market unrealized P&L. Quantities are signed —
// positive is long, negative is short, zero is flat.
//
// Grounded on the teacher's internal/strategy/inventory.go (float64,
// two-sided Yes/No book), generalized here to a single signed decimal
// quantity per spec.md §4.K's fill state-machine table, which only ever
// describes one side at a time and treats a direction flip as two
// separate fills (close then open) rather than a two-sided book.
package position

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is an immutable copy of a position's state at a point in time.
type Snapshot struct {
	Symbol        string
	Qty           decimal.Decimal // signed: >0 long, <0 short, 0 flat
	AvgEntryPrice decimal.Decimal
	RealizedPnL   decimal.Decimal
	UnrealizedPnL decimal.Decimal
	UpdatedAt     time.Time
}

// IsFlat reports whether the position carries no exposure.
func (s Snapshot) IsFlat() bool { return s.Qty.IsZero() }

// IsLong reports whether the position is net long.
func (s Snapshot) IsLong() bool { return s.Qty.IsPositive() }

// IsShort reports whether the position is net short.
func (s Snapshot) IsShort() bool { return s.Qty.IsNegative() }

// Tracker is a thread-safe single-symbol position tracker.
type Tracker struct {
	mu  sync.RWMutex
	pos Snapshot
}

// New creates a flat tracker for symbol.
func New(symbol string) *Tracker {
	return &Tracker{pos: Snapshot{Symbol: symbol}}
}

// Fill is a signed quantity at a price: positive size buys/opens-long,
// negative size sells/opens-short. Callers translate venue-specific
// Buy/Sell or Yes/No semantics into this signed form before calling
// ApplyFill.
type Fill struct {
	SignedSize decimal.Decimal
	Price      decimal.Decimal
	Commission decimal.Decimal
	Timestamp  time.Time
}

// ApplyFill updates the position per the state-machine table: same-
// direction fills extend the position at a new weighted-average entry
// price; opposite-direction fills reduce it and realize P&L on the
// reduced quantity; a fill that reduces through zero closes the old
// side and opens the new one at the fill price, with realized P&L
// computed only on the portion that closed the prior side.
func (t *Tracker) ApplyFill(f Fill) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case t.pos.Qty.IsZero():
		t.openLocked(f)
	case sameSign(t.pos.Qty, f.SignedSize):
		t.extendLocked(f)
	default:
		t.reduceOrFlipLocked(f)
	}
	t.pos.UpdatedAt = f.Timestamp
}

func sameSign(a, b decimal.Decimal) bool {
	return (a.IsPositive() && b.IsPositive()) || (a.IsNegative() && b.IsNegative())
}

// openLocked opens a new position from flat.
func (t *Tracker) openLocked(f Fill) {
	t.pos.Qty = f.SignedSize
	t.pos.AvgEntryPrice = f.Price
}

// extendLocked adds to a position already held in the same direction,
// recomputing the weighted-average entry price.
func (t *Tracker) extendLocked(f Fill) {
	existingNotional := t.pos.AvgEntryPrice.Mul(t.pos.Qty.Abs())
	addedNotional := f.Price.Mul(f.SignedSize.Abs())
	newQty := t.pos.Qty.Add(f.SignedSize)
	t.pos.AvgEntryPrice = existingNotional.Add(addedNotional).Div(newQty.Abs())
	t.pos.Qty = newQty
}

// reduceOrFlipLocked handles a fill opposite the current direction: it
// either reduces the position, closes it exactly, or reduces through
// zero and opens a new position on the other side.
func (t *Tracker) reduceOrFlipLocked(f Fill) {
	closingQty := f.SignedSize.Abs()
	heldQty := t.pos.Qty.Abs()

	closedQty := decimal.Min(closingQty, heldQty)
	realized := t.realizedOnClose(closedQty, f.Price).Sub(f.Commission)
	t.pos.RealizedPnL = t.pos.RealizedPnL.Add(realized)

	newQty := t.pos.Qty.Add(f.SignedSize)
	switch {
	case newQty.IsZero():
		t.pos.Qty = decimal.Zero
		t.pos.AvgEntryPrice = decimal.Zero
	case sameSign(newQty, t.pos.Qty):
		// partial reduce, direction unchanged
		t.pos.Qty = newQty
	default:
		// flipped through zero: remaining size opens fresh at fill price
		t.pos.Qty = newQty
		t.pos.AvgEntryPrice = f.Price
	}
}

// realizedOnClose computes realized P&L for closedQty (unsigned) of the
// current position closing at price. Long positions realize
// (price - entry) * qty; short positions realize (entry - price) * qty.
func (t *Tracker) realizedOnClose(closedQty, price decimal.Decimal) decimal.Decimal {
	if t.pos.Qty.IsPositive() {
		return price.Sub(t.pos.AvgEntryPrice).Mul(closedQty)
	}
	return t.pos.AvgEntryPrice.Sub(price).Mul(closedQty)
}

// MarkToMarket recomputes unrealized P&L against the current mark price.
func (t *Tracker) MarkToMarket(markPrice decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pos.Qty.IsZero() {
		t.pos.UnrealizedPnL = decimal.Zero
		return
	}
	if t.pos.Qty.IsPositive() {
		t.pos.UnrealizedPnL = markPrice.Sub(t.pos.AvgEntryPrice).Mul(t.pos.Qty)
	} else {
		t.pos.UnrealizedPnL = t.pos.AvgEntryPrice.Sub(markPrice).Mul(t.pos.Qty.Abs())
	}
}

// Snapshot returns a copy of the current position state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pos
}

// Restore overwrites the tracker's state, used when reloading a position
// from persisted runtime state on bot restart.
func (t *Tracker) Restore(s Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pos = s
}
