// Package book implements the price-sorted L2 order book shared by every
// venue: bids descending, asks ascending, at most one level per price.
// Snapshots replace state atomically; incremental updates upsert a single
// level; fill simulation walks levels in price priority without mutating
// the book.
//
// Grounded on the price-level-map-plus-sorted-keys structure in
// other_examples/b5dce33c_mkhoshkam-orderbook's matching engine, adapted
// here to the simpler "no matching, just depth/fill queries" contract
// spec.md §4.C requires, and on the teacher's market.Book for the
// surrounding staleness bookkeeping.
package book

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/pkg/types"
)

// ErrCrossedBook is returned when an update would make the best bid cross
// the best ask. The book rejects the update rather than apply it.
var ErrCrossedBook = errors.New("book: crossed book")

// Book is a thread-safe L2 order book for a single symbol.
type Book struct {
	mu      sync.RWMutex
	symbol  string
	bids    map[string]decimal.Decimal // price string -> size
	asks    map[string]decimal.Decimal
	updated time.Time
}

// New creates an empty book for symbol.
func New(symbol string) *Book {
	return &Book{
		symbol: symbol,
		bids:   make(map[string]decimal.Decimal),
		asks:   make(map[string]decimal.Decimal),
	}
}

// Snapshot atomically replaces the entire book state.
func (b *Book) Snapshot(bids, asks []types.PriceLevel) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bids = make(map[string]decimal.Decimal, len(bids))
	b.asks = make(map[string]decimal.Decimal, len(asks))
	for _, lvl := range bids {
		if lvl.Size.IsPositive() {
			b.bids[lvl.Price.String()] = lvl.Size
		}
	}
	for _, lvl := range asks {
		if lvl.Size.IsPositive() {
			b.asks[lvl.Price.String()] = lvl.Size
		}
	}
	b.updated = time.Now()
}

// Apply upserts a single level. A size of zero removes the level. The
// update is validated against the opposite side first; a crossing update
// is rejected and the book is left unchanged.
func (b *Book) Apply(side types.BookSide, price, size decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.wouldCross(side, price, size); err != nil {
		return err
	}

	key := price.String()
	switch side {
	case types.SideBid:
		if size.IsZero() {
			delete(b.bids, key)
		} else {
			b.bids[key] = size
		}
	case types.SideAsk:
		if size.IsZero() {
			delete(b.asks, key)
		} else {
			b.asks[key] = size
		}
	}
	b.updated = time.Now()
	return nil
}

// wouldCross reports ErrCrossedBook if applying (side, price, size) would
// put this side's best price past the opposite side's best price. Must be
// called with mu held.
func (b *Book) wouldCross(side types.BookSide, price, size decimal.Decimal) error {
	if size.IsZero() {
		return nil // removal never crosses
	}
	switch side {
	case types.SideBid:
		if ask, ok := b.bestAskLocked(); ok && price.GreaterThanOrEqual(ask) {
			return ErrCrossedBook
		}
	case types.SideAsk:
		if bid, ok := b.bestBidLocked(); ok && price.LessThanOrEqual(bid) {
			return ErrCrossedBook
		}
	}
	return nil
}

func (b *Book) bestBidLocked() (decimal.Decimal, bool) {
	var best decimal.Decimal
	found := false
	for k, v := range b.bids {
		if v.IsZero() {
			continue
		}
		p, err := decimal.NewFromString(k)
		if err != nil {
			continue
		}
		if !found || p.GreaterThan(best) {
			best = p
			found = true
		}
	}
	return best, found
}

func (b *Book) bestAskLocked() (decimal.Decimal, bool) {
	var best decimal.Decimal
	found := false
	for k, v := range b.asks {
		if v.IsZero() {
			continue
		}
		p, err := decimal.NewFromString(k)
		if err != nil {
			continue
		}
		if !found || p.LessThan(best) {
			best = p
			found = true
		}
	}
	return best, found
}

// BestBid returns the highest bid price, or false if the side is empty.
func (b *Book) BestBid() (decimal.Decimal, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bestBidLocked()
}

// BestAsk returns the lowest ask price, or false if the side is empty.
func (b *Book) BestAsk() (decimal.Decimal, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bestAskLocked()
}

// MidPrice is the average of best bid and best ask; ok is false if either
// side is empty.
func (b *Book) MidPrice() (mid decimal.Decimal, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bid, okBid := b.bestBidLocked()
	ask, okAsk := b.bestAskLocked()
	if !okBid || !okAsk {
		return decimal.Zero, false
	}
	return bid.Add(ask).Div(decimal.NewFromInt(2)), true
}

// sortedLevels returns levels on side sorted in walk priority: bids
// descending, asks ascending.
func (b *Book) sortedLevels(side types.BookSide) []types.PriceLevel {
	src := b.bids
	if side == types.SideAsk {
		src = b.asks
	}
	levels := make([]types.PriceLevel, 0, len(src))
	for k, v := range src {
		if v.IsZero() {
			continue
		}
		p, err := decimal.NewFromString(k)
		if err != nil {
			continue
		}
		levels = append(levels, types.PriceLevel{Price: p, Size: v})
	}
	sort.Slice(levels, func(i, j int) bool {
		if side == types.SideBid {
			return levels[i].Price.GreaterThan(levels[j].Price)
		}
		return levels[i].Price.LessThan(levels[j].Price)
	})
	return levels
}

// DepthWithin sums the sizes of levels on side within band of the best
// price on that side. Returns zero if the side is empty.
func (b *Book) DepthWithin(side types.BookSide, band decimal.Decimal) decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var best decimal.Decimal
	var ok bool
	if side == types.SideBid {
		best, ok = b.bestBidLocked()
	} else {
		best, ok = b.bestAskLocked()
	}
	if !ok {
		return decimal.Zero
	}

	total := decimal.Zero
	for _, lvl := range b.sortedLevels(side) {
		var diff decimal.Decimal
		if side == types.SideBid {
			diff = best.Sub(lvl.Price)
		} else {
			diff = lvl.Price.Sub(best)
		}
		if diff.GreaterThan(band) {
			break
		}
		total = total.Add(lvl.Size)
	}
	return total
}

// FillSimulation is the result of walking the book for a hypothetical
// taker order. The book itself is never mutated.
type FillSimulation struct {
	VWAP      decimal.Decimal
	Filled    decimal.Decimal
	Remaining decimal.Decimal
	Partial   bool
}

// SimulateFill walks levels on side in price priority until size is
// exhausted or the book is empty, without mutating state.
func (b *Book) SimulateFill(side types.BookSide, size decimal.Decimal) FillSimulation {
	b.mu.RLock()
	defer b.mu.RUnlock()

	remaining := size
	notional := decimal.Zero
	filled := decimal.Zero

	for _, lvl := range b.sortedLevels(side) {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		take := lvl.Size
		if take.GreaterThan(remaining) {
			take = remaining
		}
		notional = notional.Add(take.Mul(lvl.Price))
		filled = filled.Add(take)
		remaining = remaining.Sub(take)
	}

	var vwap decimal.Decimal
	if filled.IsPositive() {
		vwap = notional.Div(filled)
	}

	return FillSimulation{
		VWAP:      vwap,
		Filled:    filled,
		Remaining: remaining,
		Partial:   remaining.IsPositive() && filled.IsPositive(),
	}
}

// IsStale reports whether the book has not been updated within window.
func (b *Book) IsStale(window time.Duration) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.updated.IsZero() {
		return true
	}
	return time.Since(b.updated) > window
}

// Symbol returns the book's symbol.
func (b *Book) Symbol() string { return b.symbol }
