// Package hardlimits enforces the ceilings that apply regardless of a
// venue's configurable soft limits: max order size, max per-order
// notional, max daily notional. A violation here is a refusal before any
// network call is made, never a request sent to the venue and rejected.
//
// Grounded on original_source/exchange-polymarket/src/arbitrage/
// rate_limiter.rs's hard_limits submodule doc comment
// (enforce_hard_limits(size, price)), generalized to also carry the
// daily-notional check spec.md §4.E's table requires.
package hardlimits

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Limits are the ceilings from spec.md §4.E's table.
var (
	MaxOrderSize        = decimal.NewFromInt(10_000)
	MaxPerOrderNotional = decimal.NewFromInt(5_000)
	MaxDailyNotional    = decimal.NewFromInt(50_000)
)

// Violation describes why a prospective order was refused.
type Violation struct {
	Reason string
}

func (v Violation) Error() string { return v.Reason }

// Check validates size and notional for a single order, and
// dailyNotionalAfter (the running daily total including this order) for
// the daily ceiling. Returns nil if the order is within every hard limit.
func Check(size, notional, dailyNotionalAfter decimal.Decimal) error {
	if size.GreaterThan(MaxOrderSize) {
		return Violation{Reason: fmt.Sprintf("order size %s exceeds max order size %s", size, MaxOrderSize)}
	}
	if notional.GreaterThan(MaxPerOrderNotional) {
		return Violation{Reason: fmt.Sprintf("order notional %s exceeds max per-order notional %s", notional, MaxPerOrderNotional)}
	}
	if dailyNotionalAfter.GreaterThan(MaxDailyNotional) {
		return Violation{Reason: fmt.Sprintf("daily notional %s would exceed max daily notional %s", dailyNotionalAfter, MaxDailyNotional)}
	}
	return nil
}

// ClampPrice clamps price into the tick grid defined by tickSize, rounding
// down so the clamp never favors the submitter over the venue's actual
// tradable grid.
func ClampPrice(price, tickSize decimal.Decimal) decimal.Decimal {
	if tickSize.IsZero() {
		return price
	}
	ticks := price.Div(tickSize).Floor()
	return ticks.Mul(tickSize)
}
