// Package decimal holds the rounding helpers shared by every venue and
// execution-layer package. All prices, sizes, fees, and P&L in this
// module flow through shopspring/decimal — no binary float ever touches
// the path between a signal and an executed order.
package decimal

import (
	"github.com/shopspring/decimal"
)

// RoundDownToTick truncates v to the given number of decimal places,
// always rounding toward zero. Used for fee and amount rounding where the
// rounding direction must not favor the party doing the rounding.
func RoundDownToTick(v decimal.Decimal, decimals int32) decimal.Decimal {
	return v.Truncate(decimals)
}

// FloorMul2dp computes floor(price * size * 100) / 100, the exact taker-
// amount rounding rule used when converting a human price/size pair into
// the two-decimal quote-currency units an EIP-712 order signs over.
func FloorMul2dp(price, size decimal.Decimal) decimal.Decimal {
	return price.Mul(size).Truncate(2)
}

// Zero is a convenience zero-value decimal, used to avoid repeated
// decimal.NewFromInt(0) calls in comparisons.
var Zero = decimal.Zero
