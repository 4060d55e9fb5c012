// Package risk sizes a strategy signal into one or two concrete order
// requests, using account equity, current position, and a configured
// risk budget. All arithmetic is decimal.
//
// Grounded on original_source/core/src/position_sizing.rs's
// calculate_position_size/calculate_required_margin (leverage multiplies
// notional before the max-position cap binds, target quantity =
// notional / price), generalized here to also implement spec.md §4.L's
// Exit handling and opposing-direction flip-into-two-orders behavior,
// which the original leaves to its caller.
package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/position"
	"polymarket-mm/pkg/types"
)

// ErrInvalidLeverage is returned when leverage is outside [1, 50].
var ErrInvalidLeverage = fmt.Errorf("risk: leverage must be between 1 and 50")

// ErrNonPositivePrice is returned when a signal carries a zero or
// negative price.
var ErrNonPositivePrice = fmt.Errorf("risk: price must be positive")

// Config carries the per-bot risk budget from BotConfig.
type Config struct {
	RiskPerTradePct decimal.Decimal
	MaxPositionPct  decimal.Decimal
	Leverage        int
}

const quantityPrecision = 8

// Size converts a signal into zero, one, or two order requests given the
// account equity and current position snapshot.
func Size(signal types.Signal, equity decimal.Decimal, pos position.Snapshot, cfg Config) ([]types.OrderRequest, error) {
	if signal.Direction == types.DirExit {
		if pos.IsFlat() {
			return nil, nil
		}
		return []types.OrderRequest{closeOrder(signal.Symbol, pos, signal.Price)}, nil
	}

	if cfg.Leverage < 1 || cfg.Leverage > 50 {
		return nil, ErrInvalidLeverage
	}
	if signal.Price.LessThanOrEqual(decimal.Zero) {
		return nil, ErrNonPositivePrice
	}

	targetQty, err := TargetQuantity(equity, signal.Price, cfg)
	if err != nil {
		return nil, err
	}

	wantsLong := signal.Direction == types.DirLong
	opposes := (wantsLong && pos.IsShort()) || (!wantsLong && pos.IsLong())

	var orders []types.OrderRequest
	if opposes {
		orders = append(orders, closeOrder(signal.Symbol, pos, signal.Price))
	}

	entrySide := types.Buy
	if !wantsLong {
		entrySide = types.Sell
	}
	orders = append(orders, types.OrderRequest{
		Ticker: signal.Symbol,
		Side:   entrySide,
		Price:  signal.Price,
		Size:   targetQty,
		Type:   types.OrderLimit,
	})
	return orders, nil
}

// TargetQuantity computes target_qty = target_notional / price, where
// target_notional = min(equity * risk_per_trade_pct * leverage, equity *
// max_position_pct). Leverage multiplies before the cap; the cap binds
// unconditionally.
func TargetQuantity(equity, price decimal.Decimal, cfg Config) (decimal.Decimal, error) {
	if cfg.Leverage < 1 || cfg.Leverage > 50 {
		return decimal.Zero, ErrInvalidLeverage
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrNonPositivePrice
	}

	leveraged := equity.Mul(cfg.RiskPerTradePct).Mul(decimal.NewFromInt(int64(cfg.Leverage)))
	capped := equity.Mul(cfg.MaxPositionPct)
	targetNotional := decimal.Min(leveraged, capped)

	return targetNotional.Div(price).Round(quantityPrecision), nil
}

// RequiredMargin returns positionValue / leverage, or positionValue
// unchanged if leverage is zero (unleveraged).
func RequiredMargin(positionValue decimal.Decimal, leverage int) decimal.Decimal {
	if leverage == 0 {
		return positionValue
	}
	return positionValue.Div(decimal.NewFromInt(int64(leverage)))
}

// closeOrder builds the single market order that flattens pos.
func closeOrder(symbol string, pos position.Snapshot, price decimal.Decimal) types.OrderRequest {
	side := types.Sell
	if pos.IsShort() {
		side = types.Buy
	}
	return types.OrderRequest{
		Ticker:     symbol,
		Side:       side,
		Price:      price,
		Size:       pos.Qty.Abs(),
		Type:       types.OrderMarket,
		ReduceOnly: true,
	}
}
