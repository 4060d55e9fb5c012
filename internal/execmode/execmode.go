// Package execmode makes the trading engine polymorphic over live and
// paper execution. The engine holds a Handler and never knows which
// concrete implementation backs it.
package execmode

import (
	"context"

	"github.com/shopspring/decimal"

	"polymarket-mm/pkg/types"
)

// Handler submits orders and reports fills, independent of whether the
// order actually reaches a venue.
type Handler interface {
	Submit(ctx context.Context, req types.OrderRequest) (types.Order, error)
	Balance(ctx context.Context) (decimal.Decimal, error)
}
