package execmode

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/pkg/types"
)

// PaperConfig tunes the in-process fill simulator.
type PaperConfig struct {
	InitialBalance decimal.Decimal
	FeeBps         decimal.Decimal
	SlippageBps    decimal.Decimal
	AllowShort     bool
}

// PaperHandler fills every order against the price carried on the
// request itself (the engine already resolved that price from the
// latest market event), applying a configured slippage and fee model
// instead of touching any venue.
type PaperHandler struct {
	mu sync.Mutex

	cfg PaperConfig

	sequence  int64
	balance   decimal.Decimal
	feesPaid  decimal.Decimal
	inventory map[string]decimal.Decimal // ticker -> signed size
}

func NewPaperHandler(cfg PaperConfig) *PaperHandler {
	initial := cfg.InitialBalance
	if !initial.IsPositive() {
		initial = decimal.NewFromInt(1000)
	}
	return &PaperHandler{
		cfg:       cfg,
		balance:   initial,
		inventory: make(map[string]decimal.Decimal),
	}
}

func (h *PaperHandler) Submit(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	if !req.Size.IsPositive() {
		return types.Order{}, fmt.Errorf("paper: size must be positive")
	}
	if !req.Price.IsPositive() {
		return types.Order{}, fmt.Errorf("paper: price must be positive")
	}

	execPrice := h.applySlippage(req.Price, req.Side)
	notional := execPrice.Mul(req.Size)
	fee := notional.Mul(h.cfg.FeeBps).Div(decimal.NewFromInt(10000))

	h.mu.Lock()
	defer h.mu.Unlock()

	switch req.Side {
	case types.Buy:
		if notional.Add(fee).GreaterThan(h.balance) {
			return types.Order{}, fmt.Errorf("paper: insufficient balance: need %s have %s", notional.Add(fee), h.balance)
		}
	case types.Sell:
		if !h.cfg.AllowShort && !req.ReduceOnly {
			current := h.inventory[req.Ticker]
			if current.LessThan(req.Size) {
				return types.Order{}, fmt.Errorf("paper: insufficient inventory: need %s have %s", req.Size, current)
			}
		}
	default:
		return types.Order{}, fmt.Errorf("paper: unsupported side %q", req.Side)
	}

	h.sequence++
	orderID := fmt.Sprintf("paper-order-%06d", h.sequence)

	if req.Side == types.Buy {
		h.balance = h.balance.Sub(notional).Sub(fee)
		h.inventory[req.Ticker] = h.inventory[req.Ticker].Add(req.Size)
	} else {
		h.balance = h.balance.Add(notional).Sub(fee)
		h.inventory[req.Ticker] = h.inventory[req.Ticker].Sub(req.Size)
	}
	h.feesPaid = h.feesPaid.Add(fee)

	now := time.Now().UTC()
	return types.Order{
		ID:           orderID,
		Ticker:       req.Ticker,
		Side:         req.Side,
		Price:        req.Price,
		Size:         req.Size,
		FilledSize:   req.Size,
		AvgFillPrice: execPrice,
		Commission:   fee,
		Status:       types.StatusFilled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (h *PaperHandler) Balance(ctx context.Context) (decimal.Decimal, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.balance, nil
}

func (h *PaperHandler) applySlippage(price decimal.Decimal, side types.Side) decimal.Decimal {
	if !h.cfg.SlippageBps.IsPositive() {
		return price
	}
	multiplier := h.cfg.SlippageBps.Div(decimal.NewFromInt(10000))
	if side == types.Buy {
		return price.Mul(decimal.NewFromInt(1).Add(multiplier))
	}
	return price.Mul(decimal.NewFromInt(1).Sub(multiplier))
}
