// Package engine runs the ordered per-tick pipeline that turns market
// events into orders: data provider -> strategies -> risk manager ->
// execution handler. The engine is deliberately ignorant of whether the
// data provider is historical or live, and whether the execution handler
// is live or paper -- both are injected as interfaces.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/execmode"
	"polymarket-mm/internal/position"
	"polymarket-mm/internal/risk"
	"polymarket-mm/pkg/types"
)

// DataProvider yields the next market event, or ErrNoMoreEvents to
// signal clean termination (end of a backtest replay, or a live feed
// that's been closed).
type DataProvider interface {
	Next(ctx context.Context) (types.MarketEvent, error)
}

// ErrNoMoreEvents is returned by a DataProvider once it is exhausted.
var ErrNoMoreEvents = errors.New("engine: no more events")

// Strategy consumes one market event under its own mutex and optionally
// emits a signal for the risk manager to size.
type Strategy interface {
	Name() string
	OnEvent(evt types.MarketEvent) (types.Signal, bool)
}

// EquitySource reports current equity, decoupling the risk manager from
// any single venue's balance call.
type EquitySource interface {
	Equity(ctx context.Context) (decimal.Decimal, error)
}

// handlerEquity adapts an execmode.Handler's Balance call to EquitySource
// so callers don't need a separate type for the common case of sizing
// directly off the execution handler's own balance.
type handlerEquity struct{ h execmode.Handler }

// HandlerEquity returns an EquitySource backed by h.Balance.
func HandlerEquity(h execmode.Handler) EquitySource { return handlerEquity{h: h} }

func (e handlerEquity) Equity(ctx context.Context) (decimal.Decimal, error) { return e.h.Balance(ctx) }

// Engine drives the tick loop. It owns no venue-specific knowledge: all
// of that lives behind DataProvider, Strategy, and execmode.Handler.
type Engine struct {
	provider   DataProvider
	strategies []Strategy
	handler    execmode.Handler
	equity     EquitySource
	riskCfg    risk.Config
	logger     *slog.Logger

	mu        sync.Mutex
	positions map[string]*position.Tracker

	onFill func(types.Order)
}

// New wires a pipeline. Positions are keyed by symbol; a tracker is
// created lazily for any symbol not already present.
func New(provider DataProvider, strategies []Strategy, handler execmode.Handler, equity EquitySource, riskCfg risk.Config, logger *slog.Logger) *Engine {
	return &Engine{
		provider:   provider,
		strategies: strategies,
		handler:    handler,
		equity:     equity,
		riskCfg:    riskCfg,
		logger:     logger.With("component", "engine"),
		positions:  make(map[string]*position.Tracker),
	}
}

// OnFill registers a callback invoked after every successfully submitted
// order with its resulting fill. Used by the bot actor to update
// performance metrics without the engine knowing about them directly.
func (e *Engine) OnFill(fn func(types.Order)) {
	e.onFill = fn
}

// Run drives the tick loop until the provider is exhausted (Run returns
// nil), the provider returns any other error, or ctx is cancelled.
// Errors from sizing or submitting a signal, including a guardrail
// rejection (e.g. circuit open), are logged by tick and never stop the
// loop.
func (e *Engine) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		evt, err := e.provider.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrNoMoreEvents) {
				return nil
			}
			return fmt.Errorf("engine: provider.Next: %w", err)
		}

		e.tick(ctx, evt)
	}
}

// tick implements one pass of step 2-4 of the pipeline for a single
// event: deliver to each strategy, size any resulting signal, submit the
// resulting orders, and update the position tracker on each fill.
func (e *Engine) tick(ctx context.Context, evt types.MarketEvent) {
	for _, strat := range e.strategies {
		signal, ok := strat.OnEvent(evt)
		if !ok {
			continue
		}

		if err := e.handleSignal(ctx, signal); err != nil {
			e.logger.Warn("signal handling failed", "strategy", strat.Name(), "symbol", signal.Symbol, "error", err)
		}
	}
}

func (e *Engine) handleSignal(ctx context.Context, signal types.Signal) error {
	equity, err := e.equity.Equity(ctx)
	if err != nil {
		return fmt.Errorf("equity: %w", err)
	}

	tracker := e.trackerFor(signal.Symbol)
	pos := tracker.Snapshot()

	orders, err := risk.Size(signal, equity, pos, e.riskCfg)
	if err != nil {
		return fmt.Errorf("risk.Size: %w", err)
	}

	for _, req := range orders {
		order, err := e.handler.Submit(ctx, req)
		if err != nil {
			return fmt.Errorf("submit %s %s: %w", req.Side, req.Ticker, err)
		}
		if order.FilledSize.IsZero() {
			continue
		}

		signedSize := order.FilledSize
		if req.Side == types.Sell {
			signedSize = signedSize.Neg()
		}
		tracker.ApplyFill(position.Fill{
			SignedSize: signedSize,
			Price:      order.AvgFillPrice,
			Commission: order.Commission,
			Timestamp:  order.UpdatedAt,
		})

		if e.onFill != nil {
			e.onFill(order)
		}
	}
	return nil
}

func (e *Engine) trackerFor(symbol string) *position.Tracker {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.positions[symbol]
	if !ok {
		t = position.New(symbol)
		e.positions[symbol] = t
	}
	return t
}

// PositionSnapshot returns the current tracked position for a symbol, or
// a flat snapshot if nothing has traded yet.
func (e *Engine) PositionSnapshot(symbol string) position.Snapshot {
	return e.trackerFor(symbol).Snapshot()
}

// RestorePosition seeds a symbol's tracker from persisted state, used on
// bot restart before the first tick runs.
func (e *Engine) RestorePosition(symbol string, s position.Snapshot) {
	e.trackerFor(symbol).Restore(s)
}
