package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/execmode"
	"polymarket-mm/internal/risk"
	"polymarket-mm/pkg/types"
)

type fixedEquity struct{ v decimal.Decimal }

func (f fixedEquity) Equity(ctx context.Context) (decimal.Decimal, error) { return f.v, nil }

type scriptedProvider struct {
	mu     sync.Mutex
	events []types.MarketEvent
	i      int
}

func (p *scriptedProvider) Next(ctx context.Context) (types.MarketEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.i >= len(p.events) {
		return nil, ErrNoMoreEvents
	}
	evt := p.events[p.i]
	p.i++
	return evt, nil
}

type everyBarLong struct {
	fired bool
}

func (s *everyBarLong) Name() string { return "every-bar-long" }

func (s *everyBarLong) OnEvent(evt types.MarketEvent) (types.Signal, bool) {
	if s.fired {
		return types.Signal{}, false
	}
	s.fired = true
	return types.Signal{
		Direction: types.DirLong,
		Symbol:    evt.EventSymbol(),
		Price:     decimal.NewFromInt(100),
	}, true
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunTerminatesWhenProviderExhausted(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{events: nil}
	handler := execmode.NewPaperHandler(execmode.PaperConfig{InitialBalance: decimal.NewFromInt(10000)})
	e := New(provider, nil, handler, fixedEquity{decimal.NewFromInt(10000)}, testRiskConfig(), testLogger())

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v, want nil on clean exhaustion", err)
	}
}

func TestRunSubmitsOrderFromSignalAndUpdatesPosition(t *testing.T) {
	t.Parallel()

	bar := types.Bar{Symbol: "BTC", Close: decimal.NewFromInt(100)}
	provider := &scriptedProvider{events: []types.MarketEvent{bar}}
	handler := execmode.NewPaperHandler(execmode.PaperConfig{InitialBalance: decimal.NewFromInt(100000)})
	strat := &everyBarLong{}

	e := New(provider, []Strategy{strat}, handler, fixedEquity{decimal.NewFromInt(10000)}, testRiskConfig(), testLogger())

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	pos := e.PositionSnapshot("BTC")
	if !pos.IsLong() {
		t.Errorf("position = %+v, want long", pos)
	}
}

func TestRunPropagatesContextCancellation(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{}
	handler := execmode.NewPaperHandler(execmode.PaperConfig{InitialBalance: decimal.NewFromInt(10000)})
	e := New(provider, nil, handler, fixedEquity{decimal.NewFromInt(10000)}, testRiskConfig(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := e.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func testRiskConfig() risk.Config {
	return risk.Config{RiskPerTradePct: decimal.NewFromFloat(0.02), MaxPositionPct: decimal.NewFromFloat(0.5), Leverage: 1}
}
