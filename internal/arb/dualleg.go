package arb

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/executor"
	"polymarket-mm/pkg/types"
)

// Outcome is one of the five terminal states a dual-leg execution can
// reach.
type Outcome string

const (
	BothFilled      Outcome = "BOTH_FILLED"
	PartialUnwound  Outcome = "PARTIAL_UNWOUND"
	PartialExposed  Outcome = "PARTIAL_EXPOSED"
	NeitherFilled   Outcome = "NEITHER_FILLED"
	PreflightFailed Outcome = "PREFLIGHT_FAILED"
)

// LegResult records what happened on one venue's leg, including slippage
// against the quoted VWAP used at detection time.
type LegResult struct {
	Order        types.Order
	Err          error
	QuotedVWAP   decimal.Decimal
	ExecutedVWAP decimal.Decimal
	Slippage     decimal.Decimal
}

// Result is the full outcome of a dual-leg execution attempt.
type Result struct {
	Outcome Outcome
	LegA    LegResult
	LegB    LegResult
}

// Preflight re-verifies everything that could have changed between
// detection and execution: settlement confidence, both venues' circuit
// breakers, and hard limits. Implementations should be cheap and
// side-effect-free.
type Preflight func(ctx context.Context, opp Opportunity) error

// Deadlines bounds how long the executor waits for legs and an unwind.
type Deadlines struct {
	LegCompletion time.Duration
	Unwind        time.Duration
}

// Executor drives the dual-leg submit/unwind algorithm across two venue
// executors. It never holds a lock across network I/O; both venue calls
// run concurrently.
type Executor struct {
	execA, execB *executor.Executor
	preflight    Preflight
	deadlines    Deadlines
}

// NewExecutor creates a dual-leg executor over two venue executors.
func NewExecutor(execA, execB *executor.Executor, preflight Preflight, deadlines Deadlines) *Executor {
	return &Executor{execA: execA, execB: execB, preflight: preflight, deadlines: deadlines}
}

// Execute submits both legs of opp simultaneously and resolves to one of
// the five terminal outcomes.
func (e *Executor) Execute(ctx context.Context, opp Opportunity, reqA, reqB types.OrderRequest) Result {
	if e.preflight != nil {
		if err := e.preflight(ctx, opp); err != nil {
			return Result{Outcome: PreflightFailed}
		}
	}

	legCtx, cancel := context.WithTimeout(ctx, e.deadlines.LegCompletion)
	defer cancel()

	var legA, legB LegResult
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		order, err := e.execA.Submit(legCtx, reqA)
		legA = LegResult{Order: order, Err: err, QuotedVWAP: opp.VWAPA, ExecutedVWAP: order.AvgFillPrice}
	}()
	go func() {
		defer wg.Done()
		order, err := e.execB.Submit(legCtx, reqB)
		legB = LegResult{Order: order, Err: err, QuotedVWAP: opp.VWAPB, ExecutedVWAP: order.AvgFillPrice}
	}()
	wg.Wait()

	legA.Slippage = slippage(legA)
	legB.Slippage = slippage(legB)

	aFilled := legA.Err == nil && legA.Order.Status == types.StatusFilled
	bFilled := legB.Err == nil && legB.Order.Status == types.StatusFilled

	switch {
	case aFilled && bFilled:
		return Result{Outcome: BothFilled, LegA: legA, LegB: legB}
	case !aFilled && !bFilled:
		return Result{Outcome: NeitherFilled, LegA: legA, LegB: legB}
	case aFilled:
		return e.unwind(ctx, e.execA, reqA, legA, legB, true)
	default:
		return e.unwind(ctx, e.execB, reqB, legB, legA, false)
	}
}

// unwind reverses the filled leg's position with a reduce-only FAK order
// for the filled size at the original leg's limit price, bounded by the
// unwind deadline. aWasFilled records which venue
// actually filled so the returned Result keeps LegA/LegB pinned to their
// venues regardless of which one this call is unwinding.
func (e *Executor) unwind(ctx context.Context, filledExec *executor.Executor, filledReq types.OrderRequest, filledLeg, otherLeg LegResult, aWasFilled bool) Result {
	unwindCtx, cancel := context.WithTimeout(ctx, e.deadlines.Unwind)
	defer cancel()

	reverseSide := types.Sell
	if filledReq.Side == types.Sell {
		reverseSide = types.Buy
	}
	reverseReq := types.OrderRequest{
		Ticker:     filledReq.Ticker,
		Side:       reverseSide,
		Price:      filledReq.Price,
		Size:       filledLeg.Order.FilledSize,
		Type:       types.OrderFAK,
		ReduceOnly: true,
	}

	unwindOrder, err := filledExec.Submit(unwindCtx, reverseReq)
	outcome := PartialExposed
	if err == nil && unwindOrder.Status == types.StatusFilled {
		outcome = PartialUnwound
	}
	if aWasFilled {
		return Result{Outcome: outcome, LegA: filledLeg, LegB: otherLeg}
	}
	return Result{Outcome: outcome, LegA: otherLeg, LegB: filledLeg}
}

func slippage(leg LegResult) decimal.Decimal {
	if leg.Err != nil || leg.ExecutedVWAP.IsZero() {
		return decimal.Zero
	}
	return leg.ExecutedVWAP.Sub(leg.QuotedVWAP)
}
