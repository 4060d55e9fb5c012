package arb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/breaker"
	"polymarket-mm/internal/executor"
	"polymarket-mm/internal/position"
	"polymarket-mm/internal/venue/ratelimit"
	"polymarket-mm/pkg/types"
)

type scriptedClient struct {
	submitFn func(types.OrderRequest) (types.Order, error)
}

func (c *scriptedClient) Submit(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	return c.submitFn(req)
}
func (c *scriptedClient) Cancel(ctx context.Context, orderID string) error { return nil }
func (c *scriptedClient) GetOrder(ctx context.Context, orderID string) (types.Order, error) {
	return types.Order{}, nil
}
func (c *scriptedClient) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	return d("100000"), nil
}
func (c *scriptedClient) GetPositions(ctx context.Context) ([]types.Order, error) { return nil, nil }

func newTestVenueExecutor(t *testing.T, client executor.VenueClient) *executor.Executor {
	t.Helper()
	br := breaker.New(breaker.DefaultConfig())
	lim := ratelimit.New(ratelimit.Config{
		SubmitCapacity: 100, SubmitRate: 100,
		CancelCapacity: 100, CancelRate: 100,
		ReadCapacity: 100, ReadRate: 100,
	})
	ex := executor.New(client, br, lim, position.New("X"), nil, executor.Config{BalanceReserve: d("0")})
	ex.SetBalance(d("100000"))
	return ex
}

// S4: leg A fills 100/100, leg B fills 0/100 (Expired). Unwind of A's
// fill succeeds within the deadline.
func TestExecuteS4PartialUnwound(t *testing.T) {
	t.Parallel()

	clientA := &scriptedClient{submitFn: func(req types.OrderRequest) (types.Order, error) {
		if req.ReduceOnly {
			// the unwind leg
			return types.Order{FilledSize: req.Size, AvgFillPrice: req.Price, Status: types.StatusFilled}, nil
		}
		return types.Order{FilledSize: d("100"), AvgFillPrice: d("0.46"), Status: types.StatusFilled}, nil
	}}
	clientB := &scriptedClient{submitFn: func(req types.OrderRequest) (types.Order, error) {
		return types.Order{FilledSize: decimal.Zero, Status: types.StatusExpired}, nil
	}}

	execA := newTestVenueExecutor(t, clientA)
	execB := newTestVenueExecutor(t, clientB)

	dl := NewExecutor(execA, execB, nil, Deadlines{LegCompletion: time.Second, Unwind: time.Second})

	opp := Opportunity{VWAPA: d("0.46"), VWAPB: d("0.52")}
	reqA := types.OrderRequest{Ticker: "A", Side: types.Buy, Price: d("0.46"), Size: d("100")}
	reqB := types.OrderRequest{Ticker: "B", Side: types.Buy, Price: d("0.52"), Size: d("100")}

	res := dl.Execute(context.Background(), opp, reqA, reqB)
	if res.Outcome != PartialUnwound {
		t.Fatalf("Outcome = %v, want PartialUnwound", res.Outcome)
	}
}

// Mirror of TestExecuteS4PartialUnwound with the filled leg on venue B:
// leg A expires, leg B fills and gets unwound. Result.LegA/LegB must still
// report venue A's and venue B's own outcomes respectively.
func TestExecuteS4PartialUnwoundLegBFills(t *testing.T) {
	t.Parallel()

	clientA := &scriptedClient{submitFn: func(req types.OrderRequest) (types.Order, error) {
		return types.Order{FilledSize: decimal.Zero, Status: types.StatusExpired}, nil
	}}
	clientB := &scriptedClient{submitFn: func(req types.OrderRequest) (types.Order, error) {
		if req.ReduceOnly {
			return types.Order{FilledSize: req.Size, AvgFillPrice: req.Price, Status: types.StatusFilled}, nil
		}
		return types.Order{FilledSize: d("100"), AvgFillPrice: d("0.52"), Status: types.StatusFilled}, nil
	}}

	execA := newTestVenueExecutor(t, clientA)
	execB := newTestVenueExecutor(t, clientB)

	dl := NewExecutor(execA, execB, nil, Deadlines{LegCompletion: time.Second, Unwind: time.Second})

	opp := Opportunity{VWAPA: d("0.46"), VWAPB: d("0.52")}
	reqA := types.OrderRequest{Ticker: "A", Side: types.Buy, Price: d("0.46"), Size: d("100")}
	reqB := types.OrderRequest{Ticker: "B", Side: types.Buy, Price: d("0.52"), Size: d("100")}

	res := dl.Execute(context.Background(), opp, reqA, reqB)
	if res.Outcome != PartialUnwound {
		t.Fatalf("Outcome = %v, want PartialUnwound", res.Outcome)
	}
	if !res.LegA.Order.FilledSize.IsZero() {
		t.Errorf("LegA.Order.FilledSize = %v, want 0 (venue A expired)", res.LegA.Order.FilledSize)
	}
	if !res.LegB.Order.FilledSize.Equal(d("100")) {
		t.Errorf("LegB.Order.FilledSize = %v, want 100 (venue B filled)", res.LegB.Order.FilledSize)
	}
}

func TestExecuteBothFilled(t *testing.T) {
	t.Parallel()

	fillSuccess := func(req types.OrderRequest) (types.Order, error) {
		return types.Order{FilledSize: req.Size, AvgFillPrice: req.Price, Status: types.StatusFilled}, nil
	}
	execA := newTestVenueExecutor(t, &scriptedClient{submitFn: fillSuccess})
	execB := newTestVenueExecutor(t, &scriptedClient{submitFn: fillSuccess})

	dl := NewExecutor(execA, execB, nil, Deadlines{LegCompletion: time.Second, Unwind: time.Second})

	opp := Opportunity{VWAPA: d("0.46"), VWAPB: d("0.52")}
	reqA := types.OrderRequest{Ticker: "A", Side: types.Buy, Price: d("0.46"), Size: d("100")}
	reqB := types.OrderRequest{Ticker: "B", Side: types.Buy, Price: d("0.52"), Size: d("100")}

	res := dl.Execute(context.Background(), opp, reqA, reqB)
	if res.Outcome != BothFilled {
		t.Fatalf("Outcome = %v, want BothFilled", res.Outcome)
	}
}

func TestExecutePreflightFailedNeverSubmits(t *testing.T) {
	t.Parallel()

	calls := 0
	fillSuccess := func(req types.OrderRequest) (types.Order, error) {
		calls++
		return types.Order{FilledSize: req.Size, Status: types.StatusFilled}, nil
	}
	execA := newTestVenueExecutor(t, &scriptedClient{submitFn: fillSuccess})
	execB := newTestVenueExecutor(t, &scriptedClient{submitFn: fillSuccess})

	preflight := func(ctx context.Context, opp Opportunity) error {
		return errors.New("settlement mismatch")
	}
	dl := NewExecutor(execA, execB, preflight, Deadlines{LegCompletion: time.Second, Unwind: time.Second})

	res := dl.Execute(context.Background(), Opportunity{}, types.OrderRequest{}, types.OrderRequest{})
	if res.Outcome != PreflightFailed {
		t.Fatalf("Outcome = %v, want PreflightFailed", res.Outcome)
	}
	if calls != 0 {
		t.Errorf("submit called %d times, want 0 after preflight failure", calls)
	}
}
