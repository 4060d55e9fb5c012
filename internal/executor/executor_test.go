package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/breaker"
	"polymarket-mm/internal/position"
	"polymarket-mm/internal/venue/ratelimit"
	"polymarket-mm/pkg/types"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

type fakeClient struct {
	submitFn func(types.OrderRequest) (types.Order, error)
	calls    int
}

func (f *fakeClient) Submit(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	f.calls++
	if f.submitFn != nil {
		return f.submitFn(req)
	}
	return types.Order{Ticker: req.Ticker, Side: req.Side, FilledSize: req.Size, AvgFillPrice: req.Price, Status: types.StatusFilled}, nil
}
func (f *fakeClient) Cancel(ctx context.Context, orderID string) error               { return nil }
func (f *fakeClient) GetOrder(ctx context.Context, orderID string) (types.Order, error) { return types.Order{}, nil }
func (f *fakeClient) GetBalance(ctx context.Context) (decimal.Decimal, error)        { return d("10000"), nil }
func (f *fakeClient) GetPositions(ctx context.Context) ([]types.Order, error)        { return nil, nil }

func testLimiter() *ratelimit.Limiter {
	return ratelimit.New(ratelimit.Config{
		SubmitCapacity: 100, SubmitRate: 100,
		CancelCapacity: 100, CancelRate: 100,
		ReadCapacity: 100, ReadRate: 100,
	})
}

func newTestExecutor(client VenueClient) *Executor {
	br := breaker.New(breaker.DefaultConfig())
	ex := New(client, br, testLimiter(), position.New("BTC-PERP"), nil, Config{
		BalanceReserve: d("100"),
	})
	ex.SetBalance(d("10000"))
	return ex
}

func TestSubmitHappyPath(t *testing.T) {
	t.Parallel()
	fc := &fakeClient{}
	ex := newTestExecutor(fc)

	order, err := ex.Submit(context.Background(), types.OrderRequest{
		Ticker: "BTC-PERP", Side: types.Buy, Price: d("100"), Size: d("1"),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if order.Status != types.StatusFilled {
		t.Errorf("Status = %v, want Filled", order.Status)
	}
	if fc.calls != 1 {
		t.Errorf("client.Submit called %d times, want 1", fc.calls)
	}
}

func TestSubmitRejectsOversizedOrderWithoutNetworkCall(t *testing.T) {
	t.Parallel()
	fc := &fakeClient{}
	ex := newTestExecutor(fc)

	_, err := ex.Submit(context.Background(), types.OrderRequest{
		Ticker: "BTC-PERP", Side: types.Buy, Price: d("1"), Size: d("20000"),
	})
	if !IsGuardrailRejection(err) {
		t.Fatalf("Submit() error = %v, want guardrail rejection", err)
	}
	if fc.calls != 0 {
		t.Errorf("client.Submit called %d times, want 0 (hard-limit must block before network call)", fc.calls)
	}
}

func TestSubmitRejectsWhenCircuitOpen(t *testing.T) {
	t.Parallel()
	fc := &fakeClient{}
	br := breaker.New(breaker.Config{MaxConsecutiveFailures: 1, MaxDailyLoss: d("999999"), MinBalance: d("0"), OpenDuration: time.Hour})
	br.RecordFailure()

	ex := New(fc, br, testLimiter(), position.New("BTC-PERP"), nil, Config{BalanceReserve: d("0")})
	ex.SetBalance(d("10000"))

	_, err := ex.Submit(context.Background(), types.OrderRequest{
		Ticker: "BTC-PERP", Side: types.Buy, Price: d("1"), Size: d("1"),
	})
	if !IsGuardrailRejection(err) {
		t.Fatalf("Submit() error = %v, want guardrail rejection", err)
	}
	if fc.calls != 0 {
		t.Errorf("client.Submit called %d times, want 0 while circuit open", fc.calls)
	}
}

func TestSubmitRejectsInsufficientBalance(t *testing.T) {
	t.Parallel()
	fc := &fakeClient{}
	ex := newTestExecutor(fc)
	ex.SetBalance(d("50")) // below reserve + notional

	_, err := ex.Submit(context.Background(), types.OrderRequest{
		Ticker: "BTC-PERP", Side: types.Buy, Price: d("10"), Size: d("10"),
	})
	if !IsGuardrailRejection(err) {
		t.Fatalf("Submit() error = %v, want guardrail rejection", err)
	}
	if fc.calls != 0 {
		t.Error("client.Submit should not be called when balance check fails")
	}
}

func TestSubmitFailureClassifiedAndRecordedOnBreaker(t *testing.T) {
	t.Parallel()
	wantErr := errors.New("venue: rejected")
	fc := &fakeClient{submitFn: func(types.OrderRequest) (types.Order, error) {
		return types.Order{}, wantErr
	}}
	classify := func(err error) Kind { return KindPermanentRejection }

	br := breaker.New(breaker.DefaultConfig())
	ex := New(fc, br, testLimiter(), position.New("BTC-PERP"), classify, Config{BalanceReserve: d("0")})
	ex.SetBalance(d("10000"))

	_, err := ex.Submit(context.Background(), types.OrderRequest{
		Ticker: "BTC-PERP", Side: types.Buy, Price: d("1"), Size: d("1"),
	})
	var execErr *Error
	if !errors.As(err, &execErr) || execErr.Kind != KindPermanentRejection {
		t.Fatalf("Submit() error = %v, want PermanentRejection", err)
	}
	if IsRetryable(err) {
		t.Error("IsRetryable() = true for PermanentRejection, want false")
	}
}

func TestRetryWithBackoffStopsOnNonRetryable(t *testing.T) {
	t.Parallel()
	ex := newTestExecutor(&fakeClient{})

	calls := 0
	err := ex.RetryWithBackoff(context.Background(), func() error {
		calls++
		return &Error{Kind: KindPermanentRejection, Op: "x", Err: errors.New("no")}
	})
	if err == nil {
		t.Fatal("RetryWithBackoff() = nil, want error")
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1 (no retry on non-retryable)", calls)
	}
}
