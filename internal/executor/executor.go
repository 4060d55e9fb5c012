package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/breaker"
	"polymarket-mm/internal/position"
	"polymarket-mm/internal/venue/hardlimits"
	"polymarket-mm/internal/venue/ratelimit"
	"polymarket-mm/pkg/types"
)

// VenueClient is the minimal per-venue transport contract the executor
// drives. Implementations own signing, HTTP, and WS wiring; the executor
// owns guardrails, retries, and bookkeeping above that.
type VenueClient interface {
	Submit(ctx context.Context, req types.OrderRequest) (types.Order, error)
	Cancel(ctx context.Context, orderID string) error
	GetOrder(ctx context.Context, orderID string) (types.Order, error)
	GetBalance(ctx context.Context) (decimal.Decimal, error)
	GetPositions(ctx context.Context) ([]types.Order, error)
}

// Classifier maps a raw venue client error to its Kind, since the mapping
// (HTTP status, error string, timeout) is venue-specific.
type Classifier func(error) Kind

// Config tunes the guardrail pipeline.
type Config struct {
	BalanceReserve  decimal.Decimal
	MaxRetries      int
	RetryBaseDelay  time.Duration
}

// Executor drives a single venue's client through the guardrail pipeline:
// circuit state, daily notional, balance reserve, hard limits, rate
// limit, then submit.
type Executor struct {
	mu sync.Mutex

	client     VenueClient
	breaker    *breaker.Breaker
	limiter    *ratelimit.Limiter
	positions  *position.Tracker
	classify   Classifier
	cfg        Config

	dailyNotional decimal.Decimal
	dayKey        string
	balance       decimal.Decimal
}

// New creates an Executor wired to the given venue client and shared
// guardrail components.
func New(client VenueClient, br *breaker.Breaker, limiter *ratelimit.Limiter, positions *position.Tracker, classify Classifier, cfg Config) *Executor {
	return &Executor{
		client:    client,
		breaker:   br,
		limiter:   limiter,
		positions: positions,
		classify:  classify,
		cfg:       cfg,
		dayKey:    utcDayKey(time.Now()),
	}
}

func utcDayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

func (e *Executor) rolloverLocked(now time.Time) {
	key := utcDayKey(now)
	if key != e.dayKey {
		e.dayKey = key
		e.dailyNotional = decimal.Zero
	}
}

// Submit runs the full guardrail pipeline and, if every check passes,
// signs (via the client), rate-limits, and submits the order. On success
// it pushes the fill into the position tracker and resets the
// consecutive-failure counter via the breaker; on failure it records the
// failure against the breaker and classifies the error.
func (e *Executor) Submit(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	notional := req.Price.Mul(req.Size)

	e.mu.Lock()
	now := time.Now()
	e.rolloverLocked(now)

	if !e.breaker.CanTrade() {
		e.mu.Unlock()
		return types.Order{}, &Error{Kind: KindGuardrailRejection, Op: "submit", Err: ErrCircuitOpen}
	}

	projectedDaily := e.dailyNotional.Add(notional)
	if err := hardlimits.Check(req.Size, notional, projectedDaily); err != nil {
		e.mu.Unlock()
		return types.Order{}, &Error{Kind: KindGuardrailRejection, Op: "submit", Err: err}
	}

	if e.balance.Sub(e.cfg.BalanceReserve).LessThan(notional) {
		e.mu.Unlock()
		return types.Order{}, &Error{Kind: KindGuardrailRejection, Op: "submit", Err: ErrInsufficientBalance}
	}
	e.mu.Unlock()

	if err := e.limiter.Submit.Wait(ctx); err != nil {
		return types.Order{}, &Error{Kind: KindTransient, Op: "submit", Err: err}
	}

	order, err := e.client.Submit(ctx, req)
	if err != nil {
		e.breaker.RecordFailure()
		kind := KindTransient
		if e.classify != nil {
			kind = e.classify(err)
		}
		return types.Order{}, &Error{Kind: kind, Op: "submit", Err: err}
	}

	e.mu.Lock()
	e.dailyNotional = e.dailyNotional.Add(notional)
	e.mu.Unlock()

	if e.positions != nil && order.FilledSize.IsPositive() {
		signedSize := order.FilledSize
		if order.Side == types.Sell {
			signedSize = signedSize.Neg()
		}
		e.positions.ApplyFill(position.Fill{
			SignedSize: signedSize,
			Price:      order.AvgFillPrice,
			Commission: order.Commission,
			Timestamp:  time.Now(),
		})
	}

	e.breaker.RecordSuccess(decimal.Zero)
	return order, nil
}

// Cancel forwards to the client after a rate-limit wait on the Cancel
// class. No guardrail checks apply to cancellation.
func (e *Executor) Cancel(ctx context.Context, orderID string) error {
	if err := e.limiter.Cancel.Wait(ctx); err != nil {
		return &Error{Kind: KindTransient, Op: "cancel", Err: err}
	}
	if err := e.client.Cancel(ctx, orderID); err != nil {
		kind := KindTransient
		if e.classify != nil {
			kind = e.classify(err)
		}
		return &Error{Kind: kind, Op: "cancel", Err: err}
	}
	return nil
}

// GetOrder forwards to the client after a Read rate-limit wait.
func (e *Executor) GetOrder(ctx context.Context, orderID string) (types.Order, error) {
	if err := e.limiter.Read.Wait(ctx); err != nil {
		return types.Order{}, &Error{Kind: KindTransient, Op: "get_order", Err: err}
	}
	order, err := e.client.GetOrder(ctx, orderID)
	if err != nil {
		return types.Order{}, &Error{Kind: KindTransient, Op: "get_order", Err: err}
	}
	return order, nil
}

// GetBalance forwards to the client and caches the result for the next
// Submit's balance-reserve check.
func (e *Executor) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	if err := e.limiter.Read.Wait(ctx); err != nil {
		return decimal.Zero, &Error{Kind: KindTransient, Op: "get_balance", Err: err}
	}
	bal, err := e.client.GetBalance(ctx)
	if err != nil {
		return decimal.Zero, &Error{Kind: KindTransient, Op: "get_balance", Err: err}
	}
	e.mu.Lock()
	e.balance = bal
	e.mu.Unlock()
	e.breaker.RecordBalance(bal)
	return bal, nil
}

// GetPositions forwards to the client after a Read rate-limit wait.
func (e *Executor) GetPositions(ctx context.Context) ([]types.Order, error) {
	if err := e.limiter.Read.Wait(ctx); err != nil {
		return nil, &Error{Kind: KindTransient, Op: "get_positions", Err: err}
	}
	positions, err := e.client.GetPositions(ctx)
	if err != nil {
		return nil, &Error{Kind: KindTransient, Op: "get_positions", Err: err}
	}
	return positions, nil
}

// SetBalance seeds the cached balance without a network round trip, used
// on startup before the first GetBalance poll.
func (e *Executor) SetBalance(balance decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.balance = balance
}

// RetryWithBackoff calls op up to cfg.MaxRetries times in total (3 when
// unset) with exponential backoff between calls, stopping immediately on
// a non-retryable error. Used by callers
// that want the Transient/RateLimited retry policy spec.md §4.F
// describes without duplicating the backoff loop per call site.
func (e *Executor) RetryWithBackoff(ctx context.Context, op func() error) error {
	var lastErr error
	delay := e.cfg.RetryBaseDelay
	if delay <= 0 {
		delay = 250 * time.Millisecond
	}
	attempts := e.cfg.MaxRetries
	if attempts <= 0 {
		attempts = 3
	}

	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
	return fmt.Errorf("executor: exhausted retries: %w", lastErr)
}
