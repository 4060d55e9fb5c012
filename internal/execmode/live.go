package execmode

import (
	"context"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/executor"
	"polymarket-mm/pkg/types"
)

// LiveHandler forwards every order through a venue executor's full
// guardrail pipeline (circuit breaker, hard limits, rate limiting).
type LiveHandler struct {
	exec *executor.Executor
}

func NewLiveHandler(exec *executor.Executor) *LiveHandler {
	return &LiveHandler{exec: exec}
}

func (h *LiveHandler) Submit(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	return h.exec.Submit(ctx, req)
}

func (h *LiveHandler) Balance(ctx context.Context) (decimal.Decimal, error) {
	return h.exec.GetBalance(ctx)
}
