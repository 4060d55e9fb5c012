package perp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"polymarket-mm/pkg/types"
)

// ClientConfig tunes the REST transport, mirroring the teacher's
// internal/exchange/client.go resty setup (base URL, timeout, retry
// count/backoff, 5xx retry condition).
type ClientConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	ChainID        int64
	FeeRateBps     int64
}

// Client is the perp venue's REST client: signs orders with Signer and
// submits them over resty, satisfying internal/executor.VenueClient.
type Client struct {
	http   *resty.Client
	signer *Signer
}

// NewClient builds a Client wrapping signer for request signing.
func NewClient(cfg ClientConfig, signer *Signer) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	return &Client{http: httpClient, signer: signer}
}

type orderPayload struct {
	Maker       string `json:"maker"`
	TokenID     string `json:"token_id"`
	Side        int    `json:"side"`
	MakerAmount string `json:"maker_amount"`
	TakerAmount string `json:"taker_amount"`
	Expiration  int64  `json:"expiration"`
	Nonce       int64  `json:"nonce"`
	FeeRateBps  int64  `json:"fee_rate_bps"`
	Signature   string `json:"signature"`
	ReduceOnly  bool   `json:"reduce_only,omitempty"`
	PostOnly    bool   `json:"post_only,omitempty"`
}

type orderResponse struct {
	OrderID      string `json:"order_id"`
	Status       string `json:"status"`
	FilledSize   string `json:"filled_size"`
	AvgFillPrice string `json:"avg_fill_price"`
	Fee          string `json:"fee"`
}

// Submit signs and posts a single order request.
func (c *Client) Submit(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	expiration := time.Now().Add(time.Hour).Unix()
	nonce := NonceFromTime(time.Now())

	order := BuildOrderTuple(c.signer.Address(), req.Ticker, req, expiration, nonce, 0)
	sig, err := c.signer.SignOrder(order)
	if err != nil {
		return types.Order{}, fmt.Errorf("perp: sign order: %w", err)
	}

	payload := orderPayload{
		Maker:       order.Maker.Hex(),
		TokenID:     order.TokenID,
		Side:        order.Side,
		MakerAmount: order.MakerAmount.String(),
		TakerAmount: order.TakerAmount.String(),
		Expiration:  order.Expiration,
		Nonce:       order.Nonce,
		FeeRateBps:  order.FeeRateBps,
		Signature:   fmt.Sprintf("0x%x", sig),
		ReduceOnly:  req.ReduceOnly,
		PostOnly:    req.PostOnly,
	}

	var result orderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		Post("/orders")
	if err != nil {
		return types.Order{}, fmt.Errorf("perp: post order: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return types.Order{}, fmt.Errorf("perp: post order: status %d: %s", resp.StatusCode(), resp.String())
	}

	filled, _ := decimal.NewFromString(result.FilledSize)
	avgPrice, _ := decimal.NewFromString(result.AvgFillPrice)
	fee, _ := decimal.NewFromString(result.Fee)
	now := time.Now().UTC()

	return types.Order{
		ID:           result.OrderID,
		Ticker:       req.Ticker,
		Side:         req.Side,
		Price:        req.Price,
		Size:         req.Size,
		FilledSize:   filled,
		AvgFillPrice: avgPrice,
		Commission:   fee,
		Status:       types.OrderStatus(result.Status),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Cancel cancels a single resting order by ID.
func (c *Client) Cancel(ctx context.Context, orderID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete("/orders/" + orderID)
	if err != nil {
		return fmt.Errorf("perp: cancel order: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("perp: cancel order: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// GetOrder fetches the current state of a previously submitted order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (types.Order, error) {
	var result orderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/orders/" + orderID)
	if err != nil {
		return types.Order{}, fmt.Errorf("perp: get order: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return types.Order{}, fmt.Errorf("perp: get order: status %d: %s", resp.StatusCode(), resp.String())
	}

	filled, _ := decimal.NewFromString(result.FilledSize)
	avgPrice, _ := decimal.NewFromString(result.AvgFillPrice)
	fee, _ := decimal.NewFromString(result.Fee)

	return types.Order{
		ID:           result.OrderID,
		FilledSize:   filled,
		AvgFillPrice: avgPrice,
		Commission:   fee,
		Status:       types.OrderStatus(result.Status),
		UpdatedAt:    time.Now().UTC(),
	}, nil
}

// GetBalance fetches the account's free collateral balance.
func (c *Client) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	var result struct {
		Balance string `json:"balance"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/balance")
	if err != nil {
		return decimal.Zero, fmt.Errorf("perp: get balance: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return decimal.Zero, fmt.Errorf("perp: get balance: status %d: %s", resp.StatusCode(), resp.String())
	}
	bal, err := decimal.NewFromString(result.Balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("perp: parse balance: %w", err)
	}
	return bal, nil
}

// GetPositions fetches all currently open positions as their originating
// orders (the venue's position endpoint is order-shaped).
func (c *Client) GetPositions(ctx context.Context) ([]types.Order, error) {
	var results []orderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&results).
		Get("/positions")
	if err != nil {
		return nil, fmt.Errorf("perp: get positions: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("perp: get positions: status %d: %s", resp.StatusCode(), resp.String())
	}

	out := make([]types.Order, 0, len(results))
	for _, r := range results {
		filled, _ := decimal.NewFromString(r.FilledSize)
		avgPrice, _ := decimal.NewFromString(r.AvgFillPrice)
		out = append(out, types.Order{
			ID:           r.OrderID,
			FilledSize:   filled,
			AvgFillPrice: avgPrice,
			Status:       types.OrderStatus(r.Status),
		})
	}
	return out, nil
}
