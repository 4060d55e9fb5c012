package predict

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"polymarket-mm/pkg/types"
)

// ClientConfig tunes the REST transport, mirroring the teacher's
// internal/exchange/client.go resty setup.
type ClientConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// Client is the binary-outcome venue's REST client: every write request
// is signed with Signer's RSA-PSS headers, satisfying
// internal/executor.VenueClient.
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

func (c *Client) signedRequest(ctx context.Context, method, path string, body []byte) (*resty.Request, error) {
	headers, err := c.signer.SignRequest(method, path, string(body))
	if err != nil {
		return nil, fmt.Errorf("predict: sign request: %w", err)
	}
	return c.http.R().
		SetContext(ctx).
		SetHeader("KeyId", headers.KeyID).
		SetHeader("Timestamp", headers.Timestamp).
		SetHeader("Signature", headers.Signature), nil
}

type orderPayload struct {
	TokenID    string `json:"token_id"`
	Side       string `json:"side"`
	Price      string `json:"price"`
	Size       string `json:"size"`
	OrderType  string `json:"order_type"`
	ReduceOnly bool   `json:"reduce_only,omitempty"`
	PostOnly   bool   `json:"post_only,omitempty"`
}

type orderResponse struct {
	OrderID      string `json:"order_id"`
	Status       string `json:"status"`
	FilledSize   string `json:"filled_size"`
	AvgFillPrice string `json:"avg_fill_price"`
	Fee          string `json:"fee"`
}

// Submit signs and posts a single order against a binary-outcome token.
// req.Ticker identifies the outcome token (e.g. a market's YES or NO
// token id); req.Side carries the venue-agnostic Buy/Sell direction.
func (c *Client) Submit(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	payload := orderPayload{
		TokenID:    req.Ticker,
		Side:       string(req.Side),
		Price:      req.Price.String(),
		Size:       req.Size.String(),
		OrderType:  string(req.Type),
		ReduceOnly: req.ReduceOnly,
		PostOnly:   req.PostOnly,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return types.Order{}, fmt.Errorf("predict: marshal order: %w", err)
	}

	r, err := c.signedRequest(ctx, http.MethodPost, "/orders", body)
	if err != nil {
		return types.Order{}, err
	}

	var result orderResponse
	resp, err := r.SetBody(json.RawMessage(body)).SetResult(&result).Post("/orders")
	if err != nil {
		return types.Order{}, fmt.Errorf("predict: post order: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return types.Order{}, fmt.Errorf("predict: post order: status %d: %s", resp.StatusCode(), resp.String())
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
	path := "/orders/" + orderID
	r, err := c.signedRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	resp, err := r.Delete(path)
	if err != nil {
		return fmt.Errorf("predict: cancel order: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("predict: cancel order: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// GetOrder fetches the current state of a previously submitted order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (types.Order, error) {
	path := "/orders/" + orderID
	r, err := c.signedRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return types.Order{}, err
	}

	var result orderResponse
	resp, err := r.SetResult(&result).Get(path)
	if err != nil {
		return types.Order{}, fmt.Errorf("predict: get order: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return types.Order{}, fmt.Errorf("predict: get order: status %d: %s", resp.StatusCode(), resp.String())
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
	const path = "/balance"
	r, err := c.signedRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return decimal.Zero, err
	}

	var result struct {
		Balance string `json:"balance"`
	}
	resp, err := r.SetResult(&result).Get(path)
	if err != nil {
		return decimal.Zero, fmt.Errorf("predict: get balance: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return decimal.Zero, fmt.Errorf("predict: get balance: status %d: %s", resp.StatusCode(), resp.String())
	}
	bal, err := decimal.NewFromString(result.Balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("predict: parse balance: %w", err)
	}
	return bal, nil
}

// GetPositions fetches all currently open positions as their originating
// orders (the venue's position endpoint is order-shaped).
func (c *Client) GetPositions(ctx context.Context) ([]types.Order, error) {
	const path = "/positions"
	r, err := c.signedRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var results []orderResponse
	resp, err := r.SetResult(&results).Get(path)
	if err != nil {
		return nil, fmt.Errorf("predict: get positions: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("predict: get positions: status %d: %s", resp.StatusCode(), resp.String())
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
