package predict

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/pkg/types"
)

// wireQuote is the binary-outcome venue's top-of-book WebSocket frame
// shape, keyed by outcome token id rather than a perp-style symbol.
type wireQuote struct {
	Type      string `json:"type"`
	TokenID   string `json:"token_id"`
	Bid       string `json:"bid"`
	Ask       string `json:"ask"`
	Timestamp int64  `json:"timestamp_ms"`
}

// wireTrade is the binary-outcome venue's trade-print WebSocket frame
// shape.
type wireTrade struct {
	Type      string `json:"type"`
	TokenID   string `json:"token_id"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Timestamp int64  `json:"timestamp_ms"`
}

// Decode turns one raw binary-outcome venue WebSocket frame into a
// types.MarketEvent, satisfying feed.Decoder. The outcome token id fills
// the venue-agnostic Symbol field. Frames whose "type" isn't "quote" or
// "trade" (acks, pongs, subscription confirmations) are dropped with
// ok=false.
func Decode(raw []byte) (types.MarketEvent, bool, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, false, fmt.Errorf("predict: decode frame: %w", err)
	}

	switch envelope.Type {
	case "quote":
		var q wireQuote
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, false, fmt.Errorf("predict: decode quote: %w", err)
		}
		bid, err := decimal.NewFromString(q.Bid)
		if err != nil {
			return nil, false, fmt.Errorf("predict: parse bid: %w", err)
		}
		ask, err := decimal.NewFromString(q.Ask)
		if err != nil {
			return nil, false, fmt.Errorf("predict: parse ask: %w", err)
		}
		return types.Quote{
			Symbol:    q.TokenID,
			Bid:       bid,
			Ask:       ask,
			Timestamp: time.UnixMilli(q.Timestamp).UTC(),
		}, true, nil
	case "trade":
		var t wireTrade
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, false, fmt.Errorf("predict: decode trade: %w", err)
		}
		price, err := decimal.NewFromString(t.Price)
		if err != nil {
			return nil, false, fmt.Errorf("predict: parse price: %w", err)
		}
		size, err := decimal.NewFromString(t.Size)
		if err != nil {
			return nil, false, fmt.Errorf("predict: parse size: %w", err)
		}
		return types.Trade{
			Symbol:    t.TokenID,
			Price:     price,
			Size:      size,
			Timestamp: time.UnixMilli(t.Timestamp).UTC(),
		}, true, nil
	default:
		return nil, false, nil
	}
}
