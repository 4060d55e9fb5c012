package perp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/pkg/types"
)

// wireQuote is the perp venue's top-of-book WebSocket frame shape.
type wireQuote struct {
	Type      string `json:"type"`
	Symbol    string `json:"symbol"`
	Bid       string `json:"bid"`
	Ask       string `json:"ask"`
	Timestamp int64  `json:"timestamp_ms"`
}

// wireTrade is the perp venue's trade-print WebSocket frame shape.
type wireTrade struct {
	Type      string `json:"type"`
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Timestamp int64  `json:"timestamp_ms"`
}

// Decode turns one raw perp venue WebSocket frame into a types.MarketEvent,
// satisfying feed.Decoder. Frames whose "type" isn't "quote" or "trade"
// (acks, pongs, subscription confirmations) are dropped with ok=false.
func Decode(raw []byte) (types.MarketEvent, bool, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, false, fmt.Errorf("perp: decode frame: %w", err)
	}

	switch envelope.Type {
	case "quote":
		var q wireQuote
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, false, fmt.Errorf("perp: decode quote: %w", err)
		}
		bid, err := decimal.NewFromString(q.Bid)
		if err != nil {
			return nil, false, fmt.Errorf("perp: parse bid: %w", err)
		}
		ask, err := decimal.NewFromString(q.Ask)
		if err != nil {
			return nil, false, fmt.Errorf("perp: parse ask: %w", err)
		}
		return types.Quote{
			Symbol:    q.Symbol,
			Bid:       bid,
			Ask:       ask,
			Timestamp: time.UnixMilli(q.Timestamp).UTC(),
		}, true, nil
	case "trade":
		var t wireTrade
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, false, fmt.Errorf("perp: decode trade: %w", err)
		}
		price, err := decimal.NewFromString(t.Price)
		if err != nil {
			return nil, false, fmt.Errorf("perp: parse price: %w", err)
		}
		size, err := decimal.NewFromString(t.Size)
		if err != nil {
			return nil, false, fmt.Errorf("perp: parse size: %w", err)
		}
		return types.Trade{
			Symbol:    t.Symbol,
			Price:     price,
			Size:      size,
			Timestamp: time.UnixMilli(t.Timestamp).UTC(),
		}, true, nil
	default:
		return nil, false, nil
	}
}
