package api

import (
	"time"
)

// DashboardEvent is the wrapper for every event pushed to connected
// WebSocket clients.
type DashboardEvent struct {
	Type      string      `json:"type"` // "snapshot", "fill", "state", "breaker"
	Timestamp time.Time   `json:"timestamp"`
	BotID     string      `json:"bot_id,omitempty"`
	Data      interface{} `json:"data"`
}

// FillEvent reports a single order fill for one bot.
type FillEvent struct {
	BotID      string `json:"bot_id"`
	OrderID    string `json:"order_id"`
	Side       string `json:"side"`
	Ticker     string `json:"ticker"`
	Price      string `json:"price"`
	Size       string `json:"size"`
	Equity     string `json:"equity"`
	TradeCount int    `json:"trade_count"`
}

// StateEvent reports a bot state transition (Start/Stop/Pause/Resume/Error).
type StateEvent struct {
	BotID string `json:"bot_id"`
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// BreakerEvent is emitted when a venue circuit breaker opens or closes.
type BreakerEvent struct {
	Venue  string    `json:"venue"`
	Open   bool      `json:"open"`
	Reason string    `json:"reason,omitempty"`
	Until  time.Time `json:"until,omitempty"`
}

// NewFillEvent builds a FillEvent from a post-fill bot status.
func NewFillEvent(botID, orderID, side, ticker, price, size string, status BotStatus) FillEvent {
	return FillEvent{
		BotID:      botID,
		OrderID:    orderID,
		Side:       side,
		Ticker:     ticker,
		Price:      price,
		Size:       size,
		Equity:     status.Equity,
		TradeCount: status.TradeCount,
	}
}

// NewStateEvent builds a StateEvent from a bot status.
func NewStateEvent(status BotStatus) StateEvent {
	return StateEvent{BotID: status.BotID, State: status.State, Error: status.Error}
}

// NewBreakerEvent builds a BreakerEvent describing a circuit breaker
// transition for venue.
func NewBreakerEvent(venue string, open bool, reason string, until time.Time) BreakerEvent {
	return BreakerEvent{Venue: venue, Open: open, Reason: reason, Until: until}
}
