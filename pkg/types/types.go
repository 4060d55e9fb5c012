// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the trading platform — venue-
// agnostic market events, orders, positions, and bot configuration. It has
// no dependencies on internal packages, so it can be imported by any layer.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// Side is the directional side of an order on the perp venue.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// BinarySide is the outcome side of an order on a binary-outcome venue.
// Yes/No do not map 1:1 onto Buy/Sell and must never be conflated;
// conversion between the two is explicit per venue.
type BinarySide string

const (
	Yes BinarySide = "YES"
	No  BinarySide = "NO"
)

// OrderType enumerates the supported order lifecycles.
type OrderType string

const (
	OrderFOK    OrderType = "FOK"    // fill-or-kill
	OrderGTC    OrderType = "GTC"    // good-til-cancelled
	OrderFAK    OrderType = "FAK"    // fill-and-kill
	OrderMarket OrderType = "MARKET"
	OrderLimit  OrderType = "LIMIT"
)

// OrderStatus tracks an order through its lifecycle.
type OrderStatus string

const (
	StatusPending         OrderStatus = "PENDING"
	StatusResting         OrderStatus = "RESTING"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusCancelled       OrderStatus = "CANCELLED"
	StatusRejected        OrderStatus = "REJECTED"
	StatusExpired         OrderStatus = "EXPIRED"
)

// SignalDirection is what a strategy asks the risk manager to do.
type SignalDirection string

const (
	DirLong  SignalDirection = "LONG"
	DirShort SignalDirection = "SHORT"
	DirExit  SignalDirection = "EXIT"
)

// ————————————————————————————————————————————————————————————————————————
// Market events — the only inter-component currency between feed and engine
// ————————————————————————————————————————————————————————————————————————

// MarketEvent is implemented by Bar, Trade, and Quote. Timestamps are UTC
// and monotonically non-decreasing within a single feed.
type MarketEvent interface {
	EventSymbol() string
	EventTime() time.Time
	isMarketEvent()
}

// Bar is an OHLCV candle.
type Bar struct {
	Symbol    string
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	Timestamp time.Time
}

func (b Bar) EventSymbol() string     { return b.Symbol }
func (b Bar) EventTime() time.Time    { return b.Timestamp }
func (b Bar) ClosePrice() decimal.Decimal { return b.Close }
func (Bar) isMarketEvent()            {}

// Trade is a single executed trade print.
type Trade struct {
	Symbol    string
	Price     decimal.Decimal
	Size      decimal.Decimal
	Timestamp time.Time
}

func (t Trade) EventSymbol() string        { return t.Symbol }
func (t Trade) EventTime() time.Time       { return t.Timestamp }
func (t Trade) ClosePrice() decimal.Decimal { return t.Price }
func (Trade) isMarketEvent()               {}

// Quote is a top-of-book bid/ask snapshot. Quote has no close_price —
// callers must type-switch and handle its absence explicitly.
type Quote struct {
	Symbol    string
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	Timestamp time.Time
}

func (q Quote) EventSymbol() string  { return q.Symbol }
func (q Quote) EventTime() time.Time { return q.Timestamp }
func (Quote) isMarketEvent()         {}

// Signal is produced by a strategy for the risk manager to size.
type Signal struct {
	Direction SignalDirection
	Symbol    string
	Strength  decimal.Decimal
	Price     decimal.Decimal
}

// ————————————————————————————————————————————————————————————————————————
// Orders
// ————————————————————————————————————————————————————————————————————————

// OrderRequest is the venue-agnostic order the risk manager produces and
// the executor submits.
type OrderRequest struct {
	Ticker     string
	Side       Side
	Price      decimal.Decimal
	Size       decimal.Decimal
	Type       OrderType
	ReduceOnly bool
	PostOnly   bool
	NegRisk    bool
}

// Order is the server-assigned tracking record for a submitted request.
type Order struct {
	ID           string
	Ticker       string
	Side         Side
	Price        decimal.Decimal
	Size         decimal.Decimal
	FilledSize   decimal.Decimal
	AvgFillPrice decimal.Decimal
	Commission   decimal.Decimal
	Status       OrderStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Fill is a single execution against an order.
type Fill struct {
	OrderID    string
	Ticker     string
	Side       Side
	Price      decimal.Decimal
	Size       decimal.Decimal
	Commission decimal.Decimal
	Timestamp  time.Time
}

// ————————————————————————————————————————————————————————————————————————
// Order book
// ————————————————————————————————————————————————————————————————————————

// PriceLevel is a single bid or ask level in the order book.
type PriceLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// BookSide identifies which side of the book an update applies to.
type BookSide string

const (
	SideBid BookSide = "BID"
	SideAsk BookSide = "ASK"
)

// ————————————————————————————————————————————————————————————————————————
// Settlement / arbitrage
// ————————————————————————————————————————————————————————————————————————

// Comparison is the resolution comparator for a binary contract's threshold.
type Comparison string

const (
	CompAbove     Comparison = "ABOVE"
	CompAtOrAbove Comparison = "AT_OR_ABOVE"
	CompBelow     Comparison = "BELOW"
)

// SettlementCriteria describes what a binary contract resolves on.
type SettlementCriteria struct {
	Underlying     string
	Threshold      decimal.Decimal
	Comparison     Comparison
	ResolutionTime time.Time
	PriceSource    string
}

// ————————————————————————————————————————————————————————————————————————
// Bot config / state
// ————————————————————————————————————————————————————————————————————————

// Venue names the trading venue a bot routes orders to.
type Venue string

const (
	VenuePerp    Venue = "perp"
	VenuePredict Venue = "predict"
)

// BotConfig is the persisted, immutable-id record for one bot.
type BotConfig struct {
	BotID              string          `json:"bot_id"`
	Venue              Venue           `json:"venue"`
	Symbol             string          `json:"symbol"`
	StrategyName       string          `json:"strategy_name"`
	StrategyConfigBlob []byte          `json:"strategy_config_blob"`
	Interval           time.Duration   `json:"interval"`
	WarmupPeriods      int             `json:"warmup_periods"`
	RiskPerTradePct    decimal.Decimal `json:"risk_per_trade_pct"`
	MaxPositionPct     decimal.Decimal `json:"max_position_pct"`
	Leverage           int             `json:"leverage"`
	WalletRef          string          `json:"wallet_ref"`
	Enabled            bool            `json:"enabled"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// BotState is the lifecycle state of a running bot actor.
type BotState string

const (
	BotStopped BotState = "STOPPED"
	BotRunning BotState = "RUNNING"
	BotPaused  BotState = "PAUSED"
	BotError   BotState = "ERROR"
)

// BotRuntime is the persisted last-known runtime state of a bot.
type BotRuntime struct {
	BotID         string    `json:"bot_id"`
	State         BotState  `json:"state"`
	StartedAt     time.Time `json:"started_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// OHLCVRecord is the historical bar shape consumed by a DataProvider.
// (timestamp, symbol, exchange) is unique; storage of this record is out
// of scope — only the shape and the DataProvider contract are specified.
type OHLCVRecord struct {
	Timestamp time.Time
	Symbol    string
	Exchange  string
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}
