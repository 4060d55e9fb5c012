package api

import (
	"time"

	"polymarket-mm/internal/bot"
	"polymarket-mm/internal/config"
)

// DashboardSnapshot represents the complete dashboard state: every
// registered bot's status plus a summary of the configuration the
// platform is currently running with.
type DashboardSnapshot struct {
	Timestamp time.Time `json:"timestamp"`

	Bots []BotStatus `json:"bots"`

	TotalEquity string `json:"total_equity"` // decimal.Decimal, string-encoded

	Config ConfigSummary `json:"config"`
}

// BotStatus is the wire representation of bot.Status, decimals encoded
// as strings to avoid float precision loss in JSON.
type BotStatus struct {
	BotID          string    `json:"bot_id"`
	Symbol         string    `json:"symbol"`
	State          string    `json:"state"`
	Equity         string    `json:"equity"`
	ReturnPct      string    `json:"return_pct"`
	Sharpe         float64   `json:"sharpe"`
	MaxDrawdownPct string    `json:"max_drawdown_pct"`
	WinRate        float64   `json:"win_rate"`
	TradeCount     int       `json:"trade_count"`
	LastEvents     []string  `json:"last_events"`
	Error          string    `json:"error,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	LastHeartbeat  time.Time `json:"last_heartbeat"`
}

// NewBotStatus converts a bot.Status into its wire representation.
func NewBotStatus(s bot.Status) BotStatus {
	return BotStatus{
		BotID:          s.BotID,
		Symbol:         s.Symbol,
		State:          string(s.State),
		Equity:         s.Equity.String(),
		ReturnPct:      s.ReturnPct.String(),
		Sharpe:         s.Sharpe,
		MaxDrawdownPct: s.MaxDrawdownPct.String(),
		WinRate:        s.WinRate,
		TradeCount:     s.TradeCount,
		LastEvents:     s.LastEvents,
		Error:          s.Error,
		StartedAt:      s.StartedAt,
		LastHeartbeat:  s.LastHeartbeat,
	}
}

// ConfigSummary exposes the platform's non-secret configuration: no
// venue credential ever appears here.
type ConfigSummary struct {
	ExecMode string `json:"exec_mode"`

	RiskPerTradePct float64 `json:"risk_per_trade_pct"`
	MaxPositionPct  float64 `json:"max_position_pct"`
	Leverage        int     `json:"leverage"`

	BreakerMaxConsecutiveFailures int     `json:"breaker_max_consecutive_failures"`
	BreakerMaxDailyLoss           float64 `json:"breaker_max_daily_loss"`
	BreakerMinBalance             float64 `json:"breaker_min_balance"`

	ArbMinNetEdge       float64 `json:"arb_min_net_edge"`
	ArbMaxPositionValue float64 `json:"arb_max_position_value"`
}

// NewConfigSummary builds a ConfigSummary from the running config.
func NewConfigSummary(cfg config.Config) ConfigSummary {
	return ConfigSummary{
		ExecMode: cfg.ExecMode.Mode,

		RiskPerTradePct: cfg.Risk.RiskPerTradePct,
		MaxPositionPct:  cfg.Risk.MaxPositionPct,
		Leverage:        cfg.Risk.Leverage,

		BreakerMaxConsecutiveFailures: cfg.Breaker.MaxConsecutiveFailures,
		BreakerMaxDailyLoss:           cfg.Breaker.MaxDailyLoss,
		BreakerMinBalance:             cfg.Breaker.MinBalance,

		ArbMinNetEdge:       cfg.Arb.MinNetEdge,
		ArbMaxPositionValue: cfg.Arb.MaxPositionValue,
	}
}
