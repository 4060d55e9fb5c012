package api

import (
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/bot"
	"polymarket-mm/internal/config"
)

// StatusProvider supplies the set of bot statuses to render. Satisfied
// by *bot.Registry; an interface here only so tests can fake it.
type StatusProvider interface {
	List() []bot.Status
}

// BuildSnapshot aggregates every bot's status and the running config
// into a single dashboard snapshot.
func BuildSnapshot(provider StatusProvider, cfg config.Config) DashboardSnapshot {
	statuses := provider.List()

	bots := make([]BotStatus, 0, len(statuses))
	total := decimal.Zero
	for _, s := range statuses {
		bots = append(bots, NewBotStatus(s))
		total = total.Add(s.Equity)
	}

	return DashboardSnapshot{
		Timestamp:   time.Now(),
		Bots:        bots,
		TotalEquity: total.String(),
		Config:      NewConfigSummary(cfg),
	}
}
