package api

import (
	"testing"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/bot"
	"polymarket-mm/internal/config"
	"polymarket-mm/pkg/types"
)

type fakeStatusProvider struct {
	statuses []bot.Status
}

func (f fakeStatusProvider) List() []bot.Status { return f.statuses }

func TestBuildSnapshotSumsEquityAcrossBots(t *testing.T) {
	t.Parallel()

	provider := fakeStatusProvider{statuses: []bot.Status{
		{BotID: "bot-1", Symbol: "BTC", State: types.BotRunning, Equity: decimal.NewFromInt(1000)},
		{BotID: "bot-2", Symbol: "ETH", State: types.BotStopped, Equity: decimal.NewFromInt(500)},
	}}

	snap := BuildSnapshot(provider, config.Config{ExecMode: config.ExecModeConfig{Mode: "paper"}})

	if len(snap.Bots) != 2 {
		t.Fatalf("Bots = %d entries, want 2", len(snap.Bots))
	}
	if got, want := snap.TotalEquity, "1500"; got != want {
		t.Errorf("TotalEquity = %q, want %q", got, want)
	}
	if snap.Config.ExecMode != "paper" {
		t.Errorf("Config.ExecMode = %q, want paper", snap.Config.ExecMode)
	}
}

func TestBuildSnapshotEmptyRegistry(t *testing.T) {
	t.Parallel()

	snap := BuildSnapshot(fakeStatusProvider{}, config.Config{})

	if len(snap.Bots) != 0 {
		t.Errorf("Bots = %d entries, want 0", len(snap.Bots))
	}
	if snap.TotalEquity != "0" {
		t.Errorf("TotalEquity = %q, want 0", snap.TotalEquity)
	}
}
