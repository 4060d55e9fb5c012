package main

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"polymarket-mm/internal/config"
	"polymarket-mm/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClassifyVenueError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want string
	}{
		{"rate limited", errors.New("perp: post order: status 429: too many requests"), "RATE_LIMITED"},
		{"unauthorized", errors.New("predict: post order: status 401: bad signature"), "AUTH_FAILURE"},
		{"forbidden", errors.New("predict: post order: status 403: forbidden"), "AUTH_FAILURE"},
		{"bad request", errors.New("perp: post order: status 422: invalid tick size"), "PERMANENT_REJECTION"},
		{"server error", errors.New("perp: post order: status 503: unavailable"), "TRANSIENT"},
		{"transport error", errors.New("perp: post order: dial tcp: connection refused"), "TRANSIENT"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := string(classifyVenueError(tc.err)); got != tc.want {
				t.Errorf("classifyVenueError(%q) = %s, want %s", tc.err, got, tc.want)
			}
		})
	}
}

func TestBuildBotFactoryPaperModeStillRequiresVenueFeed(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		ExecMode: config.ExecModeConfig{Mode: "paper", InitialBalance: 1000},
	}
	factory := buildBotFactory(cfg, nil, nil, nil, nil, nil, testLogger())

	_, _, err := factory(types.BotConfig{BotID: "bot-1", Venue: types.VenuePerp, Symbol: "BTC"})
	if err == nil {
		t.Fatal("expected error: perp feed was never configured, even in paper mode")
	}
}

func TestBuildBotFactoryUnknownVenueRejected(t *testing.T) {
	t.Parallel()

	cfg := config.Config{ExecMode: config.ExecModeConfig{Mode: "paper"}}
	factory := buildBotFactory(cfg, nil, nil, nil, nil, nil, testLogger())

	_, _, err := factory(types.BotConfig{BotID: "bot-1", Venue: "unknown", Symbol: "BTC"})
	if err == nil {
		t.Fatal("expected error for unknown venue")
	}
}
