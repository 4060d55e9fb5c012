package feed

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noopDecoder(raw []byte) (types.MarketEvent, bool, error) {
	return nil, false, nil
}

func TestNextReturnsQueuedEvent(t *testing.T) {
	t.Parallel()
	f := New("ws://example.invalid", noopDecoder, testLogger())

	want := types.Trade{Symbol: "BTC", Price: decimal.NewFromInt(100), Timestamp: time.Now()}
	f.events <- want

	got, err := f.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if got.EventSymbol() != "BTC" {
		t.Errorf("EventSymbol() = %q, want BTC", got.EventSymbol())
	}
}

func TestNextRespectsContextCancellation(t *testing.T) {
	t.Parallel()
	f := New("ws://example.invalid", noopDecoder, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Next(ctx); err != context.Canceled {
		t.Errorf("Next() error = %v, want context.Canceled", err)
	}
}

func TestSubscribeTracksSymbolsBeforeConnecting(t *testing.T) {
	t.Parallel()
	f := New("ws://example.invalid", noopDecoder, testLogger())

	// writeSubscribe fails (not connected) but the symbol must still be
	// tracked for replay on the eventual successful connection.
	_ = f.Subscribe([]string{"BTC", "ETH"})

	f.subscribedMu.RLock()
	defer f.subscribedMu.RUnlock()
	if !f.subscribed["BTC"] || !f.subscribed["ETH"] {
		t.Errorf("subscribed = %v, want BTC and ETH tracked", f.subscribed)
	}
}

func TestUnsubscribeRemovesSymbol(t *testing.T) {
	t.Parallel()
	f := New("ws://example.invalid", noopDecoder, testLogger())
	_ = f.Subscribe([]string{"BTC"})
	f.Unsubscribe([]string{"BTC"})

	f.subscribedMu.RLock()
	defer f.subscribedMu.RUnlock()
	if f.subscribed["BTC"] {
		t.Error("BTC still subscribed after Unsubscribe")
	}
}
