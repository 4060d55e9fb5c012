package bot

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/engine"
	"polymarket-mm/internal/execmode"
	"polymarket-mm/internal/risk"
	"polymarket-mm/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type blockingProvider struct {
	events chan types.MarketEvent
}

func newBlockingProvider() *blockingProvider {
	return &blockingProvider{events: make(chan types.MarketEvent, 16)}
}

func (p *blockingProvider) Next(ctx context.Context) (types.MarketEvent, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case evt := <-p.events:
		return evt, nil
	}
}

func testRiskConfig() risk.Config {
	return risk.Config{RiskPerTradePct: decimal.NewFromFloat(0.02), MaxPositionPct: decimal.NewFromFloat(0.5), Leverage: 1}
}

func newActorForTest(t *testing.T) (*Actor, *blockingProvider) {
	t.Helper()
	provider := newBlockingProvider()
	handler := execmode.NewPaperHandler(execmode.PaperConfig{InitialBalance: decimal.NewFromInt(10000)})
	eng := engine.New(provider, nil, handler, engine.HandlerEquity(handler), testRiskConfig(), testLogger())
	cfg := types.BotConfig{BotID: "bot-1", Symbol: "BTC"}
	a := NewActor(cfg, eng, handler, testLogger())
	return a, provider
}

func TestActorStartTransitionsToRunning(t *testing.T) {
	t.Parallel()
	a, _ := newActorForTest(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	if err := a.Send(context.Background(), Command{Kind: CmdStart}); err != nil {
		t.Fatalf("Send(Start) error = %v", err)
	}
	if got := a.Status().State; got != types.BotRunning {
		t.Errorf("State = %v, want Running", got)
	}
}

func TestActorStopTransitionsToStopped(t *testing.T) {
	t.Parallel()
	a, _ := newActorForTest(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	_ = a.Send(context.Background(), Command{Kind: CmdStart})
	if err := a.Send(context.Background(), Command{Kind: CmdStop}); err != nil {
		t.Fatalf("Send(Stop) error = %v", err)
	}
	if got := a.Status().State; got != types.BotStopped {
		t.Errorf("State = %v, want Stopped", got)
	}
}

func TestActorPauseThenResume(t *testing.T) {
	t.Parallel()
	a, _ := newActorForTest(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	_ = a.Send(context.Background(), Command{Kind: CmdStart})
	if err := a.Send(context.Background(), Command{Kind: CmdPause}); err != nil {
		t.Fatalf("Send(Pause) error = %v", err)
	}
	if got := a.Status().State; got != types.BotPaused {
		t.Errorf("State = %v, want Paused", got)
	}

	if err := a.Send(context.Background(), Command{Kind: CmdResume}); err != nil {
		t.Fatalf("Send(Resume) error = %v", err)
	}
	if got := a.Status().State; got != types.BotRunning {
		t.Errorf("State = %v, want Running", got)
	}
}

func TestActorPauseWhenNotRunningErrors(t *testing.T) {
	t.Parallel()
	a, _ := newActorForTest(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	if err := a.Send(context.Background(), Command{Kind: CmdPause}); err == nil {
		t.Error("Send(Pause) error = nil, want error when not running")
	}
}

func TestActorShutdownEndsRunLoop(t *testing.T) {
	t.Parallel()
	a, _ := newActorForTest(t)

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	_ = a.Send(context.Background(), Command{Kind: CmdStart})
	if err := a.Send(context.Background(), Command{Kind: CmdShutdown}); err != nil {
		t.Fatalf("Send(Shutdown) error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after Shutdown")
	}
}

func TestActorGetStatusRoundTrips(t *testing.T) {
	t.Parallel()
	a, _ := newActorForTest(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	_ = a.Send(context.Background(), Command{Kind: CmdStart})

	st, err := a.GetStatus(context.Background())
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if st.BotID != "bot-1" {
		t.Errorf("BotID = %q, want bot-1", st.BotID)
	}
	if st.State != types.BotRunning {
		t.Errorf("State = %v, want Running", st.State)
	}
}

func TestActorWatchReceivesLatestStatus(t *testing.T) {
	t.Parallel()
	a, _ := newActorForTest(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	ch, unsub := a.Watch()
	defer unsub()

	_ = a.Send(context.Background(), Command{Kind: CmdStart})

	select {
	case st := <-ch:
		if st.State != types.BotRunning {
			t.Errorf("watched state = %v, want Running (the latest status after Start)", st.State)
		}
	case <-time.After(time.Second):
		t.Fatal("Watch() did not deliver a status update")
	}
}
