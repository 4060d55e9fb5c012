// Package bot runs one long-lived actor per configured trading bot, each
// wrapping an internal/engine.Engine with a command channel and an
// explicit Stopped/Running/Paused/Error state machine, grounded on the
// per-market goroutine-plus-cancel pattern the teacher uses for each
// traded market, generalized here to one goroutine per bot.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/engine"
	"polymarket-mm/internal/execmode"
	"polymarket-mm/pkg/types"
)

// CommandKind enumerates the operations a caller can request of an actor.
type CommandKind string

const (
	CmdStart        CommandKind = "START"
	CmdStop         CommandKind = "STOP"
	CmdPause        CommandKind = "PAUSE"
	CmdResume       CommandKind = "RESUME"
	CmdUpdateConfig CommandKind = "UPDATE_CONFIG"
	CmdGetStatus    CommandKind = "GET_STATUS"
	CmdShutdown     CommandKind = "SHUTDOWN"
)

// Command is sent on an actor's command channel. Reply, if non-nil,
// receives exactly one error (nil on success) before the command is
// considered complete. StatusResult, set only on a CmdGetStatus command,
// receives the actor's current Status alongside the nil Reply.
type Command struct {
	Kind         CommandKind
	NewConfig    *types.BotConfig
	Reply        chan error
	StatusResult chan Status
}

// Status is a point-in-time snapshot of a bot's health and performance,
// extending the teacher's per-market dashboard status with account-level
// metrics and a short rolling event log. The actor fills in Equity,
// TradeCount and LastEvents; it does not compute ReturnPct, Sharpe,
// MaxDrawdownPct or WinRate, which stay zero in every published snapshot.
type Status struct {
	BotID          string
	Symbol         string
	State          types.BotState
	Equity         decimal.Decimal
	ReturnPct      decimal.Decimal
	Sharpe         float64
	MaxDrawdownPct decimal.Decimal
	WinRate        float64
	TradeCount     int
	LastEvents     []string
	Error          string
	StartedAt      time.Time
	LastHeartbeat  time.Time
}

const maxEventLog = 10

// Actor owns the lifecycle of one bot: its engine, its command channel,
// and a broadcast-style status feed for watchers (e.g. the API layer).
type Actor struct {
	botID  string
	symbol string

	eng     *engine.Engine
	handler execmode.Handler
	logger  *slog.Logger

	cmdCh chan Command

	mu         sync.Mutex
	cfg        types.BotConfig
	state      types.BotState
	startedAt  time.Time
	lastErr    string
	tradeCount int
	peakEquity decimal.Decimal
	troughDrop decimal.Decimal
	events     []string

	statusVal atomic.Value // Status

	watchersMu sync.Mutex
	watchers   map[int64]chan Status
	watcherSeq int64
}

// NewActor constructs an actor in the Stopped state. The caller is
// responsible for wiring eng's strategies and handler before passing it
// in; the actor only controls eng's run lifecycle.
func NewActor(cfg types.BotConfig, eng *engine.Engine, handler execmode.Handler, logger *slog.Logger) *Actor {
	a := &Actor{
		botID:    cfg.BotID,
		symbol:   cfg.Symbol,
		eng:      eng,
		handler:  handler,
		logger:   logger.With("component", "bot", "bot_id", cfg.BotID),
		cmdCh:    make(chan Command, 8),
		cfg:      cfg,
		state:    types.BotStopped,
		watchers: make(map[int64]chan Status),
	}
	a.eng.OnFill(a.onFill)
	a.publishStatus()
	return a
}

// Send enqueues a command and blocks until it is processed, returning
// any error the command produced.
func (a *Actor) Send(ctx context.Context, cmd Command) error {
	cmd.Reply = make(chan error, 1)
	select {
	case a.cmdCh <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.Reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetStatus round-trips a CmdGetStatus command through the actor's command
// channel, giving callers a way to read status serialized with the rest of
// the command stream rather than the lock-free Status() snapshot.
func (a *Actor) GetStatus(ctx context.Context) (Status, error) {
	cmd := Command{Kind: CmdGetStatus, Reply: make(chan error, 1), StatusResult: make(chan Status, 1)}
	select {
	case a.cmdCh <- cmd:
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
	select {
	case err := <-cmd.Reply:
		if err != nil {
			return Status{}, err
		}
		return <-cmd.StatusResult, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// Status returns the most recently published status without blocking.
func (a *Actor) Status() Status {
	if v := a.statusVal.Load(); v != nil {
		return v.(Status)
	}
	return Status{BotID: a.botID, Symbol: a.symbol, State: types.BotStopped}
}

// Watch registers a watcher that receives the latest status on every
// change. The returned channel is buffered to size 1 and always holds
// only the most recent status -- a slow watcher never blocks the actor
// and never sees a backlog, only ever the newest value. Call the
// returned cancel func to unsubscribe.
func (a *Actor) Watch() (<-chan Status, func()) {
	a.watchersMu.Lock()
	id := a.watcherSeq
	a.watcherSeq++
	ch := make(chan Status, 1)
	ch <- a.Status()
	a.watchers[id] = ch
	a.watchersMu.Unlock()

	cancel := func() {
		a.watchersMu.Lock()
		delete(a.watchers, id)
		a.watchersMu.Unlock()
	}
	return ch, cancel
}

// Run is the actor's goroutine body: it processes commands until a
// Shutdown command is handled or ctx is cancelled.
func (a *Actor) Run(ctx context.Context) {
	engineDone := make(chan error, 1)
	var engineCancel context.CancelFunc

	stopEngine := func() {
		if engineCancel != nil {
			engineCancel()
			<-engineDone
			engineCancel = nil
		}
	}
	startEngine := func() {
		var runCtx context.Context
		runCtx, engineCancel = context.WithCancel(ctx)
		go func() {
			engineDone <- a.eng.Run(runCtx)
		}()
	}

	defer stopEngine()

	for {
		select {
		case <-ctx.Done():
			return

		case err := <-engineDone:
			// engine exited on its own (not via our cancel): fatal error.
			engineCancel = nil
			if err != nil && err != context.Canceled {
				a.transition(types.BotError, err)
			}

		case cmd := <-a.cmdCh:
			var err error
			switch cmd.Kind {
			case CmdStart:
				if a.Status().State == types.BotRunning {
					err = fmt.Errorf("bot %s: already running", a.botID)
					break
				}
				a.recordEvent("start")
				a.transition(types.BotRunning, nil)
				startEngine()

			case CmdStop:
				stopEngine()
				a.recordEvent("stop")
				a.transition(types.BotStopped, nil)

			case CmdPause:
				if a.Status().State != types.BotRunning {
					err = fmt.Errorf("bot %s: not running", a.botID)
					break
				}
				stopEngine()
				a.recordEvent("pause")
				a.transition(types.BotPaused, nil)

			case CmdResume:
				if a.Status().State != types.BotPaused {
					err = fmt.Errorf("bot %s: not paused", a.botID)
					break
				}
				a.recordEvent("resume")
				a.transition(types.BotRunning, nil)
				startEngine()

			case CmdUpdateConfig:
				if cmd.NewConfig == nil {
					err = fmt.Errorf("bot %s: update_config requires a config", a.botID)
					break
				}
				a.mu.Lock()
				a.cfg = *cmd.NewConfig
				a.mu.Unlock()
				a.recordEvent("update_config")
				a.publishStatus()

			case CmdGetStatus:
				if cmd.StatusResult != nil {
					cmd.StatusResult <- a.Status()
				}

			case CmdShutdown:
				stopEngine()
				a.recordEvent("shutdown")
				a.transition(types.BotStopped, nil)
				if cmd.Reply != nil {
					cmd.Reply <- nil
				}
				return

			default:
				err = fmt.Errorf("bot %s: unknown command %q", a.botID, cmd.Kind)
			}

			if cmd.Reply != nil {
				cmd.Reply <- err
			}
		}
	}
}

func (a *Actor) onFill(order types.Order) {
	a.mu.Lock()
	a.tradeCount++
	a.mu.Unlock()
	a.recordEvent(fmt.Sprintf("fill %s %s %s@%s", order.Side, order.Ticker, order.FilledSize, order.AvgFillPrice))
	a.publishStatus()
}

func (a *Actor) transition(state types.BotState, err error) {
	a.mu.Lock()
	a.state = state
	if state == types.BotRunning && a.startedAt.IsZero() {
		a.startedAt = time.Now().UTC()
	}
	if err != nil {
		a.lastErr = err.Error()
	} else if state != types.BotError {
		a.lastErr = ""
	}
	a.mu.Unlock()
	a.publishStatus()
}

func (a *Actor) recordEvent(msg string) {
	a.mu.Lock()
	a.events = append(a.events, msg)
	if len(a.events) > maxEventLog {
		a.events = a.events[len(a.events)-maxEventLog:]
	}
	a.mu.Unlock()
}

func (a *Actor) publishStatus() {
	a.mu.Lock()
	pos := a.eng.PositionSnapshot(a.symbol)
	status := Status{
		BotID:         a.botID,
		Symbol:        a.symbol,
		State:         a.state,
		Error:         a.lastErr,
		TradeCount:    a.tradeCount,
		StartedAt:     a.startedAt,
		LastHeartbeat: time.Now().UTC(),
	}
	events := make([]string, len(a.events))
	copy(events, a.events)
	status.LastEvents = events
	a.mu.Unlock()

	if bal, err := a.handler.Balance(context.Background()); err == nil {
		status.Equity = bal.Add(pos.UnrealizedPnL)
	}

	a.statusVal.Store(status)

	a.watchersMu.Lock()
	defer a.watchersMu.Unlock()
	for _, ch := range a.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- status
	}
}
