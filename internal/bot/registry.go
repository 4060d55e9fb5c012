package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"polymarket-mm/internal/engine"
	"polymarket-mm/internal/execmode"
	"polymarket-mm/internal/store"
	"polymarket-mm/pkg/types"
)

// Factory builds the engine and execution handler for a bot config. The
// registry is agnostic to how a bot's strategies, feed, and venue
// clients are wired together -- that assembly is supplied by the caller
// (typically cmd/bot/main.go) so the registry itself stays free of
// venue-specific knowledge.
type Factory func(cfg types.BotConfig) (*engine.Engine, execmode.Handler, error)

// Registry owns the full set of bot actors: spawn, lookup, listing,
// removal, and coordinated shutdown, generalizing the teacher's
// per-market slot map (internal/engine.Engine.slots) to per-bot.
type Registry struct {
	factory Factory
	store   *store.Store
	logger  *slog.Logger

	mu      sync.RWMutex
	actors  map[string]*Actor
	cancels map[string]context.CancelFunc
}

// NewRegistry constructs an empty registry.
func NewRegistry(factory Factory, st *store.Store, logger *slog.Logger) *Registry {
	return &Registry{
		factory: factory,
		store:   st,
		logger:  logger.With("component", "bot_registry"),
		actors:  make(map[string]*Actor),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Spawn creates a new actor for cfg, persists its config, and starts its
// run loop (in the Stopped state -- a separate Start command actually
// begins trading). Returns an error if a bot with this ID already exists.
func (r *Registry) Spawn(ctx context.Context, cfg types.BotConfig) (*Actor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.actors[cfg.BotID]; exists {
		return nil, fmt.Errorf("bot %s: already registered", cfg.BotID)
	}

	eng, handler, err := r.factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("bot %s: build engine: %w", cfg.BotID, err)
	}

	if err := r.store.SaveConfig(cfg); err != nil {
		return nil, fmt.Errorf("bot %s: persist config: %w", cfg.BotID, err)
	}

	actor := NewActor(cfg, eng, handler, r.logger)
	actorCtx, cancel := context.WithCancel(context.Background())
	r.actors[cfg.BotID] = actor
	r.cancels[cfg.BotID] = cancel

	go actor.Run(actorCtx)

	return actor, nil
}

// Get returns the actor for botID, or ok=false if none is registered.
func (r *Registry) Get(botID string) (*Actor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actors[botID]
	return a, ok
}

// List returns every registered actor's current status.
func (r *Registry) List() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Status, 0, len(r.actors))
	for _, a := range r.actors {
		out = append(out, a.Status())
	}
	return out
}

// Remove shuts an actor down and deletes its persisted records. Runtime
// state is removed before config (FK-ordered deletion), matching
// internal/store.Store.Delete's ordering guarantee.
func (r *Registry) Remove(ctx context.Context, botID string) error {
	r.mu.Lock()
	actor, ok := r.actors[botID]
	cancel := r.cancels[botID]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("bot %s: not registered", botID)
	}

	if err := actor.Send(ctx, Command{Kind: CmdShutdown}); err != nil {
		r.logger.Warn("shutdown command failed during remove", "bot_id", botID, "error", err)
	}
	cancel()

	if err := r.store.Delete(botID); err != nil {
		return fmt.Errorf("bot %s: delete persisted records: %w", botID, err)
	}

	r.mu.Lock()
	delete(r.actors, botID)
	delete(r.cancels, botID)
	r.mu.Unlock()
	return nil
}

// ShutdownAll sends Shutdown to every actor and waits for acknowledgment,
// used on process exit.
func (r *Registry) ShutdownAll(ctx context.Context) {
	r.mu.RLock()
	actors := make(map[string]*Actor, len(r.actors))
	for id, a := range r.actors {
		actors[id] = a
	}
	r.mu.RUnlock()

	var wg sync.WaitGroup
	for id, a := range actors {
		wg.Add(1)
		go func(id string, a *Actor) {
			defer wg.Done()
			if err := a.Send(ctx, Command{Kind: CmdShutdown}); err != nil {
				r.logger.Warn("shutdown failed", "bot_id", id, "error", err)
			}
		}(id, a)
	}
	wg.Wait()

	r.mu.Lock()
	for _, cancel := range r.cancels {
		cancel()
	}
	r.mu.Unlock()
}

// RestoreEnabled re-spawns every persisted bot config with Enabled set,
// and issues a Start to any whose last-known runtime state was Running,
// matching spec.md's auto-restore-on-start requirement.
func (r *Registry) RestoreEnabled(ctx context.Context) error {
	configs, err := r.store.ListConfigs()
	if err != nil {
		return fmt.Errorf("list persisted configs: %w", err)
	}

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		actor, err := r.Spawn(ctx, cfg)
		if err != nil {
			r.logger.Error("failed to restore bot", "bot_id", cfg.BotID, "error", err)
			continue
		}

		rt, err := r.store.LoadRuntime(cfg.BotID)
		if err != nil {
			r.logger.Error("failed to load runtime state", "bot_id", cfg.BotID, "error", err)
			continue
		}
		if rt != nil && rt.State == types.BotRunning {
			if err := actor.Send(ctx, Command{Kind: CmdStart}); err != nil {
				r.logger.Error("failed to auto-start restored bot", "bot_id", cfg.BotID, "error", err)
			}
		}
	}
	return nil
}

// PersistRuntime snapshots every actor's state to the store, intended to
// be called periodically and on shutdown so restart can resume correctly.
func (r *Registry) PersistRuntime() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, a := range r.actors {
		st := a.Status()
		rt := types.BotRuntime{
			BotID:         id,
			State:         st.State,
			StartedAt:     st.StartedAt,
			LastHeartbeat: st.LastHeartbeat,
		}
		if err := r.store.SaveRuntime(rt); err != nil {
			return fmt.Errorf("bot %s: persist runtime: %w", id, err)
		}
	}
	return nil
}
