// Cross-venue algorithmic trading platform — an orchestrator that runs
// an independent bot actor per configured symbol/strategy against
// either of two venues.
//
// Architecture:
//
//	main.go                    — entry point: loads config, builds the bot registry, waits for SIGINT/SIGTERM
//	bot/registry.go            — spawn/lookup/shutdown for the full set of bot actors
//	bot/actor.go               — per-bot command loop (Start/Stop/Pause/Resume/Shutdown)
//	engine/engine.go           — per-bot tick pipeline: feed -> strategies -> risk sizing -> execution handler
//	execmode/live.go           — forwards orders through a venue executor's guardrail pipeline
//	execmode/paper.go          — in-process fill simulator for dry-run bots
//	venue/perp, venue/predict  — signer + REST client + WS decoder per venue
//	executor/executor.go       — circuit breaker, daily notional, hard limits, rate limiting, then submit
//	store/store.go             — JSON file persistence for bot config/runtime state (survives restarts)
//	api/server.go              — optional dashboard/status HTTP + WebSocket surface over the registry
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-mm/internal/api"
	"polymarket-mm/internal/bot"
	"polymarket-mm/internal/breaker"
	"polymarket-mm/internal/config"
	"polymarket-mm/internal/engine"
	"polymarket-mm/internal/execmode"
	"polymarket-mm/internal/executor"
	"polymarket-mm/internal/feed"
	"polymarket-mm/internal/position"
	"polymarket-mm/internal/risk"
	"polymarket-mm/internal/store"
	"polymarket-mm/internal/venue/perp"
	"polymarket-mm/internal/venue/predict"
	"polymarket-mm/internal/venue/ratelimit"
	"polymarket-mm/pkg/types"
)

func main() {
	basePath := "configs/base.toml"
	if p := os.Getenv("BOT_CONFIG_BASE"); p != "" {
		basePath = p
	}
	overlayPath := os.Getenv("BOT_CONFIG_OVERLAY")
	joinPath := os.Getenv("BOT_CONFIG_JOIN")

	cfg, err := config.Load(basePath, overlayPath, joinPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", basePath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	st, err := store.Open(cfg.Store.DataDir)
	if err != nil {
		logger.Error("failed to open store", "error", err, "data_dir", cfg.Store.DataDir)
		os.Exit(1)
	}
	defer st.Close()

	sharedBreaker := breaker.New(breaker.Config{
		MaxConsecutiveFailures: cfg.Breaker.MaxConsecutiveFailures,
		MaxDailyLoss:           decimal.NewFromFloat(cfg.Breaker.MaxDailyLoss),
		MinBalance:             decimal.NewFromFloat(cfg.Breaker.MinBalance),
		OpenDuration:           cfg.Breaker.OpenDuration,
	})

	perpClient, perpFeed, err := buildPerpVenue(*cfg, logger)
	if err != nil {
		logger.Error("failed to build perp venue", "error", err)
		os.Exit(1)
	}
	predictClient, predictFeed, err := buildPredictVenue(*cfg, logger)
	if err != nil {
		logger.Error("failed to build predict venue", "error", err)
		os.Exit(1)
	}

	factory := buildBotFactory(*cfg, sharedBreaker, perpClient, perpFeed, predictClient, predictFeed, logger)
	registry := bot.NewRegistry(factory, st, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := registry.RestoreEnabled(ctx); err != nil {
		logger.Error("failed to restore bots", "error", err)
		os.Exit(1)
	}

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer = api.NewServer(cfg.API, registry, *cfg, logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error("api server failed", "error", err)
			}
		}()
		logger.Info("api server started", "url", fmt.Sprintf("http://localhost:%d", cfg.API.Port))
	}

	logger.Info("bot orchestrator started", "exec_mode", cfg.ExecMode.Mode)

	persistTicker := time.NewTicker(30 * time.Second)
	defer persistTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("received shutdown signal")
			if apiServer != nil {
				if err := apiServer.Stop(); err != nil {
					logger.Error("failed to stop api server", "error", err)
				}
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			registry.ShutdownAll(shutdownCtx)
			cancel()
			if err := registry.PersistRuntime(); err != nil {
				logger.Error("failed to persist runtime state on shutdown", "error", err)
			}
			return
		case <-persistTicker.C:
			if err := registry.PersistRuntime(); err != nil {
				logger.Error("failed to persist runtime state", "error", err)
			}
		}
	}
}

// buildPerpVenue constructs the perp venue's signer, REST client, and
// market-data feed from config and the PERP_PRIVATE_KEY environment
// variable. Returns a nil client and a nil feed when no key is configured;
// the bot factory then refuses every perp bot, in paper mode too, because
// each bot still reads the venue's market-data feed.
func buildPerpVenue(cfg config.Config, logger *slog.Logger) (executor.VenueClient, *feed.Feed, error) {
	if cfg.Perp.PrivateKey == "" {
		return nil, nil, nil
	}

	signer, err := perp.NewSigner(cfg.Perp.PrivateKey, perp.Domain{
		Name:              "PerpExchange",
		Version:           "1",
		ChainID:           int64(cfg.Perp.ChainID),
		VerifyingContract: cfg.Perp.VerifyingContract,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build perp signer: %w", err)
	}

	client := perp.NewClient(perp.ClientConfig{
		BaseURL:        cfg.Perp.BaseURL,
		RequestTimeout: cfg.Perp.RequestTimeout,
		ChainID:        int64(cfg.Perp.ChainID),
	}, signer)

	f := feed.New(cfg.Perp.WSURL, perp.Decode, logger)
	return client, f, nil
}

// buildPredictVenue constructs the predict venue's signer, REST client,
// and market-data feed from config and the PREDICT_RSA_KEY_PATH/
// PREDICT_KEY_ID environment variables.
func buildPredictVenue(cfg config.Config, logger *slog.Logger) (executor.VenueClient, *feed.Feed, error) {
	if cfg.Predict.RSAKeyPath == "" {
		return nil, nil, nil
	}

	pemBytes, err := os.ReadFile(cfg.Predict.RSAKeyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read predict rsa key: %w", err)
	}

	signer, err := predict.NewSignerFromPEM(pemBytes, cfg.Predict.KeyID)
	if err != nil {
		return nil, nil, fmt.Errorf("build predict signer: %w", err)
	}

	client := predict.NewClient(predict.ClientConfig{
		BaseURL:        cfg.Predict.BaseURL,
		RequestTimeout: cfg.Predict.RequestTimeout,
	}, signer)

	f := feed.New(cfg.Predict.WSURL, predict.Decode, logger)
	return client, f, nil
}

// buildBotFactory returns a bot.Factory that assembles one engine and
// execution handler per bot config, routing to the venue the config
// names. In paper mode every bot gets an in-process fill simulator
// instead, regardless of its configured venue.
func buildBotFactory(
	cfg config.Config,
	sharedBreaker *breaker.Breaker,
	perpClient executor.VenueClient,
	perpFeed *feed.Feed,
	predictClient executor.VenueClient,
	predictFeed *feed.Feed,
	logger *slog.Logger,
) bot.Factory {
	return func(botCfg types.BotConfig) (*engine.Engine, execmode.Handler, error) {
		var provider engine.DataProvider
		switch botCfg.Venue {
		case types.VenuePerp:
			if perpFeed == nil {
				return nil, nil, fmt.Errorf("bot %s: perp venue not configured (PERP_PRIVATE_KEY unset)", botCfg.BotID)
			}
			provider = perpFeed
		case types.VenuePredict:
			if predictFeed == nil {
				return nil, nil, fmt.Errorf("bot %s: predict venue not configured (PREDICT_RSA_KEY_PATH unset)", botCfg.BotID)
			}
			provider = predictFeed
		default:
			return nil, nil, fmt.Errorf("bot %s: unknown venue %q", botCfg.BotID, botCfg.Venue)
		}

		var execHandler execmode.Handler
		switch {
		case cfg.ExecMode.Mode == "paper":
			execHandler = execmode.NewPaperHandler(execmode.PaperConfig{
				InitialBalance: decimal.NewFromFloat(cfg.ExecMode.InitialBalance),
				FeeBps:         decimal.NewFromFloat(cfg.ExecMode.FeeBps),
				SlippageBps:    decimal.NewFromFloat(cfg.ExecMode.SlippageBps),
				AllowShort:     cfg.ExecMode.AllowShort,
			})
		case botCfg.Venue == types.VenuePerp:
			if perpClient == nil {
				return nil, nil, fmt.Errorf("bot %s: perp venue not configured (PERP_PRIVATE_KEY unset)", botCfg.BotID)
			}
			execHandler = execmode.NewLiveHandler(newVenueExecutor(perpClient, sharedBreaker, botCfg.Symbol))
		case botCfg.Venue == types.VenuePredict:
			if predictClient == nil {
				return nil, nil, fmt.Errorf("bot %s: predict venue not configured (PREDICT_RSA_KEY_PATH unset)", botCfg.BotID)
			}
			execHandler = execmode.NewLiveHandler(newVenueExecutor(predictClient, sharedBreaker, botCfg.Symbol))
		}

		riskCfg := risk.Config{
			RiskPerTradePct: botCfg.RiskPerTradePct,
			MaxPositionPct:  botCfg.MaxPositionPct,
			Leverage:        botCfg.Leverage,
		}

		eng := engine.New(provider, nil, execHandler, engine.HandlerEquity(execHandler), riskCfg, logger)
		return eng, execHandler, nil
	}
}

// newVenueExecutor wraps client in an Executor with a fresh per-bot rate
// limiter and position tracker, sharing the single circuit breaker across
// every bot on the platform.
func newVenueExecutor(client executor.VenueClient, sharedBreaker *breaker.Breaker, symbol string) *executor.Executor {
	limiter := ratelimit.New(ratelimit.Config{
		SubmitCapacity: 10, SubmitRate: 5,
		CancelCapacity: 10, CancelRate: 5,
		ReadCapacity: 20, ReadRate: 10,
	})
	return executor.New(client, sharedBreaker, limiter, position.New(symbol), classifyVenueError, executor.Config{
		BalanceReserve: decimal.Zero,
		MaxRetries:     3,
		RetryBaseDelay: 500 * time.Millisecond,
	})
}

// classifyVenueError maps a venue client's wrapped HTTP status line
// (e.g. "perp: post order: status 429: ...") to an executor.Kind. Venue
// clients report transport failures as plain errors with no "status N"
// substring, which fall through to the transient default.
func classifyVenueError(err error) executor.Kind {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "status 429"):
		return executor.KindRateLimited
	case strings.Contains(msg, "status 401"), strings.Contains(msg, "status 403"):
		return executor.KindAuthFailure
	case strings.Contains(msg, "status 4"):
		return executor.KindPermanentRejection
	default:
		return executor.KindTransient
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
