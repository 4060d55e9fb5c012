// Package config defines all configuration for the trading platform.
// Config is assembled in four layers, each overriding the last: a TOML
// base file, an optional per-profile TOML overlay, environment variable
// overrides, and an optional JSON join layer for deployment-specific
// values that don't fit neatly into TOML (e.g. generated by tooling).
// Venue credentials are environment-only and never read from any config
// file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration, merged across all four layers.
type Config struct {
	ExecMode ExecModeConfig  `mapstructure:"exec_mode"`
	Perp     PerpConfig      `mapstructure:"perp"`
	Predict  PredictConfig   `mapstructure:"predict"`
	Risk     RiskConfig      `mapstructure:"risk"`
	Breaker  BreakerConfig   `mapstructure:"breaker"`
	Arb      ArbConfig       `mapstructure:"arb"`
	Store    StoreConfig     `mapstructure:"store"`
	Logging  LoggingConfig   `mapstructure:"logging"`
	API      APIServerConfig `mapstructure:"api"`
}

// ExecModeConfig selects live vs. paper execution and tunes the paper
// fill simulator when paper mode is active.
type ExecModeConfig struct {
	Mode           string  `mapstructure:"mode"` // "live" or "paper"
	InitialBalance float64 `mapstructure:"initial_balance"`
	FeeBps         float64 `mapstructure:"fee_bps"`
	SlippageBps    float64 `mapstructure:"slippage_bps"`
	AllowShort     bool    `mapstructure:"allow_short"`
}

// PerpConfig configures the perpetual-futures venue client. PrivateKey
// is never read from this struct's mapstructure tag -- it is sourced
// exclusively from PERP_PRIVATE_KEY at Load time.
type PerpConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	WSURL             string        `mapstructure:"ws_url"`
	ChainID           int           `mapstructure:"chain_id"`
	VerifyingContract string        `mapstructure:"verifying_contract"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	PrivateKey        string        `mapstructure:"-"`
}

// PredictConfig configures a binary-outcome venue client. RSAKeyPath and
// KeyID are sourced from PREDICT_RSA_KEY_PATH and PREDICT_KEY_ID.
type PredictConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	WSURL          string        `mapstructure:"ws_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RSAKeyPath     string        `mapstructure:"-"`
	KeyID          string        `mapstructure:"-"`
}

// RiskConfig tunes per-signal position sizing (internal/risk.Config).
type RiskConfig struct {
	RiskPerTradePct float64 `mapstructure:"risk_per_trade_pct"`
	MaxPositionPct  float64 `mapstructure:"max_position_pct"`
	Leverage        int     `mapstructure:"leverage"`
}

// BreakerConfig tunes the circuit breaker (internal/breaker.Config).
type BreakerConfig struct {
	MaxConsecutiveFailures int           `mapstructure:"max_consecutive_failures"`
	MaxDailyLoss           float64       `mapstructure:"max_daily_loss"`
	MinBalance             float64       `mapstructure:"min_balance"`
	OpenDuration           time.Duration `mapstructure:"open_duration"`
}

// ArbConfig tunes the cross-venue arbitrage detector.
type ArbConfig struct {
	MinNetEdge        float64 `mapstructure:"min_net_edge"`
	MaxPairCost       float64 `mapstructure:"max_pair_cost"`
	ConfiguredMaxSize float64 `mapstructure:"configured_max_size"`
	MaxPositionValue  float64 `mapstructure:"max_position_value"`
}

// StoreConfig sets where bot config/state is persisted (JSON files).
type StoreConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// APIServerConfig controls the dashboard/status HTTP surface.
type APIServerConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load assembles Config from, in increasing precedence order: basePath
// (required TOML base file), overlayPath (optional per-profile TOML
// overlay, skipped if empty or missing), environment variables prefixed
// BOT_, and joinPath (optional JSON join layer, skipped if empty).
func Load(basePath, overlayPath, joinPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetConfigFile(basePath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read base config: %w", err)
	}

	if overlayPath != "" {
		if _, err := os.Stat(overlayPath); err == nil {
			v.SetConfigFile(overlayPath)
			if err := v.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("merge overlay config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if joinPath != "" {
		if data, err := os.ReadFile(joinPath); err == nil {
			var join map[string]interface{}
			if err := json.Unmarshal(data, &join); err != nil {
				return nil, fmt.Errorf("parse join config: %w", err)
			}
			// v.Set ranks join values above environment variables.
			var setAll func(prefix string, m map[string]interface{})
			setAll = func(prefix string, m map[string]interface{}) {
				for k, val := range m {
					if sub, ok := val.(map[string]interface{}); ok {
						setAll(prefix+k+".", sub)
						continue
					}
					v.Set(prefix+k, val)
				}
			}
			setAll("", join)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read join config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Perp.PrivateKey = os.Getenv("PERP_PRIVATE_KEY")
	cfg.Predict.RSAKeyPath = os.Getenv("PREDICT_RSA_KEY_PATH")
	cfg.Predict.KeyID = os.Getenv("PREDICT_KEY_ID")
	if mode := os.Getenv("EXEC_MODE"); mode != "" {
		cfg.ExecMode.Mode = mode
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	switch c.ExecMode.Mode {
	case "live", "paper":
	default:
		return fmt.Errorf("exec_mode.mode must be 'live' or 'paper' (set EXEC_MODE)")
	}
	if c.ExecMode.Mode == "live" && c.Perp.PrivateKey == "" && c.Predict.RSAKeyPath == "" {
		return fmt.Errorf("live mode requires at least one of PERP_PRIVATE_KEY or PREDICT_RSA_KEY_PATH")
	}
	if c.Risk.RiskPerTradePct <= 0 {
		return fmt.Errorf("risk.risk_per_trade_pct must be > 0")
	}
	if c.Risk.MaxPositionPct <= 0 {
		return fmt.Errorf("risk.max_position_pct must be > 0")
	}
	if c.Risk.Leverage < 1 {
		return fmt.Errorf("risk.leverage must be >= 1")
	}
	if c.Store.DataDir == "" {
		return fmt.Errorf("store.data_dir is required")
	}
	return nil
}
