// Package config loads run configuration with precedence: code defaults,
// then YAML overrides, then environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tradesim/tradesim/internal/cost"
	"github.com/tradesim/tradesim/internal/risk"
)

// Config is the full run setup handed to the orchestrator.
type Config struct {
	InitialBalance          float64         `yaml:"initial_balance"`
	PipValue                float64         `yaml:"pip_value"`
	MaxConcurrentStrategies int             `yaml:"max_concurrent_strategies"`
	MaxExposurePerAsset     float64         `yaml:"max_exposure_per_asset"`
	Costs                   cost.Config     `yaml:"costs"`
	Risk                    risk.Parameters `yaml:"risk"`
}

// Default returns the code defaults a YAML file overrides field by field.
func Default() Config {
	return Config{
		InitialBalance:          10000,
		PipValue:                1,
		MaxConcurrentStrategies: 5,
		MaxExposurePerAsset:     0.5,
		Costs: cost.Config{
			Spread:         0.0002,
			Slippage:       0.0001,
			CommissionRate: 0.0001,
		},
		Risk: risk.Parameters{
			Leverage:          30,
			MaxDrawdown:       0.20,
			RiskPerTrade:      0.01,
			DefaultLotSize:    1,
			LotIncrement:      0.01,
			MaxOpenTrades:     5,
			MaxSpread:         0.001,
			StopLossBuffer:    0.02,
			TakeProfitBuffer:  0.04,
			TrailingBuffer:    0.015,
			ScaleInThreshold:  0.01,
			ScaleOutThreshold: 0.01,
			ScaleStep:         0.25,
			MaxPosition:       100,
			ProfitTiers:       risk.DefaultProfitTiers(),
		},
	}
}

// Load resolves the configuration. An empty path falls back to the
// TRADESIM_CONFIG environment variable; a missing file is not an error,
// the defaults stand.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) == "" {
		path = os.Getenv("TRADESIM_CONFIG")
	}
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	cfg.loadEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadEnv() {
	if v := strings.TrimSpace(os.Getenv("TRADESIM_INITIAL_BALANCE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.InitialBalance = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("TRADESIM_MAX_CONCURRENT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxConcurrentStrategies = n
		}
	}
}

// Validate rejects configurations the engine cannot run safely.
func (c *Config) Validate() error {
	if c.InitialBalance <= 0 {
		return fmt.Errorf("initial_balance must be >0, got %.2f", c.InitialBalance)
	}
	if c.PipValue <= 0 {
		return fmt.Errorf("pip_value must be >0, got %.5f", c.PipValue)
	}
	if c.MaxConcurrentStrategies <= 0 {
		c.MaxConcurrentStrategies = 5
	}
	if c.MaxExposurePerAsset < 0 {
		return fmt.Errorf("max_exposure_per_asset must be >=0, got %.4f", c.MaxExposurePerAsset)
	}
	if c.Costs.Spread < 0 || c.Costs.Slippage < 0 || c.Costs.CommissionRate < 0 {
		return fmt.Errorf("cost assumptions must be non-negative")
	}
	if c.Risk.RiskPerTrade <= 0 || c.Risk.RiskPerTrade > 1 {
		return fmt.Errorf("risk_per_trade must be in (0, 1], got %.4f", c.Risk.RiskPerTrade)
	}
	if c.Risk.MaxDrawdown <= 0 || c.Risk.MaxDrawdown > 1 {
		return fmt.Errorf("max_drawdown must be in (0, 1], got %.4f", c.Risk.MaxDrawdown)
	}
	if c.Risk.StopLossBuffer <= 0 {
		return fmt.Errorf("stop_loss_buffer must be >0, got %.4f", c.Risk.StopLossBuffer)
	}
	for _, tier := range c.Risk.ProfitTiers {
		if tier.Level <= 0 || tier.Fraction <= 0 || tier.Fraction > 1 {
			return fmt.Errorf("invalid profit tier: level %.4f fraction %.4f", tier.Level, tier.Fraction)
		}
	}
	return nil
}
