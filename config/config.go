package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tradekit/zonebot/market"
	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration. It is constructed once
// at startup and passed by reference into the runner and sizer; nothing
// mutates it afterwards. Broker-discovered symbol constraints are
// threaded separately as market.SymbolInfo.
type Config struct {
	Broker  BrokerConfig  `json:"broker" yaml:"broker"`
	Trade   TradeConfig   `json:"trade" yaml:"trade"`
	Risk    RiskConfig    `json:"risk" yaml:"risk"`
	Loop    LoopConfig    `json:"loop" yaml:"loop"`
	Ledger  LedgerConfig  `json:"ledger" yaml:"ledger"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// BrokerConfig points at the terminal bridge. Token may also come from
// the ZONEBOT_BRIDGE_TOKEN environment variable so it can stay out of
// the config file.
type BrokerConfig struct {
	BridgeURL string `json:"bridge_url" yaml:"bridge_url"`
	StreamURL string `json:"stream_url,omitempty" yaml:"stream_url,omitempty"` // optional websocket tick stream
	Token     string `json:"token,omitempty" yaml:"token,omitempty"`
	Timeout   string `json:"timeout,omitempty" yaml:"timeout,omitempty"` // e.g. "30s"
}

// TradeConfig contains strategy parameters.
type TradeConfig struct {
	Symbol            string  `json:"symbol" yaml:"symbol"`
	Timeframe         string  `json:"timeframe" yaml:"timeframe"` // 1m, 5m, 15m, 1h, 4h
	Window            int     `json:"window" yaml:"window"`       // candle lookback for zone detection
	DeviationPoints   int     `json:"deviation_points" yaml:"deviation_points"`
	MinDistancePoints float64 `json:"min_distance_points" yaml:"min_distance_points"`
	Magic             int64   `json:"magic" yaml:"magic"`
	Label             string  `json:"label" yaml:"label"`
	// Ticks to wait after a rejected submission before evaluating a
	// new entry. Zero re-evaluates on the very next tick.
	RejectCooldownTicks int `json:"reject_cooldown_ticks" yaml:"reject_cooldown_ticks"`
}

// RiskConfig contains position sizing parameters.
type RiskConfig struct {
	UseRiskSizing bool    `json:"use_risk_sizing" yaml:"use_risk_sizing"`
	RiskPercent   float64 `json:"risk_percent" yaml:"risk_percent"`
	FixedVolume   float64 `json:"fixed_volume" yaml:"fixed_volume"`
	MinVolume     float64 `json:"min_volume" yaml:"min_volume"`
	MaxVolume     float64 `json:"max_volume" yaml:"max_volume"`
}

// LoopConfig throttles the polling loop.
type LoopConfig struct {
	TickInterval string `json:"tick_interval" yaml:"tick_interval"` // delay between ticks
	DataBackoff  string `json:"data_backoff" yaml:"data_backoff"`   // delay after missing candles/tick
}

// LedgerConfig selects the closed-trade store.
type LedgerConfig struct {
	Type    string `json:"type" yaml:"type"` // "csv" or "sqlite"
	CSVPath string `json:"csv_path,omitempty" yaml:"csv_path,omitempty"`
	DBPath  string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type LoggingConfig struct {
	Level string `json:"level" yaml:"level"` // debug, info, warn, error
}

// MetricsConfig enables the Prometheus listener when Addr is set.
type MetricsConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

func (b BrokerConfig) ParseTimeout() (time.Duration, error) {
	if b.Timeout == "" {
		return 30 * time.Second, nil
	}
	return time.ParseDuration(b.Timeout)
}

func (l LoopConfig) ParseTickInterval() (time.Duration, error) {
	if l.TickInterval == "" {
		return time.Second, nil
	}
	return time.ParseDuration(l.TickInterval)
}

func (l LoopConfig) ParseDataBackoff() (time.Duration, error) {
	if l.DataBackoff == "" {
		return 3 * time.Second, nil
	}
	return time.ParseDuration(l.DataBackoff)
}

// LoadFromFile loads configuration from a file (YAML or JSON based on
// content), applies environment overrides and validates the result.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// applyEnv lets the environment override the fields that are deployment
// specific (endpoints, credentials, symbol).
func (c *Config) applyEnv() {
	if v := os.Getenv("ZONEBOT_BRIDGE_URL"); v != "" {
		c.Broker.BridgeURL = v
	}
	if v := os.Getenv("ZONEBOT_STREAM_URL"); v != "" {
		c.Broker.StreamURL = v
	}
	if v := os.Getenv("ZONEBOT_BRIDGE_TOKEN"); v != "" {
		c.Broker.Token = v
	}
	if v := os.Getenv("ZONEBOT_SYMBOL"); v != "" {
		c.Trade.Symbol = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Broker.BridgeURL == "" {
		return fmt.Errorf("broker.bridge_url is required")
	}
	if _, err := c.Broker.ParseTimeout(); err != nil {
		return fmt.Errorf("broker.timeout: %w", err)
	}
	if c.Trade.Symbol == "" {
		return fmt.Errorf("trade.symbol is required")
	}
	if _, err := market.ParseTimeframe(c.Trade.Timeframe); err != nil {
		return fmt.Errorf("trade.timeframe: %w", err)
	}
	if c.Trade.Window <= 0 {
		return fmt.Errorf("trade.window must be positive")
	}
	if c.Trade.MinDistancePoints < 0 {
		return fmt.Errorf("trade.min_distance_points must not be negative")
	}
	if c.Trade.Label == "" {
		return fmt.Errorf("trade.label is required")
	}
	if c.Trade.RejectCooldownTicks < 0 {
		return fmt.Errorf("trade.reject_cooldown_ticks must not be negative")
	}
	if c.Risk.UseRiskSizing && (c.Risk.RiskPercent <= 0 || c.Risk.RiskPercent > 100) {
		return fmt.Errorf("risk.risk_percent must be in (0, 100]")
	}
	if c.Risk.FixedVolume <= 0 {
		return fmt.Errorf("risk.fixed_volume must be positive")
	}
	if c.Risk.MinVolume <= 0 || c.Risk.MaxVolume < c.Risk.MinVolume {
		return fmt.Errorf("risk volume bounds require 0 < min_volume <= max_volume")
	}
	if _, err := c.Loop.ParseTickInterval(); err != nil {
		return fmt.Errorf("loop.tick_interval: %w", err)
	}
	if _, err := c.Loop.ParseDataBackoff(); err != nil {
		return fmt.Errorf("loop.data_backoff: %w", err)
	}
	switch c.Ledger.Type {
	case "csv":
		if c.Ledger.CSVPath == "" {
			return fmt.Errorf("ledger.csv_path required for CSV type")
		}
	case "sqlite":
		if c.Ledger.DBPath == "" {
			return fmt.Errorf("ledger.db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("ledger.type must be 'csv' or 'sqlite'")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			BridgeURL: "http://127.0.0.1:6542",
			Timeout:   "30s",
		},
		Trade: TradeConfig{
			Symbol:              "BTCUSD",
			Timeframe:           "1m",
			Window:              200,
			DeviationPoints:     500,
			MinDistancePoints:   10,
			Magic:               234000,
			Label:               "SupplyDemandBot",
			RejectCooldownTicks: 3,
		},
		Risk: RiskConfig{
			UseRiskSizing: false,
			RiskPercent:   1.0,
			FixedVolume:   1.0,
			MinVolume:     0.01,
			MaxVolume:     10,
		},
		Loop: LoopConfig{
			TickInterval: "1s",
			DataBackoff:  "3s",
		},
		Ledger: LedgerConfig{
			Type:    "csv",
			CSVPath: "./trades_log.csv",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
