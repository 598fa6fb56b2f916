package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Default().Validate())
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing bridge url", func(c *Config) { c.Broker.BridgeURL = "" }, "bridge_url"},
		{"missing symbol", func(c *Config) { c.Trade.Symbol = "" }, "symbol"},
		{"bad timeframe", func(c *Config) { c.Trade.Timeframe = "7m" }, "timeframe"},
		{"zero window", func(c *Config) { c.Trade.Window = 0 }, "window"},
		{"missing label", func(c *Config) { c.Trade.Label = "" }, "label"},
		{"negative cooldown", func(c *Config) { c.Trade.RejectCooldownTicks = -1 }, "cooldown"},
		{"bad risk percent", func(c *Config) {
			c.Risk.UseRiskSizing = true
			c.Risk.RiskPercent = 150
		}, "risk_percent"},
		{"zero fixed volume", func(c *Config) { c.Risk.FixedVolume = 0 }, "fixed_volume"},
		{"inverted volume bounds", func(c *Config) {
			c.Risk.MinVolume = 5
			c.Risk.MaxVolume = 1
		}, "volume"},
		{"bad tick interval", func(c *Config) { c.Loop.TickInterval = "soon" }, "tick_interval"},
		{"bad ledger type", func(c *Config) { c.Ledger.Type = "postgres" }, "ledger.type"},
		{"csv without path", func(c *Config) {
			c.Ledger.Type = "csv"
			c.Ledger.CSVPath = ""
		}, "csv_path"},
		{"sqlite without path", func(c *Config) {
			c.Ledger.Type = "sqlite"
			c.Ledger.DBPath = ""
		}, "db_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Trade.Symbol = "XAUUSD"
	cfg.Ledger.Type = "sqlite"
	cfg.Ledger.DBPath = "./trades.db"
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "XAUUSD", loaded.Trade.Symbol)
	assert.Equal(t, "sqlite", loaded.Ledger.Type)
	assert.Equal(t, cfg.Trade.Magic, loaded.Trade.Magic)
}

func TestLoadFromFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Trade.Symbol, loaded.Trade.Symbol)
}

func TestLoadFromFileEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Default().SaveToFile(path))

	t.Setenv("ZONEBOT_SYMBOL", "EURUSD_i")
	t.Setenv("ZONEBOT_BRIDGE_TOKEN", "secret")

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "EURUSD_i", loaded.Trade.Symbol)
	assert.Equal(t, "secret", loaded.Broker.Token)
}

func TestLoadFromFileMissing(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestDurationParsing(t *testing.T) {
	t.Parallel()

	cfg := Default()

	tick, err := cfg.Loop.ParseTickInterval()
	require.NoError(t, err)
	assert.Equal(t, time.Second, tick)

	backoff, err := cfg.Loop.ParseDataBackoff()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, backoff)

	timeout, err := cfg.Broker.ParseTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)

	// Empty strings fall back to defaults.
	empty := LoopConfig{}
	tick, err = empty.ParseTickInterval()
	require.NoError(t, err)
	assert.Equal(t, time.Second, tick)
}
