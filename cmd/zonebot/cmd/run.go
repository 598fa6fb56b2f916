package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tradekit/zonebot/bot"
	"github.com/tradekit/zonebot/broker/mt5"
	"github.com/tradekit/zonebot/config"
	"github.com/tradekit/zonebot/internal/metrics"
	"github.com/tradekit/zonebot/journal"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading loop against a terminal bridge",
	Long: `Start the polling loop: fetch candles and the current tick on every
interval, detect the supply/demand zone and manage the single trade slot.

Bridge URL and token may come from the config file, the environment
(ZONEBOT_BRIDGE_URL, ZONEBOT_BRIDGE_TOKEN) or a .env file in the working
directory.

Stop with Ctrl-C; any open position is left to its server-side stop and
target.

Example:
  zonebot run -f zonebot.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	// Optional .env next to the binary; real environment still wins
	// because godotenv never overrides existing variables.
	_ = godotenv.Load()

	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(lvl)
	}

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(cfg.Metrics.Addr); err != nil {
				log.WithError(err).Error("metrics listener failed")
			}
		}()
		log.WithField("addr", cfg.Metrics.Addr).Info("metrics enabled")
	}

	timeout, err := cfg.Broker.ParseTimeout()
	if err != nil {
		return fmt.Errorf("broker timeout: %w", err)
	}

	client := mt5.NewClient(cfg.Broker.BridgeURL, cfg.Broker.Token,
		mt5.WithTimeout(timeout), mt5.WithLogger(log))
	defer client.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("bridge unreachable at %s: %w", cfg.Broker.BridgeURL, err)
	}

	if cfg.Broker.StreamURL != "" {
		if _, err := client.AttachStream(cfg.Broker.StreamURL, []string{cfg.Trade.Symbol}); err != nil {
			log.WithError(err).Warn("tick stream unavailable, falling back to polling")
		} else {
			log.WithField("url", cfg.Broker.StreamURL).Info("tick stream attached")
		}
	}

	ledger, err := openLedger(cfg)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer ledger.Close()

	runner, err := bot.NewRunner(ctx, cfg, client, ledger, log)
	if err != nil {
		return err
	}

	return runner.Run(ctx)
}

func openLedger(cfg *config.Config) (journal.Ledger, error) {
	if cfg.Ledger.Type == "sqlite" {
		return journal.NewSQLite(cfg.Ledger.DBPath)
	}
	return journal.NewCSV(cfg.Ledger.CSVPath)
}
