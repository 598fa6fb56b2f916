package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tradekit/zonebot/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage zonebot configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  zonebot config init -o zonebot.yaml
  zonebot config validate -f zonebot.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	RunE:  runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "zonebot.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nEdit the file and run with:")
	fmt.Printf("  zonebot run -f %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("✓ Configuration valid: %s\n", configValidatePath)
	fmt.Printf("  Bridge: %s\n", cfg.Broker.BridgeURL)
	fmt.Printf("  Trade: %s %s, window %d\n", cfg.Trade.Symbol, cfg.Trade.Timeframe, cfg.Trade.Window)
	if cfg.Risk.UseRiskSizing {
		fmt.Printf("  Sizing: risk %.1f%% of balance\n", cfg.Risk.RiskPercent)
	} else {
		fmt.Printf("  Sizing: fixed %.2f lots\n", cfg.Risk.FixedVolume)
	}
	fmt.Printf("  Ledger: %s\n", cfg.Ledger.Type)
	return nil
}
