package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "zonebot",
	Short: "A supply/demand zone trading bot for MetaTrader 5",
	Long: `Zonebot trades a single supply/demand zone strategy against a
MetaTrader 5 terminal through its HTTP bridge.

It provides tools for:
  - Running the live polling loop against a terminal bridge
  - Demo runs against the in-memory simulator
  - Querying the closed-trade ledger
  - Generating and validating configuration files`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
