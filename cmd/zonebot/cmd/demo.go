package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tradekit/zonebot/bot"
	"github.com/tradekit/zonebot/broker"
	"github.com/tradekit/zonebot/broker/sim"
	"github.com/tradekit/zonebot/journal"
	"github.com/tradekit/zonebot/market"
	"github.com/tradekit/zonebot/risk"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a full trade cycle against the in-memory simulator",
	Long: `Walk one complete trade through the machine without a terminal:

  1. Seed a candle window forming a 90..110 supply/demand zone
  2. Close at the demand level triggers a BUY at the ask
  3. Price walks up through the take-profit
  4. The closed trade is printed as an Org record

Example:
  zonebot demo`,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

// printLedger writes each closed trade straight to stdout.
type printLedger struct{}

func (printLedger) Append(r journal.TradeRecord) error {
	fmt.Println(journal.FormatTradeOrg(r))
	return nil
}

func (printLedger) Close() error { return nil }

func runDemo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	info := market.SymbolInfo{
		Symbol:       "BTCUSD",
		Point:        0.01,
		Digits:       2,
		VolumeMin:    0.01,
		VolumeMax:    10,
		VolumeStep:   0.01,
		ContractSize: 1,
	}
	gw := sim.New(broker.Account{ID: "demo", Currency: "USD", Balance: 10000}, info)

	log := logrus.New()
	log.SetOutput(io.Discard)

	machine := bot.NewMachine(bot.Params{
		Symbol:      "BTCUSD",
		Identity:    broker.Identity{Magic: 234000, Label: "SupplyDemandBot"},
		Deviation:   500,
		MinDistance: info.MinStopDistance(10),
		RiskConfig:  risk.Config{FixedVolume: 1.0, MinVolume: 0.01, MaxVolume: 10},
		SymbolInfo:  info,
		Gateway:     gw,
		Ledger:      printLedger{},
		Log:         log,
	})

	candles := []market.Candle{
		{Open: 105, High: 110, Low: 100, Close: 104},
		{Open: 104, High: 105, Low: 90, Close: 92},
		{Open: 92, High: 93, Low: 90, Close: 90},
	}
	gw.SetCandles(candles)

	entry := market.Tick{Bid: 90.3, Ask: 90.5, Last: 90.4}
	gw.SetTick(entry)

	fmt.Println("Zone 90.00 .. 110.00, close at demand: entering long")
	if err := machine.Tick(ctx, candles, entry); err != nil {
		return err
	}

	open := machine.OpenTrade()
	if open == nil {
		return fmt.Errorf("demo entry did not fill")
	}
	fmt.Printf("  Entry: %.2f  TP: %.2f  SL: %.2f  Volume: %.2f\n\n",
		open.EntryPrice, open.TakeProfit, open.StopLoss, open.Volume)

	fmt.Println("Price walks up through the target:")
	exit := market.Tick{Bid: 100.4, Ask: 100.6, Last: 100.5}
	gw.SetTick(exit)
	if err := machine.Tick(ctx, candles, exit); err != nil {
		return err
	}

	if machine.State() != bot.Flat {
		return fmt.Errorf("demo trade did not close")
	}
	return nil
}
