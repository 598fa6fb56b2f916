package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tradekit/zonebot/broker"
	"github.com/tradekit/zonebot/config"
	"github.com/tradekit/zonebot/journal"
	"github.com/tradekit/zonebot/market"
	"github.com/tradekit/zonebot/risk"
)

// Runner drives the machine on a fixed cadence against a gateway. It
// owns the poll loop only; the gateway and ledger are opened and closed
// by the caller.
type Runner struct {
	gw      broker.Gateway
	machine *Machine
	log     *logrus.Logger

	symbol       string
	timeframe    market.Timeframe
	window       int
	tickInterval time.Duration
	dataBackoff  time.Duration
}

// NewRunner probes the gateway and builds the machine. Any failure here
// is fatal: a bot that cannot resolve its symbol must not start.
func NewRunner(ctx context.Context, cfg *config.Config, gw broker.Gateway, ledger journal.Ledger, log *logrus.Logger) (*Runner, error) {
	info, err := gw.GetSymbolInfo(ctx, cfg.Trade.Symbol)
	if err != nil {
		return nil, fmt.Errorf("resolve symbol %s: %w", cfg.Trade.Symbol, err)
	}

	acct, err := gw.GetAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("account probe: %w", err)
	}

	tf, err := market.ParseTimeframe(cfg.Trade.Timeframe)
	if err != nil {
		return nil, err
	}
	tickInterval, err := cfg.Loop.ParseTickInterval()
	if err != nil {
		return nil, err
	}
	dataBackoff, err := cfg.Loop.ParseDataBackoff()
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"symbol":        info.Symbol,
		"point":         info.PointSize(),
		"digits":        info.Digits,
		"volume_min":    info.VolumeMin,
		"volume_max":    info.VolumeMax,
		"volume_step":   info.VolumeStep,
		"contract_size": info.ContractSize,
		"account":       acct.ID,
		"currency":      acct.Currency,
		"balance":       acct.Balance,
	}).Info("connected")

	machine := NewMachine(Params{
		Symbol:      cfg.Trade.Symbol,
		Identity:    broker.Identity{Magic: cfg.Trade.Magic, Label: cfg.Trade.Label},
		Deviation:   cfg.Trade.DeviationPoints,
		MinDistance: info.MinStopDistance(cfg.Trade.MinDistancePoints),
		RiskConfig: risk.Config{
			UseRiskSizing: cfg.Risk.UseRiskSizing,
			RiskPercent:   cfg.Risk.RiskPercent,
			FixedVolume:   cfg.Risk.FixedVolume,
			MinVolume:     cfg.Risk.MinVolume,
			MaxVolume:     cfg.Risk.MaxVolume,
		},
		SymbolInfo:    info,
		CooldownTicks: cfg.Trade.RejectCooldownTicks,
		Gateway:       gw,
		Ledger:        ledger,
		Log:           log,
	})

	return &Runner{
		gw:           gw,
		machine:      machine,
		log:          log,
		symbol:       cfg.Trade.Symbol,
		timeframe:    tf,
		window:       cfg.Trade.Window,
		tickInterval: tickInterval,
		dataBackoff:  dataBackoff,
	}, nil
}

// Machine exposes the underlying state machine, mainly for inspection
// in tests and the shutdown log line.
func (r *Runner) Machine() *Machine { return r.machine }

// Run polls until the context is cancelled. Data gaps back off and
// retry; only cancellation ends the loop. Open positions are left to
// the broker's server-side stop and target.
func (r *Runner) Run(ctx context.Context) error {
	r.log.WithFields(logrus.Fields{
		"symbol":    r.symbol,
		"timeframe": string(r.timeframe),
		"window":    r.window,
		"interval":  r.tickInterval.String(),
	}).Info("loop started")

	for {
		if ctx.Err() != nil {
			break
		}

		candles, err := r.gw.GetCandles(ctx, r.symbol, r.timeframe, r.window)
		if err != nil || len(candles) == 0 {
			if err != nil {
				r.log.WithError(err).Warn("candle fetch failed")
			} else {
				r.log.Warn("no candle data")
			}
			if !sleep(ctx, r.dataBackoff) {
				break
			}
			continue
		}

		tick, err := r.gw.GetTick(ctx, r.symbol)
		if err != nil {
			r.log.WithError(err).Warn("tick fetch failed")
			if !sleep(ctx, r.dataBackoff) {
				break
			}
			continue
		}

		if err := r.machine.Tick(ctx, candles, tick); err != nil {
			r.log.WithError(err).Warn("tick evaluation failed")
		}

		if !sleep(ctx, r.tickInterval) {
			break
		}
	}

	if r.machine.State() == Open {
		r.log.Info("shutting down with position open, broker-side stops remain active")
	}
	r.log.Info("loop stopped")
	return nil
}

// sleep waits d or until the context is cancelled, reporting whether
// the loop should keep running.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
