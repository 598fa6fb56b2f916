// Package bot holds the trade state machine and the polling loop that
// drives it. The machine is single-slot: it is either FLAT or tracking
// exactly one open trade, never more.
package bot

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tradekit/zonebot/broker"
	"github.com/tradekit/zonebot/internal/id"
	"github.com/tradekit/zonebot/internal/metrics"
	"github.com/tradekit/zonebot/journal"
	"github.com/tradekit/zonebot/market"
	"github.com/tradekit/zonebot/risk"
	"github.com/tradekit/zonebot/zone"
)

type State int

const (
	Flat State = iota
	Open
)

func (s State) String() string {
	if s == Open {
		return "OPEN"
	}
	return "FLAT"
}

// OpenTrade is the single in-flight trade. Immutable once the order is
// confirmed filled; cleared on exit.
type OpenTrade struct {
	Direction  broker.Direction
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	Volume     float64
	OpenedAt   time.Time
}

// EntryPlan is a candidate trade computed from the current zone and
// tick. Prices are final: minimum-distance snapping has been applied.
type EntryPlan struct {
	Direction  broker.Direction
	Entry      float64
	StopLoss   float64
	TakeProfit float64
}

// PlanEntry decides whether the latest candle close crosses the demand
// or supply level and, if so, derives entry/stop/target prices from the
// zone width anchored at the executable tick price. Returns nil when
// price sits inside the zone.
//
// Target distance is half the zone width, stop distance 0.3 of it; both
// are snapped outward to minDistance when the zone is too narrow.
func PlanEntry(z zone.Zone, candleClose float64, tick market.Tick, minDistance float64) *EntryPlan {
	width := z.Width()

	switch {
	case candleClose <= z.Demand:
		entry := tick.Ask
		tp := entry + width*0.5
		sl := entry - width*0.3
		if tp-entry < minDistance {
			tp = entry + minDistance
		}
		if entry-sl < minDistance {
			sl = entry - minDistance
		}
		return &EntryPlan{Direction: broker.Buy, Entry: entry, StopLoss: sl, TakeProfit: tp}

	case candleClose >= z.Supply:
		entry := tick.Bid
		tp := entry - width*0.5
		sl := entry + width*0.3
		if entry-tp < minDistance {
			tp = entry - minDistance
		}
		if sl-entry < minDistance {
			sl = entry + minDistance
		}
		return &EntryPlan{Direction: broker.Sell, Entry: entry, StopLoss: sl, TakeProfit: tp}
	}

	return nil
}

// Params wires a Machine. Everything is fixed at construction; the
// machine owns no goroutines and is driven by Tick calls.
type Params struct {
	Symbol       string
	Identity     broker.Identity
	Deviation    int
	MinDistance  float64 // price units, already derived from points
	RiskConfig   risk.Config
	SymbolInfo   market.SymbolInfo
	CooldownTicks int // entry cooldown after a rejected submission

	Gateway broker.OrderGateway
	Ledger  journal.Ledger
	Log     *logrus.Logger
}

// Machine owns all trade state exclusively. It is not safe for
// concurrent use and is only ever called from the single polling loop.
type Machine struct {
	p Params

	state    State
	open     *OpenTrade
	cooldown int

	now func() time.Time
}

func NewMachine(p Params) *Machine {
	if p.Log == nil {
		p.Log = logrus.New()
	}
	return &Machine{p: p, state: Flat, now: time.Now}
}

func (m *Machine) State() State { return m.state }

// OpenTrade returns a copy of the in-flight trade, or nil when FLAT.
func (m *Machine) OpenTrade() *OpenTrade {
	if m.open == nil {
		return nil
	}
	t := *m.open
	return &t
}

// Tick runs one evaluation step: an entry decision when FLAT, a
// position reconciliation when OPEN. Errors are contained: Tick only
// returns them for logging, the machine is always left in a consistent
// state and the next Tick carries on.
func (m *Machine) Tick(ctx context.Context, candles []market.Candle, tick market.Tick) error {
	if m.state == Open {
		return m.reconcile(ctx, tick)
	}
	return m.evaluateEntry(ctx, candles, tick)
}

func (m *Machine) evaluateEntry(ctx context.Context, candles []market.Candle, tick market.Tick) error {
	z, err := zone.Detect(candles)
	if err != nil {
		return err
	}
	candleClose := candles[len(candles)-1].Close

	m.p.Log.WithFields(logrus.Fields{
		"close":  candleClose,
		"supply": z.Supply,
		"demand": z.Demand,
	}).Debug("zone evaluated")

	plan := PlanEntry(z, candleClose, tick, m.p.MinDistance)
	if plan == nil {
		metrics.Decisions.WithLabelValues("hold").Inc()
		return nil
	}
	metrics.Decisions.WithLabelValues(signalLabel(plan.Direction)).Inc()

	if m.cooldown > 0 {
		m.cooldown--
		m.p.Log.WithField("ticks_left", m.cooldown).Debug("entry suppressed by rejection cooldown")
		return nil
	}

	volume := m.size(ctx, plan)

	result, err := m.p.Gateway.SubmitMarketOrder(ctx, broker.MarketOrderRequest{
		Symbol:     m.p.Symbol,
		Direction:  plan.Direction,
		Volume:     volume,
		StopLoss:   plan.StopLoss,
		TakeProfit: plan.TakeProfit,
		Deviation:  m.p.Deviation,
		ClientID:   uuid.NewString(),
		Identity:   m.p.Identity,
	})
	if err != nil {
		// Transport failure: treat like a rejection, do not retry this tick.
		metrics.Orders.WithLabelValues("rejected").Inc()
		m.cooldown = m.p.CooldownTicks
		return err
	}

	if !result.Filled() {
		metrics.Orders.WithLabelValues("rejected").Inc()
		m.cooldown = m.p.CooldownTicks
		m.p.Log.WithFields(logrus.Fields{
			"retcode": result.RetCode,
			"reason":  result.Reason,
		}).Warn("order rejected")
		return nil
	}

	metrics.Orders.WithLabelValues("filled").Inc()
	metrics.OpenTrades.Set(1)

	filledVolume := result.Volume
	if filledVolume == 0 {
		filledVolume = volume
	}

	m.open = &OpenTrade{
		Direction:  plan.Direction,
		EntryPrice: plan.Entry,
		StopLoss:   plan.StopLoss,
		TakeProfit: plan.TakeProfit,
		Volume:     filledVolume,
		OpenedAt:   m.now(),
	}
	m.state = Open

	m.p.Log.WithFields(logrus.Fields{
		"direction": plan.Direction.String(),
		"entry":     plan.Entry,
		"tp":        plan.TakeProfit,
		"sl":        plan.StopLoss,
		"volume":    filledVolume,
	}).Info("order filled")

	return nil
}

// size runs the position sizer, fetching the account balance only when
// risk sizing asks for it. A balance fetch failure degrades to fixed
// sizing rather than blocking the entry.
func (m *Machine) size(ctx context.Context, plan *EntryPlan) float64 {
	var balance float64
	if m.p.RiskConfig.UseRiskSizing {
		acct, err := m.p.Gateway.GetAccount(ctx)
		if err != nil {
			m.p.Log.WithError(err).Warn("account info unavailable, using fixed volume")
		} else {
			balance = acct.Balance
			metrics.Balance.Set(acct.Balance)
		}
	}

	res := risk.Size(risk.Inputs{
		Balance: balance,
		Entry:   plan.Entry,
		Stop:    plan.StopLoss,
		Info:    m.p.SymbolInfo,
	}, m.p.RiskConfig)

	if res.Degraded {
		m.p.Log.Warn("risk sizing degraded to fixed volume")
	}
	return res.Volume
}

func (m *Machine) reconcile(ctx context.Context, tick market.Tick) error {
	positions, err := m.p.Gateway.ListOpenPositions(ctx, m.p.Symbol, m.p.Identity)
	if err != nil {
		// Transient: stay OPEN, try again next tick.
		return err
	}

	if len(positions) == 0 {
		// Closed by the broker or manually; approximate the exit with
		// the last known tick price.
		exit := tick.LastOrMid()
		pl := exit - m.open.EntryPrice
		if m.open.Direction == broker.Sell {
			pl = m.open.EntryPrice - exit
		}
		m.close(exit, pl, "ExternalClose")
		return nil
	}

	pos := positions[0]

	priceNow := tick.Ask
	if m.open.Direction == broker.Sell {
		priceNow = tick.Bid
	}

	if !m.exitTriggered(priceNow) {
		return nil
	}

	pl := (priceNow - m.open.EntryPrice) * pos.Volume
	if m.open.Direction == broker.Sell {
		pl = (m.open.EntryPrice - priceNow) * pos.Volume
	}

	reason := "TakeProfit"
	if m.stopHit(priceNow) {
		reason = "StopLoss"
	}
	m.close(priceNow, pl, reason)
	return nil
}

func (m *Machine) exitTriggered(priceNow float64) bool {
	if m.open.Direction == broker.Buy {
		return priceNow >= m.open.TakeProfit || priceNow <= m.open.StopLoss
	}
	return priceNow <= m.open.TakeProfit || priceNow >= m.open.StopLoss
}

func (m *Machine) stopHit(priceNow float64) bool {
	if m.open.Direction == broker.Buy {
		return priceNow <= m.open.StopLoss
	}
	return priceNow >= m.open.StopLoss
}

// close emits the ledger record and returns to FLAT. A ledger write
// failure is logged and otherwise ignored: trade state must never hang
// on the ledger.
func (m *Machine) close(exit, profitLoss float64, reason string) {
	rec := journal.TradeRecord{
		TradeID:    id.New(),
		Time:       m.now(),
		Symbol:     m.p.Symbol,
		Direction:  m.open.Direction,
		EntryPrice: m.open.EntryPrice,
		ExitPrice:  exit,
		Volume:     m.open.Volume,
		ProfitLoss: profitLoss,
		Reason:     reason,
	}
	if err := m.p.Ledger.Append(rec); err != nil {
		m.p.Log.WithError(err).Error("ledger append failed")
	}

	metrics.TradesClosed.WithLabelValues(reason).Inc()
	metrics.OpenTrades.Set(0)

	m.p.Log.WithFields(logrus.Fields{
		"direction": m.open.Direction.String(),
		"entry":     m.open.EntryPrice,
		"exit":      exit,
		"pl":        math.Round(profitLoss*1e8) / 1e8,
		"reason":    reason,
	}).Info("trade closed")

	m.open = nil
	m.state = Flat
}

func signalLabel(d broker.Direction) string {
	if d == broker.Sell {
		return "sell"
	}
	return "buy"
}
