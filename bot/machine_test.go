package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradekit/zonebot/broker"
	"github.com/tradekit/zonebot/broker/sim"
	"github.com/tradekit/zonebot/journal"
	"github.com/tradekit/zonebot/market"
	"github.com/tradekit/zonebot/risk"
	"github.com/tradekit/zonebot/zone"
)

// memLedger captures appended records for inspection.
type memLedger struct {
	records []journal.TradeRecord
	fail    bool
}

func (l *memLedger) Append(r journal.TradeRecord) error {
	if l.fail {
		return errors.New("disk full")
	}
	l.records = append(l.records, r)
	return nil
}

func (l *memLedger) Close() error { return nil }

var testInfo = market.SymbolInfo{
	Symbol:       "BTCUSD",
	Point:        0.01,
	Digits:       2,
	VolumeMin:    0.01,
	VolumeMax:    10,
	VolumeStep:   0.01,
	ContractSize: 1,
}

var testIdentity = broker.Identity{Magic: 234000, Label: "SupplyDemandBot"}

// buyCandles puts the latest close at the demand level of a 90..110 zone.
func buyCandles() []market.Candle {
	return []market.Candle{
		{Open: 105, High: 110, Low: 100, Close: 104},
		{Open: 104, High: 105, Low: 90, Close: 92},
		{Open: 92, High: 93, Low: 90, Close: 90},
	}
}

// sellCandles puts the latest close at the supply level.
func sellCandles() []market.Candle {
	return []market.Candle{
		{Open: 95, High: 100, Low: 90, Close: 96},
		{Open: 96, High: 110, Low: 95, Close: 108},
		{Open: 108, High: 110, Low: 107, Close: 110},
	}
}

func newTestRig(t *testing.T, riskCfg risk.Config) (*Machine, *sim.Gateway, *memLedger) {
	t.Helper()
	gw := sim.New(broker.Account{ID: "test", Currency: "USD", Balance: 1000}, testInfo)
	ledger := &memLedger{}
	m := NewMachine(Params{
		Symbol:        "BTCUSD",
		Identity:      testIdentity,
		Deviation:     500,
		MinDistance:   0.01,
		RiskConfig:    riskCfg,
		SymbolInfo:    testInfo,
		CooldownTicks: 3,
		Gateway:       gw,
		Ledger:        ledger,
	})
	return m, gw, ledger
}

func fixedRisk() risk.Config {
	return risk.Config{FixedVolume: 1.0, MinVolume: 0.01, MaxVolume: 10}
}

func TestPlanEntryBuy(t *testing.T) {
	z := zone.Zone{Supply: 110, Demand: 90}
	tick := market.Tick{Bid: 90.3, Ask: 90.5}

	plan := PlanEntry(z, 90, tick, 0.01)
	require.NotNil(t, plan)

	assert.Equal(t, broker.Buy, plan.Direction)
	assert.InDelta(t, 90.5, plan.Entry, 1e-9)
	assert.InDelta(t, 100.5, plan.TakeProfit, 1e-9) // entry + width/2
	assert.InDelta(t, 84.5, plan.StopLoss, 1e-9)    // entry - width*0.3
}

func TestPlanEntrySell(t *testing.T) {
	z := zone.Zone{Supply: 110, Demand: 90}
	tick := market.Tick{Bid: 109.5, Ask: 109.7}

	plan := PlanEntry(z, 110, tick, 0.01)
	require.NotNil(t, plan)

	assert.Equal(t, broker.Sell, plan.Direction)
	assert.InDelta(t, 109.5, plan.Entry, 1e-9)
	assert.InDelta(t, 99.5, plan.TakeProfit, 1e-9)
	assert.InDelta(t, 115.5, plan.StopLoss, 1e-9)
}

func TestPlanEntryHoldInsideZone(t *testing.T) {
	z := zone.Zone{Supply: 110, Demand: 90}
	tick := market.Tick{Bid: 99.9, Ask: 100.1}

	assert.Nil(t, PlanEntry(z, 100, tick, 0.01))
}

func TestPlanEntryMinDistanceSnap(t *testing.T) {
	// Zone so narrow that both target and stop would sit inside the
	// minimum distance; both snap outward to exactly minDistance.
	z := zone.Zone{Supply: 100.05, Demand: 100.00}
	tick := market.Tick{Bid: 99.98, Ask: 100.00}

	plan := PlanEntry(z, 100.00, tick, 0.1)
	require.NotNil(t, plan)
	require.Equal(t, broker.Buy, plan.Direction)

	assert.InDelta(t, 100.10, plan.TakeProfit, 1e-9)
	assert.InDelta(t, 99.90, plan.StopLoss, 1e-9)
}

func TestMachineEntryFillOpensSingleSlot(t *testing.T) {
	m, gw, _ := newTestRig(t, fixedRisk())
	ctx := context.Background()

	tick := market.Tick{Bid: 90.3, Ask: 90.5, Last: 90.4}
	gw.SetTick(tick)

	require.NoError(t, m.Tick(ctx, buyCandles(), tick))
	require.Equal(t, Open, m.State())

	open := m.OpenTrade()
	require.NotNil(t, open)
	assert.Equal(t, broker.Buy, open.Direction)
	assert.InDelta(t, 90.5, open.EntryPrice, 1e-9)
	assert.InDelta(t, 1.0, open.Volume, 1e-9)

	// Signal still present, but the slot is taken: the next tick
	// reconciles instead of submitting a second order.
	require.NoError(t, m.Tick(ctx, buyCandles(), tick))

	positions, err := gw.ListOpenPositions(ctx, "BTCUSD", testIdentity)
	require.NoError(t, err)
	assert.Len(t, positions, 1)
}

func TestMachineRejectionCooldown(t *testing.T) {
	m, gw, _ := newTestRig(t, fixedRisk())
	ctx := context.Background()

	tick := market.Tick{Bid: 90.3, Ask: 90.5}
	gw.SetTick(tick)
	gw.RejectNext(1)

	require.NoError(t, m.Tick(ctx, buyCandles(), tick))
	assert.Equal(t, Flat, m.State())

	// Three ticks of cooldown: the signal persists but nothing is sent.
	for i := 0; i < 3; i++ {
		require.NoError(t, m.Tick(ctx, buyCandles(), tick))
		assert.Equal(t, Flat, m.State(), "tick %d should be suppressed", i+1)
	}

	// Cooldown expired; the same signal now goes through.
	require.NoError(t, m.Tick(ctx, buyCandles(), tick))
	assert.Equal(t, Open, m.State())
}

func TestMachineRiskSizedVolume(t *testing.T) {
	cfg := risk.Config{
		UseRiskSizing: true,
		RiskPercent:   1.2,
		FixedVolume:   1.0,
		MinVolume:     0.01,
		MaxVolume:     10,
	}
	m, gw, _ := newTestRig(t, cfg)
	ctx := context.Background()

	tick := market.Tick{Bid: 90.3, Ask: 90.5}
	gw.SetTick(tick)

	require.NoError(t, m.Tick(ctx, buyCandles(), tick))
	require.Equal(t, Open, m.State())

	// balance 1000 * 1.2% = 12 at risk; stop distance 6 * contract 1
	// gives 2.0 lots.
	assert.InDelta(t, 2.0, m.OpenTrade().Volume, 1e-9)
}

func TestMachineTakeProfitBuy(t *testing.T) {
	m, gw, ledger := newTestRig(t, fixedRisk())
	ctx := context.Background()

	entryTick := market.Tick{Bid: 90.3, Ask: 90.5}
	gw.SetTick(entryTick)
	require.NoError(t, m.Tick(ctx, buyCandles(), entryTick))
	require.Equal(t, Open, m.State())

	// Ask crosses the 100.5 target.
	exitTick := market.Tick{Bid: 100.4, Ask: 100.6, Last: 100.5}
	gw.SetTick(exitTick)
	require.NoError(t, m.Tick(ctx, buyCandles(), exitTick))

	assert.Equal(t, Flat, m.State())
	require.Len(t, ledger.records, 1)

	rec := ledger.records[0]
	assert.Equal(t, "TakeProfit", rec.Reason)
	assert.Equal(t, broker.Buy, rec.Direction)
	assert.InDelta(t, 90.5, rec.EntryPrice, 1e-9)
	assert.InDelta(t, 100.6, rec.ExitPrice, 1e-9)
	assert.InDelta(t, 10.1, rec.ProfitLoss, 1e-9) // (100.6-90.5)*1.0
	assert.NotEmpty(t, rec.TradeID)
}

func TestMachineTakeProfitSell(t *testing.T) {
	m, gw, ledger := newTestRig(t, fixedRisk())
	ctx := context.Background()

	entryTick := market.Tick{Bid: 109.5, Ask: 109.7}
	gw.SetTick(entryTick)
	require.NoError(t, m.Tick(ctx, sellCandles(), entryTick))
	require.Equal(t, Open, m.State())

	// Bid falls through the 99.5 target.
	exitTick := market.Tick{Bid: 99.4, Ask: 99.6}
	gw.SetTick(exitTick)
	require.NoError(t, m.Tick(ctx, sellCandles(), exitTick))

	assert.Equal(t, Flat, m.State())
	require.Len(t, ledger.records, 1)

	rec := ledger.records[0]
	assert.Equal(t, "TakeProfit", rec.Reason)
	assert.Equal(t, broker.Sell, rec.Direction)
	assert.InDelta(t, 10.1, rec.ProfitLoss, 1e-9) // (109.5-99.4)*1.0
}

func TestMachineStopLossBuy(t *testing.T) {
	m, gw, ledger := newTestRig(t, fixedRisk())
	ctx := context.Background()

	entryTick := market.Tick{Bid: 90.3, Ask: 90.5}
	gw.SetTick(entryTick)
	require.NoError(t, m.Tick(ctx, buyCandles(), entryTick))

	// Ask drops through the 84.5 stop.
	exitTick := market.Tick{Bid: 84.2, Ask: 84.4}
	gw.SetTick(exitTick)
	require.NoError(t, m.Tick(ctx, buyCandles(), exitTick))

	assert.Equal(t, Flat, m.State())
	require.Len(t, ledger.records, 1)

	rec := ledger.records[0]
	assert.Equal(t, "StopLoss", rec.Reason)
	assert.InDelta(t, -6.1, rec.ProfitLoss, 1e-9) // (84.4-90.5)*1.0
}

func TestMachineExternalClose(t *testing.T) {
	m, gw, ledger := newTestRig(t, fixedRisk())
	ctx := context.Background()

	entryTick := market.Tick{Bid: 90.3, Ask: 90.5}
	gw.SetTick(entryTick)
	require.NoError(t, m.Tick(ctx, buyCandles(), entryTick))
	require.Equal(t, Open, m.State())

	// Someone closes the position in the terminal; the bot only sees it
	// vanish and approximates the exit at the last tick price.
	gw.CloseAllPositions()
	tick := market.Tick{Bid: 94.9, Ask: 95.1, Last: 95}
	gw.SetTick(tick)
	require.NoError(t, m.Tick(ctx, buyCandles(), tick))

	assert.Equal(t, Flat, m.State())
	require.Len(t, ledger.records, 1)

	rec := ledger.records[0]
	assert.Equal(t, "ExternalClose", rec.Reason)
	assert.InDelta(t, 95.0, rec.ExitPrice, 1e-9)
	assert.InDelta(t, 4.5, rec.ProfitLoss, 1e-9) // last - entry, no volume scaling
}

func TestMachineLedgerFailureDoesNotBlockClose(t *testing.T) {
	m, gw, ledger := newTestRig(t, fixedRisk())
	ledger.fail = true
	ctx := context.Background()

	entryTick := market.Tick{Bid: 90.3, Ask: 90.5}
	gw.SetTick(entryTick)
	require.NoError(t, m.Tick(ctx, buyCandles(), entryTick))

	exitTick := market.Tick{Bid: 100.4, Ask: 100.6}
	gw.SetTick(exitTick)
	require.NoError(t, m.Tick(ctx, buyCandles(), exitTick))

	// The record is lost but the machine still returns to FLAT.
	assert.Equal(t, Flat, m.State())
	assert.Empty(t, ledger.records)
}

func TestMachineInsufficientCandles(t *testing.T) {
	m, gw, _ := newTestRig(t, fixedRisk())
	ctx := context.Background()

	tick := market.Tick{Bid: 90.3, Ask: 90.5}
	gw.SetTick(tick)

	err := m.Tick(ctx, nil, tick)
	assert.ErrorIs(t, err, zone.ErrInsufficientData)
	assert.Equal(t, Flat, m.State())
}
