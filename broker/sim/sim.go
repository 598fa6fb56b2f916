// Package sim is an in-memory broker.Gateway for demo runs and tests.
// It fills every market order at the current ask/bid, tracks open
// positions, and lets callers script candles, ticks, rejections and
// broker-side closes.
package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/tradekit/zonebot/broker"
	"github.com/tradekit/zonebot/market"
)

type Gateway struct {
	mu         sync.Mutex
	acct       broker.Account
	candles    []market.Candle
	tick       market.Tick
	haveTick   bool
	info       market.SymbolInfo
	positions  map[int64]broker.Position
	nextTicket int64
	rejectNext int // submissions to reject before filling again
}

func New(acct broker.Account, info market.SymbolInfo) *Gateway {
	return &Gateway{
		acct:       acct,
		info:       info,
		positions:  make(map[int64]broker.Position),
		nextTicket: 1,
	}
}

// SetCandles replaces the candle window returned by GetCandles.
func (g *Gateway) SetCandles(candles []market.Candle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.candles = candles
}

// SetTick replaces the current tick.
func (g *Gateway) SetTick(t market.Tick) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tick = t
	g.haveTick = true
}

// RejectNext makes the next n submissions come back rejected.
func (g *Gateway) RejectNext(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rejectNext = n
}

// CloseAllPositions simulates the broker (or a human) closing every
// open position out from under the bot.
func (g *Gateway) CloseAllPositions() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.positions = make(map[int64]broker.Position)
}

func (g *Gateway) GetCandles(ctx context.Context, symbol string, tf market.Timeframe, count int) ([]market.Candle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.candles) == 0 {
		return nil, fmt.Errorf("sim: no candles for %s", symbol)
	}
	out := make([]market.Candle, len(g.candles))
	copy(out, g.candles)
	return out, nil
}

func (g *Gateway) GetTick(ctx context.Context, symbol string) (market.Tick, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.haveTick {
		return market.Tick{}, market.ErrNoTick
	}
	return g.tick, nil
}

func (g *Gateway) GetSymbolInfo(ctx context.Context, symbol string) (market.SymbolInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if symbol != g.info.Symbol {
		return market.SymbolInfo{}, fmt.Errorf("sim: unknown symbol %s", symbol)
	}
	return g.info, nil
}

func (g *Gateway) GetAccount(ctx context.Context) (broker.Account, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.acct, nil
}

func (g *Gateway) SubmitMarketOrder(ctx context.Context, req broker.MarketOrderRequest) (broker.OrderResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.rejectNext > 0 {
		g.rejectNext--
		return broker.OrderResult{
			Status:  broker.OrderRejected,
			RetCode: 10019,
			Reason:  "sim: rejected",
		}, nil
	}
	if !g.haveTick {
		return broker.OrderResult{
			Status: broker.OrderRejected,
			Reason: "sim: no tick to fill against",
		}, nil
	}

	fill := g.tick.Ask
	if req.Direction == broker.Sell {
		fill = g.tick.Bid
	}

	ticket := g.nextTicket
	g.nextTicket++
	g.positions[ticket] = broker.Position{
		Ticket:    ticket,
		Symbol:    req.Symbol,
		Direction: req.Direction,
		Volume:    req.Volume,
		OpenPrice: fill,
		Identity:  req.Identity,
	}

	return broker.OrderResult{
		Status:    broker.OrderFilled,
		FillPrice: fill,
		Volume:    req.Volume,
		RetCode:   10009,
	}, nil
}

func (g *Gateway) ListOpenPositions(ctx context.Context, symbol string, id broker.Identity) ([]broker.Position, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []broker.Position
	for _, p := range g.positions {
		if p.Symbol != symbol || p.Identity != id {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (g *Gateway) Close() error { return nil }
