// Package broker defines the gateway interfaces the trading loop
// consumes: market data retrieval and order submission/position
// reporting. Concrete implementations live in broker/mt5 (terminal
// bridge) and broker/sim (in-memory, for tests and demo runs).
package broker

import (
	"context"
	"fmt"

	"github.com/tradekit/zonebot/market"
)

type Direction int

const (
	Buy Direction = iota
	Sell
)

func (d Direction) String() string {
	if d == Sell {
		return "SELL"
	}
	return "BUY"
}

// ParseDirection maps a wire/storage string back to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "BUY", "buy":
		return Buy, nil
	case "SELL", "sell":
		return Sell, nil
	}
	return Buy, fmt.Errorf("unknown direction %q", s)
}

// Identity distinguishes this strategy's orders and positions from
// anything else running on the same account: an opaque numeric tag
// (the terminal's "magic number") plus a text label.
type Identity struct {
	Magic int64
	Label string
}

type Account struct {
	ID       string
	Currency string
	Balance  float64
	Equity   float64
}

// MarketOrderRequest describes one market order submission. ClientID is
// a caller-generated unique ID the gateway may use to deduplicate
// retried submissions.
type MarketOrderRequest struct {
	Symbol     string
	Direction  Direction
	Volume     float64
	StopLoss   float64
	TakeProfit float64
	Deviation  int // tolerated slippage in points
	ClientID   string
	Identity   Identity
}

type OrderStatus int

const (
	OrderRejected OrderStatus = iota
	OrderFilled
)

// OrderResult is the gateway's definitive answer to a submission.
// Status is always one of Filled/Rejected; there is no ambiguous case —
// a gateway that cannot tell must report Rejected with a reason.
type OrderResult struct {
	Status    OrderStatus
	FillPrice float64
	Volume    float64 // volume actually filled
	RetCode   int     // broker return code, for diagnostics
	Reason    string
}

func (r OrderResult) Filled() bool { return r.Status == OrderFilled }

// Position is an open position as reported by the broker.
type Position struct {
	Ticket    int64
	Symbol    string
	Direction Direction
	Volume    float64
	OpenPrice float64
	Identity  Identity
}

type MarketData interface {
	GetCandles(ctx context.Context, symbol string, tf market.Timeframe, count int) ([]market.Candle, error)
	GetTick(ctx context.Context, symbol string) (market.Tick, error)
	GetSymbolInfo(ctx context.Context, symbol string) (market.SymbolInfo, error)
}

type OrderGateway interface {
	GetAccount(ctx context.Context) (Account, error)
	SubmitMarketOrder(ctx context.Context, req MarketOrderRequest) (OrderResult, error)
	ListOpenPositions(ctx context.Context, symbol string, id Identity) ([]Position, error)
}

// Gateway is the full broker surface the runner wires together.
type Gateway interface {
	MarketData
	OrderGateway
	Close() error
}
