// Package journal persists closed-trade records. Records are append
// only: once written they are never mutated or deleted.
package journal

import (
	"time"

	"github.com/tradekit/zonebot/broker"
)

// TradeRecord is one completed trade lifecycle. ExitPrice may be a
// last-tick approximation when the position was closed outside the bot
// (the broker's own deal report is not consulted).
type TradeRecord struct {
	TradeID    string
	Time       time.Time
	Symbol     string
	Direction  broker.Direction
	EntryPrice float64
	ExitPrice  float64
	Volume     float64
	ProfitLoss float64
	Reason     string
}

type Ledger interface {
	Append(TradeRecord) error
	Close() error
}
