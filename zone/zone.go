// Package zone reduces a candle window to a supply/demand price range.
//
// The detection is deliberately naive: supply is the highest high and
// demand is the lowest low of the window. It is a pure function of the
// candles it is given, recomputed from scratch on every call, so the
// trade state machine's decisions stay reproducible in tests.
package zone

import (
	"errors"

	"github.com/tradekit/zonebot/market"
)

var ErrInsufficientData = errors.New("zone: candle window is empty")

// Zone is a supply (resistance) and demand (support) price pair.
// Supply >= Demand holds for any non-empty window.
type Zone struct {
	Supply float64
	Demand float64
}

// Width is the supply/demand range, used to derive TP/SL distances.
func (z Zone) Width() float64 {
	return z.Supply - z.Demand
}

// Detect computes the zone over the given window. The window must be
// non-empty; ordering does not matter for the extrema but callers pass
// candles time-ascending.
func Detect(candles []market.Candle) (Zone, error) {
	if len(candles) == 0 {
		return Zone{}, ErrInsufficientData
	}

	z := Zone{
		Supply: candles[0].High,
		Demand: candles[0].Low,
	}
	for _, c := range candles[1:] {
		if c.High > z.Supply {
			z.Supply = c.High
		}
		if c.Low < z.Demand {
			z.Demand = c.Low
		}
	}
	return z, nil
}
