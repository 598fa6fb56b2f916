package market

import "time"

// Candle represents OHLC (Open, High, Low, Close) candlestick data for a
// single bar. Candles are immutable once returned from a data source and
// are ordered by Time ascending within a window.
type Candle struct {
	Time  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}
