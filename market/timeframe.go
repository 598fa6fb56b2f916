package market

import (
	"fmt"
	"time"
)

// Timeframe is a candle interval. The set mirrors what the terminal
// bridge accepts; anything else is rejected at config validation.
type Timeframe string

const (
	M1  Timeframe = "1m"
	M5  Timeframe = "5m"
	M15 Timeframe = "15m"
	H1  Timeframe = "1h"
	H4  Timeframe = "4h"
)

var timeframes = map[Timeframe]time.Duration{
	M1:  time.Minute,
	M5:  5 * time.Minute,
	M15: 15 * time.Minute,
	H1:  time.Hour,
	H4:  4 * time.Hour,
}

// ParseTimeframe validates a timeframe string from config or CLI input.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, ok := timeframes[tf]; !ok {
		return "", fmt.Errorf("unknown timeframe %q (want 1m, 5m, 15m, 1h or 4h)", s)
	}
	return tf, nil
}

func (tf Timeframe) Duration() time.Duration {
	return timeframes[tf]
}

func (tf Timeframe) String() string { return string(tf) }
