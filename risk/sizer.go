// Package risk computes order volumes from an account risk budget and
// broker volume constraints.
//
// Sizing never fails: when account or symbol information is missing the
// calculation degrades to fixed-volume mode instead of erroring, so a
// sizing problem can never take down the trade loop.
package risk

import (
	"math"

	"github.com/tradekit/zonebot/market"
)

// defaultStep is used when the broker reports a zero or missing
// volume step.
const defaultStep = 0.01

// Config selects between fixed-volume and risk-budget sizing.
type Config struct {
	UseRiskSizing bool
	RiskPercent   float64 // percent of account balance risked per trade
	FixedVolume   float64

	// Fallback volume bounds, applied when the broker reports zeros.
	MinVolume float64
	MaxVolume float64
}

// Inputs carries everything a single sizing decision depends on.
// Balance <= 0 means account info was unavailable this cycle.
type Inputs struct {
	Balance float64
	Entry   float64
	Stop    float64
	Info    market.SymbolInfo
}

type Result struct {
	Volume     float64
	RiskAmount float64
	Degraded   bool // risk sizing fell back to fixed volume
}

// Size computes the order volume for one trade intent.
//
// In risk mode the raw volume is riskMoney / (stopDistance * contractSize)
// with riskMoney = balance * riskPercent / 100. A zero stop distance or
// missing account data falls back to fixed mode. The result is always
// clamped to the broker's volume bounds and rounded to its step.
func Size(in Inputs, cfg Config) Result {
	min, max, step := bounds(in.Info, cfg)

	fixed := func(degraded bool) Result {
		return Result{
			Volume:   Clamp(cfg.FixedVolume, min, max, step),
			Degraded: degraded,
		}
	}

	if !cfg.UseRiskSizing {
		return fixed(false)
	}
	if in.Balance <= 0 {
		return fixed(true)
	}

	distance := math.Abs(in.Entry - in.Stop)
	if distance == 0 {
		return fixed(true)
	}

	contract := in.Info.ContractSize
	if contract <= 0 {
		contract = 1
	}

	riskMoney := in.Balance * cfg.RiskPercent / 100
	raw := riskMoney / (distance * contract)

	return Result{
		Volume:     Clamp(raw, min, max, step),
		RiskAmount: riskMoney,
	}
}

// Clamp bounds vol to [min, max], rounds to the nearest step multiple,
// then reclamps so rounding can never push the volume past a bound.
func Clamp(vol, min, max, step float64) float64 {
	if step <= 0 {
		step = defaultStep
	}

	vol = math.Max(min, math.Min(max, vol))
	vol = math.Round(vol/step) * step
	return math.Max(min, math.Min(max, vol))
}

func bounds(info market.SymbolInfo, cfg Config) (min, max, step float64) {
	min = info.VolumeMin
	if min <= 0 {
		min = cfg.MinVolume
	}
	max = info.VolumeMax
	if max <= 0 {
		max = cfg.MaxVolume
	}
	step = info.VolumeStep
	if step <= 0 {
		step = defaultStep
	}
	return min, max, step
}
