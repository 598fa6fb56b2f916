package market

import "math"

// SymbolInfo carries the broker-reported trading constraints for a
// symbol. Values come from the gateway at startup and are threaded
// explicitly through sizing and entry planning; they are never mutated
// after discovery.
type SymbolInfo struct {
	Symbol       string
	Point        float64 // smallest quoted price increment
	Digits       int
	VolumeMin    float64
	VolumeMax    float64
	VolumeStep   float64
	ContractSize float64
}

// PointSize returns the symbol point, deriving 10^-digits when the
// broker reports zero, and a common FX default when digits are missing
// too.
func (s SymbolInfo) PointSize() float64 {
	if s.Point > 0 {
		return s.Point
	}
	if s.Digits > 0 {
		return math.Pow(10, -float64(s.Digits))
	}
	return 0.0001
}

// MinStopDistance converts a distance in points into price units,
// never smaller than one point.
func (s SymbolInfo) MinStopDistance(points float64) float64 {
	point := s.PointSize()
	return math.Max(points*point, point)
}
