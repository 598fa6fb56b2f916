package market

import (
	"errors"
	"sync"
	"time"
)

var ErrNoTick = errors.New("no tick available")

// Tick is the current best bid/ask for a symbol. Last may be zero when the
// venue does not publish trade prices; LastOrMid covers that case.
type Tick struct {
	Symbol string
	Time   time.Time
	Bid    float64
	Ask    float64
	Last   float64
}

func (t Tick) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

func (t Tick) Spread() float64 {
	return t.Ask - t.Bid
}

// LastOrMid returns the last traded price, falling back to the ask and
// then the bid when the broker reports no last price.
func (t Tick) LastOrMid() float64 {
	if t.Last != 0 {
		return t.Last
	}
	if t.Ask != 0 {
		return t.Ask
	}
	return t.Bid
}

// TickStore holds the most recent tick per symbol. It is safe for
// concurrent use so a streaming feed can publish while the trade loop
// reads.
type TickStore struct {
	mu    sync.RWMutex
	ticks map[string]Tick
}

func NewTickStore() *TickStore {
	return &TickStore{ticks: make(map[string]Tick)}
}

func (s *TickStore) Set(t Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks[t.Symbol] = t
}

func (s *TickStore) Get(symbol string) (Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.ticks[symbol]
	if !ok {
		return Tick{}, ErrNoTick
	}
	return t, nil
}
