package mt5

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/tradekit/zonebot/market"
)

// TickStream subscribes to the bridge's websocket tick feed and keeps
// the latest tick per symbol in a TickStore. The trade loop stays a
// polling loop; the stream only makes GetTick cheap and fresh.
type TickStream struct {
	url     string
	symbols []string
	store   *market.TickStore
	log     *logrus.Logger

	conn   *websocket.Conn
	mu     sync.Mutex
	done   chan struct{}
	closed bool
}

// maxStale is how old a streamed tick may be before GetTick falls back
// to polling the bridge.
const maxStale = 5 * time.Second

type streamMsg struct {
	Symbol string  `json:"symbol"`
	Time   int64   `json:"time"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Last   float64 `json:"last"`
}

// AttachStream connects the client to a websocket tick feed. The reader
// goroutine runs until Close; read failures are logged and the feed
// reconnects with a short delay.
func (c *Client) AttachStream(streamURL string, symbols []string) (*TickStream, error) {
	s := &TickStream{
		url:     streamURL,
		symbols: symbols,
		store:   market.NewTickStore(),
		log:     c.log,
		done:    make(chan struct{}),
	}
	if err := s.connect(); err != nil {
		return nil, err
	}
	go s.readLoop()

	c.stream = s
	return s, nil
}

// Latest returns the freshest streamed tick for the symbol, or an error
// when there is none or it has gone stale.
func (s *TickStream) Latest(symbol string) (market.Tick, error) {
	t, err := s.store.Get(symbol)
	if err != nil {
		return market.Tick{}, err
	}
	if time.Since(t.Time) > maxStale {
		return market.Tick{}, market.ErrNoTick
	}
	return t, nil
}

func (s *TickStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	if s.conn != nil {
		s.conn.Close()
	}
}

func (s *TickStream) connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		return fmt.Errorf("dial tick stream: %w", err)
	}

	sub := map[string]any{"op": "subscribe", "symbols": s.symbols}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	return nil
}

func (s *TickStream) readLoop() {
	for {
		select {
		case <-s.done:
			return
		default:
		}

		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()

		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.log.WithError(err).Warn("tick stream read failed, reconnecting")
			time.Sleep(time.Second)
			if err := s.connect(); err != nil {
				s.log.WithError(err).Warn("tick stream reconnect failed")
			}
			continue
		}

		var msg streamMsg
		if err := json.Unmarshal(data, &msg); err != nil || msg.Symbol == "" {
			continue
		}

		s.store.Set(market.Tick{
			Symbol: msg.Symbol,
			Time:   time.Unix(msg.Time, 0).UTC(),
			Bid:    msg.Bid,
			Ask:    msg.Ask,
			Last:   msg.Last,
		})
	}
}
