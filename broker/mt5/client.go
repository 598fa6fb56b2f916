// Package mt5 talks to a MetaTrader terminal bridge over HTTP. The
// bridge is a thin sidecar exposing the terminal's market data, account
// and trading calls as REST endpoints; this client implements
// broker.Gateway on top of it.
package mt5

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tradekit/zonebot/broker"
	"github.com/tradekit/zonebot/market"
)

// Client is an HTTP client for the terminal bridge.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *logrus.Logger

	stream *TickStream // non-nil when a websocket tick feed is attached
}

type Option func(*Client)

// WithTimeout overrides the default 30s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a bridge client. The token may be empty when the
// bridge runs unauthenticated on localhost.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: logrus.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping verifies the bridge is reachable and the terminal session is
// alive. Initialization failures are fatal for the caller, so this is
// run once before the trade loop starts.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.GetAccount(ctx)
	if err != nil {
		return fmt.Errorf("bridge ping: %w", err)
	}
	return nil
}

type apiCandle struct {
	Time  int64   `json:"time"` // unix seconds, bar open
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

func (c *Client) GetCandles(ctx context.Context, symbol string, tf market.Timeframe, count int) ([]market.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("timeframe", tf.String())
	params.Set("count", strconv.Itoa(count))

	var raw []apiCandle
	if err := c.get(ctx, "/candles", params, &raw); err != nil {
		return nil, err
	}

	candles := make([]market.Candle, 0, len(raw))
	for _, ac := range raw {
		candles = append(candles, market.Candle{
			Time:  time.Unix(ac.Time, 0).UTC(),
			Open:  ac.Open,
			High:  ac.High,
			Low:   ac.Low,
			Close: ac.Close,
		})
	}
	return candles, nil
}

type apiTick struct {
	Time int64   `json:"time"`
	Bid  float64 `json:"bid"`
	Ask  float64 `json:"ask"`
	Last float64 `json:"last"`
}

// GetTick returns the current best prices. When a tick stream is
// attached and has a fresh tick for the symbol, the streamed value is
// preferred over a bridge round trip.
func (c *Client) GetTick(ctx context.Context, symbol string) (market.Tick, error) {
	if c.stream != nil {
		if t, err := c.stream.Latest(symbol); err == nil {
			return t, nil
		}
	}

	params := url.Values{}
	params.Set("symbol", symbol)

	var raw apiTick
	if err := c.get(ctx, "/tick", params, &raw); err != nil {
		return market.Tick{}, err
	}
	if raw.Bid == 0 && raw.Ask == 0 {
		return market.Tick{}, market.ErrNoTick
	}

	return market.Tick{
		Symbol: symbol,
		Time:   time.Unix(raw.Time, 0).UTC(),
		Bid:    raw.Bid,
		Ask:    raw.Ask,
		Last:   raw.Last,
	}, nil
}

type apiSymbolInfo struct {
	Point        float64 `json:"point"`
	Digits       int     `json:"digits"`
	VolumeMin    float64 `json:"volume_min"`
	VolumeMax    float64 `json:"volume_max"`
	VolumeStep   float64 `json:"volume_step"`
	ContractSize float64 `json:"contract_size"`
}

// GetSymbolInfo selects the symbol in the terminal and returns its
// trading constraints.
func (c *Client) GetSymbolInfo(ctx context.Context, symbol string) (market.SymbolInfo, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var raw apiSymbolInfo
	if err := c.get(ctx, "/symbol", params, &raw); err != nil {
		return market.SymbolInfo{}, fmt.Errorf("select symbol %s: %w", symbol, err)
	}

	return market.SymbolInfo{
		Symbol:       symbol,
		Point:        raw.Point,
		Digits:       raw.Digits,
		VolumeMin:    raw.VolumeMin,
		VolumeMax:    raw.VolumeMax,
		VolumeStep:   raw.VolumeStep,
		ContractSize: raw.ContractSize,
	}, nil
}

type apiAccount struct {
	ID       string  `json:"id"`
	Currency string  `json:"currency"`
	Balance  float64 `json:"balance"`
	Equity   float64 `json:"equity"`
}

func (c *Client) GetAccount(ctx context.Context) (broker.Account, error) {
	var raw apiAccount
	if err := c.get(ctx, "/account", nil, &raw); err != nil {
		return broker.Account{}, err
	}
	return broker.Account{
		ID:       raw.ID,
		Currency: raw.Currency,
		Balance:  raw.Balance,
		Equity:   raw.Equity,
	}, nil
}

// Close releases the HTTP gateway. An attached tick stream is shut down
// first so its reader goroutine cannot outlive the client.
func (c *Client) Close() error {
	if c.stream != nil {
		c.stream.Close()
	}
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	apiURL := c.baseURL + path
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("bridge error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
