package mt5

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/tradekit/zonebot/broker"
)

// tradeRetcodeDone is the terminal's "request completed" return code.
const tradeRetcodeDone = 10009

type orderRequest struct {
	Symbol    string  `json:"symbol"`
	Direction string  `json:"direction"`
	Volume    float64 `json:"volume"`
	StopLoss  float64 `json:"sl,omitempty"`
	TakeProf  float64 `json:"tp,omitempty"`
	Deviation int     `json:"deviation,omitempty"`
	Magic     int64   `json:"magic"`
	Comment   string  `json:"comment"`
	ClientID  string  `json:"client_id,omitempty"`
}

type orderResponse struct {
	Retcode int     `json:"retcode"`
	Price   float64 `json:"price"`
	Volume  float64 `json:"volume"`
	Comment string  `json:"comment"`
}

// SubmitMarketOrder sends a market order through the bridge. Any
// retcode other than "done" maps to a rejected result; transport errors
// are returned as errors and the caller treats them like rejections.
func (c *Client) SubmitMarketOrder(ctx context.Context, req broker.MarketOrderRequest) (broker.OrderResult, error) {
	body := orderRequest{
		Symbol:    req.Symbol,
		Direction: req.Direction.String(),
		Volume:    req.Volume,
		StopLoss:  req.StopLoss,
		TakeProf:  req.TakeProfit,
		Deviation: req.Deviation,
		Magic:     req.Identity.Magic,
		Comment:   req.Identity.Label,
		ClientID:  req.ClientID,
	}

	var resp orderResponse
	if err := c.post(ctx, "/order", body, &resp); err != nil {
		return broker.OrderResult{}, err
	}

	c.log.WithFields(logrus.Fields{
		"symbol":  req.Symbol,
		"retcode": resp.Retcode,
		"comment": resp.Comment,
	}).Debug("order_send result")

	if resp.Retcode != tradeRetcodeDone {
		return broker.OrderResult{
			Status:  broker.OrderRejected,
			RetCode: resp.Retcode,
			Reason:  resp.Comment,
		}, nil
	}

	return broker.OrderResult{
		Status:    broker.OrderFilled,
		FillPrice: resp.Price,
		Volume:    resp.Volume,
		RetCode:   resp.Retcode,
	}, nil
}

type apiPosition struct {
	Ticket    int64   `json:"ticket"`
	Symbol    string  `json:"symbol"`
	Direction string  `json:"direction"`
	Volume    float64 `json:"volume"`
	PriceOpen float64 `json:"price_open"`
	Magic     int64   `json:"magic"`
	Comment   string  `json:"comment"`
}

// ListOpenPositions returns the open positions for a symbol carrying
// this strategy's identity tag. Positions with a foreign magic or label
// are someone else's and are filtered out.
func (c *Client) ListOpenPositions(ctx context.Context, symbol string, id broker.Identity) ([]broker.Position, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("magic", strconv.FormatInt(id.Magic, 10))

	var raw []apiPosition
	if err := c.get(ctx, "/positions", params, &raw); err != nil {
		return nil, err
	}

	var out []broker.Position
	for _, p := range raw {
		if p.Magic != id.Magic || p.Comment != id.Label {
			continue
		}
		dir, err := broker.ParseDirection(p.Direction)
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", p.Ticket, err)
		}
		out = append(out, broker.Position{
			Ticket:    p.Ticket,
			Symbol:    p.Symbol,
			Direction: dir,
			Volume:    p.Volume,
			OpenPrice: p.PriceOpen,
			Identity:  broker.Identity{Magic: p.Magic, Label: p.Comment},
		})
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
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
