package fyers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	orderTypeMarket = 2
	productIntraday = "INTRADAY"
	validityDay     = "DAY"
)

// OrderRequest is the order placement payload. Side is +1 for buy, -1 for
// sell; only market intraday orders are ever placed.
type OrderRequest struct {
	Symbol string `json:"symbol"`
	Qty    int    `json:"qty"`
	Type   int    `json:"type"`
	Side   int    `json:"side"`

	ProductType  string  `json:"productType"`
	LimitPrice   float64 `json:"limitPrice"`
	StopPrice    float64 `json:"stopPrice"`
	Validity     string  `json:"validity"`
	DisclosedQty int     `json:"disclosedQty"`
	OfflineOrder bool    `json:"offlineOrder"`
}

type orderResponse struct {
	S       string `json:"s"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

// MarketOrder fills in the constant fields of a market intraday order.
func MarketOrder(symbol string, side, qty int) OrderRequest {
	return OrderRequest{
		Symbol:      symbol,
		Qty:         qty,
		Type:        orderTypeMarket,
		Side:        side,
		ProductType: productIntraday,
		Validity:    validityDay,
	}
}

// PlaceOrder submits the order and returns the broker order id. A response
// the API flags as not ok is an error; the caller decides whether its book
// state already moved on (it does — see execution.Executor).
func (c *Client) PlaceOrder(ctx context.Context, order OrderRequest) (string, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("marshal order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/api/v3/orders/sync", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authHeader())

	var out orderResponse
	if err := c.doJSON(req, &out); err != nil {
		return "", err
	}
	if out.S != "ok" {
		return "", fmt.Errorf("%w: order rejected: %s", ErrBadResponse, out.Message)
	}
	c.log.Info().Str("sym", order.Symbol).Int("side", order.Side).Int("qty", order.Qty).Str("id", out.ID).Msg("order placed")
	return out.ID, nil
}
