package fyers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"intrabot-go/internal/market"
)

type quotesResponse struct {
	S string `json:"s"`
	D []struct {
		N string `json:"n"`
		S string `json:"s"`
		V struct {
			LP float64 `json:"lp"`
		} `json:"v"`
	} `json:"d"`
}

type historyResponse struct {
	S       string      `json:"s"`
	Message string      `json:"message"`
	Candles [][]float64 `json:"candles"`
}

// Quotes fetches last traded prices for the given symbols. Symbols the API
// did not echo back, or echoed without a price, are simply absent from the
// returned map.
func (c *Client) Quotes(ctx context.Context, symbols ...string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}
	q := url.Values{}
	q.Set("symbols", strings.Join(symbols, ","))

	var out quotesResponse
	if err := c.getJSON(ctx, c.apiBase+"/data/quotes?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	if out.S != "ok" {
		return nil, fmt.Errorf("%w: quotes status %q", ErrBadResponse, out.S)
	}

	prices := make(map[string]float64, len(out.D))
	for _, item := range out.D {
		if item.N == "" || item.V.LP <= 0 {
			continue
		}
		prices[item.N] = item.V.LP
	}
	return prices, nil
}

// History fetches OHLCV candles for the symbol over [from, to] at the given
// resolution (minutes, e.g. "5"). Candles arrive as [epoch, o, h, l, c, v]
// rows; short rows are skipped.
func (c *Client) History(ctx context.Context, symbol, resolution string, from, to time.Time) ([]market.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("resolution", resolution)
	q.Set("date_format", "1")
	q.Set("range_from", from.Format("2006-01-02"))
	q.Set("range_to", to.Format("2006-01-02"))
	q.Set("cont_flag", "1")

	var out historyResponse
	if err := c.getJSON(ctx, c.apiBase+"/data/history?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	if out.S != "ok" {
		return nil, fmt.Errorf("%w: history status %q: %s", ErrBadResponse, out.S, out.Message)
	}

	candles := make([]market.Candle, 0, len(out.Candles))
	for _, row := range out.Candles {
		if len(row) < 6 {
			continue
		}
		candles = append(candles, market.Candle{
			Ts:     time.Unix(int64(row[0]), 0),
			Open:   row[1],
			High:   row[2],
			Low:    row[3],
			Close:  row[4],
			Volume: row[5],
		})
	}
	return candles, nil
}
