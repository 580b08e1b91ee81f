// Package market exposes normalized market data types and the gateway that
// fetches them from the brokerage.
package market

import "time"

// Candle is one OHLCV bar. Series are ordered oldest first and are fetched
// fresh for every evaluation, never cached across ticks.
type Candle struct {
	Ts     time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Range returns the high-low spread of the bar.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// TypicalPrice is the (H+L+C)/3 price used for VWAP accumulation.
func (c Candle) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3
}
