// Package indicator implements the numeric series functions the strategies
// need as explicit windowed computations over candle slices. Values that are
// undefined for lack of history are NaN.
package indicator

import (
	"math"

	"intrabot-go/internal/market"
)

// EMA computes the exponential moving average with smoothing 2/(period+1),
// seeded from the first value with no warm-up discard.
func EMA(values []float64, period int) []float64 {
	if len(values) == 0 || period <= 0 {
		return nil
	}
	out := make([]float64, len(values))
	k := 2.0 / (float64(period) + 1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

// Closes extracts the close series from candles.
func Closes(candles []market.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// ATR computes the average true range: the rolling mean of the true range
// over a trailing window. True range is max(h-l, |h-prevClose|, |l-prevClose|).
// The first period values are NaN.
func ATR(candles []market.Candle, period int) []float64 {
	out := make([]float64, len(candles))
	if period <= 0 {
		period = 14
	}
	tr := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = math.NaN()
		if i == 0 {
			tr[i] = c.Range()
			continue
		}
		prevClose := candles[i-1].Close
		tr[i] = math.Max(c.Range(), math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
	}
	for i := period; i < len(candles); i++ {
		var sum float64
		for j := i - period + 1; j <= i; j++ {
			sum += tr[j]
		}
		out[i] = sum / float64(period)
	}
	return out
}

// VWAP computes the intraday volume-weighted average price: cumulative
// typical-price*volume over cumulative volume, reset at each calendar date
// change. Bars with zero cumulative volume carry the typical price itself.
func VWAP(candles []market.Candle) []float64 {
	out := make([]float64, len(candles))
	var cumPV, cumV float64
	var day string
	for i, c := range candles {
		d := c.Ts.Format("2006-01-02")
		if d != day {
			day = d
			cumPV, cumV = 0, 0
		}
		cumPV += c.TypicalPrice() * c.Volume
		cumV += c.Volume
		if cumV > 0 {
			out[i] = cumPV / cumV
		} else {
			out[i] = c.TypicalPrice()
		}
	}
	return out
}

// PrevClose maps each bar to the final close of the previous calendar date,
// NaN for bars on the first date in the series.
func PrevClose(candles []market.Candle) []float64 {
	out := make([]float64, len(candles))
	prev := math.NaN()
	var day string
	var lastClose float64
	for i, c := range candles {
		d := c.Ts.Format("2006-01-02")
		if day == "" {
			day = d
		} else if d != day {
			prev = lastClose
			day = d
		}
		out[i] = prev
		lastClose = c.Close
	}
	return out
}
