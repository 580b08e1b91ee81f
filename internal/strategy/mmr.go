package strategy

import (
	"math"

	"intrabot-go/internal/indicator"
	"intrabot-go/internal/market"
	"intrabot-go/internal/signal"
)

// MMR is the multi-stock momentum/mean-reversion entry trigger. All four
// conditions must hold jointly for a signal: index trend alignment, the
// stock's own EMA alignment in the same direction, price on the matching
// side of its VWAP, and a volatility filter (opening gap or bar range vs
// ATR). Absence of any condition is a defined no-trade outcome.
type MMR struct {
	EMAFast      int
	EMASlow      int
	ATRPeriod    int
	GapPct       float64 // opening gap threshold, percent of previous close
	RangeATRMult float64 // bar range threshold as a multiple of ATR
}

// Name returns the identifier used in logs and metrics.
func (s MMR) Name() string { return "mmr" }

// Assessment carries the signal plus the last-bar figures the controller
// needs for stop placement and quantity sizing.
type Assessment struct {
	Signal signal.Signal
	Close  float64
	ATR    float64
}

// Evaluate derives the composite signal for one stock given its own history
// and the index history. Insufficient history for ATR or previous close
// yields None.
func (s MMR) Evaluate(stock, index []market.Candle) Assessment {
	out := Assessment{Signal: signal.None, ATR: math.NaN()}
	if len(stock) == 0 || len(index) < 2 {
		return out
	}

	last := stock[len(stock)-1]
	out.Close = last.Close

	atr := indicator.ATR(stock, s.ATRPeriod)
	out.ATR = atr[len(atr)-1]
	prevClose := indicator.PrevClose(stock)
	pc := prevClose[len(prevClose)-1]
	if math.IsNaN(out.ATR) || math.IsNaN(pc) || pc <= 0 {
		return out
	}

	dir := trendDirection(index, s.EMAFast, s.EMASlow)
	if dir == 0 {
		return out
	}
	if trendDirection(stock, s.EMAFast, s.EMASlow) != dir {
		return out
	}

	vwap := indicator.VWAP(stock)
	vw := vwap[len(vwap)-1]
	if dir > 0 && last.Close <= vw {
		return out
	}
	if dir < 0 && last.Close >= vw {
		return out
	}

	if !s.volatilityOK(stock, pc, out.ATR) {
		return out
	}

	if dir > 0 {
		out.Signal = signal.Bullish
	} else {
		out.Signal = signal.Bearish
	}
	return out
}

// trendDirection compares the latest fast and slow EMA values: +1 when fast
// is above slow, -1 when below, 0 when equal or undecidable.
func trendDirection(candles []market.Candle, fast, slow int) int {
	closes := indicator.Closes(candles)
	emaFast := indicator.EMA(closes, fast)
	emaSlow := indicator.EMA(closes, slow)
	f, sl := emaFast[len(emaFast)-1], emaSlow[len(emaSlow)-1]
	switch {
	case f > sl:
		return 1
	case f < sl:
		return -1
	default:
		return 0
	}
}

// volatilityOK passes when the day's opening gap from the previous close
// exceeds the configured percent, or the current bar's range exceeds the
// ATR multiple.
func (s MMR) volatilityOK(stock []market.Candle, prevClose, atr float64) bool {
	open := dayOpen(stock)
	if open > 0 {
		gap := math.Abs(open-prevClose) / prevClose * 100
		if gap >= s.GapPct {
			return true
		}
	}
	last := stock[len(stock)-1]
	return last.Range() >= atr*s.RangeATRMult
}

// dayOpen finds the open of the first bar sharing the last bar's calendar date.
func dayOpen(candles []market.Candle) float64 {
	last := candles[len(candles)-1]
	day := last.Ts.Format("2006-01-02")
	open := last.Open
	for i := len(candles) - 1; i >= 0; i-- {
		if candles[i].Ts.Format("2006-01-02") != day {
			break
		}
		open = candles[i].Open
	}
	return open
}
