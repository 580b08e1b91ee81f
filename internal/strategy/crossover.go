// Package strategy derives directional signals from candle history.
package strategy

import (
	"intrabot-go/internal/indicator"
	"intrabot-go/internal/market"
	"intrabot-go/internal/signal"
)

// Crossover detects fast/slow EMA crossovers at the last two completed bars.
type Crossover struct {
	Fast int
	Slow int
}

// Name returns the identifier used in logs and metrics.
func (s Crossover) Name() string { return "crossover" }

// Evaluate returns Bullish when the fast EMA crosses from at-or-below the
// slow EMA to above it, Bearish for the reverse, None otherwise. Fewer than
// two bars always yields None.
func (s Crossover) Evaluate(candles []market.Candle) signal.Signal {
	if len(candles) < 2 {
		return signal.None
	}

	closes := indicator.Closes(candles)
	fast := indicator.EMA(closes, s.Fast)
	slow := indicator.EMA(closes, s.Slow)

	n := len(closes)
	prevFast, prevSlow := fast[n-2], slow[n-2]
	currFast, currSlow := fast[n-1], slow[n-1]

	switch {
	case prevFast <= prevSlow && currFast > currSlow:
		return signal.Bullish
	case prevFast >= prevSlow && currFast < currSlow:
		return signal.Bearish
	default:
		return signal.None
	}
}
