package engine

import (
	"math"
	"time"

	"intrabot-go/internal/config"
	"intrabot-go/internal/execution"
	"intrabot-go/internal/risk"
	"intrabot-go/internal/signal"
	"intrabot-go/internal/strategy"
)

// DecideMMRExit checks an open position against its stop, target, and the
// end-of-day square-off. Thresholds are sided: a BUY position stops below
// and targets above, a SELL position the reverse. Square-off closes at
// market regardless of thresholds.
func DecideMMRExit(pos MMRPosition, now time.Time, ltp float64, squareOff config.TimeOfDay) (string, bool) {
	if ltp > 0 {
		if pos.Side == signal.Bullish {
			if ltp <= pos.Stop {
				return "stop loss hit", true
			}
			if ltp >= pos.Target {
				return "target hit", true
			}
		} else {
			if ltp >= pos.Stop {
				return "stop loss hit", true
			}
			if ltp <= pos.Target {
				return "target hit", true
			}
		}
	}
	if now.Hour()*60+now.Minute() >= squareOff.Minutes() {
		return "end of day square-off", true
	}
	return "", false
}

// ExitOrder builds the closing market order for a position.
func ExitOrder(pos MMRPosition) execution.Order {
	side := execution.Sell
	if pos.Side == signal.Bearish {
		side = execution.Buy
	}
	return execution.Order{Symbol: pos.Symbol, Side: side, Qty: pos.Qty}
}

// EntryOrder builds the opening market order for a position.
func EntryOrder(pos MMRPosition) execution.Order {
	side := execution.Buy
	if pos.Side == signal.Bearish {
		side = execution.Sell
	}
	return execution.Order{Symbol: pos.Symbol, Side: side, Qty: pos.Qty}
}

// SizeMMREntry turns an assessment into a budgeted position: quantity from
// the risk amount spread over the ATR stop distance, stop and target at ATR
// multiples around the entry close. It reports false when the quantity
// sizes to zero or the inputs are unusable.
func SizeMMREntry(symbol string, a strategy.Assessment, cfg config.MMR) (MMRPosition, bool) {
	if a.Signal == signal.None || a.Close <= 0 || math.IsNaN(a.ATR) || a.ATR <= 0 {
		return MMRPosition{}, false
	}
	stopDist := a.ATR * cfg.SLATRMult
	qty := risk.Quantity(cfg.MaxCapital, cfg.RiskPerTrade, stopDist)
	if qty <= 0 {
		return MMRPosition{}, false
	}

	pos := MMRPosition{
		Symbol:  symbol,
		Side:    a.Signal,
		Entry:   a.Close,
		Qty:     qty,
		Capital: float64(qty) * a.Close,
	}
	targetDist := a.ATR * cfg.TargetATRMult
	if a.Signal == signal.Bullish {
		pos.Stop = a.Close - stopDist
		pos.Target = a.Close + targetDist
	} else {
		pos.Stop = a.Close + stopDist
		pos.Target = a.Close - targetDist
	}
	return pos, true
}
