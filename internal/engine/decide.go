package engine

import (
	"time"

	"intrabot-go/internal/config"
	"intrabot-go/internal/execution"
	"intrabot-go/internal/indicator"
	"intrabot-go/internal/signal"
)

// TickInput is everything one crossover tick observes. The decision over it
// is pure so it can be tested without a live broker.
type TickInput struct {
	Now time.Time
	// Market is the active market for the current window, nil when the
	// clock is outside every configured window.
	Market *config.Market
	// Signal is the freshly computed crossover signal for the active
	// underlying (None when no history or no crossover).
	Signal signal.Signal
	// UnderlyingPrice is the underlying's last traded price, 0 when absent.
	UnderlyingPrice float64
	// PositionPrice is the held option's last traded price, 0 when absent
	// or when nothing is held.
	PositionPrice float64
}

// Params are the static crossover trade parameters.
type Params struct {
	StopLossPct float64
	TargetPct   float64
	LotSize     int
}

// Action is an order the controller wants issued, with the reason recorded
// for logging.
type Action struct {
	Order  execution.Order
	Reason string
}

// Decide advances the crossover book one tick and returns the orders to
// issue. Precedence: window force-close, window-switch force-close, entry
// backfill, stop/target thresholds, then signal handling (switch, enter, or
// hold). Both legs hold bought options, so exits are always sells and the
// stop/target sense is long-style on the option price regardless of the
// directional side. Thresholds are checked at poll resolution only.
func Decide(book Book, in TickInput, p Params) (Book, []Action) {
	var actions []Action

	exit := func(reason string) {
		actions = append(actions, Action{
			Order:  execution.Order{Symbol: book.Symbol, Side: execution.Sell, Qty: p.LotSize},
			Reason: reason,
		})
		book = Book{}
	}

	if in.Market == nil {
		if book.Open() {
			exit("outside trading window")
		}
		return book, actions
	}

	if book.Open() && book.Market != in.Market.Name {
		exit("window switch")
	}

	if book.Open() && book.Entry == 0 && in.PositionPrice > 0 {
		// Best-effort recovery of a lost entry price before thresholds.
		book.Entry = in.PositionPrice
	}

	if book.Open() && book.Entry > 0 && in.PositionPrice > 0 {
		target := book.Entry * (1 + p.TargetPct/100)
		stop := book.Entry * (1 - p.StopLossPct/100)
		if in.PositionPrice >= target {
			exit("target hit")
		} else if in.PositionPrice <= stop {
			exit("stop loss hit")
		}
	}

	switch in.Signal {
	case signal.Bullish:
		if book.Side != Long {
			if book.Open() {
				exit("bullish reversal")
			}
			if in.UnderlyingPrice > 0 {
				book = enter(Long, "CE", in, p)
				actions = append(actions, Action{
					Order:  execution.Order{Symbol: book.Symbol, Side: execution.Buy, Qty: p.LotSize},
					Reason: "bullish entry",
				})
			}
		}
	case signal.Bearish:
		if book.Side != Short {
			if book.Open() {
				exit("bearish reversal")
			}
			if in.UnderlyingPrice > 0 {
				book = enter(Short, "PE", in, p)
				actions = append(actions, Action{
					Order:  execution.Order{Symbol: book.Symbol, Side: execution.Buy, Qty: p.LotSize},
					Reason: "bearish entry",
				})
			}
		}
	}

	return book, actions
}

// enter builds the book entry for a fresh position: the ATM option of the
// active market in the signal's direction. Entry price starts at zero and is
// backfilled from the live option price by the loop.
func enter(side PositionSide, optType string, in TickInput, p Params) Book {
	strike := indicator.ATMStrike(in.UnderlyingPrice, in.Market.StrikeInterval)
	sym := indicator.OptionSymbol(in.Market.Exchange, in.Market.OptionBase, in.Market.Expiry, strike, optType)
	return Book{Side: side, Symbol: sym, Market: in.Market.Name}
}

// ActiveMarket picks the market whose trading window contains now. Outside
// all windows there is no active market and the tick skips signal
// evaluation entirely.
func ActiveMarket(markets []config.Market, now time.Time) (*config.Market, bool) {
	for i := range markets {
		if markets[i].Window.Contains(now) {
			return &markets[i], true
		}
	}
	return nil, false
}
