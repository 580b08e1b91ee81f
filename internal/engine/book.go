// Package engine owns position state and the per-tick decision logic that
// turns signals and live prices into orders, plus the polling loops that
// drive it. All state is touched by a single loop goroutine; no locking.
package engine

import (
	"intrabot-go/internal/risk"
	"intrabot-go/internal/signal"
)

// PositionSide is the crossover book state.
type PositionSide string

const (
	// Flat means no open position.
	Flat PositionSide = ""
	// Long means a bought call is held.
	Long PositionSide = "LONG"
	// Short means a bought put is held.
	Short PositionSide = "SHORT"
)

// Book is the single-position crossover state: which direction is on, which
// option symbol carries it, the entry price for threshold checks, and which
// market's window it was opened in. Entry, once set, is never recomputed;
// a lost (zero) entry is backfilled from the live price on a later tick.
type Book struct {
	Side   PositionSide
	Symbol string
	Entry  float64
	Market string
}

// Open reports whether a position is held.
func (b Book) Open() bool { return b.Side != Flat }

// MMRPosition is one budgeted stock position. Bullish means a bought (BUY)
// position, Bearish a sold-short (SELL) one.
type MMRPosition struct {
	Symbol  string
	Side    signal.Signal
	Entry   float64
	Stop    float64
	Target  float64
	Qty     int
	Capital float64
}

// MMRBook tracks the per-symbol positions of the multi-stock strategy
// together with the shared capital budget. Invariant: the budget's used
// total always equals the sum of the open positions' Capital.
type MMRBook struct {
	positions map[string]MMRPosition
	budget    *risk.Budget
}

// NewMMRBook creates an empty book over the given budget.
func NewMMRBook(budget *risk.Budget) *MMRBook {
	return &MMRBook{positions: make(map[string]MMRPosition), budget: budget}
}

// Position looks up the open position for a symbol.
func (b *MMRBook) Position(symbol string) (MMRPosition, bool) {
	pos, ok := b.positions[symbol]
	return pos, ok
}

// Positions returns a copy of the open positions.
func (b *MMRBook) Positions() map[string]MMRPosition {
	out := make(map[string]MMRPosition, len(b.positions))
	for sym, pos := range b.positions {
		out[sym] = pos
	}
	return out
}

// Budget exposes the shared capital budget.
func (b *MMRBook) Budget() *risk.Budget { return b.budget }

// CanOpen reports whether the budget has headroom for the capital amount.
func (b *MMRBook) CanOpen(capital float64) bool {
	return capital > 0 && b.budget.Used()+capital <= b.budget.Ceiling()
}

// Open records a new position and commits its capital. It reports false,
// leaving the book untouched, when the symbol already has a position or the
// budget lacks headroom.
func (b *MMRBook) Open(pos MMRPosition) bool {
	if _, exists := b.positions[pos.Symbol]; exists {
		return false
	}
	if !b.budget.Commit(pos.Capital) {
		return false
	}
	b.positions[pos.Symbol] = pos
	return true
}

// Close removes the position and releases its capital.
func (b *MMRBook) Close(symbol string) (MMRPosition, bool) {
	pos, ok := b.positions[symbol]
	if !ok {
		return MMRPosition{}, false
	}
	delete(b.positions, symbol)
	b.budget.Release(pos.Capital)
	return pos, true
}
