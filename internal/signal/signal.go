// Package signal standardizes payloads shared between data ingestion and strategy layers.
package signal

import "time"

// Signal expresses the directional bias a strategy derived from fresh market data.
// It is recomputed every tick and carries no state across ticks.
type Signal string

const (
	// Bullish asks the controller to be long (buy side for MMR entries).
	Bullish Signal = "BULLISH"
	// Bearish asks the controller to be short (sell side for MMR entries).
	Bearish Signal = "BEARISH"
	// None is the defined no-trade outcome, not an error.
	None Signal = ""
)

// Tick models a last-traded-price update pushed by the broker data socket.
type Tick struct {
	Symbol string
	LTP    float64
	Ts     time.Time
}
