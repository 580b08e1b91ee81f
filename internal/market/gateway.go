package market

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"intrabot-go/internal/metrics"
)

// Broker is the slice of the brokerage client the gateway needs.
type Broker interface {
	Quotes(ctx context.Context, symbols ...string) (map[string]float64, error)
	History(ctx context.Context, symbol, resolution string, from, to time.Time) ([]Candle, error)
}

// LastSource serves streamed last prices, typically the broker data socket.
type LastSource interface {
	Last(symbol string) (float64, bool)
}

// Gateway normalizes brokerage market data into simple values: a last traded
// price or an ordered candle series. Failures and malformed responses come
// back as absence, never as errors; callers skip the dependent action for
// the tick.
type Gateway struct {
	broker Broker
	stream LastSource
	log    zerolog.Logger
}

// NewGateway wraps a broker client. stream may be nil; when set, streamed
// prices take precedence over REST quote lookups.
func NewGateway(broker Broker, stream LastSource, log zerolog.Logger) *Gateway {
	return &Gateway{broker: broker, stream: stream, log: log}
}

// LastPrice returns the last traded price for exactly one symbol, or absence
// on any mismatch or malformed response.
func (g *Gateway) LastPrice(ctx context.Context, symbol string) (float64, bool) {
	if g.stream != nil {
		if px, ok := g.stream.Last(symbol); ok {
			return px, true
		}
	}

	prices, err := g.broker.Quotes(ctx, symbol)
	if err != nil {
		g.log.Warn().Err(err).Str("sym", symbol).Msg("quote lookup failed")
		return 0, false
	}
	px, ok := prices[symbol]
	if !ok || px <= 0 {
		return 0, false
	}
	metrics.QuotesTotal.WithLabelValues(symbol).Inc()
	return px, true
}

// History returns the ordered candle series for the range, or absence on any
// non-success response. Series are fetched fresh per evaluation and discarded
// after indicator computation.
func (g *Gateway) History(ctx context.Context, symbol, resolution string, from, to time.Time) ([]Candle, bool) {
	candles, err := g.broker.History(ctx, symbol, resolution, from, to)
	if err != nil {
		g.log.Warn().Err(err).Str("sym", symbol).Msg("history fetch failed")
		return nil, false
	}
	if len(candles) == 0 {
		return nil, false
	}
	return candles, true
}
