// Package execution handles order submission to the brokerage.
package execution

import (
	"context"

	"github.com/rs/zerolog"

	"intrabot-go/internal/fyers"
	"intrabot-go/internal/metrics"
)

// Side enumerates order directions using the broker's wire values.
type Side int

const (
	// Buy indicates a buy order (+1 on the wire).
	Buy Side = 1
	// Sell indicates a sell order (-1 on the wire).
	Sell Side = -1
)

func (s Side) String() string {
	if s == Sell {
		return "SELL"
	}
	return "BUY"
}

// Order represents a market order request the executor can process.
type Order struct {
	Symbol string
	Side   Side
	Qty    int
}

// Broker is the order-placement slice of the brokerage client.
type Broker interface {
	PlaceOrder(ctx context.Context, req fyers.OrderRequest) (string, error)
}

// Executor submits market orders. Submission is fire-and-forget relative to
// book state: callers record the position the moment the request is issued
// and never reconcile against broker-reported fills, so partial fills or
// rejections can leave the book out of sync with the broker. That gap is
// inherited behavior; operators flatten manually if it bites.
type Executor struct {
	broker Broker
	log    zerolog.Logger
}

// NewExecutor wires a broker client and logger.
func NewExecutor(broker Broker, log zerolog.Logger) *Executor {
	return &Executor{broker: broker, log: log}
}

// Submit places a market intraday order and bumps the order counter.
func (e *Executor) Submit(ctx context.Context, order Order) error {
	id, err := e.broker.PlaceOrder(ctx, fyers.MarketOrder(order.Symbol, int(order.Side), order.Qty))
	if err != nil {
		e.log.Error().Err(err).Str("sym", order.Symbol).Str("side", order.Side.String()).Int("qty", order.Qty).Msg("order submit failed")
		return err
	}
	metrics.OrdersTotal.WithLabelValues(order.Symbol, order.Side.String()).Inc()
	e.log.Info().Str("sym", order.Symbol).Str("side", order.Side.String()).Int("qty", order.Qty).Str("id", id).Msg("submit order")
	return nil
}
