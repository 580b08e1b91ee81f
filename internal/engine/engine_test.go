package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"intrabot-go/internal/config"
	"intrabot-go/internal/execution"
	"intrabot-go/internal/fyers"
	"intrabot-go/internal/market"
	"intrabot-go/internal/signal"
)

// fakeBroker satisfies both the market data and order placement interfaces
// so one fixture can drive a whole tick.
type fakeBroker struct {
	quotes  map[string]float64
	history map[string][]market.Candle
	orders  []fyers.OrderRequest
}

func (f *fakeBroker) Quotes(_ context.Context, symbols ...string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, s := range symbols {
		if px, ok := f.quotes[s]; ok {
			out[s] = px
		}
	}
	return out, nil
}

func (f *fakeBroker) History(_ context.Context, symbol, _ string, _, _ time.Time) ([]market.Candle, error) {
	return f.history[symbol], nil
}

func (f *fakeBroker) PlaceOrder(_ context.Context, req fyers.OrderRequest) (string, error) {
	f.orders = append(f.orders, req)
	return fmt.Sprintf("ord-%d", len(f.orders)), nil
}

func newTestEngine(cfg *config.Config, broker *fakeBroker, clock time.Time) *Engine {
	log := zerolog.Nop()
	gw := market.NewGateway(broker, nil, log)
	exec := execution.NewExecutor(broker, log)
	e := New(cfg, gw, exec, log)
	e.now = func() time.Time { return clock }
	return e
}

// bullishReversal is a downtrend followed by a rally sharp enough to cross
// the 9 EMA above the 21 EMA at the last bar.
func bullishReversal() []market.Candle {
	base := time.Date(2026, 2, 10, 9, 30, 0, 0, time.Local)
	closes := make([]float64, 0, 37)
	for i := 0; i < 30; i++ {
		closes = append(closes, 200-2*float64(i))
	}
	last := closes[len(closes)-1]
	for i := 1; i <= 7; i++ {
		closes = append(closes, last+5*float64(i))
	}
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		out[i] = market.Candle{Ts: base.Add(time.Duration(i) * 5 * time.Minute), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return out
}

func crossoverConfig() *config.Config {
	return &config.Config{
		Strategy: config.Strategy{Mode: config.ModeCrossover, PollIntervalSecs: 1},
		Crossover: config.Crossover{
			Fast: 9, Slow: 21,
			Resolution:   "5",
			LookbackDays: 5,
			StopLossPct:  0.5,
			TargetPct:    1.0,
			LotSize:      1,
			Markets:      []config.Market{crudeMarket},
		},
	}
}

func TestCrossoverTickEntersAndExits(t *testing.T) {
	broker := &fakeBroker{
		quotes:  map[string]float64{crudeMarket.Underlying: 6473},
		history: map[string][]market.Candle{crudeMarket.Underlying: bullishReversal()},
	}
	e := newTestEngine(crossoverConfig(), broker, at(16, 0))
	ctx := context.Background()

	if err := e.crossoverTick(ctx); err != nil {
		t.Fatalf("tick 1: %v", err)
	}
	const optSym = "MCX:CRUDEOILM26FEB6500CE"
	if len(broker.orders) != 1 {
		t.Fatalf("tick 1: expected one order, got %d", len(broker.orders))
	}
	if got := broker.orders[0]; got.Symbol != optSym || got.Side != 1 || got.Qty != 1 {
		t.Fatalf("tick 1: unexpected order %+v", got)
	}
	if e.book.Side != Long || e.book.Symbol != optSym {
		t.Fatalf("tick 1: unexpected book %+v", e.book)
	}
	// Entry was unknown at decision time; no option quote means it stays
	// zero until a later tick sees a price.
	if e.book.Entry != 0 {
		t.Fatalf("tick 1: entry should be pending, got %v", e.book.Entry)
	}

	// A quote appears: the entry backfills without trading.
	broker.quotes[optSym] = 50
	if err := e.crossoverTick(ctx); err != nil {
		t.Fatalf("tick 2: %v", err)
	}
	if e.book.Entry != 50 {
		t.Fatalf("tick 2: expected entry backfilled to 50, got %v", e.book.Entry)
	}
	if len(broker.orders) != 1 {
		t.Fatalf("tick 2: backfill tick must not trade, got %d orders", len(broker.orders))
	}

	// History goes away (signal None) and the option rallies through the
	// 1% target: the position closes and nothing re-enters.
	delete(broker.history, crudeMarket.Underlying)
	broker.quotes[optSym] = 51
	if err := e.crossoverTick(ctx); err != nil {
		t.Fatalf("tick 3: %v", err)
	}
	if len(broker.orders) != 2 {
		t.Fatalf("tick 3: expected target exit, got %d orders", len(broker.orders))
	}
	if got := broker.orders[1]; got.Symbol != optSym || got.Side != -1 {
		t.Fatalf("tick 3: expected sell of %s, got %+v", optSym, got)
	}
	if e.book.Open() {
		t.Fatalf("tick 3: book should be flat, got %+v", e.book)
	}
}

func TestCrossoverTickClosesOutsideWindow(t *testing.T) {
	broker := &fakeBroker{quotes: map[string]float64{}, history: map[string][]market.Candle{}}
	e := newTestEngine(crossoverConfig(), broker, at(23, 30))
	e.book = Book{Side: Long, Symbol: "MCX:CRUDEOILM26FEB6500CE", Entry: 50, Market: "crude"}

	if err := e.crossoverTick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(broker.orders) != 1 || broker.orders[0].Side != -1 {
		t.Fatalf("expected a single closing sell, got %+v", broker.orders)
	}
	if e.book.Open() {
		t.Fatalf("book should be flat outside all windows")
	}
}

func mmrConfig() *config.Config {
	return &config.Config{
		Strategy: config.Strategy{Mode: config.ModeMMR, PollIntervalSecs: 1, PacingMs: 1},
		MMR: config.MMR{
			IndexSymbol:   "NSE:NIFTY50-INDEX",
			Stocks:        []string{"NSE:RELIANCE-EQ"},
			Resolution:    "5",
			LookbackDays:  5,
			EMAFast:       9,
			EMASlow:       21,
			ATRPeriod:     14,
			GapPct:        0.5,
			RangeATRMult:  1.25,
			SLATRMult:     1.0,
			TargetATRMult: 3.0,
			RiskPerTrade:  0.01,
			MaxCapital:    100000,
			SquareOff:     config.TimeOfDay{Hour: 15, Minute: 10},
		},
	}
}

// gappedSeries is a flat day closing at 100 followed by a day opening with a
// gap and stepping steadily, enough for EMA alignment, a VWAP-side close,
// and the volatility filter.
func gappedSeries() []market.Candle {
	day1 := time.Date(2026, 2, 10, 9, 30, 0, 0, time.Local)
	day2 := time.Date(2026, 2, 11, 9, 30, 0, 0, time.Local)

	var out []market.Candle
	for i := 0; i < 5; i++ {
		out = append(out, market.Candle{Ts: day1.Add(time.Duration(i) * 5 * time.Minute), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000})
	}
	for i := 0; i < 15; i++ {
		c := 102 + 2*float64(i)
		out = append(out, market.Candle{Ts: day2.Add(time.Duration(i) * 5 * time.Minute), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000})
	}
	return out
}

func TestMMRTickOpensAndCloses(t *testing.T) {
	cfg := mmrConfig()
	stock := cfg.MMR.Stocks[0]
	broker := &fakeBroker{
		quotes: map[string]float64{},
		history: map[string][]market.Candle{
			cfg.MMR.IndexSymbol: gappedSeries(),
			stock:               gappedSeries(),
		},
	}
	e := newTestEngine(cfg, broker, at(11, 0))
	ctx := context.Background()

	if err := e.mmrTick(ctx); err != nil {
		t.Fatalf("tick 1: %v", err)
	}
	if len(broker.orders) != 1 {
		t.Fatalf("tick 1: expected one entry order, got %d", len(broker.orders))
	}
	// The series' true range is a constant 3 through the ATR window, so
	// qty = floor(1000/3) and capital = qty * 130.
	if got := broker.orders[0]; got.Symbol != stock || got.Side != 1 || got.Qty != 333 {
		t.Fatalf("tick 1: unexpected entry order %+v", got)
	}
	pos, held := e.mmr.Position(stock)
	if !held {
		t.Fatalf("tick 1: expected an open position")
	}
	if pos.Entry != 130 || pos.Stop != 127 || pos.Target != 139 {
		t.Fatalf("tick 1: unexpected levels %+v", pos)
	}
	if used := e.mmr.Budget().Used(); used != 333*130 {
		t.Fatalf("tick 1: budget used %v, want %v", used, 333*130)
	}

	// Price through the target: the position closes and capital releases.
	broker.quotes[stock] = 140
	if err := e.mmrTick(ctx); err != nil {
		t.Fatalf("tick 2: %v", err)
	}
	if len(broker.orders) != 2 {
		t.Fatalf("tick 2: expected an exit order, got %d total", len(broker.orders))
	}
	if got := broker.orders[1]; got.Side != -1 || got.Qty != 333 {
		t.Fatalf("tick 2: unexpected exit order %+v", got)
	}
	if _, held := e.mmr.Position(stock); held {
		t.Fatalf("tick 2: position should be closed")
	}
	if used := e.mmr.Budget().Used(); used != 0 {
		t.Fatalf("tick 2: budget should be fully released, used %v", used)
	}
}

func TestMMRTickSquareOff(t *testing.T) {
	cfg := mmrConfig()
	stock := cfg.MMR.Stocks[0]
	broker := &fakeBroker{
		quotes:  map[string]float64{stock: 130},
		history: map[string][]market.Candle{cfg.MMR.IndexSymbol: gappedSeries()},
	}
	e := newTestEngine(cfg, broker, at(15, 20))
	e.mmr.Open(MMRPosition{Symbol: stock, Side: signal.Bullish, Entry: 130, Stop: 127, Target: 139, Qty: 333, Capital: 333 * 130})

	if err := e.mmrTick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(broker.orders) != 1 || broker.orders[0].Side != -1 {
		t.Fatalf("expected the square-off sell, got %+v", broker.orders)
	}
	if _, held := e.mmr.Position(stock); held {
		t.Fatalf("position should be squared off")
	}
}

func TestMMRTickIndexUnavailable(t *testing.T) {
	cfg := mmrConfig()
	broker := &fakeBroker{quotes: map[string]float64{}, history: map[string][]market.Candle{}}
	e := newTestEngine(cfg, broker, at(11, 0))

	err := e.mmrTick(context.Background())
	if err == nil {
		t.Fatalf("expected an error with no index history")
	}
	if Classify(err) != KindMalformed {
		t.Fatalf("missing index data must classify malformed, got %v", Classify(err))
	}
}

func TestSafeTickRecoversPanic(t *testing.T) {
	e := newTestEngine(crossoverConfig(), &fakeBroker{}, at(16, 0))
	err := e.safeTick(context.Background(), func(context.Context) error { panic("boom") })
	if err == nil {
		t.Fatalf("expected the panic converted to an error")
	}
	if Classify(err) != KindTransient {
		t.Fatalf("recovered panic must classify transient, got %v", Classify(err))
	}
}

func TestRetryDelay(t *testing.T) {
	cases := []struct {
		consecutive int
		want        time.Duration
	}{
		{1, 10 * time.Second},
		{2, 20 * time.Second},
		{3, 40 * time.Second},
		{4, time.Minute},
		{10, time.Minute},
	}
	for _, tc := range cases {
		if got := retryDelay(tc.consecutive); got != tc.want {
			t.Fatalf("retryDelay(%d) = %v, want %v", tc.consecutive, got, tc.want)
		}
	}
}
