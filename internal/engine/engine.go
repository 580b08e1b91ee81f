package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"intrabot-go/internal/config"
	"intrabot-go/internal/execution"
	"intrabot-go/internal/market"
	"intrabot-go/internal/metrics"
	"intrabot-go/internal/risk"
	"intrabot-go/internal/signal"
	"intrabot-go/internal/strategy"
)

const recoveryDelay = 10 * time.Second

// Engine runs the configured strategy loop: poll, decide, act, sleep. One
// goroutine owns all state; orders are fire-and-forget (see execution).
type Engine struct {
	cfg  *config.Config
	gw   *market.Gateway
	exec *execution.Executor
	log  zerolog.Logger

	// now is swappable for deterministic tests.
	now func() time.Time

	crossover strategy.Crossover
	mmrStrat  strategy.MMR

	book Book
	mmr  *MMRBook
}

// New wires an engine from the loaded configuration.
func New(cfg *config.Config, gw *market.Gateway, exec *execution.Executor, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		gw:        gw,
		exec:      exec,
		log:       log,
		now:       time.Now,
		crossover: strategy.Crossover{Fast: cfg.Crossover.Fast, Slow: cfg.Crossover.Slow},
		mmrStrat: strategy.MMR{
			EMAFast:      cfg.MMR.EMAFast,
			EMASlow:      cfg.MMR.EMASlow,
			ATRPeriod:    cfg.MMR.ATRPeriod,
			GapPct:       cfg.MMR.GapPct,
			RangeATRMult: cfg.MMR.RangeATRMult,
		},
		book: Book{},
		mmr:  NewMMRBook(risk.NewBudget(cfg.MMR.MaxCapital)),
	}
}

// Run dispatches to the configured strategy loop and blocks until the
// context is canceled or a fatal error occurs.
func (e *Engine) Run(ctx context.Context) error {
	switch e.cfg.Strategy.Mode {
	case config.ModeMMR:
		e.log.Info().Str("index", e.cfg.MMR.IndexSymbol).Int("stocks", len(e.cfg.MMR.Stocks)).Msg("starting mmr strategy")
		return e.runLoop(ctx, e.mmrTick)
	default:
		e.log.Info().Int("markets", len(e.cfg.Crossover.Markets)).Msg("starting ema crossover strategy")
		return e.runLoop(ctx, e.crossoverTick)
	}
}

// runLoop is the scheduling shell: one tick per poll interval, every error
// classified and handled per the recovery policy. The loop exits only on
// context cancellation or a fatal error; transient failures retry with a
// bounded backoff and malformed data skips to the next tick.
func (e *Engine) runLoop(ctx context.Context, tick func(context.Context) error) error {
	interval := time.Duration(e.cfg.Strategy.PollIntervalSecs) * time.Second
	consecutive := 0

	for {
		err := e.safeTick(ctx, tick)
		wait := interval

		if err != nil && ctx.Err() == nil {
			kind := Classify(err)
			metrics.LoopErrorsTotal.WithLabelValues(string(kind)).Inc()
			switch Policy[kind] {
			case RecoveryAbort:
				e.log.Error().Err(err).Msg("fatal error, stopping loop")
				return err
			case RecoveryRetry:
				consecutive++
				wait = retryDelay(consecutive)
				e.log.Warn().Err(err).Dur("retry_in", wait).Msg("transient error in loop")
			case RecoverySkip:
				e.log.Warn().Err(err).Msg("skipping tick on malformed data")
			}
		} else {
			consecutive = 0
		}

		select {
		case <-ctx.Done():
			e.log.Info().Msg("loop stopped")
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// safeTick converts a panicking iteration into an ordinary error so the
// loop's recovery policy applies to it like any other failure.
func (e *Engine) safeTick(ctx context.Context, tick func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panicked: %v", r)
		}
	}()
	return tick(ctx)
}

// retryDelay doubles the recovery delay per consecutive transient failure,
// capped at the poll interval ballpark.
func retryDelay(consecutive int) time.Duration {
	delay := recoveryDelay
	for i := 1; i < consecutive && delay < time.Minute; i++ {
		delay *= 2
	}
	if delay > time.Minute {
		delay = time.Minute
	}
	return delay
}

func (e *Engine) historyRange() (time.Time, time.Time, int) {
	now := e.now()
	days := e.cfg.Crossover.LookbackDays
	if e.cfg.Strategy.Mode == config.ModeMMR {
		days = e.cfg.MMR.LookbackDays
	}
	return now.AddDate(0, 0, -days), now, days
}

// crossoverTick performs one poll-decide-act iteration of the single
// position strategy.
func (e *Engine) crossoverTick(ctx context.Context) error {
	now := e.now()
	active, inWindow := ActiveMarket(e.cfg.Crossover.Markets, now)

	in := TickInput{Now: now}
	if inWindow {
		in.Market = active

		from, to, _ := e.historyRange()
		if candles, ok := e.gw.History(ctx, active.Underlying, e.cfg.Crossover.Resolution, from, to); ok {
			in.Signal = e.crossover.Evaluate(candles)
		}
		if px, ok := e.gw.LastPrice(ctx, active.Underlying); ok {
			in.UnderlyingPrice = px
			e.log.Info().Str("sym", active.Underlying).Float64("px", px).Str("signal", string(in.Signal)).Msg("tick")
		}
		if in.Signal != signal.None {
			metrics.SignalsTotal.WithLabelValues(e.crossover.Name(), string(in.Signal)).Inc()
		}
	}

	if e.book.Open() {
		if px, ok := e.gw.LastPrice(ctx, e.book.Symbol); ok {
			in.PositionPrice = px
		}
	}

	params := Params{
		StopLossPct: e.cfg.Crossover.StopLossPct,
		TargetPct:   e.cfg.Crossover.TargetPct,
		LotSize:     e.cfg.Crossover.LotSize,
	}
	book, actions := Decide(e.book, in, params)

	var firstErr error
	for _, action := range actions {
		e.log.Info().Str("sym", action.Order.Symbol).Str("side", action.Order.Side.String()).Str("reason", action.Reason).Msg("decision")
		if err := e.exec.Submit(ctx, action.Order); err != nil && firstErr == nil {
			// Book state still advances: submission is fire-and-forget.
			firstErr = err
		}
	}

	if book.Open() && book.Entry == 0 {
		if px, ok := e.gw.LastPrice(ctx, book.Symbol); ok {
			book.Entry = px
			e.log.Info().Str("sym", book.Symbol).Float64("entry", px).Str("side", string(book.Side)).Msg("entered position")
		}
	}
	e.book = book
	return firstErr
}

// mmrTick performs one iteration of the multi-stock strategy: refresh the
// index once, then walk the universe sequentially with a pacing sleep
// between symbols to respect broker rate limits.
func (e *Engine) mmrTick(ctx context.Context) error {
	now := e.now()
	from, to, _ := e.historyRange()

	index, ok := e.gw.History(ctx, e.cfg.MMR.IndexSymbol, e.cfg.MMR.Resolution, from, to)
	if !ok {
		return fmt.Errorf("index history unavailable: %w", errNoData)
	}

	pacing := time.Duration(e.cfg.Strategy.PacingMs) * time.Millisecond
	var firstErr error
	for i, sym := range e.cfg.MMR.Stocks {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pacing):
			}
		}

		if err := e.mmrSymbolTick(ctx, sym, index, now, from, to); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (e *Engine) mmrSymbolTick(ctx context.Context, sym string, index []market.Candle, now, from, to time.Time) error {
	if pos, held := e.mmr.Position(sym); held {
		ltp, ok := e.gw.LastPrice(ctx, sym)
		if !ok {
			// No price this tick; square-off still applies next time around.
			return nil
		}
		reason, exit := DecideMMRExit(pos, now, ltp, e.cfg.MMR.SquareOff)
		if !exit {
			return nil
		}
		e.log.Info().Str("sym", sym).Str("reason", reason).Float64("px", ltp).Msg("closing position")
		err := e.exec.Submit(ctx, ExitOrder(pos))
		e.mmr.Close(sym)
		return err
	}

	if e.mmr.Budget().Exhausted() {
		return nil
	}

	candles, ok := e.gw.History(ctx, sym, e.cfg.MMR.Resolution, from, to)
	if !ok {
		return nil
	}
	assessment := e.mmrStrat.Evaluate(candles, index)
	if assessment.Signal == signal.None {
		return nil
	}
	metrics.SignalsTotal.WithLabelValues(e.mmrStrat.Name(), string(assessment.Signal)).Inc()

	pos, ok := SizeMMREntry(sym, assessment, e.cfg.MMR)
	if !ok || !e.mmr.CanOpen(pos.Capital) {
		return nil
	}

	e.log.Info().Str("sym", sym).Str("side", string(pos.Side)).Int("qty", pos.Qty).Float64("entry", pos.Entry).Float64("stop", pos.Stop).Float64("target", pos.Target).Msg("opening position")
	err := e.exec.Submit(ctx, EntryOrder(pos))
	if !e.mmr.Open(pos) {
		e.log.Error().Str("sym", sym).Msg("book rejected position after order submit")
	}
	return err
}
