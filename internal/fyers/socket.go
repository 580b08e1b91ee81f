package fyers

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"intrabot-go/internal/metrics"
	"intrabot-go/internal/signal"
)

// DataSocket streams last-traded-price updates over the broker data socket
// and keeps the latest price per symbol. It is optional: when disabled the
// gateway falls back to REST quote polling, and the poll cadence of the
// trading loop is unchanged either way.
type DataSocket struct {
	url     string
	symbols []string
	log     zerolog.Logger

	mu   sync.RWMutex
	last map[string]float64
}

type socketSubscribe struct {
	T       string   `json:"T"`
	Symbols []string `json:"symbols"`
}

type socketUpdate struct {
	Symbol string  `json:"symbol"`
	LTP    float64 `json:"ltp"`
	Tt     int64   `json:"tt"`
}

// NewDataSocket prepares a socket for the given symbols; Run must be called
// to start streaming.
func NewDataSocket(url string, symbols []string, log zerolog.Logger) *DataSocket {
	return &DataSocket{
		url:     url,
		symbols: symbols,
		log:     log,
		last:    make(map[string]float64),
	}
}

// Last returns the most recent streamed price for the symbol, if any.
func (s *DataSocket) Last(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	px, ok := s.last[symbol]
	return px, ok
}

// Run consumes the stream until the context is canceled, reconnecting with
// capped exponential backoff. Ticks are optionally forwarded to out (nil to
// only maintain the cache).
func (s *DataSocket) Run(ctx context.Context, out chan<- signal.Tick) error {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.consume(ctx, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn().Err(err).Msg("data socket disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (s *DataSocket) consume(ctx context.Context, out chan<- signal.Tick) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.log.Info().Strs("symbols", s.symbols).Msg("connected data socket")

	if err := conn.WriteJSON(socketSubscribe{T: "SUB_DATA", Symbols: s.symbols}); err != nil {
		return err
	}

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					s.log.Warn().Err(err).Msg("data socket ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var update socketUpdate
		if err := json.Unmarshal(message, &update); err != nil {
			s.log.Warn().Err(err).Msg("failed to decode socket message")
			continue
		}
		if update.Symbol == "" || update.LTP <= 0 {
			continue
		}

		s.mu.Lock()
		s.last[update.Symbol] = update.LTP
		s.mu.Unlock()
		metrics.QuotesTotal.WithLabelValues(update.Symbol).Inc()

		if out != nil {
			tick := signal.Tick{Symbol: update.Symbol, LTP: update.LTP, Ts: time.Unix(update.Tt, 0)}
			select {
			case out <- tick:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
