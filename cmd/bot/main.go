// Binary bot runs the intraday trading loop for the configured strategy.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"intrabot-go/internal/config"
	"intrabot-go/internal/engine"
	"intrabot-go/internal/execution"
	"intrabot-go/internal/fyers"
	"intrabot-go/internal/market"
	"intrabot-go/internal/metrics"
	"intrabot-go/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to config.yaml")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := util.NewLogger("info")
		fallback.Fatal().Err(err).Str("config", *configPath).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	creds, err := config.LoadCredentials()
	if err != nil {
		log.Fatal().Err(err).Msg("load credentials")
	}

	store := fyers.TokenStore{Path: cfg.App.TokenFile}
	token, ok := store.Load()
	if !ok {
		log.Fatal().Str("path", cfg.App.TokenFile).Msg("access token not found, run the login binary first")
	}

	metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := fyers.NewClient(creds, token, log, fyers.WithBaseURL(cfg.Broker.BaseURL))

	var stream market.LastSource
	if cfg.Broker.Socket.Enabled {
		socket := fyers.NewDataSocket(cfg.Broker.Socket.URL, socketSymbols(cfg), log)
		go func() {
			if err := socket.Run(ctx, nil); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn().Err(err).Msg("data socket stopped")
			}
		}()
		stream = socket
	}

	gateway := market.NewGateway(client, stream, log)
	executor := execution.NewExecutor(client, log)
	bot := engine.New(cfg, gateway, executor, log)

	log.Info().Str("mode", cfg.Strategy.Mode).Int("poll_secs", cfg.Strategy.PollIntervalSecs).Msg("bot started")
	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("trading loop exited")
	}
	log.Info().Msg("shutting down")
}

// socketSymbols lists everything worth streaming for the configured mode:
// underlyings for crossover, index plus the stock universe for mmr.
func socketSymbols(cfg *config.Config) []string {
	if cfg.Strategy.Mode == config.ModeMMR {
		return append([]string{cfg.MMR.IndexSymbol}, cfg.MMR.Stocks...)
	}
	symbols := make([]string, 0, len(cfg.Crossover.Markets))
	for _, m := range cfg.Crossover.Markets {
		symbols = append(symbols, m.Underlying)
	}
	return symbols
}
