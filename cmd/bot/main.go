// File: cmd/bot/main.go
// ============================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wti-trading-bot/internal/api"
	"wti-trading-bot/internal/bot"
	"wti-trading-bot/internal/broker"
	"wti-trading-bot/internal/config"
	"wti-trading-bot/internal/logger"
	"wti-trading-bot/internal/metrics"
	"wti-trading-bot/internal/telegram"
	"wti-trading-bot/pkg/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	paperBalance := flag.Float64("paper-balance", 10000, "starting balance in paper mode")
	getKey := flag.String("get", "", "print one config value (dotted key, e.g. risk.max_daily_drawdown) and exit")
	flag.Parse()

	boot := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	loaded, err := config.Load(*configPath, boot)
	if err != nil {
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *getKey != "" {
		v, ok := loaded.Lookup(*getKey)
		if !ok {
			fmt.Fprintf(os.Stderr, "%s: not set in %s\n", *getKey, *configPath)
			os.Exit(1)
		}
		fmt.Println(v)
		return
	}
	cfg := loaded.Config

	log, closer, err := logger.Setup(cfg.Logging.Level, cfg.Logging.File, cfg.Logging.Console)
	if err != nil {
		boot.Fatal().Err(err).Msg("failed to set up logging")
	}
	defer closer.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	connector := newConnector(&cfg, *paperBalance, log)
	notifier := telegram.NewNotifier(cfg.Telegram, log)

	b := bot.New(&cfg, bot.Options{
		Connector: connector,
		Notifier:  notifier,
		Metrics:   m,
		Logger:    log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := b.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MetaTrader 5")
	}

	var server *api.Server
	if cfg.API.Enabled {
		server = api.NewServer(cfg.API, b, reg, log)
		go func() {
			if err := server.Start(); err != nil {
				log.Error().Err(err).Msg("API server stopped")
			}
		}()
	}

	if err := b.Run(ctx); err != nil {
		log.Error().Err(err).Msg("main loop stopped with error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("API shutdown")
		}
	}
	if err := b.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("terminal disconnect")
	}
}

// newConnector picks the terminal for the configured mode. Paper mode still
// reads live bars through the bridge but fills orders in memory.
func newConnector(cfg *types.Config, paperBalance float64, log zerolog.Logger) broker.Connector {
	bridge := broker.NewBridgeConnector(cfg, log)
	if cfg.Bot.Mode == "live" {
		log.Warn().Msg("LIVE mode: orders go to the MetaTrader 5 account")
		return bridge
	}
	log.Info().Float64("balance", paperBalance).Msg("paper mode: orders are simulated")
	return broker.NewPaperConnector(cfg, paperBalance, bridge, log)
}
