package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"arena-survival/internal/api"
	"arena-survival/internal/config"
	"arena-survival/internal/game"
	"arena-survival/internal/observability"
	"arena-survival/internal/render"
)

func main() {
	// Load .env file from parent directory, falling back to the current one
	envErr := godotenv.Load("../.env")
	if envErr != nil {
		envErr = godotenv.Load(".env")
	}

	appConfig := config.Load()
	logger := newLogger(appConfig.Log)

	if envErr != nil {
		logger.Info().Msg("💡 No .env file found, using environment variables only")
	}

	logger.Info().Msg("🎮 ================================")
	logger.Info().Msg("🎮  ARENA SURVIVAL - SIM CORE")
	logger.Info().Msg("🎮 ================================")

	balance := appConfig.Balance
	if appConfig.BalancePath != "" {
		b, err := config.LoadBalance(appConfig.BalancePath)
		if err != nil {
			logger.Warn().Err(err).Str("path", appConfig.BalancePath).Msg("⚠️ Balance file rejected, using defaults")
		} else {
			balance = b
			logger.Info().Str("path", appConfig.BalancePath).Msg("✅ Balance loaded")
		}
	}

	sim := game.NewSimulation(game.Options{
		Sim:     appConfig.Sim,
		Quality: appConfig.Quality,
		Pools:   appConfig.Pools,
		Balance: balance,
		Limits:  game.DefaultSnapshotLimits,
	}, logger)

	if appConfig.EventLog.Path != "" {
		if err := sim.StartEventLog(appConfig.EventLog.Path); err != nil {
			logger.Warn().Err(err).Msg("⚠️ Event log disabled")
		} else {
			logger.Info().Str("path", appConfig.EventLog.Path).Msg("📝 Event log")
		}
	}
	defer sim.StopEventLog()

	renderer := render.New(appConfig.Sim.ViewportWidth, appConfig.Sim.ViewportHeight)
	server := api.NewServer(sim, renderer, appConfig.Server, logger)
	sim.SetCallbacks(server.Callbacks())

	loop := game.NewLoop(sim, appConfig.Sim, appConfig.Loop, logger)

	logger.Info().
		Int("tps", appConfig.Sim.TickRate).
		Int("quality", appConfig.Quality.Initial).
		Int("port", appConfig.Server.Port).
		Msg("🎮 Config")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(gctx) })
	g.Go(func() error { return server.Start(gctx) })
	g.Go(func() error { return observability.ServeDebug(gctx, appConfig.Observability, logger) })

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("❌ Shutdown with error")
		sim.StopEventLog()
		os.Exit(1)
	}

	stats := sim.EventLogStats()
	logger.Info().
		Uint64("events", stats.Total).
		Uint64("dropped", stats.Dropped).
		Msg("👋 Shutdown complete")
}

// newLogger builds the process logger from LOG_LEVEL and LOG_PRETTY.
func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if cfg.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
