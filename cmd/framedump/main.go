// =============================================================================
// ARENA SURVIVAL - FRAME DUMP
// =============================================================================
// Runs a headless simulation as fast as possible and writes rendered PNG
// frames to disk. The player walks a slow circle so the camera moves.
//
// USAGE:
//   go run ./cmd/framedump -ticks 3600 -every 60 -out frames
// =============================================================================
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"arena-survival/internal/config"
	"arena-survival/internal/game"
	"arena-survival/internal/render"
)

func main() {
	ticks := flag.Int("ticks", 3600, "number of logical ticks to simulate")
	every := flag.Int("every", 60, "write a frame every N ticks")
	outDir := flag.String("out", "frames", "output directory")
	seed := flag.Int64("seed", 1, "RNG seed")
	quality := flag.Int("quality", 0, "pin the quality level (1..5); 0 keeps the configured start level")
	flag.Parse()

	godotenv.Load(".env")

	appConfig := config.Load()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()

	if *every < 1 {
		*every = 1
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Fatal().Err(err).Msg("❌ Cannot create output directory")
	}

	balance := appConfig.Balance
	if appConfig.BalancePath != "" {
		if b, err := config.LoadBalance(appConfig.BalancePath); err != nil {
			logger.Warn().Err(err).Msg("⚠️ Balance file rejected, using defaults")
		} else {
			balance = b
		}
	}

	simCfg := appConfig.Sim
	simCfg.Seed = *seed
	simCfg.AutoPickUpgrades = true

	sim := game.NewSimulation(game.Options{
		Sim:     simCfg,
		Quality: appConfig.Quality,
		Pools:   appConfig.Pools,
		Balance: balance,
	}, logger.Level(zerolog.WarnLevel))
	if *quality != 0 {
		sim.SetQualityLevel(*quality)
	}

	renderer := render.New(simCfg.ViewportWidth, simCfg.ViewportHeight)

	start := time.Now()
	written := 0
	for i := 1; i <= *ticks; i++ {
		angle := float64(i) / float64(simCfg.TickRate) * 0.5
		sim.SetInput(game.Input{MoveX: math.Cos(angle), MoveY: math.Sin(angle)})

		sim.BeginFrame()
		if !sim.Paused() {
			sim.Tick()
		}
		sim.Render()

		gameOver := false
		if i%*every == 0 || i == *ticks {
			var err error
			sim.ViewSnapshot(func(snap *game.Snapshot) {
				gameOver = snap.GameOver
				err = writeFrame(renderer, snap, filepath.Join(*outDir, fmt.Sprintf("frame_%06d.png", i)))
			})
			if err != nil {
				logger.Fatal().Err(err).Msg("❌ Frame write failed")
			}
			written++
		} else {
			sim.ViewSnapshot(func(snap *game.Snapshot) { gameOver = snap.GameOver })
		}

		if gameOver {
			logger.Info().Int("tick", i).Msg("💀 Player died, stopping early")
			break
		}
	}

	stats := sim.PlayerStats()
	logger.Info().
		Int("frames", written).
		Int("level", stats.Level).
		Int("kills", stats.Kills).
		Dur("took", time.Since(start)).
		Str("dir", *outDir).
		Msg("✅ Frame dump complete")
}

func writeFrame(r *render.Renderer, snap *game.Snapshot, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.EncodePNG(f, snap); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
