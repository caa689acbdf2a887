package game

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"arena-survival/internal/config"
	"arena-survival/internal/observability"
)

// ErrLoopRunning is returned by Start when the loop is already running.
var ErrLoopRunning = errors.New("loop already running")

// FrameSource delivers frame timestamps. Stop must release any resources;
// the channel need not be closed.
type FrameSource interface {
	Frames() <-chan time.Time
	Stop()
}

type tickerSource struct {
	t *time.Ticker
}

// NewTickerSource delivers frames at fps using a time.Ticker.
func NewTickerSource(fps int) FrameSource {
	if fps <= 0 {
		fps = 60
	}
	return &tickerSource{t: time.NewTicker(time.Second / time.Duration(fps))}
}

func (s *tickerSource) Frames() <-chan time.Time { return s.t.C }
func (s *tickerSource) Stop()                    { s.t.Stop() }

// Runner is what the loop drives. *Simulation implements it.
type Runner interface {
	BeginFrame()
	Paused() bool
	Tick()
	Render()
	Idle(deadline time.Time)
	ReportFPS(fps float64)
}

// fpsMeter counts delivered frames over a window.
type fpsMeter struct {
	window time.Duration
	start  time.Time
	frames int
	fps    float64
}

// observe records a frame and reports whether a new measurement is ready.
func (m *fpsMeter) observe(now time.Time) bool {
	if m.start.IsZero() {
		m.start = now
		return false
	}
	m.frames++
	elapsed := now.Sub(m.start)
	if elapsed < m.window {
		return false
	}
	m.fps = float64(m.frames) / elapsed.Seconds()
	m.frames = 0
	m.start = now
	return true
}

// Loop is the fixed-timestep scheduler. Delivered frames feed an
// accumulator; each frame runs floor(accumulator / tickInterval) ticks
// (with an epsilon against jitter), then renders once.
type Loop struct {
	runner        Runner
	cfg           config.LoopConfig
	interval      time.Duration
	frameInterval time.Duration
	newSource     func() FrameSource
	log           zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// Frame goroutine state; only touched between Start and Stop by that
	// goroutine, or by Frame callers when the loop is not started.
	accumulator time.Duration
	last        time.Time
	fps         fpsMeter

	frames atomic.Uint64
	ticks  atomic.Uint64
}

// NewLoop creates a loop that drives runner at sim.TickRate ticks per
// second with frames delivered at sim.FrameRate.
func NewLoop(runner Runner, sim config.SimConfig, cfg config.LoopConfig, logger zerolog.Logger) *Loop {
	if cfg.MaxBacklogTicks < 1 {
		cfg.MaxBacklogTicks = 1
	}
	if cfg.FPSWindow <= 0 {
		cfg.FPSWindow = time.Second
	}
	frameRate := sim.FrameRate
	if frameRate <= 0 {
		frameRate = 60
	}
	return &Loop{
		runner:        runner,
		cfg:           cfg,
		interval:      sim.TickInterval(),
		frameInterval: time.Second / time.Duration(frameRate),
		newSource:     func() FrameSource { return NewTickerSource(frameRate) },
		log:           logger.With().Str("component", "loop").Logger(),
		fps:           fpsMeter{window: cfg.FPSWindow},
	}
}

// SetFrameSource replaces the frame source factory. Call before Start.
func (l *Loop) SetFrameSource(fn func() FrameSource) {
	l.newSource = fn
}

// Frame processes one delivered frame at now and returns the ticks run.
func (l *Loop) Frame(now time.Time) int {
	var delta time.Duration
	if !l.last.IsZero() {
		delta = now.Sub(l.last)
		if delta < 0 {
			delta = 0
		}
	}
	l.last = now

	l.runner.BeginFrame()
	if l.fps.observe(now) {
		l.runner.ReportFPS(l.fps.fps)
		observability.SetFPS(l.fps.fps)
	}

	ticks := 0
	if l.runner.Paused() {
		l.accumulator = 0
	} else {
		l.accumulator += delta
		if limit := l.interval * time.Duration(l.cfg.MaxBacklogTicks); l.accumulator > limit {
			l.accumulator = limit
		}
		for l.accumulator+l.cfg.Epsilon >= l.interval {
			l.runner.Tick()
			l.accumulator -= l.interval
			ticks++
			if l.runner.Paused() {
				l.accumulator = 0
				break
			}
		}
		if l.accumulator < 0 {
			l.accumulator = 0
		}
	}

	l.runner.Render()

	l.frames.Add(1)
	l.ticks.Add(uint64(ticks))
	observability.RecordFrame(ticks)
	return ticks
}

// Accumulator returns the unconsumed tick time.
func (l *Loop) Accumulator() time.Duration { return l.accumulator }

// Start arms frame delivery on a new goroutine.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return ErrLoopRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	src := l.newSource()
	l.cancel = cancel
	l.done = done
	l.accumulator = 0
	l.last = time.Time{}

	go l.run(ctx, src, done)
	l.log.Info().Dur("tick", l.interval).Dur("frame", l.frameInterval).Msg("🎮 Loop started")
	return nil
}

func (l *Loop) run(ctx context.Context, src FrameSource, done chan struct{}) {
	defer close(done)
	defer src.Stop()

	frames := src.Frames()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-frames:
			if ctx.Err() != nil {
				return
			}
			l.Frame(now)

			remaining := l.frameInterval - time.Since(now)
			if remaining > l.cfg.IdleBudget {
				l.runner.Idle(time.Now().Add(remaining - l.cfg.IdleBudget))
			}
		}
	}
}

// Stop cancels pending frame delivery, waits for the frame goroutine to
// exit and zeroes the accumulator. Stopping a stopped loop is a no-op.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel == nil {
		return
	}
	l.cancel()
	<-l.done
	l.cancel = nil
	l.done = nil
	l.accumulator = 0
	l.last = time.Time{}
	l.log.Info().Uint64("frames", l.frames.Load()).Uint64("ticks", l.ticks.Load()).Msg("🛑 Loop stopped")
}

// Run starts the loop and blocks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	l.Stop()
	return nil
}

// Stats returns frame and tick counters.
func (l *Loop) Stats() (frames, ticks uint64) {
	return l.frames.Load(), l.ticks.Load()
}
