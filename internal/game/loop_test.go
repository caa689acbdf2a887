package game

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena-survival/internal/config"
)

// fakeRunner counts calls; it can pause itself after a number of ticks.
type fakeRunner struct {
	begins, ticks, renders, idles atomic.Int64
	paused                        atomic.Bool
	pauseAt                       int64
	fps                           atomic.Uint64 // milli-fps
}

func (r *fakeRunner) BeginFrame()    { r.begins.Add(1) }
func (r *fakeRunner) Paused() bool   { return r.paused.Load() }
func (r *fakeRunner) Render()        { r.renders.Add(1) }
func (r *fakeRunner) Idle(time.Time) { r.idles.Add(1) }

func (r *fakeRunner) Tick() {
	if n := r.ticks.Add(1); r.pauseAt > 0 && n >= r.pauseAt {
		r.paused.Store(true)
	}
}

func (r *fakeRunner) ReportFPS(fps float64) {
	r.fps.Store(uint64(fps * 1000))
}

type fakeSource struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func newFakeSource() *fakeSource { return &fakeSource{ch: make(chan time.Time)} }

func (s *fakeSource) Frames() <-chan time.Time { return s.ch }
func (s *fakeSource) Stop()                    { s.stopped.Store(true) }

func newTestLoop(r Runner, epsilon time.Duration) *Loop {
	return NewLoop(r,
		config.SimConfig{TickRate: 60, FrameRate: 60},
		config.LoopConfig{MaxBacklogTicks: 5, Epsilon: epsilon, IdleBudget: 4 * time.Millisecond, FPSWindow: time.Second},
		zerolog.Nop())
}

var tickInterval = time.Second / 60

func TestFrameTickCounts(t *testing.T) {
	r := &fakeRunner{}
	l := newTestLoop(r, 0)
	t0 := time.Unix(1000, 0)

	assert.Equal(t, 0, l.Frame(t0), "first frame has no delta")

	now := t0.Add(tickInterval)
	assert.Equal(t, 1, l.Frame(now))

	now = now.Add(time.Second)
	assert.Equal(t, 5, l.Frame(now), "backlog is clamped")
	assert.Zero(t, l.Accumulator())

	now = now.Add(tickInterval / 2)
	assert.Equal(t, 0, l.Frame(now))
	now = now.Add(tickInterval / 2)
	assert.Equal(t, 1, l.Frame(now))

	assert.Equal(t, int64(5), r.renders.Load(), "one render per frame")
	assert.Equal(t, int64(5), r.begins.Load())
	assert.Equal(t, int64(7), r.ticks.Load())
}

func TestFrameEpsilonAbsorbsJitter(t *testing.T) {
	r := &fakeRunner{}
	l := newTestLoop(r, 250*time.Microsecond)
	t0 := time.Unix(1000, 0)
	l.Frame(t0)

	assert.Equal(t, 1, l.Frame(t0.Add(tickInterval-100*time.Microsecond)))
	assert.Zero(t, l.Accumulator(), "a small deficit is not carried")

	strict := newTestLoop(&fakeRunner{}, 0)
	strict.Frame(t0)
	assert.Equal(t, 0, strict.Frame(t0.Add(tickInterval-100*time.Microsecond)))
}

func TestAccumulatorInvariant(t *testing.T) {
	r := &fakeRunner{}
	l := newTestLoop(r, 0)
	rng := rand.New(rand.NewSource(3))

	now := time.Unix(1000, 0)
	l.Frame(now)

	var total time.Duration
	var ticks int
	for i := 0; i < 2000; i++ {
		delta := time.Duration(rng.Int63n(int64(3 * tickInterval)))
		now = now.Add(delta)
		total += delta
		ticks += l.Frame(now)

		acc := l.Accumulator()
		require.Equal(t, total-time.Duration(ticks)*tickInterval, acc)
		require.GreaterOrEqual(t, acc, time.Duration(0))
		require.Less(t, acc, tickInterval)
	}
}

func TestPausedFramesRenderWithoutTicks(t *testing.T) {
	r := &fakeRunner{}
	l := newTestLoop(r, 0)
	t0 := time.Unix(1000, 0)
	l.Frame(t0)
	l.Frame(t0.Add(tickInterval / 2))

	r.paused.Store(true)
	assert.Equal(t, 0, l.Frame(t0.Add(3*tickInterval)))
	assert.Zero(t, l.Accumulator())
	assert.Equal(t, int64(3), r.renders.Load())

	// Resuming does not replay the paused time.
	r.paused.Store(false)
	assert.Equal(t, 0, l.Frame(t0.Add(3*tickInterval+tickInterval/2)))
}

func TestPauseDuringFrameStopsTicking(t *testing.T) {
	r := &fakeRunner{pauseAt: 1}
	l := newTestLoop(r, 0)
	t0 := time.Unix(1000, 0)
	l.Frame(t0)

	assert.Equal(t, 1, l.Frame(t0.Add(4*tickInterval)))
	assert.Zero(t, l.Accumulator())
	assert.Equal(t, int64(2), r.renders.Load())
}

func TestFPSReported(t *testing.T) {
	r := &fakeRunner{}
	l := newTestLoop(r, 0)
	now := time.Unix(1000, 0)

	for i := 0; i < 62; i++ {
		l.Frame(now)
		now = now.Add(tickInterval)
	}
	assert.InDelta(t, 60.0, float64(r.fps.Load())/1000, 0.01)
}

func TestLoopStartStop(t *testing.T) {
	r := &fakeRunner{}
	l := newTestLoop(r, 0)
	src := newFakeSource()
	l.SetFrameSource(func() FrameSource { return src })

	require.NoError(t, l.Start(context.Background()))
	assert.ErrorIs(t, l.Start(context.Background()), ErrLoopRunning)

	for i := 0; i < 3; i++ {
		src.ch <- time.Now()
	}
	require.Eventually(t, func() bool { return r.renders.Load() >= 3 }, time.Second, time.Millisecond)
	assert.Positive(t, r.idles.Load(), "spare frame time runs idle work")

	l.Stop()
	assert.True(t, src.stopped.Load())
	assert.Zero(t, l.Accumulator())
	l.Stop()

	frames, _ := l.Stats()
	assert.Equal(t, uint64(3), frames)

	// Restartable after a stop.
	src = newFakeSource()
	require.NoError(t, l.Start(context.Background()))
	l.Stop()
}

func TestLoopRunReturnsOnCancel(t *testing.T) {
	r := &fakeRunner{}
	l := newTestLoop(r, 0)
	src := newFakeSource()
	l.SetFrameSource(func() FrameSource { return src })

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	src.ch <- time.Now()
	cancel()

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	assert.True(t, src.stopped.Load())
}
