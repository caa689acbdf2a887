package game

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena-survival/internal/game/mathx"
)

// newTestSim builds a seeded simulation with the spawner off so tests
// control every entity in play.
func newTestSim(tb testing.TB, mutate ...func(*Options)) *Simulation {
	tb.Helper()
	opts := DefaultOptions()
	opts.Sim.Seed = 42
	opts.Sim.AutoPickUpgrades = true
	for _, fn := range mutate {
		fn(&opts)
	}
	s := NewSimulation(opts, zerolog.Nop())
	s.st.spawningDisabled = true
	return s
}

// frame mimics one loop frame: drain commands, run n ticks, publish.
func frame(s *Simulation, ticks int) {
	s.BeginFrame()
	for i := 0; i < ticks; i++ {
		s.Tick()
	}
	s.Render()
}

func TestNewSimulationStartsCleanRun(t *testing.T) {
	s := newTestSim(t)
	st := s.st

	assert.NotEmpty(t, st.RunID)
	assert.Equal(t, uint64(0), st.Tick)
	assert.Equal(t, 1, st.Player.Level)
	assert.Equal(t, 100.0, st.Player.Health)
	require.Len(t, st.Player.Weapons, 1)
	assert.Equal(t, WeaponBlaster, st.Player.Weapons[0].Kind)
	assert.Empty(t, st.Enemies)
	assert.Empty(t, st.Projectiles)
	assert.False(t, s.Paused())

	// Nothing is published before the first frame.
	assert.Nil(t, s.Snapshot())
	assert.False(t, s.ViewSnapshot(func(*Snapshot) {}))
}

func TestTickAdvancesCounter(t *testing.T) {
	s := newTestSim(t)
	for i := 0; i < 10; i++ {
		s.Tick()
	}
	assert.Equal(t, uint64(10), s.st.Tick)
}

func TestPauseResumeCommands(t *testing.T) {
	s := newTestSim(t)

	require.NoError(t, s.Pause())
	require.NoError(t, s.Pause())
	frame(s, 5)
	assert.True(t, s.Paused())
	assert.Equal(t, uint64(0), s.st.Tick, "ticks must not run while paused")

	// Pausing twice is the same as pausing once: one resume is enough.
	require.NoError(t, s.Resume())
	frame(s, 5)
	assert.False(t, s.Paused())
	assert.Equal(t, uint64(5), s.st.Tick)

	snap := s.Snapshot()
	require.NotNil(t, snap)
	assert.False(t, snap.Paused)
	assert.Equal(t, uint64(5), snap.Tick)
}

func TestCommandsApplyAtFrameBoundary(t *testing.T) {
	s := newTestSim(t)

	require.NoError(t, s.SetInput(Input{MoveX: 1}))
	s.Tick()
	assert.Equal(t, 0.0, s.st.Player.Pos.X, "queued input is invisible until BeginFrame")

	s.BeginFrame()
	s.Tick()
	assert.InDelta(t, 3.0, s.st.Player.Pos.X, 1e-9)
	assert.Equal(t, mathx.Vec2{X: 1}, s.st.Player.Facing)
}

func TestDashInputIsLatchedWithinFrame(t *testing.T) {
	s := newTestSim(t)

	require.NoError(t, s.SetInput(Input{MoveX: 1, Dash: true}))
	require.NoError(t, s.SetInput(Input{MoveX: 1}))
	s.BeginFrame()
	s.Tick()

	c := s.st.Player.Combat
	assert.True(t, c.Dashing)
	assert.True(t, c.Invulnerable())
	assert.InDelta(t, s.bal.Player.DashSpeed, s.st.Player.Pos.X, 1e-9)

	// The dash request is consumed once.
	s.Tick()
	assert.False(t, s.st.input.Dash)
}

func TestEnqueueReportsFullQueue(t *testing.T) {
	s := newTestSim(t)

	var err error
	for i := 0; i < CommandQueueSize+1 && err == nil; i++ {
		err = s.Enqueue(Command{Kind: CmdInput})
	}
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCommandQueueFull))

	s.BeginFrame()
	assert.NoError(t, s.Enqueue(Command{Kind: CmdInput}))
}

func TestResetReturnsEverythingToPools(t *testing.T) {
	s := newTestSim(t)
	oldRun := s.st.RunID

	for i := 0; i < 20; i++ {
		s.SpawnEnemy(BehaviorChase, mathx.Vec2{X: 300 + float64(i)*10, Y: 40})
	}
	frame(s, 120)
	require.NotEmpty(t, s.st.Projectiles)

	require.NoError(t, s.RequestReset())
	s.BeginFrame()

	st := s.st
	assert.NotEqual(t, oldRun, st.RunID)
	assert.Equal(t, uint64(0), st.Tick)
	assert.Empty(t, st.Enemies)
	assert.Empty(t, st.Projectiles)
	assert.Empty(t, st.Particles)
	assert.Equal(t, 0, st.orbCount())
	assert.Equal(t, 0, st.projectilePool.Active())
	assert.Equal(t, 0, st.particlePool.Active())
	for k := range st.orbPools {
		assert.Equal(t, 0, st.orbPools[k].Active())
	}
	assert.Equal(t, 1, st.Player.Level)
	assert.Equal(t, 0, st.Kills)
}

func TestSpawnerToggle(t *testing.T) {
	s := newTestSim(t)
	frame(s, 200)
	assert.Empty(t, s.st.Enemies)

	require.NoError(t, s.Enqueue(Command{Kind: CmdSetSpawning, Flag: true}))
	frame(s, 200)
	assert.NotEmpty(t, s.st.Enemies)
}

func TestPlayerDeathEndsRun(t *testing.T) {
	s := newTestSim(t)
	died := make(chan PlayerDeathInfo, 1)
	s.SetCallbacks(Callbacks{OnPlayerDeath: func(info PlayerDeathInfo) { died <- info }})

	s.st.Player.Health = 5
	require.True(t, s.damagePlayer(50))

	assert.True(t, s.st.Player.Dead)
	assert.Equal(t, 0.0, s.st.Player.Health)
	assert.True(t, s.Paused())

	select {
	case info := <-died:
		assert.Equal(t, s.st.RunID, info.RunID)
		assert.Equal(t, 1, info.Level)
	case <-time.After(time.Second):
		t.Fatal("OnPlayerDeath was not called")
	}

	tick := s.st.Tick
	s.Tick()
	assert.Equal(t, tick, s.st.Tick)
}

func TestRevivalIsConsumedOnce(t *testing.T) {
	s := newTestSim(t)
	p := &s.st.Player
	require.True(t, p.Passives.Add(PassiveRevival))

	p.Health = 1
	s.damagePlayer(10)
	assert.False(t, p.Dead)
	assert.InDelta(t, p.MaxHealth*s.bal.Player.RevivalFraction, p.Health, 1e-9)

	p.Combat.InvulnTicks = 0
	p.Health = 1
	s.damagePlayer(10)
	assert.True(t, p.Dead)
}

func TestInvulnerabilityBlocksDamage(t *testing.T) {
	s := newTestSim(t)
	p := &s.st.Player

	require.True(t, s.damagePlayer(10))
	assert.Equal(t, 90.0, p.Health)
	assert.Equal(t, s.bal.Player.InvulnTicks, p.Combat.InvulnTicks)

	assert.False(t, s.damagePlayer(10))
	assert.Equal(t, 90.0, p.Health)
}

func TestSnapshotAccessors(t *testing.T) {
	s := newTestSim(t)
	s.SpawnEnemy(BehaviorChase, mathx.Vec2{X: 100})
	s.spawnOrb(OrbXP, mathx.Vec2{X: 200}, 1)
	frame(s, 1)

	stats := s.PlayerStats()
	assert.Equal(t, 1, stats.Level)
	assert.Equal(t, 100.0, stats.MaxHealth)
	assert.Equal(t, 5, stats.XPToNext)

	weapons := s.WeaponStates()
	require.Len(t, weapons, 1)
	assert.Equal(t, "Blaster", weapons[0].Name)

	enemies := s.Enemies()
	require.Len(t, enemies, 1)
	assert.True(t, enemies[0].Visible)

	assert.Len(t, s.Orbs(), 1)
	assert.Empty(t, s.PassiveStates())

	level, settings := s.Quality()
	assert.Equal(t, 3, level)
	assert.Equal(t, SettingsFor(3), settings)
}

func TestRenderCullsOffscreen(t *testing.T) {
	s := newTestSim(t)
	near := s.SpawnEnemy(BehaviorChase, mathx.Vec2{X: 100})
	far := s.SpawnEnemy(BehaviorChase, mathx.Vec2{X: 5000})
	s.spawnBurst(mathx.Vec2{X: 6000}, 10, "#fff", 0)
	s.Render()

	snap := s.Snapshot()
	require.NotNil(t, snap)
	require.Len(t, snap.Enemies, 2, "enemies are carried with a visibility flag")
	for _, v := range snap.Enemies {
		switch v.ID {
		case near.ID:
			assert.True(t, v.Visible)
		case far.ID:
			assert.False(t, v.Visible)
		}
	}
	assert.Empty(t, snap.Particles, "offscreen particles are dropped")
	assert.Equal(t, 2, snap.EnemyCount)
}

func TestSnapshotRespectsLimits(t *testing.T) {
	s := newTestSim(t, func(o *Options) {
		o.Limits = SnapshotLimits{MaxEnemies: 4, MaxProjectiles: 4, MaxOrbs: 4, MaxParticles: 4, MaxExplosions: 2}
	})
	for i := 0; i < 10; i++ {
		s.SpawnEnemy(BehaviorChase, mathx.Vec2{X: float64(i * 10), Y: 200})
		s.spawnOrb(OrbXP, mathx.Vec2{X: float64(i * 10), Y: 250}, 1)
		s.spawnExplosion(mathx.Vec2{X: float64(i * 10)}, 30, "#fff")
	}
	s.spawnBurst(mathx.Vec2{}, 20, "#fff", 1)
	s.Render()

	snap := s.Snapshot()
	require.NotNil(t, snap)
	assert.Len(t, snap.Enemies, 4)
	assert.Len(t, snap.Orbs, 4)
	assert.Len(t, snap.Particles, 4)
	assert.Len(t, snap.Explosions, 2)
	assert.Equal(t, 10, snap.EnemyCount)
}

func TestQualityOverrideCommand(t *testing.T) {
	s := newTestSim(t)
	require.NoError(t, s.RequestQuality(9))
	frame(s, 1)

	level, settings := s.Quality()
	assert.Equal(t, MaxQuality, level)
	assert.Equal(t, SettingsFor(MaxQuality), settings)
}

// Two runs with the same seed must match tick for tick, whatever the quality
// level: cosmetic settings never feed back into gameplay.
func TestDeterministicAcrossQuality(t *testing.T) {
	run := func(quality int) *State {
		s := newTestSim(t, func(o *Options) { o.Sim.Seed = 7 })
		s.st.spawningDisabled = false
		s.SetQualityLevel(quality)
		for i := 0; i < 1500; i++ {
			s.Tick()
		}
		return s.st
	}

	low, high := run(MinQuality), run(MaxQuality)
	require.NotEmpty(t, low.Enemies)
	assert.Equal(t, low.Player.Pos, high.Player.Pos)
	assert.Equal(t, low.Player.Health, high.Player.Health)
	assert.Equal(t, low.Player.Level, high.Player.Level)
	assert.Equal(t, low.Kills, high.Kills)
	require.Equal(t, len(low.Enemies), len(high.Enemies))
	for i := range low.Enemies {
		assert.Equal(t, low.Enemies[i].Pos, high.Enemies[i].Pos)
		assert.Equal(t, low.Enemies[i].Health, high.Enemies[i].Health)
	}
}

func TestEventLogRecordsRun(t *testing.T) {
	s := newTestSim(t)
	path := t.TempDir() + "/events.jsonl"
	require.NoError(t, s.StartEventLog(path))

	s.Reset()
	e := s.SpawnEnemy(BehaviorChase, mathx.Vec2{X: 300})
	s.damageEnemy(e, 1000, WeaponBlaster)
	s.StopEventLog()

	events := readEvents(t, path)
	types := make([]EventType, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	assert.Contains(t, types, EventTypeRunStart)
	assert.Contains(t, types, EventTypeEnemyKilled)

	stats := s.EventLogStats()
	assert.False(t, stats.Running)
	assert.Equal(t, uint64(0), stats.Pending)
}

func TestEventLogRecordsRunInProgress(t *testing.T) {
	s := newTestSim(t)
	path := t.TempDir() + "/events.jsonl"
	runID := s.st.RunID
	require.NoError(t, s.StartEventLog(path))
	s.StopEventLog()

	events := readEvents(t, path)
	require.Len(t, events, 1, "the run started before the log is still recorded")
	assert.Equal(t, EventTypeRunStart, events[0].Type)

	var payload RunStartPayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, runID, payload.RunID)
	assert.Equal(t, int64(42), payload.Seed)
}
