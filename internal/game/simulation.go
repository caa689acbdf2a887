// Package game implements the arena-survival simulation: the fixed-step
// tick, entity systems, adaptive quality and the snapshot hand-off to
// rendering collaborators.
//
// All mutable state is owned by one goroutine (the loop's frame goroutine).
// Other goroutines talk to the simulation through Enqueue and read it
// through published snapshots.
package game

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"arena-survival/internal/config"
	"arena-survival/internal/game/inbox"
	"arena-survival/internal/game/spatial"
	"arena-survival/internal/observability"
)

// metricsEveryTicks throttles gauge updates.
const metricsEveryTicks = 30

// Options configures a Simulation.
type Options struct {
	Sim     config.SimConfig
	Quality config.QualityConfig
	Pools   config.PoolConfig
	Balance config.Balance
	Limits  SnapshotLimits // zero value means DefaultSnapshotLimits
}

// DefaultOptions returns the built-in configuration.
func DefaultOptions() Options {
	return Options{
		Sim:     config.DefaultSim(),
		Quality: config.DefaultQuality(),
		Pools:   config.DefaultPools(),
		Balance: config.DefaultBalance(),
		Limits:  DefaultSnapshotLimits,
	}
}

// Simulation owns the run state and advances it one fixed step at a time.
type Simulation struct {
	cfg      config.SimConfig
	bal      config.Balance
	tickRate int
	autoPick bool

	st        *State
	quality   *QualityController
	snapshots *SnapshotPool
	culler    *spatial.Culler

	inbox  *inbox.Queue[Command]
	cmdBuf []Command

	events    *EventLog
	callbacks Callbacks
	log       zerolog.Logger
}

// NewSimulation builds a simulation and starts the first run.
func NewSimulation(opts Options, logger zerolog.Logger) *Simulation {
	if opts.Sim.TickRate <= 0 {
		opts.Sim.TickRate = 60
	}
	if opts.Limits == (SnapshotLimits{}) {
		opts.Limits = DefaultSnapshotLimits
	}

	s := &Simulation{
		cfg:       opts.Sim,
		bal:       opts.Balance,
		tickRate:  opts.Sim.TickRate,
		autoPick:  opts.Sim.AutoPickUpgrades,
		st:        newState(opts.Pools, opts.Balance.Orbs),
		quality:   NewQualityController(opts.Quality),
		snapshots: NewSnapshotPool(opts.Limits),
		culler:    spatial.NewCuller(),
		inbox:     inbox.New[Command](CommandQueueSize),
		cmdBuf:    make([]Command, CommandQueueSize),
		events:    NewEventLog(),
		log:       logger.With().Str("component", "sim").Logger(),
	}
	s.quality.Subscribe(s.onQualityChange)
	s.Reset()
	return s
}

// Reset starts a new run: every pool slot inactive, lists empty, player,
// camera and quality back to defaults, fresh run id. Loop goroutine only;
// other goroutines enqueue CmdReset.
func (s *Simulation) Reset() {
	seed := s.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	runID := uuid.NewString()

	s.st.reset(runID, seed, s.bal.Player.MaxHealth,
		float64(s.cfg.ViewportWidth), float64(s.cfg.ViewportHeight))
	s.quality.Reset()

	s.emitRunStart()
	s.log.Info().Str("run", runID).Int64("seed", seed).Msg("🎮 Run started")
}

// Tick advances the simulation by exactly one fixed step. It does nothing
// while paused, awaiting an upgrade choice or after game over.
func (s *Simulation) Tick() {
	st := s.st
	if s.Paused() {
		return
	}
	start := time.Now()
	st.Tick++

	s.updatePlayer()
	s.updateWeapons()
	s.spawnEnemies()
	s.updateBehaviors()
	s.rebuildGrid()
	s.updateProjectiles()
	s.updatePickups()
	s.resolveCollisions()
	s.checkLevelUps()

	st.Camera.Follow(st.Player.Pos)
	st.Camera.Update(st.Tick)
	s.updateEffects()
	s.quality.Sample()

	if st.Tick%metricsEveryTicks == 0 {
		s.recordMetrics()
	}
	observability.RecordTick(time.Since(start))
}

// Paused reports whether ticks are currently suspended.
func (s *Simulation) Paused() bool {
	st := s.st
	return st.paused || st.awaitingChoice || st.gameOver
}

// BeginFrame applies queued commands. Called by the loop at the frame
// boundary, before any tick of the frame.
func (s *Simulation) BeginFrame() {
	n := s.inbox.DrainTo(s.cmdBuf)
	for i := 0; i < n; i++ {
		s.apply(s.cmdBuf[i])
		s.cmdBuf[i] = Command{}
	}
}

func (s *Simulation) apply(c Command) {
	st := s.st
	switch c.Kind {
	case CmdInput:
		dash := st.input.Dash || c.Input.Dash
		st.input = c.Input
		st.input.Dash = dash
	case CmdPause:
		if !st.paused {
			st.paused = true
			s.log.Info().Msg("⏸️ Paused")
		}
	case CmdResume:
		if st.paused {
			st.paused = false
			s.log.Info().Msg("▶️ Resumed")
		}
	case CmdReset:
		s.Reset()
	case CmdSetQuality:
		s.SetQualityLevel(c.Value)
	case CmdChooseUpgrade:
		if err := s.chooseUpgrade(c.Value); err != nil {
			s.log.Warn().Err(err).Msg("⚠️ Upgrade choice rejected")
		}
	case CmdSpawnBoss:
		if !st.bossAlive && !st.gameOver {
			s.spawnBoss()
		}
	case CmdSetAutoPick:
		s.autoPick = c.Flag
		for s.autoPick && st.awaitingChoice {
			if err := s.chooseUpgrade(0); err != nil {
				break
			}
		}
	case CmdSetSpawning:
		st.spawningDisabled = !c.Flag
		s.log.Info().Bool("spawning", c.Flag).Msg("🧪 Spawner toggled")
	default:
		s.log.Warn().Uint8("kind", uint8(c.Kind)).Msg("⚠️ Unknown command")
	}
}

// SetQualityLevel forces a quality level (clamped to 1..5). Loop goroutine
// only; other goroutines enqueue CmdSetQuality.
func (s *Simulation) SetQualityLevel(level int) {
	s.quality.SetLevel(level)
}

// ReportFPS hands the measured frame rate to the quality controller.
func (s *Simulation) ReportFPS(fps float64) {
	s.quality.ReportFPS(fps)
}

func (s *Simulation) onQualityChange(level int, settings QualitySettings, direction string) {
	s.culler.SetLODScale(lodScale(level))
	observability.SetQuality(level, direction)
	if direction == "" {
		return
	}
	s.events.EmitSimple(EventTypeQualityChange, s.st.Tick, "quality",
		QualityPayload{Level: level, Direction: direction})
	s.log.Info().Int("level", level).Str("direction", direction).
		Float64("particles", settings.ParticleMult).Msg("🎚️ Quality changed")
}

// Idle runs housekeeping until deadline: pool compaction and trimming
// trails left longer than the current quality allows. Loop goroutine only.
func (s *Simulation) Idle(deadline time.Time) {
	st := s.st

	limit := s.quality.Settings().TrailLength
	for _, p := range st.Projectiles {
		p.trimTrail(limit)
	}

	if n := st.projectilePool.Compact(); n > 0 {
		observability.AddPoolCompacted("projectile", n)
	}
	if time.Now().After(deadline) {
		return
	}
	if n := st.particlePool.Compact(); n > 0 {
		observability.AddPoolCompacted("particle", n)
	}
	for k := OrbKind(0); k < orbKindCount; k++ {
		if time.Now().After(deadline) {
			return
		}
		if n := st.orbPools[k].Compact(); n > 0 {
			observability.AddPoolCompacted(k.String(), n)
		}
	}
}

func (s *Simulation) recordMetrics() {
	st := s.st
	observability.SetEntityCount("enemy", len(st.Enemies))
	observability.SetEntityCount("projectile", len(st.Projectiles))
	observability.SetEntityCount("orb", st.orbCount())
	observability.SetEntityCount("particle", len(st.Particles))

	ps := st.projectilePool.Stats()
	observability.SetPoolStats("projectile", ps.Len, ps.Active)
	ps = st.particlePool.Stats()
	observability.SetPoolStats("particle", ps.Len, ps.Active)
	for k := OrbKind(0); k < orbKindCount; k++ {
		ps = st.orbPools[k].Stats()
		observability.SetPoolStats(k.String(), ps.Len, ps.Active)
	}
}

// =============================================================================
// CROSS-GOROUTINE CONTROL
// =============================================================================

// Enqueue queues a command for the next frame boundary. Safe for concurrent
// use.
func (s *Simulation) Enqueue(c Command) error {
	if !s.inbox.TryPush(c) {
		observability.IncCommandsDropped()
		return ErrCommandQueueFull
	}
	return nil
}

// SetInput queues the latest movement intent.
func (s *Simulation) SetInput(in Input) error {
	return s.Enqueue(Command{Kind: CmdInput, Input: in})
}

// Pause queues a pause. Pausing twice is the same as pausing once.
func (s *Simulation) Pause() error { return s.Enqueue(Command{Kind: CmdPause}) }

// Resume queues a resume.
func (s *Simulation) Resume() error { return s.Enqueue(Command{Kind: CmdResume}) }

// RequestReset queues a new run.
func (s *Simulation) RequestReset() error { return s.Enqueue(Command{Kind: CmdReset}) }

// RequestQuality queues a quality override.
func (s *Simulation) RequestQuality(level int) error {
	return s.Enqueue(Command{Kind: CmdSetQuality, Value: level})
}

// ChooseUpgrade queues the pick of a pending upgrade offer by index.
func (s *Simulation) ChooseUpgrade(index int) error {
	return s.Enqueue(Command{Kind: CmdChooseUpgrade, Value: index})
}

// SetCallbacks installs the presentation hooks. Call before the loop starts.
func (s *Simulation) SetCallbacks(cb Callbacks) {
	s.callbacks = cb
}

// StartEventLog begins writing run events to path. Call before the loop
// starts.
func (s *Simulation) StartEventLog(path string) error {
	if s.events.Running() {
		return nil
	}
	s.events = NewEventLog()
	if err := s.events.Start(path); err != nil {
		return err
	}
	// The current run started before the log was running.
	s.emitRunStart()
	return nil
}

func (s *Simulation) emitRunStart() {
	s.events.EmitSimple(EventTypeRunStart, s.st.Tick, "sim", RunStartPayload{RunID: s.st.RunID, Seed: s.st.Seed})
}

// StopEventLog flushes and closes the event log.
func (s *Simulation) StopEventLog() {
	s.events.Stop()
}

// EventLogStats returns the event log counters. Safe for concurrent use.
func (s *Simulation) EventLogStats() EventLogStats {
	return s.events.Stats()
}

// TickRate returns the configured logical tick rate.
func (s *Simulation) TickRate() int { return s.tickRate }

// =============================================================================
// SNAPSHOT ACCESSORS (safe for concurrent use)
// =============================================================================

// Snapshot returns a private copy of the latest published snapshot, or nil
// before the first frame.
func (s *Simulation) Snapshot() *Snapshot {
	var out *Snapshot
	s.snapshots.View(func(snap *Snapshot) { out = snap.Clone() })
	return out
}

// ViewSnapshot runs fn against the latest snapshot without copying. fn must
// not retain the snapshot or its slices.
func (s *Simulation) ViewSnapshot(fn func(*Snapshot)) bool {
	return s.snapshots.View(fn)
}

// PlayerStats returns the HUD view of the player.
func (s *Simulation) PlayerStats() PlayerStats {
	var out PlayerStats
	s.snapshots.View(func(snap *Snapshot) { out = snap.Player })
	return out
}

// WeaponStates returns the owned weapons in slot order.
func (s *Simulation) WeaponStates() []WeaponState {
	var out []WeaponState
	s.snapshots.View(func(snap *Snapshot) { out = append(out, snap.Weapons...) })
	return out
}

// PassiveStates returns the owned passives.
func (s *Simulation) PassiveStates() []PassiveState {
	var out []PassiveState
	s.snapshots.View(func(snap *Snapshot) { out = append(out, snap.Passives...) })
	return out
}

// Enemies returns the enemies in the latest snapshot.
func (s *Simulation) Enemies() []EnemyView {
	var out []EnemyView
	s.snapshots.View(func(snap *Snapshot) { out = append(out, snap.Enemies...) })
	return out
}

// Projectiles returns the projectiles in the latest snapshot.
func (s *Simulation) Projectiles() []ProjectileView {
	var out []ProjectileView
	s.snapshots.View(func(snap *Snapshot) { out = append(out, snap.Projectiles...) })
	return out
}

// Orbs returns the pickups in the latest snapshot.
func (s *Simulation) Orbs() []OrbView {
	var out []OrbView
	s.snapshots.View(func(snap *Snapshot) { out = append(out, snap.Orbs...) })
	return out
}

// Particles returns the visible particles in the latest snapshot.
func (s *Simulation) Particles() []ParticleView {
	var out []ParticleView
	s.snapshots.View(func(snap *Snapshot) { out = append(out, snap.Particles...) })
	return out
}

// Quality returns the published quality level and settings.
func (s *Simulation) Quality() (int, QualitySettings) {
	level, settings := 0, QualitySettings{}
	s.snapshots.View(func(snap *Snapshot) {
		level, settings = snap.Quality, snap.QualitySettings
	})
	return level, settings
}

// =============================================================================
// SNAPSHOT PRODUCTION
// =============================================================================

// Render publishes an immutable snapshot of the current state, culled to the
// camera. Called once per frame after ticking; skipped when every free slot
// is pinned by readers.
func (s *Simulation) Render() {
	snap := s.snapshots.AcquireWrite()
	if snap == nil {
		return
	}
	s.fillSnapshot(snap)
	s.snapshots.PublishWrite()
}

func (s *Simulation) fillSnapshot(snap *Snapshot) {
	st := s.st
	limits := s.snapshots.Limits()
	settings := s.quality.Settings()

	top := st.Camera.TopLeft()
	s.culler.SetView(top.X, top.Y, st.Camera.Width, st.Camera.Height)

	snap.Tick = st.Tick
	snap.RunID = st.RunID
	snap.Camera = CameraView{X: top.X, Y: top.Y, Width: st.Camera.Width, Height: st.Camera.Height}
	shake := st.Camera.Shake()
	snap.Shake = ShakeSnapshot{OffsetX: shake.OffsetX, OffsetY: shake.OffsetY, Intensity: shake.Intensity}
	snap.Quality = s.quality.Level()
	snap.QualitySettings = settings
	snap.FPS = s.quality.FPS()
	snap.Paused = st.paused
	snap.AwaitingChoice = st.awaitingChoice
	snap.Offers = append(snap.Offers, st.Offers...)
	snap.GameOver = st.gameOver
	snap.EnemyCount = len(st.Enemies)
	snap.ProjectileCount = len(st.Projectiles)

	p := &st.Player
	snap.Player = PlayerStats{
		X:            p.Pos.X,
		Y:            p.Pos.Y,
		FacingX:      p.Facing.X,
		FacingY:      p.Facing.Y,
		Health:       p.Health,
		MaxHealth:    p.MaxHealth,
		Level:        p.Level,
		XP:           p.XP,
		XPToNext:     s.xpToNext(p.Level),
		Invulnerable: p.Combat.Invulnerable(),
		Dashing:      p.Combat.Dashing,
		DashCooldown: p.Combat.DashCooldown,
		Dead:         p.Dead,
		Kills:        st.Kills,
		BossKills:    st.BossKills,
		Survived:     float64(st.Tick) / float64(s.tickRate),
	}
	for _, w := range p.Weapons {
		snap.Weapons = append(snap.Weapons, w.state(st.DamageByWeapon[w.Kind]))
	}
	snap.Passives = p.Passives.appendStates(snap.Passives)

	for _, e := range st.Enemies {
		if len(snap.Enemies) >= limits.MaxEnemies {
			break
		}
		class := spatial.ClassEnemy
		v := EnemyView{
			ID:        e.ID,
			X:         e.Pos.X,
			Y:         e.Pos.Y,
			Radius:    e.radius(),
			Health:    math.Max(e.Health, 0),
			MaxHealth: e.MaxHealth,
			Behavior:  e.Behavior,
			Shape:     e.Variant.Shape,
			Color:     e.Variant.Color,
		}
		if e.Boss != nil {
			class = spatial.ClassBoss
			v.Boss = true
			v.Phase = e.Boss.Phase
			v.Dash = e.Boss.Dash
			v.Defeated = e.dead
		}
		v.Visible = s.culler.Visible(class, v.X, v.Y, v.Radius)
		snap.Enemies = append(snap.Enemies, v)
	}

	for _, pr := range st.Projectiles {
		if len(snap.Projectiles) >= limits.MaxProjectiles {
			break
		}
		v := ProjectileView{
			X:        pr.Pos.X,
			Y:        pr.Pos.Y,
			Radius:   pr.Radius,
			Rotation: math.Atan2(pr.Vel.Y, pr.Vel.X),
			Kind:     pr.Kind,
			Owner:    pr.Owner,
			Color:    pr.Color,
			Visible:  s.culler.Visible(spatial.ClassProjectile, pr.Pos.X, pr.Pos.Y, pr.Radius),
		}
		n := pr.TrailPoints(&v.Trail)
		if n > settings.TrailLength {
			n = settings.TrailLength
		}
		v.TrailLen = n
		snap.Projectiles = append(snap.Projectiles, v)
	}

	for k := OrbKind(0); k < orbKindCount; k++ {
		for _, o := range st.Orbs[k] {
			if len(snap.Orbs) >= limits.MaxOrbs {
				break
			}
			snap.Orbs = append(snap.Orbs, OrbView{
				Kind:    k,
				X:       o.Pos.X,
				Y:       o.Pos.Y,
				Glow:    o.Glow,
				Hint:    o.Hint,
				Visible: s.culler.Visible(spatial.ClassOrb, o.Pos.X, o.Pos.Y, 6),
			})
		}
	}

	// Cosmetic entities are only carried when visible.
	for _, pt := range st.Particles {
		if len(snap.Particles) >= limits.MaxParticles {
			break
		}
		if !s.culler.Visible(spatial.ClassParticle, pt.Pos.X, pt.Pos.Y, pt.Size) {
			continue
		}
		snap.Particles = append(snap.Particles, ParticleView{
			X: pt.Pos.X, Y: pt.Pos.Y, Size: pt.Size, Color: pt.Color, Alpha: pt.Alpha,
		})
	}
	for i := range st.Explosions {
		ex := &st.Explosions[i]
		if len(snap.Explosions) >= limits.MaxExplosions {
			break
		}
		if !s.culler.Visible(spatial.ClassParticle, ex.Pos.X, ex.Pos.Y, ex.Radius) {
			continue
		}
		snap.Explosions = append(snap.Explosions, ExplosionView{
			X: ex.Pos.X, Y: ex.Pos.Y, Radius: ex.Radius, Color: ex.Color, Alpha: ex.Alpha(),
		})
	}
}
