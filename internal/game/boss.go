package game

import (
	"math"

	"arena-survival/internal/config"
	"arena-survival/internal/game/mathx"
)

// BossPhase is keyed off health / maxHealth.
type BossPhase uint8

const (
	BossPhase1 BossPhase = iota + 1 // above the first threshold
	BossPhase2                      // between thresholds: faster chase
	BossPhase3                      // below the last threshold: dash cycle
)

// DashState is the phase-3 dash cycle.
type DashState uint8

const (
	DashNone DashState = iota
	DashCooldown
	DashCharging
	DashDashing
)

// AttackPattern selects a missile volley shape.
type AttackPattern uint8

const (
	PatternRing AttackPattern = iota
	PatternFan
	PatternSpiral
	PatternBurst
	patternCount
)

// Boss tuning that is cosmetic or structural rather than balance.
const (
	bossMissileRadius   = 7.0
	bossLeashShake      = 10.0
	bossPhaseShake      = 6.0
	bossDefeatShake     = 8.0
	bossExplosionPeriod = 8
)

// BossState is the boss-only part of an Enemy.
type BossState struct {
	Tier    int
	Phase   BossPhase
	Pattern AttackPattern

	Dash       DashState
	DashTimer  int
	DashTarget mathx.Vec2 // player position snapshotted when the charge starts
	DashDir    mathx.Vec2

	MissileTimer int
	SpiralAngle  float64

	DefeatTimer int
}

// bossPhaseFor maps a health ratio to a phase.
func bossPhaseFor(ratio float64, b *config.BossBalance) BossPhase {
	switch {
	case ratio > b.Phase2Threshold:
		return BossPhase1
	case ratio > b.Phase3Threshold:
		return BossPhase2
	default:
		return BossPhase3
	}
}

// dashCooldownFor shortens the dash cooldown per boss kill down to a floor.
func dashCooldownFor(b *config.BossBalance, bossKills int) int {
	cd := b.DashCooldownTicks - b.DashCooldownPerKill*bossKills
	if cd < b.DashCooldownFloor {
		cd = b.DashCooldownFloor
	}
	return cd
}

// patternForTier gives higher-tier bosses a fixed attack pattern.
func patternForTier(tier int) AttackPattern {
	if tier <= 0 {
		return PatternRing
	}
	return AttackPattern(tier % int(patternCount))
}

// volley describes one missile salvo.
type volley struct {
	Pattern AttackPattern
	Count   int
	Homing  float64
	Color   string
	Spread  float64
}

// volleyFor picks the salvo for a boss. Tier 0 keys it to the health phase,
// higher tiers to their attack pattern. Unknown patterns fall back to a ring.
func volleyFor(b *BossState) volley {
	pattern := b.Pattern
	if b.Tier == 0 {
		switch b.Phase {
		case BossPhase2:
			pattern = PatternFan
		case BossPhase3:
			pattern = PatternSpiral
		default:
			pattern = PatternRing
		}
	}

	switch pattern {
	case PatternFan:
		return volley{Pattern: PatternFan, Count: 5, Homing: 0.02, Color: "#ffa726", Spread: 0.22}
	case PatternSpiral:
		return volley{Pattern: PatternSpiral, Count: 12, Homing: 0.03, Color: "#ab47bc"}
	case PatternBurst:
		return volley{Pattern: PatternBurst, Count: 3, Homing: 0.06, Color: "#26c6da", Spread: 0.1}
	default:
		return volley{Pattern: PatternRing, Count: 10, Homing: 0, Color: "#ef5350"}
	}
}

// spawnBoss places the next boss on the spawn ring.
func (s *Simulation) spawnBoss() *Enemy {
	st := s.st
	bb := &s.bal.Boss
	tier := st.BossKills
	variants := variantTable[BehaviorBoss]
	v := variants[tier%len(variants)]
	sc := s.currentScaling()

	health := bb.Health * v.HealthMult * sc.Health
	st.nextEnemyID++
	e := s.addEnemy(&Enemy{
		ID:        st.nextEnemyID,
		Pos:       s.ringPosition(),
		Radius:    bb.Radius,
		Speed:     bb.Speed * v.SpeedMult * sc.Speed,
		Health:    health,
		MaxHealth: health,
		Damage:    bb.ContactDamage * sc.Damage,
		XPValue:   bb.XPValue,
		Behavior:  BehaviorBoss,
		Variant:   v,
		Boss: &BossState{
			Tier:    tier,
			Phase:   BossPhase1,
			Pattern: patternForTier(tier),
		},
	})

	st.bossAlive = true
	s.events.EmitSimple(EventTypeBossSpawned, st.Tick, "boss",
		BossPayload{Tier: tier, Variant: v.Name, Health: health})
	s.log.Info().Int("tier", tier).Str("variant", v.Name).Float64("health", health).Msg("👹 Boss spawned")
	return e
}

// updateBoss runs the boss state machine for one tick.
func (s *Simulation) updateBoss(e *Enemy) {
	b := e.Boss
	if b == nil {
		dir, dist := mathx.Direction(e.Pos, s.st.Player.Pos)
		s.move(e, dir, dist, e.Speed)
		return
	}
	if e.dead {
		s.updateBossDefeat(e)
		return
	}

	bb := &s.bal.Boss
	s.updateBossPhase(e)

	target := s.st.Player.Pos
	dir, dist := mathx.Direction(e.Pos, target)
	if dist > bb.LeashDistance {
		s.leash(e)
		dir, dist = mathx.Direction(e.Pos, target)
	}

	switch b.Phase {
	case BossPhase3:
		s.updateDash(e, dir, dist)
	case BossPhase2:
		s.move(e, dir, dist, e.Speed*bb.Phase2SpeedMult)
	default:
		s.move(e, dir, dist, e.Speed)
	}

	b.MissileTimer++
	if b.MissileTimer >= bb.MissileIntervalTicks {
		b.MissileTimer = 0
		s.fireVolley(e)
	}
}

// updateBossPhase re-evaluates the phase from current health. Entering
// phase 3 starts the first dash charge immediately.
func (s *Simulation) updateBossPhase(e *Enemy) {
	b := e.Boss
	phase := bossPhaseFor(e.Health/e.MaxHealth, &s.bal.Boss)
	if phase == b.Phase {
		return
	}
	b.Phase = phase
	s.st.Camera.AddShake(bossPhaseShake, false)
	s.events.EmitSimple(EventTypeBossPhase, s.st.Tick, "boss",
		BossPayload{Tier: b.Tier, Variant: e.Variant.Name, Health: e.Health, Phase: int(phase)})

	if phase == BossPhase3 {
		s.startDashCharge(e)
	}
}

func (s *Simulation) startDashCharge(e *Enemy) {
	b := e.Boss
	b.Dash = DashCharging
	b.DashTimer = s.bal.Boss.DashChargeTicks
	b.DashTarget = s.st.Player.Pos
}

// updateDash runs cooldown → charge → dash → cooldown.
func (s *Simulation) updateDash(e *Enemy, dir mathx.Vec2, dist float64) {
	b := e.Boss
	bb := &s.bal.Boss

	switch b.Dash {
	case DashCharging:
		e.Age++
		b.DashTimer--
		if b.DashTimer <= 0 {
			d, _ := mathx.Direction(e.Pos, b.DashTarget)
			if d == (mathx.Vec2{}) {
				d = dir
			}
			b.DashDir = d
			b.Dash = DashDashing
			b.DashTimer = bb.DashTicks
		}

	case DashDashing:
		e.Age++
		e.Pos = e.Pos.Add(b.DashDir.Scale(bb.DashSpeed))
		b.DashTimer--
		if b.DashTimer <= 0 || mathx.DistSq(e.Pos, b.DashTarget) <= bb.DashSpeed*bb.DashSpeed {
			b.Dash = DashCooldown
			b.DashTimer = dashCooldownFor(bb, s.st.BossKills)
		}

	default:
		s.move(e, dir, dist, e.Speed*bb.Phase3SpeedMult)
		b.DashTimer--
		if b.DashTimer <= 0 {
			s.startDashCharge(e)
		}
	}
}

// leash pulls a runaway boss back in front of the player and forces a
// screen shake.
func (s *Simulation) leash(e *Enemy) {
	st := s.st
	b := e.Boss
	p := &st.Player

	bias := p.Facing
	if bias == (mathx.Vec2{}) {
		bias, _ = mathx.Direction(p.Pos, e.Pos)
	}
	angle := math.Atan2(bias.Y, bias.X) + (st.rng.Float64()-0.5)*0.8
	e.Pos = p.Pos.Add(mathx.FromAngle(angle).Scale(s.bal.Boss.LeashReturn))

	if b.Dash == DashDashing || b.Dash == DashCharging {
		b.Dash = DashCooldown
		b.DashTimer = dashCooldownFor(&s.bal.Boss, st.BossKills)
	}

	st.Camera.AddShake(bossLeashShake, true)
	s.spawnBurst(e.Pos, 16, e.Variant.Color, 4)
	s.log.Debug().Uint32("boss", e.ID).Msg("🪢 Boss leashed back into range")
}

// fireVolley spawns one missile salvo.
func (s *Simulation) fireVolley(e *Enemy) {
	st := s.st
	bb := &s.bal.Boss
	v := volleyFor(e.Boss)
	damage := bb.MissileDamage * s.currentScaling().Damage

	aim, _ := mathx.Direction(e.Pos, st.Player.Pos)
	aimAngle := math.Atan2(aim.Y, aim.X)
	mid := float64(v.Count-1) * 0.5
	ring := 2 * math.Pi / float64(v.Count)

	for i := 0; i < v.Count; i++ {
		var angle float64
		switch v.Pattern {
		case PatternRing:
			angle = ring * float64(i)
		case PatternSpiral:
			angle = e.Boss.SpiralAngle + ring*float64(i)
		default:
			angle = aimAngle + (float64(i)-mid)*v.Spread
		}

		pr := st.projectilePool.Acquire()
		pr.Owner = OwnerEnemy
		pr.Weapon = weaponKindCount
		pr.Kind = ProjectileEnemyMissile
		pr.Color = v.Color
		pr.Pos = e.Pos
		pr.Speed = bb.MissileSpeed
		pr.Vel = mathx.FromAngle(angle).Scale(bb.MissileSpeed)
		pr.Damage = damage
		pr.Lifetime = bb.MissileLifetime
		pr.Radius = bossMissileRadius
		pr.Homing = v.Homing
		st.Projectiles = append(st.Projectiles, pr)
	}

	if v.Pattern == PatternSpiral {
		e.Boss.SpiralAngle += 0.35
	}
}

// beginBossDefeat starts the defeat animation. The boss stays in the list,
// inert, until it finishes.
func (s *Simulation) beginBossDefeat(e *Enemy) {
	b := e.Boss
	b.DefeatTimer = s.bal.Boss.DefeatTicks
	if b.DefeatTimer < 1 {
		b.DefeatTimer = 1
	}
	b.Dash = DashNone
	s.st.defeatSequences++
	s.st.Camera.AddShake(bossDefeatShake, true)
	s.log.Info().Uint32("boss", e.ID).Msg("💥 Boss defeat sequence started")
}

func (s *Simulation) updateBossDefeat(e *Enemy) {
	b := e.Boss
	if b.DefeatTimer <= 0 {
		return
	}
	b.DefeatTimer--

	if b.DefeatTimer%bossExplosionPeriod == 0 {
		n := scaleCount(3, s.quality.Settings().ExplosionMult)
		for i := 0; i < n; i++ {
			offset := mathx.FromAngle(s.st.fx.Float64() * 2 * math.Pi).Scale(s.st.fx.Float64() * e.radius())
			s.spawnExplosion(e.Pos.Add(offset), e.radius()*0.8, e.Variant.Color)
		}
	}

	if b.DefeatTimer <= 0 {
		s.finishBossDefeat(e)
	}
}

// finishBossDefeat removes the boss and pays out.
func (s *Simulation) finishBossDefeat(e *Enemy) {
	st := s.st
	s.freezeSpeedScaling()
	st.BossKills++
	st.bossAlive = false

	s.spawnOrb(OrbChest, e.Pos, 0)
	s.spawnOrb(OrbXP, e.Pos.Add(mathx.Vec2{X: 20}), float64(e.XPValue))
	s.spawnExplosion(e.Pos, e.radius()*2, e.Variant.Color)

	if st.defeatSequences > 0 {
		st.defeatSequences--
	}
	if st.defeatSequences == 0 {
		s.releaseDeferredLevelUps()
	}

	info := BossDefeatedInfo{Tier: e.Boss.Tier, Variant: e.Variant.Name, BossKills: st.BossKills, Tick: st.Tick}
	s.events.EmitSimple(EventTypeBossDefeated, st.Tick, "boss",
		BossPayload{Tier: e.Boss.Tier, Variant: e.Variant.Name, Phase: int(e.Boss.Phase)})
	s.log.Info().Int("tier", info.Tier).Int("bossKills", info.BossKills).Msg("🏆 Boss defeated")

	if s.callbacks.OnBossDefeated != nil {
		go s.callbacks.OnBossDefeated(info)
	}
}
