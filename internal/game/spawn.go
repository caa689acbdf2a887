package game

import (
	"math"

	"arena-survival/internal/game/mathx"
)

// behaviorUnlock gates behaviors by time survived (in seconds) with a
// relative spawn weight.
type behaviorUnlock struct {
	Behavior Behavior
	After    float64
	Weight   float64
}

var spawnTable = []behaviorUnlock{
	{Behavior: BehaviorChase, After: 0, Weight: 10},
	{Behavior: BehaviorDodge, After: 30, Weight: 3},
	{Behavior: BehaviorTank, After: 60, Weight: 2},
	{Behavior: BehaviorFly, After: 90, Weight: 3},
	{Behavior: BehaviorTeleport, After: 120, Weight: 2},
}

// spawnInterval shrinks with minutes survived down to the minimum.
func (s *Simulation) spawnInterval() int {
	sb := &s.bal.Spawn
	interval := float64(sb.InitialIntervalTicks) - sb.RampPerMinute*s.st.minutesSurvived(s.tickRate)
	if interval < float64(sb.MinIntervalTicks) {
		return sb.MinIntervalTicks
	}
	return int(interval)
}

// spawnEnemies runs the regular, boss and ambient spawners.
func (s *Simulation) spawnEnemies() {
	st := s.st
	if st.spawningDisabled {
		return
	}
	sb := &s.bal.Spawn

	st.spawnTimer++
	if st.spawnTimer >= s.spawnInterval() {
		st.spawnTimer = 0
		if len(st.Enemies) < sb.SoftCap {
			b := s.pickBehavior()
			variants := variantTable[b]
			v := variants[st.rng.Intn(len(variants))]
			s.addEnemy(s.newEnemy(b, v, s.ringPosition()))
		}
	}

	if !st.bossAlive && sb.BossIntervalTicks > 0 {
		st.bossTimer++
		if st.bossTimer >= sb.BossIntervalTicks {
			st.bossTimer = 0
			s.spawnBoss()
		}
	}

	if sb.AmbientHealTicks > 0 {
		st.ambientTimer++
		if st.ambientTimer >= sb.AmbientHealTicks {
			st.ambientTimer = 0
			if st.rng.Float64() < sb.AmbientHealChance {
				s.spawnOrb(OrbHeal, s.ringPositionAt(sb.RingDistance*0.6), s.bal.Orbs.HealAmount)
			}
		}
	}
}

// pickBehavior rolls a behavior from the unlocked entries.
func (s *Simulation) pickBehavior() Behavior {
	seconds := float64(s.st.Tick) / float64(s.tickRate)
	total := 0.0
	for _, u := range spawnTable {
		if seconds >= u.After {
			total += u.Weight
		}
	}
	roll := s.st.rng.Float64() * total
	for _, u := range spawnTable {
		if seconds < u.After {
			continue
		}
		if roll < u.Weight {
			return u.Behavior
		}
		roll -= u.Weight
	}
	return BehaviorChase
}

// ringPosition is a random point on the spawn ring around the player.
func (s *Simulation) ringPosition() mathx.Vec2 {
	return s.ringPositionAt(s.bal.Spawn.RingDistance)
}

func (s *Simulation) ringPositionAt(distance float64) mathx.Vec2 {
	angle := s.st.rng.Float64() * 2 * math.Pi
	return s.st.Player.Pos.Add(mathx.FromAngle(angle).Scale(distance))
}

// SpawnEnemy places an enemy of the given behavior at pos using the first
// variant for that behavior. It is meant for tooling and tests; regular play
// uses the spawner.
func (s *Simulation) SpawnEnemy(b Behavior, pos mathx.Vec2) *Enemy {
	if b == BehaviorBoss {
		e := s.spawnBoss()
		e.Pos = pos
		return e
	}
	if b >= behaviorCount {
		b = BehaviorChase
	}
	return s.addEnemy(s.newEnemy(b, variantTable[b][0], pos))
}
