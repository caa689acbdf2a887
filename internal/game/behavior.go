package game

import (
	"math"

	"arena-survival/internal/game/mathx"
)

// behaviorBuckets groups the active enemies by tag once per tick so per-tag
// constants are resolved once per bucket instead of once per enemy.
type behaviorBuckets struct {
	lists [behaviorCount][]*Enemy
}

// rebucket clears every bucket (keeping capacity) and refills it.
func (b *behaviorBuckets) rebucket(enemies []*Enemy) {
	for i := range b.lists {
		b.lists[i] = b.lists[i][:0]
	}
	for _, e := range enemies {
		if e.dead && (e.Boss == nil || e.Boss.DefeatTimer <= 0) {
			continue
		}
		tag := e.Behavior
		if tag >= behaviorCount {
			tag = BehaviorChase
		}
		b.lists[tag] = append(b.lists[tag], e)
	}
}

// count returns the bucket size for a tag.
func (b *behaviorBuckets) count(tag Behavior) int {
	return len(b.lists[tag])
}

// updateBehaviors re-buckets then runs every tag's state machine.
// Re-bucketing must finish before any movement.
func (s *Simulation) updateBehaviors() {
	st := s.st
	st.buckets.rebucket(st.Enemies)

	target := st.Player.Pos
	eb := &s.bal.Enemies

	for _, e := range st.buckets.lists[BehaviorChase] {
		dir, dist := mathx.Direction(e.Pos, target)
		s.move(e, dir, dist, e.Speed)
	}

	if st.buckets.count(BehaviorDodge) > 0 {
		s.collectThreats()
		r2 := eb.DodgeRadius * eb.DodgeRadius
		weight := eb.DodgeWeight * r2
		for _, e := range st.buckets.lists[BehaviorDodge] {
			dir, dist := mathx.Direction(e.Pos, target)
			var push mathx.Vec2
			for _, t := range st.threats {
				d2 := mathx.DistSq(e.Pos, t)
				if d2 >= r2 || d2 == 0 {
					continue
				}
				away, _ := mathx.Direction(t, e.Pos)
				push = push.Add(away.Scale(weight / d2))
			}
			s.move(e, dir.Add(push).Normalize(), dist, e.Speed)
		}
	}

	splitAt := eb.TankSplitFraction
	for _, e := range st.buckets.lists[BehaviorTank] {
		dir, dist := mathx.Direction(e.Pos, target)
		s.move(e, dir, dist, e.Speed)
		if !e.split && !e.dead && e.Health <= e.MaxHealth*splitAt {
			e.split = true
			s.spawnMinions(e, eb.TankMinionCount)
		}
	}

	orbit := eb.FlyOrbitRadius
	for _, e := range st.buckets.lists[BehaviorFly] {
		dir, dist := mathx.Direction(e.Pos, target)
		if dist > orbit {
			s.move(e, dir, dist, e.Speed)
			continue
		}
		// Inside the orbit: circle the player instead of closing in.
		s.move(e, dir.Perp(), math.Inf(1), e.Speed)
	}

	for _, e := range st.buckets.lists[BehaviorTeleport] {
		dir, dist := mathx.Direction(e.Pos, target)
		s.move(e, dir, dist, e.Speed*0.5)
		if e.Cooldown > 0 {
			e.Cooldown--
		}
		if e.Cooldown <= 0 && dist > eb.TeleportMinDistance {
			s.teleport(e, target, eb.TeleportRange)
			e.Cooldown = eb.TeleportCooldownTicks
		}
	}

	for _, e := range st.buckets.lists[BehaviorBoss] {
		s.updateBoss(e)
	}
}

// move advances e along dir, applying its variant modifier. It never steps
// past the target when dist is finite.
func (s *Simulation) move(e *Enemy, dir mathx.Vec2, dist, speed float64) {
	e.Age++
	eb := &s.bal.Enemies

	switch e.Variant.Modifier {
	case ModZigzag:
		weave := mathx.Sin(float64(e.Age)*eb.ZigzagFrequency) * eb.ZigzagAmplitude
		dir = dir.Add(dir.Perp().Scale(weave)).Normalize()
	case ModSurge:
		if eb.SurgePeriodTicks > 0 && e.Age%eb.SurgePeriodTicks < eb.SurgeTicks {
			speed *= eb.SurgeMult
		}
	}

	step := speed
	if step > dist {
		step = dist
	}
	e.Pos = e.Pos.Add(dir.Scale(step))
}

// collectThreats snapshots player-owned projectile positions for the dodge
// bucket.
func (s *Simulation) collectThreats() {
	st := s.st
	st.threats = st.threats[:0]
	for _, p := range st.Projectiles {
		if p.Active() && p.Owner == OwnerPlayer {
			st.threats = append(st.threats, p.Pos)
		}
	}
}

// spawnMinions surrounds a tank with small chasers.
func (s *Simulation) spawnMinions(parent *Enemy, n int) {
	if n <= 0 {
		return
	}
	step := 2 * math.Pi / float64(n)
	for i := 0; i < n; i++ {
		pos := parent.Pos.Add(mathx.FromAngle(step * float64(i)).Scale(parent.radius() + 10))
		m := s.newEnemy(BehaviorChase, minionVariant, pos)
		m.Radius = s.bal.Enemies.Radius * 0.6
		s.addEnemy(m)
	}
	s.spawnBurst(parent.Pos, 10, parent.Variant.Color, 3)
}

// teleport moves e to a random point at rng from target, with bursts at
// both ends.
func (s *Simulation) teleport(e *Enemy, target mathx.Vec2, rng float64) {
	s.spawnBurst(e.Pos, 10, e.Variant.Color, 3)
	angle := s.st.rng.Float64() * 2 * math.Pi
	e.Pos = target.Add(mathx.FromAngle(angle).Scale(rng))
	s.spawnBurst(e.Pos, 10, e.Variant.Color, 3)
}
