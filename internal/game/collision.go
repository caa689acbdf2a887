package game

import (
	"arena-survival/internal/game/mathx"
)

// targetKind is what a projectile is being tested against.
type targetKind uint8

const (
	targetPlayer targetKind = iota
	targetEnemy
)

// canDamage is the ownership guard: player projectiles only hurt enemies and
// enemy projectiles only hurt the player. Every hit test goes through it.
func canDamage(owner Owner, target targetKind) bool {
	switch owner {
	case OwnerPlayer:
		return target == targetEnemy
	case OwnerEnemy:
		return target == targetPlayer
	default:
		return false
	}
}

// falloffDamage is linear explosion falloff: full damage at the centre,
// zero at the radius.
func falloffDamage(damage, dist, radius float64) float64 {
	if radius <= 0 || dist >= radius {
		return 0
	}
	return damage * (1 - dist/radius)
}

// rebuildGrid indexes live enemies for this tick's broad phase. It runs after
// enemy movement, so homing and collision see the same positions.
func (s *Simulation) rebuildGrid() {
	st := s.st
	st.grid.Reset(st.Player.Pos.X, st.Player.Pos.Y)
	for i, e := range st.Enemies {
		if e.targetable() {
			st.grid.Insert(uint32(i), e.Pos.X, e.Pos.Y)
		}
	}
}

// resolveCollisions runs projectile hits, then enemy contact, then removes
// the dead.
func (s *Simulation) resolveCollisions() {
	st := s.st

	for _, p := range st.Projectiles {
		if !p.Active() {
			continue
		}
		switch p.Owner {
		case OwnerEnemy:
			s.projectileVsPlayer(p)
		default:
			s.projectileVsEnemies(p)
		}
	}
	s.compactProjectiles()

	s.contactDamage()
	s.sweepEnemies()
}

// projectileVsPlayer handles enemy-owned projectiles.
func (s *Simulation) projectileVsPlayer(p *Projectile) {
	pl := &s.st.Player
	if pl.Dead || !canDamage(p.Owner, targetPlayer) {
		return
	}
	r := p.Radius + s.bal.Player.Radius
	if mathx.DistSq(p.Pos, pl.Pos) >= r*r {
		return
	}
	// Absorbed on impact even while invulnerable.
	s.damagePlayer(p.Damage)
	s.spawnBurst(p.Pos, 4, p.Color, 2)
	s.st.projectilePool.Release(p)
}

// projectileVsEnemies handles player-owned projectiles: grid broad phase,
// squared-distance narrow phase, one hit per projectile per tick.
func (s *Simulation) projectileVsEnemies(p *Projectile) {
	st := s.st
	if !canDamage(p.Owner, targetEnemy) {
		return
	}

	var hit *Enemy
	for _, id := range st.grid.QueryRadius(p.Pos.X, p.Pos.Y, p.Radius+MaxEnemyRadius) {
		e := st.Enemies[id]
		if !e.targetable() || p.hasHit(e.ID) {
			continue
		}
		r := p.Radius + e.radius()
		if mathx.DistSq(p.Pos, e.Pos) < r*r {
			hit = e
			break
		}
	}
	if hit == nil {
		return
	}

	canHitMore := p.markHit(hit.ID)
	s.damageEnemy(hit, p.Damage, p.Weapon)
	if p.Explosion > 0 {
		s.explode(p.Pos, p.Explosion, p.Damage, p.Weapon, hit.ID)
	}

	switch {
	case !canHitMore:
		st.projectilePool.Release(p)
	case p.ChainLeft > 0:
		if next := s.chainTarget(p); next != nil {
			p.ChainLeft--
			dir, _ := mathx.Direction(p.Pos, next.Pos)
			p.Vel = dir.Scale(p.Speed)
			p.Lifetime += 10
			return
		}
		st.projectilePool.Release(p)
	case p.Pierce > 0:
		p.Pierce--
	default:
		st.projectilePool.Release(p)
	}
}

// chainTarget is the nearest live enemy within ChainRange not hit yet.
func (s *Simulation) chainTarget(p *Projectile) *Enemy {
	st := s.st
	best := ChainRange * ChainRange
	var next *Enemy
	for _, id := range st.grid.QueryRadius(p.Pos.X, p.Pos.Y, ChainRange) {
		e := st.Enemies[id]
		if !e.targetable() || p.hasHit(e.ID) {
			continue
		}
		if d := mathx.DistSq(p.Pos, e.Pos); d < best {
			best = d
			next = e
		}
	}
	return next
}

// explode applies falloff damage to every live enemy in radius except the
// directly hit one.
func (s *Simulation) explode(center mathx.Vec2, radius, damage float64, weapon WeaponKind, skip uint32) {
	st := s.st
	for _, id := range st.grid.QueryRadius(center.X, center.Y, radius+MaxEnemyRadius) {
		e := st.Enemies[id]
		if !e.targetable() || e.ID == skip {
			continue
		}
		dmg := falloffDamage(damage, mathx.Dist(center, e.Pos), radius)
		if dmg > 0 {
			s.damageEnemy(e, dmg, weapon)
		}
	}
	s.spawnImpactExplosion(center, radius, defFor(weapon).Color)
}

// contactDamage applies overlap damage from enemies to the player, gated by
// the invulnerability timer.
func (s *Simulation) contactDamage() {
	st := s.st
	pl := &st.Player
	if pl.Dead || pl.Combat.Invulnerable() {
		return
	}
	pr := s.bal.Player.Radius
	for _, id := range st.grid.QueryRadius(pl.Pos.X, pl.Pos.Y, pr+MaxEnemyRadius) {
		e := st.Enemies[id]
		if !e.targetable() {
			continue
		}
		r := pr + e.radius()
		if mathx.DistSq(pl.Pos, e.Pos) < r*r {
			if s.damagePlayer(e.Damage) {
				return
			}
		}
	}
}
