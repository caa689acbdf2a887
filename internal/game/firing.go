package game

import (
	"math"

	"arena-survival/internal/game/mathx"
)

// AimRange is how far weapons look for a target before firing along the
// player's facing instead.
const AimRange = 650.0

// effectiveFireRate applies the Haste multiplier; never below one tick.
func (w *Weapon) effectiveFireRate(mult float64) int {
	r := int(math.Round(float64(w.FireRate) * mult))
	if r < 1 {
		r = 1
	}
	return r
}

// advance runs one tick of the fire gate and reports whether the weapon
// fires. The counter climbs every tick; reaching threshold resets it to 0
// and fires, unless a burst weapon is inside its break window, in which case
// the shot is skipped.
func (w *Weapon) advance(threshold int) bool {
	def := defFor(w.Kind)
	if def.Burst {
		w.Burst.Ticks++
		window := def.BurstFire
		if w.Burst.Breaking {
			window = def.BurstBreak
		}
		if w.Burst.Ticks >= window {
			w.Burst.Breaking = !w.Burst.Breaking
			w.Burst.Ticks = 0
		}
	}

	w.Timer++
	if w.Timer < threshold {
		return false
	}
	w.Timer = 0

	if def.Burst && w.Burst.Breaking {
		return false
	}
	return true
}

// updateWeapons is the per-tick fire check.
func (s *Simulation) updateWeapons() {
	p := &s.st.Player
	if p.Dead {
		return
	}

	mult := p.Passives.FireRateMult()
	aimed := false
	var aim mathx.Vec2

	for _, w := range p.Weapons {
		if !w.advance(w.effectiveFireRate(mult)) {
			continue
		}
		if !aimed {
			aim = s.aimDirection()
			aimed = true
		}
		s.fireWeapon(w, aim)
	}
}

// aimDirection points at the nearest live enemy in range, else along the
// player's facing.
func (s *Simulation) aimDirection() mathx.Vec2 {
	p := &s.st.Player
	best := AimRange * AimRange
	var target *Enemy
	for _, e := range s.st.Enemies {
		if !e.targetable() {
			continue
		}
		if d := mathx.DistSq(p.Pos, e.Pos); d < best {
			best = d
			target = e
		}
	}
	if target == nil {
		return p.Facing
	}
	dir, _ := mathx.Direction(p.Pos, target.Pos)
	if dir == (mathx.Vec2{}) {
		return p.Facing
	}
	return dir
}

// fireWeapon spawns the weapon's projectiles fanned around aim.
func (s *Simulation) fireWeapon(w *Weapon, aim mathx.Vec2) {
	def := defFor(w.Kind)
	p := &s.st.Player

	base := math.Atan2(aim.Y, aim.X)
	n := w.ProjectileCount
	if n < 1 {
		n = 1
	}
	mid := float64(n-1) * 0.5
	damage := w.Damage * p.Passives.DamageMult()
	pierce := def.Pierce
	if p.Passives.Has(PassivePiercing) {
		pierce++
	}

	for i := 0; i < n; i++ {
		dir := mathx.FromAngle(base + (float64(i)-mid)*def.Spread)

		pr := s.st.projectilePool.Acquire()
		pr.Owner = OwnerPlayer
		pr.Weapon = w.Kind
		pr.Kind = def.Projectile
		pr.Color = def.Color
		pr.Pos = p.Pos
		pr.Speed = def.Speed
		pr.Vel = dir.Scale(def.Speed)
		pr.Damage = damage
		pr.Lifetime = def.Lifetime
		pr.Radius = def.Radius
		pr.Homing = def.Homing
		pr.Explosion = def.Explosion
		pr.ChainLeft = def.Chain
		pr.Pierce = pierce
		s.st.Projectiles = append(s.st.Projectiles, pr)
	}
	w.Fired++
}
