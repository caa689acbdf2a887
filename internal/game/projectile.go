package game

import (
	"arena-survival/internal/game/mathx"
	"arena-survival/internal/game/pool"
)

// Owner tags who fired a projectile. Ownership decides what it may damage.
type Owner uint8

const (
	OwnerPlayer Owner = iota
	OwnerEnemy
)

// String returns the owner tag.
func (o Owner) String() string {
	if o == OwnerEnemy {
		return "enemy"
	}
	return "player"
}

// ProjectileKind is the visual/behavior tag of a projectile.
type ProjectileKind uint8

const (
	ProjectileBolt ProjectileKind = iota
	ProjectilePellet
	ProjectileMissile
	ProjectileShell
	ProjectileArc
	ProjectileBeam
	ProjectileFlak
	ProjectileEnemyMissile
)

// Projectile system constants
const (
	MaxTrailLength            = 8
	DefaultProjectileRadius   = 5.0
	DefaultProjectileLifetime = 60
	HomingRange               = 420.0
	ChainRange                = 220.0
	ProjectileDespawnDistance = 1600.0
	maxRememberedHits         = 16 // above any weapon's chain + pierce + Piercing
)

// Projectile is a pooled moving attack.
type Projectile struct {
	pool.Slot

	Pos, Vel mathx.Vec2
	Speed    float64

	Damage   float64
	Radius   float64
	Lifetime int

	Kind   ProjectileKind
	Owner  Owner
	Weapon WeaponKind // originating weapon, for damage statistics
	Color  string

	Homing    float64
	Explosion float64
	ChainLeft int
	Pierce    int

	// Enemies already hit, so chains and pierces never re-hit a target.
	// A projectile whose memory is full is spent.
	hits     [maxRememberedHits]uint32
	hitCount int

	// Trail positions (ring buffer)
	trail     [MaxTrailLength]mathx.Vec2
	trailHead int
	trailLen  int
}

// resetProjectile restores pool defaults. The embedded Slot is preserved.
func resetProjectile(p *Projectile) {
	slot := p.Slot
	*p = Projectile{
		Radius:   DefaultProjectileRadius,
		Lifetime: DefaultProjectileLifetime,
	}
	p.Slot = slot
}

func (p *Projectile) hasHit(id uint32) bool {
	for i := 0; i < p.hitCount; i++ {
		if p.hits[i] == id {
			return true
		}
	}
	return false
}

// markHit remembers id and reports whether the projectile can still hit
// another target.
func (p *Projectile) markHit(id uint32) bool {
	if p.hitCount < maxRememberedHits {
		p.hits[p.hitCount] = id
		p.hitCount++
	}
	return p.hitCount < maxRememberedHits
}

// recordTrail pushes the current position; limit is the quality trail length.
func (p *Projectile) recordTrail(limit int) {
	if limit <= 0 {
		p.trailLen = 0
		return
	}
	p.trail[p.trailHead] = p.Pos
	p.trailHead = (p.trailHead + 1) % MaxTrailLength
	if p.trailLen < limit {
		p.trailLen++
	} else if p.trailLen > limit {
		p.trailLen = limit
	}
}

// trimTrail shortens the trail after a quality drop (idle-time work).
func (p *Projectile) trimTrail(limit int) bool {
	if limit < 0 {
		limit = 0
	}
	if p.trailLen <= limit {
		return false
	}
	p.trailLen = limit
	return true
}

// TrailPoints copies the trail into dst (oldest first) and returns the count.
func (p *Projectile) TrailPoints(dst *[MaxTrailLength]mathx.Vec2) int {
	start := p.trailHead - p.trailLen
	if start < 0 {
		start += MaxTrailLength
	}
	for i := 0; i < p.trailLen; i++ {
		dst[i] = p.trail[(start+i)%MaxTrailLength]
	}
	return p.trailLen
}

// steer blends the velocity toward target by the homing strength while
// keeping speed constant.
func (p *Projectile) steer(target mathx.Vec2) {
	dir, dist := mathx.Direction(p.Pos, target)
	if dist == 0 {
		return
	}
	desired := dir.Scale(p.Speed)
	v := p.Vel.Add(desired.Sub(p.Vel).Scale(p.Homing))
	if v.LenSq() == 0 {
		return
	}
	p.Vel = v.Normalize().Scale(p.Speed)
}

// updateProjectiles integrates every projectile, applies homing and releases
// expired ones. Collision is resolved later in the tick.
func (s *Simulation) updateProjectiles() {
	st := s.st
	trailLimit := s.quality.Settings().TrailLength
	playerPos := st.Player.Pos
	despawn := ProjectileDespawnDistance * ProjectileDespawnDistance

	for _, p := range st.Projectiles {
		if !p.Active() {
			continue
		}
		p.recordTrail(trailLimit)

		if p.Homing > 0 {
			if target, ok := s.homingTarget(p); ok {
				p.steer(target)
			}
		}

		p.Pos = p.Pos.Add(p.Vel)
		p.Lifetime--

		if p.Lifetime <= 0 || mathx.DistSq(p.Pos, playerPos) > despawn {
			st.projectilePool.Release(p)
		}
	}
	s.compactProjectiles()
}

// homingTarget finds the nearest owner-compatible target.
func (s *Simulation) homingTarget(p *Projectile) (mathx.Vec2, bool) {
	st := s.st
	if p.Owner == OwnerEnemy {
		if st.Player.Dead {
			return mathx.Vec2{}, false
		}
		return st.Player.Pos, true
	}

	best := HomingRange * HomingRange
	found := false
	var target mathx.Vec2
	for _, id := range st.grid.QueryRadius(p.Pos.X, p.Pos.Y, HomingRange) {
		e := st.Enemies[id]
		if !e.targetable() || !canDamage(p.Owner, targetEnemy) {
			continue
		}
		if d := mathx.DistSq(p.Pos, e.Pos); d < best {
			best = d
			target = e.Pos
			found = true
		}
	}
	return target, found
}

// compactProjectiles drops released projectiles from the in-play list.
// Zero-allocation in-place filtering.
func (s *Simulation) compactProjectiles() {
	list := s.st.Projectiles
	n := 0
	for _, p := range list {
		if p.Active() {
			list[n] = p
			n++
		}
	}
	for i := n; i < len(list); i++ {
		list[i] = nil
	}
	s.st.Projectiles = list[:n]
}

// ProjectileView is an immutable copy of projectile state for rendering.
type ProjectileView struct {
	X        float64                    `json:"x"`
	Y        float64                    `json:"y"`
	Radius   float64                    `json:"radius"`
	Rotation float64                    `json:"rotation"`
	Kind     ProjectileKind             `json:"kind"`
	Owner    Owner                      `json:"owner"`
	Color    string                     `json:"color"`
	Trail    [MaxTrailLength]mathx.Vec2 `json:"trail"`
	TrailLen int                        `json:"trailLen"`
	Visible  bool                       `json:"visible"`
}
