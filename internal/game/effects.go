package game

import (
	"math"

	"arena-survival/internal/game/mathx"
	"arena-survival/internal/game/pool"
)

// Effect limits. Effects are cosmetic and never influence gameplay.
const (
	MaxExplosions     = 48
	particleDrag      = 0.92
	explosionLifetime = 18
)

// Particle is a pooled cosmetic spark.
type Particle struct {
	pool.Slot

	Pos, Vel mathx.Vec2
	Life     int
	MaxLife  int
	Size     float64
	Color    string
	Alpha    float64
}

func resetParticle(p *Particle) {
	slot := p.Slot
	*p = Particle{Size: 2, Alpha: 1}
	p.Slot = slot
}

// Explosion is an expanding ring; it lives in a small capped list.
type Explosion struct {
	Pos       mathx.Vec2
	Radius    float64
	MaxRadius float64
	Color     string
	Timer     int
}

// update expands then fades the ring.
func (e *Explosion) update() bool {
	e.Timer--
	progress := 1.0 - float64(e.Timer)/explosionLifetime
	e.Radius = e.MaxRadius * (1.0 - (1.0-progress)*(1.0-progress))
	return e.Timer > 0
}

// Alpha returns the current opacity.
func (e *Explosion) Alpha() float64 {
	return float64(e.Timer) / explosionLifetime
}

// scaleCount applies a quality multiplier to an effect count. A positive
// multiplier always yields at least one.
func scaleCount(base int, mult float64) int {
	if base <= 0 || mult <= 0 {
		return 0
	}
	n := int(math.Round(float64(base) * mult))
	if n < 1 {
		n = 1
	}
	return n
}

// spawnBurst emits particles radially from pos, scaled by ParticleMult.
func (s *Simulation) spawnBurst(pos mathx.Vec2, base int, color string, speed float64) {
	st := s.st
	n := scaleCount(base, s.quality.Settings().ParticleMult)
	if n == 0 {
		return
	}
	step := 2 * math.Pi / float64(n)
	for i := 0; i < n; i++ {
		angle := step*float64(i) + st.fx.Float64()*step
		v := speed * (0.5 + st.fx.Float64())

		p := st.particlePool.Acquire()
		p.Pos = pos
		p.Vel = mathx.FromAngle(angle).Scale(v)
		p.MaxLife = 14 + st.fx.Intn(12)
		p.Life = p.MaxLife
		p.Size = 1.5 + st.fx.Float64()*2
		p.Color = color
		st.Particles = append(st.Particles, p)
	}
}

// spawnImpactExplosion keeps roughly ExplosionMult of weapon impact rings.
// The roll uses the cosmetic generator so gameplay stays deterministic.
func (s *Simulation) spawnImpactExplosion(pos mathx.Vec2, radius float64, color string) {
	if s.st.fx.Float64() >= s.quality.Settings().ExplosionMult {
		return
	}
	s.spawnExplosion(pos, radius, color)
}

// spawnExplosion adds a ring; the oldest is dropped when the list is full.
func (s *Simulation) spawnExplosion(pos mathx.Vec2, radius float64, color string) {
	st := s.st
	if s.quality.Settings().ExplosionMult <= 0 {
		return
	}
	ex := Explosion{Pos: pos, Radius: radius * 0.2, MaxRadius: radius, Color: color, Timer: explosionLifetime}
	if len(st.Explosions) >= MaxExplosions {
		copy(st.Explosions, st.Explosions[1:])
		st.Explosions[len(st.Explosions)-1] = ex
		return
	}
	st.Explosions = append(st.Explosions, ex)
}

// updateEffects ages particles and explosions.
func (s *Simulation) updateEffects() {
	st := s.st

	n := 0
	for _, p := range st.Particles {
		p.Life--
		if p.Life <= 0 {
			st.particlePool.Release(p)
			continue
		}
		p.Pos = p.Pos.Add(p.Vel)
		p.Vel = p.Vel.Scale(particleDrag)
		p.Alpha = float64(p.Life) / float64(p.MaxLife)
		st.Particles[n] = p
		n++
	}
	for i := n; i < len(st.Particles); i++ {
		st.Particles[i] = nil
	}
	st.Particles = st.Particles[:n]

	m := 0
	for i := range st.Explosions {
		if st.Explosions[i].update() {
			st.Explosions[m] = st.Explosions[i]
			m++
		}
	}
	st.Explosions = st.Explosions[:m]
}

// ParticleView is an immutable copy of a particle for rendering.
type ParticleView struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Size  float64 `json:"size"`
	Color string  `json:"color"`
	Alpha float64 `json:"alpha"`
}

// ExplosionView is an immutable copy of an explosion for rendering.
type ExplosionView struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	Color  string  `json:"color"`
	Alpha  float64 `json:"alpha"`
}
