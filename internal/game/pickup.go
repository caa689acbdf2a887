package game

import (
	"math"

	"arena-survival/internal/game/mathx"
	"arena-survival/internal/game/pool"
)

// OrbKind is the pickup class. Each kind has its own pool.
type OrbKind uint8

const (
	OrbXP OrbKind = iota
	OrbHeal
	OrbMagnet
	OrbChest
	orbKindCount
)

// String returns the pool name.
func (k OrbKind) String() string {
	switch k {
	case OrbXP:
		return "xp_orb"
	case OrbHeal:
		return "heal_orb"
	case OrbMagnet:
		return "magnet_orb"
	case OrbChest:
		return "chest_orb"
	default:
		return "orb"
	}
}

// chestLifetime is effectively "never expires".
const chestLifetime = 1 << 30

const (
	glowPulseTicks = 40 // one glow cycle
	glowFadeTicks  = 60 // expiring orbs dim over their last second
)

// orbGlow pulses between 0.5 and 1, starting bright, and fades an expiring
// orb out over its last glowFadeTicks.
func orbGlow(age, lifetime int, expires bool) float64 {
	g := 0.75 + 0.25*math.Cos(2*math.Pi*float64(age)/glowPulseTicks)
	if expires && lifetime < glowFadeTicks {
		g *= float64(lifetime) / glowFadeTicks
	}
	return g
}

// Orb is a pooled pickup.
type Orb struct {
	pool.Slot

	Kind     OrbKind
	Pos      mathx.Vec2
	Value    float64 // XP amount or heal amount; unused for magnet and chest
	Lifetime int

	Hint      bool // proximity hint currently lit
	HintTimer int
	Glow      float64 // cosmetic pulse, 0..1
	age       int
	attracted bool
	pull      float64
}

// orbReset returns the pool reset func for a kind, with its default lifetime.
func orbReset(kind OrbKind, lifetime int) func(*Orb) {
	return func(o *Orb) {
		slot := o.Slot
		*o = Orb{Kind: kind, Lifetime: lifetime, Glow: 1}
		o.Slot = slot
	}
}

// spawnOrb activates a pickup from its pool.
func (s *Simulation) spawnOrb(kind OrbKind, pos mathx.Vec2, value float64) *Orb {
	if kind >= orbKindCount {
		return nil
	}
	st := s.st
	o := st.orbPools[kind].Acquire()
	o.Pos = pos
	o.Value = value
	st.Orbs[kind] = append(st.Orbs[kind], o)
	return o
}

// dropOrbs rolls the drops for a killed enemy.
func (s *Simulation) dropOrbs(e *Enemy) {
	ob := &s.bal.Orbs
	rng := s.st.rng

	s.spawnOrb(OrbXP, e.Pos, float64(e.XPValue))
	if rng.Float64() < ob.HealChance {
		s.spawnOrb(OrbHeal, e.Pos.Add(mathx.Vec2{X: 8}), ob.HealAmount)
	}
	if rng.Float64() < ob.MagnetChance {
		s.spawnOrb(OrbMagnet, e.Pos.Add(mathx.Vec2{Y: 8}), 0)
	}
}

// updatePickups ages, attracts, hints and collects every orb.
func (s *Simulation) updatePickups() {
	st := s.st
	p := &st.Player
	ob := &s.bal.Orbs
	if st.magnetTicks > 0 {
		st.magnetTicks--
	}

	attract := ob.AttractRange * p.Passives.AttractMult()
	attract2 := attract * attract
	collect := s.bal.Player.PickupRadius + s.bal.Player.Radius
	collect2 := collect * collect
	hint2 := ob.HintDistance * ob.HintDistance

	for kind := OrbKind(0); kind < orbKindCount; kind++ {
		for _, o := range st.Orbs[kind] {
			if !o.Active() {
				continue
			}
			if kind != OrbChest {
				o.Lifetime--
				if o.Lifetime <= 0 {
					st.orbPools[kind].Release(o)
					continue
				}
			}
			o.age++
			o.Glow = orbGlow(o.age, o.Lifetime, kind != OrbChest)

			d2 := mathx.DistSq(o.Pos, p.Pos)
			if !p.Dead && (d2 < attract2 || (kind == OrbXP && st.magnetTicks > 0)) {
				o.attracted = true
			}
			if o.attracted && !p.Dead {
				o.pull += 0.15
				dir, dist := mathx.Direction(o.Pos, p.Pos)
				step := mathx.Clamp(ob.PullSpeed+o.pull, 0, dist)
				o.Pos = o.Pos.Add(dir.Scale(step))
				d2 = mathx.DistSq(o.Pos, p.Pos)
			}

			if kind == OrbHeal || kind == OrbChest {
				if d2 > hint2 {
					o.HintTimer++
					o.Hint = ob.HintBlinkTicks <= 0 || (o.HintTimer/ob.HintBlinkTicks)%2 == 0
				} else {
					o.HintTimer = 0
					o.Hint = false
				}
			}

			if !p.Dead && d2 <= collect2 {
				s.collectOrb(o)
				st.orbPools[kind].Release(o)
			}
		}
		s.compactOrbs(kind)
	}
}

// collectOrb applies a pickup's payload.
func (s *Simulation) collectOrb(o *Orb) {
	st := s.st
	switch o.Kind {
	case OrbXP:
		s.addXP(int(o.Value))
	case OrbHeal:
		s.healPlayer(o.Value)
		s.spawnBurst(o.Pos, 6, "#66bb6a", 2)
	case OrbMagnet:
		st.magnetTicks = s.bal.Orbs.MagnetDurationTicks
		s.spawnBurst(o.Pos, 6, "#42a5f5", 2)
	case OrbChest:
		s.openChest(o.Pos)
	}
}

// openChest grants a free upgrade regardless of the choice policy.
func (s *Simulation) openChest(pos mathx.Vec2) {
	st := s.st
	offers := s.buildOffers(st.offerScratch[:0])
	st.offerScratch = offers

	info := ChestInfo{Tick: st.Tick, X: pos.X, Y: pos.Y}
	if len(offers) > 0 {
		s.applyOffer(offers[0])
		info.Reward = offers[0].Label
	}
	s.spawnBurst(pos, 20, "#ffd54f", 4)

	s.events.EmitSimple(EventTypeChest, st.Tick, "player", ChestPayload{Reward: info.Reward})
	s.log.Info().Str("reward", info.Reward).Msg("🎁 Chest collected")

	if s.callbacks.OnChestCollected != nil {
		go s.callbacks.OnChestCollected(info)
	}
}

// compactOrbs drops released orbs from the in-play list for a kind.
func (s *Simulation) compactOrbs(kind OrbKind) {
	list := s.st.Orbs[kind]
	n := 0
	for _, o := range list {
		if o.Active() {
			list[n] = o
			n++
		}
	}
	for i := n; i < len(list); i++ {
		list[i] = nil
	}
	s.st.Orbs[kind] = list[:n]
}

// OrbView is an immutable copy of a pickup for rendering.
type OrbView struct {
	Kind    OrbKind `json:"kind"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Glow    float64 `json:"glow"`
	Hint    bool    `json:"hint"`
	Visible bool    `json:"visible"`
}
