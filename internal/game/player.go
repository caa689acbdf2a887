package game

import (
	"arena-survival/internal/game/mathx"
)

// Input is the latest movement intent from the presentation layer.
type Input struct {
	MoveX float64 `json:"moveX"`
	MoveY float64 `json:"moveY"`
	Dash  bool    `json:"dash"`
}

// Player is the single avatar. Owned exclusively by the simulation.
type Player struct {
	Pos    mathx.Vec2
	Facing mathx.Vec2 // last non-zero movement direction

	Health    float64
	MaxHealth float64
	Level     int
	XP        int

	Passives PassiveSet
	Weapons  []*Weapon // ordered, at most MaxWeapons
	Combat   PlayerCombat

	Dead    bool
	Revived bool
}

// reset restores start-of-run defaults and the starting weapon. The weapon
// slice keeps its backing array.
func (p *Player) reset(maxHealth float64) {
	weapons := p.Weapons[:0]
	for i := range p.Weapons {
		p.Weapons[i] = nil
	}
	*p = Player{
		Facing:    mathx.Vec2{X: 1},
		Health:    maxHealth,
		MaxHealth: maxHealth,
		Level:     1,
		Weapons:   append(weapons, NewWeapon(WeaponBlaster)),
	}
}

// updatePlayer applies input, dash, timers and passive effects.
func (s *Simulation) updatePlayer() {
	st := s.st
	p := &st.Player
	pb := &s.bal.Player
	if p.Dead {
		return
	}

	p.Combat.UpdateTimers()

	move := mathx.Vec2{X: st.input.MoveX, Y: st.input.MoveY}.Normalize()
	if move != (mathx.Vec2{}) {
		p.Facing = move
	}

	if st.input.Dash {
		st.input.Dash = false
		if p.Combat.CanDash() {
			dir := move
			if dir == (mathx.Vec2{}) {
				dir = p.Facing
			}
			p.Combat.StartDash(dir, pb.DashTicks, pb.DashCooldownTicks, pb.DashInvulnTicks)
			s.spawnBurst(p.Pos, 6, "#ffffff", 2)
		}
	}

	if p.Combat.Dashing {
		p.Pos = p.Pos.Add(p.Combat.DashDir.Scale(pb.DashSpeed))
	} else {
		p.Pos = p.Pos.Add(move.Scale(pb.Speed * p.Passives.SpeedMult()))
	}

	p.MaxHealth = pb.MaxHealth + p.Passives.BonusHealth()
	if p.Passives.Has(PassiveRegeneration) && p.Health < p.MaxHealth {
		p.Health += pb.RegenPerTick
	}
	if p.Health > p.MaxHealth {
		p.Health = p.MaxHealth
	}
}

// damagePlayer applies damage unless the player is invulnerable. It reports
// whether damage landed. Every successful hit starts the invulnerability
// window.
func (s *Simulation) damagePlayer(amount float64) bool {
	st := s.st
	p := &st.Player
	if p.Dead || p.Combat.Invulnerable() || amount <= 0 {
		return false
	}

	p.Health -= amount
	p.Combat.Grant(s.bal.Player.InvulnTicks)
	st.Camera.AddShake(3, false)

	if p.Health > 0 {
		return true
	}

	if p.Passives.Has(PassiveRevival) && !p.Revived {
		p.Revived = true
		p.Health = p.MaxHealth * s.bal.Player.RevivalFraction
		p.Combat.Grant(s.bal.Player.InvulnTicks * 3)
		s.spawnBurst(p.Pos, 24, "#fff59d", 4)
		s.log.Info().Msg("✨ Revival consumed")
		return true
	}

	p.Health = 0
	p.Dead = true
	st.gameOver = true

	info := PlayerDeathInfo{
		Tick:      st.Tick,
		Level:     p.Level,
		Kills:     st.Kills,
		BossKills: st.BossKills,
		RunID:     st.RunID,
	}
	s.events.EmitSimple(EventTypePlayerDeath, st.Tick, "player",
		PlayerDeathPayload{Level: p.Level, Kills: st.Kills, BossKills: st.BossKills})
	s.log.Info().Int("level", p.Level).Int("kills", st.Kills).Uint64("tick", st.Tick).Msg("💀 Player died")

	if s.callbacks.OnPlayerDeath != nil {
		go s.callbacks.OnPlayerDeath(info)
	}
	return true
}

// healPlayer restores health up to the maximum.
func (s *Simulation) healPlayer(amount float64) {
	p := &s.st.Player
	if p.Dead {
		return
	}
	p.Health += amount
	if p.Health > p.MaxHealth {
		p.Health = p.MaxHealth
	}
}

// PlayerStats is the HUD view of the player.
type PlayerStats struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	FacingX      float64 `json:"facingX"`
	FacingY      float64 `json:"facingY"`
	Health       float64 `json:"health"`
	MaxHealth    float64 `json:"maxHealth"`
	Level        int     `json:"level"`
	XP           int     `json:"xp"`
	XPToNext     int     `json:"xpToNext"`
	Invulnerable bool    `json:"invulnerable"`
	Dashing      bool    `json:"dashing"`
	DashCooldown int     `json:"dashCooldown"`
	Dead         bool    `json:"dead"`
	Kills        int     `json:"kills"`
	BossKills    int     `json:"bossKills"`
	Survived     float64 `json:"survivedSeconds"`
}
