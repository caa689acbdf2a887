package game

import "arena-survival/internal/game/mathx"

// PlayerCombat tracks the player's defensive timers.
// All timers use tick-based counting so a run replays identically.
type PlayerCombat struct {
	// Dash system
	Dashing      bool       // Currently mid-dash
	DashTimer    int        // Remaining dash ticks
	DashCooldown int        // Ticks until next dash
	DashDir      mathx.Vec2 // Direction of the dash

	// Invulnerability (hit recovery or dash i-frames)
	InvulnTicks int
}

// Reset clears combat state (called on reset and revival).
func (c *PlayerCombat) Reset() {
	*c = PlayerCombat{}
}

// UpdateTimers decrements all tick-based timers. Called once per tick.
func (c *PlayerCombat) UpdateTimers() {
	if c.DashTimer > 0 {
		c.DashTimer--
		if c.DashTimer == 0 {
			c.Dashing = false
		}
	}

	if c.DashCooldown > 0 {
		c.DashCooldown--
	}

	if c.InvulnTicks > 0 {
		c.InvulnTicks--
	}
}

// CanDash returns whether a dash can be initiated.
func (c *PlayerCombat) CanDash() bool {
	return !c.Dashing && c.DashCooldown == 0
}

// StartDash initiates a dash in the given direction.
func (c *PlayerCombat) StartDash(dir mathx.Vec2, ticks, cooldown, invuln int) {
	c.Dashing = true
	c.DashTimer = ticks
	c.DashCooldown = cooldown
	c.DashDir = dir
	c.Grant(invuln)
}

// Grant extends invulnerability to at least n ticks.
func (c *PlayerCombat) Grant(n int) {
	if n > c.InvulnTicks {
		c.InvulnTicks = n
	}
}

// Invulnerable returns whether the player cannot be hurt.
func (c *PlayerCombat) Invulnerable() bool {
	return c.InvulnTicks > 0
}
