package game

import (
	"arena-survival/internal/game/mathx"
)

// Behavior is the enemy movement/attack state machine selector.
type Behavior uint8

const (
	BehaviorChase Behavior = iota
	BehaviorDodge
	BehaviorTank
	BehaviorFly
	BehaviorTeleport
	BehaviorBoss
	behaviorCount
)

// String returns the behavior tag.
func (b Behavior) String() string {
	switch b {
	case BehaviorChase:
		return "chase"
	case BehaviorDodge:
		return "dodge"
	case BehaviorTank:
		return "tank"
	case BehaviorFly:
		return "fly"
	case BehaviorTeleport:
		return "teleport"
	case BehaviorBoss:
		return "boss"
	default:
		return "unknown"
	}
}

// Shape is the rendered outline of an enemy.
type Shape uint8

const (
	ShapeCircle Shape = iota
	ShapeSquare
	ShapeTriangle
	ShapeDiamond
	ShapeHexagon
	ShapeStar
)

// Modifier alters how a variant moves on top of its behavior.
type Modifier uint8

const (
	ModNone   Modifier = iota
	ModZigzag          // lateral weave
	ModSurge           // periodic speed burst
)

// Variant is the shape/color/movement bundle of an enemy.
type Variant struct {
	Name       string   `json:"name"`
	Shape      Shape    `json:"shape"`
	Color      string   `json:"color"`
	Modifier   Modifier `json:"modifier"`
	SpeedMult  float64  `json:"speedMult"`
	HealthMult float64  `json:"healthMult"`
}

// variantTable lists the variants available to each behavior.
var variantTable = [behaviorCount][]Variant{
	BehaviorChase: {
		{Name: "grunt", Shape: ShapeCircle, Color: "#ef5350", Modifier: ModNone, SpeedMult: 1, HealthMult: 1},
		{Name: "weaver", Shape: ShapeTriangle, Color: "#ff7043", Modifier: ModZigzag, SpeedMult: 1.1, HealthMult: 0.8},
		{Name: "rusher", Shape: ShapeDiamond, Color: "#ec407a", Modifier: ModSurge, SpeedMult: 0.9, HealthMult: 0.9},
	},
	BehaviorDodge: {
		{Name: "skitter", Shape: ShapeTriangle, Color: "#26c6da", Modifier: ModNone, SpeedMult: 1.15, HealthMult: 0.7},
		{Name: "jinx", Shape: ShapeDiamond, Color: "#29b6f6", Modifier: ModZigzag, SpeedMult: 1.1, HealthMult: 0.7},
	},
	BehaviorTank: {
		{Name: "brute", Shape: ShapeSquare, Color: "#8d6e63", Modifier: ModNone, SpeedMult: 1, HealthMult: 1},
		{Name: "juggernaut", Shape: ShapeHexagon, Color: "#6d4c41", Modifier: ModSurge, SpeedMult: 0.9, HealthMult: 1.3},
	},
	BehaviorFly: {
		{Name: "wisp", Shape: ShapeCircle, Color: "#ab47bc", Modifier: ModNone, SpeedMult: 1.3, HealthMult: 0.6},
		{Name: "hornet", Shape: ShapeTriangle, Color: "#7e57c2", Modifier: ModZigzag, SpeedMult: 1.4, HealthMult: 0.6},
	},
	BehaviorTeleport: {
		{Name: "blinker", Shape: ShapeStar, Color: "#66bb6a", Modifier: ModNone, SpeedMult: 1, HealthMult: 0.9},
	},
	BehaviorBoss: {
		{Name: "overlord", Shape: ShapeHexagon, Color: "#d32f2f", Modifier: ModNone, SpeedMult: 1, HealthMult: 1},
		{Name: "warden", Shape: ShapeStar, Color: "#512da8", Modifier: ModNone, SpeedMult: 1.05, HealthMult: 1.15},
		{Name: "colossus", Shape: ShapeSquare, Color: "#bf360c", Modifier: ModNone, SpeedMult: 0.95, HealthMult: 1.3},
	},
}

var minionVariant = Variant{Name: "spawnling", Shape: ShapeCircle, Color: "#a1887f", Modifier: ModNone, SpeedMult: 1.3, HealthMult: 0.25}

// DefaultEnemyRadius is used when an enemy carries no radius.
const DefaultEnemyRadius = 12.0

// MaxEnemyRadius bounds broad-phase query padding.
const MaxEnemyRadius = 64.0

// Enemy is one hostile in play.
type Enemy struct {
	ID        uint32
	Pos       mathx.Vec2
	Radius    float64
	Speed     float64
	Health    float64
	MaxHealth float64
	Damage    float64
	XPValue   int

	Behavior Behavior
	Variant  Variant

	Cooldown int // special-action cooldown (teleport)
	Age      int
	split    bool
	dead     bool

	Boss *BossState
}

// radius returns the collision radius, defaulting when unset.
func (e *Enemy) radius() float64 {
	if e.Radius <= 0 {
		return DefaultEnemyRadius
	}
	return e.Radius
}

// Dead reports whether the enemy has been killed.
func (e *Enemy) Dead() bool { return e.dead }

// targetable reports whether weapons and collisions may consider the enemy.
func (e *Enemy) targetable() bool { return !e.dead }

// removable reports whether the enemy can leave the active list. Bosses stay
// until their defeat sequence finishes.
func (e *Enemy) removable() bool {
	if !e.dead {
		return false
	}
	return e.Boss == nil || e.Boss.DefeatTimer <= 0
}

// scaling is the progression multiplier applied at spawn.
type scaling struct {
	Health float64
	Damage float64
	Speed  float64
}

// currentScaling computes multipliers from minutes survived and boss kills.
// The time-based speed term stops growing once the first boss dies.
func (s *Simulation) currentScaling() scaling {
	st := s.st
	sc := s.bal.Scaling
	minutes := st.minutesSurvived(s.tickRate)
	kills := float64(st.BossKills)

	speed := st.frozenSpeedMult
	if !st.speedFrozen {
		speed = 1 + sc.SpeedPerMinute*minutes
		if speed > sc.MaxSpeedMult {
			speed = sc.MaxSpeedMult
		}
	}

	return scaling{
		Health: 1 + sc.HealthPerMinute*minutes + sc.HealthPerBossKill*kills,
		Damage: 1 + sc.DamagePerMinute*minutes + sc.DamagePerBossKill*kills,
		Speed:  speed,
	}
}

// freezeSpeedScaling latches the time-based speed multiplier.
func (s *Simulation) freezeSpeedScaling() {
	if s.st.speedFrozen {
		return
	}
	s.st.frozenSpeedMult = s.currentScaling().Speed
	s.st.speedFrozen = true
}

// newEnemy builds a regular enemy with scaling applied. It is not added to
// the active list.
func (s *Simulation) newEnemy(b Behavior, v Variant, pos mathx.Vec2) *Enemy {
	eb := s.bal.Enemies
	sc := s.currentScaling()

	health := eb.BaseHealth * v.HealthMult * sc.Health
	speed := eb.BaseSpeed * v.SpeedMult * sc.Speed
	radius := eb.Radius
	xp := eb.XPValue

	switch b {
	case BehaviorTank:
		health *= eb.TankHealthMult
		speed *= eb.TankSpeedMult
		radius *= 1.6
		xp *= 4
	case BehaviorFly:
		radius *= 0.8
	case BehaviorDodge, BehaviorTeleport:
		xp *= 2
	}

	s.st.nextEnemyID++
	return &Enemy{
		ID:        s.st.nextEnemyID,
		Pos:       pos,
		Radius:    radius,
		Speed:     speed,
		Health:    health,
		MaxHealth: health,
		Damage:    eb.BaseDamage * sc.Damage,
		XPValue:   xp,
		Behavior:  b,
		Variant:   v,
		Cooldown:  eb.TeleportCooldownTicks,
	}
}

// addEnemy appends to the active list.
func (s *Simulation) addEnemy(e *Enemy) *Enemy {
	s.st.Enemies = append(s.st.Enemies, e)
	return e
}

// damageEnemy applies damage from a player weapon. Health only ever goes
// down; the kill is processed exactly once.
func (s *Simulation) damageEnemy(e *Enemy, amount float64, weapon WeaponKind) {
	if e.dead || amount <= 0 {
		return
	}
	e.Health -= amount
	if weapon < weaponKindCount {
		s.st.DamageByWeapon[weapon] += amount
	}
	s.spawnBurst(e.Pos, 2, e.Variant.Color, 2)

	if e.Health <= 0 {
		s.killEnemy(e)
	}
}

// killEnemy latches death, drops pickups and starts the boss defeat sequence.
func (s *Simulation) killEnemy(e *Enemy) {
	if e.dead {
		return
	}
	e.dead = true
	st := s.st
	st.Kills++

	if e.Boss != nil {
		s.beginBossDefeat(e)
		return
	}

	s.dropOrbs(e)
	s.spawnBurst(e.Pos, 8, e.Variant.Color, 3)
	s.events.EmitSimple(EventTypeEnemyKilled, st.Tick, e.Behavior.String(),
		EnemyKilledPayload{EnemyID: e.ID, Behavior: e.Behavior.String(), Variant: e.Variant.Name, X: e.Pos.X, Y: e.Pos.Y})
}

// sweepEnemies removes dead enemies from the active list.
// Zero-allocation in-place filtering.
func (s *Simulation) sweepEnemies() {
	list := s.st.Enemies
	n := 0
	for _, e := range list {
		if !e.removable() {
			list[n] = e
			n++
		}
	}
	for i := n; i < len(list); i++ {
		list[i] = nil
	}
	s.st.Enemies = list[:n]
}

// EnemyView is an immutable copy of enemy state for rendering.
type EnemyView struct {
	ID        uint32    `json:"id"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Radius    float64   `json:"radius"`
	Health    float64   `json:"health"`
	MaxHealth float64   `json:"maxHealth"`
	Behavior  Behavior  `json:"behavior"`
	Shape     Shape     `json:"shape"`
	Color     string    `json:"color"`
	Boss      bool      `json:"boss"`
	Phase     BossPhase `json:"phase,omitempty"`
	Dash      DashState `json:"dash,omitempty"`
	Defeated  bool      `json:"defeated,omitempty"`
	Visible   bool      `json:"visible"`
}
