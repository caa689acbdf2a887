package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidBalance is returned when a balance table fails validation.
var ErrInvalidBalance = errors.New("invalid balance")

// Balance holds every gameplay tuning constant. None of these values are
// engine contracts; they can be replaced wholesale from a YAML file.
type Balance struct {
	Player      PlayerBalance      `yaml:"player"`
	Enemies     EnemyBalance       `yaml:"enemies"`
	Spawn       SpawnBalance       `yaml:"spawn"`
	Boss        BossBalance        `yaml:"boss"`
	Scaling     ScalingBalance     `yaml:"scaling"`
	Orbs        OrbBalance         `yaml:"orbs"`
	Progression ProgressionBalance `yaml:"progression"`
}

// PlayerBalance tunes the player avatar.
type PlayerBalance struct {
	MaxHealth         float64 `yaml:"max_health"`
	Speed             float64 `yaml:"speed"` // px per tick
	Radius            float64 `yaml:"radius"`
	InvulnTicks       int     `yaml:"invuln_ticks"`
	DashSpeed         float64 `yaml:"dash_speed"`
	DashTicks         int     `yaml:"dash_ticks"`
	DashCooldownTicks int     `yaml:"dash_cooldown_ticks"`
	DashInvulnTicks   int     `yaml:"dash_invuln_ticks"`
	PickupRadius      float64 `yaml:"pickup_radius"`
	RegenPerTick      float64 `yaml:"regen_per_tick"`
	RevivalFraction   float64 `yaml:"revival_fraction"`
}

// EnemyBalance tunes regular enemies.
type EnemyBalance struct {
	BaseHealth            float64 `yaml:"base_health"`
	BaseSpeed             float64 `yaml:"base_speed"`
	BaseDamage            float64 `yaml:"base_damage"`
	Radius                float64 `yaml:"radius"`
	XPValue               int     `yaml:"xp_value"`
	DodgeRadius           float64 `yaml:"dodge_radius"`
	DodgeWeight           float64 `yaml:"dodge_weight"`
	TankHealthMult        float64 `yaml:"tank_health_mult"`
	TankSpeedMult         float64 `yaml:"tank_speed_mult"`
	TankSplitFraction     float64 `yaml:"tank_split_fraction"`
	TankMinionCount       int     `yaml:"tank_minion_count"`
	FlyOrbitRadius        float64 `yaml:"fly_orbit_radius"`
	TeleportCooldownTicks int     `yaml:"teleport_cooldown_ticks"`
	TeleportMinDistance   float64 `yaml:"teleport_min_distance"`
	TeleportRange         float64 `yaml:"teleport_range"`
	ZigzagAmplitude       float64 `yaml:"zigzag_amplitude"`
	ZigzagFrequency       float64 `yaml:"zigzag_frequency"` // radians per tick
	SurgePeriodTicks      int     `yaml:"surge_period_ticks"`
	SurgeTicks            int     `yaml:"surge_ticks"`
	SurgeMult             float64 `yaml:"surge_mult"`
}

// SpawnBalance tunes the difficulty ramp.
type SpawnBalance struct {
	RingDistance         float64 `yaml:"ring_distance"`
	InitialIntervalTicks int     `yaml:"initial_interval_ticks"`
	MinIntervalTicks     int     `yaml:"min_interval_ticks"`
	RampPerMinute        float64 `yaml:"ramp_per_minute"` // ticks shaved off the interval per minute survived
	SoftCap              int     `yaml:"soft_cap"`
	BossIntervalTicks    int     `yaml:"boss_interval_ticks"`
	AmbientHealTicks     int     `yaml:"ambient_heal_ticks"`
	AmbientHealChance    float64 `yaml:"ambient_heal_chance"`
}

// BossBalance tunes the boss encounter.
type BossBalance struct {
	Health               float64 `yaml:"health"`
	Speed                float64 `yaml:"speed"`
	Radius               float64 `yaml:"radius"`
	ContactDamage        float64 `yaml:"contact_damage"`
	Phase2Threshold      float64 `yaml:"phase2_threshold"`
	Phase3Threshold      float64 `yaml:"phase3_threshold"`
	Phase2SpeedMult      float64 `yaml:"phase2_speed_mult"`
	Phase3SpeedMult      float64 `yaml:"phase3_speed_mult"`
	DashCooldownTicks    int     `yaml:"dash_cooldown_ticks"`
	DashCooldownPerKill  int     `yaml:"dash_cooldown_per_kill"`
	DashCooldownFloor    int     `yaml:"dash_cooldown_floor"`
	DashChargeTicks      int     `yaml:"dash_charge_ticks"`
	DashTicks            int     `yaml:"dash_ticks"`
	DashSpeed            float64 `yaml:"dash_speed"`
	MissileIntervalTicks int     `yaml:"missile_interval_ticks"`
	MissileSpeed         float64 `yaml:"missile_speed"`
	MissileDamage        float64 `yaml:"missile_damage"`
	MissileLifetime      int     `yaml:"missile_lifetime"`
	LeashDistance        float64 `yaml:"leash_distance"`
	LeashReturn          float64 `yaml:"leash_return"`
	DefeatTicks          int     `yaml:"defeat_ticks"`
	XPValue              int     `yaml:"xp_value"`
}

// ScalingBalance shapes the progression curve. Health and damage grow with
// minutes survived and boss kills; the time-based speed term freezes at its
// value when the first boss dies.
type ScalingBalance struct {
	HealthPerMinute   float64 `yaml:"health_per_minute"`
	DamagePerMinute   float64 `yaml:"damage_per_minute"`
	SpeedPerMinute    float64 `yaml:"speed_per_minute"`
	MaxSpeedMult      float64 `yaml:"max_speed_mult"`
	HealthPerBossKill float64 `yaml:"health_per_boss_kill"`
	DamagePerBossKill float64 `yaml:"damage_per_boss_kill"`
}

// OrbBalance tunes pickups.
type OrbBalance struct {
	XPLifetimeTicks     int     `yaml:"xp_lifetime_ticks"`
	HealLifetimeTicks   int     `yaml:"heal_lifetime_ticks"`
	MagnetLifetimeTicks int     `yaml:"magnet_lifetime_ticks"`
	HealChance          float64 `yaml:"heal_chance"`
	HealAmount          float64 `yaml:"heal_amount"`
	MagnetChance        float64 `yaml:"magnet_chance"`
	MagnetDurationTicks int     `yaml:"magnet_duration_ticks"`
	AttractRange        float64 `yaml:"attract_range"`
	PullSpeed           float64 `yaml:"pull_speed"`
	HintDistance        float64 `yaml:"hint_distance"`
	HintBlinkTicks      int     `yaml:"hint_blink_ticks"`
}

// ProgressionBalance tunes experience thresholds.
type ProgressionBalance struct {
	BaseXP       float64 `yaml:"base_xp"`
	GrowthFactor float64 `yaml:"growth_factor"`
	OfferCount   int     `yaml:"offer_count"`
}

// DefaultBalance returns the built-in tuning table.
func DefaultBalance() Balance {
	return Balance{
		Player: PlayerBalance{
			MaxHealth:         100,
			Speed:             3,
			Radius:            14,
			InvulnTicks:       30,
			DashSpeed:         12,
			DashTicks:         10,
			DashCooldownTicks: 90,
			DashInvulnTicks:   12,
			PickupRadius:      24,
			RegenPerTick:      0.02,
			RevivalFraction:   0.5,
		},
		Enemies: EnemyBalance{
			BaseHealth:            20,
			BaseSpeed:             1.2,
			BaseDamage:            8,
			Radius:                12,
			XPValue:               1,
			DodgeRadius:           120,
			DodgeWeight:           1.5,
			TankHealthMult:        5,
			TankSpeedMult:         0.6,
			TankSplitFraction:     0.25,
			TankMinionCount:       4,
			FlyOrbitRadius:        180,
			TeleportCooldownTicks: 240,
			TeleportMinDistance:   350,
			TeleportRange:         160,
			ZigzagAmplitude:       0.8,
			ZigzagFrequency:       0.12,
			SurgePeriodTicks:      150,
			SurgeTicks:            30,
			SurgeMult:             2.2,
		},
		Spawn: SpawnBalance{
			RingDistance:         700,
			InitialIntervalTicks: 60,
			MinIntervalTicks:     8,
			RampPerMinute:        10,
			SoftCap:              400,
			BossIntervalTicks:    60 * 60 * 3,
			AmbientHealTicks:     600,
			AmbientHealChance:    0.35,
		},
		Boss: BossBalance{
			Health:               2500,
			Speed:                1.1,
			Radius:               42,
			ContactDamage:        25,
			Phase2Threshold:      0.7,
			Phase3Threshold:      0.3,
			Phase2SpeedMult:      1.35,
			Phase3SpeedMult:      1.6,
			DashCooldownTicks:    150,
			DashCooldownPerKill:  20,
			DashCooldownFloor:    60,
			DashChargeTicks:      40,
			DashTicks:            24,
			DashSpeed:            14,
			MissileIntervalTicks: 120,
			MissileSpeed:         4,
			MissileDamage:        12,
			MissileLifetime:      240,
			LeashDistance:        1100,
			LeashReturn:          500,
			DefeatTicks:          90,
			XPValue:              50,
		},
		Scaling: ScalingBalance{
			HealthPerMinute:   0.18,
			DamagePerMinute:   0.08,
			SpeedPerMinute:    0.05,
			MaxSpeedMult:      1.6,
			HealthPerBossKill: 0.5,
			DamagePerBossKill: 0.25,
		},
		Orbs: OrbBalance{
			XPLifetimeTicks:     60 * 60,
			HealLifetimeTicks:   60 * 30,
			MagnetLifetimeTicks: 60 * 30,
			HealChance:          0.02,
			HealAmount:          25,
			MagnetChance:        0.005,
			MagnetDurationTicks: 300,
			AttractRange:        90,
			PullSpeed:           6,
			HintDistance:        450,
			HintBlinkTicks:      20,
		},
		Progression: ProgressionBalance{
			BaseXP:       5,
			GrowthFactor: 1.25,
			OfferCount:   3,
		},
	}
}

// Validate reports the first out-of-range value, wrapped in ErrInvalidBalance.
func (b Balance) Validate() error {
	checks := []struct {
		ok   bool
		name string
	}{
		{b.Player.MaxHealth > 0, "player.max_health"},
		{b.Player.Speed > 0, "player.speed"},
		{b.Player.Radius > 0, "player.radius"},
		{b.Enemies.BaseHealth > 0, "enemies.base_health"},
		{b.Enemies.Radius > 0, "enemies.radius"},
		{b.Enemies.TankSplitFraction > 0 && b.Enemies.TankSplitFraction < 1, "enemies.tank_split_fraction"},
		{b.Spawn.InitialIntervalTicks > 0, "spawn.initial_interval_ticks"},
		{b.Spawn.MinIntervalTicks > 0 && b.Spawn.MinIntervalTicks <= b.Spawn.InitialIntervalTicks, "spawn.min_interval_ticks"},
		{b.Boss.Health > 0, "boss.health"},
		{b.Boss.Phase3Threshold > 0 && b.Boss.Phase3Threshold < b.Boss.Phase2Threshold && b.Boss.Phase2Threshold < 1, "boss phase thresholds"},
		{b.Boss.DashCooldownFloor > 0 && b.Boss.DashCooldownFloor <= b.Boss.DashCooldownTicks, "boss.dash_cooldown_floor"},
		{b.Boss.MissileIntervalTicks > 0, "boss.missile_interval_ticks"},
		{b.Boss.LeashReturn > 0 && b.Boss.LeashReturn < b.Boss.LeashDistance, "boss leash"},
		{b.Scaling.MaxSpeedMult >= 1, "scaling.max_speed_mult"},
		{b.Progression.BaseXP > 0, "progression.base_xp"},
		{b.Progression.GrowthFactor >= 1, "progression.growth_factor"},
		{b.Progression.OfferCount > 0, "progression.offer_count"},
	}
	for _, c := range checks {
		if !c.ok {
			return fmt.Errorf("%w: %s", ErrInvalidBalance, c.name)
		}
	}
	return nil
}

// LoadBalance overlays the YAML file at path onto the default table.
// Keys missing from the file keep their defaults.
func LoadBalance(path string) (Balance, error) {
	b := DefaultBalance()

	data, err := os.ReadFile(path)
	if err != nil {
		return b, fmt.Errorf("read balance file: %w", err)
	}
	if err := yaml.Unmarshal(data, &b); err != nil {
		return DefaultBalance(), fmt.Errorf("parse balance file %s: %w", path, err)
	}
	if err := b.Validate(); err != nil {
		return DefaultBalance(), err
	}
	return b, nil
}
