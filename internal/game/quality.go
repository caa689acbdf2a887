package game

import (
	"arena-survival/internal/config"
	"arena-survival/internal/game/mathx"
)

// Quality level bounds.
const (
	MinQuality = 1
	MaxQuality = 5
)

// QualitySettings is the cosmetic configuration for one quality level.
// Nothing in here may influence gameplay.
type QualitySettings struct {
	ParticleMult    float64 `json:"particleMult"`
	ExplosionMult   float64 `json:"explosionMult"`
	ShadowIntensity float64 `json:"shadowIntensity"`
	TrailLength     int     `json:"trailLength"`
}

var qualityTable = [MaxQuality + 1]QualitySettings{
	1: {ParticleMult: 0.25, ExplosionMult: 0.25, ShadowIntensity: 0, TrailLength: 0},
	2: {ParticleMult: 0.5, ExplosionMult: 0.5, ShadowIntensity: 0.25, TrailLength: 2},
	3: {ParticleMult: 0.75, ExplosionMult: 0.75, ShadowIntensity: 0.5, TrailLength: 4},
	4: {ParticleMult: 1, ExplosionMult: 1, ShadowIntensity: 0.75, TrailLength: 6},
	5: {ParticleMult: 1.25, ExplosionMult: 1, ShadowIntensity: 1, TrailLength: MaxTrailLength},
}

// SettingsFor returns the configuration for a level, clamped to 1..5.
func SettingsFor(level int) QualitySettings {
	return qualityTable[mathx.ClampInt(level, MinQuality, MaxQuality)]
}

// lodScale shrinks level-of-detail cutoffs at lower quality.
func lodScale(level int) float64 {
	return 0.5 + 0.125*float64(mathx.ClampInt(level, MinQuality, MaxQuality)-1)
}

// QualityListener receives every level change. direction is "up", "down"
// or "override".
type QualityListener func(level int, settings QualitySettings, direction string)

// QualityController steps the quality level from measured frame rate with
// hysteresis (separate low/high thresholds) and a cooldown after any change.
// It runs on the simulation goroutine only.
type QualityController struct {
	cfg       config.QualityConfig
	level     int
	fps       float64
	counter   int
	cooldown  int
	listeners []QualityListener
}

// NewQualityController creates a controller at cfg.Initial.
func NewQualityController(cfg config.QualityConfig) *QualityController {
	if cfg.CheckIntervalTicks < 1 {
		cfg.CheckIntervalTicks = 1
	}
	return &QualityController{
		cfg:   cfg,
		level: mathx.ClampInt(cfg.Initial, MinQuality, MaxQuality),
	}
}

// Subscribe registers a listener for level changes.
func (q *QualityController) Subscribe(fn QualityListener) {
	q.listeners = append(q.listeners, fn)
}

// ReportFPS stores the latest measured frame rate for the next sample.
func (q *QualityController) ReportFPS(fps float64) {
	q.fps = fps
}

// FPS returns the last reported frame rate.
func (q *QualityController) FPS() float64 { return q.fps }

// Level returns the current quality level.
func (q *QualityController) Level() int { return q.level }

// Settings returns the configuration for the current level.
func (q *QualityController) Settings() QualitySettings { return qualityTable[q.level] }

// Cooldown returns the ticks left before another adjustment is allowed.
func (q *QualityController) Cooldown() int { return q.cooldown }

// Sample is called once per tick. Every CheckIntervalTicks it compares the
// reported frame rate against the thresholds and steps the level by one.
// It reports whether the level changed.
func (q *QualityController) Sample() bool {
	if q.cooldown > 0 {
		q.cooldown--
	}
	q.counter++
	if q.counter < q.cfg.CheckIntervalTicks {
		return false
	}
	q.counter = 0

	if q.cooldown > 0 || q.fps <= 0 {
		return false
	}

	switch {
	case q.fps < q.cfg.LowFPS && q.level > MinQuality:
		q.apply(q.level-1, "down")
		return true
	case q.fps > q.cfg.HighFPS && q.level < MaxQuality:
		q.apply(q.level+1, "up")
		return true
	}
	return false
}

// SetLevel forces a level (clamped to 1..5) and starts the cooldown window.
func (q *QualityController) SetLevel(level int) {
	q.apply(mathx.ClampInt(level, MinQuality, MaxQuality), "override")
}

// Reset returns to the configured initial level without notifying listeners
// about a change direction.
func (q *QualityController) Reset() {
	q.counter = 0
	q.cooldown = 0
	q.fps = 0
	q.level = mathx.ClampInt(q.cfg.Initial, MinQuality, MaxQuality)
	for _, fn := range q.listeners {
		fn(q.level, qualityTable[q.level], "")
	}
}

func (q *QualityController) apply(level int, direction string) {
	q.level = level
	q.cooldown = q.cfg.CooldownTicks
	q.counter = 0
	settings := qualityTable[level]
	for _, fn := range q.listeners {
		fn(level, settings, direction)
	}
}
