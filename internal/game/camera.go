package game

import "arena-survival/internal/game/mathx"

// Shake limits
const (
	MaxShakeIntensity = 14.0
	MaxShakePerTick   = 2
	shakeDuration     = 12
	cameraFollow      = 0.12 // lerp factor per tick
)

// ScreenShake is camera shake from heavy hits and boss events.
type ScreenShake struct {
	Intensity float64 // Current shake magnitude
	Duration  int     // Remaining ticks
	OffsetX   float64 // Current X offset (computed each tick)
	OffsetY   float64 // Current Y offset (computed each tick)
}

// update decays the shake. Offsets come from a small LCG keyed on the tick
// so replays with the same seed shake identically.
func (s *ScreenShake) update(tick uint64) bool {
	s.Duration--
	s.Intensity *= 0.85

	seed := int64(tick) + int64(s.Duration)
	x := float64((seed*1103515245+12345)&0xff) / 256.0
	y := float64((seed*1103515245*2+12345)&0xff) / 256.0

	s.OffsetX = (x - 0.5) * 2 * s.Intensity
	s.OffsetY = (y - 0.5) * 2 * s.Intensity

	return s.Duration > 0 && s.Intensity > 0.5
}

// Camera follows the player; Pos is the view centre in world units.
type Camera struct {
	Pos    mathx.Vec2
	Width  float64
	Height float64

	shake         ScreenShake
	shaking       bool
	shakeThisTick int
}

// newCamera centres a camera on pos.
func newCamera(pos mathx.Vec2, width, height float64) Camera {
	return Camera{Pos: pos, Width: width, Height: height}
}

// Follow eases the camera toward target.
func (c *Camera) Follow(target mathx.Vec2) {
	c.Pos.X = mathx.Lerp(c.Pos.X, target.X, cameraFollow)
	c.Pos.Y = mathx.Lerp(c.Pos.Y, target.Y, cameraFollow)
}

// AddShake adds screen shake, rate limited per tick unless forced. Shakes
// combine up to MaxShakeIntensity.
func (c *Camera) AddShake(intensity float64, force bool) {
	if !force && c.shakeThisTick >= MaxShakePerTick {
		return
	}
	c.shakeThisTick++

	if !c.shaking {
		c.shake = ScreenShake{Intensity: intensity, Duration: shakeDuration}
		c.shaking = true
	} else {
		c.shake.Intensity += intensity * 0.5
		c.shake.Duration = shakeDuration
	}
	if c.shake.Intensity > MaxShakeIntensity {
		c.shake.Intensity = MaxShakeIntensity
	}
}

// Update advances the shake and resets the per-tick limiter.
func (c *Camera) Update(tick uint64) {
	c.shakeThisTick = 0
	if c.shaking && !c.shake.update(tick) {
		c.shake = ScreenShake{}
		c.shaking = false
	}
}

// Shake returns the current offsets, zero when idle.
func (c *Camera) Shake() ScreenShake {
	return c.shake
}

// TopLeft is the world position of the viewport's top-left corner,
// shake included.
func (c *Camera) TopLeft() mathx.Vec2 {
	return mathx.Vec2{
		X: c.Pos.X - c.Width*0.5 + c.shake.OffsetX,
		Y: c.Pos.Y - c.Height*0.5 + c.shake.OffsetY,
	}
}
