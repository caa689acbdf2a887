// Package render rasterizes published simulation snapshots for debugging:
// the /api/frame.png endpoint and the framedump tool. It reads snapshots
// only and never touches simulation state.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"sync"
	"time"

	"github.com/fogleman/gg"

	"arena-survival/internal/game"
	"arena-survival/internal/observability"
)

const gridSpacing = 100.0

var (
	backgroundColor = color.RGBA{14, 14, 26, 255}
	gridColor       = color.RGBA{32, 32, 52, 255}
	playerColor     = color.RGBA{79, 195, 247, 255}
	deadColor       = color.RGBA{90, 90, 100, 255}
	hudBack         = color.RGBA{40, 40, 48, 220}
	healthHigh      = color.RGBA{83, 255, 69, 255}
	healthMid       = color.RGBA{255, 149, 0, 255}
	healthLow       = color.RGBA{255, 62, 62, 255}
	shadowColor     = color.RGBA{0, 0, 0, 255}
	xpColor         = color.RGBA{171, 71, 188, 255}
)

var orbColors = map[game.OrbKind]color.RGBA{
	game.OrbXP:     {79, 195, 247, 255},
	game.OrbHeal:   {102, 187, 106, 255},
	game.OrbMagnet: {66, 165, 245, 255},
	game.OrbChest:  {255, 213, 79, 255},
}

// Renderer draws snapshots into a reused gg context. Safe for concurrent
// use; draws are serialized.
type Renderer struct {
	width, height int

	mu sync.Mutex
	dc *gg.Context

	// glow and shadow opacity for the frame being drawn, 0..1
	shadow float64
}

// New creates a renderer producing width x height frames.
func New(width, height int) *Renderer {
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	return &Renderer{width: width, height: height, dc: gg.NewContext(width, height)}
}

// Size returns the frame dimensions.
func (r *Renderer) Size() (int, int) { return r.width, r.height }

// Draw renders snap and returns a copy of the frame the caller owns.
func (r *Renderer) Draw(snap *game.Snapshot) *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.draw(snap)
	src := r.frame()
	out := image.NewRGBA(src.Bounds())
	copy(out.Pix, src.Pix)
	return out
}

// EncodePNG renders snap and writes it to w as PNG.
func (r *Renderer) EncodePNG(w io.Writer, snap *game.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.draw(snap)
	if err := png.Encode(w, r.frame()); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return nil
}

func (r *Renderer) frame() *image.RGBA {
	if rgba, ok := r.dc.Image().(*image.RGBA); ok {
		return rgba
	}
	// gg always backs its context with RGBA; convert just in case.
	img := r.dc.Image()
	out := image.NewRGBA(img.Bounds())
	for y := 0; y < r.height; y++ {
		for x := 0; x < r.width; x++ {
			out.Set(x, y, img.At(x, y))
		}
	}
	return out
}

// view maps world coordinates to frame pixels.
type view struct {
	x, y   float64
	sx, sy float64
}

func newView(cam game.CameraView, width, height int) view {
	v := view{x: cam.X, y: cam.Y, sx: 1, sy: 1}
	if cam.Width > 0 {
		v.sx = float64(width) / cam.Width
	}
	if cam.Height > 0 {
		v.sy = float64(height) / cam.Height
	}
	return v
}

func (v view) point(x, y float64) (float64, float64) {
	return (x - v.x) * v.sx, (y - v.y) * v.sy
}

func (v view) length(l float64) float64 {
	return l * (v.sx + v.sy) * 0.5
}

func (r *Renderer) draw(snap *game.Snapshot) {
	start := time.Now()
	defer func() { observability.RecordRender(time.Since(start)) }()

	dc := r.dc
	dc.SetColor(backgroundColor)
	dc.Clear()
	if snap == nil {
		return
	}

	r.shadow = math.Max(0, math.Min(1, snap.QualitySettings.ShadowIntensity))
	v := newView(snap.Camera, r.width, r.height)
	r.drawGrid(v)
	r.drawExplosions(v, snap.Explosions)
	r.drawOrbs(v, snap.Orbs)
	r.drawEnemies(v, snap.Enemies)
	r.drawProjectiles(v, snap.Projectiles)
	r.drawParticles(v, snap.Particles)
	r.drawPlayer(v, snap.Player)
	r.drawHUD(snap)
}

// drawGrid draws world-anchored grid lines so camera motion is visible.
func (r *Renderer) drawGrid(v view) {
	dc := r.dc
	dc.SetColor(gridColor)
	dc.SetLineWidth(1)

	startX := math.Floor(v.x/gridSpacing) * gridSpacing
	for x := startX; ; x += gridSpacing {
		px, _ := v.point(x, 0)
		if px > float64(r.width) {
			break
		}
		dc.DrawLine(px, 0, px, float64(r.height))
	}
	startY := math.Floor(v.y/gridSpacing) * gridSpacing
	for y := startY; ; y += gridSpacing {
		_, py := v.point(0, y)
		if py > float64(r.height) {
			break
		}
		dc.DrawLine(0, py, float64(r.width), py)
	}
	dc.Stroke()
}

func (r *Renderer) drawExplosions(v view, explosions []game.ExplosionView) {
	dc := r.dc
	for _, ex := range explosions {
		x, y := v.point(ex.X, ex.Y)
		c := parseHexColor(ex.Color)
		if glow := ex.Alpha * 0.35 * r.shadow; glow > 0 {
			dc.SetColor(withAlpha(c, glow))
			dc.DrawCircle(x, y, v.length(ex.Radius))
			dc.Fill()
		}
		dc.SetColor(withAlpha(c, ex.Alpha))
		dc.SetLineWidth(3)
		dc.DrawCircle(x, y, v.length(ex.Radius))
		dc.Stroke()
	}
}

func (r *Renderer) drawOrbs(v view, orbs []game.OrbView) {
	dc := r.dc
	for _, o := range orbs {
		if !o.Visible {
			continue
		}
		x, y := v.point(o.X, o.Y)
		c := orbColors[o.Kind]
		size := 5.0
		if o.Kind == game.OrbChest {
			size = 10
		}
		if glow := 0.3 * o.Glow * r.shadow; glow > 0 {
			dc.SetColor(withAlpha(c, glow))
			dc.DrawCircle(x, y, v.length(size*2))
			dc.Fill()
		}
		dc.SetColor(c)
		if o.Kind == game.OrbChest {
			s := v.length(size)
			dc.DrawRectangle(x-s, y-s*0.7, s*2, s*1.4)
		} else {
			dc.DrawCircle(x, y, v.length(size))
		}
		dc.Fill()
		if o.Hint {
			dc.SetLineWidth(2)
			dc.DrawCircle(x, y, v.length(size*3))
			dc.Stroke()
		}
	}
}

func (r *Renderer) drawEnemies(v view, enemies []game.EnemyView) {
	dc := r.dc
	for _, e := range enemies {
		if !e.Visible {
			continue
		}
		x, y := v.point(e.X, e.Y)
		radius := v.length(e.Radius)
		base := parseHexColor(e.Color)
		var c color.Color = base
		if e.Defeated {
			c = withAlpha(base, 0.4)
		}

		if r.shadow > 0 {
			dc.SetColor(withAlpha(shadowColor, 0.35*r.shadow))
			r.shapePath(e.Shape, x, y+radius*0.25, radius)
			dc.Fill()
		}

		dc.SetColor(c)
		r.shapePath(e.Shape, x, y, radius)
		dc.Fill()

		if e.Boss && e.Dash == game.DashCharging {
			dc.SetColor(healthLow)
			dc.SetLineWidth(4)
			dc.DrawCircle(x, y, radius+6)
			dc.Stroke()
		}

		if e.MaxHealth > 0 && e.Health < e.MaxHealth && !e.Defeated {
			r.bar(x-radius, y-radius-8, radius*2, 4, e.Health/e.MaxHealth, healthColor(e.Health/e.MaxHealth))
		}
	}
}

// shapePath appends the outline for an enemy shape to the current path.
func (r *Renderer) shapePath(shape game.Shape, x, y, radius float64) {
	dc := r.dc
	switch shape {
	case game.ShapeSquare:
		dc.DrawRegularPolygon(4, x, y, radius, math.Pi/4)
	case game.ShapeTriangle:
		dc.DrawRegularPolygon(3, x, y, radius, -math.Pi/2)
	case game.ShapeDiamond:
		dc.DrawRegularPolygon(4, x, y, radius, 0)
	case game.ShapeHexagon:
		dc.DrawRegularPolygon(6, x, y, radius, 0)
	case game.ShapeStar:
		dc.NewSubPath()
		for i := 0; i < 10; i++ {
			rr := radius
			if i%2 == 1 {
				rr *= 0.45
			}
			a := -math.Pi/2 + float64(i)*math.Pi/5
			dc.LineTo(x+rr*math.Cos(a), y+rr*math.Sin(a))
		}
		dc.ClosePath()
	default:
		dc.DrawCircle(x, y, radius)
	}
}

func (r *Renderer) drawProjectiles(v view, projectiles []game.ProjectileView) {
	dc := r.dc
	for _, p := range projectiles {
		if !p.Visible {
			continue
		}
		c := parseHexColor(p.Color)

		for i := 0; i < p.TrailLen; i++ {
			tx, ty := v.point(p.Trail[i].X, p.Trail[i].Y)
			dc.SetColor(withAlpha(c, 0.5*float64(p.TrailLen-i)/float64(p.TrailLen+1)))
			dc.DrawCircle(tx, ty, v.length(p.Radius)*0.7)
			dc.Fill()
		}

		x, y := v.point(p.X, p.Y)
		radius := v.length(p.Radius)
		dc.Push()
		dc.Translate(x, y)
		dc.Rotate(p.Rotation)
		dc.SetColor(c)
		switch p.Kind {
		case game.ProjectileBeam, game.ProjectileArc:
			dc.SetLineWidth(3)
			dc.DrawLine(-radius*2.5, 0, radius*2.5, 0)
			dc.Stroke()
		case game.ProjectileMissile, game.ProjectileEnemyMissile:
			dc.MoveTo(radius*1.6, 0)
			dc.LineTo(-radius, -radius*0.8)
			dc.LineTo(-radius, radius*0.8)
			dc.ClosePath()
			dc.Fill()
		default:
			dc.DrawCircle(0, 0, radius)
			dc.Fill()
		}
		dc.Pop()
	}
}

// drawParticles writes particles directly into the frame buffer.
func (r *Renderer) drawParticles(v view, particles []game.ParticleView) {
	if len(particles) == 0 {
		return
	}
	img, ok := r.dc.Image().(*image.RGBA)
	if !ok {
		return
	}
	pw := newPixelWriter(r.width, r.height, img.Pix)
	for _, p := range particles {
		x, y := v.point(p.X, p.Y)
		pw.fillCircle(int(x+0.5), int(y+0.5), v.length(p.Size), withAlpha(parseHexColor(p.Color), p.Alpha))
	}
}

func (r *Renderer) drawPlayer(v view, p game.PlayerStats) {
	dc := r.dc
	x, y := v.point(p.X, p.Y)
	radius := v.length(14)

	c := playerColor
	if p.Dead {
		c = deadColor
	}

	if r.shadow > 0 {
		dc.SetColor(withAlpha(shadowColor, 0.5*r.shadow))
		dc.DrawCircle(x, y+radius*0.3, radius)
		dc.Fill()
	}

	dc.SetColor(c)
	dc.DrawCircle(x, y, radius)
	dc.Fill()

	if p.Invulnerable || p.Dashing {
		dc.SetColor(color.NRGBA{255, 255, 255, 160})
		dc.SetLineWidth(3)
		dc.DrawCircle(x, y, radius+4)
		dc.Stroke()
	}

	if !p.Dead {
		dc.SetColor(color.White)
		dc.SetLineWidth(3)
		dc.DrawLine(x, y, x+p.FacingX*radius*1.6, y+p.FacingY*radius*1.6)
		dc.Stroke()
	}
}

func (r *Renderer) drawHUD(snap *game.Snapshot) {
	dc := r.dc
	p := snap.Player
	const margin = 16.0

	ratio := 0.0
	if p.MaxHealth > 0 {
		ratio = p.Health / p.MaxHealth
	}
	r.bar(margin, margin, 240, 14, ratio, healthColor(ratio))

	xp := 0.0
	if p.XPToNext > 0 {
		xp = float64(p.XP) / float64(p.XPToNext)
	}
	r.bar(margin, margin+20, 240, 8, xp, xpColor)

	dc.SetColor(color.White)
	minutes := int(p.Survived) / 60
	seconds := int(p.Survived) % 60
	dc.DrawString(fmt.Sprintf("LV %d  KILLS %d  BOSSES %d  %02d:%02d", p.Level, p.Kills, p.BossKills, minutes, seconds),
		margin, margin+44)
	dc.DrawStringAnchored(fmt.Sprintf("Q%d  %.0f fps  %d enemies", snap.Quality, snap.FPS, snap.EnemyCount),
		float64(r.width)-margin, margin+8, 1, 0.5)

	cx, cy := float64(r.width)/2, float64(r.height)/2
	switch {
	case snap.GameOver:
		dc.DrawStringAnchored("GAME OVER", cx, cy, 0.5, 0.5)
	case snap.AwaitingChoice:
		dc.DrawStringAnchored("CHOOSE AN UPGRADE", cx, cy-20*float64(len(snap.Offers)), 0.5, 0.5)
		for i, o := range snap.Offers {
			dc.DrawStringAnchored(fmt.Sprintf("%d. %s", i+1, o.Label), cx, cy+20*float64(i-len(snap.Offers)/2), 0.5, 0.5)
		}
	case snap.Paused:
		dc.DrawStringAnchored("PAUSED", cx, cy, 0.5, 0.5)
	}
}

// bar draws a background track and a fill of ratio (clamped to 0..1).
func (r *Renderer) bar(x, y, w, h, ratio float64, fill color.Color) {
	dc := r.dc
	ratio = math.Max(0, math.Min(1, ratio))
	dc.SetColor(hudBack)
	dc.DrawRectangle(x, y, w, h)
	dc.Fill()
	if ratio > 0 {
		dc.SetColor(fill)
		dc.DrawRectangle(x, y, w*ratio, h)
		dc.Fill()
	}
}

func healthColor(ratio float64) color.RGBA {
	switch {
	case ratio > 0.5:
		return healthHigh
	case ratio > 0.25:
		return healthMid
	default:
		return healthLow
	}
}
