package spatial

// Class selects the culling rules for an entity category.
type Class uint8

const (
	ClassEnemy Class = iota
	ClassBoss
	ClassProjectile
	ClassOrb
	ClassParticle
	classCount
)

// classRule is the per-class margin (pixels past the viewport edge that still
// count as visible) and level-of-detail cutoff (max distance from the view
// centre; 0 disables the cutoff).
type classRule struct {
	margin float64
	lod    float64
}

var defaultRules = [classCount]classRule{
	ClassEnemy:      {margin: 64, lod: 0},
	ClassBoss:       {margin: 160, lod: 0},
	ClassProjectile: {margin: 32, lod: 900},
	ClassOrb:        {margin: 24, lod: 0},
	ClassParticle:   {margin: 8, lod: 600},
}

// Culler answers "should this be drawn" for one camera position.
// It is rebuilt every frame by the snapshot producer; it holds no entity state.
type Culler struct {
	minX, minY float64
	maxX, maxY float64
	cx, cy     float64
	lodScale   float64
	rules      [classCount]classRule
}

// NewCuller returns a culler with the default per-class rules.
func NewCuller() *Culler {
	return &Culler{lodScale: 1, rules: defaultRules}
}

// SetView positions the viewport. (x, y) is the top-left corner in world units.
func (c *Culler) SetView(x, y, width, height float64) {
	c.minX, c.minY = x, y
	c.maxX, c.maxY = x+width, y+height
	c.cx, c.cy = x+width*0.5, y+height*0.5
}

// SetLODScale scales every level-of-detail cutoff; lower quality levels pass
// a smaller scale so distant cosmetic entities drop out sooner.
func (c *Culler) SetLODScale(scale float64) {
	if scale <= 0 {
		scale = 1
	}
	c.lodScale = scale
}

// Visible reports whether an entity of the given class at (x, y) with the
// given radius should be handed to the renderer.
func (c *Culler) Visible(class Class, x, y, radius float64) bool {
	if class >= classCount {
		return true
	}
	rule := c.rules[class]
	pad := rule.margin + radius
	if x < c.minX-pad || x > c.maxX+pad || y < c.minY-pad || y > c.maxY+pad {
		return false
	}
	if rule.lod > 0 {
		cutoff := rule.lod * c.lodScale
		dx := x - c.cx
		dy := y - c.cy
		if dx*dx+dy*dy > cutoff*cutoff {
			return false
		}
	}
	return true
}
