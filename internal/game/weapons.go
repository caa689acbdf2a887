package game

// WeaponKind identifies a weapon type. Base kinds can be offered as new
// weapons; evolved and merged kinds are only reachable through the rules
// below.
type WeaponKind uint8

const (
	WeaponBlaster WeaponKind = iota
	WeaponSpread
	WeaponHoming
	WeaponCannon
	WeaponChain
	WeaponRapid
	WeaponRailgun        // evolution of Blaster
	WeaponFlak           // evolution of Spread
	WeaponClusterMissile // merge: Homing + Cannon
	WeaponStormLance     // merge: Chain + Railgun
	WeaponMinigun        // merge: Spread + Rapid
	weaponKindCount
)

// Weapon limits
const (
	MaxWeapons         = 6
	MaxWeaponLevel     = 8
	ProjectileLevelCap = 5 // projectile count only grows below this level
)

// weaponDef is the static configuration of a weapon kind.
type weaponDef struct {
	Name           string
	Color          string
	Projectile     ProjectileKind
	Damage         float64
	DamagePerLevel float64
	FireRate       int // ticks between shots
	Projectiles    int
	MaxProjectiles int
	Spread         float64 // radians between sibling projectiles
	Speed          float64 // px per tick
	Lifetime       int     // ticks
	Radius         float64
	Homing         float64 // steering blend per tick (0 = straight)
	Explosion      float64 // explosion radius (0 = none)
	Chain          int     // extra targets after the first hit
	Pierce         int     // enemies passed through before release
	Burst          bool
	BurstFire      int // ticks in the firing window
	BurstBreak     int // ticks in the break window
	Base           bool
	Merge          bool
}

// weaponDefs is indexed by WeaponKind.
// NOTE: Fire rates are in ticks at 60 TPS.
var weaponDefs = [weaponKindCount]weaponDef{
	WeaponBlaster: {
		Name: "Blaster", Color: "#4fc3f7", Projectile: ProjectileBolt,
		Damage: 10, DamagePerLevel: 3, FireRate: 40, Projectiles: 1, MaxProjectiles: 3,
		Spread: 0.08, Speed: 8, Lifetime: 90, Radius: 5, Base: true,
	},
	WeaponSpread: {
		Name: "Spread Shot", Color: "#ffb74d", Projectile: ProjectilePellet,
		Damage: 6, DamagePerLevel: 2, FireRate: 55, Projectiles: 3, MaxProjectiles: 7,
		Spread: 0.18, Speed: 7, Lifetime: 60, Radius: 4, Base: true,
	},
	WeaponHoming: {
		Name: "Seeker", Color: "#ba68c8", Projectile: ProjectileMissile,
		Damage: 9, DamagePerLevel: 3, FireRate: 60, Projectiles: 1, MaxProjectiles: 4,
		Spread: 0.35, Speed: 5, Lifetime: 150, Radius: 6, Homing: 0.08, Base: true,
	},
	WeaponCannon: {
		Name: "Cannon", Color: "#e57373", Projectile: ProjectileShell,
		Damage: 22, DamagePerLevel: 6, FireRate: 90, Projectiles: 1, MaxProjectiles: 2,
		Spread: 0.2, Speed: 5, Lifetime: 100, Radius: 8, Explosion: 60, Base: true,
	},
	WeaponChain: {
		Name: "Arc Coil", Color: "#fff176", Projectile: ProjectileArc,
		Damage: 8, DamagePerLevel: 3, FireRate: 70, Projectiles: 1, MaxProjectiles: 3,
		Spread: 0.25, Speed: 9, Lifetime: 80, Radius: 5, Chain: 3, Base: true,
	},
	WeaponRapid: {
		Name: "Rapid Fire", Color: "#81c784", Projectile: ProjectileBolt,
		Damage: 4, DamagePerLevel: 1.5, FireRate: 6, Projectiles: 1, MaxProjectiles: 2,
		Spread: 0.05, Speed: 10, Lifetime: 60, Radius: 3,
		Burst: true, BurstFire: 36, BurstBreak: 48, Base: true,
	},
	WeaponRailgun: {
		Name: "Railgun", Color: "#00e5ff", Projectile: ProjectileBeam,
		Damage: 40, DamagePerLevel: 8, FireRate: 50, Projectiles: 1, MaxProjectiles: 3,
		Spread: 0.06, Speed: 16, Lifetime: 60, Radius: 6, Pierce: 5,
	},
	WeaponFlak: {
		Name: "Flak", Color: "#ff8a65", Projectile: ProjectileFlak,
		Damage: 10, DamagePerLevel: 3, FireRate: 50, Projectiles: 5, MaxProjectiles: 9,
		Spread: 0.2, Speed: 7, Lifetime: 50, Radius: 5, Explosion: 30,
	},
	WeaponClusterMissile: {
		Name: "Cluster Missile", Color: "#f06292", Projectile: ProjectileMissile,
		Damage: 30, DamagePerLevel: 6, FireRate: 75, Projectiles: 3, MaxProjectiles: 5,
		Spread: 0.4, Speed: 5.5, Lifetime: 160, Radius: 7, Homing: 0.1, Explosion: 70, Merge: true,
	},
	WeaponStormLance: {
		Name: "Storm Lance", Color: "#b388ff", Projectile: ProjectileBeam,
		Damage: 45, DamagePerLevel: 8, FireRate: 45, Projectiles: 1, MaxProjectiles: 3,
		Spread: 0.1, Speed: 15, Lifetime: 70, Radius: 7, Chain: 5, Pierce: 3, Merge: true,
	},
	WeaponMinigun: {
		Name: "Minigun", Color: "#aed581", Projectile: ProjectilePellet,
		Damage: 6, DamagePerLevel: 2, FireRate: 3, Projectiles: 2, MaxProjectiles: 4,
		Spread: 0.1, Speed: 11, Lifetime: 55, Radius: 3,
		Burst: true, BurstFire: 60, BurstBreak: 40, Merge: true,
	},
}

// defFor returns the definition of a kind, defaulting to the Blaster.
func defFor(k WeaponKind) *weaponDef {
	if k >= weaponKindCount {
		return &weaponDefs[WeaponBlaster]
	}
	return &weaponDefs[k]
}

// String returns the display name.
func (k WeaponKind) String() string {
	return defFor(k).Name
}

// evolution transforms a weapon when it reaches a level.
type evolution struct {
	From  WeaponKind
	Level int
	To    WeaponKind
}

var evolutions = []evolution{
	{From: WeaponBlaster, Level: 5, To: WeaponRailgun},
	{From: WeaponSpread, Level: 5, To: WeaponFlak},
}

func evolutionFor(k WeaponKind, level int) (WeaponKind, bool) {
	for _, e := range evolutions {
		if e.From == k && e.Level == level {
			return e.To, true
		}
	}
	return k, false
}

// mergeRecipe combines two distinct weapons at or above minimum levels.
type mergeRecipe struct {
	A, B       WeaponKind
	MinA, MinB int
	Result     WeaponKind
}

// Evaluated in order; the first match wins.
var mergeRecipes = []mergeRecipe{
	{A: WeaponHoming, B: WeaponCannon, MinA: 3, MinB: 3, Result: WeaponClusterMissile},
	{A: WeaponChain, B: WeaponRailgun, MinA: 3, MinB: 1, Result: WeaponStormLance},
	{A: WeaponSpread, B: WeaponRapid, MinA: 4, MinB: 4, Result: WeaponMinigun},
}

// burstState alternates between firing and break windows.
type burstState struct {
	Breaking bool
	Ticks    int
}

// Weapon is one entry in the player's weapon list.
type Weapon struct {
	Kind            WeaponKind
	Level           int
	Damage          float64
	FireRate        int
	ProjectileCount int
	IsMerge         bool

	Timer int // counts up to the fire-rate threshold
	Burst burstState
	Fired uint64
}

// NewWeapon creates a level-1 weapon of the given kind.
func NewWeapon(k WeaponKind) *Weapon {
	def := defFor(k)
	if k >= weaponKindCount {
		k = WeaponBlaster
	}
	return &Weapon{
		Kind:            k,
		Level:           1,
		Damage:          def.Damage,
		FireRate:        def.FireRate,
		ProjectileCount: def.Projectiles,
		IsMerge:         def.Merge,
	}
}

// UpgradeResult describes what an upgrade did.
type UpgradeResult struct {
	Upgraded bool
	Evolved  bool
	From, To WeaponKind
}

// Upgrade raises the level by one: damage always grows, the projectile count
// grows below ProjectileLevelCap, and certain (kind, level) pairs evolve the
// weapon into a different kind in place.
func (w *Weapon) Upgrade() UpgradeResult {
	res := UpgradeResult{From: w.Kind, To: w.Kind}
	if w.Level >= MaxWeaponLevel {
		return res
	}

	def := defFor(w.Kind)
	w.Level++
	w.Damage += def.DamagePerLevel
	if w.Level < ProjectileLevelCap && w.ProjectileCount < def.MaxProjectiles {
		w.ProjectileCount++
	}
	res.Upgraded = true

	if to, ok := evolutionFor(w.Kind, w.Level); ok {
		next := defFor(to)
		w.Kind = to
		w.FireRate = next.FireRate
		if w.Damage < next.Damage {
			w.Damage = next.Damage
		}
		if w.ProjectileCount < next.Projectiles {
			w.ProjectileCount = next.Projectiles
		}
		w.Burst = burstState{}
		res.Evolved = true
		res.To = to
	}
	return res
}

// MergeResult describes a merge.
type MergeResult struct {
	A, B   WeaponKind
	Result WeaponKind
}

// checkMerge applies at most one merge recipe. The merged weapon takes the
// slot of the earlier input; the later input is removed in place.
func checkMerge(weapons []*Weapon) ([]*Weapon, MergeResult, bool) {
	for _, r := range mergeRecipes {
		ia, ib := -1, -1
		for i, w := range weapons {
			switch {
			case ia < 0 && w.Kind == r.A && w.Level >= r.MinA:
				ia = i
			case ib < 0 && w.Kind == r.B && w.Level >= r.MinB:
				ib = i
			}
		}
		if ia < 0 || ib < 0 {
			continue
		}

		first, second := ia, ib
		if second < first {
			first, second = second, first
		}
		weapons[first] = NewWeapon(r.Result)
		copy(weapons[second:], weapons[second+1:])
		weapons[len(weapons)-1] = nil
		weapons = weapons[:len(weapons)-1]

		return weapons, MergeResult{A: r.A, B: r.B, Result: r.Result}, true
	}
	return weapons, MergeResult{}, false
}

// hasWeapon reports whether the list holds a kind.
func hasWeapon(weapons []*Weapon, k WeaponKind) bool {
	for _, w := range weapons {
		if w.Kind == k {
			return true
		}
	}
	return false
}

// WeaponState is the HUD view of one weapon.
type WeaponState struct {
	Kind            WeaponKind `json:"kind"`
	Name            string     `json:"name"`
	Color           string     `json:"color"`
	Level           int        `json:"level"`
	Damage          float64    `json:"damage"`
	FireRate        int        `json:"fireRate"`
	ProjectileCount int        `json:"projectileCount"`
	IsMerge         bool       `json:"isMerge"`
	Breaking        bool       `json:"breaking"`
	TotalDamage     float64    `json:"totalDamage"`
}

func (w *Weapon) state(totalDamage float64) WeaponState {
	def := defFor(w.Kind)
	return WeaponState{
		Kind:            w.Kind,
		Name:            def.Name,
		Color:           def.Color,
		Level:           w.Level,
		Damage:          w.Damage,
		FireRate:        w.FireRate,
		ProjectileCount: w.ProjectileCount,
		IsMerge:         w.IsMerge,
		Breaking:        w.Burst.Breaking,
		TotalDamage:     totalDamage,
	}
}
