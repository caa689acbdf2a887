package game

import (
	"math/rand"

	"arena-survival/internal/config"
	"arena-survival/internal/game/mathx"
	"arena-survival/internal/game/pool"
	"arena-survival/internal/game/spatial"
)

// Grid sizing. The window is centred on the player each tick and must cover
// the spawn ring plus the boss leash.
const (
	gridWindow   = 2600.0
	gridCellSize = 120.0
)

const fxSeedMix = 0x5deece66d

// State is all mutable run state. It is owned by the simulation goroutine;
// nothing outside the package holds references into it.
type State struct {
	RunID string
	Seed  int64
	Tick  uint64

	Player      Player
	Enemies     []*Enemy
	Projectiles []*Projectile
	Orbs        [orbKindCount][]*Orb
	Particles   []*Particle
	Explosions  []Explosion
	Camera      Camera

	Offers []UpgradeOffer

	DamageByWeapon [weaponKindCount]float64
	Kills          int
	BossKills      int
	nextEnemyID    uint32

	spawnTimer   int
	bossTimer    int
	ambientTimer int
	magnetTicks  int

	bossAlive        bool
	speedFrozen      bool
	frozenSpeedMult  float64
	defeatSequences  int
	levelUpsDeferred bool
	awaitingChoice   bool
	pendingChoices   int
	paused           bool
	gameOver         bool
	spawningDisabled bool

	input Input
	rng   *rand.Rand // gameplay rolls
	fx    *rand.Rand // cosmetic rolls; quality may change how often it is drawn

	projectilePool *pool.Pool[Projectile, *Projectile]
	particlePool   *pool.Pool[Particle, *Particle]
	orbPools       [orbKindCount]*pool.Pool[Orb, *Orb]

	grid         *spatial.Grid
	buckets      behaviorBuckets
	threats      []mathx.Vec2
	candidates   []UpgradeOffer
	offerScratch []UpgradeOffer
}

// newState allocates pools and indexes once; reset prepares a run.
func newState(pools config.PoolConfig, orbs config.OrbBalance) *State {
	st := &State{
		Enemies:        make([]*Enemy, 0, 256),
		Projectiles:    make([]*Projectile, 0, pools.Projectiles),
		Particles:      make([]*Particle, 0, pools.Particles),
		Explosions:     make([]Explosion, 0, MaxExplosions),
		Offers:         make([]UpgradeOffer, 0, 4),
		projectilePool: pool.New[Projectile](pools.Projectiles, resetProjectile),
		particlePool:   pool.New[Particle](pools.Particles, resetParticle),
		grid:           spatial.NewGrid(gridWindow, gridWindow, gridCellSize, 512),
		threats:        make([]mathx.Vec2, 0, 128),
		candidates:     make([]UpgradeOffer, 0, 32),
		offerScratch:   make([]UpgradeOffer, 0, 4),
	}

	sizes := [orbKindCount]int{
		OrbXP:     pools.XPOrbs,
		OrbHeal:   pools.HealOrbs,
		OrbMagnet: pools.MagnetOrbs,
		OrbChest:  pools.ChestOrbs,
	}
	lifetimes := [orbKindCount]int{
		OrbXP:     orbs.XPLifetimeTicks,
		OrbHeal:   orbs.HealLifetimeTicks,
		OrbMagnet: orbs.MagnetLifetimeTicks,
		OrbChest:  chestLifetime,
	}
	for k := OrbKind(0); k < orbKindCount; k++ {
		st.orbPools[k] = pool.New[Orb](sizes[k], orbReset(k, lifetimes[k]))
		st.Orbs[k] = make([]*Orb, 0, sizes[k])
	}
	return st
}

// reset returns every entity to its pool and restores run defaults. Pools
// and slices keep their capacity.
func (st *State) reset(runID string, seed int64, maxHealth float64, viewW, viewH float64) {
	st.projectilePool.ReleaseAll()
	st.particlePool.ReleaseAll()
	for k := range st.orbPools {
		st.orbPools[k].ReleaseAll()
		clear(st.Orbs[k])
		st.Orbs[k] = st.Orbs[k][:0]
	}
	clear(st.Enemies)
	clear(st.Projectiles)
	clear(st.Particles)
	st.Enemies = st.Enemies[:0]
	st.Projectiles = st.Projectiles[:0]
	st.Particles = st.Particles[:0]
	st.Explosions = st.Explosions[:0]
	st.Offers = st.Offers[:0]

	st.RunID = runID
	st.Seed = seed
	st.Tick = 0
	st.Player.reset(maxHealth)
	st.Camera = newCamera(st.Player.Pos, viewW, viewH)

	st.DamageByWeapon = [weaponKindCount]float64{}
	st.Kills = 0
	st.BossKills = 0
	st.nextEnemyID = 0

	st.spawnTimer = 0
	st.bossTimer = 0
	st.ambientTimer = 0
	st.magnetTicks = 0

	st.bossAlive = false
	st.speedFrozen = false
	st.frozenSpeedMult = 1
	st.defeatSequences = 0
	st.levelUpsDeferred = false
	st.awaitingChoice = false
	st.pendingChoices = 0
	st.paused = false
	st.gameOver = false

	st.input = Input{}
	st.rng = rand.New(rand.NewSource(seed))
	st.fx = rand.New(rand.NewSource(seed ^ fxSeedMix))
}

// minutesSurvived converts the tick counter to minutes.
func (st *State) minutesSurvived(tickRate int) float64 {
	if tickRate <= 0 {
		return 0
	}
	return float64(st.Tick) / float64(tickRate) / 60
}

// orbCount is the number of pickups in play across every kind.
func (st *State) orbCount() int {
	n := 0
	for k := range st.Orbs {
		n += len(st.Orbs[k])
	}
	return n
}
