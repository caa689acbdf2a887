package game

import (
	"slices"
	"sync/atomic"
	"time"
)

// SnapshotLimits caps how much a single snapshot may carry. Slices are
// preallocated to these sizes; entities past a cap are not rendered.
type SnapshotLimits struct {
	MaxEnemies     int
	MaxProjectiles int
	MaxOrbs        int
	MaxParticles   int
	MaxExplosions  int
}

// DefaultSnapshotLimits provides production-safe default limits
var DefaultSnapshotLimits = SnapshotLimits{
	MaxEnemies:     600,
	MaxProjectiles: 1024,
	MaxOrbs:        512,
	MaxParticles:   1024,
	MaxExplosions:  MaxExplosions,
}

// CameraView is the viewport the snapshot was culled against
type CameraView struct {
	X      float64 `json:"x"` // top-left, shake included
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ShakeSnapshot captures screen shake state
type ShakeSnapshot struct {
	OffsetX   float64 `json:"offsetX"`
	OffsetY   float64 `json:"offsetY"`
	Intensity float64 `json:"intensity"`
}

// Snapshot is a complete immutable view of the simulation for rendering and
// the HUD. All slices are pre-allocated and capped.
type Snapshot struct {
	Sequence  uint64    `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Tick      uint64    `json:"tick"`
	RunID     string    `json:"runId"`

	Camera          CameraView      `json:"camera"`
	Shake           ShakeSnapshot   `json:"shake"`
	Quality         int             `json:"quality"`
	QualitySettings QualitySettings `json:"qualitySettings"`
	FPS             float64         `json:"fps"`

	Paused         bool           `json:"paused"`
	AwaitingChoice bool           `json:"awaitingChoice"`
	Offers         []UpgradeOffer `json:"offers"`
	GameOver       bool           `json:"gameOver"`

	Player      PlayerStats      `json:"player"`
	Weapons     []WeaponState    `json:"weapons"`
	Passives    []PassiveState   `json:"passives"`
	Enemies     []EnemyView      `json:"enemies"`
	Projectiles []ProjectileView `json:"projectiles"`
	Orbs        []OrbView        `json:"orbs"`
	Particles   []ParticleView   `json:"particles"`
	Explosions  []ExplosionView  `json:"explosions"`

	// Aggregate counts before culling
	EnemyCount      int `json:"enemyCount"`
	ProjectileCount int `json:"projectileCount"`

	slot int
}

// reset clears every slice but keeps capacity.
func (s *Snapshot) reset() {
	s.Offers = s.Offers[:0]
	s.Weapons = s.Weapons[:0]
	s.Passives = s.Passives[:0]
	s.Enemies = s.Enemies[:0]
	s.Projectiles = s.Projectiles[:0]
	s.Orbs = s.Orbs[:0]
	s.Particles = s.Particles[:0]
	s.Explosions = s.Explosions[:0]
	s.Shake = ShakeSnapshot{}
	s.Player = PlayerStats{}
}

// Clone returns a deep copy that the caller owns.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	c.Offers = slices.Clone(s.Offers)
	c.Weapons = slices.Clone(s.Weapons)
	c.Passives = slices.Clone(s.Passives)
	c.Enemies = slices.Clone(s.Enemies)
	c.Projectiles = slices.Clone(s.Projectiles)
	c.Orbs = slices.Clone(s.Orbs)
	c.Particles = slices.Clone(s.Particles)
	c.Explosions = slices.Clone(s.Explosions)
	c.slot = -1
	return &c
}

const snapshotSlots = 3

// SnapshotPool is a triple buffer with one producer (the simulation
// goroutine) and any number of readers.
//
// Each slot carries a reader count. The producer only writes a slot that is
// neither published nor being read; if no such slot exists it skips the
// frame. A reader pins the published slot, then re-checks that it is still
// published before trusting it.
type SnapshotPool struct {
	snapshots [snapshotSlots]Snapshot
	readers   [snapshotSlots]atomic.Int32
	published atomic.Int32 // -1 until the first publish
	writing   int          // producer-only
	sequence  uint64       // producer-only
	limits    SnapshotLimits
	skipped   atomic.Uint64
}

// NewSnapshotPool creates a pool with pre-allocated slices
func NewSnapshotPool(limits SnapshotLimits) *SnapshotPool {
	p := &SnapshotPool{limits: limits, writing: -1}
	p.published.Store(-1)

	for i := range p.snapshots {
		p.snapshots[i] = Snapshot{
			Offers:      make([]UpgradeOffer, 0, 4),
			Weapons:     make([]WeaponState, 0, MaxWeapons),
			Passives:    make([]PassiveState, 0, passiveCount),
			Enemies:     make([]EnemyView, 0, limits.MaxEnemies),
			Projectiles: make([]ProjectileView, 0, limits.MaxProjectiles),
			Orbs:        make([]OrbView, 0, limits.MaxOrbs),
			Particles:   make([]ParticleView, 0, limits.MaxParticles),
			Explosions:  make([]ExplosionView, 0, limits.MaxExplosions),
			slot:        i,
		}
	}
	return p
}

// AcquireWrite returns a cleared slot for the producer, or nil when every
// candidate slot is pinned by a reader.
func (p *SnapshotPool) AcquireWrite() *Snapshot {
	pub := p.published.Load()
	for i := 0; i < snapshotSlots; i++ {
		if int32(i) == pub || p.readers[i].Load() > 0 {
			continue
		}
		snap := &p.snapshots[i]
		snap.reset()
		p.sequence++
		snap.Sequence = p.sequence
		snap.Timestamp = time.Now()
		p.writing = i
		return snap
	}
	p.skipped.Add(1)
	return nil
}

// PublishWrite makes the slot from the last AcquireWrite the latest one.
func (p *SnapshotPool) PublishWrite() {
	if p.writing < 0 {
		return
	}
	p.published.Store(int32(p.writing))
	p.writing = -1
}

// AcquireRead pins and returns the latest published snapshot, or nil before
// the first publish. Every non-nil result must be passed to ReleaseRead.
func (p *SnapshotPool) AcquireRead() *Snapshot {
	for {
		idx := p.published.Load()
		if idx < 0 {
			return nil
		}
		p.readers[idx].Add(1)
		if p.published.Load() == idx {
			return &p.snapshots[idx]
		}
		p.readers[idx].Add(-1)
	}
}

// ReleaseRead unpins a snapshot from AcquireRead.
func (p *SnapshotPool) ReleaseRead(s *Snapshot) {
	if s == nil || s.slot < 0 || s.slot >= snapshotSlots {
		return
	}
	p.readers[s.slot].Add(-1)
}

// View runs fn against the latest snapshot while it is pinned. It reports
// false before the first publish.
func (p *SnapshotPool) View(fn func(*Snapshot)) bool {
	snap := p.AcquireRead()
	if snap == nil {
		return false
	}
	defer p.ReleaseRead(snap)
	fn(snap)
	return true
}

// Skipped returns how many frames were dropped because readers pinned every
// free slot.
func (p *SnapshotPool) Skipped() uint64 {
	return p.skipped.Load()
}

// Limits returns the resource limits
func (p *SnapshotPool) Limits() SnapshotLimits {
	return p.limits
}
