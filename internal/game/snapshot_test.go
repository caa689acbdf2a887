package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func publish(p *SnapshotPool, tick uint64) *Snapshot {
	snap := p.AcquireWrite()
	if snap == nil {
		return nil
	}
	snap.Tick = tick
	p.PublishWrite()
	return snap
}

func TestSnapshotPoolEmpty(t *testing.T) {
	p := NewSnapshotPool(DefaultSnapshotLimits)
	assert.Nil(t, p.AcquireRead())
	assert.False(t, p.View(func(*Snapshot) { t.Fatal("called before publish") }))

	p.PublishWrite()
	assert.Nil(t, p.AcquireRead(), "publish without a write does nothing")
}

func TestSnapshotPoolRotation(t *testing.T) {
	p := NewSnapshotPool(DefaultSnapshotLimits)
	for tick := uint64(1); tick <= 10; tick++ {
		require.NotNil(t, publish(p, tick))
		snap := p.AcquireRead()
		require.NotNil(t, snap)
		assert.Equal(t, tick, snap.Tick)
		assert.Equal(t, tick, snap.Sequence)
		p.ReleaseRead(snap)
	}
	assert.Zero(t, p.Skipped())
}

func TestPinnedSnapshotIsNotOverwritten(t *testing.T) {
	p := NewSnapshotPool(DefaultSnapshotLimits)

	publish(p, 1)
	a := p.AcquireRead()
	require.NotNil(t, a)

	publish(p, 2)
	b := p.AcquireRead()
	require.NotNil(t, b)
	require.NotSame(t, a, b)

	publish(p, 3)

	// Published slot plus two pinned slots: nothing left to write.
	assert.Nil(t, p.AcquireWrite())
	p.PublishWrite()
	assert.Equal(t, uint64(1), p.Skipped())
	assert.Equal(t, uint64(1), a.Tick)
	assert.Equal(t, uint64(2), b.Tick)

	latest := p.AcquireRead()
	assert.Equal(t, uint64(3), latest.Tick)
	p.ReleaseRead(latest)

	p.ReleaseRead(a)
	snap := publish(p, 4)
	require.NotNil(t, snap)
	assert.Same(t, a, snap, "the released slot is reused")
	p.ReleaseRead(b)
}

func TestReleaseReadIgnoresForeignSnapshots(t *testing.T) {
	p := NewSnapshotPool(DefaultSnapshotLimits)
	publish(p, 1)
	snap := p.AcquireRead()
	clone := snap.Clone()

	p.ReleaseRead(nil)
	p.ReleaseRead(clone)
	p.ReleaseRead(snap)

	assert.Equal(t, int32(0), p.readers[snap.slot].Load())
}

func TestSnapshotClone(t *testing.T) {
	snap := &Snapshot{
		Tick:    9,
		Enemies: []EnemyView{{ID: 1, Health: 10}},
		Weapons: []WeaponState{{Level: 2}},
	}
	c := snap.Clone()
	c.Enemies[0].Health = 0
	c.Weapons = append(c.Weapons, WeaponState{Level: 1})

	assert.Equal(t, 10.0, snap.Enemies[0].Health)
	assert.Len(t, snap.Weapons, 1)
	assert.Equal(t, uint64(9), c.Tick)
	assert.Equal(t, -1, c.slot)
}

// Readers must never observe a snapshot that is half written.
func TestSnapshotPoolConcurrentReaders(t *testing.T) {
	p := NewSnapshotPool(SnapshotLimits{MaxEnemies: 64})
	const writes = 5000

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		for tick := uint64(1); tick <= writes; tick++ {
			snap := p.AcquireWrite()
			if snap == nil {
				continue
			}
			snap.Tick = tick
			for i := 0; i < int(tick%64); i++ {
				snap.Enemies = append(snap.Enemies, EnemyView{ID: uint32(tick)})
			}
			snap.EnemyCount = len(snap.Enemies)
			p.PublishWrite()
		}
		return nil
	})

	for r := 0; r < 4; r++ {
		g.Go(func() error {
			var last uint64
			for ctx.Err() == nil {
				p.View(func(snap *Snapshot) {
					assert.GreaterOrEqual(t, snap.Tick, last)
					last = snap.Tick
					assert.Len(t, snap.Enemies, snap.EnemyCount)
					for _, e := range snap.Enemies {
						if e.ID != uint32(snap.Tick) {
							assert.Fail(t, "torn snapshot", "tick %d has enemy %d", snap.Tick, e.ID)
							return
						}
					}
				})
			}
			return nil
		})
	}

	require.NoError(t, g.Wait())
}
