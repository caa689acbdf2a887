package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shard struct {
	Slot
	Life  int
	Glow  float64
	Value int
}

const shardLife = 30

func resetShard(s *shard) {
	s.Life = shardLife
	s.Glow = 1
	s.Value = 0
}

func newShardPool(min int) *Pool[shard, *shard] {
	return New[shard](min, resetShard)
}

func TestAcquireUsesPreallocatedSlots(t *testing.T) {
	p := newShardPool(4)
	require.Equal(t, 4, p.Len())
	require.Zero(t, p.Active())

	a := p.Acquire()
	b := p.Acquire()
	assert.True(t, a.Active())
	assert.True(t, b.Active())
	assert.NotSame(t, a, b)
	assert.Equal(t, 4, p.Len(), "no growth while free slots remain")
	assert.Equal(t, 2, p.Active())
	assert.Zero(t, p.Grown())
}

func TestAcquireGrowsWhenExhausted(t *testing.T) {
	p := newShardPool(2)
	p.Acquire()
	p.Acquire()
	c := p.Acquire()

	assert.True(t, c.Active())
	assert.Equal(t, 3, p.Len())
	assert.Equal(t, uint64(1), p.Grown())
}

func TestAcquireReleaseRestoresDefaults(t *testing.T) {
	p := newShardPool(1)

	s := p.Acquire()
	s.Life = 3
	s.Glow = 0.2
	s.Value = 99
	require.True(t, p.Release(s))

	assert.False(t, s.Active())
	assert.Equal(t, shardLife, s.Life)
	assert.Equal(t, 1.0, s.Glow)
	assert.Zero(t, s.Value)

	again := p.Acquire()
	assert.Same(t, s, again, "released slot is reused")
	assert.Zero(t, again.Value, "no stale payload leaks into the next acquisition")
}

func TestDoubleReleaseIsRejected(t *testing.T) {
	p := newShardPool(2)
	s := p.Acquire()

	assert.True(t, p.Release(s))
	assert.False(t, p.Release(s))
	assert.Zero(t, p.Active())

	foreign := newShardPool(1).Acquire()
	assert.False(t, p.Release(foreign), "objects from another pool are rejected")
	assert.False(t, p.Release(nil))
}

func TestActiveNeverExceedsLen(t *testing.T) {
	p := newShardPool(8)
	held := make([]*shard, 0, 64)

	for round := 0; round < 200; round++ {
		if round%3 == 2 && len(held) > 0 {
			p.Release(held[0])
			held = held[1:]
		} else {
			held = append(held, p.Acquire())
		}

		count := 0
		p.ForEachActive(func(*shard) bool {
			count++
			return true
		})
		require.Equal(t, p.Active(), count)
		require.LessOrEqual(t, p.Active(), p.Len())
	}
}

func TestReleaseAll(t *testing.T) {
	p := newShardPool(2)
	for i := 0; i < 5; i++ {
		p.Acquire().Value = i
	}

	p.ReleaseAll()

	assert.Zero(t, p.Active())
	assert.Equal(t, 5, p.Len(), "reset does not shrink")
	p.ForEachActive(func(*shard) bool {
		t.Fatal("no slot may be active after ReleaseAll")
		return false
	})
}

func TestCompactRespectsMinimumAndLiveSlots(t *testing.T) {
	p := newShardPool(2)
	objs := make([]*shard, 6)
	for i := range objs {
		objs[i] = p.Acquire()
	}
	require.Equal(t, 6, p.Len())

	// Keep slot 3 live; everything above it can go.
	for i, s := range objs {
		if i != 3 {
			p.Release(s)
		}
	}

	removed := p.Compact()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 4, p.Len())
	assert.True(t, objs[3].Active())

	p.Release(objs[3])
	assert.Equal(t, 2, p.Compact())
	assert.Equal(t, p.MinSize(), p.Len(), "never below the minimum")
	assert.Zero(t, p.Compact())
}

func TestLowestIndexHandedOutFirst(t *testing.T) {
	p := newShardPool(3)
	first := p.Acquire()
	assert.Equal(t, int32(0), first.index)
	second := p.Acquire()
	assert.Equal(t, int32(1), second.index)
}

func BenchmarkAcquireRelease(b *testing.B) {
	p := newShardPool(256)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s := p.Acquire()
		p.Release(s)
	}
}
