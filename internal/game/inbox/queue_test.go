package inbox

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := New[int](4)
	require.Equal(t, 4, q.Cap())

	for i := 1; i <= 4; i++ {
		require.True(t, q.TryPush(i))
	}
	assert.False(t, q.TryPush(5), "full queue rejects")
	assert.Equal(t, 4, q.Len())

	for i := 1; i <= 4; i++ {
		v, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok := q.TryPop()
	assert.False(t, ok)
}

func TestQueueCapacityRoundsUp(t *testing.T) {
	assert.Equal(t, 8, New[int](5).Cap())
	assert.Equal(t, 1, New[int](0).Cap())
}

func TestQueueWrapsAround(t *testing.T) {
	q := New[int](2)
	for i := 0; i < 100; i++ {
		require.True(t, q.TryPush(i))
		v, ok := q.TryPop()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	const producers = 8
	const perProducer = 500

	q := New[int](producers * perProducer)
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				for !q.TryPush(base + i) {
				}
			}
		}(p * perProducer)
	}
	wg.Wait()

	seen := make(map[int]bool, producers*perProducer)
	buf := make([]int, 64)
	for {
		n := q.DrainTo(buf)
		if n == 0 {
			break
		}
		for _, v := range buf[:n] {
			require.False(t, seen[v], "duplicate %d", v)
			seen[v] = true
		}
	}
	assert.Len(t, seen, producers*perProducer)
}
