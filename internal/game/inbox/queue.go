// Package inbox implements the bounded multi-producer single-consumer queue
// that carries collaborator commands (input, pause, reset, quality override)
// into the simulation goroutine.
//
// Producers are HTTP handlers and websocket readers; the only consumer is the
// frame loop, which drains the queue at the frame boundary.
//
// Each slot carries a sequence number (Vyukov bounded queue) so a consumer
// never observes a slot whose producer has claimed it but not finished
// writing.
package inbox

import (
	"runtime"
	"sync/atomic"
)

// CacheLineSize is the typical CPU cache line size (64 bytes on x86-64)
const CacheLineSize = 64

// Padding ensures variables don't share cache lines (prevents false sharing)
type Padding [CacheLineSize]byte

type cell[T any] struct {
	seq  atomic.Uint64
	item T
}

// Queue is a bounded MPSC ring buffer.
//
// Memory Layout (prevents false sharing):
// [Padding][head][Padding][tail][Padding][cells...]
type Queue[T any] struct {
	_pad0 Padding

	head  atomic.Uint64 // next position producers claim
	_pad1 Padding

	tail  atomic.Uint64 // next position the consumer reads
	_pad2 Padding

	mask  uint64
	cells []cell[T]
}

// New creates a queue. capacity is rounded up to a power of two.
func New[T any](capacity int) *Queue[T] {
	size := 1
	for size < capacity {
		size <<= 1
	}

	q := &Queue[T]{
		mask:  uint64(size - 1),
		cells: make([]cell[T], size),
	}
	for i := range q.cells {
		q.cells[i].seq.Store(uint64(i))
	}
	return q
}

// TryPush adds an item. It returns false when the queue is full.
// Safe for concurrent producers.
func (q *Queue[T]) TryPush(item T) bool {
	for {
		pos := q.head.Load()
		c := &q.cells[pos&q.mask]
		seq := c.seq.Load()

		switch {
		case seq == pos:
			if q.head.CompareAndSwap(pos, pos+1) {
				c.item = item
				c.seq.Store(pos + 1)
				return true
			}
		case seq < pos:
			return false // full: consumer has not freed this slot yet
		}

		runtime.Gosched()
	}
}

// TryPop removes the oldest item. Consumer only.
func (q *Queue[T]) TryPop() (T, bool) {
	var zero T

	pos := q.tail.Load()
	c := &q.cells[pos&q.mask]
	if c.seq.Load() != pos+1 {
		return zero, false
	}

	item := c.item
	c.item = zero
	c.seq.Store(pos + q.mask + 1)
	q.tail.Store(pos + 1)
	return item, true
}

// DrainTo pops up to len(buf) items into buf and returns how many were
// written. Consumer only; does not allocate.
func (q *Queue[T]) DrainTo(buf []T) int {
	n := 0
	for n < len(buf) {
		item, ok := q.TryPop()
		if !ok {
			break
		}
		buf[n] = item
		n++
	}
	return n
}

// Len returns the approximate number of queued items.
func (q *Queue[T]) Len() int {
	head := q.head.Load()
	tail := q.tail.Load()
	if head < tail {
		return 0
	}
	return int(head - tail)
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return int(q.mask + 1)
}
