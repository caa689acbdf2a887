// Package pool provides fixed-growth object pools for simulation entities.
//
// A Pool owns an arena of pointers plus a stack of free indices, so Acquire
// and Release are O(1) and never scan. Pools grow only when every slot is
// in use and never shrink on their own; Compact trims idle slots and is meant
// to be called from idle-time housekeeping, not from a tick.
package pool

// Slot is embedded by every pooled type. It records the arena index and the
// active flag; the pool is the only writer.
type Slot struct {
	index  int32
	active bool
}

// Active reports whether the object is currently handed out.
func (s *Slot) Active() bool { return s.active }

func (s *Slot) slot() *Slot { return s }

// Pooled is satisfied by any pointer to a struct that embeds Slot.
type Pooled interface {
	slot() *Slot
}

// Pool hands out reusable *T values.
type Pool[T any, P interface {
	*T
	Pooled
}] struct {
	items   []P
	free    []int32 // stack; top is the next slot handed out
	reset   func(P) // restores pool-default field values
	minSize int
	active  int
	grown   uint64
}

// New creates a pool with minSize preallocated inactive slots.
// reset must restore every mutable field to its pool default; it is applied
// on Acquire and on Release and must not touch the embedded Slot.
func New[T any, P interface {
	*T
	Pooled
}](minSize int, reset func(P)) *Pool[T, P] {
	if minSize < 0 {
		minSize = 0
	}
	p := &Pool[T, P]{
		items:   make([]P, 0, minSize),
		free:    make([]int32, 0, minSize),
		reset:   reset,
		minSize: minSize,
	}
	for i := 0; i < minSize; i++ {
		obj := P(new(T))
		obj.slot().index = int32(i)
		if reset != nil {
			reset(obj)
		}
		p.items = append(p.items, obj)
	}
	p.rebuildFree()
	return p
}

// Acquire returns an inactive object marked active with defaults applied.
// When every slot is active the arena grows by one.
func (p *Pool[T, P]) Acquire() P {
	var obj P
	if n := len(p.free); n > 0 {
		obj = p.items[p.free[n-1]]
		p.free = p.free[:n-1]
	} else {
		obj = P(new(T))
		obj.slot().index = int32(len(p.items))
		p.items = append(p.items, obj)
		p.grown++
	}
	if p.reset != nil {
		p.reset(obj)
	}
	obj.slot().active = true
	p.active++
	return obj
}

// Release returns obj to the pool. It reports false, and changes nothing,
// when obj is not an active member of this pool.
func (p *Pool[T, P]) Release(obj P) bool {
	if obj == nil {
		return false
	}
	s := obj.slot()
	if !s.active || int(s.index) >= len(p.items) || p.items[s.index] != obj {
		return false
	}
	s.active = false
	if p.reset != nil {
		p.reset(obj)
	}
	p.free = append(p.free, s.index)
	p.active--
	return true
}

// ReleaseAll marks every slot inactive and restores defaults.
func (p *Pool[T, P]) ReleaseAll() {
	for _, obj := range p.items {
		s := obj.slot()
		if s.active {
			s.active = false
			if p.reset != nil {
				p.reset(obj)
			}
		}
	}
	p.active = 0
	p.rebuildFree()
}

// Compact drops trailing inactive slots beyond the minimum size and returns
// how many were removed. Indices of surviving slots are unchanged.
func (p *Pool[T, P]) Compact() int {
	n := len(p.items)
	for n > p.minSize && !p.items[n-1].slot().active {
		p.items[n-1] = nil
		n--
	}
	removed := len(p.items) - n
	if removed == 0 {
		return 0
	}
	p.items = p.items[:n]
	p.rebuildFree()
	return removed
}

// rebuildFree pushes inactive indices in descending order so the lowest
// index is handed out first.
func (p *Pool[T, P]) rebuildFree() {
	p.free = p.free[:0]
	for i := len(p.items) - 1; i >= 0; i-- {
		if !p.items[i].slot().active {
			p.free = append(p.free, int32(i))
		}
	}
}

// ForEachActive calls fn for every active object in arena order until fn
// returns false.
func (p *Pool[T, P]) ForEachActive(fn func(P) bool) {
	for _, obj := range p.items {
		if obj.slot().active && !fn(obj) {
			return
		}
	}
}

// Len returns the arena size (active + inactive).
func (p *Pool[T, P]) Len() int { return len(p.items) }

// Active returns the number of objects currently handed out.
func (p *Pool[T, P]) Active() int { return p.active }

// MinSize returns the floor Compact never trims below.
func (p *Pool[T, P]) MinSize() int { return p.minSize }

// Grown returns how many times the arena grew because it was exhausted.
func (p *Pool[T, P]) Grown() uint64 { return p.grown }

// Stats is a point-in-time view for metrics.
type Stats struct {
	Len    int
	Active int
	Grown  uint64
}

// Stats returns the pool counters.
func (p *Pool[T, P]) Stats() Stats {
	return Stats{Len: len(p.items), Active: p.active, Grown: p.grown}
}
