// Package spatial provides the broad-phase grid and the viewport culling
// predicate used by the simulation.
//
// All structures use preallocated slices with integer indices (not pointers)
// to minimize GC pressure and maximize cache locality.
package spatial

import (
	"math"
)

// Grid provides O(1) average spatial queries via fixed-size cells.
//
// The arena is unbounded, so the grid covers a window anchored at a movable
// origin (normally centred on the player). Entities outside the window are
// clamped into the border cells; queries stay correct because callers always
// run a narrow-phase distance check on the candidates.
//
// Memory layout: cells are stored in row-major order (cells[row*cols+col])
type Grid struct {
	cellSize    float64
	invCellSize float64 // 1/cellSize for faster division
	cols, rows  int
	originX     float64
	originY     float64
	cells       [][]uint32 // cells[row*cols+col] = list of entity indices
	scratch     []uint32   // reusable buffer for query results
	count       int
}

// NewGrid creates a grid covering a width x height window.
// cellSize should be close to the largest query radius.
// maxEntities is used to preallocate cell capacity.
func NewGrid(width, height, cellSize float64, maxEntities int) *Grid {
	cols := int(math.Ceil(width / cellSize))
	rows := int(math.Ceil(height / cellSize))

	// Ensure at least 1x1 grid
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]uint32, cols*rows)
	avgPerCell := maxEntities / len(cells)
	if avgPerCell < 4 {
		avgPerCell = 4
	}
	for i := range cells {
		cells[i] = make([]uint32, 0, avgPerCell)
	}

	return &Grid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
		scratch:     make([]uint32, 0, 64),
	}
}

// Reset clears all cells and re-centres the window on (cx, cy).
// Underlying cell memory is kept.
func (g *Grid) Reset(cx, cy float64) {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	g.originX = cx - float64(g.cols)*g.cellSize*0.5
	g.originY = cy - float64(g.rows)*g.cellSize*0.5
	g.count = 0
}

// Insert adds an entity at position (x, y).
// The entityID should be the index into the caller's entity slice.
func (g *Grid) Insert(entityID uint32, x, y float64) {
	idx := g.cellIndex(x, y)
	g.cells[idx] = append(g.cells[idx], entityID)
	g.count++
}

func (g *Grid) colRow(x, y float64) (int, int) {
	col := int(math.Floor((x - g.originX) * g.invCellSize))
	row := int(math.Floor((y - g.originY) * g.invCellSize))
	return clampInt(col, 0, g.cols-1), clampInt(row, 0, g.rows-1)
}

// cellIndex computes the cell index for a position, clamped to the window.
func (g *Grid) cellIndex(x, y float64) int {
	col, row := g.colRow(x, y)
	return row*g.cols + col
}

// QueryRadius returns all entity IDs potentially within radius of (cx, cy).
//
// IMPORTANT: The returned slice is reused on subsequent calls.
// Copy the results if you need to persist them.
//
// The returned candidates may include entities outside the radius;
// the caller must perform a precise distance check (narrow phase).
func (g *Grid) QueryRadius(cx, cy, radius float64) []uint32 {
	g.scratch = g.scratch[:0]

	minCol, minRow := g.colRow(cx-radius, cy-radius)
	maxCol, maxRow := g.colRow(cx+radius, cy+radius)

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			g.scratch = append(g.scratch, g.cells[row*g.cols+col]...)
		}
	}

	return g.scratch
}

// Count returns the number of entities inserted since the last Reset.
func (g *Grid) Count() int { return g.count }

// Stats returns grid statistics for debugging/profiling.
func (g *Grid) Stats() GridStats {
	var totalEntities, maxInCell, nonEmpty int
	for _, cell := range g.cells {
		count := len(cell)
		totalEntities += count
		if count > maxInCell {
			maxInCell = count
		}
		if count > 0 {
			nonEmpty++
		}
	}

	avgPerCell := 0.0
	if nonEmpty > 0 {
		avgPerCell = float64(totalEntities) / float64(nonEmpty)
	}

	return GridStats{
		TotalCells:     len(g.cells),
		NonEmptyCells:  nonEmpty,
		TotalEntities:  totalEntities,
		MaxInCell:      maxInCell,
		AvgPerNonEmpty: avgPerCell,
	}
}

// GridStats contains grid statistics for debugging.
type GridStats struct {
	TotalCells     int
	NonEmptyCells  int
	TotalEntities  int
	MaxInCell      int
	AvgPerNonEmpty float64
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
