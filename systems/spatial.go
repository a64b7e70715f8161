// Package systems provides ECS systems for the simulation.
package systems

import "github.com/pthm-cable/sandfall/grid"

// Occupancy is a flat cell index of settled particles. It answers exact-cell
// and box-intersection queries in constant time.
type Occupancy struct {
	unit  int
	cols  int
	rows  int
	cells []bool
	count int
}

// NewOccupancy creates an empty index covering the geometry's reference grid.
func NewOccupancy(geo *grid.Geometry) *Occupancy {
	return &Occupancy{
		unit:  geo.Unit(),
		cols:  geo.Columns(),
		rows:  geo.Rows(),
		cells: make([]bool, geo.Columns()*geo.Rows()),
	}
}

// Clear removes all entries.
func (o *Occupancy) Clear() {
	for i := range o.cells {
		o.cells[i] = false
	}
	o.count = 0
}

// Set marks or unmarks the aligned cell at (x, y). Unaligned or
// out-of-range positions are ignored.
func (o *Occupancy) Set(x, y int, occupied bool) {
	idx, ok := o.index(x, y)
	if !ok || o.cells[idx] == occupied {
		return
	}
	o.cells[idx] = occupied
	if occupied {
		o.count++
	} else {
		o.count--
	}
}

// Has reports whether the aligned cell at (x, y) is occupied.
func (o *Occupancy) Has(x, y int) bool {
	idx, ok := o.index(x, y)
	return ok && o.cells[idx]
}

// Intersects reports whether a unit square at (x, y) overlaps any occupied
// cell with positive area. Edge contact does not count.
func (o *Occupancy) Intersects(x, y int) bool {
	c0, c1 := floorDiv(x, o.unit), floorDiv(x+o.unit-1, o.unit)
	r0, r1 := floorDiv(y, o.unit), floorDiv(y+o.unit-1, o.unit)

	for r := r0; r <= r1; r++ {
		if r < 0 || r >= o.rows {
			continue
		}
		for c := c0; c <= c1; c++ {
			if c < 0 || c >= o.cols {
				continue
			}
			if o.cells[r*o.cols+c] {
				return true
			}
		}
	}
	return false
}

// Count returns the number of occupied cells.
func (o *Occupancy) Count() int {
	return o.count
}

// index returns the flat index for an aligned position.
func (o *Occupancy) index(x, y int) (int, bool) {
	if x < 0 || y < 0 || x%o.unit != 0 || y%o.unit != 0 {
		return 0, false
	}
	col, row := x/o.unit, y/o.unit
	if col >= o.cols || row >= o.rows {
		return 0, false
	}
	return row*o.cols + col, true
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
