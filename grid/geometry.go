// Package grid describes the discrete lattice particles live on.
package grid

import (
	"errors"
	"fmt"
)

// ErrInvalidGeometry is returned when grid extents are not unit aligned.
var ErrInvalidGeometry = errors.New("invalid grid geometry")

// Cell is a grid-aligned lattice slot, identified by its top-left corner.
type Cell struct {
	X, Y int
}

// Geometry holds the grid extents and the immutable reference grid.
type Geometry struct {
	width   int
	height  int
	unit    int
	rows    int
	columns int
	cells   []Cell // row-major reference grid, rows*columns entries
}

// NewGeometry creates the geometry for a width x height area split into unit-sized cells.
// Unit must be positive and divisible by 4, width and height multiples of unit.
func NewGeometry(width, height, unit int) (*Geometry, error) {
	if unit <= 0 || unit%4 != 0 {
		return nil, fmt.Errorf("%w: unit size %d must be a positive multiple of 4", ErrInvalidGeometry, unit)
	}
	if width <= 0 || height <= 0 || width%unit != 0 || height%unit != 0 {
		return nil, fmt.Errorf("%w: %dx%d is not a multiple of unit %d", ErrInvalidGeometry, width, height, unit)
	}

	rows := height/unit + 1
	columns := width/unit + 1

	cells := make([]Cell, 0, rows*columns)
	for i := 0; i < rows; i++ {
		for j := 0; j < columns; j++ {
			cells = append(cells, Cell{X: j * unit, Y: i * unit})
		}
	}

	return &Geometry{
		width:   width,
		height:  height,
		unit:    unit,
		rows:    rows,
		columns: columns,
		cells:   cells,
	}, nil
}

// MustGeometry is like NewGeometry but panics on error.
func MustGeometry(width, height, unit int) *Geometry {
	g, err := NewGeometry(width, height, unit)
	if err != nil {
		panic(err)
	}
	return g
}

// Width returns the visible width.
func (g *Geometry) Width() int { return g.width }

// Height returns the visible height.
func (g *Geometry) Height() int { return g.height }

// Unit returns the cell edge length.
func (g *Geometry) Unit() int { return g.unit }

// Rows returns Height/Unit + 1.
func (g *Geometry) Rows() int { return g.rows }

// Columns returns Width/Unit + 1.
func (g *Geometry) Columns() int { return g.columns }

// Step returns the distance a particle travels per tick.
func (g *Geometry) Step() int { return g.unit / 4 }

// MaxX returns the largest x a resting particle can have.
func (g *Geometry) MaxX() int { return g.width - g.unit }

// MaxY returns the largest y a resting particle can have.
func (g *Geometry) MaxY() int { return g.height - g.unit }

// ReferenceCells returns a copy of the reference grid in row-major order.
func (g *Geometry) ReferenceCells() []Cell {
	out := make([]Cell, len(g.cells))
	copy(out, g.cells)
	return out
}

// SnapToCell returns the reference cell whose box contains the pixel.
// Points outside the visible [0,width)x[0,height) area have no match.
func (g *Geometry) SnapToCell(px, py int) (Cell, bool) {
	if px < 0 || py < 0 || px >= g.width || py >= g.height {
		return Cell{}, false
	}
	// Cells are row-major with unique containment, so the first match is
	// the one at the point's row and column.
	return g.cells[(py/g.unit)*g.columns+px/g.unit], true
}

// Aligned reports whether (x, y) is a cell corner.
func (g *Geometry) Aligned(x, y int) bool {
	return x%g.unit == 0 && y%g.unit == 0
}

// InBounds reports whether a cell-sized square at (x, y) lies fully inside
// the visible area.
func (g *Geometry) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x <= g.MaxX() && y <= g.MaxY()
}
