package systems

import (
	"testing"

	"github.com/pthm-cable/sandfall/grid"
)

func TestOccupancySetHas(t *testing.T) {
	occ := NewOccupancy(grid.MustGeometry(100, 100, 20))

	occ.Set(40, 60, true)
	occ.Set(40, 60, true) // idempotent

	if !occ.Has(40, 60) {
		t.Error("expected (40, 60) occupied")
	}
	if occ.Count() != 1 {
		t.Errorf("expected count 1, got %d", occ.Count())
	}
	if occ.Has(45, 60) {
		t.Error("unaligned lookup must not match")
	}

	occ.Set(40, 60, false)
	if occ.Has(40, 60) || occ.Count() != 0 {
		t.Error("expected cell cleared")
	}

	// Out of range is ignored
	occ.Set(-20, 0, true)
	occ.Set(2000, 0, true)
	if occ.Count() != 0 {
		t.Errorf("out-of-range sets must be ignored, count=%d", occ.Count())
	}
}

func TestOccupancyIntersects(t *testing.T) {
	occ := NewOccupancy(grid.MustGeometry(100, 100, 20))
	occ.Set(40, 40, true)

	tests := []struct {
		name string
		x, y int
		want bool
	}{
		{"identical", 40, 40, true},
		{"overlap from above", 40, 25, true},
		{"edge contact above", 40, 20, false},
		{"overlap from left", 25, 40, true},
		{"edge contact left", 20, 40, false},
		{"diagonal overlap", 55, 55, true},
		{"diagonal corner contact", 60, 60, false},
		{"far away", 0, 0, false},
		{"negative coordinates", -5, -5, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := occ.Intersects(tc.x, tc.y); got != tc.want {
				t.Errorf("Intersects(%d, %d) = %v, want %v", tc.x, tc.y, got, tc.want)
			}
		})
	}
}

func TestOccupancyClear(t *testing.T) {
	occ := NewOccupancy(grid.MustGeometry(100, 100, 20))
	occ.Set(0, 0, true)
	occ.Set(20, 0, true)
	occ.Clear()

	if occ.Count() != 0 || occ.Has(0, 0) || occ.Has(20, 0) {
		t.Error("expected empty index after Clear")
	}
}

func TestFloorDiv(t *testing.T) {
	tests := []struct{ a, b, want int }{
		{7, 20, 0},
		{20, 20, 1},
		{-1, 20, -1},
		{-20, 20, -1},
		{-21, 20, -2},
		{0, 20, 0},
	}
	for _, tc := range tests {
		if got := floorDiv(tc.a, tc.b); got != tc.want {
			t.Errorf("floorDiv(%d, %d) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
