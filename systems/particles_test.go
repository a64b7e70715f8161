package systems

import (
	"math/rand"
	"testing"

	"github.com/pthm-cable/sandfall/grid"
)

type harness struct {
	geo  *grid.Geometry
	ps   *ParticleSystem
	grav *Gravity
	tick int32
}

func newHarness(t *testing.T, w, h, unit int) *harness {
	t.Helper()
	geo := grid.MustGeometry(w, h, unit)
	return &harness{
		geo:  geo,
		ps:   NewParticleSystem(geo),
		grav: NewGravity(geo.Step()),
	}
}

func (h *harness) step() ResolveResult {
	h.tick++
	h.ps.Advance(h.grav.Vector())
	return h.ps.Resolve(h.grav, h.tick)
}

func (h *harness) run(n int) {
	for i := 0; i < n; i++ {
		h.step()
	}
}

// settle runs until nothing is moving, failing after limit ticks.
func (h *harness) settle(t *testing.T, limit int) int {
	t.Helper()
	for i := 1; i <= limit; i++ {
		h.step()
		if moving, _ := h.ps.Counts(); moving == 0 {
			return i
		}
	}
	t.Fatalf("particles still moving after %d ticks", limit)
	return 0
}

func (h *harness) rotate(t *testing.T, d Direction) {
	t.Helper()
	prev := h.grav.Direction()
	if err := h.grav.RotateTo(d); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if prev.Vertical() != d.Vertical() {
		h.ps.RetractInFlight(prev)
	}
	h.ps.ReleaseAll()
}

func TestFallsToBottom(t *testing.T) {
	h := newHarness(t, 500, 700, 20)

	if !h.ps.Spawn(grid.Cell{X: 240, Y: 0}, 0) {
		t.Fatal("spawn rejected")
	}

	ticks := h.settle(t, 1000)
	// 680/5 ticks to reach the floor, one more to cross it
	if ticks != 137 {
		t.Errorf("expected to settle on tick 137, got %d", ticks)
	}

	moving, settled := h.ps.Snapshot()
	if len(moving) != 0 || len(settled) != 1 {
		t.Fatalf("expected 0 moving / 1 settled, got %d / %d", len(moving), len(settled))
	}
	if settled[0] != (grid.Cell{X: 240, Y: 680}) {
		t.Errorf("expected rest at (240, 680), got %v", settled[0])
	}
}

func TestStacksOnSettled(t *testing.T) {
	h := newHarness(t, 500, 700, 20)

	h.ps.Spawn(grid.Cell{X: 240, Y: 0}, 0)
	h.settle(t, 1000)
	h.ps.Spawn(grid.Cell{X: 240, Y: 0}, h.tick)
	h.settle(t, 1000)

	_, settled := h.ps.Snapshot()
	want := []grid.Cell{{X: 240, Y: 660}, {X: 240, Y: 680}}
	if len(settled) != 2 || settled[0] != want[0] || settled[1] != want[1] {
		t.Errorf("expected %v, got %v", want, settled)
	}
}

func TestEachBoundary(t *testing.T) {
	tests := []struct {
		dir  Direction
		from grid.Cell
		want grid.Cell
	}{
		{Down, grid.Cell{X: 40, Y: 40}, grid.Cell{X: 40, Y: 180}},
		{Right, grid.Cell{X: 40, Y: 40}, grid.Cell{X: 80, Y: 40}},
		{Up, grid.Cell{X: 40, Y: 120}, grid.Cell{X: 40, Y: 0}},
		{Left, grid.Cell{X: 60, Y: 40}, grid.Cell{X: 0, Y: 40}},
	}

	for _, tc := range tests {
		t.Run(tc.dir.String(), func(t *testing.T) {
			h := newHarness(t, 100, 200, 20)
			h.rotate(t, tc.dir)
			h.ps.Spawn(tc.from, 0)
			h.settle(t, 500)

			_, settled := h.ps.Snapshot()
			if len(settled) != 1 || settled[0] != tc.want {
				t.Errorf("expected rest at %v, got %v", tc.want, settled)
			}
		})
	}
}

func TestSpawnRejections(t *testing.T) {
	h := newHarness(t, 100, 100, 20)

	h.ps.Spawn(grid.Cell{X: 0, Y: 0}, 0)
	h.settle(t, 200)

	if h.ps.Spawn(grid.Cell{X: 0, Y: 80}, h.tick) {
		t.Error("spawn onto a settled cell must be ignored")
	}
	if h.ps.Spawn(grid.Cell{X: 100, Y: 0}, h.tick) {
		t.Error("spawn outside the grid must be ignored")
	}
	if h.ps.Spawn(grid.Cell{X: 5, Y: 0}, h.tick) {
		t.Error("unaligned spawn must be ignored")
	}
	if moving, settled := h.ps.Counts(); moving != 0 || settled != 1 {
		t.Errorf("rejected spawns changed counts to %d / %d", moving, settled)
	}
	if !h.ps.IsSettled(grid.Cell{X: 0, Y: 80}) {
		t.Error("expected settled particle at (0, 80)")
	}
}

func TestReleaseAll(t *testing.T) {
	h := newHarness(t, 100, 100, 20)
	for x := 0; x < 100; x += 20 {
		h.ps.Spawn(grid.Cell{X: x, Y: 0}, 0)
	}
	h.settle(t, 200)

	released := h.ps.ReleaseAll()
	if released != 5 {
		t.Errorf("expected 5 released, got %d", released)
	}
	moving, settled := h.ps.Counts()
	if moving != 5 || settled != 0 {
		t.Errorf("expected 5 moving / 0 settled, got %d / %d", moving, settled)
	}
	// Positions are untouched by the release itself
	snapMoving, _ := h.ps.Snapshot()
	for _, c := range snapMoving {
		if c.Y != 80 {
			t.Errorf("released particle moved to %v", c)
		}
	}
}

func TestClearSettledKeepsMoving(t *testing.T) {
	h := newHarness(t, 100, 100, 20)
	h.ps.Spawn(grid.Cell{X: 0, Y: 0}, 0)
	h.settle(t, 200)
	h.ps.Spawn(grid.Cell{X: 20, Y: 0}, h.tick)
	h.run(3)

	before, _ := h.ps.Snapshot()
	cleared := h.ps.ClearSettled()
	after, settled := h.ps.Snapshot()

	if cleared != 1 || len(settled) != 0 {
		t.Errorf("expected one cleared and none left, got %d cleared, %d left", cleared, len(settled))
	}
	if len(before) != 1 || len(after) != 1 || before[0] != after[0] {
		t.Errorf("moving set changed: %v -> %v", before, after)
	}
}

func TestSameCellDoubleSpawnStacks(t *testing.T) {
	h := newHarness(t, 100, 100, 20)
	h.ps.Spawn(grid.Cell{X: 40, Y: 0}, 0)
	h.ps.Spawn(grid.Cell{X: 40, Y: 0}, 0)

	h.step()
	moving, _ := h.ps.Snapshot()
	if len(moving) != 2 || moving[0] == moving[1] {
		t.Fatalf("expected two distinct moving positions, got %v", moving)
	}

	h.settle(t, 200)
	_, settled := h.ps.Snapshot()
	want := []grid.Cell{{X: 40, Y: 60}, {X: 40, Y: 80}}
	if len(settled) != 2 || settled[0] != want[0] || settled[1] != want[1] {
		t.Errorf("expected %v, got %v", want, settled)
	}
}

func TestFollowerOneStepBehindStacks(t *testing.T) {
	h := newHarness(t, 100, 100, 20)
	h.ps.Spawn(grid.Cell{X: 40, Y: 0}, 0)
	h.step()
	h.ps.Spawn(grid.Cell{X: 40, Y: 0}, h.tick)

	for i := 0; i < 100; i++ {
		h.step()
		assertNoOverlap(t, h)
	}

	_, settled := h.ps.Snapshot()
	want := []grid.Cell{{X: 40, Y: 60}, {X: 40, Y: 80}}
	if len(settled) != 2 || settled[0] != want[0] || settled[1] != want[1] {
		t.Errorf("expected %v, got %v", want, settled)
	}
}

func TestFullColumnDropsOverflow(t *testing.T) {
	h := newHarness(t, 20, 40, 20)
	h.ps.Spawn(grid.Cell{X: 0, Y: 0}, 0)
	h.ps.Spawn(grid.Cell{X: 0, Y: 0}, 0)
	h.ps.Spawn(grid.Cell{X: 0, Y: 0}, 0)

	var dropped int
	for i := 0; i < 20; i++ {
		dropped += h.step().Dropped
	}

	moving, settled := h.ps.Counts()
	if settled != 2 || moving != 0 {
		t.Errorf("expected a full two-cell column, got %d moving / %d settled", moving, settled)
	}
	if dropped != 1 {
		t.Errorf("expected one particle dropped, got %d", dropped)
	}
}

func TestRetractInFlight(t *testing.T) {
	h := newHarness(t, 100, 100, 20)
	h.ps.Spawn(grid.Cell{X: 40, Y: 20}, 0)
	h.run(3) // y = 35

	h.rotate(t, Right)
	moving, _ := h.ps.Snapshot()
	if len(moving) != 1 || moving[0] != (grid.Cell{X: 40, Y: 20}) {
		t.Fatalf("expected retraction to (40, 20), got %v", moving)
	}

	h.settle(t, 200)
	_, settled := h.ps.Snapshot()
	if len(settled) != 1 || settled[0] != (grid.Cell{X: 80, Y: 20}) {
		t.Errorf("expected rest at (80, 20), got %v", settled)
	}
}

func TestRetractInFlightUpward(t *testing.T) {
	h := newHarness(t, 100, 100, 20)
	h.rotate(t, Up)
	h.ps.Spawn(grid.Cell{X: 40, Y: 60}, 0)
	h.run(2) // y = 50

	h.rotate(t, Left)
	moving, _ := h.ps.Snapshot()
	if len(moving) != 1 || moving[0] != (grid.Cell{X: 40, Y: 60}) {
		t.Errorf("expected retraction to (40, 60), got %v", moving)
	}
}

func TestRandomizedInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	h := newHarness(t, 200, 160, 20)

	for i := 0; i < 3000; i++ {
		if rng.Intn(3) == 0 {
			px, py := rng.Intn(h.geo.Width()), rng.Intn(h.geo.Height())
			if cell, ok := h.geo.SnapToCell(px, py); ok {
				h.ps.Spawn(cell, h.tick)
			}
		}
		if rng.Intn(250) == 0 {
			h.rotate(t, Directions[rng.Intn(len(Directions))])
		}
		if rng.Intn(900) == 0 {
			h.ps.ClearSettled()
		}

		h.step()
		assertNoOverlap(t, h)
	}
}

// assertNoOverlap checks alignment and the no-shared-position invariant.
func assertNoOverlap(t *testing.T, h *harness) {
	t.Helper()
	moving, settled := h.ps.Snapshot()

	seen := make(map[grid.Cell]bool, len(moving)+len(settled))
	occ := NewOccupancy(h.geo)
	for _, c := range settled {
		if !h.geo.Aligned(c.X, c.Y) || !h.geo.InBounds(c.X, c.Y) {
			t.Fatalf("tick %d: settled particle at %v not aligned in bounds", h.tick, c)
		}
		if seen[c] {
			t.Fatalf("tick %d: two particles at %v", h.tick, c)
		}
		seen[c] = true
		occ.Set(c.X, c.Y, true)
	}
	for _, c := range moving {
		if seen[c] {
			t.Fatalf("tick %d: two particles at %v", h.tick, c)
		}
		seen[c] = true
		if occ.Intersects(c.X, c.Y) {
			t.Fatalf("tick %d: moving particle at %v overlaps the pile", h.tick, c)
		}
	}

	if m, s := h.ps.Counts(); m != len(moving) || s != len(settled) {
		t.Fatalf("tick %d: counts %d/%d disagree with snapshot %d/%d", h.tick, m, s, len(moving), len(settled))
	}
}
