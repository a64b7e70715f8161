package systems

import (
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/sandfall/components"
	"github.com/pthm-cable/sandfall/grid"
)

// ResolveResult summarizes one collision pass.
type ResolveResult struct {
	Settled   int // Moving particles that came to rest
	Stacked   int // Settlements moved back because their rest cell was claimed this tick
	Displaced int // Moving particles pushed back out of a settled particle
	Dropped   int // Particles removed because no in-grid position was left
}

// mover is a moving particle copied out of the world for ordering.
type mover struct {
	e      ecs.Entity
	pos    components.Position
	settle bool
	drop   bool
}

// ParticleSystem owns every particle entity. Each entity carries a Position
// and a Particle whose State says whether it is moving or settled.
type ParticleSystem struct {
	world  *ecs.World
	geo    *grid.Geometry
	mapper *ecs.Map2[components.Position, components.Particle]
	filter *ecs.Filter2[components.Position, components.Particle]

	settled *Occupancy
	moving  int

	scratch []mover
	placed  map[components.Position]struct{}
}

// NewParticleSystem creates an empty particle store for the geometry.
func NewParticleSystem(geo *grid.Geometry) *ParticleSystem {
	world := ecs.NewWorld()
	return &ParticleSystem{
		world:   world,
		geo:     geo,
		mapper:  ecs.NewMap2[components.Position, components.Particle](world),
		filter:  ecs.NewFilter2[components.Position, components.Particle](world),
		settled: NewOccupancy(geo),
		placed:  make(map[components.Position]struct{}),
	}
}

// Geometry returns the grid the particles live on.
func (s *ParticleSystem) Geometry() *grid.Geometry {
	return s.geo
}

// Counts returns the number of moving and settled particles.
func (s *ParticleSystem) Counts() (moving, settled int) {
	return s.moving, s.settled.Count()
}

// IsSettled reports whether a settled particle rests exactly at cell.
func (s *ParticleSystem) IsSettled(cell grid.Cell) bool {
	return s.settled.Has(cell.X, cell.Y)
}

// Spawn adds a moving particle at cell. Cells already holding a settled
// particle, and cells outside the grid, are ignored.
func (s *ParticleSystem) Spawn(cell grid.Cell, tick int32) bool {
	if !s.geo.InBounds(cell.X, cell.Y) || !s.geo.Aligned(cell.X, cell.Y) {
		return false
	}
	if s.settled.Has(cell.X, cell.Y) {
		return false
	}

	pos := components.Position{X: cell.X, Y: cell.Y}
	part := components.Particle{State: components.StateMoving, SpawnTick: tick}
	s.mapper.NewEntity(&pos, &part)
	s.moving++
	return true
}

// Advance adds (dx, dy) to every moving particle.
func (s *ParticleSystem) Advance(dx, dy int) {
	query := s.filter.Query()
	for query.Next() {
		pos, part := query.Get()
		if part.State != components.StateMoving {
			continue
		}
		pos.X += dx
		pos.Y += dy
	}
}

// Resolve settles moving particles that crossed the boundary in the active
// direction or overlap a particle that was settled before this pass, after
// reverting their last displacement.
//
// Every particle is tested against the settled set as it was at the start of
// the pass. Conflicts between particles settling in the same pass are then
// resolved farthest-first along gravity: a settlement whose rest cell is
// already taken stacks one cell behind it, and moving particles are pushed
// back until they neither overlap a settled particle nor share a position
// with another moving particle.
func (s *ParticleSystem) Resolve(g *Gravity, tick int32) ResolveResult {
	var res ResolveResult
	dir := g.Direction()
	dx, dy := g.Vector()
	ux, uy := dir.Unit()
	unit := s.geo.Unit()

	// Test against the settled snapshot.
	s.scratch = s.scratch[:0]
	query := s.filter.Query()
	for query.Next() {
		pos, part := query.Get()
		if part.State != components.StateMoving {
			continue
		}
		m := mover{e: query.Entity(), pos: *pos}
		if s.crossed(dir, m.pos) || s.settled.Intersects(m.pos.X, m.pos.Y) {
			m.pos.X -= dx
			m.pos.Y -= dy
			m.settle = true
		}
		s.scratch = append(s.scratch, m)
	}

	sortLeadingFirst(s.scratch, dir)

	// Claim rest cells.
	for i := range s.scratch {
		m := &s.scratch[i]
		if !m.settle {
			continue
		}
		stacked := false
		for s.geo.InBounds(m.pos.X, m.pos.Y) && s.settled.Has(m.pos.X, m.pos.Y) {
			m.pos.X -= ux * unit
			m.pos.Y -= uy * unit
			stacked = true
		}
		if !s.geo.InBounds(m.pos.X, m.pos.Y) {
			m.drop = true
			continue
		}
		if stacked {
			res.Stacked++
		}
		s.settled.Set(m.pos.X, m.pos.Y, true)
		res.Settled++
	}

	// Keep moving particles clear of the new pile and of each other.
	clear(s.placed)
	for i := range s.scratch {
		m := &s.scratch[i]
		if m.settle {
			continue
		}
		displaced := false
		for s.geo.InBounds(m.pos.X, m.pos.Y) && s.blocked(m.pos) {
			m.pos.X -= dx
			m.pos.Y -= dy
			displaced = true
		}
		if !s.geo.InBounds(m.pos.X, m.pos.Y) {
			m.drop = true
			continue
		}
		if displaced {
			res.Displaced++
		}
		s.placed[m.pos] = struct{}{}
	}

	// Write back, then remove drops once iteration is complete.
	for _, m := range s.scratch {
		if m.drop {
			s.world.RemoveEntity(m.e)
			s.moving--
			res.Dropped++
			continue
		}
		pos, part := s.mapper.Get(m.e)
		*pos = m.pos
		if m.settle {
			part.State = components.StateSettled
			part.SettledTick = tick
			s.moving--
		}
	}

	return res
}

// RetractInFlight snaps moving particles back to the last grid line they
// passed along prev. Call it before switching gravity to the other axis so
// that moving particles stay aligned across the direction of travel.
func (s *ParticleSystem) RetractInFlight(prev Direction) {
	unit := s.geo.Unit()
	query := s.filter.Query()
	for query.Next() {
		pos, part := query.Get()
		if part.State != components.StateMoving {
			continue
		}
		switch prev {
		case Down:
			pos.Y = floorDiv(pos.Y, unit) * unit
		case Up:
			pos.Y = -floorDiv(-pos.Y, unit) * unit
		case Right:
			pos.X = floorDiv(pos.X, unit) * unit
		case Left:
			pos.X = -floorDiv(-pos.X, unit) * unit
		}
	}
}

// ReleaseAll turns every settled particle back into a moving one and returns
// how many were released.
func (s *ParticleSystem) ReleaseAll() int {
	released := 0
	query := s.filter.Query()
	for query.Next() {
		_, part := query.Get()
		if part.State != components.StateSettled {
			continue
		}
		part.State = components.StateMoving
		released++
	}
	s.settled.Clear()
	s.moving += released
	return released
}

// ClearSettled removes every settled particle and returns how many were removed.
func (s *ParticleSystem) ClearSettled() int {
	var toRemove []ecs.Entity

	query := s.filter.Query()
	for query.Next() {
		_, part := query.Get()
		if part.State == components.StateSettled {
			toRemove = append(toRemove, query.Entity())
		}
	}

	// Remove once query iteration is complete
	for _, e := range toRemove {
		s.world.RemoveEntity(e)
	}
	s.settled.Clear()
	return len(toRemove)
}

// Snapshot copies the moving and settled positions, each sorted by row then column.
func (s *ParticleSystem) Snapshot() (moving, settled []grid.Cell) {
	moving = make([]grid.Cell, 0, s.moving)
	settled = make([]grid.Cell, 0, s.settled.Count())

	query := s.filter.Query()
	for query.Next() {
		pos, part := query.Get()
		cell := grid.Cell{X: pos.X, Y: pos.Y}
		if part.State == components.StateSettled {
			settled = append(settled, cell)
		} else {
			moving = append(moving, cell)
		}
	}

	sortCells(moving)
	sortCells(settled)
	return moving, settled
}

// crossed reports whether pos is past the boundary faced by dir.
func (s *ParticleSystem) crossed(dir Direction, pos components.Position) bool {
	switch dir {
	case Down:
		return pos.Y > s.geo.MaxY()
	case Right:
		return pos.X > s.geo.MaxX()
	case Up:
		return pos.Y < 0
	case Left:
		return pos.X < 0
	}
	return false
}

// blocked reports whether a moving particle at pos overlaps the pile or
// another moving particle already placed this pass.
func (s *ParticleSystem) blocked(pos components.Position) bool {
	if s.settled.Intersects(pos.X, pos.Y) {
		return true
	}
	_, taken := s.placed[pos]
	return taken
}

// sortLeadingFirst orders movers by how far they are along dir, breaking ties
// by the perpendicular coordinate.
func sortLeadingFirst(ms []mover, dir Direction) {
	ux, uy := dir.Unit()
	vertical := dir.Vertical()
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i].pos, ms[j].pos
		la, lb := a.X*ux+a.Y*uy, b.X*ux+b.Y*uy
		if la != lb {
			return la > lb
		}
		if vertical {
			return a.X < b.X
		}
		return a.Y < b.Y
	})
}

func sortCells(cells []grid.Cell) {
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Y != cells[j].Y {
			return cells[i].Y < cells[j].Y
		}
		return cells[i].X < cells[j].X
	})
}
