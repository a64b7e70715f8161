package telemetry

import (
	"github.com/pthm-cable/sandfall/grid"
	"github.com/pthm-cable/sandfall/systems"
)

// SpawnOutcome classifies a spawn request.
type SpawnOutcome uint8

const (
	SpawnAccepted SpawnOutcome = iota
	SpawnDisabled              // Spawn gate closed
	SpawnOutside               // Point outside the visible grid
	SpawnOccupied              // Cell already holds a settled particle
)

func (o SpawnOutcome) String() string {
	switch o {
	case SpawnAccepted:
		return "accepted"
	case SpawnDisabled:
		return "disabled"
	case SpawnOutside:
		return "outside"
	case SpawnOccupied:
		return "occupied"
	default:
		return "unknown"
	}
}

// Collector accumulates events within tick windows and produces WindowStats.
type Collector struct {
	windowDurationTicks int32
	dt                  float64

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	spawns      [4]int
	settlements int
	stacked     int
	displaced   int
	dropped     int
	rotations   int
	released    int
	resets      int
	cleared     int
}

// NewCollector creates a new stats collector.
// windowTicks: ticks per stats window
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowTicks int32, dt float64) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{
		windowDurationTicks: windowTicks,
		dt:                  dt,
	}
}

// RecordSpawn records a spawn request outcome.
func (c *Collector) RecordSpawn(o SpawnOutcome) {
	if int(o) < len(c.spawns) {
		c.spawns[o]++
	}
}

// RecordResolve records one collision pass.
func (c *Collector) RecordResolve(r systems.ResolveResult) {
	c.settlements += r.Settled
	c.stacked += r.Stacked
	c.displaced += r.Displaced
	c.dropped += r.Dropped
}

// RecordRotation records a gravity change and how many particles it released.
func (c *Collector) RecordRotation(released int) {
	c.rotations++
	c.released += released
}

// RecordReset records a pile reset and how many particles it removed.
func (c *Collector) RecordReset(cleared int) {
	c.resets++
	c.cleared += cleared
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
// laneFill holds settled particle counts per lane (see LaneFill).
func (c *Collector) Flush(currentTick int32, gravity systems.Direction, moving, settled int, laneFill []float64) WindowStats {
	mean, std, p50, peak := ComputeFillStats(laneFill)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,
		Gravity:         gravity.String(),

		MovingCount:  moving,
		SettledCount: settled,

		SpawnsAccepted: c.spawns[SpawnAccepted],
		SpawnsDisabled: c.spawns[SpawnDisabled],
		SpawnsOutside:  c.spawns[SpawnOutside],
		SpawnsOccupied: c.spawns[SpawnOccupied],

		Settlements: c.settlements,
		Stacked:     c.stacked,
		Displaced:   c.displaced,
		Dropped:     c.dropped,

		Rotations: c.rotations,
		Released:  c.released,
		Resets:    c.resets,
		Cleared:   c.cleared,

		LaneFillMean: mean,
		LaneFillStd:  std,
		LaneFillP50:  p50,
		LaneFillMax:  peak,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.spawns = [4]int{}
	c.settlements = 0
	c.stacked = 0
	c.displaced = 0
	c.dropped = 0
	c.rotations = 0
	c.released = 0
	c.resets = 0
	c.cleared = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}

// LaneFill counts settled particles per lane running along gravity: columns
// for vertical gravity, rows for horizontal. Only lanes of the visible area
// are counted.
func LaneFill(geo *grid.Geometry, dir systems.Direction, settled []grid.Cell) []float64 {
	unit := geo.Unit()
	lanes := geo.Height() / unit
	if dir.Vertical() {
		lanes = geo.Width() / unit
	}

	fill := make([]float64, lanes)
	for _, c := range settled {
		lane := c.Y / unit
		if dir.Vertical() {
			lane = c.X / unit
		}
		if lane >= 0 && lane < lanes {
			fill[lane]++
		}
	}
	return fill
}
