// Package game drives the particle simulation: it owns the particle store and
// gravity, serializes commands against ticks and publishes snapshots.
package game

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pthm-cable/sandfall/config"
	"github.com/pthm-cable/sandfall/grid"
	"github.com/pthm-cable/sandfall/systems"
	"github.com/pthm-cable/sandfall/telemetry"
)

// Snapshot is the state published at the end of a tick or command. Its
// slices are shared between readers and must not be modified.
type Snapshot struct {
	Tick    int32
	Gravity systems.Direction
	Moving  []grid.Cell
	Settled []grid.Cell
}

// Game holds the complete simulation state.
type Game struct {
	mu sync.Mutex

	cfg       *config.Config
	geo       *grid.Geometry
	particles *systems.ParticleSystem
	gravity   *systems.Gravity

	tick     int32
	spawning atomic.Bool
	snapshot atomic.Pointer[Snapshot]

	// Telemetry; reportMu serializes window delivery outside mu
	reportMu      sync.Mutex
	collector     *telemetry.Collector
	perfCollector *telemetry.PerfCollector
	outputManager *telemetry.OutputManager
	statsCallback func(telemetry.WindowStats)
	logStats      bool
	logger        *slog.Logger
}

// NewGame creates a game with default options.
func NewGame(cfg *config.Config) (*Game, error) {
	return NewGameWithOptions(cfg, Options{})
}

// NewGameWithOptions creates a game for the given configuration.
func NewGameWithOptions(cfg *config.Config, opts Options) (*Game, error) {
	geo, err := grid.NewGeometry(cfg.Grid.Width, cfg.Grid.Height, cfg.Grid.UnitSize)
	if err != nil {
		return nil, fmt.Errorf("creating game: %w", err)
	}

	g := &Game{
		cfg:           cfg,
		geo:           geo,
		particles:     systems.NewParticleSystem(geo),
		gravity:       systems.NewGravity(geo.Step()),
		collector:     telemetry.NewCollector(cfg.Derived.StatsTicks, 1.0/cfg.Simulation.TickRate),
		perfCollector: telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		outputManager: opts.OutputManager,
		statsCallback: opts.StatsCallback,
		logStats:      opts.LogStats,
		logger:        opts.logger(),
	}
	g.spawning.Store(cfg.Simulation.SpawningEnabled)

	g.mu.Lock()
	g.publishLocked()
	g.mu.Unlock()

	return g, nil
}

// SpawnAt snaps a pointer position to its grid cell and spawns a moving
// particle there. It reports false when spawning is disabled, the point is
// outside the grid, or the cell holds a settled particle.
func (g *Game) SpawnAt(px, py int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.spawning.Load() {
		g.collector.RecordSpawn(telemetry.SpawnDisabled)
		return false
	}

	cell, ok := g.geo.SnapToCell(px, py)
	if !ok {
		g.collector.RecordSpawn(telemetry.SpawnOutside)
		g.logger.Debug("spawn outside grid", "x", px, "y", py)
		return false
	}

	if !g.particles.Spawn(cell, g.tick) {
		g.collector.RecordSpawn(telemetry.SpawnOccupied)
		g.logger.Debug("spawn on settled cell", "x", cell.X, "y", cell.Y)
		return false
	}

	g.collector.RecordSpawn(telemetry.SpawnAccepted)
	g.publishLocked()
	return true
}

// RotateGravity points gravity at d and releases every settled particle.
// Moving particles are snapped back to the grid when the axis changes.
func (g *Game) RotateGravity(d systems.Direction) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	prev := g.gravity.Direction()
	if err := g.gravity.RotateTo(d); err != nil {
		return fmt.Errorf("rotating gravity: %w", err)
	}
	if prev.Vertical() != d.Vertical() {
		g.particles.RetractInFlight(prev)
	}

	released := g.particles.ReleaseAll()
	g.collector.RecordRotation(released)
	g.logger.Debug("gravity rotated", "from", prev, "to", d, "released", released)

	g.publishLocked()
	return nil
}

// Reset removes every settled particle and returns how many were removed.
// Moving particles are untouched.
func (g *Game) Reset() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	cleared := g.particles.ClearSettled()
	g.collector.RecordReset(cleared)
	g.logger.Debug("pile reset", "cleared", cleared)

	g.publishLocked()
	return cleared
}

// ToggleSpawning flips the spawn gate and returns the new state.
func (g *Game) ToggleSpawning() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	enabled := !g.spawning.Load()
	g.spawning.Store(enabled)
	g.logger.Debug("spawning toggled", "enabled", enabled)
	return enabled
}

// SetSpawning opens or closes the spawn gate.
func (g *Game) SetSpawning(enabled bool) {
	g.spawning.Store(enabled)
}

// IsSpawningEnabled reports whether SpawnAt accepts new particles.
func (g *Game) IsSpawningEnabled() bool {
	return g.spawning.Load()
}

// TickOnce advances every moving particle one step along gravity, resolves
// collisions and publishes the resulting snapshot.
func (g *Game) TickOnce() {
	g.mu.Lock()

	g.perfCollector.StartTick()
	g.tick++

	g.perfCollector.StartPhase(telemetry.PhaseAdvance)
	g.particles.Advance(g.gravity.Vector())

	g.perfCollector.StartPhase(telemetry.PhaseResolve)
	res := g.particles.Resolve(g.gravity, g.tick)
	g.collector.RecordResolve(res)

	g.perfCollector.StartPhase(telemetry.PhasePublish)
	snap := g.publishLocked()
	g.perfCollector.EndTick()

	report := g.collectTelemetryLocked(snap)
	g.mu.Unlock()

	// Writes and callbacks run outside the lock
	if report != nil {
		g.reportTelemetry(report)
	}
}

// Snapshot returns the most recently published state.
func (g *Game) Snapshot() Snapshot {
	return *g.snapshot.Load()
}

// Tick returns the current simulation tick.
func (g *Game) Tick() int32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tick
}

// Gravity returns the active gravity direction.
func (g *Game) Gravity() systems.Direction {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gravity.Direction()
}

// Counts returns the live number of moving and settled particles.
func (g *Game) Counts() (moving, settled int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.particles.Counts()
}

// Geometry returns the grid the game runs on.
func (g *Game) Geometry() *grid.Geometry {
	return g.geo
}

// Config returns the configuration the game was built with.
func (g *Game) Config() *config.Config {
	return g.cfg
}

// Close releases output resources.
func (g *Game) Close() error {
	return g.outputManager.Close()
}

// publishLocked stores a fresh snapshot. Callers hold g.mu.
func (g *Game) publishLocked() *Snapshot {
	moving, settled := g.particles.Snapshot()
	snap := &Snapshot{
		Tick:    g.tick,
		Gravity: g.gravity.Direction(),
		Moving:  moving,
		Settled: settled,
	}
	g.snapshot.Store(snap)
	return snap
}
