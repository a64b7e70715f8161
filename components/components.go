// Package components defines ECS components for the simulation.
package components

// State is the lifecycle state of a particle.
type State uint8

const (
	StateMoving  State = iota // Advances under gravity every tick
	StateSettled              // At rest until gravity changes
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateMoving:
		return "moving"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Position is a particle's top-left corner in pixel-equivalent units.
// Settled particles are always grid aligned; moving particles are aligned
// on the axis perpendicular to gravity.
type Position struct {
	X, Y int
}

// Particle holds per-particle simulation state.
type Particle struct {
	State State
	// SpawnTick is the tick at which the particle was created.
	SpawnTick int32
	// SettledTick is the tick of the most recent settlement (0 while never settled).
	SettledTick int32
}
