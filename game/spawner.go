package game

import (
	"context"
	"sync/atomic"
	"time"
)

// PointerFunc returns the current pointer position. ok is false when there is
// no pointer over the grid.
type PointerFunc func() (x, y int, ok bool)

// Spawner spawns a particle under the pointer at a fixed interval while the
// game's spawn gate is open.
type Spawner struct {
	game     *Game
	pointer  PointerFunc
	interval time.Duration

	fired    atomic.Int64
	accepted atomic.Int64
}

// NewSpawner creates a spawner. A non-positive interval uses 200ms.
func NewSpawner(g *Game, interval time.Duration, pointer PointerFunc) *Spawner {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &Spawner{
		game:     g,
		pointer:  pointer,
		interval: interval,
	}
}

// Run fires every interval until ctx is cancelled.
func (s *Spawner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Fire()
		}
	}
}

// Fire spawns once at the pointer and reports whether a particle was added.
func (s *Spawner) Fire() bool {
	if !s.game.IsSpawningEnabled() {
		return false
	}
	x, y, ok := s.pointer()
	if !ok {
		return false
	}

	s.fired.Add(1)
	if !s.game.SpawnAt(x, y) {
		return false
	}
	s.accepted.Add(1)
	return true
}

// Stats returns how many spawns were attempted and accepted.
func (s *Spawner) Stats() (fired, accepted int64) {
	return s.fired.Load(), s.accepted.Load()
}
