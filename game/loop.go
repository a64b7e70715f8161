package game

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// ErrLoopRunning is returned by Run when the loop is already running.
var ErrLoopRunning = errors.New("loop already running")

// Loop polls a Clock and runs the ticks it reports against a Game.
type Loop struct {
	// MaxTicks stops the loop once the game reaches this tick (0 = unlimited).
	// Set before Run.
	MaxTicks int32

	// OnTick runs on the loop goroutine after every tick. Set before Run.
	OnTick func(tick int32)

	game  *Game
	clock *Clock
	poll  time.Duration

	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
	ticks    atomic.Int64
}

// NewLoop creates a loop for g. poll is the cadence at which the clock is
// read; zero or negative busy-polls.
func NewLoop(g *Game, clock *Clock, poll time.Duration) *Loop {
	return &Loop{
		game:     g,
		clock:    clock,
		poll:     poll,
		stopChan: make(chan struct{}),
	}
}

// Run ticks the game until ctx is cancelled, Stop is called or MaxTicks is
// reached. It returns ctx.Err() on cancellation and nil otherwise.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer l.running.Store(false)

	l.clock.Reset()

	var tickC <-chan time.Time
	if l.poll > 0 {
		ticker := time.NewTicker(l.poll)
		defer ticker.Stop()
		tickC = ticker.C
	}

	for {
		if tickC != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-l.stopChan:
				return nil
			case <-tickC:
			}
		} else {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-l.stopChan:
				return nil
			default:
				runtime.Gosched()
			}
		}

		for n := l.clock.Poll(); n > 0; n-- {
			l.game.TickOnce()
			l.ticks.Add(1)

			tick := l.game.Tick()
			if l.OnTick != nil {
				l.OnTick(tick)
			}
			if l.MaxTicks > 0 && tick >= l.MaxTicks {
				return nil
			}
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopChan)
	})
}

// Running reports whether Run is active.
func (l *Loop) Running() bool {
	return l.running.Load()
}

// Ticks returns how many ticks this loop has run.
func (l *Loop) Ticks() int64 {
	return l.ticks.Load()
}
