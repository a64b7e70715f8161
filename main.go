package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pthm-cable/sandfall/config"
	"github.com/pthm-cable/sandfall/game"
	"github.com/pthm-cable/sandfall/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed for the pointer walk (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	gravityEvery := flag.Int("gravity-every", 0, "Rotate gravity clockwise every N ticks (0 = never)")
	resetEvery := flag.Int("reset-every", 0, "Clear the pile every N ticks (0 = never)")
	debug := flag.Bool("debug", false, "Log command events")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	om, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
		os.Exit(1)
	}

	g, err := game.NewGameWithOptions(cfg, game.Options{
		Logger:        logger,
		LogStats:      *logStats,
		OutputManager: om,
	})
	if err != nil {
		slog.Error("failed to create game", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := g.Close(); err != nil {
			slog.Error("failed to close output", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := game.NewLoop(g, game.NewClock(cfg.Simulation.TickRate, nil), cfg.Derived.PollInterval)
	loop.MaxTicks = int32(*maxTicks)
	loop.OnTick = func(tick int32) {
		if *gravityEvery > 0 && tick%int32(*gravityEvery) == 0 {
			if err := g.RotateGravity(g.Gravity().Next()); err != nil {
				slog.Error("failed to rotate gravity", "error", err)
			}
		}
		if *resetEvery > 0 && tick%int32(*resetEvery) == 0 {
			g.Reset()
		}
	}

	walker := newPointerWalk(rngSeed, g.Geometry().Width(), g.Geometry().Height(), g.Geometry().Unit())
	spawner := game.NewSpawner(g, cfg.Derived.SpawnInterval, walker.Next)

	slog.Info("starting headless simulation",
		"seed", rngSeed,
		"width", cfg.Grid.Width,
		"height", cfg.Grid.Height,
		"unit", cfg.Grid.UnitSize,
		"tick_rate", cfg.Simulation.TickRate,
		"max_ticks", *maxTicks,
		"output_dir", om.Dir(),
	)

	spawnCtx, cancelSpawn := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		spawner.Run(spawnCtx)
	}()

	err = loop.Run(ctx)
	cancelSpawn()
	wg.Wait()

	fired, accepted := spawner.Stats()
	moving, settled := g.Counts()
	switch {
	case errors.Is(err, context.Canceled):
		slog.Info("interrupted", "tick", g.Tick())
	case err != nil:
		slog.Error("loop failed", "error", err)
		os.Exit(1)
	case *maxTicks > 0:
		slog.Info("max ticks reached", "tick", g.Tick())
	}
	slog.Info("simulation finished",
		"ticks", loop.Ticks(),
		"spawns_fired", fired,
		"spawns_accepted", accepted,
		"moving", moving,
		"settled", settled,
	)
}

// pointerWalk is a seeded random walk standing in for mouse movement. It
// strays up to one unit outside the grid so that off-grid pointers occur.
type pointerWalk struct {
	mu            sync.Mutex
	rng           *rand.Rand
	x, y          int
	width, height int
	stride        int
}

func newPointerWalk(seed int64, width, height, unit int) *pointerWalk {
	rng := rand.New(rand.NewSource(seed))
	return &pointerWalk{
		rng:    rng,
		x:      rng.Intn(width),
		y:      rng.Intn(height / 4),
		width:  width,
		height: height,
		stride: unit,
	}
}

// Next moves the pointer and returns its position. ok is false while the
// pointer is off the grid.
func (p *pointerWalk) Next() (x, y int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.x = clamp(p.x+p.rng.Intn(2*p.stride+1)-p.stride, -p.stride, p.width+p.stride)
	p.y = clamp(p.y+p.rng.Intn(2*p.stride+1)-p.stride, -p.stride, p.height+p.stride)

	ok = p.x >= 0 && p.x < p.width && p.y >= 0 && p.y < p.height
	return p.x, p.y, ok
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
