// Command replay runs a YAML command script through the simulation tick by
// tick and writes the final particle state as CSV.
//
// Usage: go run ./cmd/replay -script steps.yaml [-out state.csv]
package main

import (
	"flag"
	"io"
	"log/slog"
	"os"

	"github.com/pthm-cable/sandfall/config"
	"github.com/pthm-cable/sandfall/game"
	"github.com/pthm-cable/sandfall/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	scriptPath := flag.String("script", "", "YAML command script (required)")
	outPath := flag.String("out", "", "CSV snapshot path (empty = stdout)")
	outputDir := flag.String("output-dir", "", "Output directory for telemetry CSV")
	flag.Parse()

	// Logs go to stderr so the snapshot can go to stdout
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if *scriptPath == "" {
		slog.Error("missing -script")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	script, err := LoadScript(*scriptPath)
	if err != nil {
		slog.Error("failed to load script", "error", err)
		os.Exit(1)
	}

	om, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}

	g, err := game.NewGameWithOptions(cfg, game.Options{Logger: logger, OutputManager: om})
	if err != nil {
		slog.Error("failed to create game", "error", err)
		os.Exit(1)
	}

	res, err := script.Run(g)
	if cerr := g.Close(); cerr != nil {
		slog.Error("failed to close output", "error", cerr)
	}
	if err != nil {
		slog.Error("replay failed", "error", err)
		os.Exit(1)
	}

	if err := writeSnapshot(*outPath, g.Snapshot()); err != nil {
		slog.Error("failed to write snapshot", "error", err)
		os.Exit(1)
	}

	snap := g.Snapshot()
	slog.Info("replay complete",
		"steps", len(script.Steps),
		"ticks", res.Ticks,
		"spawned", res.Spawned,
		"rejected", res.Rejected,
		"released", res.Released,
		"cleared", res.Cleared,
		"gravity", snap.Gravity,
		"moving", len(snap.Moving),
		"settled", len(snap.Settled),
	)
}

func writeSnapshot(path string, snap game.Snapshot) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return telemetry.WriteParticlesCSV(w, snap.Moving, snap.Settled)
}
