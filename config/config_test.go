package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Grid.Width != 500 || cfg.Grid.Height != 700 || cfg.Grid.UnitSize != 20 {
		t.Fatalf("unexpected default grid %+v", cfg.Grid)
	}
	if cfg.Derived.Rows != 36 || cfg.Derived.Columns != 26 {
		t.Errorf("expected 36 rows x 26 columns, got %d x %d", cfg.Derived.Rows, cfg.Derived.Columns)
	}
	if cfg.Derived.Step != 5 {
		t.Errorf("expected step 5, got %d", cfg.Derived.Step)
	}
	if cfg.Derived.SpawnInterval != 200*time.Millisecond {
		t.Errorf("expected 200ms spawn interval, got %v", cfg.Derived.SpawnInterval)
	}
	if cfg.Derived.TickDuration != 16666666*time.Nanosecond {
		t.Errorf("expected ~16.67ms tick, got %v", cfg.Derived.TickDuration)
	}
	if cfg.Derived.StatsTicks != 300 {
		t.Errorf("expected 300 ticks per stats window, got %d", cfg.Derived.StatsTicks)
	}
	if !cfg.Simulation.SpawningEnabled {
		t.Error("expected spawning enabled by default")
	}
}

func TestParseOverridesOnlyGivenKeys(t *testing.T) {
	cfg, err := Parse([]byte("grid:\n  width: 200\nsimulation:\n  tick_rate: 30\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.Grid.Width != 200 {
		t.Errorf("expected width override 200, got %d", cfg.Grid.Width)
	}
	if cfg.Grid.Height != 700 {
		t.Errorf("expected default height kept, got %d", cfg.Grid.Height)
	}
	if cfg.Derived.Columns != 11 {
		t.Errorf("expected 11 columns, got %d", cfg.Derived.Columns)
	}
	if cfg.Derived.StatsTicks != 150 {
		t.Errorf("expected stats window recomputed for 30 Hz, got %d", cfg.Derived.StatsTicks)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"zero unit", "grid:\n  unit_size: 0\n"},
		{"unit not divisible by four", "grid:\n  unit_size: 10\n  width: 500\n  height: 700\n"},
		{"width not aligned", "grid:\n  width: 510\n"},
		{"height not aligned", "grid:\n  height: 705\n"},
		{"negative width", "grid:\n  width: -20\n"},
		{"zero tick rate", "simulation:\n  tick_rate: 0\n"},
		{"zero spawn interval", "simulation:\n  spawn_interval_ms: 0\n"},
		{"negative poll interval", "simulation:\n  poll_interval_us: -1\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestParseMalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("grid: [unterminated")); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestLoadWriteRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	src, err := Parse([]byte("grid:\n  unit_size: 40\n  width: 400\n  height: 400\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := src.WriteYAML(path); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Grid != src.Grid {
		t.Errorf("grid mismatch: wrote %+v, read %+v", src.Grid, loaded.Grid)
	}
	if loaded.Derived.Step != 10 {
		t.Errorf("expected step 10, got %d", loaded.Derived.Step)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestCfgPanicsBeforeInit(t *testing.T) {
	saved := global
	global = nil
	defer func() {
		global = saved
		if recover() == nil {
			t.Error("expected panic from Cfg before Init")
		}
	}()
	Cfg()
}
