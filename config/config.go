// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all simulation configuration parameters.
type Config struct {
	Grid       GridConfig       `yaml:"grid"`
	Simulation SimulationConfig `yaml:"simulation"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// GridConfig holds the grid extents in pixel-equivalent units.
type GridConfig struct {
	Width    int `yaml:"width"`
	Height   int `yaml:"height"`
	UnitSize int `yaml:"unit_size"`
}

// SimulationConfig holds tick loop and spawn timer settings.
type SimulationConfig struct {
	TickRate        float64 `yaml:"tick_rate"`         // Updates per second
	SpawnIntervalMS int     `yaml:"spawn_interval_ms"` // Spawn timer period
	PollIntervalUS  int     `yaml:"poll_interval_us"`  // Loop poll cadence (0 = busy poll)
	SpawningEnabled bool    `yaml:"spawning_enabled"`  // Initial spawn gate state
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Rows          int           // Grid.Height/UnitSize + 1
	Columns       int           // Grid.Width/UnitSize + 1
	Step          int           // UnitSize/4, pixels moved per tick
	TickDuration  time.Duration // 1s / TickRate
	SpawnInterval time.Duration
	PollInterval  time.Duration
	StatsTicks    int32 // StatsWindow in ticks, at least 1
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Parse(nil)
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are broken: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return Parse(data)
}

// Parse merges the YAML document over the embedded defaults, validates the
// result and computes derived values. A nil or empty document yields the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if len(data) > 0 {
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate checks the grid and timing constraints.
func (c *Config) Validate() error {
	g := c.Grid
	switch {
	case g.UnitSize <= 0:
		return fmt.Errorf("%w: grid.unit_size must be positive, got %d", ErrInvalidConfig, g.UnitSize)
	case g.UnitSize%4 != 0:
		return fmt.Errorf("%w: grid.unit_size must be a multiple of 4, got %d", ErrInvalidConfig, g.UnitSize)
	case g.Width <= 0 || g.Width%g.UnitSize != 0:
		return fmt.Errorf("%w: grid.width %d is not a positive multiple of %d", ErrInvalidConfig, g.Width, g.UnitSize)
	case g.Height <= 0 || g.Height%g.UnitSize != 0:
		return fmt.Errorf("%w: grid.height %d is not a positive multiple of %d", ErrInvalidConfig, g.Height, g.UnitSize)
	}

	s := c.Simulation
	switch {
	case s.TickRate <= 0:
		return fmt.Errorf("%w: simulation.tick_rate must be positive, got %v", ErrInvalidConfig, s.TickRate)
	case s.SpawnIntervalMS <= 0:
		return fmt.Errorf("%w: simulation.spawn_interval_ms must be positive, got %d", ErrInvalidConfig, s.SpawnIntervalMS)
	case s.PollIntervalUS < 0:
		return fmt.Errorf("%w: simulation.poll_interval_us must not be negative, got %d", ErrInvalidConfig, s.PollIntervalUS)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	u := c.Grid.UnitSize
	c.Derived.Rows = c.Grid.Height/u + 1
	c.Derived.Columns = c.Grid.Width/u + 1
	c.Derived.Step = u / 4

	c.Derived.TickDuration = time.Duration(float64(time.Second) / c.Simulation.TickRate)
	c.Derived.SpawnInterval = time.Duration(c.Simulation.SpawnIntervalMS) * time.Millisecond
	c.Derived.PollInterval = time.Duration(c.Simulation.PollIntervalUS) * time.Microsecond

	ticks := int32(c.Telemetry.StatsWindow * c.Simulation.TickRate)
	if ticks < 1 {
		ticks = 1
	}
	c.Derived.StatsTicks = ticks
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
