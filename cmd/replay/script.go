package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/sandfall/game"
	"github.com/pthm-cable/sandfall/systems"
)

var errEmptyStep = errors.New("step has no command")

// Point is a pointer position in grid pixels.
type Point struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// Step is one scripted command. Exactly one field is set.
type Step struct {
	Spawn  *Point             `yaml:"spawn,omitempty"`
	Rotate *systems.Direction `yaml:"rotate,omitempty"`
	Reset  bool               `yaml:"reset,omitempty"`
	Toggle bool               `yaml:"toggle,omitempty"`
	Tick   int                `yaml:"tick,omitempty"` // number of ticks to run
}

// Script is a sequence of commands replayed against a fresh game.
type Script struct {
	Steps []Step `yaml:"steps"`
}

// Result counts what a replay did.
type Result struct {
	Ticks    int
	Spawned  int
	Rejected int
	Released int
	Cleared  int
}

// LoadScript reads a YAML script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return ParseScript(data)
}

// ParseScript decodes and checks a YAML script.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	for i, st := range s.Steps {
		if err := st.validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return &s, nil
}

func (st Step) validate() error {
	n := 0
	if st.Spawn != nil {
		n++
	}
	if st.Rotate != nil {
		n++
	}
	if st.Reset {
		n++
	}
	if st.Toggle {
		n++
	}
	if st.Tick != 0 {
		if st.Tick < 0 {
			return fmt.Errorf("tick count %d must be positive", st.Tick)
		}
		n++
	}

	switch {
	case n == 0:
		return errEmptyStep
	case n > 1:
		return fmt.Errorf("step sets %d commands, want 1", n)
	}
	return nil
}

// Run applies every step to g in order.
func (s *Script) Run(g *game.Game) (Result, error) {
	var res Result
	for i, st := range s.Steps {
		switch {
		case st.Spawn != nil:
			if g.SpawnAt(st.Spawn.X, st.Spawn.Y) {
				res.Spawned++
			} else {
				res.Rejected++
			}
		case st.Rotate != nil:
			_, settled := g.Counts()
			if err := g.RotateGravity(*st.Rotate); err != nil {
				return res, fmt.Errorf("step %d: %w", i+1, err)
			}
			res.Released += settled
		case st.Reset:
			res.Cleared += g.Reset()
		case st.Toggle:
			g.ToggleSpawning()
		case st.Tick > 0:
			for n := 0; n < st.Tick; n++ {
				g.TickOnce()
			}
			res.Ticks += st.Tick
		}
	}
	return res, nil
}
