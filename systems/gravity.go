package systems

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDirection is returned for a gravity direction outside the four cardinals.
var ErrInvalidDirection = errors.New("invalid gravity direction")

// Direction is one of the four cardinal gravity directions.
type Direction uint8

const (
	Down Direction = iota
	Right
	Up
	Left
)

// Directions lists every valid direction in rotation order.
var Directions = [...]Direction{Down, Right, Up, Left}

// Valid reports whether d is one of the four cardinals.
func (d Direction) Valid() bool {
	return d <= Left
}

func (d Direction) String() string {
	switch d {
	case Down:
		return "down"
	case Right:
		return "right"
	case Up:
		return "up"
	case Left:
		return "left"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Next returns the following direction in Down, Right, Up, Left order.
func (d Direction) Next() Direction {
	return (d + 1) % 4
}

// Unit returns the unit vector for d. Invalid directions return (0, 0).
func (d Direction) Unit() (ux, uy int) {
	switch d {
	case Down:
		return 0, 1
	case Right:
		return 1, 0
	case Up:
		return 0, -1
	case Left:
		return -1, 0
	default:
		return 0, 0
	}
}

// Vertical reports whether d moves along the y axis.
func (d Direction) Vertical() bool {
	return d == Down || d == Up
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDirection, uint8(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDirection accepts a direction name or its single-letter key
// (D, R, U, L), case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "down", "d":
		return Down, nil
	case "right", "r":
		return Right, nil
	case "up", "u":
		return Up, nil
	case "left", "l":
		return Left, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// Gravity holds the active direction and its per-tick displacement.
type Gravity struct {
	step   int
	dir    Direction
	dx, dy int
}

// NewGravity creates a director pointing Down that moves particles step
// pixels per tick.
func NewGravity(step int) *Gravity {
	g := &Gravity{step: step}
	g.set(Down)
	return g
}

// RotateTo activates d. Invalid directions are rejected and leave the
// current direction unchanged.
func (g *Gravity) RotateTo(d Direction) error {
	if !d.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidDirection, uint8(d))
	}
	g.set(d)
	return nil
}

// Direction returns the active direction.
func (g *Gravity) Direction() Direction {
	return g.dir
}

// Vector returns the displacement applied to moving particles each tick.
func (g *Gravity) Vector() (dx, dy int) {
	return g.dx, g.dy
}

// Step returns the displacement magnitude.
func (g *Gravity) Step() int {
	return g.step
}

func (g *Gravity) set(d Direction) {
	ux, uy := d.Unit()
	g.dir = d
	g.dx, g.dy = ux*g.step, uy*g.step
}
