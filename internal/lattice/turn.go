package lattice

import (
	"fmt"
	"strings"
)

// Vec is an integer lattice point or displacement.
type Vec struct {
	X, Y, Z int
}

func (v Vec) Add(o Vec) Vec { return Vec{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec) Sub(o Vec) Vec { return Vec{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec) Neg() Vec { return Vec{-v.X, -v.Y, -v.Z} }

// Manhattan is the L1 norm.
func (v Vec) Manhattan() int { return abs(v.X) + abs(v.Y) + abs(v.Z) }

// NormSquared is the squared Euclidean norm.
func (v Vec) NormSquared() int { return v.X*v.X + v.Y*v.Y + v.Z*v.Z }

// Less orders vectors lexicographically by (X, Y, Z).
func (v Vec) Less(o Vec) bool {
	if v.X != o.X {
		return v.X < o.X
	}
	if v.Y != o.Y {
		return v.Y < o.Y
	}
	return v.Z < o.Z
}

func (v Vec) String() string { return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z) }

// Every walk starts with residue 0 at Origin and residue 1 at SeedCell.
var (
	Origin   = Vec{}
	SeedCell = Vec{X: 1}
)

// Unit axis steps.
var (
	PlusX  = Vec{X: 1}
	MinusX = Vec{X: -1}
	PlusY  = Vec{Y: 1}
	MinusY = Vec{Y: -1}
	PlusZ  = Vec{Z: 1}
	MinusZ = Vec{Z: -1}
)

// Dimension selects the planar or the cubic lattice.
type Dimension int

const (
	Dim2 Dimension = 2
	Dim3 Dimension = 3
)

func (d Dimension) Valid() bool { return d == Dim2 || d == Dim3 }

func (d Dimension) String() string {
	switch d {
	case Dim2:
		return "2d"
	case Dim3:
		return "3d"
	default:
		return fmt.Sprintf("dim(%d)", int(d))
	}
}

// Turns returns the turn alphabet of the dimension, Straight first.
func (d Dimension) Turns() []Turn {
	if d == Dim3 {
		return []Turn{Straight, Left, Right, Up, Down}
	}
	return []Turn{Straight, Left, Right}
}

// Neighbors returns the unit offsets of lattice-adjacent cells.
func (d Dimension) Neighbors() []Vec {
	if d == Dim3 {
		return []Vec{PlusX, MinusX, PlusY, MinusY, PlusZ, MinusZ}
	}
	return []Vec{PlusX, MinusX, PlusY, MinusY}
}

// Axes returns the unit step per axis, used to build canceling step pairs.
func (d Dimension) Axes() []Vec {
	if d == Dim3 {
		return []Vec{PlusX, PlusY, PlusZ}
	}
	return []Vec{PlusX, PlusY}
}

// Allows reports whether the turn belongs to the dimension's alphabet.
func (d Dimension) Allows(t Turn) bool {
	switch t {
	case Straight, Left, Right:
		return true
	case Up, Down:
		return d == Dim3
	default:
		return false
	}
}

// Turn is a move relative to the current heading.
type Turn uint8

const (
	Straight Turn = iota
	Left
	Right
	Up
	Down
)

const turnLetters = "SLRUD"

func (t Turn) String() string {
	if int(t) < len(turnLetters) {
		return turnLetters[t : t+1]
	}
	return "?"
}

// Apply rotates heading h by the turn.
//
// Left/Right pivot in the xy plane while the heading has no z component and in
// the yz plane otherwise. Up/Down pivot in the xz plane while the heading has no
// y component and in the xy plane otherwise. The rule is axis dependent on
// purpose: from a ±y heading Up/Down coincide with Right/Left.
func (t Turn) Apply(h Vec) Vec {
	switch t {
	case Straight:
		return h
	case Left:
		if h.Z == 0 {
			return Vec{h.Y, -h.X, h.Z}
		}
		return Vec{h.X, -h.Z, h.Y}
	case Right:
		if h.Z == 0 {
			return Vec{-h.Y, h.X, h.Z}
		}
		return Vec{h.X, h.Z, -h.Y}
	case Up:
		if h.Y == 0 {
			return Vec{-h.Z, h.Y, h.X}
		}
		return Vec{-h.Y, h.X, h.Z}
	case Down:
		if h.Y == 0 {
			return Vec{h.Z, h.Y, -h.X}
		}
		return Vec{h.Y, -h.X, h.Z}
	default:
		return h
	}
}

// TurnBetween finds the first turn of the dimension's alphabet that maps
// heading h onto step d. ok is false when no turn reaches d, e.g. a reversal.
func TurnBetween(h, d Vec, dim Dimension) (Turn, bool) {
	for _, t := range dim.Turns() {
		if t.Apply(h) == d {
			return t, true
		}
	}
	return Straight, false
}

// FormatTurns renders turns as S/L/R/U/D letters.
func FormatTurns(turns []Turn) string {
	var b strings.Builder
	b.Grow(len(turns))
	for _, t := range turns {
		b.WriteString(t.String())
	}
	return b.String()
}

// ParseTurns decodes S/L/R/U/D letters, case-insensitively.
func ParseTurns(s string) ([]Turn, error) {
	turns := make([]Turn, 0, len(s))
	for i, ch := range strings.ToUpper(s) {
		idx := strings.IndexRune(turnLetters, ch)
		if idx < 0 {
			return nil, fmt.Errorf("invalid turn %q at offset %d", ch, i)
		}
		turns = append(turns, Turn(idx))
	}
	return turns, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
