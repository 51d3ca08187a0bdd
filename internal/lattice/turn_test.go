package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var axisHeadings = []Vec{PlusX, MinusX, PlusY, MinusY, PlusZ, MinusZ}

func TestTurnApplyAxisHeadings(t *testing.T) {
	cases := []struct {
		heading               Vec
		left, right, up, down Vec
	}{
		{PlusX, MinusY, PlusY, PlusZ, MinusZ},
		{MinusX, PlusY, MinusY, MinusZ, PlusZ},
		// from a y heading Up/Down collapse onto Right/Left
		{PlusY, PlusX, MinusX, MinusX, PlusX},
		{MinusY, MinusX, PlusX, PlusX, MinusX},
		{PlusZ, MinusY, PlusY, MinusX, PlusX},
		{MinusZ, PlusY, MinusY, PlusX, MinusX},
	}
	for _, tc := range cases {
		t.Run(tc.heading.String(), func(t *testing.T) {
			assert.Equal(t, tc.heading, Straight.Apply(tc.heading))
			assert.Equal(t, tc.left, Left.Apply(tc.heading))
			assert.Equal(t, tc.right, Right.Apply(tc.heading))
			assert.Equal(t, tc.up, Up.Apply(tc.heading))
			assert.Equal(t, tc.down, Down.Apply(tc.heading))
		})
	}
}

func TestTurnApplyYieldsPerpendicularUnitSteps(t *testing.T) {
	for _, h := range axisHeadings {
		for _, turn := range []Turn{Left, Right, Up, Down} {
			next := turn.Apply(h)
			assert.Equal(t, 1, next.Manhattan(), "heading %s turn %s", h, turn)
			dot := h.X*next.X + h.Y*next.Y + h.Z*next.Z
			assert.Zero(t, dot, "heading %s turn %s", h, turn)
		}
	}
}

func TestTurnApplyPlanarRule(t *testing.T) {
	for _, h := range []Vec{PlusX, MinusX, PlusY, MinusY} {
		assert.Equal(t, Vec{h.Y, -h.X, 0}, Left.Apply(h))
		assert.Equal(t, Vec{-h.Y, h.X, 0}, Right.Apply(h))
	}
}

func TestTurnBetween(t *testing.T) {
	for _, dim := range []Dimension{Dim2, Dim3} {
		headings := axisHeadings
		if dim == Dim2 {
			headings = headings[:4]
		}
		for _, h := range headings {
			for _, turn := range dim.Turns() {
				step := turn.Apply(h)
				found, ok := TurnBetween(h, step, dim)
				require.True(t, ok)
				assert.Equal(t, step, found.Apply(h))
				assert.True(t, dim.Allows(found))
			}
			_, ok := TurnBetween(h, h.Neg(), dim)
			assert.False(t, ok, "reversal from %s", h)
		}
	}

	// z steps are unreachable from a y heading under the asymmetric rule
	_, ok := TurnBetween(PlusY, PlusZ, Dim3)
	assert.False(t, ok)
	_, ok = TurnBetween(PlusX, PlusZ, Dim2)
	assert.False(t, ok)
}

func TestParseTurns(t *testing.T) {
	turns, err := ParseTurns("slrUD")
	require.NoError(t, err)
	assert.Equal(t, []Turn{Straight, Left, Right, Up, Down}, turns)
	assert.Equal(t, "SLRUD", FormatTurns(turns))

	_, err = ParseTurns("SLX")
	assert.Error(t, err)

	empty, err := ParseTurns("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDimensionAlphabet(t *testing.T) {
	assert.Len(t, Dim2.Turns(), 3)
	assert.Len(t, Dim3.Turns(), 5)
	assert.Len(t, Dim2.Neighbors(), 4)
	assert.Len(t, Dim3.Neighbors(), 6)
	assert.False(t, Dimension(4).Valid())
	assert.False(t, Dim2.Allows(Up))
	assert.True(t, Dim3.Allows(Down))
}
