package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	g, err := Parse(
		"#..",
		".1.",
	)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Rows())
	assert.Equal(t, 3, g.Cols())
	assert.Equal(t, 1, g.CellSize())
	assert.Equal(t, Wall, g.At(Point{0, 0}))
	assert.Equal(t, Wall, g.At(Point{1, 1}))
	assert.Equal(t, Free, g.At(Point{0, 2}))
	assert.Equal(t, 2, g.Count(Wall))
	assert.Equal(t, [][]int{{1, 0, 0}, {0, 1, 0}}, g.Matrix())

	_, err = Parse("##", "#")
	require.ErrorIs(t, err, ErrInvalidGrid)
	_, err = Parse()
	require.ErrorIs(t, err, ErrInvalidGrid)
	assert.Panics(t, func() { MustParse() })
}

func TestNew_Validation(t *testing.T) {
	_, err := New(0, 3, 1, nil)
	require.ErrorIs(t, err, ErrInvalidGrid)
	_, err = New(2, 2, 1, []Cell{Free})
	require.ErrorIs(t, err, ErrInvalidGrid)

	for _, size := range []int{0, -5} {
		_, err = New(2, 2, size, make([]Cell, 4))
		require.ErrorIs(t, err, ErrInvalidGrid, "cell size %d", size)
	}

	cells := []Cell{Free, Wall, Free, Free}
	g, err := New(2, 2, 3, cells)
	require.NoError(t, err)
	assert.Equal(t, 3, g.CellSize())
	cells[0] = Wall
	assert.Equal(t, Free, g.At(Point{0, 0}), "grid must not alias the input slice")
	out := g.Cells()
	out[3] = Wall
	assert.Equal(t, Free, g.At(Point{1, 1}))
}

func TestBoundsAndFree(t *testing.T) {
	g := MustParse(
		"..",
		".#",
	)
	assert.True(t, g.InBounds(Point{1, 1}))
	assert.False(t, g.InBounds(Point{2, 0}))
	assert.False(t, g.InBounds(Point{0, -1}))
	assert.Equal(t, Wall, g.At(Point{-1, 0}))
	assert.True(t, g.IsFree(Point{0, 1}))
	assert.False(t, g.IsFree(Point{1, 1}))
	assert.False(t, g.IsFree(Point{5, 5}))
}

func TestString(t *testing.T) {
	g := MustParse("#.", ".#")
	assert.Equal(t, "Grid size: 2 x 2\n\n1 0 \n0 1 \n", g.String())
	assert.Equal(t, "3,4", Point{3, 4}.String())
	assert.Equal(t, "wall", Wall.String())
	assert.Equal(t, "free", Free.String())
}

func TestCenter(t *testing.T) {
	g, err := New(2, 2, 10, make([]Cell, 4))
	require.NoError(t, err)
	x, y := g.Center(Point{Row: 1, Col: 0})
	assert.Equal(t, 5.0, x)
	assert.Equal(t, 15.0, y)
}
