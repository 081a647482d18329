package detector

import (
	"testing"

	"github.com/MeKo-Tech/robomaze/internal/utils"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelComponents(t *testing.T) {
	m := maskFromRows(
		"##....#",
		"##...#.",
		"......#",
		"###....",
	)
	defer m.Release()

	l := LabelComponents(m)
	defer l.Release()

	require.Len(t, l.Components, 3)
	assert.Equal(t, 4, l.Components[0].Pixels)
	// Diagonal neighbours join under 8-connectivity.
	assert.Equal(t, 3, l.Components[1].Pixels)
	assert.Equal(t, 6, l.Components[1].StartX)
	assert.Equal(t, 3, l.Components[2].Pixels)
	assert.Equal(t, Component{Label: 3, Pixels: 3, MinX: 0, MinY: 3, MaxX: 2, MaxY: 3, StartX: 0, StartY: 3}, l.Components[2])
	assert.Equal(t, int32(2), l.LabelAt(5, 1))
	assert.Equal(t, int32(0), l.LabelAt(-1, 0))
}

func TestExternalContours_Square(t *testing.T) {
	m := maskFromRows(
		".....",
		".###.",
		".###.",
		".###.",
		".....",
	)
	defer m.Release()

	cs := ExternalContours(m)
	require.Len(t, cs, 1)
	assert.Equal(t, []utils.Point{
		{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 3, Y: 1}, {X: 3, Y: 2},
		{X: 3, Y: 3}, {X: 2, Y: 3}, {X: 1, Y: 3}, {X: 1, Y: 2},
	}, cs[0].Points)
	assert.InDelta(t, 4.0, cs[0].Area(), 1e-9)
	assert.InDelta(t, 8.0, cs[0].Perimeter(), 1e-9)
}

func TestExternalContours_IgnoresHoles(t *testing.T) {
	m := maskFromRows(
		"#####",
		"#...#",
		"#...#",
		"#####",
	)
	defer m.Release()

	cs := ExternalContours(m)
	require.Len(t, cs, 1)
	assert.InDelta(t, 12.0, cs[0].Area(), 1e-9)
}

func TestExternalContours_Degenerate(t *testing.T) {
	m := maskFromRows(
		"#....",
		".....",
		"..###",
	)
	defer m.Release()

	cs := ExternalContours(m)
	require.Len(t, cs, 2)
	assert.Equal(t, []utils.Point{{X: 0, Y: 0}}, cs[0].Points)
	assert.Zero(t, cs[0].Area())
	// A one-pixel-thick line walks out and back.
	assert.Len(t, cs[1].Points, 4)
	assert.Zero(t, cs[1].Area())
}

func TestTraceContour_RectangleAreaProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("rectangle boundary encloses (w-1)(h-1)", prop.ForAll(
		func(w, h, ox, oy int) bool {
			m := NewMask(w+ox+2, h+oy+2)
			defer m.Release()
			for y := oy; y < oy+h; y++ {
				for x := ox; x < ox+w; x++ {
					m.Set(x, y, true)
				}
			}
			cs := ExternalContours(m)
			if len(cs) != 1 {
				return false
			}
			for _, p := range cs[0].Points {
				onEdge := int(p.X) == ox || int(p.X) == ox+w-1 || int(p.Y) == oy || int(p.Y) == oy+h-1
				if !onEdge {
					return false
				}
			}
			return cs[0].Area() == float64((w-1)*(h-1))
		},
		gen.IntRange(2, 40),
		gen.IntRange(2, 40),
		gen.IntRange(0, 5),
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}
