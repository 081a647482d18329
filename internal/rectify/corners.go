package rectify

import (
	"sort"

	"github.com/MeKo-Tech/robomaze/internal/utils"
)

// Corners holds a quadrilateral in canonical order: top-left, top-right,
// bottom-right, bottom-left.
type Corners [4]utils.Point

// SortCorners orders four points as TL, TR, BR, BL. Points are sorted by
// ascending Y; of the upper pair the smaller X becomes TL, of the lower
// pair the larger X becomes BR. Equal Y values keep their input order.
func SortCorners(pts [4]utils.Point) Corners {
	c := Corners(pts)
	sort.SliceStable(c[:], func(i, j int) bool { return c[i].Y < c[j].Y })
	if c[0].X > c[1].X {
		c[0], c[1] = c[1], c[0]
	}
	if c[2].X < c[3].X {
		c[2], c[3] = c[3], c[2]
	}
	return c
}

// Points returns the corners as a slice for drawing helpers.
func (c Corners) Points() []utils.Point {
	return []utils.Point{c[0], c[1], c[2], c[3]}
}

// CanvasCorners returns the destination rectangle of a size x size canvas
// in canonical order.
func CanvasCorners(size int) Corners {
	s := float64(size)
	return Corners{{X: 0, Y: 0}, {X: s, Y: 0}, {X: s, Y: s}, {X: 0, Y: s}}
}
