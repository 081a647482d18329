package pipeline

import (
	"image"
	"image/color"

	"github.com/MeKo-Tech/robomaze/internal/grid"
	"github.com/MeKo-Tech/robomaze/internal/utils"
)

// Overlay colours.
var (
	WallColor   = color.RGBA{A: 255}
	FreeColor   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	MarkerColor = color.RGBA{G: 200, A: 255}
	RouteColor  = color.RGBA{R: 255, A: 255}
	StartColor  = color.RGBA{G: 255, A: 255}
	EndColor    = color.RGBA{B: 255, A: 255}
)

// RenderGrid paints every cell of the session grid at its pixel size and
// marks each detected marker with a disc.
func RenderGrid(s *Session) *image.RGBA {
	if s == nil || s.Grid == nil {
		return nil
	}
	g := s.Grid
	cell := g.CellSize()
	dst := image.NewRGBA(image.Rect(0, 0, g.Cols()*cell, g.Rows()*cell))
	for r := range g.Rows() {
		for c := range g.Cols() {
			col := FreeColor
			if g.At(grid.Point{Row: r, Col: c}) == grid.Wall {
				col = WallColor
			}
			utils.FillRect(dst, image.Rect(c*cell, r*cell, (c+1)*cell, (r+1)*cell), col)
		}
	}
	radius := max(2, cell)
	for _, p := range s.GridPoints {
		x, y := g.Center(p)
		utils.FillCircle(dst, int(x), int(y), radius, MarkerColor)
	}
	return dst
}

// RenderRoute draws route over the grid rendering: a polyline through the
// cell centres with the start and end cells highlighted.
func RenderRoute(s *Session, route *Route) *image.RGBA {
	dst := RenderGrid(s)
	if dst == nil || route == nil || len(route.Path) == 0 {
		return dst
	}
	g := s.Grid
	cell := g.CellSize()
	pts := make([]utils.Point, len(route.Path))
	for i, p := range route.Path {
		x, y := g.Center(p)
		pts[i] = utils.Point{X: x, Y: y}
	}
	utils.DrawPolyline(dst, pts, RouteColor, max(1, cell/2))

	radius := max(2, cell*3/4)
	sx, sy := g.Center(route.Path.Start())
	utils.FillCircle(dst, int(sx), int(sy), radius, StartColor)
	ex, ey := g.Center(route.Path.End())
	utils.FillCircle(dst, int(ex), int(ey), radius, EndColor)
	return dst
}
