package utils

import (
	"image"
	"image/color"
	"math"
)

// Point represents a 2D coordinate in float space. X runs along image
// columns, Y along image rows.
type Point struct {
	X float64
	Y float64
}

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Box represents an axis-aligned, half-open region [Min, Max) in float
// coordinates.
type Box struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// SquareBox returns the box covering a size x size canvas at the origin.
func SquareBox(size float64) Box {
	return Box{MaxX: size, MaxY: size}
}

// Contains reports whether p lies inside b. The max edges are exclusive.
func (b Box) Contains(p Point) bool {
	return p.X >= b.MinX && p.Y >= b.MinY && p.X < b.MaxX && p.Y < b.MaxY
}

// ClampInt limits v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FillRect paints rect (clipped to dst) with col.
func FillRect(dst *image.RGBA, rect image.Rectangle, col color.Color) {
	rect = rect.Intersect(dst.Bounds())
	c := color.RGBAModel.Convert(col).(color.RGBA)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.SetRGBA(x, y, c)
		}
	}
}

// FillCircle paints a filled disc of radius r centred on (cx, cy).
func FillCircle(dst *image.RGBA, cx, cy, r int, col color.Color) {
	if r < 0 {
		return
	}
	b := dst.Bounds()
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy > r*r {
				continue
			}
			if image.Pt(x, y).In(b) {
				dst.Set(x, y, col)
			}
		}
	}
}

// DrawPolygon draws connected line segments and closes the polygon.
func DrawPolygon(dst *image.RGBA, pts []Point, col color.Color, thickness int) {
	if len(pts) < 2 {
		return
	}
	ip := toImagePoints(pts)
	for i := range ip {
		drawLine(dst, ip[i], ip[(i+1)%len(ip)], col, thickness)
	}
}

// DrawPolyline draws connected line segments without closing the shape.
func DrawPolyline(dst *image.RGBA, pts []Point, col color.Color, thickness int) {
	if len(pts) == 0 {
		return
	}
	ip := toImagePoints(pts)
	if len(ip) == 1 {
		drawThickPoint(dst, ip[0].X, ip[0].Y, col, thickness)
		return
	}
	for i := 0; i+1 < len(ip); i++ {
		drawLine(dst, ip[i], ip[i+1], col, thickness)
	}
}

func toImagePoints(pts []Point) []image.Point {
	ip := make([]image.Point, len(pts))
	for i, p := range pts {
		ip[i] = image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
	}
	return ip
}

// drawLine draws a line between two points using Bresenham.
func drawLine(dst *image.RGBA, a, b image.Point, col color.Color, thickness int) {
	x0, y0 := a.X, a.Y
	x1, y1 := b.X, b.Y
	dx := absInt(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -absInt(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		drawThickPoint(dst, x0, y0, col, thickness)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func drawThickPoint(dst *image.RGBA, x, y int, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	r := (thickness - 1) / 2
	for yy := y - r; yy <= y+r; yy++ {
		for xx := x - r; xx <= x+r; xx++ {
			if image.Pt(xx, yy).In(dst.Bounds()) {
				dst.Set(xx, yy, col)
			}
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
