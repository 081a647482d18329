package detector

import "github.com/MeKo-Tech/robomaze/internal/utils"

// Contour is the outer boundary of one component, as pixel-centre points in
// clockwise screen order.
type Contour struct {
	Points    []utils.Point
	Component Component
}

// Area is the polygon area enclosed by the boundary points.
func (c Contour) Area() float64 { return utils.ContourArea(c.Points) }

// Perimeter is the closed arc length of the boundary.
func (c Contour) Perimeter() float64 { return utils.ArcLength(c.Points, true) }

// Moments returns the polygon moments of the boundary.
func (c Contour) Moments() utils.Moments { return utils.PolygonMoments(c.Points) }

// ExternalContours traces the outer boundary of every 8-connected region of
// m. Holes are ignored. Contours are returned in label order.
func ExternalContours(m *Mask) []Contour {
	l := LabelComponents(m)
	defer l.Release()

	out := make([]Contour, 0, len(l.Components))
	for _, c := range l.Components {
		out = append(out, Contour{Points: traceContourMoore(l, c), Component: c})
	}
	return out
}

// traceContourMoore walks the boundary of component c with Moore-neighbour
// tracing. The start pixel is the first pixel in raster order, so its west
// neighbour is always background and serves as the initial backtrack.
func traceContourMoore(l *Labeling, c Component) []utils.Point {
	label := c.Label
	sx, sy := c.StartX, c.StartY
	pts := []utils.Point{{X: float64(sx), Y: float64(sy)}}

	cx, cy := sx, sy
	bx, by := sx-1, sy
	firstX, firstY := -1, -1
	maxSteps := 4*c.Pixels + 8

	for step := 0; step < maxSteps; step++ {
		nx, ny, nbx, nby, found := findNextBoundaryPixel(l, label, cx, cy, bx, by)
		if !found {
			// isolated pixel
			break
		}
		if step == 0 {
			firstX, firstY = nx, ny
		} else if cx == sx && cy == sy && nx == firstX && ny == firstY {
			break
		}
		cx, cy, bx, by = nx, ny, nbx, nby
		pts = append(pts, utils.Point{X: float64(cx), Y: float64(cy)})
	}

	// The walk ends on the start pixel; drop the duplicate.
	if n := len(pts); n > 1 && pts[n-1] == pts[0] {
		pts = pts[:n-1]
	}
	return pts
}

// findNextBoundaryPixel scans the 8 neighbours of (cx, cy) clockwise,
// starting just after the backtrack pixel (bx, by). It returns the first
// pixel of label found and the background pixel examined right before it,
// which becomes the next backtrack.
func findNextBoundaryPixel(l *Labeling, label int32, cx, cy, bx, by int) (int, int, int, int, bool) {
	start := (dirIndex(bx-cx, by-cy) + 1) % 8
	px, py := bx, by
	for k := range 8 {
		d := neighbors8[(start+k)%8]
		tx, ty := cx+d[0], cy+d[1]
		if l.LabelAt(tx, ty) == label {
			return tx, ty, px, py, true
		}
		px, py = tx, ty
	}
	return 0, 0, bx, by, false
}

func dirIndex(dx, dy int) int {
	for i, d := range neighbors8 {
		if d[0] == dx && d[1] == dy {
			return i
		}
	}
	return 0
}
