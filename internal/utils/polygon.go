package utils

import "math"

// ApproxPolyDP reduces a polyline or polygon with the Douglas–Peucker
// algorithm. For closed shapes the split point is the vertex farthest from
// the first one, so both halves are simplified independently and the
// result does not repeat the first point.
func ApproxPolyDP(pts []Point, epsilon float64, closed bool) []Point {
	n := len(pts)
	if n <= 2 || epsilon < 0 {
		return append([]Point(nil), pts...)
	}
	if !closed {
		keep := make([]bool, n)
		keep[0], keep[n-1] = true, true
		dpSimplify(pts, 0, n-1, epsilon, keep)
		return collectKept(pts, keep, n)
	}

	far, farDist := 0, -1.0
	for i := 1; i < n; i++ {
		if d := pts[0].Dist(pts[i]); d > farDist {
			far, farDist = i, d
		}
	}
	if farDist <= 0 {
		return []Point{pts[0]}
	}

	ring := make([]Point, n+1)
	copy(ring, pts)
	ring[n] = pts[0]
	keep := make([]bool, n+1)
	keep[0], keep[far] = true, true
	dpSimplify(ring, 0, far, epsilon, keep)
	dpSimplify(ring, far, n, epsilon, keep)
	return collectKept(ring, keep, n)
}

func collectKept(pts []Point, keep []bool, limit int) []Point {
	out := make([]Point, 0, 8)
	for i := 0; i < limit; i++ {
		if keep[i] {
			out = append(out, pts[i])
		}
	}
	return out
}

func dpSimplify(pts []Point, start, end int, eps float64, keep []bool) {
	if end <= start+1 {
		return
	}
	maxDist := -1.0
	index := -1
	a := pts[start]
	b := pts[end]
	for i := start + 1; i < end; i++ {
		d := perpendicularDistance(pts[i], a, b)
		if d > maxDist {
			maxDist = d
			index = i
		}
	}
	if maxDist > eps {
		dpSimplify(pts, start, index, eps, keep)
		keep[index] = true
		dpSimplify(pts, index, end, eps, keep)
	}
}

func perpendicularDistance(p, a, b Point) float64 {
	vx, vy := b.X-a.X, b.Y-a.Y
	if vx == 0 && vy == 0 {
		return p.Dist(a)
	}
	// Area of parallelogram / base length
	num := math.Abs((p.X-a.X)*vy - (p.Y-a.Y)*vx)
	return num / math.Hypot(vx, vy)
}

// ArcLength returns the perimeter of a polyline, including the closing
// segment when closed is true.
func ArcLength(pts []Point, closed bool) float64 {
	if len(pts) < 2 {
		return 0
	}
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += pts[i-1].Dist(pts[i])
	}
	if closed {
		total += pts[len(pts)-1].Dist(pts[0])
	}
	return total
}

// SignedArea returns the shoelace area. Positive for counter-clockwise
// vertex order in a Y-up frame, which is clockwise on screen.
func SignedArea(pts []Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	s := 0.0
	for i := range pts {
		j := (i + 1) % len(pts)
		s += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return s / 2
}

// ContourArea returns the absolute polygon area.
func ContourArea(pts []Point) float64 {
	return math.Abs(SignedArea(pts))
}

// IsConvex reports whether the polygon turns consistently in one direction.
func IsConvex(pts []Point) bool {
	n := len(pts)
	if n < 3 {
		return false
	}
	sign := 0
	for i := range n {
		c := cross(pts[i], pts[(i+1)%n], pts[(i+2)%n])
		switch {
		case c > 0:
			if sign < 0 {
				return false
			}
			sign = 1
		case c < 0:
			if sign > 0 {
				return false
			}
			sign = -1
		}
	}
	return sign != 0
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// Moments holds the spatial moments of a polygon up to first order.
type Moments struct {
	M00 float64
	M10 float64
	M01 float64
}

// Centroid returns (M10/M00, M01/M00). ok is false when M00 is zero.
func (m Moments) Centroid() (Point, bool) {
	if m.M00 == 0 {
		return Point{}, false
	}
	return Point{X: m.M10 / m.M00, Y: m.M01 / m.M00}, true
}

// PolygonMoments integrates the first-order moments over the polygon
// interior using Green's theorem. The sign is normalized so M00 is the
// non-negative area.
func PolygonMoments(pts []Point) Moments {
	var m Moments
	if len(pts) < 3 {
		return m
	}
	for i := range pts {
		p, q := pts[i], pts[(i+1)%len(pts)]
		a := p.X*q.Y - q.X*p.Y
		m.M00 += a
		m.M10 += a * (p.X + q.X)
		m.M01 += a * (p.Y + q.Y)
	}
	m.M00 /= 2
	m.M10 /= 6
	m.M01 /= 6
	if m.M00 < 0 {
		m.M00, m.M10, m.M01 = -m.M00, -m.M10, -m.M01
	}
	return m
}
