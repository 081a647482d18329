package detector

import (
	"github.com/MeKo-Tech/robomaze/internal/mempool"
)

// Component describes one 8-connected region of set mask pixels.
type Component struct {
	Label  int32
	Pixels int
	MinX   int
	MinY   int
	MaxX   int
	MaxY   int
	// StartX, StartY is the first pixel of the region in raster order.
	StartX int
	StartY int
}

// Labeling is the result of connected component analysis. Labels holds the
// component label of every pixel (0 for background).
type Labeling struct {
	W, H       int
	Labels     []int32
	Components []Component
}

// Release returns the label buffer to the pool.
func (l *Labeling) Release() {
	if l == nil || l.Labels == nil {
		return
	}
	mempool.PutInt32(l.Labels)
	l.Labels = nil
}

// LabelAt returns the label at (x, y), or 0 outside the image.
func (l *Labeling) LabelAt(x, y int) int32 {
	if x < 0 || y < 0 || x >= l.W || y >= l.H {
		return 0
	}
	return l.Labels[y*l.W+x]
}

var neighbors8 = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}

// LabelComponents finds the 8-connected regions of m. Components are
// numbered from 1 in the raster order of their first pixel.
func LabelComponents(m *Mask) *Labeling {
	l := &Labeling{W: m.W, H: m.H, Labels: mempool.GetInt32(m.W * m.H)}
	var queue []int
	next := int32(1)

	for y := range m.H {
		for x := range m.W {
			idx := y*m.W + x
			if m.Pix[idx] == 0 || l.Labels[idx] != 0 {
				continue
			}
			c := Component{Label: next, MinX: x, MinY: y, MaxX: x, MaxY: y, StartX: x, StartY: y}
			l.Labels[idx] = next
			queue = append(queue[:0], idx)
			for len(queue) > 0 {
				ci := queue[0]
				queue = queue[1:]
				cx, cy := ci%m.W, ci/m.W
				c.grow(cx, cy)
				for _, d := range neighbors8 {
					nx, ny := cx+d[0], cy+d[1]
					if nx < 0 || ny < 0 || nx >= m.W || ny >= m.H {
						continue
					}
					ni := ny*m.W + nx
					if m.Pix[ni] != 0 && l.Labels[ni] == 0 {
						l.Labels[ni] = next
						queue = append(queue, ni)
					}
				}
			}
			l.Components = append(l.Components, c)
			next++
		}
	}
	return l
}

func (c *Component) grow(x, y int) {
	c.Pixels++
	c.MinX = min(c.MinX, x)
	c.MinY = min(c.MinY, y)
	c.MaxX = max(c.MaxX, x)
	c.MaxY = max(c.MaxY, y)
}
