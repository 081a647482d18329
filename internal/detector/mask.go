// Package detector turns colour photographs into binary masks and extracts
// the maze boundary and the coloured markers from them.
package detector

import (
	"image"

	"github.com/MeKo-Tech/robomaze/internal/mempool"
)

// Foreground is the pixel value of set mask pixels.
const Foreground = 255

// Mask is a single-channel binary image with values 0 or Foreground.
// Pixels are stored row-major without padding.
type Mask struct {
	W, H int
	Pix  []byte
}

// NewMask allocates an empty mask from the buffer pool. Call Release when
// the mask is no longer referenced.
func NewMask(w, h int) *Mask {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Mask{W: w, H: h, Pix: mempool.GetBytes(w * h)}
}

// Release hands the pixel buffer back to the pool. The mask must not be
// used afterwards. Nil masks are ignored.
func (m *Mask) Release() {
	if m == nil || m.Pix == nil {
		return
	}
	mempool.PutBytes(m.Pix)
	m.Pix = nil
}

// At reports whether (x, y) is set. Out-of-range coordinates are unset.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.W || y >= m.H {
		return false
	}
	return m.Pix[y*m.W+x] != 0
}

// Set updates the pixel at (x, y).
func (m *Mask) Set(x, y int, on bool) {
	if x < 0 || y < 0 || x >= m.W || y >= m.H {
		return
	}
	if on {
		m.Pix[y*m.W+x] = Foreground
	} else {
		m.Pix[y*m.W+x] = 0
	}
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// CountRect returns the number of set pixels inside r, clipped to the mask.
func (m *Mask) CountRect(r image.Rectangle) int {
	r = r.Intersect(image.Rect(0, 0, m.W, m.H))
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := m.Pix[y*m.W : (y+1)*m.W]
		for x := r.Min.X; x < r.Max.X; x++ {
			if row[x] != 0 {
				n++
			}
		}
	}
	return n
}

// Clone returns a pooled copy of m.
func (m *Mask) Clone() *Mask {
	out := NewMask(m.W, m.H)
	copy(out.Pix, m.Pix)
	return out
}

// Invert flips every pixel in place.
func (m *Mask) Invert() {
	for i, v := range m.Pix {
		if v != 0 {
			m.Pix[i] = 0
		} else {
			m.Pix[i] = Foreground
		}
	}
}

// Image returns a grayscale copy suitable for PNG encoding.
func (m *Mask) Image() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.W, m.H))
	copy(g.Pix, m.Pix)
	return g
}

// MaskFromGray builds a mask from g where pixels above level are set.
func MaskFromGray(g *image.Gray, level uint8) *Mask {
	b := g.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := range m.H {
		src := g.Pix[y*g.Stride : y*g.Stride+m.W]
		dst := m.Pix[y*m.W : (y+1)*m.W]
		for x, v := range src {
			if v > level {
				dst[x] = Foreground
			}
		}
	}
	return m
}
