package detector

import (
	"fmt"
	"math"
)

// MorphologicalOp represents the type of morphological operation to perform.
type MorphologicalOp int

const (
	MorphNone MorphologicalOp = iota
	MorphDilate
	MorphErode
	MorphOpening // erode then dilate, removes specks
	MorphClosing // dilate then erode, fills pinholes
)

func (op MorphologicalOp) String() string {
	switch op {
	case MorphNone:
		return "none"
	case MorphDilate:
		return "dilate"
	case MorphErode:
		return "erode"
	case MorphOpening:
		return "opening"
	case MorphClosing:
		return "closing"
	default:
		return fmt.Sprintf("MorphologicalOp(%d)", int(op))
	}
}

// KernelShape selects the structuring element footprint.
type KernelShape int

const (
	KernelRect KernelShape = iota
	KernelEllipse
	KernelCross
)

func (k KernelShape) String() string {
	switch k {
	case KernelRect:
		return "rect"
	case KernelEllipse:
		return "ellipse"
	case KernelCross:
		return "cross"
	default:
		return fmt.Sprintf("KernelShape(%d)", int(k))
	}
}

// ParseKernelShape accepts "rect", "ellipse" and "cross".
func ParseKernelShape(name string) (KernelShape, error) {
	switch name {
	case "rect":
		return KernelRect, nil
	case "ellipse":
		return KernelEllipse, nil
	case "cross":
		return KernelCross, nil
	default:
		return KernelRect, fmt.Errorf("unknown kernel shape %q (want rect, ellipse or cross)", name)
	}
}

// Kernel is a structuring element stored as the offsets of its set cells
// relative to the anchor at the centre.
type Kernel struct {
	Size    int
	Shape   KernelShape
	offsets [][2]int
}

// NewKernel builds a size x size structuring element. Sizes below 1 are
// treated as 1. The ellipse footprint follows the usual raster rule: row dy
// spans c ± round(c*sqrt(1 - dy²/r²)).
func NewKernel(shape KernelShape, size int) Kernel {
	if size < 1 {
		size = 1
	}
	half := size / 2
	k := Kernel{Size: size, Shape: shape}
	for i := range size {
		j1, j2 := 0, size
		switch shape {
		case KernelCross:
			if i != half {
				j1, j2 = half, half+1
			}
		case KernelEllipse:
			dy := i - half
			if half == 0 {
				break
			}
			dx := int(math.Round(float64(half) * math.Sqrt(float64(half*half-dy*dy)/float64(half*half))))
			j1 = max(half-dx, 0)
			j2 = min(half+dx+1, size)
		}
		for j := j1; j < j2; j++ {
			k.offsets = append(k.offsets, [2]int{j - half, i - half})
		}
	}
	return k
}

// Contains reports whether the cell at (col, row) of the element is set.
func (k Kernel) Contains(col, row int) bool {
	half := k.Size / 2
	for _, o := range k.offsets {
		if o[0] == col-half && o[1] == row-half {
			return true
		}
	}
	return false
}

// MorphConfig holds configuration for morphological operations.
type MorphConfig struct {
	Operation  MorphologicalOp
	Shape      KernelShape
	KernelSize int // side length of the structuring element, e.g. 3 for 3x3
	Iterations int
}

// DefaultMorphConfig returns a no-op configuration with a 3x3 square element.
func DefaultMorphConfig() MorphConfig {
	return MorphConfig{
		Operation:  MorphNone,
		Shape:      KernelRect,
		KernelSize: 3,
		Iterations: 1,
	}
}

// ApplyMorphologicalOperation returns a new mask with the configured
// operation applied. The input mask is not modified; the caller owns and
// must release the result.
func ApplyMorphologicalOperation(m *Mask, cfg MorphConfig) *Mask {
	result := m.Clone()
	if cfg.Operation == MorphNone || cfg.KernelSize <= 1 || cfg.Iterations <= 0 {
		return result
	}
	k := NewKernel(cfg.Shape, cfg.KernelSize)
	for range cfg.Iterations {
		switch cfg.Operation {
		case MorphDilate:
			result = swap(result, dilate(result, k))
		case MorphErode:
			result = swap(result, erode(result, k))
		case MorphOpening:
			result = swap(result, Open(result, k))
		case MorphClosing:
			result = swap(result, Close(result, k))
		}
	}
	return result
}

// ApplyMorphology runs steps in order on a copy of m. The caller owns and
// must release the result.
func ApplyMorphology(m *Mask, steps ...MorphConfig) *Mask {
	if len(steps) == 0 {
		return m.Clone()
	}
	result := ApplyMorphologicalOperation(m, steps[0])
	for _, step := range steps[1:] {
		result = swap(result, ApplyMorphologicalOperation(result, step))
	}
	return result
}

// Open is erosion followed by dilation with k.
func Open(m *Mask, k Kernel) *Mask {
	e := erode(m, k)
	defer e.Release()
	return dilate(e, k)
}

// Close is dilation followed by erosion with k.
func Close(m *Mask, k Kernel) *Mask {
	d := dilate(m, k)
	defer d.Release()
	return erode(d, k)
}

func swap(old, next *Mask) *Mask {
	old.Release()
	return next
}

// dilate sets a pixel when any element cell lands on a set pixel.
// Cells outside the image are ignored.
func dilate(m *Mask, k Kernel) *Mask {
	out := NewMask(m.W, m.H)
	for y := range m.H {
		for x := range m.W {
			for _, o := range k.offsets {
				if m.At(x+o[0], y+o[1]) {
					out.Pix[y*m.W+x] = Foreground
					break
				}
			}
		}
	}
	return out
}

// erode keeps a pixel only when every in-bounds element cell is set.
// Out-of-image cells count as set so borders do not erode.
func erode(m *Mask, k Kernel) *Mask {
	out := NewMask(m.W, m.H)
	for y := range m.H {
		for x := range m.W {
			if m.Pix[y*m.W+x] == 0 {
				continue
			}
			keep := true
			for _, o := range k.offsets {
				nx, ny := x+o[0], y+o[1]
				if nx < 0 || ny < 0 || nx >= m.W || ny >= m.H {
					continue
				}
				if m.Pix[ny*m.W+nx] == 0 {
					keep = false
					break
				}
			}
			if keep {
				out.Pix[y*m.W+x] = Foreground
			}
		}
	}
	return out
}
