package rectify

import (
	"errors"
	"fmt"
	"math"

	"github.com/MeKo-Tech/robomaze/internal/utils"
	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateQuad is returned when four points do not define a
// projective transform (three or more collinear, or repeated points).
var ErrDegenerateQuad = errors.New("degenerate quadrilateral")

// Homography is a row-major 3x3 projective transform normalized so that
// the bottom-right element is 1.
type Homography [9]float64

// Identity returns the identity transform.
func Identity() Homography {
	return Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// ComputeHomography solves for the transform H with H·src[i] ~ dst[i].
func ComputeHomography(src, dst [4]utils.Point) (Homography, error) {
	// For each pair:
	// u = (h0 x + h1 y + h2) / (h6 x + h7 y + 1)
	// v = (h3 x + h4 y + h5) / (h6 x + h7 y + 1)
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := range 4 {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y
		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -u * x, -u * y})
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -v * x, -v * y})
		b.SetVec(2*i, u)
		b.SetVec(2*i+1, v)
	}

	var lu mat.LU
	lu.Factorize(a)
	if lu.Det() == 0 {
		return Homography{}, ErrDegenerateQuad
	}
	var h mat.VecDense
	if err := lu.SolveVecTo(&h, false, b); err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrDegenerateQuad, err)
	}

	var out Homography
	for i := range 8 {
		out[i] = h.AtVec(i)
	}
	out[8] = 1
	return out, nil
}

// Apply maps p through h. ok is false when p maps to infinity.
func (h Homography) Apply(p utils.Point) (utils.Point, bool) {
	den := h[6]*p.X + h[7]*p.Y + h[8]
	if math.Abs(den) < 1e-12 {
		return utils.Point{}, false
	}
	return utils.Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / den,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / den,
	}, true
}

// Inverse returns the transform mapping destination points back to source.
func (h Homography) Inverse() (Homography, error) {
	m := mat.NewDense(3, 3, h[:])
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrDegenerateQuad, err)
	}
	var out Homography
	for r := range 3 {
		for c := range 3 {
			out[r*3+c] = inv.At(r, c)
		}
	}
	if out[8] != 0 {
		s := out[8]
		for i := range out {
			out[i] /= s
		}
	}
	return out, nil
}
