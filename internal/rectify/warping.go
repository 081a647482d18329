package rectify

import (
	"fmt"
	"image"
	"math"

	"github.com/MeKo-Tech/robomaze/internal/utils"
)

// Sampling selects how source pixels are interpolated during warping.
type Sampling string

const (
	// SamplingBilinear blends the four nearest source pixels. Wall edges come
	// out slightly soft, which the grid stage's blur absorbs.
	SamplingBilinear Sampling = "bilinear"
	// SamplingNearest copies the closest source pixel, keeping hard edges.
	SamplingNearest Sampling = "nearest"
)

// ParseSampling validates a sampling name.
func ParseSampling(s string) (Sampling, error) {
	switch Sampling(s) {
	case SamplingBilinear, SamplingNearest:
		return Sampling(s), nil
	case "":
		return SamplingBilinear, nil
	default:
		return "", fmt.Errorf("unknown sampling %q (want bilinear or nearest)", s)
	}
}

// Warp resamples src onto a dstW x dstH canvas. inv maps destination pixel
// coordinates back into src. Pixels that land outside src are black.
func Warp(src image.Image, inv Homography, dstW, dstH int, sampling Sampling) *image.NRGBA {
	in := utils.ToNRGBA(src)
	out := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))
	for y := range dstH {
		for x := range dstW {
			sp, ok := inv.Apply(utils.Point{X: float64(x), Y: float64(y)})
			i := y*out.Stride + x*4
			var px [4]uint8
			switch {
			case !ok:
				px = [4]uint8{0, 0, 0, 255}
			case sampling == SamplingNearest:
				px = nearestSample(in, sp.X, sp.Y)
			default:
				px = bilinearSample(in, sp.X, sp.Y)
			}
			copy(out.Pix[i:i+4], px[:])
		}
	}
	return out
}

func nearestSample(src *image.NRGBA, x, y float64) [4]uint8 {
	ix, iy := int(math.Round(x)), int(math.Round(y))
	b := src.Bounds()
	if ix < 0 || iy < 0 || ix >= b.Dx() || iy >= b.Dy() {
		return [4]uint8{0, 0, 0, 255}
	}
	i := iy*src.Stride + ix*4
	return [4]uint8{src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3]}
}

func bilinearSample(src *image.NRGBA, x, y float64) [4]uint8 {
	b := src.Bounds()
	// Clamp sampling outside bounds to black
	if x < 0 || y < 0 || x > float64(b.Dx()-1) || y > float64(b.Dy()-1) {
		return [4]uint8{0, 0, 0, 255}
	}
	x0, y0 := int(x), int(y)
	x1, y1 := min(x0+1, b.Dx()-1), min(y0+1, b.Dy()-1)
	fx, fy := x-float64(x0), y-float64(y0)

	at := func(px, py, ch int) float64 {
		return float64(src.Pix[py*src.Stride+px*4+ch])
	}
	var out [4]uint8
	for ch := range 4 {
		top := lerp(at(x0, y0, ch), at(x1, y0, ch), fx)
		bot := lerp(at(x0, y1, ch), at(x1, y1, ch), fx)
		out[ch] = uint8(lerp(top, bot, fy) + 0.5)
	}
	return out
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
