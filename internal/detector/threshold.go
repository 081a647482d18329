package detector

import (
	"image"

	"github.com/MeKo-Tech/robomaze/internal/utils"
	"github.com/anthonynsimon/bild/histogram"
	"github.com/disintegration/imaging"
)

// GrayImage converts img to 8-bit luma using the ITU-R 601 weights
// (0.299, 0.587, 0.114). The result is anchored at the origin.
func GrayImage(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	nrgba := imaging.Grayscale(img)
	b := nrgba.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := range b.Dy() {
		src := nrgba.Pix[y*nrgba.Stride:]
		dst := g.Pix[y*g.Stride:]
		for x := range b.Dx() {
			dst[x] = src[x*4]
		}
	}
	return g
}

// Histogram counts the gray levels of g.
func Histogram(g *image.Gray) [256]int {
	var out [256]int
	h := histogram.NewRGBAHistogram(g)
	copy(out[:], h.R.Bins)
	return out
}

// OtsuThreshold returns the gray level that maximizes the between-class
// variance of the histogram. Pixels strictly above the returned level form
// the foreground class. A histogram with a single populated level yields 0.
func OtsuThreshold(hist [256]int) uint8 {
	total := 0
	sum := 0.0
	for i, c := range hist {
		total += c
		sum += float64(i) * float64(c)
	}
	if total == 0 {
		return 0
	}

	var (
		sumB    float64
		wB      int
		maxVar  float64
		best    int
		changed bool
	)
	for t := range 256 {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if !changed || between > maxVar {
			maxVar = between
			best = t
			changed = true
		}
	}
	return uint8(best)
}

// Threshold builds a mask from g. Without invert a pixel is set when its
// level is above t, with invert when it is at or below t.
func Threshold(g *image.Gray, t uint8, invert bool) *Mask {
	m := MaskFromGray(g, t)
	if invert {
		m.Invert()
	}
	return m
}

// Binarize converts img to grayscale and applies a global Otsu threshold.
// It returns the mask (release it when done) and the chosen level.
func Binarize(img image.Image) (*Mask, uint8, error) {
	if err := utils.ValidateImage(img); err != nil {
		return nil, 0, err
	}
	g := GrayImage(img)
	t := OtsuThreshold(Histogram(g))
	return Threshold(g, t, false), t, nil
}
