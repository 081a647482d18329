package utils

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ErrEmptyImage is returned for nil images or images without pixels.
var ErrEmptyImage = errors.New("image is empty")

// ValidateImage rejects nil and zero-area images.
func ValidateImage(img image.Image) error {
	if img == nil {
		return &ImageProcessingError{Operation: "validate", Err: ErrEmptyImage}
	}
	if img.Bounds().Empty() {
		return &ImageProcessingError{Operation: "validate", Err: ErrEmptyImage}
	}
	return nil
}

// ToNRGBA returns img as an *image.NRGBA anchored at the origin.
// Images already in that form are returned unchanged.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}

// LimitSize shrinks img so that neither side exceeds maxDim, preserving the
// aspect ratio. maxDim <= 0 or an already small image returns img unchanged.
// The returned scale factor maps original coordinates to the resized image.
func LimitSize(img image.Image, maxDim int) (image.Image, float64) {
	if maxDim <= 0 {
		return img, 1
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img, 1
	}
	out := imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	return out, float64(out.Bounds().Dx()) / float64(w)
}
