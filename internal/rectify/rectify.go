// Package rectify maps a photographed maze quadrilateral onto a square,
// axis-aligned canvas.
package rectify

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/robomaze/internal/utils"
)

// Rectifier warps images onto the configured canvas.
type Rectifier struct {
	cfg Config
}

// New creates a Rectifier after validating cfg.
func New(cfg Config) (*Rectifier, error) {
	if cfg.Sampling == "" {
		cfg.Sampling = SamplingBilinear
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Rectifier{cfg: cfg}, nil
}

// Config returns the active configuration.
func (r *Rectifier) Config() Config { return r.cfg }

// Result is a rectified image together with the transforms that produced it.
type Result struct {
	Image   *image.NRGBA
	Corners Corners    // sorted source corners
	Forward Homography // source -> canvas
	Inverse Homography // canvas -> source
}

// MapPoint maps a source-image point onto the canvas.
func (res *Result) MapPoint(p utils.Point) (utils.Point, bool) {
	return res.Forward.Apply(p)
}

// Rectify sorts corners, computes the source-to-canvas transform and warps
// img. The corner order of the input does not matter, but the sorted corners
// must trace a convex outline.
func (r *Rectifier) Rectify(img image.Image, corners [4]utils.Point) (*Result, error) {
	if err := utils.ValidateImage(img); err != nil {
		return nil, err
	}
	sorted := SortCorners(corners)
	if !utils.IsConvex(sorted.Points()) {
		return nil, fmt.Errorf("%w: corners %v do not form a convex TL, TR, BR, BL outline", ErrDegenerateQuad, sorted.Points())
	}
	size := r.cfg.CanvasSize

	fwd, err := ComputeHomography(sorted, CanvasCorners(size))
	if err != nil {
		return nil, err
	}
	inv, err := fwd.Inverse()
	if err != nil {
		return nil, err
	}

	// Warp works in origin-anchored coordinates.
	src := utils.ToNRGBA(img)
	out := Warp(src, inv, size, size, r.cfg.Sampling)
	slog.Debug("rectified maze", "canvas", size, "sampling", string(r.cfg.Sampling),
		"tl", sorted[0], "br", sorted[2])

	if r.cfg.DebugDir != "" {
		if err := dumpOverlayPNG(r.cfg.DebugDir, src, sorted.Points()); err != nil {
			slog.Warn("rectify debug overlay failed", "error", err)
		}
		if err := dumpComparePNG(r.cfg.DebugDir, src, sorted.Points(), out); err != nil {
			slog.Warn("rectify debug compare failed", "error", err)
		}
	}

	return &Result{Image: out, Corners: sorted, Forward: fwd, Inverse: inv}, nil
}
