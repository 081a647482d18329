package detector

import (
	"log/slog"

	"github.com/MeKo-Tech/robomaze/internal/utils"
)

// BoundaryConfig tunes maze boundary detection.
type BoundaryConfig struct {
	// ApproxEpsilonRatio scales the closed perimeter of the largest contour
	// into the Douglas–Peucker tolerance.
	ApproxEpsilonRatio float64
	// MinAreaRatio rejects a largest contour smaller than this fraction of
	// the image area. 0 accepts any non-degenerate contour.
	MinAreaRatio float64
}

// DefaultBoundaryConfig returns the standard 2% approximation tolerance.
func DefaultBoundaryConfig() BoundaryConfig {
	return BoundaryConfig{ApproxEpsilonRatio: 0.02}
}

// Boundary is the outcome of a boundary search.
type Boundary struct {
	// Corners are in contour order, not yet sorted.
	Corners [4]utils.Point
	// Contour is the largest external contour, kept for debug rendering.
	Contour []utils.Point
	// Approx is the simplified polygon whatever its vertex count.
	Approx []utils.Point
	Area   float64
}

// FindBoundary looks for the maze outline as the largest external contour of
// mask that simplifies to exactly four vertices. ok is false when there is
// no contour or the simplification does not give a convex quadrilateral.
func FindBoundary(mask *Mask, cfg BoundaryConfig) (Boundary, bool) {
	contours := ExternalContours(mask)

	var (
		best    *Contour
		maxArea float64
	)
	for i := range contours {
		if a := contours[i].Area(); a > maxArea {
			maxArea = a
			best = &contours[i]
		}
	}
	if best == nil {
		slog.Debug("no boundary contour", "contours", len(contours))
		return Boundary{}, false
	}
	if cfg.MinAreaRatio > 0 && maxArea < cfg.MinAreaRatio*float64(mask.W*mask.H) {
		slog.Debug("largest contour too small", "area", maxArea, "min_ratio", cfg.MinAreaRatio)
		return Boundary{}, false
	}

	eps := cfg.ApproxEpsilonRatio * best.Perimeter()
	approx := utils.ApproxPolyDP(best.Points, eps, true)
	b := Boundary{Contour: best.Points, Approx: approx, Area: maxArea}
	if len(approx) != 4 {
		slog.Debug("largest contour is not a quadrilateral", "vertices", len(approx), "area", maxArea)
		return b, false
	}
	if !utils.IsConvex(approx) {
		slog.Debug("largest contour is not convex", "approx", approx)
		return b, false
	}
	copy(b.Corners[:], approx)
	return b, true
}
