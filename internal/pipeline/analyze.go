package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/robomaze/internal/common"
	"github.com/MeKo-Tech/robomaze/internal/detector"
	"github.com/MeKo-Tech/robomaze/internal/grid"
	"github.com/MeKo-Tech/robomaze/internal/rectify"
	"github.com/MeKo-Tech/robomaze/internal/utils"
	"github.com/disintegration/imaging"
)

// Stage names used in timings, logs and metrics.
const (
	StageBinarize = "binarize"
	StageBoundary = "boundary"
	StageRectify  = "rectify"
	StageMarkers  = "markers"
	StageGrid     = "grid"
	StageSearch   = "search"
)

// Analyze runs binarization, boundary detection, rectification, marker
// detection and rasterization on img.
func (p *Pipeline) Analyze(img image.Image) (*Session, error) {
	return p.AnalyzeContext(context.Background(), img)
}

// AnalyzeContext is Analyze with cancellation checked between stages.
func (p *Pipeline) AnalyzeContext(ctx context.Context, img image.Image) (*Session, error) {
	if p == nil || p.Rasterizer == nil {
		return nil, ErrNotInitialized
	}
	if err := utils.ValidateImage(img); err != nil {
		return nil, err
	}

	s := &Session{cfg: p.cfg, prof: p.Profiler}
	total := common.NewNamedTimer("total")

	src := img
	if p.cfg.MaxImageDim > 0 {
		var scale float64
		src, scale = utils.LimitSize(img, p.cfg.MaxImageDim)
		s.Scale = scale
	} else {
		s.Scale = 1
	}
	b := src.Bounds()
	s.SourceWidth, s.SourceHeight = b.Dx(), b.Dy()

	// Boundary search on the Otsu mask.
	var (
		mask  *detector.Mask
		err   error
		bound detector.Boundary
		found bool
	)
	s.Timings.Time(StageBinarize, func() {
		mask, s.Threshold, err = detector.Binarize(src)
	})
	if err != nil {
		return nil, fmt.Errorf("binarize: %w", err)
	}
	s.Timings.Time(StageBoundary, func() {
		bound, found = detector.FindBoundary(mask, p.cfg.Boundary)
	})
	mask.Release()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Rectify, or fall back to the whole photo.
	var rect *rectify.Result
	if found {
		s.Timings.Time(StageRectify, func() {
			rect, err = p.Rectifier.Rectify(src, bound.Corners)
		})
		if err != nil {
			s.warn("rectification failed, using full image: %v", err)
			rect = nil
		}
	} else {
		s.warn("maze boundary not found (%d vertices), using full image", len(bound.Approx))
	}
	s.Transform = rectify.Identity()
	if rect != nil {
		s.Rectified = true
		s.Corners = rect.Corners
		s.Transform = rect.Forward
		s.Image = rect.Image
	} else {
		s.Image = utils.ToNRGBA(src)
		if s.Image == src {
			s.Image = imaging.Clone(s.Image)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var markerErr error
	s.Timings.Time(StageMarkers, func() {
		s.Markers, markerErr = p.detectMarkers(s, src, rect)
	})
	if markerErr != nil {
		return nil, fmt.Errorf("markers: %w", markerErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var g *grid.LogicGrid
	s.Timings.Time(StageGrid, func() {
		g, err = p.Rasterizer.Rasterize(s.Image)
	})
	if err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}
	s.Grid = g
	s.GridPoints = make([]grid.Point, len(s.Markers))
	for i, m := range s.Markers {
		s.GridPoints[i] = grid.ToGridPoint(m, g)
	}

	total.Stop()
	if p.Profiler != nil {
		p.Profiler.RecordAnalysis(total.Duration(), len(s.Markers))
	}
	slog.Info("maze analyzed",
		"rectified", s.Rectified,
		"markers", len(s.Markers),
		"rows", g.Rows(),
		"cols", g.Cols(),
		"cell_size", g.CellSize(),
		"duration", total.Duration(),
	)
	return s, nil
}

// detectMarkers finds markers in the configured space and reports them in
// the coordinates of the analysed image.
func (p *Pipeline) detectMarkers(s *Session, src image.Image, rect *rectify.Result) ([]detector.Marker, error) {
	if rect == nil {
		return p.Markers.Detect(s.Image, detector.SpaceSource)
	}
	if p.cfg.MarkerSpace == detector.SpaceRectified {
		return p.Markers.Detect(rect.Image, detector.SpaceRectified)
	}

	found, err := p.Markers.Detect(src, detector.SpaceSource)
	if err != nil {
		return nil, err
	}
	canvas := utils.SquareBox(float64(p.cfg.Rectification.CanvasSize))
	out := make([]detector.Marker, 0, len(found))
	for _, m := range found {
		pt, ok := rect.MapPoint(m.Point())
		if !ok || !canvas.Contains(pt) {
			s.warn("marker at %v lies outside the maze boundary", m)
			continue
		}
		out = append(out, m.Moved(pt, detector.SpaceRectified))
	}
	return out, nil
}
