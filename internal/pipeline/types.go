package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/robomaze/internal/common"
	"github.com/MeKo-Tech/robomaze/internal/detector"
	"github.com/MeKo-Tech/robomaze/internal/grid"
	"github.com/MeKo-Tech/robomaze/internal/pathfinder"
	"github.com/MeKo-Tech/robomaze/internal/rectify"
)

// InsufficientMarkersError is returned by Solve when fewer than two
// markers were found.
type InsufficientMarkersError struct {
	Count int
}

func (e *InsufficientMarkersError) Error() string {
	return fmt.Sprintf("need at least 2 markers to plan a route, found %d", e.Count)
}

// ErrInvalidStart is returned when the start index does not name a marker.
var ErrInvalidStart = errors.New("invalid start marker")

// Session is the result of analysing one photo. It is read-only once
// returned and may be solved any number of times.
type Session struct {
	cfg  Config
	prof *Profiler

	SourceWidth  int
	SourceHeight int
	// Scale is the factor applied to the photo before analysis.
	Scale     float64
	Threshold uint8

	Rectified bool
	Corners   rectify.Corners
	// Transform maps photo coordinates into Image coordinates. It is the
	// identity when no boundary was found.
	Transform rectify.Homography
	// Image is the rectified canvas, or the photo itself when no boundary
	// was found.
	Image *image.NRGBA

	Markers    []detector.Marker
	GridPoints []grid.Point
	Grid       *grid.LogicGrid

	Warnings []string
	Timings  common.StageTimings
}

func (s *Session) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.Warnings = append(s.Warnings, msg)
	slog.Warn(msg)
}

// Route is a planned path from one marker to the nearest reachable other.
type Route struct {
	StartIndex int
	EndIndex   int
	Start      grid.Point
	End        grid.Point
	Path       pathfinder.Path
	// Candidates lists the outcome for every other marker, indexed by
	// marker index.
	Candidates []CandidateOutcome
	Duration   time.Duration
}

// CandidateOutcome is one destination considered by Solve.
type CandidateOutcome struct {
	MarkerIndex int                `json:"marker_index"`
	Cell        grid.Point         `json:"cell"`
	Outcome     pathfinder.Outcome `json:"outcome"`
	Cells       int                `json:"cells,omitempty"`
}

// Encoded returns the transport form of the route.
func (r *Route) Encoded() string { return pathfinder.EncodeRoute(r.Path) }

// Solve plans a route from marker startIndex (0-based) to the closest
// reachable other marker. When no marker is reachable the route carries
// the candidate outcomes and the error wraps
// pathfinder.ErrNoReachableDestination.
func (s *Session) Solve(ctx context.Context, startIndex int) (*Route, error) {
	if len(s.Markers) < 2 {
		return nil, &InsufficientMarkersError{Count: len(s.Markers)}
	}
	if startIndex < 0 || startIndex >= len(s.Markers) {
		return nil, fmt.Errorf("%w: %d not in 0..%d", ErrInvalidStart, startIndex, len(s.Markers)-1)
	}

	timer := common.NewNamedTimer(StageSearch)
	start := s.GridPoints[startIndex]
	indices := make([]int, 0, len(s.GridPoints)-1)
	candidates := make([]grid.Point, 0, len(s.GridPoints)-1)
	for i, gp := range s.GridPoints {
		if i == startIndex {
			continue
		}
		indices = append(indices, i)
		candidates = append(candidates, gp)
	}

	sel, err := pathfinder.SelectRoute(ctx, s.Grid, start, candidates, s.cfg.Search)
	elapsed := timer.Stop()
	if s.prof != nil {
		s.prof.RecordSolve(elapsed, err == nil)
	}
	if sel == nil {
		return nil, err
	}
	route := &Route{StartIndex: startIndex, EndIndex: -1, Start: start, Duration: elapsed}
	for _, r := range sel.Results {
		route.Candidates = append(route.Candidates, CandidateOutcome{
			MarkerIndex: indices[r.Index],
			Cell:        r.Goal,
			Outcome:     r.Outcome,
			Cells:       len(r.Path),
		})
	}
	if err != nil {
		slog.Info("no route found", "start", startIndex, "candidates", len(candidates))
		return route, fmt.Errorf("from marker %d: %w", startIndex, err)
	}

	route.EndIndex = indices[sel.Index]
	route.End = sel.Best.End()
	route.Path = sel.Best
	slog.Info("route planned",
		"start", startIndex,
		"end", route.EndIndex,
		"cells", len(route.Path),
		"duration", route.Duration,
	)
	return route, nil
}
