package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/robomaze/internal/grid"
)

// MarkerResult is the serializable form of one detected marker.
type MarkerResult struct {
	Index int        `json:"index"`
	Row   float64    `json:"row"`
	Col   float64    `json:"col"`
	Area  float64    `json:"area"`
	Space string     `json:"space"`
	Cell  grid.Point `json:"cell"`
}

// GridResult is the serializable form of the logic grid.
type GridResult struct {
	Rows     int     `json:"rows"`
	Cols     int     `json:"cols"`
	CellSize int     `json:"cell_size"`
	Walls    int     `json:"walls"`
	Cells    [][]int `json:"cells,omitempty"`
}

// AnalysisResult summarizes a Session.
type AnalysisResult struct {
	Width     int              `json:"width"`
	Height    int              `json:"height"`
	Scale     float64          `json:"scale"`
	Threshold uint8            `json:"threshold"`
	Rectified bool             `json:"rectified"`
	Corners   [][2]float64     `json:"corners,omitempty"`
	Transform [9]float64       `json:"transform"`
	Grid      GridResult       `json:"grid"`
	Markers   []MarkerResult   `json:"markers"`
	Warnings  []string         `json:"warnings,omitempty"`
	TimingsNs map[string]int64 `json:"timings_ns"`
}

// NewAnalysisResult converts s. Cell states are included when withCells
// is set.
func NewAnalysisResult(s *Session, withCells bool) (*AnalysisResult, error) {
	if s == nil || s.Grid == nil {
		return nil, errors.New("nil session")
	}
	res := &AnalysisResult{
		Width:     s.SourceWidth,
		Height:    s.SourceHeight,
		Scale:     s.Scale,
		Threshold: s.Threshold,
		Rectified: s.Rectified,
		Transform: s.Transform,
		Grid: GridResult{
			Rows:     s.Grid.Rows(),
			Cols:     s.Grid.Cols(),
			CellSize: s.Grid.CellSize(),
			Walls:    s.Grid.Count(grid.Wall),
		},
		Markers:   make([]MarkerResult, len(s.Markers)),
		Warnings:  s.Warnings,
		TimingsNs: make(map[string]int64, len(s.Timings)),
	}
	if s.Rectified {
		for _, c := range s.Corners {
			res.Corners = append(res.Corners, [2]float64{c.X, c.Y})
		}
	}
	if withCells {
		res.Grid.Cells = s.Grid.Matrix()
	}
	for i, m := range s.Markers {
		res.Markers[i] = MarkerResult{Index: i, Row: m.Row, Col: m.Col, Area: m.Area, Space: m.Space.String(), Cell: s.GridPoints[i]}
	}
	for _, t := range s.Timings {
		res.TimingsNs[t.Stage] = t.Duration.Nanoseconds()
	}
	return res, nil
}

// ToJSONAnalysis serializes s to pretty JSON.
func ToJSONAnalysis(s *Session, withCells bool) (string, error) {
	res, err := NewAnalysisResult(s, withCells)
	if err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToPlainTextAnalysis lists the markers by their 1-based point number and
// appends the grid dump.
func ToPlainTextAnalysis(s *Session) (string, error) {
	if s == nil || s.Grid == nil {
		return "", errors.New("nil session")
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Detected %d points", len(s.Markers))
	if !s.Rectified {
		sb.WriteString(" (boundary not found, full image used)")
	}
	sb.WriteString(":\n")
	for i, m := range s.Markers {
		fmt.Fprintf(&sb, "Point %d: (%.1f, %.1f) cell %v\n", i+1, m.Row, m.Col, s.GridPoints[i])
	}
	sb.WriteByte('\n')
	sb.WriteString(s.Grid.String())
	return sb.String(), nil
}

// RouteResult is the serializable form of a Route.
type RouteResult struct {
	Start      int                `json:"start"`
	End        int                `json:"end"`
	StartCell  grid.Point         `json:"start_cell"`
	EndCell    grid.Point         `json:"end_cell"`
	Cells      int                `json:"cells"`
	Path       []grid.Point       `json:"path"`
	Encoded    string             `json:"encoded"`
	Candidates []CandidateOutcome `json:"candidates"`
	DurationNs int64              `json:"duration_ns"`
}

// NewRouteResult converts r. Marker indices are reported 0-based.
func NewRouteResult(r *Route) (*RouteResult, error) {
	if r == nil {
		return nil, errors.New("nil route")
	}
	return &RouteResult{
		Start:      r.StartIndex,
		End:        r.EndIndex,
		StartCell:  r.Start,
		EndCell:    r.End,
		Cells:      len(r.Path),
		Path:       r.Path,
		Encoded:    r.Encoded(),
		Candidates: r.Candidates,
		DurationNs: r.Duration.Nanoseconds(),
	}, nil
}

// ToJSONRoute serializes r to pretty JSON.
func ToJSONRoute(r *Route) (string, error) {
	res, err := NewRouteResult(r)
	if err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToPlainTextRoute describes r with 1-based point numbers.
func ToPlainTextRoute(r *Route) (string, error) {
	if r == nil {
		return "", errors.New("nil route")
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Route from point %d to point %d: %d cells\n", r.StartIndex+1, r.EndIndex+1, len(r.Path))
	for _, c := range r.Candidates {
		fmt.Fprintf(&sb, "  point %d at %v: %s\n", c.MarkerIndex+1, c.Cell, c.Outcome)
	}
	sb.WriteString(r.Encoded())
	sb.WriteByte('\n')
	return sb.String(), nil
}

// ToCSVRoute exports one row per path cell with its pixel centre.
func ToCSVRoute(r *Route, g *grid.LogicGrid) (string, error) {
	if r == nil || g == nil {
		return "", errors.New("nil route or grid")
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"step", "row", "col", "x", "y"})
	for i, p := range r.Path {
		x, y := g.Center(p)
		_ = w.Write([]string{
			strconv.Itoa(i),
			strconv.Itoa(p.Row),
			strconv.Itoa(p.Col),
			strconv.FormatFloat(x, 'f', 1, 64),
			strconv.FormatFloat(y, 'f', 1, 64),
		})
	}
	w.Flush()
	return buf.String(), w.Error()
}
