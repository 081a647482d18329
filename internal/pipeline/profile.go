package pipeline

import (
	"sync/atomic"
	"time"
)

// Profiler aggregates counters across analyses and route searches. It is
// safe for concurrent use.
type Profiler struct {
	AnalysisTimeNs  atomic.Int64
	SolveTimeNs     atomic.Int64
	ImagesAnalyzed  atomic.Int64
	MarkersDetected atomic.Int64
	RoutesPlanned   atomic.Int64
	RoutesFailed    atomic.Int64
}

// RecordAnalysis adds one analysed photo.
func (p *Profiler) RecordAnalysis(d time.Duration, markers int) {
	p.AnalysisTimeNs.Add(d.Nanoseconds())
	p.ImagesAnalyzed.Add(1)
	p.MarkersDetected.Add(int64(markers))
}

// RecordSolve adds one route search.
func (p *Profiler) RecordSolve(d time.Duration, ok bool) {
	p.SolveTimeNs.Add(d.Nanoseconds())
	if ok {
		p.RoutesPlanned.Add(1)
	} else {
		p.RoutesFailed.Add(1)
	}
}

// Snapshot returns cumulative metrics in milliseconds for readability.
func (p *Profiler) Snapshot() map[string]any {
	imgs := p.ImagesAnalyzed.Load()
	analysis := p.AnalysisTimeNs.Load()
	solve := p.SolveTimeNs.Load()
	planned := p.RoutesPlanned.Load()
	failed := p.RoutesFailed.Load()
	out := map[string]any{
		"images":            imgs,
		"markers":           p.MarkersDetected.Load(),
		"routes_planned":    planned,
		"routes_failed":     failed,
		"analysis_ms_total": analysis / 1_000_000,
		"solve_ms_total":    solve / 1_000_000,
	}
	if imgs > 0 {
		out["analysis_ms_per_image"] = float64(analysis) / 1_000_000.0 / float64(imgs)
	}
	if n := planned + failed; n > 0 {
		out["solve_ms_per_route"] = float64(solve) / 1_000_000.0 / float64(n)
	}
	return out
}
