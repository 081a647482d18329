package pathfinder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/MeKo-Tech/robomaze/internal/grid"
)

// Outcome classifies what happened to one candidate destination.
type Outcome int

const (
	// OutcomeReachable is a valid path that was not the shortest.
	OutcomeReachable Outcome = iota
	// OutcomeSelected is the chosen destination.
	OutcomeSelected
	// ExcludedSameCell is a candidate sharing the start cell.
	ExcludedSameCell
	// ExcludedUnreachable is a candidate without a path.
	ExcludedUnreachable
	// ExcludedInvalid is a candidate whose path failed validation or whose
	// cell is outside the grid.
	ExcludedInvalid
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReachable:
		return "reachable"
	case OutcomeSelected:
		return "selected"
	case ExcludedSameCell:
		return "same_cell"
	case ExcludedUnreachable:
		return "unreachable"
	case ExcludedInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// MarshalText lets outcomes appear by name in JSON.
func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// CandidateResult reports the search towards one candidate.
type CandidateResult struct {
	Index   int        `json:"index"`
	Goal    grid.Point `json:"goal"`
	Outcome Outcome    `json:"outcome"`
	Path    Path       `json:"-"`
	Err     error      `json:"-"`
}

// Excluded reports whether the candidate was dropped.
func (c CandidateResult) Excluded() bool {
	return c.Outcome != OutcomeReachable && c.Outcome != OutcomeSelected
}

// Selection is the outcome of SelectRoute.
type Selection struct {
	Start grid.Point
	// Index is the candidate index of Best, or -1 when none was reachable.
	Index   int
	Best    Path
	Results []CandidateResult
}

// SelectOptions configure SelectRoute.
type SelectOptions struct {
	Options
	// Workers bounds concurrent searches. 0 means runtime.NumCPU(),
	// 1 searches sequentially.
	Workers int
}

// DefaultSelectOptions returns 4-connected search on all CPUs.
func DefaultSelectOptions() SelectOptions {
	return SelectOptions{Options: DefaultOptions()}
}

type candidateJob struct {
	index int
	goal  grid.Point
}

// SelectRoute searches from start to every candidate and picks the path
// with the fewest cells, ties going to the lower candidate index. When no
// candidate is reachable the selection is still returned, together with
// ErrNoReachableDestination.
func SelectRoute(ctx context.Context, g *grid.LogicGrid, start grid.Point, candidates []grid.Point, opts SelectOptions) (*Selection, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil grid", grid.ErrInvalidGrid)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	results := make([]CandidateResult, len(candidates))
	var jobs []candidateJob
	for i, c := range candidates {
		results[i] = CandidateResult{Index: i, Goal: c}
		if c == start {
			results[i].Outcome = ExcludedSameCell
			continue
		}
		jobs = append(jobs, candidateJob{index: i, goal: c})
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers == 1 || len(jobs) <= 1 {
		for _, job := range jobs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[job.index] = evaluate(ctx, g, start, job, opts.Options)
		}
	} else {
		runWorkers(ctx, g, start, jobs, results, min(workers, len(jobs)), opts.Options)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sel := &Selection{Start: start, Index: -1, Results: results}
	for i := range results {
		r := results[i]
		if r.Excluded() {
			continue
		}
		if sel.Index < 0 || len(r.Path) < len(sel.Best) {
			sel.Index, sel.Best = i, r.Path
		}
	}
	if sel.Index < 0 {
		slog.Debug("no reachable destination", "start", start.String(), "candidates", len(candidates))
		return sel, ErrNoReachableDestination
	}
	results[sel.Index].Outcome = OutcomeSelected
	slog.Debug("route selected", "start", start.String(), "index", sel.Index, "cells", len(sel.Best))
	return sel, nil
}

func runWorkers(ctx context.Context, g *grid.LogicGrid, start grid.Point, jobs []candidateJob, results []CandidateResult, workers int, opts Options) {
	queue := make(chan candidateJob, len(jobs))
	for _, j := range jobs {
		queue <- j
	}
	close(queue)

	// Each worker writes only the slots of its own jobs.
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				if ctx.Err() != nil {
					return
				}
				results[job.index] = evaluate(ctx, g, start, job, opts)
			}
		}()
	}
	wg.Wait()
}

func evaluate(ctx context.Context, g *grid.LogicGrid, start grid.Point, job candidateJob, opts Options) CandidateResult {
	res := CandidateResult{Index: job.index, Goal: job.goal}
	path, err := FindPathContext(ctx, g, start, job.goal, opts)
	switch {
	case err == nil:
	case errors.Is(err, ErrNoPath):
		res.Outcome, res.Err = ExcludedUnreachable, err
		return res
	default:
		res.Outcome, res.Err = ExcludedInvalid, err
		return res
	}

	if err := ValidatePath(g, path, opts.Connectivity); err != nil {
		slog.Warn("discarding invalid candidate path", "index", job.index, "error", err)
		res.Outcome, res.Err = ExcludedInvalid, err
		return res
	}
	res.Outcome, res.Path = OutcomeReachable, path
	return res
}
