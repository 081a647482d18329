// Package pathfinder searches logic grids for shortest routes between cells.
package pathfinder

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/MeKo-Tech/robomaze/internal/grid"
)

var (
	// ErrNoPath means the goal cannot be reached from the start.
	ErrNoPath = errors.New("no path")
	// ErrOutOfBounds means a start or goal lies outside the grid.
	ErrOutOfBounds = errors.New("point outside grid")
	// ErrNoReachableDestination means no candidate produced a valid path.
	ErrNoReachableDestination = errors.New("no reachable destination")
	// ErrInvalidPath is returned by ValidatePath.
	ErrInvalidPath = errors.New("invalid path")
)

// Connectivity selects the neighbourhood used for moves.
type Connectivity int

const (
	// Conn4 moves north, east, south and west with unit cost.
	Conn4 Connectivity = iota
	// Conn8 also moves diagonally at cost sqrt(2), never cutting a corner.
	Conn8
)

func (c Connectivity) String() string {
	switch c {
	case Conn4:
		return "4"
	case Conn8:
		return "8"
	default:
		return fmt.Sprintf("Connectivity(%d)", int(c))
	}
}

// ParseConnectivity accepts "4", "8", "conn4" and "conn8".
func ParseConnectivity(s string) (Connectivity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "4", "conn4":
		return Conn4, nil
	case "8", "conn8":
		return Conn8, nil
	default:
		return Conn4, fmt.Errorf("unknown connectivity %q (want 4 or 8)", s)
	}
}

// Options tune a single search.
type Options struct {
	Connectivity Connectivity
	// MaxExpansions stops the search after this many node expansions.
	// 0 means unlimited.
	MaxExpansions int
}

// DefaultOptions returns 4-connected search without an expansion limit.
func DefaultOptions() Options {
	return Options{Connectivity: Conn4}
}

// Validate rejects unknown connectivity and negative limits.
func (o Options) Validate() error {
	if o.Connectivity != Conn4 && o.Connectivity != Conn8 {
		return fmt.Errorf("unknown connectivity %d", int(o.Connectivity))
	}
	if o.MaxExpansions < 0 {
		return fmt.Errorf("max expansions must not be negative, got %d", o.MaxExpansions)
	}
	return nil
}

type step struct {
	dr, dc int
	cost   float64
}

var (
	steps4 = []step{{-1, 0, 1}, {0, 1, 1}, {1, 0, 1}, {0, -1, 1}}
	steps8 = []step{
		{-1, 0, 1}, {-1, 1, math.Sqrt2}, {0, 1, 1}, {1, 1, math.Sqrt2},
		{1, 0, 1}, {1, -1, math.Sqrt2}, {0, -1, 1}, {-1, -1, math.Sqrt2},
	}
)

func (c Connectivity) steps() []step {
	if c == Conn8 {
		return steps8
	}
	return steps4
}

// heuristic is Manhattan distance for Conn4 and octile distance for Conn8.
func (c Connectivity) heuristic(a, b grid.Point) float64 {
	dr := math.Abs(float64(a.Row - b.Row))
	dc := math.Abs(float64(a.Col - b.Col))
	if c == Conn8 {
		return dr + dc + (math.Sqrt2-2)*math.Min(dr, dc)
	}
	return dr + dc
}

// canStep reports whether moving from p by s stays on free cells. Diagonal
// moves need both orthogonal neighbours free.
func canStep(g *grid.LogicGrid, p grid.Point, s step) bool {
	next := grid.Point{Row: p.Row + s.dr, Col: p.Col + s.dc}
	if !g.IsFree(next) {
		return false
	}
	if s.dr != 0 && s.dc != 0 {
		return g.IsFree(grid.Point{Row: p.Row + s.dr, Col: p.Col}) &&
			g.IsFree(grid.Point{Row: p.Row, Col: p.Col + s.dc})
	}
	return true
}
