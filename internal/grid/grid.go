// Package grid holds the logical maze grid and the rasterizer that derives
// it from a rectified photograph.
package grid

import (
	"errors"
	"fmt"
	"strings"
)

// Cell is the state of one grid cell.
type Cell uint8

const (
	// Free cells can be traversed.
	Free Cell = iota
	// Wall cells block movement.
	Wall
)

func (c Cell) String() string {
	if c == Wall {
		return "wall"
	}
	return "free"
}

// Point identifies a grid cell by row and column.
type Point struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Point) String() string { return fmt.Sprintf("%d,%d", p.Row, p.Col) }

// ErrInvalidGrid is returned when grid dimensions or cell data are inconsistent.
var ErrInvalidGrid = errors.New("invalid grid")

// LogicGrid is an immutable rows x cols map of wall and free cells.
// CellSize is the side in pixels of the image block each cell summarizes.
type LogicGrid struct {
	rows, cols int
	cellSize   int
	cells      []Cell
}

// New builds a grid from row-major cells. The slice is copied. Dimensions
// and cellSize must be positive.
func New(rows, cols, cellSize int, cells []Cell) (*LogicGrid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGrid, rows, cols)
	}
	if len(cells) != rows*cols {
		return nil, fmt.Errorf("%w: %d cells for %dx%d", ErrInvalidGrid, len(cells), rows, cols)
	}
	if cellSize <= 0 {
		return nil, fmt.Errorf("%w: cell size %d", ErrInvalidGrid, cellSize)
	}
	return &LogicGrid{rows: rows, cols: cols, cellSize: cellSize, cells: append([]Cell(nil), cells...)}, nil
}

// Parse builds a grid from text rows where '#' or '1' is a wall and every
// other rune is free. All rows must have the same length.
func Parse(rows ...string) (*LogicGrid, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidGrid)
	}
	cols := len(rows[0])
	cells := make([]Cell, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidGrid, i, len(row), cols)
		}
		for _, ch := range row {
			if ch == '#' || ch == '1' {
				cells = append(cells, Wall)
			} else {
				cells = append(cells, Free)
			}
		}
	}
	return New(len(rows), cols, 1, cells)
}

// MustParse is Parse that panics on error, for fixtures.
func MustParse(rows ...string) *LogicGrid {
	g, err := Parse(rows...)
	if err != nil {
		panic(err)
	}
	return g
}

// Rows returns the number of grid rows.
func (g *LogicGrid) Rows() int { return g.rows }

// Cols returns the number of grid columns.
func (g *LogicGrid) Cols() int { return g.cols }

// CellSize returns the side in pixels of the image block behind each cell.
func (g *LogicGrid) CellSize() int { return g.cellSize }

// InBounds reports whether p addresses a cell of g.
func (g *LogicGrid) InBounds(p Point) bool {
	return p.Row >= 0 && p.Row < g.rows && p.Col >= 0 && p.Col < g.cols
}

// At returns the cell at p. Out-of-bounds points read as Wall.
func (g *LogicGrid) At(p Point) Cell {
	if !g.InBounds(p) {
		return Wall
	}
	return g.cells[p.Row*g.cols+p.Col]
}

// IsFree reports whether p is in bounds and free.
func (g *LogicGrid) IsFree(p Point) bool {
	return g.InBounds(p) && g.cells[p.Row*g.cols+p.Col] == Free
}

// Count returns the number of cells in state c.
func (g *LogicGrid) Count(c Cell) int {
	n := 0
	for _, v := range g.cells {
		if v == c {
			n++
		}
	}
	return n
}

// Cells returns a copy of the row-major cell states.
func (g *LogicGrid) Cells() []Cell {
	return append([]Cell(nil), g.cells...)
}

// Matrix returns the grid as rows of 0 (free) and 1 (wall).
func (g *LogicGrid) Matrix() [][]int {
	out := make([][]int, g.rows)
	for r := range g.rows {
		out[r] = make([]int, g.cols)
		for c := range g.cols {
			out[r][c] = int(g.cells[r*g.cols+c])
		}
	}
	return out
}

// Center returns the pixel coordinates (x, y) of the centre of cell p.
func (g *LogicGrid) Center(p Point) (float64, float64) {
	half := float64(g.cellSize) / 2
	return float64(p.Col*g.cellSize) + half, float64(p.Row*g.cellSize) + half
}

// String renders the grid as a size header followed by one line of
// space-separated 0/1 values per row.
func (g *LogicGrid) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Grid size: %d x %d\n\n", g.rows, g.cols)
	for r := range g.rows {
		for c := range g.cols {
			sb.WriteByte('0' + byte(g.cells[r*g.cols+c]))
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
