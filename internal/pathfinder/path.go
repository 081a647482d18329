package pathfinder

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/robomaze/internal/grid"
)

// Path is an ordered run of adjacent free cells.
type Path []grid.Point

// Len returns the number of cells.
func (p Path) Len() int { return len(p) }

// Start returns the first cell. It panics on an empty path.
func (p Path) Start() grid.Point { return p[0] }

// End returns the last cell. It panics on an empty path.
func (p Path) End() grid.Point { return p[len(p)-1] }

// Cost sums step costs: 1 per orthogonal step, sqrt(2) per diagonal one.
func (p Path) Cost() float64 {
	total := 0.0
	for i := 1; i < len(p); i++ {
		if p[i].Row != p[i-1].Row && p[i].Col != p[i-1].Col {
			total += math.Sqrt2
		} else {
			total++
		}
	}
	return total
}

// ValidatePath checks that p is non-empty, stays inside g on free cells and
// only takes steps allowed by conn.
func ValidatePath(g *grid.LogicGrid, p Path, conn Connectivity) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	for i, pt := range p {
		if !g.InBounds(pt) {
			return fmt.Errorf("%w: cell %d (%v) outside grid", ErrInvalidPath, i, pt)
		}
		if !g.IsFree(pt) {
			return fmt.Errorf("%w: cell %d (%v) is a wall", ErrInvalidPath, i, pt)
		}
		if i == 0 {
			continue
		}
		dr, dc := pt.Row-p[i-1].Row, pt.Col-p[i-1].Col
		if !adjacent(dr, dc, conn) {
			return fmt.Errorf("%w: cells %d and %d (%v, %v) are not adjacent", ErrInvalidPath, i-1, i, p[i-1], pt)
		}
		if dr != 0 && dc != 0 && !canStep(g, p[i-1], step{dr: dr, dc: dc}) {
			return fmt.Errorf("%w: step %d cuts a corner at %v", ErrInvalidPath, i, p[i-1])
		}
	}
	return nil
}

func adjacent(dr, dc int, conn Connectivity) bool {
	adr, adc := abs(dr), abs(dc)
	if conn == Conn8 {
		return max(adr, adc) == 1
	}
	return adr+adc == 1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ErrMalformedRoute is returned by DecodeRoute.
var ErrMalformedRoute = errors.New("malformed route")

// EncodeRoute serializes p as "row,col;row,col;...".
func EncodeRoute(p Path) string {
	var sb strings.Builder
	for i, pt := range p {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(strconv.Itoa(pt.Row))
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(pt.Col))
	}
	return sb.String()
}

// DecodeRoute parses the EncodeRoute format. Surrounding whitespace and a
// trailing separator are tolerated.
func DecodeRoute(s string) (Path, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ";")
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedRoute)
	}
	parts := strings.Split(s, ";")
	path := make(Path, 0, len(parts))
	for i, part := range parts {
		rs, cs, ok := strings.Cut(strings.TrimSpace(part), ",")
		if !ok {
			return nil, fmt.Errorf("%w: pair %d %q has no comma", ErrMalformedRoute, i, part)
		}
		r, err := strconv.Atoi(strings.TrimSpace(rs))
		if err != nil {
			return nil, fmt.Errorf("%w: pair %d row: %w", ErrMalformedRoute, i, err)
		}
		c, err := strconv.Atoi(strings.TrimSpace(cs))
		if err != nil {
			return nil, fmt.Errorf("%w: pair %d column: %w", ErrMalformedRoute, i, err)
		}
		if r < 0 || c < 0 {
			return nil, fmt.Errorf("%w: pair %d is negative", ErrMalformedRoute, i)
		}
		path = append(path, grid.Point{Row: r, Col: c})
	}
	return path, nil
}
