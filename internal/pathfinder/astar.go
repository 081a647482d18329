package pathfinder

import (
	"container/heap"
	"context"
	"fmt"
	"math"

	"github.com/MeKo-Tech/robomaze/internal/grid"
	"github.com/MeKo-Tech/robomaze/internal/mempool"
)

// ctxCheckInterval is the number of expansions between context checks.
const ctxCheckInterval = 1024

// openItem is one frontier entry. Stale entries stay in the heap and are
// skipped when popped (lazy decrease-key).
type openItem struct {
	idx  int
	g, h float64
	seq  int
}

// openSet orders by f = g + h, then by smaller h, then by insertion.
type openSet []openItem

func (s openSet) Len() int { return len(s) }

func (s openSet) Less(i, j int) bool {
	fi, fj := s[i].g+s[i].h, s[j].g+s[j].h
	if fi != fj {
		return fi < fj
	}
	if s[i].h != s[j].h {
		return s[i].h < s[j].h
	}
	return s[i].seq < s[j].seq
}

func (s openSet) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

func (s *openSet) Push(x any) { *s = append(*s, x.(openItem)) }

func (s *openSet) Pop() any {
	old := *s
	n := len(old)
	it := old[n-1]
	*s = old[:n-1]
	return it
}

// FindPath runs A* from start to goal. The returned path includes both
// endpoints. An unreachable goal yields ErrNoPath.
func FindPath(g *grid.LogicGrid, start, goal grid.Point, opts Options) (Path, error) {
	return FindPathContext(context.Background(), g, start, goal, opts)
}

// FindPathContext is FindPath with cancellation.
func FindPathContext(ctx context.Context, g *grid.LogicGrid, start, goal grid.Point, opts Options) (Path, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil grid", grid.ErrInvalidGrid)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if !g.InBounds(start) {
		return nil, fmt.Errorf("%w: start %v in %dx%d grid", ErrOutOfBounds, start, g.Rows(), g.Cols())
	}
	if !g.InBounds(goal) {
		return nil, fmt.Errorf("%w: goal %v in %dx%d grid", ErrOutOfBounds, goal, g.Rows(), g.Cols())
	}
	if !g.IsFree(start) || !g.IsFree(goal) {
		return nil, fmt.Errorf("%w: endpoint on a wall", ErrNoPath)
	}
	if start == goal {
		return Path{start}, nil
	}

	s := newSearch(g, opts.Connectivity)
	defer s.release()
	return s.run(ctx, start, goal, opts.MaxExpansions)
}

type search struct {
	g      *grid.LogicGrid
	conn   Connectivity
	cols   int
	cost   []float64
	parent []int32
	closed []bool
	open   openSet
	seq    int
}

func newSearch(g *grid.LogicGrid, conn Connectivity) *search {
	n := g.Rows() * g.Cols()
	s := &search{
		g:      g,
		conn:   conn,
		cols:   g.Cols(),
		cost:   make([]float64, n),
		parent: mempool.GetInt32(n),
		closed: make([]bool, n),
	}
	for i := range s.cost {
		s.cost[i] = math.Inf(1)
		s.parent[i] = -1
	}
	return s
}

func (s *search) release() {
	mempool.PutInt32(s.parent)
	s.parent = nil
}

func (s *search) point(idx int) grid.Point {
	return grid.Point{Row: idx / s.cols, Col: idx % s.cols}
}

func (s *search) index(p grid.Point) int { return p.Row*s.cols + p.Col }

func (s *search) push(idx int, cost float64, goal grid.Point) {
	heap.Push(&s.open, openItem{idx: idx, g: cost, h: s.conn.heuristic(s.point(idx), goal), seq: s.seq})
	s.seq++
}

func (s *search) run(ctx context.Context, start, goal grid.Point, limit int) (Path, error) {
	startIdx, goalIdx := s.index(start), s.index(goal)
	s.cost[startIdx] = 0
	s.push(startIdx, 0, goal)

	expanded := 0
	for s.open.Len() > 0 {
		cur := heap.Pop(&s.open).(openItem)
		if s.closed[cur.idx] {
			continue
		}
		if cur.idx == goalIdx {
			return s.reconstruct(goalIdx), nil
		}
		s.closed[cur.idx] = true

		expanded++
		if limit > 0 && expanded > limit {
			return nil, fmt.Errorf("%w: expansion limit %d reached", ErrNoPath, limit)
		}
		if expanded%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		p := s.point(cur.idx)
		for _, st := range s.conn.steps() {
			if !canStep(s.g, p, st) {
				continue
			}
			next := s.index(grid.Point{Row: p.Row + st.dr, Col: p.Col + st.dc})
			if s.closed[next] {
				continue
			}
			if c := cur.g + st.cost; c < s.cost[next] {
				s.cost[next] = c
				s.parent[next] = int32(cur.idx)
				s.push(next, c, goal)
			}
		}
	}
	return nil, ErrNoPath
}

func (s *search) reconstruct(goalIdx int) Path {
	var rev Path
	for idx := goalIdx; idx >= 0; idx = int(s.parent[idx]) {
		rev = append(rev, s.point(idx))
	}
	path := make(Path, len(rev))
	for i, p := range rev {
		path[len(rev)-1-i] = p
	}
	return path
}
