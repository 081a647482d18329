package pathfinder

import (
	"context"
	"testing"

	"github.com/MeKo-Tech/robomaze/internal/grid"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeMarkerGrid: A at (1,1); B at (1,6) is sealed; C at (5,1) is reachable.
func threeMarkerGrid() *grid.LogicGrid {
	return grid.MustParse(
		"#########",
		"#...##..#",
		"###.#####",
		"#...#...#",
		"#.###.#.#",
		"#.....#.#",
		"#########",
	)
}

func TestSelectRoute_SkipsUnreachable(t *testing.T) {
	g := threeMarkerGrid()
	a := grid.Point{Row: 1, Col: 1}
	candidates := []grid.Point{{Row: 1, Col: 6}, {Row: 5, Col: 1}}

	for _, workers := range []int{1, 2, 8} {
		sel, err := SelectRoute(context.Background(), g, a, candidates, SelectOptions{Options: DefaultOptions(), Workers: workers})
		require.NoError(t, err, "workers=%d", workers)

		assert.Equal(t, 1, sel.Index)
		assert.Equal(t, a, sel.Best.Start())
		assert.Equal(t, candidates[1], sel.Best.End())
		assert.Equal(t, ExcludedUnreachable, sel.Results[0].Outcome)
		assert.ErrorIs(t, sel.Results[0].Err, ErrNoPath)
		assert.True(t, sel.Results[0].Excluded())
		assert.Equal(t, OutcomeSelected, sel.Results[1].Outcome)
		require.NoError(t, ValidatePath(g, sel.Best, Conn4))
	}
}

func TestSelectRoute_ShortestAndTies(t *testing.T) {
	g, err := grid.New(5, 9, 1, make([]grid.Cell, 45))
	require.NoError(t, err)
	start := grid.Point{Row: 2, Col: 4}

	candidates := []grid.Point{
		{Row: 2, Col: 0}, // 4 steps
		{Row: 0, Col: 4}, // 2 steps
		{Row: 4, Col: 4}, // 2 steps, later index
		{Row: 2, Col: 8}, // 4 steps
	}
	sel, err := SelectRoute(context.Background(), g, start, candidates, DefaultSelectOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, sel.Index)
	assert.Equal(t, 3, sel.Best.Len())

	outcomes := make([]Outcome, len(sel.Results))
	for i, r := range sel.Results {
		outcomes[i] = r.Outcome
	}
	want := []Outcome{OutcomeReachable, OutcomeSelected, OutcomeReachable, OutcomeReachable}
	if diff := cmp.Diff(want, outcomes); diff != "" {
		t.Errorf("outcomes (-want +got):\n%s", diff)
	}
}

func TestSelectRoute_SameCellAndInvalid(t *testing.T) {
	g, err := grid.New(3, 3, 1, make([]grid.Cell, 9))
	require.NoError(t, err)
	start := grid.Point{Row: 1, Col: 1}

	sel, err := SelectRoute(context.Background(), g, start,
		[]grid.Point{start, {Row: 7, Col: 7}, {Row: 0, Col: 0}},
		SelectOptions{Options: DefaultOptions(), Workers: 1})
	require.NoError(t, err)
	assert.Equal(t, ExcludedSameCell, sel.Results[0].Outcome)
	assert.Equal(t, ExcludedInvalid, sel.Results[1].Outcome)
	assert.ErrorIs(t, sel.Results[1].Err, ErrOutOfBounds)
	assert.Equal(t, 2, sel.Index)
}

func TestSelectRoute_NoReachableDestination(t *testing.T) {
	g := threeMarkerGrid()
	sel, err := SelectRoute(context.Background(), g, grid.Point{Row: 1, Col: 6},
		[]grid.Point{{Row: 1, Col: 1}, {Row: 5, Col: 1}}, DefaultSelectOptions())
	require.ErrorIs(t, err, ErrNoReachableDestination)
	require.NotNil(t, sel)
	assert.Equal(t, -1, sel.Index)
	assert.Empty(t, sel.Best)
	for _, r := range sel.Results {
		assert.Equal(t, ExcludedUnreachable, r.Outcome)
	}

	sel, err = SelectRoute(context.Background(), g, grid.Point{Row: 1, Col: 1}, nil, DefaultSelectOptions())
	require.ErrorIs(t, err, ErrNoReachableDestination)
	assert.Empty(t, sel.Results)
}

func TestSelectRoute_Canceled(t *testing.T) {
	g := threeMarkerGrid()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := SelectRoute(ctx, g, grid.Point{Row: 1, Col: 1}, []grid.Point{{Row: 5, Col: 1}, {Row: 3, Col: 7}}, DefaultSelectOptions())
	require.ErrorIs(t, err, context.Canceled)
}

func TestSelectRoute_BadInput(t *testing.T) {
	_, err := SelectRoute(context.Background(), nil, grid.Point{}, nil, DefaultSelectOptions())
	require.ErrorIs(t, err, grid.ErrInvalidGrid)

	opts := DefaultSelectOptions()
	opts.MaxExpansions = -1
	_, err = SelectRoute(context.Background(), threeMarkerGrid(), grid.Point{}, nil, opts)
	require.Error(t, err)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "selected", OutcomeSelected.String())
	assert.Equal(t, "same_cell", ExcludedSameCell.String())
	text, err := ExcludedUnreachable.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "unreachable", string(text))
	assert.Equal(t, "Outcome(9)", Outcome(9).String())
}
