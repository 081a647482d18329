package grid

import (
	"image"
	"image/color"
	"testing"

	"github.com/MeKo-Tech/robomaze/internal/detector"
	"github.com/MeKo-Tech/robomaze/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	black = color.RGBA{A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
)

// blockImage paints layout rows ('#' wall) with square blocks of px pixels.
func blockImage(layout []string, px int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, len(layout[0])*px, len(layout)*px))
	utils.FillRect(img, img.Bounds(), white)
	for r, row := range layout {
		for c, ch := range row {
			if ch == '#' {
				utils.FillRect(img, image.Rect(c*px, r*px, (c+1)*px, (r+1)*px), black)
			}
		}
	}
	return img
}

func TestRasterConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultRasterConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*RasterConfig)
	}{
		{"zero target", func(c *RasterConfig) { c.TargetCells = 0 }},
		{"zero min cell", func(c *RasterConfig) { c.MinCellSize = 0 }},
		{"negative cell", func(c *RasterConfig) { c.CellSize = -1 }},
		{"fraction zero", func(c *RasterConfig) { c.WallFraction = 0 }},
		{"fraction one", func(c *RasterConfig) { c.WallFraction = 1 }},
		{"even blur", func(c *RasterConfig) { c.BlurKernel = 4 }},
		{"zero open", func(c *RasterConfig) { c.OpenKernel = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRasterConfig()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
			_, err := NewRasterizer(cfg)
			require.Error(t, err)
		})
	}
}

func TestCellSizeFor(t *testing.T) {
	cfg := DefaultRasterConfig()
	assert.Equal(t, 5, CellSizeFor(1000, 1000, cfg))
	assert.Equal(t, 5, CellSizeFor(1000, 1200, cfg))
	assert.Equal(t, 3, CellSizeFor(300, 400, cfg))
	cfg.CellSize = 50
	assert.Equal(t, 50, CellSizeFor(300, 400, cfg))
}

func TestRasterConfig_OpenStep(t *testing.T) {
	cfg := DefaultRasterConfig()
	cfg.OpenKernel = 5
	assert.Equal(t, detector.MorphConfig{
		Operation:  detector.MorphOpening,
		Shape:      detector.KernelRect,
		KernelSize: 5,
		Iterations: 1,
	}, cfg.OpenStep())
}

func TestBlurSigma(t *testing.T) {
	assert.InDelta(t, 1.1, BlurSigma(5), 1e-9)
	assert.InDelta(t, 0.8, BlurSigma(3), 1e-9)
}

func TestNormalizeMinMax(t *testing.T) {
	pix := []byte{10, 20, 30}
	normalizeMinMax(pix)
	assert.Equal(t, []byte{0, 128, 255}, pix)

	flat := []byte{90, 90}
	normalizeMinMax(flat)
	assert.Equal(t, []byte{0, 0}, flat)
	normalizeMinMax(nil)
}

func TestCleanImage_WallsAreForeground(t *testing.T) {
	img := blockImage([]string{
		"##..",
		"##..",
	}, 20)
	m, err := CleanImage(img, DefaultRasterConfig())
	require.NoError(t, err)
	defer m.Release()

	assert.True(t, m.At(10, 10))
	assert.False(t, m.At(70, 30))

	_, err = CleanImage(nil, DefaultRasterConfig())
	require.Error(t, err)
}

func TestRasterize_Corridor(t *testing.T) {
	// 1000x1000 sheet: black everywhere except a 50px high corridor on
	// grid row 10, with a green dot near each end.
	img := image.NewRGBA(image.Rect(0, 0, 1000, 1000))
	utils.FillRect(img, img.Bounds(), black)
	utils.FillRect(img, image.Rect(50, 500, 950, 550), white)
	utils.FillCircle(img, 125, 525, 10, green)
	utils.FillCircle(img, 875, 525, 10, green)

	cfg := DefaultRasterConfig()
	cfg.CellSize = 50
	r, err := NewRasterizer(cfg)
	require.NoError(t, err)
	g, err := r.Rasterize(img)
	require.NoError(t, err)

	require.Equal(t, 20, g.Rows())
	require.Equal(t, 20, g.Cols())
	assert.Equal(t, 50, g.CellSize())
	for c := 1; c < 19; c++ {
		assert.Equal(t, Free, g.At(Point{10, c}), "corridor cell %d", c)
		assert.Equal(t, Wall, g.At(Point{9, c}))
		assert.Equal(t, Wall, g.At(Point{11, c}))
	}
	assert.Equal(t, Wall, g.At(Point{10, 0}))
	assert.Equal(t, Wall, g.At(Point{10, 19}))
	assert.Equal(t, 18, g.Count(Free))

	md, err := detector.NewMarkerDetector(detector.DefaultMarkerConfig())
	require.NoError(t, err)
	markers, err := md.Detect(img, detector.SpaceRectified)
	require.NoError(t, err)
	require.Len(t, markers, 2)
	assert.Equal(t, Point{10, 2}, ToGridPoint(markers[0], g))
	assert.Equal(t, Point{10, 17}, ToGridPoint(markers[1], g))
}

func TestRasterize_ResolutionStable(t *testing.T) {
	layout := []string{
		"##########",
		"#....#...#",
		"#.##.#.#.#",
		"#.#....#.#",
		"#.#.####.#",
		"#...#....#",
		"###.#.##.#",
		"#...#..#.#",
		"#.#...#..#",
		"##########",
	}
	cfg := DefaultRasterConfig()
	cfg.TargetCells = 20

	r, err := NewRasterizer(cfg)
	require.NoError(t, err)
	small, err := r.Rasterize(blockImage(layout, 40))
	require.NoError(t, err)
	large, err := r.Rasterize(blockImage(layout, 80))
	require.NoError(t, err)

	assert.Equal(t, 20, small.Rows())
	assert.Equal(t, small.Rows(), large.Rows())
	assert.Equal(t, small.Cols(), large.Cols())
	assert.Equal(t, 2*small.CellSize(), large.CellSize())
	assert.Equal(t, small.Matrix(), large.Matrix())

	// Every layout block covers 2x2 cells of the same state.
	for br, row := range layout {
		for bc, ch := range row {
			want := Free
			if ch == '#' {
				want = Wall
			}
			for dr := range 2 {
				for dc := range 2 {
					assert.Equal(t, want, small.At(Point{2*br + dr, 2*bc + dc}))
				}
			}
		}
	}
}

func TestRasterize_UniformImageIsAllWall(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 30, 30))
	utils.FillRect(img, img.Bounds(), white)
	r, err := NewRasterizer(DefaultRasterConfig())
	require.NoError(t, err)
	g, err := r.Rasterize(img)
	require.NoError(t, err)
	assert.Equal(t, g.Rows()*g.Cols(), g.Count(Wall))
}

func TestRasterize_TooSmall(t *testing.T) {
	cfg := DefaultRasterConfig()
	cfg.CellSize = 50
	r, err := NewRasterizer(cfg)
	require.NoError(t, err)
	_, err = r.Rasterize(blockImage([]string{"#."}, 10))
	require.ErrorIs(t, err, ErrInvalidGrid)
}

func TestToGridPoint_Clamps(t *testing.T) {
	g, err := New(4, 6, 10, make([]Cell, 24))
	require.NoError(t, err)

	tests := []struct {
		marker detector.Marker
		want   Point
	}{
		{detector.Marker{Row: 15, Col: 25}, Point{1, 2}},
		{detector.Marker{Row: 40, Col: 60}, Point{3, 5}},
		{detector.Marker{Row: 999, Col: -3}, Point{3, 0}},
		{detector.Marker{Row: 39.9, Col: 0}, Point{3, 0}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToGridPoint(tt.marker, g), "marker %v", tt.marker)
	}
}
