package grid

import (
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/MeKo-Tech/robomaze/internal/detector"
	"github.com/MeKo-Tech/robomaze/internal/utils"
	"github.com/disintegration/imaging"
)

// RasterConfig controls image cleaning and cell classification.
type RasterConfig struct {
	// TargetCells is the desired number of cells along the shorter image side.
	TargetCells int `mapstructure:"target_cells" yaml:"target_cells" json:"target_cells"`
	// MinCellSize bounds the derived cell size from below.
	MinCellSize int `mapstructure:"min_cell_size" yaml:"min_cell_size" json:"min_cell_size"`
	// CellSize, when positive, replaces the derived cell size.
	CellSize int `mapstructure:"cell_size" yaml:"cell_size" json:"cell_size"`
	// WallFraction is the share of wall pixels above which a cell is a wall.
	WallFraction float64 `mapstructure:"wall_fraction" yaml:"wall_fraction" json:"wall_fraction"`
	BlurKernel   int     `mapstructure:"blur_kernel" yaml:"blur_kernel" json:"blur_kernel"`
	OpenKernel   int     `mapstructure:"open_kernel" yaml:"open_kernel" json:"open_kernel"`
}

// DefaultRasterConfig returns a 200-cell target with a 25% wall fraction.
func DefaultRasterConfig() RasterConfig {
	return RasterConfig{
		TargetCells:  200,
		MinCellSize:  3,
		WallFraction: 0.25,
		BlurKernel:   5,
		OpenKernel:   3,
	}
}

// Validate rejects settings that cannot produce a grid.
func (c RasterConfig) Validate() error {
	if c.TargetCells <= 0 {
		return fmt.Errorf("target cells must be positive, got %d", c.TargetCells)
	}
	if c.MinCellSize <= 0 {
		return fmt.Errorf("min cell size must be positive, got %d", c.MinCellSize)
	}
	if c.CellSize < 0 {
		return fmt.Errorf("cell size must not be negative, got %d", c.CellSize)
	}
	if c.WallFraction <= 0 || c.WallFraction >= 1 {
		return fmt.Errorf("wall fraction must be within (0, 1), got %v", c.WallFraction)
	}
	if c.BlurKernel < 1 || c.BlurKernel%2 == 0 {
		return fmt.Errorf("blur kernel must be a positive odd number, got %d", c.BlurKernel)
	}
	if c.OpenKernel < 1 || c.OpenKernel%2 == 0 {
		return fmt.Errorf("open kernel must be a positive odd number, got %d", c.OpenKernel)
	}
	return nil
}

// OpenStep is the rectangular opening that removes specks from the wall mask.
func (c RasterConfig) OpenStep() detector.MorphConfig {
	step := detector.DefaultMorphConfig()
	step.Operation = detector.MorphOpening
	step.KernelSize = c.OpenKernel
	return step
}

// CellSizeFor returns the cell size used for a w x h image.
func CellSizeFor(w, h int, cfg RasterConfig) int {
	if cfg.CellSize > 0 {
		return cfg.CellSize
	}
	return max(cfg.MinCellSize, min(w, h)/cfg.TargetCells)
}

// BlurSigma converts a Gaussian kernel size into the sigma OpenCV derives
// for it when none is given.
func BlurSigma(kernel int) float64 {
	return 0.3*(float64(kernel-1)*0.5-1) + 0.8
}

// CleanImage produces the wall mask of img: grayscale, blur, min-max
// stretch, inverted Otsu threshold and a rectangular opening. Wall pixels
// are set. The caller owns the returned mask.
func CleanImage(img image.Image, cfg RasterConfig) (*detector.Mask, error) {
	if err := utils.ValidateImage(img); err != nil {
		return nil, err
	}

	gray := imaging.Grayscale(img)
	if cfg.BlurKernel > 1 {
		gray = imaging.Blur(gray, BlurSigma(cfg.BlurKernel))
	}

	g := image.NewGray(image.Rect(0, 0, gray.Bounds().Dx(), gray.Bounds().Dy()))
	for i := range g.Pix {
		g.Pix[i] = gray.Pix[i*4]
	}
	normalizeMinMax(g.Pix)

	t := detector.OtsuThreshold(detector.Histogram(g))
	walls := detector.Threshold(g, t, true)
	if cfg.OpenKernel <= 1 {
		return walls, nil
	}
	defer walls.Release()
	return detector.ApplyMorphologicalOperation(walls, cfg.OpenStep()), nil
}

// normalizeMinMax stretches pix to the full 0..255 range in place. A flat
// input maps to all zeros.
func normalizeMinMax(pix []byte) {
	if len(pix) == 0 {
		return
	}
	lo, hi := pix[0], pix[0]
	for _, v := range pix {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if lo == hi {
		clear(pix)
		return
	}
	scale := 255 / float64(hi-lo)
	for i, v := range pix {
		pix[i] = uint8(math.Round(float64(v-lo) * scale))
	}
}

// Rasterizer turns rectified images into logic grids.
type Rasterizer struct {
	cfg RasterConfig
}

// NewRasterizer validates cfg and returns a rasterizer.
func NewRasterizer(cfg RasterConfig) (*Rasterizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Rasterizer{cfg: cfg}, nil
}

// Config returns the rasterizer settings.
func (r *Rasterizer) Config() RasterConfig { return r.cfg }

// Rasterize cleans img and classifies every cell by its wall fraction.
func (r *Rasterizer) Rasterize(img image.Image) (*LogicGrid, error) {
	walls, err := CleanImage(img, r.cfg)
	if err != nil {
		return nil, err
	}
	defer walls.Release()
	return r.FromMask(walls)
}

// FromMask classifies cells of an already cleaned wall mask. Every pixel of
// a cell block is sampled; partial blocks at the right and bottom edges are
// dropped.
func (r *Rasterizer) FromMask(walls *detector.Mask) (*LogicGrid, error) {
	cell := CellSizeFor(walls.W, walls.H, r.cfg)
	rows, cols := walls.H/cell, walls.W/cell
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("%w: %dx%d image is smaller than one %dpx cell", ErrInvalidGrid, walls.W, walls.H, cell)
	}

	limit := r.cfg.WallFraction * float64(cell*cell)
	cells := make([]Cell, rows*cols)
	for row := range rows {
		for col := range cols {
			block := image.Rect(col*cell, row*cell, (col+1)*cell, (row+1)*cell)
			if float64(walls.CountRect(block)) > limit {
				cells[row*cols+col] = Wall
			}
		}
	}

	g := &LogicGrid{rows: rows, cols: cols, cellSize: cell, cells: cells}
	slog.Debug("grid rasterized", "rows", rows, "cols", cols, "cell_size", cell, "walls", g.Count(Wall))
	return g, nil
}

// ToGridPoint converts a marker centroid into the cell containing it,
// clamped into the grid.
func ToGridPoint(m detector.Marker, g *LogicGrid) Point {
	cell := float64(g.cellSize)
	return Point{
		Row: utils.ClampInt(int(math.Floor(m.Row/cell)), 0, g.rows-1),
		Col: utils.ClampInt(int(math.Floor(m.Col/cell)), 0, g.cols-1),
	}
}
