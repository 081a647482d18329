package pipeline

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/robomaze/internal/detector"
	"github.com/MeKo-Tech/robomaze/internal/grid"
	"github.com/MeKo-Tech/robomaze/internal/pathfinder"
	"github.com/MeKo-Tech/robomaze/internal/rectify"
)

// Config holds configuration for the maze pipeline and its stages.
type Config struct {
	Boundary      detector.BoundaryConfig
	Rectification rectify.Config
	Markers       detector.MarkerConfig
	// MarkerSpace selects the image markers are detected in. SpaceRectified
	// searches the warped canvas; SpaceSource searches the photo and maps
	// the centroids through the homography.
	MarkerSpace detector.CoordSpace
	Raster      grid.RasterConfig
	Search      pathfinder.SelectOptions
	// MaxImageDim downsizes larger photos before analysis. 0 keeps the
	// original resolution.
	MaxImageDim int

	Parallel ParallelConfig
}

// DefaultConfig returns a default pipeline config with component defaults.
func DefaultConfig() Config {
	return Config{
		Boundary:      detector.DefaultBoundaryConfig(),
		Rectification: rectify.DefaultConfig(),
		Markers:       detector.DefaultMarkerConfig(),
		MarkerSpace:   detector.SpaceRectified,
		Raster:        grid.DefaultRasterConfig(),
		Search:        pathfinder.DefaultSelectOptions(),
		Parallel:      DefaultParallelConfig(),
	}
}

// Validate checks every stage configuration.
func (c Config) Validate() error {
	if c.Boundary.ApproxEpsilonRatio <= 0 || c.Boundary.ApproxEpsilonRatio >= 1 {
		return fmt.Errorf("boundary epsilon ratio must be within (0, 1), got %v", c.Boundary.ApproxEpsilonRatio)
	}
	if c.Boundary.MinAreaRatio < 0 || c.Boundary.MinAreaRatio >= 1 {
		return fmt.Errorf("boundary min area ratio must be within [0, 1), got %v", c.Boundary.MinAreaRatio)
	}
	if err := c.Rectification.Validate(); err != nil {
		return fmt.Errorf("rectification: %w", err)
	}
	if err := c.Markers.Validate(); err != nil {
		return fmt.Errorf("markers: %w", err)
	}
	if c.MarkerSpace != detector.SpaceSource && c.MarkerSpace != detector.SpaceRectified {
		return fmt.Errorf("unknown marker space %d", int(c.MarkerSpace))
	}
	if err := c.Raster.Validate(); err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if c.Search.Workers < 0 {
		return fmt.Errorf("search workers must not be negative, got %d", c.Search.Workers)
	}
	if c.MaxImageDim < 0 {
		return fmt.Errorf("max image dimension must not be negative, got %d", c.MaxImageDim)
	}
	return nil
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg Config
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// NewBuilderFrom starts from an existing configuration.
func NewBuilderFrom(cfg Config) *Builder { return &Builder{cfg: cfg} }

// WithTargetCells sets the desired cell count along the shorter side.
func (b *Builder) WithTargetCells(n int) *Builder {
	if n > 0 {
		b.cfg.Raster.TargetCells = n
	}
	return b
}

// WithMinCellSize sets the lower bound of the derived cell size.
func (b *Builder) WithMinCellSize(n int) *Builder {
	if n > 0 {
		b.cfg.Raster.MinCellSize = n
	}
	return b
}

// WithCellSize forces a fixed cell size in pixels.
func (b *Builder) WithCellSize(n int) *Builder {
	if n >= 0 {
		b.cfg.Raster.CellSize = n
	}
	return b
}

// WithWallFraction sets the wall share above which a cell is a wall.
func (b *Builder) WithWallFraction(f float64) *Builder {
	if f > 0 {
		b.cfg.Raster.WallFraction = f
	}
	return b
}

// WithConnectivity selects 4- or 8-neighbour search.
func (b *Builder) WithConnectivity(c pathfinder.Connectivity) *Builder {
	b.cfg.Search.Connectivity = c
	return b
}

// WithSearchWorkers bounds concurrent candidate searches.
func (b *Builder) WithSearchWorkers(n int) *Builder {
	if n >= 0 {
		b.cfg.Search.Workers = n
	}
	return b
}

// WithCanvasSize sets the rectified canvas side.
func (b *Builder) WithCanvasSize(n int) *Builder {
	if n > 0 {
		b.cfg.Rectification.CanvasSize = n
	}
	return b
}

// WithSampling selects the warp interpolation.
func (b *Builder) WithSampling(s rectify.Sampling) *Builder {
	if s != "" {
		b.cfg.Rectification.Sampling = s
	}
	return b
}

// WithRectifyDebugDir enables debug dumps for the rectification stage.
func (b *Builder) WithRectifyDebugDir(dir string) *Builder {
	if dir != "" {
		b.cfg.Rectification.DebugDir = dir
	}
	return b
}

// WithMarkerBand sets the inclusive HSV band of marker pixels.
func (b *Builder) WithMarkerBand(lower, upper detector.HSV) *Builder {
	b.cfg.Markers.Lower = lower
	b.cfg.Markers.Upper = upper
	return b
}

// WithMarkerArea sets the accepted marker blob area range.
func (b *Builder) WithMarkerArea(minArea, maxArea float64) *Builder {
	b.cfg.Markers.MinArea = minArea
	b.cfg.Markers.MaxArea = maxArea
	return b
}

// WithMarkerSpace chooses where markers are detected.
func (b *Builder) WithMarkerSpace(space detector.CoordSpace) *Builder {
	b.cfg.MarkerSpace = space
	return b
}

// WithMaxImageDim downsizes larger photos before analysis.
func (b *Builder) WithMaxImageDim(n int) *Builder {
	if n >= 0 {
		b.cfg.MaxImageDim = n
	}
	return b
}

// WithParallelWorkers sets the number of workers for batch analysis.
func (b *Builder) WithParallelWorkers(workers int) *Builder {
	if workers > 0 {
		b.cfg.Parallel.MaxWorkers = workers
	}
	return b
}

// WithProgressCallback sets the progress callback for batch analysis.
func (b *Builder) WithProgressCallback(callback ProgressCallback) *Builder {
	b.cfg.Parallel.ProgressCallback = callback
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks the configuration without building.
func (b *Builder) Validate() error { return b.cfg.Validate() }

// Build validates the configuration and constructs the pipeline.
func (b *Builder) Build() (*Pipeline, error) { return New(b.cfg) }

// Pipeline wires together the analysis stages. It holds no per-image
// state and is safe for concurrent use.
type Pipeline struct {
	cfg        Config
	Rectifier  *rectify.Rectifier
	Markers    *detector.MarkerDetector
	Rasterizer *grid.Rasterizer
	Profiler   *Profiler
}

// New validates cfg and creates the stage components.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Rectification.Sampling == "" {
		cfg.Rectification.Sampling = rectify.SamplingBilinear
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	rect, err := rectify.New(cfg.Rectification)
	if err != nil {
		return nil, err
	}
	md, err := detector.NewMarkerDetector(cfg.Markers)
	if err != nil {
		return nil, err
	}
	rast, err := grid.NewRasterizer(cfg.Raster)
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, Rectifier: rect, Markers: md, Rasterizer: rast, Profiler: &Profiler{}}, nil
}

// Config returns the active configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// ErrNotInitialized is returned when methods run on a nil pipeline.
var ErrNotInitialized = errors.New("pipeline not initialized")
