//nolint:lll
package config

import (
	"github.com/MeKo-Tech/robomaze/internal/detector"
	"github.com/MeKo-Tech/robomaze/internal/grid"
	"github.com/MeKo-Tech/robomaze/internal/transport"
)

// Config represents the complete configuration for robomaze. It covers every
// command (solve, grid, binarize, send, serve) and is loaded from
// configuration files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Maze analysis and route search
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Robot link
	Serial SerialConfig `mapstructure:"serial" yaml:"serial" json:"serial"`
}

// PipelineConfig contains the analysis stage settings.
type PipelineConfig struct {
	Boundary    BoundaryConfig    `mapstructure:"boundary" yaml:"boundary" json:"boundary"`
	Rectify     RectifyConfig     `mapstructure:"rectify" yaml:"rectify" json:"rectify"`
	Markers     MarkerConfig      `mapstructure:"markers" yaml:"markers" json:"markers"`
	Grid        grid.RasterConfig `mapstructure:"grid" yaml:"grid" json:"grid"`
	Search      SearchConfig      `mapstructure:"search" yaml:"search" json:"search"`
	MaxImageDim int               `mapstructure:"max_image_dim" yaml:"max_image_dim" json:"max_image_dim"`
	Parallel    ParallelConfig    `mapstructure:"parallel" yaml:"parallel" json:"parallel"`
}

// BoundaryConfig contains maze outline detection settings.
type BoundaryConfig struct {
	EpsilonRatio float64 `mapstructure:"epsilon_ratio" yaml:"epsilon_ratio" json:"epsilon_ratio"`
	MinAreaRatio float64 `mapstructure:"min_area_ratio" yaml:"min_area_ratio" json:"min_area_ratio"`
}

// RectifyConfig contains perspective correction settings.
type RectifyConfig struct {
	CanvasSize int    `mapstructure:"canvas_size" yaml:"canvas_size" json:"canvas_size"`
	Sampling   string `mapstructure:"sampling" yaml:"sampling" json:"sampling"`
	DebugDir   string `mapstructure:"debug_dir" yaml:"debug_dir" json:"debug_dir"`
}

// MarkerConfig contains coloured marker detection settings.
type MarkerConfig struct {
	Lower      detector.HSV `mapstructure:"lower" yaml:"lower" json:"lower"`
	Upper      detector.HSV `mapstructure:"upper" yaml:"upper" json:"upper"`
	KernelSize int          `mapstructure:"kernel_size" yaml:"kernel_size" json:"kernel_size"`
	MinArea    float64      `mapstructure:"min_area" yaml:"min_area" json:"min_area"`
	MaxArea    float64      `mapstructure:"max_area" yaml:"max_area" json:"max_area"`
	// KernelShape is "ellipse", "rect" or "cross".
	KernelShape string `mapstructure:"kernel_shape" yaml:"kernel_shape" json:"kernel_shape"`
	// Space is "rectified" or "source".
	Space string `mapstructure:"space" yaml:"space" json:"space"`
}

// SearchConfig contains route search settings.
type SearchConfig struct {
	Connectivity  string `mapstructure:"connectivity" yaml:"connectivity" json:"connectivity"`
	Workers       int    `mapstructure:"workers" yaml:"workers" json:"workers"`
	MaxExpansions int    `mapstructure:"max_expansions" yaml:"max_expansions" json:"max_expansions"`
}

// ParallelConfig contains batch analysis settings.
type ParallelConfig struct {
	MaxWorkers int `mapstructure:"max_workers" yaml:"max_workers" json:"max_workers"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format      string `mapstructure:"format" yaml:"format" json:"format"`
	File        string `mapstructure:"file" yaml:"file" json:"file"`
	OverlayFile string `mapstructure:"overlay_file" yaml:"overlay_file" json:"overlay_file"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// Per-client request limits; zero disables the check.
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
	RateLimitPerHour   int `mapstructure:"rate_limit_per_hour" yaml:"rate_limit_per_hour" json:"rate_limit_per_hour"`
}

// SerialConfig names the robot's serial device and its line settings.
type SerialConfig struct {
	Port                  string `mapstructure:"port" yaml:"port" json:"port"`
	transport.PortOptions `mapstructure:",squash" yaml:",inline"`
}
