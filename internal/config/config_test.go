package config

import (
	"testing"

	"github.com/MeKo-Tech/robomaze/internal/detector"
	"github.com/MeKo-Tech/robomaze/internal/pathfinder"
	"github.com/MeKo-Tech/robomaze/internal/pipeline"
	"github.com/MeKo-Tech/robomaze/internal/rectify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/dev/rfcomm0", cfg.Serial.Port)
	assert.Equal(t, 9600, cfg.Serial.BaudRate)
	assert.Equal(t, "4", cfg.Pipeline.Search.Connectivity)
	assert.Equal(t, "rectified", cfg.Pipeline.Markers.Space)
}

func TestDefaultConfigMatchesPipeline(t *testing.T) {
	cfg := DefaultConfig()
	got, err := cfg.ToPipelineConfig()
	require.NoError(t, err)
	want := pipeline.DefaultConfig()
	assert.Equal(t, want.Boundary, got.Boundary)
	assert.Equal(t, want.Rectification, got.Rectification)
	assert.Equal(t, want.Markers, got.Markers)
	assert.Equal(t, want.MarkerSpace, got.MarkerSpace)
	assert.Equal(t, want.Raster, got.Raster)
	assert.Equal(t, want.Search, got.Search)
	assert.Equal(t, want.MaxImageDim, got.MaxImageDim)
}

func TestToPipelineConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pipeline.Rectify.Sampling = "nearest"
	cfg.Pipeline.Rectify.CanvasSize = 800
	cfg.Pipeline.Markers.Space = "source"
	cfg.Pipeline.Markers.KernelShape = "cross"
	cfg.Pipeline.Markers.Lower = detector.HSV{H: 35, S: 60, V: 60}
	cfg.Pipeline.Grid.TargetCells = 120
	cfg.Pipeline.Search.Connectivity = "8"
	cfg.Pipeline.Search.Workers = 2
	cfg.Pipeline.Search.MaxExpansions = 5000
	cfg.Pipeline.MaxImageDim = 1600
	cfg.Pipeline.Parallel.MaxWorkers = 3

	pc, err := cfg.ToPipelineConfig()
	require.NoError(t, err)
	assert.Equal(t, rectify.SamplingNearest, pc.Rectification.Sampling)
	assert.Equal(t, 800, pc.Rectification.CanvasSize)
	assert.Equal(t, detector.SpaceSource, pc.MarkerSpace)
	assert.Equal(t, detector.KernelCross, pc.Markers.KernelShape)
	assert.Equal(t, detector.HSV{H: 35, S: 60, V: 60}, pc.Markers.Lower)
	assert.Equal(t, 120, pc.Raster.TargetCells)
	assert.Equal(t, pathfinder.Conn8, pc.Search.Connectivity)
	assert.Equal(t, 2, pc.Search.Workers)
	assert.Equal(t, 5000, pc.Search.MaxExpansions)
	assert.Equal(t, 1600, pc.MaxImageDim)
	assert.Equal(t, 3, pc.Parallel.MaxWorkers)

	_, err = pipeline.New(pc)
	require.NoError(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"log level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
		{"format", func(c *Config) { c.Output.Format = "xml" }, "invalid output format"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"upload", func(c *Config) { c.Server.MaxUploadMB = 0 }, "invalid max upload size"},
		{"timeout", func(c *Config) { c.Server.TimeoutSec = -1 }, "invalid timeout"},
		{"rate limit", func(c *Config) { c.Server.RateLimitPerMinute = -1 }, "invalid rate limit"},
		{"workers", func(c *Config) { c.Pipeline.Parallel.MaxWorkers = -2 }, "parallel max workers"},
		{"baud", func(c *Config) { c.Serial.BaudRate = 1234 }, "invalid serial settings"},
		{"sampling", func(c *Config) { c.Pipeline.Rectify.Sampling = "cubic" }, "rectify.sampling"},
		{"space", func(c *Config) { c.Pipeline.Markers.Space = "photo" }, "markers.space"},
		{"kernel shape", func(c *Config) { c.Pipeline.Markers.KernelShape = "diamond" }, "markers.kernel_shape"},
		{"connectivity", func(c *Config) { c.Pipeline.Search.Connectivity = "6" }, "search.connectivity"},
		{"target cells", func(c *Config) { c.Pipeline.Grid.TargetCells = 0 }, "target cells"},
		{"kernel", func(c *Config) { c.Pipeline.Grid.BlurKernel = 4 }, "blur kernel"},
		{"wall fraction", func(c *Config) { c.Pipeline.Grid.WallFraction = 1 }, "wall fraction"},
		{"hsv band", func(c *Config) { c.Pipeline.Markers.Upper.H = 30 }, "markers"},
		{"canvas", func(c *Config) { c.Pipeline.Rectify.CanvasSize = 0 }, "canvas size"},
		{"epsilon", func(c *Config) { c.Pipeline.Boundary.EpsilonRatio = 0 }, "epsilon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSub)
		})
	}
}
