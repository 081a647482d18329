package config

import (
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/MeKo-Tech/robomaze/internal/detector"
	"github.com/MeKo-Tech/robomaze/internal/grid"
	"github.com/MeKo-Tech/robomaze/internal/pathfinder"
	"github.com/MeKo-Tech/robomaze/internal/pipeline"
	"github.com/MeKo-Tech/robomaze/internal/rectify"
	"github.com/MeKo-Tech/robomaze/internal/transport"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	boundary := detector.DefaultBoundaryConfig()
	rect := rectify.DefaultConfig()
	markers := detector.DefaultMarkerConfig()
	return Config{
		LogLevel: "info",
		Pipeline: PipelineConfig{
			Boundary: BoundaryConfig{
				EpsilonRatio: boundary.ApproxEpsilonRatio,
				MinAreaRatio: boundary.MinAreaRatio,
			},
			Rectify: RectifyConfig{
				CanvasSize: rect.CanvasSize,
				Sampling:   string(rect.Sampling),
			},
			Markers: MarkerConfig{
				Lower:       markers.Lower,
				Upper:       markers.Upper,
				KernelSize:  markers.KernelSize,
				KernelShape: markers.KernelShape.String(),
				MinArea:     markers.MinArea,
				MaxArea:     markers.MaxArea,
				Space:       detector.SpaceRectified.String(),
			},
			Grid: grid.DefaultRasterConfig(),
			Search: SearchConfig{
				Connectivity: pathfinder.Conn4.String(),
			},
			Parallel: ParallelConfig{MaxWorkers: runtime.NumCPU()},
		},
		Output: OutputConfig{
			Format: "text",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     20,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
		},
		Serial: SerialConfig{
			Port:        "/dev/rfcomm0",
			PortOptions: transport.DefaultPortOptions(),
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"text", "json", "csv"}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.RateLimitPerMinute < 0 || c.Server.RateLimitPerHour < 0 {
		return fmt.Errorf("invalid rate limit: %d/min %d/h (must not be negative)", c.Server.RateLimitPerMinute, c.Server.RateLimitPerHour)
	}
	if c.Pipeline.Parallel.MaxWorkers < 0 {
		return fmt.Errorf("invalid parallel max workers: %d (must not be negative)", c.Pipeline.Parallel.MaxWorkers)
	}

	if _, err := c.Serial.Normalize(); err != nil {
		return fmt.Errorf("invalid serial settings: %w", err)
	}

	pc, err := c.ToPipelineConfig()
	if err != nil {
		return err
	}
	return pc.Validate()
}

// ToPipelineConfig converts the config to the pipeline configuration.
func (c *Config) ToPipelineConfig() (pipeline.Config, error) {
	p := c.Pipeline
	sampling, err := rectify.ParseSampling(p.Rectify.Sampling)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("invalid rectify.sampling: %w", err)
	}
	space, err := detector.ParseCoordSpace(p.Markers.Space)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("invalid markers.space: %w", err)
	}
	shape := detector.DefaultMarkerConfig().KernelShape
	if p.Markers.KernelShape != "" {
		if shape, err = detector.ParseKernelShape(p.Markers.KernelShape); err != nil {
			return pipeline.Config{}, fmt.Errorf("invalid markers.kernel_shape: %w", err)
		}
	}
	conn, err := pathfinder.ParseConnectivity(p.Search.Connectivity)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("invalid search.connectivity: %w", err)
	}

	cfg := pipeline.DefaultConfig()
	cfg.Boundary = detector.BoundaryConfig{ApproxEpsilonRatio: p.Boundary.EpsilonRatio, MinAreaRatio: p.Boundary.MinAreaRatio}
	cfg.Rectification = rectify.Config{CanvasSize: p.Rectify.CanvasSize, Sampling: sampling, DebugDir: p.Rectify.DebugDir}
	cfg.Markers = detector.MarkerConfig{
		Lower:       p.Markers.Lower,
		Upper:       p.Markers.Upper,
		KernelSize:  p.Markers.KernelSize,
		KernelShape: shape,
		MinArea:     p.Markers.MinArea,
		MaxArea:     p.Markers.MaxArea,
	}
	cfg.MarkerSpace = space
	cfg.Raster = p.Grid
	cfg.Search.Connectivity = conn
	cfg.Search.MaxExpansions = p.Search.MaxExpansions
	cfg.Search.Workers = p.Search.Workers
	cfg.MaxImageDim = p.MaxImageDim
	if p.Parallel.MaxWorkers > 0 {
		cfg.Parallel.MaxWorkers = p.Parallel.MaxWorkers
	}
	return cfg, nil
}
