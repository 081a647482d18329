package rectify

import "fmt"

// Config holds configuration for perspective rectification.
type Config struct {
	CanvasSize int      // side of the square output canvas in pixels
	Sampling   Sampling // interpolation used while warping
	// Debug dumping
	DebugDir string // if non-empty, writes overlay and compare PNGs here
}

// DefaultConfig returns a 1000x1000 bilinear canvas.
func DefaultConfig() Config {
	return Config{
		CanvasSize: 1000,
		Sampling:   SamplingBilinear,
	}
}

// Validate rejects unusable canvas sizes and sampling modes.
func (c Config) Validate() error {
	if c.CanvasSize <= 0 {
		return fmt.Errorf("canvas size must be positive, got %d", c.CanvasSize)
	}
	if _, err := ParseSampling(string(c.Sampling)); err != nil {
		return err
	}
	return nil
}
