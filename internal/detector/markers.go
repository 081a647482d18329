package detector

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/MeKo-Tech/robomaze/internal/utils"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// HSV is a colour in the 8-bit OpenCV convention: hue 0-180 (degrees / 2),
// saturation and value 0-255.
type HSV struct {
	H float64 `mapstructure:"h" yaml:"h" json:"h"`
	S float64 `mapstructure:"s" yaml:"s" json:"s"`
	V float64 `mapstructure:"v" yaml:"v" json:"v"`
}

// ToHSV converts c to the 8-bit HSV convention.
func ToHSV(c color.Color) HSV {
	r, g, b, _ := c.RGBA()
	cf := colorful.Color{R: float64(r) / 0xffff, G: float64(g) / 0xffff, B: float64(b) / 0xffff}
	h, s, v := cf.Hsv()
	return HSV{
		H: math.Round(h / 2),
		S: math.Round(s * 255),
		V: math.Round(v * 255),
	}
}

// InRange reports whether c lies inside the inclusive band [lo, hi].
func (c HSV) InRange(lo, hi HSV) bool {
	return c.H >= lo.H && c.H <= hi.H &&
		c.S >= lo.S && c.S <= hi.S &&
		c.V >= lo.V && c.V <= hi.V
}

// CoordSpace tags which image a marker position refers to.
type CoordSpace int

const (
	SpaceSource CoordSpace = iota
	SpaceRectified
)

func (s CoordSpace) String() string {
	if s == SpaceRectified {
		return "rectified"
	}
	return "source"
}

// ParseCoordSpace accepts "source" and "rectified". Empty selects the
// rectified canvas.
func ParseCoordSpace(name string) (CoordSpace, error) {
	switch name {
	case "", "rectified":
		return SpaceRectified, nil
	case "source":
		return SpaceSource, nil
	default:
		return SpaceSource, fmt.Errorf("unknown coordinate space %q (want source or rectified)", name)
	}
}

// Marker is the centroid of one coloured dot in (row, column) order.
type Marker struct {
	Row   float64    `json:"row"`
	Col   float64    `json:"col"`
	Area  float64    `json:"area"`
	Space CoordSpace `json:"-"`
}

// Point returns the marker as an image-space point (X = column).
func (m Marker) Point() utils.Point { return utils.Point{X: m.Col, Y: m.Row} }

// Moved returns a copy of m located at p in space.
func (m Marker) Moved(p utils.Point, space CoordSpace) Marker {
	m.Row, m.Col, m.Space = p.Y, p.X, space
	return m
}

func (m Marker) String() string {
	return fmt.Sprintf("(%.1f, %.1f)", m.Row, m.Col)
}

// MarkerConfig holds the colour band and blob filters of the marker search.
type MarkerConfig struct {
	Lower       HSV
	Upper       HSV
	KernelSize  int
	KernelShape KernelShape
	// Blobs are kept when MinArea < area < MaxArea.
	MinArea float64
	MaxArea float64
}

// DefaultMarkerConfig matches green stickers under ordinary indoor light.
func DefaultMarkerConfig() MarkerConfig {
	return MarkerConfig{
		Lower:       HSV{H: 40, S: 80, V: 80},
		Upper:       HSV{H: 80, S: 255, V: 255},
		KernelSize:  5,
		KernelShape: KernelEllipse,
		MinArea:     50,
		MaxArea:     20000,
	}
}

// Validate checks band ordering and filter limits.
func (c MarkerConfig) Validate() error {
	if c.Lower.H > c.Upper.H || c.Lower.S > c.Upper.S || c.Lower.V > c.Upper.V {
		return errors.New("marker colour band lower bound exceeds upper bound")
	}
	if c.Lower.H < 0 || c.Upper.H > 180 {
		return fmt.Errorf("marker hue must be within 0-180, got %v-%v", c.Lower.H, c.Upper.H)
	}
	if c.Lower.S < 0 || c.Lower.V < 0 || c.Upper.S > 255 || c.Upper.V > 255 {
		return errors.New("marker saturation and value must be within 0-255")
	}
	if c.KernelSize < 1 || c.KernelSize%2 == 0 {
		return fmt.Errorf("marker kernel size must be a positive odd number, got %d", c.KernelSize)
	}
	if c.KernelShape < KernelRect || c.KernelShape > KernelCross {
		return fmt.Errorf("marker kernel shape invalid: %v", c.KernelShape)
	}
	if c.MinArea < 0 || c.MinArea >= c.MaxArea {
		return fmt.Errorf("marker area filter invalid: min %v, max %v", c.MinArea, c.MaxArea)
	}
	return nil
}

// CleanupSteps is the opening then closing applied to the colour mask.
func (c MarkerConfig) CleanupSteps() []MorphConfig {
	step := DefaultMorphConfig()
	step.Shape = c.KernelShape
	step.KernelSize = c.KernelSize

	opening, closing := step, step
	opening.Operation = MorphOpening
	closing.Operation = MorphClosing
	return []MorphConfig{opening, closing}
}

// MarkerDetector finds coloured blobs and reports their centroids.
type MarkerDetector struct {
	cfg   MarkerConfig
	steps []MorphConfig
}

// NewMarkerDetector creates a detector for cfg.
func NewMarkerDetector(cfg MarkerConfig) (*MarkerDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &MarkerDetector{cfg: cfg, steps: cfg.CleanupSteps()}, nil
}

// ColorMask marks every pixel of img whose HSV colour falls inside the band.
func (d *MarkerDetector) ColorMask(img image.Image) *Mask {
	nrgba := utils.ToNRGBA(img)
	b := nrgba.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := range m.H {
		row := nrgba.Pix[y*nrgba.Stride:]
		for x := range m.W {
			px := row[x*4 : x*4+4]
			hsv := ToHSV(color.NRGBA{R: px[0], G: px[1], B: px[2], A: 0xff})
			if hsv.InRange(d.cfg.Lower, d.cfg.Upper) {
				m.Pix[y*m.W+x] = Foreground
			}
		}
	}
	return m
}

// Detect returns the centroids of the accepted blobs of img, in the raster
// order of each blob's first pixel. The space tag is copied to every marker.
func (d *MarkerDetector) Detect(img image.Image, space CoordSpace) ([]Marker, error) {
	if err := utils.ValidateImage(img); err != nil {
		return nil, err
	}

	raw := d.ColorMask(img)
	defer raw.Release()
	cleaned := ApplyMorphology(raw, d.steps...)
	defer cleaned.Release()

	var markers []Marker
	for _, c := range ExternalContours(cleaned) {
		area := c.Area()
		if area <= d.cfg.MinArea || area >= d.cfg.MaxArea {
			continue
		}
		centroid, ok := c.Moments().Centroid()
		if !ok {
			continue
		}
		markers = append(markers, Marker{Row: centroid.Y, Col: centroid.X, Area: area, Space: space})
	}
	slog.Debug("markers detected", "count", len(markers), "space", space.String())
	return markers, nil
}
