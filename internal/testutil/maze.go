package testutil

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/robomaze/internal/rectify"
	"github.com/MeKo-Tech/robomaze/internal/utils"
	"github.com/stretchr/testify/require"
)

// SimpleLayout is a 7x9 maze with one marker in the top-left corridor and
// one in the bottom-right corridor, connected by a single winding path.
var SimpleLayout = []string{
	"#########",
	"#G  #   #",
	"### # # #",
	"#   # # #",
	"# ### # #",
	"#     #G#",
	"#########",
}

// ThreeMarkerLayout has markers A (1,1), B (1,6) and C (5,1). B sits in a
// sealed chamber; C is reachable from A.
var ThreeMarkerLayout = []string{
	"#########",
	"#G  ##G #",
	"### #####",
	"#   #   #",
	"# ### # #",
	"#G    # #",
	"#########",
}

// Colours used by the synthetic renderer.
var (
	PaperColor      = color.NRGBA{R: 250, G: 250, B: 250, A: 255}
	WallColor       = color.NRGBA{R: 15, G: 15, B: 15, A: 255}
	MarkerColor     = color.NRGBA{R: 70, G: 210, B: 70, A: 255}
	BackgroundColor = color.NRGBA{R: 60, G: 60, B: 60, A: 255}
)

// MazeSheet describes a synthetic maze sheet. Layout rows use '#' for wall
// blocks, 'G' for a free block carrying a marker and anything else for free
// blocks.
type MazeSheet struct {
	Layout       []string
	BlockPx      int // side of one layout block on paper
	Margin       int // blank paper around the layout
	MarkerRadius int
}

// DefaultMazeSheet renders SimpleLayout with 40px blocks.
func DefaultMazeSheet() MazeSheet {
	return MazeSheet{Layout: SimpleLayout, BlockPx: 40, Margin: 30, MarkerRadius: 10}
}

// Rows and Cols return the layout dimensions.
func (s MazeSheet) Rows() int { return len(s.Layout) }

func (s MazeSheet) Cols() int {
	n := 0
	for _, row := range s.Layout {
		n = max(n, len(row))
	}
	return n
}

// PaperSize returns the sheet size in pixels.
func (s MazeSheet) PaperSize() (int, int) {
	return 2*s.Margin + s.Cols()*s.BlockPx, 2*s.Margin + s.Rows()*s.BlockPx
}

// IsWall reports whether layout block (r, c) is a wall.
func (s MazeSheet) IsWall(r, c int) bool {
	if r < 0 || r >= len(s.Layout) || c < 0 || c >= len(s.Layout[r]) {
		return false
	}
	return s.Layout[r][c] == '#'
}

// BlockCenter returns the paper coordinates of the centre of block (r, c).
func (s MazeSheet) BlockCenter(r, c int) utils.Point {
	return utils.Point{
		X: float64(s.Margin) + (float64(c)+0.5)*float64(s.BlockPx),
		Y: float64(s.Margin) + (float64(r)+0.5)*float64(s.BlockPx),
	}
}

// MarkerBlocks lists the (row, col) layout blocks holding a marker in
// raster order.
func (s MazeSheet) MarkerBlocks() [][2]int {
	var out [][2]int
	for r, row := range s.Layout {
		for c, ch := range row {
			if ch == 'G' {
				out = append(out, [2]int{r, c})
			}
		}
	}
	return out
}

// RenderPaper draws the flat sheet.
func (s MazeSheet) RenderPaper() *image.NRGBA {
	w, h := s.PaperSize()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	fill(img, img.Bounds(), PaperColor)
	for r, row := range s.Layout {
		for c, ch := range row {
			if ch != '#' {
				continue
			}
			x0 := s.Margin + c*s.BlockPx
			y0 := s.Margin + r*s.BlockPx
			fill(img, image.Rect(x0, y0, x0+s.BlockPx, y0+s.BlockPx), WallColor)
		}
	}
	for _, b := range s.MarkerBlocks() {
		p := s.BlockCenter(b[0], b[1])
		disc(img, p, s.MarkerRadius, MarkerColor)
	}
	return img
}

// RenderPhoto projects the sheet into a w x h photo so that the sheet
// corners land on quad (TL, TR, BR, BL). It returns the photo and the
// marker centres in photo coordinates.
func (s MazeSheet) RenderPhoto(w, h int, quad [4]utils.Point) (*image.NRGBA, []utils.Point, error) {
	paper := s.RenderPaper()
	pw, ph := s.PaperSize()
	paperCorners := [4]utils.Point{{X: 0, Y: 0}, {X: float64(pw), Y: 0}, {X: float64(pw), Y: float64(ph)}, {X: 0, Y: float64(ph)}}

	toPaper, err := rectify.ComputeHomography(quad, paperCorners)
	if err != nil {
		return nil, nil, err
	}
	toPhoto, err := toPaper.Inverse()
	if err != nil {
		return nil, nil, err
	}

	photo := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			c := BackgroundColor
			// Sample at the pixel centre so edges are symmetric.
			if p, ok := toPaper.Apply(utils.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5}); ok {
				px, py := int(p.X), int(p.Y)
				if p.X >= 0 && p.Y >= 0 && px < pw && py < ph {
					c = paper.NRGBAAt(px, py)
				}
			}
			photo.SetNRGBA(x, y, c)
		}
	}

	var markers []utils.Point
	for _, b := range s.MarkerBlocks() {
		p, _ := toPhoto.Apply(s.BlockCenter(b[0], b[1]))
		markers = append(markers, p)
	}
	return photo, markers, nil
}

// SaveMazePhoto renders sheet into dir/name as PNG and returns the path.
func SaveMazePhoto(t *testing.T, dir, name string, sheet MazeSheet, w, h int, quad [4]utils.Point) string {
	t.Helper()
	img, _, err := sheet.RenderPhoto(w, h, quad)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, utils.SavePNG(path, img))
	return path
}

// TiltedQuad is a perspective quadrilateral inside a 640x520 photo.
var TiltedQuad = [4]utils.Point{{X: 70, Y: 40}, {X: 590, Y: 70}, {X: 570, Y: 480}, {X: 50, Y: 450}}

func fill(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

func disc(img *image.NRGBA, center utils.Point, radius int, c color.NRGBA) {
	r2 := float64(radius * radius)
	for y := int(center.Y) - radius - 1; y <= int(center.Y)+radius+1; y++ {
		for x := int(center.X) - radius - 1; x <= int(center.X)+radius+1; x++ {
			dx := float64(x) + 0.5 - center.X
			dy := float64(y) + 0.5 - center.Y
			if dx*dx+dy*dy <= r2 && image.Pt(x, y).In(img.Bounds()) {
				img.SetNRGBA(x, y, c)
			}
		}
	}
}
