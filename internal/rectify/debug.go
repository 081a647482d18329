package rectify

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/robomaze/internal/utils"
)

func dumpOverlayPNG(dir string, src image.Image, quad []utils.Point) error {
	path := filepath.Join(dir, fmt.Sprintf("rect_overlay_%d.png", time.Now().UnixNano()))
	b := src.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), src, b.Min, draw.Src)
	utils.DrawPolygon(canvas, quad, color.RGBA{255, 0, 0, 255}, 3)
	for i, p := range quad {
		// corner index as dot size: TL smallest
		utils.FillCircle(canvas, int(p.X), int(p.Y), 4+2*i, color.RGBA{0, 0, 255, 255})
	}
	return utils.SavePNG(path, canvas)
}

func dumpComparePNG(dir string, src image.Image, srcQuad []utils.Point, dst image.Image) error {
	path := filepath.Join(dir, fmt.Sprintf("rect_compare_%d.png", time.Now().UnixNano()))
	sb := src.Bounds()
	db := dst.Bounds()
	gap := 10
	canvas := image.NewRGBA(image.Rect(0, 0, sb.Dx()+gap+db.Dx(), max(sb.Dy(), db.Dy())))
	draw.Draw(canvas, image.Rect(0, 0, sb.Dx(), sb.Dy()), src, sb.Min, draw.Src)
	xoff := sb.Dx() + gap
	draw.Draw(canvas, image.Rect(xoff, 0, xoff+db.Dx(), db.Dy()), dst, db.Min, draw.Src)
	utils.DrawPolygon(canvas, srcQuad, color.RGBA{255, 0, 0, 255}, 2)
	utils.DrawPolygon(canvas, []utils.Point{
		{X: float64(xoff), Y: 0},
		{X: float64(xoff + db.Dx() - 1), Y: 0},
		{X: float64(xoff + db.Dx() - 1), Y: float64(db.Dy() - 1)},
		{X: float64(xoff), Y: float64(db.Dy() - 1)},
	}, color.RGBA{0, 255, 0, 255}, 2)
	return utils.SavePNG(path, canvas)
}
