package support

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/robomaze/internal/testutil"
	"github.com/MeKo-Tech/robomaze/internal/utils"
	"github.com/cucumber/godog"
)

func layoutByName(name string) ([]string, error) {
	switch name {
	case "simple":
		return testutil.SimpleLayout, nil
	case "three-marker":
		return testutil.ThreeMarkerLayout, nil
	case "no-marker":
		out := make([]string, len(testutil.SimpleLayout))
		for i, row := range testutil.SimpleLayout {
			out[i] = strings.ReplaceAll(row, "G", " ")
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown maze layout %q", name)
	}
}

// aMazePhoto renders a tilted photo of the named layout into the scenario
// temp dir and registers it as {photo:name}.
func (testCtx *TestContext) aMazePhoto(name, layout string) error {
	rows, err := layoutByName(layout)
	if err != nil {
		return err
	}
	sheet := testutil.DefaultMazeSheet()
	sheet.Layout = rows

	img, _, err := sheet.RenderPhoto(640, 520, testutil.TiltedQuad)
	if err != nil {
		return fmt.Errorf("failed to render %s maze: %w", layout, err)
	}
	path := testCtx.PhotoPath(name)
	if err := utils.SavePNG(path, img); err != nil {
		return fmt.Errorf("failed to save maze photo: %w", err)
	}
	testCtx.AddPhoto(name, path)
	return nil
}

// RegisterMazeSteps registers the synthetic photo steps.
func (testCtx *TestContext) RegisterMazeSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a maze photo "([^"]*)" with the "([^"]*)" layout$`, testCtx.aMazePhoto)
}
