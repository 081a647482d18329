package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/robomaze/internal/testutil"
	"github.com/MeKo-Tech/robomaze/internal/utils"
)

// photo is one synthetic maze photo and the facts a test can assert on it.
type photo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	File        string          `json:"file"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	Layout      []string        `json:"layout"`
	Markers     int             `json:"markers"`
	Quad        [4]utils.Point  `json:"quad"`
	Reachable   map[string]bool `json:"reachable,omitempty"`
}

func main() {
	// Set up structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		outDir           = flag.String("out", "testdata", "output directory, relative to the project root")
		generateFixtures = flag.Bool("fixtures", true, "also write a JSON fixture per photo")
		verbose          = flag.Bool("v", false, "Verbose output")
		help             = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Render synthetic maze photos for robomaze testing.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s                    # Photos and fixtures under testdata/\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -fixtures=false    # Photos only\n", os.Args[0])
	}

	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	root, err := testutil.GetProjectRoot()
	if err != nil {
		slog.Error("Failed to find project root", "error", err)
		os.Exit(1)
	}
	if *verbose {
		slog.Info("Project root", "path", root)
	}

	if err := os.Chdir(root); err != nil {
		slog.Error("Failed to change to project root", "error", err)
		os.Exit(1)
	}

	photos := catalog()
	if err := renderPhotos(filepath.Join(*outDir, "images"), photos); err != nil {
		slog.Error("Failed to render maze photos", "error", err)
		os.Exit(1)
	}
	slog.Info("Rendered maze photos", "count", len(photos))

	if *generateFixtures {
		if err := writeFixtures(filepath.Join(*outDir, "fixtures"), photos); err != nil {
			slog.Error("Failed to write fixtures", "error", err)
			os.Exit(1)
		}
		slog.Info("Wrote fixtures", "count", len(photos))
	}
}

// flatQuad keeps the sheet axis-aligned with a small border.
var flatQuad = [4]utils.Point{{X: 40, Y: 40}, {X: 600, Y: 40}, {X: 600, Y: 480}, {X: 40, Y: 480}}

func catalog() []photo {
	noMarkers := make([]string, len(testutil.SimpleLayout))
	for i, row := range testutil.SimpleLayout {
		noMarkers[i] = strings.ReplaceAll(row, "G", " ")
	}

	return []photo{
		{
			Name:        "simple_flat",
			Description: "Two connected markers, sheet photographed head-on",
			Layout:      testutil.SimpleLayout,
			Markers:     2,
			Quad:        flatQuad,
			Reachable:   map[string]bool{"1->2": true, "2->1": true},
		},
		{
			Name:        "simple_tilted",
			Description: "Two connected markers under perspective",
			Layout:      testutil.SimpleLayout,
			Markers:     2,
			Quad:        testutil.TiltedQuad,
			Reachable:   map[string]bool{"1->2": true, "2->1": true},
		},
		{
			Name:        "three_markers",
			Description: "Three markers, one of them in a sealed chamber",
			Layout:      testutil.ThreeMarkerLayout,
			Markers:     3,
			Quad:        testutil.TiltedQuad,
		},
		{
			Name:        "no_markers",
			Description: "Maze without markers; solving must fail",
			Layout:      noMarkers,
			Quad:        testutil.TiltedQuad,
		},
	}
}

func renderPhotos(dir string, photos []photo) error {
	if err := testutil.EnsureDir(dir); err != nil {
		return fmt.Errorf("failed to create images directory: %w", err)
	}

	for i := range photos {
		p := &photos[i]
		sheet := testutil.DefaultMazeSheet()
		sheet.Layout = p.Layout
		p.Width, p.Height = 640, 520

		img, _, err := sheet.RenderPhoto(p.Width, p.Height, p.Quad)
		if err != nil {
			return fmt.Errorf("failed to render %s: %w", p.Name, err)
		}
		p.File = filepath.Join(dir, p.Name+".png")
		if err := utils.SavePNG(p.File, img); err != nil {
			return fmt.Errorf("failed to save %s: %w", p.Name, err)
		}
		slog.Debug("Rendered photo", "name", p.Name, "file", p.File)
	}
	return nil
}

func writeFixtures(dir string, photos []photo) error {
	if err := testutil.EnsureDir(dir); err != nil {
		return fmt.Errorf("failed to create fixtures directory: %w", err)
	}

	for _, p := range photos {
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return err
		}
		filename := filepath.Join(dir, p.Name+".json")
		if err := os.WriteFile(filename, data, 0o600); err != nil {
			return fmt.Errorf("failed to save fixture '%s': %w", p.Name, err)
		}
	}
	return nil
}
