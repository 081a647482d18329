package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/robomaze/internal/batch"
	"github.com/MeKo-Tech/robomaze/internal/pipeline"
	"github.com/MeKo-Tech/robomaze/internal/utils"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// gridCmd reports the logic grid and markers found in one or more photos.
var gridCmd = &cobra.Command{
	Use:   "grid <image|dir> [image|dir...]",
	Short: "Analyse maze photos and print their logic grid",
	Long: `Run the analysis stages (outline, perspective correction, markers and
rasterization) on one or more maze photos and report the resulting grid.

Directories contribute every supported image they contain (use
--recursive to descend, --include/--exclude to filter by name). With
several photos the analyses run in parallel; every result is printed under
a "== path ==" header, or as a JSON array with --format json.

Examples:
  robomaze grid maze.jpg
  robomaze grid maze.jpg --format json --cells
  robomaze grid maze.jpg --overlay grid.png
  robomaze grid photos/ --recursive --exclude "*_bw.png" --workers 4 --progress`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGrid,
}

func init() {
	rootCmd.AddCommand(gridCmd)

	gridCmd.Flags().StringP("format", "f", "text", "output format (text, json)")
	gridCmd.Flags().Bool("cells", false, "include the cell matrix in JSON output")
	gridCmd.Flags().String("overlay", "", "save a PNG rendering of the grid (single photo only)")
	gridCmd.Flags().StringP("output", "o", "", "write the report to this file instead of stdout")
	gridCmd.Flags().Int("workers", 0, "parallel workers for several photos (0 = from config)")
	gridCmd.Flags().Bool("progress", false, "show a progress bar on stderr for several photos")
	gridCmd.Flags().Bool("stats", false, "print batch statistics to stderr for several photos")
	gridCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	gridCmd.Flags().StringSlice("include", nil, "file name patterns to include from directories (e.g. \"maze_*\")")
	gridCmd.Flags().StringSlice("exclude", nil, "file name patterns to exclude")
}

func runGrid(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	format := cfg.Output.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	if format == "" {
		format = "text"
	}
	if format != "text" && format != "json" {
		return fmt.Errorf("unsupported format: %s (must be one of: text, json)", format)
	}
	withCells, _ := cmd.Flags().GetBool("cells")

	output := cfg.Output.File
	if cmd.Flags().Changed("output") {
		output, _ = cmd.Flags().GetString("output")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	recursive, _ := cmd.Flags().GetBool("recursive")
	include, _ := cmd.Flags().GetStringSlice("include")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	paths, err := batch.Discover(args, batch.DiscoverOptions{Recursive: recursive, Include: include, Exclude: exclude})
	if err != nil {
		return err
	}

	var report string
	if len(paths) == 1 {
		session, err := analyzeFile(ctx, cfg, paths[0])
		if err != nil {
			return err
		}
		if overlay, _ := cmd.Flags().GetString("overlay"); overlay != "" {
			if err := utils.SavePNG(overlay, pipeline.RenderGrid(session)); err != nil {
				return fmt.Errorf("failed to save overlay: %w", err)
			}
			slog.Info("overlay written", "file", overlay)
		}
		report, err = formatAnalysis(session, format, withCells)
		if err != nil {
			return err
		}
	} else {
		report, err = runGridBatch(ctx, cmd, paths, format, withCells)
		if err != nil {
			return err
		}
	}

	if output != "" {
		if err := os.WriteFile(output, []byte(report), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		slog.Info("report written", "file", output)
		return nil
	}
	_, _ = fmt.Fprint(cmd.OutOrStdout(), report)
	return nil
}

func formatAnalysis(s *pipeline.Session, format string, withCells bool) (string, error) {
	if format == "json" {
		out, err := pipeline.ToJSONAnalysis(s, withCells)
		if err != nil {
			return "", fmt.Errorf("failed to format analysis: %w", err)
		}
		return out + "\n", nil
	}
	out, err := pipeline.ToPlainTextAnalysis(s)
	if err != nil {
		return "", fmt.Errorf("failed to format analysis: %w", err)
	}
	return out, nil
}

// batchEntry is one photo of a multi-photo JSON report.
type batchEntry struct {
	File     string                   `json:"file"`
	Analysis *pipeline.AnalysisResult `json:"analysis,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

func runGridBatch(ctx context.Context, cmd *cobra.Command, paths []string, format string, withCells bool) (string, error) {
	cfg := GetConfig()

	images := make([]image.Image, len(paths))
	for i, path := range paths {
		img, _, err := utils.LoadImage(path)
		if err != nil {
			return "", fmt.Errorf("failed to load image %s: %w", path, err)
		}
		images[i] = img
	}

	p, err := newPipeline(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to build pipeline: %w", err)
	}

	workers := cfg.Pipeline.Parallel.MaxWorkers
	if cmd.Flags().Changed("workers") {
		workers, _ = cmd.Flags().GetInt("workers")
	}
	failures := make(map[int]error)
	pc := pipeline.ParallelConfig{
		MaxWorkers: workers,
		ErrorHandler: func(i int, _ image.Image, err error) {
			failures[i] = err
		},
	}
	progress, _ := cmd.Flags().GetBool("progress")
	pc.ProgressCallback = batchProgress(cmd.ErrOrStderr(), progress, isTerminal(cmd.ErrOrStderr()))

	started := time.Now()
	sessions, err := p.AnalyzeImagesParallel(ctx, images, pc)
	if sessions == nil {
		return "", fmt.Errorf("batch analysis failed: %w", err)
	}
	stats := pipeline.CalculateBatchStats(sessions, time.Since(started), workers)
	slog.Info("batch analysis finished",
		"photos", stats.TotalImages,
		"analyzed", stats.AnalyzedImages,
		"failed", stats.FailedImages,
		"duration", stats.TotalDuration.Round(time.Millisecond))
	if showStats, _ := cmd.Flags().GetBool("stats"); showStats {
		writeBatchStats(cmd.ErrOrStderr(), stats)
	}

	if format == "json" {
		entries := make([]batchEntry, len(paths))
		for i, s := range sessions {
			entries[i].File = filepath.Base(paths[i])
			if s == nil {
				entries[i].Error = failures[i].Error()
				continue
			}
			entries[i].Analysis, err = pipeline.NewAnalysisResult(s, withCells)
			if err != nil {
				return "", fmt.Errorf("failed to format analysis: %w", err)
			}
		}
		b, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal report: %w", err)
		}
		return string(b) + "\n", nil
	}

	var sb strings.Builder
	for i, s := range sessions {
		fmt.Fprintf(&sb, "== %s ==\n", paths[i])
		if s == nil {
			fmt.Fprintf(&sb, "error: %v\n", failures[i])
			continue
		}
		text, err := pipeline.ToPlainTextAnalysis(s)
		if err != nil {
			return "", fmt.Errorf("failed to format analysis: %w", err)
		}
		sb.WriteString(text)
		if i < len(sessions)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}

func writeBatchStats(w io.Writer, st pipeline.BatchStats) {
	_, _ = fmt.Fprintf(w, "photos: %d (analyzed %d, failed %d)\n", st.TotalImages, st.AnalyzedImages, st.FailedImages)
	_, _ = fmt.Fprintf(w, "workers: %d\n", st.WorkerCount)
	_, _ = fmt.Fprintf(w, "duration: %v (%.1f photos/s)\n", st.TotalDuration.Round(time.Millisecond), st.ThroughputPerSec)
}

// batchProgress always logs batch progress at debug level. With --progress
// a terminal also gets the console bar; anything else (a file, a pipe, a
// log collector) gets the progress events at info level instead.
func batchProgress(w io.Writer, show, terminal bool) pipeline.ProgressCallback {
	logged := pipeline.NewLogProgressCallback(slog.Default(), slog.LevelDebug)
	switch {
	case !show:
		return logged
	case terminal:
		return pipeline.MultiProgressCallback{logged, pipeline.NewConsoleProgressCallback(w, "")}
	default:
		return pipeline.NewLogProgressCallback(slog.Default(), slog.LevelInfo).WithInterval(1)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
