package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/robomaze/internal/config"
	"github.com/MeKo-Tech/robomaze/internal/pipeline"
	"github.com/MeKo-Tech/robomaze/internal/transport"
	"github.com/MeKo-Tech/robomaze/internal/utils"
	"github.com/spf13/cobra"
)

// solveCmd plans a route between two markers of one maze photo.
var solveCmd = &cobra.Command{
	Use:   "solve <image>",
	Short: "Plan a route from one marker to the nearest reachable other",
	Long: `Analyse a maze photo and plan the shortest route from the chosen start
point to the closest other marker that can be reached.

Points are numbered from 1 in the order they are found (top to bottom,
then left to right). The route can be written as text, JSON or CSV,
drawn over the grid and sent to the robot over a serial link.

Examples:
  robomaze solve maze.jpg
  robomaze solve maze.jpg --start 2 --format json
  robomaze solve maze.jpg --interactive --overlay route.png
  robomaze solve maze.jpg --send --port /dev/rfcomm0
  robomaze solve maze.jpg --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runSolve,
}

func init() {
	rootCmd.AddCommand(solveCmd)

	solveCmd.Flags().IntP("start", "s", 1, "start point number (1-based)")
	solveCmd.Flags().BoolP("interactive", "i", false, "list the detected points and ask for the start point")
	solveCmd.Flags().StringP("format", "f", "text", "output format (text, json, csv)")
	solveCmd.Flags().StringP("output", "o", "", "write the route to this file instead of stdout")
	solveCmd.Flags().String("overlay", "", "save a PNG of the grid with the route drawn on it")
	solveCmd.Flags().Bool("send", false, "send the encoded route over the serial link")
	solveCmd.Flags().Bool("dry-run", false, "print the payload that --send would transmit instead of opening the port")
	solveCmd.Flags().String("port", "", "serial device (default from config)")
	solveCmd.Flags().Int("baud", 0, "serial baud rate (default from config)")
}

func runSolve(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	start, _ := cmd.Flags().GetInt("start")
	interactive, _ := cmd.Flags().GetBool("interactive")
	send, _ := cmd.Flags().GetBool("send")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	format := cfg.Output.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	if format == "" {
		format = "text"
	}
	if format != "text" && format != "json" && format != "csv" {
		return fmt.Errorf("unsupported format: %s (must be one of: text, json, csv)", format)
	}

	output := cfg.Output.File
	if cmd.Flags().Changed("output") {
		output, _ = cmd.Flags().GetString("output")
	}

	overlay := cfg.Output.OverlayFile
	if cmd.Flags().Changed("overlay") {
		overlay, _ = cmd.Flags().GetString("overlay")
	}

	if !interactive && start < 1 {
		return fmt.Errorf("invalid start point %d (must be 1 or greater)", start)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	session, err := analyzeFile(ctx, cfg, args[0])
	if err != nil {
		return err
	}

	if interactive {
		start, err = promptStart(cmd.InOrStdin(), cmd.OutOrStdout(), session)
		if err != nil {
			return err
		}
	}

	route, err := session.Solve(ctx, start-1)
	if err != nil {
		if route != nil {
			writeNoRoute(cmd.OutOrStdout(), route)
		}
		return fmt.Errorf("no route: %w", err)
	}

	var rendered string
	switch format {
	case "json":
		rendered, err = pipeline.ToJSONRoute(route)
		rendered += "\n"
	case "csv":
		rendered, err = pipeline.ToCSVRoute(route, session.Grid)
	default:
		rendered, err = pipeline.ToPlainTextRoute(route)
	}
	if err != nil {
		return fmt.Errorf("failed to format route: %w", err)
	}

	if output != "" {
		if err := os.WriteFile(output, []byte(rendered), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		slog.Info("route written", "file", output)
	} else {
		_, _ = fmt.Fprint(cmd.OutOrStdout(), rendered)
	}

	if overlay != "" {
		if err := utils.SavePNG(overlay, pipeline.RenderRoute(session, route)); err != nil {
			return fmt.Errorf("failed to save overlay: %w", err)
		}
		slog.Info("overlay written", "file", overlay)
	}

	if send || dryRun {
		sender, err := openSender(cmd, cfg, dryRun)
		if err != nil {
			return err
		}
		defer func() { _ = sender.Close() }()
		if err := sender.Send(ctx, route.Encoded()); err != nil {
			return fmt.Errorf("failed to send route: %w", err)
		}
	}
	return nil
}

// analyzeFile loads the photo at path and runs the analysis stages.
func analyzeFile(ctx context.Context, cfg *config.Config, path string) (*pipeline.Session, error) {
	img, meta, err := utils.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	slog.Debug("photo loaded", "path", path, "format", meta.Format, "width", meta.Width, "height", meta.Height)

	p, err := newPipeline(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	session, err := p.AnalyzeContext(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	for _, w := range session.Warnings {
		slog.Warn("analysis warning", "path", path, "warning", w)
	}
	return session, nil
}

// promptStart lists the detected points and reads a 1-based start point.
func promptStart(in io.Reader, out io.Writer, s *pipeline.Session) (int, error) {
	n := len(s.Markers)
	if n < 2 {
		return 0, &pipeline.InsufficientMarkersError{Count: n}
	}
	_, _ = fmt.Fprintf(out, "Found %d points:\n", n)
	for i, gp := range s.GridPoints {
		_, _ = fmt.Fprintf(out, "  %d: cell %v\n", i+1, gp)
	}

	scanner := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprintf(out, "Start point [1-%d]: ", n)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, err
			}
			return 0, errors.New("no start point given")
		}
		v, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err == nil && v >= 1 && v <= n {
			return v, nil
		}
		_, _ = fmt.Fprintf(out, "please enter a number between 1 and %d\n", n)
	}
}

func writeNoRoute(w io.Writer, route *pipeline.Route) {
	_, _ = fmt.Fprintf(w, "No reachable destination from point %d\n", route.StartIndex+1)
	for _, c := range route.Candidates {
		_, _ = fmt.Fprintf(w, "  point %d at %v: %s\n", c.MarkerIndex+1, c.Cell, c.Outcome)
	}
}

// openSender opens the configured serial port, or a stdout writer for
// dry runs.
func openSender(cmd *cobra.Command, cfg *config.Config, dryRun bool) (transport.Sender, error) {
	if dryRun {
		// MultiWriter hides Close so stdout stays open.
		return transport.NewWriterSender(io.MultiWriter(cmd.OutOrStdout())), nil
	}

	port := cfg.Serial.Port
	if cmd.Flags().Changed("port") {
		port, _ = cmd.Flags().GetString("port")
	}
	opts := cfg.Serial.PortOptions
	if cmd.Flags().Changed("baud") {
		opts.BaudRate, _ = cmd.Flags().GetInt("baud")
	}
	if port == "" {
		return nil, errors.New("no serial port configured (use --port or serial.port)")
	}

	sender, err := transport.Open(port, opts)
	if err != nil {
		return nil, err
	}
	return sender, nil
}
