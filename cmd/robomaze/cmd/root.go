package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/robomaze/internal/config"
	"github.com/MeKo-Tech/robomaze/internal/grid"
	"github.com/MeKo-Tech/robomaze/internal/pipeline"
	"github.com/MeKo-Tech/robomaze/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "robomaze",
	Short: "Plan robot routes through photographed mazes",
	Long: `robomaze turns a photo of a paper maze into a route for a small robot.

It finds the maze outline, corrects the perspective, locates the green
markers, reduces the maze to a grid of free and wall cells and plans the
shortest route from a chosen marker to the nearest reachable other one.
Routes can be printed, drawn over the grid or sent over a serial link.

Examples:
  robomaze grid maze.jpg
  robomaze solve maze.jpg --start 2 --overlay route.png
  robomaze solve maze.jpg --interactive --send
  robomaze serve --port 8080`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			for _, line := range version.Current().Lines() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
// This allows tests to execute commands without calling os.Exit().
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	defaults := config.DefaultConfig()
	raster := grid.DefaultRasterConfig()

	// Global flags that apply to all commands
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is search in ., $HOME, $HOME/.config/robomaze, /etc/robomaze)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", defaults.LogLevel, "log level (debug, info, warn, error)")
	pf.Bool("version", false, "print version information and exit")

	// Pipeline overrides
	pf.Int("target-cells", raster.TargetCells, "desired grid cells along the shorter image side")
	pf.Int("min-cell-size", raster.MinCellSize, "smallest cell size in pixels")
	pf.Int("cell-size", raster.CellSize, "fixed cell size in pixels (0 = derive from target cells)")
	pf.Float64("wall-fraction", raster.WallFraction, "share of wall pixels above which a cell is a wall (0..1)")
	pf.String("connectivity", defaults.Pipeline.Search.Connectivity, "route moves: 4 (orthogonal) or 8 (with diagonals)")
	pf.Int("canvas-size", defaults.Pipeline.Rectify.CanvasSize, "side of the rectified canvas in pixels")
	pf.String("sampling", defaults.Pipeline.Rectify.Sampling, "rectification sampling: bilinear or nearest")
	pf.String("marker-space", defaults.Pipeline.Markers.Space, "detect markers in the rectified canvas or the source photo (rectified, source)")
	pf.Int("max-image-dim", defaults.Pipeline.MaxImageDim, "downscale photos whose longer side exceeds this (0 = never)")

	bindPersistentFlags()

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		setupLogging(cmd, globalConfig)
		return nil
	}
}

func bindPersistentFlags() {
	flagBindings := []struct {
		key  string
		flag string
	}{
		{"verbose", "verbose"},
		{"log_level", "log-level"},
		{"pipeline.grid.target_cells", "target-cells"},
		{"pipeline.grid.min_cell_size", "min-cell-size"},
		{"pipeline.grid.cell_size", "cell-size"},
		{"pipeline.grid.wall_fraction", "wall-fraction"},
		{"pipeline.search.connectivity", "connectivity"},
		{"pipeline.rectify.canvas_size", "canvas-size"},
		{"pipeline.rectify.sampling", "sampling"},
		{"pipeline.markers.space", "marker-space"},
		{"pipeline.max_image_dim", "max-image-dim"},
	}

	for _, binding := range flagBindings {
		if err := viper.BindPFlag(binding.key, rootCmd.PersistentFlags().Lookup(binding.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", binding.flag, err))
		}
	}
}

// setupLogging installs a JSON slog handler on the command's error stream so
// that stdout stays reserved for results.
func setupLogging(cmd *cobra.Command, cfg *config.Config) {
	var logLevel slog.Level
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			logLevel = slog.LevelDebug
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		default:
			logLevel = slog.LevelInfo
		}
	}

	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	configLoader = config.NewLoader()

	var err error
	globalConfig, err = configLoader.LoadWithFile(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	return nil
}

// GetConfig returns the global configuration.
func GetConfig() *config.Config {
	if globalConfig == nil {
		if err := initConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}
	return globalConfig
}

// GetConfigLoader returns the global configuration loader.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader
}

// newPipeline builds the analysis pipeline from the resolved configuration.
func newPipeline(cfg *config.Config) (*pipeline.Pipeline, error) {
	pc, err := cfg.ToPipelineConfig()
	if err != nil {
		return nil, err
	}
	return pipeline.New(pc)
}
