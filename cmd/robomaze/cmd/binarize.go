package cmd

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/robomaze/internal/detector"
	"github.com/MeKo-Tech/robomaze/internal/utils"
	"github.com/spf13/cobra"
)

var binarizeCmd = &cobra.Command{
	Use:   "binarize <image>",
	Short: "Write the Otsu-thresholded black and white version of a photo",
	Long: `Convert a photo to grayscale, pick a global threshold with Otsu's method
and save the resulting black and white image. Useful to check lighting
before running the full analysis.

Examples:
  robomaze binarize maze.jpg -o maze-bw.png`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			return errors.New("--output is required")
		}

		img, _, err := utils.LoadImage(args[0])
		if err != nil {
			return fmt.Errorf("failed to load image: %w", err)
		}

		mask, level, err := detector.Binarize(img)
		if err != nil {
			return fmt.Errorf("binarization failed: %w", err)
		}
		defer mask.Release()

		if err := utils.SavePNG(output, mask.Image()); err != nil {
			return fmt.Errorf("failed to save image: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "threshold %d\n", level)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(binarizeCmd)
	binarizeCmd.Flags().StringP("output", "o", "", "output PNG path")
}
