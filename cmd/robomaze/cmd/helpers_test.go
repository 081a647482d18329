package cmd

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/MeKo-Tech/robomaze/internal/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag of c and its children to its default so
// that state does not leak between executions of the shared rootCmd.
func resetFlags(c *cobra.Command) {
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			if !f.Changed {
				return
			}
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
			} else {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
	}
	reset(c.PersistentFlags())
	reset(c.Flags())
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// executeCommand runs rootCmd with args and returns what it wrote to
// stdout and stderr.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return executeCommandWithInput(t, nil, args...)
}

func executeCommandWithInput(t *testing.T, in io.Reader, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() {
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	if in != nil {
		rootCmd.SetIn(in)
	}
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// savePhoto renders layout as a tilted photo in a temp dir.
func savePhoto(t *testing.T, name string, layout []string) string {
	t.Helper()
	sheet := testutil.DefaultMazeSheet()
	sheet.Layout = layout
	return testutil.SaveMazePhoto(t, t.TempDir(), name, sheet, 640, 520, testutil.TiltedQuad)
}

func noMarkerLayout() []string {
	out := make([]string, len(testutil.SimpleLayout))
	for i, row := range testutil.SimpleLayout {
		out[i] = strings.ReplaceAll(row, "G", " ")
	}
	return out
}
