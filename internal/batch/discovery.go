// Package batch expands command-line arguments into the maze photos to
// analyse.
package batch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/robomaze/internal/utils"
)

// ErrNoImages is returned when the arguments name no photo.
var ErrNoImages = errors.New("no image files found")

// DiscoverOptions controls directory expansion.
type DiscoverOptions struct {
	Recursive bool
	// Include and Exclude are filepath.Match patterns applied to the base
	// name. Exclude wins.
	Include []string
	Exclude []string
}

// Discover returns the photos named by args. Files are kept as given unless
// excluded; directories contribute every supported image they contain, in
// lexical order, descending into subdirectories only when Recursive is set.
func Discover(args []string, opts DiscoverOptions) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			found, err := discoverInDirectory(arg, opts)
			if err != nil {
				return nil, err
			}
			files = append(files, found...)
		} else if !matchesAnyPattern(arg, opts.Exclude) {
			files = append(files, arg)
		}
	}

	if len(files) == 0 {
		return nil, ErrNoImages
	}
	return files, nil
}

func discoverInDirectory(dir string, opts DiscoverOptions) ([]string, error) {
	var files []string

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if !opts.Recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}

		if utils.IsSupportedImage(path) && shouldIncludeFile(path, opts.Include, opts.Exclude) {
			files = append(files, path)
		}
		return nil
	}

	if err := filepath.WalkDir(dir, walkFn); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	return files, nil
}

// shouldIncludeFile determines if a file should be included based on include/exclude patterns.
func shouldIncludeFile(path string, includePatterns, excludePatterns []string) bool {
	// Check exclude patterns first
	if matchesAnyPattern(path, excludePatterns) {
		return false
	}

	// If no include patterns, include all (that aren't excluded)
	if len(includePatterns) == 0 {
		return true
	}

	return matchesAnyPattern(path, includePatterns)
}

func matchesAnyPattern(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}
