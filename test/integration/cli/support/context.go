package support

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/robomaze/internal/testutil"
)

// TestContext holds the per-scenario state: the last CLI run, the rendered
// maze photos and the in-process server.
type TestContext struct {
	LastCommand   string
	LastOutput    string
	LastStdout    string
	LastError     error
	LastExitCode  int
	LastStartTime time.Time
	LastDuration  time.Duration

	// WorkingDir is the module root; commands run there.
	WorkingDir string
	// TempDir holds everything a scenario writes and is removed on cleanup.
	TempDir string
	EnvVars []string

	photos map[string]string

	HTTPTestServer *HTTPTestServerWrapper

	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    map[string]string
}

// NewTestContext creates a scenario context rooted at the module directory.
func NewTestContext() (*TestContext, error) {
	root, err := testutil.GetProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to locate module root: %w", err)
	}

	tempDir, err := os.MkdirTemp("", "robomaze-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &TestContext{
		WorkingDir: root,
		TempDir:    tempDir,
		photos:     map[string]string{},
	}, nil
}

// AddPhoto registers a rendered photo under a scenario-local name.
func (testCtx *TestContext) AddPhoto(name, path string) {
	testCtx.photos[name] = path
}

// Photo returns the path of the photo registered as name.
func (testCtx *TestContext) Photo(name string) (string, bool) {
	path, ok := testCtx.photos[name]
	return path, ok
}

// PhotoPath returns where a photo called name is rendered.
func (testCtx *TestContext) PhotoPath(name string) string {
	return filepath.Join(testCtx.TempDir, name+".png")
}

// Cleanup stops the test server and removes the scenario directory.
func (testCtx *TestContext) Cleanup() error {
	if testCtx.HTTPTestServer != nil {
		testCtx.stopTestHTTPServer()
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err)
	}
	return nil
}

// AddEnvVar adds an environment variable for command execution.
func (testCtx *TestContext) AddEnvVar(name, value string) {
	testCtx.EnvVars = append(testCtx.EnvVars, name+"="+value)
}
