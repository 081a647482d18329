package pipeline

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// recordingProgress remembers every event it receives.
type recordingProgress struct {
	mu       sync.Mutex
	total    int
	progress []int
	errs     []int
	done     bool
}

func (r *recordingProgress) OnStart(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = total
}

func (r *recordingProgress) OnProgress(current, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, current)
}

func (r *recordingProgress) OnComplete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = true
}

func (r *recordingProgress) OnError(index int, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, index)
}

func TestConsoleProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	cb := NewConsoleProgressCallback(&buf, "maze: ").WithWidth(10)
	cb.OnStart(4)
	cb.OnProgress(2, 4)
	cb.OnProgress(4, 4)
	cb.OnError(3, errors.New("boom"))
	cb.OnComplete()

	out := buf.String()
	assert.Contains(t, out, "maze: analysing 4 photos")
	assert.Contains(t, out, "[#####.....] 2/4")
	assert.Contains(t, out, "[##########] 4/4")
	assert.Contains(t, out, "photo 3 failed: boom")
	assert.Contains(t, out, "maze: done in")
}

func TestConsoleProgressThrottles(t *testing.T) {
	var buf bytes.Buffer
	cb := NewConsoleProgressCallback(&buf, "")
	cb.OnStart(100)
	cb.OnProgress(1, 100)
	cb.OnProgress(2, 100)
	assert.Equal(t, 1, strings.Count(buf.String(), "\r"), "the second update falls inside the interval")
	cb.OnProgress(100, 100)
	assert.Equal(t, 2, strings.Count(buf.String(), "\r"), "the final update is always drawn")
}

func TestLogProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	cb := NewLogProgressCallback(logger, slog.LevelInfo).WithInterval(2)
	cb.OnStart(3)
	cb.OnProgress(1, 3)
	cb.OnProgress(2, 3)
	cb.OnProgress(3, 3)
	cb.OnError(1, errors.New("bad photo"))
	cb.OnComplete()

	out := buf.String()
	assert.Contains(t, out, "batch analysis started")
	assert.Equal(t, 2, strings.Count(out, "batch analysis progress"))
	assert.Contains(t, out, "bad photo")
	assert.Contains(t, out, "batch analysis completed")
}

func TestMultiProgressCallback(t *testing.T) {
	a, b := &recordingProgress{}, &recordingProgress{}
	multi := MultiProgressCallback{a, b, NoOpProgressCallback{}}
	multi.OnStart(2)
	multi.OnProgress(1, 2)
	multi.OnError(0, errors.New("x"))
	multi.OnComplete()
	for _, r := range []*recordingProgress{a, b} {
		assert.Equal(t, 2, r.total)
		assert.Equal(t, []int{1}, r.progress)
		assert.Equal(t, []int{0}, r.errs)
		assert.True(t, r.done)
	}
}
