package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"
)

// ParallelConfig holds configuration for batch analysis.
type ParallelConfig struct {
	MaxWorkers       int                           // Number of parallel workers (0 = runtime.NumCPU())
	ProgressCallback ProgressCallback              // Optional progress reporting
	ErrorHandler     func(int, image.Image, error) // Optional per-photo error handler
}

// DefaultParallelConfig returns defaults for batch analysis.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

type analyzeJob struct {
	index int
	image image.Image
}

type analyzeResult struct {
	index   int
	session *Session
	err     error
}

// AnalyzeImagesParallel analyses photos with a worker pool. Sessions are
// returned in input order; a failed photo leaves a nil entry and the first
// failure (by index) is returned alongside the partial results.
func (p *Pipeline) AnalyzeImagesParallel(ctx context.Context, images []image.Image, cfg ParallelConfig) ([]*Session, error) {
	if len(images) == 0 {
		return nil, errors.New("no images provided")
	}
	if p == nil || p.Rasterizer == nil {
		return nil, ErrNotInitialized
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	workers := min(cfg.MaxWorkers, len(images))

	if cfg.ProgressCallback != nil {
		cfg.ProgressCallback.OnStart(len(images))
		defer cfg.ProgressCallback.OnComplete()
	}

	jobs := make(chan analyzeJob, len(images))
	results := make(chan analyzeResult, len(images))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go p.analyzeWorker(ctx, jobs, results, &wg)
	}

	go func() {
		defer close(jobs)
		for i, img := range images {
			select {
			case jobs <- analyzeJob{index: i, image: img}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	sessions := make([]*Session, len(images))
	errs := make([]error, len(images))
	done := 0
	for r := range results {
		sessions[r.index] = r.session
		errs[r.index] = r.err
		done++
		if cfg.ProgressCallback != nil {
			if r.err != nil {
				cfg.ProgressCallback.OnError(r.index, r.err)
			}
			cfg.ProgressCallback.OnProgress(done, len(images))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var first error
	for i, err := range errs {
		if err == nil {
			continue
		}
		sessions[i] = nil
		if first == nil {
			first = fmt.Errorf("image %d: %w", i, err)
		}
		if cfg.ErrorHandler != nil {
			cfg.ErrorHandler(i, images[i], err)
		}
	}
	return sessions, first
}

func (p *Pipeline) analyzeWorker(ctx context.Context, jobs <-chan analyzeJob, results chan<- analyzeResult, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			s, err := p.AnalyzeContext(ctx, job.image)
			select {
			case results <- analyzeResult{index: job.index, session: s, err: err}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// BatchStats summarizes a batch run.
type BatchStats struct {
	TotalImages      int           `json:"total_images"`
	AnalyzedImages   int           `json:"analyzed_images"`
	FailedImages     int           `json:"failed_images"`
	WorkerCount      int           `json:"worker_count"`
	TotalDuration    time.Duration `json:"total_duration_ns"`
	AveragePerImage  time.Duration `json:"average_per_image_ns"`
	ThroughputPerSec float64       `json:"throughput_per_sec"`
}

// CalculateBatchStats derives throughput figures from a batch result.
func CalculateBatchStats(sessions []*Session, duration time.Duration, workers int) BatchStats {
	st := BatchStats{TotalImages: len(sessions), WorkerCount: workers, TotalDuration: duration}
	for _, s := range sessions {
		if s != nil {
			st.AnalyzedImages++
		} else {
			st.FailedImages++
		}
	}
	if st.AnalyzedImages > 0 && duration > 0 {
		st.AveragePerImage = duration / time.Duration(st.AnalyzedImages)
		st.ThroughputPerSec = float64(st.AnalyzedImages) / duration.Seconds()
	}
	return st
}
