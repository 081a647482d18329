// Package server exposes maze analysis and route planning over HTTP and
// WebSocket.
package server

import (
	"context"
	"image"
	"net/http"
	"time"

	"github.com/MeKo-Tech/robomaze/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// mazeAnalyzer is the part of the pipeline the server depends on.
type mazeAnalyzer interface {
	AnalyzeContext(ctx context.Context, img image.Image) (*pipeline.Session, error)
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline    mazeAnalyzer
	profiler    *pipeline.Profiler
	rateLimiter *RateLimiter
	corsOrigin  string
	maxUploadMB int64
	timeout     time.Duration
	started     time.Time
	stop        chan struct{}
}

// Config holds server configuration.
type Config struct {
	Host               string
	Port               int
	CORSOrigin         string
	MaxUploadMB        int64
	TimeoutSec         int
	RateLimitPerMinute int
	RateLimitPerHour   int
	PipelineConfig     pipeline.Config
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Commit    string            `json:"commit,omitempty"`
	Time      string            `json:"time"`
	UptimeSec int64             `json:"uptime_sec"`
	Memory    pipeline.MemStats `json:"memory"`
	Stats     map[string]any    `json:"stats,omitempty"`
}

// AnalyzeResponse is returned by POST /maze/analyze.
type AnalyzeResponse struct {
	Success  bool                     `json:"success"`
	Analysis *pipeline.AnalysisResult `json:"analysis,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

// SolveResponse is returned by POST /maze/solve. Route is set on failed
// searches too so clients can see why every candidate was rejected.
type SolveResponse struct {
	Success  bool                     `json:"success"`
	Route    *pipeline.RouteResult    `json:"route,omitempty"`
	Analysis *pipeline.AnalysisResult `json:"analysis,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewServer creates a server with a pipeline built from config.
func NewServer(config Config) (*Server, error) {
	pl, err := pipeline.New(config.PipelineConfig)
	if err != nil {
		return nil, err
	}

	s := &Server{
		pipeline:    pl,
		profiler:    pl.Profiler,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeout:     time.Duration(config.TimeoutSec) * time.Second,
		started:     time.Now(),
		stop:        make(chan struct{}),
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 20
	}
	if config.RateLimitPerMinute > 0 || config.RateLimitPerHour > 0 {
		s.rateLimiter = NewRateLimiter(config.RateLimitPerMinute, config.RateLimitPerHour)
		go s.cleanupLoop(10 * time.Minute)
	}
	return s, nil
}

func (s *Server) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.rateLimiter.Cleanup()
		case <-s.stop:
			return
		}
	}
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.stop != nil {
		select {
		case <-s.stop:
		default:
			close(s.stop)
		}
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/maze/analyze", s.corsMiddleware(s.rateLimitMiddleware(s.analyzeHandler)))
	mux.HandleFunc("/maze/solve", s.corsMiddleware(s.rateLimitMiddleware(s.solveHandler)))
	mux.HandleFunc("/ws/solve", s.solveWebSocketHandler)
}
