package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/robomaze/internal/pathfinder"
	"github.com/MeKo-Tech/robomaze/internal/pipeline"
	"github.com/MeKo-Tech/robomaze/internal/utils"
	"github.com/MeKo-Tech/robomaze/internal/version"
)

const (
	formatJSON    = "json"
	formatText    = "text"
	formatCSV     = "csv"
	formatOverlay = "overlay"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	build := version.Current()
	response := HealthResponse{
		Status:  "healthy",
		Version: build.Version,
		Commit:  build.Commit,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Memory:  pipeline.GetMemStats(),
	}
	if !s.started.IsZero() {
		response.UptimeSec = int64(time.Since(s.started).Seconds())
	}
	if s.profiler != nil {
		response.Stats = s.profiler.Snapshot()
	}

	s.writeJSON(w, http.StatusOK, response)
}

// analyzeHandler runs the analysis stages on an uploaded photo and returns
// the grid and markers.
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	img, err := s.parseImageRequest(w, r)
	if err != nil {
		mazeRequestsTotal.WithLabelValues("analyze", "error").Inc()
		return // error already written
	}

	session, status, err := s.analyze(r.Context(), img)
	if err != nil {
		mazeRequestsTotal.WithLabelValues("analyze", "error").Inc()
		s.writeErrorResponse(w, err.Error(), status)
		return
	}

	res, err := pipeline.NewAnalysisResult(session, r.FormValue("cells") == "1")
	if err != nil {
		mazeRequestsTotal.WithLabelValues("analyze", "error").Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	mazeRequestsTotal.WithLabelValues("analyze", "success").Inc()
	s.writeJSON(w, http.StatusOK, AnalyzeResponse{Success: true, Analysis: res})
}

// solveHandler analyses an uploaded photo and plans a route from the
// requested point. The start form value is the 1-based point number shown
// to users; it defaults to 1.
func (s *Server) solveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	img, err := s.parseImageRequest(w, r)
	if err != nil {
		mazeRequestsTotal.WithLabelValues("solve", "error").Inc()
		return
	}

	start, err := parseStart(r.FormValue("start"))
	if err != nil {
		mazeRequestsTotal.WithLabelValues("solve", "error").Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	format := r.FormValue("format")
	if format == "" {
		format = formatJSON
	}
	switch format {
	case formatJSON, formatText, formatCSV, formatOverlay:
	default:
		mazeRequestsTotal.WithLabelValues("solve", "error").Inc()
		s.writeErrorResponse(w, "unsupported format: "+format, http.StatusBadRequest)
		return
	}

	session, status, err := s.analyze(r.Context(), img)
	if err != nil {
		mazeRequestsTotal.WithLabelValues("solve", "error").Inc()
		s.writeErrorResponse(w, err.Error(), status)
		return
	}

	route, err := s.solve(r.Context(), session, start)
	if err != nil {
		mazeRequestsTotal.WithLabelValues("solve", "error").Inc()
		resp := SolveResponse{Error: err.Error()}
		if route != nil {
			resp.Route, _ = pipeline.NewRouteResult(route)
		}
		s.writeJSON(w, solveStatus(err), resp)
		return
	}
	mazeRequestsTotal.WithLabelValues("solve", "success").Inc()
	s.writeRouteResponse(w, format, session, route)
}

// analyze runs the pipeline under the server timeout and returns the HTTP
// status matching any failure.
func (s *Server) analyze(ctx context.Context, img image.Image) (*pipeline.Session, int, error) {
	if s.pipeline == nil {
		return nil, http.StatusServiceUnavailable, pipeline.ErrNotInitialized
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	session, err := s.pipeline.AnalyzeContext(ctx, img)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, http.StatusGatewayTimeout, fmt.Errorf("analysis timed out: %w", err)
		case errors.Is(err, utils.ErrEmptyImage):
			return nil, http.StatusBadRequest, err
		default:
			return nil, http.StatusInternalServerError, fmt.Errorf("analysis failed: %w", err)
		}
	}

	for _, t := range session.Timings {
		mazeStageDuration.WithLabelValues(t.Stage).Observe(t.Duration.Seconds())
	}
	mazeMarkersDetected.Observe(float64(len(session.Markers)))
	return session, http.StatusOK, nil
}

// solve converts the 1-based start to a marker index and plans the route
// under the server timeout.
func (s *Server) solve(ctx context.Context, session *pipeline.Session, start int) (*pipeline.Route, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	route, err := session.Solve(ctx, start-1)
	if err == nil {
		mazeRouteCells.Observe(float64(len(route.Path)))
	}
	return route, err
}

func solveStatus(err error) int {
	var insufficient *pipeline.InsufficientMarkersError
	switch {
	case errors.Is(err, pipeline.ErrInvalidStart):
		return http.StatusBadRequest
	case errors.As(err, &insufficient), errors.Is(err, pathfinder.ErrNoReachableDestination):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func parseStart(v string) (int, error) {
	if v == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid start point %q (must be a positive point number)", v)
	}
	return n, nil
}

func (s *Server) parseImageRequest(w http.ResponseWriter, r *http.Request) (image.Image, error) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return nil, err
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return nil, err
	}
	defer func() { _ = file.Close() }()

	uploadSizeBytes.Observe(float64(header.Size))

	img, _, err := utils.DecodeImage(file)
	if err != nil {
		s.writeErrorResponse(w, "Invalid image format", http.StatusBadRequest)
		return nil, err
	}
	return img, nil
}

func (s *Server) writeRouteResponse(w http.ResponseWriter, format string, session *pipeline.Session, route *pipeline.Route) {
	switch format {
	case formatText:
		text, err := pipeline.ToPlainTextRoute(route)
		if err != nil {
			http.Error(w, fmt.Sprintf("formatting failed: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(text))
	case formatCSV:
		text, err := pipeline.ToCSVRoute(route, session.Grid)
		if err != nil {
			http.Error(w, fmt.Sprintf("formatting failed: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(text))
	case formatOverlay:
		w.Header().Set("Content-Type", "image/png")
		if err := png.Encode(w, pipeline.RenderRoute(session, route)); err != nil {
			slog.Error("Failed to encode overlay", "error", err)
		}
	default:
		res, err := pipeline.NewRouteResult(route)
		if err != nil {
			s.writeErrorResponse(w, err.Error(), http.StatusInternalServerError)
			return
		}
		analysis, err := pipeline.NewAnalysisResult(session, false)
		if err != nil {
			s.writeErrorResponse(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, http.StatusOK, SolveResponse{Success: true, Route: res, Analysis: analysis})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{Success: false, Error: message})
}
