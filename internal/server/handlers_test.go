package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/MeKo-Tech/robomaze/internal/pathfinder"
	"github.com/MeKo-Tech/robomaze/internal/pipeline"
	"github.com/MeKo-Tech/robomaze/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	s := newTestServer(t)
	assert.NotNil(t, s.pipeline)
	assert.NotNil(t, s.profiler)
	assert.Nil(t, s.rateLimiter)
	assert.Equal(t, int64(5), s.maxUploadMB)

	limited, err := NewServer(Config{RateLimitPerMinute: 3, PipelineConfig: pipeline.DefaultConfig()})
	require.NoError(t, err)
	defer func() { _ = limited.Close() }()
	assert.NotNil(t, limited.rateLimiter)
	assert.Equal(t, int64(20), limited.maxUploadMB)

	cfg := pipeline.DefaultConfig()
	cfg.Raster.TargetCells = 0
	_, err = NewServer(Config{PipelineConfig: cfg})
	require.Error(t, err)
}

func TestServer_Close(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.NoError(t, (&Server{}).Close())
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t)

	w := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, resp.Version)
	assert.NotEmpty(t, resp.Time)
	assert.Positive(t, resp.Memory.Goroutines)
	assert.Contains(t, resp.Stats, "images")

	w = serve(s, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))

	w := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "robomaze_http_requests_total")
}

func TestAnalyzeHandler(t *testing.T) {
	s := newTestServer(t)

	w := serve(s, uploadRequest(t, "/maze/analyze", mazePNG(t, testutil.SimpleLayout), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotNil(t, resp.Analysis)
	assert.True(t, resp.Analysis.Rectified)
	assert.Len(t, resp.Analysis.Markers, 2)
	assert.Equal(t, 200, resp.Analysis.Grid.Rows)
	assert.Equal(t, 5, resp.Analysis.Grid.CellSize)
	assert.Empty(t, resp.Analysis.Grid.Cells)
	assert.EqualValues(t, 1, s.profiler.Snapshot()["images"])

	w = serve(s, uploadRequest(t, "/maze/analyze", mazePNG(t, testutil.SimpleLayout), map[string]string{"cells": "1"}))
	require.Equal(t, http.StatusOK, w.Code)
	resp = AnalyzeResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Analysis.Grid.Cells, 200)
}

func TestAnalyzeHandler_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		req    *http.Request
		status int
		errSub string
	}{
		{
			name:   "method",
			req:    httptest.NewRequest(http.MethodGet, "/maze/analyze", nil),
			status: http.StatusMethodNotAllowed,
		},
		{
			name:   "not multipart",
			req:    httptest.NewRequest(http.MethodPost, "/maze/analyze", strings.NewReader("x")),
			status: http.StatusBadRequest,
			errSub: "Failed to parse form data",
		},
		{
			name:   "no file",
			req:    uploadRequest(t, "/maze/analyze", nil, map[string]string{"start": "1"}),
			status: http.StatusBadRequest,
			errSub: "No image file provided",
		},
		{
			name:   "not an image",
			req:    uploadRequest(t, "/maze/analyze", []byte("definitely not a png"), nil),
			status: http.StatusBadRequest,
			errSub: "Invalid image format",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(s, tt.req)
			assert.Equal(t, tt.status, w.Code)
			if tt.errSub == "" {
				return
			}
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Contains(t, resp.Error, tt.errSub)
		})
	}
}

func TestAnalyzeHandler_NoPipeline(t *testing.T) {
	s := &Server{maxUploadMB: 5}
	w := httptest.NewRecorder()
	s.analyzeHandler(w, uploadRequest(t, "/maze/analyze", mazePNG(t, testutil.SimpleLayout), nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSolveHandler_JSON(t *testing.T) {
	s := newTestServer(t)

	w := serve(s, uploadRequest(t, "/maze/solve", mazePNG(t, testutil.SimpleLayout), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp solveBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotNil(t, resp.Route)
	assert.Equal(t, 0, resp.Route.Start)
	assert.Equal(t, 1, resp.Route.End)
	require.NotNil(t, resp.Analysis)
	assert.Len(t, resp.Analysis.Markers, 2)

	path, err := pathfinder.DecodeRoute(resp.Route.Encoded)
	require.NoError(t, err)
	assert.Equal(t, resp.Route.Cells, path.Len())
	assert.Equal(t, resp.Analysis.Markers[0].Cell, path.Start())
	assert.Equal(t, resp.Analysis.Markers[1].Cell, path.End())
	require.Len(t, resp.Route.Candidates, 1)
	assert.Equal(t, "selected", resp.Route.Candidates[0].Outcome)

	// Starting from the second point reverses the route.
	w = serve(s, uploadRequest(t, "/maze/solve", mazePNG(t, testutil.SimpleLayout), map[string]string{"start": "2"}))
	require.Equal(t, http.StatusOK, w.Code)
	var back solveBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &back))
	assert.Equal(t, 1, back.Route.Start)
	assert.Equal(t, 0, back.Route.End)
	assert.Equal(t, resp.Route.Cells, back.Route.Cells)
}

func TestSolveHandler_Formats(t *testing.T) {
	s := newTestServer(t)
	photo := mazePNG(t, testutil.SimpleLayout)

	t.Run("text", func(t *testing.T) {
		w := serve(s, uploadRequest(t, "/maze/solve", photo, map[string]string{"format": "text"}))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(w.Body.String(), "Route from point 1 to point 2:"))
	})

	t.Run("csv", func(t *testing.T) {
		w := serve(s, uploadRequest(t, "/maze/solve", photo, map[string]string{"format": "csv"}))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(w.Body.String(), "step,row,col,x,y\n0,"))
	})

	t.Run("overlay", func(t *testing.T) {
		w := serve(s, uploadRequest(t, "/maze/solve", photo, map[string]string{"format": "overlay"}))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
		img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, 1000, img.Bounds().Dx())
		assert.Equal(t, 1000, img.Bounds().Dy())
	})
}

func TestSolveHandler_Errors(t *testing.T) {
	s := newTestServer(t)
	photo := mazePNG(t, testutil.SimpleLayout)

	tests := []struct {
		name   string
		photo  []byte
		fields map[string]string
		status int
		errSub string
	}{
		{"zero start", photo, map[string]string{"start": "0"}, http.StatusBadRequest, "invalid start point"},
		{"text start", photo, map[string]string{"start": "first"}, http.StatusBadRequest, "invalid start point"},
		{"start out of range", photo, map[string]string{"start": "3"}, http.StatusBadRequest, "invalid start marker"},
		{"format", photo, map[string]string{"format": "xml"}, http.StatusBadRequest, "unsupported format"},
		{"no markers", mazePNG(t, noMarkerLayout()), nil, http.StatusUnprocessableEntity, "need at least 2 markers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(s, uploadRequest(t, "/maze/solve", tt.photo, tt.fields))
			assert.Equal(t, tt.status, w.Code)
			var resp solveBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Contains(t, resp.Error, tt.errSub)
		})
	}
}

func TestSolveHandler_Unreachable(t *testing.T) {
	s := newTestServer(t)
	photo := mazePNG(t, testutil.ThreeMarkerLayout)

	w := serve(s, uploadRequest(t, "/maze/analyze", photo, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var analysis AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &analysis))
	require.Len(t, analysis.Analysis.Markers, 3)

	// The sealed marker is the rightmost one.
	sealed := 0
	for i, m := range analysis.Analysis.Markers {
		if m.Col > analysis.Analysis.Markers[sealed].Col {
			sealed = i
		}
	}

	w = serve(s, uploadRequest(t, "/maze/solve", photo, map[string]string{"start": strconv.Itoa(sealed + 1)}))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp solveBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, pathfinder.ErrNoReachableDestination.Error())
	require.NotNil(t, resp.Route)
	assert.Equal(t, -1, resp.Route.End)
	require.Len(t, resp.Route.Candidates, 2)
	for _, c := range resp.Route.Candidates {
		assert.Equal(t, "unreachable", c.Outcome)
	}
}

func TestParseStart(t *testing.T) {
	n, err := parseStart("")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = parseStart("4")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	for _, v := range []string{"0", "-2", "x", "1.5"} {
		_, err := parseStart(v)
		assert.Error(t, err, v)
	}
}

func TestSolveStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, solveStatus(pipeline.ErrInvalidStart))
	assert.Equal(t, http.StatusUnprocessableEntity, solveStatus(&pipeline.InsufficientMarkersError{Count: 1}))
	assert.Equal(t, http.StatusUnprocessableEntity, solveStatus(pathfinder.ErrNoReachableDestination))
	assert.Equal(t, http.StatusInternalServerError, solveStatus(assert.AnError))
}

func TestSolve_HonorsServerTimeout(t *testing.T) {
	s := newTestServer(t)
	sheet := testutil.DefaultMazeSheet()
	img, _, err := sheet.RenderPhoto(640, 520, testutil.TiltedQuad)
	require.NoError(t, err)

	session, status, err := s.analyze(context.Background(), img)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)

	route, err := s.solve(context.Background(), session, 1)
	require.NoError(t, err)
	require.NotNil(t, route)

	s.timeout = time.Nanosecond
	_, err = s.solve(context.Background(), session, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, http.StatusGatewayTimeout, solveStatus(err))
}
