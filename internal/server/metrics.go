package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "robomaze_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "robomaze_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Maze processing metrics
	mazeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "robomaze_requests_total",
			Help: "Total number of maze analysis and solve requests",
		},
		[]string{"type", "status"}, // type: analyze, solve, websocket
	)

	mazeStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "robomaze_stage_duration_seconds",
			Help:    "Duration of each analysis stage in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"stage"},
	)

	mazeMarkersDetected = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "robomaze_markers_detected",
			Help:    "Number of markers detected per photo",
			Buckets: []float64{0, 1, 2, 3, 4, 6, 8, 12},
		},
	)

	mazeRouteCells = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "robomaze_route_cells",
			Help:    "Length of planned routes in grid cells",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000},
		},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "robomaze_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"window"}, // window: minute, hour
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "robomaze_upload_size_bytes",
			Help:    "Size of uploaded photos in bytes",
			Buckets: []float64{10 * 1024, 100 * 1024, 512 * 1024, 1024 * 1024, 5 * 1024 * 1024, 20 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "robomaze_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "robomaze_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)
