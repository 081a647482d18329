package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_CORSMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		corsOrigin     string
		method         string
		shouldCallNext bool
	}{
		{name: "GET request", corsOrigin: "*", method: http.MethodGet, shouldCallNext: true},
		{name: "POST with specific origin", corsOrigin: "https://example.com", method: http.MethodPost, shouldCallNext: true},
		{name: "OPTIONS preflight", corsOrigin: "*", method: http.MethodOptions, shouldCallNext: false},
		{name: "empty origin", corsOrigin: "", method: http.MethodGet, shouldCallNext: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := &Server{corsOrigin: tt.corsOrigin}

			nextCalled := false
			corsHandler := server.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				w.WriteHeader(http.StatusOK)
			})

			w := httptest.NewRecorder()
			corsHandler(w, httptest.NewRequest(tt.method, "/test", nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.corsOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
			assert.Equal(t, "Content-Type, Authorization, X-Request-ID", w.Header().Get("Access-Control-Allow-Headers"))
			assert.Equal(t, tt.shouldCallNext, nextCalled)
		})
	}
}

func TestServer_CORSMiddleware_RequestID(t *testing.T) {
	server := &Server{corsOrigin: "*"}
	var seen string
	handler := server.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(RequestIDHeader)
	})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	id := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, seen)

	// A caller-supplied ID is echoed back.
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "robot-7")
	w = httptest.NewRecorder()
	handler(w, req)
	assert.Equal(t, "robot-7", w.Header().Get(RequestIDHeader))
}

func TestServer_CORSMiddleware_ErrorInNext(t *testing.T) {
	server := &Server{corsOrigin: "*"}
	handler := server.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodPost, "/test", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_RateLimitMiddleware(t *testing.T) {
	calls := 0
	next := func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}

	t.Run("disabled", func(t *testing.T) {
		server := &Server{}
		handler := server.rateLimitMiddleware(next)
		for range 5 {
			w := httptest.NewRecorder()
			handler(w, httptest.NewRequest(http.MethodPost, "/maze/solve", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})

	t.Run("per minute", func(t *testing.T) {
		calls = 0
		server := &Server{rateLimiter: NewRateLimiter(2, 0)}
		handler := server.rateLimitMiddleware(next)

		codes := make([]int, 0, 3)
		var last *httptest.ResponseRecorder
		for range 3 {
			last = httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/maze/solve", nil)
			req.RemoteAddr = "10.0.0.5:4242"
			handler(last, req)
			codes = append(codes, last.Code)
		}
		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
		assert.Equal(t, 2, calls)
		assert.Equal(t, "minute", last.Header().Get("X-RateLimit-Window"))
		assert.Equal(t, "2", last.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, last.Header().Get("Retry-After"))

		var body map[string]any
		require.NoError(t, json.Unmarshal(last.Body.Bytes(), &body))
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "minute", body["window"])

		// Other clients keep their own budget.
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/maze/solve", nil)
		req.RemoteAddr = "10.0.0.6:4242"
		handler(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestServer_HandleRateLimitError_Unknown(t *testing.T) {
	server := &Server{}
	w := httptest.NewRecorder()
	server.handleRateLimitError(w, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "192.168.1.10:5555", "192.168.1.10"},
		{"remote without port", nil, "192.168.1.10", "192.168.1.10"},
		{"forwarded list", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "127.0.0.1:1", "1.2.3.4"},
		{"forwarded single", map[string]string{"X-Forwarded-For": " 5.6.7.8 "}, "127.0.0.1:1", "5.6.7.8"},
		{"real ip", map[string]string{"X-Real-IP": "9.9.9.9"}, "127.0.0.1:1", "9.9.9.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}

func BenchmarkServer_CORSMiddleware(b *testing.B) {
	server := &Server{corsOrigin: "*"}
	handler := server.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	b.ResetTimer()
	for range b.N {
		handler(httptest.NewRecorder(), req)
	}
}
