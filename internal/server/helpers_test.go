package server

import (
	"bytes"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MeKo-Tech/robomaze/internal/pipeline"
	"github.com/MeKo-Tech/robomaze/internal/testutil"
	"github.com/stretchr/testify/require"
)

// newTestServer builds a server around the default pipeline.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(Config{
		CORSOrigin:     "*",
		MaxUploadMB:    5,
		TimeoutSec:     30,
		PipelineConfig: pipeline.DefaultConfig(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// mazePNG renders layout as a tilted 640x520 photo and encodes it as PNG.
func mazePNG(t *testing.T, layout []string) []byte {
	t.Helper()
	sheet := testutil.DefaultMazeSheet()
	sheet.Layout = layout
	img, _, err := sheet.RenderPhoto(640, 520, testutil.TiltedQuad)
	require.NoError(t, err)
	return encodePNG(t, img)
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// noMarkerLayout is SimpleLayout with the markers painted over.
func noMarkerLayout() []string {
	layout := make([]string, len(testutil.SimpleLayout))
	for i, row := range testutil.SimpleLayout {
		layout[i] = strings.ReplaceAll(row, "G", " ")
	}
	return layout
}

// uploadRequest builds a multipart POST with the photo under "image" and
// the given form fields. A nil photo omits the file part.
func uploadRequest(t *testing.T, target string, photo []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if photo != nil {
		part, err := mw.CreateFormFile("image", "maze.png")
		require.NoError(t, err)
		_, err = part.Write(photo)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// serve runs req through the full route table.
func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

// routeBody mirrors pipeline.RouteResult with outcomes as text.
type routeBody struct {
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Cells      int    `json:"cells"`
	Encoded    string `json:"encoded"`
	Candidates []struct {
		MarkerIndex int    `json:"marker_index"`
		Outcome     string `json:"outcome"`
	} `json:"candidates"`
}

type solveBody struct {
	Success  bool                     `json:"success"`
	Route    *routeBody               `json:"route"`
	Analysis *pipeline.AnalysisResult `json:"analysis"`
	Error    string                   `json:"error"`
}
