package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/robomaze/internal/pipeline"
	"github.com/MeKo-Tech/robomaze/internal/utils"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocket message types and statuses.
const (
	wsTypeSolve   = "solve"
	wsTypeAnalyze = "analyze"

	wsStatusProcessing = "processing"
	wsStatusAnalyzed   = "analyzed"
	wsStatusCompleted  = "completed"
	wsStatusError      = "error"
)

// WebSocketSolveRequest is one client request. Image holds the encoded
// photo (base64 in JSON); Start is the 1-based point number and defaults
// to 1.
type WebSocketSolveRequest struct {
	Type  string `json:"type"` // "solve" or "analyze"
	Image []byte `json:"image"`
	Start int    `json:"start,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketResponse is one server message. A solve request produces
// processing, analyzed and then completed or error.
type WebSocketResponse struct {
	Type      string  `json:"type"`
	Status    string  `json:"status"`
	Progress  float64 `json:"progress,omitempty"`
	Result    any     `json:"result,omitempty"`
	Error     string  `json:"error,omitempty"`
	ErrorType string  `json:"error_type,omitempty"`
	RequestID string  `json:"request_id,omitempty"`
}

// solveWebSocketHandler handles WebSocket connections for interactive
// solving.
func (s *Server) solveWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(r.Context(), conn)
}

// handleWebSocketConnection reads requests until the client goes away.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, conn, data)
		}
	}
}

// handleWebSocketMessage processes one request and writes every reply to
// conn.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, data []byte) {
	var req WebSocketSolveRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}
	if req.Type != wsTypeSolve && req.Type != wsTypeAnalyze {
		s.sendWebSocketError(conn, "", "invalid_request", "Unsupported request type: "+req.Type)
		return
	}
	if len(req.Image) == 0 {
		s.sendWebSocketError(conn, "", "invalid_request", "No image data provided")
		return
	}
	if req.Start == 0 {
		req.Start = 1
	}
	if req.Start < 0 {
		s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("invalid start point %d", req.Start))
		return
	}

	requestID := uuid.NewString()
	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      req.Type,
		Status:    wsStatusProcessing,
		RequestID: requestID,
	})

	img, _, err := utils.DecodeImage(bytes.NewReader(req.Image))
	if err != nil {
		mazeRequestsTotal.WithLabelValues("websocket", "error").Inc()
		s.sendWebSocketError(conn, requestID, "invalid_request", "Invalid image format")
		return
	}

	session, _, err := s.analyze(ctx, img)
	if err != nil {
		mazeRequestsTotal.WithLabelValues("websocket", "error").Inc()
		s.sendWebSocketError(conn, requestID, "processing_error", err.Error())
		return
	}
	analysis, err := pipeline.NewAnalysisResult(session, false)
	if err != nil {
		mazeRequestsTotal.WithLabelValues("websocket", "error").Inc()
		s.sendWebSocketError(conn, requestID, "processing_error", err.Error())
		return
	}

	if req.Type == wsTypeAnalyze {
		mazeRequestsTotal.WithLabelValues("websocket", "success").Inc()
		s.sendWebSocketResponse(conn, WebSocketResponse{
			Type:      req.Type,
			Status:    wsStatusCompleted,
			Progress:  1.0,
			Result:    analysis,
			RequestID: requestID,
		})
		return
	}

	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      req.Type,
		Status:    wsStatusAnalyzed,
		Progress:  0.5,
		Result:    analysis,
		RequestID: requestID,
	})

	route, err := s.solve(ctx, session, req.Start)
	if err != nil {
		mazeRequestsTotal.WithLabelValues("websocket", "error").Inc()
		resp := WebSocketResponse{
			Type:      req.Type,
			Status:    wsStatusError,
			Error:     err.Error(),
			ErrorType: wsErrorType(err),
			RequestID: requestID,
		}
		if route != nil {
			resp.Result, _ = pipeline.NewRouteResult(route)
		}
		s.sendWebSocketResponse(conn, resp)
		return
	}

	res, err := pipeline.NewRouteResult(route)
	if err != nil {
		s.sendWebSocketError(conn, requestID, "processing_error", err.Error())
		return
	}
	mazeRequestsTotal.WithLabelValues("websocket", "success").Inc()
	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      req.Type,
		Status:    wsStatusCompleted,
		Progress:  1.0,
		Result:    res,
		RequestID: requestID,
	})
}

func wsErrorType(err error) string {
	if errors.Is(err, pipeline.ErrInvalidStart) {
		return "invalid_request"
	}
	return "no_route"
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      "error",
		Status:    wsStatusError,
		Error:     message,
		ErrorType: errorType,
		RequestID: requestID,
	})
}
