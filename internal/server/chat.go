package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ymatsuda/machichat/internal/chat"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type       string `json:"type"`       // "ask"
	SessionID  string `json:"session_id"` // empty for new sessions
	Content    string `json:"content"`
	PropertyID string `json:"property_id,omitempty"`
	Template   string `json:"template,omitempty"`
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type      string        `json:"type"` // "response" or "error"
	SessionID string        `json:"session_id"`
	Content   string        `json:"content"`
	Details   []chat.Detail `json:"details,omitempty"`
	Intent    string        `json:"intent,omitempty"`
	Degraded  bool          `json:"degraded,omitempty"`
}

// wsConn serializes writes to one websocket connection; turns run off
// the read loop, so responses from different turns may race otherwise.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	// Chat turns outlive the HTTP middleware timeout but not the
	// connection: the context is cancelled when the read loop exits, so
	// a client disconnect abandons any in-flight turn.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	ws := &wsConn{conn: conn}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: websocket read: %v", err)
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendError(ws, "", "メッセージの形式が正しくありません。")
			continue
		}

		if req.Type != "ask" {
			s.sendError(ws, req.SessionID, "不明なメッセージ種別です: "+req.Type)
			continue
		}
		if req.Content == "" {
			s.sendError(ws, req.SessionID, "質問を入力してください。")
			continue
		}

		// Off the read loop so the disconnect is seen during a turn.
		// Turns sharing a session id are still serialized by the
		// pipeline's session gate.
		go s.handleAsk(ctx, ws, req)
	}
}

func (s *Server) handleAsk(ctx context.Context, ws *wsConn, req chatRequest) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	var prop *chat.Property
	if req.PropertyID != "" {
		record, err := s.properties.Get(ctx, req.PropertyID)
		if err != nil {
			s.sendError(ws, sessionID, "指定された物件が見つかりません。")
			return
		}
		prop = &chat.Property{ID: record.ID, Content: record.Content}
	}

	result, err := s.pipeline.Answer(ctx, chat.Request{
		SessionID: sessionID,
		Question:  req.Content,
		Property:  prop,
		Template:  req.Template,
	})
	if err != nil {
		if ctx.Err() != nil {
			// Client is gone; nobody is listening for the error.
			log.Printf("server: turn abandoned for session %s: %v", sessionID, err)
			return
		}
		log.Printf("server: turn failed for session %s: %v", sessionID, err)
		s.sendError(ws, sessionID, chat.UserMessage(err))
		return
	}

	s.sendResponse(ws, chatResponse{
		Type:      "response",
		SessionID: sessionID,
		Content:   result.Answer.Main,
		Details:   result.Answer.Details,
		Intent:    string(result.Intent),
		Degraded:  result.Degraded,
	})
}

func (s *Server) sendResponse(ws *wsConn, resp chatResponse) {
	if err := ws.writeJSON(resp); err != nil {
		log.Printf("server: websocket write: %v", err)
	}
}

func (s *Server) sendError(ws *wsConn, sessionID, message string) {
	resp := chatResponse{
		Type:      "error",
		SessionID: sessionID,
		Content:   message,
	}
	if err := ws.writeJSON(resp); err != nil {
		log.Printf("server: websocket write error: %v", err)
	}
}
