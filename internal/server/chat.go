package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type    string `json:"type"` // "ask"
	Content string `json:"content"`
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type    string          `json:"type"` // "response" or "error"
	Content string          `json:"content"`
	Sources []sourcePayload `json:"sources,omitempty"`
}

// handleWebSocket answers one question per message. Answers are sent
// complete; there is no token streaming.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("component", "server").Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("component", "server").Msg("websocket read")
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendError(conn, "invalid message format")
			continue
		}

		if strings.TrimSpace(req.Content) == "" {
			s.sendError(conn, "content is required")
			continue
		}

		switch req.Type {
		case "ask":
			s.handleAskMessage(conn, r, req)
		default:
			s.sendError(conn, "unknown message type: "+req.Type)
		}
	}
}

func (s *Server) handleAskMessage(conn *websocket.Conn, r *http.Request, req chatRequest) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.QueryTimeout)
	defer cancel()

	ans, err := s.kb.Query(ctx, req.Content)
	if err != nil {
		s.sendError(conn, err.Error())
		return
	}
	s.sendResponse(conn, chatResponse{
		Type:    "response",
		Content: ans.Text,
		Sources: sourcesPayload(ans.Sources),
	})
}

func (s *Server) sendResponse(conn *websocket.Conn, resp chatResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		log.Warn().Err(err).Str("component", "server").Msg("websocket write")
	}
}

func (s *Server) sendError(conn *websocket.Conn, message string) {
	resp := chatResponse{
		Type:    "error",
		Content: message,
	}
	if err := conn.WriteJSON(resp); err != nil {
		log.Warn().Err(err).Str("component", "server").Msg("websocket write error")
	}
}
