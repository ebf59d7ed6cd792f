package server

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// streamEvent is one websocket frame of a streamed chat turn.
type streamEvent struct {
	Type string `json:"type"` // "chunk", "done", "error"
	Text string `json:"text,omitempty"`
	Data any    `json:"data,omitempty"`
}

// handleChatStream upgrades to a websocket, reads one chat request, and
// streams the answer back as chunk events followed by a done event with the
// stored-turn metadata.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}
	defer conn.Close()

	var req chatRequest
	if err := conn.ReadJSON(&req); err != nil {
		_ = conn.WriteJSON(streamEvent{Type: "error", Text: "invalid request"})
		return
	}
	if req.Message == "" {
		_ = conn.WriteJSON(streamEvent{Type: "error", Text: "message is required"})
		return
	}

	result, err := s.chat.PostMessageStream(r.Context(), req.toInput(), func(chunk string) {
		_ = conn.WriteJSON(streamEvent{Type: "chunk", Text: chunk})
	})
	if err != nil {
		_ = conn.WriteJSON(streamEvent{Type: "error", Text: err.Error()})
		return
	}

	_ = conn.WriteJSON(streamEvent{Type: "done", Data: result})
}
