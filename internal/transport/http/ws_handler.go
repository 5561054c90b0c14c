package http

import (
	"log/slog"
	"net/http"

	"quitz-service/internal/app"
	"quitz-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler streams applied tallies of one question to a websocket client.
type WSHandler struct {
	questions *app.QuestionService
	upgrader  websocket.Upgrader
}

func NewWSHandler(questions *app.QuestionService) *WSHandler {
	return &WSHandler{
		questions: questions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS sends a "question" snapshot, then one "tally" message per answer
// applied to the question, until the client disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	question, updates, cancel, err := h.questions.Watch(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(outboundMessage[domain.Question]{Type: "question", Payload: question}); err != nil {
		return
	}

	// the reader only detects disconnects; clients send nothing
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case tally, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage[domain.Tally]{Type: "tally", Payload: tally}); err != nil {
				slog.Warn("ws write error", "error", err)
				return
			}
		case <-closed:
			return
		}
	}
}
