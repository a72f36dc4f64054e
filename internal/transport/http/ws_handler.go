package http

import (
	"log"
	"net/http"

	"classroom-quiz-service/internal/app"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WSHandler streams live results summaries to the quiz owner.
type WSHandler struct {
	service    *app.QuizService
	production bool
	upgrader   websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, production bool) *WSHandler {
	return &WSHandler{
		service:    service,
		production: production,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type string `json:"type"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS checks access before upgrading, so refusals are plain HTTP errors.
func (h *WSHandler) ServeWS(c *gin.Context) {
	actor := actorFrom(c)
	quizID := c.Param("id")

	updates, cancel, err := h.service.SubscribeResults(c.Request.Context(), actor, quizID)
	if err != nil {
		writeError(c, err, h.production)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	log.Printf("live results for quiz %s: %s connected", quizID, actor.UserID)

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case summary, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: "summary", Payload: summary}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	// the feed is read-only; reading only detects the client going away
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		select {
		case send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}:
		default:
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
	log.Printf("live results for quiz %s: %s disconnected", quizID, actor.UserID)
}
