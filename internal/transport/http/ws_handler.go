package http

import (
	"log"
	"net/http"

	"elearning-quiz-service/internal/app"
	"elearning-quiz-service/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WSHandler streams live admin views over websockets.
type WSHandler struct {
	admin    *app.AdminService
	auth     *Authenticator
	upgrader websocket.Upgrader
}

func NewWSHandler(admin *app.AdminService, auth *Authenticator) *WSHandler {
	return &WSHandler{
		admin: admin,
		auth:  auth,
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

type errorPayload struct {
	Message string `json:"message"`
}

// ServeAttempts streams every attempt on a quiz, newest first, whenever one is added.
func (h *WSHandler) ServeAttempts(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	updates, cancel, err := h.admin.SubscribeAttempts(c.Request.Context(), c.Param("quizId"))
	if err != nil {
		writeError(c, err)
		return
	}
	defer cancel()
	h.serve(c, func(conn *websocket.Conn) {
		pump(conn, "attempts", updates)
	})
}

// ServeQuizzes streams the quiz list of a course whenever it changes.
func (h *WSHandler) ServeQuizzes(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	updates, cancel, err := h.admin.SubscribeQuizzes(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		writeError(c, err)
		return
	}
	defer cancel()
	h.serve(c, func(conn *websocket.Conn) {
		pump(conn, "quizzes", updates)
	})
}

// authorize accepts the token from ?token= (browsers cannot set headers on
// websocket upgrades) or the Authorization header, and requires the admin role.
func (h *WSHandler) authorize(c *gin.Context) bool {
	raw := c.Query("token")
	if raw == "" {
		raw, _ = bearerToken(c.GetHeader("Authorization"))
	}
	if raw == "" {
		writeError(c, domain.ErrUnauthenticated)
		return false
	}
	if !h.auth.authenticate(c, raw) {
		return false
	}
	if c.GetString(ctxUserRole) != RoleAdmin {
		writeError(c, domain.ErrForbidden)
		return false
	}
	return true
}

func (h *WSHandler) serve(c *gin.Context, run func(conn *websocket.Conn)) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	run(conn)
}

// pump forwards snapshots until the client goes away. A single writer
// goroutine owns the connection's write side.
func pump[T any](conn *websocket.Conn, msgType string, updates <-chan T) {
	send := make(chan outboundMessage[any], 16)
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
			case update, ok := <-updates:
				if !ok {
					select {
					case send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "feed closed"}}:
					case <-closeSignals:
					}
					return
				}
				select {
				case send <- outboundMessage[any]{Type: msgType, Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	// The feed is read-only; reading only detects the client closing.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
