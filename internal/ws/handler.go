package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"blur-chat/internal/auth"
	"blur-chat/internal/models"
	"blur-chat/internal/observability"
)

// Handler upgrades websocket connections and dispatches inbound events to
// the lifecycle manager and message router.
type Handler struct {
	lifecycle *LifecycleManager
	router    *MessageRouter
	tokens    *auth.TokenManager
}

// NewHandler constructs a Handler.
func NewHandler(lifecycle *LifecycleManager, router *MessageRouter, tokens *auth.TokenManager) *Handler {
	return &Handler{lifecycle: lifecycle, router: router, tokens: tokens}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates the handshake, upgrades the connection and runs the
// read loop until the peer goes away.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("blur-chat/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		if q := c.Query("token"); q != "" {
			token = "Bearer " + q
		}
	}

	userID, err := h.validateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	conn := NewConn(ws)

	observability.IncWSActive()

	go h.readLoop(conn, userID)
}

func (h *Handler) readLoop(conn *Conn, userID string) {
	// Disconnect handling is driven by the read loop ending, whatever the
	// reason. The lifecycle manager treats never-joined handles as no-ops.
	ctx := context.Background()
	defer func() {
		h.lifecycle.Disconnect(ctx, conn.ID())
		observability.DecWSActive()
		conn.Close()
	}()

	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("websocket read error: %v", err)
			}
			return
		}

		var event models.InboundEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			h.pushError(conn, "malformed event")
			continue
		}
		h.dispatch(ctx, conn, userID, event)
	}
}

func (h *Handler) dispatch(ctx context.Context, conn *Conn, userID string, event models.InboundEvent) {
	observability.IncWSEvent(event.Type)

	switch event.Type {
	case models.EventJoin:
		var payload models.JoinPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			h.pushError(conn, "malformed join payload")
			return
		}
		// The token decides who this connection is; the profile only
		// supplies display data.
		if payload.ID == "" {
			payload.ID = userID
		}
		if payload.ID != userID {
			h.pushError(conn, "join identity does not match session")
			return
		}
		h.lifecycle.Join(ctx, conn.ID(), conn, payload)

	case models.EventSendMessage:
		var payload models.SendMessagePayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil || payload.Text == "" || payload.ReceiverID == "" {
			h.pushError(conn, "malformed message payload")
			return
		}
		if payload.SenderID == "" {
			payload.SenderID = userID
		}
		h.router.Send(ctx, conn, payload)

	case models.EventTypingStart:
		var payload models.TypingPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			h.pushError(conn, "malformed typing payload")
			return
		}
		h.router.TypingStart(payload.UserID, payload.ContactID, payload.UserName)

	case models.EventTypingStop:
		var payload models.TypingPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			h.pushError(conn, "malformed typing payload")
			return
		}
		h.router.TypingStop(payload.UserID, payload.ContactID)

	case models.EventMarkRead:
		var payload models.MarkReadPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			h.pushError(conn, "malformed mark read payload")
			return
		}
		h.router.MarkMessagesRead(ctx, payload.UserID, payload.ContactID)

	case models.EventPing:
		var data any
		_ = json.Unmarshal(event.Payload, &data)
		if err := conn.Push(models.OutboundEvent{Type: models.EventPong, Payload: map[string]any{
			"message": "Pong from server!",
			"data":    data,
		}}); err != nil {
			log.Printf("websocket write error: %v", err)
		}

	default:
		h.pushError(conn, fmt.Sprintf("unknown event type %q", event.Type))
	}
}

func (h *Handler) pushError(conn *Conn, message string) {
	if err := conn.Push(models.OutboundEvent{Type: models.EventError, Payload: models.ErrorPayload{Message: message}}); err != nil {
		log.Printf("websocket write error: %v", err)
	}
}

func (h *Handler) validateToken(header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return h.tokens.Validate(parts[1])
	}
	return "", fmt.Errorf("invalid token")
}
