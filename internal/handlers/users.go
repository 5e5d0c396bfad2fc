package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blur-chat/internal/store"
	"blur-chat/internal/ws"
)

// UserHandler serves contact-list and history queries, both pure reads
// against the conversation store enriched with live presence flags.
type UserHandler struct {
	store    *store.ConversationStore
	presence *ws.PresenceRegistry
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(conv *store.ConversationStore, presence *ws.PresenceRegistry) *UserHandler {
	return &UserHandler{store: conv, presence: presence}
}

// ListUsers returns everyone except the caller, ordered for the contact
// list: most recent conversation first, then online users, then by name.
func (h *UserHandler) ListUsers(c *gin.Context) {
	exceptID := c.Query("except")
	if exceptID == "" {
		exceptID = c.GetString("userID")
	}

	contacts := h.store.ListUsersExcluding(exceptID, h.presence.IsOnline)
	c.JSON(http.StatusOK, gin.H{"users": contacts})
}

// History returns the full message sequence between two users, oldest
// first. The pair is unordered; either argument order yields the same chat.
func (h *UserHandler) History(c *gin.Context) {
	userID1 := c.Param("user_id1")
	userID2 := c.Param("user_id2")
	if userID1 == "" || userID2 == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user id"})
		return
	}

	messages := h.store.History(userID1, userID2)
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
