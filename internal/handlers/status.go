package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blur-chat/internal/store"
	"blur-chat/internal/ws"
)

// RegisterStatusRoute wires the root status document.
func RegisterStatusRoute(router *gin.Engine, conv *store.ConversationStore, presence *ws.PresenceRegistry) {
	router.GET("/", func(c *gin.Context) {
		users, messages := conv.Counts()
		c.JSON(http.StatusOK, gin.H{
			"message":  "Blur Chat Backend",
			"users":    users,
			"messages": messages,
			"online":   len(presence.OnlineIDs()),
		})
	})
}
