package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"blur-chat/internal/auth"
	"blur-chat/internal/store"
)

// AuthHandler serves signup and login.
type AuthHandler struct {
	store  *store.ConversationStore
	tokens *auth.TokenManager
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(conv *store.ConversationStore, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{store: conv, tokens: tokens}
}

// Signup registers a new account.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user"})
		return
	}

	user, err := h.store.CreateUser(c.Request.Context(), req.Name, req.Username, req.Email, hash)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			c.JSON(http.StatusConflict, gin.H{"error": "user already exists with this email or username"})
			return
		}
		log.Printf("create user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user"})
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue session"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "user": user.Public(), "token": token})
}

// Login authenticates an existing account. Any mismatch yields the same
// generic response, so callers cannot probe which accounts exist.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, found := h.store.FindByEmail(req.Email)
	if !found || !auth.CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	if err := h.store.SetLastSeen(c.Request.Context(), user.ID, "Online"); err != nil {
		log.Printf("update last seen: %v", err)
	} else {
		user.LastSeen = "Online"
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user.Public(), "token": token})
}
