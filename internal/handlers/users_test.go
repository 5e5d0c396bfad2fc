package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blur-chat/internal/models"
	"blur-chat/internal/store"
	"blur-chat/internal/ws"
)

func setupUserRouter(conv *store.ConversationStore, presence *ws.PresenceRegistry, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})
	handler := NewUserHandler(conv, presence)
	r.GET("/api/users", handler.ListUsers)
	r.GET("/api/messages/:user_id1/:user_id2", handler.History)
	return r
}

type nopPusher struct{}

func (nopPusher) Push(event any) error { return nil }

func TestListUsersExcludesCallerAndFlagsOnline(t *testing.T) {
	conv := newTestConversationStore(t)
	ctx := context.Background()

	ann, err := conv.CreateUser(ctx, "Ann", "ann1", "ann@example.com", "hash")
	require.NoError(t, err)
	bo, err := conv.CreateUser(ctx, "Bo", "bo1", "bo@example.com", "hash")
	require.NoError(t, err)

	presence := ws.NewPresenceRegistry()
	presence.SetOnline(bo.ID, bo.Name, "c1", nopPusher{})

	router := setupUserRouter(conv, presence, ann.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Users []models.Contact `json:"users"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Users, 1)
	assert.Equal(t, bo.ID, resp.Users[0].ID)
	assert.True(t, resp.Users[0].IsOnline)
}

func TestListUsersHonorsExceptQuery(t *testing.T) {
	conv := newTestConversationStore(t)
	ctx := context.Background()

	ann, err := conv.CreateUser(ctx, "Ann", "ann1", "ann@example.com", "hash")
	require.NoError(t, err)
	bo, err := conv.CreateUser(ctx, "Bo", "bo1", "bo@example.com", "hash")
	require.NoError(t, err)

	router := setupUserRouter(conv, ws.NewPresenceRegistry(), ann.ID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users?except="+bo.ID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Users []models.Contact `json:"users"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Users, 1)
	assert.Equal(t, ann.ID, resp.Users[0].ID)
}

func TestHistoryReturnsSameChatEitherWay(t *testing.T) {
	conv := newTestConversationStore(t)
	ctx := context.Background()

	_, err := conv.AppendMessage(ctx, "a", "b", "hi")
	require.NoError(t, err)
	_, err = conv.AppendMessage(ctx, "b", "a", "hey")
	require.NoError(t, err)

	router := setupUserRouter(conv, ws.NewPresenceRegistry(), "a")

	forward := httptest.NewRecorder()
	router.ServeHTTP(forward, httptest.NewRequest(http.MethodGet, "/api/messages/a/b", nil))
	backward := httptest.NewRecorder()
	router.ServeHTTP(backward, httptest.NewRequest(http.MethodGet, "/api/messages/b/a", nil))

	require.Equal(t, http.StatusOK, forward.Code)
	require.Equal(t, http.StatusOK, backward.Code)
	assert.JSONEq(t, forward.Body.String(), backward.Body.String())

	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(forward.Body).Decode(&resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "hi", resp.Messages[0].Text)
}

func TestHistoryEmptyConversation(t *testing.T) {
	conv := newTestConversationStore(t)
	router := setupUserRouter(conv, ws.NewPresenceRegistry(), "a")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/messages/a/b", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.Messages)
}
