package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anonchat/api/middleware"
	"anonchat/db"
	"anonchat/logging"
	"anonchat/models"
	"anonchat/services"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logging.Init("error")
	if err := db.ConnectTestDB(); err != nil {
		panic("failed to init test database: " + err.Error())
	}
	os.Exit(m.Run())
}

// testOnline - OnlineProvider с фиксированным множеством
type testOnline struct {
	ids []int64
}

func (s *testOnline) OnlineUserIDs(ctx context.Context) ([]int64, error) {
	return s.ids, nil
}

func (s *testOnline) IsOnline(ctx context.Context, userID int64) (bool, error) {
	for _, id := range s.ids {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func newTestRouter(online ...int64) *gin.Engine {
	users := services.NewUserService()
	blocks := services.NewBlockService()
	chat := services.NewChatService(blocks, nil)
	match := services.NewMatchService(&testOnline{ids: online}, services.NewRateLimitService())

	router := gin.New()
	public := router.Group("/api/v1/")
	{
		auth := NewAuthHandlers(users)
		public.POST("auth/register", auth.Register)
		public.POST("auth/login", auth.Login)
	}

	authorized := router.Group("/api/v1/")
	authorized.Use(middleware.TestAuthMiddleware())
	{
		userHandlers := NewUserHandlers(users, blocks)
		chatHandlers := NewChatHandlers(chat, blocks)
		matchHandlers := NewMatchHandlers(match)

		authorized.GET("me", userHandlers.GetMe)
		authorized.PATCH("me", userHandlers.UpdateProfile)
		authorized.GET("me/blocked", userHandlers.ListBlocked)
		authorized.POST("match/random", matchHandlers.FindRandom)
		authorized.GET("conversations", chatHandlers.ListConversations)
		authorized.GET("conversations/:id", chatHandlers.GetConversation)
		authorized.POST("conversations/:id/messages", chatHandlers.SendMessage)
		authorized.POST("conversations/:id/read", chatHandlers.MarkRead)
		authorized.POST("conversations/:id/favorite", chatHandlers.ToggleFavorite)
		authorized.POST("users/:id/block", chatHandlers.ToggleBlock)
	}
	return router
}

func createUser(t *testing.T) *models.User {
	t.Helper()
	nickname := gofakeit.Username() + gofakeit.DigitN(6)
	user := &models.User{Nickname: &nickname, Password: "irrelevant"}
	require.NoError(t, db.GetWriteDB(context.Background()).Create(user).Error)
	return user
}

func createConversation(t *testing.T, a, b int64) *models.Conversation {
	t.Helper()
	user1, user2 := models.NormalizePair(a, b)
	conversation := &models.Conversation{User1ID: user1, User2ID: user2}
	require.NoError(t, db.GetWriteDB(context.Background()).Create(conversation).Error)
	return conversation
}

func doRequest(router *gin.Engine, method, path string, userID int64, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		req.Header.Set("X-User-ID", fmt.Sprintf("%d", userID))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRegisterAndLoginEndpoints(t *testing.T) {
	router := newTestRouter()
	nickname := gofakeit.Username() + gofakeit.DigitN(6)

	w := doRequest(router, http.MethodPost, "/api/v1/auth/register", 0, gin.H{
		"nickname": nickname,
		"password": "password1234",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var registered struct {
		UserID      int64  `json:"user_id"`
		Token       string `json:"token"`
		DisplayName string `json:"display_name"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &registered))
	assert.NotZero(t, registered.UserID)
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, nickname, registered.DisplayName)

	w = doRequest(router, http.MethodPost, "/api/v1/auth/login", 0, gin.H{
		"nickname": nickname,
		"password": "password1234",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/auth/login", 0, gin.H{
		"nickname": nickname,
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterDuplicateNicknameConflict(t *testing.T) {
	router := newTestRouter()
	nickname := gofakeit.Username() + gofakeit.DigitN(6)
	payload := gin.H{"nickname": nickname, "password": "password1234"}

	w := doRequest(router, http.MethodPost, "/api/v1/auth/register", 0, payload)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/auth/register", 0, payload)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUnauthorizedWithoutUserHeader(t *testing.T) {
	router := newTestRouter()
	w := doRequest(router, http.MethodGet, "/api/v1/conversations", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSendMessageEndpoint(t *testing.T) {
	router := newTestRouter()
	alice := createUser(t)
	bob := createUser(t)
	conversation := createConversation(t, alice.ID, bob.ID)

	path := fmt.Sprintf("/api/v1/conversations/%d/messages", conversation.ID)
	w := doRequest(router, http.MethodPost, path, alice.ID, gin.H{"content": "hello"})
	require.Equal(t, http.StatusCreated, w.Code)

	var message struct {
		Sender  string  `json:"sender_id"`
		Content *string `json:"content"`
		IsRead  bool    `json:"is_read"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &message))
	assert.Equal(t, "me", message.Sender)
	require.NotNil(t, message.Content)
	assert.Equal(t, "hello", *message.Content)
	assert.False(t, message.IsRead)
}

func TestSendEmptyMessageRejected(t *testing.T) {
	router := newTestRouter()
	alice := createUser(t)
	bob := createUser(t)
	conversation := createConversation(t, alice.ID, bob.ID)

	path := fmt.Sprintf("/api/v1/conversations/%d/messages", conversation.ID)
	w := doRequest(router, http.MethodPost, path, alice.ID, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPost, path, alice.ID, gin.H{"content": "", "image_url": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetConversationForbiddenForOutsider(t *testing.T) {
	router := newTestRouter()
	alice := createUser(t)
	bob := createUser(t)
	outsider := createUser(t)
	conversation := createConversation(t, alice.ID, bob.ID)

	path := fmt.Sprintf("/api/v1/conversations/%d", conversation.ID)
	w := doRequest(router, http.MethodGet, path, outsider.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/conversations/999999999", alice.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBlockedConversationReturns403(t *testing.T) {
	router := newTestRouter()
	alice := createUser(t)
	bob := createUser(t)
	conversation := createConversation(t, alice.ID, bob.ID)

	w := doRequest(router, http.MethodPost, fmt.Sprintf("/api/v1/users/%d/block", bob.ID), alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	path := fmt.Sprintf("/api/v1/conversations/%d/messages", conversation.ID)
	w = doRequest(router, http.MethodPost, path, bob.ID, gin.H{"content": "hi"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSelfBlockReturns400(t *testing.T) {
	router := newTestRouter()
	alice := createUser(t)

	w := doRequest(router, http.MethodPost, fmt.Sprintf("/api/v1/users/%d/block", alice.ID), alice.ID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMatchEndpointContract(t *testing.T) {
	alice := createUser(t)
	bob := createUser(t)
	router := newTestRouter(alice.ID, bob.ID)

	w := doRequest(router, http.MethodPost, "/api/v1/match/random", alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var matched struct {
		Success        bool  `json:"success"`
		ConversationID int64 `json:"conversation_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &matched))
	assert.True(t, matched.Success)
	assert.NotZero(t, matched.ConversationID)
}

// неудача подбора - не HTTP-ошибка: код 200, success=false и retry_after
func TestMatchEndpointNoOneOnline(t *testing.T) {
	alice := createUser(t)
	router := newTestRouter(alice.ID)

	w := doRequest(router, http.MethodPost, "/api/v1/match/random", alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var failed struct {
		Success    bool   `json:"success"`
		Code       string `json:"code"`
		RetryAfter int    `json:"retry_after"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &failed))
	assert.False(t, failed.Success)
	assert.Equal(t, "NO_ELIGIBLE_USER", failed.Code)
	assert.Greater(t, failed.RetryAfter, 0)

	// кулдаун взведен предыдущей неудачей
	w = doRequest(router, http.MethodPost, "/api/v1/match/random", alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &failed))
	assert.False(t, failed.Success)
	assert.Equal(t, "RATE_LIMITED", failed.Code)
}

func TestGetMeAndUpdateProfile(t *testing.T) {
	router := newTestRouter()
	alice := createUser(t)

	w := doRequest(router, http.MethodGet, "/api/v1/me", alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var profile struct {
		UserID      int64  `json:"user_id"`
		DisplayName string `json:"display_name"`
		IsOnline    bool   `json:"is_online"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, alice.ID, profile.UserID)
	assert.Equal(t, alice.DisplayName(), profile.DisplayName)

	newNickname := gofakeit.Username() + gofakeit.DigitN(6)
	w = doRequest(router, http.MethodPatch, "/api/v1/me", alice.ID, gin.H{"nickname": newNickname})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, newNickname, profile.DisplayName)
}

func TestMarkReadEndpoint(t *testing.T) {
	router := newTestRouter()
	alice := createUser(t)
	bob := createUser(t)
	conversation := createConversation(t, alice.ID, bob.ID)

	path := fmt.Sprintf("/api/v1/conversations/%d/messages", conversation.ID)
	w := doRequest(router, http.MethodPost, path, alice.ID, gin.H{"content": "unread"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(router, http.MethodPost, fmt.Sprintf("/api/v1/conversations/%d/read", conversation.ID), bob.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, fmt.Sprintf("/api/v1/conversations/%d", conversation.ID), alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var detail struct {
		Messages []struct {
			IsRead bool `json:"is_read"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	require.Len(t, detail.Messages, 1)
	assert.True(t, detail.Messages[0].IsRead)
}

func TestToggleFavoriteEndpoint(t *testing.T) {
	router := newTestRouter()
	alice := createUser(t)
	bob := createUser(t)
	conversation := createConversation(t, alice.ID, bob.ID)

	path := fmt.Sprintf("/api/v1/conversations/%d/favorite", conversation.ID)
	w := doRequest(router, http.MethodPost, path, alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var toggled struct {
		IsFavorite bool `json:"is_favorite"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &toggled))
	assert.True(t, toggled.IsFavorite)

	w = doRequest(router, http.MethodPost, path, alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &toggled))
	assert.False(t, toggled.IsFavorite)
}
