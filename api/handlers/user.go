package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"anonchat/pkg/errors"
	"anonchat/services"
)

type UserHandlers struct {
	users  *services.UserService
	blocks *services.BlockService
}

func NewUserHandlers(users *services.UserService, blocks *services.BlockService) *UserHandlers {
	return &UserHandlers{users: users, blocks: blocks}
}

type profileResponse struct {
	UserID      int64   `json:"user_id"`
	Nickname    *string `json:"nickname"`
	DisplayName string  `json:"display_name"`
	Image       *string `json:"image"`
	IsOnline    bool    `json:"is_online"`
	LastSeen    string  `json:"last_seen"`
}

func (h *UserHandlers) GetMe(c *gin.Context) {
	user, err := h.users.GetProfile(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, profileResponse{
		UserID:      user.ID,
		Nickname:    user.Nickname,
		DisplayName: user.DisplayName(),
		Image:       user.Image,
		IsOnline:    services.IsUserOnline(user.LastSeenAt),
		LastSeen:    services.LastSeenText(user.LastSeenAt),
	})
}

type updateProfileRequest struct {
	Nickname *string `json:"nickname"`
	Image    *string `json:"image"`
}

func (h *UserHandlers) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidArg("invalid profile payload"))
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), currentUserID(c), req.Nickname, req.Image)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, profileResponse{
		UserID:      user.ID,
		Nickname:    user.Nickname,
		DisplayName: user.DisplayName(),
		Image:       user.Image,
		IsOnline:    services.IsUserOnline(user.LastSeenAt),
		LastSeen:    services.LastSeenText(user.LastSeenAt),
	})
}

// Heartbeat обновляет last_seen_at; ошибки записи не ломают клиенту пинг
func (h *UserHandlers) Heartbeat(c *gin.Context) {
	services.TouchLastSeen(c.Request.Context(), currentUserID(c))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *UserHandlers) ListBlocked(c *gin.Context) {
	blocked, err := h.blocks.ListBlocked(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocked": blocked})
}
