package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"anonchat/pkg/errors"
	"anonchat/services"
)

type AuthHandlers struct {
	users *services.UserService
}

func NewAuthHandlers(users *services.UserService) *AuthHandlers {
	return &AuthHandlers{users: users}
}

type registerRequest struct {
	Nickname *string `json:"nickname"`
	Password string  `json:"password" binding:"required,min=6"`
}

type loginRequest struct {
	Nickname string `json:"nickname" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidArg("invalid registration payload"))
		return
	}

	user, token, err := h.users.Register(c.Request.Context(), req.Nickname, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user_id":      user.ID,
		"token":        token,
		"display_name": user.DisplayName(),
	})
}

func (h *AuthHandlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidArg("invalid login payload"))
		return
	}

	user, token, err := h.users.Login(c.Request.Context(), req.Nickname, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      user.ID,
		"token":        token,
		"display_name": user.DisplayName(),
	})
}

func (h *AuthHandlers) Logout(c *gin.Context) {
	if err := h.users.Logout(c.Request.Context(), currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
