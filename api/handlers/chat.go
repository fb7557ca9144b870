package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"anonchat/api/middleware"
	"anonchat/pkg/errors"
	"anonchat/services"
)

type ChatHandlers struct {
	chat   *services.ChatService
	blocks *services.BlockService
}

func NewChatHandlers(chat *services.ChatService, blocks *services.BlockService) *ChatHandlers {
	return &ChatHandlers{chat: chat, blocks: blocks}
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.InvalidArg("invalid " + name)
	}
	return id, nil
}

func (h *ChatHandlers) ListConversations(c *gin.Context) {
	conversations, err := h.chat.ListConversations(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

func (h *ChatHandlers) ListFavorites(c *gin.Context) {
	favorites, err := h.chat.ListFavorites(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": favorites})
}

func (h *ChatHandlers) GetConversation(c *gin.Context) {
	conversationID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	detail, err := h.chat.GetConversation(c.Request.Context(), currentUserID(c), conversationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

type sendMessageRequest struct {
	Content  *string `json:"content"`
	ImageURL *string `json:"image_url"`
}

func (r *sendMessageRequest) empty() bool {
	return (r.Content == nil || *r.Content == "") && (r.ImageURL == nil || *r.ImageURL == "")
}

func (h *ChatHandlers) SendMessage(c *gin.Context) {
	conversationID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.empty() {
		respondError(c, errors.ErrEmptyMessage)
		return
	}

	start := time.Now()
	message, err := h.chat.SendMessage(c.Request.Context(), currentUserID(c), conversationID, req.Content, req.ImageURL)
	if err != nil {
		middleware.RecordChatOperation("send_message", "error", time.Since(start))
		respondError(c, err)
		return
	}
	middleware.RecordChatOperation("send_message", "ok", time.Since(start))

	c.JSON(http.StatusCreated, message)
}

func (h *ChatHandlers) MarkRead(c *gin.Context) {
	conversationID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.chat.MarkRead(c.Request.Context(), currentUserID(c), conversationID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ChatHandlers) ToggleFavorite(c *gin.Context) {
	conversationID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	isFavorite, err := h.chat.ToggleFavorite(c.Request.Context(), currentUserID(c), conversationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_favorite": isFavorite})
}

func (h *ChatHandlers) ToggleBlock(c *gin.Context) {
	otherUserID, err := pathID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	isBlocked, err := h.blocks.ToggleBlock(c.Request.Context(), currentUserID(c), otherUserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_blocked": isBlocked})
}
