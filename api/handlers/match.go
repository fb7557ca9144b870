package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"anonchat/api/middleware"
	"anonchat/pkg/errors"
	"anonchat/services"
)

type MatchHandlers struct {
	match *services.MatchService
}

func NewMatchHandlers(match *services.MatchService) *MatchHandlers {
	return &MatchHandlers{match: match}
}

// FindRandom подбирает случайного собеседника. Неудача поиска — не ошибка
// протокола: кулдаун и пустая выборка отдаются как success=false с кодом 200.
func (h *MatchHandlers) FindRandom(c *gin.Context) {
	conversationID, err := h.match.FindRandomUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		code := errors.CodeOf(err)
		switch code {
		case errors.CodeRateLimited, errors.CodeNoEligibleUser:
			middleware.RecordMatchAttempt(string(code))
			c.JSON(http.StatusOK, gin.H{
				"success":     false,
				"error":       err.Error(),
				"code":        code,
				"retry_after": errors.RetryAfter(err),
			})
		default:
			middleware.RecordMatchAttempt("error")
			respondError(c, err)
		}
		return
	}

	middleware.RecordMatchAttempt("matched")
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"conversation_id": conversationID,
	})
}
