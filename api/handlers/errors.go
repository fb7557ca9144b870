package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"anonchat/logging"
	"anonchat/pkg/errors"
)

func statusForCode(code errors.Code) int {
	switch code {
	case errors.CodeInvalidArgument:
		return http.StatusBadRequest
	case errors.CodeUnauthenticated:
		return http.StatusUnauthorized
	case errors.CodePermissionDenied, errors.CodeBlocked:
		return http.StatusForbidden
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeAlreadyExists:
		return http.StatusConflict
	case errors.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	code := errors.CodeOf(err)
	status := statusForCode(code)

	body := gin.H{"error": err.Error(), "code": code}
	if retryAfter := errors.RetryAfter(err); retryAfter > 0 {
		body["retry_after"] = retryAfter
	}

	if status == http.StatusInternalServerError {
		logging.L().WithError(err).Error("request failed")
		body["error"] = "internal error"
	}

	c.JSON(status, body)
}

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64("user_id")
}
