package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"maderalink/internal/apperrors"
	"maderalink/internal/middleware"
	"maderalink/internal/utils"
)

const genericError = "something went wrong, please try again"

// respondError maps err to a status and an inline JSON message. Unknown
// errors are logged and hidden behind a generic message.
func respondError(c *gin.Context, err error) {
	status, known := statusOf(err)
	if !known {
		middleware.Log(c).Error("Request error",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.AbortWithStatusJSON(status, gin.H{"error": genericError})
		return
	}

	msg, ok := apperrors.Message(err)
	if !ok {
		msg = defaultMessage(status)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func statusOf(err error) (int, bool) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, true
	case errors.Is(err, apperrors.ErrUnauthenticated):
		return http.StatusUnauthorized, true
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, true
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, apperrors.ErrDuplicateRating):
		return http.StatusConflict, true
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, false
	}
	return http.StatusBadGateway, false
}

func defaultMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid request"
	case http.StatusUnauthorized:
		return "please sign in first"
	case http.StatusForbidden:
		return "you are not allowed to do that"
	case http.StatusNotFound:
		return "not found"
	case http.StatusConflict:
		return "you already rated this project"
	}
	return genericError
}

// pathID parses the named path parameter, answering 400 when it is invalid.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := utils.ParseID(c.Param(name))
	if err != nil {
		respondError(c, err)
		return 0, false
	}
	return id, true
}

// bindJSON decodes the body, answering 400 when it is malformed.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apperrors.NewValidationError("invalid request body"))
		return false
	}
	return true
}
