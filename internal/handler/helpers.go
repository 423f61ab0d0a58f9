package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/flowcraft-app/flowcraft/internal/middleware"
	"github.com/flowcraft-app/flowcraft/internal/pkg/errcode"
	appErr "github.com/flowcraft-app/flowcraft/internal/pkg/errors"
	"github.com/flowcraft-app/flowcraft/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextUserIDKey)
	userID, _ := value.(string)
	return userID
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Warn("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("user_id", getUserID(c)),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrForbidden):
		response.Error(c, errcode.ErrForbidden, "forbidden")
	case appErr.IsNotFound(err):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case appErr.IsConflict(err):
		response.Error(c, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrNotConnected):
		response.Error(c, errcode.ErrNotConnected, "provider not connected")
	case appErr.IsUpstreamAuth(err):
		response.Error(c, errcode.ErrUpstreamAuth, "provider auth rejected, reconnect required")
	case errors.Is(err, appErr.ErrSendFailed):
		response.Error(c, errcode.ErrSendFailed, "draft send failed")
	case errors.Is(err, appErr.ErrTranscriptNotReady):
		response.Error(c, errcode.ErrTranscriptNotReady, "transcript not ready")
	case errors.Is(err, appErr.ErrUpstream):
		response.Error(c, errcode.ErrUpstream, "provider request failed")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
