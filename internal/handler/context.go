package handler

import (
	"errors"
	"net/http"

	"artfolio/internal/service/auth"
	"artfolio/internal/service/gallery"
	"artfolio/internal/service/project"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// gin context 中由认证中间件写入的键
const (
	CtxUserID   = "user_id"
	CtxFullName = "full_name"
	CtxRole     = "role"
)

func userID(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return "", false
	}
	uid, ok := v.(string)
	return uid, ok && uid != ""
}

// respondError 把领域错误映射为 HTTP 响应
func respondError(c *gin.Context, logger *zap.Logger, op string, err error) {
	var rej *project.Rejection
	switch {
	case errors.As(err, &rej):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"code": rej.Code, "message": rej.Message})
	case errors.Is(err, gallery.ErrNoActiveProject), errors.Is(err, gallery.ErrSaveInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, gallery.ErrProjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, gallery.ErrNoFiles), errors.Is(err, auth.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrEmailExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		logger.Error(op+": collaborator failure", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": op + " failed"})
	}
}
