package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"artfolio/internal/handler"
	"artfolio/internal/service/auth"
	"artfolio/pkg/metrics"
	"artfolio/pkg/trace"
	"artfolio/pkg/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Authenticator 把 bearer token 解析为会话
type Authenticator interface {
	Authenticate(token string) (auth.Session, error)
}

func AuthMiddleware(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.ExtractToken(c.Request)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		session, err := authn.Authenticate(token)
		if err != nil || !session.Authenticated() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(handler.CtxUserID, session.UID)
		c.Set(handler.CtxFullName, session.FullName)
		c.Set(handler.CtxRole, session.Role)

		c.Next()
	}
}

// TraceMiddleware 沿用请求头中的 trace_id，没有则生成，并回写到响应头
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := trace.EnsureFromHeader(c.GetHeader(trace.HeaderName))
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName, traceID)
		c.Next()
	}
}

// RequestLogger 记录访问日志和请求耗时
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		metrics.RecordHTTPRequestDuration(c.Request.Method, route, strconv.Itoa(status), elapsed)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
			zap.String("client_ip", c.ClientIP()),
			zap.String("trace_id", trace.FromContext(c.Request.Context())),
		}
		if status >= http.StatusInternalServerError {
			logger.Error("Request failed", fields...)
			return
		}
		logger.Info("Request handled", fields...)
	}
}
