package httpserver

import (
	"context"
	"net/http"
	"time"

	"artfolio/internal/handler"
	"artfolio/pkg/otel"
	"artfolio/pkg/rbac"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ReadinessCheck 是 /readyz 中的一项依赖检查
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	authHandler *handler.AuthHandler,
	projectHandler *handler.ProjectHandler,
	boardHandler *handler.BoardHandler,
	authn Authenticator,
	checks []ReadinessCheck,
	logger *zap.Logger,
) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), otel.GinMiddleware(), RequestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		for _, check := range checks {
			if err := check.Check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": check.Name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)

	// Protected
	api := r.Group("/")
	api.Use(AuthMiddleware(authn))
	{
		api.POST("/logout", authHandler.Logout)

		read := RequirePermission(rbac.PermissionReadProject)
		write := RequirePermission(rbac.PermissionWriteProject)

		api.GET("/projects", read, projectHandler.ListProjects)
		api.POST("/projects", write, projectHandler.CreateProject)
		api.POST("/projects/:id/select", read, projectHandler.SelectProject)

		api.GET("/active", read, projectHandler.GetActive)
		api.PUT("/active", write, projectHandler.SaveActive)
		api.DELETE("/active", RequirePermission(rbac.PermissionDeleteProject), projectHandler.DeleteActive)
		api.POST("/active/criteria", write, projectHandler.AddCriterion)
		api.DELETE("/active/criteria/:criterionId", write, projectHandler.RemoveCriterion)
		api.POST("/active/milestones", write, projectHandler.AddMilestone)
		api.POST("/active/images", RequirePermission(rbac.PermissionUploadImage), projectHandler.UploadImages)

		api.GET("/board", read, boardHandler.GetBoard)
		api.GET("/board/stream", read, boardHandler.StreamBoard)
	}

	return &Router{Engine: r}
}
