package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"artfolio/internal/service/gallery"
	"artfolio/internal/service/health"
	"artfolio/internal/service/project"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BoardHandler struct {
	registry *gallery.Registry
	logger   *zap.Logger
}

func NewBoardHandler(registry *gallery.Registry, logger *zap.Logger) *BoardHandler {
	return &BoardHandler{registry: registry, logger: logger}
}

// ParseFilters 读取 tier、from、to、search 查询参数；日期接受 epoch 毫秒或日期字符串
func ParseFilters(c *gin.Context) (health.Filters, error) {
	tier, err := health.ParseTier(c.Query("tier"))
	if err != nil {
		return health.Filters{}, err
	}
	filters := health.Filters{Tier: tier, SearchTerm: c.Query("search")}

	if filters.FromDate, err = parseBound(c.Query("from")); err != nil {
		return health.Filters{}, fmt.Errorf("from: %w", err)
	}
	if filters.ToDate, err = parseBound(c.Query("to")); err != nil {
		return health.Filters{}, fmt.Errorf("to: %w", err)
	}
	return filters, nil
}

func parseBound(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return &ms, nil
	}
	ms, ok := project.ParseDate(raw)
	if !ok {
		return nil, fmt.Errorf("invalid date %q", raw)
	}
	return &ms, nil
}

// GetBoard handles GET /board
func (h *BoardHandler) GetBoard(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	filters, err := ParseFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.registry.Get(uid).EnsureLoaded(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "load board", err)
		return
	}

	c.JSON(http.StatusOK, health.BuildBoard(state.Projects, filters))
}

// StreamBoard handles GET /board/stream：每次远端变更推送一次 board 事件
func (h *BoardHandler) StreamBoard(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	filters, err := ParseFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	updates, err := h.registry.Get(uid).Subscribe(ctx)
	if err != nil {
		respondError(c, h.logger, "subscribe board", err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	h.logger.Info("Board stream opened", zap.String("uid", uid))
	for projects := range updates {
		c.SSEvent("board", health.BuildBoard(projects, filters))
		c.Writer.Flush()
	}
	h.logger.Info("Board stream closed", zap.String("uid", uid))
}
