package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	contractsmq "artfolio/contracts/mq"
	"artfolio/internal/service/health"
	"artfolio/pkg/logger"
	"artfolio/pkg/metrics"
	"artfolio/pkg/trace"
	"artfolio/pkg/util"

	"go.uber.org/zap"
)

const projectEventHandlerName = "project_health"

// TierIndex 保存每个项目最近一次的健康分级
type TierIndex interface {
	Set(ctx context.Context, uid, projectID string, tier health.Tier) error
	Remove(ctx context.Context, uid, projectID string) error
}

// Deduper 按事件 id 去重
type Deduper interface {
	AcquireOnce(ctx context.Context, handler, eventID string) bool
	Release(ctx context.Context, handler, eventID string)
}

type ProjectEventHandler struct {
	index   TierIndex
	deduper Deduper
	logger  *zap.Logger
}

func NewProjectEventHandler(index TierIndex, deduper Deduper, logger *zap.Logger) *ProjectEventHandler {
	return &ProjectEventHandler{
		index:   index,
		deduper: deduper,
		logger:  logger,
	}
}

// HandleProjectEvent 重新分级并更新索引；删除事件移除索引项
func (h *ProjectEventHandler) HandleProjectEvent(ctx context.Context, raw json.RawMessage) error {
	var p contractsmq.ProjectChangedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal project event payload", zap.Error(err))
		return err
	}
	if p.EventID == "" || p.UID == "" || p.ProjectID == "" {
		return fmt.Errorf("%w: project event missing ids", util.ErrPermanent)
	}

	if p.TraceID != "" && trace.FromContext(ctx) == "" {
		ctx = trace.WithContext(ctx, p.TraceID)
	}
	log := logger.WithTrace(ctx, h.logger).With(
		zap.String("event_id", p.EventID),
		zap.String("uid", p.UID),
		zap.String("project_id", p.ProjectID),
	)

	if !h.deduper.AcquireOnce(ctx, projectEventHandlerName, p.EventID) {
		return nil
	}

	if err := h.apply(ctx, p, log); err != nil {
		h.deduper.Release(ctx, projectEventHandlerName, p.EventID)
		return err
	}
	return nil
}

func (h *ProjectEventHandler) apply(ctx context.Context, p contractsmq.ProjectChangedPayload, log *zap.Logger) error {
	if p.Deleted() {
		if err := h.index.Remove(ctx, p.UID, p.ProjectID); err != nil {
			log.Error("Failed to remove project from health index", zap.Error(err))
			return err
		}
		log.Info("Project removed from health index")
		return nil
	}

	tier := health.Classify(*p.Project)
	if err := h.index.Set(ctx, p.UID, p.ProjectID, tier); err != nil {
		log.Error("Failed to update health index", zap.Error(err))
		return err
	}

	metrics.IncrementHealthClassified(string(tier))
	log.Info("Project classified", zap.String("tier", string(tier)))
	return nil
}
