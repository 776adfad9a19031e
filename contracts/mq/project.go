package mq

import (
	"time"

	"artfolio/internal/model"
)

const (
	RoutingKeyProjectCreated = "project.created"
	RoutingKeyProjectSaved   = "project.saved"
	RoutingKeyProjectDeleted = "project.deleted"

	// RoutingKeyProjectAll worker 绑定用
	RoutingKeyProjectAll = "project.*"

	AggregateTypeProject = "project"
)

// ProjectChangedPayload 项目创建/保存/删除事件；删除时 Project 为空
type ProjectChangedPayload struct {
	EventID    string         `json:"event_id"`
	UID        string         `json:"uid"`
	ProjectID  string         `json:"project_id"`
	Project    *model.Project `json:"project,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	TraceID    string         `json:"trace_id,omitempty"`
}

// Deleted 是否为删除事件
func (p ProjectChangedPayload) Deleted() bool {
	return p.Project == nil
}
