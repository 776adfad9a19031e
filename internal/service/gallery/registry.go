package gallery

import (
	"sync"

	"artfolio/internal/service/auth"

	"go.uber.org/zap"
)

// Registry 按 uid 管理 Workspace
type Registry struct {
	mu         sync.Mutex
	workspaces map[string]*Workspace
	docs       DocumentStore
	objects    ObjectStorage
	logger     *zap.Logger
}

func NewRegistry(docs DocumentStore, objects ObjectStorage, logger *zap.Logger) *Registry {
	return &Registry{
		workspaces: make(map[string]*Workspace),
		docs:       docs,
		objects:    objects,
		logger:     logger,
	}
}

// Get 返回用户的 Workspace，不存在则创建
func (r *Registry) Get(uid string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.workspaces[uid]
	if !ok {
		ws = NewWorkspace(uid, r.docs, r.objects, r.logger)
		r.workspaces[uid] = ws
		r.logger.Debug("Workspace created", zap.String("uid", uid))
	}
	return ws
}

// Drop 重置并移除用户的 Workspace
func (r *Registry) Drop(uid string) {
	r.mu.Lock()
	ws, ok := r.workspaces[uid]
	delete(r.workspaces, uid)
	r.mu.Unlock()

	if ok {
		ws.Logout()
	}
}

// SessionChanged 身份离开 authenticated 时清空对应用户的状态
func (r *Registry) SessionChanged(s auth.Session) {
	if s.Status != auth.StatusAuthenticated {
		r.Drop(s.UID)
	}
}

// Len 当前活跃的 Workspace 数量
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}
