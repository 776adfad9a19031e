package gallery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"artfolio/internal/model"
	"artfolio/internal/service/project"
	"artfolio/pkg/logger"
	"artfolio/pkg/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DocumentStore 按用户划分的项目文档存储
type DocumentStore interface {
	LoadAll(ctx context.Context, uid string) ([]model.Project, error)
	Create(ctx context.Context, uid string, p model.Project) error
	Upsert(ctx context.Context, uid, projectID string, doc model.ProjectDocument) error
	Delete(ctx context.Context, uid, projectID string) error
	// Subscribe 每次远端变更都推送完整集合，ctx 结束时关闭通道
	Subscribe(ctx context.Context, uid string) (<-chan []model.Project, error)
}

// ObjectStorage 上传单个文件并返回公开 URL
type ObjectStorage interface {
	Upload(ctx context.Context, file File) (string, error)
}

// Workspace 串行化单个用户的 store 迁移，并执行迁移产生的副作用。
// 迁移持锁执行，协作方调用期间不持锁。
type Workspace struct {
	mu      sync.Mutex
	store   *Store
	loaded  bool
	docs    DocumentStore
	objects ObjectStorage
	now     func() time.Time
	logger  *zap.Logger
}

func NewWorkspace(uid string, docs DocumentStore, objects ObjectStorage, log *zap.Logger) *Workspace {
	return &Workspace{
		store:   NewStore(uid),
		docs:    docs,
		objects: objects,
		now:     time.Now,
		logger:  logger.WithUser(log, uid),
	}
}

// WithClock 测试用
func (w *Workspace) WithClock(now func() time.Time) *Workspace {
	w.now = now
	return w
}

func (w *Workspace) UID() string {
	return w.store.UID()
}

// Snapshot 返回当前状态副本
func (w *Workspace) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.State()
}

func (w *Workspace) transition(name string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	metrics.IncrementStoreTransition(name, outcome)
}

func (w *Workspace) fail(name string, kind EffectKind, err error) {
	w.mu.Lock()
	w.store.Fail(kind)
	w.mu.Unlock()

	metrics.IncrementStoreTransition(name, "failed")
	w.logger.Error("Collaborator call failed",
		zap.String("transition", name),
		zap.Error(err),
	)
}

// Load 从文档存储全量加载
func (w *Workspace) Load(ctx context.Context) (State, error) {
	w.mu.Lock()
	effects := w.store.RequestLoad()
	w.mu.Unlock()

	projects, err := w.docs.LoadAll(ctx, effects[0].UID)
	if err != nil {
		w.fail("load", EffectLoad, err)
		return State{}, fmt.Errorf("load projects: %w", err)
	}

	w.mu.Lock()
	w.store.CommitLoad(projects)
	w.loaded = true
	state := w.store.State()
	w.mu.Unlock()

	w.transition("load", nil)
	w.logger.Info("Projects loaded", zap.Int("count", len(projects)))
	return state, nil
}

// EnsureLoaded 首次使用时加载
func (w *Workspace) EnsureLoaded(ctx context.Context) (State, error) {
	w.mu.Lock()
	loaded := w.loaded
	w.mu.Unlock()

	if loaded {
		return w.Snapshot(), nil
	}
	return w.Load(ctx)
}

// Create 新建空项目，写入成功后成为 active
func (w *Workspace) Create(ctx context.Context) (model.Project, error) {
	p := model.NewProject(project.NewID(), w.now().UnixMilli())

	w.mu.Lock()
	effects := w.store.RequestCreate(p)
	w.mu.Unlock()

	e := effects[0]
	if err := w.docs.Create(ctx, e.UID, e.Project); err != nil {
		w.fail("create", e.Kind, err)
		return model.Project{}, fmt.Errorf("create project: %w", err)
	}

	w.mu.Lock()
	w.store.CommitCreate(e.Project)
	w.mu.Unlock()

	w.transition("create", nil)
	w.logger.Info("Project created", zap.String("project_id", p.ID))
	return e.Project.Clone(), nil
}

// Select 设置 active
func (w *Workspace) Select(id string) (model.Project, error) {
	w.mu.Lock()
	err := w.store.Select(id)
	state := w.store.State()
	w.mu.Unlock()

	w.transition("select", err)
	if err != nil {
		w.logger.Warn("Select rejected", zap.String("project_id", id), zap.Error(err))
		return model.Project{}, err
	}
	return *state.Active, nil
}

// Active 返回 active 副本
func (w *Workspace) Active() (model.Project, error) {
	state := w.Snapshot()
	if state.Active == nil {
		return model.Project{}, ErrNoActiveProject
	}
	return *state.Active, nil
}

func (w *Workspace) edit(name string, rule func(model.Project) (model.Project, error)) (model.Project, error) {
	w.mu.Lock()
	p, err := w.store.EditActive(rule)
	w.mu.Unlock()

	w.transition(name, err)
	if err != nil {
		w.logger.Debug("Edit rejected", zap.String("transition", name), zap.Error(err))
	}
	return p, err
}

func (w *Workspace) AddCriterion(text string) (model.Project, error) {
	return w.edit("add_criterion", func(p model.Project) (model.Project, error) {
		return project.AddCriterion(p, text)
	})
}

func (w *Workspace) RemoveCriterion(criterionID string) (model.Project, error) {
	return w.edit("remove_criterion", func(p model.Project) (model.Project, error) {
		return project.RemoveCriterion(p, criterionID), nil
	})
}

func (w *Workspace) AddMilestone(name, dateString, description string) (model.Project, error) {
	return w.edit("add_milestone", func(p model.Project) (model.Project, error) {
		return project.AddMilestone(p, name, dateString, description)
	})
}

// Save 校验表单、写入文档存储，成功后更新集合。
// 写入期间项目被删除时返回 ErrProjectNotFound。
func (w *Workspace) Save(ctx context.Context, form project.SaveForm) (model.Project, []project.Advisory, error) {
	w.mu.Lock()
	effects, advisories, err := w.store.RequestSave(form)
	w.mu.Unlock()

	if err != nil {
		w.transition("save", err)
		return model.Project{}, nil, err
	}

	e := effects[0]
	if err := w.docs.Upsert(ctx, e.UID, e.ProjectID, e.Project.Document()); err != nil {
		w.fail("save", e.Kind, err)
		return model.Project{}, nil, fmt.Errorf("save project: %w", err)
	}

	w.mu.Lock()
	applied := w.store.CommitSave(e.Project)
	w.mu.Unlock()

	if !applied {
		w.transition("save", ErrProjectNotFound)
		w.logger.Warn("Project removed while saving", zap.String("project_id", e.ProjectID))
		return model.Project{}, nil, fmt.Errorf("%w: %s removed while saving", ErrProjectNotFound, e.ProjectID)
	}

	w.transition("save", nil)
	w.logger.Info("Project saved",
		zap.String("project_id", e.ProjectID),
		zap.Int("advisories", len(advisories)),
	)
	return e.Project.Clone(), advisories, nil
}

// Upload 并发上传全部文件；任一失败则整体失败，不提交部分 URL
func (w *Workspace) Upload(ctx context.Context, files []File) ([]string, error) {
	w.mu.Lock()
	effects, err := w.store.RequestUpload(files)
	w.mu.Unlock()

	if err != nil {
		w.transition("upload", err)
		return nil, err
	}

	e := effects[0]
	start := time.Now()
	urls := make([]string, len(e.Files))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range e.Files {
		g.Go(func() error {
			url, err := w.objects.Upload(gctx, f)
			if err != nil {
				return fmt.Errorf("upload %s: %w", f.Name, err)
			}
			urls[i] = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		metrics.RecordUploadLatency("failed", time.Since(start))
		w.fail("upload", e.Kind, err)
		return nil, err
	}
	metrics.RecordUploadLatency("ok", time.Since(start))

	w.mu.Lock()
	applied := w.store.CommitUpload(e.ProjectID, urls)
	w.mu.Unlock()

	w.transition("upload", nil)
	w.logger.Info("Images uploaded",
		zap.String("project_id", e.ProjectID),
		zap.Int("count", len(urls)),
		zap.Bool("applied", applied),
	)
	return urls, nil
}

// Delete 删除 active 项目
func (w *Workspace) Delete(ctx context.Context) (string, error) {
	w.mu.Lock()
	effects, err := w.store.RequestDelete()
	w.mu.Unlock()

	if err != nil {
		w.transition("delete", err)
		return "", err
	}

	e := effects[0]
	if err := w.docs.Delete(ctx, e.UID, e.ProjectID); err != nil {
		if !errors.Is(err, ErrProjectNotFound) {
			w.fail("delete", e.Kind, err)
			return "", fmt.Errorf("delete project: %w", err)
		}
		w.logger.Info("Project already removed from document store", zap.String("project_id", e.ProjectID))
	}

	w.mu.Lock()
	w.store.CommitDelete(e.ProjectID)
	w.mu.Unlock()

	w.transition("delete", nil)
	w.logger.Info("Project deleted", zap.String("project_id", e.ProjectID))
	return e.ProjectID, nil
}

// Logout 重置 store
func (w *Workspace) Logout() {
	w.mu.Lock()
	w.store.Logout()
	w.loaded = false
	w.mu.Unlock()

	w.transition("logout", nil)
}

// Subscribe 转发文档存储的实时变更，只供看板使用，不修改 store
func (w *Workspace) Subscribe(ctx context.Context) (<-chan []model.Project, error) {
	return w.docs.Subscribe(ctx, w.UID())
}
