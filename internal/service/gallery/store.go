// Package gallery holds the per-user project collection, the active project
// being edited and the in-flight save flag.
package gallery

import (
	"errors"
	"fmt"

	"artfolio/internal/model"
	"artfolio/internal/service/auth"
	"artfolio/internal/service/project"
)

var (
	ErrNoActiveProject = errors.New("no active project")
	ErrSaveInFlight    = errors.New("an operation is in flight")
	ErrProjectNotFound = errors.New("project not found")
	ErrNoFiles         = errors.New("no files to upload")
)

// SavedMessageSuffix 保存成功提示的后缀
const SavedMessageSuffix = ", updated successfully"

// Phase 状态机所处阶段，由 State 推导
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseEditing Phase = "editing"
	PhaseSaving  Phase = "saving"
)

// State 是 store 的完整状态，Active 是独立副本
type State struct {
	Projects     []model.Project `json:"projects"`
	Active       *model.Project  `json:"active"`
	IsSaving     bool            `json:"isSaving"`
	SavedMessage string          `json:"savedMessage"`
}

// Phase 返回当前阶段
func (s State) Phase() Phase {
	switch {
	case s.IsSaving:
		return PhaseSaving
	case s.Active != nil:
		return PhaseEditing
	default:
		return PhaseIdle
	}
}

func (s State) clone() State {
	out := State{
		Projects:     make([]model.Project, 0, len(s.Projects)),
		IsSaving:     s.IsSaving,
		SavedMessage: s.SavedMessage,
	}
	for _, p := range s.Projects {
		out.Projects = append(out.Projects, p.Clone())
	}
	if s.Active != nil {
		a := s.Active.Clone()
		out.Active = &a
	}
	return out
}

func initialState() State {
	return State{Projects: []model.Project{}}
}

// Store 是单用户的状态机。迁移同步执行，不做 IO；
// 异步结果通过 Commit*/Fail 重新进入。Store 本身不加锁。
// inFlight 记录已派发未完成的写操作数，IsSaving 由它推导。
type Store struct {
	uid      string
	state    State
	inFlight int
}

// NewStore 创建空 store
func NewStore(uid string) *Store {
	return &Store{uid: uid, state: initialState()}
}

// UID 所属用户
func (s *Store) UID() string {
	return s.uid
}

// State 返回状态快照
func (s *Store) State() State {
	return s.state.clone()
}

func (s *Store) begin() {
	s.inFlight++
	s.state.IsSaving = true
}

func (s *Store) finish() {
	if s.inFlight > 0 {
		s.inFlight--
	}
	s.state.IsSaving = s.inFlight > 0
}

func (s *Store) indexOf(id string) int {
	for i, p := range s.state.Projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) RequestLoad() []Effect {
	return []Effect{{Kind: EffectLoad, UID: s.uid}}
}

// CommitLoad 用存储中的集合替换当前集合
func (s *Store) CommitLoad(projects []model.Project) {
	next := make([]model.Project, 0, len(projects))
	for _, p := range projects {
		next = append(next, p.Clone())
	}
	s.state.Projects = next
}

// RequestCreate 进入 saving，id 由调用方预先分配
func (s *Store) RequestCreate(p model.Project) []Effect {
	s.begin()
	return []Effect{{Kind: EffectCreate, UID: s.uid, ProjectID: p.ID, Project: p.Clone()}}
}

// CommitCreate 追加新项目并设为 active
func (s *Store) CommitCreate(p model.Project) {
	s.finish()
	if s.indexOf(p.ID) < 0 {
		s.state.Projects = append(s.state.Projects, p.Clone())
	}
	active := p.Clone()
	s.state.Active = &active
	s.state.SavedMessage = ""
}

// Select 打开一个项目进行编辑，saving 期间不允许切换
func (s *Store) Select(id string) error {
	if s.state.IsSaving {
		return ErrSaveInFlight
	}
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	active := s.state.Projects[i].Clone()
	s.state.Active = &active
	s.state.SavedMessage = ""
	return nil
}

// EditActive 把一条规则应用到 active 副本上；规则拒绝时状态不变
func (s *Store) EditActive(rule func(model.Project) (model.Project, error)) (model.Project, error) {
	if s.state.Active == nil {
		return model.Project{}, ErrNoActiveProject
	}
	next, err := rule(s.state.Active.Clone())
	if err != nil {
		return model.Project{}, err
	}
	next.ID = s.state.Active.ID
	next.Date = s.state.Active.Date
	s.state.Active = &next
	return next.Clone(), nil
}

// RequestSave 校验表单并进入 saving；集合只在 CommitSave 时更新
func (s *Store) RequestSave(form project.SaveForm) ([]Effect, []project.Advisory, error) {
	if s.state.Active == nil {
		return nil, nil, ErrNoActiveProject
	}
	prepared, advisories, err := project.PrepareSave(*s.state.Active, form)
	if err != nil {
		return nil, nil, err
	}

	s.state.Active = &prepared
	s.begin()
	s.state.SavedMessage = ""

	return []Effect{{
		Kind:      EffectPersist,
		UID:       s.uid,
		ProjectID: prepared.ID,
		Project:   prepared.Clone(),
	}}, advisories, nil
}

// CommitSave 按 id 替换集合中的项目。目标已不存在时只结束本次操作。
// 重叠保存不排序，最后到达的结果生效。
func (s *Store) CommitSave(p model.Project) bool {
	s.finish()
	i := s.indexOf(p.ID)
	if i < 0 {
		return false
	}
	s.state.Projects[i] = p.Clone()
	if s.state.Active != nil && s.state.Active.ID == p.ID {
		active := p.Clone()
		s.state.Active = &active
	}
	s.state.SavedMessage = p.Title + SavedMessageSuffix
	return true
}

// RequestUpload 进入 saving，上传结果只追加到 active
func (s *Store) RequestUpload(files []File) ([]Effect, error) {
	if s.state.Active == nil {
		return nil, ErrNoActiveProject
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	s.begin()
	return []Effect{{
		Kind:      EffectUpload,
		UID:       s.uid,
		ProjectID: s.state.Active.ID,
		Files:     append([]File{}, files...),
	}}, nil
}

// CommitUpload 追加 URL；active 已切换或被删除时丢弃
func (s *Store) CommitUpload(projectID string, urls []string) bool {
	s.finish()
	if s.state.Active == nil || s.state.Active.ID != projectID {
		return false
	}
	s.state.Active.ImagesURLs = append(s.state.Active.ImagesURLs, urls...)
	return true
}

// RequestDelete 不改变 saving 标志
func (s *Store) RequestDelete() ([]Effect, error) {
	if s.state.Active == nil {
		return nil, ErrNoActiveProject
	}
	return []Effect{{Kind: EffectDelete, UID: s.uid, ProjectID: s.state.Active.ID}}, nil
}

// CommitDelete 从集合中移除，并在需要时清空 active
func (s *Store) CommitDelete(projectID string) {
	if s.state.Active != nil && s.state.Active.ID == projectID {
		s.state.Active = nil
	}
	i := s.indexOf(projectID)
	if i < 0 {
		return
	}
	s.state.Projects = append(s.state.Projects[:i], s.state.Projects[i+1:]...)
}

// Fail 协作方失败：结束对应的写操作，不应用任何依赖该调用的变更。
// load 和 delete 不占用 saving。
func (s *Store) Fail(kind EffectKind) {
	switch kind {
	case EffectCreate, EffectPersist, EffectUpload:
		s.finish()
	}
}

// Logout 从任意状态回到初始空状态
func (s *Store) Logout() {
	s.state = initialState()
	s.inFlight = 0
}

// SessionChanged 身份离开 authenticated 时清空集合
func (s *Store) SessionChanged(status auth.Status) {
	if status != auth.StatusAuthenticated {
		s.Logout()
	}
}
