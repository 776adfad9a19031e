package gallery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"artfolio/internal/model"
	"artfolio/internal/service/auth"
	"artfolio/internal/service/project"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDocs struct {
	mu       sync.Mutex
	docs     map[string]map[string]model.ProjectDocument
	order    map[string][]string
	upserts   int
	failWith  error
	deleteErr error
	onUpsert  func()
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{
		docs:  make(map[string]map[string]model.ProjectDocument),
		order: make(map[string][]string),
	}
}

func (f *fakeDocs) LoadAll(_ context.Context, uid string) ([]model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := []model.Project{}
	for _, id := range f.order[uid] {
		if doc, ok := f.docs[uid][id]; ok {
			out = append(out, model.FromDocument(id, doc))
		}
	}
	return out, nil
}

func (f *fakeDocs) Create(_ context.Context, uid string, p model.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if f.docs[uid] == nil {
		f.docs[uid] = make(map[string]model.ProjectDocument)
	}
	f.docs[uid][p.ID] = p.Document()
	f.order[uid] = append(f.order[uid], p.ID)
	return nil
}

func (f *fakeDocs) Upsert(_ context.Context, uid, projectID string, doc model.ProjectDocument) error {
	f.mu.Lock()
	if f.failWith != nil {
		f.mu.Unlock()
		return f.failWith
	}
	f.upserts++
	f.docs[uid][projectID] = doc
	hook := f.onUpsert
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (f *fakeDocs) Delete(_ context.Context, uid, projectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.docs[uid], projectID)
	return nil
}

func (f *fakeDocs) Subscribe(ctx context.Context, uid string) (<-chan []model.Project, error) {
	ch := make(chan []model.Project, 1)
	projects, _ := f.LoadAll(ctx, uid)
	ch <- projects
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (f *fakeDocs) setFailure(err error) {
	f.mu.Lock()
	f.failWith = err
	f.mu.Unlock()
}

type fakeObjects struct {
	mu      sync.Mutex
	calls   int
	failFor string
}

func (f *fakeObjects) Upload(_ context.Context, file File) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if file.Name == f.failFor {
		return "", errors.New("storage rejected file")
	}
	return "https://cdn.example/" + file.Name, nil
}

func newTestWorkspace(t *testing.T) (*Workspace, *fakeDocs, *fakeObjects) {
	t.Helper()
	counter := 0
	prev := project.NewID
	project.NewID = func() string {
		counter++
		return fmt.Sprintf("id-%d", counter)
	}
	t.Cleanup(func() { project.NewID = prev })

	docs := newFakeDocs()
	objects := &fakeObjects{}
	ws := NewWorkspace("user-1", docs, objects, zap.NewNop()).
		WithClock(func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) })
	return ws, docs, objects
}

func TestWorkspace_CreateAndLoad(t *testing.T) {
	ctx := context.Background()
	ws, docs, _ := newTestWorkspace(t)

	p, err := ws.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, "id-1", p.ID)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), p.Date)
	assert.Equal(t, p.Date, p.Start())
	assert.Equal(t, p.Date, p.End())

	state := ws.Snapshot()
	assert.Equal(t, PhaseEditing, state.Phase())
	assert.Equal(t, "id-1", state.Active.ID)

	other := NewWorkspace("user-1", docs, &fakeObjects{}, zap.NewNop())
	loaded, err := other.EnsureLoaded(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Projects, 1)
	assert.Equal(t, "id-1", loaded.Projects[0].ID)
	assert.Nil(t, loaded.Active)
}

func TestWorkspace_EndToEndHealthScenario(t *testing.T) {
	ctx := context.Background()
	ws, docs, _ := newTestWorkspace(t)

	p, err := ws.Create(ctx)
	require.NoError(t, err)

	_, err = ws.AddCriterion("Varnish removed")
	require.NoError(t, err)
	_, err = ws.AddCriterion("varnish REMOVED")
	assert.ErrorIs(t, err, &project.Rejection{Code: project.CodeDuplicate})

	urls, err := ws.Upload(ctx, []File{{Name: "1.jpg"}, {Name: "2.jpg"}, {Name: "3.jpg"}})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://cdn.example/1.jpg",
		"https://cdn.example/2.jpg",
		"https://cdn.example/3.jpg",
	}, urls)

	_, err = ws.AddMilestone("Kick-off", project.FormatDate(p.Start()), "")
	require.NoError(t, err)

	active, err := ws.Active()
	require.NoError(t, err)
	form := project.FormFrom(active)
	form.Title = "Retablo"
	saved, advisories, err := ws.Save(ctx, form)
	require.NoError(t, err)
	assert.Empty(t, advisories)
	assert.True(t, saved.WithAcceptanceCriteria)
	assert.Len(t, saved.ImagesURLs, 3)

	state := ws.Snapshot()
	assert.Equal(t, "Retablo, updated successfully", state.SavedMessage)
	assert.Equal(t, "Retablo", state.Projects[0].Title)
	assert.Equal(t, 1, docs.upserts)
	assert.Equal(t, "Retablo", docs.docs["user-1"][p.ID].Title)
}

func TestWorkspace_UploadIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	ws, _, objects := newTestWorkspace(t)
	_, err := ws.Create(ctx)
	require.NoError(t, err)

	objects.failFor = "bad.jpg"
	urls, err := ws.Upload(ctx, []File{{Name: "ok.jpg"}, {Name: "bad.jpg"}, {Name: "ok2.jpg"}})
	require.Error(t, err)
	assert.Nil(t, urls)

	state := ws.Snapshot()
	assert.False(t, state.IsSaving)
	assert.Empty(t, state.Active.ImagesURLs)
}

func TestWorkspace_SaveFailureClearsSaving(t *testing.T) {
	ctx := context.Background()
	ws, docs, _ := newTestWorkspace(t)
	_, err := ws.Create(ctx)
	require.NoError(t, err)

	docs.setFailure(errors.New("connection reset"))
	active, err := ws.Active()
	require.NoError(t, err)
	form := project.FormFrom(active)
	form.Title = "lost"

	_, _, err = ws.Save(ctx, form)
	require.Error(t, err)

	state := ws.Snapshot()
	assert.False(t, state.IsSaving)
	assert.Empty(t, state.Projects[0].Title)
	assert.Empty(t, state.SavedMessage)
}

func TestWorkspace_SaveRejectionSkipsStore(t *testing.T) {
	ctx := context.Background()
	ws, docs, _ := newTestWorkspace(t)
	_, err := ws.Create(ctx)
	require.NoError(t, err)

	active, err := ws.Active()
	require.NoError(t, err)
	form := project.FormFrom(active)
	form.StartDate = model.Int64Ptr(active.Date + 1)
	form.EndDate = model.Int64Ptr(active.Date)

	_, _, err = ws.Save(ctx, form)
	assert.ErrorIs(t, err, &project.Rejection{Code: project.CodeRangeInvalid})
	assert.Equal(t, 0, docs.upserts)
	assert.False(t, ws.Snapshot().IsSaving)
}

func TestWorkspace_DeleteAndLogout(t *testing.T) {
	ctx := context.Background()
	ws, docs, _ := newTestWorkspace(t)
	_, err := ws.Create(ctx)
	require.NoError(t, err)
	second, err := ws.Create(ctx)
	require.NoError(t, err)

	id, err := ws.Delete(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, id)
	assert.NotContains(t, docs.docs["user-1"], second.ID)

	state := ws.Snapshot()
	assert.Nil(t, state.Active)
	assert.Len(t, state.Projects, 1)

	_, err = ws.Delete(ctx)
	assert.ErrorIs(t, err, ErrNoActiveProject)

	ws.Logout()
	assert.Empty(t, ws.Snapshot().Projects)
}

func TestWorkspace_DeleteAlreadyRemovedRemotely(t *testing.T) {
	ctx := context.Background()
	ws, docs, _ := newTestWorkspace(t)
	first, err := ws.Create(ctx)
	require.NoError(t, err)
	second, err := ws.Create(ctx)
	require.NoError(t, err)

	docs.deleteErr = fmt.Errorf("%w: %s", ErrProjectNotFound, second.ID)
	id, err := ws.Delete(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, id)

	state := ws.Snapshot()
	assert.Nil(t, state.Active)
	require.Len(t, state.Projects, 1)
	assert.Equal(t, first.ID, state.Projects[0].ID)

	docs.deleteErr = errors.New("connection reset")
	_, err = ws.Select(first.ID)
	require.NoError(t, err)
	_, err = ws.Delete(ctx)
	require.Error(t, err)
	assert.Len(t, ws.Snapshot().Projects, 1)
}

func TestWorkspace_SaveReportsProjectRemovedMidway(t *testing.T) {
	ctx := context.Background()
	ws, docs, _ := newTestWorkspace(t)
	_, err := ws.Create(ctx)
	require.NoError(t, err)

	docs.onUpsert = func() {
		_, err := ws.Delete(ctx)
		assert.NoError(t, err)
	}

	active, err := ws.Active()
	require.NoError(t, err)
	form := project.FormFrom(active)
	form.Title = "gone"

	_, _, err = ws.Save(ctx, form)
	assert.ErrorIs(t, err, ErrProjectNotFound)

	state := ws.Snapshot()
	assert.False(t, state.IsSaving)
	assert.Empty(t, state.Projects)
	assert.Empty(t, state.SavedMessage)
}

func TestWorkspace_LoadFailure(t *testing.T) {
	ws, docs, _ := newTestWorkspace(t)
	docs.setFailure(errors.New("db down"))

	_, err := ws.EnsureLoaded(context.Background())
	require.Error(t, err)
	assert.False(t, ws.Snapshot().IsSaving)
}

func TestWorkspace_Subscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ws, _, _ := newTestWorkspace(t)
	_, err := ws.Create(ctx)
	require.NoError(t, err)

	ch, err := ws.Subscribe(ctx)
	require.NoError(t, err)
	first := <-ch
	assert.Len(t, first, 1)

	cancel()
	_, open := <-ch
	assert.False(t, open)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(newFakeDocs(), &fakeObjects{}, zap.NewNop())

	a := r.Get("a")
	assert.Same(t, a, r.Get("a"))
	assert.NotSame(t, a, r.Get("b"))
	assert.Equal(t, 2, r.Len())

	r.SessionChanged(auth.Session{UID: "a", Status: auth.StatusAuthenticated})
	assert.Equal(t, 2, r.Len())

	r.SessionChanged(auth.Session{UID: "a", Status: auth.StatusNotAuthenticated})
	assert.Equal(t, 1, r.Len())
	assert.NotSame(t, a, r.Get("a"))

	r.Drop("missing")
	assert.Equal(t, 2, r.Len())
}
