package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"artfolio/internal/handler"
	"artfolio/internal/model"
	"artfolio/internal/repository"
	"artfolio/internal/service/auth"
	"artfolio/internal/service/gallery"
	"artfolio/pkg/rbac"
	"artfolio/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func (m *memoryUsers) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Email] = u
	return nil
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

type memoryDocs struct {
	mu       sync.Mutex
	projects map[string][]model.Project
	fail     bool
}

func (m *memoryDocs) LoadAll(_ context.Context, uid string) ([]model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Project{}
	for _, p := range m.projects[uid] {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (m *memoryDocs) Create(_ context.Context, uid string, p model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("store unavailable")
	}
	m.projects[uid] = append(m.projects[uid], p.Clone())
	return nil
}

func (m *memoryDocs) Upsert(_ context.Context, uid, projectID string, doc model.ProjectDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("store unavailable")
	}
	for i, p := range m.projects[uid] {
		if p.ID == projectID {
			m.projects[uid][i] = model.FromDocument(projectID, doc)
		}
	}
	return nil
}

func (m *memoryDocs) Delete(_ context.Context, uid, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := []model.Project{}
	for _, p := range m.projects[uid] {
		if p.ID != projectID {
			kept = append(kept, p)
		}
	}
	m.projects[uid] = kept
	return nil
}

func (m *memoryDocs) Subscribe(ctx context.Context, uid string) (<-chan []model.Project, error) {
	ch := make(chan []model.Project, 1)
	projects, _ := m.LoadAll(ctx, uid)
	ch <- projects
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

type staticObjects struct{}

func (staticObjects) Upload(_ context.Context, f gallery.File) (string, error) {
	return "https://cdn.example/" + f.Name, nil
}

type testServer struct {
	router *Router
	docs   *memoryDocs
	users  *memoryUsers
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	docs := &memoryDocs{projects: map[string][]model.Project{}}
	registry := gallery.NewRegistry(docs, staticObjects{}, logger)
	users := &memoryUsers{users: map[string]*model.User{}}
	accounts := auth.NewService(users, "secret", time.Hour, logger)

	router := NewRouter(
		handler.NewAuthHandler(accounts, registry, logger),
		handler.NewProjectHandler(registry, logger),
		handler.NewBoardHandler(registry, logger),
		accounts,
		[]ReadinessCheck{{Name: "db", Check: func(context.Context) error { return nil }}},
		logger,
	)
	return &testServer{router: router, docs: docs, users: users}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.Engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/register", "", map[string]string{
		"fullName": "Ana", "email": "ana@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/login", "", map[string]string{
		"email": "ana@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode(t, w)["token"].(string)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/readyz", "", nil).Code)

	w := s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTraceHeaderIsEchoed(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Trace-ID", "abc123")
	w := httptest.NewRecorder()
	s.router.Engine.ServeHTTP(w, req)
	assert.Equal(t, "abc123", w.Header().Get("X-Trace-ID"))

	w = s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/projects", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/board", "not-a-token", nil).Code)
}

func TestViewerRoleIsReadOnly(t *testing.T) {
	s := newTestServer(t)
	hash, err := util.HashPassword("secret1")
	require.NoError(t, err)
	require.NoError(t, s.users.CreateUser(context.Background(), &model.User{
		ID: "viewer-1", Email: "guest@example.com", FullName: "Guest", Role: rbac.RoleViewer, PasswordHash: hash,
	}))

	w := s.do(t, http.MethodPost, "/login", "", map[string]string{"email": "guest@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := decode(t, w)["token"].(string)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/projects", token, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/board", token, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/projects", token, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPut, "/active", token, map[string]any{"title": "x"}).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodDelete, "/active", token, nil).Code)
	assert.Empty(t, s.docs.projects["viewer-1"])
}

func TestLoginRejectsBadPassword(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	w := s.do(t, http.MethodPost, "/login", "", map[string]string{"email": "ana@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/register", "", map[string]string{"fullName": "Ana", "email": "ana@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/register", "", map[string]string{"fullName": "Bo", "email": "bo@example.com", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjectLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)

	w := s.do(t, http.MethodGet, "/active", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/projects", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)["project"].(map[string]any)
	id := created["id"].(string)

	w = s.do(t, http.MethodPost, "/active/criteria", token, map[string]string{"text": "ab"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "TOO_SHORT", decode(t, w)["code"])

	w = s.do(t, http.MethodPost, "/active/criteria", token, map[string]string{"text": "Frame repaired"})
	require.Equal(t, http.StatusOK, w.Code)
	criteria := decode(t, w)["project"].(map[string]any)["acceptanceCriteria"].([]any)
	require.Len(t, criteria, 1)
	criterionID := criteria[0].(map[string]any)["id"].(string)

	w = s.do(t, http.MethodPost, "/active/milestones", token, map[string]string{"name": "Late", "date": "2999-01-01"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "OUT_OF_RANGE", decode(t, w)["code"])

	w = s.do(t, http.MethodDelete, "/active/criteria/"+criterionID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPut, "/active", token, map[string]any{"title": "Retablo", "body": "Cleaning"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	saved := decode(t, w)
	assert.Equal(t, []any{"no acceptance criteria defined"}, saved["warnings"])
	assert.Equal(t, "Retablo, updated successfully", saved["savedMessage"])

	w = s.do(t, http.MethodPut, "/active", token, map[string]any{"title": "x", "startDate": 200, "endDate": 100})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "RANGE_INVALID", decode(t, w)["code"])

	w = s.do(t, http.MethodGet, "/projects", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	projects := decode(t, w)["projects"].([]any)
	require.Len(t, projects, 1)
	assert.Equal(t, "Retablo", projects[0].(map[string]any)["title"])

	w = s.do(t, http.MethodPost, "/projects/"+id+"/select", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodPost, "/projects/missing/select", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, "/active", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode(t, w)["deleted"])
	assert.Empty(t, s.docs.projects[decodeUID(t, s)])
}

func decodeUID(t *testing.T, s *testServer) string {
	t.Helper()
	for uid := range s.docs.projects {
		return uid
	}
	return ""
}

func TestUploadImages(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/projects", token, nil).Code)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, name := range []string{"a.jpg", "b.jpg"} {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, _ = part.Write([]byte("data"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/active/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.Engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []any{"https://cdn.example/a.jpg", "https://cdn.example/b.jpg"}, decode(t, w)["urls"])

	w = s.do(t, http.MethodGet, "/active", token, nil)
	active := decode(t, w)["project"].(map[string]any)
	assert.Len(t, active["imagesUrls"], 2)
}

func TestCollaboratorFailureMapsToBadGateway(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)
	s.docs.fail = true

	w := s.do(t, http.MethodPost, "/projects", token, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestBoard(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/projects", token, nil).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/active", token, map[string]any{
		"title": "Mural", "body": strings.Repeat("x", 40),
	}).Code)

	w := s.do(t, http.MethodGet, "/board?tier=amber", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	board := decode(t, w)
	assert.Len(t, board["entries"], 1)
	assert.Equal(t, map[string]any{"green": 0.0, "amber": 1.0, "red": 0.0}, board["counts"])

	w = s.do(t, http.MethodGet, "/board?tier=green", token, nil)
	assert.Empty(t, decode(t, w)["entries"])

	w = s.do(t, http.MethodGet, "/board?tier=purple", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBoardStream(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/projects", token, nil).Code)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/board/stream", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.Engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "event:board")
	assert.Contains(t, w.Body.String(), `"red":1`)
}

func TestLogoutResetsWorkspace(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/projects", token, nil).Code)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/logout", token, nil).Code)

	w := s.do(t, http.MethodGet, "/active", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/projects", token, nil)
	assert.Len(t, decode(t, w)["projects"], 1)
}
