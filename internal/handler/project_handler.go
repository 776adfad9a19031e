package handler

import (
	"fmt"
	"io"
	"net/http"

	"artfolio/internal/service/gallery"
	"artfolio/internal/service/project"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxUploadBytes = 10 << 20

type ProjectHandler struct {
	registry *gallery.Registry
	logger   *zap.Logger
}

func NewProjectHandler(registry *gallery.Registry, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{registry: registry, logger: logger}
}

func (h *ProjectHandler) workspace(c *gin.Context) (*gallery.Workspace, bool) {
	uid, ok := userID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return nil, false
	}
	return h.registry.Get(uid), true
}

// ListProjects handles GET /projects，首次访问时从存储全量加载
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}

	state, err := ws.EnsureLoaded(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "load projects", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// CreateProject handles POST /projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}

	p, err := ws.Create(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "create project", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project": p})
}

// GetActive handles GET /active
func (h *ProjectHandler) GetActive(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}

	state := ws.Snapshot()
	if state.Active == nil {
		respondError(c, h.logger, "get active", gallery.ErrNoActiveProject)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"project":      state.Active,
		"milestones":   project.SortedMilestones(*state.Active),
		"isSaving":     state.IsSaving,
		"savedMessage": state.SavedMessage,
	})
}

// SelectProject handles POST /projects/:id/select
func (h *ProjectHandler) SelectProject(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}

	p, err := ws.Select(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "select project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p})
}

// AddCriterion handles POST /active/criteria
func (h *ProjectHandler) AddCriterion(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ws, ok := h.workspace(c)
	if !ok {
		return
	}

	p, err := ws.AddCriterion(req.Text)
	if err != nil {
		respondError(c, h.logger, "add criterion", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p})
}

// RemoveCriterion handles DELETE /active/criteria/:criterionId
func (h *ProjectHandler) RemoveCriterion(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}

	p, err := ws.RemoveCriterion(c.Param("criterionId"))
	if err != nil {
		respondError(c, h.logger, "remove criterion", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p})
}

// AddMilestone handles POST /active/milestones
func (h *ProjectHandler) AddMilestone(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Date        string `json:"date"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ws, ok := h.workspace(c)
	if !ok {
		return
	}

	p, err := ws.AddMilestone(req.Name, req.Date, req.Description)
	if err != nil {
		respondError(c, h.logger, "add milestone", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p, "milestones": project.SortedMilestones(p)})
}

// SaveActive handles PUT /active
func (h *ProjectHandler) SaveActive(c *gin.Context) {
	var form project.SaveForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ws, ok := h.workspace(c)
	if !ok {
		return
	}

	p, advisories, err := ws.Save(c.Request.Context(), form)
	if err != nil {
		respondError(c, h.logger, "save project", err)
		return
	}

	warnings := make([]string, 0, len(advisories))
	for _, a := range advisories {
		warnings = append(warnings, string(a))
	}
	c.JSON(http.StatusOK, gin.H{
		"project":      p,
		"warnings":     warnings,
		"savedMessage": ws.Snapshot().SavedMessage,
	})
}

// UploadImages handles POST /active/images (multipart, field "files")
func (h *ProjectHandler) UploadImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	var files []gallery.File
	for _, fh := range form.File["files"] {
		if fh.Size > maxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("%s is too large", fh.Filename)})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
			return
		}
		files = append(files, gallery.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	ws, ok := h.workspace(c)
	if !ok {
		return
	}

	urls, err := ws.Upload(c.Request.Context(), files)
	if err != nil {
		respondError(c, h.logger, "upload images", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"urls": urls})
}

// DeleteActive handles DELETE /active
func (h *ProjectHandler) DeleteActive(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}

	id, err := ws.Delete(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "delete project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
