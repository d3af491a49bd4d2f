package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"freelanceDesk/internal/database"
	"freelanceDesk/internal/errcode"
	"freelanceDesk/internal/store"
)

// ResumeHandler 负责简历与求职信的增删改查。
type ResumeHandler struct {
	store store.Store
}

// NewResumeHandler 构造 ResumeHandler。
func NewResumeHandler(st store.Store) *ResumeHandler {
	return &ResumeHandler{store: st}
}

type createResumeRequest struct {
	Name           string  `json:"name" binding:"required"`
	Type           string  `json:"type" binding:"required,oneof=resume cover_letter"`
	Content        string  `json:"content"`
	ProjectID      *uint   `json:"projectId"`
	TargetPosition *string `json:"targetPosition"`
	TargetCompany  *string `json:"targetCompany"`
}

type updateResumeRequest struct {
	Name           *string          `json:"name"`
	Type           *string          `json:"type" binding:"omitempty,oneof=resume cover_letter"`
	Content        *string          `json:"content"`
	ProjectID      Nullable[uint]   `json:"projectId"`
	TargetPosition Nullable[string] `json:"targetPosition"`
	TargetCompany  Nullable[string] `json:"targetCompany"`
}

// ListResumes 列出全部简历。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	resumes, err := h.store.ListResumes(c.Request.Context())
	if err != nil {
		Internal(c, "failed to list resumes", err)
		return
	}
	c.JSON(http.StatusOK, resumes)
}

// GetResume 返回指定 ID 的简历。
func (h *ResumeHandler) GetResume(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	resume, err := h.store.GetResume(c.Request.Context(), id)
	if err != nil {
		respondResumeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, resume)
}

// CreateResume 保存一份新的简历或求职信。
func (h *ResumeHandler) CreateResume(c *gin.Context) {
	var req createResumeRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondError(c, errcode.Invalid("name", "is required"))
		return
	}

	ctx := c.Request.Context()
	if req.ProjectID != nil {
		if _, err := h.store.GetProject(ctx, *req.ProjectID); err != nil {
			respondProjectLookupError(c, err)
			return
		}
	}

	resume := database.Resume{
		Name:           name,
		Type:           req.Type,
		Content:        req.Content,
		ProjectID:      req.ProjectID,
		TargetPosition: req.TargetPosition,
		TargetCompany:  req.TargetCompany,
	}
	if err := h.store.CreateResume(ctx, &resume); err != nil {
		Internal(c, "failed to create resume", err)
		return
	}
	c.JSON(http.StatusCreated, resume)
}

// UpdateResume 按字段部分更新简历。
func (h *ResumeHandler) UpdateResume(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	var req updateResumeRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	resume, err := h.store.GetResume(ctx, id)
	if err != nil {
		respondResumeLookupError(c, err)
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			respondError(c, errcode.Invalid("name", "must not be empty"))
			return
		}
		resume.Name = name
	}
	if req.Type != nil {
		resume.Type = *req.Type
	}
	if req.Content != nil {
		resume.Content = *req.Content
	}
	if req.ProjectID.Set && req.ProjectID.Value != nil {
		if _, err := h.store.GetProject(ctx, *req.ProjectID.Value); err != nil {
			respondProjectLookupError(c, err)
			return
		}
	}
	req.ProjectID.applyTo(&resume.ProjectID)
	req.TargetPosition.applyTo(&resume.TargetPosition)
	req.TargetCompany.applyTo(&resume.TargetCompany)

	if err := h.store.UpdateResume(ctx, resume); err != nil {
		respondResumeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, resume)
}

// DeleteResume 删除指定简历。
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.store.DeleteResume(c.Request.Context(), id); err != nil {
		respondResumeLookupError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func respondResumeLookupError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		NotFound(c, "resume not found")
		return
	}
	respondError(c, err)
}
