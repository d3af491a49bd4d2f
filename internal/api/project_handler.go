package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"freelanceDesk/internal/database"
	"freelanceDesk/internal/errcode"
	"freelanceDesk/internal/lifecycle"
	"freelanceDesk/internal/store"
)

// ProjectHandler 负责项目的增删改查，写入前统一经过生命周期校验。
type ProjectHandler struct {
	store store.Store
	now   func() time.Time
}

// NewProjectHandler 构造 ProjectHandler。
func NewProjectHandler(st store.Store, now func() time.Time) *ProjectHandler {
	if now == nil {
		now = time.Now
	}
	return &ProjectHandler{store: st, now: now}
}

type createProjectRequest struct {
	ClientID    uint      `json:"clientId" binding:"required"`
	Name        string    `json:"name" binding:"required"`
	Description *string   `json:"description"`
	Deadline    *flexTime `json:"deadline"`
	Amount      *float64  `json:"amount"`
	Volume      *float64  `json:"volume"`
	SourceLang  *string   `json:"sourceLang"`
	TargetLang  *string   `json:"targetLang"`
	Status      *string   `json:"status"`
	InvoiceSent bool      `json:"invoiceSent"`
	IsPaid      bool      `json:"isPaid"`
	IsArchived  bool      `json:"isArchived"`
}

type updateProjectRequest struct {
	ClientID    *uint              `json:"clientId"`
	Name        *string            `json:"name"`
	Description Nullable[string]   `json:"description"`
	Deadline    Nullable[flexTime] `json:"deadline"`
	Amount      Nullable[float64]  `json:"amount"`
	Volume      Nullable[float64]  `json:"volume"`
	SourceLang  Nullable[string]   `json:"sourceLang"`
	TargetLang  Nullable[string]   `json:"targetLang"`
	Status      *string            `json:"status"`
	InvoiceSent *bool              `json:"invoiceSent"`
	IsPaid      *bool              `json:"isPaid"`
	IsArchived  *bool              `json:"isArchived"`
}

// projectView 在项目字段之外附带紧急度与标签。
// 列表使用互斥标签，详情使用可叠加标签。
type projectView struct {
	database.Project
	Urgency int               `json:"urgency"`
	Labels  []lifecycle.Label `json:"labels"`
}

// ListProjects 按紧急度升序返回项目，可按 clientId 过滤。
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	var filter store.ProjectFilter
	if raw := strings.TrimSpace(c.Query("clientId")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			respondError(c, errcode.Invalid("clientId", "invalid id"))
			return
		}
		clientID := uint(id)
		filter.ClientID = &clientID
	}

	projects, err := h.store.ListProjects(c.Request.Context(), filter)
	if err != nil {
		Internal(c, "failed to list projects", err)
		return
	}

	now := h.now()
	lifecycle.SortByUrgency(projects, database.Project.State, now)

	items := make([]projectView, 0, len(projects))
	for _, p := range projects {
		state := p.State()
		items = append(items, projectView{
			Project: p,
			Urgency: lifecycle.UrgencyScore(state, now),
			Labels:  lifecycle.Labels(state, now, lifecycle.ModeExclusive),
		})
	}
	c.JSON(http.StatusOK, items)
}

// GetProject 返回项目详情。
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	project, err := h.store.GetProject(c.Request.Context(), id)
	if err != nil {
		respondProjectLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.detail(*project))
}

// CreateProject 创建项目，客户必须存在。
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	project := database.Project{
		ClientID:    req.ClientID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Deadline:    req.Deadline.timePtr(),
		Amount:      req.Amount,
		Volume:      req.Volume,
		SourceLang:  req.SourceLang,
		TargetLang:  req.TargetLang,
		Status:      lifecycle.StatusInProgress,
		InvoiceSent: req.InvoiceSent,
		IsPaid:      req.IsPaid,
		IsArchived:  req.IsArchived,
	}

	fields := map[string]string{}
	if req.Status != nil {
		status, err := lifecycle.ParseStatus(*req.Status)
		if err != nil {
			mergeFields(fields, err)
		}
		project.Status = status
	}
	checkProjectFields(project, fields)
	if len(fields) > 0 {
		respondError(c, errcode.InvalidFields("validation failed", fields))
		return
	}
	if err := lifecycle.ValidateState(project.State()); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetClient(ctx, project.ClientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "client not found")
			return
		}
		Internal(c, "failed to load client", err)
		return
	}

	if err := h.store.CreateProject(ctx, &project); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "client not found")
			return
		}
		Internal(c, "failed to create project", err)
		return
	}
	c.JSON(http.StatusCreated, h.detail(project))
}

// UpdateProject 合并请求字段后整体校验，校验失败时不写入任何字段。
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	var req updateProjectRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	project, err := h.store.GetProject(ctx, id)
	if err != nil {
		respondProjectLookupError(c, err)
		return
	}

	fields := map[string]string{}
	if req.ClientID != nil {
		project.ClientID = *req.ClientID
	}
	if req.Name != nil {
		project.Name = strings.TrimSpace(*req.Name)
	}
	req.Description.applyTo(&project.Description)
	if req.Deadline.Set {
		project.Deadline = req.Deadline.Value.timePtr()
	}
	req.Amount.applyTo(&project.Amount)
	req.Volume.applyTo(&project.Volume)
	req.SourceLang.applyTo(&project.SourceLang)
	req.TargetLang.applyTo(&project.TargetLang)
	if req.Status != nil {
		status, err := lifecycle.ParseStatus(*req.Status)
		if err != nil {
			mergeFields(fields, err)
		} else {
			project.Status = status
		}
	}
	if req.InvoiceSent != nil {
		project.InvoiceSent = *req.InvoiceSent
	}
	if req.IsPaid != nil {
		project.IsPaid = *req.IsPaid
	}
	if req.IsArchived != nil {
		project.IsArchived = *req.IsArchived
	}

	checkProjectFields(*project, fields)
	if len(fields) > 0 {
		respondError(c, errcode.InvalidFields("validation failed", fields))
		return
	}
	if err := lifecycle.ValidateState(project.State()); err != nil {
		respondError(c, err)
		return
	}

	if req.ClientID != nil {
		if _, err := h.store.GetClient(ctx, project.ClientID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				NotFound(c, "client not found")
				return
			}
			Internal(c, "failed to load client", err)
			return
		}
	}

	if err := h.store.UpdateProject(ctx, project); err != nil {
		respondProjectLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.detail(*project))
}

// DeleteProject 删除项目。
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.store.DeleteProject(c.Request.Context(), id); err != nil {
		respondProjectLookupError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProjectHandler) detail(p database.Project) projectView {
	now := h.now()
	state := p.State()
	return projectView{
		Project: p,
		Urgency: lifecycle.UrgencyScore(state, now),
		Labels:  lifecycle.Labels(state, now, lifecycle.ModeAccumulating),
	}
}

// checkProjectFields 校验与生命周期无关的字段。
func checkProjectFields(p database.Project, fields map[string]string) {
	if p.ClientID == 0 {
		fields["clientId"] = "is required"
	}
	if p.Name == "" {
		fields["name"] = "is required"
	}
	if p.Amount != nil && *p.Amount < 0 {
		fields["amount"] = "must not be negative"
	}
	if p.Volume != nil && *p.Volume < 0 {
		fields["volume"] = "must not be negative"
	}
}

func mergeFields(fields map[string]string, err error) {
	if e, ok := errcode.As(err); ok {
		for k, v := range e.Fields {
			fields[k] = v
		}
	}
}

func respondProjectLookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		NotFound(c, "project not found")
	default:
		respondError(c, err)
	}
}
