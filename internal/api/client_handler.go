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

// ClientHandler 负责客户的增删改查。
type ClientHandler struct {
	store store.Store
}

// NewClientHandler 构造 ClientHandler。
func NewClientHandler(st store.Store) *ClientHandler {
	return &ClientHandler{store: st}
}

type createClientRequest struct {
	Name      string  `json:"name" binding:"required"`
	Email     string  `json:"email" binding:"required,email"`
	Company   *string `json:"company"`
	Languages *string `json:"languages"`
}

type updateClientRequest struct {
	Name      *string          `json:"name"`
	Email     *string          `json:"email" binding:"omitempty,email"`
	Company   Nullable[string] `json:"company"`
	Languages Nullable[string] `json:"languages"`
}

// ListClients 返回全部客户。
func (h *ClientHandler) ListClients(c *gin.Context) {
	clients, err := h.store.ListClients(c.Request.Context())
	if err != nil {
		Internal(c, "failed to list clients", err)
		return
	}
	c.JSON(http.StatusOK, clients)
}

// GetClient 返回单个客户。
func (h *ClientHandler) GetClient(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	client, err := h.store.GetClient(c.Request.Context(), id)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// CreateClient 创建客户。
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req createClientRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondError(c, errcode.Invalid("name", "is required"))
		return
	}

	client := database.Client{
		Name:      name,
		Email:     strings.TrimSpace(req.Email),
		Company:   req.Company,
		Languages: req.Languages,
	}
	if err := h.store.CreateClient(c.Request.Context(), &client); err != nil {
		Internal(c, "failed to create client", err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

// UpdateClient 按字段部分更新客户。
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	var req updateClientRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	client, err := h.store.GetClient(ctx, id)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			respondError(c, errcode.Invalid("name", "must not be empty"))
			return
		}
		client.Name = name
	}
	if req.Email != nil {
		client.Email = strings.TrimSpace(*req.Email)
	}
	req.Company.applyTo(&client.Company)
	req.Languages.applyTo(&client.Languages)

	if err := h.store.UpdateClient(ctx, client); err != nil {
		h.respondLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// DeleteClient 删除客户，仍有项目引用时返回 409。
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.store.DeleteClient(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, store.ErrClientHasProjects):
			Conflict(c, "client still has projects, delete or reassign them first")
		default:
			h.respondLookupError(c, err)
		}
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ClientHandler) respondLookupError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		NotFound(c, "client not found")
		return
	}
	Internal(c, "failed to access client", err)
}
