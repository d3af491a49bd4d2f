package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"freelanceDesk/internal/database"
	"freelanceDesk/internal/docgen"
	"freelanceDesk/internal/lifecycle"
	"freelanceDesk/internal/store"
)

const downloadLinkTTL = 15 * time.Minute

// DocumentHandler 负责发票、合同的增删改查与生成。
type DocumentHandler struct {
	store     store.Store
	documents *docgen.Service
}

// NewDocumentHandler 构造 DocumentHandler。
func NewDocumentHandler(st store.Store, documents *docgen.Service) *DocumentHandler {
	return &DocumentHandler{store: st, documents: documents}
}

type createDocumentRequest struct {
	Type      string `json:"type" binding:"required"`
	ProjectID *uint  `json:"projectId"`
	Content   string `json:"content" binding:"required"`
}

type updateDocumentRequest struct {
	Content string `json:"content" binding:"required"`
}

type generateDocumentRequest struct {
	Type      string `json:"type" binding:"required"`
	ProjectID uint   `json:"projectId" binding:"required"`
}

// ListDocuments 返回全部文档。
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	docs, err := h.store.ListDocuments(c.Request.Context())
	if err != nil {
		Internal(c, "failed to list documents", err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// GetDocument 返回单个文档。
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	doc, err := h.store.GetDocument(c.Request.Context(), id)
	if err != nil {
		respondDocumentLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// CreateDocument 保存手工录入的文档。
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	var req createDocumentRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	kind, err := lifecycle.ParseDocumentKind(req.Type)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	if req.ProjectID != nil {
		if _, err := h.store.GetProject(ctx, *req.ProjectID); err != nil {
			respondProjectLookupError(c, err)
			return
		}
	}

	doc := database.Document{Type: kind, ProjectID: req.ProjectID, Content: req.Content}
	if err := h.store.CreateDocument(ctx, &doc); err != nil {
		Internal(c, "failed to create document", err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// UpdateDocument 只允许替换正文。
func (h *DocumentHandler) UpdateDocument(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	var req updateDocumentRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	doc, err := h.store.GetDocument(ctx, id)
	if err != nil {
		respondDocumentLookupError(c, err)
		return
	}
	doc.Content = req.Content
	if err := h.store.UpdateDocument(ctx, doc); err != nil {
		respondDocumentLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// DeleteDocument 删除文档及其归档对象。
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.documents.Discard(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GenerateDocument 根据项目生成发票或合同。
func (h *DocumentHandler) GenerateDocument(c *gin.Context) {
	var req generateDocumentRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	doc, err := h.documents.Generate(c.Request.Context(), req.Type, req.ProjectID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// GetDownloadLink 返回已归档文档的限时下载链接。
func (h *DocumentHandler) GetDownloadLink(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	url, err := h.documents.DownloadLink(c.Request.Context(), id, downloadLinkTTL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"url":       url,
		"expiresIn": int(downloadLinkTTL.Seconds()),
	})
}

func respondDocumentLookupError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		NotFound(c, "document not found")
		return
	}
	respondError(c, err)
}
