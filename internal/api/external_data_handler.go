package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"freelanceDesk/internal/store"
)

// ExternalDataHandler 查询 webhook 数据并允许手工标记为已处理。
type ExternalDataHandler struct {
	store store.Store
}

// NewExternalDataHandler 构造 ExternalDataHandler。
func NewExternalDataHandler(st store.Store) *ExternalDataHandler {
	return &ExternalDataHandler{store: st}
}

func (h *ExternalDataHandler) ListExternalData(c *gin.Context) {
	items, err := h.store.ListExternalData(c.Request.Context())
	if err != nil {
		Internal(c, "failed to list external data", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *ExternalDataHandler) GetExternalData(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	item, err := h.store.GetExternalData(c.Request.Context(), id)
	if err != nil {
		respondExternalDataLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// MarkProcessed 把记录标记为已处理，重复调用结果相同。
func (h *ExternalDataHandler) MarkProcessed(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.store.MarkExternalDataProcessed(ctx, id); err != nil {
		respondExternalDataLookupError(c, err)
		return
	}
	item, err := h.store.GetExternalData(ctx, id)
	if err != nil {
		respondExternalDataLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func respondExternalDataLookupError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		NotFound(c, "external data not found")
		return
	}
	respondError(c, err)
}
