package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/datatypes"

	"freelanceDesk/internal/api/middleware"
	"freelanceDesk/internal/database"
	"freelanceDesk/internal/errcode"
	"freelanceDesk/internal/metrics"
	"freelanceDesk/internal/store"
	"freelanceDesk/internal/tasks"
)

// TaskEnqueuer 是投递异步任务的能力，*asynq.Client 满足该接口。
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// WebhookHandler 接收外部系统推送的数据。
type WebhookHandler struct {
	store store.Store
	queue TaskEnqueuer
}

// NewWebhookHandler 构造 WebhookHandler，queue 为 nil 时只保存不投递。
func NewWebhookHandler(st store.Store, queue TaskEnqueuer) *WebhookHandler {
	return &WebhookHandler{store: st, queue: queue}
}

type webhookRequest struct {
	Source   string          `json:"source" binding:"required"`
	DataType string          `json:"dataType" binding:"required"`
	Content  json.RawMessage `json:"content" binding:"required"`
}

// ReceiveData 保存推送数据并投递处理任务。
func (h *WebhookHandler) ReceiveData(c *gin.Context) {
	var req webhookRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	source := strings.TrimSpace(req.Source)
	dataType := strings.TrimSpace(req.DataType)
	fields := map[string]string{}
	if source == "" {
		fields["source"] = "is required"
	}
	if dataType == "" {
		fields["dataType"] = "is required"
	}
	if len(bytes.TrimSpace(req.Content)) == 0 || bytes.Equal(bytes.TrimSpace(req.Content), []byte("null")) {
		fields["content"] = "is required"
	}
	if len(fields) > 0 {
		respondError(c, errcode.InvalidFields("validation failed", fields))
		return
	}

	ctx := c.Request.Context()
	data := database.ExternalData{
		Source:   source,
		DataType: dataType,
		Content:  datatypes.JSON(req.Content),
	}
	if err := h.store.CreateExternalData(ctx, &data); err != nil {
		Internal(c, "failed to store webhook data", err)
		return
	}

	log := middleware.LoggerFromContext(c).With(
		slog.Uint64("data_id", uint64(data.ID)),
		slog.String("source", source),
		slog.String("api_key", middleware.GetAPIKeyFingerprint(c)),
	)
	queued := false
	if h.queue != nil {
		task, err := tasks.NewExternalDataProcessTask(data.ID, source, middleware.GetCorrelationID(c))
		if err == nil {
			_, err = h.queue.Enqueue(task, asynq.MaxRetry(5))
		}
		if err != nil {
			// 数据已保存，可由 POST /api/external-data/:id/processed 手工处理。
			log.Error("enqueue external data processing failed", slog.Any("error", err))
		} else {
			queued = true
		}
	}
	metrics.ObserveWebhookReceived(queued)
	log.Info("webhook data received", slog.Bool("queued", queued))

	c.JSON(http.StatusCreated, gin.H{
		"message": "Data received successfully",
		"dataId":  data.ID,
	})
}
