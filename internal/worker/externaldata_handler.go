package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"freelanceDesk/internal/store"
	"freelanceDesk/internal/tasks"
)

// ExternalDataHandler 消费 webhook 数据处理任务，处理完成后标记为已处理。
type ExternalDataHandler struct {
	store  store.Store
	logger *slog.Logger
}

// NewExternalDataHandler 创建任务处理器。
func NewExternalDataHandler(st store.Store, logger *slog.Logger) *ExternalDataHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExternalDataHandler{store: st, logger: logger}
}

// ProcessTask 实现 asynq.Handler。
func (h *ExternalDataHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	var payload tasks.ExternalDataProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("decode payload: %w: %w", err, asynq.SkipRetry)
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("data_id", uint64(payload.DataID)),
	)

	defer func() {
		if retErr != nil && isFinalAsynqAttempt(ctx) {
			log.Error("external data processing gave up", slog.Any("error", retErr))
		}
	}()

	data, err := h.store.GetExternalData(ctx, payload.DataID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("external data not found, skipping task")
			return nil
		}
		return fmt.Errorf("load external data: %w", err)
	}
	if data.Processed {
		log.Info("external data already processed")
		return nil
	}

	keys, err := topLevelKeys(data.Content)
	if err != nil {
		// 内容无法解析也视为已处理，重试不会改变结果。
		log.Warn("external data content is not a json object", slog.Any("error", err))
	}

	if err := h.store.MarkExternalDataProcessed(ctx, data.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("external data deleted during processing")
			return nil
		}
		return fmt.Errorf("mark external data processed: %w", err)
	}

	log.Info("external data processed",
		slog.String("source", data.Source),
		slog.String("data_type", data.DataType),
		slog.Int("fields", len(keys)),
	)
	return nil
}

func topLevelKeys(content []byte) ([]string, error) {
	if len(content) == 0 {
		return nil, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(content, &obj); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	return keys, nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
