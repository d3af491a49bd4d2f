package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeExternalDataProcess = "externaldata:process"
)

// ExternalDataProcessPayload 描述处理一条 webhook 数据所需的信息。
type ExternalDataProcessPayload struct {
	DataID        uint   `json:"data_id"`
	Source        string `json:"source"`
	CorrelationID string `json:"correlation_id"`
}

// NewExternalDataProcessTask 构造外部数据处理任务。
func NewExternalDataProcessTask(id uint, source, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ExternalDataProcessPayload{
		DataID:        id,
		Source:        source,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeExternalDataProcess, payload), nil
}
