package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeAssociationRecord = "association:record"
)

// AssociationRecordPayload 描述一次收藏或投递需要落库的关联。
type AssociationRecordPayload struct {
	UserID        uint   `json:"user_id"`
	JobID         string `json:"job_id"`
	Type          string `json:"type"`
	CorrelationID string `json:"correlation_id"`
}

// NewAssociationRecordTask 构造关联落库任务。
func NewAssociationRecordTask(userID uint, jobID, typ, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(AssociationRecordPayload{
		UserID:        userID,
		JobID:         jobID,
		Type:          typ,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAssociationRecord, payload, asynq.MaxRetry(5)), nil
}
