package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"hiredup/internal/association"
	"hiredup/internal/database"
	"hiredup/internal/jobs"
	"hiredup/internal/tasks"
)

type associationRecorder interface {
	Record(ctx context.Context, userID uint, jobID, typ string, snapshot *jobs.Job) (database.UserJob, bool, error)
}

type jobLookup interface {
	Get(id string) (jobs.Job, bool)
}

// AssociationTaskHandler 负责消费关联落库任务。
type AssociationTaskHandler struct {
	recorder associationRecorder
	catalog  jobLookup
	logger   *slog.Logger
}

// NewAssociationTaskHandler 创建任务处理器。catalog 用于附带职位快照，可为 nil。
func NewAssociationTaskHandler(recorder associationRecorder, catalog jobLookup, logger *slog.Logger) *AssociationTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssociationTaskHandler{recorder: recorder, catalog: catalog, logger: logger}
}

// ProcessTask 实现 asynq.Handler。
func (h *AssociationTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.AssociationRecordPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("user_id", uint64(payload.UserID)),
		slog.String("job_id", payload.JobID),
		slog.String("type", payload.Type),
	)

	var snapshot *jobs.Job
	if h.catalog != nil {
		if job, ok := h.catalog.Get(payload.JobID); ok {
			snapshot = &job
		} else {
			log.Warn("job not in catalog, recording without snapshot")
		}
	}

	_, created, err := h.recorder.Record(ctx, payload.UserID, payload.JobID, payload.Type, snapshot)
	if err != nil {
		var verr *association.ValidationError
		if errors.As(err, &verr) {
			log.Warn("association rejected", slog.String("reason", verr.Error()))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		log.Error("record association failed", slog.Any("error", err))
		return err
	}

	log.Info("association recorded", slog.Bool("created", created))
	return nil
}
