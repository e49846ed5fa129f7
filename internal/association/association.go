// Package association records which jobs a user saved or applied to in
// PostgreSQL. It backs the POST /v1/jobs/:type route and the worker.
package association

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hiredup/internal/database"
	"hiredup/internal/jobs"
)

// ValidationError 表示调用方传入了非法的关联参数。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ParseType upper-cases raw and accepts SAVED or APPLIED.
func ParseType(raw string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(raw))
	switch t {
	case database.UserJobSaved, database.UserJobApplied:
		return t, nil
	}
	return "", &ValidationError{Field: "type", Message: "Invalid job type"}
}

// Service reads and writes user_jobs rows.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Record returns the existing association for (userID, jobID, typ) unchanged,
// or creates it. created reports which happened. snapshot may be nil.
func (s *Service) Record(ctx context.Context, userID uint, jobID, typ string, snapshot *jobs.Job) (database.UserJob, bool, error) {
	t, err := ParseType(typ)
	if err != nil {
		return database.UserJob{}, false, err
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return database.UserJob{}, false, &ValidationError{Field: "jobId", Message: "jobId is required"}
	}

	var existing database.UserJob
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND job_id = ? AND type = ?", userID, jobID, t).
		First(&existing).Error
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return database.UserJob{}, false, fmt.Errorf("find association: %w", err)
	}

	record := database.UserJob{UserID: userID, JobID: jobID, Type: t}
	if snapshot != nil {
		raw, err := json.Marshal(snapshot)
		if err != nil {
			return database.UserJob{}, false, fmt.Errorf("encode job snapshot: %w", err)
		}
		record.Snapshot = datatypes.JSON(raw)
	}

	// 并发写入同一关联时，唯一索引冲突由 DO NOTHING 吸收，随后回读已存在的记录。
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
	if result.Error != nil {
		return database.UserJob{}, false, fmt.Errorf("create association: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if err := s.db.WithContext(ctx).
			Where("user_id = ? AND job_id = ? AND type = ?", userID, jobID, t).
			First(&existing).Error; err != nil {
			return database.UserJob{}, false, fmt.Errorf("reload association: %w", err)
		}
		return existing, false, nil
	}
	return record, true, nil
}

// List returns a user's associations of one type, oldest first.
func (s *Service) List(ctx context.Context, userID uint, typ string) ([]database.UserJob, error) {
	t, err := ParseType(typ)
	if err != nil {
		return nil, err
	}
	var rows []database.UserJob
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND type = ?", userID, t).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list associations: %w", err)
	}
	return rows, nil
}
