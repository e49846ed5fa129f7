package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 关联类型，与持久化路由的 :type 参数一致。
const (
	UserJobSaved   = "SAVED"
	UserJobApplied = "APPLIED"
)

// User 表示数据库模式下的账号。
type User struct {
	gorm.Model
	Email        string    `gorm:"uniqueIndex;size:255"`
	Name         string    `gorm:"size:128"`
	PasswordHash string    `gorm:"size:255"`
	Jobs         []UserJob `gorm:"constraint:OnDelete:CASCADE"`
}

// UserJob records that a user saved or applied to a job. (UserID, JobID, Type)
// is unique.
type UserJob struct {
	gorm.Model
	UserID   uint           `gorm:"uniqueIndex:idx_user_job_type;not null" json:"userId"`
	JobID    string         `gorm:"uniqueIndex:idx_user_job_type;size:64;not null" json:"jobId"`
	Type     string         `gorm:"uniqueIndex:idx_user_job_type;size:16;not null" json:"type"`
	Snapshot datatypes.JSON `gorm:"type:jsonb" json:"snapshot,omitempty"`
}
