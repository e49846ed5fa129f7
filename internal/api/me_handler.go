package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"hiredup/internal/api/middleware"
	"hiredup/internal/database"
	"hiredup/internal/jobs"
	"hiredup/internal/jobstate"
	"hiredup/internal/metrics"
	"hiredup/internal/notify"
	"hiredup/internal/slots"
	"hiredup/internal/tasks"
)

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// MeHandler 管理当前用户的收藏与投递列表。
type MeHandler struct {
	catalog  *jobs.Catalog
	slots    slots.Store
	notifier notify.Notifier
	tasks    taskEnqueuer
}

// NewMeHandler 构造处理器。tasks 为 nil 时不投递关联落库任务。
func NewMeHandler(catalog *jobs.Catalog, store slots.Store, notifier notify.Notifier, enqueuer taskEnqueuer) *MeHandler {
	return &MeHandler{
		catalog:  catalog,
		slots:    store,
		notifier: notifier,
		tasks:    enqueuer,
	}
}

type jobRefRequest struct {
	JobID string `json:"jobId" binding:"required"`
}

func (h *MeHandler) Save(c *gin.Context) {
	job, ok := h.bindJob(c)
	if !ok {
		return
	}

	state := h.load(c)
	added, err := state.Save(c.Request.Context(), job)
	if err != nil {
		middleware.LoggerFromContext(c).Error("persist saved jobs failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	metrics.ObserveJobState("save", added)
	if added {
		h.enqueueAssociation(c, job.ID, database.UserJobSaved)
	}

	c.JSON(http.StatusOK, gin.H{"saved": true, "changed": added, "job": job})
}

// Unsave 幂等地移除收藏，目录中不存在的 ID 同样返回成功。
func (h *MeHandler) Unsave(c *gin.Context) {
	jobID := c.Param("id")
	state := h.load(c)
	wasSaved := state.IsSaved(jobID)

	if err := state.Unsave(c.Request.Context(), jobID); err != nil {
		middleware.LoggerFromContext(c).Error("persist saved jobs failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	metrics.ObserveJobState("unsave", wasSaved)

	c.JSON(http.StatusOK, gin.H{"saved": false, "changed": wasSaved})
}

func (h *MeHandler) ListSaved(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": nonNil(h.load(c).Saved())})
}

// Apply 记录一次投递；重复投递返回 changed=false，不修改状态。
func (h *MeHandler) Apply(c *gin.Context) {
	job, ok := h.bindJob(c)
	if !ok {
		return
	}

	state := h.load(c)
	added, err := state.Apply(c.Request.Context(), job)
	if err != nil {
		middleware.LoggerFromContext(c).Error("persist applied jobs failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	metrics.ObserveJobState("apply", added)

	message := "Already applied"
	if added {
		message = "Application submitted!"
		h.enqueueAssociation(c, job.ID, database.UserJobApplied)
	}

	c.JSON(http.StatusOK, gin.H{"applied": true, "changed": added, "message": message, "job": job})
}

func (h *MeHandler) ListApplied(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": nonNil(h.load(c).Applied())})
}

func (h *MeHandler) bindJob(c *gin.Context) (jobs.Job, bool) {
	var req jobRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "jobId is required")
		return jobs.Job{}, false
	}
	job, ok := h.catalog.Get(req.JobID)
	if !ok {
		NotFound(c, jobs.ErrJobNotFound.Error())
		return jobs.Job{}, false
	}
	return job, true
}

func (h *MeHandler) load(c *gin.Context) *jobstate.Store {
	userID, _ := middleware.UserIDFromContext(c)
	return jobstate.Load(c.Request.Context(), h.slots, userID, h.notifier, middleware.LoggerFromContext(c))
}

// enqueueAssociation 异步写入 user_jobs；失败只记录日志，槽位中的状态已生效。
func (h *MeHandler) enqueueAssociation(c *gin.Context, jobID, typ string) {
	if h.tasks == nil {
		return
	}
	logger := middleware.LoggerFromContext(c)
	rawUserID, _ := middleware.UserIDFromContext(c)
	userID, err := strconv.ParseUint(rawUserID, 10, 64)
	if err != nil {
		logger.Warn("skip association task for non-numeric user id", slog.String("user_id", rawUserID))
		return
	}

	task, err := tasks.NewAssociationRecordTask(uint(userID), jobID, typ, middleware.GetCorrelationID(c))
	if err != nil {
		logger.Error("build association task failed", slog.Any("error", err))
		return
	}
	info, err := h.tasks.EnqueueContext(c.Request.Context(), task)
	if err != nil {
		logger.Error("enqueue association task failed", slog.Any("error", err))
		return
	}
	logger.Info("association task enqueued", slog.String("task_id", info.ID), slog.String("type", typ))
}

func nonNil(list []jobs.Job) []jobs.Job {
	if list == nil {
		return []jobs.Job{}
	}
	return list
}
