package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hiredup/internal/api/middleware"
	"hiredup/internal/association"
	"hiredup/internal/jobs"
	"hiredup/internal/jobstate"
	"hiredup/internal/metrics"
	"hiredup/internal/notify"
	"hiredup/internal/slots"
)

const similarJobsLimit = 3

// JobsHandler 提供职位检索、详情与关联落库接口。
type JobsHandler struct {
	catalog      *jobs.Catalog
	slots        slots.Store
	notifier     notify.Notifier
	associations *association.Service
}

func NewJobsHandler(catalog *jobs.Catalog, store slots.Store, notifier notify.Notifier, associations *association.Service) *JobsHandler {
	return &JobsHandler{
		catalog:      catalog,
		slots:        store,
		notifier:     notifier,
		associations: associations,
	}
}

// Search 按查询参数过滤目录，保持目录顺序。
func (h *JobsHandler) Search(c *gin.Context) {
	criteria := jobs.CriteriaFromQuery(c.Request.URL.Query())
	results := nonNil(h.catalog.Search(criteria))
	metrics.ObserveSearch(len(results))

	c.JSON(http.StatusOK, gin.H{
		"jobs":  results,
		"total": len(results),
	})
}

func (h *JobsHandler) Categories(c *gin.Context) {
	categories := h.catalog.Categories()
	if categories == nil {
		categories = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

type salaryRange struct {
	Low  int64 `json:"low"`
	High int64 `json:"high"`
}

type jobDetailResponse struct {
	Job         jobs.Job     `json:"job"`
	Similar     []jobs.Job   `json:"similar"`
	SalaryRange *salaryRange `json:"salary_range,omitempty"`
	Saved       bool         `json:"saved"`
	Applied     bool         `json:"applied"`
}

// Detail 返回职位详情与相似职位；已登录时附带收藏/投递状态。
func (h *JobsHandler) Detail(c *gin.Context) {
	job, ok := h.catalog.Get(c.Param("id"))
	if !ok {
		NotFound(c, jobs.ErrJobNotFound.Error())
		return
	}

	resp := jobDetailResponse{
		Job:     job,
		Similar: nonNil(h.catalog.Similar(job, similarJobsLimit)),
	}
	if low, high, ok := jobs.ParseSalary(job.Salary); ok {
		resp.SalaryRange = &salaryRange{Low: low, High: high}
	}

	if userID, ok := middleware.UserIDFromContext(c); ok {
		state := jobstate.Load(c.Request.Context(), h.slots, userID, h.notifier, middleware.LoggerFromContext(c))
		resp.Saved = state.IsSaved(job.ID)
		resp.Applied = state.IsApplied(job.ID)
	}

	c.JSON(http.StatusOK, resp)
}

type associationRequest struct {
	JobID string `json:"jobId"`
}

// RecordAssociation 处理 POST /v1/jobs/:type，类型为 SAVED 或 APPLIED（大小写不敏感）。
func (h *JobsHandler) RecordAssociation(c *gin.Context) {
	rawUserID, _ := middleware.UserIDFromContext(c)
	logger := middleware.LoggerFromContext(c)

	userID, err := strconv.ParseUint(rawUserID, 10, 64)
	if err != nil {
		logger.Warn("user id is not numeric", slog.String("user_id", rawUserID))
		BadRequest(c, "user id is not numeric")
		return
	}

	var req associationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}

	typ, err := association.ParseType(c.Param("type"))
	if err != nil {
		badAssociation(c, err)
		return
	}

	var snapshot *jobs.Job
	if job, ok := h.catalog.Get(req.JobID); ok {
		snapshot = &job
	}

	record, created, err := h.associations.Record(c.Request.Context(), uint(userID), req.JobID, typ, snapshot)
	if err != nil {
		if badAssociation(c, err) {
			return
		}
		logger.Error("record association failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !created {
		c.JSON(http.StatusOK, gin.H{"message": "Already exists"})
		return
	}
	c.JSON(http.StatusCreated, record)
}

// badAssociation 将校验错误映射为 400，返回是否已写出响应。
func badAssociation(c *gin.Context, err error) bool {
	var verr *association.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	BadRequest(c, verr.Message)
	return true
}
