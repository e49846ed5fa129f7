package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"hiredup/internal/api/middleware"
	"hiredup/internal/jobs"
)

type catalogRefresher interface {
	Refresh(ctx context.Context) error
}

// CatalogHandler exposes operator actions on the job catalog.
type CatalogHandler struct {
	catalog   *jobs.Catalog
	refresher catalogRefresher
}

func NewCatalogHandler(catalog *jobs.Catalog, refresher catalogRefresher) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, refresher: refresher}
}

// Refresh 立即从数据源重新加载目录；失败时旧目录保持不变。
func (h *CatalogHandler) Refresh(c *gin.Context) {
	if err := h.refresher.Refresh(c.Request.Context()); err != nil {
		middleware.LoggerFromContext(c).Error("manual catalog refresh failed", slog.Any("error", err))
		Error(c, http.StatusBadGateway, "catalog refresh failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": h.catalog.Len()})
}
