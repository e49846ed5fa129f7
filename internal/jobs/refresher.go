package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Refresher periodically reloads a Catalog from its Source.
type Refresher struct {
	cron    *cron.Cron
	catalog *Catalog
	source  Source
	spec    string
	logger  *slog.Logger

	// OnRefresh, when set, receives the catalog size after each successful reload.
	OnRefresh func(jobs int)
}

// NewRefresher 创建目录刷新器，spec 为 robfig/cron 表达式，例如 "@every 30m"。
func NewRefresher(catalog *Catalog, source Source, spec string, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		cron:    cron.New(),
		catalog: catalog,
		source:  source,
		spec:    spec,
		logger:  logger,
	}
}

// Start registers the reload job and starts the scheduler.
func (r *Refresher) Start(ctx context.Context) error {
	if _, err := r.cron.AddFunc(r.spec, func() {
		if err := r.Refresh(ctx); err != nil {
			r.logger.Error("catalog refresh failed", slog.Any("error", err))
		}
	}); err != nil {
		return fmt.Errorf("schedule catalog refresh %q: %w", r.spec, err)
	}
	r.cron.Start()
	r.logger.Info("catalog refresh scheduled", slog.String("spec", r.spec))
	return nil
}

// Stop waits for a running reload to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}

// Refresh 立即重新加载目录；加载失败时保留旧目录。
func (r *Refresher) Refresh(ctx context.Context) error {
	list, err := r.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	kept := r.catalog.Replace(list)
	if dropped := len(list) - kept; dropped > 0 {
		r.logger.Warn("catalog contained duplicate ids", slog.Int("dropped", dropped))
	}
	r.logger.Info("catalog refreshed", slog.Int("jobs", kept))
	if r.OnRefresh != nil {
		r.OnRefresh(kept)
	}
	return nil
}
