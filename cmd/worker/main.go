package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"hiredup/internal/association"
	"hiredup/internal/config"
	"hiredup/internal/database"
	"hiredup/internal/jobs"
	"hiredup/internal/metrics"
	"hiredup/internal/storage"
	"hiredup/internal/tasks"
	"hiredup/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	log.Println("database connection ready for worker")

	// 快照只用于附带职位详情，加载失败时仍可落库。
	catalog := jobs.NewCatalog(nil)
	if source, err := storage.NewCatalogSource(cfg); err != nil {
		logger.Warn("catalog source unavailable, recording without snapshots", slog.Any("error", err))
	} else {
		refresher := jobs.NewRefresher(catalog, source, cfg.Catalog.RefreshCron, logger)
		if err := refresher.Refresh(context.Background()); err != nil {
			logger.Warn("load catalog failed, recording without snapshots", slog.Any("error", err))
		}
		if cfg.Catalog.RefreshCron != "" {
			if err := refresher.Start(context.Background()); err != nil {
				log.Fatalf("start catalog refresher: %v", err)
			}
			defer refresher.Stop()
		}
	}

	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr()}
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
	})

	handler := worker.NewAssociationTaskHandler(association.NewService(db), catalog, logger)

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMiddleware())
	mux.Handle(tasks.TypeAssociationRecord, handler)

	logger.Info("worker service started",
		slog.String("redis_addr", cfg.Redis.Addr()),
		slog.Int("concurrency", cfg.Worker.Concurrency),
	)
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
