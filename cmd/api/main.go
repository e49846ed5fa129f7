package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"hiredup/internal/api"
	"hiredup/internal/association"
	"hiredup/internal/auth"
	"hiredup/internal/config"
	"hiredup/internal/database"
	"hiredup/internal/jobs"
	"hiredup/internal/metrics"
	"hiredup/internal/notify"
	"hiredup/internal/session"
	"hiredup/internal/slots"
	"hiredup/internal/storage"
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
	log.Printf("database ready host=%s db=%s", cfg.Database.Host, cfg.Database.Name)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer asynqClient.Close()

	source, err := storage.NewCatalogSource(cfg)
	if err != nil {
		log.Fatalf("catalog source: %v", err)
	}
	catalog := jobs.NewCatalog(nil)
	refresher := jobs.NewRefresher(catalog, source, cfg.Catalog.RefreshCron, logger)
	refresher.OnRefresh = metrics.SetCatalogSize
	if err := refresher.Refresh(context.Background()); err != nil {
		log.Fatalf("load catalog: %v", err)
	}
	log.Printf("catalog loaded from %s: %d jobs", cfg.Catalog.Source, catalog.Len())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Catalog.RefreshCron != "" {
		if err := refresher.Start(ctx); err != nil {
			log.Fatalf("start catalog refresher: %v", err)
		}
		defer refresher.Stop()
	}

	authService, err := auth.NewAuthService([]byte(cfg.Auth.PrivateKeyPEM), []byte(cfg.Auth.PublicKeyPEM), cfg.Auth.AccessTokenTTL)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	slotStore := slots.NewRedisStore(redisClient, cfg.Slots.TTL)
	notifier := notify.NewRedisPublisher(redisClient, logger)

	var (
		verifier  session.Verifier
		registrar session.Registrar
	)
	switch cfg.Auth.Mode {
	case config.AuthModeDatabase:
		verifier = session.DatabaseVerifier{DB: db}
		registrar = session.DatabaseRegistrar{DB: db}
	default:
		verifier = session.FixedVerifier{}
		registrar = session.FixedRegistrar{}
	}
	log.Printf("auth mode: %s", cfg.Auth.Mode)

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, api.Dependencies{
		Catalog:      catalog,
		Refresher:    refresher,
		Slots:        slotStore,
		Notifier:     notifier,
		Associations: association.NewService(db),
		Tasks:        asynqClient,
		Auth:         authService,
		Gates: session.Factory{
			Slots:     slotStore,
			Verifier:  verifier,
			Registrar: registrar,
			Notifier:  notifier,
		},
		Redis:                 redisClient,
		Logger:                logger,
		AllowedOrigins:        cfg.API.Origins(),
		InternalSecret:        cfg.API.InternalSecret,
		LoginRateLimitPerHour: cfg.Auth.LoginRateLimitPerHour,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("api listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start api server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down api server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
}
