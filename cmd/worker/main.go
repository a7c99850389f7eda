package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/guildboard/guildboard/internal/access"
	"github.com/guildboard/guildboard/internal/app"
	"github.com/guildboard/guildboard/internal/guilds"
	"github.com/guildboard/guildboard/internal/platform/db"
	"github.com/guildboard/guildboard/internal/shared"
	"github.com/guildboard/guildboard/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	auditLogger := shared.NewAuditLogger(pool)

	accessRepo := access.NewRepository(pool)
	accessCache := access.NewCache(cfg.AccessCacheSize, cfg.AccessCacheTTL)
	accessService := access.NewService(accessRepo, accessCache, auditLogger, logger)

	guildsRepo := guilds.NewRepository(pool)

	roleCleanup := jobs.NewRoleCleanup(guildsRepo, accessRepo, auditLogger, logger)
	grantBackfill := jobs.NewGrantBackfill(accessService, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeRoleCleanup, Handler: roleCleanup.Handle},
			{Type: jobs.TaskTypeGrantBackfill, Handler: grantBackfill.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "45 3 * * *", Task: jobs.NewRoleCleanupTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting")
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
