package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/guildboard/guildboard/internal/access"
	"github.com/guildboard/guildboard/internal/app"
	"github.com/guildboard/guildboard/internal/auth"
	"github.com/guildboard/guildboard/internal/discord"
	"github.com/guildboard/guildboard/internal/groups"
	"github.com/guildboard/guildboard/internal/guilds"
	"github.com/guildboard/guildboard/internal/observability"
	"github.com/guildboard/guildboard/internal/platform/cache"
	"github.com/guildboard/guildboard/internal/platform/db"
	"github.com/guildboard/guildboard/internal/shared"
	"github.com/guildboard/guildboard/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "guildboard_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)

	discordClient := discord.NewClient(cfg.DiscordAPIBaseURL, cfg.DiscordBotToken, cfg.DiscordHTTPTimeout)
	discordOAuth := discord.NewOAuth(discord.OAuthConfig{
		ClientID:     cfg.DiscordClientID,
		ClientSecret: cfg.DiscordClientSecret,
		RedirectURL:  cfg.DiscordRedirectURL,
	})

	metrics := observability.NewMetrics()
	accessMetrics := observability.NewAccessMetrics(metrics.Registerer())

	accessRepo := access.NewRepository(dbpool)
	accessCache := access.NewCache(cfg.AccessCacheSize, cfg.AccessCacheTTL)
	resolver := access.NewResolver(accessRepo, discordClient, accessCache, logger, accessMetrics)
	accessService := access.NewService(accessRepo, accessCache, auditLogger, logger)
	accessHandler := access.NewHandler(logger, accessService)
	accessGuard := access.Middleware{Resolver: resolver, Logger: logger}

	guildsRepo := guilds.NewRepository(dbpool)
	guildsService := guilds.NewService(guildsRepo, discordClient, auditLogger, logger)
	guildsHandler := guilds.NewHandler(logger, guildsService)

	groupsService := groups.NewService(groups.NewRepository(dbpool))
	groupsHandler := groups.NewHandler(logger, groupsService)

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, discordOAuth, discordClient, guildsService, accessService, jobsClient, logger)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    authHandler,
		AccessHandler:  accessHandler,
		AccessGuard:    accessGuard,
		GuildsHandler:  guildsHandler,
		GroupsHandler:  groupsHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
