package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/taskboard/api/handler"
	"github.com/fastygo/taskboard/internal/config"
	boltInfra "github.com/fastygo/taskboard/internal/infrastructure/bolt"
	"github.com/fastygo/taskboard/internal/infrastructure/buffer"
	"github.com/fastygo/taskboard/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/taskboard/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/taskboard/internal/infrastructure/redis"
	"github.com/fastygo/taskboard/internal/middleware"
	"github.com/fastygo/taskboard/internal/router"
	"github.com/fastygo/taskboard/internal/services"
	"github.com/fastygo/taskboard/internal/services/lifecycle"
	"github.com/fastygo/taskboard/pkg/httpcontext"
	"github.com/fastygo/taskboard/pkg/logger"
	boltRepo "github.com/fastygo/taskboard/repository/bolt"
	"github.com/fastygo/taskboard/repository/postgres"
	redisRepo "github.com/fastygo/taskboard/repository/redis"
	actorUC "github.com/fastygo/taskboard/usecase/actor"
	auditUC "github.com/fastygo/taskboard/usecase/audit"
	authUC "github.com/fastygo/taskboard/usecase/auth"
	notificationUC "github.com/fastygo/taskboard/usecase/notification"
	taskUC "github.com/fastygo/taskboard/usecase/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	if cfg.JWT.Secret == "" {
		zapLogger.Warn("JWT_SECRET is empty; tokens are signed with an empty key")
	}

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.RegisterCloser("postgres", func() error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(appCtx, cfg.Redis, cfg.Realtime.ChannelPrefix+":health", zapLogger)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.RegisterCloser("redis", redisClient.Close)

	localDB, err := boltInfra.Open(cfg.Overlay.Path, boltRepo.OverlayBucket, buffer.Bucket)
	if err != nil {
		zapLogger.Fatal("failed to open overlay store", zap.Error(err))
	}
	manager.RegisterCloser("overlay", localDB.Close)
	outboxStore := buffer.New(localDB, buffer.Bucket)

	mon := monitor.New(pool, redisClient, localDB, outboxStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.RegisterCloser("monitor", func() error {
		mon.Stop()
		return nil
	})

	taskRepo := postgres.NewTaskRepository(pool)
	actorRepo := postgres.NewActorRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)
	deletedRepo := postgres.NewDeletedTaskRepository(pool)
	overlayRepo := boltRepo.NewOverlayRepository(localDB)
	sessionRepo := redisRepo.NewSessionRepository(redisClient, cfg.AppName+":session", cfg.JWT.TTL)

	channel := redisInfra.NewChannel(redisClient, cfg.Realtime.ChannelPrefix, zapLogger)

	bridge := services.NewChangeBridge(pool, channel, cfg.Realtime.NotifyChannel, cfg.Realtime.RetryInterval, zapLogger)
	bridge.Start(appCtx)
	manager.Register("change_bridge", bridge.Stop)

	outbox := services.NewAuditOutbox(outboxStore, mon, deletedRepo, zapLogger, services.OutboxConfig{
		Interval:   cfg.Outbox.Interval,
		BatchSize:  cfg.Outbox.BatchSize,
		MaxRetries: cfg.Outbox.MaxRetries,
	})
	outbox.Start()
	manager.Register("audit_outbox", func(ctx context.Context) error {
		outbox.Stop(ctx)
		return nil
	})

	resolver := actorUC.New(actorRepo, zapLogger)
	recorder := auditUC.New(deletedRepo, resolver, zapLogger, auditUC.WithFailureHook(outbox.Capture))

	registry := services.NewRegistry(services.WorkspaceDeps{
		Tasks: taskUC.Deps{
			Tasks:   taskRepo,
			Actors:  resolver,
			Auditor: recorder,
		},
		Notifications: notificationRepo,
		Overlay:       overlayRepo,
		Realtime:      channel,
		Logger:        zapLogger,
	}, services.WorkspaceConfig{
		IdleTTL:        cfg.Workspace.IdleTTL,
		ResyncInterval: cfg.Workspace.ResyncInterval,
	})
	registry.Start()
	manager.Register("workspaces", registry.Close)

	authUseCase := authUC.New(resolver, sessionRepo, cfg.JWT.Secret, cfg.JWT.Issuer, zapLogger)
	sender := notificationUC.NewSender(notificationRepo, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout, middleware.HeaderActorID)

	handlers := router.Handlers{
		Auth:         apiHandler.NewAuthHandler(authUseCase, resolver, ctxAdapter, zapLogger, cfg.JWT.TTL),
		Task:         apiHandler.NewTaskHandler(registry, ctxAdapter, zapLogger),
		Notification: apiHandler.NewNotificationHandler(registry, sender, ctxAdapter, zapLogger),
		Audit:        apiHandler.NewAuditHandler(recorder, ctxAdapter, zapLogger),
		Health:       apiHandler.NewHealthHandler(mon, registry, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(authUseCase, cfg.Context.RequestTimeout, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:            r.Handler,
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		MaxConnsPerIP:      cfg.HTTP.MaxConn,
		Name:               cfg.AppName,
		Logger:             zap.NewStdLog(zapLogger),
		MaxRequestBodySize: 1 << 20,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
