package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"artfolio/internal/config"
	"artfolio/internal/handler"
	"artfolio/internal/httpserver"
	"artfolio/internal/repository"
	"artfolio/internal/service/auth"
	"artfolio/internal/service/gallery"
	"artfolio/internal/storage"
	"artfolio/pkg/db"
	"artfolio/pkg/logger"
	"artfolio/pkg/mq"
	"artfolio/pkg/otel"
	"artfolio/pkg/outbox"
	redisclient "artfolio/pkg/redis"

	"go.uber.org/zap"
)

func main() {
	log := logger.NewLogger()
	defer log.Sync()

	cfg, err := config.Load(os.Getenv("CONFIG_DIR"))
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	shutdownTracing, err := otel.Init(otel.Config{
		ServiceName: "artfolio-server",
		Endpoint:    cfg.OTel.Endpoint,
		Enabled:     cfg.OTel.Enabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to init tracing", zap.Error(err))
	}
	defer shutdownTracing()

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	// Redis
	rdb, err := redisclient.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	// MQ
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Repositories
	outboxRepo := outbox.NewRepository(dbConn)
	changeFeed := repository.NewChangeFeed(rdb, log)
	projectRepo := repository.NewProjectRepository(dbConn, outboxRepo, changeFeed, log)
	userRepo := repository.NewUserRepository(dbConn)

	// Services
	authService := auth.NewService(userRepo, cfg.JWT.Secret, cfg.JWT.TTL(), log)
	uploader := storage.NewUploader(cfg.Storage, log)
	registry := gallery.NewRegistry(projectRepo, uploader, log)

	// Outbox Dispatcher
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log).
		WithInterval(cfg.Outbox.Interval())
	if cfg.Outbox.BatchSize > 0 {
		dispatcher = dispatcher.WithBatchSize(cfg.Outbox.BatchSize)
	}
	if cfg.Outbox.MaxRetries > 0 {
		dispatcher = dispatcher.WithMaxRetries(cfg.Outbox.MaxRetries)
	}
	go dispatcher.Start(ctx)

	// Router
	router := httpserver.NewRouter(
		handler.NewAuthHandler(authService, registry, log),
		handler.NewProjectHandler(registry, log),
		handler.NewBoardHandler(registry, log),
		authService,
		[]httpserver.ReadinessCheck{
			{Name: "db", Check: dbConn.Ping},
			{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
			{Name: "mq", Check: func(context.Context) error {
				if !publisher.IsConnected() {
					return errors.New("publisher disconnected")
				}
				return nil
			}},
		},
		log,
	)

	srv := newHTTPServer(ctx, ":"+cfg.Server.Port, router.Engine)

	go func() {
		log.Info("HTTP server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	log.Info("Server shutdown complete")
}

// newHTTPServer 请求 context 派生自 ctx，cancel 后长连接（board 流）随之结束
func newHTTPServer(ctx context.Context, addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:        addr,
		Handler:     h,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
}
