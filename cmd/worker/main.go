package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	contractsmq "artfolio/contracts/mq"
	"artfolio/internal/config"
	"artfolio/internal/mqhandler"
	"artfolio/internal/repository"
	"artfolio/pkg/logger"
	"artfolio/pkg/mq"
	"artfolio/pkg/otel"
	redisclient "artfolio/pkg/redis"
	"artfolio/pkg/util"

	"github.com/prometheus/client_golang/prometheus/promhttp"
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
		ServiceName: "artfolio-worker",
		Endpoint:    cfg.OTel.Endpoint,
		Enabled:     cfg.OTel.Enabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to init tracing", zap.Error(err))
	}
	defer shutdownTracing()

	rdb, err := redisclient.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	deduper := util.NewDeduper(rdb, cfg.Worker.DedupTTL(), log)
	healthIndex := repository.NewHealthIndex(rdb)
	projectHandler := mqhandler.NewProjectEventHandler(healthIndex, deduper, log)

	log.Info("Initializing MQ consumer...",
		zap.String("queue", cfg.Worker.Queue),
		zap.String("routing_key", contractsmq.RoutingKeyProjectAll),
	)
	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.Worker.Queue, contractsmq.RoutingKeyProjectAll, log)
	if err != nil {
		log.Fatal("Failed to init consumer", zap.Error(err))
	}
	defer consumer.Close()
	consumer.SetHandler(projectHandler.HandleProjectEvent)

	go func() {
		if err := consumer.StartConsuming(); err != nil {
			log.Fatal("Consumer failed", zap.Error(err))
		}
	}()

	// metrics
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			if !consumer.IsConnected() {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
		if err := http.ListenAndServe(":"+cfg.Worker.MetricsPort, mux); err != nil {
			log.Error("Metrics server stopped", zap.Error(err))
		}
	}()

	log.Info("Worker is running", zap.String("queue", cfg.Worker.Queue))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down worker...")
	consumer.Stop()
}
