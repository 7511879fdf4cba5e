package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	config "github.com/NordCoder/Recipebox/internal/config/api-gateway"
	"github.com/NordCoder/Recipebox/internal/obs"
	"github.com/NordCoder/Recipebox/internal/obs/retry"
	"github.com/NordCoder/Recipebox/internal/outbox"
	kafkax "github.com/NordCoder/Recipebox/internal/repository/kafka"
	pg "github.com/NordCoder/Recipebox/internal/repository/postgres"
	"github.com/NordCoder/Recipebox/internal/services/api-gateway/auth"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "../config/api-gateway.yaml"
	}
	cfg, err := config.Load(rootCtx, cfgPath)
	if err != nil {
		panic(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting api-gateway", zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version))

	otelShutdown, err := initOTel(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	var db *pg.DB
	if cfg.NeedsPostgres() {
		db, err = initDB(rootCtx, cfg, logger)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer db.Close()
	}

	var rdb *goredis.Client
	if cfg.Auth.Store == config.StoreRedis {
		rdb, err = initRedis(rootCtx, cfg, logger)
		if err != nil {
			logger.Fatal("redis connect", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
	}

	st, err := buildStores(cfg, logger, db, rdb)
	if err != nil {
		logger.Fatal("build stores", zap.Error(err))
	}
	uc, err := buildUsecase(cfg, logger, st)
	if err != nil {
		logger.Fatal("build usecase", zap.Error(err))
	}

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, st.health, logger)

	var workers sync.WaitGroup
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	workers.Add(1)
	go func() {
		defer workers.Done()
		auth.RunJanitor(workerCtx, uc, cfg.Auth.PurgeInterval, logger)
	}()

	if cfg.Notify.Mode == config.NotifyOutbox {
		producer := kafkax.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic).WithLogger(logger)
		defer func() { _ = producer.Close() }()
		runner := outbox.NewRunner(logger, st.outbox,
			outbox.MakeGlobalHandler(kafkax.NewAccountEventsKafka(producer), retry.DefaultKafkaPolicy(logger)),
			cfg.Outbox)
		workers.Add(1)
		go func() {
			defer workers.Done()
			runner.Run(workerCtx)
		}()
	}

	httpSrv := buildHTTPServer(cfg, logger, auth.NewServer(uc, auth.Opts{Realm: cfg.Auth.Realm, Logger: logger}))
	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, logger) }()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal", zap.String("reason", "context canceled"))
	case err := <-httpErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	_ = httpSrv.Shutdown(shCtx)
	uc.Wait()
	stopWorkers()
	workers.Wait()
	_ = ms.Shutdown(shCtx)
	logger.Info("bye")
}
