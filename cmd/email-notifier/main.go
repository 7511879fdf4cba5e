package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/NordCoder/Recipebox/internal/config/email-notifier"
	"github.com/NordCoder/Recipebox/internal/domain/notification"
	"github.com/NordCoder/Recipebox/internal/obs"
	"github.com/NordCoder/Recipebox/internal/repository/kafka"
	pg "github.com/NordCoder/Recipebox/internal/repository/postgres"
	notifier "github.com/NordCoder/Recipebox/internal/services/email-notifier"
	"github.com/NordCoder/Recipebox/internal/services/email-notifier/repo"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func buildSender(cfg *config.Config, l *zap.Logger) notification.EmailSender {
	if cfg.Sender == config.SenderSMTP {
		return notifier.NewMailer(cfg.SMTP).WithLogger(l)
	}
	return notifier.LogSender{Log: l}
}

func wiring(db *pg.DB, cfg *config.Config, cons *kafka.Consumer, l *zap.Logger) *notifier.Controller {
	uc := &notifier.Handler{
		Accounts:      repo.AccountReader{R: pg.NewAccountRepo(db)},
		Store:         repo.NotificationRepo{R: pg.NewNotificationRepo(db)},
		Out:           buildSender(cfg, l),
		Clock:         systemClock{},
		VerifyBaseURL: cfg.VerifyBaseURL,
		Log:           l,
	}
	return &notifier.Controller{Log: l, Sub: cons, UC: uc}
}

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "../config/email-notifier.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(cfg.Log)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()

	l.Info("starting email-notifier",
		zap.Strings("brokers", cfg.In.Brokers),
		zap.String("topic", cfg.In.Topic),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
		zap.String("sender", cfg.Sender),
	)

	otelCloser, err := obs.SetupOTel(rootCtx, &cfg.OTEL)
	if err != nil {
		l.Warn("otel init", zap.Error(err))
	} else {
		defer func() { _ = otelCloser.Shutdown(context.Background()) }()
	}

	db, err := pg.New(rootCtx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	l.Info("db connected")

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, db.Ping, l)

	cons := kafka.BootstrapConsumer(rootCtx, &kafka.ConsumerConfig{
		Brokers:       cfg.In.Brokers,
		GroupID:       cfg.In.GroupID,
		Topic:         cfg.In.Topic,
		FromBeginning: cfg.In.FromBeginning,
	}, l)
	defer func() { _ = cons.Close() }()

	ctrl := wiring(db, cfg, cons, l)
	errCh := make(chan error, 1)
	go func() {
		l.Info("controller starting")
		errCh <- ctrl.Run(rootCtx)
	}()

	select {
	case <-rootCtx.Done():
		l.Info("shutdown signal")
	case runErr := <-errCh:
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			l.Error("controller error", zap.Error(runErr))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
