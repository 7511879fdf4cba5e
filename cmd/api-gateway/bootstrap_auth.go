package main

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	authutil "github.com/NordCoder/Recipebox/internal/auth"
	config "github.com/NordCoder/Recipebox/internal/config/api-gateway"
	"github.com/NordCoder/Recipebox/internal/domain/account"
	domainauth "github.com/NordCoder/Recipebox/internal/domain/auth"
	"github.com/NordCoder/Recipebox/internal/domain/notification"
	"github.com/NordCoder/Recipebox/internal/obs"
	"github.com/NordCoder/Recipebox/internal/outbox"
	"github.com/NordCoder/Recipebox/internal/repository/memory"
	pg "github.com/NordCoder/Recipebox/internal/repository/postgres"
	redisrepo "github.com/NordCoder/Recipebox/internal/repository/redis"
	"github.com/NordCoder/Recipebox/internal/services/api-gateway/auth"
)

type stores struct {
	accounts account.Repo
	tokens   domainauth.RefreshTokenStore
	tx       domainauth.Transactor
	outbox   *pg.OutboxRepo
	health   obs.HealthFunc
}

func buildStores(cfg *config.Config, logger *zap.Logger, db *pg.DB, rdb *goredis.Client) (*stores, error) {
	s := &stores{}
	var checks []obs.HealthFunc
	if db != nil {
		checks = append(checks, db.Ping)
		s.outbox = pg.NewOutboxRepo(db)
	}
	if rdb != nil {
		checks = append(checks, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	s.health = obs.Healthy(checks...)

	switch cfg.Auth.Store {
	case config.StoreMemory:
		s.accounts = memory.NewAccountRepo(nil)
		s.tokens = memory.NewRefreshTokenStore(nil)
		s.tx = memory.PassthroughTransactor{}
	case config.StoreRedis:
		s.accounts = pg.NewAccountRepo(db)
		s.tokens = redisrepo.NewRefreshTokenStore(rdb, nil)
		s.tx = memory.PassthroughTransactor{}
	case config.StorePostgres:
		s.accounts = pg.NewAccountRepo(db)
		s.tokens = pg.NewRefreshTokenRepo(db)
		s.tx = pg.NewTransactor(db, logger)
	default:
		return nil, fmt.Errorf("unknown auth.store %q", cfg.Auth.Store)
	}
	logger.Info("credential store", zap.String("store", cfg.Auth.Store))
	return s, nil
}

func buildNotifier(cfg *config.Config, logger *zap.Logger, s *stores) notification.RegistrationNotifier {
	if cfg.Notify.Mode == config.NotifyOutbox && s.outbox != nil {
		return outbox.NewRegistrationNotifier(s.outbox)
	}
	return auth.NewLogNotifier(logger, cfg.Notify.VerifyBaseURL)
}

func buildUsecase(cfg *config.Config, logger *zap.Logger, s *stores) (*auth.Usecase, error) {
	hasher, err := authutil.NewBcryptHasher(cfg.Auth.BcryptCost, cfg.Auth.MaxConcurrentHashes)
	if err != nil {
		return nil, err
	}
	signer, err := authutil.NewSigner(authutil.SignerConfig{
		Secret:    []byte(cfg.Auth.JWTSecret),
		Issuer:    cfg.Auth.Issuer,
		Audience:  cfg.Auth.Audience,
		Realm:     cfg.Auth.Realm,
		AccessTTL: cfg.Auth.AccessTTL,
		VerifyTTL: cfg.Auth.VerifyTTL,
	})
	if err != nil {
		return nil, err
	}

	return auth.NewUseCase(auth.Deps{
		Accounts:  s.accounts,
		Tokens:    s.tokens,
		Tx:        s.tx,
		Hasher:    hasher,
		Signer:    signer,
		Generator: authutil.NewRandomTokenGenerator(),
		Notifier:  buildNotifier(cfg, logger, s),
		Logger:    logger,
	}, auth.Config{
		RefreshTTL:    cfg.Auth.RefreshTTL,
		NotifyTimeout: cfg.Notify.Timeout,
	}), nil
}
