package main

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	config "github.com/NordCoder/Recipebox/internal/config/api-gateway"
	pg "github.com/NordCoder/Recipebox/internal/repository/postgres"
	redisrepo "github.com/NordCoder/Recipebox/internal/repository/redis"
	"github.com/NordCoder/Recipebox/migrations"
)

func initDB(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pg.DB, error) {
	if cfg.DB.AutoMigrate {
		if err := pg.Migrate(ctx, cfg.DB.DSN, migrations.FS, "up"); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
		logger.Info("migrations applied")
	}
	db, err := pg.New(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	logger.Info("db connected")
	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*goredis.Client, error) {
	rdb, err := redisrepo.NewClient(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	return rdb, nil
}
