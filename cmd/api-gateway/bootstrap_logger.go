package main

import (
	"go.uber.org/zap"

	config "github.com/NordCoder/Recipebox/internal/config/api-gateway"
	"github.com/NordCoder/Recipebox/internal/obs"
)

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return obs.NewLogger(cfg.AsLoggerConfig())
}
