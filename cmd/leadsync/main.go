package main

import (
	"context"
	"os/signal"
	"syscall"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/leadsync"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/prometheus"
	"go.uber.org/zap"
)

func main() {
	err := config.Load()
	if err != nil {
		logging.Logger.Fatal("failed to load config", zap.String("error", err.Error()))
	}

	err = logging.Init(config.Conf.LogLevel, config.Conf.LogFilePath)
	if err != nil {
		logging.Logger.Fatal("failed to initialize logger", zap.String("error", err.Error()))
	}

	defer func() { _ = logging.Logger.Sync() }()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go prometheus.Run(rootCtx)

	for {
		ctx, cancel := context.WithCancel(rootCtx)

		app, err := leadsync.NewApp(cancel)
		if err != nil {
			logging.Logger.Fatal("failed to create leadsync app", zap.String("error", err.Error()))
		}

		err = app.Run(ctx)
		cancel()

		if err != nil {
			logging.Logger.Fatal("leadsync app stopped with error", zap.String("error", err.Error()))
		}

		if rootCtx.Err() != nil {
			logging.Logger.Info("shutdown signal received, exiting")
			return
		}

		if !app.HealthCheckerService.Check(rootCtx) {
			return
		}
	}
}
