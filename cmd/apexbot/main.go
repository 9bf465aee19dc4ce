package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"apexid-bot/internal/app"
	"apexid-bot/internal/infra/config"
	"apexid-bot/internal/infra/logger"
)

func main() {
	// envPath определяет расположение .env с токеном бота и адресом API.
	envPath := flag.String("env", ".env", "path to .env file")
	flag.Parse()

	if err := config.Load(*envPath); err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	env := config.Env()
	logger.Init(env.LogLevel)
	if env.LogFile != "" {
		logger.EnableFile(logger.FileConfig{
			Path:       env.LogFile,
			Level:      env.LogFileLevel,
			MaxSizeMB:  env.LogFileMaxSize,
			MaxBackups: env.LogFileMaxBackups,
			MaxAgeDays: env.LogFileMaxAge,
			Compress:   env.LogFileCompress,
		})
	}
	for _, msg := range config.Warnings() {
		logger.Warn(msg)
	}

	// Контекст с обработкой системных сигналов (Ctrl+C/SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := app.NewApp()
	if err := a.Init(ctx, stop); err != nil {
		stop()
		logger.Fatal("app init failed", zap.Error(err))
	}

	if err := a.Run(); err != nil {
		stop()
		logger.Fatal("app run failed", zap.Error(err))
	}
	stop()
	logger.Info("Graceful shutdown complete")
}
