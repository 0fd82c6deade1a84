package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/example/bakery-pos/internal/config"
	"github.com/example/bakery-pos/internal/infrastructure/kafka"
	"github.com/example/bakery-pos/internal/infrastructure/store"
	"github.com/example/bakery-pos/internal/logging"
	"github.com/example/bakery-pos/internal/projection"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if len(cfg.KafkaBrokers) == 0 {
		logger.Fatal("KAFKA_BROKERS is required")
	}
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.ConnectPostgres(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		logger.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer db.Close()

	readStore := store.NewPostgresReadStore(db)
	if err := readStore.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to prepare read store", zap.Error(err))
	}

	projector := projection.NewProjector(readStore, logger)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, "projector", logger)
	defer consumer.Close()

	logger.Info("projector started", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	if err := consumer.Consume(ctx, projector.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", zap.Error(err))
	}
	logger.Info("shutting down")
}
