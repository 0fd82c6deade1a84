package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/example/bakery-pos/internal/config"
	"github.com/example/bakery-pos/internal/email"
	"github.com/example/bakery-pos/internal/infrastructure/kafka"
	"github.com/example/bakery-pos/internal/logging"
	"github.com/example/bakery-pos/internal/notification"
	"go.uber.org/zap"
)

// consumerGroup is dedicated to receipts so every order is mailed once.
const consumerGroup = "receipt-notifier"

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	emailSvc := email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	handler := notification.NewHandler(emailSvc, logger)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, consumerGroup, logger)
	defer consumer.Close()

	logger.Info("notifier started",
		zap.String("topic", cfg.KafkaTopic),
		zap.String("smtp", cfg.SMTPHost+":"+cfg.SMTPPort),
		zap.String("from", cfg.SMTPFrom),
	)
	if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", zap.Error(err))
	}
	logger.Info("shutting down")
}
