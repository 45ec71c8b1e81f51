package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/flightbuddy/config"
	"github.com/Domenick1991/flightbuddy/internal/email"
	"github.com/Domenick1991/flightbuddy/internal/kafka"
	"github.com/Domenick1991/flightbuddy/internal/logger"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logg := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, logg)
	defer consumer.Close()

	sender := email.NewSender(logg)

	logg.WithField("topic", cfg.Kafka.NotificationsTopic).Info("notification worker started")
	if err := consumer.Consume(ctx, sender.Send); err != nil {
		logg.WithError(err).Error("consumer stopped")
		return
	}
	logg.Info("notification worker stopped")
}
