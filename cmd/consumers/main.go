package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fastpayment/cmd/consumers/jobs"
	"fastpayment/internal/clock"
	"fastpayment/internal/config"
	"fastpayment/internal/consumers"
	"fastpayment/internal/database"
	"fastpayment/internal/logger"
	"fastpayment/internal/repository"
	"fastpayment/internal/service"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	slog.Info("Starting consumers service...")

	// Override NATS client ID for consumers
	cfg.NATS.ClientID = "fastpayment-consumers"

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	repos := repository.NewRepositories(db)
	clk := clock.System()
	schedules := service.NewScheduleService(repos.Schedules, repos.Catalog, clk, cfg.Schedules)
	codes := service.NewOTPService(repos.OTP, repos.Persons, nil, nil, nil, clk, cfg.OTP)

	sweep := jobs.NewSweepJob(schedules, codes, db)
	if err := sweep.Start(cfg.SweepCron); err != nil {
		logger.Fatal("Failed to start sweep job", "error", err, "schedule", cfg.SweepCron)
	}

	// Create and start consumers
	consumerService, err := consumers.NewConsumerService(cfg)
	if err != nil {
		logger.Fatal("Failed to create consumer service", "error", err)
	}

	if err := consumerService.Start(); err != nil {
		logger.Fatal("Failed to start consumers", "error", err)
	}

	slog.Info("Consumers service started successfully")

	// Ждем сигнал для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down consumers service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sweep.Stop()

	if err := consumerService.Shutdown(ctx); err != nil {
		slog.Error("Error during shutdown", "error", err)
	}

	if err := db.Close(); err != nil {
		slog.Error("Error closing database connection", "error", err)
	}

	slog.Info("Consumers service stopped")
}
