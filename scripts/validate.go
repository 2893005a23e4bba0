package main

import (
	"context"
	"flag"
	"log/slog"
	"time"

	"fastpayment/internal/logger"
	"fastpayment/internal/validation"
)

func main() {
	var baseURL string
	flag.StringVar(&baseURL, "url", "http://localhost:8081", "Base URL for API validation")
	flag.Parse()

	logger.Init("info", "text")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := validation.NewAPIValidator(baseURL).ValidateAll(ctx, validation.DefaultChecks()); err != nil {
		logger.Fatal("❌ Валидация не пройдена", "error", err)
	}

	slog.Info("✅ Валидация успешно пройдена!")
}
