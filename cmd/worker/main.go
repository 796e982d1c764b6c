package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/mnhidayatgani/chatbot-sub001/internal/audit"
	"github.com/mnhidayatgani/chatbot-sub001/internal/notify"
	"github.com/mnhidayatgani/chatbot-sub001/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	provider, err := telemetry.Setup(ctx, "audit-worker", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers == "" {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	db, err := telemetry.OpenDB(postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var notifier audit.Notifier
	if webhookURL := os.Getenv("ADMIN_WEBHOOK_URL"); webhookURL != "" {
		notifier = notify.NewWebhook(webhookURL, logger)
	}

	brokers := strings.Split(kafkaBrokers, ",")
	consumer := audit.NewConsumer(brokers, audit.DefaultTopic, "audit-worker")
	defer func() { _ = consumer.Close() }()

	recorder := audit.NewRecorder(db, notifier, logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting audit worker", "brokers", brokers)

	if err := consumer.Consume(runCtx, recorder.Handle); err != nil {
		if runCtx.Err() == context.Canceled {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
