package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mnhidayatgani/chatbot-sub001/internal/abuse"
	"github.com/mnhidayatgani/chatbot-sub001/internal/audit"
	"github.com/mnhidayatgani/chatbot-sub001/internal/catalog"
	"github.com/mnhidayatgani/chatbot-sub001/internal/chat"
	"github.com/mnhidayatgani/chatbot-sub001/internal/checkout"
	"github.com/mnhidayatgani/chatbot-sub001/internal/orders"
	"github.com/mnhidayatgani/chatbot-sub001/internal/promo"
	"github.com/mnhidayatgani/chatbot-sub001/internal/session"
	"github.com/mnhidayatgani/chatbot-sub001/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	provider, err := telemetry.Setup(ctx, "storefront", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

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

	var sessionStore session.Store
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		client := redis.NewClient(opts)
		defer func() { _ = client.Close() }()

		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		sessionStore = session.NewRedisStore(client, session.DefaultIdleTTL)
		logger.Info("using redis session store")
	} else {
		sessionStore = session.NewMemoryStore()
		logger.Info("using in-memory session store")
	}

	var sink audit.Sink = audit.NewSlogSink(logger)
	if kafkaBrokers := os.Getenv("KAFKA_BROKERS"); kafkaBrokers != "" {
		kafkaSink := audit.NewKafkaSink(strings.Split(kafkaBrokers, ","), audit.DefaultTopic)
		defer func() { _ = kafkaSink.Close() }()
		sink = kafkaSink
		logger.Info("publishing audit events to kafka")
	}

	sessions := session.NewManager(sessionStore)
	ledger := promo.NewLedger(promo.NewPostgresStore(db), logger)
	catalogRepo := catalog.NewRepository(db)
	orderRepo := orders.NewRepository(db)
	guard := abuse.NewGuard()

	orch := checkout.NewOrchestrator(sessions, ledger, catalogRepo, orderRepo, sink, logger)

	chatHandler := chat.NewHandler(guard, orch, sessions, catalogRepo, logger)
	promoHandler := promo.NewHandler(ledger, logger)
	orderHandler := orders.NewHandler(orderRepo, sink, logger)
	catalogHandler := catalog.NewHandler(catalogRepo, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat/messages", telemetry.WithHTTPRoute(chatHandler.HandleMessage))
	mux.HandleFunc("GET /chat/stats/{customerId}", telemetry.WithHTTPRoute(chatHandler.HandleStats))
	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(catalogHandler.HandleList))
	mux.HandleFunc("GET /products/{productId}", telemetry.WithHTTPRoute(catalogHandler.HandleGet))
	mux.HandleFunc("PATCH /products/{productId}/stock", telemetry.WithHTTPRoute(catalogHandler.HandleSetStock))
	mux.HandleFunc("POST /promos", telemetry.WithHTTPRoute(promoHandler.HandleCreate))
	mux.HandleFunc("GET /promos/{code}", telemetry.WithHTTPRoute(promoHandler.HandleGet))
	mux.HandleFunc("POST /promos/{code}/deactivate", telemetry.WithHTTPRoute(promoHandler.HandleDeactivate))
	mux.HandleFunc("DELETE /promos/{code}", telemetry.WithHTTPRoute(promoHandler.HandleDelete))
	mux.HandleFunc("GET /customers/{customerId}/promos", telemetry.WithHTTPRoute(promoHandler.HandleCustomerUsage))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleGet))
	mux.HandleFunc("GET /customers/{customerId}/orders", telemetry.WithHTTPRoute(orderHandler.HandleListByCustomer))
	mux.HandleFunc("PATCH /orders/{id}/status", telemetry.WithHTTPRoute(orderHandler.HandleUpdateStatus))
	mux.Handle("GET /metrics", provider.MetricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "storefront",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	cleanupCtx, cancelCleanup := context.WithCancel(ctx)
	defer cancelCleanup()
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				guard.Cleanup()
			}
		}
	}()

	go func() {
		logger.Info("starting storefront service", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
