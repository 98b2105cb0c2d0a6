package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moynul/taptosell-server/internal/api"
	"github.com/moynul/taptosell-server/internal/config"
	"github.com/moynul/taptosell-server/internal/fees"
	"github.com/moynul/taptosell-server/internal/gateway"
	"github.com/moynul/taptosell-server/internal/handler"
	"github.com/moynul/taptosell-server/internal/infrastructure/kafka"
	"github.com/moynul/taptosell-server/internal/infrastructure/redis"
	"github.com/moynul/taptosell-server/internal/observability"
	core "github.com/moynul/taptosell-server/internal/repository/postgres"
	service "github.com/moynul/taptosell-server/internal/services"
	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()

	shutdown, _ := observability.Setup("taptosell-server")
	defer shutdown(context.Background())

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer db.Close()

	transactionRepo := core.NewPostgresTransactionRepository(db)
	subscriptionRepo := core.NewPostgresSubscriptionRepository(db)
	vendorRepo := core.NewPostgresVendorRepository(db)
	contentRepo := core.NewPostgresContentRepository(db)

	redisClient := redis.NewClient(cfg.RedisAddr)
	defer redisClient.Close()

	kafkaProducer := kafka.NewProducer(cfg.KafkaBrokers)
	defer kafkaProducer.Close()

	var rail gateway.PaymentGateway
	if cfg.GatewayMode == "http" {
		rail = gateway.NewHTTPGateway(cfg.GatewayBaseURL, cfg.GatewayTimeout)
	} else {
		rail = gateway.NewSimulator(50 * time.Millisecond)
	}

	calculator := fees.New(cfg.FeeRateBps)
	paymentSvc := service.NewPaymentService(transactionRepo, rail, calculator, redisClient, kafkaProducer, cfg.MaxRetries, cfg.BackoffBase)
	subscriptionSvc := service.NewSubscriptionService(subscriptionRepo, kafkaProducer)
	authSvc := service.NewAuthService(vendorRepo, redisClient, kafkaProducer, cfg.JWTSecret)
	contentSvc := service.NewContentService(contentRepo, subscriptionSvc)
	cardSvc := service.NewCardService(vendorRepo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := service.NewSweeper(subscriptionSvc, cfg.SweepInterval)
	go sweeper.Run(ctx)

	subscriptionConsumer := kafka.NewConsumer(cfg.KafkaBrokers, "subscriptions", "taptosell-subscription-cache", redisClient)
	go subscriptionConsumer.Consume(ctx)
	defer subscriptionConsumer.Close()

	h := handler.NewHandler(paymentSvc, subscriptionSvc, authSvc, contentSvc, cardSvc)
	router := api.SetupRouter(h, redisClient, cfg.JWTSecret)

	server := &http.Server{
		Addr:    ":8080",
		Handler: router,
	}
	go func() {
		log.Printf("Starting server on :8080")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped")
}
