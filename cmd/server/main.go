package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mayhem-storefront/internal/config"
	"mayhem-storefront/internal/database"
	"mayhem-storefront/internal/infrastructure/payment"
	"mayhem-storefront/internal/messaging"
	"mayhem-storefront/internal/notify"
	"mayhem-storefront/internal/repo"
	"mayhem-storefront/internal/service"
	"mayhem-storefront/internal/webhook"
	"mayhem-storefront/internal/worker"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db := database.NewPostgres()
	dbService := database.NewService(db)
	defer dbService.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("Connected to PostgreSQL")

	if err := database.Bootstrap(ctx, db); err != nil {
		return fmt.Errorf("failed to bootstrap schema: %w", err)
	}

	orderRepo := repo.NewOrderRepo(db)
	ledgerRepo := repo.NewLedgerRepo(db)
	stockRepo := repo.NewStockRepo(db)

	hub := notify.NewHub()

	var publisher messaging.EventPublisher = messaging.NopPublisher{}
	if cfg.KafkaEnabled() {
		publisher = messaging.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.Println("Kafka publisher initialized")
	}
	defer publisher.Close()

	ledgerService := service.NewLedgerService(
		ledgerRepo,
		service.FeeSchedule{Rate: cfg.FeeRate, Fixed: cfg.FeeFixed},
		cfg.PaymentProvider,
	)
	inventoryService := service.NewInventoryService(orderRepo, stockRepo)
	fulfillmentService := service.NewFulfillmentService(
		orderRepo, ledgerService, inventoryService, hub, publisher, cfg.PaymentProvider,
	)

	// Reconciliation needs a gateway API to ask about stuck intents; without
	// one the sweep cannot tell ghost orders from abandoned ones.
	if cfg.GatewayAPIURL != "" {
		gateway := payment.NewHTTPGateway(cfg.GatewayAPIURL, cfg.GatewayAPIKey)
		rw := worker.NewReconciliationWorker(
			orderRepo, gateway, fulfillmentService,
			cfg.ReconcileInterval, cfg.ReconcileStaleAfter,
		)
		go rw.Run(ctx)
	} else {
		log.Println("GATEWAY_API_URL not set, reconciliation worker disabled")
	}

	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type", payment.SignatureHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	webhookHandler := webhook.NewHandler(cfg.WebhookSecret, webhook.NewRouter(fulfillmentService))
	webhookHandler.RegisterRoutes(engine)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, dbService.Health())
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting fulfillment server on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exited gracefully")
	return nil
}
