package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/schoolhq/settlement-engine/internal/config"
	"github.com/schoolhq/settlement-engine/internal/handler"
	"github.com/schoolhq/settlement-engine/internal/repository"
	"github.com/schoolhq/settlement-engine/internal/service"
	"github.com/schoolhq/settlement-engine/pkg/response"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize repositories
	walletRepo := repository.NewWalletRepository()
	settlementRepo := repository.NewSettlementRepository()
	allocationRepo := repository.NewAllocationRepository()
	feeRepo := repository.NewFeeRepository()
	invoiceRepo := repository.NewInvoiceRepository()
	studentRepo := repository.NewStudentRepository()
	academicRepo := repository.NewAcademicRepository()
	txm := repository.NewTransactor(db)

	// Initialize services
	obligationService := service.NewObligationService(feeRepo, studentRepo)
	allocationService := service.NewAllocationService(db, txm, settlementRepo, allocationRepo, walletRepo, studentRepo, obligationService, redisClient)
	ledgerService := service.NewLedgerService(db, txm, walletRepo, settlementRepo, allocationRepo, academicRepo, allocationService, service.LogNotifier{}, redisClient)
	balanceService := service.NewBalanceService(db, walletRepo, settlementRepo, allocationRepo, invoiceRepo, studentRepo, academicRepo, obligationService, redisClient, cfg.GetBreakdownTTL())

	webhookHandler := handler.NewWebhookHandler(ledgerService, cfg)
	financeHandler := handler.NewFinanceHandler(ledgerService, balanceService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Setup routes
	router := setupRoutes(webhookHandler, financeHandler, healthHandler)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      response.LoggingMiddleware(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(webhookHandler *handler.WebhookHandler, financeHandler *handler.FinanceHandler, healthHandler *handler.HealthHandler) *mux.Router {
	router := mux.NewRouter()

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// Gateway webhook
	router.HandleFunc("/paystack/webhooks", webhookHandler.HandleWebhook).Methods("POST")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/guardians/{guardianId}/breakdown", financeHandler.GetBreakdown).Methods("GET")
	api.HandleFunc("/students/{studentId}/allocations", financeHandler.GetStudentAllocations).Methods("GET")
	api.HandleFunc("/settlements/unclaimed", financeHandler.ListUnclaimed).Methods("GET")
	api.HandleFunc("/settlements/manual", financeHandler.CreateManualSettlement).Methods("POST")
	api.HandleFunc("/settlements/{settlementId}", financeHandler.GetSettlement).Methods("GET")
	api.HandleFunc("/settlements/{settlementId}/allocations", financeHandler.GetSettlementAllocations).Methods("GET")

	return router
}
