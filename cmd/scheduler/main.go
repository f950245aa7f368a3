package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/schoolhq/settlement-engine/internal/config"
	"github.com/schoolhq/settlement-engine/internal/repository"
	"github.com/schoolhq/settlement-engine/internal/service"
)

const replayBatchSize = 100

func main() {
	_ = godotenv.Load()

	log.Println("Starting settlement replay scheduler...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Replayed distributions must drop stale cached breakdowns just like
	// the inline path does.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	walletRepo := repository.NewWalletRepository()
	settlementRepo := repository.NewSettlementRepository()
	allocationRepo := repository.NewAllocationRepository()
	feeRepo := repository.NewFeeRepository()
	studentRepo := repository.NewStudentRepository()

	obligationService := service.NewObligationService(feeRepo, studentRepo)
	txm := repository.NewTransactor(db)
	allocationService := service.NewAllocationService(db, txm, settlementRepo, allocationRepo, walletRepo, studentRepo, obligationService, redisClient)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Fatalf("Invalid scheduler timezone %q: %v", cfg.Scheduler.Timezone, err)
	}

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	// Settlements can be credited and then crash before distribution; this
	// job replays them. Distribution is check-first and row-locked, so an
	// overlapping run is harmless.
	_, err = c.AddFunc(cfg.Scheduler.ReplaySpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		replayed, err := allocationService.ReplayUnallocated(ctx, replayBatchSize)
		if err != nil {
			log.Printf("Replay job failed: %v", err)
			return
		}
		if replayed > 0 {
			log.Printf("Replayed distribution for %d settlements", replayed)
		}
	})
	if err != nil {
		log.Fatalf("Error scheduling replay job: %v", err)
	}

	// Start the scheduler
	c.Start()
	log.Println("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down scheduler...")
	c.Stop()
	log.Println("Scheduler stopped")
}
