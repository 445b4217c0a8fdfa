package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/gridstake/backend/internal/api"
	"github.com/gridstake/backend/internal/config"
	"github.com/gridstake/backend/internal/database"
	"github.com/gridstake/backend/internal/economics"
	"github.com/gridstake/backend/internal/middleware"
	"github.com/gridstake/backend/internal/migrations"
	"github.com/gridstake/backend/internal/redis"
	"github.com/gridstake/backend/internal/settlement"
	"github.com/gridstake/backend/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations on start if requested
	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize Redis
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	// Initialize chain verifier (if configured)
	verifier, err := settlement.NewVerifier(cfg)
	if err != nil {
		if err == settlement.ErrNotConfigured {
			log.Printf("[SETTLE] Chain RPC not configured - settlement verification disabled")
			verifier = nil
		} else {
			log.Fatalf("Failed to initialize chain verifier: %v", err)
		}
	}

	// Initialize price feed and economics calculator
	feed := economics.NewPriceFeed(cfg, rdb)
	if feed == nil {
		log.Printf("[PRICE] Price feed not configured - quotes fall back to overrides or legacy default")
	}
	calc := economics.NewCalculator(cfg, feed)

	// Start receipt checker (re-checks provisionally accepted transactions)
	if verifier != nil {
		go settlement.StartReceiptChecker(context.Background(), db, verifier, cfg.ReceiptCheckIntervalMinutes)
	}

	// Start match event subscriber (relays Redis pub/sub to websocket watchers)
	go ws.StartMatchEventSubscriber(context.Background(), rdb)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(middleware.CORSMiddleware(cfg))

	// Initialize API handlers
	api.SetupRoutes(router, db, rdb, cfg, calc, verifier)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting GridStake server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
