package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/playpong/backend/internal/accounts"
	"github.com/playpong/backend/internal/api"
	"github.com/playpong/backend/internal/config"
	"github.com/playpong/backend/internal/database"
	"github.com/playpong/backend/internal/game"
	"github.com/playpong/backend/internal/matchmaking"
	"github.com/playpong/backend/internal/migrations"
	"github.com/playpong/backend/internal/notify"
	"github.com/playpong/backend/internal/redis"
	"github.com/playpong/backend/internal/ws"
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

	// Wire the connection gateway and the session registry. The hub is the
	// registry's sender, so it exists first.
	hub := ws.NewHub()
	registry := game.NewRegistry(hub, game.NewDBResultSink(db), cfg)
	hub.SetRegistry(registry)
	go hub.Run()

	// Matchmaking over the DB queue, with Redis-backed room ids and
	// invite notices.
	names := accounts.NewResolver(db)
	matchSvc := matchmaking.NewService(
		matchmaking.NewPGStore(db),
		matchmaking.NewRedisRoomAllocator(rdb),
		notify.NewRedisNotifier(rdb),
		names,
		cfg.FrontendURL,
	)

	// Drop abandoned queue legs in the background.
	go matchmaking.StartExpiryWorker(context.Background(),
		matchmaking.NewPGStore(db),
		time.Duration(cfg.QueueExpiryMinutes)*time.Minute,
		time.Minute)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Initialize API handlers
	api.SetupRoutes(router, db, cfg, matchSvc, hub, names)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting PlayPong server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
