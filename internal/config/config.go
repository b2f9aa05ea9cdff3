package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Game settings
	TickRateHz          int
	InitialScore        int
	GoalCooldownSeconds int
	RoomRetainSeconds   int
	QueueExpiryMinutes  int

	// Security
	JWTSecret         string
	SessionTimeoutMin int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/playpong?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Game settings
		TickRateHz:          getEnvInt("GAME_TICK_RATE_HZ", 60),
		InitialScore:        getEnvInt("GAME_INITIAL_SCORE", 5),
		GoalCooldownSeconds: getEnvInt("GAME_GOAL_COOLDOWN_SECONDS", 3),
		RoomRetainSeconds:   getEnvInt("GAME_ROOM_RETAIN_SECONDS", 3),
		QueueExpiryMinutes:  getEnvInt("QUEUE_EXPIRY_MINUTES", 10),

		// Security
		JWTSecret:         getEnv("JWT_SECRET", "change-me-in-production"),
		SessionTimeoutMin: getEnvInt("SESSION_TIMEOUT_MINUTES", 30),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
