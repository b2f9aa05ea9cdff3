package main

import (
	"flag"
	"log"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/playpong/backend/internal/accounts"
	"github.com/playpong/backend/internal/config"
	"github.com/playpong/backend/internal/database"
)

// seed-users inserts local test users so matchmaking and invitations can be
// exercised without the real identity service. Usage:
//
//	go run ./cmd/seed-users -users "1:Alice,2:Bob,3:Carol"
func main() {
	users := flag.String("users", "1:Alice,2:Bob", "comma-separated id:name pairs")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	for _, pair := range strings.Split(*users, ",") {
		id, name, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			log.Fatalf("invalid user spec %q, want id:name", pair)
		}
		userID, err := strconv.ParseInt(id, 10, 64)
		if err != nil || userID <= 0 {
			log.Fatalf("invalid user id %q", id)
		}

		u, err := accounts.GetOrCreateUser(db, userID, name)
		if err != nil {
			log.Fatalf("Failed to seed user %d: %v", userID, err)
		}
		log.Printf("Seeded user %d (%s)", u.ID, u.DisplayName)
	}
}
