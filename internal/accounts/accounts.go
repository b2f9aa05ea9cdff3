package accounts

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/playpong/backend/internal/models"
)

// Resolver reads display names from the identity service's users table.
// Identity itself is external; this is the one read this system needs.
type Resolver struct {
	db *sqlx.DB
}

// NewResolver creates a resolver on the given database.
func NewResolver(db *sqlx.DB) *Resolver {
	return &Resolver{db: db}
}

// DisplayName returns the user's display name, falling back to "Player <id>"
// when the user is unknown or unnamed. Resolution failures are not errors:
// the name is cosmetic.
func (r *Resolver) DisplayName(ctx context.Context, userID int64) string {
	var name string
	err := r.db.GetContext(ctx, &name, `SELECT display_name FROM users WHERE id = $1`, userID)
	if err != nil || name == "" {
		return fmt.Sprintf("Player %d", userID)
	}
	return name
}

// GetOrCreateUser upserts a user row by id. Used by dev tooling only; real
// rows are owned by the identity service.
func GetOrCreateUser(db *sqlx.DB, id int64, displayName string) (*models.User, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}

	var u models.User
	if err := db.Get(&u, `SELECT id, display_name, created_at FROM users WHERE id = $1`, id); err == nil {
		return &u, nil
	}
	if _, err := db.Exec(`
		INSERT INTO users (id, display_name, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO NOTHING
	`, id, displayName); err != nil {
		return nil, err
	}
	if err := db.Get(&u, `SELECT id, display_name, created_at FROM users WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &u, nil
}
