package game

import (
	"github.com/jmoiron/sqlx"
)

// DBResultSink appends finished matches to the match_logs table.
type DBResultSink struct {
	db *sqlx.DB
}

// NewDBResultSink wraps the database as a ResultSink.
func NewDBResultSink(db *sqlx.DB) *DBResultSink {
	return &DBResultSink{db: db}
}

// RecordMatchResult writes the single append-only row for a finished match.
func (s *DBResultSink) RecordMatchResult(winnerID, loserID int64, completedAt int64) error {
	_, err := s.db.Exec(
		`INSERT INTO match_logs (winner_id, loser_id, completed_at) VALUES ($1, $2, $3)`,
		winnerID, loserID, completedAt,
	)
	return err
}
