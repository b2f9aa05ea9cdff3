package matchmaking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/playpong/backend/internal/models"
)

// pairLockBase namespaces the advisory lock that serializes pairing per
// ruleset, so two requests racing into an empty queue still rendezvous.
const pairLockBase int64 = 0x504f4e47 // "PONG"

// PGStore is the Postgres-backed matchmaking store.
type PGStore struct {
	db *sqlx.DB
}

// NewPGStore wraps the database as a Store.
func NewPGStore(db *sqlx.DB) *PGStore {
	return &PGStore{db: db}
}

// Pair runs the whole open-queue admission in one transaction. The claim of
// the oldest waiting row uses FOR UPDATE SKIP LOCKED; the advisory lock
// covers the none-waiting window where both racers would otherwise enqueue
// separate rooms.
func (s *PGStore) Pair(ctx context.Context, requesterID int64, ruleset int, newRoomID func(context.Context) (int64, error)) (*PairOutcome, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin pair tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, pairLockBase+int64(ruleset)); err != nil {
		return nil, fmt.Errorf("acquire pair lock: %w", err)
	}

	// Self-supersession: a player asking again abandons their earlier legs.
	if _, err := tx.ExecContext(ctx, `
		UPDATE matchmaking_requests
		SET status = 'matched'
		WHERE requester_id = $1 AND status = 'waiting'
	`, requesterID); err != nil {
		return nil, fmt.Errorf("supersede waiting rows: %w", err)
	}

	var claimed models.MatchRequest
	err = tx.GetContext(ctx, &claimed, `
		SELECT id, requester_id, ruleset, created_at, game_room_id, status
		FROM matchmaking_requests
		WHERE status = 'waiting'
		  AND ruleset = $1
		  AND requester_id <> $2
		ORDER BY created_at, id
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`, ruleset, requesterID)

	now := time.Now().UnixMilli()

	if errors.Is(err, sql.ErrNoRows) {
		roomID, aerr := newRoomID(ctx)
		if aerr != nil {
			return nil, fmt.Errorf("allocate room id: %w", aerr)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO matchmaking_requests (requester_id, ruleset, created_at, game_room_id, status)
			VALUES ($1, $2, $3, $4, 'waiting')
		`, requesterID, ruleset, now, roomID); err != nil {
			return nil, fmt.Errorf("insert waiting row: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit pair tx: %w", err)
		}
		return &PairOutcome{RoomID: roomID, Status: StatusWaiting}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim waiting row: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE matchmaking_requests SET status = 'matched' WHERE id = $1
	`, claimed.ID); err != nil {
		return nil, fmt.Errorf("mark claimed row matched: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO matchmaking_requests (requester_id, ruleset, created_at, game_room_id, status)
		VALUES ($1, $2, $3, $4, 'matched')
	`, requesterID, ruleset, now, claimed.GameRoomID); err != nil {
		return nil, fmt.Errorf("insert matched row: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO room_grants (game_room_id, owner_user_id, member_ids, accepted_ids)
		VALUES ($1, $2, $3, '{}')
		ON CONFLICT (game_room_id) DO NOTHING
	`, claimed.GameRoomID, claimed.RequesterID, pq.Int64Array{claimed.RequesterID, requesterID}); err != nil {
		return nil, fmt.Errorf("create pair grant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit pair tx: %w", err)
	}
	return &PairOutcome{RoomID: claimed.GameRoomID, Status: StatusMatched, OpponentID: claimed.RequesterID}, nil
}

// CreateGrant records the invited member set for a room.
func (s *PGStore) CreateGrant(ctx context.Context, roomID, ownerID int64, memberIDs []int64) error {
	members := make(pq.Int64Array, 0, len(memberIDs)+1)
	members = append(members, ownerID)
	for _, id := range memberIDs {
		if id != ownerID {
			members = append(members, id)
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO room_grants (game_room_id, owner_user_id, member_ids, accepted_ids)
		VALUES ($1, $2, $3, '{}')
		ON CONFLICT (game_room_id) DO NOTHING
	`, roomID, ownerID, members)
	return err
}

// GetGrant loads a room's grant; nil when the room has none.
func (s *PGStore) GetGrant(ctx context.Context, roomID int64) (*models.RoomGrant, error) {
	var g models.RoomGrant
	err := s.db.GetContext(ctx, &g, `
		SELECT game_room_id, owner_user_id, member_ids, accepted_ids, created_at
		FROM room_grants WHERE game_room_id = $1
	`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// AcceptSeat implements identity-keyed seats: the conditional append only
// lands while fewer than two distinct identities hold seats and the user
// holds none yet.
func (s *PGStore) AcceptSeat(ctx context.Context, roomID, userID int64) (bool, error) {
	g, err := s.GetGrant(ctx, roomID)
	if err != nil {
		return false, err
	}
	if g == nil {
		return false, nil
	}

	accepted := containsID(g.AcceptedIDs, userID)
	if accepted {
		return true, nil
	}

	isOwner := g.OwnerUserID == userID
	if !isOwner && !containsID(g.MemberIDs, userID) {
		return false, nil
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE room_grants
		SET accepted_ids = array_append(accepted_ids, $2)
		WHERE game_room_id = $1
		  AND NOT ($2 = ANY(accepted_ids))
		  AND COALESCE(array_length(accepted_ids, 1), 0) < 2
	`, roomID, userID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()

	// The owner is always re-admitted even when both seats went to invitees.
	return n > 0 || isOwner, nil
}

// ExpireWaiting drops stale waiting rows.
func (s *PGStore) ExpireWaiting(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM matchmaking_requests
		WHERE status = 'waiting' AND created_at < $1
	`, olderThan.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
