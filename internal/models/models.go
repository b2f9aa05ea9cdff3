package models

import (
	"time"

	"github.com/lib/pq"
)

// Matchmaking rulesets. Only one exists today; the column is kept so new
// rulesets pair only against themselves.
const (
	RulesetBasic = 0
)

// Match request statuses
const (
	RequestWaiting = "waiting"
	RequestMatched = "matched"
)

// User is the narrow slice of the external identity service's record this
// system reads (display name resolution only).
type User struct {
	ID          int64     `db:"id" json:"id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// MatchRequest is one leg of the open matchmaking queue.
type MatchRequest struct {
	ID          int64  `db:"id" json:"id"`
	RequesterID int64  `db:"requester_id" json:"requester_id"`
	Ruleset     int    `db:"ruleset" json:"ruleset"`
	CreatedAt   int64  `db:"created_at" json:"created_at"` // utc milliseconds
	GameRoomID  int64  `db:"game_room_id" json:"game_room_id"`
	Status      string `db:"status" json:"status"`
}

// RoomGrant records which user ids may join a game room, and which of them
// have claimed a seat. AcceptedIDs is identity-keyed: a returning user does
// not consume a second seat.
type RoomGrant struct {
	GameRoomID  int64         `db:"game_room_id" json:"game_room_id"`
	OwnerUserID int64         `db:"owner_user_id" json:"owner_user_id"`
	MemberIDs   pq.Int64Array `db:"member_ids" json:"member_ids"`
	AcceptedIDs pq.Int64Array `db:"accepted_ids" json:"accepted_ids"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

// MatchLog is the append-only record of a finished match. Rows are written
// exactly once by the session engine and never updated.
type MatchLog struct {
	ID          int64 `db:"id" json:"id"`
	WinnerID    int64 `db:"winner_id" json:"winner_id"`
	LoserID     int64 `db:"loser_id" json:"loser_id"`
	CompletedAt int64 `db:"completed_at" json:"completed_at"` // utc seconds
}
