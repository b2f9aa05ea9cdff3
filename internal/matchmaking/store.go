package matchmaking

import (
	"context"
	"time"

	"github.com/playpong/backend/internal/models"
)

// Ticket statuses returned by Request.
const (
	StatusWaiting = models.RequestWaiting
	StatusMatched = models.RequestMatched
)

// PairOutcome is the result of one open-queue admission.
type PairOutcome struct {
	RoomID     int64
	Status     string // waiting | matched
	OpponentID int64  // 0 while waiting
}

// Store is the persistence boundary of the matchmaking queue and the room
// access ledger. Pair is the one operation that needs a true atomic
// read-modify-write: two concurrent callers must never both claim the same
// waiting row, and two callers arriving into an empty queue must pair with
// each other instead of both queueing.
type Store interface {
	// Pair supersedes the requester's stale waiting rows, then either claims
	// the oldest other waiting row (marking both rows matched and granting
	// both users access to the shared room) or enqueues a fresh waiting row
	// under a room id from newRoomID.
	Pair(ctx context.Context, requesterID int64, ruleset int, newRoomID func(context.Context) (int64, error)) (*PairOutcome, error)

	// CreateGrant records which users may join a room. The owner is always a
	// member.
	CreateGrant(ctx context.Context, roomID, ownerID int64, memberIDs []int64) error

	// GetGrant returns the grant for a room, or nil when none exists.
	GetGrant(ctx context.Context, roomID int64) (*models.RoomGrant, error)

	// AcceptSeat admits a user to a room. Seats are identity-keyed: a user
	// who already holds one re-enters freely, a new identity is denied once
	// two distinct identities hold seats. The owner is always re-admitted.
	AcceptSeat(ctx context.Context, roomID, userID int64) (bool, error)

	// ExpireWaiting drops waiting rows created before the cutoff and returns
	// how many were removed.
	ExpireWaiting(ctx context.Context, olderThan time.Time) (int64, error)
}
