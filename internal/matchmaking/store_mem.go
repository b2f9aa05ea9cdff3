package matchmaking

import (
	"context"
	"sync"
	"time"

	"github.com/playpong/backend/internal/models"
)

// MemStore is a mutex-guarded in-memory Store with the same semantics as
// PGStore. It backs single-node development without Postgres and the
// package tests.
type MemStore struct {
	mu       sync.Mutex
	nextID   int64
	requests []*models.MatchRequest
	grants   map[int64]*models.RoomGrant
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{grants: make(map[int64]*models.RoomGrant)}
}

func (s *MemStore) Pair(ctx context.Context, requesterID int64, ruleset int, newRoomID func(context.Context) (int64, error)) (*PairOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.requests {
		if r.RequesterID == requesterID && r.Status == models.RequestWaiting {
			r.Status = models.RequestMatched
		}
	}

	// Oldest still-waiting row from another requester; ties broken by row id.
	var claimed *models.MatchRequest
	for _, r := range s.requests {
		if r.Status != models.RequestWaiting || r.Ruleset != ruleset || r.RequesterID == requesterID {
			continue
		}
		if claimed == nil || r.CreatedAt < claimed.CreatedAt ||
			(r.CreatedAt == claimed.CreatedAt && r.ID < claimed.ID) {
			claimed = r
		}
	}

	now := time.Now().UnixMilli()
	s.nextID++

	if claimed == nil {
		roomID, err := newRoomID(ctx)
		if err != nil {
			return nil, err
		}
		s.requests = append(s.requests, &models.MatchRequest{
			ID: s.nextID, RequesterID: requesterID, Ruleset: ruleset,
			CreatedAt: now, GameRoomID: roomID, Status: models.RequestWaiting,
		})
		return &PairOutcome{RoomID: roomID, Status: StatusWaiting}, nil
	}

	claimed.Status = models.RequestMatched
	s.requests = append(s.requests, &models.MatchRequest{
		ID: s.nextID, RequesterID: requesterID, Ruleset: ruleset,
		CreatedAt: now, GameRoomID: claimed.GameRoomID, Status: models.RequestMatched,
	})
	s.createGrantLocked(claimed.GameRoomID, claimed.RequesterID, []int64{requesterID})
	return &PairOutcome{RoomID: claimed.GameRoomID, Status: StatusMatched, OpponentID: claimed.RequesterID}, nil
}

func (s *MemStore) CreateGrant(ctx context.Context, roomID, ownerID int64, memberIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createGrantLocked(roomID, ownerID, memberIDs)
	return nil
}

func (s *MemStore) createGrantLocked(roomID, ownerID int64, memberIDs []int64) {
	if _, ok := s.grants[roomID]; ok {
		return
	}
	members := []int64{ownerID}
	for _, id := range memberIDs {
		if id != ownerID && !containsID(members, id) {
			members = append(members, id)
		}
	}
	s.grants[roomID] = &models.RoomGrant{
		GameRoomID:  roomID,
		OwnerUserID: ownerID,
		MemberIDs:   members,
		AcceptedIDs: []int64{},
		CreatedAt:   time.Now(),
	}
}

func (s *MemStore) GetGrant(ctx context.Context, roomID int64) (*models.RoomGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[roomID]
	if !ok {
		return nil, nil
	}
	copied := *g
	copied.MemberIDs = append([]int64(nil), g.MemberIDs...)
	copied.AcceptedIDs = append([]int64(nil), g.AcceptedIDs...)
	return &copied, nil
}

func (s *MemStore) AcceptSeat(ctx context.Context, roomID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.grants[roomID]
	if !ok {
		return false, nil
	}
	if containsID(g.AcceptedIDs, userID) {
		return true, nil
	}
	isOwner := g.OwnerUserID == userID
	if !isOwner && !containsID(g.MemberIDs, userID) {
		return false, nil
	}
	if len(g.AcceptedIDs) < 2 {
		g.AcceptedIDs = append(g.AcceptedIDs, userID)
		return true, nil
	}
	return isOwner, nil
}

func (s *MemStore) ExpireWaiting(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := olderThan.UnixMilli()
	kept := s.requests[:0]
	var dropped int64
	for _, r := range s.requests {
		if r.Status == models.RequestWaiting && r.CreatedAt < cutoff {
			dropped++
			continue
		}
		kept = append(kept, r)
	}
	s.requests = kept
	return dropped, nil
}

// Requests returns a snapshot of all rows, for inspection in tests.
func (s *MemStore) Requests() []models.MatchRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.MatchRequest, 0, len(s.requests))
	for _, r := range s.requests {
		out = append(out, *r)
	}
	return out
}
