package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/playpong/backend/internal/models"
	"github.com/playpong/backend/internal/notify"
)

// NameResolver resolves a user's display name; the identity service owns the
// data, we only read it for invitation notices.
type NameResolver interface {
	DisplayName(ctx context.Context, userID int64) string
}

// Ticket is what an open-queue requester gets back. A waiting ticket means
// no opponent was available yet; the caller re-polls with the same user and
// rendezvouses once someone claims the row.
type Ticket struct {
	RoomID int64  `json:"room_id"`
	Status string `json:"status"` // waiting | matched
}

// Service runs both admission modes of matchmaking and the room access
// ledger checks.
type Service struct {
	store       Store
	rooms       RoomAllocator
	notifier    notify.Notifier
	names       NameResolver
	frontendURL string
}

// NewService wires the matchmaking service.
func NewService(store Store, rooms RoomAllocator, notifier notify.Notifier, names NameResolver, frontendURL string) *Service {
	return &Service{
		store:       store,
		rooms:       rooms,
		notifier:    notifier,
		names:       names,
		frontendURL: frontendURL,
	}
}

var ErrNoInvitees = errors.New("invite needs at least one other user")

// Request admits a user to the open queue. It returns immediately in both
// outcomes; it never blocks waiting for an opponent.
func (s *Service) Request(ctx context.Context, userID int64) (*Ticket, error) {
	out, err := s.store.Pair(ctx, userID, models.RulesetBasic, s.rooms.NextQueueRoom)
	if err != nil {
		return nil, fmt.Errorf("pair request for user %d: %w", userID, err)
	}

	if out.Status == StatusMatched {
		log.Printf("[MATCH] user %d matched with user %d in room %d", userID, out.OpponentID, out.RoomID)
	} else {
		log.Printf("[MATCH] user %d queued for room %d", userID, out.RoomID)
	}
	return &Ticket{RoomID: out.RoomID, Status: out.Status}, nil
}

// Invite opens a room for a directed group of users. The room id comes from
// the invitation partition, every invitee is granted access, and invitees
// are told out of band. No polling: the id is final immediately.
func (s *Service) Invite(ctx context.Context, inviterID int64, inviteeIDs []int64) (int64, error) {
	invitees := make([]int64, 0, len(inviteeIDs))
	for _, id := range inviteeIDs {
		if id > 0 && id != inviterID && !containsID(invitees, id) {
			invitees = append(invitees, id)
		}
	}
	if len(invitees) == 0 {
		return 0, ErrNoInvitees
	}

	roomID, err := s.rooms.NextInviteRoom(ctx)
	if err != nil {
		return 0, fmt.Errorf("allocate invite room: %w", err)
	}
	if err := s.store.CreateGrant(ctx, roomID, inviterID, invitees); err != nil {
		return 0, fmt.Errorf("create invite grant: %w", err)
	}

	message := fmt.Sprintf("You are invited to a new game by %s: %s/game_pong/%d",
		s.names.DisplayName(ctx, inviterID), s.frontendURL, roomID)
	go s.notifier.NotifyUsers(context.Background(), invitees, message)

	log.Printf("[MATCH] user %d opened invite room %d for %v", inviterID, roomID, invitees)
	return roomID, nil
}

// CheckAccess gates the game page and the WS connection. Admission consumes
// an identity-keyed seat (see Store.AcceptSeat).
func (s *Service) CheckAccess(ctx context.Context, userID, roomID int64) (bool, error) {
	return s.store.AcceptSeat(ctx, roomID, userID)
}
