package matchmaking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/playpong/backend/internal/models"
)

type sentNotice struct {
	userIDs []int64
	message string
}

// fakeNotifier captures notices on a channel; delivery happens off the
// request path, so tests wait on it.
type fakeNotifier struct {
	notices chan sentNotice
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{notices: make(chan sentNotice, 8)}
}

func (f *fakeNotifier) NotifyUsers(ctx context.Context, userIDs []int64, message string) {
	f.notices <- sentNotice{userIDs: userIDs, message: message}
}

func (f *fakeNotifier) wait(t *testing.T) sentNotice {
	t.Helper()
	select {
	case n := <-f.notices:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("no notice delivered")
		return sentNotice{}
	}
}

type fakeNames struct{}

func (fakeNames) DisplayName(ctx context.Context, userID int64) string {
	if userID == 1 {
		return "Alice"
	}
	return "Player"
}

func newTestService() (*Service, *MemStore, *fakeNotifier) {
	store := NewMemStore()
	notifier := newFakeNotifier()
	svc := NewService(store, &CounterAllocator{}, notifier, fakeNames{}, "https://play.example")
	return svc, store, notifier
}

func TestRequestQueuesThenMatches(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Request(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if first.Status != StatusWaiting {
		t.Fatalf("first ticket status = %s, want %s", first.Status, StatusWaiting)
	}
	if first.RoomID%2 != 0 {
		t.Fatalf("open-queue room id %d is not even", first.RoomID)
	}

	second, err := svc.Request(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if second.Status != StatusMatched {
		t.Fatalf("second ticket status = %s, want %s", second.Status, StatusMatched)
	}
	if second.RoomID != first.RoomID {
		t.Fatalf("paired users got rooms %d and %d", first.RoomID, second.RoomID)
	}

	// The waiting leg was flipped; re-polling sees the rendezvous.
	for _, r := range store.Requests() {
		if r.Status != models.RequestMatched {
			t.Fatalf("request %+v still waiting after pairing", r)
		}
	}

	// Pairing opens the room to exactly the two participants.
	grant, err := store.GetGrant(ctx, first.RoomID)
	if err != nil || grant == nil {
		t.Fatalf("no grant for paired room: %v", err)
	}
	if grant.OwnerUserID != 1 {
		t.Fatalf("grant owner = %d, want the earlier requester 1", grant.OwnerUserID)
	}
	for _, id := range []int64{1, 2} {
		ok, err := svc.CheckAccess(ctx, id, first.RoomID)
		if err != nil || !ok {
			t.Fatalf("participant %d denied access: ok=%v err=%v", id, ok, err)
		}
	}
	if ok, _ := svc.CheckAccess(ctx, 3, first.RoomID); ok {
		t.Fatal("outsider admitted to paired room")
	}
}

func TestRequestSupersedesOwnWaitingLeg(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Request(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Request(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if second.Status != StatusWaiting {
		t.Fatalf("re-request matched against own leg: %+v", second)
	}
	if second.RoomID == first.RoomID {
		t.Fatal("re-request reused the superseded room")
	}

	waiting := 0
	for _, r := range store.Requests() {
		if r.RequesterID == 1 && r.Status == models.RequestWaiting {
			waiting++
			if r.GameRoomID != second.RoomID {
				t.Fatalf("waiting leg points at room %d, want %d", r.GameRoomID, second.RoomID)
			}
		}
	}
	if waiting != 1 {
		t.Fatalf("user 1 has %d waiting legs, want 1", waiting)
	}

	// A newcomer lands in the fresh room, never the abandoned one.
	third, err := svc.Request(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if third.Status != StatusMatched || third.RoomID != second.RoomID {
		t.Fatalf("newcomer ticket = %+v, want matched into room %d", third, second.RoomID)
	}
}

func TestConcurrentRequestsRendezvous(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	const users = 8
	tickets := make([]*Ticket, users)
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tk, err := svc.Request(ctx, int64(i+1))
			if err != nil {
				t.Errorf("request %d: %v", i+1, err)
				return
			}
			tickets[i] = tk
		}(i)
	}
	wg.Wait()

	// Every room holds exactly two requests, one of which was the waiting
	// leg that got claimed.
	perRoom := make(map[int64]int)
	for _, r := range store.Requests() {
		perRoom[r.GameRoomID]++
		if r.Status != models.RequestMatched {
			t.Errorf("request %+v left waiting after %d requesters", r, users)
		}
	}
	if len(perRoom) != users/2 {
		t.Fatalf("%d requesters spread across %d rooms, want %d", users, len(perRoom), users/2)
	}
	for room, n := range perRoom {
		if n != 2 {
			t.Errorf("room %d holds %d requests, want 2", room, n)
		}
	}

	matched := 0
	for _, tk := range tickets {
		if tk != nil && tk.Status == StatusMatched {
			matched++
		}
	}
	if matched != users/2 {
		t.Errorf("%d tickets came back matched, want %d", matched, users/2)
	}
}

func TestInviteOpensOddRoomAndNotifies(t *testing.T) {
	svc, store, notifier := newTestService()
	ctx := context.Background()

	// Duplicates, the inviter and junk ids are dropped.
	roomID, err := svc.Invite(ctx, 1, []int64{2, 2, 1, 0, 3})
	if err != nil {
		t.Fatal(err)
	}
	if roomID%2 != 1 {
		t.Fatalf("invite room id %d is not odd", roomID)
	}

	grant, err := store.GetGrant(ctx, roomID)
	if err != nil || grant == nil {
		t.Fatalf("no grant for invite room: %v", err)
	}
	if grant.OwnerUserID != 1 {
		t.Fatalf("grant owner = %d, want inviter 1", grant.OwnerUserID)
	}
	if len(grant.MemberIDs) != 3 {
		t.Fatalf("grant members = %v, want inviter plus two invitees", grant.MemberIDs)
	}

	notice := notifier.wait(t)
	if len(notice.userIDs) != 2 {
		t.Fatalf("notice went to %v, want the two invitees", notice.userIDs)
	}
	if !strings.Contains(notice.message, "Alice") {
		t.Errorf("notice %q does not name the inviter", notice.message)
	}
	if !strings.Contains(notice.message, "https://play.example/game_pong/") {
		t.Errorf("notice %q does not carry the game link", notice.message)
	}
}

func TestInviteRequiresAnotherUser(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.Invite(context.Background(), 1, []int64{1, 0, -2}); !errors.Is(err, ErrNoInvitees) {
		t.Fatalf("err = %v, want ErrNoInvitees", err)
	}
}

func TestSeatsAreIdentityKeyed(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	if err := store.CreateGrant(ctx, 7, 1, []int64{2, 3, 4}); err != nil {
		t.Fatal(err)
	}

	if ok, _ := svc.CheckAccess(ctx, 9, 7); ok {
		t.Fatal("non-member admitted")
	}
	if ok, _ := svc.CheckAccess(ctx, 2, 7); !ok {
		t.Fatal("member denied first seat")
	}
	// Reconnects by a seated identity never burn another seat.
	if ok, _ := svc.CheckAccess(ctx, 2, 7); !ok {
		t.Fatal("seated member denied on reconnect")
	}
	if ok, _ := svc.CheckAccess(ctx, 3, 7); !ok {
		t.Fatal("member denied second seat")
	}

	// Both seats taken: a third identity stays out even as a member.
	if ok, _ := svc.CheckAccess(ctx, 4, 7); ok {
		t.Fatal("third identity admitted to a full room")
	}
	// The owner is always let back in.
	if ok, _ := svc.CheckAccess(ctx, 1, 7); !ok {
		t.Fatal("owner denied on full room")
	}
	if ok, _ := svc.CheckAccess(ctx, 3, 7); !ok {
		t.Fatal("seated member denied after room filled")
	}
}

func TestCheckAccessUnknownRoom(t *testing.T) {
	svc, _, _ := newTestService()
	ok, err := svc.CheckAccess(context.Background(), 1, 999)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("access granted for a room no one opened")
	}
}

func TestRoomPartitionNeverCollides(t *testing.T) {
	a := &CounterAllocator{}
	ctx := context.Background()
	seen := make(map[int64]bool)
	for i := 0; i < 50; i++ {
		q, err := a.NextQueueRoom(ctx)
		if err != nil {
			t.Fatal(err)
		}
		inv, err := a.NextInviteRoom(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if q%2 != 0 {
			t.Fatalf("queue room %d is odd", q)
		}
		if inv%2 != 1 {
			t.Fatalf("invite room %d is even", inv)
		}
		if seen[q] || seen[inv] {
			t.Fatalf("room id reused: %d / %d", q, inv)
		}
		seen[q], seen[inv] = true, true
	}
}

func TestExpireWaitingDropsOnlyStaleLegs(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	alloc := &CounterAllocator{}

	if _, err := store.Pair(ctx, 1, models.RulesetBasic, alloc.NextQueueRoom); err != nil {
		t.Fatal(err)
	}
	// User 2 claims user 1's leg; both rows flip to matched and must
	// survive expiry.
	if _, err := store.Pair(ctx, 2, models.RulesetBasic, alloc.NextQueueRoom); err != nil {
		t.Fatal(err)
	}

	dropped, err := store.ExpireWaiting(ctx, time.Now().Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if dropped != 0 {
		t.Fatalf("dropped %d rows, want 0: pairing left nothing waiting", dropped)
	}

	if _, err := store.Pair(ctx, 3, models.RulesetBasic, alloc.NextQueueRoom); err != nil {
		t.Fatal(err)
	}
	dropped, err = store.ExpireWaiting(ctx, time.Now().Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if dropped != 1 {
		t.Fatalf("dropped %d rows, want the one stale waiting leg", dropped)
	}
	for _, r := range store.Requests() {
		if r.Status == models.RequestWaiting {
			t.Fatalf("waiting row survived expiry: %+v", r)
		}
	}
}

func TestExpiryWorkerClearsAbandonedQueue(t *testing.T) {
	store := NewMemStore()
	alloc := &CounterAllocator{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := store.Pair(ctx, 1, models.RulesetBasic, alloc.NextQueueRoom); err != nil {
		t.Fatal(err)
	}

	go StartExpiryWorker(ctx, store, time.Millisecond, 5*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(store.Requests()) == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("abandoned waiting leg never expired")
}
