package game

import (
	"log"
	"sync"
	"time"

	"github.com/playpong/backend/internal/config"
)

// Registry owns the live sessions. Rooms are created lazily on first join
// and disposed once a session reaches a terminal phase and its retain window
// passes. It is the only structure touched by multiple sessions' control
// paths, so create/dispose is serialized here.
type Registry struct {
	mu       sync.Mutex
	sessions map[int64]*Session

	sender Sender
	sink   ResultSink
	cfg    *config.Config

	// base carries pre-set session options; fields left zero are filled
	// from cfg. Production leaves it zero, tests inject fake schedulers.
	base Options
}

// NewRegistry creates an empty registry.
func NewRegistry(sender Sender, sink ResultSink, cfg *config.Config) *Registry {
	return &Registry{
		sessions: make(map[int64]*Session),
		sender:   sender,
		sink:     sink,
		cfg:      cfg,
	}
}

// GetOrCreate returns the session for a room, creating it on first join.
func (r *Registry) GetOrCreate(roomID int64) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[roomID]; ok {
		return s
	}

	opts := r.base
	opts.OnTerminal = r.Remove
	if r.cfg != nil {
		if opts.TickInterval == 0 && r.cfg.TickRateHz > 0 {
			opts.TickInterval = time.Second / time.Duration(r.cfg.TickRateHz)
		}
		if opts.InitialScore == 0 {
			opts.InitialScore = r.cfg.InitialScore
		}
		if opts.GoalCooldown == 0 {
			opts.GoalCooldown = time.Duration(r.cfg.GoalCooldownSeconds) * time.Second
		}
		if opts.RetainWindow == 0 {
			opts.RetainWindow = time.Duration(r.cfg.RoomRetainSeconds) * time.Second
		}
	}

	s := NewSession(roomID, r.sender, r.sink, opts)
	r.sessions[roomID] = s
	log.Printf("[GAME] room %d: session created", roomID)
	return s
}

// Get returns an existing session without creating one.
func (r *Registry) Get(roomID int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[roomID]
	return s, ok
}

// Remove disposes a session. Called by sessions themselves once terminal.
func (r *Registry) Remove(roomID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[roomID]; ok {
		delete(r.sessions, roomID)
		log.Printf("[GAME] room %d: session disposed", roomID)
	}
}

// ActiveCount reports how many sessions are live.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
