package game

import (
	"errors"
	"log"
	"sync"
	"time"
)

// Side is a player's fixed paddle assignment for the whole match.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Phase names the session lifecycle states. Exactly one scheduled task may
// exist per phase: the tick loop while RUNNING, the restart timer while
// COOLDOWN, the teardown timer once FINISHED or INTERRUPTED.
type Phase string

const (
	PhaseAwaitingPlayers Phase = "AWAITING_PLAYERS"
	PhaseRunning         Phase = "RUNNING"
	PhaseCooldown        Phase = "COOLDOWN"
	PhaseFinished        Phase = "FINISHED"
	PhaseInterrupted     Phase = "INTERRUPTED"
)

// Player is one connected participant of a session.
type Player struct {
	ConnID      string  `json:"-"`
	UserID      int64   `json:"user_id"`
	DisplayName string  `json:"display_name"`
	Side        Side    `json:"side"`
	PaddleY     float64 `json:"paddle_y"`
	Ready       bool    `json:"ready"`
	Score       int     `json:"score"`
}

// Ball is the simulated ball state.
type Ball struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	Radius float64 `json:"radius"`
}

// Sender delivers server events to connections. Implemented by the WS hub.
type Sender interface {
	SendToConnection(connID string, message interface{})
}

// ResultSink appends the durable record of a finished match.
type ResultSink interface {
	RecordMatchResult(winnerID, loserID int64, completedAt int64) error
}

// TickScheduler drives the fixed-rate tick loop of a running session. The
// returned stop func must be idempotent and release the underlying timer.
type TickScheduler interface {
	Start(interval time.Duration, tick func()) (stop func())
}

type tickerScheduler struct{}

func (tickerScheduler) Start(interval time.Duration, tick func()) func() {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				tick()
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// AfterFunc schedules f after d and returns a cancel func.
type AfterFunc func(d time.Duration, f func()) (cancel func())

func realAfterFunc(d time.Duration, f func()) func() {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
}

// Options configures a session. Zero values fall back to production defaults.
type Options struct {
	TickInterval time.Duration
	InitialScore int
	GoalCooldown time.Duration
	RetainWindow time.Duration // how long a terminal session lingers for late joins
	Scheduler    TickScheduler
	After        AfterFunc
	OnTerminal   func(roomID int64) // registry disposal callback
}

// Session owns one match: both paddles, the ball, scoring and lifecycle.
// All mutation happens under mu; the tick loop and the inbound connection
// events serialize on it.
type Session struct {
	RoomID int64

	mu                sync.Mutex
	players           map[string]*Player // keyed by connection id
	ball              Ball
	phase             Phase
	lunaticLevel      int
	connectedProperly bool
	started           bool // match-start already emitted

	stopTick   func() // non-nil only while RUNNING
	cancelWait func() // cooldown restart or teardown timer

	sender Sender
	sink   ResultSink
	opts   Options
}

// NewSession creates a session in AWAITING_PLAYERS.
func NewSession(roomID int64, sender Sender, sink ResultSink, opts Options) *Session {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second / 60
	}
	if opts.InitialScore <= 0 {
		opts.InitialScore = 5
	}
	if opts.GoalCooldown <= 0 {
		opts.GoalCooldown = 3 * time.Second
	}
	if opts.RetainWindow <= 0 {
		opts.RetainWindow = 3 * time.Second
	}
	if opts.Scheduler == nil {
		opts.Scheduler = tickerScheduler{}
	}
	if opts.After == nil {
		opts.After = realAfterFunc
	}

	return &Session{
		RoomID:            roomID,
		players:           make(map[string]*Player),
		ball:              resetBall(),
		phase:             PhaseAwaitingPlayers,
		connectedProperly: true,
		sender:            sender,
		sink:              sink,
		opts:              opts,
	}
}

func resetBall() Ball {
	return Ball{X: BallStartX, Y: BallStartY, DX: BallStartDX, DY: BallStartDY, Radius: BallRadius}
}

var (
	ErrRoomClosed = errors.New("game room is closed")
	ErrRoomFull   = errors.New("game room is full")
)

// Join admits a connection and assigns its side. The first arrival takes the
// right side ("Player 1"), the second the left. A room that already lost an
// occupant is never reused: the joiner gets the interrupted event and the
// room is torn down.
func (s *Session) Join(connID string, userID int64, displayName string) (Side, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connectedProperly || s.phase == PhaseInterrupted {
		s.sender.SendToConnection(connID, map[string]interface{}{
			"type":   "interrupted",
			"reason": "room closed",
		})
		s.scheduleTeardownLocked(0)
		return "", ErrRoomClosed
	}

	if len(s.players) >= 2 {
		s.sender.SendToConnection(connID, map[string]interface{}{
			"type":   "interrupted",
			"reason": "room full",
		})
		return "", ErrRoomFull
	}

	side := SideRight
	defaultName := "Player 1"
	if len(s.players) == 1 {
		side = SideLeft
		defaultName = "Player 2"
	}
	if displayName == "" {
		displayName = defaultName
	}

	s.players[connID] = &Player{
		ConnID:      connID,
		UserID:      userID,
		DisplayName: displayName,
		Side:        side,
		PaddleY:     FieldHeight/2 - PaddleHeight/2,
		Score:       s.opts.InitialScore,
	}

	s.sender.SendToConnection(connID, map[string]interface{}{
		"type": "side-assigned",
		"side": side,
	})

	log.Printf("[GAME] room %d: user %d joined as %s (conn=%s)", s.RoomID, userID, side, connID)
	return side, nil
}

// SetReady marks a connection ready. The match starts once both players are
// present and ready; repeated ready messages never re-emit match-start.
func (s *Session) SetReady(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[connID]
	if !ok || s.phase != PhaseAwaitingPlayers {
		return
	}
	p.Ready = true

	if s.started || len(s.players) < 2 {
		return
	}
	for _, pl := range s.players {
		if !pl.Ready {
			return
		}
	}

	s.started = true
	s.phase = PhaseRunning
	s.broadcastLocked(map[string]interface{}{
		"type":    "match-start",
		"room_id": s.RoomID,
	})
	s.startTickLoopLocked()
	log.Printf("[GAME] room %d: match started", s.RoomID)
}

// SetModifier bumps the lunatic level. It accumulates for the lifetime of
// the room and is never decremented; it does not start the match.
func (s *Session) SetModifier(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[connID]; !ok {
		return
	}
	if s.phase == PhaseFinished || s.phase == PhaseInterrupted {
		return
	}
	s.lunaticLevel++
	log.Printf("[GAME] room %d: lunatic level now %d", s.RoomID, s.lunaticLevel)
}

// MovePaddle updates a paddle position. Outside RUNNING the message is a
// stale client frame, not an error.
func (s *Session) MovePaddle(connID string, position float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseRunning {
		return
	}
	if p, ok := s.players[connID]; ok {
		p.PaddleY = position
	}
}

// Leave handles a disconnect. A finished match just sheds connections; a live
// one becomes INTERRUPTED, stops ticking and tells every remaining member.
// The session lingers for the retain window so a transient reconnect still
// receives the interruption event, then is torn down.
func (s *Session) Leave(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[connID]
	if !ok {
		return
	}
	delete(s.players, connID)

	if s.phase == PhaseFinished {
		if len(s.players) == 0 {
			s.scheduleTeardownLocked(0)
		}
		return
	}
	if s.phase == PhaseInterrupted {
		return
	}

	log.Printf("[GAME] room %d: user %d disconnected, interrupting match", s.RoomID, p.UserID)
	s.connectedProperly = false
	s.phase = PhaseInterrupted
	s.stopTickLoopLocked()
	s.cancelWaitLocked()

	for _, rest := range s.players {
		s.sender.SendToConnection(rest.ConnID, map[string]interface{}{
			"type": "interrupted",
		})
	}
	s.scheduleTeardownLocked(s.opts.RetainWindow)
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// BallState returns a copy of the ball.
func (s *Session) BallState() Ball {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ball
}

// PlayerBySide returns a copy of the player on the given side.
func (s *Session) PlayerBySide(side Side) (Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		if p.Side == side {
			return *p, true
		}
	}
	return Player{}, false
}

// LunaticLevel returns the accumulated modifier level.
func (s *Session) LunaticLevel() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lunaticLevel
}

func (s *Session) startTickLoopLocked() {
	if s.stopTick != nil {
		return
	}
	s.stopTick = s.opts.Scheduler.Start(s.opts.TickInterval, s.Tick)
}

func (s *Session) stopTickLoopLocked() {
	if s.stopTick != nil {
		s.stopTick()
		s.stopTick = nil
	}
}

func (s *Session) cancelWaitLocked() {
	if s.cancelWait != nil {
		s.cancelWait()
		s.cancelWait = nil
	}
}

// scheduleTeardownLocked hands the room back to the registry after d.
func (s *Session) scheduleTeardownLocked(d time.Duration) {
	if s.opts.OnTerminal == nil {
		return
	}
	if d <= 0 {
		go s.opts.OnTerminal(s.RoomID)
		return
	}
	if s.cancelWait == nil {
		s.cancelWait = s.opts.After(d, func() { s.opts.OnTerminal(s.RoomID) })
	}
}

func (s *Session) broadcastLocked(message interface{}) {
	for _, p := range s.players {
		s.sender.SendToConnection(p.ConnID, message)
	}
}
