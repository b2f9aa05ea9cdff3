package game

import (
	"log"
	"math"
	"time"
)

// Tick advances the simulation by one fixed step. It is driven by the
// session's scheduler while RUNNING; tests call it directly. A tick that
// finds fewer than two players is a no-op: it covers the short window
// between a disconnect and loop teardown.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseRunning || len(s.players) != 2 {
		return
	}

	s.ball.X += s.ball.DX
	s.ball.Y += s.ball.DY

	s.bounceWallsLocked()
	s.bouncePaddlesLocked()

	if done := s.resolveGoalLocked(); done {
		return
	}

	s.broadcastStateLocked()
}

// bounceWallsLocked reflects the ball off the two boundary walls. With the
// lunatic modifier active the reflection also scales the velocity.
func (s *Session) bounceWallsLocked() {
	if s.ball.Y-s.ball.Radius < 0 || s.ball.Y+s.ball.Radius > FieldHeight {
		s.ball.DY = -s.ball.DY
		if s.lunaticLevel > 0 {
			factor := LunaticWallFactor * float64(s.lunaticLevel)
			s.ball.DX *= factor
			s.ball.DY *= factor
		}
		s.ball.DX, s.ball.DY = clampSpeed(s.ball.DX, s.ball.DY)
	}
}

// bouncePaddlesLocked resolves paddle hits. The paddle is split into
// PaddleBands equal bands; the band struck sets the reflection angle as an
// offset from the perpendicular, so edge hits leave at sharper angles than
// center hits. Every hit also gains speed, clamped to MaxSpeed.
func (s *Session) bouncePaddlesLocked() {
	for _, p := range s.players {
		crossed := (p.Side == SideLeft && s.ball.X-s.ball.Radius < PaddleInset) ||
			(p.Side == SideRight && s.ball.X+s.ball.Radius > FieldWidth-PaddleInset)
		if !crossed {
			continue
		}
		if s.ball.Y <= p.PaddleY || s.ball.Y >= p.PaddleY+PaddleHeight {
			continue
		}

		// The strike point quantizes to whole band steps from the paddle
		// center: a dead-center hit leaves perpendicular, an edge hit at
		// ±MaxBandOffset.
		segment := PaddleHeight / PaddleBands
		steps := math.Round((s.ball.Y - (p.PaddleY + PaddleHeight/2)) / segment)
		if steps > PaddleBands/2 {
			steps = PaddleBands / 2
		}
		if steps < -PaddleBands/2 {
			steps = -PaddleBands / 2
		}
		offset := steps * (AngleRange / PaddleBands)

		speed := math.Hypot(s.ball.DX, s.ball.DY)
		s.ball.DX = speed * math.Cos(offset)
		if p.Side == SideRight {
			s.ball.DX = -s.ball.DX
		}
		s.ball.DY = speed * math.Sin(offset)

		s.ball.DX *= SpeedIncreaseFactor
		s.ball.DY *= SpeedIncreaseFactor
		s.ball.DX, s.ball.DY = clampSpeed(s.ball.DX, s.ball.DY)
	}
}

// resolveGoalLocked handles a goal-line crossing. Returns true when the tick
// loop should not continue into the state broadcast (match finished or the
// session entered the goal cooldown).
func (s *Session) resolveGoalLocked() bool {
	var scored Side
	if s.ball.X-s.ball.Radius < 0 {
		scored = SideLeft
	} else if s.ball.X+s.ball.Radius > FieldWidth {
		scored = SideRight
	} else {
		return false
	}

	var conceding *Player
	for _, p := range s.players {
		if p.Side == scored {
			conceding = p
		}
	}
	conceding.Score--
	log.Printf("[GAME] room %d: goal against %s, score now %d", s.RoomID, scored, conceding.Score)

	if conceding.Score <= 0 {
		s.finishLocked()
		return true
	}

	// Cooldown: ball back to center, loop parked, one restart timer.
	s.phase = PhaseCooldown
	s.stopTickLoopLocked()
	s.ball = resetBall()
	s.broadcastStateLocked()
	s.cancelWait = s.opts.After(s.opts.GoalCooldown, s.resumeFromCooldown)
	return true
}

func (s *Session) resumeFromCooldown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseCooldown {
		return
	}
	s.cancelWait = nil
	s.phase = PhaseRunning
	s.startTickLoopLocked()
}

// finishLocked ends the match: exactly one player is at zero, the other is
// the winner. The durable record is written off the tick path; a failed
// write is logged and never rolls back the in-memory result.
func (s *Session) finishLocked() {
	var winner, loser *Player
	for _, p := range s.players {
		if p.Score > 0 {
			winner = p
		} else {
			loser = p
		}
	}
	if winner == nil || loser == nil {
		// Unreachable with decrement-by-one scoring: both players cannot
		// reach zero on the same tick. Treated as a defect, not coerced.
		log.Printf("[GAME] invariant violation in room %d: no unique winner/loser", s.RoomID)
		s.phase = PhaseInterrupted
		s.stopTickLoopLocked()
		return
	}

	s.phase = PhaseFinished
	s.stopTickLoopLocked()
	s.cancelWaitLocked()

	s.broadcastStateLocked()
	s.broadcastLocked(map[string]interface{}{
		"type":      "match-over",
		"winner_id": winner.UserID,
		"loser_id":  loser.UserID,
	})

	winnerID, loserID, roomID := winner.UserID, loser.UserID, s.RoomID
	sink := s.sink
	go func() {
		if sink == nil {
			return
		}
		if err := sink.RecordMatchResult(winnerID, loserID, time.Now().Unix()); err != nil {
			log.Printf("[GAME] room %d: failed to persist match result: %v", roomID, err)
		}
	}()

	log.Printf("[GAME] room %d: match over, winner=%d loser=%d", roomID, winnerID, loserID)
	s.scheduleTeardownLocked(s.opts.RetainWindow)
}

// broadcastStateLocked sends the post-tick state to every member. Ball
// coordinates are mirrored for the right-side recipient so each client sees
// its own paddle on the near side.
func (s *Session) broadcastStateLocked() {
	players := make(map[string]Player, len(s.players))
	for _, p := range s.players {
		players[string(p.Side)] = *p
	}

	for _, p := range s.players {
		ball := s.ball
		if p.Side == SideRight {
			ball.X = FieldWidth - ball.X
			ball.DX = -ball.DX
		}
		s.sender.SendToConnection(p.ConnID, map[string]interface{}{
			"type":    "state",
			"players": players,
			"ball":    ball,
		})
	}
}

// clampSpeed caps the velocity magnitude at MaxSpeed, preserving direction.
func clampSpeed(dx, dy float64) (float64, float64) {
	speed := math.Hypot(dx, dy)
	if speed <= MaxSpeed || speed == 0 {
		return dx, dy
	}
	scale := MaxSpeed / speed
	return dx * scale, dy * scale
}
