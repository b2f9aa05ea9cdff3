package game

import (
	"math"
	"testing"
)

const eps = 1e-9

func TestCenterPaddleHitReflectsPerpendicular(t *testing.T) {
	f := newFixture(2)
	f.startMatch(t)

	// Left paddle face sits at x=PaddleInset; the default paddle is centered
	// vertically, so y=300 strikes its exact middle.
	f.setBall(Ball{X: 22, Y: 300, DX: -4, DY: 0, Radius: BallRadius})
	f.s.Tick()

	b := f.s.BallState()
	if b.DX <= 0 {
		t.Fatalf("ball still travelling left after paddle hit, dx = %v", b.DX)
	}
	if math.Abs(b.DY) > eps {
		t.Fatalf("center hit deflected vertically, dy = %v", b.DY)
	}
	want := 4 * SpeedIncreaseFactor
	if math.Abs(b.DX-want) > eps {
		t.Fatalf("speed after center hit = %v, want %v", b.DX, want)
	}
}

func TestEdgePaddleHitReflectsAtMaxOffset(t *testing.T) {
	f := newFixture(2)
	f.startMatch(t)

	// One unit above the bottom edge of the left paddle (262.5..337.5).
	f.setBall(Ball{X: 22, Y: 336.5, DX: -4, DY: 0, Radius: BallRadius})
	f.s.Tick()

	b := f.s.BallState()
	angle := math.Atan2(b.DY, b.DX)
	if math.Abs(angle-MaxBandOffset) > eps {
		t.Fatalf("edge hit angle = %v, want %v", angle, MaxBandOffset)
	}
}

func TestPaddleHitGainsSpeedUpToCap(t *testing.T) {
	f := newFixture(2)
	f.startMatch(t)

	f.setBall(Ball{X: 22, Y: 300, DX: -(MaxSpeed - 0.1), DY: 0, Radius: BallRadius})
	f.s.Tick()

	b := f.s.BallState()
	speed := math.Hypot(b.DX, b.DY)
	if speed > MaxSpeed+eps {
		t.Fatalf("speed after hit = %v, exceeds cap %v", speed, MaxSpeed)
	}
	if speed <= MaxSpeed-0.1 {
		t.Fatalf("speed after hit = %v, expected gain over %v", speed, MaxSpeed-0.1)
	}
}

func TestClampSpeedPreservesDirection(t *testing.T) {
	dx, dy := clampSpeed(30, 40)
	if math.Abs(dx-6) > eps || math.Abs(dy-8) > eps {
		t.Fatalf("clampSpeed(30, 40) = (%v, %v), want (6, 8)", dx, dy)
	}
	dx, dy = clampSpeed(3, 4)
	if dx != 3 || dy != 4 {
		t.Fatalf("clampSpeed(3, 4) = (%v, %v), want unchanged", dx, dy)
	}
}

func TestLunaticWallBounceScalesVelocity(t *testing.T) {
	f := newFixture(2)
	f.startMatch(t)
	f.s.SetModifier("c1")

	f.setBall(Ball{X: 450, Y: 12, DX: 1, DY: -4, Radius: BallRadius})
	f.s.Tick()

	b := f.s.BallState()
	if math.Abs(b.DX-1.5) > eps || math.Abs(b.DY-6) > eps {
		t.Fatalf("velocity after lunatic bounce = (%v, %v), want (1.5, 6)", b.DX, b.DY)
	}

	// The scale never pushes past the speed cap.
	f.s.SetModifier("c1")
	f.s.SetModifier("c1")
	f.setBall(Ball{X: 450, Y: 12, DX: 4, DY: -6, Radius: BallRadius})
	f.s.Tick()
	b = f.s.BallState()
	if speed := math.Hypot(b.DX, b.DY); speed > MaxSpeed+eps {
		t.Fatalf("speed after scaled bounce = %v, exceeds cap %v", speed, MaxSpeed)
	}
}

func TestWallBounceWithoutModifierKeepsSpeed(t *testing.T) {
	f := newFixture(2)
	f.startMatch(t)

	f.setBall(Ball{X: 450, Y: 12, DX: 1, DY: -4, Radius: BallRadius})
	f.s.Tick()

	b := f.s.BallState()
	if math.Abs(b.DX-1) > eps || math.Abs(b.DY-4) > eps {
		t.Fatalf("velocity after plain bounce = (%v, %v), want (1, 4)", b.DX, b.DY)
	}
}

// scoreGoalAgainstRight drives one goal past the right paddle, well away
// from its vertical span.
func scoreGoalAgainstRight(t *testing.T, f *sessionFixture) {
	t.Helper()
	f.setBall(Ball{X: 893, Y: 100, DX: 6, DY: 0, Radius: BallRadius})
	f.s.Tick()
}

func TestGoalEntersCooldownAndResumes(t *testing.T) {
	f := newFixture(2)
	f.startMatch(t)

	scoreGoalAgainstRight(t, f)

	if got := f.s.Phase(); got != PhaseCooldown {
		t.Fatalf("phase after goal = %s, want %s", got, PhaseCooldown)
	}
	p, _ := f.s.PlayerBySide(SideRight)
	if p.Score != 4 {
		t.Fatalf("conceding score = %d, want 4", p.Score)
	}
	b := f.s.BallState()
	if b.X != BallStartX || b.Y != BallStartY {
		t.Fatalf("ball not reset after goal: (%v, %v)", b.X, b.Y)
	}
	if n := f.sched.running(); n != 0 {
		t.Fatalf("tick loop still running during cooldown: %d", n)
	}

	// Ticks during cooldown are stale frames from the stopping loop.
	before := f.s.BallState()
	f.s.Tick()
	if got := f.s.BallState(); got != before {
		t.Fatal("ball advanced during cooldown")
	}

	f.timers.fire()
	if got := f.s.Phase(); got != PhaseRunning {
		t.Fatalf("phase after cooldown = %s, want %s", got, PhaseRunning)
	}
}

func TestMatchFinishesAtZeroScore(t *testing.T) {
	f := newFixture(2)
	f.startMatch(t)

	for i := 0; i < 5; i++ {
		scoreGoalAgainstRight(t, f)
		f.timers.fire()
	}

	if got := f.s.Phase(); got != PhaseFinished {
		t.Fatalf("phase after final goal = %s, want %s", got, PhaseFinished)
	}
	if n := f.sched.running(); n != 0 {
		t.Fatalf("tick loop still running after finish: %d", n)
	}

	winner, _ := f.s.PlayerBySide(SideLeft)
	loser, _ := f.s.PlayerBySide(SideRight)
	if winner.Score != 5 || loser.Score != 0 {
		t.Fatalf("final scores = (%d, %d), want (5, 0)", winner.Score, loser.Score)
	}

	for _, conn := range []string{"c1", "c2"} {
		over := f.sender.last(conn, "match-over")
		if over == nil {
			t.Fatalf("%s never received match-over", conn)
		}
		if over["winner_id"] != int64(2) || over["loser_id"] != int64(1) {
			t.Fatalf("%s match-over = %v, want winner 2 loser 1", conn, over)
		}
		if n := f.sender.count(conn, "match-over"); n != 1 {
			t.Fatalf("%s received %d match-over events, want 1", conn, n)
		}
	}

	rec := f.sink.waitRecorded(t)
	if rec.winnerID != 2 || rec.loserID != 1 {
		t.Fatalf("recorded result = %+v, want winner 2 loser 1", rec)
	}
	if rec.completedAt == 0 {
		t.Fatal("recorded result has zero completion time")
	}
}

func TestResultSinkErrorDoesNotAffectOutcome(t *testing.T) {
	f := newFixture(2)
	f.sink.err = errTestSink
	f.startMatch(t)

	for i := 0; i < 5; i++ {
		scoreGoalAgainstRight(t, f)
		f.timers.fire()
	}

	f.sink.waitRecorded(t)
	if got := f.s.Phase(); got != PhaseFinished {
		t.Fatalf("phase with failing sink = %s, want %s", got, PhaseFinished)
	}
	if n := f.sender.count("c2", "match-over"); n != 1 {
		t.Fatalf("c2 received %d match-over events with failing sink, want 1", n)
	}
}

func TestStateBroadcastMirrorsForRightSide(t *testing.T) {
	f := newFixture(2)
	f.startMatch(t)

	f.setBall(Ball{X: 100, Y: 200, DX: 3, DY: 1, Radius: BallRadius})
	f.s.Tick()

	left := f.sender.last("c2", "state")
	right := f.sender.last("c1", "state")
	if left == nil || right == nil {
		t.Fatal("missing state broadcast")
	}
	lb := left["ball"].(Ball)
	rb := right["ball"].(Ball)
	if rb.X != FieldWidth-lb.X {
		t.Errorf("right-side ball x = %v, want mirrored %v", rb.X, FieldWidth-lb.X)
	}
	if rb.DX != -lb.DX {
		t.Errorf("right-side ball dx = %v, want mirrored %v", rb.DX, -lb.DX)
	}
	if rb.Y != lb.Y || rb.DY != lb.DY {
		t.Errorf("vertical components differ between sides: %+v vs %+v", rb, lb)
	}
}
