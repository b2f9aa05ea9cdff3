package game

import "math"

// Field and physics constants for the pong simulation.
// These MUST match the constants in the frontend renderer exactly.

const (
	FieldWidth  = 900.0
	FieldHeight = 600.0

	PaddleHeight = 75.0
	PaddleInset  = 10.0 // distance of the paddle face from its goal line
	PaddleBands  = 8    // reflection bands along the paddle length

	BallRadius  = 10.0
	BallStartX  = 450.0
	BallStartY  = 300.0
	BallStartDX = 3.0
	BallStartDY = 1.0

	// Speed gain on every paddle hit, clamped to MaxSpeed.
	SpeedIncreaseFactor = 1.05
	MaxSpeed            = 10.0

	// Per-level velocity scale applied on boundary-wall bounces while the
	// lunatic modifier is active.
	LunaticWallFactor = 1.5

	// AngleRange spans the reflection offsets across the paddle bands.
	AngleRange = math.Pi / 8

	// MaxBandOffset is the offset of an edge strike from the perpendicular:
	// PaddleBands/2 whole band steps of AngleRange/PaddleBands.
	MaxBandOffset = AngleRange / 2
)
