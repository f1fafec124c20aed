// Package game holds the world state and the fixed-rate frame loop that
// ties input, physics, the network sync and rendering together.
package game

import (
	"github.com/1ureka/pongon/internal/config"
	"github.com/1ureka/pongon/internal/physics"
)

// Playfield and body sizes in pixels, speeds in pixels per tick.
const (
	FieldWidth   float32 = 512
	FieldHeight  float32 = 256
	BallRadius   float32 = 10.5
	BallSpeed    float32 = 2.5
	PaddleWidth  float32 = 15
	PaddleHeight float32 = 60
	PaddleSpeed  float32 = 8.8
)

// FrameRate is the number of ticks per second.
const FrameRate = 60

// World is the simulation state of one process. Both peers start from the
// same absolute layout: the Initiator's paddle is on the left.
type World struct {
	Field  physics.Field
	Ball   physics.Vec2 // centers
	Local  physics.Vec2
	Remote physics.Vec2
	Vel    physics.Velocities
}

// NewWorld returns the starting layout for role.
func NewWorld(role config.Role) *World {
	left := physics.Vec2{X: PaddleWidth / 2, Y: FieldHeight / 2}
	right := physics.Vec2{X: FieldWidth - PaddleWidth/2, Y: FieldHeight / 2}

	w := &World{
		Field: physics.Field{Width: FieldWidth, Height: FieldHeight},
		Ball:  physics.Vec2{X: FieldWidth / 2, Y: FieldHeight / 2},
		Vel: physics.Velocities{
			Ball: physics.Vec2{X: BallSpeed, Y: BallSpeed / 4},
		},
	}
	if role == config.RoleInitiator {
		w.Local, w.Remote = left, right
	} else {
		w.Local, w.Remote = right, left
	}
	return w
}

// Boxes returns the bounding boxes for the current positions.
func (w *World) Boxes() physics.Boxes {
	return physics.Boxes{
		Ball:   physics.BoxAt(w.Ball, BallRadius, BallRadius),
		Local:  physics.BoxAt(w.Local, PaddleWidth/2, PaddleHeight/2),
		Remote: physics.BoxAt(w.Remote, PaddleWidth/2, PaddleHeight/2),
	}
}

// Step runs the physics update on the current positions.
func (w *World) Step() {
	w.Vel = physics.Update(w.Field, w.Boxes(), w.Vel)
}

// Apply moves every body by its velocity. Paddles only move vertically.
func (w *World) Apply() {
	w.Ball = w.Ball.Add(w.Vel.Ball)
	w.Local.Y += w.Vel.Local
	w.Remote.Y += w.Vel.Remote
}
