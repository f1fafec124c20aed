// Package physics computes the per-tick velocity changes of the ball and the
// local paddle. Everything here is pure: no I/O and no package state.
package physics

// Vec2 is a 2D vector in playfield units (pixels, y grows downwards).
type Vec2 struct {
	X, Y float32
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Box is an axis-aligned bounding box.
type Box struct {
	Top, Bottom, Left, Right float32
}

// BoxAt returns the box centered at c with the given half extents.
func BoxAt(c Vec2, halfW, halfH float32) Box {
	return Box{
		Top:    c.Y - halfH,
		Bottom: c.Y + halfH,
		Left:   c.X - halfW,
		Right:  c.X + halfW,
	}
}

// Overlaps reports whether a and b intersect. Touching edges count.
func Overlaps(a, b Box) bool {
	return a.Left <= b.Right && b.Left <= a.Right &&
		a.Top <= b.Bottom && b.Top <= a.Bottom
}

// Field is the playfield size.
type Field struct {
	Width, Height float32
}

// Boxes holds the boxes of the three bodies for one tick.
type Boxes struct {
	Ball, Local, Remote Box
}

// Velocities holds the per-tick motion of the three bodies. Remote is only
// ever written by the network exchange.
type Velocities struct {
	Ball   Vec2
	Local  float32
	Remote float32
}

// Update applies collisions and bounds to v and returns the result.
//
// A paddle hit reverses the ball horizontally and suppresses the wall checks
// for that tick. Otherwise the ball is sent back into the field from any side
// it has crossed. The local paddle is stopped at the top and bottom edges.
func Update(field Field, boxes Boxes, v Velocities) Velocities {
	if Overlaps(boxes.Ball, boxes.Local) || Overlaps(boxes.Ball, boxes.Remote) {
		v.Ball.X = -v.Ball.X
	} else {
		v.Ball = bounceWalls(field, boxes.Ball, v.Ball)
	}

	v.Local = ClampPaddle(v.Local, boxes.Local, field)
	return v
}

func bounceWalls(field Field, ball Box, vel Vec2) Vec2 {
	switch {
	case ball.Left < 0:
		vel.X = abs(vel.X)
	case ball.Right > field.Width:
		vel.X = -abs(vel.X)
	}
	switch {
	case ball.Top < 0:
		vel.Y = abs(vel.Y)
	case ball.Bottom > field.Height:
		vel.Y = -abs(vel.Y)
	}
	return vel
}

// ClampPaddle stops a paddle moving into the top or bottom edge.
func ClampPaddle(v float32, paddle Box, field Field) float32 {
	if v < 0 && paddle.Top <= 0 {
		return 0
	}
	if v > 0 && paddle.Bottom >= field.Height {
		return 0
	}
	return v
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
