package game

// Key is the game-relevant identity of a key.
type Key int

const (
	KeyOther Key = iota
	KeyUp        // W or up arrow
	KeyDown      // S or down arrow
)

// EventKind is the kind of input event.
type EventKind int

const (
	EventKeyDown EventKind = iota
	EventKeyUp
	EventClose // the player asked to quit
)

// Event is one input event delivered to the frame loop.
type Event struct {
	Kind EventKind
	Key  Key
}

// KeyVelocity returns the local paddle velocity set by ev. The second result
// is false for events that do not touch the paddle.
//
// Any key going down other than up/down stops the paddle, and so does any
// key going up.
func KeyVelocity(ev Event) (float32, bool) {
	switch ev.Kind {
	case EventKeyDown:
		switch ev.Key {
		case KeyUp:
			return -PaddleSpeed, true
		case KeyDown:
			return PaddleSpeed, true
		default:
			return 0, true
		}
	case EventKeyUp:
		return 0, true
	default:
		return 0, false
	}
}
