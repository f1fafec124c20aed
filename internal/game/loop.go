package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/1ureka/pongon/internal/chat"
	"github.com/1ureka/pongon/internal/physics"
	"github.com/1ureka/pongon/internal/protocol"
	"github.com/1ureka/pongon/internal/util"
)

// ErrOutOfStep is returned when the peer's frame cannot be a paddle velocity.
// It happens when only one side has chat enabled and the two frame layouts
// are read against each other.
var ErrOutOfStep = errors.New("peer frames out of step (chat must be on for both players or neither)")

// Syncer trades the local paddle velocity for the remote one once per tick.
// *session.Session implements it.
type Syncer interface {
	SyncVelocity(ctx context.Context, local float32) (float32, error)
	SyncTick(ctx context.Context, out protocol.TickFrame) (protocol.TickFrame, error)
}

// EventSource delivers input events. The loop drains it without blocking.
type EventSource interface {
	Events() <-chan Event
}

// Renderer draws one frame. It is called from the loop goroutine.
type Renderer interface {
	Render(f Frame)
}

// Frame is everything a renderer needs for one tick.
type Frame struct {
	Field      physics.Field
	Ball       physics.Vec2
	Local      physics.Vec2
	Remote     physics.Vec2
	LocalNick  string
	RemoteNick string

	Chat      []string // scrollback tail, oldest first; nil without chat
	Draft     string
	Composing bool
}

// Chat wires the chat sidecar into the loop.
type Chat struct {
	Outbox   *chat.Mailbox
	Log      *chat.Log
	Composer *chat.Composer // optional, only used to show the draft
}

// Loop is the fixed-rate frame loop.
type Loop struct {
	World    *World
	Sync     Syncer
	Events   EventSource
	Renderer Renderer
	Chat     *Chat // nil disables chat

	LocalNick  string
	RemoteNick string

	// Rate overrides FrameRate when non-zero.
	Rate int
}

// Run ticks until the player quits, ctx is cancelled or a sync fails. Only a
// sync failure is returned as an error.
func (l *Loop) Run(ctx context.Context) error {
	rate := l.Rate
	if rate <= 0 {
		rate = FrameRate
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	l.render()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		// The ticker and cancellation can be ready together.
		if ctx.Err() != nil {
			return nil
		}

		if quit := l.drainEvents(); quit {
			util.LogDebug("quit requested")
			return nil
		}

		if err := l.tick(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("frame sync failed: %w", err)
		}
	}
}

// drainEvents applies every pending input event and reports whether a close
// event was seen.
func (l *Loop) drainEvents() bool {
	if l.Events == nil {
		return false
	}
	ch := l.Events.Events()
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return true
			}
			if ev.Kind == EventClose {
				return true
			}
			if v, ok := KeyVelocity(ev); ok {
				l.World.Vel.Local = v
			}
		default:
			return false
		}
	}
}

// tick runs one frame: physics, sync, motion, render.
func (l *Loop) tick(ctx context.Context) error {
	l.World.Step()

	remote, err := l.sync(ctx, l.World.Vel.Local)
	if err != nil {
		return err
	}
	if !paddleVelocity(remote) {
		return fmt.Errorf("%w: remote velocity %v", ErrOutOfStep, remote)
	}
	l.World.Vel.Remote = remote
	l.World.Apply()

	util.Stats.AddFrame()
	l.render()
	return nil
}

func (l *Loop) sync(ctx context.Context, local float32) (float32, error) {
	if l.Chat == nil {
		return l.Sync.SyncVelocity(ctx, local)
	}

	out := protocol.TickFrame{Velocity: local}
	if msg, ok := l.Chat.Outbox.Take(); ok {
		out.Chat = chat.Format(l.LocalNick, msg)
	}

	in, err := l.Sync.SyncTick(ctx, out)
	if err != nil {
		return 0, err
	}

	if out.Chat != "" {
		l.Chat.Log.Append(out.Chat)
	}
	if in.Chat != "" {
		l.Chat.Log.Append(in.Chat)
	}
	return in.Velocity, nil
}

// paddleVelocity reports whether v is a speed a paddle can have.
func paddleVelocity(v float32) bool {
	return v == v && v >= -PaddleSpeed && v <= PaddleSpeed
}

func (l *Loop) render() {
	if l.Renderer == nil {
		return
	}
	f := Frame{
		Field:      l.World.Field,
		Ball:       l.World.Ball,
		Local:      l.World.Local,
		Remote:     l.World.Remote,
		LocalNick:  l.LocalNick,
		RemoteNick: l.RemoteNick,
	}
	if l.Chat != nil {
		f.Chat = l.Chat.Log.Tail(chat.KeepLines)
		if l.Chat.Composer != nil {
			f.Draft, f.Composing = l.Chat.Composer.Draft()
		}
	}
	l.Renderer.Render(f)
}
