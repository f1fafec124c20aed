// Package session owns the one link between the two peers and runs every
// exchange over it: the startup identity handshake and the per-frame sync.
//
// Every exchange follows the same ordering rule. The Initiator sends and then
// receives; the Responder receives and then sends. With blocking calls on
// both ends this guarantees that whenever one peer is blocked receiving, the
// other is sending, so the pair cannot deadlock on an unbuffered link.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/1ureka/pongon/internal/config"
	"github.com/1ureka/pongon/internal/protocol"
	"github.com/1ureka/pongon/internal/transport"
	"github.com/1ureka/pongon/internal/util"
)

// Status is the outcome of the last exchange.
type Status int

const (
	StatusReady        Status = iota // no exchange attempted yet
	StatusDone                       // last exchange completed
	StatusDisconnected               // peer closed or link severed
	StatusTimeout                    // deadline expired
	StatusCancelled                  // caller's context ended
	StatusError                      // any other failure, including malformed frames
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusDone:
		return "done"
	case StatusDisconnected:
		return "disconnected"
	case StatusTimeout:
		return "timeout"
	case StatusCancelled:
		return "cancelled"
	default:
		return "error"
	}
}

// Options tunes a Session.
type Options struct {
	// Timeout bounds each exchange. Zero means no deadline other than the
	// one carried by the context.
	Timeout time.Duration
}

// Session holds the link, the role and the identities of one game. It is
// driven from a single goroutine (the frame loop); only Close may be called
// concurrently.
type Session struct {
	role config.Role
	link transport.Link
	opts Options
	tag  uint32

	localNick  string
	remoteNick string

	status    atomic.Int32 // Status; read by Close from any goroutine
	lastBytes int

	velOut [protocol.VelocitySize]byte
	velIn  [protocol.VelocitySize]byte

	closeOnce sync.Once
	closeErr  error
}

// New wraps an established link. The two connected processes must hold
// opposite roles; this is not checked.
func New(role config.Role, link transport.Link, opts Options) *Session {
	return &Session{
		role: role,
		link: link,
		opts: opts,
		tag:  util.SessionTag(link.LocalAddr(), link.RemoteAddr()),
	}
}

func (s *Session) Role() config.Role  { return s.role }
func (s *Session) Tag() uint32        { return s.tag }
func (s *Session) LocalNick() string  { return s.localNick }
func (s *Session) RemoteNick() string { return s.remoteNick }
func (s *Session) Status() Status     { return Status(s.status.Load()) }

func (s *Session) setStatus(st Status) { s.status.Store(int32(st)) }

// LastBytes returns the number of bytes moved by the last successful exchange.
func (s *Session) LastBytes() int { return s.lastBytes }

// Close disconnects the link. Safe to call multiple times and from any goroutine.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.link.Close()
		util.Logf(s.tag, "session closed (last status: %s)", s.Status())
	})
	return s.closeErr
}

// ---------------------------------------------------------------------------
// Exchanges
// ---------------------------------------------------------------------------

// ExchangeIdentity sends the local nickname and returns the peer's. It runs
// once, before the frame loop; any failure aborts startup.
func (s *Session) ExchangeIdentity(ctx context.Context, localName string) (string, error) {
	s.localNick = config.TruncateNick(localName)

	out, err := protocol.EncodeText(s.localNick)
	if err != nil {
		return "", err
	}

	var remote string
	err = s.exchange(ctx,
		func() error { return s.link.Send(out) },
		func() (err error) {
			remote, err = s.receiveText()
			return err
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to exchange nicks: %w", err)
	}
	if remote == "" {
		s.setStatus(StatusError)
		return "", &protocol.Error{Frame: "identity", Reason: "empty nickname"}
	}

	s.remoteNick = config.TruncateNick(remote)
	s.lastBytes = len(out) + protocol.LengthSize + len(remote)
	util.Logf(s.tag, "identity exchanged: %q <-> %q", s.localNick, s.remoteNick)
	return s.remoteNick, nil
}

// SyncVelocity trades the local paddle velocity for the remote one. It is
// called exactly once per tick, after the local velocity is final and before
// motion is applied. The returned value is bit-identical to what the peer
// passed in.
func (s *Session) SyncVelocity(ctx context.Context, local float32) (float32, error) {
	copy(s.velOut[:], protocol.EncodeVelocity(local))

	err := s.exchange(ctx,
		func() error { return s.link.Send(s.velOut[:]) },
		func() error { return s.link.Receive(s.velIn[:]) },
	)
	if err != nil {
		return 0, err
	}

	s.lastBytes = 2 * protocol.VelocitySize
	return protocol.DecodeVelocity(s.velIn[:])
}

// SyncTick is SyncVelocity for chat-enabled games: velocity and an optional
// chat line travel in one frame, so the ordering rule is applied once per
// tick rather than once per field. A chat payload that is not valid UTF-8 is
// dropped with a warning; the velocity is still returned.
func (s *Session) SyncTick(ctx context.Context, out protocol.TickFrame) (protocol.TickFrame, error) {
	frame, err := protocol.EncodeTick(out)
	if err != nil {
		return protocol.TickFrame{}, err
	}

	var in protocol.TickFrame
	var received int
	err = s.exchange(ctx,
		func() error { return s.link.Send(frame) },
		func() error {
			var hdr [protocol.TickHeaderSize]byte
			if err := s.link.Receive(hdr[:]); err != nil {
				return err
			}
			v, n, err := protocol.DecodeTickHeader(hdr[:])
			if err != nil {
				return err
			}
			in.Velocity = v

			payload := make([]byte, n)
			if n > 0 {
				if err := s.link.Receive(payload); err != nil {
					return err
				}
			}
			received = len(hdr) + n

			chat, err := protocol.DecodeText(payload)
			if err != nil {
				util.LogWarning("dropping chat message from %s: %v", s.remoteNick, err)
				return nil
			}
			in.Chat = chat
			return nil
		},
	)
	if err != nil {
		return protocol.TickFrame{}, err
	}

	s.lastBytes = len(frame) + received
	return in, nil
}

// receiveText reads one length-prefixed text frame.
func (s *Session) receiveText() (string, error) {
	var hdr [protocol.LengthSize]byte
	if err := s.link.Receive(hdr[:]); err != nil {
		return "", err
	}
	n, err := protocol.DecodeTextLength(hdr[:])
	if err != nil {
		return "", err
	}

	payload := make([]byte, n)
	if n > 0 {
		if err := s.link.Receive(payload); err != nil {
			return "", err
		}
	}
	return protocol.DecodeText(payload)
}

// ---------------------------------------------------------------------------
// Ordering
// ---------------------------------------------------------------------------

// exchange runs send and recv in the order fixed by the role. Every exchange
// in the package goes through here so the ordering is decided in one place.
func (s *Session) exchange(ctx context.Context, send, recv func() error) error {
	release, err := s.arm(ctx)
	if err != nil {
		s.setStatus(StatusError)
		if ctx.Err() != nil {
			s.setStatus(StatusCancelled)
		}
		return err
	}
	defer release()

	first, second := send, recv
	if s.role == config.RoleResponder {
		first, second = recv, send
	}

	if err := first(); err != nil {
		return s.fail(ctx, err)
	}
	if err := second(); err != nil {
		return s.fail(ctx, err)
	}

	s.setStatus(StatusDone)
	util.Stats.AddExchange()
	return nil
}

// pastDeadline is used to unblock a pending call immediately.
var pastDeadline = time.Unix(1, 0)

// arm applies the deadline for one exchange (the earlier of ctx's deadline
// and now+Timeout) and arranges for ctx cancellation to unblock a pending
// send or receive. The returned release func must be called when the
// exchange is over.
func (s *Session) arm(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var deadline time.Time
	if s.opts.Timeout > 0 {
		deadline = time.Now().Add(s.opts.Timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if err := s.link.SetDeadline(deadline); err != nil {
		return nil, &transport.TransportError{Op: "set deadline", Err: err}
	}

	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		_ = s.link.SetDeadline(pastDeadline)
	})

	return func() {
		if !stop() {
			<-fired
		}
	}, nil
}

// fail records the status for err and returns the error the caller sees.
func (s *Session) fail(ctx context.Context, err error) error {
	ctxErr := ctx.Err()
	if ctxErr == nil && transport.IsTimeout(err) {
		// The link deadline may fire a moment before ctx notices its own.
		if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
			ctxErr = context.DeadlineExceeded
		}
	}

	switch {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		s.setStatus(StatusTimeout)
		err = fmt.Errorf("%w: %w", ctxErr, err)
	case ctxErr != nil:
		s.setStatus(StatusCancelled)
		err = fmt.Errorf("%w: %w", ctxErr, err)
	case transport.IsTimeout(err):
		s.setStatus(StatusTimeout)
	case transport.IsClosed(err):
		s.setStatus(StatusDisconnected)
	default:
		s.setStatus(StatusError)
	}
	util.Logf(s.tag, "exchange failed (%s): %v", s.Status(), err)
	return err
}
