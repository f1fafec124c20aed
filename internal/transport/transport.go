// Package transport provides the single bidirectional byte-stream link a
// session runs over. Three implementations share one contract: raw TCP,
// WebSocket and a WebRTC DataChannel.
package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"
)

// Link is a reliable, ordered, blocking byte stream between exactly two peers.
//
// Send and Receive have whole-buffer semantics: they either transfer all of p
// or return an error. A short transfer is never reported as success. Any
// error is terminal for the link; there is no retry.
type Link interface {
	Send(p []byte) error
	Receive(p []byte) error

	// SetDeadline bounds every pending and future Send/Receive. A zero
	// value clears it. A deadline in the past unblocks pending calls.
	SetDeadline(t time.Time) error

	LocalAddr() string
	RemoteAddr() string

	// Close releases the link. Safe to call multiple times.
	Close() error
}

// ErrLinkClosed is returned by message-based links once the underlying
// channel has gone away.
var ErrLinkClosed = errors.New("link closed")

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// BindError reports that the Initiator could not listen on its address.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string { return fmt.Sprintf("failed to listen on %s: %v", e.Addr, e.Err) }
func (e *BindError) Unwrap() error { return e.Err }

// ConnectError reports that a connection to or from the peer could not be
// established.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string { return fmt.Sprintf("connection to %s failed: %v", e.Addr, e.Err) }
func (e *ConnectError) Unwrap() error { return e.Err }

// TransportError reports an incomplete send or receive, or a severed link.
type TransportError struct {
	Op  string // "send" or "receive"
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s failed: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// IsTimeout reports whether err was caused by an expired deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// IsClosed reports whether err means the peer or the local side closed the link.
func IsClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, ErrLinkClosed)
}
