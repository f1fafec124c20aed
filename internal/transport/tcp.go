package transport

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/1ureka/pongon/internal/util"
)

// connLink adapts any stream net.Conn (TCP, net.Pipe) to Link.
type connLink struct {
	conn net.Conn

	closeOnce sync.Once
	closeErr  error
}

// NewConnLink wraps an established stream connection.
func NewConnLink(conn net.Conn) Link {
	return &connLink{conn: conn}
}

func (l *connLink) Send(p []byte) error {
	n, err := l.conn.Write(p)
	util.Stats.AddSent(n)
	if err == nil && n != len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	return nil
}

func (l *connLink) Receive(p []byte) error {
	n, err := io.ReadFull(l.conn, p)
	util.Stats.AddRecv(n)
	if err != nil {
		return &TransportError{Op: "receive", Err: err}
	}
	return nil
}

func (l *connLink) SetDeadline(t time.Time) error { return l.conn.SetDeadline(t) }
func (l *connLink) LocalAddr() string             { return l.conn.LocalAddr().String() }
func (l *connLink) RemoteAddr() string            { return l.conn.RemoteAddr().String() }

func (l *connLink) Close() error {
	l.closeOnce.Do(func() { l.closeErr = l.conn.Close() })
	return l.closeErr
}

// ---------------------------------------------------------------------------
// TCP
// ---------------------------------------------------------------------------

// Listener is the Initiator-side TCP listener. It hands out exactly one link.
type Listener struct {
	ln net.Listener
}

// Listen binds addr (e.g. ":7171").
func Listen(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}
	return &Listener{ln: ln}, nil
}

// Addr returns the bound address, useful when listening on port 0.
func (l *Listener) Addr() string {
	return l.ln.Addr().String()
}

// Accept blocks until one peer connects or ctx is cancelled. The listener is
// closed afterwards either way: a session never takes a second peer.
func (l *Listener) Accept(ctx context.Context) (Link, error) {
	stop := context.AfterFunc(ctx, func() { l.ln.Close() })
	defer stop()

	conn, err := l.ln.Accept()
	l.ln.Close()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ConnectError{Addr: l.Addr(), Err: err}
	}
	return NewConnLink(conn), nil
}

// Close stops listening without accepting.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// Dial connects to the Initiator at addr (host:port).
func Dial(ctx context.Context, addr string) (Link, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectError{Addr: addr, Err: err}
	}
	return NewConnLink(conn), nil
}
