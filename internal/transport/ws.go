package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1ureka/pongon/internal/util"
)

// WSPath is the HTTP path the Initiator serves the WebSocket upgrade on.
const WSPath = "/ws"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsLink carries the byte stream as binary WebSocket messages. One Send is
// one message; Receive reassembles across message boundaries.
type wsLink struct {
	conn   *websocket.Conn
	reader messageReader

	closeOnce sync.Once
	closeErr  error
}

func newWSLink(conn *websocket.Conn) *wsLink {
	l := &wsLink{conn: conn}
	l.reader.next = l.nextMessage
	return l
}

// nextMessage blocks for the next binary message, skipping anything else.
func (l *wsLink) nextMessage() ([]byte, error) {
	for {
		typ, data, err := l.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, ErrLinkClosed
			}
			return nil, err
		}
		if typ == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (l *wsLink) Send(p []byte) error {
	if err := l.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	util.Stats.AddSent(len(p))
	return nil
}

func (l *wsLink) Receive(p []byte) error {
	n, err := l.reader.readFull(p)
	util.Stats.AddRecv(n)
	if err != nil {
		return &TransportError{Op: "receive", Err: err}
	}
	return nil
}

func (l *wsLink) SetDeadline(t time.Time) error {
	if err := l.conn.SetReadDeadline(t); err != nil {
		return err
	}
	return l.conn.SetWriteDeadline(t)
}

func (l *wsLink) LocalAddr() string  { return l.conn.LocalAddr().String() }
func (l *wsLink) RemoteAddr() string { return l.conn.RemoteAddr().String() }

// Close sends a best-effort close frame, then drops the connection.
func (l *wsLink) Close() error {
	l.closeOnce.Do(func() {
		_ = l.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))
		l.closeErr = l.conn.Close()
	})
	return l.closeErr
}

// ---------------------------------------------------------------------------
// Initiator side
// ---------------------------------------------------------------------------

// WSListener is the Initiator-side WebSocket server. Only the first client
// that upgrades is accepted; later ones are turned away.
type WSListener struct {
	listener net.Listener
	connCh   chan *websocket.Conn
}

// ListenWS binds addr and starts serving the upgrade endpoint at WSPath.
func ListenWS(addr string) (*WSListener, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}

	s := &WSListener{
		listener: listener,
		connCh:   make(chan *websocket.Conn, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(WSPath, s.handleWS)

	go func() {
		_ = http.Serve(listener, mux)
	}()

	return s, nil
}

func (s *WSListener) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	// Only accept the first client.
	select {
	case s.connCh <- conn:
	default:
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "already connected"))
		conn.Close()
	}
}

// Addr returns the bound address.
func (s *WSListener) Addr() string {
	return s.listener.Addr().String()
}

// Accept blocks until a client upgrades or ctx is cancelled, then stops
// listening.
func (s *WSListener) Accept(ctx context.Context) (Link, error) {
	defer s.Close()

	select {
	case conn := <-s.connCh:
		return newWSLink(conn), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts down the listener, preventing new connections. An already
// accepted link is unaffected.
func (s *WSListener) Close() error {
	return s.listener.Close()
}

// ---------------------------------------------------------------------------
// Responder side
// ---------------------------------------------------------------------------

// DialWS connects to a WebSocket URL served by ListenWS.
func DialWS(ctx context.Context, wsURL string) (Link, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, &ConnectError{Addr: wsURL, Err: err}
	}
	return newWSLink(conn), nil
}

// NormalizeWSURL turns user input such as "10.0.0.2", "10.0.0.2:9000" or
// "wss://example.devtunnels.ms" into a full WebSocket URL ending in WSPath.
// The query string is kept (signaling carries its PIN there).
func NormalizeWSURL(raw string, defaultPort int) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty WebSocket URL")
	}
	if !strings.Contains(raw, "://") {
		raw = "ws://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid WebSocket URL: %s", raw)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid WebSocket URL scheme: %s", u.Scheme)
	}

	if u.Port() == "" && u.Scheme == "ws" {
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(defaultPort))
	}
	u.Path = WSPath
	u.Fragment = ""
	return u.String(), nil
}
