package signaling

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/pterm/pterm"

	"github.com/1ureka/pongon/internal/transport"
	"github.com/1ureka/pongon/internal/util"
)

// handoffGrace bounds the wait for the local DataChannel once the peer has
// hung up the signaling channel after a completed SDP exchange.
const handoffGrace = 10 * time.Second

// Host is the listening side of WebRTC signaling.
type Host struct {
	srv  *server
	port int
}

// Listen starts a PIN-protected signaling server on addr.
func Listen(addr string) (*Host, error) {
	srv := newServer(generatePIN(pinLength))
	port, err := srv.start(addr)
	if err != nil {
		return nil, err
	}
	return &Host{srv: srv, port: port}, nil
}

// Port returns the bound port.
func (h *Host) Port() int { return h.port }

// PIN returns the PIN a client must present in its URL.
func (h *Host) PIN() string { return h.srv.pin }

// Accept waits for one client, runs the SDP/ICE exchange with it (host
// offers) and returns the open link. The signaling server is closed on return.
func (h *Host) Accept(ctx context.Context) (*transport.PeerLink, error) {
	defer h.Close()

	wsConn, err := h.srv.waitForClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for client: %w", err)
	}
	defer wsConn.Close()
	util.LogDebug("signaling client connected from %s", wsConn.RemoteAddr())

	return negotiate(ctx, wsConn, true)
}

// Close shuts down the signaling server.
func (h *Host) Close() {
	h.srv.close()
}

// EstablishAsHost executes the full host-side signaling flow:
//  1. Start a WS server on addr, protected by a random PIN
//  2. Print the join hint
//  3. Wait for the client to connect
//  4. Create a PeerLink and perform the SDP/ICE exchange (host offers)
//  5. Wait for the DataChannel to be ready
//  6. Close the WS server and connection
func EstablishAsHost(ctx context.Context, addr string) (*transport.PeerLink, error) {
	h, err := Listen(addr)
	if err != nil {
		return nil, err
	}

	pterm.DefaultBox.
		WithTitle("WebRTC signaling").
		WithWriter(os.Stderr).
		Println(joinHint(h.Port(), h.PIN()))
	util.LogInfo("waiting for client on port %d (webrtc)...", h.Port())

	return h.Accept(ctx)
}

// EstablishAsClient executes the full client-side signaling flow:
//  1. Connect to the host's WS server (the URL carries the PIN)
//  2. Create a PeerLink and answer the host's offer
//  3. Wait for the DataChannel to be ready
//  4. Close the WS connection
func EstablishAsClient(ctx context.Context, wsURL string) (*transport.PeerLink, error) {
	util.LogInfo("connecting to signaling server %s ...", wsURL)
	wsConn, err := connect(ctx, wsURL)
	if err != nil {
		return nil, err
	}
	defer wsConn.Close()

	return negotiate(ctx, wsConn, false)
}

// negotiate runs the SDP/ICE exchange over wsConn until the DataChannel is
// open. The host sends the offer; the client answers from its receiver.
//
// Each side hangs up the WebSocket as soon as its own channel opens, which
// is usually before the other side's opens. A hang-up after the remote
// description is applied is therefore not fatal: the wait goes on for up to
// handoffGrace.
func negotiate(ctx context.Context, wsConn *websocket.Conn, offer bool) (*transport.PeerLink, error) {
	link, err := transport.NewPeerLink(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create peer link: %w", err)
	}

	s := &sender{link: link, conn: wsConn}
	r := &receiver{link: link, conn: wsConn, sender: s}

	link.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		// Best effort: a lost candidate only narrows the path choice.
		if err := s.sendCandidate(c); err != nil {
			util.LogDebug("failed to send ICE candidate: %v", err)
		}
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.watch() // exits when wsConn is closed by the caller
	}()

	if offer {
		if err := s.sendOffer(); err != nil {
			link.Close()
			return nil, fmt.Errorf("failed to send offer: %w", err)
		}
	}

	var grace <-chan time.Time
	for {
		select {
		case <-link.Ready():
			util.LogDebug("DataChannel established, closing signaling channel")
			return link, nil

		case err := <-errCh:
			errCh = nil
			// watch has returned, so r.remoteSet is settled.
			if !errors.Is(err, errHangup) || !r.remoteSet {
				link.Close()
				return nil, fmt.Errorf("signaling failed: %w", err)
			}
			util.LogDebug("signaling channel closed by peer, waiting for DataChannel: %v", err)
			timer := time.NewTimer(handoffGrace)
			defer timer.Stop()
			grace = timer.C

		case <-grace:
			link.Close()
			return nil, fmt.Errorf("signaling failed: DataChannel not open %s after peer hung up", handoffGrace)

		case <-link.Done():
			link.Close()
			return nil, fmt.Errorf("signaling failed: %w", transport.ErrLinkClosed)

		case <-ctx.Done():
			link.Close()
			return nil, ctx.Err()
		}
	}
}

// joinHint is the text shown to the host so the other player can connect.
func joinHint(port int, pin string) string {
	return fmt.Sprintf("Port : %d\nPIN  : %s\n\nOn the other machine run:\n  pongon -client -transport webrtc -addr <host>:%d?pin=%s",
		port, pin, port, pin)
}
