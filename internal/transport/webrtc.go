package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/pongon/internal/util"
)

const (
	highWaterMark   = 256 * 1024 // pause sending when bufferedAmount exceeds this
	lowWaterMark    = 64 * 1024  // resume sending when bufferedAmount drops below this
	inboxBufferSize = 64         // inbound message channel capacity
)

// STUN servers for ICE candidate gathering. No TURN: peers connect directly.
var stunServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// newPeerConnection creates a PeerConnection configured with Google STUN
// servers. Loopback candidates are gathered too so two players on one
// machine can connect.
func newPeerConnection() (*webrtc.PeerConnection, error) {
	var se webrtc.SettingEngine
	se.SetIncludeLoopbackCandidate(true)
	api := webrtc.NewAPI(webrtc.WithSettingEngine(se))

	config := webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: stunServers},
		},
	}
	return api.NewPeerConnection(config)
}

// newDataChannel creates a pre-negotiated DataChannel on the given
// PeerConnection. Negotiated mode (ID 0) lets both sides create the channel
// independently without relying on OnDataChannel. The channel is left ordered
// and reliable: the sync protocol needs a stream, not datagrams.
func newDataChannel(pc *webrtc.PeerConnection) (*webrtc.DataChannel, error) {
	negotiated := true
	id := uint16(0)

	return pc.CreateDataChannel("pongon", &webrtc.DataChannelInit{
		Negotiated: &negotiated,
		ID:         &id,
	})
}

// PeerLink wraps a single PeerConnection + DataChannel pair and exposes it as
// a Link once signaling has completed.
//
// Its lifecycle is governed by the DataChannel state and the context passed
// at construction time: a closed channel or a failed PeerConnection ends it.
type PeerLink struct {
	pc *webrtc.PeerConnection
	dc *webrtc.DataChannel

	openSignal  chan struct{}
	drainSignal chan struct{}
	inbox       chan []byte
	reader      messageReader

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	deadline time.Time
	wake     chan struct{} // closed and replaced on every SetDeadline

	closeOnce sync.Once
	closeErr  error
}

// NewPeerLink creates a PeerLink backed by a new PeerConnection and a
// pre-negotiated DataChannel. The caller performs signaling through the
// exposed methods (CreateOffer / CreateAnswer / …) and waits on Ready.
func NewPeerLink(ctx context.Context) (*PeerLink, error) {
	pc, err := newPeerConnection()
	if err != nil {
		return nil, err
	}

	dc, err := newDataChannel(pc)
	if err != nil {
		pc.Close()
		return nil, err
	}

	lCtx, lCancel := context.WithCancel(ctx)

	l := &PeerLink{
		pc:          pc,
		dc:          dc,
		openSignal:  make(chan struct{}),
		drainSignal: make(chan struct{}, 1),
		inbox:       make(chan []byte, inboxBufferSize),
		wake:        make(chan struct{}),
		ctx:         lCtx,
		cancel:      lCancel,
	}
	l.reader.next = l.nextMessage

	// DC open gate.
	var openOnce sync.Once
	dc.OnOpen(func() {
		openOnce.Do(func() { close(l.openSignal) })
	})

	// DC close → cancel link context.
	dc.OnClose(func() {
		util.LogDebug("DataChannel closed")
		lCancel()
	})

	// Messages are delivered in order by a single pion goroutine.
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		select {
		case l.inbox <- msg.Data:
		case <-lCtx.Done():
		}
	})

	dc.SetBufferedAmountLowThreshold(uint64(lowWaterMark))
	dc.OnBufferedAmountLow(func() {
		select {
		case l.drainSignal <- struct{}{}:
		default:
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		util.LogDebug("PeerConnection state: %s", state.String())
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			lCancel()
		}
	})

	return l, nil
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Ready returns a channel that is closed when the DataChannel is open.
func (l *PeerLink) Ready() <-chan struct{} {
	return l.openSignal
}

// Done returns a channel that is closed when the link is shut down
// (DataChannel closed, PeerConnection failed or parent context cancelled).
func (l *PeerLink) Done() <-chan struct{} {
	return l.ctx.Done()
}

// Close shuts down the DataChannel and PeerConnection.
func (l *PeerLink) Close() error {
	l.closeOnce.Do(func() {
		l.cancel()
		l.closeErr = errors.Join(l.dc.Close(), l.pc.Close())
	})
	return l.closeErr
}

// ---------------------------------------------------------------------------
// Signaling
// ---------------------------------------------------------------------------

// CreateOffer generates an SDP offer.
func (l *PeerLink) CreateOffer() (webrtc.SessionDescription, error) {
	return l.pc.CreateOffer(nil)
}

// CreateAnswer generates an SDP answer.
func (l *PeerLink) CreateAnswer() (webrtc.SessionDescription, error) {
	return l.pc.CreateAnswer(nil)
}

// SetLocalDescription applies the local SDP.
func (l *PeerLink) SetLocalDescription(sdp webrtc.SessionDescription) error {
	return l.pc.SetLocalDescription(sdp)
}

// SetRemoteDescription applies the remote SDP.
func (l *PeerLink) SetRemoteDescription(sdp webrtc.SessionDescription) error {
	return l.pc.SetRemoteDescription(sdp)
}

// OnICECandidate registers a callback invoked whenever a new local ICE
// candidate is gathered. A nil candidate signals the end of gathering.
func (l *PeerLink) OnICECandidate(fn func(*webrtc.ICECandidate)) {
	l.pc.OnICECandidate(fn)
}

// AddICECandidate adds a remote ICE candidate received through signaling.
func (l *PeerLink) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return l.pc.AddICECandidate(candidate)
}

// ---------------------------------------------------------------------------
// Link
// ---------------------------------------------------------------------------

func (l *PeerLink) Send(p []byte) error {
	if err := l.waitWritable(); err != nil {
		return &TransportError{Op: "send", Err: err}
	}

	// pion may hold on to the slice until it is written out.
	data := make([]byte, len(p))
	copy(data, p)

	if err := l.dc.Send(data); err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	util.Stats.AddSent(len(p))
	return nil
}

// waitWritable blocks while the channel is above the high water mark.
func (l *PeerLink) waitWritable() error {
	select {
	case <-l.ctx.Done():
		return ErrLinkClosed
	default:
	}
	if l.dc.BufferedAmount() <= uint64(highWaterMark) {
		return nil
	}

	for {
		expired, wake, stop := l.deadlineTimer()
		select {
		case <-l.drainSignal:
			stop()
			return nil
		case <-l.ctx.Done():
			stop()
			return ErrLinkClosed
		case <-expired:
			stop()
			return os.ErrDeadlineExceeded
		case <-wake:
			stop()
		}
	}
}

func (l *PeerLink) Receive(p []byte) error {
	n, err := l.reader.readFull(p)
	util.Stats.AddRecv(n)
	if err != nil {
		return &TransportError{Op: "receive", Err: err}
	}
	return nil
}

// nextMessage blocks for the next inbound message, the link closing, or the
// deadline expiring. Messages already queued are drained before a close is
// reported.
func (l *PeerLink) nextMessage() ([]byte, error) {
	select {
	case msg := <-l.inbox:
		return msg, nil
	default:
	}

	for {
		expired, wake, stop := l.deadlineTimer()
		select {
		case msg := <-l.inbox:
			stop()
			return msg, nil
		case <-l.ctx.Done():
			stop()
			return nil, ErrLinkClosed
		case <-expired:
			stop()
			return nil, os.ErrDeadlineExceeded
		case <-wake:
			stop()
		}
	}
}

// SetDeadline records the deadline and wakes any call that is waiting so it
// re-evaluates against the new value.
func (l *PeerLink) SetDeadline(t time.Time) error {
	l.mu.Lock()
	l.deadline = t
	close(l.wake)
	l.wake = make(chan struct{})
	l.mu.Unlock()
	return nil
}

// deadlineTimer returns a channel that fires at the current deadline (nil,
// never firing, when no deadline is set) and the channel that signals the
// next SetDeadline.
func (l *PeerLink) deadlineTimer() (<-chan time.Time, <-chan struct{}, func()) {
	l.mu.Lock()
	deadline, wake := l.deadline, l.wake
	l.mu.Unlock()

	if deadline.IsZero() {
		return nil, wake, func() {}
	}
	timer := time.NewTimer(time.Until(deadline))
	return timer.C, wake, func() { timer.Stop() }
}

func (l *PeerLink) LocalAddr() string  { return l.candidateAddr(true) }
func (l *PeerLink) RemoteAddr() string { return l.candidateAddr(false) }

// candidateAddr reports the address of the selected ICE candidate pair.
func (l *PeerLink) candidateAddr(local bool) string {
	sctp := l.pc.SCTP()
	if sctp == nil || sctp.Transport() == nil {
		return "webrtc"
	}
	pair, err := sctp.Transport().ICETransport().GetSelectedCandidatePair()
	if err != nil || pair == nil {
		return "webrtc"
	}
	c := pair.Remote
	if local {
		c = pair.Local
	}
	if c == nil {
		return "webrtc"
	}
	return net.JoinHostPort(c.Address, strconv.Itoa(int(c.Port)))
}

// String describes the link for log lines.
func (l *PeerLink) String() string {
	return fmt.Sprintf("webrtc %s -> %s", l.LocalAddr(), l.RemoteAddr())
}
