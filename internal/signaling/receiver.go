package signaling

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/pongon/internal/transport"
	"github.com/1ureka/pongon/internal/util"
)

// errHangup marks a watch that ended because the WebSocket went away.
var errHangup = errors.New("signaling channel closed")

// receiver applies incoming signaling messages to the PeerLink. Candidates
// that arrive before the remote description are held until it is set.
type receiver struct {
	link   *transport.PeerLink
	conn   *websocket.Conn
	sender *sender

	remoteSet bool
	pending   []webrtc.ICECandidateInit
}

// watch reads messages until the WebSocket is closed or a message cannot be
// applied.
func (r *receiver) watch() error {
	for {
		var msg message
		if err := r.conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("%w: failed to read signaling message: %w", errHangup, err)
		}

		switch msg.Type {
		case msgTypeOffer:
			if err := r.setRemote(webrtc.SDPTypeOffer, msg.SDP); err != nil {
				return err
			}
			if err := r.sender.sendAnswer(); err != nil {
				return fmt.Errorf("failed to send answer: %w", err)
			}

		case msgTypeAnswer:
			if err := r.setRemote(webrtc.SDPTypeAnswer, msg.SDP); err != nil {
				return err
			}

		case msgTypeCandidate:
			var init webrtc.ICECandidateInit
			if err := json.Unmarshal([]byte(msg.Candidate), &init); err != nil {
				return fmt.Errorf("failed to parse ICE candidate: %w", err)
			}
			if !r.remoteSet {
				r.pending = append(r.pending, init)
				continue
			}
			if err := r.link.AddICECandidate(init); err != nil {
				return fmt.Errorf("failed to add ICE candidate: %w", err)
			}

		default:
			util.LogDebug("ignoring signaling message of type %q", msg.Type)
		}
	}
}

// setRemote applies the remote SDP and flushes any held candidates.
func (r *receiver) setRemote(typ webrtc.SDPType, sdp string) error {
	if err := r.link.SetRemoteDescription(webrtc.SessionDescription{Type: typ, SDP: sdp}); err != nil {
		return fmt.Errorf("failed to set remote %s: %w", typ, err)
	}
	r.remoteSet = true

	for _, c := range r.pending {
		if err := r.link.AddICECandidate(c); err != nil {
			return fmt.Errorf("failed to add ICE candidate: %w", err)
		}
	}
	r.pending = nil
	return nil
}
