// Package signaling handles the WebSocket-based signaling phase for SDP/ICE
// exchange when the game runs over a WebRTC DataChannel.
package signaling

// msgType identifies the kind of signaling message.
type msgType string

const (
	msgTypeOffer     msgType = "offer"
	msgTypeAnswer    msgType = "answer"
	msgTypeCandidate msgType = "candidate"
)

// message is the JSON structure exchanged over the WebSocket during signaling.
type message struct {
	Type      msgType `json:"type"`
	SDP       string  `json:"sdp,omitempty"`
	Candidate string  `json:"candidate,omitempty"` // JSON-encoded ICECandidateInit
}
