package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// Error reports a malformed frame received from the peer.
type Error struct {
	Frame  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("malformed %s frame: %s", e.Frame, e.Reason)
}

// ---------------------------------------------------------------------------
// Velocity frame: [float32]
// ---------------------------------------------------------------------------

// EncodeVelocity serializes a velocity as its IEEE-754 bits. The peer receives
// exactly the same float32, including signed zero and NaN payloads.
func EncodeVelocity(v float32) []byte {
	buf := make([]byte, VelocitySize)
	binary.BigEndian.PutUint32(buf, math.Float32bits(v))
	return buf
}

// DecodeVelocity deserializes a velocity frame.
func DecodeVelocity(data []byte) (float32, error) {
	if len(data) != VelocitySize {
		return 0, &Error{Frame: "velocity", Reason: fmt.Sprintf("got %d bytes, want %d", len(data), VelocitySize)}
	}
	return math.Float32frombits(binary.BigEndian.Uint32(data)), nil
}

// ---------------------------------------------------------------------------
// Text frame: [uint32 length][bytes]
// ---------------------------------------------------------------------------

// EncodeText serializes a length-prefixed UTF-8 string.
func EncodeText(s string) ([]byte, error) {
	if len(s) > MaxTextLen {
		return nil, &Error{Frame: "text", Reason: fmt.Sprintf("length %d exceeds %d", len(s), MaxTextLen)}
	}
	buf := make([]byte, LengthSize+len(s))
	binary.BigEndian.PutUint32(buf, uint32(len(s)))
	copy(buf[LengthSize:], s)
	return buf, nil
}

// DecodeTextLength parses a text length prefix and rejects oversized values
// before any payload is read.
func DecodeTextLength(hdr []byte) (int, error) {
	if len(hdr) != LengthSize {
		return 0, &Error{Frame: "text", Reason: fmt.Sprintf("length prefix is %d bytes, want %d", len(hdr), LengthSize)}
	}
	n := binary.BigEndian.Uint32(hdr)
	if n > MaxTextLen {
		return 0, &Error{Frame: "text", Reason: fmt.Sprintf("length %d exceeds %d", n, MaxTextLen)}
	}
	return int(n), nil
}

// DecodeText validates a text payload.
func DecodeText(payload []byte) (string, error) {
	if !utf8.Valid(payload) {
		return "", &Error{Frame: "text", Reason: "payload is not valid UTF-8"}
	}
	return string(payload), nil
}

// ---------------------------------------------------------------------------
// Tick frame: [float32][uint32 length][bytes]
// ---------------------------------------------------------------------------

// EncodeTick serializes a TickFrame.
func EncodeTick(f TickFrame) ([]byte, error) {
	text, err := EncodeText(f.Chat)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, VelocitySize+len(text))
	buf = append(buf, EncodeVelocity(f.Velocity)...)
	return append(buf, text...), nil
}

// DecodeTickHeader parses the fixed part of a tick frame and returns the
// velocity and the length of the chat payload that follows.
func DecodeTickHeader(hdr []byte) (float32, int, error) {
	if len(hdr) != TickHeaderSize {
		return 0, 0, &Error{Frame: "tick", Reason: fmt.Sprintf("header is %d bytes, want %d", len(hdr), TickHeaderSize)}
	}
	v, err := DecodeVelocity(hdr[:VelocitySize])
	if err != nil {
		return 0, 0, err
	}
	n, err := DecodeTextLength(hdr[VelocitySize:])
	if err != nil {
		return 0, 0, err
	}
	return v, n, nil
}
