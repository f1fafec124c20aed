// Package protocol defines the wire frames exchanged between the two peers.
//
// There is no version negotiation and no magic number: both peers are
// expected to run the same build. All integers and float bits are big-endian.
package protocol

// Frame sizes.
const (
	VelocitySize   = 4                         // float32 bits
	LengthSize     = 4                         // uint32 text length prefix
	TickHeaderSize = VelocitySize + LengthSize // velocity + chat length
	MaxTextLen     = 4096                      // upper bound accepted for any text frame
)

// TickFrame is the per-tick message used when chat is enabled: the local paddle
// velocity plus an optional chat line, carried as one framed message so the
// exchange ordering is applied once per tick.
type TickFrame struct {
	Velocity float32
	Chat     string // empty when nothing is pending
}
