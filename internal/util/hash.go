// Package util provides shared utility functions.
package util

import (
	"hash/fnv"
)

// SessionTag computes a 4-byte hash from a link's local and remote address.
// The two peers see the pair in opposite order, so the tag is only meaningful
// locally: it prefixes log lines of one session.
func SessionTag(localAddr, remoteAddr string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(localAddr))
	h.Write([]byte(remoteAddr))
	return h.Sum32()
}
