package transport

// messageReader turns a sequence of messages into a byte stream, so that
// message-based links keep the whole-buffer Receive contract even when one
// Send on the far side does not line up with one Receive on this side.
// It is used from the single receiving goroutine and needs no locking.
type messageReader struct {
	next    func() ([]byte, error) // blocks until the next message arrives
	pending []byte
}

// readFull fills p completely and returns the number of bytes copied.
func (r *messageReader) readFull(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(r.pending) == 0 {
			msg, err := r.next()
			if err != nil {
				return n, err
			}
			r.pending = msg
			continue
		}
		c := copy(p[n:], r.pending)
		r.pending = r.pending[c:]
		n += c
	}
	return n, nil
}
